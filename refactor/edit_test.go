// Copyright 2025 The rfmv Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package refactor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufferEdits(t *testing.T) {
	b := NewBufferAt(100, []byte("hello world"))
	b.Replace(100, 105, "goodbye")
	b.Insert(106, "cruel ")
	assert.Equal(t, "goodbye cruel world", b.String())

	// The queue survives Bytes; more edits can follow.
	b.Delete(109, 110)
	assert.Equal(t, "goodbye cruel word", b.String())
}

func TestBufferInsertOrder(t *testing.T) {
	b := NewBufferAt(1, []byte("ab"))
	b.Insert(2, "1")
	b.Insert(2, "2")
	b.Insert(2, "3")
	assert.Equal(t, "a123b", b.String())
}

func TestBufferOverlapPanics(t *testing.T) {
	b := NewBufferAt(1, []byte("abcdef"))
	b.Replace(1, 4, "x")
	b.Replace(3, 6, "y")
	assert.Panics(t, func() { b.Bytes() })
}

func TestBufferOutOfRangePanics(t *testing.T) {
	b := NewBufferAt(1, []byte("abc"))
	assert.Panics(t, func() { b.Insert(10, "x") })
}
