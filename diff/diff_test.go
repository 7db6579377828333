// Copyright 2025 The rfmv Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package diff_test

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dave-hillier/refactor-mcp-sub002/diff"
)

func TestUnifiedEqual(t *testing.T) {
	assert.Nil(t, diff.Unified("a", []byte("same\n"), "b", []byte("same\n")))
	assert.Nil(t, diff.Unified("a", nil, "b", nil))
}

func TestUnifiedChange(t *testing.T) {
	got := diff.Unified("old/f.go", []byte("a\nb\nc\n"), "new/f.go", []byte("a\nB\nc\n"))
	want := "diff old/f.go new/f.go\n" +
		"--- old/f.go\n" +
		"+++ new/f.go\n" +
		"@@ -1,3 +1,3 @@\n" +
		" a\n" +
		"-b\n" +
		"+B\n" +
		" c\n"
	assert.Equal(t, want, string(got))
}

func TestUnifiedAppend(t *testing.T) {
	got := diff.Unified("f", []byte("a\n"), "f", []byte("a\nb\n"))
	want := "diff f f\n--- f\n+++ f\n@@ -1,1 +1,2 @@\n a\n+b\n"
	assert.Equal(t, want, string(got))
}

func TestUnifiedNoFinalNewline(t *testing.T) {
	got := diff.Unified("f", []byte("a"), "f", []byte("b"))
	want := "diff f f\n--- f\n+++ f\n@@ -1,1 +1,1 @@\n-a\n+b\n"
	assert.Equal(t, want, string(got))
}

func TestUnifiedSeparateHunks(t *testing.T) {
	var oldB, newB bytes.Buffer
	for i := 1; i <= 20; i++ {
		fmt.Fprintf(&oldB, "line%d\n", i)
		if i == 2 {
			fmt.Fprintf(&newB, "changed\n")
		} else if i == 18 {
			// dropped line
		} else {
			fmt.Fprintf(&newB, "line%d\n", i)
		}
	}
	got := diff.Unified("f", oldB.Bytes(), "f", newB.Bytes())
	assert.Equal(t, 2, bytes.Count(got, []byte("@@ -")))
	assert.Contains(t, string(got), "-line2\n+changed\n")
	assert.Contains(t, string(got), "-line18\n")
}
