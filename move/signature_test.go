// Copyright 2025 The rfmv Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package move

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveName(t *testing.T) {
	taken := map[string]bool{"data": true, "data2": true}
	assert.Equal(t, "data3", deriveName("data", taken))
	assert.True(t, taken["data3"])

	assert.Equal(t, "sum", deriveName("sum", map[string]bool{}))
	assert.Equal(t, "v", deriveName("", map[string]bool{}))

	// Member names that spell keywords cannot become parameters as is.
	assert.Equal(t, "typeVal", deriveName("type", map[string]bool{}))
}

func TestLowerFirst(t *testing.T) {
	assert.Equal(t, "mathUtilities", lowerFirst("MathUtilities"))
	assert.Equal(t, "x", lowerFirst("x"))
	assert.Equal(t, "", lowerFirst(""))
}

func TestOperationValidate(t *testing.T) {
	op := &Operation{SourceType: "A", Method: "M", TargetType: "A"}
	assert.ErrorIs(t, op.validate(), ErrEligibility)

	op = &Operation{SourceType: "A", TargetType: "B"}
	assert.ErrorIs(t, op.validate(), ErrLookup)

	op = &Operation{SourceType: "A", Method: "M", TargetType: "B"} // instance, no accessor
	assert.ErrorIs(t, op.validate(), ErrLookup)

	op = &Operation{SourceType: "A", Method: "M", TargetType: "B", Kind: Static}
	assert.NoError(t, op.validate())
}
