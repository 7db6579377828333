// Copyright 2025 The rfmv Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package move relocates methods between named types within a loaded
// package snapshot. A relocated method's body is rewritten to stay
// correct at its new home, a delegating stub keeps the original
// declaration site alive for callers outside the snapshot, and known
// call sites are redirected to the new location. Batches of moves are
// planned as a whole and applied atomically: one failure discards
// everything.
package move

import "fmt"

// Kind selects how a moved method reaches source-type state.
type Kind int

const (
	// Instance attaches the method to the target with a pointer
	// receiver; when the body touches source members, a single
	// parameter of the source type is prepended and the source type
	// routes calls through an accessor holding the target.
	Instance Kind = iota

	// Static attaches the method to the target with a value receiver
	// and one synthesized parameter per referenced source member;
	// calls use a composite-literal receiver: Target{}.M(args).
	Static
)

func (k Kind) String() string {
	if k == Static {
		return "static"
	}
	return "instance"
}

// AccessorKind says what shape the source type's accessor to the
// target takes for instance moves.
type AccessorKind int

const (
	AccessorField    AccessorKind = iota // a struct field of the target type
	AccessorProperty                     // a getter method returning *Target
)

func (k AccessorKind) String() string {
	if k == AccessorProperty {
		return "property"
	}
	return "field"
}

// An Operation describes one requested move. It is consumed by a
// single batch and never reused.
type Operation struct {
	SourceType string
	Method     string
	Signature  string // optional; when set, must match the method's signature
	TargetType string
	TargetFile string // optional; file to create for an absent target type

	Kind         Kind
	Accessor     string // instance moves: accessor on the source type
	AccessorKind AccessorKind
}

func (op *Operation) String() string {
	return op.SourceType + "." + op.Method + " -> " + op.TargetType
}

// validate checks the descriptor's own shape, before any lookup.
func (op *Operation) validate() error {
	if op.SourceType == "" || op.Method == "" || op.TargetType == "" {
		return errf(ErrLookup, op, "source type, method, and target type are required")
	}
	if op.SourceType == op.TargetType {
		return errf(ErrEligibility, op, "target type equals source type")
	}
	if op.Kind == Instance && op.Accessor == "" {
		return errf(ErrLookup, op, "instance move requires an accessor name")
	}
	return nil
}

// A Result records one completed move.
type Result struct {
	Old  string // qualified original location, "Calculator.GetAverage"
	New  string // qualified new location, "MathUtilities.GetAverage"
	File string // file now holding the method
	Pkg  string // package (namespace) the method lives in
}

func (r Result) String() string {
	return fmt.Sprintf("moved %s -> %s (%s)", r.Old, r.New, r.File)
}

// A Summary is what a successful batch reports back.
type Summary struct {
	Moves   []Result
	Written []string // existing files updated
	Created []string // new files created
}
