// Copyright 2025 The rfmv Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package move

import (
	"fmt"
	"go/token"
)

// Error kinds. Every rejected batch reports exactly one *Error
// wrapping one of these sentinels, so callers can classify failures
// with errors.Is.
const (
	ErrLookup            = errKind("lookup error")
	ErrEligibility       = errKind("eligibility error")
	ErrComposition       = errKind("composition error")
	ErrDuplicate         = errKind("duplicate error")
	ErrStructuralRewrite = errKind("structural rewrite error")
)

type errKind string

func (k errKind) Error() string { return string(k) }

// An Error explains why a move was rejected. Errors are always
// produced before any buffer is edited: a failed batch leaves every
// file byte-identical to its loaded state.
type Error struct {
	Kind errKind
	Op   string // the operation being planned, "A.M -> B"
	Pos  token.Position
	Msg  string
}

func (e *Error) Error() string {
	s := string(e.Kind)
	if e.Op != "" {
		s += ": " + e.Op
	}
	if e.Pos.IsValid() {
		s += ": " + e.Pos.String()
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	return s
}

func (e *Error) Unwrap() error { return e.Kind }

func errf(kind errKind, op *Operation, format string, args ...any) *Error {
	e := &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
	if op != nil {
		e.Op = op.String()
	}
	return e
}

func errAt(kind errKind, op *Operation, pos token.Position, format string, args ...any) *Error {
	e := errf(kind, op, format, args...)
	e.Pos = pos
	return e
}
