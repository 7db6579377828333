// Copyright 2025 The rfmv Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package refactor

import (
	"fmt"
	"go/scanner"
	"go/token"
	"go/types"
	"sort"
	"strings"
)

// An Error is an error at a particular source position.
type Error struct {
	Pos token.Position
	Msg string
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
	}
	return e.Msg
}

type errorKey struct {
	pos token.Position
	msg string
}

// ErrorList is a set of Errors. It is also an error itself. The zero
// value is an empty list, ready to use.
type ErrorList struct {
	errs []*Error
	set  map[errorKey]bool
}

// Add adds an error to l. Position information is taken from the
// error when it carries any (Error, scanner.Error, types.Error);
// lists are merged; duplicates (same position and message) are
// suppressed.
func (l *ErrorList) Add(err error) {
	var e *Error

	switch err := err.(type) {
	case nil:
		return

	case *ErrorList:
		for _, e := range err.errs {
			l.Add(e)
		}
		return

	case scanner.ErrorList:
		for _, e := range err {
			l.Add(e)
		}
		return

	case *Error:
		e = err

	case *scanner.Error:
		e = &Error{err.Pos, err.Msg}

	case types.Error:
		e = &Error{err.Fset.Position(err.Pos), err.Msg}

	default:
		e = &Error{token.Position{}, err.Error()}
	}

	k := errorKey{e.Pos, e.Msg}
	if !l.set[k] {
		if l.set == nil {
			l.set = make(map[errorKey]bool)
		}
		l.errs = append(l.errs, e)
		l.set[k] = true
	}
}

// Error sorts and returns a "\n" separated list of formatted errors.
func (l *ErrorList) Error() string {
	if len(l.errs) == 0 {
		return "no errors"
	}

	sort.Slice(l.errs, func(i, j int) bool {
		p1, p2 := l.errs[i].Pos, l.errs[j].Pos
		if p1.Filename != p2.Filename {
			return p1.Filename < p2.Filename
		}
		return p1.Offset < p2.Offset
	})

	buf := new(strings.Builder)
	for i, e := range l.errs {
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(e.Error())
	}
	return buf.String()
}

// Err returns an error equivalent to this error list.
// If the list is empty, Err returns nil.
func (l *ErrorList) Err() error {
	if len(l.errs) == 0 {
		return nil
	}
	return l
}
