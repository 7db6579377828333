// Copyright 2025 The rfmv Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package refactor

import (
	"go/ast"
	"go/token"
	"go/types"
)

func (s *Snapshot) Position(pos token.Pos) token.Position {
	return s.fset.Position(pos)
}

// Text returns the snapshot's source text in [lo, hi), before any
// pending edits.
func (s *Snapshot) Text(lo, hi token.Pos) []byte {
	plo := s.Position(lo)
	phi := s.Position(hi)
	f := s.files[plo.Filename]
	if f == nil {
		panic("text in unknown file " + plo.Filename)
	}
	return f.Text[plo.Offset:phi.Offset]
}

// FileAt returns the file containing pos.
func (s *Snapshot) FileAt(pos token.Pos) *File {
	return s.files[s.Position(pos).Filename]
}

// SyntaxAt returns the stack of syntax nodes enclosing pos,
// innermost first.
func (s *Snapshot) SyntaxAt(pos token.Pos) []ast.Node {
	f := s.FileAt(pos)
	if f == nil {
		return nil
	}

	var stack []ast.Node
	ast.Inspect(f.Syntax, func(n ast.Node) bool {
		if n == nil || pos < n.Pos() || n.End() <= pos {
			return false
		}
		stack = append(stack, n)
		return true
	})
	for i, j := 0, len(stack)-1; i < j; i, j = i+1, j-1 {
		stack[i], stack[j] = stack[j], stack[i]
	}
	return stack
}

// LookupAt resolves name in the scope enclosing pos.
func (s *Snapshot) LookupAt(name string, pos token.Pos) types.Object {
	for _, f := range s.pkg.Files {
		syntax := f.Syntax
		if syntax.Pos() <= pos && pos < syntax.End() {
			_, obj := s.pkg.TypesInfo.Scopes[syntax].Innermost(pos).LookupParent(name, pos)
			return obj
		}
	}
	return nil
}

// Walk traverses n, calling f with the stack of nodes at each node,
// innermost first (stack[0] is the current node).
func Walk(n ast.Node, f func(stack []ast.Node)) {
	WalkRange(n, 0, token.Pos(^uint(0)>>1), f)
}

// WalkRange is Walk restricted to nodes overlapping [lo, hi).
func WalkRange(n ast.Node, lo, hi token.Pos, f func(stack []ast.Node)) {
	var stack []ast.Node
	var stackPos int

	ast.Inspect(n, func(n ast.Node) bool {
		if n == nil {
			stackPos++
			return true
		}
		if n.End() < lo || hi <= n.Pos() {
			return false
		}
		if stackPos == 0 {
			old := len(stack)
			stack = append(stack, nil)
			stack = stack[:cap(stack)]
			copy(stack[len(stack)-old:], stack[:old])
			stackPos = len(stack) - old
		}
		stackPos--
		stack[stackPos] = n
		f(stack[stackPos:])
		return true
	})

	if stackPos != len(stack) {
		panic("internal stack error")
	}
}

// ForEachFile visits every type-checked file of the snapshot.
func (s *Snapshot) ForEachFile(f func(file *File)) {
	for _, file := range s.pkg.Files {
		f(file)
	}
}

// ReferencesTo is the snapshot's reverse-reference index: it visits
// every identifier in the package resolving to obj, with the node
// stack at that identifier.
func (s *Snapshot) ReferencesTo(obj types.Object, f func(file *File, stack []ast.Node)) {
	for _, file := range s.pkg.Files {
		file := file
		Walk(file.Syntax, func(stack []ast.Node) {
			id, ok := stack[0].(*ast.Ident)
			if !ok || s.pkg.TypesInfo.Uses[id] != obj {
				return
			}
			f(file, stack)
		})
	}
}
