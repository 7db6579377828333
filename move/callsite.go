// Copyright 2025 The rfmv Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package move

import (
	"go/ast"
	"go/token"

	"github.com/dave-hillier/refactor-mcp-sub002/refactor"
)

// updateCallSites redirects calls of the moved methods to their new
// locations. Only calls whose receiver expression is a side-effect-free
// identifier or selector chain of the source type are rewritten;
// method values, method expressions, calls on computed receivers, and
// calls promoted through an embedded field stay on the delegating
// stub. References inside relocated bodies were already rewritten
// with those bodies.
func (b *batch) updateCallSites() {
	var moved []span
	for _, o := range b.ops {
		lo := o.decl.Pos()
		if o.decl.Doc != nil {
			lo = o.decl.Doc.Pos()
		}
		moved = append(moved, span{lo, o.decl.End()})
	}
	inMoved := func(pos token.Pos) bool {
		for _, s := range moved {
			if s.lo <= pos && pos < s.hi {
				return true
			}
		}
		return false
	}

	info := b.snap.Package().TypesInfo
	for _, o := range b.ops {
		o := o
		b.snap.ReferencesTo(o.fn, func(_ *refactor.File, stack []ast.Node) {
			id := stack[0].(*ast.Ident)
			if inMoved(id.Pos()) {
				return
			}
			sel, ok := stack[1].(*ast.SelectorExpr)
			if !ok || sel.Sel != id {
				return
			}
			if tv, ok := info.Types[sel.X]; ok && tv.IsType() {
				return // method expression
			}
			if s := info.Selections[sel]; s != nil && len(s.Index()) > 1 {
				// Promoted through an embedded field: the receiver
				// expression does not have the source type, so the
				// redirected spelling would not type-check.
				return
			}
			call := callOf(stack)
			if call == nil || !isCallFun(stack, sel) {
				return // method value
			}
			if !purePath(sel.X) {
				return
			}

			recvText := string(b.snap.Text(sel.X.Pos(), sel.X.End()))
			if o.op.Kind == Static {
				b.snap.ReplaceAt(sel.Pos(), sel.End(), o.op.TargetType+"{}."+o.op.Method)
				insertCallArgs(b.snap, call, o.forwardArgs(recvText))
			} else {
				b.snap.ReplaceAt(sel.X.End(), sel.End(), o.route+"."+o.op.Method)
				if o.needsSrcParam {
					insertCallArgs(b.snap, call, []string{recvText})
				}
			}
		})
	}
}

type span struct {
	lo, hi token.Pos
}

func insertCallArgs(snap *refactor.Snapshot, call *ast.CallExpr, extra []string) {
	if len(extra) == 0 {
		return
	}
	s := ""
	for i, a := range extra {
		if i > 0 {
			s += ", "
		}
		s += a
	}
	if len(call.Args) > 0 {
		s += ", "
	}
	snap.InsertAt(call.Lparen+1, s)
}

// purePath reports whether e is an identifier or a chain of
// selections rooted at one, with optional parentheses: an expression
// safe to evaluate more than once.
func purePath(e ast.Expr) bool {
	for {
		switch t := unparen(e).(type) {
		case *ast.Ident:
			return true
		case *ast.SelectorExpr:
			e = t.X
		default:
			return false
		}
	}
}
