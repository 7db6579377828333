// Copyright 2025 The rfmv Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package move

import (
	"go/ast"
	"go/token"
	"go/types"

	"github.com/dave-hillier/refactor-mcp-sub002/refactor"
)

type refKind int

const (
	refField refKind = iota
	refMethod
)

// A memberRef is one distinct source-type member the method body
// reaches through its receiver.
type memberRef struct {
	obj      types.Object
	name     string
	kind     refKind
	promoted bool // declared on an embedded type, reached by promotion
	write    bool // assigned, inc/dec'd, or address-taken
	pos      token.Pos
}

// analysis is everything the rest of the pipeline needs to know about
// one method body: which members it touches, whether it recurses,
// which batch-moved siblings it calls, and the identifier vocabulary
// used for collision-free naming.
type analysis struct {
	members []*memberRef
	byObj   map[types.Object]*memberRef

	selfRecursive bool
	selfValue     bool // the method referenced as a value, not called
	selfValuePos  token.Pos

	deps   []*types.Func // batch-moved callees, first-use order
	depSet map[*types.Func]bool

	recvUses []token.Pos // receiver mentioned outside a member selection

	idents  map[string]bool   // every identifier spelled in the declaration
	imports []refactor.Import // imports of packages the body refers to, alias kept
}

// analyze classifies every reference in decl that touches the source
// type's state. batch maps each method relocated in the same batch to
// its operation; calls to those become dependency edges, not member
// references.
func analyze(snap *refactor.Snapshot, op *Operation, decl *ast.FuncDecl, recv *types.Var, self *types.Func, batch map[*types.Func]*operation) (*analysis, error) {
	info := snap.Package().TypesInfo
	a := &analysis{
		byObj:  make(map[types.Object]*memberRef),
		depSet: make(map[*types.Func]bool),
		idents: make(map[string]bool),
	}
	importSeen := make(map[string]bool)
	var firstErr error
	fail := func(e *Error) {
		if firstErr == nil {
			firstErr = e
		}
	}

	refactor.Walk(decl, func(stack []ast.Node) {
		id, ok := stack[0].(*ast.Ident)
		if !ok {
			return
		}
		// Selector names reached through the receiver are rewritten
		// away, so they do not reserve their spelling.
		if sel, ok := stack[1].(*ast.SelectorExpr); !ok || sel.Sel != id || !isRecvIdent(info, recv, sel.X) {
			a.idents[id.Name] = true
		}

		use := info.Uses[id]
		if pn, ok := use.(*types.PkgName); ok {
			path := pn.Imported().Path()
			if !importSeen[path] {
				importSeen[path] = true
				name := ""
				if id.Name != pn.Imported().Name() {
					name = id.Name // body text spells the alias
				}
				a.imports = append(a.imports, refactor.Import{Name: name, Path: path})
			}
			return
		}
		if recv == nil || use != recv {
			return
		}

		sel, ok := stack[1].(*ast.SelectorExpr)
		if !ok || sel.X != id {
			// The receiver itself escapes the member-selection shape:
			// aliased, passed along, dereferenced, compared.
			a.recvUses = append(a.recvUses, id.Pos())
			return
		}

		var obj types.Object
		promoted := false
		if s := info.Selections[sel]; s != nil {
			obj = s.Obj()
			promoted = len(s.Index()) > 1
		} else {
			obj = info.Uses[sel.Sel]
		}
		if obj == nil {
			fail(errAt(ErrStructuralRewrite, op, snap.Position(sel.Pos()),
				"lost type information for %s", snap.Text(sel.Pos(), sel.End())))
			return
		}

		if fn, ok := obj.(*types.Func); ok {
			if fn == self {
				if isCallFun(stack, sel) {
					a.selfRecursive = true
				} else if !a.selfValue {
					a.selfValue = true
					a.selfValuePos = sel.Pos()
				}
				return
			}
			if _, moved := batch[fn]; moved {
				if !isCallFun(stack, sel) {
					fail(errAt(ErrStructuralRewrite, op, snap.Position(sel.Pos()),
						"%s is being relocated in this batch and cannot be used as a value", fn.Name()))
					return
				}
				if !a.depSet[fn] {
					a.depSet[fn] = true
					a.deps = append(a.deps, fn)
				}
				return
			}
		}

		ref := a.byObj[obj]
		if ref == nil {
			ref = &memberRef{obj: obj, name: obj.Name(), promoted: promoted, pos: sel.Pos()}
			if _, ok := obj.(*types.Func); ok {
				ref.kind = refMethod
			}
			a.byObj[obj] = ref
			a.members = append(a.members, ref)
		}
		if isWriteTarget(stack, sel) {
			ref.write = true
		}
	})

	if firstErr != nil {
		return nil, firstErr
	}
	return a, nil
}

func isRecvIdent(info *types.Info, recv *types.Var, e ast.Expr) bool {
	id, ok := e.(*ast.Ident)
	return ok && recv != nil && info.Uses[id] == recv
}

// isCallFun reports whether sel is the function operand of a call,
// allowing parentheses around it.
func isCallFun(stack []ast.Node, sel *ast.SelectorExpr) bool {
	i := nonParen(stack, 2)
	call, ok := stack[i].(*ast.CallExpr)
	if !ok {
		return false
	}
	fun := call.Fun
	for {
		if p, ok := fun.(*ast.ParenExpr); ok {
			fun = p.X
			continue
		}
		break
	}
	return fun == sel
}

// isWriteTarget reports whether sel appears as an assignment target,
// an inc/dec operand, or under an address-of.
func isWriteTarget(stack []ast.Node, sel *ast.SelectorExpr) bool {
	i := nonParen(stack, 2)
	switch p := stack[i].(type) {
	case *ast.AssignStmt:
		for _, lhs := range p.Lhs {
			if unparen(lhs) == ast.Expr(sel) {
				return true
			}
		}
	case *ast.IncDecStmt:
		return unparen(p.X) == ast.Expr(sel)
	case *ast.UnaryExpr:
		return p.Op == token.AND && unparen(p.X) == ast.Expr(sel)
	}
	return false
}

func nonParen(stack []ast.Node, i int) int {
	for ; i < len(stack); i++ {
		if _, ok := stack[i].(*ast.ParenExpr); !ok {
			break
		}
	}
	return i
}

func unparen(e ast.Expr) ast.Expr {
	for {
		p, ok := e.(*ast.ParenExpr)
		if !ok {
			return e
		}
		e = p.X
	}
}
