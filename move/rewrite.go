// Copyright 2025 The rfmv Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package move

import (
	"fmt"
	"go/ast"
	"go/types"
	"strings"

	"github.com/dave-hillier/refactor-mcp-sub002/refactor"
)

// rewriteMethod produces the moved method's full declaration text for
// its new home. All transformations - receiver replacement, parameter
// synthesis, member collapse, self-call and sibling-call redirection -
// happen in one coordinated pass of structural span replacements over
// the original text, so shapes like keyed composite literals, selector
// chains, and function literals survive intact. The doc comment
// travels with the method.
func (o *operation) rewriteMethod(b *batch) (string, error) {
	snap := b.snap
	decl := o.decl
	lo := decl.Pos()
	if decl.Doc != nil {
		lo = decl.Doc.Pos()
	}
	text := append([]byte(nil), snap.Text(lo, decl.End())...)
	buf := refactor.NewBufferAt(lo, text)

	// Receiver.
	var recvInner string
	if o.op.Kind == Static {
		recvInner = o.op.TargetType
		if o.targetRecvName != "" {
			recvInner = o.targetRecvName + " " + o.op.TargetType
		}
	} else {
		recvInner = o.targetRecvName + " *" + o.op.TargetType
	}
	buf.Replace(decl.Recv.Opening+1, decl.Recv.Closing, recvInner)

	// Synthesized parameters go in front of the original list.
	var ins []string
	if o.op.Kind == Static {
		for _, p := range o.params {
			ins = append(ins, p.name+" "+p.typ)
		}
	} else if o.srcParam != nil {
		ins = append(ins, o.srcParam.name+" "+o.srcParam.typ)
	}
	if len(ins) > 0 {
		sep := ""
		if decl.Type.Params != nil && len(decl.Type.Params.List) > 0 {
			sep = ", "
		}
		buf.Insert(decl.Type.Params.Opening+1, strings.Join(ins, ", ")+sep)
	}

	if o.recv == nil {
		// Unnamed receiver: the body cannot reach the source type.
		return string(buf.Bytes()), nil
	}
	info := snap.Package().TypesInfo
	var firstErr error
	refactor.Walk(decl.Body, func(stack []ast.Node) {
		id, ok := stack[0].(*ast.Ident)
		if !ok || info.Uses[id] != o.recv {
			return
		}
		sel, ok := stack[1].(*ast.SelectorExpr)
		if !ok || sel.X != id {
			// Whole-receiver use; the instance-mode source parameter
			// keeps the receiver's name, so the text stands as is.
			return
		}
		obj := selObj(info, sel)
		if obj == nil {
			return // analysis already rejected this shape
		}
		fn, _ := obj.(*types.Func)

		switch {
		case fn != nil && fn == o.fn:
			// Recursive self-call: address the new location and
			// thread the synthesized arguments through.
			call := callOf(stack)
			buf.Replace(sel.Pos(), sel.End(), o.targetRecvName+"."+o.op.Method)
			var extra []string
			if o.op.Kind == Static {
				for _, p := range o.params {
					extra = append(extra, p.name)
				}
			} else if o.srcParam != nil {
				extra = append(extra, o.srcParam.name)
			}
			insertArgs(buf, call, extra)

		case fn != nil && b.byFunc[fn] != nil:
			if err := o.rewriteSiblingCall(b, buf, sel, callOf(stack), b.byFunc[fn]); err != nil && firstErr == nil {
				firstErr = err
			}

		default:
			if o.op.Kind == Static {
				buf.Replace(sel.Pos(), sel.End(), o.paramName[obj])
			}
		}
	})
	if firstErr != nil {
		return "", firstErr
	}
	return string(buf.Bytes()), nil
}

// rewriteSiblingCall redirects a call to a method relocated by
// another operation of the same batch so it lands on that method's
// new location rather than the delegating stub.
func (o *operation) rewriteSiblingCall(b *batch, buf *refactor.Buffer, sel *ast.SelectorExpr, call *ast.CallExpr, callee *operation) error {
	name := callee.op.Method
	switch callee.op.Kind {
	case Static:
		var extra []string
		if o.op.Kind == Static {
			// The caller's closed parameter list carries every member
			// the callee needs, under the caller's own names.
			for _, p := range callee.params {
				extra = append(extra, o.paramName[p.ref.obj])
			}
		} else if len(callee.params) > 0 {
			// A callee with parameters forced the caller's source
			// parameter into existence; a paramless callee did not,
			// and needs nothing forwarded.
			extra = callee.forwardArgs(o.srcParam.name)
		}
		buf.Replace(sel.Pos(), sel.End(), callee.op.TargetType+"{}."+name)
		insertArgs(buf, call, extra)

	case Instance:
		if o.op.Kind == Static {
			return errAt(ErrComposition, o.op, b.snap.Position(sel.Pos()),
				"static move cannot call %s, which is moving as an instance method", name)
		}
		var route string
		if callee.op.TargetType == o.op.TargetType {
			route = o.targetRecvName
		} else {
			route = o.srcParam.name + callee.route
		}
		buf.Replace(sel.Pos(), sel.End(), route+"."+name)
		if callee.needsSrcParam {
			insertArgs(buf, call, []string{o.srcParam.name})
		}
	}
	return nil
}

// stubText builds the delegating stub left at the original
// declaration site: same signature, body forwarding to the new
// location.
func (o *operation) stubText(b *batch) string {
	snap := b.snap
	decl := o.decl

	taken := make(map[string]bool)
	for _, f := range decl.Type.Params.List {
		for _, n := range f.Names {
			taken[n.Name] = true
		}
	}
	rName := o.recvName
	if rName == "" || rName == "_" {
		rName = deriveName(lowerFirst(o.op.SourceType), taken)
	}
	recvType := string(snap.Text(decl.Recv.List[0].Type.Pos(), decl.Recv.List[0].Type.End()))

	var decls, fwd []string
	n := 0
	for _, f := range decl.Type.Params.List {
		typText := string(snap.Text(f.Type.Pos(), f.Type.End()))
		_, variadic := f.Type.(*ast.Ellipsis)
		suffix := ""
		if variadic {
			suffix = "..."
		}
		if len(f.Names) == 0 {
			name := fmt.Sprintf("a%d", n)
			n++
			decls = append(decls, name+" "+typText)
			fwd = append(fwd, name+suffix)
			continue
		}
		var names []string
		for _, nm := range f.Names {
			name := nm.Name
			if name == "_" {
				name = fmt.Sprintf("a%d", n)
			}
			n++
			names = append(names, name)
			fwd = append(fwd, name+suffix)
		}
		decls = append(decls, strings.Join(names, ", ")+" "+typText)
	}

	results := ""
	ret := ""
	if decl.Type.Results != nil && len(decl.Type.Results.List) > 0 {
		results = " " + string(snap.Text(decl.Type.Results.Pos(), decl.Type.Results.End()))
		ret = "return "
	}

	args := append(o.forwardArgs(rName), fwd...)
	var callExpr string
	if o.op.Kind == Static {
		callExpr = o.op.TargetType + "{}." + o.op.Method + "(" + strings.Join(args, ", ") + ")"
	} else {
		callExpr = rName + o.route + "." + o.op.Method + "(" + strings.Join(args, ", ") + ")"
	}

	return "func (" + rName + " " + recvType + ") " + o.op.Method +
		"(" + strings.Join(decls, ", ") + ")" + results + " {\n\t" + ret + callExpr + "\n}"
}

func insertArgs(buf *refactor.Buffer, call *ast.CallExpr, extra []string) {
	if call == nil || len(extra) == 0 {
		return
	}
	s := strings.Join(extra, ", ")
	if len(call.Args) > 0 {
		s += ", "
	}
	buf.Insert(call.Lparen+1, s)
}

func callOf(stack []ast.Node) *ast.CallExpr {
	call, _ := stack[nonParen(stack, 2)].(*ast.CallExpr)
	return call
}

func selObj(info *types.Info, sel *ast.SelectorExpr) types.Object {
	if s := info.Selections[sel]; s != nil {
		return s.Obj()
	}
	return info.Uses[sel.Sel]
}
