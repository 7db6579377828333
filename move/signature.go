// Copyright 2025 The rfmv Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package move

import (
	"go/token"
	"go/types"
	"strconv"
	"unicode"
	"unicode/utf8"
)

// A param is one synthesized formal parameter of a moved method.
type param struct {
	name string
	typ  string     // rendered relative to the package
	ref  *memberRef // nil for the instance-mode source parameter
}

// synthesize decides the moved method's new signature: the target
// receiver name, the synthesized parameter list (static) or the
// single source parameter (instance). It never drops a referenced
// member - anything it cannot express fails the whole batch.
func (o *operation) synthesize(b *batch) error {
	pkg := b.snap.Package().Types
	qual := types.RelativeTo(pkg)

	taken := make(map[string]bool, len(o.a.idents)+4)
	for name := range o.a.idents {
		taken[name] = true
	}

	switch o.op.Kind {
	case Static:
		if len(o.a.recvUses) > 0 {
			return errAt(ErrComposition, o.op, b.snap.Position(o.a.recvUses[0]),
				"method uses its receiver as a value and cannot become static")
		}
		if o.a.selfValue {
			return errAt(ErrStructuralRewrite, o.op, b.snap.Position(o.a.selfValuePos),
				"method is used as a value in its own body")
		}
		if o.a.selfRecursive {
			o.targetRecvName = deriveName(lowerFirst(o.op.TargetType), taken)
		}
		for _, ref := range o.closure {
			if ref.write {
				return errAt(ErrComposition, o.op, b.snap.Position(ref.pos),
					"member %s is written; a synthesized parameter would not write through to the instance", ref.name)
			}
			typ, ok := renderMemberType(ref, pkg, qual)
			if !ok {
				return errAt(ErrComposition, o.op, b.snap.Position(ref.pos),
					"type of member %s cannot be expressed outside %s", ref.name, o.op.SourceType)
			}
			name := deriveName(lowerFirst(ref.name), taken)
			o.params = append(o.params, param{name: name, typ: typ, ref: ref})
			o.paramName[ref.obj] = name
		}

	case Instance:
		if o.a.selfValue {
			return errAt(ErrStructuralRewrite, o.op, b.snap.Position(o.a.selfValuePos),
				"method is used as a value in its own body")
		}
		o.targetRecvName = deriveName(lowerFirst(o.op.TargetType), taken)
		if o.needsSrcParam {
			name := o.recvName
			if name == "" {
				name = deriveName(lowerFirst(o.op.SourceType), taken)
			}
			o.srcParam = &param{name: name, typ: types.TypeString(o.recv.Type(), qual)}
		}
	}
	return nil
}

// renderMemberType renders the type a synthesized parameter for ref
// must carry: the declared type for fields, the method-value function
// type for methods.
func renderMemberType(ref *memberRef, pkg *types.Package, qual types.Qualifier) (string, bool) {
	t := ref.obj.Type()
	if ref.kind == refMethod {
		sig := t.(*types.Signature)
		t = types.NewSignatureType(nil, nil, nil, sig.Params(), sig.Results(), sig.Variadic())
	}
	if !expressible(t, pkg, make(map[types.Type]bool)) {
		return "", false
	}
	return types.TypeString(t, qual), true
}

// expressible reports whether t can be spelled in pkg: no invalid
// types, no type parameters, no unexported named types from other
// packages.
func expressible(t types.Type, pkg *types.Package, seen map[types.Type]bool) bool {
	if seen[t] {
		return true
	}
	seen[t] = true

	switch t := t.(type) {
	case *types.Basic:
		return t.Kind() != types.Invalid
	case *types.Named:
		obj := t.Obj()
		if obj.Pkg() != nil && obj.Pkg() != pkg && !obj.Exported() {
			return false
		}
		if args := t.TypeArgs(); args != nil {
			for i := 0; i < args.Len(); i++ {
				if !expressible(args.At(i), pkg, seen) {
					return false
				}
			}
		}
		return true
	case *types.Pointer:
		return expressible(t.Elem(), pkg, seen)
	case *types.Slice:
		return expressible(t.Elem(), pkg, seen)
	case *types.Array:
		return expressible(t.Elem(), pkg, seen)
	case *types.Chan:
		return expressible(t.Elem(), pkg, seen)
	case *types.Map:
		return expressible(t.Key(), pkg, seen) && expressible(t.Elem(), pkg, seen)
	case *types.Signature:
		for i := 0; i < t.Params().Len(); i++ {
			if !expressible(t.Params().At(i).Type(), pkg, seen) {
				return false
			}
		}
		for i := 0; i < t.Results().Len(); i++ {
			if !expressible(t.Results().At(i).Type(), pkg, seen) {
				return false
			}
		}
		return true
	case *types.Struct:
		for i := 0; i < t.NumFields(); i++ {
			if !expressible(t.Field(i).Type(), pkg, seen) {
				return false
			}
		}
		return true
	case *types.TypeParam:
		return false
	}
	return true
}

// deriveName returns base, suffixing digits until it avoids every
// name in taken, and reserves the result.
func deriveName(base string, taken map[string]bool) string {
	if base == "" {
		base = "v"
	}
	if token.IsKeyword(base) {
		base += "Val"
	}
	name := base
	for n := 2; taken[name]; n++ {
		name = base + strconv.Itoa(n)
	}
	taken[name] = true
	return name
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || unicode.IsLower(r) {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}

// forwardArgs spells the argument list a delegating stub or rewritten
// call site passes for the synthesized parameters, reading each
// member off the given receiver expression.
func (o *operation) forwardArgs(recv string) []string {
	var args []string
	if o.op.Kind == Static {
		for _, p := range o.params {
			args = append(args, recv+"."+p.ref.name)
		}
	} else if o.needsSrcParam {
		args = append(args, recv)
	}
	return args
}
