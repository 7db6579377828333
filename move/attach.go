// Copyright 2025 The rfmv Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package move

import (
	"go/ast"
	"go/types"

	"github.com/dave-hillier/refactor-mcp-sub002/refactor"
)

// targetInfo records where an operation's target type lives (or will
// live) once the batch applies.
type targetInfo struct {
	created bool
	file    string // file declaring the target; moved methods append here
}

// typePlan is one target type the batch will create. Operations
// naming the same absent target share a plan so the type is declared
// once.
type typePlan struct {
	name    string
	file    string
	newFile bool
	imports map[string]refactor.Import // keyed by path; filled after analysis
}

// accessorPlan is one accessor the batch will synthesize on a source
// type. Keyed by (source type, accessor name) so two moves through
// the same accessor declare it once.
type accessorPlan struct {
	src     *types.Named
	name    string
	kind    AccessorKind
	target  string
	backing string // property kind only
}

// resolveTarget checks the target type's eligibility, or plans its
// creation when the name is unbound in the package scope.
func (o *operation) resolveTarget(b *batch) error {
	snap := b.snap
	name := o.op.TargetType

	tn, bound := snap.LookupType(name)
	if bound && tn == nil {
		return errf(ErrEligibility, o.op, "%s is not a type", name)
	}
	if tn != nil {
		if tn.IsAlias() {
			return errf(ErrEligibility, o.op, "%s is a type alias, not a struct type", name)
		}
		named, ok := tn.Type().(*types.Named)
		if !ok {
			return errf(ErrEligibility, o.op, "%s is not a struct type", name)
		}
		if _, ok := named.Underlying().(*types.Struct); !ok {
			return errf(ErrEligibility, o.op, "%s is not a struct type", name)
		}
		if obj, _, _ := types.LookupFieldOrMethod(named, true, snap.Package().Types, o.op.Method); obj != nil {
			return errAt(ErrDuplicate, o.op, snap.Position(obj.Pos()),
				"%s already declares %s", name, o.op.Method)
		}
		f := snap.FileAt(tn.Pos())
		if f == nil {
			return errf(ErrLookup, o.op, "%s is not declared in this package", name)
		}
		o.target = targetInfo{file: f.Name}
		return nil
	}

	// Unbound name: create the type, in the requested file or the
	// file declaring the source type.
	file := o.op.TargetFile
	if file == "" {
		file = snap.FileAt(o.decl.Pos()).Name
	}
	if plan := b.newTypes[name]; plan != nil {
		if o.op.TargetFile != "" && plan.file != file {
			return errf(ErrComposition, o.op,
				"target %s is created in %s by another move in this batch", name, plan.file)
		}
		o.target = targetInfo{created: true, file: plan.file}
		return nil
	}
	plan := &typePlan{
		name:    name,
		file:    file,
		newFile: snap.FileByName(file) == nil,
		imports: make(map[string]refactor.Import),
	}
	b.newTypes[name] = plan
	o.target = targetInfo{created: true, file: file}
	return nil
}

// resolveAccessor finds or plans the accessor routing an instance
// move's delegating stub, and fixes the route expression the stub and
// call sites will use.
func (o *operation) resolveAccessor(b *batch) error {
	snap := b.snap
	acc := o.op.Accessor
	pkg := snap.Package().Types

	obj, _, _ := types.LookupFieldOrMethod(o.src, true, pkg, acc)
	switch o.op.AccessorKind {
	case AccessorField:
		switch m := obj.(type) {
		case nil:
			b.planAccessor(o, acc, "")
		case *types.Var:
			if !m.IsField() || !namedType(m.Type(), o.op.TargetType) {
				return errAt(ErrComposition, o.op, snap.Position(m.Pos()),
					"field %s has type %s; want %s", acc, m.Type(), o.op.TargetType)
			}
		default:
			return errAt(ErrComposition, o.op, snap.Position(obj.Pos()),
				"%s.%s is not a field", o.op.SourceType, acc)
		}
		o.route = "." + acc

	case AccessorProperty:
		switch m := obj.(type) {
		case nil:
			taken := map[string]bool{acc: true}
			for f := range memberNames(o.src) {
				taken[f] = true
			}
			backing := deriveName(lowerFirst(acc), taken)
			b.planAccessor(o, acc, backing)
		case *types.Func:
			sig := m.Type().(*types.Signature)
			if sig.Params().Len() != 0 || sig.Results().Len() != 1 ||
				!pointerTo(sig.Results().At(0).Type(), o.op.TargetType) {
				return errAt(ErrComposition, o.op, snap.Position(m.Pos()),
					"%s.%s has signature %s; want func() *%s", o.op.SourceType, acc, sig, o.op.TargetType)
			}
		default:
			return errAt(ErrComposition, o.op, snap.Position(obj.Pos()),
				"%s.%s is not a method", o.op.SourceType, acc)
		}
		o.route = "." + acc + "()"
	}
	return nil
}

func (b *batch) planAccessor(o *operation, acc, backing string) {
	key := o.op.SourceType + "." + acc
	if plan := b.newAccessors[key]; plan != nil {
		return
	}
	b.newAccessors[key] = &accessorPlan{
		src:     o.src,
		name:    acc,
		kind:    o.op.AccessorKind,
		target:  o.op.TargetType,
		backing: backing,
	}
}

// applyTargets declares every planned target type, creating files as
// needed. Runs before method texts are appended so a created file's
// buffer exists to receive them. Resolution could not know which
// imports each moved body drags along, so the plans collect them here,
// from the completed analyses.
func (b *batch) applyTargets() error {
	for _, o := range b.ops {
		if !o.target.created {
			continue
		}
		plan := b.newTypes[o.op.TargetType]
		for _, imp := range o.a.imports {
			plan.imports[imp.Path] = imp
		}
	}
	for _, name := range sortedKeys(b.newTypes) {
		plan := b.newTypes[name]
		decl := "type " + plan.name + " struct{}"
		if plan.newFile {
			text := "package " + b.snap.Package().Name + "\n\n" + decl + "\n"
			f, err := b.snap.CreateFile(plan.file, text)
			if err != nil {
				return errf(ErrComposition, nil, "creating %s: %v", plan.file, err)
			}
			b.snap.EnsureImports(f, sortedImports(plan.imports))
			continue
		}
		f := b.snap.FileByName(plan.file)
		b.snap.InsertAt(f.Syntax.End(), "\n\n"+decl+"\n")
	}
	return nil
}

// applyAccessors synthesizes the planned accessors: a value field of
// the target type, plus a getter for the property kind.
func (b *batch) applyAccessors() {
	for _, key := range sortedKeys(b.newAccessors) {
		plan := b.newAccessors[key]
		st := structDecl(b.snap, plan.src)
		srcFile := b.snap.FileAt(plan.src.Obj().Pos())

		switch plan.kind {
		case AccessorField:
			addStructField(b.snap, st, plan.name+" "+plan.target)
		case AccessorProperty:
			addStructField(b.snap, st, plan.backing+" "+plan.target)
			taken := map[string]bool{plan.backing: true}
			recv := deriveName(lowerFirst(plan.src.Obj().Name()), taken)
			getter := "func (" + recv + " *" + plan.src.Obj().Name() + ") " + plan.name +
				"() *" + plan.target + " {\n\treturn &" + recv + "." + plan.backing + "\n}"
			b.snap.InsertAt(srcFile.Syntax.End(), "\n\n"+getter+"\n")
		}
	}
}

// addStructField inserts one field declaration before the struct's
// closing brace, respecting one-line struct literals.
func addStructField(snap *refactor.Snapshot, st *ast.StructType, text string) {
	open := snap.Position(st.Fields.Opening)
	close := snap.Position(st.Fields.Closing)
	switch {
	case open.Line == close.Line && st.Fields.NumFields() > 0:
		snap.InsertAt(st.Fields.Closing, "; "+text)
	case open.Line == close.Line:
		snap.InsertAt(st.Fields.Closing, text)
	default:
		snap.InsertAt(st.Fields.Closing, "\t"+text+"\n")
	}
}

// structDecl returns the struct type syntax declaring named's
// underlying, found through the defining identifier's node stack.
func structDecl(snap *refactor.Snapshot, named *types.Named) *ast.StructType {
	var st *ast.StructType
	for _, n := range snap.SyntaxAt(named.Obj().Pos()) {
		if spec, ok := n.(*ast.TypeSpec); ok {
			st, _ = spec.Type.(*ast.StructType)
			break
		}
	}
	return st
}

func namedType(t types.Type, name string) bool {
	n, ok := t.(*types.Named)
	return ok && n.Obj().Name() == name
}

func pointerTo(t types.Type, name string) bool {
	p, ok := t.(*types.Pointer)
	return ok && namedType(p.Elem(), name)
}

func memberNames(named *types.Named) map[string]bool {
	names := make(map[string]bool)
	if st, ok := named.Underlying().(*types.Struct); ok {
		for i := 0; i < st.NumFields(); i++ {
			names[st.Field(i).Name()] = true
		}
	}
	for i := 0; i < named.NumMethods(); i++ {
		names[named.Method(i).Name()] = true
	}
	return names
}
