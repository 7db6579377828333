// Copyright 2025 The rfmv Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package move

import (
	"go/ast"
	"go/token"
	"go/types"
	"sort"

	"github.com/dave-hillier/refactor-mcp-sub002/refactor"
)

// An operation is one Operation resolved against the snapshot,
// accumulating everything the planning pipeline decides about it.
type operation struct {
	op  *Operation
	idx int // position in the request, for stable diagnostics

	src      *types.Named
	fn       *types.Func
	decl     *ast.FuncDecl
	recv     *types.Var // nil when the receiver is unnamed
	recvName string

	a             *analysis
	closure       []*memberRef // static: own members plus batch callees'
	params        []param
	paramName     map[types.Object]string
	srcParam      *param
	needsSrcParam bool

	targetRecvName string
	target         targetInfo
	route          string // instance: accessor path off a source value, ".b" or ".B()"

	methodSrc string
	stubSrc   string
}

type batch struct {
	snap *refactor.Snapshot
	ops  []*operation

	byFunc       map[*types.Func]*operation
	newTypes     map[string]*typePlan
	newAccessors map[string]*accessorPlan
}

// Execute plans and applies one batch of moves against snap. Planning
// does every lookup, eligibility check, analysis, and rewrite without
// touching a buffer; edits are applied only once the whole plan
// succeeds, so on error the snapshot is returned byte-identical.
func Execute(snap *refactor.Snapshot, ops []Operation) (*Summary, error) {
	if len(ops) == 0 {
		return &Summary{}, nil
	}
	b := &batch{
		snap:         snap,
		byFunc:       make(map[*types.Func]*operation),
		newTypes:     make(map[string]*typePlan),
		newAccessors: make(map[string]*accessorPlan),
	}

	if err := b.resolve(ops); err != nil {
		return nil, err
	}
	if err := b.analyze(); err != nil {
		return nil, err
	}
	order := b.sccOrder()
	b.close(order)
	if err := b.synthesize(order); err != nil {
		return nil, err
	}
	if err := b.rewrite(order); err != nil {
		return nil, err
	}

	if err := b.apply(); err != nil {
		snap.Reset()
		return nil, err
	}
	return b.summary(), nil
}

// resolve binds every descriptor to its method and target, rejecting
// duplicates before any deeper work.
func (b *batch) resolve(ops []Operation) error {
	snap := b.snap
	pkg := snap.Package().Types
	info := snap.Package().TypesInfo
	qual := types.RelativeTo(pkg)

	bySource := make(map[string]bool)
	byTarget := make(map[string]bool)
	for i := range ops {
		op := &ops[i]
		if err := op.validate(); err != nil {
			return err
		}
		if key := op.SourceType + "." + op.Method; bySource[key] {
			return errf(ErrDuplicate, op, "%s is moved twice in this batch", key)
		} else {
			bySource[key] = true
		}
		if key := op.TargetType + "." + op.Method; byTarget[key] {
			return errf(ErrDuplicate, op, "two moves in this batch produce %s", key)
		} else {
			byTarget[key] = true
		}

		tn, bound := snap.LookupType(op.SourceType)
		if !bound || tn == nil {
			return errf(ErrLookup, op, "no type named %s in package %s", op.SourceType, snap.Package().Name)
		}
		if tn.IsAlias() {
			return errf(ErrEligibility, op, "%s is a type alias", op.SourceType)
		}
		named, ok := tn.Type().(*types.Named)
		if !ok {
			return errf(ErrEligibility, op, "%s is not a named type", op.SourceType)
		}
		if named.TypeParams().Len() > 0 {
			return errf(ErrStructuralRewrite, op, "%s is generic; relocation is not supported", op.SourceType)
		}
		if _, ok := named.Underlying().(*types.Struct); op.Kind == Instance && !ok {
			// Instance moves attach an accessor to the source type,
			// which must therefore be a struct.
			return errf(ErrEligibility, op, "%s is not a struct type", op.SourceType)
		}

		var fn *types.Func
		for j := 0; j < named.NumMethods(); j++ {
			if m := named.Method(j); m.Name() == op.Method {
				fn = m
				break
			}
		}
		if fn == nil {
			return errf(ErrLookup, op, "%s has no method %s", op.SourceType, op.Method)
		}
		if op.Signature != "" {
			got := types.TypeString(stripNames(fn.Type().(*types.Signature)), qual)
			if op.Signature != got {
				return errf(ErrLookup, op, "%s.%s has signature %s, not %s", op.SourceType, op.Method, got, op.Signature)
			}
		}

		o := &operation{
			op:        op,
			idx:       i,
			src:       named,
			fn:        fn,
			paramName: make(map[types.Object]string),
		}
		stack := snap.SyntaxAt(fn.Pos())
		for _, n := range stack {
			if d, ok := n.(*ast.FuncDecl); ok {
				o.decl = d
				break
			}
		}
		if o.decl == nil || o.decl.Body == nil {
			return errf(ErrStructuralRewrite, op, "%s.%s has no body in this package", op.SourceType, op.Method)
		}
		if names := o.decl.Recv.List[0].Names; len(names) > 0 && names[0].Name != "_" {
			o.recvName = names[0].Name
			o.recv, _ = info.Defs[names[0]].(*types.Var)
		}

		if err := o.resolveTarget(b); err != nil {
			return err
		}
		if op.Kind == Instance {
			if err := o.resolveAccessor(b); err != nil {
				return err
			}
		}

		b.ops = append(b.ops, o)
		b.byFunc[fn] = o
	}
	return nil
}

func (b *batch) analyze() error {
	for _, o := range b.ops {
		a, err := analyze(b.snap, o.op, o.decl, o.recv, o.fn, b.byFunc)
		if err != nil {
			return err
		}
		o.a = a
	}
	return nil
}

// sccOrder returns the operations with callees before callers,
// strongly connected clusters (mutual recursion) kept adjacent.
// Tarjan's algorithm; pop order is the order we want.
func (b *batch) sccOrder() []*operation {
	index := make(map[*operation]int)
	low := make(map[*operation]int)
	onStack := make(map[*operation]bool)
	var stack, order []*operation
	next := 0

	var strong func(o *operation)
	strong = func(o *operation) {
		index[o] = next
		low[o] = next
		next++
		stack = append(stack, o)
		onStack[o] = true

		for _, fn := range o.a.deps {
			dep := b.byFunc[fn]
			if _, seen := index[dep]; !seen {
				strong(dep)
				if low[dep] < low[o] {
					low[o] = low[dep]
				}
			} else if onStack[dep] && index[dep] < low[o] {
				low[o] = index[dep]
			}
		}

		if low[o] == index[o] {
			for {
				n := len(stack) - 1
				d := stack[n]
				stack = stack[:n]
				onStack[d] = false
				order = append(order, d)
				if d == o {
					break
				}
			}
		}
	}
	for _, o := range b.ops {
		if _, seen := index[o]; !seen {
			strong(o)
		}
	}
	return order
}

// close computes each static operation's closed member set - its own
// referenced members plus those of every static method it calls that
// is moving in the same batch - and decides which instance operations
// need the source parameter. Both are fixpoints because mutually
// recursive clusters feed each other.
func (b *batch) close(order []*operation) {
	for _, o := range order {
		if o.op.Kind == Static {
			o.closure = append(o.closure, o.a.members...)
		}
		o.needsSrcParam = o.op.Kind == Instance &&
			(len(o.a.members) > 0 || len(o.a.recvUses) > 0)
	}

	for changed := true; changed; {
		changed = false
		for _, o := range order {
			have := make(map[types.Object]bool, len(o.closure))
			for _, ref := range o.closure {
				have[ref.obj] = true
			}
			for _, fn := range o.a.deps {
				dep := b.byFunc[fn]
				if o.op.Kind == Static && dep.op.Kind == Static {
					for _, ref := range dep.closure {
						if !have[ref.obj] {
							have[ref.obj] = true
							o.closure = append(o.closure, ref)
							changed = true
						}
					}
				}
				if o.op.Kind == Instance && !o.needsSrcParam && depNeedsReceiver(o, dep) {
					o.needsSrcParam = true
					changed = true
				}
			}
		}
	}
}

// depNeedsReceiver reports whether redirecting caller's call to dep
// requires spelling the caller's source value.
func depNeedsReceiver(caller, dep *operation) bool {
	if dep.op.Kind == Static {
		return len(dep.closure) > 0
	}
	if dep.op.TargetType != caller.op.TargetType {
		return true // routed through the source's accessor
	}
	return dep.needsSrcParam
}

func (b *batch) synthesize(order []*operation) error {
	for _, o := range order {
		if err := o.synthesize(b); err != nil {
			return err
		}
	}
	return nil
}

func (b *batch) rewrite(order []*operation) error {
	for _, o := range order {
		text, err := o.rewriteMethod(b)
		if err != nil {
			return err
		}
		o.methodSrc = text
		o.stubSrc = o.stubText(b)
	}
	return nil
}

// apply edits the buffers. Order is canonical - sorted by target,
// method, then source - so a batch produces the same bytes no matter
// how its operations were listed.
func (b *batch) apply() error {
	snap := b.snap
	sorted := append([]*operation(nil), b.ops...)
	sort.Slice(sorted, func(i, j int) bool {
		a, c := sorted[i], sorted[j]
		if a.op.TargetType != c.op.TargetType {
			return a.op.TargetType < c.op.TargetType
		}
		if a.op.Method != c.op.Method {
			return a.op.Method < c.op.Method
		}
		return a.op.SourceType < c.op.SourceType
	})

	if err := b.applyTargets(); err != nil {
		return err
	}
	b.applyAccessors()

	imports := make(map[string]map[string]refactor.Import)
	for _, o := range sorted {
		lo := o.decl.Pos()
		if o.decl.Doc != nil {
			lo = o.decl.Doc.Pos()
		}
		snap.ReplaceAt(lo, o.decl.End(), o.stubSrc)

		f := snap.FileByName(o.target.file)
		snap.InsertAt(f.Syntax.End(), "\n\n"+o.methodSrc+"\n")

		if !o.target.created || !b.newTypes[o.op.TargetType].newFile {
			set := imports[o.target.file]
			if set == nil {
				set = make(map[string]refactor.Import)
				imports[o.target.file] = set
			}
			for _, imp := range o.a.imports {
				set[imp.Path] = imp
			}
		}
	}
	for _, name := range sortedKeys(imports) {
		snap.EnsureImports(snap.FileByName(name), sortedImports(imports[name]))
	}

	b.updateCallSites()
	snap.Gofmt()
	return nil
}

func (b *batch) summary() *Summary {
	sum := &Summary{
		Written: b.snap.Modified(),
		Created: b.snap.Created(),
	}
	sorted := append([]*operation(nil), b.ops...)
	sort.Slice(sorted, func(i, j int) bool {
		a, c := sorted[i], sorted[j]
		if a.op.TargetType != c.op.TargetType {
			return a.op.TargetType < c.op.TargetType
		}
		return a.op.Method < c.op.Method
	})
	for _, o := range sorted {
		sum.Moves = append(sum.Moves, Result{
			Old:  o.op.SourceType + "." + o.op.Method,
			New:  o.op.TargetType + "." + o.op.Method,
			File: o.target.file,
			Pkg:  b.snap.Package().Name,
		})
	}
	return sum
}

// stripNames drops the receiver and every parameter name so a
// signature renders in the spelling the Signature discriminator uses:
// func([]float64) float64.
func stripNames(sig *types.Signature) *types.Signature {
	bare := func(t *types.Tuple) *types.Tuple {
		vars := make([]*types.Var, t.Len())
		for i := range vars {
			v := t.At(i)
			vars[i] = types.NewVar(token.NoPos, v.Pkg(), "", v.Type())
		}
		return types.NewTuple(vars...)
	}
	return types.NewSignatureType(nil, nil, nil, bare(sig.Params()), bare(sig.Results()), sig.Variadic())
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedImports(m map[string]refactor.Import) []refactor.Import {
	imports := make([]refactor.Import, 0, len(m))
	for _, path := range sortedKeys(m) {
		imports = append(imports, m[path])
	}
	return imports
}
