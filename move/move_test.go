// Copyright 2025 The rfmv Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package move_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dave-hillier/refactor-mcp-sub002/move"
	"github.com/dave-hillier/refactor-mcp-sub002/refactor"
)

func load(t *testing.T, files map[string]string) *refactor.Snapshot {
	t.Helper()
	snap, err := refactor.LoadFiles(files)
	require.NoError(t, err)
	return snap
}

// unchanged asserts a failed batch left every file byte-identical and
// queued no edits.
func unchanged(t *testing.T, snap *refactor.Snapshot, files map[string]string) {
	t.Helper()
	for name, text := range files {
		assert.Equal(t, text, string(snap.Current(name)), name)
	}
	assert.Empty(t, snap.Modified())
	assert.Empty(t, snap.Created())
}

func TestStaticMoveCreatesTarget(t *testing.T) {
	files := map[string]string{
		"calc.go": `package calc

type Calculator struct {
	data []float64
}

func (c *Calculator) GetAverage() float64 {
	sum := 0.0
	for _, v := range c.data {
		sum += v
	}
	return sum / float64(len(c.data))
}

func describe(c *Calculator) float64 {
	return c.GetAverage()
}

func describeLater(c *Calculator) func() float64 {
	return c.GetAverage
}
`,
	}
	snap := load(t, files)
	sum, err := move.Execute(snap, []move.Operation{{
		SourceType: "Calculator",
		Method:     "GetAverage",
		TargetType: "MathUtilities",
		TargetFile: "mathutil.go",
		Kind:       move.Static,
	}})
	require.NoError(t, err)

	created := string(snap.Current("mathutil.go"))
	assert.Contains(t, created, "package calc")
	assert.Contains(t, created, "type MathUtilities struct{}")
	assert.Contains(t, created, "func (MathUtilities) GetAverage(data []float64) float64 {")
	assert.Contains(t, created, "for _, v := range data {")
	assert.Contains(t, created, "return sum / float64(len(data))")
	assert.NotContains(t, created, "c.data")

	src := string(snap.Current("calc.go"))
	assert.Contains(t, src, "func (c *Calculator) GetAverage() float64 {\n\treturn MathUtilities{}.GetAverage(c.data)\n}")
	// Plain call sites follow the method; method values stay on the stub.
	assert.Contains(t, src, "return MathUtilities{}.GetAverage(c.data)\n}\n\nfunc describe")
	assert.Contains(t, src, "MathUtilities{}.GetAverage(c.data)")
	assert.Contains(t, src, "return c.GetAverage\n")

	require.Len(t, sum.Moves, 1)
	assert.Equal(t, "Calculator.GetAverage", sum.Moves[0].Old)
	assert.Equal(t, "MathUtilities.GetAverage", sum.Moves[0].New)
	assert.Equal(t, "mathutil.go", sum.Moves[0].File)
	assert.Equal(t, []string{"calc.go"}, sum.Written)
	assert.Equal(t, []string{"mathutil.go"}, sum.Created)
}

func TestStaticMoveToExistingTypeCarriesImports(t *testing.T) {
	files := map[string]string{
		"format.go": `package txt

import "strings"

type Formatter struct {
	prefix string
}

func (f *Formatter) Shout(s string) string {
	return strings.ToUpper(f.prefix + s)
}
`,
		"util.go": `package txt

type Util struct{}
`,
	}
	snap := load(t, files)
	_, err := move.Execute(snap, []move.Operation{{
		SourceType: "Formatter",
		Method:     "Shout",
		TargetType: "Util",
		Kind:       move.Static,
	}})
	require.NoError(t, err)

	util := string(snap.Current("util.go"))
	assert.Contains(t, util, `"strings"`)
	assert.Contains(t, util, "func (Util) Shout(prefix string, s string) string {")
	assert.Contains(t, util, "return strings.ToUpper(prefix + s)")

	src := string(snap.Current("format.go"))
	assert.Contains(t, src, "return Util{}.Shout(f.prefix, s)")
}

func TestInstanceMoveThroughFieldAccessor(t *testing.T) {
	files := map[string]string{
		"order.go": `package shop

type Order struct {
	items []int
}

type Pricing struct{}

func (o *Order) Total() int {
	n := 0
	for _, it := range o.items {
		n += it
	}
	return n
}

func grandTotal(o *Order) int {
	return o.Total()
}
`,
	}
	snap := load(t, files)
	_, err := move.Execute(snap, []move.Operation{{
		SourceType: "Order",
		Method:     "Total",
		TargetType: "Pricing",
		Accessor:   "pricing",
	}})
	require.NoError(t, err)

	src := string(snap.Current("order.go"))
	// The source struct gains the accessor field.
	assert.Contains(t, src, "pricing Pricing")
	// The moved method keeps its body; the old receiver becomes a parameter.
	assert.Contains(t, src, "func (pricing *Pricing) Total(o *Order) int {")
	assert.Contains(t, src, "for _, it := range o.items {")
	// Stub and call site route through the accessor.
	assert.Contains(t, src, "func (o *Order) Total() int {\n\treturn o.pricing.Total(o)\n}")
	assert.Contains(t, src, "func grandTotal(o *Order) int {\n\treturn o.pricing.Total(o)\n}")
}

func TestInstanceMoveThroughPropertyAccessor(t *testing.T) {
	files := map[string]string{
		"car.go": `package auto

type Car struct {
	speed int
}

type Engine struct{}

func (c *Car) Boost() int {
	return c.speed * 2
}
`,
	}
	snap := load(t, files)
	_, err := move.Execute(snap, []move.Operation{{
		SourceType:   "Car",
		Method:       "Boost",
		TargetType:   "Engine",
		Accessor:     "Engine",
		AccessorKind: move.AccessorProperty,
	}})
	require.NoError(t, err)

	src := string(snap.Current("car.go"))
	// Synthesized backing field and getter.
	assert.Contains(t, src, "engine Engine")
	assert.Contains(t, src, "func (car *Car) Engine() *Engine {\n\treturn &car.engine\n}")
	// Moved method and stub.
	assert.Contains(t, src, "func (engine *Engine) Boost(c *Car) int {")
	assert.Contains(t, src, "func (c *Car) Boost() int {\n\treturn c.Engine().Boost(c)\n}")
}

func TestBatchSiblingCallsLandOnTarget(t *testing.T) {
	files := map[string]string{
		"calc.go": `package m

type Calc struct {
	base int
}

func (c *Calc) Bump(x int) int {
	return x + c.base
}

func (c *Calc) BumpAll(xs []int) []int {
	out := make([]int, 0, len(xs))
	for _, x := range xs {
		out = append(out, c.Bump(x))
	}
	return out
}
`,
	}
	ops := []move.Operation{
		{SourceType: "Calc", Method: "Bump", TargetType: "Helpers", TargetFile: "helpers.go", Kind: move.Static},
		{SourceType: "Calc", Method: "BumpAll", TargetType: "Helpers", TargetFile: "helpers.go", Kind: move.Static},
	}

	snap := load(t, files)
	_, err := move.Execute(snap, ops)
	require.NoError(t, err)

	helpers := string(snap.Current("helpers.go"))
	assert.Contains(t, helpers, "func (Helpers) Bump(base int, x int) int {")
	// The caller inherits its callee's synthesized parameters and
	// calls the new location, not the stub.
	assert.Contains(t, helpers, "func (Helpers) BumpAll(base int, xs []int) []int {")
	assert.Contains(t, helpers, "out = append(out, Helpers{}.Bump(base, x))")

	src := string(snap.Current("calc.go"))
	assert.Contains(t, src, "return Helpers{}.Bump(c.base, x)")
	assert.Contains(t, src, "return Helpers{}.BumpAll(c.base, xs)")

	// The same batch in the opposite order produces identical bytes.
	snap2 := load(t, files)
	_, err = move.Execute(snap2, []move.Operation{ops[1], ops[0]})
	require.NoError(t, err)
	for _, name := range snap.FileNames() {
		assert.Equal(t, string(snap.Current(name)), string(snap2.Current(name)), name)
	}
}

func TestStaticMoveOfRecursiveMethod(t *testing.T) {
	files := map[string]string{
		"tree.go": `package tree

type Node struct {
	Val         int
	Left, Right *Node
}

type Tree struct{}

func (t *Tree) Sum(n *Node) int {
	if n == nil {
		return 0
	}
	return n.Val + t.Sum(n.Left) + t.Sum(n.Right)
}
`,
	}
	snap := load(t, files)
	_, err := move.Execute(snap, []move.Operation{{
		SourceType: "Tree",
		Method:     "Sum",
		TargetType: "Walker",
		Kind:       move.Static,
	}})
	require.NoError(t, err)

	src := string(snap.Current("tree.go"))
	// Created in place, with a named receiver for the recursion.
	assert.Contains(t, src, "type Walker struct{}")
	assert.Contains(t, src, "func (walker Walker) Sum(n *Node) int {")
	assert.Contains(t, src, "return n.Val + walker.Sum(n.Left) + walker.Sum(n.Right)")
	assert.Contains(t, src, "func (t *Tree) Sum(n *Node) int {\n\treturn Walker{}.Sum(n)\n}")
}

func TestEligibilityFailureLeavesFilesUntouched(t *testing.T) {
	files := map[string]string{
		"p.go": `package p

type Printer interface {
	Print()
}

type Report struct {
	title string
}

func (r *Report) Title() string {
	return r.title
}
`,
	}
	snap := load(t, files)
	_, err := move.Execute(snap, []move.Operation{{
		SourceType: "Report",
		Method:     "Title",
		TargetType: "Printer",
		Kind:       move.Static,
	}})
	require.ErrorIs(t, err, move.ErrEligibility)
	unchanged(t, snap, files)
}

func TestDuplicateTargetMember(t *testing.T) {
	files := map[string]string{
		"p.go": `package p

type A struct {
	n int
}

type B struct{}

func (a *A) Count() int {
	return a.n
}

func (B) Count() int {
	return 0
}
`,
	}
	snap := load(t, files)
	_, err := move.Execute(snap, []move.Operation{{
		SourceType: "A",
		Method:     "Count",
		TargetType: "B",
		Kind:       move.Static,
	}})
	require.ErrorIs(t, err, move.ErrDuplicate)
	unchanged(t, snap, files)
}

func TestDuplicateWithinBatch(t *testing.T) {
	files := map[string]string{
		"p.go": `package p

type A struct{}

type C struct{}

func (A) First() int  { return 1 }
func (C) Second() int { return 2 }
`,
	}
	snap := load(t, files)
	_, err := move.Execute(snap, []move.Operation{
		{SourceType: "A", Method: "First", TargetType: "B", Kind: move.Static},
		{SourceType: "C", Method: "Second", TargetType: "B", Kind: move.Static},
	})
	require.NoError(t, err)

	snap = load(t, files)
	_, err = move.Execute(snap, []move.Operation{
		{SourceType: "A", Method: "First", TargetType: "B", Kind: move.Static},
		{SourceType: "A", Method: "First", TargetType: "D", Kind: move.Static},
	})
	require.ErrorIs(t, err, move.ErrDuplicate)
	unchanged(t, snap, files)
}

func TestWrittenMemberRejectsStaticMove(t *testing.T) {
	files := map[string]string{
		"p.go": `package p

type Counter struct {
	n int
}

func (c *Counter) Inc() {
	c.n++
}
`,
	}
	snap := load(t, files)
	_, err := move.Execute(snap, []move.Operation{{
		SourceType: "Counter",
		Method:     "Inc",
		TargetType: "Util",
		Kind:       move.Static,
	}})
	require.ErrorIs(t, err, move.ErrComposition)
	unchanged(t, snap, files)
}

func TestMethodValueInOwnBodyRejected(t *testing.T) {
	files := map[string]string{
		"p.go": `package p

type Runner struct{}

func (r *Runner) Go() {
	f := r.Go
	_ = f
}
`,
	}
	snap := load(t, files)
	_, err := move.Execute(snap, []move.Operation{{
		SourceType: "Runner",
		Method:     "Go",
		TargetType: "Util",
		Kind:       move.Static,
	}})
	require.ErrorIs(t, err, move.ErrStructuralRewrite)
	unchanged(t, snap, files)
}

func TestSignatureDiscriminator(t *testing.T) {
	files := map[string]string{
		"p.go": `package p

type Calc struct{}

func (Calc) Add(x, y int) int {
	return x + y
}
`,
	}
	snap := load(t, files)
	_, err := move.Execute(snap, []move.Operation{{
		SourceType: "Calc",
		Method:     "Add",
		Signature:  "func(string) string",
		TargetType: "Util",
		Kind:       move.Static,
	}})
	require.ErrorIs(t, err, move.ErrLookup)
	unchanged(t, snap, files)

	snap = load(t, files)
	_, err = move.Execute(snap, []move.Operation{{
		SourceType: "Calc",
		Method:     "Add",
		Signature:  "func(int, int) int",
		TargetType: "Util",
		Kind:       move.Static,
	}})
	require.NoError(t, err)
}

func TestLookupFailures(t *testing.T) {
	files := map[string]string{
		"p.go": `package p

type Calc struct{}

func (Calc) Add() int { return 0 }
`,
	}
	for _, op := range []move.Operation{
		{SourceType: "Nope", Method: "Add", TargetType: "Util", Kind: move.Static},
		{SourceType: "Calc", Method: "Sub", TargetType: "Util", Kind: move.Static},
		{SourceType: "Calc", Method: "Add", TargetType: "Util"}, // instance without accessor
	} {
		snap := load(t, files)
		_, err := move.Execute(snap, []move.Operation{op})
		require.ErrorIs(t, err, move.ErrLookup, "%v", op)
		unchanged(t, snap, files)
	}
}

func TestExistingAccessorIsReused(t *testing.T) {
	files := map[string]string{
		"p.go": `package p

type Engine struct{}

type Car struct {
	engine Engine
	speed  int
}

func (c *Car) Boost() int {
	return c.speed * 2
}
`,
	}
	snap := load(t, files)
	_, err := move.Execute(snap, []move.Operation{{
		SourceType: "Car",
		Method:     "Boost",
		TargetType: "Engine",
		Accessor:   "engine",
	}})
	require.NoError(t, err)

	src := string(snap.Current("p.go"))
	assert.Contains(t, src, "func (c *Car) Boost() int {\n\treturn c.engine.Boost(c)\n}")
	// No second field was synthesized.
	assert.Equal(t, 1, strings.Count(src, "engine Engine"))
}

func TestIncompatibleAccessorRejected(t *testing.T) {
	files := map[string]string{
		"p.go": `package p

type Engine struct{}

type Car struct {
	engine int
	speed  int
}

func (c *Car) Boost() int {
	return c.speed * 2
}
`,
	}
	snap := load(t, files)
	_, err := move.Execute(snap, []move.Operation{{
		SourceType: "Car",
		Method:     "Boost",
		TargetType: "Engine",
		Accessor:   "engine",
	}})
	require.ErrorIs(t, err, move.ErrComposition)
	unchanged(t, snap, files)
}

func TestStaticMoveToNewFileKeepsImportAlias(t *testing.T) {
	files := map[string]string{
		"log.go": `package log

import f "fmt"

type Logger struct {
	n int
}

func (l *Logger) Line() string {
	return f.Sprintf("%d", l.n)
}
`,
	}
	snap := load(t, files)
	_, err := move.Execute(snap, []move.Operation{{
		SourceType: "Logger",
		Method:     "Line",
		TargetType: "Render",
		TargetFile: "render.go",
		Kind:       move.Static,
	}})
	require.NoError(t, err)

	created := string(snap.Current("render.go"))
	assert.Contains(t, created, "f \"fmt\"")
	assert.Contains(t, created, "func (Render) Line(n int) string {")
	assert.Contains(t, created, `return f.Sprintf("%d", n)`)
}

func TestInstanceCallOfParamlessStaticSibling(t *testing.T) {
	files := map[string]string{
		"calc.go": `package calc

type Calc struct {
	host Host
}

type Host struct{}

type Util struct{}

func (c *Calc) Base() int {
	return 41
}

func (c *Calc) Next() int {
	return c.Base() + 1
}
`,
	}
	snap := load(t, files)
	_, err := move.Execute(snap, []move.Operation{
		{SourceType: "Calc", Method: "Base", TargetType: "Util", Kind: move.Static},
		{SourceType: "Calc", Method: "Next", TargetType: "Host", Accessor: "host"},
	})
	require.NoError(t, err)

	src := string(snap.Current("calc.go"))
	// Base carries no members, so Next forwards nothing to it.
	assert.Contains(t, src, "func (host *Host) Next() int {\n\treturn Util{}.Base() + 1\n}")
	assert.Contains(t, src, "func (Util) Base() int {\n\treturn 41\n}")
	assert.Contains(t, src, "func (c *Calc) Base() int {\n\treturn Util{}.Base()\n}")
	assert.Contains(t, src, "func (c *Calc) Next() int {\n\treturn c.host.Next()\n}")
}

func TestInstanceMoveFromNonStructSourceRejected(t *testing.T) {
	files := map[string]string{
		"num.go": `package num

type MyInt int

type Helper struct{}

func (m MyInt) Double() int {
	return int(m) * 2
}
`,
	}
	snap := load(t, files)
	_, err := move.Execute(snap, []move.Operation{{
		SourceType: "MyInt",
		Method:     "Double",
		TargetType: "Helper",
		Accessor:   "helper",
	}})
	require.ErrorIs(t, err, move.ErrEligibility)
	unchanged(t, snap, files)
}

func TestPromotedCallSiteStaysOnStub(t *testing.T) {
	files := map[string]string{
		"shop.go": `package shop

type Pricing struct{}

type Order struct {
	pricing Pricing
	n       int
}

type Shipment struct {
	Order
}

func report(s *Shipment, o *Order) (int, int) {
	return s.Total(), o.Total()
}

func (o *Order) Total() int {
	return o.n * 2
}
`,
	}
	snap := load(t, files)
	_, err := move.Execute(snap, []move.Operation{{
		SourceType: "Order",
		Method:     "Total",
		TargetType: "Pricing",
		Accessor:   "pricing",
	}})
	require.NoError(t, err)

	src := string(snap.Current("shop.go"))
	// The promoted call's receiver is a *Shipment; only the direct
	// call is redirected.
	assert.Contains(t, src, "return s.Total(), o.pricing.Total(o)")
	assert.Contains(t, src, "func (pricing *Pricing) Total(o *Order) int {\n\treturn o.n * 2\n}")
	assert.Contains(t, src, "func (o *Order) Total() int {\n\treturn o.pricing.Total(o)\n}")
}
