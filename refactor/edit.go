// Copyright 2025 The rfmv Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package refactor

import (
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"sort"
)

// An Edit is the pending change set for a single file.
type Edit struct {
	Name   string
	Create bool
	Buffer *Buffer
}

// A Buffer is a queue of edits to apply to a file's text, addressed
// by token.Pos within the snapshot's FileSet. Overlapping edits are a
// bug in the rewriter and panic when the buffer is rendered.
type Buffer struct {
	pos  token.Pos // position of text[0]
	text []byte
	q    []span
}

type span struct {
	start, end int
	new        string
	seq        int // tie-break: queue order for same-position inserts
}

func NewBufferAt(pos token.Pos, text []byte) *Buffer {
	return &Buffer{pos: pos, text: text}
}

func (b *Buffer) off(pos token.Pos) int {
	i := int(pos - b.pos)
	if i < 0 || i > len(b.text) {
		panic(fmt.Sprintf("edit position %d out of range [%d,%d]", pos, b.pos, b.pos+token.Pos(len(b.text))))
	}
	return i
}

func (b *Buffer) Insert(pos token.Pos, new string) {
	b.Replace(pos, pos, new)
}

func (b *Buffer) Delete(pos, end token.Pos) {
	b.Replace(pos, end, "")
}

func (b *Buffer) Replace(pos, end token.Pos, new string) {
	lo, hi := b.off(pos), b.off(end)
	if hi < lo {
		panic("invalid edit: end before start")
	}
	b.q = append(b.q, span{lo, hi, new, len(b.q)})
}

// Bytes applies the queued edits and returns the resulting text.
// The queue is kept, so Bytes can be called repeatedly as more edits
// arrive.
func (b *Buffer) Bytes() []byte {
	q := append([]span(nil), b.q...)
	sort.Slice(q, func(i, j int) bool {
		if q[i].start != q[j].start {
			return q[i].start < q[j].start
		}
		if q[i].end != q[j].end {
			return q[i].end < q[j].end
		}
		return q[i].seq < q[j].seq
	})
	var out []byte
	last := 0
	for _, e := range q {
		if e.start < last {
			panic(fmt.Sprintf("overlapping edits at offset %d", e.start))
		}
		out = append(out, b.text[last:e.start]...)
		out = append(out, e.new...)
		last = e.end
	}
	out = append(out, b.text[last:]...)
	return out
}

func (b *Buffer) String() string { return string(b.Bytes()) }

func (s *Snapshot) editAt(pos token.Pos) *Edit {
	posn := s.Position(pos)
	name := posn.Filename
	if ed := s.edits[name]; ed != nil {
		return ed
	}
	f := s.files[name]
	if f == nil {
		panic("edit in unknown file " + name)
	}
	ed := &Edit{
		Name:   name,
		Create: f.Created,
		Buffer: NewBufferAt(pos-token.Pos(posn.Offset), f.Text),
	}
	s.edits[name] = ed
	return ed
}

func (s *Snapshot) bufferAt(pos token.Pos) *Buffer {
	return s.editAt(pos).Buffer
}

func (s *Snapshot) ReplaceAt(lo, hi token.Pos, repl string) {
	s.bufferAt(lo).Replace(lo, hi, repl)
}

func (s *Snapshot) InsertAt(pos token.Pos, repl string) {
	s.ReplaceAt(pos, pos, repl)
}

func (s *Snapshot) DeleteAt(pos, end token.Pos) {
	s.ReplaceAt(pos, end, "")
}

func (s *Snapshot) ReplaceNode(n ast.Node, repl string) {
	s.ReplaceAt(n.Pos(), n.End(), repl)
}

// CreateFile adds a new file to the snapshot with the given text.
// The file is parsed into the snapshot's FileSet so later edits can
// address it by position, but it is not part of the type-checked
// package. The file reaches disk only when Write runs.
func (s *Snapshot) CreateFile(name, text string) (*File, error) {
	if s.files[name] != nil {
		return nil, fmt.Errorf("file already exists: %s", name)
	}
	syntax, err := parser.ParseFile(s.fset, name, text, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %v", name, err)
	}
	f := &File{Name: name, Text: []byte(text), Syntax: syntax, Created: true}
	s.files[name] = f
	s.names = append(s.names, name)
	base := s.fset.File(syntax.Pos()).Base()
	s.edits[name] = &Edit{
		Name:   name,
		Create: true,
		Buffer: NewBufferAt(token.Pos(base), f.Text),
	}
	return f, nil
}

func gofmt(text []byte) ([]byte, error) {
	return format.Source(text)
}
