// Copyright 2025 The rfmv Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package refactor loads a project snapshot - one Go package, parsed
// and type-checked - and accumulates position-addressed edits against
// it. Rewrites never mutate syntax trees in place: they queue byte
// edits that are applied, reformatted, and written only after the
// whole refactoring succeeds.
package refactor

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dave-hillier/refactor-mcp-sub002/diff"
)

// A Refactor holds the state for an active refactoring.
type Refactor struct {
	Stdout   io.Writer
	Stderr   io.Writer
	ShowDiff bool

	dir string
}

// New returns a new refactoring, editing the package in the given
// directory (usually ".").
func New(dir string) (*Refactor, error) {
	dir = filepath.Clean(dir)
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}
	return &Refactor{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		dir:    dir,
	}, nil
}

func (r *Refactor) Dir() string { return r.dir }

// A Snapshot is one loaded view of the project: parsed files, the
// type-checked package, and pending edits. The underlying files and
// trees are immutable; all changes queue in edit buffers.
type Snapshot struct {
	r     *Refactor
	fset  *token.FileSet
	pkg   *Package
	files map[string]*File
	names []string // sorted loaded names, then created names in creation order
	edits map[string]*Edit

	Errors *ErrorList
}

// A Package is the snapshot's semantic model: the syntax of every
// loaded file plus go/types resolution over all of them.
type Package struct {
	Name      string
	Dir       string
	Files     []*File // sorted by Name
	Types     *types.Package
	TypesInfo *types.Info
}

// A File is one source file of the snapshot. Files are immutable;
// edits against a file accumulate in the snapshot, not here.
type File struct {
	Name    string // base name within the package directory
	Text    []byte
	Syntax  *ast.File
	Created bool // does not exist on disk yet
}

// Load parses and type-checks every Go file in the refactoring
// directory as a single package.
func (r *Refactor) Load() (*Snapshot, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, err
	}
	srcs := make(map[string][]byte)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") ||
			strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
			continue
		}
		text, err := os.ReadFile(filepath.Join(r.dir, name))
		if err != nil {
			return nil, err
		}
		srcs[name] = text
	}
	if len(srcs) == 0 {
		return nil, fmt.Errorf("no Go files in %s", r.dir)
	}
	return load(r, srcs)
}

// LoadFiles builds an in-memory snapshot from file name to source
// text, without touching the file system. Intended for tests.
func LoadFiles(files map[string]string) (*Snapshot, error) {
	srcs := make(map[string][]byte, len(files))
	for name, text := range files {
		srcs[name] = []byte(text)
	}
	r := &Refactor{Stdout: io.Discard, Stderr: io.Discard}
	return load(r, srcs)
}

func load(r *Refactor, srcs map[string][]byte) (*Snapshot, error) {
	s := &Snapshot{
		r:      r,
		fset:   token.NewFileSet(),
		files:  make(map[string]*File),
		edits:  make(map[string]*Edit),
		Errors: new(ErrorList),
	}

	var names []string
	for name := range srcs {
		names = append(names, name)
	}
	sort.Strings(names)

	var syntax []*ast.File
	var pkgFiles []*File
	pkgName := ""
	for _, name := range names {
		text := srcs[name]
		file, err := parser.ParseFile(s.fset, name, text, parser.ParseComments)
		if err != nil {
			s.Errors.Add(err)
			continue
		}
		if pkgName == "" {
			pkgName = file.Name.Name
		} else if file.Name.Name != pkgName {
			s.Errors.Add(fmt.Errorf("%s: package %s conflicts with package %s", name, file.Name.Name, pkgName))
			continue
		}
		f := &File{Name: name, Text: text, Syntax: file}
		s.files[name] = f
		s.names = append(s.names, name)
		pkgFiles = append(pkgFiles, f)
		syntax = append(syntax, file)
	}
	if err := s.Errors.Err(); err != nil {
		return nil, err
	}

	info := &types.Info{
		Types:      make(map[ast.Expr]types.TypeAndValue),
		Defs:       make(map[*ast.Ident]types.Object),
		Uses:       make(map[*ast.Ident]types.Object),
		Selections: make(map[*ast.SelectorExpr]*types.Selection),
		Scopes:     make(map[ast.Node]*types.Scope),
	}
	conf := &types.Config{
		Error:    s.Errors.Add,
		Importer: importer.ForCompiler(s.fset, "source", nil),
	}
	tpkg, err := conf.Check(pkgName, s.fset, syntax, info)
	if lerr := s.Errors.Err(); lerr != nil {
		return nil, lerr
	}
	if err != nil {
		return nil, err
	}

	s.pkg = &Package{
		Name:      pkgName,
		Dir:       r.dir,
		Files:     pkgFiles,
		Types:     tpkg,
		TypesInfo: info,
	}
	return s, nil
}

func (s *Snapshot) Refactor() *Refactor          { return s.r }
func (s *Snapshot) Fset() *token.FileSet         { return s.fset }
func (s *Snapshot) Package() *Package            { return s.pkg }
func (s *Snapshot) FileByName(name string) *File { return s.files[name] }

// FileNames returns every file name in the snapshot.
func (s *Snapshot) FileNames() []string {
	return append([]string(nil), s.names...)
}

func (s *Snapshot) ErrorAt(pos token.Pos, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	msg = strings.TrimRight(msg, "\n")
	msg = strings.ReplaceAll(msg, "\n", "\n\t")
	if pos == token.NoPos {
		s.Errors.Add(&Error{Msg: msg})
	} else {
		s.Errors.Add(&Error{Pos: s.Position(pos), Msg: msg})
	}
}

// Current returns the file's text with pending edits applied, or nil
// if the file is unknown.
func (s *Snapshot) Current(name string) []byte {
	if ed := s.edits[name]; ed != nil {
		return ed.Buffer.Bytes()
	}
	if f := s.files[name]; f != nil {
		return f.Text
	}
	return nil
}

// Reset discards all pending edits, restoring the snapshot to its
// loaded state.
func (s *Snapshot) Reset() {
	for name, ed := range s.edits {
		if ed.Create {
			delete(s.files, name)
			for i, n := range s.names {
				if n == name {
					s.names = append(s.names[:i], s.names[i+1:]...)
					break
				}
			}
		}
		delete(s.edits, name)
	}
	s.Errors.errs = nil
	s.Errors.set = nil
}

// Modified returns the names of loaded files with pending edits.
func (s *Snapshot) Modified() []string {
	var names []string
	for _, name := range s.names {
		if ed := s.edits[name]; ed != nil && !ed.Create {
			names = append(names, name)
		}
	}
	return names
}

// Created returns the names of files created by pending edits.
func (s *Snapshot) Created() []string {
	var names []string
	for _, name := range s.names {
		if ed := s.edits[name]; ed != nil && ed.Create {
			names = append(names, name)
		}
	}
	return names
}

// Gofmt reformats every edited buffer. Buffers that do not parse are
// left as they are; the caller will see the underlying problem when
// the result is reloaded or compiled.
func (s *Snapshot) Gofmt() {
	for _, ed := range s.edits {
		text, err := gofmt(ed.Buffer.Bytes())
		if err == nil {
			ed.Buffer = NewBufferAt(1, text)
		}
	}
}

// Diff renders the pending edits as a unified diff.
func (s *Snapshot) Diff() ([]byte, error) {
	var out []byte
	for _, name := range s.names {
		ed := s.edits[name]
		if ed == nil {
			continue
		}
		var old []byte
		if f := s.files[name]; f != nil && !f.Created {
			old = f.Text
		}
		new := ed.Buffer.Bytes()
		if bytes.Equal(old, new) {
			continue
		}
		out = append(out, diff.Unified("old/"+name, old, "new/"+name, new)...)
	}
	return out, nil
}

// Write persists all pending edits. It must only be called once the
// whole refactoring has succeeded; a failed batch calls Reset instead.
func (s *Snapshot) Write() error {
	if s.r.dir == "" {
		return fmt.Errorf("snapshot has no directory to write to")
	}
	failed := false
	for _, name := range s.names {
		ed := s.edits[name]
		if ed == nil {
			continue
		}
		if err := os.WriteFile(filepath.Join(s.r.dir, name), ed.Buffer.Bytes(), 0o666); err != nil {
			fmt.Fprintf(s.r.Stderr, "%s\n", err)
			failed = true
		}
	}
	if failed {
		return fmt.Errorf("errors writing files")
	}
	return nil
}
