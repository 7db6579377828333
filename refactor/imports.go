// Copyright 2025 The rfmv Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package refactor

import (
	"go/ast"
	"go/token"
	"strconv"
	"strings"
)

// An Import names one import a file must carry. Name is the local
// name the importing code spells, or "" when the package's own name
// is used.
type Import struct {
	Name string
	Path string
}

func (imp Import) spec() string {
	if imp.Name != "" {
		return imp.Name + " " + strconv.Quote(imp.Path)
	}
	return strconv.Quote(imp.Path)
}

// EnsureImports queues edits adding the given imports to file,
// skipping paths the file already imports. Formatting of the grown
// import block is left to Gofmt.
func (s *Snapshot) EnsureImports(file *File, imports []Import) {
	have := make(map[string]bool)
	for _, spec := range file.Syntax.Imports {
		have[importPath(spec)] = true
	}
	var missing []Import
	for _, imp := range imports {
		if imp.Path != "" && !have[imp.Path] {
			have[imp.Path] = true
			missing = append(missing, imp)
		}
	}
	if len(missing) == 0 {
		return
	}

	for _, decl := range file.Syntax.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.IMPORT {
			continue
		}
		if gen.Lparen.IsValid() {
			var b strings.Builder
			for _, imp := range missing {
				b.WriteString("\n\t" + imp.spec())
			}
			b.WriteString("\n")
			s.InsertAt(gen.Rparen, b.String())
		} else {
			// Single import without parens; add a sibling block.
			var b strings.Builder
			b.WriteString("\n\nimport (")
			for _, imp := range missing {
				b.WriteString("\n\t" + imp.spec())
			}
			b.WriteString("\n)")
			s.InsertAt(gen.End(), b.String())
		}
		return
	}

	// No import declaration yet; add one after the package clause.
	var b strings.Builder
	b.WriteString("\n\nimport (")
	for _, imp := range missing {
		b.WriteString("\n\t" + imp.spec())
	}
	b.WriteString("\n)")
	s.InsertAt(file.Syntax.Name.End(), b.String())
}

func importPath(spec *ast.ImportSpec) string {
	p, err := strconv.Unquote(spec.Path.Value)
	if err != nil {
		return ""
	}
	return p
}
