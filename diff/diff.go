// Copyright 2025 The rfmv Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package diff renders line-level unified diffs. It is self-contained
// so the tool does not depend on a system diff binary.
package diff

import (
	"bytes"
	"fmt"
)

const context = 3

type op struct {
	kind byte // ' ', '-', '+'
	line string
}

// Unified returns a unified diff from old to new, or nil if the
// contents are equal.
func Unified(oldName string, old []byte, newName string, new []byte) []byte {
	if bytes.Equal(old, new) {
		return nil
	}
	ops := diffLines(splitLines(old), splitLines(new))

	var out bytes.Buffer
	fmt.Fprintf(&out, "diff %s %s\n--- %s\n+++ %s\n", oldName, newName, oldName, newName)

	i := 0
	aLine, bLine := 1, 1
	for {
		j := i
		for j < len(ops) && ops[j].kind == ' ' {
			j++
		}
		if j == len(ops) {
			break
		}

		start := j - context
		if start < i {
			start = i
		}
		aLine += start - i
		bLine += start - i

		// Merge changes separated by at most 2*context equal lines
		// into one hunk, then keep trailing context.
		lastChange := j
		for k := j + 1; k < len(ops); k++ {
			if ops[k].kind != ' ' {
				if k-lastChange > 2*context {
					break
				}
				lastChange = k
			}
		}
		end := lastChange + context + 1
		if end > len(ops) {
			end = len(ops)
		}

		aStart, bStart := aLine, bLine
		aCount, bCount := 0, 0
		var body bytes.Buffer
		for k := start; k < end; k++ {
			o := ops[k]
			switch o.kind {
			case ' ':
				aCount++
				bCount++
				aLine++
				bLine++
			case '-':
				aCount++
				aLine++
			case '+':
				bCount++
				bLine++
			}
			body.WriteByte(o.kind)
			body.WriteString(o.line)
		}
		fmt.Fprintf(&out, "@@ -%d,%d +%d,%d @@\n", aStart, aCount, bStart, bCount)
		out.Write(body.Bytes())

		i = end
	}
	return out.Bytes()
}

func splitLines(text []byte) []string {
	var lines []string
	for len(text) > 0 {
		i := bytes.IndexByte(text, '\n')
		if i < 0 {
			lines = append(lines, string(text)+"\n")
			break
		}
		lines = append(lines, string(text[:i+1]))
		text = text[i+1:]
	}
	return lines
}

// diffLines computes an edit script between a and b using a longest
// common subsequence table. Inputs are whole source files, so the
// quadratic table is fine.
func diffLines(a, b []string) []op {
	n, m := len(a), len(b)
	lcs := make([][]int, n+1)
	for i := range lcs {
		lcs[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if a[i] == b[j] {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else if lcs[i+1][j] >= lcs[i][j+1] {
				lcs[i][j] = lcs[i+1][j]
			} else {
				lcs[i][j] = lcs[i][j+1]
			}
		}
	}

	var ops []op
	i, j := 0, 0
	for i < n && j < m {
		switch {
		case a[i] == b[j]:
			ops = append(ops, op{' ', a[i]})
			i++
			j++
		case lcs[i+1][j] >= lcs[i][j+1]:
			ops = append(ops, op{'-', a[i]})
			i++
		default:
			ops = append(ops, op{'+', b[j]})
			j++
		}
	}
	for ; i < n; i++ {
		ops = append(ops, op{'-', a[i]})
	}
	for ; j < m; j++ {
		ops = append(ops, op{'+', b[j]})
	}
	return ops
}
