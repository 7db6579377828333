// Copyright 2025 The rfmv Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/tools/txtar"
)

// TestScripts runs the txtar cases in testdata. The archive comment
// holds the rfmv command lines ($DIR expands to the temp package
// directory); "stdout" and "stderr" entries are the expected output,
// and "want/<name>" entries are the expected final file bytes.
func TestScripts(t *testing.T) {
	files, err := filepath.Glob("testdata/*.txt")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) == 0 {
		t.Fatal("no test cases")
	}

	for _, file := range files {
		t.Run(filepath.Base(file), func(t *testing.T) {
			ar, err := txtar.ParseFile(file)
			if err != nil {
				t.Fatal(err)
			}
			dir := t.TempDir()
			var wantStdout, wantStderr []byte
			want := make(map[string][]byte)
			for _, f := range ar.Files {
				switch {
				case f.Name == "stdout":
					wantStdout = f.Data
				case f.Name == "stderr":
					wantStderr = f.Data
				case strings.HasPrefix(f.Name, "want/"):
					want[strings.TrimPrefix(f.Name, "want/")] = f.Data
				default:
					if err := os.WriteFile(filepath.Join(dir, f.Name), f.Data, 0o666); err != nil {
						t.Fatal(err)
					}
				}
			}

			var stdout, stderr bytes.Buffer
			for _, line := range strings.Split(string(ar.Comment), "\n") {
				line = strings.TrimSpace(line)
				if line == "" || strings.HasPrefix(line, "#") {
					continue
				}
				cmd := rootCmd()
				cmd.SetOut(&stdout)
				cmd.SetErr(&stderr)
				cmd.SetArgs(strings.Fields(strings.ReplaceAll(line, "$DIR", dir)))
				cmd.Execute() // errors land on stderr
			}

			cmp := func(name string, have, want []byte) {
				have = trimSpace(have)
				want = trimSpace(want)
				if !bytes.Equal(have, want) {
					t.Errorf("%s:\n%s", name, have)
					t.Errorf("want:\n%s", want)
				}
			}
			cmp("stderr", stderr.Bytes(), wantStderr)
			cmp("stdout", stdout.Bytes(), wantStdout)
			for name, data := range want {
				got, err := os.ReadFile(filepath.Join(dir, name))
				if err != nil {
					t.Errorf("%s: %v", name, err)
					continue
				}
				cmp(name, got, data)
			}
		})
	}
}

func trimSpace(data []byte) []byte {
	lines := bytes.Split(data, []byte("\n"))
	for i, line := range lines {
		lines[i] = bytes.TrimRight(line, " ")
	}
	return bytes.Join(lines, []byte("\n"))
}

const calcSrc = `package calc

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
`

func writeCalc(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "calc.go"), []byte(calcSrc), 0o666); err != nil {
		t.Fatal(err)
	}
	return dir
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestDiffFlag(t *testing.T) {
	dir := writeCalc(t)
	stdout, _, err := run(t, "move",
		"--source", "Calculator", "--method", "GetAverage",
		"--target", "MathUtilities", "--target-file", "mathutil.go",
		"--static", "--diff", "--dir", dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"diff old/calc.go new/calc.go",
		"+	return MathUtilities{}.GetAverage(c.data)",
		"diff old/mathutil.go new/mathutil.go",
		"+type MathUtilities struct{}",
	} {
		if !strings.Contains(stdout, want) {
			t.Errorf("diff output missing %q:\n%s", want, stdout)
		}
	}

	// --diff must not touch the tree.
	data, err := os.ReadFile(filepath.Join(dir, "calc.go"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != calcSrc {
		t.Errorf("calc.go changed under --diff")
	}
	if _, err := os.Stat(filepath.Join(dir, "mathutil.go")); !os.IsNotExist(err) {
		t.Errorf("mathutil.go created under --diff")
	}
}

func TestJournal(t *testing.T) {
	dir := writeCalc(t)
	journal := filepath.Join(t.TempDir(), "rfmv.db")
	stdout, _, err := run(t, "move",
		"--source", "Calculator", "--method", "GetAverage",
		"--target", "MathUtilities", "--target-file", "mathutil.go",
		"--static", "--dir", dir, "--journal", journal)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stdout, "recorded batch ") {
		t.Errorf("missing journal confirmation:\n%s", stdout)
	}

	stdout, _, err = run(t, "history", "--journal", journal)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stdout, "Calculator.GetAverage -> MathUtilities.GetAverage (mathutil.go)") {
		t.Errorf("history missing move:\n%s", stdout)
	}
}

func TestFailedBatchRecordsNothing(t *testing.T) {
	dir := writeCalc(t)
	journal := filepath.Join(t.TempDir(), "rfmv.db")
	_, _, err := run(t, "move",
		"--source", "Calculator", "--method", "Missing",
		"--target", "MathUtilities", "--static",
		"--dir", dir, "--journal", journal)
	if err == nil {
		t.Fatal("expected error")
	}
	if _, err := os.Stat(journal); !os.IsNotExist(err) {
		t.Errorf("failed batch created a journal")
	}
}
