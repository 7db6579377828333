// Copyright 2025 The rfmv Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Rfmv relocates methods between struct types in a Go package,
// rewriting bodies, leaving delegating stubs, and redirecting call
// sites. Batches apply atomically: one failure writes nothing.
//
// Usage:
//
//	rfmv move --source Calculator --method GetAverage --target MathUtilities --static
//	rfmv batch plan.yaml
//	rfmv history --journal rfmv.db
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dave-hillier/refactor-mcp-sub002/history"
	"github.com/dave-hillier/refactor-mcp-sub002/move"
	"github.com/dave-hillier/refactor-mcp-sub002/refactor"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type options struct {
	dir      string
	showDiff bool
	journal  string
}

func rootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "rfmv",
		Short:         "relocate methods between struct types in a Go package",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&opts.dir, "dir", ".", "package directory to refactor")
	root.PersistentFlags().BoolVar(&opts.showDiff, "diff", false, "print a diff instead of writing files")
	root.PersistentFlags().StringVar(&opts.journal, "journal", "", "record applied batches in this SQLite file")

	root.AddCommand(moveCmd(opts), batchCmd(opts), historyCmd(opts))
	return root
}

func moveCmd(opts *options) *cobra.Command {
	var op move.Operation
	var static bool
	var accessorKind string

	cmd := &cobra.Command{
		Use:   "move",
		Short: "relocate one method",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if static {
				op.Kind = move.Static
			}
			kind, err := parseAccessorKind(accessorKind)
			if err != nil {
				return err
			}
			op.AccessorKind = kind
			return runBatch(cmd, opts, []move.Operation{op})
		},
	}
	cmd.Flags().StringVar(&op.SourceType, "source", "", "type declaring the method")
	cmd.Flags().StringVar(&op.Method, "method", "", "method to relocate")
	cmd.Flags().StringVar(&op.Signature, "signature", "", "required signature, e.g. func([]float64) float64")
	cmd.Flags().StringVar(&op.TargetType, "target", "", "type receiving the method")
	cmd.Flags().StringVar(&op.TargetFile, "target-file", "", "file to create when the target type is absent")
	cmd.Flags().BoolVar(&static, "static", false, "move as a static method (value receiver, synthesized parameters)")
	cmd.Flags().StringVar(&op.Accessor, "accessor", "", "accessor on the source type routing instance calls")
	cmd.Flags().StringVar(&accessorKind, "accessor-kind", "field", "accessor shape: field or property")
	return cmd
}

// A planEntry is one move in a YAML batch file.
type planEntry struct {
	Source       string `yaml:"source"`
	Method       string `yaml:"method"`
	Signature    string `yaml:"signature"`
	Target       string `yaml:"target"`
	TargetFile   string `yaml:"target_file"`
	Kind         string `yaml:"kind"` // instance (default) or static
	Accessor     string `yaml:"accessor"`
	AccessorKind string `yaml:"accessor_kind"` // field (default) or property
}

func batchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "batch plan.yaml",
		Short: "relocate a batch of methods atomically",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var entries []planEntry
			if err := yaml.Unmarshal(data, &entries); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			ops := make([]move.Operation, len(entries))
			for i, e := range entries {
				op, err := e.operation()
				if err != nil {
					return fmt.Errorf("%s: move %d: %w", args[0], i+1, err)
				}
				ops[i] = op
			}
			return runBatch(cmd, opts, ops)
		},
	}
}

func (e planEntry) operation() (move.Operation, error) {
	op := move.Operation{
		SourceType: e.Source,
		Method:     e.Method,
		Signature:  e.Signature,
		TargetType: e.Target,
		TargetFile: e.TargetFile,
		Accessor:   e.Accessor,
	}
	switch e.Kind {
	case "", "instance":
	case "static":
		op.Kind = move.Static
	default:
		return op, fmt.Errorf("unknown kind %q", e.Kind)
	}
	kind, err := parseAccessorKind(e.AccessorKind)
	if err != nil {
		return op, err
	}
	op.AccessorKind = kind
	return op, nil
}

func parseAccessorKind(s string) (move.AccessorKind, error) {
	switch s {
	case "", "field":
		return move.AccessorField, nil
	case "property":
		return move.AccessorProperty, nil
	}
	return 0, fmt.Errorf("unknown accessor kind %q", s)
}

func runBatch(cmd *cobra.Command, opts *options, ops []move.Operation) error {
	rf, err := refactor.New(opts.dir)
	if err != nil {
		return err
	}
	rf.Stdout = cmd.OutOrStdout()
	rf.Stderr = cmd.ErrOrStderr()
	rf.ShowDiff = opts.showDiff

	snap, err := rf.Load()
	if err != nil {
		return err
	}
	sum, err := move.Execute(snap, ops)
	if err != nil {
		return err
	}

	if opts.showDiff {
		d, err := snap.Diff()
		if err != nil {
			return err
		}
		_, err = rf.Stdout.Write(d)
		return err
	}

	if err := snap.Write(); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, r := range sum.Moves {
		fmt.Fprintln(out, r)
	}
	for _, name := range sum.Created {
		fmt.Fprintf(out, "created %s\n", name)
	}
	for _, name := range sum.Written {
		fmt.Fprintf(out, "wrote %s\n", name)
	}

	if opts.journal != "" {
		moves := make([]history.Move, len(sum.Moves))
		for i, r := range sum.Moves {
			moves[i] = history.Move{Old: r.Old, New: r.New, File: r.File}
		}
		id, err := history.Record(opts.journal, moves)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "recorded batch %s\n", id)
	}
	return nil
}

func historyCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "list recorded batches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.journal == "" {
				return fmt.Errorf("history requires --journal")
			}
			batches, err := history.List(opts.journal)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, b := range batches {
				fmt.Fprintf(out, "batch %s %s\n", b.ID, b.Time.Format("2006-01-02 15:04:05"))
				for _, m := range b.Moves {
					fmt.Fprintf(out, "  %s -> %s (%s)\n", m.Old, m.New, m.File)
				}
			}
			return nil
		},
	}
}
