// Copyright 2025 The rfmv Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package history keeps a journal of applied batches in a SQLite
// database. Entries are recorded only after a batch's files have been
// written; a failed batch never leaves a row.
package history

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// A Move is one relocation within a recorded batch.
type Move struct {
	Old  string // original location, "Calculator.GetAverage"
	New  string // new location, "MathUtilities.GetAverage"
	File string // file now holding the method
}

// A Batch is one journal entry.
type Batch struct {
	ID    string
	Time  time.Time
	Moves []Move
}

const schema = `
CREATE TABLE IF NOT EXISTS batches (
	id          TEXT PRIMARY KEY,
	recorded_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS moves (
	batch_id TEXT NOT NULL REFERENCES batches(id),
	seq      INTEGER NOT NULL,
	old      TEXT NOT NULL,
	new      TEXT NOT NULL,
	file     TEXT NOT NULL
);
`

func open(path string) (*sqlite.Conn, error) {
	conn, err := sqlite.OpenConn(path, sqlite.OpenCreate, sqlite.OpenReadWrite)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("journal schema: %w", err)
	}
	return conn, nil
}

// Record appends one batch to the journal at path, creating the
// database as needed, and returns the batch id.
func Record(path string, moves []Move) (string, error) {
	conn, err := open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = conn.Close() }()

	id := uuid.NewString()
	endFn, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}

	err = sqlitex.Execute(conn,
		"INSERT INTO batches (id, recorded_at) VALUES (?, ?)",
		&sqlitex.ExecOptions{Args: []any{id, time.Now().UTC().Format(time.RFC3339)}})
	for i := 0; err == nil && i < len(moves); i++ {
		m := moves[i]
		err = sqlitex.Execute(conn,
			"INSERT INTO moves (batch_id, seq, old, new, file) VALUES (?, ?, ?, ?, ?)",
			&sqlitex.ExecOptions{Args: []any{id, i, m.Old, m.New, m.File}})
	}

	endFn(&err)
	if err != nil {
		return "", fmt.Errorf("record batch: %w", err)
	}
	return id, nil
}

// List returns every recorded batch, oldest first, moves in applied
// order.
func List(path string) ([]Batch, error) {
	conn, err := open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.Close() }()

	var batches []Batch
	byID := make(map[string]int)
	err = sqlitex.Execute(conn,
		"SELECT id, recorded_at FROM batches ORDER BY recorded_at, id",
		&sqlitex.ExecOptions{ResultFunc: func(stmt *sqlite.Stmt) error {
			t, err := time.Parse(time.RFC3339, stmt.ColumnText(1))
			if err != nil {
				return fmt.Errorf("bad timestamp for batch %s: %w", stmt.ColumnText(0), err)
			}
			byID[stmt.ColumnText(0)] = len(batches)
			batches = append(batches, Batch{ID: stmt.ColumnText(0), Time: t})
			return nil
		}})
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}

	err = sqlitex.Execute(conn,
		"SELECT batch_id, old, new, file FROM moves ORDER BY batch_id, seq",
		&sqlitex.ExecOptions{ResultFunc: func(stmt *sqlite.Stmt) error {
			i, ok := byID[stmt.ColumnText(0)]
			if !ok {
				return nil
			}
			batches[i].Moves = append(batches[i].Moves, Move{
				Old:  stmt.ColumnText(1),
				New:  stmt.ColumnText(2),
				File: stmt.ColumnText(3),
			})
			return nil
		}})
	if err != nil {
		return nil, fmt.Errorf("list moves: %w", err)
	}
	return batches, nil
}
