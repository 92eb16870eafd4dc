// Package history keeps an optional SQLite ledger of runs and the files that
// failed in them. The ledger is written after a run finishes and is never
// consulted when deciding what to process.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	input_pattern TEXT,
	output_dir TEXT,
	config_path TEXT,
	steps TEXT,
	force INTEGER,
	append_mode INTEGER,
	batch_size INTEGER,
	workers INTEGER,
	total INTEGER,
	processed INTEGER,
	skipped INTEGER,
	failed INTEGER,
	aggregate_failed INTEGER,
	not_started INTEGER,
	rows_written INTEGER,
	started_at DATETIME,
	finished_at DATETIME
);
CREATE TABLE IF NOT EXISTS failures (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT,
	file TEXT,
	stage TEXT,
	error_message TEXT,
	created_at DATETIME
);
CREATE INDEX IF NOT EXISTS failures_run_id ON failures (run_id);
`

// Run is one row of the runs table.
type Run struct {
	ID              string
	InputPattern    string
	OutputDir       string
	ConfigPath      string
	Steps           []string
	Force           bool
	AppendMode      bool
	BatchSize       int
	Workers         int
	Total           int
	Processed       int
	Skipped         int
	Failed          int
	AggregateFailed int
	NotStarted      int
	Rows            int
	StartedAt       time.Time
	FinishedAt      time.Time
}

// Failure is one row of the failures table.
type Failure struct {
	RunID   string
	File    string
	Stage   string
	Message string
}

// Store is an open ledger database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the ledger at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// SaveRun stores run and its failures in one transaction.
func (s *Store) SaveRun(ctx context.Context, run Run, failures []Failure) error {
	stepsJSON, err := json.Marshal(run.Steps)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO runs (id, input_pattern, output_dir, config_path, steps,
		force, append_mode, batch_size, workers, total, processed, skipped, failed,
		aggregate_failed, not_started, rows_written, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.InputPattern, run.OutputDir, run.ConfigPath, string(stepsJSON),
		run.Force, run.AppendMode, run.BatchSize, run.Workers, run.Total, run.Processed,
		run.Skipped, run.Failed, run.AggregateFailed, run.NotStarted, run.Rows,
		run.StartedAt.UTC(), run.FinishedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	now := time.Now().UTC()
	for _, f := range failures {
		_, err := tx.ExecContext(ctx, `INSERT INTO failures (run_id, file, stage, error_message, created_at)
			VALUES (?, ?, ?, ?, ?)`, run.ID, f.File, f.Stage, f.Message, now)
		if err != nil {
			return fmt.Errorf("insert failure: %w", err)
		}
	}
	return tx.Commit()
}

// ListRuns returns every run, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, input_pattern, output_dir, config_path, steps,
		force, append_mode, batch_size, workers, total, processed, skipped, failed,
		aggregate_failed, not_started, rows_written, started_at, finished_at
		FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var stepsJSON string
		if err := rows.Scan(&r.ID, &r.InputPattern, &r.OutputDir, &r.ConfigPath, &stepsJSON,
			&r.Force, &r.AppendMode, &r.BatchSize, &r.Workers, &r.Total, &r.Processed,
			&r.Skipped, &r.Failed, &r.AggregateFailed, &r.NotStarted, &r.Rows,
			&r.StartedAt, &r.FinishedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(stepsJSON), &r.Steps); err != nil {
			return nil, fmt.Errorf("decode steps of run %s: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Failures returns the failures recorded for runID in insertion order.
func (s *Store) Failures(ctx context.Context, runID string) ([]Failure, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, file, stage, error_message
		FROM failures WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Failure
	for rows.Next() {
		var f Failure
		if err := rows.Scan(&f.RunID, &f.File, &f.Stage, &f.Message); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
