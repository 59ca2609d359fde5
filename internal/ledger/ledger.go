// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger keeps a SQLite history of export runs and the outcome of
// every notebook in each run.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/onenote-export/pkg/types"
)

// Run is one export run.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time // zero while the run is in progress or was interrupted
	Exported   int
	Skipped    int
	Incomplete int
	Failed     int
}

// Counts holds the per-status totals recorded when a run finishes.
type Counts struct {
	Exported   int
	Skipped    int
	Incomplete int
	Failed     int
}

// Ledger manages the run history database.
type Ledger struct {
	db *sql.DB
}

// Open opens or creates the ledger database at path.
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	l := &Ledger{db: db}
	if err := l.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating ledger schema: %w", err)
	}
	return l, nil
}

// Close releases the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			exported INTEGER NOT NULL DEFAULT 0,
			skipped INTEGER NOT NULL DEFAULT 0,
			incomplete INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS records (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			notebook_id TEXT NOT NULL,
			name TEXT NOT NULL,
			export_path TEXT NOT NULL,
			status TEXT NOT NULL,
			size INTEGER NOT NULL DEFAULT 0,
			attempts INTEGER NOT NULL DEFAULT 0,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			error TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_run_id ON records(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_records_notebook_id ON records(notebook_id)`,
	}
	for _, stmt := range statements {
		if _, err := l.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// StartRun inserts a new run and returns it.
func (l *Ledger) StartRun(ctx context.Context, startedAt time.Time) (Run, error) {
	run := Run{ID: uuid.NewString(), StartedAt: startedAt.UTC()}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at) VALUES (?, ?)`,
		run.ID, run.StartedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Run{}, fmt.Errorf("inserting run: %w", err)
	}
	return run, nil
}

// RecordAll stores every record of a run in a single transaction.
func (l *Ledger) RecordAll(ctx context.Context, runID string, recs []types.ExportRecord) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records (run_id, notebook_id, name, export_path, status, size, attempts, duration_ms, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range recs {
		_, err := stmt.ExecContext(ctx,
			runID, rec.Notebook.ID, rec.Notebook.Name, rec.Notebook.ExportPath,
			string(rec.Status), rec.Size, rec.Attempts, rec.Duration.Milliseconds(), rec.Error,
		)
		if err != nil {
			return fmt.Errorf("inserting record for %s: %w", rec.Notebook.Name, err)
		}
	}
	return tx.Commit()
}

// FinishRun stamps the run with its finish time and totals.
func (l *Ledger) FinishRun(ctx context.Context, runID string, finishedAt time.Time, c Counts) error {
	res, err := l.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, exported = ?, skipped = ?, incomplete = ?, failed = ? WHERE id = ?`,
		finishedAt.UTC().Format(time.RFC3339Nano), c.Exported, c.Skipped, c.Incomplete, c.Failed, runID,
	)
	if err != nil {
		return fmt.Errorf("updating run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s not found", runID)
	}
	return nil
}

// Runs returns the most recent runs, newest first. limit <= 0 returns all.
func (l *Ledger) Runs(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, started_at, COALESCE(finished_at, ''), exported, skipped, incomplete, failed
		FROM runs ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished string
		if err := rows.Scan(&r.ID, &started, &finished, &r.Exported, &r.Skipped, &r.Incomplete, &r.Failed); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		if finished != "" {
			r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Records returns the records of a run in the order they were stored.
func (l *Ledger) Records(ctx context.Context, runID string) ([]types.ExportRecord, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT notebook_id, name, export_path, status, size, attempts, duration_ms, COALESCE(error, '')
		 FROM records WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var recs []types.ExportRecord
	for rows.Next() {
		var rec types.ExportRecord
		var status string
		var durationMS int64
		if err := rows.Scan(&rec.Notebook.ID, &rec.Notebook.Name, &rec.Notebook.ExportPath,
			&status, &rec.Size, &rec.Attempts, &durationMS, &rec.Error); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		rec.Status = types.ExportStatus(status)
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// LastExport returns the most recent successful record for a notebook ID.
// The boolean is false when the notebook was never exported.
func (l *Ledger) LastExport(ctx context.Context, notebookID string) (types.ExportRecord, time.Time, bool, error) {
	var rec types.ExportRecord
	var status, started string
	err := l.db.QueryRowContext(ctx,
		`SELECT r.notebook_id, r.name, r.export_path, r.status, r.size, runs.started_at
		 FROM records r JOIN runs ON runs.id = r.run_id
		 WHERE r.notebook_id = ? AND r.status = ?
		 ORDER BY runs.started_at DESC LIMIT 1`,
		notebookID, string(types.ExportDone),
	).Scan(&rec.Notebook.ID, &rec.Notebook.Name, &rec.Notebook.ExportPath, &status, &rec.Size, &started)
	if err == sql.ErrNoRows {
		return rec, time.Time{}, false, nil
	}
	if err != nil {
		return rec, time.Time{}, false, fmt.Errorf("querying last export: %w", err)
	}
	rec.Status = types.ExportStatus(status)
	at, _ := time.Parse(time.RFC3339Nano, started)
	return rec, at, true, nil
}
