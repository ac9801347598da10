// Package storage persists the audit log of reconciliation runs in an
// embedded SQLite database.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

// ErrRunNotFound is returned when a run id has no history row
var ErrRunNotFound = errors.New("run not found")

// RunRecord is one reconciliation run as stored in the audit log.
type RunRecord struct {
	ID          string    `json:"id"`
	Command     string    `json:"command"`
	StartedAt   time.Time `json:"started_at"`
	Rules       int       `json:"rules"`
	Collections int       `json:"collections"`
	Changes     int       `json:"changes"`
	Findings    int       `json:"findings"`
	Fixed       bool      `json:"fixed"`
}

// History is the sqlite-backed run audit log. A single connection is enough:
// the CLI writes one row per run and reads only from the history command.
type History struct {
	db   *sql.DB
	path string
	log  *zap.SugaredLogger
}

// OpenHistory opens (creating if needed) the history database at path.
func OpenHistory(path string, log *zap.SugaredLogger) (*History, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	db.SetMaxOpenConns(1)

	h := &History{db: db, path: path, log: log}
	if err := h.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create history tables: %w", err)
	}

	log.Infow("History database ready", "path", path)
	return h, nil
}

// createTables creates the schema if it does not exist yet.
func (h *History) createTables() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		command     TEXT NOT NULL,
		started_at  TIMESTAMP NOT NULL,
		rules       INTEGER NOT NULL,
		collections INTEGER NOT NULL,
		changes     INTEGER NOT NULL,
		findings    INTEGER NOT NULL,
		fixed       INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC);`

	_, err := h.db.Exec(schema)
	return err
}

// SaveRun appends one run to the audit log.
func (h *History) SaveRun(ctx context.Context, run RunRecord) error {
	const query = `
	INSERT INTO runs (id, command, started_at, rules, collections, changes, findings, fixed)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := h.db.ExecContext(ctx, query,
		run.ID, run.Command, run.StartedAt.UTC(), run.Rules, run.Collections,
		run.Changes, run.Findings, run.Fixed)
	if err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}
	return nil
}

// GetRun returns a single run by id.
func (h *History) GetRun(ctx context.Context, id string) (RunRecord, error) {
	const query = `
	SELECT id, command, started_at, rules, collections, changes, findings, fixed
	FROM runs WHERE id = ?`

	var run RunRecord
	err := h.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID, &run.Command, &run.StartedAt, &run.Rules, &run.Collections,
		&run.Changes, &run.Findings, &run.Fixed)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (h *History) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	const query = `
	SELECT id, command, started_at, rules, collections, changes, findings, fixed
	FROM runs ORDER BY started_at DESC, id LIMIT ?`

	rows, err := h.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []RunRecord
	for rows.Next() {
		var run RunRecord
		if err := rows.Scan(&run.ID, &run.Command, &run.StartedAt, &run.Rules,
			&run.Collections, &run.Changes, &run.Findings, &run.Fixed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// Close closes the database.
func (h *History) Close() error {
	return h.db.Close()
}
