package history

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

const sqlSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL,
	version TEXT NOT NULL,
	sources TEXT NOT NULL,
	output_root TEXT NOT NULL,
	keep_old INTEGER NOT NULL DEFAULT 0,
	total INTEGER NOT NULL DEFAULT 0,
	succeeded INTEGER NOT NULL DEFAULT 0,
	failed INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
CREATE TABLE IF NOT EXISTS run_failures (
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	source TEXT NOT NULL,
	champion TEXT NOT NULL,
	stage TEXT NOT NULL,
	path TEXT NOT NULL DEFAULT '',
	error TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_run_failures_run ON run_failures(run_id);
`

// SQLStore keeps history in sqlite or libsql through database/sql
type SQLStore struct {
	db *sql.DB
}

// OpenSQLite opens (and creates) a sqlite history database at path
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer avoids SQLITE_BUSY between pooled connections
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, err
	}
	return newSQLStore(ctx, db)
}

// OpenLibSQL connects to a libsql (Turso) database. TURSO_AUTH_TOKEN is
// appended when the URL carries no token.
func OpenLibSQL(ctx context.Context, url string) (*SQLStore, error) {
	connStr := url
	if token := os.Getenv("TURSO_AUTH_TOKEN"); token != "" && !strings.Contains(url, "authToken=") {
		connStr = fmt.Sprintf("%s?authToken=%s", url, token)
	}

	db, err := sql.Open("libsql", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to libsql: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping libsql: %w", err)
	}
	return newSQLStore(ctx, db)
}

func newSQLStore(ctx context.Context, db *sql.DB) (*SQLStore, error) {
	for _, stmt := range strings.Split(sqlSchema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}
	return &SQLStore{db: db}, nil
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// SaveRun inserts a run and its failures in one transaction
func (s *SQLStore) SaveRun(ctx context.Context, run Run) error {
	sources, err := json.Marshal(run.Sources)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, finished_at, version, sources, output_root, keep_old, total, succeeded, failed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, formatTime(run.StartedAt), formatTime(run.FinishedAt), run.Version, string(sources),
		run.OutputRoot, run.KeepOld, run.Total, run.Succeeded, run.Failed)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	if len(run.Failures) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO run_failures (run_id, source, champion, stage, path, error)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, f := range run.Failures {
			if _, err := stmt.ExecContext(ctx, run.ID, f.Source, f.Champion, f.Stage, f.Path, f.Error); err != nil {
				return fmt.Errorf("failed to insert failure: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	log.Printf("[History] Saved run %s (%d records, %d failed)", run.ID, run.Total, run.Failed)
	return nil
}

// ListRuns returns the most recent runs first
func (s *SQLStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, version, sources, output_root, keep_old, total, succeeded, failed
		FROM runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var startedAt, finishedAt, sources string
		if err := rows.Scan(&run.ID, &startedAt, &finishedAt, &run.Version, &sources,
			&run.OutputRoot, &run.KeepOld, &run.Total, &run.Succeeded, &run.Failed); err != nil {
			return nil, err
		}
		if run.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, err
		}
		if run.FinishedAt, err = parseTime(finishedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(sources), &run.Sources); err != nil {
			return nil, fmt.Errorf("failed to decode sources of run %s: %w", run.ID, err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Failures returns the failed records of a run
func (s *SQLStore) Failures(ctx context.Context, runID string) ([]Failure, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, source, champion, stage, path, error
		FROM run_failures WHERE run_id = ? ORDER BY champion, source
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query failures: %w", err)
	}
	defer rows.Close()

	var failures []Failure
	for rows.Next() {
		var f Failure
		if err := rows.Scan(&f.RunID, &f.Source, &f.Champion, &f.Stage, &f.Path, &f.Error); err != nil {
			return nil, err
		}
		failures = append(failures, f)
	}
	return failures, rows.Err()
}
