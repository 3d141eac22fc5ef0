package history

import (
	"context"
	"fmt"
	"log"

	json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ NOT NULL,
		version TEXT NOT NULL,
		sources JSONB NOT NULL,
		output_root TEXT NOT NULL,
		keep_old BOOLEAN NOT NULL DEFAULT FALSE,
		total INTEGER NOT NULL DEFAULT 0,
		succeeded INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
	`CREATE TABLE IF NOT EXISTS run_failures (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		source TEXT NOT NULL,
		champion TEXT NOT NULL,
		stage TEXT NOT NULL,
		path TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_run_failures_run ON run_failures(run_id)`,
}

// PostgresStore keeps history in PostgreSQL
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres creates a connection pool and ensures the schema exists
func OpenPostgres(ctx context.Context, url string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	for _, query := range postgresSchema {
		if _, err := pool.Exec(ctx, query); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}
	return &PostgresStore{pool: pool}, nil
}

// Close closes the connection pool
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// SaveRun inserts a run and its failures in one transaction
func (s *PostgresStore) SaveRun(ctx context.Context, run Run) error {
	sources, err := json.Marshal(run.Sources)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO runs (id, started_at, finished_at, version, sources, output_root, keep_old, total, succeeded, failed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, run.ID, run.StartedAt, run.FinishedAt, run.Version, string(sources),
		run.OutputRoot, run.KeepOld, run.Total, run.Succeeded, run.Failed)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	if len(run.Failures) > 0 {
		batch := &pgx.Batch{}
		for _, f := range run.Failures {
			batch.Queue(`
				INSERT INTO run_failures (run_id, source, champion, stage, path, error)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, run.ID, f.Source, f.Champion, f.Stage, f.Path, f.Error)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert failures: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	log.Printf("[History] Saved run %s (%d records, %d failed)", run.ID, run.Total, run.Failed)
	return nil
}

// ListRuns returns the most recent runs first
func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, started_at, finished_at, version, sources::text, output_root, keep_old, total, succeeded, failed
		FROM runs ORDER BY started_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var sources string
		if err := rows.Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &run.Version, &sources,
			&run.OutputRoot, &run.KeepOld, &run.Total, &run.Succeeded, &run.Failed); err != nil {
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
func (s *PostgresStore) Failures(ctx context.Context, runID string) ([]Failure, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT run_id, source, champion, stage, path, error
		FROM run_failures WHERE run_id = $1 ORDER BY champion, source
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
