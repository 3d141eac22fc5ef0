package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	"champr/internal/pipeline"

	"github.com/google/uuid"
)

// timeLayout is fixed width so text timestamps sort chronologically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run is one recorded pipeline run
type Run struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Version    string    `json:"version"`
	Sources    []string  `json:"sources"`
	OutputRoot string    `json:"outputRoot"`
	KeepOld    bool      `json:"keepOld"`
	Total      int       `json:"total"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`

	Failures []Failure `json:"-"`
}

// Duration returns how long the run took
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Failure is one failed record of a run
type Failure struct {
	RunID    string `json:"runId"`
	Source   string `json:"source"`
	Champion string `json:"champion"`
	Stage    string `json:"stage"`
	Path     string `json:"path,omitempty"`
	Error    string `json:"error"`
}

// Store persists runs and their failures
type Store interface {
	SaveRun(ctx context.Context, run Run) error
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	Failures(ctx context.Context, runID string) ([]Failure, error)
	Close() error
}

// NewRun builds a Run with a fresh ID from a pipeline result
func NewRun(result *pipeline.RunResult) Run {
	run := Run{
		ID:         uuid.NewString(),
		StartedAt:  result.StartedAt.UTC(),
		FinishedAt: result.FinishedAt.UTC(),
		Version:    result.Version,
		Sources:    append([]string(nil), result.Sources...),
		OutputRoot: result.OutputRoot,
		KeepOld:    result.KeepOld,
		Total:      result.Len(),
		Succeeded:  result.Succeeded(),
		Failed:     result.Failed(),
	}
	for _, rec := range result.Failures() {
		run.Failures = append(run.Failures, Failure{
			RunID:    run.ID,
			Source:   rec.Source,
			Champion: rec.Champion,
			Stage:    string(rec.Stage),
			Path:     rec.Path,
			Error:    rec.Err,
		})
	}
	return run
}

// Open picks a backend from dsn: postgres:// and postgresql:// use pgx,
// libsql:// uses libsql, anything else is a sqlite file path
func Open(ctx context.Context, dsn string) (Store, error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		store, err := OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return store, nil
	case strings.HasPrefix(dsn, "libsql://"):
		store, err := OpenLibSQL(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return store, nil
	case dsn == "":
		return nil, fmt.Errorf("history: empty database location")
	default:
		store, err := OpenSQLite(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}
