package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"champr/internal/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult(startedAt time.Time) *pipeline.RunResult {
	records := make(chan pipeline.TaskRecord, 4)
	records <- pipeline.TaskRecord{Success: true, Source: "op.gg", Champion: "Annie", Stage: pipeline.StageWrite, Path: "/out/Annie/op.gg-Annie-0-0.json"}
	records <- pipeline.TaskRecord{Success: true, Source: "op.gg", Champion: "Zed", Stage: pipeline.StageWrite, Path: "/out/Zed/op.gg-Zed-0-0.json"}
	records <- pipeline.TaskRecord{Source: "op.gg", Champion: "Ahri", Stage: pipeline.StageFetch, Err: "service unavailable"}
	records <- pipeline.TaskRecord{Source: "lolalytics", Champion: "Ahri", Stage: pipeline.StageWrite, Path: "/out/Ahri/lolalytics-Ahri-0-0.json", Err: "disk full"}
	close(records)

	result := pipeline.Collect(records)
	result.Version = "14.1.1"
	result.Sources = []string{"op.gg", "lolalytics"}
	result.OutputRoot = "/out"
	result.KeepOld = true
	result.Tasks = 3
	result.StartedAt = startedAt
	result.FinishedAt = startedAt.Add(3 * time.Second)
	return result
}

func TestNewRun(t *testing.T) {
	start := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)
	run := NewRun(sampleResult(start))

	assert.NotEmpty(t, run.ID)
	assert.Equal(t, "14.1.1", run.Version)
	assert.Equal(t, 4, run.Total)
	assert.Equal(t, 2, run.Succeeded)
	assert.Equal(t, 2, run.Failed)
	assert.Equal(t, 3*time.Second, run.Duration())
	require.Len(t, run.Failures, 2)
	for _, f := range run.Failures {
		assert.Equal(t, run.ID, f.RunID)
		assert.Equal(t, "Ahri", f.Champion)
	}

	assert.NotEqual(t, run.ID, NewRun(sampleResult(start)).ID)
}

func openTestSQLite(t *testing.T) *SQLStore {
	t.Helper()
	store, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "db", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLStore_SaveAndList(t *testing.T) {
	store := openTestSQLite(t)
	ctx := context.Background()

	start := time.Date(2024, 1, 10, 8, 0, 0, 123456789, time.UTC)
	older := NewRun(sampleResult(start))
	newer := NewRun(sampleResult(start.Add(time.Hour)))

	require.NoError(t, store.SaveRun(ctx, older))
	require.NoError(t, store.SaveRun(ctx, newer))

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, newer.ID, runs[0].ID)
	assert.Equal(t, older.ID, runs[1].ID)
	assert.True(t, older.StartedAt.Equal(runs[1].StartedAt))
	assert.True(t, older.FinishedAt.Equal(runs[1].FinishedAt))
	assert.Equal(t, []string{"op.gg", "lolalytics"}, runs[1].Sources)
	assert.True(t, runs[1].KeepOld)
	assert.Equal(t, 4, runs[1].Total)
	assert.Equal(t, 2, runs[1].Failed)

	limited, err := store.ListRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, newer.ID, limited[0].ID)
}

func TestSQLStore_Failures(t *testing.T) {
	store := openTestSQLite(t)
	ctx := context.Background()

	run := NewRun(sampleResult(time.Now()))
	require.NoError(t, store.SaveRun(ctx, run))

	failures, err := store.Failures(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, failures, 2)
	assert.Equal(t, "lolalytics", failures[0].Source)
	assert.Equal(t, "write", failures[0].Stage)
	assert.Equal(t, "disk full", failures[0].Error)
	assert.Equal(t, "op.gg", failures[1].Source)
	assert.Equal(t, "fetch", failures[1].Stage)

	none, err := store.Failures(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLStore_DuplicateID(t *testing.T) {
	store := openTestSQLite(t)
	ctx := context.Background()

	run := NewRun(sampleResult(time.Now()))
	require.NoError(t, store.SaveRun(ctx, run))
	assert.Error(t, store.SaveRun(ctx, run))

	failures, err := store.Failures(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, failures, 2)
}

func TestSQLStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	store, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	run := NewRun(sampleResult(time.Now()))
	require.NoError(t, store.SaveRun(ctx, run))
	require.NoError(t, store.Close())

	reopened, err := Open(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	runs, err := reopened.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
}

func TestOpen_EmptyDSN(t *testing.T) {
	_, err := Open(context.Background(), "")
	assert.Error(t, err)
}

func TestPostgresStore(t *testing.T) {
	url := os.Getenv("CHAMPR_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("CHAMPR_TEST_POSTGRES_URL not set")
	}
	ctx := context.Background()

	store, err := Open(ctx, url)
	require.NoError(t, err)
	defer store.Close()

	run := NewRun(sampleResult(time.Now()))
	require.NoError(t, store.SaveRun(ctx, run))

	runs, err := store.ListRuns(ctx, 50)
	require.NoError(t, err)
	var found bool
	for _, r := range runs {
		if r.ID == run.ID {
			found = true
			assert.Equal(t, run.Sources, r.Sources)
		}
	}
	assert.True(t, found)

	failures, err := store.Failures(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, failures, 2)
}
