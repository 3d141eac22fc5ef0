package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"champr/internal/jsdelivr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectingSink() (func(TaskRecord), func() []TaskRecord) {
	var mu sync.Mutex
	var records []TaskRecord
	sink := func(rec TaskRecord) {
		mu.Lock()
		records = append(records, rec)
		mu.Unlock()
	}
	get := func() []TaskRecord {
		mu.Lock()
		defer mu.Unlock()
		return append([]TaskRecord(nil), records...)
	}
	return sink, get
}

func TestExecutor_RespectsCeiling(t *testing.T) {
	builds := &stubBuilds{delay: 20 * time.Millisecond}
	executor := NewExecutor(builds, NewWriter(t.TempDir()), 2, nil)

	tasks := make([]FetchTask, 10)
	for i := range tasks {
		tasks[i] = FetchTask{Source: "op.gg", Champion: fmt.Sprintf("Champ%d", i)}
	}

	sink, records := collectingSink()
	executor.Run(context.Background(), tasks, sink)

	assert.Equal(t, int32(10), atomic.LoadInt32(&builds.calls))
	assert.LessOrEqual(t, atomic.LoadInt32(&builds.maxInFlight), int32(2))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&builds.maxInFlight), int32(1))
	assert.Len(t, records(), 10)
}

func TestExecutor_DefaultCeiling(t *testing.T) {
	builds := &stubBuilds{delay: 5 * time.Millisecond}
	executor := NewExecutor(builds, NewWriter(t.TempDir()), 0, nil)

	tasks := make([]FetchTask, 40)
	for i := range tasks {
		tasks[i] = FetchTask{Source: "op.gg", Champion: fmt.Sprintf("Champ%d", i)}
	}

	sink, _ := collectingSink()
	executor.Run(context.Background(), tasks, sink)

	assert.LessOrEqual(t, atomic.LoadInt32(&builds.maxInFlight), int32(DefaultConcurrency))
}

func TestExecutor_FetchErrorBecomesRecord(t *testing.T) {
	builds := &stubBuilds{fetch: func(source, champion string) ([]jsdelivr.BuildDocument, error) {
		return nil, errors.New("connection refused")
	}}
	executor := NewExecutor(builds, NewWriter(t.TempDir()), 4, nil)

	sink, records := collectingSink()
	executor.Run(context.Background(), []FetchTask{{Source: "op.gg", Champion: "Ahri"}}, sink)

	got := records()
	require.Len(t, got, 1)
	assert.False(t, got[0].Success)
	assert.Equal(t, StageFetch, got[0].Stage)
	assert.Equal(t, "connection refused", got[0].Err)
}

func TestExecutor_NoDocumentsBecomesRecord(t *testing.T) {
	cases := map[string][]jsdelivr.BuildDocument{
		"absent":         nil,
		"empty":          {},
		"no item builds": {{ID: "Ahri"}},
	}
	for name, docs := range cases {
		t.Run(name, func(t *testing.T) {
			builds := &stubBuilds{fetch: func(source, champion string) ([]jsdelivr.BuildDocument, error) {
				return docs, nil
			}}
			executor := NewExecutor(builds, NewWriter(t.TempDir()), 4, nil)

			sink, records := collectingSink()
			executor.Run(context.Background(), []FetchTask{{Source: "op.gg", Champion: "Ahri"}}, sink)

			got := records()
			require.Len(t, got, 1)
			assert.False(t, got[0].Success)
			assert.Equal(t, StageFetch, got[0].Stage)
		})
	}
}

func TestExecutor_CanceledBeforeStart(t *testing.T) {
	builds := &stubBuilds{}
	executor := NewExecutor(builds, NewWriter(t.TempDir()), 2, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tasks := []FetchTask{{Source: "op.gg", Champion: "Ahri"}, {Source: "op.gg", Champion: "Annie"}}
	sink, records := collectingSink()
	executor.Run(ctx, tasks, sink)

	got := records()
	require.Len(t, got, 2)
	for _, rec := range got {
		assert.Equal(t, StageCanceled, rec.Stage)
		assert.False(t, rec.Success)
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(&builds.calls))
}

func TestExecutor_UsesPinnedVersion(t *testing.T) {
	builds := &stubBuilds{}
	executor := NewExecutor(builds, NewWriter(t.TempDir()), 2, map[string]string{"op.gg": "1.2.3"})

	sink, _ := collectingSink()
	executor.Run(context.Background(), []FetchTask{
		{Source: "op.gg", Champion: "Ahri"},
		{Source: "lolalytics", Champion: "Ahri"},
	}, sink)

	assert.Equal(t, "1.2.3", builds.versionFor("op.gg"))
	assert.Equal(t, jsdelivr.LatestTag, builds.versionFor("lolalytics"))
}

func TestExecutor_UnsafeNamesAreNotFetched(t *testing.T) {
	builds := &stubBuilds{}
	executor := NewExecutor(builds, NewWriter(t.TempDir()), 2, nil)

	sink, records := collectingSink()
	executor.Run(context.Background(), []FetchTask{
		{Source: "../../escaped", Champion: "Ahri"},
		{Source: "op.gg", Champion: "Ahri/../../x"},
	}, sink)

	got := records()
	require.Len(t, got, 2)
	for _, rec := range got {
		assert.False(t, rec.Success)
		assert.Equal(t, StageWrite, rec.Stage)
		assert.Empty(t, rec.Path)
		assert.Contains(t, rec.Err, ErrUnsafePath.Error())
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(&builds.calls))
}

func TestExecutor_PanicBecomesRecord(t *testing.T) {
	builds := &stubBuilds{fetch: func(source, champion string) ([]jsdelivr.BuildDocument, error) {
		if champion == "Ahri" {
			panic("malformed payload")
		}
		return oneBuild(source, champion), nil
	}}
	executor := NewExecutor(builds, NewWriter(t.TempDir()), 2, nil)

	sink, records := collectingSink()
	executor.Run(context.Background(), []FetchTask{
		{Source: "op.gg", Champion: "Ahri"},
		{Source: "op.gg", Champion: "Annie"},
	}, sink)

	got := records()
	require.Len(t, got, 2)
	for _, rec := range got {
		if rec.Champion == "Ahri" {
			assert.False(t, rec.Success)
			assert.Equal(t, StageFetch, rec.Stage)
			assert.Contains(t, rec.Err, "malformed payload")
		} else {
			assert.True(t, rec.Success)
		}
	}
}
