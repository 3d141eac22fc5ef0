package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"champr/internal/config"
	"champr/internal/history"
	"champr/internal/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testChampions = `{
	"type": "champion",
	"format": "standAloneComplex",
	"version": "14.1.1",
	"data": {
		"Ahri": {"version": "14.1.1", "id": "Ahri", "key": "103", "name": "Ahri", "title": "the Nine-Tailed Fox"},
		"Annie": {"version": "14.1.1", "id": "Annie", "key": "1", "name": "Annie", "title": "the Dark Child"}
	}
}`

const testBuilds = `[{
	"index": 0, "id": "Ahri", "version": "14.1.1", "alias": "Ahri", "name": "Ahri", "position": "mid",
	"itemBuilds": [
		{"title": "mid core", "associatedMaps": [11], "associatedChampions": [103], "blocks": [{"type": "Core", "items": [{"id": "6655", "count": 1}]}], "map": "any", "mode": "any", "sortrank": 1, "startedFrom": "blank", "type": "custom"},
		{"title": "mid alt", "associatedMaps": [11], "associatedChampions": [103], "blocks": [{"type": "Core"}], "map": "any", "mode": "any", "sortrank": 2, "startedFrom": "blank", "type": "custom"}
	],
	"runes": []
}]`

func newContentServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/versions.json":
			w.Write([]byte(`["14.1.1", "13.24.1"]`))
		case r.URL.Path == "/cdn/14.1.1/data/en_US/champion.json":
			w.Write([]byte(testChampions))
		case r.URL.Path == "/npm/@champ-r/op.gg@latest/Ahri.json":
			w.Write([]byte(testBuilds))
		case strings.HasPrefix(r.URL.Path, "/npm/"):
			http.Error(w, "Couldn't find the requested file", http.StatusNotFound)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func testConfig(t *testing.T, serverURL string) *config.Config {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.General.OutputDir = filepath.Join(dir, "builds")
	cfg.General.Sources = []string{"op.gg"}
	cfg.Remote.CDNURL = serverURL
	cfg.Remote.RegistryURL = serverURL
	cfg.Remote.DataDragonURL = serverURL
	cfg.History.DatabaseURL = filepath.Join(dir, "history.db")
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestApplyOnce_EndToEnd(t *testing.T) {
	server := newContentServer(t)
	cfg := testConfig(t, server.URL)
	ctx := context.Background()

	result, runID, err := applyOnce(ctx, cfg)
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	assert.Equal(t, "14.1.1", result.Version)
	assert.Equal(t, 2, result.Tasks)
	assert.Equal(t, 2, result.Succeeded())
	// Annie has no published builds
	assert.Equal(t, 1, result.Failed())

	assert.FileExists(t, filepath.Join(cfg.General.OutputDir, "Ahri", "op.gg-Ahri-0-0.json"))
	assert.FileExists(t, filepath.Join(cfg.General.OutputDir, "Ahri", "op.gg-Ahri-0-1.json"))
	_, err = os.Stat(filepath.Join(cfg.General.OutputDir, "Annie"))
	assert.True(t, os.IsNotExist(err))

	store, err := history.Open(ctx, cfg.History.DatabaseURL)
	require.NoError(t, err)
	defer store.Close()

	runs, err := store.ListRuns(ctx, 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, runID, runs[0].ID)
	assert.Equal(t, 2, runs[0].Succeeded)

	failures, err := store.Failures(ctx, runs[0].ID)
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, "Annie", failures[0].Champion)
}

func TestApplyOnce_NotifiesDiscord(t *testing.T) {
	server := newContentServer(t)
	cfg := testConfig(t, server.URL)
	cfg.History.Enabled = false

	notified := make(chan struct{}, 1)
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		notified <- struct{}{}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer hook.Close()
	cfg.Notifications.DiscordWebhook = hook.URL

	_, runID, err := applyOnce(context.Background(), cfg)
	require.NoError(t, err)
	assert.Empty(t, runID)

	select {
	case <-notified:
	default:
		t.Fatal("webhook was not called")
	}
	_, err = os.Stat(cfg.History.DatabaseURL)
	assert.True(t, os.IsNotExist(err))
}

func TestApplyOnce_PinsPackageVersions(t *testing.T) {
	var requested []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/versions.json":
			w.Write([]byte(`["14.1.1"]`))
		case r.URL.Path == "/cdn/14.1.1/data/en_US/champion.json":
			w.Write([]byte(testChampions))
		case r.URL.Path == "/@champ-r/op.gg/latest":
			w.Write([]byte(`{"name": "@champ-r/op.gg", "version": "3.0.0", "dist-tags": {"latest": "3.1.0"}}`))
		case strings.HasPrefix(r.URL.Path, "/npm/"):
			requested = append(requested, r.URL.Path)
			w.Write([]byte(testBuilds))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	cfg := testConfig(t, server.URL)
	cfg.Remote.PinVersions = true
	cfg.General.Concurrency = 1

	_, _, err := applyOnce(context.Background(), cfg)
	require.NoError(t, err)

	require.NotEmpty(t, requested)
	for _, path := range requested {
		assert.Contains(t, path, "/npm/@champ-r/op.gg@3.1.0/")
	}
}

func TestApplyOnce_NoVersions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	cfg := testConfig(t, server.URL)
	result, runID, err := applyOnce(context.Background(), cfg)
	assert.Error(t, err)
	assert.Nil(t, result)
	assert.Empty(t, runID)
}

func failingResult(n int) *pipeline.RunResult {
	records := make(chan pipeline.TaskRecord, n)
	for i := 0; i < n; i++ {
		records <- pipeline.TaskRecord{
			Source:   "op.gg",
			Champion: fmt.Sprintf("Champ%d", i),
			Stage:    pipeline.StageFetch,
			Err:      "status 404",
		}
	}
	close(records)
	return pipeline.Collect(records)
}

func TestPrintFailures(t *testing.T) {
	t.Run("saved run points at history", func(t *testing.T) {
		var out bytes.Buffer
		printFailures(&out, failingResult(2), "run-1")
		assert.Contains(t, out.String(), "champr history --failures run-1")
		assert.NotContains(t, out.String(), "Champ0")
	})

	t.Run("unsaved run lists failures inline", func(t *testing.T) {
		var out bytes.Buffer
		printFailures(&out, failingResult(7), "")
		assert.NotContains(t, out.String(), "history --failures")
		assert.Contains(t, out.String(), "op.gg Champ0 [fetch]: status 404")
		assert.Contains(t, out.String(), "Champ4")
		assert.NotContains(t, out.String(), "Champ5")
		assert.Contains(t, out.String(), "...and 2 more")
	})

	t.Run("no failures prints nothing", func(t *testing.T) {
		var out bytes.Buffer
		printFailures(&out, failingResult(0), "")
		assert.Empty(t, out.String())
	})
}
