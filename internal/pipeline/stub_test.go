package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"champr/internal/ddragon"
	"champr/internal/jsdelivr"

	"github.com/stretchr/testify/require"
)

type stubCatalog struct {
	versions   []string
	versionErr error
	champions  map[string]ddragon.Champion

	versionCalls  int32
	championCalls int32
}

func (s *stubCatalog) FetchVersions(ctx context.Context) ([]string, error) {
	atomic.AddInt32(&s.versionCalls, 1)
	return s.versions, s.versionErr
}

func (s *stubCatalog) FetchChampions(ctx context.Context, version string) (*ddragon.ChampionList, error) {
	atomic.AddInt32(&s.championCalls, 1)
	return &ddragon.ChampionList{Type: "champion", Version: version, Data: s.champions}, nil
}

type stubBuilds struct {
	fetch func(source, champion string) ([]jsdelivr.BuildDocument, error)
	delay time.Duration

	calls       int32
	inFlight    int32
	maxInFlight int32

	mu       sync.Mutex
	versions map[string]string // source -> last version requested
}

func (s *stubBuilds) FetchBuildDocuments(ctx context.Context, source, version, champion string) ([]jsdelivr.BuildDocument, error) {
	atomic.AddInt32(&s.calls, 1)
	current := atomic.AddInt32(&s.inFlight, 1)
	defer atomic.AddInt32(&s.inFlight, -1)
	for {
		max := atomic.LoadInt32(&s.maxInFlight)
		if current <= max || atomic.CompareAndSwapInt32(&s.maxInFlight, max, current) {
			break
		}
	}

	s.mu.Lock()
	if s.versions == nil {
		s.versions = make(map[string]string)
	}
	s.versions[source] = version
	s.mu.Unlock()

	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.fetch == nil {
		return oneBuild(source, champion), nil
	}
	return s.fetch(source, champion)
}

func (s *stubBuilds) versionFor(source string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.versions[source]
}

func catalogOf(names ...string) map[string]ddragon.Champion {
	catalog := make(map[string]ddragon.Champion, len(names))
	for i, name := range names {
		catalog[name] = ddragon.Champion{ID: name, Key: fmt.Sprint(i + 1), Name: name}
	}
	return catalog
}

func itemBuild(title string) jsdelivr.ItemBuild {
	return jsdelivr.ItemBuild{
		Title:               title,
		AssociatedMaps:      []int{11, 12},
		AssociatedChampions: []int{103},
		Blocks: []jsdelivr.Block{
			{Type: "Starters", Items: []jsdelivr.Item{{ID: "1056", Count: 1}, {ID: "2003", Count: 2}}},
			{Type: "Core"},
		},
		Map:         "any",
		Mode:        "any",
		SortRank:    1,
		StartedFrom: "blank",
		Type:        "custom",
	}
}

func oneBuild(source, champion string) []jsdelivr.BuildDocument {
	return []jsdelivr.BuildDocument{{
		ID:         champion,
		Alias:      champion,
		ItemBuilds: []jsdelivr.ItemBuild{itemBuild(source + " " + champion)},
	}}
}

// readTree returns the contents of every regular file under root keyed by
// path relative to root
func readTree(t *testing.T, root string) map[string][]byte {
	t.Helper()
	files := make(map[string][]byte)
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files[rel] = data
		return nil
	})
	require.NoError(t, err)
	return files
}
