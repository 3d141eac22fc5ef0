package pipeline

import (
	"context"

	"champr/internal/ddragon"
	"champr/internal/jsdelivr"
)

// CatalogClient resolves the latest game version and its champion catalog
type CatalogClient interface {
	FetchVersions(ctx context.Context) ([]string, error)
	FetchChampions(ctx context.Context, version string) (*ddragon.ChampionList, error)
}

// BuildClient fetches the build documents one source publishes for one
// champion. (nil, nil) means the source has nothing for that champion.
type BuildClient interface {
	FetchBuildDocuments(ctx context.Context, source, version, champion string) ([]jsdelivr.BuildDocument, error)
}

// VersionResolver pins a source's package version before fan-out
type VersionResolver interface {
	ResolveVersion(ctx context.Context, source string) (string, error)
}

// FetchTask is one (source, champion) pair to fetch and persist
type FetchTask struct {
	Source   string
	Champion string // catalog key, e.g. "Ahri"
}

// Stage tells which step a record belongs to
type Stage string

const (
	StageFetch    Stage = "fetch"
	StageWrite    Stage = "write"
	StageCanceled Stage = "canceled"
)

// TaskRecord is emitted once per file write attempted, or once for a task
// that produced nothing to write
type TaskRecord struct {
	Success    bool   `json:"success"`
	Source     string `json:"source"`
	Champion   string `json:"champion"`
	Stage      Stage  `json:"stage"`
	Path       string `json:"path,omitempty"`
	BuildIndex int    `json:"buildIndex"`
	BlockIndex int    `json:"blockIndex"`
	Err        string `json:"error,omitempty"`
}

// Request is the caller-owned input of a run
type Request struct {
	Sources    []string
	OutputRoot string
	KeepOld    bool
}
