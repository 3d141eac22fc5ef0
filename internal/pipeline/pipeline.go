package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// ErrNoVersions is returned when the version list is empty
var ErrNoVersions = errors.New("no game versions available")

// Pipeline fetches builds for every (source, champion) pair of the latest
// catalog and writes each item build to its own file
type Pipeline struct {
	catalog      CatalogClient
	builds       BuildClient
	resolver     VersionResolver
	concurrency  int
	recordBuffer int
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithConcurrency sets the number of tasks in flight at once
func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithVersionResolver pins each source's package version once per run
func WithVersionResolver(r VersionResolver) Option {
	return func(p *Pipeline) {
		p.resolver = r
	}
}

// WithRecordBuffer sets the capacity of the record channel
func WithRecordBuffer(n int) Option {
	return func(p *Pipeline) {
		p.recordBuffer = n
	}
}

// New creates a pipeline
func New(catalog CatalogClient, builds BuildClient, opts ...Option) *Pipeline {
	p := &Pipeline{
		catalog:      catalog,
		builds:       builds,
		concurrency:  DefaultConcurrency,
		recordBuffer: DefaultRecordBuffer,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run prepares the output root, resolves the catalog, and fetches and writes
// every build. Errors before fan-out are fatal and return a nil result. Per-task
// failures only show up as failed records. If ctx is cancelled during fan-out
// the complete result is returned along with ctx.Err().
func (p *Pipeline) Run(ctx context.Context, req Request) (*RunResult, error) {
	startedAt := time.Now()
	sources := append([]string(nil), req.Sources...)

	if err := PrepareOutput(req.OutputRoot, req.KeepOld); err != nil {
		return nil, err
	}

	versions, err := p.catalog.FetchVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve game version: %w", err)
	}
	if len(versions) == 0 || versions[0] == "" {
		return nil, ErrNoVersions
	}
	version := versions[0]

	catalog, err := p.catalog.FetchChampions(ctx, version)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve champion catalog: %w", err)
	}
	if catalog == nil {
		return nil, fmt.Errorf("failed to resolve champion catalog: empty response")
	}

	tasks := GenerateTasks(sources, catalog.Data)
	log.Printf("[Pipeline] Version %s: %d champions x %d sources = %d tasks",
		version, len(catalog.Data), len(sources), len(tasks))

	packageVersions := p.resolveVersions(ctx, sources)

	agg := NewAggregator(p.recordBuffer)
	executor := NewExecutor(p.builds, NewWriter(req.OutputRoot), p.concurrency, packageVersions)
	executor.Run(ctx, tasks, agg.Emit)
	agg.Close()

	result := agg.Wait()
	result.Version = version
	result.Sources = sources
	result.OutputRoot = req.OutputRoot
	result.KeepOld = req.KeepOld
	result.Tasks = len(tasks)
	result.StartedAt = startedAt
	result.FinishedAt = time.Now()

	log.Printf("[Pipeline] All %d, failed %d (%s)", result.Len(), result.Failed(), result.Duration().Round(time.Millisecond))

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

func (p *Pipeline) resolveVersions(ctx context.Context, sources []string) map[string]string {
	if p.resolver == nil {
		return nil
	}

	versions := make(map[string]string, len(sources))
	for _, source := range sources {
		if _, ok := versions[source]; ok {
			continue
		}
		v, err := p.resolver.ResolveVersion(ctx, source)
		if err != nil {
			log.Printf("[Pipeline] Could not resolve package version for %s, using latest: %v", source, err)
			continue
		}
		versions[source] = v
	}
	return versions
}
