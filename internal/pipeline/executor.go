package pipeline

import (
	"context"
	"fmt"
	"log"

	"champr/internal/jsdelivr"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of tasks in flight at once
const DefaultConcurrency = 10

// Executor runs fetch tasks with a fixed concurrency ceiling. Each task gets
// one fetch attempt; its writes happen inside the same slot.
type Executor struct {
	builds      BuildClient
	writer      *Writer
	concurrency int
	versions    map[string]string // source -> package version
}

// NewExecutor creates an executor. versions may be nil, in which case every
// source is fetched at the latest tag.
func NewExecutor(builds BuildClient, writer *Writer, concurrency int, versions map[string]string) *Executor {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Executor{
		builds:      builds,
		writer:      writer,
		concurrency: concurrency,
		versions:    versions,
	}
}

// Run executes every task and blocks until all of them have delivered their
// records to sink. sink must be safe for concurrent use.
func (e *Executor) Run(ctx context.Context, tasks []FetchTask, sink func(TaskRecord)) {
	var g errgroup.Group
	g.SetLimit(e.concurrency)

	for _, task := range tasks {
		if ctx.Err() != nil {
			sink(canceledRecord(task))
			continue
		}
		task := task
		g.Go(func() error {
			e.runTask(ctx, task, sink)
			return nil
		})
	}

	g.Wait()
}

func (e *Executor) runTask(ctx context.Context, task FetchTask, sink func(TaskRecord)) {
	if ctx.Err() != nil {
		sink(canceledRecord(task))
		return
	}

	if err := checkTask(task); err != nil {
		log.Printf("[Executor] Skipping task: %v", err)
		sink(TaskRecord{
			Source:   task.Source,
			Champion: task.Champion,
			Stage:    StageWrite,
			Err:      err.Error(),
		})
		return
	}

	docs, err := e.fetch(ctx, task)
	if err != nil {
		log.Printf("[Executor] Fetch failed: %s %s: %v", task.Source, task.Champion, err)
		sink(TaskRecord{
			Source:   task.Source,
			Champion: task.Champion,
			Stage:    StageFetch,
			Err:      err.Error(),
		})
		return
	}

	attempted := 0
	for buildIndex, doc := range docs {
		for blockIndex, build := range doc.ItemBuilds {
			attempted++
			sink(e.persist(task, buildIndex, blockIndex, build))
		}
	}

	if attempted == 0 {
		log.Printf("[Executor] No builds: %s %s", task.Source, task.Champion)
		sink(TaskRecord{
			Source:   task.Source,
			Champion: task.Champion,
			Stage:    StageFetch,
			Err:      "no builds found",
		})
	}
}

// fetch calls the build client, turning a panic into an error
func (e *Executor) fetch(ctx context.Context, task FetchTask) (docs []jsdelivr.BuildDocument, err error) {
	defer func() {
		if r := recover(); r != nil {
			docs, err = nil, fmt.Errorf("panic while fetching: %v", r)
		}
	}()
	return e.builds.FetchBuildDocuments(ctx, task.Source, e.versionFor(task.Source), task.Champion)
}

func (e *Executor) persist(task FetchTask, buildIndex, blockIndex int, build jsdelivr.ItemBuild) (rec TaskRecord) {
	rec = TaskRecord{
		Source:     task.Source,
		Champion:   task.Champion,
		Stage:      StageWrite,
		BuildIndex: buildIndex,
		BlockIndex: blockIndex,
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Writer] Save panicked: %v", r)
			rec.Success = false
			rec.Err = fmt.Sprintf("panic while writing: %v", r)
		}
	}()

	path, err := e.writer.Path(task.Source, task.Champion, buildIndex, blockIndex)
	if err != nil {
		rec.Err = err.Error()
		return rec
	}
	rec.Path = path

	if err := e.writer.Write(path, build); err != nil {
		log.Printf("[Writer] Save failed: %v", err)
		rec.Err = err.Error()
		return rec
	}
	rec.Success = true
	return rec
}

func checkTask(task FetchTask) error {
	if err := CheckName(task.Source); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if err := CheckName(task.Champion); err != nil {
		return fmt.Errorf("champion: %w", err)
	}
	return nil
}

func (e *Executor) versionFor(source string) string {
	if v, ok := e.versions[source]; ok && v != "" {
		return v
	}
	return jsdelivr.LatestTag
}

func canceledRecord(task FetchTask) TaskRecord {
	return TaskRecord{
		Source:   task.Source,
		Champion: task.Champion,
		Stage:    StageCanceled,
		Err:      context.Canceled.Error(),
	}
}
