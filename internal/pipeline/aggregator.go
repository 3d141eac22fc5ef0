package pipeline

import "time"

// DefaultRecordBuffer is the capacity of the record channel
const DefaultRecordBuffer = 100

// RunResult holds every record of a run. Record order is not meaningful.
type RunResult struct {
	Version    string
	Sources    []string
	OutputRoot string
	KeepOld    bool
	Tasks      int
	StartedAt  time.Time
	FinishedAt time.Time
	Records    []TaskRecord

	succeeded int
	failed    int
	byStage   map[Stage]int
}

func newRunResult() *RunResult {
	return &RunResult{byStage: make(map[Stage]int)}
}

func (r *RunResult) add(rec TaskRecord) {
	r.Records = append(r.Records, rec)
	if rec.Success {
		r.succeeded++
	} else {
		r.failed++
		r.byStage[rec.Stage]++
	}
}

// Len returns the number of records
func (r *RunResult) Len() int { return len(r.Records) }

// Succeeded returns the number of successful records
func (r *RunResult) Succeeded() int { return r.succeeded }

// Failed returns the number of failed records
func (r *RunResult) Failed() int { return r.failed }

// FailedAt returns the number of failed records for a stage
func (r *RunResult) FailedAt(stage Stage) int { return r.byStage[stage] }

// Failures returns the failed records
func (r *RunResult) Failures() []TaskRecord {
	out := make([]TaskRecord, 0, r.failed)
	for _, rec := range r.Records {
		if !rec.Success {
			out = append(out, rec)
		}
	}
	return out
}

// Duration returns how long the run took
func (r *RunResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Collect drains records until the channel is closed
func Collect(records <-chan TaskRecord) *RunResult {
	result := newRunResult()
	for rec := range records {
		result.add(rec)
	}
	return result
}

// Aggregator is the single consumer of records emitted by concurrent tasks.
// Emit may be called from any goroutine until Close; Wait returns once every
// emitted record has been collected.
type Aggregator struct {
	records chan TaskRecord
	done    chan struct{}
	result  *RunResult
}

// NewAggregator starts a consumer with the given channel capacity
func NewAggregator(buffer int) *Aggregator {
	if buffer < 0 {
		buffer = 0
	}
	a := &Aggregator{
		records: make(chan TaskRecord, buffer),
		done:    make(chan struct{}),
	}
	go func() {
		a.result = Collect(a.records)
		close(a.done)
	}()
	return a
}

// Emit delivers a record to the consumer
func (a *Aggregator) Emit(rec TaskRecord) {
	a.records <- rec
}

// Close signals that no more records will be emitted
func (a *Aggregator) Close() {
	close(a.records)
}

// Wait blocks until the consumer has drained the channel
func (a *Aggregator) Wait() *RunResult {
	<-a.done
	return a.result
}
