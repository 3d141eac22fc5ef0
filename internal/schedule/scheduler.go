package schedule

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseCron parses a 5-field cron expression or a descriptor such as
// "@hourly" or "@every 6h"
func ParseCron(expr string) (cron.Schedule, error) {
	return parser.Parse(expr)
}

// Job is the work performed on each activation
type Job func(ctx context.Context) error

// Scheduler runs a job on a cron schedule. Activations that come due while
// the job is still running are skipped.
type Scheduler struct {
	schedule   cron.Schedule
	job        Job
	runOnStart bool

	mu      sync.RWMutex
	lastRun time.Time
	lastErr error
	runs    int
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithRunOnStart runs the job once immediately before waiting for the
// first activation
func WithRunOnStart(enabled bool) Option {
	return func(s *Scheduler) {
		s.runOnStart = enabled
	}
}

// New creates a scheduler
func New(schedule cron.Schedule, job Job, opts ...Option) *Scheduler {
	s := &Scheduler{schedule: schedule, job: job}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NextRun returns the next activation after now
func (s *Scheduler) NextRun() time.Time {
	return s.schedule.Next(time.Now())
}

// Runs returns how many times the job has run
func (s *Scheduler) Runs() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runs
}

// LastRun returns when the job last finished and the error it returned
func (s *Scheduler) LastRun() (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRun, s.lastErr
}

// Run blocks until ctx is done. Job errors are logged and do not stop the
// loop.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.runOnStart {
		s.execute(ctx)
	}

	for {
		next := s.schedule.Next(time.Now())
		if next.IsZero() {
			log.Printf("[Schedule] No further activations")
			return nil
		}
		log.Printf("[Schedule] Next run at %s", next.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			s.execute(ctx)
		}
	}
}

func (s *Scheduler) execute(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	start := time.Now()
	err := s.job(ctx)
	if err != nil {
		log.Printf("[Schedule] Job failed after %s: %v", time.Since(start).Round(time.Millisecond), err)
	} else {
		log.Printf("[Schedule] Job finished in %s", time.Since(start).Round(time.Millisecond))
	}

	s.mu.Lock()
	s.runs++
	s.lastRun = time.Now()
	s.lastErr = err
	s.mu.Unlock()
}
