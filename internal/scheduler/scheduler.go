// Package scheduler runs the periodic fetch and reconcile jobs.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is a named unit of periodic work.
type Job struct {
	Name string
	// Schedule is a standard five field cron expression or a descriptor
	// such as "@hourly".
	Schedule string
	Run      func(ctx context.Context) error
}

// JobStatus is the state of a registered job.
type JobStatus struct {
	Name      string     `json:"name"`
	Schedule  string     `json:"schedule"`
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
	NextRunAt *time.Time `json:"next_run_at,omitempty"`
	LastError *string    `json:"last_error,omitempty"`
}

type jobState struct {
	job       Job
	entryID   cron.EntryID
	lastRunAt *time.Time
	lastError *string
}

// Scheduler manages cron jobs. A job still running when its next tick
// arrives is skipped.
type Scheduler struct {
	cron   *cron.Cron
	logger zerolog.Logger

	mu      sync.RWMutex
	ctx     context.Context
	jobs    []*jobState
	running bool
}

// New creates a new Scheduler.
func New(logger zerolog.Logger) *Scheduler {
	logger = logger.With().Str("component", "scheduler").Logger()
	cronLogger := cronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		logger: logger,
		ctx:    context.Background(),
	}
}

// AddJob registers job.
func (s *Scheduler) AddJob(job Job) error {
	state := &jobState{job: job}
	id, err := s.cron.AddFunc(job.Schedule, func() {
		s.mu.RLock()
		ctx := s.ctx
		s.mu.RUnlock()
		s.run(ctx, state)
	})
	if err != nil {
		return fmt.Errorf("registering job %s with schedule %q: %w", job.Name, job.Schedule, err)
	}
	state.entryID = id

	s.mu.Lock()
	s.jobs = append(s.jobs, state)
	s.mu.Unlock()

	s.logger.Info().
		Str("schedule", job.Schedule).
		Str("job", job.Name).
		Msg("job registered")
	return nil
}

// Start runs the scheduler and blocks until ctx is cancelled. Running jobs
// are awaited before it returns.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.cron.Start()
	s.logger.Info().Int("jobs", len(s.Jobs())).Msg("starting scheduler")
	if next := s.NextRunAt(); !next.IsZero() {
		s.logger.Info().
			Time("next_run", next).
			Dur("duration", time.Until(next)).
			Msg("next job scheduled")
	}

	<-ctx.Done()
	stopped := s.cron.Stop()
	<-stopped.Done()
	s.logger.Info().Msg("scheduler stopped")
	return ctx.Err()
}

// RunNow executes the named job immediately, outside its schedule.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.RLock()
	var state *jobState
	for _, js := range s.jobs {
		if js.job.Name == name {
			state = js
			break
		}
	}
	s.mu.RUnlock()

	if state == nil {
		return fmt.Errorf("unknown job %q", name)
	}
	s.logger.Info().Str("job", name).Msg("running job immediately")
	return s.run(ctx, state)
}

func (s *Scheduler) run(ctx context.Context, state *jobState) error {
	start := time.Now()
	s.logger.Debug().Str("job", state.job.Name).Msg("running job")

	err := state.job.Run(ctx)

	s.mu.Lock()
	state.lastRunAt = &start
	if err != nil {
		msg := err.Error()
		state.lastError = &msg
	} else {
		state.lastError = nil
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error().
			Err(err).
			Str("job", state.job.Name).
			Dur("duration", time.Since(start)).
			Msg("job failed")
		return err
	}
	s.logger.Info().
		Str("job", state.job.Name).
		Dur("duration", time.Since(start)).
		Msg("job completed")
	return nil
}

// Jobs returns the state of every registered job.
func (s *Scheduler) Jobs() []JobStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]JobStatus, 0, len(s.jobs))
	for _, js := range s.jobs {
		status := JobStatus{
			Name:      js.job.Name,
			Schedule:  js.job.Schedule,
			LastRunAt: js.lastRunAt,
			LastError: js.lastError,
		}
		if next := s.cron.Entry(js.entryID).Next; !next.IsZero() {
			status.NextRunAt = &next
		}
		out = append(out, status)
	}
	return out
}

// NextRunAt returns the earliest upcoming run of any job, or the zero time
// when the scheduler is not started.
func (s *Scheduler) NextRunAt() time.Time {
	var next time.Time
	for _, entry := range s.cron.Entries() {
		if entry.Next.IsZero() {
			continue
		}
		if next.IsZero() || entry.Next.Before(next) {
			next = entry.Next
		}
	}
	return next
}

// LastRunAt returns the start of the most recent job run.
func (s *Scheduler) LastRunAt() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var last *time.Time
	for _, js := range s.jobs {
		if js.lastRunAt != nil && (last == nil || js.lastRunAt.After(*last)) {
			last = js.lastRunAt
		}
	}
	return last
}

// IsRunning returns whether the scheduler is currently running.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
