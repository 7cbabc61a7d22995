// Package queue runs detached background work and fans change events out
// through a message broker.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Task is a unit of detached work.
type Task func(ctx context.Context) error

// Runner executes tasks in the background with bounded concurrency. Callers
// never observe task completion; failures are logged.
type Runner struct {
	ctx    context.Context
	cancel context.CancelFunc
	sem    chan struct{}
	wg     sync.WaitGroup
	logger zerolog.Logger
}

// NewRunner creates a Runner executing at most concurrency tasks at once.
func NewRunner(concurrency int, logger zerolog.Logger) *Runner {
	if concurrency <= 0 {
		concurrency = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		ctx:    ctx,
		cancel: cancel,
		sem:    make(chan struct{}, concurrency),
		logger: logger.With().Str("component", "runner").Logger(),
	}
}

// Go schedules task and returns immediately.
func (r *Runner) Go(name string, task Task) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		select {
		case r.sem <- struct{}{}:
		case <-r.ctx.Done():
			r.logger.Warn().Str("task", name).Msg("runner stopped, dropping task")
			return
		}
		defer func() { <-r.sem }()

		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error().Str("task", name).Interface("panic", rec).Msg("task panicked")
			}
		}()

		start := time.Now()
		if err := task(r.ctx); err != nil {
			r.logger.Error().Err(err).Str("task", name).Dur("duration", time.Since(start)).Msg("task failed")
			return
		}
		r.logger.Debug().Str("task", name).Dur("duration", time.Since(start)).Msg("task finished")
	}()
}

// Wait blocks until every scheduled task has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Shutdown waits for running tasks until ctx is done, then cancels them.
func (r *Runner) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.cancel()
		return nil
	case <-ctx.Done():
		r.cancel()
		<-done
		return fmt.Errorf("waiting for background tasks: %w", ctx.Err())
	}
}
