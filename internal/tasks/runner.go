// Package tasks runs post-commit side effects. Work is detached from the
// request lifetime: it gets its own context and is allowed to fail
// independently of the transaction that scheduled it.
package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Runner executes fire-and-forget work on a bounded pool.
type Runner struct {
	sem     chan struct{}
	wg      sync.WaitGroup
	timeout time.Duration
	logger  zerolog.Logger
}

// NewRunner creates a runner allowing maxConcurrent tasks at once. Each
// task gets a fresh context with the given timeout.
func NewRunner(maxConcurrent int, timeout time.Duration, logger zerolog.Logger) *Runner {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Runner{
		sem:     make(chan struct{}, maxConcurrent),
		timeout: timeout,
		logger:  logger.With().Str("component", "tasks").Logger(),
	}
}

// Go schedules fn. It never blocks the caller beyond pool admission and
// never propagates fn's error; failures are logged under the task name.
func (r *Runner) Go(name string, fn func(ctx context.Context) error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.sem <- struct{}{}
		defer func() { <-r.sem }()
		defer func() {
			if p := recover(); p != nil {
				r.logger.Error().Interface("panic", p).Str("task", name).Msg("task panicked")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			r.logger.Error().Err(err).Str("task", name).Msg("task failed")
		}
	}()
}

// Wait blocks until all scheduled tasks finish. Used on shutdown.
func (r *Runner) Wait() {
	r.wg.Wait()
}
