package tasks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestRunnerRunsTasks(t *testing.T) {
	r := NewRunner(2, time.Second, zerolog.Nop())
	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		r.Go("test.count", func(context.Context) error {
			ran.Add(1)
			return nil
		})
	}
	r.Wait()
	assert.Equal(t, int32(5), ran.Load())
}

func TestRunnerSurvivesPanicsAndErrors(t *testing.T) {
	r := NewRunner(1, time.Second, zerolog.Nop())
	var after atomic.Bool

	r.Go("test.panic", func(context.Context) error { panic("boom") })
	r.Go("test.error", func(context.Context) error { return errors.New("nope") })
	r.Go("test.after", func(context.Context) error {
		after.Store(true)
		return nil
	})
	r.Wait()
	assert.True(t, after.Load(), "a panicking task must not take down the pool")
}

func TestRunnerTaskContextHasDeadline(t *testing.T) {
	r := NewRunner(1, 50*time.Millisecond, zerolog.Nop())
	var hadDeadline atomic.Bool
	r.Go("test.deadline", func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		hadDeadline.Store(ok)
		return nil
	})
	r.Wait()
	assert.True(t, hadDeadline.Load())
}

func TestRunnerBoundsConcurrency(t *testing.T) {
	r := NewRunner(2, time.Second, zerolog.Nop())
	var inFlight, peak atomic.Int32
	for i := 0; i < 8; i++ {
		r.Go("test.bound", func(context.Context) error {
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			inFlight.Add(-1)
			return nil
		})
	}
	r.Wait()
	assert.LessOrEqual(t, peak.Load(), int32(2))
}
