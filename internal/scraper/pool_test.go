package scraper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolAcquireUpToCapacity(t *testing.T) {
	p := NewPool(2)
	ctx := context.Background()

	require.NoError(t, p.Acquire(ctx))
	require.NoError(t, p.Acquire(ctx))

	// Third acquire must block until a release.
	blocked, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	err := p.Acquire(blocked)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	p.Release()
	require.NoError(t, p.Acquire(ctx))
}

func TestPoolWakesWaitersInOrder(t *testing.T) {
	p := NewPool(1)
	require.NoError(t, p.Acquire(context.Background()))

	order := make(chan int, 2)
	ready := make(chan struct{}, 2)
	for i := 1; i <= 2; i++ {
		i := i
		go func() {
			ready <- struct{}{}
			if err := p.Acquire(context.Background()); err == nil {
				order <- i
				p.Release()
			}
		}()
		<-ready
		// Give the goroutine time to join the queue so the FIFO order is
		// deterministic.
		time.Sleep(20 * time.Millisecond)
	}

	p.Release()
	assert.Equal(t, 1, <-order)
	assert.Equal(t, 2, <-order)
}

func TestPoolCancelledWaiterLeavesQueue(t *testing.T) {
	p := NewPool(1)
	require.NoError(t, p.Acquire(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- p.Acquire(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)

	// The cancelled waiter must not have consumed the slot.
	p.Release()
	require.NoError(t, p.Acquire(context.Background()))
}

func TestPoolMinimumOneSlot(t *testing.T) {
	p := NewPool(0)
	require.NoError(t, p.Acquire(context.Background()))
}
