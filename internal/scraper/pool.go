package scraper

import (
	"context"
	"sync"
)

// Pool is a fixed-size slot pool with a FIFO waiter queue. Acquire
// blocks until a slot frees or the context ends; Release hands the slot
// to the oldest waiter, if any.
type Pool struct {
	mu      sync.Mutex
	free    int
	waiters []chan struct{}
}

func NewPool(slots int) *Pool {
	if slots < 1 {
		slots = 1
	}
	return &Pool{free: slots}
}

func (p *Pool) Acquire(ctx context.Context) error {
	p.mu.Lock()
	if p.free > 0 {
		p.free--
		p.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	p.waiters = append(p.waiters, ch)
	p.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		p.mu.Lock()
		for i, w := range p.waiters {
			if w == ch {
				p.waiters = append(p.waiters[:i], p.waiters[i+1:]...)
				p.mu.Unlock()
				return ctx.Err()
			}
		}
		p.mu.Unlock()
		// The slot was granted while we were cancelling; hand it back.
		p.Release()
		return ctx.Err()
	}
}

func (p *Pool) Release() {
	p.mu.Lock()
	if len(p.waiters) > 0 {
		ch := p.waiters[0]
		p.waiters = p.waiters[1:]
		p.mu.Unlock()
		close(ch)
		return
	}
	p.free++
	p.mu.Unlock()
}
