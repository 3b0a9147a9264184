// Package workpool provides a bounded pool for running opaque work
// closures.
package workpool

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/semaphore"
)

// ErrClosed is returned by Submit after the pool has been closed.
var ErrClosed = errors.New("workpool: pool is closed")

// Pool runs submitted closures to completion. Implementations make no
// ordering or fairness guarantees; parallelism is bounded but
// unspecified.
type Pool interface {
	Submit(fn func()) error
}

// FixedPool runs each submitted closure on its own goroutine, with at
// most size closures executing at a time. Submit never blocks; excess
// closures wait for a slot on their own goroutine.
type FixedPool struct {
	sem *semaphore.Weighted

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewFixedPool creates a pool executing at most size closures at a
// time. size must be positive.
func NewFixedPool(size int) *FixedPool {
	return &FixedPool{sem: semaphore.NewWeighted(int64(size))}
}

// Submit schedules fn for execution. It fails once the pool has been
// closed.
func (p *FixedPool) Submit(fn func()) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()

		p.sem.Acquire(context.Background(), 1)
		defer p.sem.Release(1)

		fn()
	}()

	return nil
}

// Close rejects further submissions and waits for every submitted
// closure to finish.
func (p *FixedPool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.wg.Wait()
}
