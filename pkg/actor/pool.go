package actor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// Pool is a bounded set of workers shared by all actors of a system for CPU-bound offload.
// Submitting never blocks the caller; at most size tasks run at once.
type Pool struct {
	size   int64
	sem    *semaphore.Weighted
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// mu orders wg.Add in Go before the wg.Wait in Shutdown.
	mu     sync.Mutex
	closed bool
}

// NewPool creates a pool running at most size tasks concurrently.
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		size:   int64(size),
		sem:    semaphore.NewWeighted(int64(size)),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Size is the maximum number of concurrently running tasks.
func (p *Pool) Size() int {
	return int(p.size)
}

// Go schedules task. The task's context is canceled on forced shutdown;
// a task that never got a worker is still invoked with that canceled context.
func (p *Pool) Go(task func(ctx context.Context)) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolShutdown
	}
	p.wg.Add(1)
	p.mu.Unlock()
	go func() {
		defer p.wg.Done()
		if err := p.sem.Acquire(p.ctx, 1); err != nil {
			task(p.ctx)
			return
		}
		defer p.sem.Release(1)
		task(p.ctx)
	}()
	return nil
}

// Shutdown stops accepting tasks and waits up to grace for running ones.
// Past the grace period the pool context is canceled and an error is returned.
func (p *Pool) Shutdown(grace time.Duration) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(finished)
	}()

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-finished:
		p.cancel()
		return nil
	case <-timer.C:
		p.cancel()
		return fmt.Errorf("pool shutdown forced after %s", grace)
	}
}
