package handlers

import (
	"context"
	"sync"
	"time"
)

// Dispatcher runs webhook verifications off the request goroutine: a fixed
// pool of workers drains a buffered queue, so enqueueing never waits.
type Dispatcher struct {
	jobs    chan func(ctx context.Context)
	timeout time.Duration

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func NewDispatcher(workers, queueSize int, timeout time.Duration) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	if timeout <= 0 {
		timeout = time.Minute
	}

	d := &Dispatcher{
		jobs:    make(chan func(ctx context.Context), queueSize),
		timeout: timeout,
	}
	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.worker()
	}
	return d
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for fn := range d.jobs {
		d.Run(fn)
	}
}

// TrySubmit queues fn without blocking. It returns false when the queue is
// full or the dispatcher is shutting down; fn then has not run.
func (d *Dispatcher) TrySubmit(fn func(ctx context.Context)) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}

	select {
	case d.jobs <- fn:
		return true
	default:
		return false
	}
}

// Run executes fn on the caller's goroutine with a context detached from any
// request and bounded by the dispatcher timeout.
func (d *Dispatcher) Run(fn func(ctx context.Context)) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	fn(ctx)
}

// Wait stops accepting work and blocks until the queue is drained or ctx is
// done. Call it only after the HTTP server stopped accepting requests.
func (d *Dispatcher) Wait(ctx context.Context) error {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.jobs)
		d.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
