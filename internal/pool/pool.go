// Package pool provides bounded worker pools for offloading registered tool
// calls. Two kinds exist: an IO pool for blocking IO-bound work and a CPU
// pool for compute-bound work. Pools are owned by the caller: construct them
// before invoking any offloaded tool and shut them down when done.
package pool

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
)

// Kind labels a pool's intended workload.
type Kind string

const (
	KindIO  Kind = "io"
	KindCPU Kind = "cpu"
)

// ErrPoolClosed is returned by Submit after Shutdown. Submitting to a closed
// pool fails fast instead of hanging.
var ErrPoolClosed = errors.New("worker pool is shut down")

type task struct {
	fn   func() (any, error)
	done chan result
}

type result struct {
	value any
	err   error
}

// Pool is a fixed-size worker pool.
type Pool struct {
	kind       Kind
	tasks      chan task
	workers    sync.WaitGroup
	submitters sync.WaitGroup
	mu         sync.Mutex
	closed     bool
	executed   atomic.Uint64
}

// New creates a pool with the given number of workers. workers <= 0 picks a
// default: NumCPU-1 (minimum 1) for CPU pools, 16 for IO pools.
func New(kind Kind, workers int) *Pool {
	if workers <= 0 {
		if kind == KindCPU {
			workers = runtime.NumCPU() - 1
			if workers < 1 {
				workers = 1
			}
		} else {
			workers = 16
		}
	}

	p := &Pool{
		kind:  kind,
		tasks: make(chan task),
	}
	p.workers.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

// Kind reports the pool's workload label.
func (p *Pool) Kind() Kind { return p.kind }

func (p *Pool) worker() {
	defer p.workers.Done()
	for t := range p.tasks {
		v, err := t.fn()
		p.executed.Add(1)
		t.done <- result{value: v, err: err}
	}
}

// Submit runs fn on a pool worker and waits for its result. The caller's
// context is honored while waiting for a free worker and while waiting for
// the result; the task itself is not interrupted once started. Returns
// ErrPoolClosed if the pool has been shut down.
func (p *Pool) Submit(ctx context.Context, fn func() (any, error)) (any, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	// Registering as a submitter while holding the lock guarantees Shutdown
	// cannot close the task channel before this send completes.
	p.submitters.Add(1)
	p.mu.Unlock()

	t := task{fn: fn, done: make(chan result, 1)}
	select {
	case p.tasks <- t:
		p.submitters.Done()
	case <-ctx.Done():
		p.submitters.Done()
		return nil, ctx.Err()
	}

	select {
	case r := <-t.done:
		return r.value, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Shutdown stops intake and waits for in-flight tasks and workers to drain.
// Safe to call more than once.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.submitters.Wait()
	close(p.tasks)
	p.workers.Wait()
}

// Executed reports how many tasks this pool has completed. Useful for
// verifying a call was actually routed through the pool.
func (p *Pool) Executed() uint64 { return p.executed.Load() }
