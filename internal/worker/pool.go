// Package worker provides the bounded-concurrency plumbing used by batch
// verification.
package worker

import (
	"context"
	"sync"
)

// Pool runs submitted jobs on a fixed number of workers and collects their
// results. Submit all jobs, then call Wait exactly once.
type Pool[R any] struct {
	workers   int
	jobs      chan func(context.Context) R
	results   chan R
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewPool creates a pool with the given worker count and starts its workers
func NewPool[R any](ctx context.Context, workers int) *Pool[R] {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	p := &Pool[R]{
		workers: workers,
		jobs:    make(chan func(context.Context) R, workers*2),
		results: make(chan R, workers*2),
		ctx:     ctx,
		cancel:  cancel,
	}

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *Pool[R]) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			result := job(p.ctx)
			select {
			case p.results <- result:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// Submit queues a job. Submissions after Shutdown are dropped.
func (p *Pool[R]) Submit(job func(context.Context) R) {
	select {
	case <-p.ctx.Done():
	case p.jobs <- job:
	}
}

// Wait closes the queue, waits for the workers to drain it, and returns all
// results. Result order is completion order, not submission order.
func (p *Pool[R]) Wait() []R {
	close(p.jobs)

	go func() {
		p.wg.Wait()
		p.closeOnce.Do(func() { close(p.results) })
	}()

	var results []R
	for r := range p.results {
		results = append(results, r)
	}
	return results
}

// Shutdown cancels in-flight jobs and releases the workers
func (p *Pool[R]) Shutdown() {
	p.cancel()
	p.wg.Wait()
	p.closeOnce.Do(func() { close(p.results) })
}
