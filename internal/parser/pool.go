package parser

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// WorkerPool bounds the number of in-flight external service calls across
// all requests. Admission here is the only synchronization point shared
// between pipeline runs; a burst of slow upstream calls queues on the pool
// instead of starving request handling.
type WorkerPool struct {
	sem *semaphore.Weighted
}

func NewWorkerPool(size int) *WorkerPool {
	if size <= 0 {
		size = 8
	}
	return &WorkerPool{sem: semaphore.NewWeighted(int64(size))}
}

// Do runs fn once a slot is free and releases the slot when fn returns.
// Cancellation while waiting returns the context error without running fn.
func (p *WorkerPool) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)
	return fn(ctx)
}
