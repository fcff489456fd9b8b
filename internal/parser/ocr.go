package parser

import (
	"context"
	"time"
)

// Source tags which extraction path produced an OcrResult.
type Source string

const (
	SourcePrimary   Source = "primary"
	SourceSecondary Source = "secondary"
)

// Strategy is one independent OCR extraction path. Implementations apply
// their own per-attempt timeout and retry policy and route every external
// call through the shared worker pool.
type Strategy interface {
	Source() Source
	Extract(ctx context.Context, ps *PageSet) (string, error)
}

// OcrResult carries one strategy's output or its failure cause. Two exist
// per run, produced independently; neither ever observes the other.
type OcrResult struct {
	Source Source
	Text   string
	Err    error
}

func (r OcrResult) OK() bool { return r.Err == nil }

// callWithRetry runs one external call through the pool with a per-attempt
// timeout, retrying transient failures up to retries more times with
// doubling backoff. Cancellation of the parent context aborts immediately,
// including mid-backoff.
func callWithRetry(ctx context.Context, pool *WorkerPool, timeout time.Duration, retries int, transient func(error) bool, call func(context.Context) error) error {
	backoff := time.Second
	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		err := pool.Do(ctx, func(ctx context.Context) error {
			attemptCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return call(attemptCtx)
		})
		if err == nil {
			return nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !transient(err) || attempt == retries {
			return lastErr
		}
		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}
