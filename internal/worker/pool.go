// Package worker provides a generic bounded worker pool for fan-out/fan-in
// processing. The manifest builder uses it to parallelize per-entry content
// hashing across available CPUs while keeping admission strictly sequential.
package worker

import (
	"context"
	"runtime"
	"sync"
)

// Result pairs a processed value with its original index to preserve ordering.
type Result[T any] struct {
	Index int
	Value T
	Err   error
}

// Pool fans out work items to a fixed number of goroutine workers and
// collects results preserving the original input order.
type Pool[I, O any] struct {
	concurrency int
}

// NewPool creates a worker pool with the given concurrency.
// If concurrency <= 0, defaults to runtime.NumCPU().
func NewPool[I, O any](concurrency int) *Pool[I, O] {
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}
	return &Pool[I, O]{concurrency: concurrency}
}

// Concurrency returns the configured worker count.
func (p *Pool[I, O]) Concurrency() int { return p.concurrency }

// Process distributes items across workers, applies fn to each, and returns
// results in the same order as the input slice. Errors from individual items
// are captured per-result rather than aborting the whole batch.
//
// The feed queue is bounded, so at most concurrency items are in flight with
// a small backlog behind them. When ctx is cancelled, workers stop picking
// up new items and every unprocessed item is marked with ctx.Err().
func (p *Pool[I, O]) Process(ctx context.Context, items []I, fn func(context.Context, I) (O, error)) []Result[O] {
	if len(items) == 0 {
		return nil
	}

	workers := p.concurrency
	if workers > len(items) {
		workers = len(items)
	}

	type job struct {
		index int
		item  I
	}

	jobs := make(chan job, workers)
	results := make([]Result[O], len(items))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if err := ctx.Err(); err != nil {
					results[j.index] = Result[O]{Index: j.index, Err: err}
					continue
				}
				val, err := fn(ctx, j.item)
				results[j.index] = Result[O]{Index: j.index, Value: val, Err: err}
			}
		}()
	}

	for i, item := range items {
		select {
		case jobs <- job{index: i, item: item}:
		case <-ctx.Done():
			results[i] = Result[O]{Index: i, Err: ctx.Err()}
		}
	}
	close(jobs)
	wg.Wait()

	return results
}

// FirstError returns the first non-nil error in results, in input order.
func FirstError[T any](results []Result[T]) error {
	for _, r := range results {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}
