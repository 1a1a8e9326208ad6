// Package workpool runs a bounded pool of workers over a slice of items and
// returns results aligned to the input indices.
package workpool

import (
	"context"
	"sync"
)

// Result pairs an output (or per-item error) with its input index.
type Result[Out any] struct {
	Index int
	Value Out
	Err   error
}

// Map applies fn to every item using at most workers goroutines. The returned
// slice has the same length and ordering as items; failures are recorded per
// item rather than aborting the batch. Context cancellation marks all
// not-yet-started items with ctx.Err().
func Map[In, Out any](ctx context.Context, workers int, items []In, fn func(ctx context.Context, item In) (Out, error)) []Result[Out] {
	results := make([]Result[Out], len(items))
	if len(items) == 0 {
		return results
	}
	if workers < 1 {
		workers = 1
	}
	if workers > len(items) {
		workers = len(items)
	}

	indices := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for idx := range indices {
				if err := ctx.Err(); err != nil {
					results[idx] = Result[Out]{Index: idx, Err: err}
					continue
				}
				value, err := fn(ctx, items[idx])
				results[idx] = Result[Out]{Index: idx, Value: value, Err: err}
			}
		}()
	}

	for i := range items {
		indices <- i
	}
	close(indices)
	wg.Wait()

	return results
}
