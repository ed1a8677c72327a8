// Package parallel provides the fan-out/fan-in worker pool used by
// aggregation workloads. Column blocks are dispatched to independent workers,
// each operating on its own copy of the frame description, and results are
// merged in input order after a join-all barrier. There is no partial-result
// streaming: if any worker fails, the whole batch fails.
package parallel

import (
	"context"
	"runtime"
	"sync"
)

// WorkerPool manages a pool of goroutines for parallel processing
type WorkerPool struct {
	numWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewWorkerPool creates a new worker pool. A non-positive size auto-detects
// from the CPU count.
func NewWorkerPool(numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		numWorkers: numWorkers,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// indexedItem holds an item with its input position
type indexedItem[T any] struct {
	index int
	value T
}

// indexedResult holds a result with its input position
type indexedResult[R any] struct {
	index  int
	result R
	err    error
}

// ProcessIndexed executes work items in parallel, preserving input order in
// the merged result. On the first worker error the remaining items are
// abandoned, completed results are discarded and the error is returned.
func ProcessIndexed[T, R any](
	wp *WorkerPool,
	items []T,
	worker func(int, T) (R, error),
) ([]R, error) {
	if len(items) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithCancel(wp.ctx)
	defer cancel()

	itemCh := make(chan indexedItem[T], len(items))
	resultCh := make(chan indexedResult[R], len(items))

	var wg sync.WaitGroup
	for i := 0; i < wp.numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range itemCh {
				select {
				case <-ctx.Done():
					return
				default:
					result, err := worker(item.index, item.value)
					resultCh <- indexedResult[R]{index: item.index, result: result, err: err}
					if err != nil {
						cancel()
						return
					}
				}
			}
		}()
	}

	go func() {
		defer close(itemCh)
		for i, item := range items {
			select {
			case <-ctx.Done():
				return
			case itemCh <- indexedItem[T]{index: i, value: item}:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]R, len(items))
	seen := 0
	var firstErr error
	for result := range resultCh {
		if result.err != nil && firstErr == nil {
			firstErr = result.err
		}
		results[result.index] = result.result
		seen++
	}

	if firstErr != nil {
		return nil, firstErr
	}
	if seen != len(items) {
		// Pool context cancelled from outside before all items completed.
		return nil, context.Canceled
	}
	return results, nil
}

// Close shuts down the worker pool
func (wp *WorkerPool) Close() {
	wp.cancel()
}
