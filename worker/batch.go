package worker

import (
	"context"
	"runtime"
	"sync"
	"time"
)

// Batch computes a fixed set of jobs and returns the results in job order.
type Batch[T any] struct {
	compute ComputeFunc[T]
	workers int
}

// NewBatch creates a new batch runner.
func NewBatch[T any](compute ComputeFunc[T], workers int) *Batch[T] {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Batch[T]{
		compute: compute,
		workers: workers,
	}
}

// Run computes all jobs. Jobs not started before ctx is cancelled have a
// nil entry in Results.
func (b *Batch[T]) Run(ctx context.Context, jobs []Job[T]) *BatchResult {
	if len(jobs) == 0 {
		return &BatchResult{Results: make([]*JobResult, 0)}
	}

	// small batches are not worth the goroutines
	if len(jobs) <= 2 || b.workers == 1 {
		return b.runSequential(ctx, jobs)
	}
	return b.runParallel(ctx, jobs)
}

func (b *Batch[T]) runSequential(ctx context.Context, jobs []Job[T]) *BatchResult {
	br := &BatchResult{
		Results:   make([]*JobResult, len(jobs)),
		TotalJobs: len(jobs),
	}

	for i, job := range jobs {
		if ctx.Err() != nil {
			break
		}
		r := b.run(ctx, job)
		br.record(i, r)
	}
	return br
}

func (b *Batch[T]) runParallel(ctx context.Context, jobs []Job[T]) *BatchResult {
	numWorkers := b.workers
	if numWorkers > len(jobs) {
		numWorkers = len(jobs)
	}

	indices := make(chan int, len(jobs))
	resultsChan := make(chan indexedResult, len(jobs))

	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go func() {
			defer wg.Done()
			for idx := range indices {
				if ctx.Err() != nil {
					return
				}
				resultsChan <- indexedResult{index: idx, result: b.run(ctx, jobs[idx])}
			}
		}()
	}

	for i := range jobs {
		indices <- i
	}
	close(indices)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	br := &BatchResult{
		Results:   make([]*JobResult, len(jobs)),
		TotalJobs: len(jobs),
	}
	for ir := range resultsChan {
		br.record(ir.index, ir.result)
	}
	return br
}

func (b *Batch[T]) run(ctx context.Context, job Job[T]) *JobResult {
	start := time.Now()
	result := &JobResult{ID: job.ID}
	if b.compute == nil {
		result.Error = ErrNoComputeFunc
	} else {
		result.Result, result.Error = b.compute(ctx, job.Input)
	}
	result.Duration = time.Since(start).Nanoseconds()
	return result
}

func (br *BatchResult) record(idx int, r *JobResult) {
	br.Results[idx] = r
	br.CompletedJobs++
	br.TotalDuration += r.Duration
	if r.Error != nil {
		br.FailedJobs++
	}
}

type indexedResult struct {
	index  int
	result *JobResult
}
