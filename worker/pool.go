package worker

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Pool manages a pool of worker goroutines.
type Pool[T any] struct {
	workers    int
	jobsChan   chan Job[T]
	resultChan chan *JobResult
	compute    ComputeFunc[T]
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	closed     atomic.Bool

	// Metrics
	jobsSubmitted atomic.Uint64
	jobsCompleted atomic.Uint64
	jobsFailed    atomic.Uint64
	totalDuration atomic.Uint64
}

// NewPool creates a new worker pool with the specified number of workers.
// If workers <= 0, it defaults to runtime.NumCPU().
func NewPool[T any](compute ComputeFunc[T], workers int) *Pool[T] {
	return NewPoolContext(context.Background(), compute, workers)
}

// NewPoolContext creates a pool whose jobs run under parent. Cancelling
// parent stops the workers like Close does.
func NewPoolContext[T any](parent context.Context, compute ComputeFunc[T], workers int) *Pool[T] {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	ctx, cancel := context.WithCancel(parent)

	p := &Pool[T]{
		workers:    workers,
		jobsChan:   make(chan Job[T], workers*2),
		resultChan: make(chan *JobResult, workers*2),
		compute:    compute,
		ctx:        ctx,
		cancel:     cancel,
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}

	return p
}

// Submit submits a job to the pool for processing.
// This method blocks if the job queue is full.
func (p *Pool[T]) Submit(job Job[T]) bool {
	if p.closed.Load() {
		return false
	}

	select {
	case <-p.ctx.Done():
		return false
	case p.jobsChan <- job:
		p.jobsSubmitted.Add(1)
		return true
	}
}

// SubmitAsync submits a job without blocking.
// Returns false if the job queue is full or the pool is closed.
func (p *Pool[T]) SubmitAsync(job Job[T]) bool {
	if p.closed.Load() {
		return false
	}

	select {
	case <-p.ctx.Done():
		return false
	case p.jobsChan <- job:
		p.jobsSubmitted.Add(1)
		return true
	default:
		return false
	}
}

// Results returns the channel for receiving job results.
func (p *Pool[T]) Results() <-chan *JobResult {
	return p.resultChan
}

// Close stops accepting jobs, cancels pending work and waits for all
// workers to finish. Undelivered results are discarded.
func (p *Pool[T]) Close() {
	if p.closed.Swap(true) {
		return
	}

	p.cancel()
	close(p.jobsChan)

	done := make(chan struct{})
	go func() {
		for range p.resultChan {
		}
		close(done)
	}()

	p.wg.Wait()
	close(p.resultChan)
	<-done
}

// Finish stops accepting jobs and returns at once. The queued jobs are
// still computed and Results is closed after the last one was delivered,
// so the caller must keep reading Results until it is closed.
func (p *Pool[T]) Finish() {
	if p.closed.Swap(true) {
		return
	}

	close(p.jobsChan)

	go func() {
		p.wg.Wait()
		close(p.resultChan)
		p.cancel()
	}()
}

// CloseAndWait stops accepting jobs, lets the workers finish the queued
// ones and returns all results.
func (p *Pool[T]) CloseAndWait() *BatchResult {
	if p.closed.Swap(true) {
		return &BatchResult{}
	}

	close(p.jobsChan)

	go func() {
		p.wg.Wait()
		close(p.resultChan)
	}()

	results := make([]*JobResult, 0, p.jobsSubmitted.Load())
	for result := range p.resultChan {
		results = append(results, result)
	}
	p.cancel()

	return &BatchResult{
		Results:       results,
		TotalJobs:     int(p.jobsSubmitted.Load()),
		CompletedJobs: int(p.jobsCompleted.Load()),
		FailedJobs:    int(p.jobsFailed.Load()),
		TotalDuration: int64(p.totalDuration.Load()),
	}
}

// Stats returns current pool statistics.
func (p *Pool[T]) Stats() PoolStats {
	return PoolStats{
		Workers:       p.workers,
		JobsSubmitted: p.jobsSubmitted.Load(),
		JobsCompleted: p.jobsCompleted.Load(),
		JobsFailed:    p.jobsFailed.Load(),
		AvgDuration:   p.averageDuration(),
	}
}

// PoolStats contains pool statistics.
type PoolStats struct {
	Workers       int
	JobsSubmitted uint64
	JobsCompleted uint64
	JobsFailed    uint64
	AvgDuration   time.Duration
}

func (p *Pool[T]) worker() {
	defer p.wg.Done()

	for job := range p.jobsChan {
		select {
		case <-p.ctx.Done():
			return
		default:
		}

		result := p.processJob(job)
		p.jobsCompleted.Add(1)
		if result.Error != nil {
			p.jobsFailed.Add(1)
		}
		p.totalDuration.Add(uint64(result.Duration))

		select {
		case <-p.ctx.Done():
			return
		case p.resultChan <- result:
		}
	}
}

func (p *Pool[T]) processJob(job Job[T]) *JobResult {
	start := time.Now()
	result := &JobResult{ID: job.ID}

	if p.compute == nil {
		result.Error = ErrNoComputeFunc
	} else {
		result.Result, result.Error = p.compute(p.ctx, job.Input)
	}

	result.Duration = time.Since(start).Nanoseconds()
	return result
}

func (p *Pool[T]) averageDuration() time.Duration {
	completed := p.jobsCompleted.Load()
	if completed == 0 {
		return 0
	}
	return time.Duration(p.totalDuration.Load() / completed)
}

// ErrNoComputeFunc is returned when the pool has no compute function.
var ErrNoComputeFunc = poolError("no compute function configured")

type poolError string

func (e poolError) Error() string {
	return string(e)
}
