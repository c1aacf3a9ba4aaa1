package worker

import (
	"context"

	sc "github.com/gematik/structure-comparer"
)

// ComputeFunc computes the result of one input.
type ComputeFunc[T any] func(ctx context.Context, in T) (*sc.Result, error)

// Job is one computation to be processed by a worker.
type Job[T any] struct {
	// ID is a unique identifier for this job.
	ID string

	// Input is handed to the compute function.
	Input T
}

// JobResult represents the result of a job.
type JobResult struct {
	// ID matches the Job.ID that produced this result.
	ID string

	// Result is nil when Error is set.
	Result *sc.Result

	// Error contains any error that occurred during computation.
	Error error

	// Duration is the time taken (in nanoseconds).
	Duration int64
}

// BatchResult aggregates results from multiple jobs.
type BatchResult struct {
	// Results contains all job results.
	Results []*JobResult

	// TotalJobs is the number of jobs submitted.
	TotalJobs int

	// CompletedJobs is the number of jobs completed (including errors).
	CompletedJobs int

	// FailedJobs is the number of jobs that failed with an error.
	FailedJobs int

	// TotalDuration is the total time for all computations (in nanoseconds).
	TotalDuration int64
}

// HasErrors returns true if any job failed or raised an error issue.
func (br *BatchResult) HasErrors() bool {
	for _, r := range br.Results {
		if r == nil {
			continue
		}
		if r.Error != nil {
			return true
		}
		if r.Result != nil && r.Result.HasErrors() {
			return true
		}
	}
	return false
}

// ErrorCount returns the total number of error issues across all results.
func (br *BatchResult) ErrorCount() int {
	count := 0
	for _, r := range br.Results {
		if r != nil && r.Result != nil {
			count += r.Result.ErrorCount()
		}
	}
	return count
}

// Failed returns the results of jobs that ended with an error.
func (br *BatchResult) Failed() []*JobResult {
	var out []*JobResult
	for _, r := range br.Results {
		if r != nil && r.Error != nil {
			out = append(out, r)
		}
	}
	return out
}
