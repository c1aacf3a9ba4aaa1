// Package worker runs independent computations in parallel.
//
// Computations share no state, so a batch of mappings can be spread over
// a fixed number of goroutines.
//
// Example usage:
//
//	// Create a worker pool with 4 workers
//	pool := worker.NewPool(comparer.Compute, 4)
//
//	// Submit jobs
//	for _, in := range inputs {
//	    pool.Submit(worker.Job[*engine.Input]{ID: in.ID, Input: in})
//	}
//
//	// Close and collect results
//	batch := pool.CloseAndWait()
//	for _, r := range batch.Results {
//	    if r.Error != nil {
//	        // Handle error
//	    }
//	    // Process r.Result
//	}
package worker
