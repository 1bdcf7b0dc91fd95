// Package worker runs many analyses concurrently. Every job shares one
// dispatch gate, so model calls stay serialized while file loading, prompt
// assembly and rendering overlap.
package worker

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Job represents a unit of work to be executed
type Job interface {
	Execute(ctx context.Context) Result
}

// Result represents the result of a job execution
type Result interface {
	GetError() error
}

// skippedResult stands in for a job that never started
type skippedResult struct {
	err error
}

func (r skippedResult) GetError() error { return r.err }

// Pool bounds how many jobs execute at once
type Pool struct {
	workers int
}

// NewPool creates a new worker pool with the specified number of workers
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{workers: workers}
}

// Run executes jobs and returns their results in job order. Jobs not yet
// started when ctx ends are reported with ctx's error.
func (p *Pool) Run(ctx context.Context, jobs []Job) []Result {
	results := make([]Result, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i, job := range jobs {
		if gctx.Err() != nil {
			results[i] = skippedResult{err: gctx.Err()}
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = skippedResult{err: err}
				return nil
			}
			results[i] = job.Execute(gctx)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Failed counts results carrying an error
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if r.GetError() != nil {
			n++
		}
	}
	return n
}
