package scraper

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Job pairs a source adapter with the fetcher that serves it.
type Job struct {
	Adapter Adapter
	Fetcher Fetcher
}

// Outcome is the result of one job in RunAll. Err is set when the run could
// not start or its listing failed; Result is nil in that case.
type Outcome struct {
	Source string
	Result *Result
	Err    error
}

// RunAll runs independent sources concurrently, at most limit at a time
// (limit <= 0 means no bound). Each job gets its own batch and a failing job
// does not stop the others. Outcomes are returned in job order.
func (s *Scraper) RunAll(ctx context.Context, jobs []Job, limit int) []Outcome {
	outcomes := make([]Outcome, len(jobs))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, job := range jobs {
		g.Go(func() error {
			out := Outcome{}
			if job.Adapter != nil {
				out.Source = job.Adapter.Name()
			}
			out.Result, out.Err = s.Run(ctx, job.Adapter, job.Fetcher)
			outcomes[i] = out
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}
