package orchestrator

import (
	"context"

	"golang.org/x/sync/errgroup"

	"jobcrawl-engine/internal/config"
	"jobcrawl-engine/internal/domain"
	"jobcrawl-engine/internal/matrix"
)

// RunBatch expands m and runs every query, at most p.Workers at a time.
// Runs are independent: one failing never cancels the others. Results
// come back in query order. The only error is an invalid matrix.
func (o *Orchestrator) RunBatch(ctx context.Context, m config.Matrix, p Params) ([]domain.BatchRun, error) {
	queries, err := matrix.Expand(m)
	if err != nil {
		return nil, err
	}
	p = p.normalized()
	if p.Categories == nil {
		p.Categories = m.Categories
	}

	o.log.Info("[orchestrator] batch started", "queries", len(queries), "workers", p.Workers)

	runs := make([]domain.BatchRun, len(queries))
	var g errgroup.Group
	g.SetLimit(p.Workers)
	for i, q := range queries {
		if ctx.Err() != nil {
			// still record the run so every query has a terminal entry
			runs[i] = o.Run(ctx, q, p)
			continue
		}
		g.Go(func() error {
			rctx := ctx
			if p.RunTimeout > 0 {
				var cancel context.CancelFunc
				rctx, cancel = context.WithTimeout(ctx, p.RunTimeout)
				defer cancel()
			}
			runs[i] = o.Run(rctx, q, p)
			return nil
		})
	}
	_ = g.Wait()

	var saved, aborted int
	for _, r := range runs {
		saved += r.Counters.Saved
		if r.Status == domain.RunAbortedByFailure {
			aborted++
		}
	}
	o.log.Info("[orchestrator] batch finished", "queries", len(queries), "saved", saved, "aborted", aborted)
	return runs, nil
}
