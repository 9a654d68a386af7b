package dedup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"jobcrawl-engine/internal/crawl"
	"jobcrawl-engine/internal/domain"
	"jobcrawl-engine/internal/logging"
)

// ErrStoreRead means the seen-index could not be queried even after
// retries. The run cannot tell new from seen and must stop.
var ErrStoreRead = errors.New("seen index read failed")

// SeenIndex is the store-side set of canonical IDs. Both calls are bulk:
// one round trip per slice.
type SeenIndex interface {
	// BulkExists returns the subset of ids already stored.
	BulkExists(ctx context.Context, ids []string) (map[string]struct{}, error)
	// WriteNew stores records whose ID is absent and returns the IDs it
	// actually inserted. Re-writing an existing ID is a no-op.
	WriteNew(ctx context.Context, recs []domain.JobRecord) (inserted []string, err error)
}

// Outcome is the verdict tally for one slice.
type Outcome struct {
	Processed       int
	Duplicates      int
	Irrelevant      int
	Relevant        int
	Saved           int
	FailedToPersist int
	Written         []domain.JobRecord // records this call inserted
}

// Stale is what the freshness governor counts against the slice.
func (o Outcome) Stale() int { return o.Duplicates + o.Irrelevant }

type Gate struct {
	Index   SeenIndex
	Retries int
	Backoff crawl.Backoff
	Log     *logging.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// Process sets each record's Verdict and persists the new, relevant
// ones. recs is modified in place.
func (g *Gate) Process(ctx context.Context, recs []domain.JobRecord, relevanceThresh float64) (Outcome, error) {
	var out Outcome
	if len(recs) == 0 {
		return out, nil
	}
	out.Processed = len(recs)

	ids := make([]string, 0, len(recs))
	seen := make(map[string]bool, len(recs))
	for _, r := range recs {
		if !seen[r.ID] {
			seen[r.ID] = true
			ids = append(ids, r.ID)
		}
	}

	var existing map[string]struct{}
	err := g.retry(ctx, "bulk exists", func() error {
		var err error
		existing, err = g.Index.BulkExists(ctx, ids)
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		return out, fmt.Errorf("%w: %v", ErrStoreRead, err)
	}

	inSlice := make(map[string]bool, len(recs))
	var fresh []domain.JobRecord
	for i := range recs {
		r := &recs[i]
		_, stored := existing[r.ID]
		switch {
		case stored || inSlice[r.ID]:
			r.Verdict = domain.VerdictDuplicate
			out.Duplicates++
		case r.Relevance < relevanceThresh:
			r.Verdict = domain.VerdictIrrelevant
			out.Irrelevant++
		default:
			r.Verdict = domain.VerdictNew
			out.Relevant++
			fresh = append(fresh, *r)
		}
		inSlice[r.ID] = true
	}

	if len(fresh) == 0 {
		return out, nil
	}

	var inserted []string
	err = g.retry(ctx, "write new", func() error {
		var err error
		inserted, err = g.Index.WriteNew(ctx, fresh)
		return err
	})
	switch {
	case err != nil && ctx.Err() != nil:
		out.FailedToPersist = len(fresh)
		return out, ctx.Err()
	case err != nil:
		g.logger().Error("[dedup] giving up on slice write", "records", len(fresh), "err", err)
		out.FailedToPersist = len(fresh)
	default:
		ours := make(map[string]bool, len(inserted))
		for _, id := range inserted {
			ours[id] = true
		}
		out.Saved = len(ours)
		for _, r := range fresh {
			if ours[r.ID] {
				out.Written = append(out.Written, r)
			}
		}
		// a sibling run stored the rest between our check and write
		if lost := len(fresh) - out.Saved; lost > 0 {
			out.Duplicates += lost
			out.Relevant -= lost
			for i := range recs {
				if recs[i].Verdict == domain.VerdictNew && !ours[recs[i].ID] {
					recs[i].Verdict = domain.VerdictDuplicate
				}
			}
		}
	}
	return out, nil
}

func (g *Gate) retry(ctx context.Context, op string, fn func() error) error {
	sleep := g.sleep
	if sleep == nil {
		sleep = crawl.Sleep
	}
	var err error
	for attempt := 0; ; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if ctx.Err() != nil || attempt >= g.Retries {
			return err
		}
		d := g.Backoff.Delay(attempt)
		g.logger().Warn("[dedup] store call failed, retrying", "op", op, "attempt", attempt+1, "delay", d.String(), "err", err)
		if serr := sleep(ctx, d); serr != nil {
			return err
		}
	}
}

func (g *Gate) logger() *logging.Logger {
	if g.Log == nil {
		return logging.Nop()
	}
	return g.Log
}
