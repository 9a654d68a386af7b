package crawl

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"jobcrawl-engine/internal/domain"
	"jobcrawl-engine/internal/logging"
)

// VisitFunc is called once per slice, in order. Returning stop ends the
// walk without requesting another page.
type VisitFunc func(ctx context.Context, s domain.Slice) (stop bool, err error)

type WalkStats struct {
	Pages   int  // pages successfully fetched
	Slices  int  // slices handed to visit
	Retries int  // transient retries across all pages
	Stopped bool // visit asked to stop
	Ended   bool // the session reported end of results
}

// Walker drives one Session for one query.
type Walker struct {
	Session    Session
	SliceSize  int
	MaxPages   int
	MaxRetries int
	Backoff    Backoff
	PageDelay  time.Duration
	Log        *logging.Logger

	// sleep is swapped in tests to avoid real backoff waits.
	sleep func(ctx context.Context, d time.Duration) error
}

func (w *Walker) logger() *logging.Logger {
	if w.Log == nil {
		return logging.Nop()
	}
	return w.Log
}

// Walk fetches pages 0..MaxPages-1 and hands each page's records to visit
// in slices of at most SliceSize. A slice never mixes records of two
// pages, and an empty page still yields one empty slice.
//
// The returned error is the context error on cancellation, or the last
// session error once retries are exhausted or the failure is not
// retryable. Use KindOf to classify it.
func (w *Walker) Walk(ctx context.Context, h Handle, q domain.SearchQuery, visit VisitFunc) (WalkStats, error) {
	var st WalkStats

	size := w.SliceSize
	if size <= 0 {
		size = 1
	}
	maxPages := w.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}

	pace := rate.NewLimiter(rate.Inf, 1)
	if w.PageDelay > 0 {
		pace = rate.NewLimiter(rate.Every(w.PageDelay), 1)
	}

	log := w.logger().With("query", q.Dimension.String())

	for page := 0; page < maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		if err := pace.Wait(ctx); err != nil {
			return st, err
		}

		p, retries, err := w.fetch(ctx, h, q, page)
		st.Retries += retries
		if err != nil {
			return st, err
		}
		st.Pages++
		log.Debug("[walker] page fetched", "page", page, "records", len(p.Records), "last", p.Last)

		if p.Last && len(p.Records) == 0 {
			st.Ended = true
			return st, nil
		}

		slices := chunk(p.Records, size)
		for i, recs := range slices {
			if err := ctx.Err(); err != nil {
				return st, err
			}
			st.Slices++
			stop, err := visit(ctx, domain.Slice{Page: page, Index: st.Slices - 1, Records: recs})
			if err != nil {
				return st, err
			}
			if stop {
				st.Stopped = true
				log.Debug("[walker] stop requested", "page", page, "slice", i)
				return st, nil
			}
		}

		if p.Last {
			st.Ended = true
			return st, nil
		}
	}
	return st, nil
}

func (w *Walker) fetch(ctx context.Context, h Handle, q domain.SearchQuery, page int) (Page, int, error) {
	sleep := w.sleep
	if sleep == nil {
		sleep = Sleep
	}

	retries := 0
	for attempt := 0; ; attempt++ {
		p, err := w.Session.FetchPage(ctx, h, q, page)
		if err == nil {
			return p, retries, nil
		}
		if ctx.Err() != nil {
			return Page{}, retries, ctx.Err()
		}

		kind := KindOf(err)
		if !kind.Retryable() || attempt >= w.MaxRetries {
			return Page{}, retries, fmt.Errorf("page %d: %w", page, err)
		}

		d := w.Backoff.Delay(attempt)
		w.logger().Warn("[walker] transient failure, retrying",
			"page", page, "attempt", attempt+1, "delay", d.String(), "err", err)
		if err := sleep(ctx, d); err != nil {
			return Page{}, retries, err
		}
		retries++
	}
}

// chunk splits recs into runs of at most size. An empty page becomes a
// single empty slice so the governor still observes it.
func chunk(recs []domain.RawRecord, size int) [][]domain.RawRecord {
	if len(recs) == 0 {
		return [][]domain.RawRecord{nil}
	}
	out := make([][]domain.RawRecord, 0, (len(recs)+size-1)/size)
	for start := 0; start < len(recs); start += size {
		end := min(start+size, len(recs))
		out = append(out, recs[start:end])
	}
	return out
}
