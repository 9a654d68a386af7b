// Package orchestrator runs one crawl per search query: walk pages, score
// and dedup each slice, and stop once the freshness governor says so.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"jobcrawl-engine/internal/config"
	"jobcrawl-engine/internal/crawl"
	"jobcrawl-engine/internal/dedup"
	"jobcrawl-engine/internal/domain"
	"jobcrawl-engine/internal/events"
	"jobcrawl-engine/internal/freshness"
	"jobcrawl-engine/internal/logging"
	"jobcrawl-engine/internal/rank"
)

// Stop reasons recorded on terminal runs. Failures use the crawl kind
// name instead, e.g. "SessionExpired".
const (
	ReasonFreshness    = "freshness"
	ReasonEndOfResults = "end_of_results"
	ReasonMaxPages     = "max_pages"
	ReasonCancelled    = "cancelled"
	ReasonTimeout      = "timeout"
	ReasonStoreRead    = "StoreReadFailure"
)

// Event types handed to the Publisher.
const (
	EventRunStarted  = events.RunStarted
	EventRunFinished = events.RunFinished
	EventJobSaved    = events.JobSaved
)

type RunStore interface {
	SaveRun(ctx context.Context, run domain.BatchRun) error
}

type Publisher interface {
	Emit(typ string, data any)
}

// Params are the per-trigger knobs.
type Params struct {
	SliceSize       int
	MaxPages        int
	FreshnessThresh float64
	RelevanceThresh float64
	Workers         int
	RunTimeout      time.Duration

	// Categories feed record classification. Empty keeps each record in
	// its query's category.
	Categories []config.Category
}

// DefaultParams are the scheduled-run defaults.
func DefaultParams() Params {
	return Params{SliceSize: 10, MaxPages: 1, FreshnessThresh: 0.8, RelevanceThresh: 0.3, Workers: 2}
}

func (p Params) normalized() Params {
	if p.SliceSize <= 0 {
		p.SliceSize = 10
	}
	if p.MaxPages <= 0 {
		p.MaxPages = 1
	}
	if p.Workers <= 0 {
		p.Workers = 1
	}
	p.FreshnessThresh = min(max(p.FreshnessThresh, 0), 1)
	p.RelevanceThresh = min(max(p.RelevanceThresh, 0), 1)
	return p
}

type Orchestrator struct {
	options
}

// New builds an Orchestrator. A session and a seen index are required.
func New(opts ...Option) (*Orchestrator, error) {
	o := options{
		scorer:       rank.NewFuzzy(),
		clock:        time.Now,
		walker:       crawl.Walker{MaxRetries: 3, Backoff: crawl.DefaultBackoff()},
		window:       1,
		source:       "linkedin",
		writeRetries: 3,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.session == nil {
		return nil, errors.New("orchestrator: session is required")
	}
	if o.index == nil {
		return nil, errors.New("orchestrator: seen index is required")
	}
	if o.log == nil {
		o.log = logging.Nop()
	}
	return &Orchestrator{options: o}, nil
}

// Run crawls one query to a terminal state and returns the final record.
// The record is persisted as Running first and again once terminal; the
// terminal save ignores cancellation of ctx.
func (o *Orchestrator) Run(ctx context.Context, q domain.SearchQuery, p Params) domain.BatchRun {
	p = p.normalized()
	run := domain.BatchRun{
		ID:        uuid.NewString(),
		Source:    o.source,
		Query:     q,
		Status:    domain.RunPending,
		StartedAt: o.clock().UTC(),
	}
	log := o.log.With("run", run.ID, "query", q.Dimension.String())

	run.Status = domain.RunRunning
	o.save(ctx, log, run)
	o.emit(EventRunStarted, run)
	log.Info("[orchestrator] run started", "slice_size", p.SliceSize, "max_pages", p.MaxPages,
		"freshness", p.FreshnessThresh, "relevance", p.RelevanceThresh)

	h, err := o.session.Open(ctx, o.creds)
	if err != nil {
		return o.finish(ctx, log, run, err)
	}
	defer func() {
		if cerr := h.Close(); cerr != nil {
			log.Warn("[orchestrator] closing session", "err", cerr)
		}
	}()

	gov := freshness.New(p.FreshnessThresh, o.window)
	gate := &dedup.Gate{Index: o.index, Retries: o.writeRetries, Backoff: o.walker.Backoff, Log: log}
	w := o.walker
	w.Session, w.SliceSize, w.MaxPages, w.Log = o.session, p.SliceSize, p.MaxPages, log

	stale := false
	st, err := w.Walk(ctx, h, q, func(ctx context.Context, s domain.Slice) (bool, error) {
		recs, malformed := o.buildRecords(s, q, p.Categories)
		run.Counters.Add(domain.Counters{Scraped: len(s.Records), Malformed: malformed})

		out, err := gate.Process(ctx, recs, p.RelevanceThresh)
		run.Counters.Add(domain.Counters{
			Duplicates:      out.Duplicates,
			Stale:           out.Stale(),
			Relevant:        out.Relevant,
			Saved:           out.Saved,
			FailedToPersist: out.FailedToPersist,
		})
		if err != nil {
			return false, err
		}
		for _, j := range out.Written {
			o.emit(EventJobSaved, j)
		}

		d := gov.Observe(out.Processed, out.Stale())
		run.StaleRatio = d.Ratio
		log.Debug("[orchestrator] slice done", "page", s.Page, "slice", s.Index,
			"records", len(s.Records), "stale", out.Stale(), "saved", out.Saved, "ratio", d.Ratio)
		if d.Stop {
			stale = true
		}
		return d.Stop, nil
	})
	run.Pages, run.Slices = st.Pages, st.Slices

	switch {
	case err != nil:
		return o.finish(ctx, log, run, err)
	case stale:
		run.Status, run.Reason = domain.RunStoppedByFreshness, ReasonFreshness
	case st.Ended:
		run.Status, run.Reason = domain.RunCompleted, ReasonEndOfResults
	default:
		run.Status, run.Reason = domain.RunCompleted, ReasonMaxPages
	}
	return o.finish(ctx, log, run, nil)
}

// finish stamps and persists the terminal record. A non-nil err aborts.
func (o *Orchestrator) finish(ctx context.Context, log *logging.Logger, run domain.BatchRun, err error) domain.BatchRun {
	if err != nil {
		run.Status = domain.RunAbortedByFailure
		run.Reason = reasonFor(err)
		run.Error = err.Error()
	}
	done := o.clock().UTC()
	run.FinishedAt = &done

	o.save(context.WithoutCancel(ctx), log, run)
	o.emit(EventRunFinished, run)

	kv := []any{"status", run.Status, "reason", run.Reason, "pages", run.Pages, "slices", run.Slices,
		"scraped", run.Counters.Scraped, "saved", run.Counters.Saved, "stale_ratio", run.StaleRatio}
	if err != nil {
		log.Warn("[orchestrator] run aborted", append(kv, "err", err)...)
	} else {
		log.Info("[orchestrator] run finished", kv...)
	}
	return run
}

func reasonFor(err error) string {
	if errors.Is(err, dedup.ErrStoreRead) {
		return ReasonStoreRead
	}
	if errors.Is(err, context.DeadlineExceeded) && crawl.KindOf(err) == crawl.KindCancelled {
		return ReasonTimeout
	}
	k := crawl.KindOf(err)
	if k == crawl.KindCancelled {
		return ReasonCancelled
	}
	return k.String()
}

func (o *Orchestrator) save(ctx context.Context, log *logging.Logger, run domain.BatchRun) {
	if o.runs == nil {
		return
	}
	if err := o.runs.SaveRun(ctx, run); err != nil {
		log.Error("[orchestrator] saving run", "status", run.Status, "err", fmt.Errorf("save run %s: %w", run.ID, err))
	}
}

func (o *Orchestrator) emit(typ string, data any) {
	if o.pub != nil {
		o.pub.Emit(typ, data)
	}
}
