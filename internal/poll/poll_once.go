package poll

import (
	"context"
	"fmt"

	"jobcrawl-engine/internal/config"
	"jobcrawl-engine/internal/crawl"
	"jobcrawl-engine/internal/dedup"
	"jobcrawl-engine/internal/domain"
	"jobcrawl-engine/internal/events"
	"jobcrawl-engine/internal/logging"
	"jobcrawl-engine/internal/orchestrator"
	"jobcrawl-engine/internal/store"
)

// Reporter receives the runs of every finished batch.
type Reporter interface {
	ReportBatch(ctx context.Context, runs []domain.BatchRun) error
}

type Deps struct {
	Index   dedup.SeenIndex
	Runs    orchestrator.RunStore
	Control *store.Control // optional
	Hub     *events.Hub    // optional
	Notify  Reporter       // optional
	Log     *logging.Logger

	// Session overrides BuildSession.
	Session func(cfg config.Config, log *logging.Logger) (crawl.Session, crawl.Credentials, error)
}

type Result struct {
	Runs    []domain.BatchRun `json:"runs"`
	Saved   int               `json:"saved"`
	Aborted int               `json:"aborted"`
	Skipped bool              `json:"skipped"` // service paused
}

// ParamsFrom maps the crawl section onto run parameters.
func ParamsFrom(cfg config.Config) orchestrator.Params {
	return orchestrator.Params{
		SliceSize:       cfg.Crawl.SliceSize,
		MaxPages:        cfg.Crawl.MaxPages,
		FreshnessThresh: cfg.Crawl.FreshnessThresh,
		RelevanceThresh: cfg.Crawl.RelevanceThresh,
		Workers:         cfg.Crawl.Workers,
		RunTimeout:      cfg.RunTimeout(),
		Categories:      cfg.Matrix.Categories,
	}
}

// PollOnce runs one batch over the whole matrix. The error is only for
// setup problems; individual run failures are in Result.Runs.
func PollOnce(ctx context.Context, d Deps, cfg config.Config) (Result, error) {
	log := d.Log
	if log == nil {
		log = logging.Nop()
	}
	name := cfg.Crawl.Source

	if d.Control != nil {
		state, err := d.Control.ServiceState(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("read service state: %w", err)
		}
		if state == store.ServicePaused {
			log.Info("[poll] service paused, skipping batch")
			_ = d.Control.Mark(ctx, name, store.ScraperPaused, "")
			return Result{Skipped: true}, nil
		}
	}

	res, err := pollOnce(ctx, d, cfg, log)
	if d.Control != nil {
		mctx := context.WithoutCancel(ctx)
		_ = d.Control.AddScraped(mctx, name, res.Saved)
		switch {
		case err != nil:
			_ = d.Control.Mark(mctx, name, store.ScraperError, err.Error())
		case res.Aborted > 0 && res.Aborted == len(res.Runs):
			_ = d.Control.Mark(mctx, name, store.ScraperError, "all runs aborted: "+res.Runs[0].Reason)
		default:
			_ = d.Control.Mark(mctx, name, store.ScraperIdle, "")
		}
	}
	return res, err
}

func pollOnce(ctx context.Context, d Deps, cfg config.Config, log *logging.Logger) (Result, error) {
	if d.Control != nil {
		_ = d.Control.Mark(ctx, cfg.Crawl.Source, store.ScraperRunning, "")
	}

	build := d.Session
	if build == nil {
		build = BuildSession
	}
	sess, creds, err := build(cfg, log)
	if err != nil {
		return Result{}, fmt.Errorf("build %s session: %w", cfg.Crawl.Source, err)
	}

	opts := []orchestrator.Option{
		orchestrator.WithSession(sess),
		orchestrator.WithSeenIndex(d.Index),
		orchestrator.WithCredentials(creds),
		orchestrator.WithWalker(walkerFor(cfg)),
		orchestrator.WithWindow(cfg.Crawl.FreshnessWindow),
		orchestrator.WithSource(cfg.Crawl.Source),
		orchestrator.WithWriteRetries(cfg.Store.WriteRetries),
		orchestrator.WithLogger(log),
	}
	if d.Runs != nil {
		opts = append(opts, orchestrator.WithRunStore(d.Runs))
	}
	if d.Hub != nil {
		opts = append(opts, orchestrator.WithPublisher(d.Hub))
	}
	orch, err := orchestrator.New(opts...)
	if err != nil {
		return Result{}, err
	}

	runs, err := orch.RunBatch(ctx, cfg.Matrix, ParamsFrom(cfg))
	if err != nil {
		return Result{}, err
	}

	res := Result{Runs: runs}
	for _, r := range runs {
		res.Saved += r.Counters.Saved
		if r.Status == domain.RunAbortedByFailure {
			res.Aborted++
		}
	}
	log.Info("[poll] batch done", "runs", len(runs), "saved", res.Saved, "aborted", res.Aborted)

	if d.Notify != nil {
		if err := d.Notify.ReportBatch(context.WithoutCancel(ctx), runs); err != nil {
			log.Warn("[poll] report failed", "err", err)
		}
	}
	return res, nil
}
