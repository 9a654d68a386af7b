package poll

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"jobcrawl-engine/internal/config"
	"jobcrawl-engine/internal/events"
	"jobcrawl-engine/internal/logging"
	"jobcrawl-engine/internal/scheduler"
)

var ErrBusy = errors.New("a batch is already running")

// Status is the last-known state of the poller, served over HTTP.
type Status struct {
	LastRunAt string `json:"last_run_at"`
	LastOkAt  string `json:"last_ok_at"`
	LastError string `json:"last_error"`
	LastAdded int    `json:"last_added"`
	Running   bool   `json:"running"`
}

// Runner serialises batches from the schedule and from manual triggers.
type Runner struct {
	deps   Deps
	cfgVal *atomic.Value // config.Config

	busy   chan struct{} // one slot, held while a batch runs
	status atomic.Value  // Status
}

func NewRunner(d Deps, cfgVal *atomic.Value) *Runner {
	r := &Runner{deps: d, cfgVal: cfgVal, busy: make(chan struct{}, 1)}
	r.status.Store(Status{})
	return r
}

func (r *Runner) Status() Status { return r.status.Load().(Status) }

// RunOnce runs one batch with the current config, or returns ErrBusy.
func (r *Runner) RunOnce(ctx context.Context) (Result, error) {
	select {
	case r.busy <- struct{}{}:
	default:
		return Result{}, ErrBusy
	}
	defer func() { <-r.busy }()

	cfg := r.cfgVal.Load().(config.Config)

	st := r.Status()
	st.Running = true
	st.LastRunAt = time.Now().Format(time.RFC3339)
	r.status.Store(st)
	if r.deps.Hub != nil {
		r.deps.Hub.Emit(events.BatchStarted, map[string]any{"source": cfg.Crawl.Source})
	}

	res, err := PollOnce(ctx, r.deps, cfg)

	st = r.Status()
	st.Running = false
	st.LastAdded = res.Saved
	if err != nil {
		st.LastError = err.Error()
	} else {
		st.LastError = ""
		st.LastOkAt = time.Now().Format(time.RFC3339)
	}
	r.status.Store(st)
	if r.deps.Hub != nil {
		r.deps.Hub.Emit(events.BatchFinished, res)
	}
	return res, err
}

// Start runs batches on the configured interval until ctx is done. It
// returns at once when the schedule is disabled.
func (r *Runner) Start(ctx context.Context) {
	cfg := r.cfgVal.Load().(config.Config)
	if !cfg.Schedule.Enabled {
		r.log().Info("[poll] schedule disabled")
		return
	}
	every := cfg.ScheduleInterval()
	r.log().Info("[poll] schedule enabled", "every", every.String())

	go scheduler.Every(ctx, every, "poll", r.log(), func(ctx context.Context) error {
		_, err := r.RunOnce(ctx)
		if errors.Is(err, ErrBusy) {
			return nil
		}
		return err
	})
}

func (r *Runner) log() *logging.Logger {
	if r.deps.Log == nil {
		return logging.Nop()
	}
	return r.deps.Log
}

// Shutdown waits for an in-flight batch to return or ctx to end.
func (r *Runner) Shutdown(ctx context.Context) error {
	select {
	case r.busy <- struct{}{}:
		<-r.busy
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
