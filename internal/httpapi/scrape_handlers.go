package httpapi

import (
	"context"
	"errors"
	"net/http"

	"jobcrawl-engine/internal/logging"
	"jobcrawl-engine/internal/poll"
	"jobcrawl-engine/internal/store"
)

type ScrapeHandler struct {
	Runner  *poll.Runner
	Control *store.Control
	Log     *logging.Logger
}

func (h ScrapeHandler) Status(w http.ResponseWriter, r *http.Request) {
	scrapers, err := h.Control.Scrapers(r.Context())
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"poller":   h.Runner.Status(),
		"scrapers": scrapers,
	})
}

// Run starts a batch in the background; progress arrives over /events.
func (h ScrapeHandler) Run(w http.ResponseWriter, r *http.Request) {
	if h.Runner.Status().Running {
		WriteErr(w, r, poll.ErrBusy)
		return
	}

	ctx := context.WithoutCancel(r.Context())
	go func() {
		if _, err := h.Runner.RunOnce(ctx); err != nil && !errors.Is(err, poll.ErrBusy) {
			h.Log.Error("[scrape] manual run failed", "err", err)
		}
	}()
	WriteJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}
