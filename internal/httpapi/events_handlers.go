package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"jobcrawl-engine/internal/events"
)

type EventsHandler struct {
	Hub *events.Hub
}

// ServeSSE streams run progress. ?types=run_started,job_saved narrows the
// stream; Last-Event-ID (or ?since=) replays what the hub still holds.
func (h EventsHandler) ServeSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, r, http.StatusInternalServerError, "stream_unsupported", "Streaming unsupported")
		return
	}

	filter := events.ParseFilter(r.URL.Query().Get("types"))
	since, replay := resumeFrom(r)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	// Subscribe before reading history so nothing falls in the gap.
	ch := h.Hub.Subscribe()
	defer h.Hub.Unsubscribe(ch)

	writeSSE(w, events.New(RequestIDFrom(r.Context()), events.Ping, nil))
	if replay {
		for _, e := range h.Hub.Since(since) {
			if filter.Allows(e.Type) {
				writeSSE(w, e)
				since = e.Seq
			}
		}
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case e, open := <-ch:
			if !open {
				return
			}
			if e.Seq <= since || !filter.Allows(e.Type) {
				continue
			}
			writeSSE(w, e)
			flusher.Flush()
		}
	}
}

func resumeFrom(r *http.Request) (uint64, bool) {
	v := r.Header.Get("Last-Event-ID")
	if v == "" {
		v = r.URL.Query().Get("since")
	}
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func writeSSE(w http.ResponseWriter, e events.Event) {
	if e.Seq > 0 {
		fmt.Fprintf(w, "id: %d\n", e.Seq)
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type, e.JSON())
}
