package httpapi

import (
	"net/http"
	"strings"

	"jobcrawl-engine/internal/events"
	"jobcrawl-engine/internal/store"
)

type JobsHandler struct {
	DB  *store.DB
	Hub *events.Hub
}

func (h JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	jobs, err := store.ListJobs(r.Context(), h.DB.Pool, store.ListJobsOpts{
		Sort:     q.Get("sort"),
		Window:   q.Get("window"),
		Category: q.Get("category"),
		Limit:    intParam(r, "limit", 500),
	})
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_query", err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, jobs)
}

func (h JobsHandler) DeleteByPath(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, "/jobs/"))
	if id == "" || strings.Contains(id, "/") {
		WriteError(w, r, http.StatusBadRequest, "invalid_id", "invalid id")
		return
	}

	if err := store.DeleteJob(r.Context(), h.DB.Pool, id); err != nil {
		WriteErr(w, r, err)
		return
	}

	h.Hub.Publish(events.New(RequestIDFrom(r.Context()), events.JobDeleted, map[string]any{"id": id}))
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "id": id})
}
