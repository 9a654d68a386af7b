package httpapi

import (
	"net/http"
	"strings"

	"jobcrawl-engine/internal/store"
)

type RunsHandler struct {
	DB *store.DB
}

func (h RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	runs, err := h.DB.ListRuns(r.Context(), store.ListRunsOpts{
		Status: r.URL.Query().Get("status"),
		Limit:  intParam(r, "limit", 100),
	})
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, runs)
}

func (h RunsHandler) GetByPath(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/runs/")
	run, err := h.DB.GetRun(r.Context(), id)
	if err != nil {
		WriteErr(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, run)
}
