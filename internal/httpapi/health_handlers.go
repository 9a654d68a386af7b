package httpapi

import (
	"net/http"

	"jobcrawl-engine/internal/store"
)

type HealthHandler struct {
	Control *store.Control
}

func (h HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	state, err := h.Control.ServiceState(r.Context())
	if err != nil {
		WriteError(w, r, http.StatusServiceUnavailable, "db_unavailable", err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "service": state})
}
