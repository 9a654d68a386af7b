package httpapi

import (
	"net/http"

	"jobcrawl-engine/internal/events"
	"jobcrawl-engine/internal/store"
)

// ServiceHandler flips the pause switch checked before every batch.
type ServiceHandler struct {
	Control *store.Control
	Hub     *events.Hub
}

func (h ServiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	state, err := h.Control.ServiceState(r.Context())
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"state": state})
}

func (h ServiceHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.set(w, r, store.ServicePaused)
}

func (h ServiceHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.set(w, r, store.ServiceActive)
}

func (h ServiceHandler) set(w http.ResponseWriter, r *http.Request, state string) {
	if err := h.Control.SetServiceState(r.Context(), state); err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	h.Hub.Emit(events.ServiceState, map[string]any{"state": state})
	WriteJSON(w, http.StatusOK, map[string]any{"state": state})
}
