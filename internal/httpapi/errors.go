package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"jobcrawl-engine/internal/config"
	"jobcrawl-engine/internal/poll"
	"jobcrawl-engine/internal/secrets"
	"jobcrawl-engine/internal/store"
)

// APIError is the body of every non-2xx response. Problems is set when a
// search matrix is rejected, Details when other config fields are.
type APIError struct {
	Error struct {
		Code      string           `json:"code"`
		Message   string           `json:"message"`
		RequestID string           `json:"request_id,omitempty"`
		Problems  []config.Problem `json:"problems,omitempty"`
		Details   []string         `json:"details,omitempty"`
	} `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newAPIError(r *http.Request, code, message string) APIError {
	var e APIError
	e.Error.Code = code
	e.Error.Message = message
	e.Error.RequestID = RequestIDFrom(r.Context())
	return e
}

func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	WriteJSON(w, status, newAPIError(r, code, message))
}

// WriteErr maps a domain error onto a status and error code.
func WriteErr(w http.ResponseWriter, r *http.Request, err error) {
	var ce *config.ConfigError
	switch {
	case errors.As(err, &ce):
		e := newAPIError(r, "invalid_matrix", "search matrix rejected")
		e.Error.Problems = ce.Problems
		WriteJSON(w, http.StatusBadRequest, e)
	case errors.Is(err, store.ErrNotFound), errors.Is(err, secrets.ErrNotFound):
		WriteError(w, r, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, poll.ErrBusy):
		WriteError(w, r, http.StatusConflict, "run_in_progress", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		WriteError(w, r, http.StatusGatewayTimeout, "timeout", err.Error())
	default:
		WriteError(w, r, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

// writeValidation reports config problems other than the matrix.
func writeValidation(w http.ResponseWriter, r *http.Request, vr config.Validation) {
	e := newAPIError(r, "invalid_config", "config rejected")
	e.Error.Details = vr.Errors
	WriteJSON(w, http.StatusBadRequest, e)
}
