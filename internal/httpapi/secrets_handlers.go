package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"

	"jobcrawl-engine/internal/config"
	"jobcrawl-engine/internal/secrets"
)

type SecretsHandler struct {
	CfgVal *atomic.Value // stores config.Config
}

type secretReq struct {
	Value string `json:"value"`
}

func readSecret(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req secretReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return "", false
	}
	v := strings.TrimSpace(req.Value)
	if v == "" {
		WriteError(w, r, http.StatusBadRequest, "empty_secret", "value is required")
		return "", false
	}
	return v, true
}

func (h SecretsHandler) SetIMAPPassword(w http.ResponseWriter, r *http.Request) {
	pw, ok := readSecret(w, r)
	if !ok {
		return
	}
	cfg := h.CfgVal.Load().(config.Config)
	if err := secrets.SetIMAPPassword(secrets.IMAPKeyringAccount(cfg), pw); err != nil {
		WriteError(w, r, http.StatusBadRequest, "keyring_error", "failed to store password: "+err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h SecretsHandler) DeleteIMAPPassword(w http.ResponseWriter, r *http.Request) {
	cfg := h.CfgVal.Load().(config.Config)
	err := secrets.DeleteIMAPPassword(secrets.IMAPKeyringAccount(cfg))
	if err != nil && !errors.Is(err, secrets.ErrNotFound) {
		WriteError(w, r, http.StatusInternalServerError, "keyring_error", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h SecretsHandler) SetTelegramToken(w http.ResponseWriter, r *http.Request) {
	tok, ok := readSecret(w, r)
	if !ok {
		return
	}
	cfg := h.CfgVal.Load().(config.Config)
	if err := secrets.SetTelegramToken(cfg, tok); err != nil {
		WriteError(w, r, http.StatusBadRequest, "keyring_error", "failed to store token: "+err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
