package main

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net"
	"net/http"
	"sync/atomic"

	"jobcrawl-engine/internal/config"
	"jobcrawl-engine/internal/domain"
	"jobcrawl-engine/internal/logging"
	"jobcrawl-engine/internal/notify"
	"jobcrawl-engine/internal/secrets"
)

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// shutdownHandler lets the local parent process stop the engine. It only
// cancels the root context; main does the actual draining.
func shutdownHandler(token string, stop context.CancelFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		// Local-only guard (covers typical desktop usage)
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if host != "127.0.0.1" && host != "::1" && host != "localhost" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		got := r.Header.Get("X-Shutdown-Token")
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("shutting down\n"))
		stop()
	}
}

// telegramReporter reads the live config on every batch so toggling
// notify.telegram takes effect without a restart.
type telegramReporter struct {
	cfgVal *atomic.Value
	log    *logging.Logger
}

func (t telegramReporter) ReportBatch(ctx context.Context, runs []domain.BatchRun) error {
	cfg := t.cfgVal.Load().(config.Config)
	if !cfg.Notify.Telegram {
		return nil
	}
	token, err := secrets.TelegramToken(cfg)
	if err != nil {
		return err
	}
	bot, err := notify.NewTelegram(token, cfg.Notify.ChatID)
	if err != nil {
		return err
	}
	t.log.Debug("[notify] sending batch report", "runs", len(runs))
	return bot.ReportBatch(ctx, runs)
}
