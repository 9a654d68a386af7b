package httpapi

import (
	"net/http"

	"jobcrawl-engine/internal/logging"
)

// NewMux returns the raw mux so main() can still attach /shutdown (needs srv+token).
func NewMux(d Deps) *http.ServeMux {
	if d.Log == nil {
		d.Log = logging.Nop()
	}
	mux := http.NewServeMux()

	hh := HealthHandler{Control: d.Control}
	mux.HandleFunc("/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: hh.Health,
	}))

	// Jobs
	jh := JobsHandler{DB: d.DB, Hub: d.Hub}
	mux.HandleFunc("/jobs", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: jh.List,
	}))
	mux.HandleFunc("/jobs/", methodMux(map[string]http.HandlerFunc{
		http.MethodDelete: jh.DeleteByPath, // expects /jobs/{id}
	}))

	// Run audit
	rh := RunsHandler{DB: d.DB}
	mux.HandleFunc("/runs", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: rh.List,
	}))
	mux.HandleFunc("/runs/", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: rh.GetByPath,
	}))

	// Config
	ch := ConfigHandler{
		CfgVal:      d.CfgVal,
		UserCfgPath: d.UserCfgPath,
		LoadCfg:     d.LoadCfg,
	}
	mux.HandleFunc("/config", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Get,
		http.MethodPut: ch.Put,
	}))
	mux.HandleFunc("/config/path", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Path,
	}))
	mux.HandleFunc("/config/validate", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Validate,
	}))

	// Secrets (use cfgVal, NOT a snapshot cfg)
	sh := SecretsHandler{CfgVal: d.CfgVal}
	mux.HandleFunc("/api/secrets/imap", methodMux(map[string]http.HandlerFunc{
		http.MethodPost:   sh.SetIMAPPassword,
		http.MethodDelete: sh.DeleteIMAPPassword,
	}))
	mux.HandleFunc("/api/secrets/telegram", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: sh.SetTelegramToken,
	}))

	// Scrape
	sch := ScrapeHandler{Runner: d.Runner, Control: d.Control, Log: d.Log}
	mux.HandleFunc("/scrape/status", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: sch.Status,
	}))
	mux.HandleFunc("/scrape/run", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: sch.Run,
	}))

	// Pause switch
	svc := ServiceHandler{Control: d.Control, Hub: d.Hub}
	mux.HandleFunc("/service", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: svc.Get,
	}))
	mux.HandleFunc("/service/pause", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: svc.Pause,
	}))
	mux.HandleFunc("/service/resume", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: svc.Resume,
	}))

	// SSE events
	eh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.ServeSSE,
	}))

	dh := DBHandler{DB: d.DB}
	mux.HandleFunc("/db/checkpoint", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: dh.Checkpoint,
	}))

	return mux
}

// Handler wraps the mux in the standard middleware chain.
func Handler(mux http.Handler, log *logging.Logger) http.Handler {
	if log == nil {
		log = logging.Nop()
	}
	return Chain(mux, RequestID, Recover(log), AccessLog(log.Named("http")), Cors)
}
