package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"jobcrawl-engine/internal/config"
	"jobcrawl-engine/internal/events"
	"jobcrawl-engine/internal/httpapi"
	"jobcrawl-engine/internal/lock"
	"jobcrawl-engine/internal/logging"
	"jobcrawl-engine/internal/poll"
	"jobcrawl-engine/internal/scheduler"
	"jobcrawl-engine/internal/shutdown"
	"jobcrawl-engine/internal/store"
)

func main() {
	once := flag.Bool("once", false, "run one batch over the matrix and exit")
	defaultCfgPath := flag.String("config", filepath.Join("config", "config.yml"), "default config copied into the data dir on first start")
	flag.Parse()

	config.LoadDotEnv(".env")

	dataDir := os.Getenv("JOBCRAWL_DATA_DIR")
	if dataDir == "" {
		dataDir = "."
	}
	boot := logging.New(os.Getenv("JOBCRAWL_LOG_LEVEL"))
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		fatal(boot, "data dir", err)
	}

	lk, err := lock.Acquire(dataDir)
	if err != nil {
		fatal(boot, "engine lock", err)
	}
	defer func() { _ = lk.Release() }()

	userCfgPath, err := config.EnsureUserConfig(dataDir, *defaultCfgPath)
	if err != nil {
		fatal(boot, "config bootstrap failed", err)
	}

	// Load config and keep it reloadable
	var cfgVal atomic.Value // stores config.Config
	loadCfg := func() (config.Config, error) {
		cfg, err := config.Load(userCfgPath)
		if err != nil {
			return cfg, err
		}
		cfg.App.DataDir = dataDir
		if err := config.Validate(cfg); err != nil {
			return cfg, err
		}
		cfg, _ = config.NormalizeAndValidate(cfg)
		return cfg, nil
	}
	cfg, err := loadCfg()
	if err != nil {
		fatal(boot, "config load failed ("+userCfgPath+")", err)
	}
	cfgVal.Store(cfg)

	log := logging.New(cfg.App.LogLevel)
	defer func() { _ = log.Sync() }()
	_, vr := config.NormalizeAndValidate(cfg)
	for _, w := range vr.Warnings {
		log.Warn("[config] " + w)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	stores, err := poll.OpenStores(ctx, cfg, log)
	if err != nil {
		fatal(log, "open stores", err)
	}
	defer stores.Close()

	hub := events.NewHub()
	runner := poll.NewRunner(poll.Deps{
		Index:   stores.Index,
		Runs:    stores.Runs,
		Control: stores.Control,
		Hub:     hub,
		Notify:  telegramReporter{cfgVal: &cfgVal, log: log},
		Log:     log.Named("poll"),
	}, &cfgVal)

	if *once {
		res, err := runner.RunOnce(ctx)
		if err != nil {
			fatal(log, "batch failed", err)
		}
		log.Info("batch finished", "runs", len(res.Runs), "saved", res.Saved, "aborted", res.Aborted, "skipped", res.Skipped)
		return
	}

	mux := httpapi.NewMux(httpapi.Deps{
		DB:          stores.SQLite,
		Control:     stores.Control,
		Hub:         hub,
		Runner:      runner,
		Log:         log,
		CfgVal:      &cfgVal,
		UserCfgPath: userCfgPath,
		LoadCfg:     loadCfg,
	})

	token := os.Getenv("JOBCRAWL_SHUTDOWN_TOKEN")
	if token == "" {
		if token, err = randomToken(32); err != nil {
			fatal(log, "shutdown token", err)
		}
		tokenPath := filepath.Join(dataDir, "shutdown.token")
		if err := os.WriteFile(tokenPath, []byte(token), 0o600); err != nil {
			fatal(log, "write shutdown token", err)
		}
	}
	mux.HandleFunc("/shutdown", shutdownHandler(token, stop))

	// Bind to a predictable local port (the dashboard expects it).
	addr := fmt.Sprintf("127.0.0.1:%d", cfg.App.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		fatal(log, "listen", err)
	}
	log.Info("engine listening", "addr", "http://"+addr, "config", userCfgPath, "store", cfg.Store.Driver, "source", cfg.Crawl.Source)

	srv := &http.Server{
		Handler:           httpapi.Handler(mux, log),
		ReadHeaderTimeout: 5 * time.Second,
		// SSE streams end with the root context.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	runner.Start(ctx)

	retention := time.Duration(cfg.Store.CacheDays) * 24 * time.Hour
	go scheduler.Every(ctx, 24*time.Hour, "cleanup", log, func(ctx context.Context) error {
		n, err := store.CleanupOldJobs(ctx, stores.SQLite.Pool, retention)
		if err == nil && n > 0 {
			log.Info("[cleanup] dropped old jobs", "count", n)
		}
		return err
	})

	shutdown.Graceful(ctx, []os.Signal{os.Interrupt, syscall.SIGTERM}, 10*time.Second, log,
		shutdown.Func(func(context.Context) error {
			stop()
			return nil
		}),
		srv,
		runner,
	)
}

func fatal(log *logging.Logger, msg string, err error) {
	log.Error(msg, "err", err)
	_ = log.Sync()
	os.Exit(1)
}
