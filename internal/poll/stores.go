package poll

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"jobcrawl-engine/internal/config"
	"jobcrawl-engine/internal/dedup"
	"jobcrawl-engine/internal/domain"
	"jobcrawl-engine/internal/logging"
	"jobcrawl-engine/internal/orchestrator"
	"jobcrawl-engine/internal/store"
	"jobcrawl-engine/internal/store/filecache"
	"jobcrawl-engine/internal/store/postgres"
)

// Stores are the persistence handles for one engine. The sqlite file is
// always open: it holds scraper control and serves the HTTP listings.
// store.driver only picks where the seen index and run audit live; runs
// are mirrored into sqlite so the HTTP API can list them.
type Stores struct {
	SQLite  *store.DB
	Control *store.Control
	Index   dedup.SeenIndex
	Runs    orchestrator.RunStore

	closers []func()
}

func OpenStores(ctx context.Context, cfg config.Config, log *logging.Logger) (*Stores, error) {
	dbPath := filepath.Join(cfg.App.DataDir, "jobcrawl.db")
	db, err := store.OpenMigrated(dbPath)
	if err != nil {
		return nil, err
	}
	s := &Stores{SQLite: db, Control: store.NewControl(db), Index: db, Runs: db}
	s.closers = append(s.closers, func() { _ = db.Close() })

	switch cfg.Store.Driver {
	case "sqlite", "":
		log.Info("[store] using sqlite", "path", dbPath)
	case "postgres":
		pctx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		pg, err := postgres.Connect(pctx, cfg.Store.PostgresDSN, cfg.Crawl.Workers+1, false)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.Index, s.Runs = pg, runMirror{pg, db}
		s.closers = append(s.closers, pg.Close)
		log.Info("[store] using postgres")
	case "file":
		dir := filepath.Join(cfg.App.DataDir, "cache")
		fc, err := filecache.Open(dir, time.Duration(cfg.Store.CacheDays)*24*time.Hour, log.Named("filecache"))
		if err != nil {
			s.Close()
			return nil, err
		}
		s.Index, s.Runs = fc, runMirror{fc, db}
		log.Info("[store] using file cache", "dir", dir)
	default:
		s.Close()
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	return s, nil
}

// Close releases handles in reverse order.
func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

type runMirror []orchestrator.RunStore

func (m runMirror) SaveRun(ctx context.Context, r domain.BatchRun) error {
	var errs []error
	for _, s := range m {
		if err := s.SaveRun(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
