package poll

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobcrawl-engine/internal/config"
	"jobcrawl-engine/internal/crawl"
	"jobcrawl-engine/internal/crawl/crawltest"
	"jobcrawl-engine/internal/domain"
	"jobcrawl-engine/internal/events"
	"jobcrawl-engine/internal/logging"
	"jobcrawl-engine/internal/store"
)

type reportSpy struct {
	batches [][]domain.BatchRun
	err     error
}

func (r *reportSpy) ReportBatch(_ context.Context, runs []domain.BatchRun) error {
	r.batches = append(r.batches, runs)
	return r.err
}

func testConfig() config.Config {
	var cfg config.Config
	cfg.Matrix = config.Matrix{
		Categories: []config.Category{{Name: "software", Keywords: []string{"python"}}},
		Locations:  []string{"Tunisia", "Remote"},
	}
	config.ApplyDefaults(&cfg)
	cfg.Crawl.SliceSize = 3
	cfg.Crawl.MaxPages = 1
	cfg.Crawl.MaxRetries = 0
	cfg.Crawl.FreshnessThresh = 0
	cfg.Crawl.FreshnessWindow = 1
	cfg.Crawl.Workers = 1
	cfg.Store.WriteRetries = 0
	return cfg
}

func newDeps(t *testing.T, s crawl.Session) (Deps, *store.DB, *reportSpy) {
	t.Helper()
	db, err := store.OpenMigrated(filepath.Join(t.TempDir(), "poll.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	spy := &reportSpy{}
	return Deps{
		Index:   db,
		Runs:    db,
		Control: store.NewControl(db),
		Hub:     events.NewHub(),
		Notify:  spy,
		Log:     logging.Nop(),
		Session: func(config.Config, *logging.Logger) (crawl.Session, crawl.Credentials, error) {
			return s, crawl.Credentials{}, nil
		},
	}, db, spy
}

func scraper(t *testing.T, c *store.Control, name string) store.ScraperStatus {
	t.Helper()
	all, err := c.Scrapers(context.Background())
	require.NoError(t, err)
	for _, s := range all {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("scraper %q not recorded", name)
	return store.ScraperStatus{}
}

func TestPollOnceSavesAndReports(t *testing.T) {
	s := crawltest.Endless(3)
	d, db, spy := newDeps(t, s)

	res, err := PollOnce(context.Background(), d, testConfig())
	require.NoError(t, err)

	require.Len(t, res.Runs, 2)
	assert.Equal(t, 3, res.Saved, "the second query sees the same ids")
	assert.Zero(t, res.Aborted)
	assert.False(t, res.Skipped)
	assert.Equal(t, 2, s.Opened())

	require.Len(t, spy.batches, 1)
	assert.Len(t, spy.batches[0], 2)

	st := scraper(t, d.Control, "guest")
	assert.Equal(t, store.ScraperIdle, st.Status)
	assert.Equal(t, 3, st.JobsScraped)
	assert.NotNil(t, st.LastSuccess)

	runs, err := db.ListRuns(context.Background(), store.ListRunsOpts{})
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestPollOnceSkipsWhenPaused(t *testing.T) {
	s := crawltest.Endless(3)
	d, _, spy := newDeps(t, s)
	require.NoError(t, d.Control.SetServiceState(context.Background(), store.ServicePaused))

	res, err := PollOnce(context.Background(), d, testConfig())
	require.NoError(t, err)

	assert.True(t, res.Skipped)
	assert.Zero(t, s.Opened())
	assert.Empty(t, spy.batches)
	assert.Equal(t, store.ScraperPaused, scraper(t, d.Control, "guest").Status)
}

func TestPollOnceMarksErrors(t *testing.T) {
	t.Run("session build fails", func(t *testing.T) {
		d, _, spy := newDeps(t, nil)
		d.Session = func(config.Config, *logging.Logger) (crawl.Session, crawl.Credentials, error) {
			return nil, crawl.Credentials{}, errors.New("no keyring")
		}

		_, err := PollOnce(context.Background(), d, testConfig())
		require.ErrorContains(t, err, "no keyring")
		assert.Empty(t, spy.batches)

		st := scraper(t, d.Control, "guest")
		assert.Equal(t, store.ScraperError, st.Status)
		assert.Contains(t, st.ErrorMessage, "no keyring")
	})

	t.Run("every run aborted", func(t *testing.T) {
		s := &crawltest.Session{OpenErr: crawl.ErrBlocked}
		d, _, _ := newDeps(t, s)

		res, err := PollOnce(context.Background(), d, testConfig())
		require.NoError(t, err)
		assert.Equal(t, 2, res.Aborted)

		st := scraper(t, d.Control, "guest")
		assert.Equal(t, store.ScraperError, st.Status)
		assert.Contains(t, st.ErrorMessage, "Blocked")
	})
}

func TestParamsFrom(t *testing.T) {
	cfg := testConfig()
	p := ParamsFrom(cfg)

	assert.Equal(t, 3, p.SliceSize)
	assert.Equal(t, 1, p.MaxPages)
	assert.Equal(t, cfg.RunTimeout(), p.RunTimeout)
	assert.Equal(t, cfg.Matrix.Categories, p.Categories)
}

func TestRunnerStatusAndBusy(t *testing.T) {
	d, _, _ := newDeps(t, crawltest.Endless(2))
	var cv atomic.Value
	cv.Store(testConfig())
	r := NewRunner(d, &cv)

	r.busy <- struct{}{}
	_, err := r.RunOnce(context.Background())
	<-r.busy
	require.ErrorIs(t, err, ErrBusy)

	res, err := r.RunOnce(context.Background())
	require.NoError(t, err)

	st := r.Status()
	assert.False(t, st.Running)
	assert.Equal(t, res.Saved, st.LastAdded)
	assert.NotEmpty(t, st.LastOkAt)
	assert.Empty(t, st.LastError)
}

func TestBuildSessionRejectsUnknownSource(t *testing.T) {
	cfg := testConfig()
	cfg.Crawl.Source = "carrier-pigeon"
	_, _, err := BuildSession(cfg, logging.Nop())
	require.Error(t, err)
}

func TestBuildSessionGuest(t *testing.T) {
	cfg := testConfig()
	s, creds, err := BuildSession(cfg, logging.Nop())
	require.NoError(t, err)
	assert.NotNil(t, s)
	assert.Empty(t, creds.Cookies)
}

func TestRunnerShutdownWaitsForBatch(t *testing.T) {
	d, _, _ := newDeps(t, crawltest.Endless(1))
	var cv atomic.Value
	cv.Store(testConfig())
	r := NewRunner(d, &cv)

	require.NoError(t, r.Shutdown(context.Background()))

	r.busy <- struct{}{}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, r.Shutdown(ctx), context.DeadlineExceeded)

	// the slot is free again once the batch ends; nothing is left waiting on it
	<-r.busy
	_, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	require.NoError(t, r.Shutdown(context.Background()))
}
