package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobcrawl-engine/internal/config"
	"jobcrawl-engine/internal/crawl"
	"jobcrawl-engine/internal/crawl/crawltest"
	"jobcrawl-engine/internal/dedup"
	"jobcrawl-engine/internal/domain"
)

var fixedNow = time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

func softwareQuery() domain.SearchQuery {
	return domain.SearchQuery{
		Dimension: domain.Dimension{Category: "software", Location: "Tunisia"},
		Keywords:  []string{"python", "backend"},
		Text:      `("python" OR "backend") AND "Tunisia"`,
	}
}

func ids(recs []domain.RawRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = dedup.CanonicalID(r)
	}
	return out
}

type memRuns struct {
	mu    sync.Mutex
	saved []domain.BatchRun
	ctxOK []bool
}

func (m *memRuns) SaveRun(ctx context.Context, run domain.BatchRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, run)
	m.ctxOK = append(m.ctxOK, ctx.Err() == nil)
	return nil
}

func (m *memRuns) last() domain.BatchRun {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved[len(m.saved)-1]
}

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) Emit(typ string, _ any) {
	r.mu.Lock()
	r.events = append(r.events, typ)
	r.mu.Unlock()
}

func (r *recorder) count(typ string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == typ {
			n++
		}
	}
	return n
}

func newOrch(t *testing.T, s crawl.Session, idx dedup.SeenIndex, opts ...Option) (*Orchestrator, *memRuns) {
	t.Helper()
	runs := &memRuns{}
	base := []Option{
		WithSession(s),
		WithSeenIndex(idx),
		WithRunStore(runs),
		WithClock(func() time.Time { return fixedNow }),
		WithWalker(crawl.Walker{MaxRetries: 0}),
		WithWriteRetries(0),
	}
	o, err := New(append(base, opts...)...)
	require.NoError(t, err)
	return o, runs
}

// two pages of 50; 5 of page one and 45 of page two already stored
func stalePages() (*crawltest.Session, *dedup.MemoryIndex) {
	p0 := crawltest.Records("a", 50)
	p1 := crawltest.Records("b", 50)
	seen := append(ids(p0)[:5], ids(p1)[:45]...)
	s := &crawltest.Session{Script: map[int][]crawltest.Response{
		0: {{Records: p0}},
		1: {{Records: p1}},
	}}
	return s, dedup.NewMemoryIndex(seen...)
}

func scenarioParams() Params {
	return Params{SliceSize: 50, MaxPages: 2, FreshnessThresh: 0.8, RelevanceThresh: 0}
}

func TestRunStopsByFreshnessAfterSecondSlice(t *testing.T) {
	s, idx := stalePages()
	require.Equal(t, 50, idx.Len(), "seeded ids must be distinct")
	o, runs := newOrch(t, s, idx)

	run := o.Run(context.Background(), softwareQuery(), scenarioParams())

	assert.Equal(t, domain.RunStoppedByFreshness, run.Status)
	assert.Equal(t, ReasonFreshness, run.Reason)
	assert.Equal(t, 2, run.Slices)
	assert.Equal(t, []int{0, 1}, s.Requests())
	assert.InDelta(t, 0.9, run.StaleRatio, 1e-9)
	assert.Equal(t, 100, run.Counters.Scraped)
	assert.Equal(t, 50, run.Counters.Duplicates)
	assert.Equal(t, 50, run.Counters.Saved)
	assert.Equal(t, 100, idx.Len())
	assert.NotEmpty(t, run.ID)
	require.NotNil(t, run.FinishedAt)

	require.Len(t, runs.saved, 2)
	assert.Equal(t, domain.RunRunning, runs.saved[0].Status)
	assert.Equal(t, run, runs.last())
}

func TestRunWholeRunWindowCompletesAtMaxPages(t *testing.T) {
	s, idx := stalePages()
	o, _ := newOrch(t, s, idx, WithWindow(0))

	run := o.Run(context.Background(), softwareQuery(), scenarioParams())

	assert.Equal(t, domain.RunCompleted, run.Status)
	assert.Equal(t, ReasonMaxPages, run.Reason)
	assert.InDelta(t, 0.5, run.StaleRatio, 1e-9)
	assert.Equal(t, 1, s.MaxPage())
}

func TestRunSessionExpiredMidRun(t *testing.T) {
	first := crawltest.Records("a", 10)
	s := &crawltest.Session{Script: map[int][]crawltest.Response{
		0: {{Records: first}},
		1: {{Err: fmt.Errorf("redirected to authwall: %w", crawl.ErrSessionExpired)}},
	}}
	idx := dedup.NewMemoryIndex()
	o, runs := newOrch(t, s, idx)

	run := o.Run(context.Background(), softwareQuery(), Params{SliceSize: 10, MaxPages: 5, FreshnessThresh: 0.8})

	assert.Equal(t, domain.RunAbortedByFailure, run.Status)
	assert.Equal(t, "SessionExpired", run.Reason)
	assert.Contains(t, run.Error, "authwall")
	assert.Equal(t, 10, idx.Len())
	for _, id := range ids(first) {
		assert.True(t, idx.Has(id))
	}
	assert.Equal(t, domain.RunAbortedByFailure, runs.last().Status)
	assert.Equal(t, 1, s.Closed())
}

func TestRunEmptyFirstSliceContinues(t *testing.T) {
	s := &crawltest.Session{Script: map[int][]crawltest.Response{
		0: {{Records: nil}},
		1: {{Records: crawltest.Records("a", 10), Last: true}},
	}}
	o, _ := newOrch(t, s, dedup.NewMemoryIndex())

	run := o.Run(context.Background(), softwareQuery(), Params{SliceSize: 10, MaxPages: 3, FreshnessThresh: 0.8})

	assert.Equal(t, domain.RunCompleted, run.Status)
	assert.Equal(t, ReasonEndOfResults, run.Reason)
	assert.Equal(t, 2, run.Slices)
	assert.Equal(t, 10, run.Counters.Saved)
	assert.Zero(t, run.StaleRatio)
}

func TestRunNeverExceedsMaxPages(t *testing.T) {
	s := crawltest.Endless(5)
	o, _ := newOrch(t, s, dedup.NewMemoryIndex())

	run := o.Run(context.Background(), softwareQuery(), Params{SliceSize: 2, MaxPages: 3, FreshnessThresh: 0.8})

	assert.Equal(t, domain.RunCompleted, run.Status)
	assert.Equal(t, ReasonMaxPages, run.Reason)
	assert.Equal(t, 3, run.Pages)
	assert.Equal(t, 9, run.Slices)
	assert.Equal(t, 2, s.MaxPage())
	assert.Equal(t, 15, run.Counters.Saved)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := crawltest.Endless(5)
	s.Hook = func(page int) {
		if page == 1 {
			cancel()
		}
	}
	o, runs := newOrch(t, s, dedup.NewMemoryIndex())

	run := o.Run(ctx, softwareQuery(), Params{SliceSize: 5, MaxPages: 10, FreshnessThresh: 0.8})

	assert.Equal(t, domain.RunAbortedByFailure, run.Status)
	assert.Equal(t, ReasonCancelled, run.Reason)
	assert.Equal(t, 5, run.Counters.Saved)
	require.Len(t, runs.saved, 2)
	assert.True(t, runs.ctxOK[1], "terminal record must be saved with a live context")
}

type brokenIndex struct{ *dedup.MemoryIndex }

func (brokenIndex) BulkExists(context.Context, []string) (map[string]struct{}, error) {
	return nil, errors.New("database is locked")
}

func TestRunStoreReadFailure(t *testing.T) {
	s := crawltest.Endless(5)
	o, _ := newOrch(t, s, brokenIndex{dedup.NewMemoryIndex()})

	run := o.Run(context.Background(), softwareQuery(), Params{SliceSize: 5, MaxPages: 3, FreshnessThresh: 0.8})

	assert.Equal(t, domain.RunAbortedByFailure, run.Status)
	assert.Equal(t, ReasonStoreRead, run.Reason)
	assert.Equal(t, []int{0}, s.Requests())
}

func TestRunOpenFailure(t *testing.T) {
	s := &crawltest.Session{OpenErr: fmt.Errorf("status 999: %w", crawl.ErrBlocked)}
	o, _ := newOrch(t, s, dedup.NewMemoryIndex())

	run := o.Run(context.Background(), softwareQuery(), DefaultParams())

	assert.Equal(t, domain.RunAbortedByFailure, run.Status)
	assert.Equal(t, "Blocked", run.Reason)
	assert.Empty(t, s.Requests())
}

func TestRunDeepScrapeIgnoresStaleness(t *testing.T) {
	recs := crawltest.Records("a", 10)
	s := &crawltest.Session{Script: map[int][]crawltest.Response{0: {{Records: recs}}, 1: {{Records: recs}}}}
	o, _ := newOrch(t, s, dedup.NewMemoryIndex(ids(recs)...))

	run := o.Run(context.Background(), softwareQuery(), Params{SliceSize: 10, MaxPages: 2, FreshnessThresh: 0})

	assert.Equal(t, domain.RunCompleted, run.Status)
	assert.Equal(t, 2, run.Pages)
	assert.Zero(t, run.Counters.Saved)
	assert.InDelta(t, 1.0, run.StaleRatio, 1e-9)
}

func TestRunFiltersIrrelevantAndMalformed(t *testing.T) {
	recs := []domain.RawRecord{
		{Title: "Senior Python Backend Developer", URL: "https://www.linkedin.com/jobs/view/1000001/", PostedAt: "2 days ago", ApplicantCount: "Over 200 applicants"},
		{Title: "Pastry Chef", Description: "croissants and bread", URL: "https://www.linkedin.com/jobs/view/1000002/"},
		{Company: "Ghost Inc"},
	}
	s := crawltest.Pages(recs)
	idx := dedup.NewMemoryIndex()
	pub := &recorder{}
	o, _ := newOrch(t, s, idx, WithPublisher(pub))

	run := o.Run(context.Background(), softwareQuery(), Params{SliceSize: 10, MaxPages: 1, FreshnessThresh: 0.8, RelevanceThresh: 0.3})

	assert.Equal(t, domain.RunCompleted, run.Status)
	assert.Equal(t, 3, run.Counters.Scraped)
	assert.Equal(t, 1, run.Counters.Malformed)
	assert.Equal(t, 1, run.Counters.Relevant)
	assert.Equal(t, 1, run.Counters.Stale)
	assert.Equal(t, 1, run.Counters.Saved)
	assert.InDelta(t, 0.5, run.StaleRatio, 1e-9)
	assert.Equal(t, 1, idx.Len())

	assert.Equal(t, 1, pub.count(EventRunStarted))
	assert.Equal(t, 1, pub.count(EventJobSaved))
	assert.Equal(t, 1, pub.count(EventRunFinished))
}

func TestBuildRecords(t *testing.T) {
	o, _ := newOrch(t, crawltest.Pages(), dedup.NewMemoryIndex())
	s := domain.Slice{Records: []domain.RawRecord{{
		SourceID:       "3901234567",
		Title:          "Data Engineer (Remote)",
		Company:        "Acme",
		Location:       "Paris, Île-de-France, France",
		PostedAt:       "3 days ago",
		URL:            "https://fr.linkedin.com/jobs/view/data-engineer-3901234567?trk=abc",
		ApplicantCount: "47 applicants",
		Description:    "spark airflow python",
	}}}
	cats := []config.Category{
		{Name: "software", Keywords: []string{"golang", "backend"}},
		{Name: "data", Keywords: []string{"spark", "airflow", "data engineer"}},
	}

	recs, malformed := o.buildRecords(s, softwareQuery(), cats)
	require.Len(t, recs, 1)
	assert.Zero(t, malformed)

	j := recs[0]
	assert.Equal(t, dedup.CanonicalID(s.Records[0]), j.ID)
	assert.Equal(t, "https://www.linkedin.com/jobs/view/3901234567/", j.URL)
	assert.Equal(t, "data", j.Category)
	assert.Equal(t, "Remote", j.WorkMode)
	assert.Equal(t, 47, j.Applicants)
	require.NotNil(t, j.PostedOn)
	assert.Equal(t, fixedNow.AddDate(0, 0, -3).Format("2006-01-02"), j.PostedOn.Format("2006-01-02"))
	assert.Equal(t, []string{"python"}, j.Tags)
	assert.Equal(t, fixedNow, j.FirstSeen)
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(WithSeenIndex(dedup.NewMemoryIndex()))
	assert.Error(t, err)
	_, err = New(WithSession(crawltest.Pages()))
	assert.Error(t, err)
}

// failingIn fails every fetch for one location.
type failingIn struct {
	*crawltest.Session
	location string
}

func (f failingIn) FetchPage(ctx context.Context, h crawl.Handle, q domain.SearchQuery, page int) (crawl.Page, error) {
	if q.Dimension.Location == f.location {
		return crawl.Page{}, fmt.Errorf("no cards: %w", crawl.ErrSelectorMismatch)
	}
	return f.Session.FetchPage(ctx, h, q, page)
}

func TestRunBatch(t *testing.T) {
	m := config.Matrix{
		Categories: []config.Category{
			{Name: "software", Keywords: []string{"python", "backend"}},
			{Name: "data", Keywords: []string{"spark", "python"}},
		},
		Locations: []string{"Tunisia", "Lyon", "Remote"},
	}
	s := failingIn{Session: crawltest.Endless(3), location: "Lyon"}
	o, runs := newOrch(t, s, dedup.NewMemoryIndex())

	got, err := o.RunBatch(context.Background(), m, Params{SliceSize: 3, MaxPages: 1, Workers: 2})
	require.NoError(t, err)
	require.Len(t, got, 6)

	for i, r := range got {
		assert.Equal(t, i, r.Query.Index)
		if r.Query.Dimension.Location == "Lyon" {
			assert.Equal(t, domain.RunAbortedByFailure, r.Status)
			assert.Equal(t, "SelectorMismatch", r.Reason)
		} else {
			assert.Equal(t, domain.RunCompleted, r.Status, r.Query.Dimension.String())
		}
	}
	assert.Len(t, runs.saved, 12)
	assert.Equal(t, 6, s.Opened())
}

func TestRunBatchRejectsBadMatrix(t *testing.T) {
	o, _ := newOrch(t, crawltest.Pages(), dedup.NewMemoryIndex())
	_, err := o.RunBatch(context.Background(), config.Matrix{Locations: []string{"Paris"}}, DefaultParams())

	var cerr *config.ConfigError
	require.ErrorAs(t, err, &cerr)
}
