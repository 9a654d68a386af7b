package dedup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobcrawl-engine/internal/domain"
)

func TestCanonicalIDDeterministic(t *testing.T) {
	r := domain.RawRecord{
		Title: "Backend Engineer", Company: "Acme",
		URL: "https://www.linkedin.com/jobs/view/3901234567/?trk=public_jobs",
	}
	id := CanonicalID(r)
	assert.Len(t, id, 16)
	for i := 0; i < 10; i++ {
		assert.Equal(t, id, CanonicalID(r))
	}

	same := r
	same.URL = "https://fr.linkedin.com/jobs/view/backend-engineer-at-acme-3901234567?refId=x"
	same.Description = "changed text"
	assert.Equal(t, id, CanonicalID(same), "tracking params and slugs must not change identity")

	noURL := domain.RawRecord{Title: " Data Engineer ", Company: "ACME", Location: "Paris", PostedAt: "2024-05-01"}
	other := domain.RawRecord{Title: "data engineer", Company: "acme", Location: "paris ", PostedAt: "2024-05-01"}
	assert.Equal(t, CanonicalID(noURL), CanonicalID(other))

	other.Location = "Lyon"
	assert.NotEqual(t, CanonicalID(noURL), CanonicalID(other))
}

func TestCanonicalIDShortSlugNumbers(t *testing.T) {
	a := domain.RawRecord{Title: "Backend Engineer", URL: "https://www.linkedin.com/jobs/view/a-0/"}
	b := domain.RawRecord{Title: "Backend Engineer", URL: "https://www.linkedin.com/jobs/view/b-0/"}
	assert.NotEqual(t, CanonicalID(a), CanonicalID(b))

	l2 := domain.RawRecord{URL: "https://www.linkedin.com/jobs/view/engineer-level-2/"}
	l3 := domain.RawRecord{URL: "https://www.linkedin.com/jobs/view/designer-level-2/"}
	assert.NotEqual(t, CanonicalID(l2), CanonicalID(l3))
}

func job(id string, rel float64) domain.JobRecord {
	return domain.JobRecord{ID: id, Title: id, Relevance: rel}
}

func TestGateVerdicts(t *testing.T) {
	idx := NewMemoryIndex("a")
	g := &Gate{Index: idx}

	recs := []domain.JobRecord{job("a", 1), job("b", 0.9), job("b", 0.9), job("c", 0.1), job("d", 0.5)}
	out, err := g.Process(context.Background(), recs, 0.3)
	require.NoError(t, err)

	assert.Equal(t, 5, out.Processed)
	assert.Equal(t, 2, out.Duplicates)
	assert.Equal(t, 1, out.Irrelevant)
	assert.Equal(t, 2, out.Saved)
	assert.Equal(t, 3, out.Stale())

	verdicts := []domain.Verdict{}
	for _, r := range recs {
		verdicts = append(verdicts, r.Verdict)
	}
	assert.Equal(t, []domain.Verdict{
		domain.VerdictDuplicate, domain.VerdictNew, domain.VerdictDuplicate,
		domain.VerdictIrrelevant, domain.VerdictNew,
	}, verdicts)

	assert.True(t, idx.Has("b"))
	assert.True(t, idx.Has("d"))
	assert.False(t, idx.Has("c"))
}

func TestGateNeverPersistsKnownIDs(t *testing.T) {
	idx := &recordingIndex{MemoryIndex: NewMemoryIndex("x", "y")}
	g := &Gate{Index: idx}

	_, err := g.Process(context.Background(), []domain.JobRecord{job("x", 1), job("y", 1), job("z", 1)}, 0)
	require.NoError(t, err)
	require.Len(t, idx.written, 1)
	assert.Equal(t, "z", idx.written[0].ID)
	assert.Equal(t, 1, idx.bulkCalls)
}

func TestGateRetriesWrites(t *testing.T) {
	idx := &recordingIndex{MemoryIndex: NewMemoryIndex(), writeFailures: 2}
	g := &Gate{Index: idx, Retries: 3, sleep: func(context.Context, time.Duration) error { return nil }}

	out, err := g.Process(context.Background(), []domain.JobRecord{job("a", 1), job("b", 1)}, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Saved)
	assert.Zero(t, out.FailedToPersist)
	assert.Equal(t, 3, idx.writeCalls)
}

func TestGateCountsFailedToPersist(t *testing.T) {
	idx := &recordingIndex{MemoryIndex: NewMemoryIndex(), writeFailures: 100}
	g := &Gate{Index: idx, Retries: 2, sleep: func(context.Context, time.Duration) error { return nil }}

	out, err := g.Process(context.Background(), []domain.JobRecord{job("a", 1), job("b", 1), job("c", 0)}, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 2, out.FailedToPersist)
	assert.Zero(t, out.Saved)
	assert.Equal(t, 3, idx.writeCalls)
	assert.Zero(t, idx.Len())
}

func TestGateReadFailureEscalates(t *testing.T) {
	idx := &recordingIndex{MemoryIndex: NewMemoryIndex(), readErr: errors.New("db down")}
	g := &Gate{Index: idx, Retries: 1, sleep: func(context.Context, time.Duration) error { return nil }}

	_, err := g.Process(context.Background(), []domain.JobRecord{job("a", 1)}, 0)
	require.ErrorIs(t, err, ErrStoreRead)
	assert.Equal(t, 2, idx.bulkCalls)
	assert.Zero(t, idx.writeCalls)
}

func TestGateLostRaceCountsAsDuplicate(t *testing.T) {
	idx := &recordingIndex{MemoryIndex: NewMemoryIndex()}
	idx.beforeWrite = func() { _, _ = idx.MemoryIndex.WriteNew(context.Background(), []domain.JobRecord{job("a", 1)}) }
	g := &Gate{Index: idx}

	recs := []domain.JobRecord{job("a", 1), job("b", 1)}
	out, err := g.Process(context.Background(), recs, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Saved)
	assert.Equal(t, 1, out.Duplicates)
	assert.Equal(t, 1, out.Relevant)

	require.Len(t, out.Written, 1, "only rows this call inserted are reported")
	assert.Equal(t, "b", out.Written[0].ID)
	assert.Equal(t, domain.VerdictDuplicate, recs[0].Verdict)
	assert.Equal(t, domain.VerdictNew, recs[1].Verdict)
}

type recordingIndex struct {
	*MemoryIndex
	readErr       error
	writeFailures int
	beforeWrite   func()

	bulkCalls  int
	writeCalls int
	written    []domain.JobRecord
}

func (r *recordingIndex) BulkExists(ctx context.Context, ids []string) (map[string]struct{}, error) {
	r.bulkCalls++
	if r.readErr != nil {
		return nil, r.readErr
	}
	return r.MemoryIndex.BulkExists(ctx, ids)
}

func (r *recordingIndex) WriteNew(ctx context.Context, recs []domain.JobRecord) ([]string, error) {
	r.writeCalls++
	if r.writeFailures > 0 {
		r.writeFailures--
		return nil, errors.New("disk I/O error")
	}
	if r.beforeWrite != nil {
		r.beforeWrite()
	}
	r.written = append(r.written, recs...)
	return r.MemoryIndex.WriteNew(ctx, recs)
}
