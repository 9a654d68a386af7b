package dedup

import (
	"context"
	"sync"

	"jobcrawl-engine/internal/domain"
)

// MemoryIndex is an in-process SeenIndex, for tests and dry runs.
type MemoryIndex struct {
	mu   sync.Mutex
	recs map[string]domain.JobRecord
}

func NewMemoryIndex(ids ...string) *MemoryIndex {
	m := &MemoryIndex{recs: map[string]domain.JobRecord{}}
	for _, id := range ids {
		m.recs[id] = domain.JobRecord{ID: id}
	}
	return m
}

func (m *MemoryIndex) BulkExists(_ context.Context, ids []string) (map[string]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]struct{}{}
	for _, id := range ids {
		if _, ok := m.recs[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

func (m *MemoryIndex) WriteNew(_ context.Context, recs []domain.JobRecord) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var added []string
	for _, r := range recs {
		if _, ok := m.recs[r.ID]; ok {
			continue
		}
		m.recs[r.ID] = r
		added = append(added, r.ID)
	}
	return added, nil
}

func (m *MemoryIndex) Has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.recs[id]
	return ok
}

func (m *MemoryIndex) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.recs)
}
