// Package filecache is a JSON-file seen index for setups without a
// database. Entries expire after a retention period.
package filecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"jobcrawl-engine/internal/domain"
	"jobcrawl-engine/internal/logging"
)

const (
	seenFile = "seen_jobs.json"
	runsFile = "runs.jsonl"
)

type seenEntry struct {
	ID        string `json:"id"`
	URL       string `json:"url,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Cache keeps the seen set in memory and rewrites the file on every
// change. A lock file guards the rewrite against a second process.
type Cache struct {
	mu        sync.Mutex
	dir       string
	retention time.Duration
	now       func() time.Time
	log       *logging.Logger
	fl        *flock.Flock

	seen map[string]seenEntry
}

// Open loads dir/seen_jobs.json, dropping entries older than retention.
func Open(dir string, retention time.Duration, log *logging.Logger) (*Cache, error) {
	return open(dir, retention, log, time.Now)
}

func open(dir string, retention time.Duration, log *logging.Logger, now func() time.Time) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	if log == nil {
		log = logging.Nop()
	}
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	c := &Cache{
		dir:       dir,
		retention: retention,
		now:       now,
		log:       log,
		fl:        flock.New(filepath.Join(dir, seenFile+".lock")),
		seen:      map[string]seenEntry{},
	}
	if err := c.load(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Cache) load() error {
	data, err := os.ReadFile(filepath.Join(c.dir, seenFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", seenFile, err)
	}

	var entries []seenEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse %s: %w", seenFile, err)
	}

	cutoff := c.now().Add(-c.retention).UnixMilli()
	for _, e := range entries {
		if e.Timestamp > cutoff {
			c.seen[e.ID] = e
		}
	}
	c.log.Info("[filecache] loaded seen jobs", "kept", len(c.seen), "expired", len(entries)-len(c.seen))
	return nil
}

func (c *Cache) BulkExists(_ context.Context, ids []string) (map[string]struct{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := c.seen[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

func (c *Cache) WriteNew(ctx context.Context, recs []domain.JobRecord) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ts := c.now().UnixMilli()
	var added []string
	for _, r := range recs {
		if _, ok := c.seen[r.ID]; ok {
			continue
		}
		c.seen[r.ID] = seenEntry{ID: r.ID, URL: r.URL, Timestamp: ts}
		added = append(added, r.ID)
	}
	if len(added) == 0 {
		return nil, nil
	}
	if err := c.save(ctx); err != nil {
		for _, id := range added {
			delete(c.seen, id)
		}
		return nil, err
	}
	return added, nil
}

// Len is the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

func (c *Cache) save(ctx context.Context) error {
	ok, err := c.fl.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("lock %s: %w", seenFile, err)
	}
	if !ok {
		return fmt.Errorf("lock %s: not acquired", seenFile)
	}
	defer func() { _ = c.fl.Unlock() }()

	entries := make([]seenEntry, 0, len(c.seen))
	for _, e := range c.seen {
		entries = append(entries, e)
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}

	path := filepath.Join(c.dir, seenFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", seenFile, err)
	}
	return os.Rename(tmp, path)
}

// SaveRun appends the run as one JSON line. Readers keep the last line
// per id.
func (c *Cache) SaveRun(_ context.Context, r domain.BatchRun) error {
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := os.OpenFile(filepath.Join(c.dir, runsFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(b, '\n')); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
