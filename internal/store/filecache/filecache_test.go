package filecache

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobcrawl-engine/internal/domain"
)

func TestCachePersistsAcrossOpens(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	c, err := Open(dir, 0, nil)
	require.NoError(t, err)
	added, err := c.WriteNew(ctx, []domain.JobRecord{{ID: "a"}, {ID: "b"}, {ID: "a"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, added)

	again, err := Open(dir, 0, nil)
	require.NoError(t, err)
	got, err := again.BulkExists(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	added, err = again.WriteNew(ctx, []domain.JobRecord{{ID: "b"}})
	require.NoError(t, err)
	assert.Empty(t, added)
}

func TestCacheDropsExpiredEntries(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	c, err := open(dir, 7*24*time.Hour, nil, func() time.Time { return now })
	require.NoError(t, err)
	_, err = c.WriteNew(ctx, []domain.JobRecord{{ID: "old"}})
	require.NoError(t, err)

	later := now.Add(3 * 24 * time.Hour)
	c, err = open(dir, 7*24*time.Hour, nil, func() time.Time { return later })
	require.NoError(t, err)
	_, err = c.WriteNew(ctx, []domain.JobRecord{{ID: "new"}})
	require.NoError(t, err)

	c, err = open(dir, 7*24*time.Hour, nil, func() time.Time { return now.Add(8 * 24 * time.Hour) })
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())
	got, _ := c.BulkExists(ctx, []string{"old", "new"})
	assert.Equal(t, map[string]struct{}{"new": {}}, got)
}

func TestCacheRejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, seenFile), []byte("{not json"), 0o644))
	_, err := Open(dir, 0, nil)
	assert.Error(t, err)
}

func TestSaveRunAppends(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c, err := Open(dir, 0, nil)
	require.NoError(t, err)

	run := domain.BatchRun{ID: "r1", Status: domain.RunRunning}
	require.NoError(t, c.SaveRun(ctx, run))
	run.Status = domain.RunCompleted
	require.NoError(t, c.SaveRun(ctx, run))

	f, err := os.Open(filepath.Join(dir, runsFile))
	require.NoError(t, err)
	defer f.Close()

	var statuses []domain.RunStatus
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r domain.BatchRun
		require.NoError(t, json.Unmarshal(sc.Bytes(), &r))
		statuses = append(statuses, r.Status)
	}
	assert.Equal(t, []domain.RunStatus{domain.RunRunning, domain.RunCompleted}, statuses)
}
