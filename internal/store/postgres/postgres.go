// Package postgres is the shared-database variant of the seen index and
// run audit log, for deployments running several engines.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobcrawl-engine/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
  id TEXT PRIMARY KEY,
  source TEXT NOT NULL DEFAULT '',
  source_id TEXT NOT NULL DEFAULT '',
  title TEXT NOT NULL,
  company TEXT NOT NULL DEFAULT '',
  location TEXT NOT NULL DEFAULT '',
  work_mode TEXT NOT NULL DEFAULT 'Unknown',
  description TEXT NOT NULL DEFAULT '',
  url TEXT NOT NULL DEFAULT '',
  posted_at TEXT NOT NULL DEFAULT '',
  posted_on TIMESTAMPTZ,
  category TEXT NOT NULL DEFAULT '',
  language TEXT NOT NULL DEFAULT '',
  query TEXT NOT NULL DEFAULT '',
  relevance DOUBLE PRECISION NOT NULL DEFAULT 0,
  tags JSONB NOT NULL DEFAULT '[]',
  seniority TEXT NOT NULL DEFAULT '',
  employment_type TEXT NOT NULL DEFAULT '',
  job_function TEXT NOT NULL DEFAULT '',
  industries TEXT NOT NULL DEFAULT '',
  applicants INTEGER NOT NULL DEFAULT 0,
  first_seen TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_jobs_first_seen ON jobs(first_seen);
CREATE TABLE IF NOT EXISTS batch_runs (
  id TEXT PRIMARY KEY,
  source TEXT NOT NULL,
  query JSONB NOT NULL,
  status TEXT NOT NULL,
  reason TEXT NOT NULL DEFAULT '',
  error TEXT NOT NULL DEFAULT '',
  started_at TIMESTAMPTZ NOT NULL,
  finished_at TIMESTAMPTZ,
  pages INTEGER NOT NULL DEFAULT 0,
  slices INTEGER NOT NULL DEFAULT 0,
  stale_ratio DOUBLE PRECISION NOT NULL DEFAULT 0,
  counters JSONB NOT NULL DEFAULT '{}'
);`

type Store struct {
	pool *pgxpool.Pool
}

// Connect opens a pool and creates the tables if needed. viaBouncer
// switches to the simple protocol for transaction-mode poolers.
func Connect(ctx context.Context, dsn string, maxConns int, viaBouncer bool) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database url: %w", err)
	}
	if maxConns <= 0 {
		maxConns = 4
	}
	cfg.MaxConns = int32(maxConns)
	cfg.MaxConnLifetime = time.Hour
	if viaBouncer {
		cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) BulkExists(ctx context.Context, ids []string) (map[string]struct{}, error) {
	out := make(map[string]struct{}, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.pool.Query(ctx, `SELECT id FROM jobs WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("bulk exists: %w", err)
	}
	found, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("bulk exists: %w", err)
	}
	for _, id := range found {
		out[id] = struct{}{}
	}
	return out, nil
}

// WriteNew queues one insert per record in a single batch; ON CONFLICT
// makes concurrent writers of the same id harmless.
func (s *Store) WriteNew(ctx context.Context, recs []domain.JobRecord) ([]string, error) {
	if len(recs) == 0 {
		return nil, nil
	}
	b := &pgx.Batch{}
	for _, j := range recs {
		tags := j.Tags
		if tags == nil {
			tags = []string{}
		}
		b.Queue(`
INSERT INTO jobs (id, source, source_id, title, company, location, work_mode, description, url,
  posted_at, posted_on, category, language, query, relevance, tags, seniority, employment_type,
  job_function, industries, applicants, first_seen)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)
ON CONFLICT (id) DO NOTHING`,
			j.ID, j.Source, j.SourceID, j.Title, j.Company, j.Location, j.WorkMode, j.Description, j.URL,
			j.PostedAt, j.PostedOn, j.Category, j.Language, j.Query, j.Relevance, tags, j.Seniority,
			j.EmploymentType, j.Function, j.Industries, j.Applicants, firstSeen(j.FirstSeen),
		)
	}

	br := s.pool.SendBatch(ctx, b)
	var added []string
	for _, j := range recs {
		tag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return added, fmt.Errorf("insert jobs: %w", err)
		}
		if tag.RowsAffected() > 0 {
			added = append(added, j.ID)
		}
	}
	if err := br.Close(); err != nil {
		return added, err
	}
	return added, nil
}

func (s *Store) SaveRun(ctx context.Context, r domain.BatchRun) error {
	q, err := json.Marshal(r.Query)
	if err != nil {
		return err
	}
	c, err := json.Marshal(r.Counters)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO batch_runs (id, source, query, status, reason, error, started_at, finished_at, pages, slices, stale_ratio, counters)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (id) DO UPDATE SET
  status = EXCLUDED.status, reason = EXCLUDED.reason, error = EXCLUDED.error,
  finished_at = EXCLUDED.finished_at, pages = EXCLUDED.pages, slices = EXCLUDED.slices,
  stale_ratio = EXCLUDED.stale_ratio, counters = EXCLUDED.counters`,
		r.ID, r.Source, q, string(r.Status), r.Reason, r.Error, r.StartedAt, r.FinishedAt,
		r.Pages, r.Slices, r.StaleRatio, c,
	)
	if err != nil {
		return fmt.Errorf("save run %s: %w", r.ID, err)
	}
	return nil
}

func (s *Store) ListRuns(ctx context.Context, limit int) ([]domain.BatchRun, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
SELECT id, source, query, status, reason, error, started_at, finished_at, pages, slices, stale_ratio, counters
FROM batch_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.BatchRun
	for rows.Next() {
		var (
			r        domain.BatchRun
			q, c     []byte
			status   string
			finished *time.Time
		)
		if err := rows.Scan(&r.ID, &r.Source, &q, &status, &r.Reason, &r.Error, &r.StartedAt, &finished,
			&r.Pages, &r.Slices, &r.StaleRatio, &c); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(q, &r.Query)
		_ = json.Unmarshal(c, &r.Counters)
		r.Status = domain.RunStatus(status)
		r.FinishedAt = finished
		out = append(out, r)
	}
	return out, rows.Err()
}

func firstSeen(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
