package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"jobcrawl-engine/internal/domain"
)

var ErrNotFound = errors.New("not found")

// SaveRun inserts or replaces the audit record of one run.
func (d *DB) SaveRun(ctx context.Context, r domain.BatchRun) error {
	q, err := json.Marshal(r.Query)
	if err != nil {
		return err
	}
	c := r.Counters
	_, err = d.Pool.ExecContext(ctx, `
INSERT INTO batch_runs (id, source, category, location, language, query, status, reason, error,
  started_at, finished_at, pages, slices, stale_ratio,
  scraped, duplicates, stale, relevant, saved, failed_to_persist, malformed)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  status = excluded.status,
  reason = excluded.reason,
  error = excluded.error,
  finished_at = excluded.finished_at,
  pages = excluded.pages,
  slices = excluded.slices,
  stale_ratio = excluded.stale_ratio,
  scraped = excluded.scraped,
  duplicates = excluded.duplicates,
  stale = excluded.stale,
  relevant = excluded.relevant,
  saved = excluded.saved,
  failed_to_persist = excluded.failed_to_persist,
  malformed = excluded.malformed;`,
		r.ID, r.Source, r.Query.Dimension.Category, r.Query.Dimension.Location, r.Query.Dimension.Language,
		string(q), string(r.Status), r.Reason, r.Error,
		formatTime(r.StartedAt), timePtr(r.FinishedAt), r.Pages, r.Slices, r.StaleRatio,
		c.Scraped, c.Duplicates, c.Stale, c.Relevant, c.Saved, c.FailedToPersist, c.Malformed,
	)
	if err != nil {
		return fmt.Errorf("save run %s: %w", r.ID, err)
	}
	return nil
}

const runColumns = `id, source, query, status, reason, error, started_at, finished_at, pages, slices,
  stale_ratio, scraped, duplicates, stale, relevant, saved, failed_to_persist, malformed`

type ListRunsOpts struct {
	Status string
	Limit  int
}

// ListRuns returns the most recent runs first.
func (d *DB) ListRuns(ctx context.Context, opts ListRunsOpts) ([]domain.BatchRun, error) {
	if opts.Limit <= 0 || opts.Limit > 1000 {
		opts.Limit = 100
	}
	where, args := "", []any{}
	if opts.Status != "" {
		where = "WHERE status = ?"
		args = append(args, opts.Status)
	}
	args = append(args, opts.Limit)

	rows, err := d.Pool.QueryContext(ctx, `SELECT `+runColumns+` FROM batch_runs `+where+`
ORDER BY started_at DESC LIMIT ?;`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.BatchRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (d *DB) GetRun(ctx context.Context, id string) (domain.BatchRun, error) {
	row := d.Pool.QueryRowContext(ctx, `SELECT `+runColumns+` FROM batch_runs WHERE id = ?;`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrNotFound
	}
	return r, err
}

func scanRun(s interface{ Scan(dest ...any) error }) (domain.BatchRun, error) {
	var (
		r             domain.BatchRun
		query, status string
		started       string
		finished      sql.NullString
	)
	c := &r.Counters
	if err := s.Scan(&r.ID, &r.Source, &query, &status, &r.Reason, &r.Error, &started, &finished,
		&r.Pages, &r.Slices, &r.StaleRatio,
		&c.Scraped, &c.Duplicates, &c.Stale, &c.Relevant, &c.Saved, &c.FailedToPersist, &c.Malformed); err != nil {
		return r, err
	}
	_ = json.Unmarshal([]byte(query), &r.Query)
	r.Status = domain.RunStatus(status)
	r.StartedAt = parseTime(started)
	if finished.Valid {
		t := parseTime(finished.String)
		r.FinishedAt = &t
	}
	return r, nil
}
