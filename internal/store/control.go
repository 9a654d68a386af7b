package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Service states.
const (
	ServiceActive = "active"
	ServicePaused = "paused"
)

// Scraper states.
const (
	ScraperIdle    = "idle"
	ScraperRunning = "running"
	ScraperPaused  = "paused"
	ScraperError   = "error"
)

type ScraperStatus struct {
	Name         string     `json:"name"`
	Status       string     `json:"status"`
	LastRun      *time.Time `json:"last_run,omitempty"`
	LastSuccess  *time.Time `json:"last_success,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	JobsScraped  int        `json:"jobs_scraped"`
}

// Control is the pause switch and per-scraper bookkeeping.
type Control struct {
	db *sql.DB
}

func NewControl(db *DB) *Control { return &Control{db: db.Pool} }

func (c *Control) ServiceState(ctx context.Context) (string, error) {
	var s string
	err := c.db.QueryRowContext(ctx, `SELECT state FROM service_status WHERE id = 1;`).Scan(&s)
	if err == sql.ErrNoRows {
		return ServiceActive, nil
	}
	return s, err
}

func (c *Control) SetServiceState(ctx context.Context, state string) error {
	if state != ServiceActive && state != ServicePaused {
		return fmt.Errorf("unknown service state %q", state)
	}
	_, err := c.db.ExecContext(ctx, `
INSERT INTO service_status(id, state, updated_at) VALUES (1, ?, ?)
ON CONFLICT(id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at;`,
		state, time.Now().UTC().Format(time.RFC3339))
	return err
}

// Mark records a state change for scraper name. Running stamps last_run,
// idle stamps last_success, and error keeps msg.
func (c *Control) Mark(ctx context.Context, name, status, msg string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	var lastRun, lastSuccess any
	switch status {
	case ScraperRunning:
		lastRun = now
	case ScraperIdle:
		lastSuccess = now
	}
	_, err := c.db.ExecContext(ctx, `
INSERT INTO scraper_status(name, status, last_run, last_success, error_message)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
  status = excluded.status,
  last_run = COALESCE(excluded.last_run, scraper_status.last_run),
  last_success = COALESCE(excluded.last_success, scraper_status.last_success),
  error_message = excluded.error_message;`,
		name, status, lastRun, lastSuccess, msg)
	if err != nil {
		return fmt.Errorf("mark scraper %s: %w", name, err)
	}
	return nil
}

// AddScraped bumps the saved-jobs counter of name.
func (c *Control) AddScraped(ctx context.Context, name string, n int) error {
	if n <= 0 {
		return nil
	}
	_, err := c.db.ExecContext(ctx, `
INSERT INTO scraper_status(name, jobs_scraped) VALUES (?, ?)
ON CONFLICT(name) DO UPDATE SET jobs_scraped = scraper_status.jobs_scraped + excluded.jobs_scraped;`,
		name, n)
	return err
}

func (c *Control) Scrapers(ctx context.Context) ([]ScraperStatus, error) {
	rows, err := c.db.QueryContext(ctx, `
SELECT name, status, last_run, last_success, error_message, jobs_scraped
FROM scraper_status ORDER BY name;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ScraperStatus
	for rows.Next() {
		var s ScraperStatus
		var lastRun, lastSuccess sql.NullString
		if err := rows.Scan(&s.Name, &s.Status, &lastRun, &lastSuccess, &s.ErrorMessage, &s.JobsScraped); err != nil {
			return nil, err
		}
		s.LastRun = nullTime(lastRun)
		s.LastSuccess = nullTime(lastSuccess)
		out = append(out, s)
	}
	return out, rows.Err()
}

func nullTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t := parseTime(s.String)
	return &t
}
