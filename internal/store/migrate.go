package store

import (
	"database/sql"
	"fmt"
)

// migrations[i] moves the schema from user_version i to i+1.
var migrations = [][]string{
	{
		`CREATE TABLE IF NOT EXISTS jobs (
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
  posted_on TEXT,
  category TEXT NOT NULL DEFAULT '',
  language TEXT NOT NULL DEFAULT '',
  query TEXT NOT NULL DEFAULT '',
  relevance REAL NOT NULL DEFAULT 0,
  tags TEXT NOT NULL DEFAULT '[]',
  seniority TEXT NOT NULL DEFAULT '',
  employment_type TEXT NOT NULL DEFAULT '',
  job_function TEXT NOT NULL DEFAULT '',
  industries TEXT NOT NULL DEFAULT '',
  applicants INTEGER NOT NULL DEFAULT 0,
  first_seen TEXT NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_first_seen ON jobs(first_seen);`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_category ON jobs(category);`,
		`CREATE TABLE IF NOT EXISTS batch_runs (
  id TEXT PRIMARY KEY,
  source TEXT NOT NULL,
  category TEXT NOT NULL,
  location TEXT NOT NULL,
  language TEXT NOT NULL DEFAULT '',
  query TEXT NOT NULL,
  status TEXT NOT NULL,
  reason TEXT NOT NULL DEFAULT '',
  error TEXT NOT NULL DEFAULT '',
  started_at TEXT NOT NULL,
  finished_at TEXT,
  pages INTEGER NOT NULL DEFAULT 0,
  slices INTEGER NOT NULL DEFAULT 0,
  stale_ratio REAL NOT NULL DEFAULT 0,
  scraped INTEGER NOT NULL DEFAULT 0,
  duplicates INTEGER NOT NULL DEFAULT 0,
  stale INTEGER NOT NULL DEFAULT 0,
  relevant INTEGER NOT NULL DEFAULT 0,
  saved INTEGER NOT NULL DEFAULT 0,
  failed_to_persist INTEGER NOT NULL DEFAULT 0,
  malformed INTEGER NOT NULL DEFAULT 0
);`,
		`CREATE INDEX IF NOT EXISTS idx_batch_runs_started ON batch_runs(started_at);`,
		`CREATE TABLE IF NOT EXISTS scraper_status (
  name TEXT PRIMARY KEY,
  status TEXT NOT NULL DEFAULT 'idle',
  last_run TEXT,
  last_success TEXT,
  error_message TEXT NOT NULL DEFAULT '',
  jobs_scraped INTEGER NOT NULL DEFAULT 0
);`,
		`CREATE TABLE IF NOT EXISTS service_status (
  id INTEGER PRIMARY KEY CHECK (id = 1),
  state TEXT NOT NULL,
  updated_at TEXT NOT NULL
);`,
		`INSERT OR IGNORE INTO service_status(id, state, updated_at) VALUES (1, 'active', datetime('now'));`,
	},
}

// SchemaVersion is the user_version Migrate leaves behind.
var SchemaVersion = len(migrations)

func Migrate(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}

	for ; v < len(migrations); v++ {
		for _, stmt := range migrations[v] {
			if _, err := tx.Exec(stmt); err != nil {
				return fmt.Errorf("schema v%d: %w", v+1, err)
			}
		}
		// PRAGMA does not take bind parameters
		if _, err := tx.Exec(fmt.Sprintf(`PRAGMA user_version = %d;`, v+1)); err != nil {
			return err
		}
	}

	return tx.Commit()
}
