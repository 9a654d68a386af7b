package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"jobcrawl-engine/internal/domain"
)

// sqlite caps bound parameters per statement
const maxParams = 500

// BulkExists returns the ids already stored.
func (d *DB) BulkExists(ctx context.Context, ids []string) (map[string]struct{}, error) {
	out := make(map[string]struct{}, len(ids))
	for start := 0; start < len(ids); start += maxParams {
		chunk := ids[start:min(start+maxParams, len(ids))]
		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}
		q := `SELECT id FROM jobs WHERE id IN (` + placeholders(len(chunk)) + `);`

		rows, err := d.Pool.QueryContext(ctx, q, args...)
		if err != nil {
			return nil, fmt.Errorf("bulk exists: %w", err)
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, err
			}
			out[id] = struct{}{}
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// WriteNew inserts recs in one transaction, skipping ids already present.
func (d *DB) WriteNew(ctx context.Context, recs []domain.JobRecord) ([]string, error) {
	if len(recs) == 0 {
		return nil, nil
	}
	tx, err := d.Pool.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
INSERT OR IGNORE INTO jobs (id, source, source_id, title, company, location, work_mode, description, url,
  posted_at, posted_on, category, language, query, relevance, tags, seniority, employment_type,
  job_function, industries, applicants, first_seen)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	var added []string
	for _, j := range recs {
		tags, _ := json.Marshal(nonNilTags(j.Tags))
		res, err := stmt.ExecContext(ctx,
			j.ID, j.Source, j.SourceID, j.Title, j.Company, j.Location, j.WorkMode, j.Description, j.URL,
			j.PostedAt, timePtr(j.PostedOn), j.Category, j.Language, j.Query, j.Relevance, string(tags),
			j.Seniority, j.EmploymentType, j.Function, j.Industries, j.Applicants, formatTime(j.FirstSeen),
		)
		if err != nil {
			return nil, fmt.Errorf("insert job %s: %w", j.ID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			added = append(added, j.ID)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return added, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func nonNilTags(t []string) []string {
	if t == nil {
		return []string{}
	}
	return t
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339)
}

func timePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}
