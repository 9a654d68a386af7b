package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"jobcrawl-engine/internal/domain"
)

type ListJobsOpts struct {
	Sort     string // relevance | date | company | title
	Window   string // 24h | 7d | all
	Category string
	Limit    int
}

func ListJobs(ctx context.Context, db *sql.DB, opts ListJobsOpts) ([]domain.JobRecord, error) {
	if opts.Sort == "" {
		opts.Sort = "date"
	}
	if opts.Window == "" {
		opts.Window = "7d"
	}
	if opts.Limit <= 0 || opts.Limit > 2000 {
		opts.Limit = 500
	}

	// whitelist sort columns (prevents SQL injection)
	order := map[string]string{
		"relevance": "relevance DESC",
		"date":      "first_seen DESC",
		"company":   "company ASC",
		"title":     "title ASC",
	}[opts.Sort]
	if order == "" {
		order = "first_seen DESC"
	}

	var conds []string
	var args []any
	switch opts.Window {
	case "24h":
		conds = append(conds, "first_seen >= ?")
		args = append(args, time.Now().Add(-24*time.Hour).UTC().Format(time.RFC3339))
	case "all":
	default:
		conds = append(conds, "first_seen >= ?")
		args = append(args, time.Now().AddDate(0, 0, -7).UTC().Format(time.RFC3339))
	}
	if opts.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, opts.Category)
	}
	where := ""
	for i, c := range conds {
		if i == 0 {
			where = "WHERE " + c
		} else {
			where += " AND " + c
		}
	}
	args = append(args, opts.Limit)

	query := fmt.Sprintf(`
SELECT id, source, source_id, title, company, location, work_mode, description, url, posted_at, posted_on,
  category, language, query, relevance, tags, seniority, employment_type, job_function, industries,
  applicants, first_seen
FROM jobs
%s
ORDER BY %s
LIMIT ?;
`, where, order)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.JobRecord
	for rows.Next() {
		var (
			j         domain.JobRecord
			postedOn  sql.NullString
			tagsJSON  string
			firstSeen string
		)
		if err := rows.Scan(&j.ID, &j.Source, &j.SourceID, &j.Title, &j.Company, &j.Location, &j.WorkMode,
			&j.Description, &j.URL, &j.PostedAt, &postedOn, &j.Category, &j.Language, &j.Query, &j.Relevance,
			&tagsJSON, &j.Seniority, &j.EmploymentType, &j.Function, &j.Industries, &j.Applicants, &firstSeen,
		); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(tagsJSON), &j.Tags)
		if postedOn.Valid {
			t := parseTime(postedOn.String)
			j.PostedOn = &t
		}
		j.FirstSeen = parseTime(firstSeen)
		j.Verdict = domain.VerdictNew
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CleanupOldJobs drops postings first seen before the cutoff. Their ids
// leave the seen index too, so they may be collected again.
func CleanupOldJobs(ctx context.Context, db *sql.DB, olderThan time.Duration) (deleted int64, err error) {
	cutoff := time.Now().Add(-olderThan).UTC().Format(time.RFC3339)
	res, err := db.ExecContext(ctx, `DELETE FROM jobs WHERE first_seen < ?;`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup old jobs: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func DeleteJob(ctx context.Context, db *sql.DB, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?;`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
