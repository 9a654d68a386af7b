package orchestrator

import (
	"strings"

	"jobcrawl-engine/internal/config"
	"jobcrawl-engine/internal/dedup"
	"jobcrawl-engine/internal/domain"
	"jobcrawl-engine/internal/rank"
	"jobcrawl-engine/internal/util"
)

// buildRecords scores and identifies the records of s. Records with
// neither URL nor title are dropped and counted.
func (o *Orchestrator) buildRecords(s domain.Slice, q domain.SearchQuery, cats []config.Category) ([]domain.JobRecord, int) {
	now := o.clock().UTC()
	out := make([]domain.JobRecord, 0, len(s.Records))
	malformed := 0

	for _, raw := range s.Records {
		if raw.Malformed() {
			malformed++
			continue
		}

		title := util.CleanText(raw.Title)
		desc := util.CleanText(raw.Description)
		text := strings.Join([]string{title, util.CleanText(raw.Company), desc}, " ")
		score, matched := o.scorer.Score(text, q.Keywords)

		j := domain.JobRecord{
			ID:             dedup.CanonicalID(raw),
			Source:         o.source,
			SourceID:       raw.SourceID,
			Title:          title,
			Company:        util.CleanText(raw.Company),
			Location:       util.NormalizeLocation(raw.Location),
			WorkMode:       util.InferWorkMode(raw.Location, raw.Title, raw.Description),
			Description:    desc,
			URL:            raw.URL,
			PostedAt:       strings.TrimSpace(raw.PostedAt),
			Category:       q.Dimension.Category,
			Language:       q.Dimension.Language,
			Query:          q.Text,
			Relevance:      score,
			Tags:           matched,
			Seniority:      util.CleanText(raw.Seniority),
			EmploymentType: util.CleanText(raw.EmploymentType),
			Function:       util.CleanText(raw.Function),
			Industries:     util.CleanText(raw.Industries),
			Applicants:     util.FirstInt(raw.ApplicantCount),
			FirstSeen:      now,
		}
		if u := util.CanonicalURL(raw.URL); u != "" {
			j.URL = u
		}
		if t, ok := util.ParsePostedAt(raw.PostedAt, now); ok {
			j.PostedOn = &t
		}
		if len(cats) > 1 {
			if c, _ := rank.Classify(text, cats); c != "" {
				j.Category = c
			}
		}
		out = append(out, j)
	}
	return out, malformed
}
