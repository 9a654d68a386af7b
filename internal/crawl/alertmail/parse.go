package alertmail

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"jobcrawl-engine/internal/domain"
	"jobcrawl-engine/internal/util"
)

var reSalary = regexp.MustCompile(`[$€£]\s?\d[\d,.]*\s*[KkMm]?`)

// ParseAlertHTML extracts the postings of a LinkedIn job-alert email.
// Several anchors usually point at one posting (logo, title, "view
// job"); they are merged by posting id and the best title wins.
func ParseAlertHTML(htmlBody string) ([]domain.RawRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlBody))
	if err != nil {
		return nil, err
	}

	byKey := map[string]*domain.RawRecord{}
	var order []string

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		jobURL := unwrapRedirect(strings.TrimSpace(href))
		lh := strings.ToLower(jobURL)
		if !strings.Contains(lh, "linkedin.com") || !strings.Contains(lh, "/jobs/view/") {
			return
		}

		id := util.LinkedInJobID(jobURL)
		key := id
		if key == "" {
			key = util.CanonicalURL(jobURL)
		}
		rec, ok := byKey[key]
		if !ok {
			rec = &domain.RawRecord{SourceID: id, URL: util.CanonicalURL(jobURL)}
			if id != "" {
				rec.URL = util.LinkedInJobURL(id)
			}
			byKey[key] = rec
			order = append(order, key)
		}

		if cand := cleanTitle(a.Text()); betterTitle(cand, rec.Title) {
			rec.Title = cand
		}

		card := a.Closest("table")
		if card.Length() == 0 {
			card = a.Parent()
		}
		card.Find("p").Each(func(_ int, p *goquery.Selection) {
			t := util.CleanText(p.Text())
			if t == "" {
				return
			}
			if rec.Company == "" && strings.Contains(t, " · ") {
				parts := strings.SplitN(t, " · ", 2)
				rec.Company = strings.TrimSpace(parts[0])
				rec.Location = util.NormalizeLocation(parts[1])
				return
			}
			if cand := cleanTitle(t); betterTitle(cand, rec.Title) {
				rec.Title = cand
			}
		})
	})

	out := make([]domain.RawRecord, 0, len(order))
	for _, k := range order {
		if r := byKey[k]; strings.TrimSpace(r.Title) != "" {
			out = append(out, *r)
		}
	}
	return out, nil
}

// looksLikeAlert filters out mail that merely mentions LinkedIn.
func looksLikeAlert(from, subject, body string, subjectAny []string) bool {
	if len(subjectAny) > 0 && !containsAnyFold(subject, subjectAny) {
		return false
	}
	f := strings.ToLower(from)
	b := strings.ToLower(body)
	hasJobs := strings.Contains(b, "linkedin.com/comm/jobs/view") || strings.Contains(b, "linkedin.com/jobs/view")
	if strings.Contains(f, "jobalerts-noreply") || strings.Contains(f, "jobs-noreply") {
		return hasJobs
	}
	return hasJobs && len(subjectAny) > 0
}

func unwrapRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if raw := u.Query().Get("url"); raw != "" {
		if uu, err := url.Parse(raw); err == nil && uu.Host != "" {
			return uu.String()
		}
	}
	if strings.Contains(strings.ToLower(u.Host), "google.") && strings.HasPrefix(u.Path, "/url") {
		if q := u.Query().Get("q"); q != "" {
			if uu, err := url.Parse(q); err == nil && uu.Host != "" {
				return uu.String()
			}
		}
	}
	return u.String()
}

func cleanTitle(s string) string {
	s = util.CleanText(s)
	for _, junk := range []string{"Actively recruiting", "Easy Apply", "Promoted"} {
		s = strings.ReplaceAll(s, junk, "")
	}
	s = util.CleanText(s)
	low := strings.ToLower(s)
	for _, bad := range []string{"alumni", "connections", "applicants", "school", "unsubscribe", "see all jobs", "view job"} {
		if strings.Contains(low, bad) {
			return ""
		}
	}
	if strings.Contains(s, " · ") || reSalary.MatchString(s) {
		return ""
	}
	return s
}

// betterTitle only replaces a title with a clearly better candidate so
// the logo anchor (empty text) never wins over the title anchor.
func betterTitle(candidate, current string) bool {
	if candidate == "" {
		return false
	}
	if current == "" {
		return titleScore(candidate) >= 3
	}
	return titleScore(candidate) >= titleScore(current)+3
}

func titleScore(s string) int {
	l := strings.ToLower(s)
	score := 0
	n := len([]rune(s))
	switch {
	case n >= 6 && n <= 80:
		score += 2
	case n < 4 || n > 140:
		score -= 6
	}
	if strings.Contains(l, "http") || strings.Contains(l, "www.") {
		score -= 30
	}
	for _, w := range []string{"engineer", "developer", "developpeur", "ingenieur", "data", "devops", "analyst", "scientist", "architect", "manager", "lead", "intern", "stage"} {
		if strings.Contains(util.Fold(l), w) {
			score += 4
			break
		}
	}
	for _, cta := range []string{"apply", "see more", "sign in", "learn more"} {
		if strings.Contains(l, cta) {
			score -= 6
		}
	}
	if strings.HasSuffix(s, ".") {
		score -= 4
	}
	return score
}

func containsAnyFold(s string, any []string) bool {
	ls := util.Fold(s)
	for _, a := range any {
		if a = util.Fold(a); a != "" && strings.Contains(ls, a) {
			return true
		}
	}
	return false
}
