package linkedin

import (
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"jobcrawl-engine/internal/domain"
	"jobcrawl-engine/internal/util"
)

var reTrailingID = regexp.MustCompile(`(\d{5,})\D*$`)

// ParseSearchCards extracts one RawRecord per job card. It does not fail
// on zero cards; callers decide whether that means end of results or a
// selector mismatch.
func ParseSearchCards(r io.Reader, sel Selectors) ([]domain.RawRecord, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	return cardsFromDoc(doc, sel), nil
}

func cardsFromDoc(doc *goquery.Document, sel Selectors) []domain.RawRecord {
	var out []domain.RawRecord
	seen := map[string]bool{}

	doc.Find(sel.JobCardContainer).Each(func(_ int, card *goquery.Selection) {
		rec := parseCard(card, sel)
		key := rec.SourceID
		if key == "" {
			key = rec.URL
		}
		if key != "" {
			if seen[key] {
				return
			}
			seen[key] = true
		}
		out = append(out, rec)
	})
	return out
}

func parseCard(card *goquery.Selection, sel Selectors) domain.RawRecord {
	var rec domain.RawRecord

	if sel.JobIDAttr != "" {
		if v, ok := card.Attr(sel.JobIDAttr); ok {
			rec.SourceID = idFrom(v)
		}
	}

	rec.Title = text(card, sel.Title)
	rec.Company = text(card, sel.Company)
	rec.Location = util.NormalizeLocation(text(card, sel.Location))
	rec.PostedAt = postedAt(card, sel.PostedAt)

	href := ""
	if sel.Link != "" {
		href, _ = card.Find(sel.Link).First().Attr("href")
	}
	if href == "" {
		href, _ = card.Attr("href")
	}
	href = absolute(strings.TrimSpace(href))
	if rec.SourceID == "" {
		rec.SourceID = util.LinkedInJobID(href)
	}
	switch {
	case rec.SourceID != "":
		rec.URL = util.LinkedInJobURL(rec.SourceID)
	default:
		rec.URL = util.CanonicalURL(href)
	}

	rec.Seniority = text(card, sel.Seniority)
	rec.EmploymentType = text(card, sel.EmpType)
	rec.Function = text(card, sel.Function)
	rec.Industries = text(card, sel.Industries)
	rec.ApplicantCount = text(card, sel.ApplicantCount)
	return rec
}

// Detail is what a single posting page adds to a card.
type Detail struct {
	Description    string
	Seniority      string
	EmploymentType string
	Function       string
	Industries     string
	ApplicantCount string
}

// ParsePosting reads a posting page (guest fragment or full page).
func ParsePosting(r io.Reader, sel Selectors) (Detail, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Detail{}, err
	}

	d := Detail{
		Description:    text(doc.Selection, sel.Description),
		ApplicantCount: text(doc.Selection, sel.ApplicantCount),
	}

	if sel.CriteriaItem != "" {
		doc.Find(sel.CriteriaItem).Each(func(_ int, item *goquery.Selection) {
			label := strings.ToLower(util.CleanText(item.Find("h3").First().Text()))
			val := util.CleanText(item.Find("span").First().Text())
			if val == "" {
				return
			}
			switch {
			case strings.Contains(label, "seniority"):
				d.Seniority = val
			case strings.Contains(label, "employment"):
				d.EmploymentType = val
			case strings.Contains(label, "function"):
				d.Function = val
			case strings.Contains(label, "industr"):
				d.Industries = val
			}
		})
	}
	return d, nil
}

// Apply copies non-empty detail fields into rec.
func (d Detail) Apply(rec *domain.RawRecord) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&rec.Description, d.Description)
	set(&rec.Seniority, d.Seniority)
	set(&rec.EmploymentType, d.EmploymentType)
	set(&rec.Function, d.Function)
	set(&rec.Industries, d.Industries)
	set(&rec.ApplicantCount, d.ApplicantCount)
}

// HasLoginWall reports whether the document shows the sign-in wall.
func HasLoginWall(doc *goquery.Document, sel Selectors) bool {
	if sel.LoginWall == "" {
		return false
	}
	return doc.Find(sel.LoginWall).Length() > 0
}

func text(s *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return util.CleanText(s.Find(selector).First().Text())
}

func postedAt(card *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	t := card.Find(selector).First()
	if v, ok := t.Attr("datetime"); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return util.CleanText(t.Text())
}

func idFrom(v string) string {
	v = strings.TrimSpace(v)
	if m := reTrailingID.FindStringSubmatch(v); len(m) == 2 {
		return m[1]
	}
	return ""
}

func absolute(href string) string {
	if href == "" || strings.HasPrefix(href, "http") {
		return href
	}
	return "https://www.linkedin.com" + href
}
