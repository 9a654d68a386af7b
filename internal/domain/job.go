package domain

import "time"

// Dimension is one cell of the search matrix.
type Dimension struct {
	Category string `json:"category"`
	Location string `json:"location"`
	Language string `json:"language,omitempty"`
}

func (d Dimension) String() string {
	s := d.Category + "/" + d.Location
	if d.Language != "" {
		s += "/" + d.Language
	}
	return s
}

// SearchQuery is a Dimension plus everything a session needs to run it.
type SearchQuery struct {
	Index     int               `json:"index"`
	Dimension Dimension         `json:"dimension"`
	Keywords  []string          `json:"keywords"`
	Text      string            `json:"text"`
	GeoID     string            `json:"geo_id,omitempty"`
	Filters   map[string]string `json:"filters,omitempty"`
}

// RawRecord is one listing as returned by a crawl session.
type RawRecord struct {
	SourceID       string
	Title          string
	Company        string
	Location       string
	PostedAt       string // timestamp or relative text ("3 days ago")
	Description    string
	URL            string
	Seniority      string
	EmploymentType string
	Function       string
	Industries     string
	ApplicantCount string
}

// Malformed reports whether the record lacks enough data to identify it.
func (r RawRecord) Malformed() bool {
	return trimmedEmpty(r.URL) && trimmedEmpty(r.Title)
}

type Verdict string

const (
	VerdictNew        Verdict = "new"
	VerdictDuplicate  Verdict = "duplicate"
	VerdictIrrelevant Verdict = "irrelevant"
)

type JobRecord struct {
	ID             string     `json:"id"`
	Source         string     `json:"source"`
	SourceID       string     `json:"source_id,omitempty"`
	Title          string     `json:"title"`
	Company        string     `json:"company"`
	Location       string     `json:"location"`
	WorkMode       string     `json:"work_mode"`
	Description    string     `json:"description,omitempty"`
	URL            string     `json:"url"`
	PostedAt       string     `json:"posted_at,omitempty"`
	PostedOn       *time.Time `json:"posted_on,omitempty"`
	Category       string     `json:"category"`
	Language       string     `json:"language,omitempty"`
	Query          string     `json:"query"`
	Relevance      float64    `json:"relevance"`
	Tags           []string   `json:"tags"`
	Seniority      string     `json:"seniority,omitempty"`
	EmploymentType string     `json:"employment_type,omitempty"`
	Function       string     `json:"function,omitempty"`
	Industries     string     `json:"industries,omitempty"`
	Applicants     int        `json:"applicants,omitempty"`
	Verdict        Verdict    `json:"verdict"`
	FirstSeen      time.Time  `json:"first_seen"`
}

func trimmedEmpty(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}

// Slice is a bounded run of records taken from a single page.
type Slice struct {
	Page    int
	Index   int
	Records []RawRecord
}
