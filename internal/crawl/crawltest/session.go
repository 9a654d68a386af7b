// Package crawltest provides a scripted crawl.Session for tests.
package crawltest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"jobcrawl-engine/internal/crawl"
	"jobcrawl-engine/internal/domain"
)

// Response is one scripted answer to FetchPage.
type Response struct {
	Records []domain.RawRecord
	Last    bool
	Err     error
}

// Session replays Script[page] in order; the final response for a page
// repeats once the script runs out. Pages without a script come from Gen,
// or end the results when Gen is nil.
type Session struct {
	Script  map[int][]Response
	Gen     func(page int) (crawl.Page, error)
	OpenErr error

	// Hook runs before every fetch; tests use it to cancel mid-run.
	Hook func(page int)

	mu       sync.Mutex
	requests []int
	served   map[int]int
	opened   int
	closed   int
}

// Pages scripts one successful response per page, the last one marked Last.
func Pages(pages ...[]domain.RawRecord) *Session {
	s := &Session{Script: map[int][]Response{}}
	for i, recs := range pages {
		s.Script[i] = []Response{{Records: recs, Last: i == len(pages)-1}}
	}
	return s
}

// Endless returns a session whose every page is n fresh records.
func Endless(n int) *Session {
	return &Session{Gen: func(page int) (crawl.Page, error) {
		return crawl.Page{Records: Records(fmt.Sprintf("p%d", page), n)}, nil
	}}
}

type handle struct{ s *Session }

func (h handle) Close() error {
	h.s.mu.Lock()
	h.s.closed++
	h.s.mu.Unlock()
	return nil
}

func (s *Session) Open(ctx context.Context, _ crawl.Credentials) (crawl.Handle, error) {
	if s.OpenErr != nil {
		return nil, s.OpenErr
	}
	s.mu.Lock()
	s.opened++
	s.mu.Unlock()
	return handle{s: s}, nil
}

func (s *Session) FetchPage(ctx context.Context, _ crawl.Handle, _ domain.SearchQuery, page int) (crawl.Page, error) {
	if s.Hook != nil {
		s.Hook(page)
	}
	if err := ctx.Err(); err != nil {
		return crawl.Page{}, err
	}

	s.mu.Lock()
	s.requests = append(s.requests, page)
	if s.served == nil {
		s.served = map[int]int{}
	}
	script, ok := s.Script[page]
	n := s.served[page]
	s.served[page]++
	s.mu.Unlock()

	if !ok || len(script) == 0 {
		if s.Gen != nil {
			return s.Gen(page)
		}
		return crawl.Page{Last: true}, nil
	}
	r := script[min(n, len(script)-1)]
	if r.Err != nil {
		return crawl.Page{}, r.Err
	}
	return crawl.Page{Records: r.Records, Last: r.Last}, nil
}

// Requests lists every page index passed to FetchPage, retries included.
func (s *Session) Requests() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.requests...)
}

// MaxPage is the highest page index requested, or -1.
func (s *Session) MaxPage() int {
	m := -1
	for _, p := range s.Requests() {
		m = max(m, p)
	}
	return m
}

func (s *Session) Opened() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened
}

func (s *Session) Closed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Records builds n records with posting ids unique to (prefix, i).
func Records(prefix string, n int) []domain.RawRecord {
	out := make([]domain.RawRecord, n)
	for i := range out {
		id := PostingID(prefix, i)
		out[i] = domain.RawRecord{
			SourceID:    id,
			Title:       fmt.Sprintf("Backend Engineer %s-%d", prefix, i),
			Company:     "Acme",
			Location:    "Tunisia",
			Description: "python backend services",
			URL:         "https://www.linkedin.com/jobs/view/" + id + "/",
		}
	}
	return out
}

// PostingID spells every prefix byte as three digits, then i as five, so
// distinct inputs never share an id.
func PostingID(prefix string, i int) string {
	var b strings.Builder
	b.WriteString("1")
	for _, c := range []byte(prefix) {
		fmt.Fprintf(&b, "%03d", c)
	}
	fmt.Fprintf(&b, "%05d", i)
	return b.String()
}
