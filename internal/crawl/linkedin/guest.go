package linkedin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"jobcrawl-engine/internal/crawl"
	"jobcrawl-engine/internal/domain"
	"jobcrawl-engine/internal/logging"
	"jobcrawl-engine/internal/matrix"
)

const (
	DefaultBaseURL = "https://www.linkedin.com"
	guestSearch    = "/jobs-guest/jobs/api/seeMoreJobPostings/search"
	guestPosting   = "/jobs-guest/jobs/api/jobPosting/"
	guestPageSize  = 10
	maxBody        = 4 << 20
)

type GuestOptions struct {
	BaseURL      string
	Selectors    Selectors
	Limiter      *crawl.HostLimiter
	UserAgent    string
	Timeout      time.Duration
	PageSize     int
	FetchDetails bool
	Log          *logging.Logger
}

// GuestSession crawls the public jobs-guest endpoints over plain HTTP.
type GuestSession struct {
	opts GuestOptions
}

func NewGuest(opts GuestOptions) *GuestSession {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.Selectors.JobCardContainer == "" {
		opts.Selectors = GuestSelectors()
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Mozilla/5.0"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.PageSize <= 0 {
		opts.PageSize = guestPageSize
	}
	if opts.Log == nil {
		opts.Log = logging.Nop()
	}
	return &GuestSession{opts: opts}
}

type guestHandle struct {
	hc *http.Client
}

func (h *guestHandle) Close() error {
	h.hc.CloseIdleConnections()
	return nil
}

func (s *GuestSession) Open(ctx context.Context, creds crawl.Credentials) (crawl.Handle, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	if len(creds.Cookies) > 0 {
		u, _ := url.Parse(s.opts.BaseURL)
		var cs []*http.Cookie
		for _, c := range creds.Cookies {
			cs = append(cs, toHTTP(c))
		}
		jar.SetCookies(u, cs)
	}
	return &guestHandle{hc: &http.Client{Jar: jar, Timeout: s.opts.Timeout}}, nil
}

func (s *GuestSession) FetchPage(ctx context.Context, h crawl.Handle, q domain.SearchQuery, page int) (crawl.Page, error) {
	gh, ok := h.(*guestHandle)
	if !ok {
		return crawl.Page{}, errors.New("linkedin guest: foreign session handle")
	}

	endpoint := matrix.SearchURL(s.opts.BaseURL+guestSearch, q, page*s.opts.PageSize)
	body, status, err := s.get(ctx, gh.hc, endpoint)
	if err != nil {
		return crawl.Page{}, err
	}
	// the guest API answers 400/404 once start runs past the last result
	if status == http.StatusBadRequest || status == http.StatusNotFound {
		return crawl.Page{Last: true}, nil
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return crawl.Page{Last: true}, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return crawl.Page{}, fmt.Errorf("%w: parse page %d: %v", crawl.ErrTransient, page, err)
	}
	recs := cardsFromDoc(doc, s.opts.Selectors)
	if len(recs) == 0 {
		switch {
		case HasLoginWall(doc, s.opts.Selectors):
			return crawl.Page{}, fmt.Errorf("%w: login wall on page %d", crawl.ErrSessionExpired, page)
		case s.opts.Selectors.NoResults != "" && doc.Find(s.opts.Selectors.NoResults).Length() > 0:
			return crawl.Page{Last: true}, nil
		case strings.TrimSpace(doc.Find("body").Text()) == "":
			return crawl.Page{Last: true}, nil
		default:
			return crawl.Page{}, fmt.Errorf("%w: no %q in page %d", crawl.ErrSelectorMismatch, s.opts.Selectors.JobCardContainer, page)
		}
	}

	if s.opts.FetchDetails {
		for i := range recs {
			if recs[i].SourceID == "" {
				continue
			}
			if err := s.enrich(ctx, gh.hc, &recs[i]); err != nil {
				if ctx.Err() != nil {
					return crawl.Page{}, ctx.Err()
				}
				s.opts.Log.Debug("[linkedin:guest] posting detail skipped", "id", recs[i].SourceID, "err", err)
			}
		}
	}

	return crawl.Page{Records: recs}, nil
}

func (s *GuestSession) enrich(ctx context.Context, hc *http.Client, rec *domain.RawRecord) error {
	body, status, err := s.get(ctx, hc, s.opts.BaseURL+guestPosting+rec.SourceID)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("posting %s: status %d", rec.SourceID, status)
	}
	d, err := ParsePosting(bytes.NewReader(body), s.opts.Selectors)
	if err != nil {
		return err
	}
	d.Apply(rec)
	return nil
}

// get returns the body for 2xx and 400/404; every other outcome is
// classified into a crawl error kind.
func (s *GuestSession) get(ctx context.Context, hc *http.Client, endpoint string) ([]byte, int, error) {
	if err := s.opts.Limiter.WaitURL(ctx, endpoint); err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", s.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9,fr;q=0.8")

	resp, err := hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		return nil, 0, fmt.Errorf("%w: %v", crawl.ErrTransient, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: read body: %v", crawl.ErrTransient, err)
	}

	switch {
	case looksLikeAuthWall(resp):
		return nil, resp.StatusCode, fmt.Errorf("%w: redirected to %s", crawl.ErrSessionExpired, resp.Request.URL.Path)
	case looksBlocked(resp, body):
		return nil, resp.StatusCode, fmt.Errorf("%w: status %d", crawl.ErrBlocked, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, resp.StatusCode, fmt.Errorf("%w: status %d", crawl.ErrTransient, resp.StatusCode)
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusNotFound:
		return nil, resp.StatusCode, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, resp.StatusCode, fmt.Errorf("%w: unexpected status %d", crawl.ErrTransient, resp.StatusCode)
	}
	return body, resp.StatusCode, nil
}

func looksLikeAuthWall(resp *http.Response) bool {
	if resp.StatusCode == http.StatusUnauthorized {
		return true
	}
	if resp.Request == nil || resp.Request.URL == nil {
		return false
	}
	p := strings.ToLower(resp.Request.URL.Path)
	return strings.Contains(p, "/authwall") || strings.HasPrefix(p, "/login") || strings.Contains(p, "/checkpoint")
}

// looksBlocked catches LinkedIn's 999 and Cloudflare-style challenges.
func looksBlocked(resp *http.Response, body []byte) bool {
	if resp.StatusCode == 999 || resp.StatusCode == http.StatusForbidden {
		return true
	}

	server := strings.ToLower(resp.Header.Get("Server"))
	if strings.Contains(server, "cloudflare") && resp.Header.Get("CF-RAY") != "" && resp.StatusCode != http.StatusOK {
		return true
	}

	preview := body
	if len(preview) > 4096 {
		preview = preview[:4096]
	}
	low := strings.ToLower(string(preview))
	return strings.Contains(low, "/cdn-cgi/challenge") ||
		(strings.Contains(low, "checking your browser") && strings.Contains(low, "cloudflare")) ||
		strings.Contains(low, "unusual activity from your account")
}
