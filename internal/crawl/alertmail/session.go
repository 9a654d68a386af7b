// Package alertmail reads LinkedIn job-alert emails over IMAP and serves
// their postings as crawl pages, newest mail first.
package alertmail

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"

	"jobcrawl-engine/internal/crawl"
	"jobcrawl-engine/internal/domain"
	"jobcrawl-engine/internal/logging"
)

type Options struct {
	Addr       string // host:port
	Mailbox    string
	SubjectAny []string
	PerPage    int           // emails per page
	Lookback   time.Duration // how far back to search
	Log        *logging.Logger

	// Dial defaults to DialIMAP.
	Dial func(ctx context.Context, addr, user, pass, mailbox string) (Mailbox, error)
}

type Session struct {
	opts Options
	now  func() time.Time
}

func New(opts Options) *Session {
	if opts.PerPage <= 0 {
		opts.PerPage = 10
	}
	if opts.Lookback <= 0 {
		opts.Lookback = 90 * 24 * time.Hour
	}
	if opts.Mailbox == "" {
		opts.Mailbox = "INBOX"
	}
	if opts.Dial == nil {
		opts.Dial = DialIMAP
	}
	if opts.Log == nil {
		opts.Log = logging.Nop()
	}
	return &Session{opts: opts, now: time.Now}
}

type handle struct {
	mb   Mailbox
	uids []imap.UID
}

func (h *handle) Close() error { return h.mb.Close() }

// Open logs in and snapshots the alert UIDs so pages stay stable for the
// whole run.
func (s *Session) Open(ctx context.Context, creds crawl.Credentials) (crawl.Handle, error) {
	mb, err := s.opts.Dial(ctx, s.opts.Addr, creds.Username, creds.Password, s.opts.Mailbox)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "login") {
			return nil, fmt.Errorf("%w: %v", crawl.ErrSessionExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", crawl.ErrTransient, err)
	}
	uids, err := mb.Search(ctx, s.now().Add(-s.opts.Lookback))
	if err != nil {
		_ = mb.Close()
		return nil, fmt.Errorf("%w: %v", crawl.ErrTransient, err)
	}
	s.opts.Log.Info("[alertmail] mailbox opened", "mailbox", s.opts.Mailbox, "messages", len(uids))
	return &handle{mb: mb, uids: uids}, nil
}

func (s *Session) FetchPage(ctx context.Context, h crawl.Handle, q domain.SearchQuery, page int) (crawl.Page, error) {
	mh, ok := h.(*handle)
	if !ok {
		return crawl.Page{}, errors.New("alertmail: foreign session handle")
	}

	start := page * s.opts.PerPage
	if start >= len(mh.uids) {
		return crawl.Page{Last: true}, nil
	}
	end := min(start+s.opts.PerPage, len(mh.uids))

	msgs, err := mh.mb.Fetch(ctx, mh.uids[start:end])
	if err != nil {
		if ctx.Err() != nil {
			return crawl.Page{}, ctx.Err()
		}
		return crawl.Page{}, fmt.Errorf("%w: %v", crawl.ErrTransient, err)
	}

	var recs []domain.RawRecord
	for _, m := range msgs {
		subject, plain, html := parseRFC822(m.Raw, m.Subject)
		if !looksLikeAlert(m.From, subject, plain+html, s.opts.SubjectAny) || html == "" {
			continue
		}
		found, err := ParseAlertHTML(html)
		if err != nil {
			s.opts.Log.Warn("[alertmail] unparsable alert", "uid", m.UID, "err", err)
			continue
		}
		for _, r := range found {
			if r.PostedAt == "" && !m.Date.IsZero() {
				r.PostedAt = m.Date.UTC().Format(time.RFC3339)
			}
			recs = append(recs, r)
		}
	}

	return crawl.Page{Records: recs, Last: end >= len(mh.uids)}, nil
}
