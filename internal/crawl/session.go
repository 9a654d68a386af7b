// Package crawl defines the capability a listing source must provide and
// the walker that drives it page by page.
package crawl

import (
	"context"

	"jobcrawl-engine/internal/domain"
)

// Credentials are whatever a session needs to look logged in.
type Credentials struct {
	Cookies      []Cookie          `json:"cookies,omitempty"`
	LocalStorage map[string]string `json:"local_storage,omitempty"`
	Username     string            `json:"username,omitempty"`
	Password     string            `json:"-"`
}

type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"httpOnly,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	SameSite string  `json:"sameSite,omitempty"`
}

// Handle is an open session. Each run owns exactly one.
type Handle interface {
	Close() error
}

// Page is one fetched result page. An empty page with Last set marks
// the end of results.
type Page struct {
	Records []domain.RawRecord
	Last    bool
}

// Session is a listing source. FetchPage errors should wrap one of the
// Err* sentinels so the walker can tell retryable failures apart.
type Session interface {
	Open(ctx context.Context, creds Credentials) (Handle, error)
	FetchPage(ctx context.Context, h Handle, q domain.SearchQuery, page int) (Page, error)
}

// NopHandle is a Handle with nothing to release.
type NopHandle struct{}

func (NopHandle) Close() error { return nil }
