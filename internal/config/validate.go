package config

import (
	"fmt"
	"strings"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate returns a trimmed, deduplicated copy of cfg and
// the problems found in it.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	trimList := func(xs []string) []string {
		seen := map[string]bool{}
		var ys []string
		for _, x := range xs {
			x = strings.TrimSpace(x)
			if x == "" {
				continue
			}
			key := strings.ToLower(x)
			if seen[key] {
				continue
			}
			seen[key] = true
			ys = append(ys, x)
		}
		return ys
	}

	out.Matrix.Categories = make([]Category, 0, len(cfg.Matrix.Categories))
	for _, c := range cfg.Matrix.Categories {
		out.Matrix.Categories = append(out.Matrix.Categories, Category{
			Name:     strings.TrimSpace(c.Name),
			Keywords: trimList(c.Keywords),
		})
	}
	out.Matrix.Locations = trimList(out.Matrix.Locations)
	out.Matrix.Languages = trimList(out.Matrix.Languages)
	out.Email.SearchSubjectAny = trimList(out.Email.SearchSubjectAny)
	out.Crawl.Source = strings.ToLower(strings.TrimSpace(out.Crawl.Source))
	out.Store.Driver = strings.ToLower(strings.TrimSpace(out.Store.Driver))

	if err := out.Matrix.Check(); err != nil {
		if ce, ok := err.(*ConfigError); ok {
			for _, p := range ce.Problems {
				res.addErr("matrix.%s", p.String())
			}
		}
	}

	if n := len(out.Matrix.Categories) * len(out.Matrix.Locations) * max(1, len(out.Matrix.Languages)); n > 200 {
		res.addWarn("matrix expands to %d queries; every scheduled run will crawl all of them.", n)
	}

	switch out.Crawl.Source {
	case "guest", "browser", "alertmail":
	default:
		res.addErr("crawl.source must be guest, browser or alertmail (got %q)", out.Crawl.Source)
	}

	if out.Crawl.FreshnessThresh < 0 || out.Crawl.FreshnessThresh > 1 {
		res.addErr("crawl.freshness_thresh must be within [0,1]")
	} else if out.Crawl.FreshnessThresh == 0 {
		res.addWarn("crawl.freshness_thresh is 0: early stop is disabled (deep scrape).")
	}
	if out.Crawl.RelevanceThresh < 0 || out.Crawl.RelevanceThresh > 1 {
		res.addErr("crawl.relevance_thresh must be within [0,1]")
	}
	if out.Crawl.PageDelaySeconds < 0 {
		res.addErr("crawl.page_delay_seconds must be >= 0")
	} else if out.Crawl.PageDelaySeconds < 1 && out.Crawl.Source != "alertmail" {
		res.addWarn("crawl.page_delay_seconds is very low (%.1f) and may trigger anti-automation defenses.", out.Crawl.PageDelaySeconds)
	}
	if out.Crawl.Workers > 4 {
		res.addWarn("crawl.workers=%d runs many sessions against one site at once.", out.Crawl.Workers)
	}

	switch out.Store.Driver {
	case "sqlite", "file":
	case "postgres":
		if strings.TrimSpace(out.Store.PostgresDSN) == "" {
			res.addErr("store.postgres_dsn (or DATABASE_URL) is required when store.driver=postgres")
		}
	default:
		res.addErr("store.driver must be sqlite, postgres or file (got %q)", out.Store.Driver)
	}

	if out.Crawl.Source == "browser" && strings.TrimSpace(out.Session.CookiesPath) == "" {
		res.addWarn("session.cookies_path is empty; the browser session will hit the login wall.")
	}

	if out.Crawl.Source == "alertmail" {
		if strings.TrimSpace(out.Email.IMAPHost) == "" {
			res.addErr("email.imap_host is required when crawl.source=alertmail")
		}
		if strings.TrimSpace(out.Email.Username) == "" {
			res.addErr("email.username is required when crawl.source=alertmail")
		}
	}

	if out.Notify.Telegram && out.Notify.ChatID == 0 {
		res.addErr("notify.chat_id (or TELEGRAM_CHAT_ID) is required when notify.telegram=true")
	}

	return out, res
}
