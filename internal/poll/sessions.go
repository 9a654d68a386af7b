package poll

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"jobcrawl-engine/internal/config"
	"jobcrawl-engine/internal/crawl"
	"jobcrawl-engine/internal/crawl/alertmail"
	"jobcrawl-engine/internal/crawl/linkedin"
	"jobcrawl-engine/internal/logging"
	"jobcrawl-engine/internal/secrets"
)

// BuildSession picks the listing source named by crawl.source and loads
// the credentials it needs.
func BuildSession(cfg config.Config, log *logging.Logger) (crawl.Session, crawl.Credentials, error) {
	var none crawl.Credentials

	switch cfg.Crawl.Source {
	case "guest", "":
		sel, err := linkedin.LoadSelectors(cfg.Session.SelectorsPath, linkedin.GuestSelectors())
		if err != nil {
			return nil, none, err
		}
		return linkedin.NewGuest(linkedin.GuestOptions{
			Selectors:    sel,
			Limiter:      crawl.NewHostLimiter(cfg.Crawl.RequestsPerSec, cfg.Crawl.Burst),
			UserAgent:    cfg.Session.UserAgent,
			FetchDetails: cfg.Crawl.FetchDetails,
			Log:          log.Named("guest"),
		}), none, nil

	case "browser":
		sel, err := linkedin.LoadSelectors(cfg.Session.SelectorsPath, linkedin.DefaultSelectors())
		if err != nil {
			return nil, none, err
		}
		creds, err := linkedin.LoadCredentials(cfg.Session.CookiesPath, cfg.Session.LocalStoragePath)
		if err != nil {
			return nil, none, err
		}
		if len(creds.Cookies) == 0 {
			log.Warn("[poll] browser session has no cookies; expect a login wall", "path", cfg.Session.CookiesPath)
		}
		return linkedin.NewBrowser(linkedin.BrowserOptions{
			Selectors: sel,
			Headless:  cfg.Session.Headless,
			Proxy:     cfg.Session.Proxy,
			UserAgent: cfg.Session.UserAgent,
			Log:       log.Named("browser"),
		}), creds, nil

	case "alertmail":
		pw, err := secrets.GetIMAPPassword(secrets.IMAPKeyringAccount(cfg))
		if err != nil {
			return nil, none, err
		}
		sess := alertmail.New(alertmail.Options{
			Addr:       net.JoinHostPort(cfg.Email.IMAPHost, strconv.Itoa(cfg.Email.IMAPPort)),
			Mailbox:    cfg.Email.Mailbox,
			SubjectAny: cfg.Email.SearchSubjectAny,
			PerPage:    cfg.Email.PerPage,
			Log:        log.Named("alertmail"),
		})
		return sess, crawl.Credentials{Username: cfg.Email.Username, Password: pw}, nil
	}
	return nil, none, fmt.Errorf("unknown crawl source %q", cfg.Crawl.Source)
}

func walkerFor(cfg config.Config) crawl.Walker {
	return crawl.Walker{
		MaxRetries: cfg.Crawl.MaxRetries,
		Backoff: crawl.Backoff{
			Base: time.Duration(cfg.Crawl.BackoffBaseMs) * time.Millisecond,
			Max:  time.Duration(cfg.Crawl.BackoffMaxMs) * time.Millisecond,
		},
		PageDelay: cfg.PageDelay(),
	}
}
