package linkedin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"jobcrawl-engine/internal/crawl"
	"jobcrawl-engine/internal/domain"
	"jobcrawl-engine/internal/logging"
	"jobcrawl-engine/internal/matrix"
)

const browserPageSize = 25

type BrowserOptions struct {
	BaseURL     string
	Selectors   Selectors
	Headless    bool
	Proxy       string
	UserAgent   string
	NavTimeout  time.Duration
	CardTimeout time.Duration
	Log         *logging.Logger
}

// BrowserSession drives a real Chromium through playwright, logged in
// with the cookies and localStorage from Credentials.
type BrowserSession struct {
	opts BrowserOptions
}

func NewBrowser(opts BrowserOptions) *BrowserSession {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.Selectors.JobCardContainer == "" {
		opts.Selectors = DefaultSelectors()
	}
	if opts.NavTimeout <= 0 {
		opts.NavTimeout = 50 * time.Second
	}
	if opts.CardTimeout <= 0 {
		opts.CardTimeout = 15 * time.Second
	}
	if opts.Log == nil {
		opts.Log = logging.Nop()
	}
	return &BrowserSession{opts: opts}
}

type browserHandle struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
}

func (h *browserHandle) Close() error {
	var errs []error
	if h.browser != nil {
		errs = append(errs, h.browser.Close())
	}
	if h.pw != nil {
		errs = append(errs, h.pw.Stop())
	}
	return errors.Join(errs...)
}

func (s *BrowserSession) Open(ctx context.Context, creds crawl.Credentials) (crawl.Handle, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}
	h := &browserHandle{pw: pw}

	launch := playwright.BrowserTypeLaunchOptions{Headless: playwright.Bool(s.opts.Headless)}
	if s.opts.Proxy != "" {
		launch.Proxy = &playwright.Proxy{Server: s.opts.Proxy}
	}
	h.browser, err = pw.Chromium.Launch(launch)
	if err != nil {
		_ = h.Close()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	ctxOpts := playwright.BrowserNewContextOptions{}
	if s.opts.UserAgent != "" {
		ctxOpts.UserAgent = playwright.String(s.opts.UserAgent)
	}
	bctx, err := h.browser.NewContext(ctxOpts)
	if err != nil {
		_ = h.Close()
		return nil, fmt.Errorf("browser context: %w", err)
	}

	if len(creds.Cookies) > 0 {
		cookies := make([]playwright.OptionalCookie, 0, len(creds.Cookies))
		for _, c := range creds.Cookies {
			cookies = append(cookies, toPlaywright(c))
		}
		if err := bctx.AddCookies(cookies); err != nil {
			_ = h.Close()
			return nil, fmt.Errorf("add cookies: %w", err)
		}
	}
	if len(creds.LocalStorage) > 0 {
		script, err := localStorageScript(creds.LocalStorage)
		if err != nil {
			_ = h.Close()
			return nil, err
		}
		if err := bctx.AddInitScript(playwright.Script{Content: playwright.String(script)}); err != nil {
			_ = h.Close()
			return nil, fmt.Errorf("seed local storage: %w", err)
		}
	}

	h.page, err = bctx.NewPage()
	if err != nil {
		_ = h.Close()
		return nil, fmt.Errorf("new page: %w", err)
	}
	s.opts.Log.Info("[linkedin:browser] session opened", "cookies", len(creds.Cookies), "headless", s.opts.Headless)
	return h, nil
}

func (s *BrowserSession) FetchPage(ctx context.Context, h crawl.Handle, q domain.SearchQuery, page int) (crawl.Page, error) {
	bh, ok := h.(*browserHandle)
	if !ok {
		return crawl.Page{}, errors.New("linkedin browser: foreign session handle")
	}
	if err := ctx.Err(); err != nil {
		return crawl.Page{}, err
	}
	sel := s.opts.Selectors
	p := bh.page

	target := matrix.SearchURL(s.opts.BaseURL+"/jobs/search", q, page*browserPageSize)
	resp, err := p.Goto(target, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(s.opts.NavTimeout.Milliseconds())),
	})
	if err != nil {
		return crawl.Page{}, fmt.Errorf("%w: goto page %d: %v", crawl.ErrTransient, page, err)
	}
	if resp != nil {
		switch st := resp.Status(); {
		case st == 999 || st == 403:
			return crawl.Page{}, fmt.Errorf("%w: status %d", crawl.ErrBlocked, st)
		case st == 429 || st >= 500:
			return crawl.Page{}, fmt.Errorf("%w: status %d", crawl.ErrTransient, st)
		}
	}

	if s.loginWall(p) {
		return crawl.Page{}, fmt.Errorf("%w: login wall detected on page %d", crawl.ErrSessionExpired, page)
	}

	err = p.Locator(sel.JobCardContainer).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(float64(s.opts.CardTimeout.Milliseconds())),
	})
	if err != nil {
		if sel.NoResults != "" {
			if n, _ := p.Locator(sel.NoResults).Count(); n > 0 {
				return crawl.Page{Last: true}, nil
			}
		}
		if s.loginWall(p) {
			return crawl.Page{}, fmt.Errorf("%w: login wall detected on page %d", crawl.ErrSessionExpired, page)
		}
		if errors.Is(err, playwright.ErrTimeout) {
			return crawl.Page{}, fmt.Errorf("%w: %q never appeared on page %d", crawl.ErrSelectorMismatch, sel.JobCardContainer, page)
		}
		return crawl.Page{}, fmt.Errorf("%w: wait for cards: %v", crawl.ErrTransient, err)
	}

	s.scrollList(p)

	html, err := p.Content()
	if err != nil {
		return crawl.Page{}, fmt.Errorf("%w: read content: %v", crawl.ErrTransient, err)
	}
	recs, err := ParseSearchCards(strings.NewReader(html), sel)
	if err != nil {
		return crawl.Page{}, fmt.Errorf("%w: parse page %d: %v", crawl.ErrTransient, page, err)
	}

	last := false
	if sel.NextPage != "" {
		if n, err := p.Locator(sel.NextPage).Count(); err == nil && n == 0 {
			last = true
		}
	}
	return crawl.Page{Records: recs, Last: last}, nil
}

func (s *BrowserSession) loginWall(p playwright.Page) bool {
	u := strings.ToLower(p.URL())
	if strings.Contains(u, "/authwall") || strings.Contains(u, "/login") || strings.Contains(u, "/checkpoint") {
		return true
	}
	if s.opts.Selectors.LoginWall == "" {
		return false
	}
	n, err := p.Locator(s.opts.Selectors.LoginWall).Count()
	return err == nil && n > 0
}

// scrollList forces the lazily rendered result list to load every card.
func (s *BrowserSession) scrollList(p playwright.Page) {
	const js = `() => {
  const list = document.querySelector('.jobs-search-results-list, .scaffold-layout__list > div');
  const el = list || document.scrollingElement;
  el.scrollBy(0, el.clientHeight);
}`
	for i := 0; i < 6; i++ {
		if _, err := p.Evaluate(js); err != nil {
			s.opts.Log.Debug("[linkedin:browser] scroll failed", "err", err)
			return
		}
		p.WaitForTimeout(400)
	}
}
