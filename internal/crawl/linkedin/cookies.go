package linkedin

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"jobcrawl-engine/internal/crawl"
)

// LoadCredentials reads a cookie jar export and a localStorage dump.
// Either path may be empty or missing.
func LoadCredentials(cookiesPath, localStoragePath string) (crawl.Credentials, error) {
	var creds crawl.Credentials

	if cookiesPath != "" {
		b, err := os.ReadFile(cookiesPath)
		switch {
		case err == nil:
			if err := json.Unmarshal(b, &creds.Cookies); err != nil {
				return creds, fmt.Errorf("parse cookies %s: %w", cookiesPath, err)
			}
		case !os.IsNotExist(err):
			return creds, err
		}
	}

	if localStoragePath != "" {
		b, err := os.ReadFile(localStoragePath)
		switch {
		case err == nil:
			if err := json.Unmarshal(b, &creds.LocalStorage); err != nil {
				return creds, fmt.Errorf("parse local storage %s: %w", localStoragePath, err)
			}
		case !os.IsNotExist(err):
			return creds, err
		}
	}
	return creds, nil
}

func toPlaywright(c crawl.Cookie) playwright.OptionalCookie {
	oc := playwright.OptionalCookie{
		Name:  c.Name,
		Value: c.Value,
	}
	if c.Domain != "" {
		oc.Domain = playwright.String(c.Domain)
		path := c.Path
		if path == "" {
			path = "/"
		}
		oc.Path = playwright.String(path)
	} else {
		oc.URL = playwright.String("https://www.linkedin.com")
	}
	if c.Expires > 0 {
		oc.Expires = playwright.Float(c.Expires)
	}
	if c.HTTPOnly {
		oc.HttpOnly = playwright.Bool(true)
	}
	if c.Secure {
		oc.Secure = playwright.Bool(true)
	}
	switch strings.ToLower(c.SameSite) {
	case "lax":
		oc.SameSite = playwright.SameSiteAttributeLax
	case "strict":
		oc.SameSite = playwright.SameSiteAttributeStrict
	case "none", "no_restriction":
		oc.SameSite = playwright.SameSiteAttributeNone
	}
	return oc
}

func toHTTP(c crawl.Cookie) *http.Cookie {
	hc := &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		HttpOnly: c.HTTPOnly,
		Secure:   c.Secure,
	}
	if c.Expires > 0 {
		hc.Expires = time.Unix(int64(c.Expires), 0)
	}
	return hc
}

// localStorageScript seeds window.localStorage before any page script runs.
func localStorageScript(items map[string]string) (string, error) {
	b, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`(() => {
  try {
    const items = %s;
    for (const [k, v] of Object.entries(items)) window.localStorage.setItem(k, v);
  } catch (e) {}
})();`, b), nil
}
