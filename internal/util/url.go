package util

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// Posting ids are long; a short trailing number is part of the slug
// ("engineer-level-2") and must not be mistaken for one.
var reJobID = regexp.MustCompile(`/jobs/view/(?:[^/?#]*-)?(\d{5,})(?:[/?#]|$)`)

// CanonicalURL strips tracking parameters and fragments so the same
// posting reached through different links compares equal.
func CanonicalURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	q := u.Query()
	for k := range q {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, "utm_") ||
			lk == "gclid" || lk == "fbclid" || lk == "msclkid" ||
			lk == "trk" || lk == "trackingid" || lk == "refid" ||
			lk == "mkt_tok" {
			q.Del(k)
		}
	}

	if strings.Contains(u.Host, "linkedin.com") {
		u.Host = "www.linkedin.com"
		if id := LinkedInJobID(u.Path); id != "" {
			u.Path = "/jobs/view/" + id + "/"
			q = url.Values{}
		} else {
			keep := url.Values{}
			if v := q.Get("currentJobId"); v != "" {
				keep.Set("currentJobId", v)
			}
			q = keep
		}
	}

	for k := range q {
		vals := q[k]
		sort.Strings(vals)
		q[k] = vals
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// LinkedInJobID extracts the numeric posting id from a /jobs/view/ link.
func LinkedInJobID(s string) string {
	m := reJobID.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// LinkedInJobURL is the canonical view URL for a posting id.
func LinkedInJobURL(id string) string {
	if id == "" {
		return ""
	}
	return "https://www.linkedin.com/jobs/view/" + id + "/"
}
