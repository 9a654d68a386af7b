package util

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var reRelative = regexp.MustCompile(`(\d+)\s*\+?\s*(second|minute|hour|day|week|month|seconde|heure|jour|semaine|mois)`)

// ParsePostedAt turns "7 hours ago", "2 weeks ago", "il y a 3 jours" or an
// ISO date into a time. ok is false when nothing matched.
func ParsePostedAt(raw string, now time.Time) (t time.Time, ok bool) {
	s := Fold(raw)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02", "2006/01/02"} {
		if t, err := time.Parse(layout, strings.ToUpper(s)); err == nil {
			return t, true
		}
	}

	if strings.Contains(s, "just now") || strings.Contains(s, "a l'instant") {
		return now, true
	}

	m := reRelative.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return time.Time{}, false
	}

	switch m[2] {
	case "second", "seconde":
		return now.Add(-time.Duration(n) * time.Second), true
	case "minute":
		return now.Add(-time.Duration(n) * time.Minute), true
	case "hour", "heure":
		return now.Add(-time.Duration(n) * time.Hour), true
	case "day", "jour":
		return now.AddDate(0, 0, -n), true
	case "week", "semaine":
		return now.AddDate(0, 0, -7*n), true
	case "month", "mois":
		return now.AddDate(0, -n, 0), true
	}
	return time.Time{}, false
}
