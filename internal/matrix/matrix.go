// Package matrix expands the configured search matrix into the ordered
// list of queries a batch run crawls.
package matrix

import (
	"net/url"
	"strconv"
	"strings"

	"jobcrawl-engine/internal/config"
	"jobcrawl-engine/internal/domain"
)

// WorldwideGeoID is used for locations without a geo_ids entry.
const WorldwideGeoID = "92000000"

// Expand returns category × location × language queries in that nesting
// order. An invalid matrix yields a *config.ConfigError and no queries.
func Expand(m config.Matrix) ([]domain.SearchQuery, error) {
	if err := m.Check(); err != nil {
		return nil, err
	}

	type cat struct {
		name string
		kws  []string
	}
	var cats []cat
	seen := map[string]bool{}
	for _, c := range m.Categories {
		name := strings.TrimSpace(c.Name)
		if seen[strings.ToLower(name)] {
			continue
		}
		seen[strings.ToLower(name)] = true
		cats = append(cats, cat{name: name, kws: dedupe(c.Keywords)})
	}

	locs := dedupe(m.Locations)
	langs := dedupe(m.Languages)
	if len(langs) == 0 {
		langs = []string{""}
	}

	filters := map[string]string{}
	for k, v := range m.Filters {
		filters[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}

	out := make([]domain.SearchQuery, 0, len(cats)*len(locs)*len(langs))
	for _, c := range cats {
		for _, loc := range locs {
			for _, lang := range langs {
				out = append(out, domain.SearchQuery{
					Index:     len(out),
					Dimension: domain.Dimension{Category: c.name, Location: loc, Language: lang},
					Keywords:  append([]string(nil), c.kws...),
					Text:      BooleanQuery(c.kws, loc),
					GeoID:     geoFor(m.GeoIDs, loc),
					Filters:   copyMap(filters),
				})
			}
		}
	}
	return out, nil
}

// BooleanQuery renders ("kw one" OR "kw two") AND "Location".
func BooleanQuery(keywords []string, location string) string {
	quoted := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(strings.ReplaceAll(kw, `"`, ""))
		if kw == "" {
			continue
		}
		quoted = append(quoted, `"`+kw+`"`)
	}
	q := "(" + strings.Join(quoted, " OR ") + ")"
	if loc := strings.TrimSpace(strings.ReplaceAll(location, `"`, "")); loc != "" {
		q += ` AND "` + loc + `"`
	}
	return q
}

// SearchURL builds the listing URL for q under base, starting at the
// given result offset. Shared filters (f_JT, sortBy, ...) are copied as-is.
func SearchURL(base string, q domain.SearchQuery, start int) string {
	v := url.Values{}
	v.Set("keywords", q.Text)
	if q.GeoID != "" {
		v.Set("geoId", q.GeoID)
	}
	for k, val := range q.Filters {
		if k != "" && val != "" {
			v.Set(k, val)
		}
	}
	if v.Get("f_JT") == "" {
		v.Set("f_JT", "F")
	}
	if v.Get("sortBy") == "" {
		v.Set("sortBy", "DD")
	}
	if start > 0 {
		v.Set("start", strconv.Itoa(start))
	}
	return base + "?" + v.Encode()
}

func geoFor(ids map[string]string, loc string) string {
	for k, v := range ids {
		if strings.EqualFold(strings.TrimSpace(k), loc) {
			return strings.TrimSpace(v)
		}
	}
	return WorldwideGeoID
}

func dedupe(xs []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, x := range xs {
		x = strings.TrimSpace(x)
		if x == "" || seen[strings.ToLower(x)] {
			continue
		}
		seen[strings.ToLower(x)] = true
		out = append(out, x)
	}
	return out
}

func copyMap(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
