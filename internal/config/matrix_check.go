package config

import (
	"fmt"
	"strings"
)

// Check validates the matrix and returns a *ConfigError naming every
// offending dimension, or nil.
func (m Matrix) Check() error {
	e := &ConfigError{}

	if len(m.Categories) == 0 {
		e.add("category", "", "at least one category is required")
	}
	seenCat := map[string]bool{}
	for i, c := range m.Categories {
		name := strings.TrimSpace(c.Name)
		dim := fmt.Sprintf("category[%d]", i)
		if name == "" {
			e.add(dim, "", "name is required")
		} else if seenCat[strings.ToLower(name)] {
			e.add(dim, name, "duplicate category")
		}
		seenCat[strings.ToLower(name)] = true

		kws := 0
		for j, kw := range c.Keywords {
			if strings.TrimSpace(kw) == "" {
				e.add(fmt.Sprintf("%s.keywords[%d]", dim, j), name, "keyword cannot be empty")
				continue
			}
			kws++
		}
		if kws == 0 {
			e.add(dim+".keywords", name, "keyword list is empty")
		}
	}

	if len(m.Locations) == 0 {
		e.add("location", "", "at least one location is required")
	}
	for i, loc := range m.Locations {
		if strings.TrimSpace(loc) == "" {
			e.add(fmt.Sprintf("location[%d]", i), "", "location cannot be empty")
		}
	}

	for i, lang := range m.Languages {
		if strings.TrimSpace(lang) == "" {
			e.add(fmt.Sprintf("language[%d]", i), "", "language cannot be empty")
		}
	}

	for loc, geo := range m.GeoIDs {
		if strings.TrimSpace(geo) == "" {
			e.add("geo_ids", loc, "geo id cannot be empty")
		}
	}

	return e.orNil()
}
