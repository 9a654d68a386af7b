// Package dedup assigns stable identities to listings and filters out
// the ones already stored.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"jobcrawl-engine/internal/domain"
	"jobcrawl-engine/internal/util"
)

// CanonicalID hashes the stable fields of r: the canonical URL when there
// is one, otherwise title, company, location and posted-at. Parts are
// lowercased and trimmed, joined by "|", and the sha256 is cut to 16 hex
// characters.
func CanonicalID(r domain.RawRecord) string {
	var parts []string
	if u := util.CanonicalURL(r.URL); u != "" {
		parts = []string{u}
	} else {
		parts = []string{r.Title, r.Company, r.Location, r.PostedAt}
	}
	for i, p := range parts {
		parts[i] = strings.TrimSpace(strings.ToLower(p))
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])[:16]
}
