package rank

import (
	"math"
	"strings"
)

// Cosine is the token-count cosine between the text and the joined
// keywords, stopwords removed.
type Cosine struct{}

func (Cosine) Score(text string, keywords []string) (float64, []string) {
	if strings.TrimSpace(text) == "" || len(keywords) == 0 {
		return 0, nil
	}
	doc := counts(contentTokens(text))
	cat := counts(contentTokens(strings.Join(keywords, " ")))

	dn, cn := norm(doc), norm(cat)
	if dn == 0 || cn == 0 {
		return 0, nil
	}
	var dot float64
	for t, n := range doc {
		dot += float64(n * cat[t])
	}

	var matched []string
	for _, kw := range keywords {
		for _, t := range contentTokens(kw) {
			if doc[t] > 0 {
				matched = append(matched, strings.TrimSpace(kw))
				break
			}
		}
	}
	return clamp01(dot / (dn * cn)), uniq(matched)
}

func counts(tokens []string) map[string]int {
	m := make(map[string]int, len(tokens))
	for _, t := range tokens {
		m[t]++
	}
	return m
}

func norm(v map[string]int) float64 {
	var s float64
	for _, n := range v {
		s += float64(n * n)
	}
	return math.Sqrt(s)
}
