package rank

import "jobcrawl-engine/internal/config"

// Classify returns the category whose keywords best match text, by fuzzy
// score with cosine breaking ties. It returns "" when nothing matches.
func Classify(text string, categories []config.Category) (string, float64) {
	fz := NewFuzzy()
	var cos Cosine

	best, bestScore, bestTie := "", 0.0, 0.0
	for _, c := range categories {
		s, _ := fz.Score(text, c.Keywords)
		if s == 0 {
			continue
		}
		tie, _ := cos.Score(text, c.Keywords)
		if s > bestScore || (s == bestScore && tie > bestTie) {
			best, bestScore, bestTie = c.Name, s, tie
		}
	}
	return best, bestScore
}
