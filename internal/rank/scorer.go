package rank

// Scorer rates how well text matches a keyword list. Scores are in
// [0,1] and never decrease when another keyword matches.
type Scorer interface {
	Score(text string, keywords []string) (score float64, matched []string)
}

func uniq(in []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, t := range in {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
