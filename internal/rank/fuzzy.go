package rank

import (
	"strings"

	"jobcrawl-engine/internal/util"
)

const DefaultMinSimilarity = 0.8

// Fuzzy matches each keyword phrase against every same-length run of
// tokens in the text. A keyword counts when the best normalised edit
// similarity reaches MinSimilarity, and contributes that similarity.
// The score is the mean contribution over all keywords.
type Fuzzy struct {
	MinSimilarity float64
}

func NewFuzzy() Fuzzy { return Fuzzy{MinSimilarity: DefaultMinSimilarity} }

func (f Fuzzy) Score(text string, keywords []string) (float64, []string) {
	if len(keywords) == 0 {
		return 0, nil
	}
	minSim := f.MinSimilarity
	if minSim <= 0 || minSim > 1 {
		minSim = DefaultMinSimilarity
	}

	tokens := contentTokens(text)
	var sum float64
	var matched []string
	for _, kw := range keywords {
		kwTokens := contentTokens(kw)
		if len(kwTokens) == 0 {
			kwTokens = util.Tokens(kw)
		}
		if len(kwTokens) == 0 {
			continue
		}
		sim := bestWindow(tokens, kwTokens, minSim)
		if sim >= minSim {
			sum += sim
			matched = append(matched, strings.TrimSpace(kw))
		}
	}
	return clamp01(sum / float64(len(keywords))), uniq(matched)
}

// bestWindow returns the highest similarity between kw and any run of
// len(kw) consecutive tokens. It returns early on an exact match.
func bestWindow(tokens, kw []string, minSim float64) float64 {
	n := len(kw)
	if n == 0 || len(tokens) < n {
		return 0
	}
	target := strings.Join(kw, " ")
	best := 0.0
	for i := 0; i+n <= len(tokens); i++ {
		window := strings.Join(tokens[i:i+n], " ")
		if window == target {
			return 1
		}
		if !closeEnoughLength(window, target, minSim) {
			continue
		}
		if s := Similarity(window, target); s > best {
			best = s
		}
	}
	return best
}

func closeEnoughLength(a, b string, minSim float64) bool {
	la, lb := len([]rune(a)), len([]rune(b))
	longest := max(la, lb)
	if longest == 0 {
		return true
	}
	diff := la - lb
	if diff < 0 {
		diff = -diff
	}
	return 1-float64(diff)/float64(longest) >= minSim
}

// Similarity is 1 - levenshtein(a, b) / max(len(a), len(b)).
func Similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longest := max(len(ra), len(rb))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(ra, rb))/float64(longest)
}

func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
