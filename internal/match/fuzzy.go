// Package match implements the fuzzy, semantic and hybrid identifier
// matchers used to resolve a free-text query against the symbol corpus.
package match

import (
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"

	"github.com/cyber-nic/repomap/internal/config"
)

// Candidate is one name the matcher scores a query against.
type Candidate struct {
	Name string
	File string
}

// Result is one scored match.
type Result struct {
	Candidate Candidate
	Score     float64 // FuzzyMatcher: 0-100 across strategies; SemanticMatcher and HybridMatcher: 0-1
	Strategy  config.FuzzyStrategy
}

// FuzzyMatcher combines several independent string-similarity strategies
// and keeps, per candidate, the single highest-scoring strategy's result.
type FuzzyMatcher struct {
	threshold  float64
	strategies []config.FuzzyStrategy
}

// NewFuzzyMatcher builds a matcher from the configured threshold (0-100) and
// enabled strategy set.
func NewFuzzyMatcher(threshold float64, strategies []config.FuzzyStrategy) *FuzzyMatcher {
	return &FuzzyMatcher{threshold: threshold, strategies: strategies}
}

// Match scores every candidate against query and returns the matches at or
// above threshold, sorted by score descending then name.
func (m *FuzzyMatcher) Match(query string, candidates []Candidate) []Result {
	q := strings.ToLower(query)

	var out []Result
	for _, c := range candidates {
		best := Result{Candidate: c}
		name := strings.ToLower(c.Name)
		for _, s := range m.strategies {
			score := scoreStrategy(s, q, name)
			if score > best.Score {
				best.Score = score
				best.Strategy = s
			}
		}
		if best.Score >= m.threshold {
			out = append(out, best)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Candidate.Name < out[j].Candidate.Name
	})
	return out
}

func scoreStrategy(s config.FuzzyStrategy, q, name string) float64 {
	switch s {
	case config.StrategyExact:
		if q == name {
			return 100
		}
		return 0
	case config.StrategyPrefix:
		if strings.HasPrefix(name, q) {
			return scaledByLength(len(q), len(name))
		}
		return 0
	case config.StrategySuffix:
		if strings.HasSuffix(name, q) {
			return scaledByLength(len(q), len(name))
		}
		return 0
	case config.StrategySubstring:
		if strings.Contains(name, q) {
			return scaledByLength(len(q), len(name)) * 0.9
		}
		return 0
	case config.StrategyWord:
		return wordOverlapScore(q, name)
	case config.StrategyEdit:
		return editSimilarity(q, name) * 100
	default:
		return 0
	}
}

// scaledByLength rewards matches where the query covers most of the
// candidate, so "Widget" scores higher against "Widget" than against
// "WidgetFactoryBuilderImpl".
func scaledByLength(queryLen, nameLen int) float64 {
	if nameLen == 0 {
		return 0
	}
	ratio := float64(queryLen) / float64(nameLen)
	return 60 + 40*ratio
}

func wordOverlapScore(q, name string) float64 {
	qWords := splitWords(q)
	nWords := splitWords(name)
	if len(qWords) == 0 || len(nWords) == 0 {
		return 0
	}
	nSet := make(map[string]bool, len(nWords))
	for _, w := range nWords {
		nSet[w] = true
	}
	hits := 0
	for _, w := range qWords {
		if nSet[w] {
			hits++
		}
	}
	return 100 * float64(hits) / float64(len(qWords))
}

func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == '_' || r == '-' || r == '.' || (r >= 'A' && r <= 'Z')
	})
}

// editSimilarity returns a 0-1 Jaro-Winkler similarity via go-edlib.
func editSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	score, err := edlib.StringsSimilarity(a, b, edlib.JaroWinkler)
	if err != nil {
		return 0.0
	}
	return float64(score)
}
