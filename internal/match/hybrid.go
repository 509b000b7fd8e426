package match

import (
	"sort"

	"github.com/cyber-nic/repomap/internal/apperr"
	"github.com/cyber-nic/repomap/internal/config"
)

// HybridMatcher combines the fuzzy and semantic matchers into a single
// weighted score. The weights must sum to 1.0 (enforced by
// config.Options.Validate, and re-checked here so a HybridMatcher built
// outside that path can't silently skew results).
type HybridMatcher struct {
	fuzzy        *FuzzyMatcher
	semantic     *SemanticMatcher
	fuzzyWeight  float64
	semanticWeight float64
}

// NewHybridMatcher builds a combiner from already-constructed fuzzy and
// semantic matchers and the configured blend weights.
func NewHybridMatcher(fuzzy *FuzzyMatcher, semantic *SemanticMatcher, fuzzyWeight, semanticWeight float64) (*HybridMatcher, error) {
	const tolerance = 1e-6
	if d := (fuzzyWeight + semanticWeight) - 1.0; d > tolerance || d < -tolerance {
		return nil, apperr.New(apperr.KindConfiguration, "hybrid matcher weights must sum to 1.0", nil)
	}
	return &HybridMatcher{fuzzy: fuzzy, semantic: semantic, fuzzyWeight: fuzzyWeight, semanticWeight: semanticWeight}, nil
}

// Match blends fuzzy (0-100, normalized to 0-1) and semantic (0-1) scores
// for every candidate the fuzzy matcher or semantic matcher surfaced, and
// returns the combined ranking above threshold (0-1).
func (h *HybridMatcher) Match(query string, candidates []Candidate, threshold float64) []Result {
	fuzzyResults := h.fuzzy.Match(query, candidates)
	semanticResults := h.semantic.Match(query, 0) // gather every score; filter after blending

	combined := make(map[string]*Result)
	key := func(c Candidate) string { return c.File + "\x00" + c.Name }

	for _, r := range fuzzyResults {
		combined[key(r.Candidate)] = &Result{Candidate: r.Candidate, Score: h.fuzzyWeight * (r.Score / 100.0)}
	}
	for _, r := range semanticResults {
		k := key(r.Candidate)
		if existing, ok := combined[k]; ok {
			existing.Score += h.semanticWeight * r.Score
		} else {
			combined[k] = &Result{Candidate: r.Candidate, Score: h.semanticWeight * r.Score}
		}
	}

	var out []Result
	for _, r := range combined {
		if r.Score >= threshold {
			out = append(out, *r)
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

// TopTerms delegates to the underlying semantic matcher, used by the
// exploration engine to cluster and title trees by shared vocabulary.
func (h *HybridMatcher) TopTerms(c Candidate, n int) []string {
	return h.semantic.TopTerms(c, n)
}

// NewHybridMatcherFromOptions is the usual construction path: it builds
// both sub-matchers from Options and validates the blend weights in one
// step.
func NewHybridMatcherFromOptions(candidates []Candidate, opts config.Options, corpusVersion uint64) (*HybridMatcher, error) {
	fuzzy := NewFuzzyMatcher(opts.FuzzyThreshold, opts.FuzzyStrategies)
	semantic := NewSemanticMatcher(candidates, opts.SemanticMaxFeatures, corpusVersion)
	return NewHybridMatcher(fuzzy, semantic, opts.HybridFuzzyWeight, opts.HybridSemanticWeight)
}
