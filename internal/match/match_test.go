package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyber-nic/repomap/internal/config"
)

func TestFuzzyMatcher_ExactBeatsSubstring(t *testing.T) {
	m := NewFuzzyMatcher(50, []config.FuzzyStrategy{config.StrategyExact, config.StrategySubstring})
	candidates := []Candidate{{Name: "Widget", File: "a.go"}, {Name: "WidgetFactory", File: "b.go"}}

	results := m.Match("Widget", candidates)
	require.NotEmpty(t, results)
	assert.Equal(t, "Widget", results[0].Candidate.Name)
	assert.Equal(t, 100.0, results[0].Score)
}

func TestFuzzyMatcher_ThresholdExcludesWeakMatches(t *testing.T) {
	m := NewFuzzyMatcher(95, []config.FuzzyStrategy{config.StrategyEdit})
	results := m.Match("zzz", []Candidate{{Name: "Widget", File: "a.go"}})
	assert.Empty(t, results)
}

func TestSemanticMatcher_RanksSharedTermsHigher(t *testing.T) {
	candidates := []Candidate{
		{Name: "ComputeChecksum", File: "a.go"},
		{Name: "ComputeHash", File: "b.go"},
		{Name: "RenderTemplate", File: "c.go"},
	}
	sm := NewSemanticMatcher(candidates, 100, 1)

	results := sm.Match("compute checksum", 0.01)
	require.NotEmpty(t, results)
	assert.Equal(t, "ComputeChecksum", results[0].Candidate.Name)
}

func TestHybridMatcher_RejectsUnbalancedWeights(t *testing.T) {
	fuzzy := NewFuzzyMatcher(50, []config.FuzzyStrategy{config.StrategyExact})
	semantic := NewSemanticMatcher(nil, 10, 1)

	_, err := NewHybridMatcher(fuzzy, semantic, 0.9, 0.9)
	assert.Error(t, err)
}

func TestHybridMatcher_CombinesScores(t *testing.T) {
	candidates := []Candidate{{Name: "ComputeChecksum", File: "a.go"}}
	fuzzy := NewFuzzyMatcher(0, []config.FuzzyStrategy{config.StrategyExact, config.StrategySubstring})
	semantic := NewSemanticMatcher(candidates, 10, 1)

	h, err := NewHybridMatcher(fuzzy, semantic, 0.6, 0.4)
	require.NoError(t, err)

	results := h.Match("ComputeChecksum", candidates, 0)
	require.Len(t, results, 1)
	assert.InDelta(t, 0.6, results[0].Score, 0.3)
}
