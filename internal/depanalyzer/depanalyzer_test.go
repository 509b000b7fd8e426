package depanalyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyber-nic/repomap/internal/config"
	"github.com/cyber-nic/repomap/internal/extractor"
	"github.com/cyber-nic/repomap/internal/tagkind"
)

func importTag(file, target string) tagkind.Tag {
	return tagkind.Tag{File: file, Name: target, Kind: tagkind.KindImportReference, IsDef: false}
}

func identityResolver(_, importSpec string) (string, bool) {
	return importSpec, true
}

func TestBuild_LinearChain(t *testing.T) {
	corpus := extractor.NewCorpus([]tagkind.Tag{
		importTag("a.go", "b.go"),
		importTag("b.go", "c.go"),
	}, nil)
	g := Build(corpus, identityResolver)

	stats := g.Stats()
	assert.Equal(t, 3, stats.FileCount)
	assert.Equal(t, 2, stats.EdgeCount)
	assert.Equal(t, 0, stats.CycleCount)
	assert.ElementsMatch(t, []string{"a.go"}, stats.Roots)
	assert.ElementsMatch(t, []string{"c.go"}, stats.Leaves)
	assert.Equal(t, 3, stats.LanguageDistribution["go"])
}

func TestStats_CountsNonTrivialSCCsAsCycles(t *testing.T) {
	corpus := extractor.NewCorpus([]tagkind.Tag{
		importTag("a.go", "b.go"),
		importTag("b.go", "a.go"),
		importTag("c.go", "d.go"),
	}, nil)
	g := Build(corpus, identityResolver)

	stats := g.Stats()
	assert.Equal(t, 1, stats.CycleCount)
}

func TestCycles_DetectsSimpleCycle(t *testing.T) {
	corpus := extractor.NewCorpus([]tagkind.Tag{
		importTag("a.go", "b.go"),
		importTag("b.go", "c.go"),
		importTag("c.go", "a.go"),
	}, nil)
	g := Build(corpus, identityResolver)

	opts := config.Default()
	cycles, err := Cycles(g, opts)
	require.NoError(t, err)
	require.Len(t, cycles, 1)
	assert.Len(t, cycles[0].Files, 3)
}

func TestCycles_NoCycleInDAG(t *testing.T) {
	corpus := extractor.NewCorpus([]tagkind.Tag{
		importTag("a.go", "b.go"),
		importTag("a.go", "c.go"),
	}, nil)
	g := Build(corpus, identityResolver)

	cycles, err := Cycles(g, config.Default())
	require.NoError(t, err)
	assert.Empty(t, cycles)
}

func TestCompute_DegreeCentrality(t *testing.T) {
	corpus := extractor.NewCorpus([]tagkind.Tag{
		importTag("hub.go", "a.go"),
		importTag("hub.go", "b.go"),
		importTag("hub.go", "c.go"),
	}, nil)
	g := Build(corpus, identityResolver)

	c, err := Compute(g, config.CentralityDegree, config.DefaultRankerWeights())
	require.NoError(t, err)
	assert.Greater(t, c["hub.go"], c["a.go"])
}

func TestChangeImpact_TransitiveDependents(t *testing.T) {
	corpus := extractor.NewCorpus([]tagkind.Tag{
		importTag("a.go", "b.go"),
		importTag("b.go", "c.go"),
	}, nil)
	g := Build(corpus, identityResolver)

	impact := ChangeImpact(g, []string{"c.go"}, config.DefaultRankerWeights())
	assert.ElementsMatch(t, []string{"a.go", "b.go"}, impact.AffectedFiles)
	assert.Equal(t, BreakingMed, impact.BreakingChangeLevelPerFile["c.go"])
	assert.Contains(t, impact.SuggestedTests, "c_test.go")
	assert.GreaterOrEqual(t, impact.RiskScore, 0.0)
	assert.LessOrEqual(t, impact.RiskScore, 1.0)
}

func TestChangeImpact_CycleBumpsSeverity(t *testing.T) {
	corpus := extractor.NewCorpus([]tagkind.Tag{
		importTag("a.go", "b.go"),
		importTag("b.go", "a.go"),
	}, nil)
	g := Build(corpus, identityResolver)

	impact := ChangeImpact(g, []string{"a.go"}, config.DefaultRankerWeights())
	assert.Equal(t, BreakingHigh, impact.BreakingChangeLevelPerFile["a.go"])
}
