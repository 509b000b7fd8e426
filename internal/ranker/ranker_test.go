package ranker

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cyber-nic/repomap/internal/config"
	"github.com/cyber-nic/repomap/internal/extractor"
	"github.com/cyber-nic/repomap/internal/graphbuilder"
	"github.com/cyber-nic/repomap/internal/tagkind"
)

func mk(file, name string, kind tagkind.Kind, isDef bool, line int) tagkind.Tag {
	return tagkind.Tag{File: file, Name: name, Kind: kind, IsDef: isDef, Line: line}
}

func TestRank_FallsBackWithoutReferences(t *testing.T) {
	corpus := extractor.NewCorpus([]tagkind.Tag{
		mk("a.go", "Lonely", tagkind.KindFunctionName, true, 1),
	}, nil)
	g := graphbuilder.Build(corpus, nil, config.DefaultRankerWeights())

	ranked := Rank(g, nil, nil, config.DefaultRankerWeights())
	assert.Empty(t, ranked)
}

func TestRank_SingleReferenceProducesPositiveRank(t *testing.T) {
	corpus := extractor.NewCorpus([]tagkind.Tag{
		mk("a.go", "Widget", tagkind.KindFunctionName, true, 3),
		mk("b.go", "Widget", tagkind.KindFunctionName, false, 10),
	}, nil)
	g := graphbuilder.Build(corpus, nil, config.DefaultRankerWeights())

	ranked := Rank(g, nil, nil, config.DefaultRankerWeights())
	if assert.Len(t, ranked, 1) {
		assert.Equal(t, "a.go", ranked[0].Tag.File)
		assert.Greater(t, ranked[0].Rank, 0.0)
	}
}

func TestRank_MentionedSymbolOutranksUnmentioned(t *testing.T) {
	corpus := extractor.NewCorpus([]tagkind.Tag{
		mk("a.go", "Boosted", tagkind.KindFunctionName, true, 1),
		mk("b.go", "Boosted", tagkind.KindFunctionName, false, 1),
		mk("c.go", "Plain", tagkind.KindFunctionName, true, 1),
		mk("d.go", "Plain", tagkind.KindFunctionName, false, 1),
	}, nil)
	weights := config.DefaultRankerWeights()
	g := graphbuilder.Build(corpus, map[string]bool{"Boosted": true}, weights)

	ranked := Rank(g, nil, nil, weights)
	byFile := map[string]float64{}
	for _, r := range ranked {
		byFile[r.Tag.File] = r.Rank
	}
	assert.Greater(t, byFile["a.go"], byFile["c.go"])
}

func TestRank_ChatFilePersonalizationPropagatesToReferencedDefinition(t *testing.T) {
	corpus := extractor.NewCorpus([]tagkind.Tag{
		mk("chat.go", "Helper", tagkind.KindFunctionName, false, 1),
		mk("helper.go", "Helper", tagkind.KindFunctionName, true, 1),
		mk("other.go", "Other", tagkind.KindFunctionName, false, 1),
		mk("otherdef.go", "Other", tagkind.KindFunctionName, true, 1),
	}, nil)
	weights := config.DefaultRankerWeights()
	g := graphbuilder.Build(corpus, nil, weights)

	ranked := Rank(g, map[string]bool{"chat.go": true}, nil, weights)
	byFile := map[string]float64{}
	for _, r := range ranked {
		byFile[r.Tag.File] = r.Rank
	}

	// helper.go is reached by the personalization mass flowing out of the
	// chat file; otherdef.go sits in a disconnected component the
	// personalization vector never restarts into.
	assert.Greater(t, byFile["helper.go"], byFile["otherdef.go"])
	assert.Greater(t, byFile["helper.go"], 0.0)
}

func TestRank_FallsBackToUniformWithoutChatOrMentionedFiles(t *testing.T) {
	corpus := extractor.NewCorpus([]tagkind.Tag{
		mk("a.go", "Widget", tagkind.KindFunctionName, true, 3),
		mk("b.go", "Widget", tagkind.KindFunctionName, false, 10),
	}, nil)
	weights := config.DefaultRankerWeights()
	g := graphbuilder.Build(corpus, nil, weights)

	ranked := Rank(g, nil, nil, weights)
	if assert.Len(t, ranked, 1) {
		assert.Greater(t, ranked[0].Rank, 0.0)
	}
}

func TestResolveMapTokens_ChatFilesSkipWindowCap(t *testing.T) {
	opts := config.Default()
	opts.MapTokens = 4096
	assert.Equal(t, 4096, ResolveMapTokens(opts, 1, 8000, 8))
}

func TestResolveMapTokens_NoChatFilesCapsToWindow(t *testing.T) {
	opts := config.Default()
	opts.MapTokens = 4096
	got := ResolveMapTokens(opts, 0, 8000, 8)
	assert.LessOrEqual(t, got, 8000)
}
