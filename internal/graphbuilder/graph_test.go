package graphbuilder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyber-nic/repomap/internal/config"
	"github.com/cyber-nic/repomap/internal/extractor"
	"github.com/cyber-nic/repomap/internal/tagkind"
)

func tag(file, name string, kind tagkind.Kind, isDef bool) tagkind.Tag {
	return tagkind.Tag{File: file, Name: name, Kind: kind, IsDef: isDef}
}

func TestBuild_EdgeFromReferencerToDefiner(t *testing.T) {
	corpus := extractor.NewCorpus([]tagkind.Tag{
		tag("a.go", "Widget", tagkind.KindFunctionName, true),
		tag("b.go", "Widget", tagkind.KindFunctionName, false),
	}, nil)

	g := Build(corpus, nil, config.DefaultRankerWeights())

	require.Contains(t, g.NodeByFile, "a.go")
	require.Contains(t, g.NodeByFile, "b.go")

	bNode := g.NodeByFile["b.go"]
	aNode := g.NodeByFile["a.go"]
	lines := g.G.WeightedLines(bNode.ID(), aNode.ID())
	require.NotNil(t, lines)
	assert.True(t, lines.Next())
}

func TestBuild_NoEdgeWithoutCrossFileReference(t *testing.T) {
	corpus := extractor.NewCorpus([]tagkind.Tag{
		tag("a.go", "Local", tagkind.KindVariableName, true),
	}, nil)

	g := Build(corpus, nil, config.DefaultRankerWeights())
	assert.Len(t, g.Files(), 1)
	assert.Empty(t, g.Identifiers)
}

func TestBuild_MentionedIdentifierIncreasesWeight(t *testing.T) {
	tags := []tagkind.Tag{
		tag("a.go", "Compute", tagkind.KindFunctionName, true),
		tag("b.go", "Compute", tagkind.KindFunctionName, false),
	}
	corpus := extractor.NewCorpus(tags, nil)

	plain := Build(corpus, nil, config.DefaultRankerWeights())
	boosted := Build(corpus, map[string]bool{"Compute": true}, config.DefaultRankerWeights())

	weightOf := func(g *Graph) float64 {
		lines := g.G.WeightedLines(g.NodeByFile["b.go"].ID(), g.NodeByFile["a.go"].ID())
		lines.Next()
		return lines.WeightedLine().Weight()
	}

	assert.Greater(t, weightOf(boosted), weightOf(plain))
}
