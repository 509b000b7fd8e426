package explore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyber-nic/repomap/internal/config"
	"github.com/cyber-nic/repomap/internal/extractor"
	"github.com/cyber-nic/repomap/internal/graphbuilder"
	"github.com/cyber-nic/repomap/internal/match"
	"github.com/cyber-nic/repomap/internal/tagkind"
)

func buildGraph(t *testing.T) *graphbuilder.Graph {
	t.Helper()
	corpus := extractor.NewCorpus([]tagkind.Tag{
		{File: "a.go", Name: "Router", Kind: tagkind.KindFunctionName, IsDef: true, Line: 1},
		{File: "b.go", Name: "Router", Kind: tagkind.KindFunctionName, IsDef: false, Line: 5},
		{File: "b.go", Name: "Handler", Kind: tagkind.KindFunctionName, IsDef: true, Line: 9},
		{File: "c.go", Name: "Handler", Kind: tagkind.KindFunctionName, IsDef: false, Line: 3},
	}, nil)
	return graphbuilder.Build(corpus, nil, config.DefaultRankerWeights())
}

func TestExplore_BuildsTreeFromMatch(t *testing.T) {
	g := buildGraph(t)
	candidates := []match.Candidate{{Name: "Router", File: "a.go"}, {Name: "Handler", File: "b.go"}}
	opts := config.Default()
	opts.ExplorationMaxDepth = 2
	opts.ExplorationMaxTrees = 1

	hybrid, err := match.NewHybridMatcherFromOptions(candidates, opts, 1)
	require.NoError(t, err)

	s := NewSession("/repo", "router", 1000)
	err = Explore(s, "Router", hybrid, candidates, g, opts, 1000)
	require.NoError(t, err)
	require.Len(t, s.Trees, 1)

	tree := ListTrees(s)[0]
	assert.Equal(t, "a.go", tree.Nodes[tree.RootID].File)
}

func TestFocus_UnfocusesOtherTrees(t *testing.T) {
	s := NewSession("/repo", "q", 1)
	s.Trees["t1"] = Tree{ID: "t1", RootID: "r1", Nodes: map[string]Node{"r1": {ID: "r1", File: "a.go"}}}
	s.Trees["t2"] = Tree{ID: "t2", RootID: "r2", Nodes: map[string]Node{"r2": {ID: "r2", File: "b.go"}}}

	require.NoError(t, Focus(s, "t1", 2))
	assert.True(t, s.Trees["t1"].Focused)
	assert.False(t, s.Trees["t2"].Focused)
}

func TestExpand_AddsNeighborFiles(t *testing.T) {
	g := buildGraph(t)
	s := NewSession("/repo", "q", 1)
	root := Node{ID: "root", File: "a.go"}
	s.Trees["t1"] = Tree{ID: "t1", RootID: "root", Nodes: map[string]Node{"root": root}}

	require.NoError(t, Expand(s, "a.go", "t1", g, 2))
	tree := s.Trees["t1"]
	assert.Greater(t, len(tree.Nodes), 1)
	assert.Contains(t, tree.ExpandedAreas, "a.go")
}

func TestPrune_RemovesSubtree(t *testing.T) {
	s := NewSession("/repo", "q", 1)
	s.Trees["t1"] = Tree{
		ID: "t1", RootID: "root",
		Nodes: map[string]Node{
			"root":  {ID: "root", File: "a.go", Children: []string{"child"}},
			"child": {ID: "child", File: "b.go", ParentID: "root"},
		},
	}

	require.NoError(t, Prune(s, "b.go", "t1", 2))
	tree := s.Trees["t1"]
	assert.NotContains(t, tree.Nodes, "child")
	assert.Empty(t, tree.Nodes["root"].Children)
}

func TestPrune_RootRemovesWholeTree(t *testing.T) {
	s := NewSession("/repo", "q", 1)
	s.Trees["t1"] = Tree{ID: "t1", RootID: "root", Nodes: map[string]Node{"root": {ID: "root", File: "a.go"}}}

	require.NoError(t, Prune(s, "a.go", "t1", 2))
	assert.NotContains(t, s.Trees, "t1")
}

func TestExpand_MatchesAreaByTreeTitle(t *testing.T) {
	g := buildGraph(t)
	s := NewSession("/repo", "q", 1)
	root := Node{ID: "root", File: "a.go"}
	s.Trees["t1"] = Tree{ID: "t1", Title: "Router Setup", RootID: "root", Nodes: map[string]Node{"root": root}}

	require.NoError(t, Expand(s, "router", "", g, 2))
	tree := s.Trees["t1"]
	assert.Greater(t, len(tree.Nodes), 1)
}

func TestRender_MarksFocusedTreeAndExpandedNodes(t *testing.T) {
	s := NewSession("/repo", "q", 1)
	s.Trees["t1"] = Tree{
		ID: "t1", Title: "Router Setup", RootID: "root", Focused: true,
		Nodes: map[string]Node{
			"root":  {ID: "root", File: "a.go", Symbol: "Router", Children: []string{"child"}},
			"child": {ID: "child", File: "b.go", Symbol: "Handler", ParentID: "root", AddedViaExpand: true},
		},
	}

	out := Render(s)
	assert.Contains(t, out, "🎯 Router Setup")
	assert.Contains(t, out, "└── Router")
	assert.Contains(t, out, "└── Handler 🆕 EXPANDED")
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	s := NewSession("/repo", "q", 42)
	require.NoError(t, store.Save(s))

	loaded, err := store.Load(s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, loaded.ID)
	assert.Equal(t, int64(42), loaded.CreatedAt)
}
