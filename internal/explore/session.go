// Package explore implements interactive codebase exploration sessions:
// discovered entrypoints cluster into trees by shared vocabulary and
// directory, trees grow by walking the symbol graph outward from their
// root, and the whole session persists to disk so a client can resume it
// across process restarts.
package explore

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/cyber-nic/repomap/internal/apperr"
	"github.com/cyber-nic/repomap/internal/config"
	"github.com/cyber-nic/repomap/internal/graphbuilder"
	"github.com/cyber-nic/repomap/internal/match"
	"github.com/cyber-nic/repomap/internal/tagkind"
)

// Node is one explored symbol: a definition plus the children discovered by
// following its file's graph edges outward.
type Node struct {
	ID             string   `json:"id"`
	File           string   `json:"file"`
	Symbol         string   `json:"symbol"`
	Kind           string   `json:"kind"`
	Depth          int      `json:"depth"`
	Confidence     float64  `json:"confidence"`
	Children       []string `json:"children"` // child Node IDs
	ParentID       string   `json:"parent_id,omitempty"`
	AddedViaExpand bool     `json:"added_via_expand,omitempty"`
}

// Tree is one exploration tree grown from a cluster of matched entrypoints.
type Tree struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	EntryPoint    string          `json:"entry_point"`
	RootID        string          `json:"root_id"`
	Nodes         map[string]Node `json:"nodes"`
	Focused       bool            `json:"focused"`
	Confidence    float64         `json:"confidence"`
	ExpandedAreas []string        `json:"expanded_areas,omitempty"`
	CreatedAt     int64           `json:"created_at"`
	LastModified  int64           `json:"last_modified"`
}

// Session is the persisted unit of exploration state for one root
// directory.
type Session struct {
	ID        string          `json:"id"`
	Root      string          `json:"root"`
	Query     string          `json:"query"`
	Trees     map[string]Tree `json:"trees"`
	CreatedAt int64           `json:"created_at"`
	UpdatedAt int64           `json:"updated_at"`
}

// Status summarizes a session for a quick health check.
type Status struct {
	SessionID string
	TreeCount int
	NodeCount int
	UpdatedAt int64
}

// NewSession creates an empty session rooted at root. now is injected by the
// caller (e.g. time.Now().Unix()) since this package never reads the clock
// itself, keeping session construction deterministic for tests.
func NewSession(root, query string, now int64) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Root:      root,
		Query:     query,
		Trees:     make(map[string]Tree),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func newNodeID() string { return uuid.NewString() }

// topTermsPerEntrypoint bounds how many TF-IDF terms each candidate
// contributes to cluster matching and title synthesis.
const topTermsPerEntrypoint = 5

// Explore finds entrypoints for query via the hybrid matcher, clusters them
// by shared top TF-IDF terms and co-located directory, and builds one tree
// per cluster (up to opts.ExplorationMaxTrees), each with a synthesized
// title.
func Explore(s *Session, query string, hybrid *match.HybridMatcher, candidates []match.Candidate, g *graphbuilder.Graph, opts config.Options, now int64) error {
	results := hybrid.Match(query, candidates, opts.SemanticThreshold)
	if len(results) == 0 {
		return apperr.New(apperr.KindInput, "no entrypoints matched query", map[string]string{"query": query})
	}

	clusters := clusterEntrypoints(results, hybrid, topTermsPerEntrypoint)

	max := opts.ExplorationMaxTrees
	if max <= 0 || max > len(clusters) {
		max = len(clusters)
	}

	for _, cluster := range clusters[:max] {
		tree := buildTreeFromCluster(cluster, g, opts.ExplorationMaxDepth, now)
		s.Trees[tree.ID] = tree
	}
	s.Query = query
	s.UpdatedAt = now
	return nil
}

// buildTreeFromCluster seeds the tree at the cluster's highest-scoring
// entrypoint, folds every other cluster member into the same tree as a
// direct child of the root (so the tree stays single-rooted even when a
// cluster's members aren't directly connected by graph edges), then expands
// both outward by the symbol graph up to maxDepth.
func buildTreeFromCluster(cluster []entrypointCandidate, g *graphbuilder.Graph, maxDepth int, now int64) Tree {
	sort.Slice(cluster, func(i, j int) bool { return cluster[i].result.Score > cluster[j].result.Score })
	best := cluster[0]

	tree := buildTree(best.result.Candidate.File, best.result.Candidate.Name, best.result.Score, g, maxDepth)
	tree.Title = synthesizeTitle(cluster)
	tree.Confidence = averageConfidence(cluster)
	tree.CreatedAt = now
	tree.LastModified = now

	seenFiles := make(map[string]bool, len(tree.Nodes))
	for _, n := range tree.Nodes {
		seenFiles[n.File] = true
	}

	root := tree.Nodes[tree.RootID]
	for _, member := range cluster[1:] {
		file := member.result.Candidate.File
		if seenFiles[file] {
			continue
		}
		seenFiles[file] = true
		child := Node{
			ID: newNodeID(), File: file, Symbol: member.result.Candidate.Name,
			Depth: 1, ParentID: root.ID, Confidence: member.result.Score,
		}
		tree.Nodes[child.ID] = child
		root.Children = append(root.Children, child.ID)
		growSubtree(tree.Nodes, child, g, maxDepth, seenFiles)
	}
	tree.Nodes[root.ID] = root

	return tree
}

// buildTree walks the symbol graph outward from (file, symbol) up to
// maxDepth hops, following file-level edges the graph builder recorded for
// shared identifiers. rootConfidence decays by depth on the way out.
func buildTree(file, symbol string, rootConfidence float64, g *graphbuilder.Graph, maxDepth int) Tree {
	root := Node{ID: newNodeID(), File: file, Symbol: symbol, Depth: 0, Confidence: rootConfidence}
	nodes := map[string]Node{root.ID: root}
	visitedFiles := map[string]bool{file: true}
	growSubtree(nodes, root, g, maxDepth, visitedFiles)

	return Tree{ID: uuid.NewString(), EntryPoint: symbol, RootID: root.ID, Nodes: nodes}
}

// confidenceDecay is applied per hop away from a node whose confidence is
// actually known (a matched entrypoint); nodes discovered purely by graph
// adjacency inherit a fraction of their parent's confidence rather than an
// invented absolute score.
const confidenceDecay = 0.75

// growSubtree breadth-first expands from (already-inserted) start out to
// maxDepth total hops, mutating nodes in place and marking newly visited
// files in visitedFiles.
func growSubtree(nodes map[string]Node, start Node, g *graphbuilder.Graph, maxDepth int, visitedFiles map[string]bool) {
	type frontierEntry struct {
		nodeID string
		file   string
	}
	frontier := []frontierEntry{{start.ID, start.File}}

	for depth := start.Depth + 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		var next []frontierEntry
		for _, fe := range frontier {
			parent := nodes[fe.nodeID]
			for _, childFile := range neighborFiles(g, fe.file) {
				if visitedFiles[childFile] {
					continue
				}
				visitedFiles[childFile] = true
				child := Node{
					ID: newNodeID(), File: childFile, Symbol: representativeSymbol(g, childFile),
					Depth: depth, ParentID: parent.ID, Confidence: parent.Confidence * confidenceDecay,
				}
				nodes[child.ID] = child
				parent.Children = append(parent.Children, child.ID)
				nodes[parent.ID] = parent
				next = append(next, frontierEntry{child.ID, childFile})
			}
		}
		frontier = next
	}
}

// neighborFiles returns files the graph connects to file, in either
// direction, sorted for determinism.
func neighborFiles(g *graphbuilder.Graph, file string) []string {
	node, ok := g.NodeByFile[file]
	if !ok {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	add := func(f string) {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	from := g.G.From(node.ID())
	for from.Next() {
		add(g.FileByNode[from.Node().ID()])
	}
	to := g.G.To(node.ID())
	for to.Next() {
		add(g.FileByNode[to.Node().ID()])
	}
	sort.Strings(out)
	return out
}

func representativeSymbol(g *graphbuilder.Graph, file string) string {
	var best string
	var bestPriority = 99
	for key, tags := range g.Definitions {
		if key.File != file || len(tags) == 0 {
			continue
		}
		p := tagkind.RenderPriority(tags[0].Kind)
		if p < bestPriority || (p == bestPriority && key.Symbol < best) {
			bestPriority, best = p, key.Symbol
		}
	}
	return best
}

// Focus marks treeID as the session's focused tree (at most one at a time;
// focusing a new tree unfocuses the rest).
func Focus(s *Session, treeID string, now int64) error {
	if _, ok := s.Trees[treeID]; !ok {
		return apperr.New(apperr.KindSession, "unknown tree", map[string]string{"tree_id": treeID})
	}
	for id, other := range s.Trees {
		other.Focused = id == treeID
		s.Trees[id] = other
	}
	s.UpdatedAt = now
	return nil
}

// Expand grows the area named areaName by one more hop of the symbol graph.
// areaName is matched against tree titles first, then node names (symbol or
// file basename); treeID narrows the search to a single tree when non-empty,
// matching expand(area_name [, tree_id]). The matched area is recorded into
// its tree's ExpandedAreas set.
func Expand(s *Session, areaName, treeID string, g *graphbuilder.Graph, now int64) error {
	foundTreeID, nodeID, err := resolveArea(s, treeID, areaName)
	if err != nil {
		return err
	}

	tree := s.Trees[foundTreeID]
	node, ok := tree.Nodes[nodeID]
	if !ok {
		return apperr.New(apperr.KindInput, "unknown node", map[string]string{"node_id": nodeID})
	}

	visited := map[string]bool{}
	for id, n := range tree.Nodes {
		visited[n.File] = true
		if n.AddedViaExpand {
			n.AddedViaExpand = false
			tree.Nodes[id] = n
		}
	}

	for _, childFile := range neighborFiles(g, node.File) {
		if visited[childFile] {
			continue
		}
		visited[childFile] = true
		child := Node{
			ID: newNodeID(), File: childFile, Symbol: representativeSymbol(g, childFile),
			Depth: node.Depth + 1, ParentID: node.ID, Confidence: node.Confidence * confidenceDecay,
			AddedViaExpand: true,
		}
		tree.Nodes[child.ID] = child
		node.Children = append(node.Children, child.ID)
	}
	tree.Nodes[node.ID] = node
	tree.ExpandedAreas = addUnique(tree.ExpandedAreas, areaName)
	tree.LastModified = now
	s.Trees[foundTreeID] = tree
	s.UpdatedAt = now
	return nil
}

// Prune removes the area named areaName, and its descendants, from its
// tree. Pruning the root removes the whole tree from the session. Matching
// rules are identical to Expand.
func Prune(s *Session, areaName, treeID string, now int64) error {
	foundTreeID, nodeID, err := resolveArea(s, treeID, areaName)
	if err != nil {
		return err
	}

	tree := s.Trees[foundTreeID]
	if nodeID == tree.RootID {
		delete(s.Trees, foundTreeID)
		s.UpdatedAt = now
		return nil
	}

	var remove func(id string)
	remove = func(id string) {
		n, ok := tree.Nodes[id]
		if !ok {
			return
		}
		for _, c := range n.Children {
			remove(c)
		}
		delete(tree.Nodes, id)
	}
	remove(nodeID)

	for id, n := range tree.Nodes {
		filtered := n.Children[:0]
		for _, c := range n.Children {
			if c != nodeID {
				filtered = append(filtered, c)
			}
		}
		n.Children = filtered
		tree.Nodes[id] = n
	}

	tree.LastModified = now
	s.Trees[foundTreeID] = tree
	s.UpdatedAt = now
	return nil
}

// resolveArea finds the (treeID, nodeID) pair areaName names: an exact or
// substring, case-insensitive match against a tree's title takes priority
// over a match against a node's symbol or file basename. When treeID is
// non-empty the search is restricted to that tree.
func resolveArea(s *Session, treeID, areaName string) (string, string, error) {
	candidates := []string{treeID}
	if treeID == "" {
		candidates = candidates[:0]
		for id := range s.Trees {
			candidates = append(candidates, id)
		}
		sort.Strings(candidates)
	}

	needle := strings.ToLower(areaName)

	for _, tid := range candidates {
		t, ok := s.Trees[tid]
		if !ok {
			continue
		}
		if t.Title != "" && strings.Contains(strings.ToLower(t.Title), needle) {
			return tid, t.RootID, nil
		}
	}

	for _, tid := range candidates {
		t, ok := s.Trees[tid]
		if !ok {
			continue
		}
		nodeIDs := make([]string, 0, len(t.Nodes))
		for id := range t.Nodes {
			nodeIDs = append(nodeIDs, id)
		}
		sort.Strings(nodeIDs)
		for _, nid := range nodeIDs {
			n := t.Nodes[nid]
			if strings.Contains(strings.ToLower(n.Symbol), needle) ||
				strings.Contains(strings.ToLower(filepath.Base(n.File)), needle) {
				return tid, nid, nil
			}
		}
	}

	return "", "", apperr.New(apperr.KindInput, "no area matches name", map[string]string{
		"area": areaName, "tree_id": treeID,
	})
}

func addUnique(areas []string, name string) []string {
	for _, a := range areas {
		if a == name {
			return areas
		}
	}
	return append(areas, name)
}

// ListTrees returns every tree in the session sorted by ID.
func ListTrees(s *Session) []Tree {
	out := make([]Tree, 0, len(s.Trees))
	for _, t := range s.Trees {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// MapTags flattens every tree's nodes into definition tags the ranker can
// render, restricted to session.Root's definitions for each visited file.
func MapTags(s *Session, g *graphbuilder.Graph) []tagkind.Tag {
	var out []tagkind.Tag
	seen := map[string]bool{}
	for _, t := range s.Trees {
		for _, n := range t.Nodes {
			if seen[n.File] {
				continue
			}
			seen[n.File] = true
			for key, tags := range g.Definitions {
				if key.File == n.File {
					out = append(out, tags...)
				}
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		return out[i].Line < out[j].Line
	})
	return out
}

// StatusOf summarizes the session.
func StatusOf(s *Session) Status {
	nodeCount := 0
	for _, t := range s.Trees {
		nodeCount += len(t.Nodes)
	}
	return Status{SessionID: s.ID, TreeCount: len(s.Trees), NodeCount: nodeCount, UpdatedAt: s.UpdatedAt}
}
