// Package depanalyzer builds a directed file-import graph and answers
// structural questions over it: aggregate statistics, cycle detection,
// centrality, and change-impact (transitive dependents).
package depanalyzer

import (
	"sort"
	"strconv"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/cyber-nic/repomap/internal/apperr"
	"github.com/cyber-nic/repomap/internal/extractor"
	"github.com/cyber-nic/repomap/internal/parser"
	"github.com/cyber-nic/repomap/internal/tagkind"
)

// Resolver turns an import-reference tag's name (as written in source, e.g.
// "./util", "github.com/acme/pkg/sub", "com.acme.Util") into the corpus-
// relative file path it resolves to. ok=false means the import couldn't be
// resolved against files in this corpus (stdlib or third-party import) and
// is silently skipped rather than treated as an error.
type Resolver func(fromFile, importSpec string) (toFile string, ok bool)

// Graph is the directed import graph: an edge from A to B means A imports
// B.
type Graph struct {
	G          *simple.DirectedGraph
	NodeByFile map[string]int64
	FileByNode map[int64]string
}

// Build constructs the import graph for corpus using resolve to turn each
// raw import reference into a target file.
func Build(corpus *extractor.Corpus, resolve Resolver) *Graph {
	g := simple.NewDirectedGraph()
	nodeByFile := make(map[string]int64)
	fileByNode := make(map[int64]string)

	nodeFor := func(file string) int64 {
		if id, ok := nodeByFile[file]; ok {
			return id
		}
		n := g.NewNode()
		g.AddNode(n)
		nodeByFile[file] = n.ID()
		fileByNode[n.ID()] = file
		return n.ID()
	}

	for _, f := range corpus.Files() {
		nodeFor(f)
	}

	seenEdge := make(map[[2]int64]bool)
	for _, t := range corpus.Tags {
		if t.Kind != tagkind.KindImportReference || t.IsDef {
			continue
		}
		target, ok := resolve(t.File, t.Name)
		if !ok {
			continue
		}
		from := nodeFor(t.File)
		to := nodeFor(target)
		if from == to {
			continue
		}
		key := [2]int64{from, to}
		if seenEdge[key] {
			continue
		}
		seenEdge[key] = true
		g.SetEdge(g.NewEdge(g.Node(from), g.Node(to)))
	}

	return &Graph{G: g, NodeByFile: nodeByFile, FileByNode: fileByNode}
}

// Files returns every file with a node in the graph, sorted.
func (gr *Graph) Files() []string {
	out := make([]string, 0, len(gr.NodeByFile))
	for f := range gr.NodeByFile {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Statistics summarizes graph shape.
type Statistics struct {
	FileCount     int
	EdgeCount     int
	AverageDegree float64
	MaxDegree     int
	MaxDegreeFile string

	// CycleCount is the number of strongly connected components with more
	// than one member, i.e. the number of distinct import cycles at the SCC
	// granularity (not the possibly much larger count of simple cycles
	// Cycles enumerates within them).
	CycleCount int
	// Leaves are files that import nothing in this corpus.
	Leaves []string
	// Roots are files nothing in this corpus imports.
	Roots []string
	// LanguageDistribution counts files per detected language ("go",
	// "python", ...); files whose extension parser.DetectLanguage doesn't
	// recognize are counted under "unknown".
	LanguageDistribution map[string]int
}

// Stats computes aggregate statistics over the graph.
func (gr *Graph) Stats() Statistics {
	nodes := gr.G.Nodes()
	fileCount := nodes.Len()
	edgeCount := gr.G.Edges().Len()

	var maxDegree int
	var maxFile string
	var leaves, roots []string
	langs := make(map[string]int)
	for _, f := range gr.Files() {
		id := gr.NodeByFile[f]
		outDegree := gr.G.From(id).Len()
		inDegree := gr.G.To(id).Len()
		degree := outDegree + inDegree
		if degree > maxDegree {
			maxDegree = degree
			maxFile = f
		}
		if outDegree == 0 {
			leaves = append(leaves, f)
		}
		if inDegree == 0 {
			roots = append(roots, f)
		}

		lang := "unknown"
		if l, ok := parser.DetectLanguage(f); ok {
			lang = string(l)
		}
		langs[lang]++
	}

	avg := 0.0
	if fileCount > 0 {
		avg = float64(edgeCount) / float64(fileCount)
	}

	var cycleCount int
	for _, scc := range topo.TarjanSCC(gr.G) {
		if len(scc) > 1 {
			cycleCount++
		}
	}

	return Statistics{
		FileCount: fileCount, EdgeCount: edgeCount,
		AverageDegree: avg, MaxDegree: maxDegree, MaxDegreeFile: maxFile,
		CycleCount: cycleCount, Leaves: leaves, Roots: roots,
		LanguageDistribution: langs,
	}
}

// guardSize rejects graphs larger than maxNodes; maxNodes <= 0 disables the
// check. Cycles passes opts.DependenciesMaxGraphSize. Compute passes 0, so
// degree, betweenness and PageRank centrality run on graphs of any size.
func guardSize(gr *Graph, maxNodes int) error {
	if maxNodes > 0 && gr.G.Nodes().Len() > maxNodes {
		return apperr.New(apperr.KindGraph, "dependency graph exceeds configured max_graph_size", map[string]string{
			"nodes": strconv.Itoa(gr.G.Nodes().Len()),
		})
	}
	return nil
}

var _ graph.Directed = (*simple.DirectedGraph)(nil)
