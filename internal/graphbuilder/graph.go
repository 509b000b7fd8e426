// Package graphbuilder turns a tag corpus into a weighted, multi-directed
// file graph: one node per file, one edge per (referencing file, defining
// file) pair for each shared identifier, weighted by how distinctive that
// identifier is.
package graphbuilder

import (
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/multi"

	"github.com/cyber-nic/repomap/internal/config"
	"github.com/cyber-nic/repomap/internal/extractor"
	"github.com/cyber-nic/repomap/internal/tagkind"
)

// TagKey names one (file, identifier) pair; Graph.Definitions maps it onto
// the definition tags that file contributes for that identifier.
type TagKey struct {
	File   string
	Symbol string
}

// Graph is the symbol graph for one corpus: a weighted multigraph over
// files plus the index data the ranker needs to redistribute PageRank mass
// back onto individual definitions.
type Graph struct {
	G           *multi.WeightedDirectedGraph
	NodeByFile  map[string]graph.Node
	FileByNode  map[int64]string
	Defines     map[string]map[string]struct{} // symbol -> defining files
	References  map[string][]string            // symbol -> referencing files (repeated per reference)
	Definitions map[TagKey][]tagkind.Tag        // (file, symbol) -> definition tags
	Identifiers map[string]bool                // symbols with both a def and a ref
}

// identifierWeight returns the multiplier applied to every edge an
// identifier contributes, mirroring the mentioned/private/default tiers.
func identifierWeight(symbol string, mentioned map[string]bool, w config.RankerWeights) float64 {
	switch {
	case mentioned[symbol]:
		return w.MentionedIdentifierMultiplier
	case strings.HasPrefix(symbol, "_"):
		return w.PrivateIdentifierMultiplier
	default:
		return 1.0
	}
}

// Build constructs the symbol graph from corpus. mentioned is the set of
// identifiers the caller wants boosted (e.g. names appearing in a chat
// message or search query); it may be nil.
func Build(corpus *extractor.Corpus, mentioned map[string]bool, weights config.RankerWeights) *Graph {
	if mentioned == nil {
		mentioned = map[string]bool{}
	}

	defines := make(map[string]map[string]struct{})
	references := make(map[string][]string)
	definitions := make(map[TagKey][]tagkind.Tag)
	identifiers := make(map[string]bool)

	for _, t := range corpus.Tags {
		if t.IsDef {
			if defines[t.Name] == nil {
				defines[t.Name] = make(map[string]struct{})
			}
			defines[t.Name][t.File] = struct{}{}
			k := TagKey{File: t.File, Symbol: t.Name}
			definitions[k] = append(definitions[k], t)
		} else {
			references[t.Name] = append(references[t.Name], t.File)
		}
	}
	for symbol := range references {
		if len(defines[symbol]) > 0 {
			identifiers[symbol] = true
		}
	}

	g := multi.NewWeightedDirectedGraph()
	nodeByFile := make(map[string]graph.Node)
	fileByNode := make(map[int64]string)

	fileSet := make(map[string]struct{})
	for _, files := range defines {
		for f := range files {
			fileSet[f] = struct{}{}
		}
	}
	for _, files := range references {
		for _, f := range files {
			fileSet[f] = struct{}{}
		}
	}
	// Every file that produced at least one tag gets a node, even if it
	// never references or is referenced by anything else.
	for _, f := range corpus.Files() {
		fileSet[f] = struct{}{}
	}

	sortedFiles := make([]string, 0, len(fileSet))
	for f := range fileSet {
		sortedFiles = append(sortedFiles, f)
	}
	sort.Strings(sortedFiles)

	for _, f := range sortedFiles {
		n := g.NewNode()
		g.AddNode(n)
		nodeByFile[f] = n
		fileByNode[n.ID()] = f
	}

	for ident := range identifiers {
		defFiles := defines[ident]
		refs := references[ident]
		if len(defFiles) == 0 || len(refs) == 0 {
			continue
		}
		mul := identifierWeight(ident, mentioned, weights)
		refCounts := make(map[string]int)
		var refOrder []string
		for _, refFile := range refs {
			if refCounts[refFile] == 0 {
				refOrder = append(refOrder, refFile)
			}
			refCounts[refFile]++
		}
		for _, refFile := range refOrder {
			refNode, ok := nodeByFile[refFile]
			if !ok {
				continue
			}
			w := mul * math.Sqrt(float64(refCounts[refFile]))
			for defFile := range defFiles {
				if defFile == refFile {
					continue // self-reference within one file carries no cross-file signal
				}
				defNode := nodeByFile[defFile]
				edge := g.NewWeightedLine(refNode, defNode, w)
				g.SetWeightedLine(edge)
			}
		}
	}

	return &Graph{
		G: g, NodeByFile: nodeByFile, FileByNode: fileByNode,
		Defines: defines, References: references,
		Definitions: definitions, Identifiers: identifiers,
	}
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
