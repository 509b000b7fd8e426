// Package ranker runs personalized PageRank over a symbol graph and renders
// the highest-ranked definitions into a token-budgeted map.
package ranker

import (
	"math"
	"sort"

	"github.com/cyber-nic/repomap/internal/config"
	"github.com/cyber-nic/repomap/internal/graphbuilder"
	"github.com/cyber-nic/repomap/internal/tagkind"
)

// edgeKey identifies one (defining file, symbol) pair that a unit of
// PageRank mass can be distributed onto.
type edgeKey struct {
	file   string
	symbol string
}

// RankedTag pairs a definition tag with the PageRank mass it accumulated.
type RankedTag struct {
	Tag  tagkind.Tag
	Rank float64
}

// Rank runs personalized PageRank over g and redistributes each file's rank
// across its out-edges back onto individual symbol definitions, returning
// them sorted by rank (descending), then file, then symbol. chatFiles and
// mentionedFiles may both be nil/empty, in which case the personalization
// vector falls back to uniform.
func Rank(g *graphbuilder.Graph, chatFiles, mentionedFiles map[string]bool, weights config.RankerWeights) []RankedTag {
	ids := nodeIDs(g)
	if len(ids) == 0 {
		return nil
	}

	p := personalize(ids, g.FileByNode, chatFiles, mentionedFiles, weights)
	pr := personalizedPageRank(g, ids, p, weights)

	edgeRanks := distribute(g, pr, weights)

	out := make([]RankedTag, 0, len(edgeRanks))
	for k, rank := range edgeRanks {
		for _, t := range g.Definitions[graphbuilder.TagKey{File: k.file, Symbol: k.symbol}] {
			out = append(out, RankedTag{Tag: t, Rank: rank})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Rank != out[j].Rank {
			return out[i].Rank > out[j].Rank
		}
		if out[i].Tag.File != out[j].Tag.File {
			return out[i].Tag.File < out[j].Tag.File
		}
		return out[i].Tag.Name < out[j].Tag.Name
	})
	return out
}

// nodeIDs returns every node ID in g.G.
func nodeIDs(g *graphbuilder.Graph) []int64 {
	it := g.G.Nodes()
	ids := make([]int64, 0, it.Len())
	for it.Next() {
		ids = append(ids, it.Node().ID())
	}
	return ids
}

// personalize builds the teleport vector p: chat files get
// weights.ChatFileMultiplier units of mass, mentioned files get
// weights.MentionedFileMass units, every other file gets zero. If that
// leaves p all-zero (no chat or mentioned files), it falls back to the
// uniform distribution over every file.
func personalize(ids []int64, fileByNode map[int64]string, chatFiles, mentionedFiles map[string]bool, weights config.RankerWeights) map[int64]float64 {
	p := make(map[int64]float64, len(ids))
	var total float64
	for _, id := range ids {
		f := fileByNode[id]
		var mass float64
		switch {
		case chatFiles[f]:
			mass = weights.ChatFileMultiplier
		case mentionedFiles[f]:
			mass = weights.MentionedFileMass
		}
		p[id] = mass
		total += mass
	}
	if total == 0 {
		uniform := 1.0 / float64(len(ids))
		for _, id := range ids {
			p[id] = uniform
		}
		return p
	}
	for id := range p {
		p[id] /= total
	}
	return p
}

// personalizedPageRank runs power iteration over g's weighted edges with
// teleport vector p, since gonum's network.PageRank takes no personalization
// vector. Dangling nodes (no out-edges) redistribute their mass according to
// p, matching the standard personalized PageRank random-surfer model.
// Iteration stops at weights.MaxIterations or once the L1 change between
// successive iterates drops below weights.Tolerance.
func personalizedPageRank(g *graphbuilder.Graph, ids []int64, p map[int64]float64, weights config.RankerWeights) map[int64]float64 {
	outWeight := make(map[int64]float64, len(ids))
	for _, u := range ids {
		succ := g.G.From(u)
		var sum float64
		for succ.Next() {
			v := succ.Node().ID()
			if w, ok := g.G.Weight(u, v); ok {
				sum += w
			}
		}
		outWeight[u] = sum
	}

	pr := make(map[int64]float64, len(ids))
	for _, id := range ids {
		pr[id] = p[id]
	}

	d := weights.DampingFactor
	maxIter := weights.MaxIterations
	if maxIter <= 0 {
		maxIter = 100
	}

	for iter := 0; iter < maxIter; iter++ {
		var danglingMass float64
		for _, u := range ids {
			if outWeight[u] == 0 {
				danglingMass += pr[u]
			}
		}

		next := make(map[int64]float64, len(ids))
		for _, v := range ids {
			next[v] = (1-d)*p[v] + d*danglingMass*p[v]
		}
		for _, u := range ids {
			if outWeight[u] == 0 {
				continue
			}
			succ := g.G.From(u)
			for succ.Next() {
				v := succ.Node().ID()
				w, ok := g.G.Weight(u, v)
				if !ok {
					continue
				}
				next[v] += d * pr[u] * (w / outWeight[u])
			}
		}

		var diff float64
		for _, id := range ids {
			diff += math.Abs(next[id] - pr[id])
		}
		pr = next
		if diff < weights.Tolerance {
			break
		}
	}
	return pr
}

func distribute(g *graphbuilder.Graph, pr map[int64]float64, weights config.RankerWeights) map[edgeKey]float64 {
	edgeRanks := make(map[edgeKey]float64)

	for symbol, refFiles := range g.References {
		defFiles := g.Defines[symbol]
		if len(defFiles) == 0 || len(refFiles) == 0 {
			continue
		}

		mul := identifierMultiplier(symbol, defFiles, weights)
		w := mul * math.Sqrt(float64(len(refFiles)))
		sumW := float64(len(defFiles)) * w
		if sumW == 0 {
			continue
		}

		for _, refFile := range refFiles {
			node, ok := g.NodeByFile[refFile]
			if !ok {
				continue
			}
			srcRank := pr[node.ID()]
			portion := srcRank * (w / sumW)
			for defFile := range defFiles {
				edgeRanks[edgeKey{file: defFile, symbol: symbol}] += portion
			}
		}
	}
	return edgeRanks
}

// identifierMultiplier applies the well-named and too-generic adjustments on
// top of the mentioned/private split already baked into graph edge weights.
func identifierMultiplier(symbol string, defFiles map[string]struct{}, weights config.RankerWeights) float64 {
	mul := 1.0
	if len(symbol) >= weights.WellNamedMinLength {
		mul *= weights.WellNamedMultiplier
	}
	if len(defFiles) > weights.TooGenericFileThreshold {
		mul *= weights.TooGenericMultiplier
	}
	return mul
}
