package depanalyzer

import (
	"sort"

	"gonum.org/v1/gonum/graph/network"

	"github.com/cyber-nic/repomap/internal/config"
)

// Centrality maps a file to its score under the configured algorithm.
type Centrality map[string]float64

// Ranked returns the centrality map as a slice sorted by score descending
// then file name, the order every CLI or API surface renders it in.
func (c Centrality) Ranked() []struct {
	File  string
	Score float64
} {
	out := make([]struct {
		File  string
		Score float64
	}, 0, len(c))
	for f, s := range c {
		out = append(out, struct {
			File  string
			Score float64
		}{f, s})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].File < out[j].File
	})
	return out
}

// Compute runs the configured centrality algorithm over the import graph.
func Compute(gr *Graph, algo config.CentralityAlgorithm, weights config.RankerWeights) (Centrality, error) {
	if err := guardSize(gr, 0); err != nil {
		return nil, err
	}

	switch algo {
	case config.CentralityDegree:
		return degreeCentrality(gr), nil
	case config.CentralityBetweenness:
		return betweennessCentrality(gr), nil
	case config.CentralityPageRank:
		return pageRankCentrality(gr, weights), nil
	default:
		return degreeCentrality(gr), nil
	}
}

func degreeCentrality(gr *Graph) Centrality {
	out := make(Centrality, len(gr.NodeByFile))
	for f, id := range gr.NodeByFile {
		out[f] = float64(gr.G.From(id).Len() + gr.G.To(id).Len())
	}
	return out
}

func betweennessCentrality(gr *Graph) Centrality {
	scores := network.Betweenness(gr.G)
	out := make(Centrality, len(scores))
	for id, score := range scores {
		out[gr.FileByNode[id]] = score
	}
	return out
}

func pageRankCentrality(gr *Graph, weights config.RankerWeights) Centrality {
	scores := network.PageRank(gr.G, weights.DampingFactor, weights.Tolerance)
	out := make(Centrality, len(scores))
	for id, score := range scores {
		out[gr.FileByNode[id]] = score
	}
	return out
}
