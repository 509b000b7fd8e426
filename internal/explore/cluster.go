package explore

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/cyber-nic/repomap/internal/match"
)

// entrypointCandidate is one hybrid-match result annotated with the
// vocabulary and location clustering groups by.
type entrypointCandidate struct {
	result match.Result
	terms  []string
	dir    string
}

// clusterEntrypoints groups results into clusters: two entrypoints join the
// same cluster when they share a top TF-IDF term or sit in the same
// directory. Clustering is a single greedy pass in match-score order, so
// the strongest entrypoints seed clusters and weaker ones join them.
func clusterEntrypoints(results []match.Result, hybrid *match.HybridMatcher, topN int) [][]entrypointCandidate {
	items := make([]entrypointCandidate, len(results))
	for i, r := range results {
		items[i] = entrypointCandidate{
			result: r,
			terms:  hybrid.TopTerms(r.Candidate, topN),
			dir:    filepath.Dir(r.Candidate.File),
		}
	}

	var clusters [][]entrypointCandidate
	for _, it := range items {
		placed := false
		for ci, cluster := range clusters {
			if joinsCluster(cluster, it) {
				clusters[ci] = append(cluster, it)
				placed = true
				break
			}
		}
		if !placed {
			clusters = append(clusters, []entrypointCandidate{it})
		}
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		return averageScore(clusters[i]) > averageScore(clusters[j])
	})
	return clusters
}

func joinsCluster(cluster []entrypointCandidate, it entrypointCandidate) bool {
	for _, member := range cluster {
		if member.dir == it.dir {
			return true
		}
		if shareTerm(member.terms, it.terms) {
			return true
		}
	}
	return false
}

func shareTerm(a, b []string) bool {
	set := make(map[string]bool, len(a))
	for _, t := range a {
		set[t] = true
	}
	for _, t := range b {
		if set[t] {
			return true
		}
	}
	return false
}

func averageScore(cluster []entrypointCandidate) float64 {
	var sum float64
	for _, it := range cluster {
		sum += it.result.Score
	}
	if len(cluster) == 0 {
		return 0
	}
	return sum / float64(len(cluster))
}

func averageConfidence(cluster []entrypointCandidate) float64 {
	return averageScore(cluster)
}

// titleTermCount bounds how many shared terms contribute to a synthesized
// tree title.
const titleTermCount = 3

// synthesizeTitle builds a short human-readable title from the cluster's
// most common top-TF-IDF terms, falling back to the shared directory's base
// name when the cluster shares no vocabulary (a pure co-location cluster).
func synthesizeTitle(cluster []entrypointCandidate) string {
	termCount := make(map[string]int)
	for _, it := range cluster {
		for _, t := range it.terms {
			termCount[t]++
		}
	}

	terms := make([]string, 0, len(termCount))
	for t := range termCount {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if termCount[terms[i]] != termCount[terms[j]] {
			return termCount[terms[i]] > termCount[terms[j]]
		}
		return terms[i] < terms[j]
	})

	limit := titleTermCount
	if limit > len(terms) {
		limit = len(terms)
	}
	picked := terms[:limit]
	if len(picked) == 0 {
		return titleCaseAll([]string{filepath.Base(cluster[0].dir)})[0]
	}
	return strings.Join(titleCaseAll(picked), " ")
}

func titleCaseAll(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		if w == "" {
			continue
		}
		out[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return out
}
