package depanalyzer

import (
	"path/filepath"
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph"

	"github.com/cyber-nic/repomap/internal/config"
)

// Breaking change severity levels for a single affected file.
const (
	BreakingLow  = "LOW"
	BreakingMed  = "MED"
	BreakingHigh = "HIGH"
)

// Impact reports the blast radius of changing Files: every transitively
// affected file, a [0,1] risk score, a per-file breaking-change severity,
// and a set of test files worth re-running.
type Impact struct {
	Files                      []string
	AffectedFiles              []string
	RiskScore                  float64
	BreakingChangeLevelPerFile map[string]string
	SuggestedTests             []string
}

// ChangeImpact walks the import graph backwards from every file in files to
// find everything that (transitively) imports any of them, scoring risk from
// direct fan-in and PageRank centrality.
func ChangeImpact(gr *Graph, files []string, weights config.RankerWeights) Impact {
	centrality := pageRankCentrality(gr, weights)
	var maxCentrality float64
	for _, score := range centrality {
		if score > maxCentrality {
			maxCentrality = score
		}
	}

	totalFiles := gr.G.Nodes().Len()

	affected := make(map[string]bool)
	levels := make(map[string]string)
	var riskSum float64
	var validFiles int

	for _, f := range files {
		start, ok := gr.NodeByFile[f]
		if !ok {
			continue
		}
		validFiles++

		direct := neighborFiles(gr, gr.G.To(start))
		for d := range walkDependents(gr, start) {
			affected[gr.FileByNode[d]] = true
		}

		fanInFrac := 0.0
		if totalFiles > 1 {
			fanInFrac = float64(len(direct)) / float64(totalFiles-1)
		}
		cent := 0.0
		if maxCentrality > 0 {
			cent = centrality[f] / maxCentrality
		}
		risk := 0.5*fanInFrac + 0.5*cent
		if risk > 1 {
			risk = 1
		}
		riskSum += risk

		level := BreakingLow
		switch {
		case len(direct) >= 4:
			level = BreakingHigh
		case len(direct) >= 1:
			level = BreakingMed
		}
		if level != BreakingHigh {
			from := gr.G.From(start)
			for from.Next() {
				if reaches(gr, from.Node().ID(), start) {
					level = bumpLevel(level)
					break
				}
			}
		}
		levels[f] = level
	}

	affectedList := make([]string, 0, len(affected))
	for f := range affected {
		affectedList = append(affectedList, f)
	}
	sort.Strings(affectedList)

	riskScore := 0.0
	if validFiles > 0 {
		riskScore = riskSum / float64(validFiles)
	}

	tests := make(map[string]bool)
	for _, f := range files {
		if t, ok := suggestedTestFor(f); ok {
			tests[t] = true
		}
	}
	for f := range affected {
		if t, ok := suggestedTestFor(f); ok {
			tests[t] = true
		}
	}
	testList := make([]string, 0, len(tests))
	for t := range tests {
		testList = append(testList, t)
	}
	sort.Strings(testList)

	return Impact{
		Files:                      files,
		AffectedFiles:              affectedList,
		RiskScore:                  riskScore,
		BreakingChangeLevelPerFile: levels,
		SuggestedTests:             testList,
	}
}

// walkDependents returns every node (excluding start) that transitively
// imports start, via breadth-first traversal of reverse edges.
func walkDependents(gr *Graph, start int64) map[int64]bool {
	visited := map[int64]bool{start: true}
	queue := []int64{start}
	out := make(map[int64]bool)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		to := gr.G.To(cur)
		for to.Next() {
			id := to.Node().ID()
			if visited[id] {
				continue
			}
			visited[id] = true
			out[id] = true
			queue = append(queue, id)
		}
	}
	return out
}

func bumpLevel(level string) string {
	switch level {
	case BreakingLow:
		return BreakingMed
	case BreakingMed:
		return BreakingHigh
	default:
		return level
	}
}

func neighborFiles(gr *Graph, it graph.Nodes) []string {
	var out []string
	for it.Next() {
		out = append(out, gr.FileByNode[it.Node().ID()])
	}
	sort.Strings(out)
	return out
}

func reaches(gr *Graph, from, target int64) bool {
	visited := map[int64]bool{from: true}
	queue := []int64{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == target {
			return true
		}
		it := gr.G.From(cur)
		for it.Next() {
			id := it.Node().ID()
			if !visited[id] {
				visited[id] = true
				queue = append(queue, id)
			}
		}
	}
	return false
}

// suggestedTestFor guesses the conventional test file for file based on its
// extension's idiomatic naming scheme. ok=false for extensions with no
// established convention or files that already look like tests.
func suggestedTestFor(file string) (string, bool) {
	ext := filepath.Ext(file)
	base := strings.TrimSuffix(file, ext)

	switch ext {
	case ".go":
		if strings.HasSuffix(base, "_test") {
			return "", false
		}
		return base + "_test.go", true
	case ".py":
		dir, name := filepath.Split(base)
		if strings.HasPrefix(name, "test_") {
			return "", false
		}
		return filepath.Join(dir, "test_"+name+".py"), true
	case ".js", ".jsx", ".mjs", ".ts", ".tsx":
		if strings.HasSuffix(base, ".test") || strings.HasSuffix(base, ".spec") {
			return "", false
		}
		return base + ".test" + ext, true
	case ".java":
		if strings.HasSuffix(base, "Test") {
			return "", false
		}
		return base + "Test.java", true
	case ".cs":
		if strings.HasSuffix(base, "Tests") {
			return "", false
		}
		return base + "Tests.cs", true
	default:
		return "", false
	}
}
