package depanalyzer

import (
	"sort"

	"gonum.org/v1/gonum/graph/topo"

	"github.com/cyber-nic/repomap/internal/config"
)

// Cycle is one simple import cycle, listed in traversal order (the file
// names repeat the first entry at the end only implicitly; callers that
// render a cycle append Files[0] themselves if they want the closed loop
// spelled out).
type Cycle struct {
	Files []string
}

// Cycles enumerates simple cycles in the import graph, bounded by
// opts.DependenciesMaxCycles. gonum's topo package exposes strongly
// connected component detection (TarjanSCC) but not cycle enumeration, so
// each nontrivial SCC is searched directly with a depth-first, Johnson-style
// backtracking walk that reports a cycle the first time it returns to its
// start node.
func Cycles(gr *Graph, opts config.Options) ([]Cycle, error) {
	if err := guardSize(gr, opts.DependenciesMaxGraphSize); err != nil {
		return nil, err
	}

	sccs := topo.TarjanSCC(gr.G)

	var cycles []Cycle
	for _, scc := range sccs {
		if len(scc) < 2 {
			continue
		}
		members := make(map[int64]bool, len(scc))
		for _, n := range scc {
			members[n.ID()] = true
		}
		found := findCyclesInSCC(gr, members, opts.DependenciesMaxCycles-len(cycles))
		cycles = append(cycles, found...)
		if opts.DependenciesMaxCycles > 0 && len(cycles) >= opts.DependenciesMaxCycles {
			cycles = cycles[:opts.DependenciesMaxCycles]
			break
		}
	}

	sort.Slice(cycles, func(i, j int) bool {
		return cycleKey(cycles[i]) < cycleKey(cycles[j])
	})
	return cycles, nil
}

func cycleKey(c Cycle) string {
	s := ""
	for _, f := range c.Files {
		s += f + "\x00"
	}
	return s
}

// findCyclesInSCC runs a bounded DFS from each member node of one strongly
// connected component, reporting every simple cycle found, deduplicated by
// rotation (a cycle starting at its lexicographically smallest file).
func findCyclesInSCC(gr *Graph, members map[int64]bool, limit int) []Cycle {
	if limit <= 0 {
		return nil
	}

	seen := make(map[string]bool)
	var out []Cycle

	ids := make([]int64, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return gr.FileByNode[ids[i]] < gr.FileByNode[ids[j]] })

	for _, start := range ids {
		if limit > 0 && len(out) >= limit {
			break
		}
		var path []int64
		onPath := make(map[int64]bool)

		var dfs func(cur int64) bool
		dfs = func(cur int64) bool {
			path = append(path, cur)
			onPath[cur] = true

			to := gr.G.From(cur)
			for to.Next() {
				next := to.Node().ID()
				if !members[next] {
					continue
				}
				if next == start {
					cyc := normalizeCycle(path, gr)
					key := cycleKey(cyc)
					if !seen[key] {
						seen[key] = true
						out = append(out, cyc)
					}
					if limit > 0 && len(out) >= limit {
						return true
					}
					continue
				}
				if !onPath[next] {
					if dfs(next) {
						return true
					}
				}
			}

			path = path[:len(path)-1]
			onPath[cur] = false
			return false
		}
		dfs(start)
	}
	return out
}

func normalizeCycle(path []int64, gr *Graph) Cycle {
	files := make([]string, len(path))
	start := 0
	for i, id := range path {
		files[i] = gr.FileByNode[id]
		if files[i] < files[start] {
			start = i
		}
	}
	rotated := append(append([]string{}, files[start:]...), files[:start]...)
	return Cycle{Files: rotated}
}
