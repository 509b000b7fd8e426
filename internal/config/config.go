// Package config defines the explicit configuration struct threaded through
// every component constructor. There is no process-wide mutable
// configuration; a host (CLI, config-file loader, ...) builds an Options
// value however it likes and passes it in.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"

	"github.com/cyber-nic/repomap/internal/apperr"
)

// FuzzyStrategy enumerates the matching strategies C6 can combine.
type FuzzyStrategy string

const (
	StrategyExact     FuzzyStrategy = "exact"
	StrategyPrefix    FuzzyStrategy = "prefix"
	StrategySuffix    FuzzyStrategy = "suffix"
	StrategySubstring FuzzyStrategy = "substring"
	StrategyEdit      FuzzyStrategy = "edit"
	StrategyWord      FuzzyStrategy = "word"
)

var allStrategies = map[FuzzyStrategy]bool{
	StrategyExact: true, StrategyPrefix: true, StrategySuffix: true,
	StrategySubstring: true, StrategyEdit: true, StrategyWord: true,
}

// CentralityAlgorithm enumerates the centrality measures the dependency
// analyzer exposes.
type CentralityAlgorithm string

const (
	CentralityDegree       CentralityAlgorithm = "degree"
	CentralityBetweenness  CentralityAlgorithm = "betweenness"
	CentralityPageRank     CentralityAlgorithm = "pagerank"
)

// RankerWeights holds the identifier-weight multipliers the ranker applies.
// These are intentionally configuration, not constants baked into the
// algorithm, so the ×0.1 penalties below stay overridable per deployment.
type RankerWeights struct {
	MentionedIdentifierMultiplier float64
	WellNamedMultiplier           float64
	PrivateIdentifierMultiplier   float64
	TooGenericMultiplier          float64
	TooGenericFileThreshold       int  // "defined in more than N files"
	WellNamedMinLength            int
	ChatFileMultiplier            float64 // personalization mass for chat-set files
	MentionedFileMass             float64 // personalization mass for mentioned-but-not-chat files
	DampingFactor                 float64
	MaxIterations                 int
	Tolerance                     float64
}

// DefaultRankerWeights returns the values observed in the reference
// implementation this engine was modeled on.
func DefaultRankerWeights() RankerWeights {
	return RankerWeights{
		MentionedIdentifierMultiplier: 10.0,
		WellNamedMultiplier:           10.0,
		PrivateIdentifierMultiplier:   0.1,
		TooGenericMultiplier:          0.1,
		TooGenericFileThreshold:       5,
		WellNamedMinLength:            8,
		ChatFileMultiplier:            50.0,
		MentionedFileMass:             1.0,
		DampingFactor:                 0.85,
		MaxIterations:                 100,
		Tolerance:                     1e-6,
	}
}

// Options enumerates every configuration knob the core recognizes. A host
// (CLI flags, a YAML/TOML loader, ...) is free to name its own flags;
// Options is the core's contract.
type Options struct {
	// MapTokens is the token budget for the rendered map.
	MapTokens int

	FuzzyThreshold  float64
	FuzzyStrategies []FuzzyStrategy

	SemanticThreshold   float64
	SemanticMaxFeatures int

	HybridFuzzyWeight    float64
	HybridSemanticWeight float64

	CacheDir     string
	CacheEnabled bool

	PerformanceMaxWorkers         int
	PerformanceParallelThreshold  int
	PerFileParseTimeoutSeconds    int

	DependenciesMaxGraphSize               int
	DependenciesPerformanceThresholdSeconds int
	DependenciesMaxCycles                   int

	ExplorationMaxDepth        int
	ExplorationMaxTrees        int
	ExplorationSessionTTLHours int
	SessionDir                 string

	Ranker RankerWeights
}

// Default returns an Options populated with sensible defaults, with
// cache/session directories resolved to a canonical per-user location
// documented in DESIGN.md.
func Default() Options {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	base := filepath.Join(home, ".repomap-tool")

	workers := runtime.NumCPU()
	if workers > 16 {
		workers = 16
	}

	return Options{
		MapTokens: 4096,

		FuzzyThreshold: 70,
		FuzzyStrategies: []FuzzyStrategy{
			StrategyExact, StrategyPrefix, StrategySuffix,
			StrategySubstring, StrategyEdit, StrategyWord,
		},

		SemanticThreshold:   0.1,
		SemanticMaxFeatures: 1000,

		HybridFuzzyWeight:    0.6,
		HybridSemanticWeight: 0.4,

		CacheDir:     filepath.Join(base, "cache"),
		CacheEnabled: true,

		PerformanceMaxWorkers:        workers,
		PerformanceParallelThreshold: 8,
		PerFileParseTimeoutSeconds:   10,

		DependenciesMaxGraphSize:                10000,
		DependenciesPerformanceThresholdSeconds: 30,
		DependenciesMaxCycles:                   1000,

		ExplorationMaxDepth:        3,
		ExplorationMaxTrees:        5,
		ExplorationSessionTTLHours: 24,
		SessionDir:                 filepath.Join(base, "sessions"),

		Ranker: DefaultRankerWeights(),
	}
}

// Validate enforces the cross-field invariants a ConfigurationError reports:
// weights must sum to 1.0 within 1e-6, thresholds must sit in their
// documented range, and fuzzy strategy names must be known.
func (o Options) Validate() error {
	if math.Abs((o.HybridFuzzyWeight+o.HybridSemanticWeight)-1.0) > 1e-6 {
		return apperr.New(apperr.KindConfiguration,
			fmt.Sprintf("hybrid.fuzzy_weight + hybrid.semantic_weight must sum to 1.0, got %v",
				o.HybridFuzzyWeight+o.HybridSemanticWeight), nil)
	}
	if o.FuzzyThreshold < 0 || o.FuzzyThreshold > 100 {
		return apperr.New(apperr.KindConfiguration, "fuzzy.threshold must be in [0,100]", nil)
	}
	if o.SemanticThreshold < 0 || o.SemanticThreshold > 1 {
		return apperr.New(apperr.KindConfiguration, "semantic.threshold must be in [0,1]", nil)
	}
	if len(o.FuzzyStrategies) == 0 {
		return apperr.New(apperr.KindConfiguration, "fuzzy.strategies must name at least one strategy", nil)
	}
	for _, s := range o.FuzzyStrategies {
		if !allStrategies[s] {
			return apperr.New(apperr.KindConfiguration, fmt.Sprintf("unknown fuzzy strategy %q", s), nil)
		}
	}
	if o.MapTokens < 0 {
		return apperr.New(apperr.KindConfiguration, "map_tokens must be >= 0", nil)
	}
	if o.PerformanceMaxWorkers <= 0 {
		return apperr.New(apperr.KindConfiguration, "performance.max_workers must be > 0", nil)
	}
	if o.DependenciesMaxGraphSize <= 0 {
		return apperr.New(apperr.KindConfiguration, "dependencies.max_graph_size must be > 0", nil)
	}
	if o.ExplorationMaxDepth <= 0 {
		return apperr.New(apperr.KindConfiguration, "exploration.max_depth must be > 0", nil)
	}
	return nil
}

// HasStrategy reports whether strategy s is enabled.
func (o Options) HasStrategy(s FuzzyStrategy) bool {
	for _, v := range o.FuzzyStrategies {
		if v == s {
			return true
		}
	}
	return false
}
