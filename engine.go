// Package repomap is the engine's external surface: construct an Engine
// over a project root and call its methods to extract tags, render a
// ranked map, search identifiers, analyze the import graph, or drive an
// exploration session. Every method is a thin composition over the
// internal/* packages; the engine itself holds no algorithmic logic of its
// own.
package repomap

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/cyber-nic/repomap/internal/apperr"
	"github.com/cyber-nic/repomap/internal/cache"
	"github.com/cyber-nic/repomap/internal/config"
	"github.com/cyber-nic/repomap/internal/depanalyzer"
	"github.com/cyber-nic/repomap/internal/explore"
	"github.com/cyber-nic/repomap/internal/extractor"
	"github.com/cyber-nic/repomap/internal/graphbuilder"
	"github.com/cyber-nic/repomap/internal/match"
	"github.com/cyber-nic/repomap/internal/parser"
	"github.com/cyber-nic/repomap/internal/ranker"
)

// Engine is a ready-to-use repo map instance for one project root.
type Engine struct {
	root     string
	opts     config.Options
	registry *parser.Registry
	cache    *cache.Cache // nil when caching is disabled
	store    *explore.Store
	log      zerolog.Logger

	corpus *extractor.Corpus // set after the first Analyze
	graph  *graphbuilder.Graph
}

// New builds an Engine rooted at root with opts. opts.Validate is called
// first; a ConfigurationError aborts construction before anything touches
// disk.
func New(root string, opts config.Options) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		root:     root,
		opts:     opts,
		registry: parser.NewRegistry(),
		log:      log.With().Str("component", "engine").Str("root", root).Logger(),
	}

	if opts.CacheEnabled {
		c, err := cache.Open(opts.CacheDir)
		if err != nil {
			e.log.Warn().Err(err).Msg("cache unavailable; continuing without it")
		} else {
			e.cache = c
		}
	}

	store, err := explore.NewStore(opts.SessionDir)
	if err != nil {
		return nil, err
	}
	e.store = store

	return e, nil
}

// Close releases the engine's cache handle, if any.
func (e *Engine) Close() error {
	if e.cache != nil {
		return e.cache.Close()
	}
	return nil
}

// AnalyzeResult bundles a completed extraction pass's corpus and any
// per-file warnings.
type AnalyzeResult struct {
	FileCount int
	TagCount  int
	Warnings  []extractor.Warning
}

// Analyze walks the project, extracts tags and builds the symbol graph,
// caching both on the Engine for subsequent calls.
func (e *Engine) Analyze(ctx context.Context, mentioned map[string]bool, report extractor.Reporter) (AnalyzeResult, error) {
	ex := extractor.New(e.registry, e.cache, e.opts)
	fc := extractor.NewFilter(e.root, extractor.DefaultFilterConfig())

	corpus, err := ex.Extract(ctx, e.root, fc, report)
	if err != nil {
		return AnalyzeResult{}, err
	}

	e.corpus = corpus
	e.graph = graphbuilder.Build(corpus, mentioned, e.opts.Ranker)

	return AnalyzeResult{
		FileCount: len(corpus.Files()),
		TagCount:  len(corpus.Tags),
		Warnings:  corpus.Warnings,
	}, nil
}

// Map renders the token-budgeted ranked map for the last Analyze pass.
// chatFiles and mentionedFiles both feed the PageRank personalization
// vector (chat files outweigh mentioned files per weights.ChatFileMultiplier
// / weights.MentionedFileMass); mentioned identifiers are folded into the
// graph's edge weights by Analyze's mentioned argument, not here.
func (e *Engine) Map(chatFiles, mentionedFiles map[string]bool) (string, error) {
	if e.graph == nil {
		return "", notAnalyzedErr()
	}
	ranked := ranker.Rank(e.graph, chatFiles, mentionedFiles, e.opts.Ranker)
	return ranker.FitToBudget(e.root, ranked, chatFiles, e.opts.MapTokens, ranker.DefaultTokenCounter), nil
}

// Search runs the hybrid matcher over the current corpus's definitions.
func (e *Engine) Search(query string) ([]match.Result, error) {
	if e.corpus == nil {
		return nil, notAnalyzedErr()
	}
	candidates := match.BuildCandidates(e.corpus)
	hybrid, err := match.NewHybridMatcherFromOptions(candidates, e.opts, e.corpus.Version())
	if err != nil {
		return nil, err
	}
	return hybrid.Match(query, candidates, e.opts.SemanticThreshold), nil
}

// importResolver resolves an import-reference tag's raw text against files
// already known to the corpus: same-directory relative imports and
// dotted/slashed module-relative imports both fall back to a suffix match
// against the known file set, which is enough signal for same-repo cycles
// and centrality without a full per-language module resolver.
func (e *Engine) importResolver(fromFile, importSpec string) (string, bool) {
	if e.corpus == nil {
		return "", false
	}
	spec := strings.Trim(importSpec, "\"'`")
	if !strings.Contains(spec, "/") {
		spec = strings.ReplaceAll(spec, ".", "/")
	}
	base := filepath.Base(spec)
	for _, f := range e.corpus.Files() {
		if f == fromFile {
			continue
		}
		if filepath.Base(filepath.Dir(f)) == base || filepath.Base(f) == base+filepath.Ext(f) {
			return f, true
		}
	}
	return "", false
}

// DependencyStats returns aggregate import-graph statistics.
func (e *Engine) DependencyStats() (depanalyzer.Statistics, error) {
	if e.corpus == nil {
		return depanalyzer.Statistics{}, notAnalyzedErr()
	}
	g := depanalyzer.Build(e.corpus, e.importResolver)
	return g.Stats(), nil
}

// FindCycles enumerates import cycles, bounded by
// opts.DependenciesMaxCycles and opts.DependenciesMaxGraphSize.
func (e *Engine) FindCycles() ([]depanalyzer.Cycle, error) {
	if e.corpus == nil {
		return nil, notAnalyzedErr()
	}
	g := depanalyzer.Build(e.corpus, e.importResolver)
	return depanalyzer.Cycles(g, e.opts)
}

// Centrality computes file centrality under the requested algorithm.
func (e *Engine) Centrality(algo config.CentralityAlgorithm) (depanalyzer.Centrality, error) {
	if e.corpus == nil {
		return nil, notAnalyzedErr()
	}
	g := depanalyzer.Build(e.corpus, e.importResolver)
	return depanalyzer.Compute(g, algo, e.opts.Ranker)
}

// Impact reports the blast radius of changing files: transitive dependents,
// a risk score, a per-file breaking-change severity, and suggested tests.
func (e *Engine) Impact(files []string) (depanalyzer.Impact, error) {
	if e.corpus == nil {
		return depanalyzer.Impact{}, notAnalyzedErr()
	}
	g := depanalyzer.Build(e.corpus, e.importResolver)
	return depanalyzer.ChangeImpact(g, files, e.opts.Ranker), nil
}

// StartExploration opens a new exploration session for query and persists
// it.
func (e *Engine) StartExploration(query string, now int64) (*explore.Session, error) {
	if e.corpus == nil || e.graph == nil {
		return nil, notAnalyzedErr()
	}
	candidates := match.BuildCandidates(e.corpus)
	hybrid, err := match.NewHybridMatcherFromOptions(candidates, e.opts, e.corpus.Version())
	if err != nil {
		return nil, err
	}

	s := explore.NewSession(e.root, query, now)
	if err := explore.Explore(s, query, hybrid, candidates, e.graph, e.opts, now); err != nil {
		return nil, err
	}
	if err := e.store.Save(s); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadSession fetches a persisted session by ID.
func (e *Engine) LoadSession(id string) (*explore.Session, error) {
	return e.store.Load(id)
}

// Focus, Expand, Prune mutate a loaded session and persist the result.
func (e *Engine) Focus(s *explore.Session, treeID string, now int64) error {
	if err := explore.Focus(s, treeID, now); err != nil {
		return err
	}
	return e.store.Save(s)
}

// Expand grows the area named areaName (optionally scoped to treeID) by one
// more hop of the symbol graph.
func (e *Engine) Expand(s *explore.Session, areaName, treeID string, now int64) error {
	if e.graph == nil {
		return notAnalyzedErr()
	}
	if err := explore.Expand(s, areaName, treeID, e.graph, now); err != nil {
		return err
	}
	return e.store.Save(s)
}

// Prune removes the area named areaName (optionally scoped to treeID) and
// its descendants.
func (e *Engine) Prune(s *explore.Session, areaName, treeID string, now int64) error {
	if err := explore.Prune(s, areaName, treeID, now); err != nil {
		return err
	}
	return e.store.Save(s)
}

// ExplorationMap renders a session's trees as indented ASCII, with the
// focused tree marked and any nodes added by the last Expand call flagged.
func (e *Engine) ExplorationMap(s *explore.Session) (string, error) {
	if e.graph == nil {
		return "", notAnalyzedErr()
	}
	return explore.Render(s), nil
}

// ListTrees returns a session's trees.
func (e *Engine) ListTrees(s *explore.Session) []explore.Tree {
	return explore.ListTrees(s)
}

// Status summarizes a session.
func (e *Engine) Status(s *explore.Session) explore.Status {
	return explore.StatusOf(s)
}

// ExpireSessions deletes persisted sessions older than the configured TTL,
// relative to now.
func (e *Engine) ExpireSessions(now time.Time) (int, error) {
	ttl := time.Duration(e.opts.ExplorationSessionTTLHours) * time.Hour
	return e.store.ExpireOlderThan(now.Add(-ttl))
}

func notAnalyzedErr() error {
	return apperr.New(apperr.KindInput, "Analyze must run before this operation", nil)
}
