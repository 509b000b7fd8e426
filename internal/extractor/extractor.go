// Package extractor walks a project tree, parses every candidate file into
// tags, and assembles the resulting identifier corpus. Work fans out across
// a bounded worker pool, backed by the content-addressed tag cache so an
// unchanged file never costs a reparse.
package extractor

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/cyber-nic/repomap/internal/apperr"
	"github.com/cyber-nic/repomap/internal/cache"
	"github.com/cyber-nic/repomap/internal/config"
	"github.com/cyber-nic/repomap/internal/parser"
	"github.com/cyber-nic/repomap/internal/tagkind"
)

// commonWords are identifiers too generic to be useful ranking anchors on
// their own; the matcher and ranker both consult this set through the same
// Filter so the cutoff is defined once.
var commonWords = map[string]bool{
	"self": true, "this": true, "cls": true, "true": true, "false": true,
	"nil": true, "null": true, "none": true, "err": true, "ok": true,
	"i": true, "j": true, "k": true, "id": true, "ctx": true,
	"get": true, "set": true, "new": true, "init": true, "main": true,
	"test": true, "data": true, "value": true, "key": true, "item": true,
}

// DefaultNameFilter drops blank, single-character and common-word
// identifiers, keeping corpora focused on names worth ranking and matching.
func DefaultNameFilter(name string) bool {
	name = strings.TrimSpace(name)
	if len(name) < 2 {
		return false
	}
	return !commonWords[strings.ToLower(name)]
}

// ProgressEvent reports extraction progress; Reporter implementations should
// treat FilesDone as monotonically increasing and tolerate being called at a
// coarser rate than one event per file.
type ProgressEvent struct {
	FilesTotal int
	FilesDone  int
	Failed     int
	Current    string
}

// Reporter receives throttled ProgressEvents during Extract.
type Reporter func(ProgressEvent)

// Extractor walks, filters, parses and caches tags for a project tree.
type Extractor struct {
	registry *parser.Registry
	cache    *cache.Cache // nil disables caching
	opts     config.Options
	filter   parser.Filter
}

// New builds an Extractor. cache may be nil to run without a tag cache.
func New(registry *parser.Registry, c *cache.Cache, opts config.Options) *Extractor {
	return &Extractor{registry: registry, cache: c, opts: opts, filter: DefaultNameFilter}
}

// WithNameFilter overrides the identifier-name filter (default
// DefaultNameFilter).
func (e *Extractor) WithNameFilter(f parser.Filter) *Extractor {
	e.filter = f
	return e
}

// candidate is one file selected by the walk for parsing.
type candidate struct {
	abs string
	rel string
}

// walk collects every parse candidate under root, applying fc.
func walk(root string, fc *Filter) ([]candidate, error) {
	var out []candidate
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are skipped, not fatal: permission errors
			// on a handful of files shouldn't abort the whole pass.
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		if rel == "." {
			return nil
		}
		if d.IsDir() {
			if fc.SkipDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if fc.Accept(path, rel) {
			out = append(out, candidate{abs: path, rel: filepath.ToSlash(rel)})
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInput, "walking project tree", err, map[string]string{"root": root})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].rel < out[j].rel })
	return out, nil
}

// perFileResult is what one candidate's processing produces.
type perFileResult struct {
	tags    []tagkind.Tag
	warning *Warning
}

// processFile reads, cache-checks, parses (on a cache miss) and, on a
// cache write path, persists the result for candidate c.
func (e *Extractor) processFile(ctx context.Context, c candidate) perFileResult {
	content, err := os.ReadFile(c.abs)
	if err != nil {
		return perFileResult{warning: &Warning{File: c.rel, Stage: "read", Err: err}}
	}

	if e.cache != nil && e.opts.CacheEnabled {
		if tags, ok, err := e.cache.Get(ctx, c.rel, content); err == nil && ok {
			return perFileResult{tags: tags}
		}
	}

	timeout := time.Duration(e.opts.PerFileParseTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	tags, err := parser.ParseWithTimeout(ctx, e.registry, c.rel, c.abs, content, e.filter, timeout)
	if err != nil {
		return perFileResult{warning: &Warning{File: c.rel, Stage: "parse", Err: err}}
	}

	if e.cache != nil && e.opts.CacheEnabled {
		if err := e.cache.Put(ctx, c.rel, content, tags); err != nil {
			return perFileResult{tags: tags, warning: &Warning{File: c.rel, Stage: "cache-write", Err: err}}
		}
	}

	return perFileResult{tags: tags}
}

// Extract walks root, extracts tags from every candidate file and returns
// the assembled Corpus. report, if non-nil, receives progress events at a
// bounded rate (at most one per 50ms) regardless of worker count; the event
// for the last file and a final summary event on return are always
// delivered, even inside that interval.
func (e *Extractor) Extract(ctx context.Context, root string, fc *Filter, report Reporter) (*Corpus, error) {
	if fc == nil {
		fc = NewFilter(root, DefaultFilterConfig())
	}

	files, err := walk(root, fc)
	if err != nil {
		return nil, err
	}

	total := len(files)
	var (
		mu       sync.Mutex
		allTags  []tagkind.Tag
		warnings []Warning
		done     int
		failed   int
	)

	emit := newThrottledReporter(report, 50*time.Millisecond)
	defer emit.flush(total, &done, &failed, &mu)

	record := func(rel string, res perFileResult) {
		mu.Lock()
		if res.tags != nil {
			allTags = append(allTags, res.tags...)
		}
		if res.warning != nil {
			warnings = append(warnings, *res.warning)
			failed++
		}
		done++
		cur, d, f := rel, done, failed
		mu.Unlock()
		emit.maybe(ProgressEvent{FilesTotal: total, FilesDone: d, Failed: f, Current: cur})
	}

	if total < e.opts.PerformanceParallelThreshold || e.opts.PerformanceMaxWorkers <= 1 {
		for _, c := range files {
			if ctx.Err() != nil {
				break
			}
			record(c.rel, e.processFile(ctx, c))
		}
	} else {
		sem := semaphore.NewWeighted(int64(e.opts.PerformanceMaxWorkers))
		g, gctx := errgroup.WithContext(ctx)
		for _, c := range files {
			c := c
			if err := sem.Acquire(gctx, 1); err != nil {
				break
			}
			g.Go(func() error {
				defer sem.Release(1)
				record(c.rel, e.processFile(gctx, c))
				return nil
			})
		}
		_ = g.Wait()
	}

	return NewCorpus(allTags, warnings), nil
}

// throttledReporter serializes and rate-limits calls into a possibly-nil
// Reporter so a thousand-file parallel pass doesn't flood a slow UI callback.
type throttledReporter struct {
	fn   Reporter
	mu   sync.Mutex
	last time.Time
	gap  time.Duration
}

func newThrottledReporter(fn Reporter, gap time.Duration) *throttledReporter {
	return &throttledReporter{fn: fn, gap: gap}
}

func (t *throttledReporter) maybe(ev ProgressEvent) {
	if t.fn == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	if now.Sub(t.last) < t.gap && ev.FilesDone != ev.FilesTotal {
		return
	}
	t.last = now
	t.fn(ev)
}

func (t *throttledReporter) flush(total int, done, failed *int, mu *sync.Mutex) {
	if t.fn == nil {
		return
	}
	mu.Lock()
	ev := ProgressEvent{FilesTotal: total, FilesDone: *done, Failed: *failed}
	mu.Unlock()
	t.fn(ev)
}
