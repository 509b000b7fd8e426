package extractor

import (
	"sort"
	"sync/atomic"

	"github.com/cyber-nic/repomap/internal/tagkind"
)

// DefSite names a file and symbol kind where an identifier is defined; the
// identifier corpus maps a name onto the set of its definition sites.
type DefSite struct {
	File string
	Kind tagkind.Kind
}

// Corpus is the in-memory identifier corpus produced by one extraction
// pass: every tag, grouped by file, plus a name -> definition-sites index.
// The Parallel Tag Extractor owns the corpus for the lifetime of one pass;
// downstream components (graph builder, matchers) borrow it read-only.
type Corpus struct {
	Tags        []tagkind.Tag
	ByFile      map[string][]tagkind.Tag
	Definitions map[string][]DefSite
	Warnings    []Warning
	version     atomic.Uint64
}

// Warning records a per-file failure that did not abort the pass.
type Warning struct {
	File  string
	Stage string
	Err   error
}

// NewCorpus builds a Corpus from a flat tag slice, sorting files by path and
// preserving each file's parser emission order within it so two passes over
// an unchanged tree always produce byte-identical corpora.
func NewCorpus(tags []tagkind.Tag, warnings []Warning) *Corpus {
	byFile := make(map[string][]tagkind.Tag)
	for _, t := range tags {
		byFile[t.File] = append(byFile[t.File], t)
	}

	files := make([]string, 0, len(byFile))
	for f := range byFile {
		files = append(files, f)
	}
	sort.Strings(files)

	ordered := make([]tagkind.Tag, 0, len(tags))
	defs := make(map[string][]DefSite)
	for _, f := range files {
		for _, t := range byFile[f] {
			ordered = append(ordered, t)
			if t.IsDef {
				defs[t.Name] = append(defs[t.Name], DefSite{File: f, Kind: t.Kind})
			}
		}
	}

	return &Corpus{Tags: ordered, ByFile: byFile, Definitions: defs, Warnings: warnings}
}

// Version returns a monotonically increasing number that changes whenever
// the corpus is rebuilt, used by the semantic matcher to know when its
// cached TF-IDF model is stale.
func (c *Corpus) Version() uint64 {
	return c.version.Load()
}

// TouchVersion bumps the version counter; callers that mutate a corpus
// in place (there currently are none — corpora are otherwise immutable)
// must call this before publishing the mutation to readers.
func (c *Corpus) TouchVersion() {
	c.version.Add(1)
}

// Files returns the corpus's file set in sorted order.
func (c *Corpus) Files() []string {
	files := make([]string, 0, len(c.ByFile))
	for f := range c.ByFile {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}
