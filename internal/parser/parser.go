// Package parser owns tree-sitter grammar and query compilation and turns a
// single source file into a list of tags.
package parser

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	sitter "github.com/tree-sitter/go-tree-sitter"
	sitter_csharp "github.com/tree-sitter/tree-sitter-c-sharp/bindings/go"
	sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	sitter_js "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	sitter_ts "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/cyber-nic/repomap/internal/apperr"
	"github.com/cyber-nic/repomap/internal/parser/queries"
	"github.com/cyber-nic/repomap/internal/tagkind"
)

// extByLanguage maps file extensions onto the Language identifiers the
// embedded queries package knows about.
var extByLanguage = map[string]queries.Language{
	".go":   queries.Go,
	".py":   queries.Python,
	".js":   queries.JavaScript,
	".jsx":  queries.JavaScript,
	".mjs":  queries.JavaScript,
	".ts":   queries.TypeScript,
	".tsx":  queries.TypeScript,
	".java": queries.Java,
	".cs":   queries.CSharp,
}

// DetectLanguage returns the Language for fname based on its extension, and
// ok=false when the extension is unsupported (the file should be skipped,
// not treated as an error).
func DetectLanguage(fname string) (queries.Language, bool) {
	lang, ok := extByLanguage[strings.ToLower(filepath.Ext(fname))]
	return lang, ok
}

func sitterLanguage(lang queries.Language) (*sitter.Language, error) {
	switch lang {
	case queries.Go:
		return sitter.NewLanguage(sitter_go.Language()), nil
	case queries.Python:
		return sitter.NewLanguage(sitter_python.Language()), nil
	case queries.JavaScript:
		return sitter.NewLanguage(sitter_js.Language()), nil
	case queries.TypeScript:
		return sitter.NewLanguage(sitter_ts.LanguageTypescript()), nil
	case queries.Java:
		return sitter.NewLanguage(sitter_java.Language()), nil
	case queries.CSharp:
		return sitter.NewLanguage(sitter_csharp.Language()), nil
	default:
		return nil, fmt.Errorf("parser: no grammar binding for %q", lang)
	}
}

// compiled bundles one language's language handle and query so the registry
// only ever builds each of them once per process. Parsers themselves are
// created per Parse call.
type compiled struct {
	lang  *sitter.Language
	query *sitter.Query
}

// Registry lazily loads and memoizes grammars and compiled queries per
// language: each grammar and query is built once per process and reused for
// every file in that language.
type Registry struct {
	mu      sync.Mutex
	entries map[queries.Language]*compiled
}

// NewRegistry returns an empty, ready-to-use Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[queries.Language]*compiled)}
}

func (r *Registry) get(lang queries.Language) (*compiled, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.entries[lang]; ok {
		return c, nil
	}

	sl, err := sitterLanguage(lang)
	if err != nil {
		return nil, err
	}

	src, err := queries.Get(lang)
	if err != nil {
		return nil, err
	}

	q, err := sitter.NewQuery(sl, src)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindParse, fmt.Sprintf("compiling query for %s", lang), err, nil)
	}

	c := &compiled{lang: sl, query: q}
	r.entries[lang] = c
	return c, nil
}

// Filter accepts a candidate identifier name and returns false when it
// should be dropped (short names, stop words, ...).
type Filter func(name string) bool

// Parse parses a single file's already-read bytes and returns its tags.
// Syntax errors never fail the call: tree-sitter produces a partial tree and
// tags are extracted from whatever was recognized.
func (r *Registry) Parse(ctx context.Context, relPath, absPath string, source []byte, filter Filter) ([]tagkind.Tag, error) {
	lang, ok := DetectLanguage(absPath)
	if !ok {
		return nil, nil
	}

	if !utf8.Valid(source) {
		source = []byte(strings.ToValidUTF8(string(source), "�"))
	}

	c, err := r.get(lang)
	if err != nil {
		return nil, err
	}

	p := sitter.NewParser()
	defer p.Close()
	p.SetLanguage(c.lang)

	tree := p.Parse(source, nil)
	if tree == nil || tree.RootNode() == nil {
		return nil, apperr.New(apperr.KindParse, fmt.Sprintf("failed to parse %s", relPath), nil)
	}
	defer tree.Close()

	return captureTags(relPath, c.query, tree, source, filter), nil
}

// captureTags walks every capture of q over tree and emits Tag values for
// the definition/reference captures, skipping anything else.
func captureTags(relPath string, q *sitter.Query, tree *sitter.Tree, source []byte, filter Filter) []tagkind.Tag {
	qc := sitter.NewQueryCursor()
	defer qc.Close()

	captures := qc.Captures(q, tree.RootNode(), source)

	var tags []tagkind.Tag
	for match, index := captures.Next(); match != nil; match, index = captures.Next() {
		c := match.Captures[index]
		captureName := q.CaptureNames()[c.Index]

		kind, isDef, ok := tagkind.ParseCaptureName(captureName)
		if !ok {
			continue
		}

		start := c.Node.StartPosition()
		end := c.Node.EndPosition()

		// StartByte/EndByte index into source; guard against a capture whose
		// span falls outside the (possibly UTF-8-repaired) buffer.
		if int(c.Node.EndByte()) > len(source) {
			continue
		}

		name := c.Node.Utf8Text(source)
		if filter != nil && !filter(name) {
			continue
		}

		otherKind := ""
		if kind == tagkind.KindOther {
			otherKind = strings.TrimPrefix(strings.TrimPrefix(captureName, "name.definition."), "name.reference.")
		}

		tags = append(tags, tagkind.Tag{
			Name:      name,
			Kind:      kind,
			OtherKind: otherKind,
			IsDef:     isDef,
			File:      relPath,
			Line:      int(start.Row),
			Column:    int(start.Column),
			EndLine:   int(end.Row),
			EndColumn: int(end.Column),
		})
	}
	return tags
}

// ParseWithTimeout runs Parse on a background goroutine and returns
// apperr.KindCancelled if timeout elapses first, bounding how long one
// pathological file can stall a pass.
func ParseWithTimeout(ctx context.Context, r *Registry, relPath, absPath string, source []byte, filter Filter, timeout time.Duration) ([]tagkind.Tag, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		tags []tagkind.Tag
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		tags, err := r.Parse(ctx, relPath, absPath, source, filter)
		ch <- result{tags, err}
	}()

	select {
	case res := <-ch:
		return res.tags, res.err
	case <-ctx.Done():
		return nil, apperr.New(apperr.KindCancelled, fmt.Sprintf("parse timeout for %s", relPath), nil)
	}
}
