package extractor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyber-nic/repomap/internal/config"
	"github.com/cyber-nic/repomap/internal/parser"
)

func writeFile(t *testing.T, dir, rel, content string) string {
	t.Helper()
	p := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestExtract_SequentialSmallProject(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.go", "package main\n\nfunc Hello() string {\n\treturn \"hi\"\n}\n")
	writeFile(t, dir, "vendor/skip.go", "package vendor\n\nfunc Skipped() {}\n")
	writeFile(t, dir, ".git/HEAD", "ref: refs/heads/main\n")

	opts := config.Default()
	opts.PerformanceParallelThreshold = 1000 // force sequential path
	opts.CacheEnabled = false

	ex := New(parser.NewRegistry(), nil, opts)
	fc := NewFilter(dir, FilterConfig{IgnoreGlobs: []string{"**/vendor/**"}})

	var events []ProgressEvent
	corpus, err := ex.Extract(context.Background(), dir, fc, func(e ProgressEvent) {
		events = append(events, e)
	})
	require.NoError(t, err)
	require.NotNil(t, corpus)

	assert.Contains(t, corpus.ByFile, "main.go")
	assert.NotContains(t, corpus.ByFile, "vendor/skip.go")
	assert.NotEmpty(t, events)
	assert.Equal(t, 1, events[len(events)-1].FilesDone)
}

func TestExtract_ParallelLargerProject(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 20; i++ {
		writeFile(t, dir, filepath.Join("pkg", "file"+string(rune('a'+i))+".go"),
			"package pkg\n\nfunc F() {}\n")
	}

	opts := config.Default()
	opts.PerformanceParallelThreshold = 2
	opts.PerformanceMaxWorkers = 4
	opts.CacheEnabled = false

	ex := New(parser.NewRegistry(), nil, opts)
	corpus, err := ex.Extract(context.Background(), dir, nil, nil)
	require.NoError(t, err)
	assert.Len(t, corpus.ByFile, 20)
}

func TestDefaultNameFilter(t *testing.T) {
	assert.False(t, DefaultNameFilter("i"))
	assert.False(t, DefaultNameFilter("self"))
	assert.True(t, DefaultNameFilter("ComputeChecksum"))
}

func TestFilter_SkipsHiddenAndBinary(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".hidden.go", "package p\n")
	binPath := filepath.Join(dir, "blob.go")
	require.NoError(t, os.WriteFile(binPath, []byte("package p\x00binary"), 0o644))

	fc := NewFilter(dir, DefaultFilterConfig())
	assert.False(t, fc.Accept(filepath.Join(dir, ".hidden.go"), ".hidden.go"))
	assert.False(t, fc.Accept(binPath, "blob.go"))
}
