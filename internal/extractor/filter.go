package extractor

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	goignore "github.com/cyber-nic/go-gitignore"

	"github.com/cyber-nic/repomap/internal/parser"
)

// FilterConfig describes the file-filter predicate of the extraction walk:
// extension allow-list, .gitignore handling, a configurable ignore-glob
// list, hidden-file skipping, binary sniffing, and a size cutoff.
type FilterConfig struct {
	// Extensions restricts extraction to these extensions (e.g. ".go"); a
	// nil/empty slice means "every language the parser registry supports".
	Extensions []string
	// IgnoreGlobs are doublestar patterns (e.g. "**/vendor/**") applied in
	// addition to .gitignore.
	IgnoreGlobs []string
	// GitignorePath, if non-empty, is loaded as a .gitignore file. When
	// empty, Filter looks for "<root>/.gitignore" itself.
	GitignorePath string
	MaxFileSizeBytes int64
}

// DefaultFilterConfig returns the baseline filter: skip hidden files, skip
// binaries, skip paths over a size cutoff, respect .gitignore.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{MaxFileSizeBytes: 2 << 20} // 2MiB
}

// Filter decides, for each walked path, whether it is a parse candidate.
type Filter struct {
	cfg       FilterConfig
	root      string
	gitignore *goignore.GitIgnore
	extSet    map[string]bool
}

// NewFilter builds a Filter rooted at root.
func NewFilter(root string, cfg FilterConfig) *Filter {
	f := &Filter{cfg: cfg, root: root}

	if len(cfg.Extensions) > 0 {
		f.extSet = make(map[string]bool, len(cfg.Extensions))
		for _, e := range cfg.Extensions {
			f.extSet[strings.ToLower(e)] = true
		}
	}

	gi := cfg.GitignorePath
	if gi == "" {
		gi = filepath.Join(root, ".gitignore")
	}
	if compiled, err := goignore.CompileIgnoreFile(gi); err == nil {
		f.gitignore = compiled
	} else {
		f.gitignore = goignore.CompileIgnoreLines()
	}

	return f
}

// SkipDir reports whether a directory should be pruned entirely during the
// walk (hidden directories, .git, and anything matching the ignore set).
func (f *Filter) SkipDir(relDir string) bool {
	base := filepath.Base(relDir)
	if base == ".git" || (strings.HasPrefix(base, ".") && base != "." && base != "..") {
		return true
	}
	return f.matchesIgnore(relDir)
}

// Accept reports whether relPath is a parse candidate: it has a supported or
// allow-listed extension, isn't hidden, isn't ignored, isn't binary, and
// isn't over the size cutoff.
func (f *Filter) Accept(absPath, relPath string) bool {
	base := filepath.Base(relPath)
	if strings.HasPrefix(base, ".") {
		return false
	}
	if f.matchesIgnore(relPath) {
		return false
	}

	ext := strings.ToLower(filepath.Ext(relPath))
	if f.extSet != nil {
		if !f.extSet[ext] {
			return false
		}
	} else if _, ok := parser.DetectLanguage(relPath); !ok {
		return false
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return false
	}
	if f.cfg.MaxFileSizeBytes > 0 && info.Size() > f.cfg.MaxFileSizeBytes {
		return false
	}

	return !looksBinary(absPath)
}

func (f *Filter) matchesIgnore(relPath string) bool {
	if f.gitignore != nil && f.gitignore.MatchesPath(relPath) {
		return true
	}
	for _, pattern := range f.cfg.IgnoreGlobs {
		if ok, _ := doublestar.Match(pattern, filepath.ToSlash(relPath)); ok {
			return true
		}
	}
	return false
}

// looksBinary sniffs the first 512 bytes of a file for a NUL byte, the same
// heuristic net/http.DetectContentType's text/binary split relies on.
func looksBinary(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return true
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, _ := f.Read(buf)
	for _, b := range buf[:n] {
		if b == 0 {
			return true
		}
	}
	return false
}
