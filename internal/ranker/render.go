package ranker

import (
	"os"
	"sort"
	"strings"

	grepast "github.com/cyber-nic/grep-ast"
	"github.com/rs/zerolog/log"

	"github.com/cyber-nic/repomap/internal/config"
)

const maxRenderedLineLen = 100

// TokenCounter estimates the token cost of a rendered map. The real ratio
// depends on the target model's tokenizer; callers that care precisely
// should supply their own (e.g. a tiktoken-backed counter); the default
// below is the same chars/4 heuristic repo-map tools commonly ship with.
type TokenCounter func(s string) float64

// DefaultTokenCounter approximates token count as one token per four
// characters.
func DefaultTokenCounter(s string) float64 {
	return float64(len(s)) / 4.0
}

// Render renders ranked tags into a tree-like map string grouped by file,
// with each file's lines of interest expanded via syntax-aware context.
func Render(absRoot string, tags []RankedTag, chatFiles map[string]bool) string {
	if len(tags) == 0 {
		return ""
	}

	sorted := make([]RankedTag, len(tags))
	copy(sorted, tags)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Tag.File != sorted[j].Tag.File {
			return sorted[i].Tag.File < sorted[j].Tag.File
		}
		return sorted[i].Tag.Line < sorted[j].Tag.Line
	})

	var out strings.Builder
	flush := func(file string, lines []int) {
		if file == "" || len(lines) == 0 {
			return
		}
		out.WriteString("\n" + file + ":\n")
		code, err := os.ReadFile(joinRoot(absRoot, file))
		if err != nil {
			log.Warn().Err(err).Str("file", file).Msg("could not read file for map rendering")
			return
		}
		rendered, err := renderSnippet(file, code, lines)
		if err != nil {
			log.Warn().Err(err).Str("file", file).Msg("could not render snippet")
			return
		}
		out.WriteString(rendered)
	}

	curFile := ""
	var curLines []int
	for _, rt := range sorted {
		if rt.Tag.File != curFile {
			flush(curFile, curLines)
			curFile = rt.Tag.File
			curLines = nil
		}
		curLines = append(curLines, rt.Tag.Line)
	}
	flush(curFile, curLines)

	lines := strings.Split(out.String(), "\n")
	for i, ln := range lines {
		if len(ln) > maxRenderedLineLen {
			lines[i] = ln[:maxRenderedLineLen]
		}
	}
	return strings.Join(lines, "\n") + "\n"
}

func joinRoot(root, rel string) string {
	if root == "" {
		return rel
	}
	return root + string(os.PathSeparator) + rel
}

func renderSnippet(relFile string, code []byte, linesOfInterest []int) (string, error) {
	tc, err := grepast.NewTreeContext(
		relFile, code,
		grepast.WithColor(false),
		grepast.WithChildContext(false),
		grepast.WithLastLineContext(false),
		grepast.WithTopMargin(0),
		grepast.WithLinesOfInterestMarked(false),
		grepast.WithLinesOfInterestPadding(2),
		grepast.WithTopOfFileParentScope(false),
	)
	if err != nil {
		if err == grepast.ErrorUnsupportedLanguage || err == grepast.ErrorUnrecognizedFiletype {
			return "", nil
		}
		return "", err
	}

	loi := make(map[int]struct{}, len(linesOfInterest))
	for _, ln := range linesOfInterest {
		loi[ln] = struct{}{}
	}
	tc.AddLinesOfInterest(loi)
	tc.AddContext()
	return tc.Format(), nil
}

// FitToBudget binary-searches over how many leading ranked tags to include
// so the rendered map stays within maxTokens, preferring the largest prefix
// that still fits.
func FitToBudget(absRoot string, tags []RankedTag, chatFiles map[string]bool, maxTokens int, count TokenCounter) string {
	if maxTokens <= 0 || len(tags) == 0 {
		return ""
	}
	if count == nil {
		count = DefaultTokenCounter
	}

	lo, hi := 1, len(tags)
	best := ""
	for lo <= hi {
		mid := (lo + hi) / 2
		candidate := Render(absRoot, tags[:mid], chatFiles)
		if count(candidate) <= float64(maxTokens) {
			best = candidate
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return best
}

// ResolveMapTokens mirrors how a context window caps the configured token
// budget when no files are pinned in the chat/request set, so an empty
// request doesn't consume the entire window.
func ResolveMapTokens(opts config.Options, chatFileCount, maxContextWindow, fileMultiplier int) int {
	if chatFileCount > 0 || maxContextWindow <= 0 {
		return opts.MapTokens
	}
	const padding = 4096
	target := opts.MapTokens * fileMultiplier
	ceiling := maxContextWindow - padding
	if ceiling < 0 {
		ceiling = 0
	}
	if target < ceiling {
		return target
	}
	return ceiling
}
