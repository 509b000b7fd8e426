// Package queries embeds the per-language tree-sitter tag queries. Each file
// is a standard tree-sitter-tags-style capture query: `name.definition.*`
// marks a definition site, `name.reference.*` marks a reference site.
package queries

import (
	_ "embed"
	"fmt"
)

// Language identifies one of the grammars the parser registry supports.
type Language string

const (
	Go         Language = "go"
	Python     Language = "python"
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
	Java       Language = "java"
	CSharp     Language = "csharp"
)

//go:embed go.scm
var goQuery string

//go:embed python.scm
var pythonQuery string

//go:embed javascript.scm
var javascriptQuery string

//go:embed typescript.scm
var typescriptQuery string

//go:embed java.scm
var javaQuery string

//go:embed csharp.scm
var csharpQuery string

var bySource = map[Language]string{
	Go:         goQuery,
	Python:     pythonQuery,
	JavaScript: javascriptQuery,
	TypeScript: typescriptQuery,
	Java:       javaQuery,
	CSharp:     csharpQuery,
}

// Get returns the embedded query source for lang.
func Get(lang Language) (string, error) {
	q, ok := bySource[lang]
	if !ok {
		return "", fmt.Errorf("queries: unsupported language %q", lang)
	}
	return q, nil
}

// Supported returns every language this package has a query for.
func Supported() []Language {
	return []Language{Go, Python, JavaScript, TypeScript, Java, CSharp}
}
