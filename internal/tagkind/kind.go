// Package tagkind defines the closed Tag Kind enumeration shared by the
// parser, cache, graph builder, and matchers.
package tagkind

// Kind is a closed enumeration of the symbol kinds the parser can emit, with
// an escape hatch (KindOther) for language-specific captures that don't map
// onto one of the well-known cases. Downstream consumers switch on Kind with
// an explicit default branch so an unrecognized capture degrades gracefully
// instead of panicking.
type Kind int

const (
	KindUnknown Kind = iota
	KindClassName
	KindFunctionName
	KindMethodName
	KindVariableName
	KindImportReference
	KindImportAlias
	KindCallReference
	KindComment
	KindOther
)

var names = map[Kind]string{
	KindUnknown:          "unknown",
	KindClassName:        "class.name",
	KindFunctionName:     "function.name",
	KindMethodName:       "method.name",
	KindVariableName:     "variable.name",
	KindImportReference:  "import.reference",
	KindImportAlias:      "import.alias",
	KindCallReference:    "call.reference",
	KindComment:          "comment",
	KindOther:            "other",
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if s, ok := names[k]; ok {
		return s
	}
	return "unknown"
}

// ParseCaptureName maps a tree-sitter capture name (e.g.
// "name.definition.class" or "name.reference.call") onto the closed Kind
// enum. The returned bool reports whether the capture denotes a definition
// (true) or a reference (false); captures that are neither a definition nor
// a reference return ok=false and should be skipped by the caller.
func ParseCaptureName(capture string) (kind Kind, isDefinition bool, ok bool) {
	const (
		defPrefix = "name.definition."
		refPrefix = "name.reference."
	)
	switch {
	case len(capture) > len(defPrefix) && capture[:len(defPrefix)] == defPrefix:
		return kindForSuffix(capture[len(defPrefix):]), true, true
	case len(capture) > len(refPrefix) && capture[:len(refPrefix)] == refPrefix:
		return kindForSuffix(capture[len(refPrefix):]), false, true
	default:
		return KindUnknown, false, false
	}
}

func kindForSuffix(suffix string) Kind {
	switch suffix {
	case "class", "interface", "type", "struct", "enum":
		return KindClassName
	case "function":
		return KindFunctionName
	case "method":
		return KindMethodName
	case "variable", "field", "constant", "parameter":
		return KindVariableName
	case "import":
		return KindImportReference
	case "alias":
		return KindImportAlias
	case "call":
		return KindCallReference
	case "comment", "docstring":
		return KindComment
	default:
		return KindOther
	}
}

// RenderPriority returns k's rank in the definition ordering used when
// rendering a token-budgeted map: 0 for classes, 1 for functions/methods, 2
// for variables, 3 for every other kind (lower sorts first).
func RenderPriority(k Kind) int {
	switch k {
	case KindClassName:
		return 0
	case KindFunctionName, KindMethodName:
		return 1
	case KindVariableName:
		return 2
	default:
		return 3
	}
}
