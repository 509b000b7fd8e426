package tagkind

import "fmt"

// Tag is a single extracted symbol occurrence: a definition or a reference,
// with its source position. Tags are immutable once produced.
type Tag struct {
	Name      string
	Kind      Kind
	OtherKind string // set when Kind == KindOther, the raw capture suffix
	IsDef     bool   // true for a definition, false for a reference
	File      string // project-relative path
	Line      int
	Column    int
	EndLine   int // -1 when absent
	EndColumn int // -1 when absent
}

// Validate enforces the Tag invariants from the data model: line is
// non-negative, and when both endpoints are present end >= start.
func (t Tag) Validate() error {
	if t.Line < 0 {
		return fmt.Errorf("tag %q: negative line %d", t.Name, t.Line)
	}
	if t.EndLine >= 0 && t.EndLine < t.Line {
		return fmt.Errorf("tag %q: end_line %d precedes line %d", t.Name, t.EndLine, t.Line)
	}
	return nil
}

// KindLabel returns the enum's textual form, preferring the raw capture
// suffix for KindOther so the original grammar-specific label isn't lost.
func (t Tag) KindLabel() string {
	if t.Kind == KindOther && t.OtherKind != "" {
		return "other(" + t.OtherKind + ")"
	}
	return t.Kind.String()
}
