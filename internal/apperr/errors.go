// Package apperr defines the structured error taxonomy returned across the
// repomap engine's external interfaces.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so hosts can branch on category instead of
// parsing messages.
type Kind string

const (
	// KindInput covers a missing project path, a non-directory path, or an
	// unreadable file supplied by the caller.
	KindInput Kind = "input"
	// KindParse covers a single file's tree-sitter or I/O failure. Parse
	// errors are recovered locally by the extractor and never reach a host
	// as a fatal error; they are aggregated instead (see Corpus.Warnings in
	// internal/extractor and AnalyzeResult.Warnings).
	KindParse Kind = "parse"
	// KindCache covers schema mismatches, corrupted rows, or permission
	// failures in the tag cache.
	KindCache Kind = "cache"
	// KindGraph covers a dependency graph that exceeded its configured size
	// or time budget.
	KindGraph Kind = "graph"
	// KindSession covers an unknown session/tree id or a corrupted session
	// file.
	KindSession Kind = "session"
	// KindConfiguration covers invalid thresholds, weights that don't sum to
	// 1.0, or unknown enum values.
	KindConfiguration Kind = "configuration"
	// KindCancelled covers user-initiated cancellation, distinguished from
	// failure.
	KindCancelled Kind = "cancelled"
)

// Error is the structured payload propagated to hosts for command-level
// failures: {kind, message, context}.
type Error struct {
	Kind    Kind
	Message string
	Context map[string]string
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause, if any, for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is an *Error with the same Kind, so callers can
// write errors.Is(err, apperr.New(apperr.KindSession, "", nil)).
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Kind == e.Kind
	}
	return false
}

// New constructs an Error with an optional context map. ctx may be nil.
func New(kind Kind, message string, ctx map[string]string) *Error {
	return &Error{Kind: kind, Message: message, Context: ctx}
}

// Wrap constructs an Error with message and ctx, chaining cause so
// errors.Unwrap finds the original failure.
func Wrap(kind Kind, message string, cause error, ctx map[string]string) *Error {
	return &Error{Kind: kind, Message: message, Context: ctx, cause: cause}
}

// WithContext returns the key from e.Context, if e is an *Error and the key
// is set.
func WithContext(err error, key string) (string, bool) {
	var e *Error
	if !errors.As(err, &e) || e.Context == nil {
		return "", false
	}
	v, ok := e.Context[key]
	return v, ok
}
