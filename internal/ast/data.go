package ast

import "github.com/vexlang/vexc/internal/types"

// IdentifierData is the leaf payload of an IDENTIFIER node: a segmented
// name (one or more dot-separated segments) plus the access pattern the
// resolver attaches once the use is solved.
type IdentifierData struct {
	// Segments is the dot-split name, e.g. ["std", "io", "println"].
	Segments []string

	// ScopeDistance is -1 until the resolver attaches an access pattern.
	ScopeDistance int

	// Offsets is the positional path through nested product types that a
	// dotted projection (a.b.c) walks, computed by the resolver.
	Offsets []int
}

// NewIdentifierData returns leaf data for an as-yet-unresolved identifier.
func NewIdentifierData(segments []string) IdentifierData {
	return IdentifierData{Segments: segments, ScopeDistance: -1}
}

// NumberData is the leaf payload of a NUMBER node.
type NumberData struct {
	Value int64
	Width types.Kind // one of the fixed-width integer Kinds; i32 if unspecified
}

// StringData is the leaf payload of a STRING node.
type StringData struct {
	Value string
}

// BooleanData is the leaf payload of a BOOLEAN node.
type BooleanData struct {
	Value bool
}
