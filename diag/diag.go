// Package diag holds the diagnostic vocabulary shared by every compile-time
// stage (lexer, parser, hir, macro, types). Diagnostics are collected, not
// thrown (spec §7); this package provides the bounded collector and the
// Rust/Clang-style snippet rendering the teacher's runtime/parser.ParseError
// uses, generalized to every diagnostic kind instead of parse errors alone.
package diag

import (
	"fmt"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/mqscript/mqscript/token"
)

// Kind categorizes a diagnostic per spec §7.
type Kind string

const (
	KindSyntax            Kind = "SYNTAX"
	KindUnexpectedToken   Kind = "UNEXPECTED_TOKEN"
	KindUnexpectedEOF     Kind = "UNEXPECTED_EOF"
	KindInsufficientToken Kind = "INSUFFICIENT_TOKEN"
	KindUnresolvedRef     Kind = "UNRESOLVED_REFERENCE"
	KindDuplicateFunction Kind = "DUPLICATE_FUNCTION"
	KindArityMismatch     Kind = "ARITY_MISMATCH"
	KindRecursionLimit    Kind = "RECURSION_LIMIT"
	KindUndefinedMacro    Kind = "UNDEFINED_MACRO"
	KindUnificationError  Kind = "UNIFICATION_ERROR"
	KindNoOverload        Kind = "NO_MATCHING_OVERLOAD"
)

// Diagnostic is a single collected error. It carries an optional source
// span, a kind, a message, and an optional "did you mean" suggestion.
type Diagnostic struct {
	Kind       Kind
	Message    string
	Rng        *token.Range
	Suggestion string
}

// Error implements the error interface so a Diagnostic can be used directly
// where a single error is expected (e.g. a runtime error thrown by Try).
func (d Diagnostic) Error() string {
	var sb strings.Builder
	sb.WriteString(string(d.Kind))
	sb.WriteString(": ")
	sb.WriteString(d.Message)
	if d.Rng != nil {
		fmt.Fprintf(&sb, " at %s", *d.Rng)
	}
	if d.Suggestion != "" {
		fmt.Fprintf(&sb, " (did you mean %q?)", d.Suggestion)
	}
	return sb.String()
}

// Snippet renders a Rust/Clang-style pointer into source, the way the
// teacher's runtime/parser.ParseError.createCodeSnippet does.
func (d Diagnostic) Snippet(source string) string {
	if d.Rng == nil {
		return ""
	}
	lines := strings.Split(source, "\n")
	line := d.Rng.Start.Line
	if line < 1 || line > len(lines) {
		return ""
	}
	lineContent := lines[line-1]
	var sb strings.Builder
	fmt.Fprintf(&sb, "  --> %d:%d\n", line, d.Rng.Start.Col)
	sb.WriteString("   |\n")
	fmt.Fprintf(&sb, "%2d | %s\n", line, lineContent)
	sb.WriteString("   | ")
	if d.Rng.Start.Col > 0 && d.Rng.Start.Col <= len(lineContent)+1 {
		sb.WriteString(strings.Repeat(" ", d.Rng.Start.Col-1) + "^")
	}
	return sb.String()
}

// Bag collects diagnostics up to MaxErrors, deduplicating UnexpectedEOF so
// it appears at most once (spec §4.2).
type Bag struct {
	MaxErrors int
	items     []Diagnostic
	sawEOF     bool
}

// NewBag creates a Bag with the default cap of 100.
func NewBag() *Bag { return &Bag{MaxErrors: 100} }

// Add appends d, respecting the cap and the UnexpectedEOF dedup rule.
func (b *Bag) Add(d Diagnostic) {
	if d.Kind == KindUnexpectedEOF {
		if b.sawEOF {
			return
		}
		b.sawEOF = true
	}
	max := b.MaxErrors
	if max <= 0 {
		max = 100
	}
	if len(b.items) >= max {
		return
	}
	b.items = append(b.items, d)
}

// Items returns the collected diagnostics in insertion order.
func (b *Bag) Items() []Diagnostic { return b.items }

// Empty reports whether no diagnostics were collected.
func (b *Bag) Empty() bool { return len(b.items) == 0 }

// Suggest returns the closest name in candidates to name, ranked by
// case-insensitive Levenshtein distance, or "" if nothing is close enough
// to be a plausible typo.
func Suggest(name string, candidates []string) string {
	best, bestDist := "", -1
	lower := strings.ToLower(name)
	for _, c := range candidates {
		d := fuzzy.LevenshteinDistance(lower, strings.ToLower(c))
		if bestDist < 0 || d < bestDist {
			best, bestDist = c, d
		}
	}
	threshold := len(name)/2 + 2
	if bestDist < 0 || bestDist > threshold {
		return ""
	}
	return best
}
