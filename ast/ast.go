// Package ast defines the abstract syntax tree: a tagged union of
// expression variants lowered from the CST (spec §3, §4.3). Operators
// desugar to Call nodes the way the optimizer's constant-folding rule
// expects (Call("add", [2,3]) folds the same way whether it came from
// `add(2,3)` or `2+3`); Call.Operator records which infix/prefix token
// produced the desugaring, so a later pass can tell the two apart (the
// inliner skips operator calls, and optree copies it onto each Op; see
// DESIGN.md, "operator desugaring").
package ast

import (
	"fmt"

	"github.com/mqscript/mqscript/token"
)

// Node is any AST expression node.
type Node interface {
	Range() token.Range
	astNode()
}

type Base struct{ Rng token.Range }

func (b Base) Range() token.Range { return b.Rng }
func (Base) astNode()             {}

// LiteralKind distinguishes the payload of a Literal node.
type LiteralKind int

const (
	LitNumber LiteralKind = iota
	LitString
	LitBool
	LitNone
)

// Literal is a number/string/bool/None constant.
type Literal struct {
	Base
	Kind   LiteralKind
	Number float64
	Str    string
	Bool   bool
}

// Ident is a bare identifier reference.
type Ident struct {
	Base
	Name string
}

// Selector filters Markdown nodes by dotted type tag (e.g. .h1, .list.checked).
type Selector struct {
	Base
	Path  []string // dotted path components, e.g. ["list", "checked"]
	Index *int      // set when the selector was followed by `[index]`
}

// EnvRef reads a process environment variable by name (bare `$NAME`, as
// opposed to the `${...}` form only valid inside interpolated strings).
type EnvRef struct {
	Base
	Name string
}

// Call is a named function invocation: a user/builtin function call, or
// (when Operator != token.Illegal) a desugared operator expression.
type Call struct {
	Base
	Name     string
	Args     []Node
	Operator token.Kind // token.Illegal unless this node desugars an operator
}

// CallDynamic invokes a callable expression (e.g. after macro substitution
// replaces a call's callee with a non-identifier value).
type CallDynamic struct {
	Base
	Callable Node
	Args     []Node
}

// IfBranch is one `if`/`elif` arm, or the trailing `else` when Cond == nil.
type IfBranch struct {
	Cond Node // nil for the else branch
	Body Node // a *Block
}

// If is a chain of if/elif/.../else branches.
type If struct {
	Base
	Branches []IfBranch
}

// While loops while Cond is truthy.
type While struct {
	Base
	Cond Node
	Body Node // *Block
}

// Until loops while Cond is falsy (negated While).
type Until struct {
	Base
	Cond Node
	Body Node // *Block
}

// Foreach iterates Var over Iter (Array or String), evaluating Body each time.
type Foreach struct {
	Base
	Var  string
	Iter Node
	Body Node // *Block
}

// Let introduces an immutable binding in the enclosing scope.
type Let struct {
	Base
	Name  string
	Value Node
}

// Var introduces a mutable binding in the enclosing scope.
type Var struct {
	Base
	Name  string
	Value Node
}

// Assign mutates an existing binding; it is an error if the binding is
// immutable (spec §5).
type Assign struct {
	Base
	Name  string
	Value Node
}

// Def declares a named function in the enclosing scope.
type Def struct {
	Base
	Name   string
	Params []string
	Body   Node // *Block
}

// Fn is an anonymous function literal.
type Fn struct {
	Base
	Params []string
	Body   Node // *Block
}

// Block is a pipe/semicolon-separated sequence of expressions; it is both
// the top-level Program representation and every control-flow body.
type Block struct {
	Base
	Exprs []Node
}

// And/Or are short-circuiting logical operators (kept distinct from Call so
// the evaluator can short-circuit without invoking the right operand).
type And struct {
	Base
	L, R Node
}

type Or struct {
	Base
	L, R Node
}

// Paren is a parenthesized sub-expression, kept to preserve user grouping
// for formatting/diagnostics even though it is semantically transparent.
type Paren struct {
	Base
	Inner Node
}

// StringSegmentKind mirrors token.StringSegmentKind for the re-parsed AST form.
type StringSegmentKind int

const (
	SegText StringSegmentKind = iota
	SegExpr
	SegEnvRef
	SegSelf
)

// StringSegment is one piece of an interpolated string after its `${...}`
// holes have been re-parsed as expressions against the same grammar (spec §4.3).
type StringSegment struct {
	Kind StringSegmentKind
	Text string // literal text, or env-ref name
	Expr Node   // set when Kind == SegExpr
	Rng  token.Range
}

// InterpolatedString concatenates its segments at evaluation time.
type InterpolatedString struct {
	Base
	Segments []StringSegment
}

// Try evaluates TryExpr; on any runtime error it evaluates CatchExpr instead.
type Try struct {
	Base
	TryExpr   Node
	CatchExpr Node
}

// PatternKind tags a match pattern's shape.
type PatternKind int

const (
	PatWildcard PatternKind = iota
	PatIdent
	PatLiteral
	PatType
	PatArray
	PatDict
)

// Pattern is a match-arm pattern (spec §3, §4.6).
type Pattern struct {
	Rng token.Range
	Kind PatternKind

	Ident string  // PatIdent
	Lit   *Literal // PatLiteral
	TypeName string // PatType: "Number", "String", "Bool", "Array", "Dict", "None", "Markdown"

	Elems []Pattern // PatArray
	Rest  string    // PatArray: identifier bound to the rest, "" if none

	Fields map[string]Pattern // PatDict: named field patterns
}

// MatchArm is one `| pattern [if guard]: body` arm.
type MatchArm struct {
	Pattern Pattern
	Guard   Node // optional
	Body    Node // *Block
}

// Match evaluates Value then tries each arm's pattern in order.
type Match struct {
	Base
	Value Node
	Arms  []MatchArm
}

// Module declares a named nested scope whose bindings become accessible via
// QualifiedAccess from importers.
type Module struct {
	Base
	Name string
	Body Node // *Block
}

// Include loads a file's bindings into the current environment.
type Include struct {
	Base
	Path string
}

// Import loads a file into a fresh module environment bound under its name.
type Import struct {
	Base
	Path string
}

// Macro declares a compile-time macro; the macro expander consumes these
// and they never survive expansion (spec §3 invariant).
type Macro struct {
	Base
	Name   string
	Params []string
	Body   Node // *Block, usually a single Quote
}

// Quote marks Block as a code template for a macro body, where the macro
// expander splices Unquote holes into it. A Quote that reaches the
// evaluator has its Block evaluated like any other block; it does not
// produce an AST value.
type Quote struct {
	Base
	Block Node
}

// Unquote splices Inner's evaluated-to-AST value into a surrounding Quote.
type Unquote struct {
	Base
	Inner Node
}

// QualifiedAccess walks nested module environments along Path and reads or
// invokes Target.
type QualifiedAccess struct {
	Base
	Path   []string
	Target string
}

// Array is an array literal; elements that evaluate to None are elided.
type Array struct {
	Base
	Elems []Node
}

// DictEntry is one key/value pair of a Dict literal.
type DictEntry struct {
	Key   string
	Value Node
}

// Dict is a dict literal; entries whose value evaluates to None are elided.
type Dict struct {
	Base
	Entries []DictEntry
}

// Nodes is the `nodes` keyword. The evaluator returns the current piped
// value unchanged; earlier values of the pipe are not gathered into an Array.
type Nodes struct{ Base }

// Self denotes the current piped value.
type Self struct{ Base }

// Break exits the nearest enclosing loop.
type Break struct{ Base }

// Continue skips to the next iteration of the nearest enclosing loop.
type Continue struct{ Base }

// Program is the root of a compiled unit: a top-level Block plus its
// source module id, used as the entry point for every later stage.
type Program struct {
	ModuleID string
	Body     *Block
}

func (p *Program) Range() token.Range {
	if p.Body == nil {
		return token.Range{}
	}
	return p.Body.Range()
}

// NewBlock builds a Block node over exprs spanning rng.
func NewBlock(rng token.Range, exprs ...Node) *Block {
	return &Block{Base: Base{Rng: rng}, Exprs: exprs}
}

// String renders a compact debug form (not used for source reconstruction —
// that is the CST's job).
func (l *Literal) String() string {
	switch l.Kind {
	case LitNumber:
		return fmt.Sprintf("%g", l.Number)
	case LitString:
		return fmt.Sprintf("%q", l.Str)
	case LitBool:
		return fmt.Sprintf("%t", l.Bool)
	default:
		return "None"
	}
}
