// Package token defines the lexical token vocabulary shared by the lexer,
// CST parser, and every downstream stage of the pipeline.
package token

import "fmt"

// Kind is a closed tag union of lexical token kinds.
type Kind int

const (
	Illegal Kind = iota
	Eof

	// Trivia
	Whitespace
	Tab
	Newline
	Comment

	// Identifiers and selectors
	Ident
	Selector // identifier beginning with '.'

	// Literals
	Number
	String
	InterpString // interpolated string: s"..${expr}.."
	Bool
	EnvRef // $NAME

	// Keywords
	KwDef
	KwFn
	KwLet
	KwVar
	KwIf
	KwElif
	KwElse
	KwWhile
	KwUntil
	KwForeach
	KwTry
	KwCatch
	KwMatch
	KwMacro
	KwQuote
	KwUnquote
	KwModule
	KwInclude
	KwImport
	KwSelf
	KwNodes
	KwNone
	KwBreak
	KwContinue
	KwDo
	KwEnd
	KwLoop

	// Punctuation
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Comma
	Colon
	Semicolon
	Pipe

	// Operators
	EqEq
	NotEq
	Lt
	LtEq
	Gt
	GtEq
	Plus
	Minus
	Star
	Slash
	Percent
	DotDot
	AndAnd
	OrOr
	Bang
	Assign
	PlusAssign
	MinusAssign
	StarAssign
	SlashAssign
	PercentAssign
	Coalesce // ??
	At
	Shl // <<
	Shr // >>
	Match // =~
	Dot
)

var names = map[Kind]string{
	Illegal: "ILLEGAL", Eof: "EOF",
	Whitespace: "WHITESPACE", Tab: "TAB", Newline: "NEWLINE", Comment: "COMMENT",
	Ident: "IDENT", Selector: "SELECTOR",
	Number: "NUMBER", String: "STRING", InterpString: "INTERP_STRING", Bool: "BOOL", EnvRef: "ENV_REF",
	KwDef: "def", KwFn: "fn", KwLet: "let", KwVar: "var", KwIf: "if", KwElif: "elif", KwElse: "else",
	KwWhile: "while", KwUntil: "until", KwForeach: "foreach", KwTry: "try", KwCatch: "catch",
	KwMatch: "match", KwMacro: "macro", KwQuote: "quote", KwUnquote: "unquote", KwModule: "module",
	KwInclude: "include", KwImport: "import", KwSelf: "self", KwNodes: "nodes", KwNone: "None",
	KwBreak: "break", KwContinue: "continue", KwDo: "do", KwEnd: "end", KwLoop: "loop",
	LParen: "(", RParen: ")", LBrace: "{", RBrace: "}", LBracket: "[", RBracket: "]",
	Comma: ",", Colon: ":", Semicolon: ";", Pipe: "|",
	EqEq: "==", NotEq: "!=", Lt: "<", LtEq: "<=", Gt: ">", GtEq: ">=",
	Plus: "+", Minus: "-", Star: "*", Slash: "/", Percent: "%", DotDot: "..",
	AndAnd: "&&", OrOr: "||", Bang: "!", Assign: "=",
	PlusAssign: "+=", MinusAssign: "-=", StarAssign: "*=", SlashAssign: "/=", PercentAssign: "%=",
	Coalesce: "??", At: "@", Shl: "<<", Shr: ">>", Match: "=~", Dot: ".",
}

func (k Kind) String() string {
	if s, ok := names[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Keywords maps identifier text to its keyword Kind, used by the lexer's
// left-longest-match-plus-boundary-check rule (spec §4.1).
var Keywords = map[string]Kind{
	"def": KwDef, "fn": KwFn, "let": KwLet, "var": KwVar,
	"if": KwIf, "elif": KwElif, "else": KwElse,
	"while": KwWhile, "until": KwUntil, "foreach": KwForeach,
	"try": KwTry, "catch": KwCatch, "match": KwMatch,
	"macro": KwMacro, "quote": KwQuote, "unquote": KwUnquote,
	"module": KwModule, "include": KwInclude, "import": KwImport,
	"self": KwSelf, "nodes": KwNodes, "None": KwNone,
	"break": KwBreak, "continue": KwContinue, "do": KwDo, "end": KwEnd, "loop": KwLoop,
}

// Pos is a 1-based line/column source position.
type Pos struct {
	Line int
	Col  int
}

func (p Pos) String() string { return fmt.Sprintf("%d:%d", p.Line, p.Col) }

// Less reports whether p sorts before o.
func (p Pos) Less(o Pos) bool {
	if p.Line != o.Line {
		return p.Line < o.Line
	}
	return p.Col < o.Col
}

// Range is a half-open [Start, End) span of source positions.
type Range struct {
	Start Pos
	End   Pos
}

// Contains reports whether r fully contains o (spec §8 range containment).
func (r Range) Contains(o Range) bool {
	return !o.Start.Less(r.Start) && !r.End.Less(o.End)
}

func (r Range) String() string { return fmt.Sprintf("%s-%s", r.Start, r.End) }

// StringSegmentKind distinguishes the pieces of an interpolated string.
type StringSegmentKind int

const (
	SegText StringSegmentKind = iota
	SegExpr
	SegEnvRef
	SegSelf
)

// StringSegment is one ordered piece of an interpolated string literal.
type StringSegment struct {
	Kind StringSegmentKind
	Text string // literal text, raw expression source, or env/ref name
	Rng  Range
}

// Token is a lexeme with its kind, exact range, and decoded payload.
type Token struct {
	Kind Kind
	Text string // source text; for String the decoded value without quotes, for EnvRef the name without '$', empty for InterpString
	Rng  Range

	// Decoded payload, populated depending on Kind.
	NumberVal float64
	BoolVal   bool
	Segments  []StringSegment // for InterpString
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%s", t.Kind, t.Text, t.Rng)
}
