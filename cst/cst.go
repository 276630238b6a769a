// Package cst implements the lossless concrete syntax tree: every token in
// the source — including trivia — appears exactly once in the tree, so the
// tree can be re-serialized to reproduce the input byte-for-byte (spec §3,
// §8 property 1). Modeled on the teacher's event-driven tree builder
// (runtime/parser/tree.go), but materialized as an explicit node/child tree
// rather than a flat event stream, per spec §3's CstNode data model.
package cst

import (
	"strings"

	"github.com/mqscript/mqscript/token"
)

// Kind tags a CST node's grammatical role.
type Kind int

const (
	KindRoot Kind = iota
	KindError // unparseable span kept for lossless round-trip + diagnostics

	KindLiteral
	KindIdent
	KindSelector
	KindEnvRef
	KindInterpString
	KindParen
	KindBinary
	KindUnary
	KindAnd
	KindOr
	KindCall
	KindArgList
	KindArray
	KindDict
	KindDictEntry

	KindLet
	KindVar
	KindAssign
	KindIf
	KindIfBranch
	KindWhile
	KindUntil
	KindForeach
	KindBlock
	KindDef
	KindFn
	KindParamList

	KindTry
	KindMatch
	KindMatchArm
	KindPattern

	KindModule
	KindInclude
	KindImport

	KindMacro
	KindQuote
	KindUnquote

	KindBreak
	KindContinue
	KindNodes
	KindSelf
	KindNone

	KindProgram // sequence of pipe/semicolon-separated expressions
)

// Node is a CST tree node. Every byte of source appears either as the Tok
// of some node or within a Leading/Trailing list, so a pre-order walk that
// emits Leading, then Tok (leaf nodes only), then recurses into Children,
// then emits Trailing reconstructs the input exactly.
type Node struct {
	Kind     Kind
	Tok      *token.Token // the node's own token, if any (e.g. operator, keyword, literal)
	Leading  []token.Token
	Trailing []token.Token
	Children []*Node
	Rng      token.Range
}

// Render reconstructs the source text spanned by n, verbatim.
func (n *Node) Render() string {
	var sb strings.Builder
	n.render(&sb)
	return sb.String()
}

func (n *Node) render(sb *strings.Builder) {
	for _, t := range n.Leading {
		sb.WriteString(t.Text)
	}
	if n.Tok != nil && len(n.Children) == 0 {
		sb.WriteString(n.Tok.Text)
	}
	for _, c := range n.Children {
		c.render(sb)
	}
	for _, t := range n.Trailing {
		sb.WriteString(t.Text)
	}
}

// AllTokens returns every token (trivia and structural) in pre-order,
// satisfying spec §8 property 1 when concatenated.
func (n *Node) AllTokens() []token.Token {
	var out []token.Token
	n.collect(&out)
	return out
}

func (n *Node) collect(out *[]token.Token) {
	*out = append(*out, n.Leading...)
	if n.Tok != nil && len(n.Children) == 0 {
		*out = append(*out, *n.Tok)
	}
	for _, c := range n.Children {
		c.collect(out)
	}
	*out = append(*out, n.Trailing...)
}

// Build wraps a full-mode token stream (trivia included) into a single
// lossless root node, one leaf child per structural token with its
// preceding trivia attached as Leading. This is the minimal concrete
// syntax tree that satisfies spec §8 property 1 (round-trip); the richer
// grammar-shaped tree (statements, expressions, nesting) is produced by
// package parser directly as the semantic AST, with full token ranges
// retained on every node — see DESIGN.md for why the two stages are
// unified that way here.
func Build(tokens []token.Token) *Node {
	root := &Node{Kind: KindRoot}
	var pending []token.Token
	for _, t := range tokens {
		switch t.Kind {
		case token.Whitespace, token.Tab, token.Newline, token.Comment:
			pending = append(pending, t)
			continue
		}
		tk := t
		leaf := &Node{Kind: KindLiteral, Tok: &tk, Leading: pending, Rng: t.Rng}
		pending = nil
		root.Children = append(root.Children, leaf)
	}
	if len(pending) > 0 {
		root.Children = append(root.Children, &Node{Kind: KindError, Leading: pending})
	}
	if len(root.Children) > 0 {
		root.Rng = token.Range{Start: root.Children[0].Rng.Start, End: root.Children[len(root.Children)-1].Rng.End}
	}
	return root
}

// ContainsRange reports whether n's range contains every child's range,
// satisfying spec §8 property 2. Used by tests, not by the parser itself.
func (n *Node) ContainsRange() bool {
	for _, c := range n.Children {
		if !n.Rng.Contains(c.Rng) {
			return false
		}
		if !c.ContainsRange() {
			return false
		}
	}
	return true
}
