// Package parser turns a compact-mode token stream directly into the
// semantic AST (spec §3, §4.2), the way the teacher's runtime/parser folds
// its event-driven recursive descent straight into typed tree construction.
// Errors are collected into a diag.Bag rather than aborting the parse
// (spec §4.2 and §7): on an unexpected token the parser records a
// diagnostic, then skips forward to the next token in the synchronization
// set {if, while, foreach, let, def, identifier, |, ;, EOF} before resuming.
package parser

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mqscript/mqscript/ast"
	"github.com/mqscript/mqscript/diag"
	"github.com/mqscript/mqscript/lexer"
	"github.com/mqscript/mqscript/token"
)

// Option configures a Parser.
type Option func(*Parser)

// WithLogger overrides the package default logger.
func WithLogger(log *slog.Logger) Option { return func(p *Parser) { p.log = log } }

// WithMaxErrors overrides the diagnostic bag's cap (default 100, spec §4.2).
func WithMaxErrors(n int) Option {
	return func(p *Parser) { p.bag.MaxErrors = n }
}

func defaultLogger() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("MQSCRIPT_DEBUG") != "" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// Parser consumes a token stream and builds an ast.Program, collecting
// diagnostics instead of returning a single fatal error.
type Parser struct {
	toks     []token.Token
	pos      int
	bag      *diag.Bag
	moduleID string
	log      *slog.Logger
}

// New builds a Parser over an already-lexed (compact-mode) token stream.
func New(toks []token.Token, moduleID string, opts ...Option) *Parser {
	p := &Parser{toks: toks, moduleID: moduleID, bag: diag.NewBag(), log: defaultLogger()}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Parse lexes source in compact mode and parses it into a Program, along
// with every diagnostic collected by either stage.
func Parse(source, moduleID string, opts ...Option) (*ast.Program, *diag.Bag) {
	toks, err := lexer.New(source, moduleID).All()
	p := New(toks, moduleID, opts...)
	if err != nil {
		if lerr, ok := err.(*lexer.Error); ok {
			p.bag.Add(diag.Diagnostic{Kind: diag.KindUnexpectedEOF, Message: lerr.Message, Rng: &lerr.Rng})
		}
		// toks still holds everything scanned up to the failure; ensure it
		// ends in an EOF token so the parser terminates cleanly.
		if len(toks) == 0 || toks[len(toks)-1].Kind != token.Eof {
			last := token.Pos{Line: 1, Col: 1}
			if len(toks) > 0 {
				last = toks[len(toks)-1].Rng.End
			}
			toks = append(toks, token.Token{Kind: token.Eof, Rng: token.Range{Start: last, End: last}})
		}
		p.toks = toks
	}
	return p.ParseProgram()
}

// ParseProgram parses the whole token stream as a top-level Block.
func (p *Parser) ParseProgram() (*ast.Program, *diag.Bag) {
	body := p.parseBlockUntil()
	if !p.atEnd() {
		p.errorf(diag.KindUnexpectedToken, p.cur().Rng, "unexpected %s after program", p.cur().Kind)
	}
	return &ast.Program{ModuleID: p.moduleID, Body: body}, p.bag
}

// --- token stream helpers ---

func (p *Parser) cur() token.Token {
	if p.pos >= len(p.toks) {
		return token.Token{Kind: token.Eof}
	}
	return p.toks[p.pos]
}

func (p *Parser) peek(n int) token.Token {
	idx := p.pos + n
	if idx >= len(p.toks) {
		return token.Token{Kind: token.Eof}
	}
	return p.toks[idx]
}

func (p *Parser) atEnd() bool { return p.cur().Kind == token.Eof }

func (p *Parser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *Parser) check(k token.Kind) bool { return p.cur().Kind == k }

func (p *Parser) match(k token.Kind) bool {
	if p.check(k) {
		p.advance()
		return true
	}
	return false
}

// expect consumes a token of kind k, or records a diagnostic and returns
// the zero token without advancing.
func (p *Parser) expect(k token.Kind, context string) token.Token {
	if p.check(k) {
		return p.advance()
	}
	p.errorf(diag.KindUnexpectedToken, p.cur().Rng, "expected %s %s, got %s", k, context, p.cur().Kind)
	return token.Token{}
}

func (p *Parser) errorf(kind diag.Kind, rng token.Range, format string, args ...interface{}) {
	p.bag.Add(diag.Diagnostic{Kind: kind, Message: fmt.Sprintf(format, args...), Rng: &rng})
}

// prevEnd returns the end position of the most recently consumed token.
func (p *Parser) prevEnd() token.Pos {
	if p.pos == 0 {
		return p.cur().Rng.Start
	}
	return p.toks[p.pos-1].Rng.End
}

// syncKinds is the synchronization set used for error recovery (spec §4.2).
var syncKinds = map[token.Kind]bool{
	token.KwIf: true, token.KwWhile: true, token.KwForeach: true,
	token.KwLet: true, token.KwDef: true, token.Ident: true,
	token.Pipe: true, token.Semicolon: true, token.Eof: true,
}

// synchronize skips tokens until one in syncKinds is current.
func (p *Parser) synchronize() {
	for !syncKinds[p.cur().Kind] {
		p.advance()
	}
}

// --- blocks ---

// parseBlockUntil parses a pipe/semicolon-separated sequence of expressions,
// stopping at end-of-input or any of terms; it consumes a trailing `end`
// keyword if present (spec's "colon-introduced expression plus optional
// end"). A single-expression colon body and a multi-statement `... end`
// block are both expressed by this one loop.
func (p *Parser) parseBlockUntil(terms ...token.Kind) *ast.Block {
	start := p.cur().Rng.Start
	termSet := map[token.Kind]bool{token.Eof: true, token.KwEnd: true}
	for _, t := range terms {
		termSet[t] = true
	}

	var exprs []ast.Node
	for {
		if termSet[p.cur().Kind] {
			break
		}
		before := p.pos
		exprs = append(exprs, p.parseExpr())
		if p.pos == before {
			// parseExpr made no progress (e.g. on a token it didn't
			// recognize); avoid an infinite loop by forcing recovery.
			p.errorf(diag.KindUnexpectedToken, p.cur().Rng, "unexpected %s", p.cur().Kind)
			p.advance()
			p.synchronize()
		}
		if termSet[p.cur().Kind] {
			break
		}
		if p.check(token.Pipe) || p.check(token.Semicolon) {
			p.advance()
			continue
		}
		break
	}
	end := p.prevEnd()
	if p.check(token.KwEnd) {
		end = p.cur().Rng.End
		p.advance()
	}
	return ast.NewBlock(token.Range{Start: start, End: end}, exprs...)
}

// --- expressions: precedence climbing ---

var assignOps = map[token.Kind]token.Kind{
	token.Assign:        token.Illegal,
	token.PlusAssign:    token.Plus,
	token.MinusAssign:   token.Minus,
	token.StarAssign:    token.Star,
	token.SlashAssign:   token.Slash,
	token.PercentAssign: token.Percent,
}

func opName(k token.Kind) string {
	switch k {
	case token.Plus:
		return "add"
	case token.Minus:
		return "sub"
	case token.Star:
		return "mul"
	case token.Slash:
		return "div"
	case token.Percent:
		return "mod"
	case token.EqEq:
		return "eq"
	case token.NotEq:
		return "neq"
	case token.Lt:
		return "lt"
	case token.LtEq:
		return "lte"
	case token.Gt:
		return "gt"
	case token.GtEq:
		return "gte"
	case token.Shl:
		return "shl"
	case token.Shr:
		return "shr"
	case token.Match:
		return "match"
	case token.Coalesce:
		return "coalesce"
	case token.Bang:
		return "not"
	default:
		return k.String()
	}
}

func (p *Parser) parseExpr() ast.Node {
	if p.check(token.Ident) {
		if op, ok := assignOps[p.peek(1).Kind]; ok {
			start := p.cur().Rng.Start
			name := p.advance().Text // ident
			p.advance()              // assignment operator
			rhs := p.parseExpr()
			val := rhs
			if op != token.Illegal {
				val = &ast.Call{
					Base:     ast.Base{Rng: rhs.Range()},
					Name:     opName(op),
					Args:     []ast.Node{&ast.Ident{Base: ast.Base{Rng: token.Range{Start: start, End: start}}, Name: name}, rhs},
					Operator: op,
				}
			}
			return &ast.Assign{Base: ast.Base{Rng: token.Range{Start: start, End: rhs.Range().End}}, Name: name, Value: val}
		}
	}
	return p.parseOr()
}

func (p *Parser) parseOr() ast.Node {
	left := p.parseAnd()
	for p.check(token.OrOr) || p.check(token.Coalesce) {
		op := p.advance()
		right := p.parseAnd()
		rng := token.Range{Start: left.Range().Start, End: right.Range().End}
		if op.Kind == token.OrOr {
			left = &ast.Or{Base: ast.Base{Rng: rng}, L: left, R: right}
		} else {
			left = &ast.Call{Base: ast.Base{Rng: rng}, Name: opName(op.Kind), Args: []ast.Node{left, right}, Operator: op.Kind}
		}
	}
	return left
}

func (p *Parser) parseAnd() ast.Node {
	left := p.parseEquality()
	for p.check(token.AndAnd) {
		p.advance()
		right := p.parseEquality()
		rng := token.Range{Start: left.Range().Start, End: right.Range().End}
		left = &ast.And{Base: ast.Base{Rng: rng}, L: left, R: right}
	}
	return left
}

func (p *Parser) binaryLevel(next func() ast.Node, kinds ...token.Kind) ast.Node {
	left := next()
	for {
		matched := false
		for _, k := range kinds {
			if p.check(k) {
				op := p.advance()
				right := next()
				rng := token.Range{Start: left.Range().Start, End: right.Range().End}
				left = &ast.Call{Base: ast.Base{Rng: rng}, Name: opName(op.Kind), Args: []ast.Node{left, right}, Operator: op.Kind}
				matched = true
				break
			}
		}
		if !matched {
			return left
		}
	}
}

func (p *Parser) parseEquality() ast.Node {
	return p.binaryLevel(p.parseRelational, token.EqEq, token.NotEq, token.Match)
}

func (p *Parser) parseRelational() ast.Node {
	return p.binaryLevel(p.parseShift, token.Lt, token.LtEq, token.Gt, token.GtEq)
}

func (p *Parser) parseShift() ast.Node {
	return p.binaryLevel(p.parseAdditive, token.Shl, token.Shr)
}

func (p *Parser) parseAdditive() ast.Node {
	return p.binaryLevel(p.parseMultiplicative, token.Plus, token.Minus)
}

func (p *Parser) parseMultiplicative() ast.Node {
	return p.binaryLevel(p.parseUnary, token.Star, token.Slash, token.Percent)
}

func (p *Parser) parseUnary() ast.Node {
	if p.check(token.Bang) || p.check(token.Minus) {
		op := p.advance()
		operand := p.parseUnary()
		name := "neg"
		if op.Kind == token.Bang {
			name = "not"
		}
		rng := token.Range{Start: op.Rng.Start, End: operand.Range().End}
		return &ast.Call{Base: ast.Base{Rng: rng}, Name: name, Args: []ast.Node{operand}, Operator: op.Kind}
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() ast.Node {
	n := p.parsePrimary()
	for {
		switch {
		case p.check(token.LParen):
			args, end := p.parseArgList()
			rng := token.Range{Start: n.Range().Start, End: end}
			switch callee := n.(type) {
			case *ast.Ident:
				n = &ast.Call{Base: ast.Base{Rng: rng}, Name: callee.Name, Args: args}
			default:
				// QualifiedAccess and any other callable expression invoke
				// dynamically; the evaluator resolves the callee at runtime.
				n = &ast.CallDynamic{Base: ast.Base{Rng: rng}, Callable: n, Args: args}
			}
		case p.check(token.Selector) && isQualifiable(n):
			// An Ident (or QualifiedAccess) directly followed by a Selector
			// token is a dotted module-member access, e.g. `mymodule.func`,
			// not a Markdown filter selector (those only ever appear as the
			// first primary of a chain, never trailing an Ident).
			n = p.extendQualifiedAccess(n)
		default:
			return n
		}
	}
}

func isQualifiable(n ast.Node) bool {
	switch n.(type) {
	case *ast.Ident, *ast.QualifiedAccess:
		return true
	}
	return false
}

func (p *Parser) extendQualifiedAccess(n ast.Node) ast.Node {
	var path []string
	switch v := n.(type) {
	case *ast.Ident:
		path = []string{v.Name}
	case *ast.QualifiedAccess:
		path = append(append([]string{}, v.Path...), v.Target)
	}
	start := n.Range().Start
	target := ""
	for p.check(token.Selector) {
		seg := p.advance()
		name := seg.Text
		if len(name) > 0 && name[0] == '.' {
			name = name[1:]
		}
		if target != "" {
			path = append(path, target)
		}
		target = name
	}
	return &ast.QualifiedAccess{Base: ast.Base{Rng: token.Range{Start: start, End: p.prevEnd()}}, Path: path, Target: target}
}

func (p *Parser) parseArgList() ([]ast.Node, token.Pos) {
	p.expect(token.LParen, "to start an argument list")
	var args []ast.Node
	for !p.check(token.RParen) && !p.atEnd() {
		args = append(args, p.parseExpr())
		if !p.match(token.Comma) {
			break
		}
	}
	end := p.cur().Rng.End
	p.expect(token.RParen, "to close an argument list")
	return args, end
}

// --- primaries ---

func (p *Parser) parsePrimary() ast.Node {
	t := p.cur()
	switch t.Kind {
	case token.Number:
		p.advance()
		return &ast.Literal{Base: ast.Base{Rng: t.Rng}, Kind: ast.LitNumber, Number: t.NumberVal}
	case token.String:
		p.advance()
		return &ast.Literal{Base: ast.Base{Rng: t.Rng}, Kind: ast.LitString, Str: t.Text}
	case token.Bool:
		p.advance()
		return &ast.Literal{Base: ast.Base{Rng: t.Rng}, Kind: ast.LitBool, Bool: t.BoolVal}
	case token.KwNone:
		p.advance()
		return &ast.Literal{Base: ast.Base{Rng: t.Rng}, Kind: ast.LitNone}
	case token.EnvRef:
		p.advance()
		return &ast.EnvRef{Base: ast.Base{Rng: t.Rng}, Name: t.Text}
	case token.InterpString:
		p.advance()
		return p.buildInterpolatedString(t)
	case token.Ident:
		p.advance()
		return &ast.Ident{Base: ast.Base{Rng: t.Rng}, Name: t.Text}
	case token.Selector:
		return p.parseSelector()
	case token.LParen:
		p.advance()
		inner := p.parseExpr()
		end := p.cur().Rng.End
		p.expect(token.RParen, "to close a parenthesized expression")
		return &ast.Paren{Base: ast.Base{Rng: token.Range{Start: t.Rng.Start, End: end}}, Inner: inner}
	case token.LBracket:
		return p.parseArray()
	case token.LBrace:
		return p.parseDict()
	case token.KwSelf:
		p.advance()
		return &ast.Self{Base: ast.Base{Rng: t.Rng}}
	case token.KwNodes:
		p.advance()
		return &ast.Nodes{Base: ast.Base{Rng: t.Rng}}
	case token.KwBreak:
		p.advance()
		return &ast.Break{Base: ast.Base{Rng: t.Rng}}
	case token.KwContinue:
		p.advance()
		return &ast.Continue{Base: ast.Base{Rng: t.Rng}}
	case token.KwLet:
		return p.parseLet()
	case token.KwVar:
		return p.parseVar()
	case token.KwDef:
		return p.parseDef()
	case token.KwFn:
		return p.parseFn()
	case token.KwIf:
		return p.parseIf()
	case token.KwWhile:
		return p.parseWhile()
	case token.KwUntil:
		return p.parseUntil()
	case token.KwForeach:
		return p.parseForeach()
	case token.KwTry:
		return p.parseTry()
	case token.KwMatch:
		return p.parseMatch()
	case token.KwModule:
		return p.parseModule()
	case token.KwInclude:
		return p.parseIncludeImport(false)
	case token.KwImport:
		return p.parseIncludeImport(true)
	case token.KwMacro:
		return p.parseMacro()
	case token.KwQuote:
		return p.parseQuote()
	case token.KwUnquote:
		return p.parseUnquote()
	default:
		p.errorf(diag.KindUnexpectedToken, t.Rng, "unexpected %s", t.Kind)
		return &ast.Literal{Base: ast.Base{Rng: t.Rng}, Kind: ast.LitNone}
	}
}

func (p *Parser) parseSelector() ast.Node {
	start := p.cur().Rng.Start
	var path []string
	for p.check(token.Selector) {
		seg := p.advance()
		name := seg.Text
		if len(name) > 1 {
			path = append(path, name[1:])
		}
	}
	var index *int
	if p.check(token.LBracket) {
		p.advance()
		if p.check(token.Number) {
			n := int(p.cur().NumberVal)
			index = &n
			p.advance()
		} else {
			p.errorf(diag.KindUnexpectedToken, p.cur().Rng, "expected a numeric selector index")
		}
		p.expect(token.RBracket, "to close a selector index")
	}
	return &ast.Selector{Base: ast.Base{Rng: token.Range{Start: start, End: p.prevEnd()}}, Path: path, Index: index}
}

func (p *Parser) parseArray() ast.Node {
	start := p.cur().Rng.Start
	p.advance() // [
	var elems []ast.Node
	for !p.check(token.RBracket) && !p.atEnd() {
		elems = append(elems, p.parseExpr())
		if !p.match(token.Comma) {
			break
		}
	}
	end := p.cur().Rng.End
	p.expect(token.RBracket, "to close an array literal")
	return &ast.Array{Base: ast.Base{Rng: token.Range{Start: start, End: end}}, Elems: elems}
}

func (p *Parser) parseDict() ast.Node {
	start := p.cur().Rng.Start
	p.advance() // {
	var entries []ast.DictEntry
	for !p.check(token.RBrace) && !p.atEnd() {
		var key string
		switch p.cur().Kind {
		case token.Ident:
			key = p.advance().Text
		case token.String:
			key = p.advance().Text
		default:
			p.errorf(diag.KindUnexpectedToken, p.cur().Rng, "expected a dict key")
			p.advance()
		}
		p.expect(token.Colon, "after a dict key")
		val := p.parseExpr()
		entries = append(entries, ast.DictEntry{Key: key, Value: val})
		if !p.match(token.Comma) {
			break
		}
	}
	end := p.cur().Rng.End
	p.expect(token.RBrace, "to close a dict literal")
	return &ast.Dict{Base: ast.Base{Rng: token.Range{Start: start, End: end}}, Entries: entries}
}

func (p *Parser) buildInterpolatedString(t token.Token) ast.Node {
	segs := make([]ast.StringSegment, 0, len(t.Segments))
	for _, s := range t.Segments {
		seg := ast.StringSegment{Text: s.Text, Rng: s.Rng}
		switch s.Kind {
		case token.SegText:
			seg.Kind = ast.SegText
		case token.SegEnvRef:
			seg.Kind = ast.SegEnvRef
		case token.SegSelf:
			seg.Kind = ast.SegSelf
		case token.SegExpr:
			seg.Kind = ast.SegExpr
			seg.Expr = parseSubExpr(s.Text, p.moduleID, s.Rng.Start, p.bag)
		}
		segs = append(segs, seg)
	}
	return &ast.InterpolatedString{Base: ast.Base{Rng: t.Rng}, Segments: segs}
}

// parseSubExpr re-lexes and re-parses an interpolated `${...}` hole's raw
// source as a standalone expression (spec §4.3). Diagnostics raised inside
// the hole are reported relative to the hole's own text, a known
// simplification (see DESIGN.md) rather than remapped to the enclosing
// source's absolute position.
func parseSubExpr(src, moduleID string, _ token.Pos, bag *diag.Bag) ast.Node {
	toks, _ := lexer.New(src, moduleID).All()
	sub := New(toks, moduleID)
	expr := sub.parseExpr()
	for _, d := range sub.bag.Items() {
		bag.Add(d)
	}
	return expr
}

// --- control-flow and declaration constructs ---

func (p *Parser) parseLet() ast.Node {
	start := p.advance().Rng.Start // let
	name := p.expect(token.Ident, "after let").Text
	p.expect(token.Assign, "in a let binding")
	val := p.parseExpr()
	return &ast.Let{Base: ast.Base{Rng: token.Range{Start: start, End: val.Range().End}}, Name: name, Value: val}
}

func (p *Parser) parseVar() ast.Node {
	start := p.advance().Rng.Start // var
	name := p.expect(token.Ident, "after var").Text
	p.expect(token.Assign, "in a var binding")
	val := p.parseExpr()
	return &ast.Var{Base: ast.Base{Rng: token.Range{Start: start, End: val.Range().End}}, Name: name, Value: val}
}

func (p *Parser) parseParamList() []string {
	p.expect(token.LParen, "to start a parameter list")
	var params []string
	for !p.check(token.RParen) && !p.atEnd() {
		params = append(params, p.expect(token.Ident, "in a parameter list").Text)
		if !p.match(token.Comma) {
			break
		}
	}
	p.expect(token.RParen, "to close a parameter list")
	return params
}

func (p *Parser) parseDef() ast.Node {
	start := p.advance().Rng.Start // def
	name := p.expect(token.Ident, "after def").Text
	params := p.parseParamList()
	p.expect(token.Colon, "before a function body")
	body := p.parseBlockUntil()
	return &ast.Def{Base: ast.Base{Rng: token.Range{Start: start, End: body.Range().End}}, Name: name, Params: params, Body: body}
}

func (p *Parser) parseFn() ast.Node {
	start := p.advance().Rng.Start // fn
	params := p.parseParamList()
	p.expect(token.Colon, "before a function body")
	body := p.parseBlockUntil()
	return &ast.Fn{Base: ast.Base{Rng: token.Range{Start: start, End: body.Range().End}}, Params: params, Body: body}
}

func (p *Parser) parseCondInParens() ast.Node {
	if p.check(token.LParen) {
		p.advance()
		cond := p.parseExpr()
		p.expect(token.RParen, "to close a condition")
		return cond
	}
	return p.parseExpr()
}

func (p *Parser) parseIf() ast.Node {
	start := p.advance().Rng.Start // if
	var branches []ast.IfBranch

	cond := p.parseCondInParens()
	p.expect(token.Colon, "before an if body")
	body := p.parseBlockUntil(token.KwElif, token.KwElse)
	branches = append(branches, ast.IfBranch{Cond: cond, Body: body})
	end := body.Range().End

	for p.check(token.KwElif) {
		p.advance()
		c := p.parseCondInParens()
		p.expect(token.Colon, "before an elif body")
		b := p.parseBlockUntil(token.KwElif, token.KwElse)
		branches = append(branches, ast.IfBranch{Cond: c, Body: b})
		end = b.Range().End
	}
	if p.check(token.KwElse) {
		p.advance()
		p.expect(token.Colon, "before an else body")
		b := p.parseBlockUntil()
		branches = append(branches, ast.IfBranch{Cond: nil, Body: b})
		end = b.Range().End
	}
	return &ast.If{Base: ast.Base{Rng: token.Range{Start: start, End: end}}, Branches: branches}
}

func (p *Parser) parseWhile() ast.Node {
	start := p.advance().Rng.Start // while
	cond := p.parseCondInParens()
	p.expect(token.Colon, "before a while body")
	body := p.parseBlockUntil()
	return &ast.While{Base: ast.Base{Rng: token.Range{Start: start, End: body.Range().End}}, Cond: cond, Body: body}
}

func (p *Parser) parseUntil() ast.Node {
	start := p.advance().Rng.Start // until
	cond := p.parseCondInParens()
	p.expect(token.Colon, "before an until body")
	body := p.parseBlockUntil()
	return &ast.Until{Base: ast.Base{Rng: token.Range{Start: start, End: body.Range().End}}, Cond: cond, Body: body}
}

func (p *Parser) parseForeach() ast.Node {
	start := p.advance().Rng.Start // foreach
	p.expect(token.LParen, "after foreach")
	v := p.expect(token.Ident, "as the foreach loop variable").Text
	p.expect(token.Comma, "between the foreach variable and its iterable")
	iter := p.parseExpr()
	p.expect(token.RParen, "to close a foreach header")
	p.expect(token.Colon, "before a foreach body")
	body := p.parseBlockUntil()
	return &ast.Foreach{Base: ast.Base{Rng: token.Range{Start: start, End: body.Range().End}}, Var: v, Iter: iter, Body: body}
}

func (p *Parser) parseTry() ast.Node {
	start := p.advance().Rng.Start // try
	p.expect(token.Colon, "before a try body")
	tryBody := p.parseBlockUntil(token.KwCatch)
	var catchBody ast.Node = ast.NewBlock(tryBody.Range())
	end := tryBody.Range().End
	if p.check(token.KwCatch) {
		p.advance()
		p.expect(token.Colon, "before a catch body")
		cb := p.parseBlockUntil()
		catchBody = cb
		end = cb.Range().End
	} else {
		p.errorf(diag.KindUnexpectedToken, p.cur().Rng, "expected catch after try")
	}
	return &ast.Try{Base: ast.Base{Rng: token.Range{Start: start, End: end}}, TryExpr: tryBody, CatchExpr: catchBody}
}

func (p *Parser) parsePattern() ast.Pattern {
	t := p.cur()
	switch {
	case t.Kind == token.Ident && t.Text == "_":
		p.advance()
		return ast.Pattern{Rng: t.Rng, Kind: ast.PatWildcard}
	case t.Kind == token.Ident:
		p.advance()
		return ast.Pattern{Rng: t.Rng, Kind: ast.PatIdent, Ident: t.Text}
	case t.Kind == token.Number:
		p.advance()
		lit := &ast.Literal{Base: ast.Base{Rng: t.Rng}, Kind: ast.LitNumber, Number: t.NumberVal}
		return ast.Pattern{Rng: t.Rng, Kind: ast.PatLiteral, Lit: lit}
	case t.Kind == token.String:
		p.advance()
		lit := &ast.Literal{Base: ast.Base{Rng: t.Rng}, Kind: ast.LitString, Str: t.Text}
		return ast.Pattern{Rng: t.Rng, Kind: ast.PatLiteral, Lit: lit}
	case t.Kind == token.Bool:
		p.advance()
		lit := &ast.Literal{Base: ast.Base{Rng: t.Rng}, Kind: ast.LitBool, Bool: t.BoolVal}
		return ast.Pattern{Rng: t.Rng, Kind: ast.PatLiteral, Lit: lit}
	case t.Kind == token.KwNone:
		p.advance()
		lit := &ast.Literal{Base: ast.Base{Rng: t.Rng}, Kind: ast.LitNone}
		return ast.Pattern{Rng: t.Rng, Kind: ast.PatLiteral, Lit: lit}
	case t.Kind == token.LBracket:
		return p.parseArrayPattern()
	case t.Kind == token.LBrace:
		return p.parseDictPattern()
	default:
		p.errorf(diag.KindUnexpectedToken, t.Rng, "expected a pattern, got %s", t.Kind)
		p.advance()
		return ast.Pattern{Rng: t.Rng, Kind: ast.PatWildcard}
	}
}

func (p *Parser) parseArrayPattern() ast.Pattern {
	start := p.advance().Rng.Start // [
	var elems []ast.Pattern
	rest := ""
	for !p.check(token.RBracket) && !p.atEnd() {
		if p.check(token.DotDot) {
			p.advance()
			rest = p.expect(token.Ident, "after .. in an array pattern").Text
			break
		}
		elems = append(elems, p.parsePattern())
		if !p.match(token.Comma) {
			break
		}
	}
	end := p.cur().Rng.End
	p.expect(token.RBracket, "to close an array pattern")
	return ast.Pattern{Rng: token.Range{Start: start, End: end}, Kind: ast.PatArray, Elems: elems, Rest: rest}
}

func (p *Parser) parseDictPattern() ast.Pattern {
	start := p.advance().Rng.Start // {
	fields := map[string]ast.Pattern{}
	for !p.check(token.RBrace) && !p.atEnd() {
		key := p.expect(token.Ident, "as a dict pattern field name").Text
		p.expect(token.Colon, "after a dict pattern field name")
		fields[key] = p.parsePattern()
		if !p.match(token.Comma) {
			break
		}
	}
	end := p.cur().Rng.End
	p.expect(token.RBrace, "to close a dict pattern")
	return ast.Pattern{Rng: token.Range{Start: start, End: end}, Kind: ast.PatDict, Fields: fields}
}

func (p *Parser) parseMatch() ast.Node {
	start := p.advance().Rng.Start // match
	p.expect(token.LParen, "after match")
	val := p.parseExpr()
	p.expect(token.RParen, "to close a match header")
	p.expect(token.Colon, "before match arms")

	var arms []ast.MatchArm
	for p.check(token.Pipe) {
		p.advance()
		pat := p.parsePattern()
		var guard ast.Node
		if p.check(token.KwIf) {
			p.advance()
			guard = p.parseExpr()
		}
		p.expect(token.Colon, "before a match arm body")
		body := p.parseBlockUntil(token.Pipe)
		arms = append(arms, ast.MatchArm{Pattern: pat, Guard: guard, Body: body})
	}
	end := p.cur().Rng.End
	if p.check(token.KwEnd) {
		end = p.cur().Rng.End
		p.advance()
	}
	return &ast.Match{Base: ast.Base{Rng: token.Range{Start: start, End: end}}, Value: val, Arms: arms}
}

func (p *Parser) parseModule() ast.Node {
	start := p.advance().Rng.Start // module
	name := p.expect(token.Ident, "after module").Text
	body := p.parseBlockUntil()
	return &ast.Module{Base: ast.Base{Rng: token.Range{Start: start, End: body.Range().End}}, Name: name, Body: body}
}

func (p *Parser) parseIncludeImport(isImport bool) ast.Node {
	start := p.advance().Rng.Start // include/import
	path := p.expect(token.String, "naming a file").Text
	rng := token.Range{Start: start, End: p.prevEnd()}
	if isImport {
		return &ast.Import{Base: ast.Base{Rng: rng}, Path: path}
	}
	return &ast.Include{Base: ast.Base{Rng: rng}, Path: path}
}

func (p *Parser) parseMacro() ast.Node {
	start := p.advance().Rng.Start // macro
	name := p.expect(token.Ident, "after macro").Text
	params := p.parseParamList()
	p.expect(token.Colon, "before a macro body")
	body := p.parseBlockUntil()
	return &ast.Macro{Base: ast.Base{Rng: token.Range{Start: start, End: body.Range().End}}, Name: name, Params: params, Body: body}
}

func (p *Parser) parseQuote() ast.Node {
	start := p.advance().Rng.Start // quote
	p.expect(token.Colon, "before a quote body")
	body := p.parseBlockUntil()
	return &ast.Quote{Base: ast.Base{Rng: token.Range{Start: start, End: body.Range().End}}, Block: body}
}

func (p *Parser) parseUnquote() ast.Node {
	start := p.advance().Rng.Start // unquote
	p.expect(token.LParen, "after unquote")
	inner := p.parseExpr()
	end := p.cur().Rng.End
	p.expect(token.RParen, "to close unquote")
	return &ast.Unquote{Base: ast.Base{Rng: token.Range{Start: start, End: end}}, Inner: inner}
}
