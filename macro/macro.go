// Package macro implements hygienic macro expansion (spec §3, §4.4):
// collecting `macro` declarations out of a Block, then rewriting calls to
// those names by substituting quoted bodies with their arguments spliced
// in at `unquote` points. Expansion re-runs on its own output until no
// macro calls remain (bounded by MaxDepth), since a substituted argument
// may itself contain further macro calls.
package macro

import (
	"strconv"

	"github.com/mqscript/mqscript/ast"
	"github.com/mqscript/mqscript/diag"
)

// DefaultMaxDepth bounds re-expansion passes (spec §4.4).
const DefaultMaxDepth = 1000

// Expander holds the macro table collected from a program.
type Expander struct {
	Macros   map[string]*ast.Macro
	MaxDepth int
	Bag      *diag.Bag
}

// Collect walks program.Body, pulling every top-level ast.Macro declaration
// out into the returned Expander's macro table and rewriting
// program.Body.Exprs in place with those declarations removed (they never
// survive past this stage).
func Collect(program *ast.Program) *Expander {
	e := &Expander{Macros: map[string]*ast.Macro{}, MaxDepth: DefaultMaxDepth, Bag: diag.NewBag()}
	program.Body.Exprs = e.collectBlock(program.Body.Exprs)
	return e
}

func (e *Expander) collectBlock(exprs []ast.Node) []ast.Node {
	out := exprs[:0:0]
	for _, expr := range exprs {
		if m, ok := expr.(*ast.Macro); ok {
			e.Macros[m.Name] = m
			continue
		}
		out = append(out, expr)
	}
	return out
}

// Expand rewrites macro calls in program.Body, in place, re-running until a
// fixed point or MaxDepth rounds (spec §4.4 idempotence requirement:
// expanding an already-expanded program is a no-op). Calls are searched for
// at top level and inside call arguments, Blocks, If conditions and
// branches, Quotes and Unquotes; other constructs (Let/Var values, Def/Fn
// bodies, loops, Try, Match, arrays, dicts and the rest) are not searched,
// so a macro call inside them is left unexpanded.
func (e *Expander) Expand(program *ast.Program) {
	if len(e.Macros) == 0 {
		return // fast path: nothing to do when no macros are defined
	}
	for depth := 0; depth < e.MaxDepth; depth++ {
		changed := false
		program.Body.Exprs = e.expandExprs(program.Body.Exprs, &changed, 0)
		if !changed {
			return
		}
	}
	e.Bag.Add(diag.Diagnostic{Kind: diag.KindRecursionLimit, Message: "macro expansion exceeded max depth"})
}

func (e *Expander) expandExprs(exprs []ast.Node, changed *bool, depth int) []ast.Node {
	out := make([]ast.Node, len(exprs))
	for i, expr := range exprs {
		out[i] = e.expandNode(expr, changed, depth)
	}
	return out
}

func (e *Expander) expandNode(n ast.Node, changed *bool, depth int) ast.Node {
	if depth > e.MaxDepth {
		e.Bag.Add(diag.Diagnostic{Kind: diag.KindRecursionLimit, Message: "macro expansion recursion limit exceeded"})
		return n
	}
	switch v := n.(type) {
	case *ast.Call:
		if m, ok := e.Macros[v.Name]; ok {
			if len(v.Args) != len(m.Params) {
				rng := v.Range()
				e.Bag.Add(diag.Diagnostic{Kind: diag.KindArityMismatch, Message: "macro " + v.Name + " expects " + strconv.Itoa(len(m.Params)) + " argument(s)", Rng: &rng})
				return n
			}
			bindings := map[string]ast.Node{}
			for i, p := range m.Params {
				bindings[p] = v.Args[i]
			}
			*changed = true
			expanded := substitute(bodyOf(m.Body), bindings)
			return e.expandNode(expanded, changed, depth+1)
		}
		args := make([]ast.Node, len(v.Args))
		for i, a := range v.Args {
			args[i] = e.expandNode(a, changed, depth)
		}
		return &ast.Call{Base: baseOf(v), Name: v.Name, Args: args, Operator: v.Operator}
	case *ast.Block:
		return &ast.Block{Base: baseOf(v), Exprs: e.expandExprs(v.Exprs, changed, depth)}
	case *ast.If:
		branches := make([]ast.IfBranch, len(v.Branches))
		for i, br := range v.Branches {
			cond := br.Cond
			if cond != nil {
				cond = e.expandNode(cond, changed, depth)
			}
			branches[i] = ast.IfBranch{Cond: cond, Body: e.expandNode(br.Body, changed, depth)}
		}
		return &ast.If{Base: baseOf(v), Branches: branches}
	case *ast.Quote:
		return &ast.Quote{Base: baseOf(v), Block: e.expandNode(v.Block, changed, depth)}
	case *ast.Unquote:
		return &ast.Unquote{Base: baseOf(v), Inner: e.expandNode(v.Inner, changed, depth)}
	default:
		return n
	}
}

// bodyOf returns the single expression a macro body reduces to: most macro
// bodies are a single `quote: ...` expression (spec §4.4 example), but the
// body is parsed as a Block like any other, so a one-expression block
// unwraps transparently and a multi-expression block is returned as-is.
func bodyOf(body ast.Node) ast.Node {
	if b, ok := body.(*ast.Block); ok && len(b.Exprs) == 1 {
		return b.Exprs[0]
	}
	return body
}

// substitute implements the macro-parameter-scope substitution rules of
// spec §4.4: a free Ident(param) is replaced with its bound argument AST,
// and a Call(name, args) whose name is itself a bound param becomes a
// CallDynamic around the bound callable. A Quote(block) switches into
// quoteSubstitute for its body and is unwrapped — "the final expansion
// contains no Quote" — since substitute is only ever reached for a macro's
// own body template, never for an unrelated runtime quote expression
// elsewhere in the program (those are left alone by Expand's own traversal).
func substitute(n ast.Node, bindings map[string]ast.Node) ast.Node {
	switch v := n.(type) {
	case *ast.Quote:
		return quoteSubstitute(v.Block, bindings)
	case *ast.Ident:
		if repl, ok := bindings[v.Name]; ok {
			return repl
		}
		return v
	case *ast.Block:
		exprs := make([]ast.Node, len(v.Exprs))
		for i, e := range v.Exprs {
			exprs[i] = substitute(e, bindings)
		}
		return &ast.Block{Base: baseOf(v), Exprs: exprs}
	case *ast.Call:
		args := make([]ast.Node, len(v.Args))
		for i, a := range v.Args {
			args[i] = substitute(a, bindings)
		}
		if repl, ok := bindings[v.Name]; ok {
			return &ast.CallDynamic{Base: baseOf(v), Callable: repl, Args: args}
		}
		return &ast.Call{Base: baseOf(v), Name: v.Name, Args: args, Operator: v.Operator}
	case *ast.CallDynamic:
		args := make([]ast.Node, len(v.Args))
		for i, a := range v.Args {
			args[i] = substitute(a, bindings)
		}
		return &ast.CallDynamic{Base: baseOf(v), Callable: substitute(v.Callable, bindings), Args: args}
	case *ast.If:
		branches := make([]ast.IfBranch, len(v.Branches))
		for i, br := range v.Branches {
			cond := br.Cond
			if cond != nil {
				cond = substitute(cond, bindings)
			}
			branches[i] = ast.IfBranch{Cond: cond, Body: substitute(br.Body, bindings)}
		}
		return &ast.If{Base: baseOf(v), Branches: branches}
	case *ast.Def:
		inner := withoutShadowed(bindings, v.Params)
		return &ast.Def{Base: baseOf(v), Name: v.Name, Params: v.Params, Body: substitute(v.Body, inner)}
	case *ast.Fn:
		inner := withoutShadowed(bindings, v.Params)
		return &ast.Fn{Base: baseOf(v), Params: v.Params, Body: substitute(v.Body, inner)}
	default:
		return n
	}
}

// quoteSubstitute walks a quoted template without substituting free
// identifiers (spec §4.4: "identifiers in quoted code are not substituted"),
// splicing only Unquote holes (whose inner expression is resolved back in
// the macro parameter scope via substitute) and recursing into any nested
// Quote one level deep to support macros that generate macros (§3.1
// supplement) — a nested Quote is rebuilt, not unwrapped, since it is
// itself a runtime-evaluated AST value rather than the macro's own
// expansion template.
func quoteSubstitute(n ast.Node, bindings map[string]ast.Node) ast.Node {
	switch v := n.(type) {
	case *ast.Unquote:
		return substitute(v.Inner, bindings)
	case *ast.Quote:
		return &ast.Quote{Base: baseOf(v), Block: quoteSubstitute(v.Block, bindings)}
	case *ast.Block:
		exprs := make([]ast.Node, len(v.Exprs))
		for i, e := range v.Exprs {
			exprs[i] = quoteSubstitute(e, bindings)
		}
		return &ast.Block{Base: baseOf(v), Exprs: exprs}
	case *ast.Call:
		args := make([]ast.Node, len(v.Args))
		for i, a := range v.Args {
			args[i] = quoteSubstitute(a, bindings)
		}
		return &ast.Call{Base: baseOf(v), Name: v.Name, Args: args, Operator: v.Operator}
	case *ast.CallDynamic:
		args := make([]ast.Node, len(v.Args))
		for i, a := range v.Args {
			args[i] = quoteSubstitute(a, bindings)
		}
		return &ast.CallDynamic{Base: baseOf(v), Callable: quoteSubstitute(v.Callable, bindings), Args: args}
	case *ast.If:
		branches := make([]ast.IfBranch, len(v.Branches))
		for i, br := range v.Branches {
			cond := br.Cond
			if cond != nil {
				cond = quoteSubstitute(cond, bindings)
			}
			branches[i] = ast.IfBranch{Cond: cond, Body: quoteSubstitute(br.Body, bindings)}
		}
		return &ast.If{Base: baseOf(v), Branches: branches}
	case *ast.Def:
		inner := withoutShadowed(bindings, v.Params)
		return &ast.Def{Base: baseOf(v), Name: v.Name, Params: v.Params, Body: quoteSubstitute(v.Body, inner)}
	case *ast.Fn:
		inner := withoutShadowed(bindings, v.Params)
		return &ast.Fn{Base: baseOf(v), Params: v.Params, Body: quoteSubstitute(v.Body, inner)}
	default:
		return n
	}
}

// withoutShadowed returns a copy of bindings with any key also named by
// params removed, so a nested Def/Fn's own parameters shadow an
// outer macro parameter of the same name rather than being substituted
// (spec §4.4: "filtered substitution map with shadowed keys removed").
func withoutShadowed(bindings map[string]ast.Node, params []string) map[string]ast.Node {
	shadowed := false
	for _, p := range params {
		if _, ok := bindings[p]; ok {
			shadowed = true
			break
		}
	}
	if !shadowed {
		return bindings
	}
	out := make(map[string]ast.Node, len(bindings))
	for k, v := range bindings {
		out[k] = v
	}
	for _, p := range params {
		delete(out, p)
	}
	return out
}

func baseOf(n ast.Node) ast.Base { return ast.Base{Rng: n.Range()} }
