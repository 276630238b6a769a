// Package hir builds the scope tree over an AST and resolves every
// reference to its defining binding (spec §3, §5). It is grounded on the
// teacher's Tiger Style contract-assertion discipline (core/invariant) for
// internal consistency checks, and on github.com/samber/lo for the
// collection helpers used to compute unused-function diagnostics.
package hir

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/mqscript/mqscript/ast"
	"github.com/mqscript/mqscript/diag"
)

// ScopeKind tags what introduced a Scope.
type ScopeKind int

const (
	ScopeModule ScopeKind = iota
	ScopeBlock
	ScopeFunction
	ScopeLoop
	ScopeMatchArm
)

// Symbol is one named binding (let/var/def/fn parameter/foreach variable)
// introduced within a Scope.
type Symbol struct {
	Name     string
	Node     ast.Node
	Mutable  bool
	Function bool
	Used     bool
}

// Scope is one lexical node in the scope tree.
type Scope struct {
	Kind    ScopeKind
	Parent  *Scope
	Symbols map[string]*Symbol
	Order   []string
}

func newScope(kind ScopeKind, parent *Scope) *Scope {
	return &Scope{Kind: kind, Parent: parent, Symbols: map[string]*Symbol{}}
}

func (s *Scope) define(sym *Symbol) {
	assert(sym.Name != "", "hir: defining a symbol with an empty name")
	if _, exists := s.Symbols[sym.Name]; !exists {
		s.Order = append(s.Order, sym.Name)
	}
	s.Symbols[sym.Name] = sym
}

// resolve walks outward through parent scopes; the innermost definition
// wins (spec §5 shadowing rule — "earlier/inner definition wins").
func (s *Scope) resolve(name string) *Symbol {
	for sc := s; sc != nil; sc = sc.Parent {
		if sym, ok := sc.Symbols[name]; ok {
			return sym
		}
	}
	return nil
}

func (s *Scope) names() []string {
	var out []string
	for sc := s; sc != nil; sc = sc.Parent {
		out = append(out, sc.Order...)
	}
	return out
}

func assert(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(fmt.Sprintf("hir invariant violation: "+format, args...))
	}
}

// Result is the outcome of resolving a Program: its root scope, the
// reference→definition map, and any diagnostics raised along the way.
type Result struct {
	Root       *Scope
	References map[ast.Node]*Symbol
	Bag        *diag.Bag
}

// Resolve builds the scope tree for program and resolves every Ident
// reference, recording unresolved-reference and unused-function
// diagnostics into a fresh diag.Bag.
func Resolve(program *ast.Program) *Result {
	r := &Result{Root: newScope(ScopeModule, nil), References: map[ast.Node]*Symbol{}, Bag: diag.NewBag()}
	walker{r}.block(program.Body, r.Root)
	r.reportUnused(r.Root)
	return r
}

type walker struct{ r *Result }

func (w walker) block(b *ast.Block, scope *Scope) {
	for _, expr := range b.Exprs {
		w.node(expr, scope)
	}
}

// node walks n, defining new bindings into scope and resolving references.
// It returns nothing: HIR resolution annotates w.r, it does not rewrite the
// tree (that's left to package macro and package optimize).
func (w walker) node(n ast.Node, scope *Scope) {
	switch v := n.(type) {
	case *ast.Let:
		w.node(v.Value, scope)
		scope.define(&Symbol{Name: v.Name, Node: v})
	case *ast.Var:
		w.node(v.Value, scope)
		scope.define(&Symbol{Name: v.Name, Node: v, Mutable: true})
	case *ast.Assign:
		w.node(v.Value, scope)
		w.resolveName(v.Name, v, scope)
	case *ast.Ident:
		w.resolveName(v.Name, v, scope)
	case *ast.Def:
		scope.define(&Symbol{Name: v.Name, Node: v, Function: true})
		fnScope := newScope(ScopeFunction, scope)
		for _, p := range v.Params {
			fnScope.define(&Symbol{Name: p, Node: v})
		}
		w.block(v.Body.(*ast.Block), fnScope)
	case *ast.Fn:
		fnScope := newScope(ScopeFunction, scope)
		for _, p := range v.Params {
			fnScope.define(&Symbol{Name: p, Node: v})
		}
		w.block(v.Body.(*ast.Block), fnScope)
	case *ast.Call:
		if sym := scope.resolve(v.Name); sym != nil {
			sym.Used = true
			w.r.References[v] = sym
		}
		for _, a := range v.Args {
			w.node(a, scope)
		}
	case *ast.CallDynamic:
		w.node(v.Callable, scope)
		for _, a := range v.Args {
			w.node(a, scope)
		}
	case *ast.If:
		for _, br := range v.Branches {
			if br.Cond != nil {
				w.node(br.Cond, scope)
			}
			w.block(br.Body.(*ast.Block), newScope(ScopeBlock, scope))
		}
	case *ast.While:
		w.node(v.Cond, scope)
		w.block(v.Body.(*ast.Block), newScope(ScopeLoop, scope))
	case *ast.Until:
		w.node(v.Cond, scope)
		w.block(v.Body.(*ast.Block), newScope(ScopeLoop, scope))
	case *ast.Foreach:
		w.node(v.Iter, scope)
		loopScope := newScope(ScopeLoop, scope)
		loopScope.define(&Symbol{Name: v.Var, Node: v})
		w.block(v.Body.(*ast.Block), loopScope)
	case *ast.Try:
		w.node(v.TryExpr, newScope(ScopeBlock, scope))
		w.node(v.CatchExpr, newScope(ScopeBlock, scope))
	case *ast.Match:
		w.node(v.Value, scope)
		for _, arm := range v.Arms {
			armScope := newScope(ScopeMatchArm, scope)
			definePattern(arm.Pattern, armScope)
			if arm.Guard != nil {
				w.node(arm.Guard, armScope)
			}
			w.block(arm.Body.(*ast.Block), armScope)
		}
	case *ast.Module:
		modScope := newScope(ScopeModule, scope)
		w.block(v.Body.(*ast.Block), modScope)
	case *ast.Macro:
		scope.define(&Symbol{Name: v.Name, Node: v, Function: true})
	case *ast.Quote:
		w.node(v.Block, scope)
	case *ast.Unquote:
		w.node(v.Inner, scope)
	case *ast.And:
		w.node(v.L, scope)
		w.node(v.R, scope)
	case *ast.Or:
		w.node(v.L, scope)
		w.node(v.R, scope)
	case *ast.Paren:
		w.node(v.Inner, scope)
	case *ast.Array:
		for _, e := range v.Elems {
			w.node(e, scope)
		}
	case *ast.Dict:
		for _, e := range v.Entries {
			w.node(e.Value, scope)
		}
	case *ast.InterpolatedString:
		for _, seg := range v.Segments {
			if seg.Kind == ast.SegExpr && seg.Expr != nil {
				w.node(seg.Expr, scope)
			}
		}
	case *ast.Block:
		w.block(v, newScope(ScopeBlock, scope))
	default:
		// Literal, Selector, EnvRef, Self, Nodes, Break, Continue,
		// Include, Import: no sub-expressions or bindings to resolve.
	}
}

func (w walker) resolveName(name string, n ast.Node, scope *Scope) {
	sym := scope.resolve(name)
	if sym == nil {
		suggestion := diag.Suggest(name, scope.names())
		rng := n.Range()
		w.r.Bag.Add(diag.Diagnostic{
			Kind: diag.KindUnresolvedRef, Message: "undefined reference " + name,
			Suggestion: suggestion, Rng: &rng,
		})
		return
	}
	sym.Used = true
	w.r.References[n] = sym
}

func definePattern(pat ast.Pattern, scope *Scope) {
	switch pat.Kind {
	case ast.PatIdent:
		scope.define(&Symbol{Name: pat.Ident})
	case ast.PatArray:
		for _, ep := range pat.Elems {
			definePattern(ep, scope)
		}
		if pat.Rest != "" {
			scope.define(&Symbol{Name: pat.Rest})
		}
	case ast.PatDict:
		for _, fp := range pat.Fields {
			definePattern(fp, scope)
		}
	}
}

// reportUnused adds a diagnostic for every module-level function defined in
// scope but never called, using lo.Filter to collect the unused names
// before emitting diagnostics for them.
func (r *Result) reportUnused(scope *Scope) {
	unused := lo.Filter(scope.Order, func(name string, _ int) bool {
		sym := scope.Symbols[name]
		return sym.Function && !sym.Used
	})
	for _, name := range unused {
		sym := scope.Symbols[name]
		rng := sym.Node.Range()
		r.Bag.Add(diag.Diagnostic{Kind: diag.KindUnresolvedRef, Message: "function " + name + " is never called", Rng: &rng})
	}
}
