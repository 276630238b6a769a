// Package optimize runs the constant-folding, dead-let-elimination, and
// inlining passes over an already macro-expanded AST (spec §4.5). Passes
// run to a fixed point within one Run call (spec §8 property: idempotence
// within one pass suite — running the suite again on its own output is a
// no-op).
package optimize

import "github.com/mqscript/mqscript/ast"

// Config tunes the optimizer's heuristics.
type Config struct {
	InlineLineThreshold int // max body size (in expressions) eligible for inlining
}

// Option configures a Config.
type Option func(*Config)

// WithInlineLineThreshold overrides the default inline-eligibility size (5).
func WithInlineLineThreshold(n int) Option {
	return func(c *Config) { c.InlineLineThreshold = n }
}

func defaultConfig() Config { return Config{InlineLineThreshold: 5} }

// Run applies the full pass suite to program.Body in place, iterating until
// a pass produces no further change.
func Run(program *ast.Program, opts ...Option) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	for {
		changed := false
		defs := collectDefs(program.Body)
		program.Body.Exprs = inlinePass(program.Body.Exprs, defs, cfg, &changed)
		program.Body.Exprs = deadLetPass(program.Body.Exprs, &changed)
		program.Body.Exprs = foldExprs(program.Body.Exprs, nil, &changed)
		if !changed {
			return
		}
	}
}

// collectDefs gathers every top-level function definition by name;
// isInlineCandidate then admits only bodies of at most InlineLineThreshold
// expressions that do not call themselves. Whether a function is called
// inside a conditional is not checked.
func collectDefs(b *ast.Block) map[string]*ast.Def {
	defs := map[string]*ast.Def{}
	for _, e := range b.Exprs {
		if d, ok := e.(*ast.Def); ok {
			defs[d.Name] = d
		}
	}
	return defs
}

func isInlineCandidate(d *ast.Def, cfg Config) bool {
	body, ok := d.Body.(*ast.Block)
	if !ok || len(body.Exprs) > cfg.InlineLineThreshold {
		return false
	}
	return !callsName(body, d.Name)
}

func callsName(n ast.Node, name string) bool {
	found := false
	walk(n, func(c ast.Node) {
		if call, ok := c.(*ast.Call); ok && call.Name == name {
			found = true
		}
	})
	return found
}

// inlinePass replaces calls to small, non-recursive functions with their
// bodies, substituting parameters for arguments; calls inside If
// conditions and branches are inlined too.
func inlinePass(exprs []ast.Node, defs map[string]*ast.Def, cfg Config, changed *bool) []ast.Node {
	out := make([]ast.Node, len(exprs))
	for i, e := range exprs {
		out[i] = inlineNode(e, defs, cfg, changed)
	}
	return out
}

func inlineNode(n ast.Node, defs map[string]*ast.Def, cfg Config, changed *bool) ast.Node {
	switch v := n.(type) {
	case *ast.Call:
		args := make([]ast.Node, len(v.Args))
		for i, a := range v.Args {
			args[i] = inlineNode(a, defs, cfg, changed)
		}
		if v.Operator == 0 {
			if d, ok := defs[v.Name]; ok && isInlineCandidate(d, cfg) && len(d.Params) == len(args) {
				bindings := map[string]ast.Node{}
				for i, p := range d.Params {
					bindings[p] = args[i]
				}
				*changed = true
				return substituteParams(d.Body, bindings)
			}
		}
		return &ast.Call{Base: v.Base, Name: v.Name, Args: args, Operator: v.Operator}
	case *ast.Block:
		return &ast.Block{Base: v.Base, Exprs: inlinePass(v.Exprs, defs, cfg, changed)}
	case *ast.If:
		branches := make([]ast.IfBranch, len(v.Branches))
		for i, br := range v.Branches {
			cond := br.Cond
			if cond != nil {
				cond = inlineNode(cond, defs, cfg, changed)
			}
			branches[i] = ast.IfBranch{Cond: cond, Body: inlineNode(br.Body, defs, cfg, changed)}
		}
		return &ast.If{Base: v.Base, Branches: branches}
	default:
		return n
	}
}

func substituteParams(n ast.Node, bindings map[string]ast.Node) ast.Node {
	switch v := n.(type) {
	case *ast.Ident:
		if repl, ok := bindings[v.Name]; ok {
			return repl
		}
		return v
	case *ast.Block:
		exprs := make([]ast.Node, len(v.Exprs))
		for i, e := range v.Exprs {
			exprs[i] = substituteParams(e, bindings)
		}
		return &ast.Block{Base: v.Base, Exprs: exprs}
	case *ast.Call:
		args := make([]ast.Node, len(v.Args))
		for i, a := range v.Args {
			args[i] = substituteParams(a, bindings)
		}
		return &ast.Call{Base: v.Base, Name: v.Name, Args: args, Operator: v.Operator}
	default:
		return n
	}
}

// deadLetPass drops a top-level `let name = ...` whose name is never
// referenced by any later sibling expression (spec §4.5 Pass 2). This is a
// conservative, single-scope check: a let shadowed or used only inside a
// nested function body is left alone rather than risk a false removal.
func deadLetPass(exprs []ast.Node, changed *bool) []ast.Node {
	out := exprs[:0:0]
	for i, e := range exprs {
		if let, ok := e.(*ast.Let); ok {
			used := false
			for _, rest := range exprs[i+1:] {
				if usesName(rest, let.Name) {
					used = true
					break
				}
			}
			if !used {
				*changed = true
				continue
			}
		}
		out = append(out, e)
	}
	return out
}

func usesName(n ast.Node, name string) bool {
	found := false
	walk(n, func(c ast.Node) {
		if id, ok := c.(*ast.Ident); ok && id.Name == name {
			found = true
		}
	})
	return found
}

// walk visits n and every descendant reachable through the node kinds the
// optimizer and its helper passes care about, calling visit on each.
func walk(n ast.Node, visit func(ast.Node)) {
	if n == nil {
		return
	}
	visit(n)
	switch v := n.(type) {
	case *ast.Block:
		for _, e := range v.Exprs {
			walk(e, visit)
		}
	case *ast.Call:
		for _, a := range v.Args {
			walk(a, visit)
		}
	case *ast.CallDynamic:
		walk(v.Callable, visit)
		for _, a := range v.Args {
			walk(a, visit)
		}
	case *ast.If:
		for _, br := range v.Branches {
			if br.Cond != nil {
				walk(br.Cond, visit)
			}
			walk(br.Body, visit)
		}
	case *ast.While:
		walk(v.Cond, visit)
		walk(v.Body, visit)
	case *ast.Until:
		walk(v.Cond, visit)
		walk(v.Body, visit)
	case *ast.Foreach:
		walk(v.Iter, visit)
		walk(v.Body, visit)
	case *ast.Let:
		walk(v.Value, visit)
	case *ast.Var:
		walk(v.Value, visit)
	case *ast.Assign:
		walk(v.Value, visit)
	case *ast.Def:
		walk(v.Body, visit)
	case *ast.Fn:
		walk(v.Body, visit)
	case *ast.And:
		walk(v.L, visit)
		walk(v.R, visit)
	case *ast.Or:
		walk(v.L, visit)
		walk(v.R, visit)
	case *ast.Paren:
		walk(v.Inner, visit)
	case *ast.Array:
		for _, e := range v.Elems {
			walk(e, visit)
		}
	case *ast.Dict:
		for _, e := range v.Entries {
			walk(e.Value, visit)
		}
	case *ast.Try:
		walk(v.TryExpr, visit)
		walk(v.CatchExpr, visit)
	case *ast.Match:
		walk(v.Value, visit)
		for _, arm := range v.Arms {
			if arm.Guard != nil {
				walk(arm.Guard, visit)
			}
			walk(arm.Body, visit)
		}
	case *ast.InterpolatedString:
		for _, seg := range v.Segments {
			if seg.Expr != nil {
				walk(seg.Expr, visit)
			}
		}
	}
}
