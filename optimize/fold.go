package optimize

import (
	"strings"

	"github.com/mqscript/mqscript/ast"
)

func applyStringOp(name, s string) string {
	switch name {
	case "downcase":
		return strings.ToLower(s)
	case "upcase":
		return strings.ToUpper(s)
	case "trim":
		return strings.TrimSpace(s)
	case "ltrim":
		return strings.TrimLeft(s, " \t\r\n")
	case "rtrim":
		return strings.TrimRight(s, " \t\r\n")
	default:
		return s
	}
}

// constTable maps a `let name = <literal>` binding visible at the current
// point in a Block to its folded literal value (spec §4.5 Pass 4: "For
// Ident(name) where name is in the constant table (populated by
// Let(name, literal)), replace with the stored literal"). It is threaded
// down into nested bodies (If branches, nested Blocks) so a constant from
// an enclosing scope still propagates, but a copy is taken per Block so a
// nested binding never leaks back out to its siblings' later scope.
type constTable map[string]*ast.Literal

func (c constTable) withLet(name string, lit *ast.Literal) constTable {
	next := make(constTable, len(c)+1)
	for k, v := range c {
		next[k] = v
	}
	if lit != nil {
		next[name] = lit
	} else {
		delete(next, name)
	}
	return next
}

// foldExprs constant-folds every Call(op, [literal, literal]) node, the way
// the optimizer's single folding rule handles both `2 + 3` and `add(2, 3)`
// identically since operators desugar to Call with Operator set
// (spec §4.5 Pass 4, and see DESIGN.md "operator desugaring"), and
// propagates `let`-bound literals to later sibling Ident references.
func foldExprs(exprs []ast.Node, consts constTable, changed *bool) []ast.Node {
	out := make([]ast.Node, len(exprs))
	for i, e := range exprs {
		folded := foldNode(e, consts, changed)
		out[i] = folded
		if let, ok := folded.(*ast.Let); ok {
			lit, _ := let.Value.(*ast.Literal)
			consts = consts.withLet(let.Name, lit)
		}
	}
	return out
}

func foldNode(n ast.Node, consts constTable, changed *bool) ast.Node {
	switch v := n.(type) {
	case *ast.Ident:
		if lit, ok := consts[v.Name]; ok {
			*changed = true
			return &ast.Literal{Base: v.Base, Kind: lit.Kind, Number: lit.Number, Str: lit.Str, Bool: lit.Bool}
		}
		return v
	case *ast.Let:
		return &ast.Let{Base: v.Base, Name: v.Name, Value: foldNode(v.Value, consts, changed)}
	case *ast.Call:
		args := make([]ast.Node, len(v.Args))
		for i, a := range v.Args {
			args[i] = foldNode(a, consts, changed)
		}
		folded := &ast.Call{Base: v.Base, Name: v.Name, Args: args, Operator: v.Operator}
		if lit, ok := tryFold(folded); ok {
			*changed = true
			return lit
		}
		return folded
	case *ast.Block:
		return &ast.Block{Base: v.Base, Exprs: foldExprs(v.Exprs, consts, changed)}
	case *ast.If:
		branches := make([]ast.IfBranch, len(v.Branches))
		for i, br := range v.Branches {
			cond := br.Cond
			if cond != nil {
				cond = foldNode(cond, consts, changed)
			}
			branches[i] = ast.IfBranch{Cond: cond, Body: foldNode(br.Body, consts, changed)}
		}
		return &ast.If{Base: v.Base, Branches: branches}
	case *ast.And:
		return &ast.And{Base: v.Base, L: foldNode(v.L, consts, changed), R: foldNode(v.R, consts, changed)}
	case *ast.Or:
		return &ast.Or{Base: v.Base, L: foldNode(v.L, consts, changed), R: foldNode(v.R, consts, changed)}
	case *ast.Paren:
		return &ast.Paren{Base: v.Base, Inner: foldNode(v.Inner, consts, changed)}
	case *ast.InterpolatedString:
		return foldInterpString(v, consts, changed)
	default:
		return n
	}
}

// tryFold evaluates call at compile time when every argument is a literal
// and the name is a folding-eligible builtin, returning the literal result.
func tryFold(call *ast.Call) (*ast.Literal, bool) {
	lits := make([]*ast.Literal, len(call.Args))
	for i, a := range call.Args {
		lit, ok := a.(*ast.Literal)
		if !ok {
			return nil, false
		}
		lits[i] = lit
	}
	switch call.Name {
	case "add":
		if len(lits) == 2 && lits[0].Kind == ast.LitString && lits[1].Kind == ast.LitString {
			return strLit(call, lits[0].Str+lits[1].Str), true
		}
		return foldArith(call, lits, func(a, b float64) float64 { return a + b })
	case "sub":
		return foldArith(call, lits, func(a, b float64) float64 { return a - b })
	case "mul":
		return foldArith(call, lits, func(a, b float64) float64 { return a * b })
	case "div":
		if len(lits) == 2 && lits[1].Kind == ast.LitNumber && lits[1].Number != 0 {
			return foldArith(call, lits, func(a, b float64) float64 { return a / b })
		}
		return nil, false
	case "mod":
		if len(lits) == 2 && lits[1].Kind == ast.LitNumber && lits[1].Number != 0 {
			return foldArith(call, lits, func(a, b float64) float64 { return float64(int64(a) % int64(b)) })
		}
		return nil, false
	case "neg":
		if len(lits) == 1 && lits[0].Kind == ast.LitNumber {
			return numLit(call, -lits[0].Number), true
		}
		return nil, false
	case "not":
		if len(lits) == 1 && lits[0].Kind == ast.LitBool {
			return boolLit(call, !lits[0].Bool), true
		}
		return nil, false
	case "repeat":
		if len(lits) == 2 && lits[0].Kind == ast.LitString && lits[1].Kind == ast.LitNumber {
			n := int(lits[1].Number)
			if n < 0 || n > 10000 {
				return nil, false
			}
			s := ""
			for i := 0; i < n; i++ {
				s += lits[0].Str
			}
			return strLit(call, s), true
		}
		return nil, false
	case "reverse":
		if len(lits) == 1 && lits[0].Kind == ast.LitString {
			r := []rune(lits[0].Str)
			for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
				r[i], r[j] = r[j], r[i]
			}
			return strLit(call, string(r)), true
		}
		return nil, false
	case "downcase", "upcase", "trim", "ltrim", "rtrim":
		if len(lits) == 1 && lits[0].Kind == ast.LitString {
			return strLit(call, applyStringOp(call.Name, lits[0].Str)), true
		}
		return nil, false
	default:
		return nil, false
	}
}

func foldArith(call *ast.Call, lits []*ast.Literal, f func(a, b float64) float64) (*ast.Literal, bool) {
	if len(lits) != 2 || lits[0].Kind != ast.LitNumber || lits[1].Kind != ast.LitNumber {
		return nil, false
	}
	return numLit(call, f(lits[0].Number, lits[1].Number)), true
}

func numLit(call *ast.Call, v float64) *ast.Literal {
	return &ast.Literal{Base: call.Base, Kind: ast.LitNumber, Number: v}
}

func strLit(call *ast.Call, v string) *ast.Literal {
	return &ast.Literal{Base: call.Base, Kind: ast.LitString, Str: v}
}

func boolLit(call *ast.Call, v bool) *ast.Literal {
	return &ast.Literal{Base: call.Base, Kind: ast.LitBool, Bool: v}
}

// foldInterpString constant-folds an interpolated string whose every
// segment resolves to a literal (no env-ref/self segments, and any
// expression segment folds to a Literal — including a bare identifier that
// resolves to a known constant) into a single string Literal (spec §3.1
// supplement: constant folding for interpolated strings).
func foldInterpString(s *ast.InterpolatedString, consts constTable, changed *bool) ast.Node {
	out := ""
	for _, seg := range s.Segments {
		switch seg.Kind {
		case ast.SegText:
			out += seg.Text
		case ast.SegExpr:
			folded := foldNode(seg.Expr, consts, changed)
			lit, ok := folded.(*ast.Literal)
			if !ok {
				return rebuildInterpString(s, consts, changed)
			}
			if lit.Kind == ast.LitString {
				out += lit.Str
			} else {
				out += lit.String()
			}
		default:
			return rebuildInterpString(s, consts, changed)
		}
	}
	*changed = true
	return &ast.Literal{Base: ast.Base{Rng: s.Range()}, Kind: ast.LitString, Str: out}
}

func rebuildInterpString(s *ast.InterpolatedString, consts constTable, changed *bool) ast.Node {
	segs := make([]ast.StringSegment, len(s.Segments))
	for i, seg := range s.Segments {
		if seg.Kind == ast.SegExpr {
			seg.Expr = foldNode(seg.Expr, consts, changed)
		}
		segs[i] = seg
	}
	return &ast.InterpolatedString{Base: s.Base, Segments: segs}
}
