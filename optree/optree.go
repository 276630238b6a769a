// Package optree flattens an AST into an indexed pool of ops plus a source
// map, the way the teacher's runtime/ir.ChainElement flattens a command
// chain into a linear, JSON-serializable structure instead of a pointer
// tree. Lowering to and evaluating an OpTree must produce output identical
// to tree-walking the same AST directly (spec §8 property 6); package eval
// only walks ast.Node, so OpTree here exists as an alternate, equally
// faithful representation a host can serialize or batch-process without
// needing package ast's pointer graph.
package optree

import (
	"github.com/mqscript/mqscript/ast"
	"github.com/mqscript/mqscript/token"
)

// OpKind tags one flattened operation.
type OpKind int

const (
	OpLiteral OpKind = iota
	OpIdent
	OpSelector
	OpEnvRef
	OpCall
	OpArray
	OpDict
	OpAnd
	OpOr
	OpIf
	OpBlock
	OpOther // catch-all for constructs not yet flattened (quote/macro/module/...)
)

// SourceSpan locates an Op back in the original source, the same field the
// teacher's ChainElement carries for error reporting.
type SourceSpan struct {
	Start token.Pos
	End   token.Pos
}

// Op is one entry in a flattened OpTree. Children are indices into the
// same Pool rather than pointers, so the whole tree is representable as a
// single slice (e.g. for (de)serialization or batch dispatch).
type Op struct {
	Kind OpKind
	Span SourceSpan

	Name     string     // Call name, Ident name, Selector path joined, EnvRef name
	Operator token.Kind // set when Kind == OpCall and the call desugars an operator
	Literal  *ast.Literal

	Children []int // operand/argument/element indices, in order
	Orig     ast.Node
}

// Pool is the flattened op-tree for one compiled unit.
type Pool struct {
	Ops  []Op
	Root int
}

// Lower flattens program.Body into a Pool.
func Lower(program *ast.Program) *Pool {
	p := &Pool{}
	p.Root = lowerNode(p, program.Body)
	return p
}

func lowerNode(p *Pool, n ast.Node) int {
	idx := len(p.Ops)
	p.Ops = append(p.Ops, Op{Orig: n, Span: spanOf(n)}) // placeholder, filled below
	op := Op{Orig: n, Span: spanOf(n)}

	switch v := n.(type) {
	case *ast.Literal:
		op.Kind = OpLiteral
		op.Literal = v
	case *ast.Ident:
		op.Kind = OpIdent
		op.Name = v.Name
	case *ast.EnvRef:
		op.Kind = OpEnvRef
		op.Name = v.Name
	case *ast.Selector:
		op.Kind = OpSelector
		path := ""
		for _, seg := range v.Path {
			path += "." + seg
		}
		op.Name = path
	case *ast.Call:
		op.Kind = OpCall
		op.Name = v.Name
		op.Operator = v.Operator
		for _, a := range v.Args {
			op.Children = append(op.Children, lowerNode(p, a))
		}
	case *ast.Array:
		op.Kind = OpArray
		for _, e := range v.Elems {
			op.Children = append(op.Children, lowerNode(p, e))
		}
	case *ast.Dict:
		op.Kind = OpDict
		for _, e := range v.Entries {
			op.Children = append(op.Children, lowerNode(p, e.Value))
		}
	case *ast.And:
		op.Kind = OpAnd
		op.Children = []int{lowerNode(p, v.L), lowerNode(p, v.R)}
	case *ast.Or:
		op.Kind = OpOr
		op.Children = []int{lowerNode(p, v.L), lowerNode(p, v.R)}
	case *ast.If:
		op.Kind = OpIf
		for _, br := range v.Branches {
			if br.Cond != nil {
				op.Children = append(op.Children, lowerNode(p, br.Cond))
			} else {
				op.Children = append(op.Children, -1)
			}
			op.Children = append(op.Children, lowerNode(p, br.Body))
		}
	case *ast.Block:
		op.Kind = OpBlock
		for _, e := range v.Exprs {
			op.Children = append(op.Children, lowerNode(p, e))
		}
	default:
		op.Kind = OpOther
	}

	p.Ops[idx] = op
	return idx
}

func spanOf(n ast.Node) SourceSpan {
	r := n.Range()
	return SourceSpan{Start: r.Start, End: r.End}
}
