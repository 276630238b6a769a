// Package types implements the constraint-based type inferencer (spec
// §4.7): generate a constraint per expression, unify them with a
// union-find structure with path compression, and resolve builtin
// overloads against a concurrency-safe registry grounded on the teacher's
// sync.RWMutex-guarded decorator Registry (core/types/registry.go), here
// repurposed to register type signatures instead of decorator handlers.
package types

import (
	"fmt"
	"sync"

	"github.com/mqscript/mqscript/ast"
	"github.com/mqscript/mqscript/diag"
)

// Kind is a primitive or structural type tag.
type Kind int

const (
	KUnknown Kind = iota
	KNone
	KNumber
	KString
	KBool
	KArray
	KDict
	KMarkdown
	KFunction
	KVar // unification type variable
)

// Type is either a concrete Kind or, when Kind == KVar, a reference to a
// still-unresolved inference variable identified by Var.
type Type struct {
	Kind Kind
	Var  int
	Elem *Type // KArray's element type, if known
}

func (t Type) String() string {
	switch t.Kind {
	case KVar:
		return fmt.Sprintf("t%d", t.Var)
	case KArray:
		if t.Elem != nil {
			return "Array<" + t.Elem.String() + ">"
		}
		return "Array"
	default:
		return kindName(t.Kind)
	}
}

func kindName(k Kind) string {
	switch k {
	case KNone:
		return "None"
	case KNumber:
		return "Number"
	case KString:
		return "String"
	case KBool:
		return "Bool"
	case KArray:
		return "Array"
	case KDict:
		return "Dict"
	case KMarkdown:
		return "Markdown"
	case KFunction:
		return "Function"
	default:
		return "Unknown"
	}
}

// Signature is one overload of a registered function: parameter types
// plus a return type.
type Signature struct {
	Params []Type
	Return Type
}

// Registry holds builtin overload signatures, guarded the same way the
// teacher's decorator Registry guards concurrent reads/writes.
type Registry struct {
	mu   sync.RWMutex
	sigs map[string][]Signature
}

// NewRegistry creates a Registry pre-populated with arithmetic, string, and
// comparison builtin overloads.
func NewRegistry() *Registry {
	r := &Registry{sigs: map[string][]Signature{}}
	num2 := Signature{Params: []Type{{Kind: KNumber}, {Kind: KNumber}}, Return: Type{Kind: KNumber}}
	for _, name := range []string{"sub", "mul", "div", "mod", "shl", "shr"} {
		r.Register(name, num2)
	}
	r.Register("add", num2)
	r.Register("add", Signature{Params: []Type{{Kind: KString}, {Kind: KString}}, Return: Type{Kind: KString}})
	for _, name := range []string{"eq", "neq", "lt", "lte", "gt", "gte"} {
		r.Register(name, Signature{Params: []Type{{Kind: KNumber}, {Kind: KNumber}}, Return: Type{Kind: KBool}})
	}
	r.Register("neg", Signature{Params: []Type{{Kind: KNumber}}, Return: Type{Kind: KNumber}})
	r.Register("not", Signature{Params: []Type{{Kind: KBool}}, Return: Type{Kind: KBool}})
	for _, name := range []string{"downcase", "upcase", "trim", "ltrim", "rtrim", "reverse"} {
		r.Register(name, Signature{Params: []Type{{Kind: KString}}, Return: Type{Kind: KString}})
	}
	r.Register("repeat", Signature{Params: []Type{{Kind: KString}, {Kind: KNumber}}, Return: Type{Kind: KString}})
	r.Register("split", Signature{Params: []Type{{Kind: KString}, {Kind: KString}}, Return: Type{Kind: KArray}})
	r.Register("join", Signature{Params: []Type{{Kind: KArray}, {Kind: KString}}, Return: Type{Kind: KString}})
	for _, name := range []string{"to_number", "to_string", "to_bool"} {
		ret := map[string]Kind{"to_number": KNumber, "to_string": KString, "to_bool": KBool}[name]
		r.Register(name, Signature{Params: []Type{{Kind: KVar}}, Return: Type{Kind: ret}})
	}
	return r
}

// Register adds sig as one more overload for name.
func (r *Registry) Register(name string, sig Signature) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sigs[name] = append(r.sigs[name], sig)
}

// Resolve returns the first overload of name whose parameter types match
// argTypes. An argument that is still an unresolved type variable matches
// any parameter type, so such a call resolves to the first overload of the
// right arity whose other parameters match; resolution is not deferred.
func (r *Registry) Resolve(name string, argTypes []Type) (Signature, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, sig := range r.sigs[name] {
		if signatureMatches(sig, argTypes) {
			return sig, true
		}
	}
	return Signature{}, false
}

func signatureMatches(sig Signature, args []Type) bool {
	if len(sig.Params) != len(args) {
		return false
	}
	for i, p := range sig.Params {
		if args[i].Kind == KVar || p.Kind == KVar {
			continue // deferred, or a declared wildcard param accepting any argument type
		}
		if p.Kind != args[i].Kind {
			return false
		}
	}
	return true
}

// Inferencer assigns a Type to every AST node reachable from a Program,
// generating constraints and unifying them via a union-find store.
type Inferencer struct {
	Registry *Registry
	uf       *unionFind
	nodeVar  map[ast.Node]int
	bag      *diag.Bag
	fnSigs   map[string]Signature // locally inferred Def signatures
}

// Infer collects the signatures of top-level Defs, then walks program once,
// generating and unifying constraints and resolving each call's overload as
// the call is reached; there is no separate unification or overload pass
// afterwards. It returns the per-node Type assignments alongside any
// UNIFICATION_ERROR / NO_MATCHING_OVERLOAD diagnostics raised along the way.
func Infer(program *ast.Program, registry *Registry) (map[ast.Node]Type, *diag.Bag) {
	inf := &Inferencer{Registry: registry, uf: newUnionFind(), nodeVar: map[ast.Node]int{}, bag: diag.NewBag(), fnSigs: map[string]Signature{}}
	inf.collectDefSignatures(program.Body)
	inf.generate(program.Body, nil)
	result := map[ast.Node]Type{}
	for n, v := range inf.nodeVar {
		result[n] = inf.uf.resolve(v)
	}
	return result, inf.bag
}

func (inf *Inferencer) collectDefSignatures(b *ast.Block) {
	for _, e := range b.Exprs {
		if d, ok := e.(*ast.Def); ok {
			params := make([]Type, len(d.Params))
			for i := range params {
				params[i] = inf.fresh()
			}
			inf.fnSigs[d.Name] = Signature{Params: params, Return: inf.fresh()}
		}
	}
}

func (inf *Inferencer) fresh() Type {
	return Type{Kind: KVar, Var: inf.uf.newVar()}
}

// typeOf returns the Type assigned to n, generating it if this is the
// first time n has been visited.
func (inf *Inferencer) typeOf(n ast.Node) Type {
	if v, ok := inf.nodeVar[n]; ok {
		return inf.uf.resolve(v)
	}
	return inf.generate(n, nil)
}

func (inf *Inferencer) assign(n ast.Node, t Type) Type {
	v := inf.uf.newVar()
	inf.uf.bind(v, t)
	inf.nodeVar[n] = v
	return inf.uf.resolve(v)
}

// generate produces (and unifies) a Type for n, recursing into its
// sub-expressions first (spec §4.7 constraint generation). self is the
// piped-input type flowing in from an enclosing Block's prior sibling (spec
// §4.6 pipe semantics), nil when there is none; it is threaded through
// unchanged except across a Block's own sibling expressions, mirroring how
// eval.evalBlock threads a RuntimeValue self through expressions.
func (inf *Inferencer) generate(n ast.Node, self *Type) Type {
	switch v := n.(type) {
	case *ast.Literal:
		switch v.Kind {
		case ast.LitNumber:
			return inf.assign(n, Type{Kind: KNumber})
		case ast.LitString:
			return inf.assign(n, Type{Kind: KString})
		case ast.LitBool:
			return inf.assign(n, Type{Kind: KBool})
		default:
			return inf.assign(n, Type{Kind: KNone})
		}
	case *ast.Array:
		elemType := Type{Kind: KUnknown}
		for _, e := range v.Elems {
			elemType = inf.generate(e, self)
		}
		return inf.assign(n, Type{Kind: KArray, Elem: &elemType})
	case *ast.Dict:
		for _, e := range v.Entries {
			inf.generate(e.Value, self)
		}
		return inf.assign(n, Type{Kind: KDict})
	case *ast.Paren:
		return inf.assign(n, inf.generate(v.Inner, self))
	case *ast.And, *ast.Or:
		return inf.assign(n, Type{Kind: KBool})
	case *ast.Call:
		return inf.generateCall(v, self)
	case *ast.If:
		var last Type
		for _, br := range v.Branches {
			if br.Cond != nil {
				inf.generate(br.Cond, self)
			}
			last = inf.generate(br.Body, self)
		}
		return inf.assign(n, last)
	case *ast.Block:
		cur := self
		t := Type{Kind: KNone}
		for _, e := range v.Exprs {
			t = inf.generate(e, cur)
			cur = &t
		}
		return inf.assign(n, t)
	default:
		return inf.assign(n, inf.fresh())
	}
}

// generateCall resolves call's overload, optionally prepending self (the
// piped-input type) as an implicit first argument when the call's own
// argument types don't match any overload on their own (spec §4.7 Pass 3):
// "optionally prepending the piped-input type as an implicit first
// argument, choosing whichever prefixing produces a valid overload match."
func (inf *Inferencer) generateCall(call *ast.Call, self *Type) Type {
	argTypes := make([]Type, len(call.Args))
	for i, a := range call.Args {
		argTypes[i] = inf.generate(a, self)
	}
	if sig, ok := inf.fnSigs[call.Name]; ok {
		params := sig.Params
		args := argTypes
		if self != nil && len(call.Args)+1 == len(params) {
			args = append([]Type{*self}, argTypes...)
		}
		for i, p := range params {
			if i < len(args) {
				inf.unify(p, args[i], call)
			}
		}
		return inf.assign(call, sig.Return)
	}
	if inf.Registry != nil {
		if sig, ok := inf.Registry.Resolve(call.Name, argTypes); ok {
			return inf.assign(call, sig.Return)
		}
		if self != nil {
			if sig, ok := inf.Registry.Resolve(call.Name, append([]Type{*self}, argTypes...)); ok {
				return inf.assign(call, sig.Return)
			}
		}
		rng := call.Range()
		inf.bag.Add(diag.Diagnostic{Kind: diag.KindNoOverload, Message: "no matching overload for " + call.Name, Rng: &rng})
	}
	return inf.assign(call, inf.fresh())
}

// unify merges a and b's type-variable classes, recording a
// UNIFICATION_ERROR diagnostic on a concrete-kind mismatch (spec §4.7).
func (inf *Inferencer) unify(a, b Type, at ast.Node) {
	if a.Kind == KVar {
		inf.uf.bindVar(a.Var, b)
		return
	}
	if b.Kind == KVar {
		inf.uf.bindVar(b.Var, a)
		return
	}
	if a.Kind != b.Kind {
		rng := at.Range()
		inf.bag.Add(diag.Diagnostic{Kind: diag.KindUnificationError, Message: fmt.Sprintf("cannot unify %s with %s", a, b), Rng: &rng})
	}
}
