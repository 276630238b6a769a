package eval

import (
	"fmt"
	"os"

	"github.com/mqscript/mqscript/ast"
	"github.com/mqscript/mqscript/diag"
	"github.com/mqscript/mqscript/mdvalue"
)

// signal is a non-error control-flow escape (break/continue) threaded back
// up through Eval via the error return, the way the teacher's command
// executors use sentinel errors for early-exit rather than panic/recover.
type signal struct{ kind string }

func (s signal) Error() string { return "unhandled " + s.kind }

var breakSignal = signal{"break"}
var continueSignal = signal{"continue"}

// RuntimeError wraps a diag.Diagnostic raised during evaluation, catchable
// by Try/Catch (spec §7: runtime errors propagate as Go errors, never
// Break/Continue, which Try must not intercept).
type RuntimeError struct{ Diag diag.Diagnostic }

func (e *RuntimeError) Error() string { return e.Diag.Error() }

func runtimeErrf(kind diag.Kind, format string, args ...interface{}) error {
	return &RuntimeError{Diag: diag.Diagnostic{Kind: kind, Message: fmt.Sprintf(format, args...)}}
}

// Resolver loads another module's source by path for include/import (spec
// §1: the concrete filesystem loader is a host-supplied collaborator, not
// part of this package).
type Resolver interface {
	Resolve(path string) (*ast.Program, error)
}

// Evaluator walks an AST against an Environment, producing RuntimeValues.
type Evaluator struct {
	Resolver       Resolver
	MaxCallDepth   int
	MaxLoopIters   int
	builtins       map[string]builtinSpec
	callDepth      int
}

// New creates an Evaluator with the builtin table registered.
func New(resolver Resolver) *Evaluator {
	e := &Evaluator{Resolver: resolver, MaxCallDepth: 1000, MaxLoopIters: 1_000_000}
	e.builtins = builtinTable()
	return e
}

// Caller is passed to NativeFunc implementations so a builtin can recurse
// back into the evaluator (e.g. a higher-order `map`-like builtin) or read
// the ambient piped value.
type Caller struct {
	Eval *Evaluator
	Env  *Environment
	Self RuntimeValue
}

// Call invokes a user function value with args, honoring the call-depth
// limit (spec §5: exceeding it raises RECURSION_LIMIT rather than
// overflowing the Go stack uncontrolled).
func (c *Caller) Call(fn *FunctionValue, args []RuntimeValue) (RuntimeValue, error) {
	return c.Eval.callFunction(fn, args, c.Env)
}

// Run evaluates program.Body against env with self as the initial piped
// value (often None for a top-level program with no input document).
func (e *Evaluator) Run(program *ast.Program, env *Environment, self RuntimeValue) (RuntimeValue, error) {
	return e.evalBlock(program.Body, env, self)
}

// Eval evaluates a single node.
func (e *Evaluator) Eval(n ast.Node, env *Environment, self RuntimeValue) (RuntimeValue, error) {
	switch node := n.(type) {
	case *ast.Literal:
		return literalValue(node), nil
	case *ast.Ident:
		if v, ok := env.Lookup(node.Name); ok {
			return v, nil
		}
		if fn, ok := env.LookupFunc(node.Name); ok {
			return fn, nil
		}
		suggestion := diag.Suggest(node.Name, env.Names())
		rng := node.Range()
		d := diag.Diagnostic{Kind: diag.KindUnresolvedRef, Message: "undefined reference " + node.Name, Suggestion: suggestion, Rng: &rng}
		return None, &RuntimeError{Diag: d}
	case *ast.EnvRef:
		return StringValue(os.Getenv(node.Name)), nil
	case *ast.Selector:
		return e.evalSelector(node, self)
	case *ast.Self:
		if self == nil {
			return None, nil
		}
		return self, nil
	case *ast.Nodes:
		return self, nil
	case *ast.Paren:
		return e.Eval(node.Inner, env, self)
	case *ast.And:
		l, err := e.Eval(node.L, env, self)
		if err != nil {
			return None, err
		}
		if !l.Truthy() {
			return l, nil
		}
		return e.Eval(node.R, env, self)
	case *ast.Or:
		l, err := e.Eval(node.L, env, self)
		if err != nil {
			return None, err
		}
		if l.Truthy() {
			return l, nil
		}
		return e.Eval(node.R, env, self)
	case *ast.Array:
		vals := make([]RuntimeValue, 0, len(node.Elems))
		for _, el := range node.Elems {
			v, err := e.Eval(el, env, self)
			if err != nil {
				return None, err
			}
			vals = append(vals, v)
		}
		return NewArray(vals...), nil
	case *ast.Dict:
		keys := make([]string, 0, len(node.Entries))
		vals := map[string]RuntimeValue{}
		for _, ent := range node.Entries {
			v, err := e.Eval(ent.Value, env, self)
			if err != nil {
				return None, err
			}
			keys = append(keys, ent.Key)
			vals[ent.Key] = v
		}
		return NewDict(keys, vals), nil
	case *ast.InterpolatedString:
		return e.evalInterpString(node, env, self)
	case *ast.Let:
		v, err := e.Eval(node.Value, env, self)
		if err != nil {
			return None, err
		}
		env.Let(node.Name, v)
		return v, nil
	case *ast.Var:
		v, err := e.Eval(node.Value, env, self)
		if err != nil {
			return None, err
		}
		env.Var(node.Name, v)
		return v, nil
	case *ast.Assign:
		v, err := e.Eval(node.Value, env, self)
		if err != nil {
			return None, err
		}
		if err := env.Assign(node.Name, v); err != nil {
			return None, err
		}
		return v, nil
	case *ast.Def:
		fn := &FunctionValue{Name: node.Name, Params: node.Params, Body: node.Body, Env: env}
		env.DefineFunc(fn)
		return None, nil
	case *ast.Fn:
		return &FunctionValue{Params: node.Params, Body: node.Body, Env: env}, nil
	case *ast.Block:
		return e.evalBlock(node, env, self)
	case *ast.If:
		for _, br := range node.Branches {
			if br.Cond == nil {
				return e.Eval(br.Body, env.Child(), self)
			}
			c, err := e.Eval(br.Cond, env, self)
			if err != nil {
				return None, err
			}
			if c.Truthy() {
				return e.Eval(br.Body, env.Child(), self)
			}
		}
		return None, nil
	case *ast.While:
		return e.evalWhile(node.Cond, node.Body, env, self, false)
	case *ast.Until:
		return e.evalWhile(node.Cond, node.Body, env, self, true)
	case *ast.Foreach:
		return e.evalForeach(node, env, self)
	case *ast.Break:
		return None, breakSignal
	case *ast.Continue:
		return None, continueSignal
	case *ast.Try:
		v, err := e.Eval(node.TryExpr, env.Child(), self)
		if err == nil {
			return v, nil
		}
		if err == breakSignal || err == continueSignal {
			return None, err
		}
		return e.Eval(node.CatchExpr, env.Child(), self)
	case *ast.Match:
		return e.evalMatch(node, env, self)
	case *ast.Call:
		return e.evalCall(node, env, self)
	case *ast.CallDynamic:
		return e.evalCallDynamic(node, env, self)
	case *ast.Module:
		modEnv := env.Child()
		if _, err := e.Eval(node.Body, modEnv, self); err != nil {
			return None, err
		}
		env.DefineModule(&ModuleValue{Name: node.Name, Env: modEnv})
		return None, nil
	case *ast.QualifiedAccess:
		return e.evalQualifiedAccess(node, env, self)
	case *ast.Include:
		return e.evalInclude(node, env, self)
	case *ast.Import:
		return e.evalImport(node, env)
	case *ast.Macro:
		// Macros are compile-time only; surviving to eval means expansion
		// was skipped (spec invariant). Treat as a no-op rather than fail.
		return None, nil
	case *ast.Quote:
		return e.Eval(node.Block, env, self)
	case *ast.Unquote:
		return e.Eval(node.Inner, env, self)
	default:
		return None, runtimeErrf(diag.KindSyntax, "cannot evaluate node of type %T", n)
	}
}

func literalValue(l *ast.Literal) RuntimeValue {
	switch l.Kind {
	case ast.LitNumber:
		return NumberValue(l.Number)
	case ast.LitString:
		return StringValue(l.Str)
	case ast.LitBool:
		return BooleanValue(l.Bool)
	default:
		return None
	}
}

// evalBlock threads each expression's result into the next as the piped
// `self` value (spec §4.6 pipe semantics): `a | b | c` evaluates a, then
// evaluates b with self=a's result, then c with self=b's result.
func (e *Evaluator) evalBlock(b *ast.Block, env *Environment, self RuntimeValue) (RuntimeValue, error) {
	cur := self
	var result RuntimeValue = None
	for _, expr := range b.Exprs {
		v, err := e.Eval(expr, env, cur)
		if err != nil {
			return None, err
		}
		result = v
		cur = v
	}
	return result, nil
}

func (e *Evaluator) evalWhile(cond, body ast.Node, env *Environment, self RuntimeValue, negate bool) (RuntimeValue, error) {
	var result RuntimeValue = None
	for i := 0; ; i++ {
		if i >= e.MaxLoopIters {
			return None, runtimeErrf(diag.KindRecursionLimit, "loop exceeded %d iterations", e.MaxLoopIters)
		}
		c, err := e.Eval(cond, env, self)
		if err != nil {
			return None, err
		}
		truthy := c.Truthy()
		if negate {
			truthy = !truthy
		}
		if !truthy {
			return result, nil
		}
		v, err := e.Eval(body, env.Child(), self)
		if err == breakSignal {
			return result, nil
		}
		if err == continueSignal {
			continue
		}
		if err != nil {
			return None, err
		}
		result = v
	}
}

func (e *Evaluator) evalForeach(node *ast.Foreach, env *Environment, self RuntimeValue) (RuntimeValue, error) {
	iterVal, err := e.Eval(node.Iter, env, self)
	if err != nil {
		return None, err
	}
	var items []RuntimeValue
	switch v := iterVal.(type) {
	case *ArrayValue:
		items = v.Elems
	case StringValue:
		for _, r := range string(v) {
			items = append(items, StringValue(string(r)))
		}
	default:
		return None, runtimeErrf(diag.KindSyntax, "foreach requires an Array or String, got %s", iterVal.Kind())
	}
	var result RuntimeValue = None
	for _, it := range items {
		scope := env.Child()
		scope.Let(node.Var, it)
		v, err := e.Eval(node.Body, scope, self)
		if err == breakSignal {
			break
		}
		if err == continueSignal {
			continue
		}
		if err != nil {
			return None, err
		}
		result = v
	}
	return result, nil
}

func (e *Evaluator) evalSelector(node *ast.Selector, self RuntimeValue) (RuntimeValue, error) {
	mv, ok := self.(*MarkdownValue)
	if !ok || mv.Node == nil {
		return None, nil
	}
	if !mdvalue.Matches(mv.Node, node.Path) {
		return None, nil
	}
	if node.Index != nil {
		children := mv.Node.Children()
		if *node.Index < 0 || *node.Index >= len(children) {
			return None, nil
		}
		return &MarkdownValue{Node: children[*node.Index]}, nil
	}
	return mv, nil
}

func (e *Evaluator) evalInterpString(node *ast.InterpolatedString, env *Environment, self RuntimeValue) (RuntimeValue, error) {
	out := ""
	for _, seg := range node.Segments {
		switch seg.Kind {
		case ast.SegText:
			out += seg.Text
		case ast.SegEnvRef:
			out += os.Getenv(seg.Text)
		case ast.SegSelf:
			if self != nil {
				out += self.String()
			}
		case ast.SegExpr:
			v, err := e.Eval(seg.Expr, env, self)
			if err != nil {
				return None, err
			}
			out += v.String()
		}
	}
	return StringValue(out), nil
}

func (e *Evaluator) evalInclude(node *ast.Include, env *Environment, self RuntimeValue) (RuntimeValue, error) {
	if e.Resolver == nil {
		return None, runtimeErrf(diag.KindSyntax, "include requires a module resolver")
	}
	prog, err := e.Resolver.Resolve(node.Path)
	if err != nil {
		return None, runtimeErrf(diag.KindSyntax, "include %q: %v", node.Path, err)
	}
	return e.Eval(prog.Body, env, self)
}

func (e *Evaluator) evalImport(node *ast.Import, env *Environment) (RuntimeValue, error) {
	if e.Resolver == nil {
		return None, runtimeErrf(diag.KindSyntax, "import requires a module resolver")
	}
	prog, err := e.Resolver.Resolve(node.Path)
	if err != nil {
		return None, runtimeErrf(diag.KindSyntax, "import %q: %v", node.Path, err)
	}
	modEnv := env.Child()
	if _, err := e.Eval(prog.Body, modEnv, None); err != nil {
		return None, err
	}
	mv := &ModuleValue{Name: prog.ModuleID, Env: modEnv}
	env.DefineModule(mv)
	return mv, nil
}
