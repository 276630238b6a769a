package eval

import (
	"github.com/mqscript/mqscript/ast"
	"github.com/mqscript/mqscript/diag"
)

// evalCall resolves node.Name to a user function or builtin and applies the
// implicit-first-argument pipe rule (spec §4.6): when the callee's arity is
// exactly one more than the number of supplied arguments, the ambient piped
// `self` value is prepended as the receiver — so `f(a)` inside a pipe chain
// behaves like `f(self, a)` whenever f takes two parameters.
func (e *Evaluator) evalCall(node *ast.Call, env *Environment, self RuntimeValue) (RuntimeValue, error) {
	args := make([]RuntimeValue, 0, len(node.Args))
	for _, a := range node.Args {
		v, err := e.Eval(a, env, self)
		if err != nil {
			return None, err
		}
		args = append(args, v)
	}

	if fn, ok := env.LookupFunc(node.Name); ok {
		args = threadSelf(len(fn.Params), args, self)
		if len(args) != len(fn.Params) {
			return None, runtimeErrf(diag.KindArityMismatch, "%s expects %d argument(s), got %d", node.Name, len(fn.Params), len(args))
		}
		return e.callFunction(fn, args, env)
	}
	if spec, ok := e.builtins[node.Name]; ok {
		args = threadSelf(spec.Arity, args, self)
		if spec.Arity >= 0 && len(args) != spec.Arity {
			return None, runtimeErrf(diag.KindArityMismatch, "%s expects %d argument(s), got %d", node.Name, spec.Arity, len(args))
		}
		return spec.Fn(&Caller{Eval: e, Env: env, Self: self}, args)
	}
	if nf, ok := env.LookupNative(node.Name); ok {
		return nf.Fn(&Caller{Eval: e, Env: env, Self: self}, args)
	}

	suggestion := diag.Suggest(node.Name, e.builtinNames(env))
	rng := node.Range()
	return None, &RuntimeError{Diag: diag.Diagnostic{
		Kind: diag.KindUnresolvedRef, Message: "undefined function " + node.Name, Suggestion: suggestion, Rng: &rng,
	}}
}

// threadSelf prepends self to args when arity is exactly one greater than
// the supplied argument count; otherwise args is returned unchanged.
func threadSelf(arity int, args []RuntimeValue, self RuntimeValue) []RuntimeValue {
	if arity >= 0 && len(args) == arity-1 && self != nil {
		out := make([]RuntimeValue, 0, arity)
		out = append(out, self)
		out = append(out, args...)
		return out
	}
	return args
}

func (e *Evaluator) builtinNames(env *Environment) []string {
	names := env.Names()
	for name := range e.builtins {
		names = append(names, name)
	}
	return names
}

func (e *Evaluator) evalCallDynamic(node *ast.CallDynamic, env *Environment, self RuntimeValue) (RuntimeValue, error) {
	callee, err := e.Eval(node.Callable, env, self)
	if err != nil {
		return None, err
	}
	args := make([]RuntimeValue, 0, len(node.Args))
	for _, a := range node.Args {
		v, err := e.Eval(a, env, self)
		if err != nil {
			return None, err
		}
		args = append(args, v)
	}
	switch fn := callee.(type) {
	case *FunctionValue:
		args = threadSelf(len(fn.Params), args, self)
		if len(args) != len(fn.Params) {
			return None, runtimeErrf(diag.KindArityMismatch, "function expects %d argument(s), got %d", len(fn.Params), len(args))
		}
		return e.callFunction(fn, args, env)
	case *NativeFunctionValue:
		return fn.Fn(&Caller{Eval: e, Env: env, Self: self}, args)
	default:
		return None, runtimeErrf(diag.KindSyntax, "value of kind %s is not callable", callee.Kind())
	}
}

// evalQualifiedAccess reads or invokes a binding inside a nested module
// environment, walking node.Path to find it (spec's module/import model).
func (e *Evaluator) evalQualifiedAccess(node *ast.QualifiedAccess, env *Environment, self RuntimeValue) (RuntimeValue, error) {
	mod, ok := env.LookupModule(node.Path[0])
	if !ok {
		return None, runtimeErrf(diag.KindUnresolvedRef, "undefined module %s", node.Path[0])
	}
	cur := mod
	for _, seg := range node.Path[1:] {
		next, ok := cur.Env.LookupModule(seg)
		if !ok {
			return None, runtimeErrf(diag.KindUnresolvedRef, "undefined module %s.%s", cur.Name, seg)
		}
		cur = next
	}
	if fn, ok := cur.Env.LookupFunc(node.Target); ok {
		return fn, nil
	}
	if v, ok := cur.Env.Lookup(node.Target); ok {
		return v, nil
	}
	return None, runtimeErrf(diag.KindUnresolvedRef, "undefined member %s.%s", cur.Name, node.Target)
}

// callFunction invokes fn with already-arity-checked args, guarding the
// recursion depth (spec §5: exceeding MaxCallDepth raises RECURSION_LIMIT).
func (e *Evaluator) callFunction(fn *FunctionValue, args []RuntimeValue, _ *Environment) (RuntimeValue, error) {
	if e.callDepth >= e.MaxCallDepth {
		return None, runtimeErrf(diag.KindRecursionLimit, "call depth exceeded %d", e.MaxCallDepth)
	}
	e.callDepth++
	defer func() { e.callDepth-- }()

	scope := fn.Env.Child()
	for i, p := range fn.Params {
		scope.Let(p, args[i])
	}
	body, ok := fn.Body.(*ast.Block)
	if !ok {
		return None, runtimeErrf(diag.KindSyntax, "function %s has no body", fn.Name)
	}
	return e.evalBlock(body, scope, None)
}
