package eval

import "github.com/mqscript/mqscript/diag"

type binding struct {
	value   RuntimeValue
	mutable bool
}

// Environment is a lexical scope: a binding table plus a parent link.
// Let introduces an immutable binding, Var a mutable one; Assign requires
// the existing binding (found by walking parents) to be mutable (spec §5).
type Environment struct {
	parent *Environment
	vars   map[string]*binding
	fns    map[string]*FunctionValue
	natives map[string]*NativeFunctionValue
	modules map[string]*ModuleValue
}

// NewEnvironment creates a root (parent-less) environment.
func NewEnvironment() *Environment {
	return &Environment{
		vars:    map[string]*binding{},
		fns:     map[string]*FunctionValue{},
		natives: map[string]*NativeFunctionValue{},
		modules: map[string]*ModuleValue{},
	}
}

// Child creates a new scope nested under e.
func (e *Environment) Child() *Environment {
	c := NewEnvironment()
	c.parent = e
	return c
}

func (e *Environment) Let(name string, v RuntimeValue) {
	e.vars[name] = &binding{value: v, mutable: false}
}

func (e *Environment) Var(name string, v RuntimeValue) {
	e.vars[name] = &binding{value: v, mutable: true}
}

// Assign mutates an existing binding found anywhere in the parent chain.
// It returns an error (not a diag.Bag entry — this is a runtime fault) if
// the binding is absent or immutable.
func (e *Environment) Assign(name string, v RuntimeValue) error {
	for env := e; env != nil; env = env.parent {
		if b, ok := env.vars[name]; ok {
			if !b.mutable {
				return diag.Diagnostic{Kind: diag.KindArityMismatch, Message: "cannot assign to immutable binding " + name}
			}
			b.value = v
			return nil
		}
	}
	return diag.Diagnostic{Kind: diag.KindUnresolvedRef, Message: "undefined variable " + name}
}

// Lookup resolves name by walking outward through parent scopes, innermost
// binding wins (spec §5 shadowing rule).
func (e *Environment) Lookup(name string) (RuntimeValue, bool) {
	for env := e; env != nil; env = env.parent {
		if b, ok := env.vars[name]; ok {
			return b.value, true
		}
	}
	return nil, false
}

func (e *Environment) DefineFunc(fn *FunctionValue) { e.fns[fn.Name] = fn }

func (e *Environment) LookupFunc(name string) (*FunctionValue, bool) {
	for env := e; env != nil; env = env.parent {
		if fn, ok := env.fns[name]; ok {
			return fn, true
		}
	}
	return nil, false
}

func (e *Environment) DefineNative(n *NativeFunctionValue) { e.natives[n.Name] = n }

func (e *Environment) LookupNative(name string) (*NativeFunctionValue, bool) {
	for env := e; env != nil; env = env.parent {
		if n, ok := env.natives[name]; ok {
			return n, true
		}
	}
	return nil, false
}

func (e *Environment) DefineModule(m *ModuleValue) { e.modules[m.Name] = m }

func (e *Environment) LookupModule(name string) (*ModuleValue, bool) {
	for env := e; env != nil; env = env.parent {
		if m, ok := env.modules[name]; ok {
			return m, true
		}
	}
	return nil, false
}

// Names returns every function and variable name visible from e, used by
// diag.Suggest for "did you mean" diagnostics.
func (e *Environment) Names() []string {
	seen := map[string]bool{}
	var out []string
	for env := e; env != nil; env = env.parent {
		for k := range env.vars {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
		for k := range env.fns {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
		for k := range env.natives {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	return out
}
