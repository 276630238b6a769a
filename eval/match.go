package eval

import "github.com/mqscript/mqscript/ast"

// evalMatch evaluates node.Value once, then tries each arm's pattern in
// order, binding any identifiers it introduces into a fresh child scope
// before checking the arm's optional guard (spec §4.6 match semantics).
func (e *Evaluator) evalMatch(node *ast.Match, env *Environment, self RuntimeValue) (RuntimeValue, error) {
	v, err := e.Eval(node.Value, env, self)
	if err != nil {
		return None, err
	}
	for _, arm := range node.Arms {
		scope := env.Child()
		if !bindPattern(arm.Pattern, v, scope) {
			continue
		}
		if arm.Guard != nil {
			g, err := e.Eval(arm.Guard, scope, self)
			if err != nil {
				return None, err
			}
			if !g.Truthy() {
				continue
			}
		}
		return e.Eval(arm.Body, scope, self)
	}
	return None, nil
}

// bindPattern reports whether pat matches v, binding any PatIdent/array-rest
// names into scope as it goes. On a failed match, partial bindings made so
// far are harmless since scope is discarded by the caller.
func bindPattern(pat ast.Pattern, v RuntimeValue, scope *Environment) bool {
	switch pat.Kind {
	case ast.PatWildcard:
		return true
	case ast.PatIdent:
		scope.Let(pat.Ident, v)
		return true
	case ast.PatLiteral:
		return valuesEqual(literalValue(pat.Lit), v)
	case ast.PatType:
		return typeNameMatches(pat.TypeName, v)
	case ast.PatArray:
		arr, ok := v.(*ArrayValue)
		if !ok {
			return false
		}
		if pat.Rest == "" {
			if len(arr.Elems) != len(pat.Elems) {
				return false
			}
			for i, ep := range pat.Elems {
				if !bindPattern(ep, arr.Elems[i], scope) {
					return false
				}
			}
			return true
		}
		if len(arr.Elems) < len(pat.Elems) {
			return false
		}
		for i, ep := range pat.Elems {
			if !bindPattern(ep, arr.Elems[i], scope) {
				return false
			}
		}
		scope.Let(pat.Rest, NewArray(arr.Elems[len(pat.Elems):]...))
		return true
	case ast.PatDict:
		dict, ok := v.(*DictValue)
		if !ok {
			return false
		}
		for k, fp := range pat.Fields {
			fv, ok := dict.Values[k]
			if !ok {
				return false
			}
			if !bindPattern(fp, fv, scope) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func typeNameMatches(name string, v RuntimeValue) bool {
	switch name {
	case "Number":
		return v.Kind() == KindNumber
	case "String":
		return v.Kind() == KindString
	case "Bool", "Boolean":
		return v.Kind() == KindBoolean
	case "Array":
		return v.Kind() == KindArray
	case "Dict":
		return v.Kind() == KindDict
	case "None":
		return v.Kind() == KindNone
	case "Markdown":
		return v.Kind() == KindMarkdown
	default:
		return false
	}
}
