package eval

import (
	"strings"

	"github.com/dlclark/regexp2"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/cast"

	"github.com/mqscript/mqscript/diag"
)

// builtinSpec pairs a builtin's fixed arity (-1 for variadic) with its
// implementation, so evalCall can apply the same self-threading rule to
// builtins that it applies to user functions (spec §4.6).
type builtinSpec struct {
	Arity int
	Fn    NativeFunc
}

func numArgs(args []RuntimeValue) (float64, float64, bool) {
	if len(args) != 2 {
		return 0, 0, false
	}
	a, aok := args[0].(NumberValue)
	b, bok := args[1].(NumberValue)
	return float64(a), float64(b), aok && bok
}

func builtinTable() map[string]builtinSpec {
	t := map[string]builtinSpec{}

	t["add"] = builtinSpec{2, func(_ *Caller, args []RuntimeValue) (RuntimeValue, error) {
		if s1, ok := args[0].(StringValue); ok {
			return StringValue(string(s1) + args[1].String()), nil
		}
		a, b, ok := numArgs(args)
		if !ok {
			return None, runtimeErrf(diag.KindSyntax, "add expects two numbers or a string")
		}
		return NumberValue(a + b), nil
	}}
	t["sub"] = builtinSpec{2, func(_ *Caller, args []RuntimeValue) (RuntimeValue, error) {
		a, b, ok := numArgs(args)
		if !ok {
			return None, runtimeErrf(diag.KindSyntax, "sub expects two numbers")
		}
		return NumberValue(a - b), nil
	}}
	t["mul"] = builtinSpec{2, func(_ *Caller, args []RuntimeValue) (RuntimeValue, error) {
		a, b, ok := numArgs(args)
		if !ok {
			return None, runtimeErrf(diag.KindSyntax, "mul expects two numbers")
		}
		return NumberValue(a * b), nil
	}}
	t["div"] = builtinSpec{2, func(_ *Caller, args []RuntimeValue) (RuntimeValue, error) {
		a, b, ok := numArgs(args)
		if !ok {
			return None, runtimeErrf(diag.KindSyntax, "div expects two numbers")
		}
		if b == 0 {
			return None, runtimeErrf(diag.KindSyntax, "division by zero")
		}
		return NumberValue(a / b), nil
	}}
	t["mod"] = builtinSpec{2, func(_ *Caller, args []RuntimeValue) (RuntimeValue, error) {
		a, b, ok := numArgs(args)
		if !ok {
			return None, runtimeErrf(diag.KindSyntax, "mod expects two numbers")
		}
		if b == 0 {
			return None, runtimeErrf(diag.KindSyntax, "modulo by zero")
		}
		return NumberValue(float64(int64(a) % int64(b))), nil
	}}
	t["neg"] = builtinSpec{1, func(_ *Caller, args []RuntimeValue) (RuntimeValue, error) {
		n, ok := args[0].(NumberValue)
		if !ok {
			return None, runtimeErrf(diag.KindSyntax, "neg expects a number")
		}
		return -n, nil
	}}
	t["not"] = builtinSpec{1, func(_ *Caller, args []RuntimeValue) (RuntimeValue, error) {
		return BooleanValue(!args[0].Truthy()), nil
	}}
	t["coalesce"] = builtinSpec{2, func(_ *Caller, args []RuntimeValue) (RuntimeValue, error) {
		if args[0].Kind() == KindNone {
			return args[1], nil
		}
		return args[0], nil
	}}

	cmp := func(name string, pred func(int) bool) {
		t[name] = builtinSpec{2, func(_ *Caller, args []RuntimeValue) (RuntimeValue, error) {
			return BooleanValue(pred(compareValues(args[0], args[1]))), nil
		}}
	}
	cmp("lt", func(c int) bool { return c < 0 })
	cmp("lte", func(c int) bool { return c <= 0 })
	cmp("gt", func(c int) bool { return c > 0 })
	cmp("gte", func(c int) bool { return c >= 0 })
	t["eq"] = builtinSpec{2, func(_ *Caller, args []RuntimeValue) (RuntimeValue, error) {
		return BooleanValue(valuesEqual(args[0], args[1])), nil
	}}
	t["neq"] = builtinSpec{2, func(_ *Caller, args []RuntimeValue) (RuntimeValue, error) {
		return BooleanValue(!valuesEqual(args[0], args[1])), nil
	}}

	t["shl"] = builtinSpec{2, func(_ *Caller, args []RuntimeValue) (RuntimeValue, error) {
		a, b, ok := numArgs(args)
		if !ok {
			return None, runtimeErrf(diag.KindSyntax, "shl expects two numbers")
		}
		return NumberValue(float64(int64(a) << uint(int64(b)))), nil
	}}
	t["shr"] = builtinSpec{2, func(_ *Caller, args []RuntimeValue) (RuntimeValue, error) {
		a, b, ok := numArgs(args)
		if !ok {
			return None, runtimeErrf(diag.KindSyntax, "shr expects two numbers")
		}
		return NumberValue(float64(int64(a) >> uint(int64(b)))), nil
	}}

	t["repeat"] = builtinSpec{2, func(_ *Caller, args []RuntimeValue) (RuntimeValue, error) {
		s, ok := args[0].(StringValue)
		n, nok := args[1].(NumberValue)
		if !ok || !nok || n < 0 {
			return None, runtimeErrf(diag.KindSyntax, "repeat expects (String, Number)")
		}
		return StringValue(strings.Repeat(string(s), int(n))), nil
	}}
	t["reverse"] = builtinSpec{1, func(_ *Caller, args []RuntimeValue) (RuntimeValue, error) {
		switch v := args[0].(type) {
		case StringValue:
			r := []rune(string(v))
			for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
				r[i], r[j] = r[j], r[i]
			}
			return StringValue(string(r)), nil
		case *ArrayValue:
			out := make([]RuntimeValue, len(v.Elems))
			for i, e := range v.Elems {
				out[len(v.Elems)-1-i] = e
			}
			return &ArrayValue{Elems: out}, nil
		default:
			return None, runtimeErrf(diag.KindSyntax, "reverse expects a String or Array")
		}
	}}

	strOp := func(name string, f func(string) string) {
		t[name] = builtinSpec{1, func(_ *Caller, args []RuntimeValue) (RuntimeValue, error) {
			s, ok := args[0].(StringValue)
			if !ok {
				return None, runtimeErrf(diag.KindSyntax, "%s expects a String", name)
			}
			return StringValue(f(string(s))), nil
		}}
	}
	strOp("downcase", strings.ToLower)
	strOp("upcase", strings.ToUpper)
	strOp("trim", strings.TrimSpace)
	strOp("ltrim", func(s string) string { return strings.TrimLeft(s, " \t\r\n") })
	strOp("rtrim", func(s string) string { return strings.TrimRight(s, " \t\r\n") })

	t["split"] = builtinSpec{2, func(_ *Caller, args []RuntimeValue) (RuntimeValue, error) {
		s, ok := args[0].(StringValue)
		sep, sok := args[1].(StringValue)
		if !ok || !sok {
			return None, runtimeErrf(diag.KindSyntax, "split expects (String, String)")
		}
		parts := strings.Split(string(s), string(sep))
		vals := make([]RuntimeValue, len(parts))
		for i, p := range parts {
			vals[i] = StringValue(p)
		}
		return NewArray(vals...), nil
	}}
	t["join"] = builtinSpec{2, func(_ *Caller, args []RuntimeValue) (RuntimeValue, error) {
		arr, ok := args[0].(*ArrayValue)
		sep, sok := args[1].(StringValue)
		if !ok || !sok {
			return None, runtimeErrf(diag.KindSyntax, "join expects (Array, String)")
		}
		parts := make([]string, len(arr.Elems))
		for i, e := range arr.Elems {
			parts[i] = e.String()
		}
		return StringValue(strings.Join(parts, string(sep))), nil
	}}

	t["length"] = builtinSpec{1, func(_ *Caller, args []RuntimeValue) (RuntimeValue, error) {
		switch v := args[0].(type) {
		case StringValue:
			return NumberValue(len([]rune(string(v)))), nil
		case *ArrayValue:
			return NumberValue(len(v.Elems)), nil
		case *DictValue:
			return NumberValue(len(v.Keys)), nil
		default:
			return None, runtimeErrf(diag.KindSyntax, "length expects a String, Array, or Dict")
		}
	}}

	// match applies a regular expression in regexp2's default (.NET) syntax,
	// using regexp2 rather
	// than stdlib regexp because mqscript's `=~` operator needs
	// backreference support stdlib's RE2 engine cannot provide.
	t["match"] = builtinSpec{2, func(_ *Caller, args []RuntimeValue) (RuntimeValue, error) {
		s, ok := args[0].(StringValue)
		pat, pok := args[1].(StringValue)
		if !ok || !pok {
			return None, runtimeErrf(diag.KindSyntax, "match expects (String, String)")
		}
		re, err := regexp2.Compile(string(pat), regexp2.None)
		if err != nil {
			return None, runtimeErrf(diag.KindSyntax, "invalid regular expression: %v", err)
		}
		m, err := re.MatchString(string(s))
		if err != nil {
			return None, runtimeErrf(diag.KindSyntax, "regular expression error: %v", err)
		}
		return BooleanValue(m), nil
	}}

	// schema_valid validates a value (re-encoded to JSON-ish Go data) against
	// a JSON Schema document given as a string.
	t["schema_valid"] = builtinSpec{2, func(_ *Caller, args []RuntimeValue) (RuntimeValue, error) {
		schemaSrc, ok := args[1].(StringValue)
		if !ok {
			return None, runtimeErrf(diag.KindSyntax, "schema_valid expects a String schema as its second argument")
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("schema.json", strings.NewReader(string(schemaSrc))); err != nil {
			return None, runtimeErrf(diag.KindSyntax, "invalid schema: %v", err)
		}
		schema, err := compiler.Compile("schema.json")
		if err != nil {
			return None, runtimeErrf(diag.KindSyntax, "invalid schema: %v", err)
		}
		if err := schema.Validate(toPlainValue(args[0])); err != nil {
			return BooleanValue(false), nil
		}
		return BooleanValue(true), nil
	}}

	// to_number/to_string/to_bool coerce a RuntimeValue of any kind into
	// the named primitive, using cast's lenient Go-value coercions
	// (string "3.5" -> 3.5, number 1 -> true, and so on) rather than
	// failing on anything but an exact-kind match.
	t["to_number"] = builtinSpec{1, func(_ *Caller, args []RuntimeValue) (RuntimeValue, error) {
		n, err := cast.ToFloat64E(toPlainValue(args[0]))
		if err != nil {
			return None, runtimeErrf(diag.KindSyntax, "to_number: %v", err)
		}
		return NumberValue(n), nil
	}}
	t["to_string"] = builtinSpec{1, func(_ *Caller, args []RuntimeValue) (RuntimeValue, error) {
		s, err := cast.ToStringE(toPlainValue(args[0]))
		if err != nil {
			return None, runtimeErrf(diag.KindSyntax, "to_string: %v", err)
		}
		return StringValue(s), nil
	}}
	t["to_bool"] = builtinSpec{1, func(_ *Caller, args []RuntimeValue) (RuntimeValue, error) {
		b, err := cast.ToBoolE(toPlainValue(args[0]))
		if err != nil {
			return None, runtimeErrf(diag.KindSyntax, "to_bool: %v", err)
		}
		return BooleanValue(b), nil
	}}

	return t
}

// toPlainValue converts a RuntimeValue into plain Go data (map/slice/
// string/float64/bool/nil) for libraries that expect decoded-JSON shapes,
// such as jsonschema.Validate.
func toPlainValue(v RuntimeValue) interface{} {
	switch val := v.(type) {
	case NumberValue:
		return float64(val)
	case StringValue:
		return string(val)
	case BooleanValue:
		return bool(val)
	case *ArrayValue:
		out := make([]interface{}, len(val.Elems))
		for i, e := range val.Elems {
			out[i] = toPlainValue(e)
		}
		return out
	case *DictValue:
		out := map[string]interface{}{}
		for _, k := range val.Keys {
			out[k] = toPlainValue(val.Values[k])
		}
		return out
	default:
		return nil
	}
}

func compareValues(a, b RuntimeValue) int {
	an, aok := a.(NumberValue)
	bn, bok := b.(NumberValue)
	if aok && bok {
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a.String(), b.String())
}

func valuesEqual(a, b RuntimeValue) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	return a.String() == b.String()
}
