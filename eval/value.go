// Package eval implements the tree-walking evaluator (spec §5, §6): pipe
// semantics, control flow, closures, Try/Catch, pattern matching, and the
// builtin function table. The RuntimeValue tagged union follows the same
// interface+concrete-type shape as package ast's Node (spec §3's "small
// closed set of runtime value kinds").
package eval

import (
	"fmt"

	"github.com/mqscript/mqscript/mdvalue"
)

// ValueKind tags a RuntimeValue's payload.
type ValueKind int

const (
	KindNone ValueKind = iota
	KindBoolean
	KindNumber
	KindString
	KindSymbol
	KindArray
	KindDict
	KindMarkdown
	KindFunction
	KindNativeFunction
	KindModule
)

func (k ValueKind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindBoolean:
		return "Boolean"
	case KindNumber:
		return "Number"
	case KindString:
		return "String"
	case KindSymbol:
		return "Symbol"
	case KindArray:
		return "Array"
	case KindDict:
		return "Dict"
	case KindMarkdown:
		return "Markdown"
	case KindFunction:
		return "Function"
	case KindNativeFunction:
		return "NativeFunction"
	case KindModule:
		return "Module"
	default:
		return "Unknown"
	}
}

// RuntimeValue is any value the evaluator produces or consumes.
type RuntimeValue interface {
	Kind() ValueKind
	Truthy() bool
	String() string
}

type noneValue struct{}

func (noneValue) Kind() ValueKind  { return KindNone }
func (noneValue) Truthy() bool     { return false }
func (noneValue) String() string   { return "None" }

// None is the singleton absence-of-value (elides from arrays/dicts).
var None RuntimeValue = noneValue{}

type BooleanValue bool

func (b BooleanValue) Kind() ValueKind { return KindBoolean }
func (b BooleanValue) Truthy() bool    { return bool(b) }
func (b BooleanValue) String() string  { return fmt.Sprintf("%t", bool(b)) }

type NumberValue float64

func (n NumberValue) Kind() ValueKind { return KindNumber }
func (n NumberValue) Truthy() bool    { return n != 0 }
func (n NumberValue) String() string  { return fmt.Sprintf("%g", float64(n)) }

type StringValue string

func (s StringValue) Kind() ValueKind { return KindString }
func (s StringValue) Truthy() bool    { return s != "" }
func (s StringValue) String() string  { return string(s) }

// SymbolValue is an interned bare identifier value, distinct from String
// (spec §3's Symbol value kind — e.g. a Selector's matched tag name).
type SymbolValue string

func (s SymbolValue) Kind() ValueKind { return KindSymbol }
func (s SymbolValue) Truthy() bool    { return true }
func (s SymbolValue) String() string  { return string(s) }

// ArrayValue is an ordered, None-eliding list.
type ArrayValue struct{ Elems []RuntimeValue }

func (a *ArrayValue) Kind() ValueKind { return KindArray }
func (a *ArrayValue) Truthy() bool    { return len(a.Elems) > 0 }
func (a *ArrayValue) String() string {
	s := "["
	for i, e := range a.Elems {
		if i > 0 {
			s += ", "
		}
		s += e.String()
	}
	return s + "]"
}

// NewArray builds an ArrayValue, eliding any None elements (spec §4.5).
func NewArray(elems ...RuntimeValue) *ArrayValue {
	out := make([]RuntimeValue, 0, len(elems))
	for _, e := range elems {
		if e != nil && e.Kind() == KindNone {
			continue
		}
		out = append(out, e)
	}
	return &ArrayValue{Elems: out}
}

// DictValue is an ordered, None-eliding string-keyed map.
type DictValue struct {
	Keys   []string
	Values map[string]RuntimeValue
}

func (d *DictValue) Kind() ValueKind { return KindDict }
func (d *DictValue) Truthy() bool    { return len(d.Keys) > 0 }
func (d *DictValue) String() string {
	s := "{"
	for i, k := range d.Keys {
		if i > 0 {
			s += ", "
		}
		s += k + ": " + d.Values[k].String()
	}
	return s + "}"
}

// NewDict builds a DictValue, eliding any entry whose value is None.
func NewDict(keys []string, vals map[string]RuntimeValue) *DictValue {
	d := &DictValue{Values: map[string]RuntimeValue{}}
	for _, k := range keys {
		v := vals[k]
		if v != nil && v.Kind() == KindNone {
			continue
		}
		d.Keys = append(d.Keys, k)
		d.Values[k] = v
	}
	return d
}

// MarkdownValue wraps a host-supplied Markdown node as a runtime value.
type MarkdownValue struct{ Node mdvalue.Node }

func (m *MarkdownValue) Kind() ValueKind { return KindMarkdown }
func (m *MarkdownValue) Truthy() bool    { return m.Node != nil }
func (m *MarkdownValue) String() string {
	if m.Node == nil {
		return "<markdown:nil>"
	}
	return fmt.Sprintf("<markdown:%s>", m.Node.Kind())
}

// FunctionValue is a user-defined closure: parameters, body, and the
// environment it closed over.
type FunctionValue struct {
	Name   string
	Params []string
	Body   interface{} // *ast.Block, stored as interface{} and type-asserted in callFunction
	Env    *Environment
}

func (f *FunctionValue) Kind() ValueKind { return KindFunction }
func (f *FunctionValue) Truthy() bool    { return true }
func (f *FunctionValue) String() string  { return fmt.Sprintf("<function:%s/%d>", f.Name, len(f.Params)) }

// NativeFunc is a builtin implemented in Go.
type NativeFunc func(call *Caller, args []RuntimeValue) (RuntimeValue, error)

// NativeFunctionValue wraps a builtin for storage as a RuntimeValue (e.g.
// when passed around as a first-class value).
type NativeFunctionValue struct {
	Name string
	Fn   NativeFunc
}

func (n *NativeFunctionValue) Kind() ValueKind { return KindNativeFunction }
func (n *NativeFunctionValue) Truthy() bool    { return true }
func (n *NativeFunctionValue) String() string  { return fmt.Sprintf("<native:%s>", n.Name) }

// ModuleValue is the bound result of `module`/`import`: a named environment
// whose bindings QualifiedAccess reads through.
type ModuleValue struct {
	Name string
	Env  *Environment
}

func (m *ModuleValue) Kind() ValueKind { return KindModule }
func (m *ModuleValue) Truthy() bool    { return true }
func (m *ModuleValue) String() string  { return fmt.Sprintf("<module:%s>", m.Name) }
