package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mqscript/mqscript/parser"
)

func TestInferArithmeticIsNumber(t *testing.T) {
	prog, bag := parser.Parse("1 + 2", "test")
	require.True(t, bag.Empty())
	result, typeBag := Infer(prog, NewRegistry())
	assert.True(t, typeBag.Empty())
	call := prog.Body.Exprs[0]
	assert.Equal(t, KNumber, result[call].Kind)
}

func TestInferStringConcatOverload(t *testing.T) {
	prog, bag := parser.Parse(`"a" + "b"`, "test")
	require.True(t, bag.Empty())
	result, typeBag := Infer(prog, NewRegistry())
	assert.True(t, typeBag.Empty())
	call := prog.Body.Exprs[0]
	assert.Equal(t, KString, result[call].Kind)
}

func TestInferComparisonIsBool(t *testing.T) {
	prog, bag := parser.Parse("1 < 2", "test")
	require.True(t, bag.Empty())
	result, typeBag := Infer(prog, NewRegistry())
	assert.True(t, typeBag.Empty())
	call := prog.Body.Exprs[0]
	assert.Equal(t, KBool, result[call].Kind)
}

func TestNoMatchingOverloadReportsDiagnostic(t *testing.T) {
	prog, bag := parser.Parse(`"a" < 2`, "test")
	require.True(t, bag.Empty())
	_, typeBag := Infer(prog, NewRegistry())
	assert.False(t, typeBag.Empty())
}

func TestUnionFindResolvesThroughUnion(t *testing.T) {
	uf := newUnionFind()
	a := uf.newVar()
	b := uf.newVar()
	uf.union(a, b)
	uf.bind(a, Type{Kind: KNumber})
	assert.Equal(t, KNumber, uf.resolve(b).Kind)
}

func TestRegistryResolveSelectsMatchingOverload(t *testing.T) {
	r := NewRegistry()
	sig, ok := r.Resolve("add", []Type{{Kind: KString}, {Kind: KString}})
	require.True(t, ok)
	assert.Equal(t, KString, sig.Return.Kind)

	sig, ok = r.Resolve("add", []Type{{Kind: KNumber}, {Kind: KNumber}})
	require.True(t, ok)
	assert.Equal(t, KNumber, sig.Return.Kind)
}

func TestInferPipedZeroArgCallPrependsSelfType(t *testing.T) {
	// "hello" | upcase() has no explicit argument of its own; the piped
	// string must be tried as an implicit first argument (spec §4.7 Pass 3)
	// or this reports a false-positive no-matching-overload diagnostic.
	prog, bag := parser.Parse(`"hello" | upcase()`, "test")
	require.True(t, bag.Empty())
	result, typeBag := Infer(prog, NewRegistry())
	assert.True(t, typeBag.Empty(), "diagnostics: %v", typeBag.Items())
	require.Len(t, prog.Body.Exprs, 2)
	call := prog.Body.Exprs[1]
	assert.Equal(t, KString, result[call].Kind)
}

func TestInferPipedCallWithExplicitArgPrependsSelfType(t *testing.T) {
	// 5 | add(1) supplies add's second argument explicitly; the piped
	// number must be prepended as add's first argument.
	prog, bag := parser.Parse(`5 | add(1)`, "test")
	require.True(t, bag.Empty())
	result, typeBag := Infer(prog, NewRegistry())
	assert.True(t, typeBag.Empty(), "diagnostics: %v", typeBag.Items())
	require.Len(t, prog.Body.Exprs, 2)
	call := prog.Body.Exprs[1]
	assert.Equal(t, KNumber, result[call].Kind)
}

func TestWildcardParamSignatureMatchesAnyArgKind(t *testing.T) {
	r := NewRegistry()
	sig, ok := r.Resolve("to_string", []Type{{Kind: KNumber}})
	require.True(t, ok)
	assert.Equal(t, KString, sig.Return.Kind)
}
