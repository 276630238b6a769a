package eval

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mqscript/mqscript/parser"
)

func runSrc(t *testing.T, src string) (RuntimeValue, error) {
	t.Helper()
	prog, bag := parser.Parse(src, "test")
	require.NotNil(t, prog)
	require.True(t, bag.Empty(), "parse diagnostics: %v", bag.Items())
	ev := New(nil)
	return ev.Run(prog, NewEnvironment(), None)
}

func TestArithmetic(t *testing.T) {
	v, err := runSrc(t, "1 + 2 * 3")
	require.NoError(t, err)
	assert.Equal(t, NumberValue(7), v)
}

func TestLetVarAssign(t *testing.T) {
	v, err := runSrc(t, "var x = 1\nx = x + 41\nx")
	require.NoError(t, err)
	assert.Equal(t, NumberValue(42), v)
}

func TestAssignToImmutableLetFails(t *testing.T) {
	_, err := runSrc(t, "let x = 1\nx = 2")
	require.Error(t, err)
}

func TestIfBranching(t *testing.T) {
	v, err := runSrc(t, "if 1 > 0: \"yes\" else: \"no\" end")
	require.NoError(t, err)
	assert.Equal(t, StringValue("yes"), v)
}

func TestWhileLoop(t *testing.T) {
	v, err := runSrc(t, "var i = 0\nwhile i < 5: i += 1\ni")
	require.NoError(t, err)
	assert.Equal(t, NumberValue(5), v)
}

func TestForeachAccumulates(t *testing.T) {
	v, err := runSrc(t, `
var total = 0
foreach(n, [1, 2, 3]): total = total + n
total`)
	require.NoError(t, err)
	assert.Equal(t, NumberValue(6), v)
}

func TestPipeThreadsSelfIntoBuiltin(t *testing.T) {
	v, err := runSrc(t, `"hello" | upcase()`)
	require.NoError(t, err)
	assert.Equal(t, StringValue("HELLO"), v)
}

func TestUserFunctionArity(t *testing.T) {
	v, err := runSrc(t, "def double(x): x * 2\ndouble(21)")
	require.NoError(t, err)
	assert.Equal(t, NumberValue(42), v)
}

func TestTryCatchRecoversRuntimeError(t *testing.T) {
	v, err := runSrc(t, `try: undefined_name catch: "recovered"`)
	require.NoError(t, err)
	assert.Equal(t, StringValue("recovered"), v)
}

func TestBreakExitsLoop(t *testing.T) {
	v, err := runSrc(t, `
var i = 0
while i < 100
  if i == 3: break end
  i += 1
end
i`)
	require.NoError(t, err)
	assert.Equal(t, NumberValue(3), v)
}

func TestUndefinedVariableSuggestsClosestName(t *testing.T) {
	_, err := runSrc(t, "let total = 1\ntotall")
	require.Error(t, err)
	rerr, ok := err.(*RuntimeError)
	require.True(t, ok)
	assert.Equal(t, "total", rerr.Diag.Suggestion)
}

func TestArrayNoneElision(t *testing.T) {
	v, err := runSrc(t, "[1, None, 2]")
	require.NoError(t, err)
	arr, ok := v.(*ArrayValue)
	require.True(t, ok)
	assert.Len(t, arr.Elems, 2)
}

func TestNestedDictArrayStructureMatchesExpected(t *testing.T) {
	v, err := runSrc(t, `{"name": "list", "items": [1, 2, {"nested": true}]}`)
	require.NoError(t, err)

	want := NewDict([]string{"name", "items"}, map[string]RuntimeValue{
		"name": StringValue("list"),
		"items": NewArray(
			NumberValue(1),
			NumberValue(2),
			NewDict([]string{"nested"}, map[string]RuntimeValue{"nested": BooleanValue(true)}),
		),
	})

	if diff := cmp.Diff(want, v); diff != "" {
		t.Fatalf("evaluated dict/array structure differs from expected (-want +got):\n%s", diff)
	}
}
