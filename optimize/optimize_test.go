package optimize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mqscript/mqscript/ast"
	"github.com/mqscript/mqscript/parser"
)

func parseProg(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, bag := parser.Parse(src, "test")
	require.NotNil(t, prog)
	require.True(t, bag.Empty(), "parse diagnostics: %v", bag.Items())
	return prog
}

func TestConstantFoldingArithmetic(t *testing.T) {
	prog := parseProg(t, "1 + 2 * 3")
	Run(prog)
	require.Len(t, prog.Body.Exprs, 1)
	lit, ok := prog.Body.Exprs[0].(*ast.Literal)
	require.True(t, ok)
	assert.Equal(t, ast.LitNumber, lit.Kind)
	assert.Equal(t, float64(7), lit.Number)
}

func TestConstantFoldingString(t *testing.T) {
	prog := parseProg(t, `"hi" | upcase()`)
	Run(prog)
	require.Len(t, prog.Body.Exprs, 2)
	// upcase() is piped with no literal argument of its own (the pipe's
	// implicit self-threading happens at eval time, not parse/fold time),
	// so tryFold's Call(op, [literal,literal])-shaped rule doesn't apply
	// and it is left unfolded here.
	_, ok := prog.Body.Exprs[1].(*ast.Call)
	assert.True(t, ok)
}

func TestConstantFoldingStringBuiltinOverLiteral(t *testing.T) {
	prog := parseProg(t, `upcase("hi")`)
	Run(prog)
	require.Len(t, prog.Body.Exprs, 1)
	lit, ok := prog.Body.Exprs[0].(*ast.Literal)
	require.True(t, ok)
	assert.Equal(t, "HI", lit.Str)
}

func TestDeadLetEliminated(t *testing.T) {
	prog := parseProg(t, "let unused = 1\n2")
	Run(prog)
	require.Len(t, prog.Body.Exprs, 1)
	lit, ok := prog.Body.Exprs[0].(*ast.Literal)
	require.True(t, ok)
	assert.Equal(t, float64(2), lit.Number)
}

func TestLiveLetIsKept(t *testing.T) {
	// x's value isn't literal-foldable, so it never becomes a known constant
	// and the reference in the second expression keeps the binding live
	// across every fixed-point iteration.
	prog := parseProg(t, "let x = unknown_fn()\nx + 1")
	Run(prog)
	require.Len(t, prog.Body.Exprs, 2)
	_, ok := prog.Body.Exprs[0].(*ast.Let)
	assert.True(t, ok)
}

func TestConstantPropagationCollapsesDependentLet(t *testing.T) {
	// Once x's literal value propagates into `x + 1` and folds it to a
	// literal, the let itself becomes unused and a later pass removes it:
	// the whole program collapses to a single literal.
	prog := parseProg(t, "let x = 1\nx + 1")
	Run(prog)
	require.Len(t, prog.Body.Exprs, 1)
	lit, ok := prog.Body.Exprs[0].(*ast.Literal)
	require.True(t, ok)
	assert.Equal(t, float64(2), lit.Number)
}

func TestConstantPropagationIntoInterpolatedString(t *testing.T) {
	prog := parseProg(t, `let name = "world"` + "\n" + `s"hello ${name}"`)
	Run(prog)
	lit, ok := prog.Body.Exprs[len(prog.Body.Exprs)-1].(*ast.Literal)
	require.True(t, ok)
	assert.Equal(t, "hello world", lit.Str)
}

func TestStringConcatenationFolds(t *testing.T) {
	prog := parseProg(t, `"foo" + "bar"`)
	Run(prog)
	require.Len(t, prog.Body.Exprs, 1)
	lit, ok := prog.Body.Exprs[0].(*ast.Literal)
	require.True(t, ok)
	assert.Equal(t, "foobar", lit.Str)
}

func TestSmallNonRecursiveFunctionIsInlined(t *testing.T) {
	prog := parseProg(t, "def inc(x): x + 1\ninc(41)")
	Run(prog)
	// the call site folds all the way down to a single literal once
	// inlining substitutes x=41 into `x + 1` and folding reduces it
	found := false
	for _, e := range prog.Body.Exprs {
		if lit, ok := e.(*ast.Literal); ok && lit.Kind == ast.LitNumber && lit.Number == 42 {
			found = true
		}
	}
	assert.True(t, found)
}

func TestRecursiveFunctionIsNotInlined(t *testing.T) {
	prog := parseProg(t, "def count(x): if x > 0: count(x - 1) else: 0 end\ncount(3)")
	Run(prog)
	sawCall := false
	for _, e := range prog.Body.Exprs {
		if call, ok := e.(*ast.Call); ok && call.Name == "count" {
			sawCall = true
		}
	}
	assert.True(t, sawCall)
}
