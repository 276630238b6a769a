package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mqscript/mqscript/ast"
)

func parseOK(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, bag := Parse(src, "test")
	require.NotNil(t, prog)
	require.True(t, bag.Empty(), "unexpected diagnostics: %v", bag.Items())
	return prog
}

func TestParseLetAndArithmetic(t *testing.T) {
	prog := parseOK(t, "let x = 1 + 2 * 3")
	require.Len(t, prog.Body.Exprs, 1)
	let, ok := prog.Body.Exprs[0].(*ast.Let)
	require.True(t, ok)
	assert.Equal(t, "x", let.Name)
	call, ok := let.Value.(*ast.Call)
	require.True(t, ok)
	assert.Equal(t, "add", call.Name)
	require.Len(t, call.Args, 2)
	rhs, ok := call.Args[1].(*ast.Call)
	require.True(t, ok)
	assert.Equal(t, "mul", rhs.Name)
}

func TestOperatorPrecedence(t *testing.T) {
	prog := parseOK(t, "let x = 1 + 2 == 3 && 4 < 5")
	let := prog.Body.Exprs[0].(*ast.Let)
	and, ok := let.Value.(*ast.And)
	require.True(t, ok)
	eq, ok := and.L.(*ast.Call)
	require.True(t, ok)
	assert.Equal(t, "eq", eq.Name)
	lt, ok := and.R.(*ast.Call)
	require.True(t, ok)
	assert.Equal(t, "lt", lt.Name)
}

func TestCompoundAssignmentDesugars(t *testing.T) {
	prog := parseOK(t, "var x = 1\nx += 1")
	require.Len(t, prog.Body.Exprs, 2)
	assign, ok := prog.Body.Exprs[1].(*ast.Assign)
	require.True(t, ok)
	assert.Equal(t, "x", assign.Name)
	call, ok := assign.Value.(*ast.Call)
	require.True(t, ok)
	assert.Equal(t, "add", call.Name)
	ident, ok := call.Args[0].(*ast.Ident)
	require.True(t, ok)
	assert.Equal(t, "x", ident.Name)
}

func TestIfColonBodyTerminatesAtPipe(t *testing.T) {
	prog := parseOK(t, "if x > 0: 1 | upcase")
	ifNode, ok := prog.Body.Exprs[0].(*ast.If)
	require.True(t, ok)
	require.Len(t, ifNode.Branches, 1)
}

func TestIfElifElseWithEnd(t *testing.T) {
	prog := parseOK(t, `
if x > 0
  1
elif x < 0
  2
else
  3
end`)
	ifNode, ok := prog.Body.Exprs[0].(*ast.If)
	require.True(t, ok)
	require.Len(t, ifNode.Branches, 3)
	assert.Nil(t, ifNode.Branches[2].Cond)
}

func TestWhileAndUntilAreDistinctNodes(t *testing.T) {
	prog := parseOK(t, "while x < 10: x += 1\nuntil x >= 10: x += 1")
	_, ok := prog.Body.Exprs[0].(*ast.While)
	assert.True(t, ok)
	_, ok = prog.Body.Exprs[1].(*ast.Until)
	assert.True(t, ok)
}

func TestForeach(t *testing.T) {
	prog := parseOK(t, "foreach(item, items): item")
	fe, ok := prog.Body.Exprs[0].(*ast.Foreach)
	require.True(t, ok)
	assert.Equal(t, "item", fe.Var)
}

func TestDefAndCall(t *testing.T) {
	prog := parseOK(t, "def add_one(x): x + 1\nadd_one(41)")
	def, ok := prog.Body.Exprs[0].(*ast.Def)
	require.True(t, ok)
	assert.Equal(t, "add_one", def.Name)
	assert.Equal(t, []string{"x"}, def.Params)
	call, ok := prog.Body.Exprs[1].(*ast.Call)
	require.True(t, ok)
	assert.Equal(t, "add_one", call.Name)
}

func TestSelectorChainLeading(t *testing.T) {
	prog := parseOK(t, ".list.checked")
	sel, ok := prog.Body.Exprs[0].(*ast.Selector)
	require.True(t, ok)
	assert.Equal(t, []string{"list", "checked"}, sel.Path)
}

func TestModuleQualifiedAccessAfterIdent(t *testing.T) {
	prog := parseOK(t, "mymodule.func")
	qa, ok := prog.Body.Exprs[0].(*ast.QualifiedAccess)
	require.True(t, ok)
	assert.Equal(t, []string{"mymodule"}, qa.Path)
	assert.Equal(t, "func", qa.Target)
}

func TestArrayAndDictLiterals(t *testing.T) {
	prog := parseOK(t, `[1, 2, 3]`)
	arr, ok := prog.Body.Exprs[0].(*ast.Array)
	require.True(t, ok)
	assert.Len(t, arr.Elems, 3)

	prog = parseOK(t, `{a: 1, b: 2}`)
	dict, ok := prog.Body.Exprs[0].(*ast.Dict)
	require.True(t, ok)
	assert.Len(t, dict.Entries, 2)
}

func TestTryCatch(t *testing.T) {
	prog := parseOK(t, "try: 1 / 0 catch: 0")
	tr, ok := prog.Body.Exprs[0].(*ast.Try)
	require.True(t, ok)
	assert.NotNil(t, tr.TryExpr)
	assert.NotNil(t, tr.CatchExpr)
}

func TestMatch(t *testing.T) {
	prog := parseOK(t, `match (x): | 1: "one" | _: "other" end`)
	m, ok := prog.Body.Exprs[0].(*ast.Match)
	require.True(t, ok)
	require.Len(t, m.Arms, 2)
}

func TestMacroQuoteUnquote(t *testing.T) {
	prog := parseOK(t, "macro twice(x): quote: unquote(x) + unquote(x) end end")
	mac, ok := prog.Body.Exprs[0].(*ast.Macro)
	require.True(t, ok)
	assert.Equal(t, "twice", mac.Name)
}

func TestEnvRefPrimary(t *testing.T) {
	prog := parseOK(t, "$HOME")
	ref, ok := prog.Body.Exprs[0].(*ast.EnvRef)
	require.True(t, ok)
	assert.Equal(t, "HOME", ref.Name)
}

func TestParserRecoversFromSyntaxError(t *testing.T) {
	_, bag := Parse("let = \nlet y = 2", "test")
	assert.False(t, bag.Empty())
}
