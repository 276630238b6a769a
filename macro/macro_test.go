package macro

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mqscript/mqscript/ast"
	"github.com/mqscript/mqscript/token"
)

var zeroRng = token.Range{}

func numLit(n float64) *ast.Literal {
	return &ast.Literal{Base: ast.Base{Rng: zeroRng}, Kind: ast.LitNumber, Number: n}
}

func doubleMacro() *ast.Macro {
	body := ast.NewBlock(zeroRng, &ast.Quote{
		Base: ast.Base{Rng: zeroRng},
		Block: ast.NewBlock(zeroRng, &ast.Call{
			Base: ast.Base{Rng: zeroRng},
			Name: "add",
			Args: []ast.Node{
				&ast.Unquote{Base: ast.Base{Rng: zeroRng}, Inner: &ast.Ident{Base: ast.Base{Rng: zeroRng}, Name: "x"}},
				&ast.Unquote{Base: ast.Base{Rng: zeroRng}, Inner: &ast.Ident{Base: ast.Base{Rng: zeroRng}, Name: "x"}},
			},
		}),
	})
	return &ast.Macro{Base: ast.Base{Rng: zeroRng}, Name: "double", Params: []string{"x"}, Body: body}
}

func TestCollectRemovesMacroDeclarations(t *testing.T) {
	call := &ast.Call{Base: ast.Base{Rng: zeroRng}, Name: "double", Args: []ast.Node{numLit(21)}}
	prog := &ast.Program{ModuleID: "test", Body: ast.NewBlock(zeroRng, doubleMacro(), call)}

	e := Collect(prog)
	require.Contains(t, e.Macros, "double")
	require.Len(t, prog.Body.Exprs, 1)
	assert.Equal(t, call, prog.Body.Exprs[0])
}

func TestExpandSubstitutesUnquotedParams(t *testing.T) {
	call := &ast.Call{Base: ast.Base{Rng: zeroRng}, Name: "double", Args: []ast.Node{numLit(21)}}
	prog := &ast.Program{ModuleID: "test", Body: ast.NewBlock(zeroRng, doubleMacro(), call)}

	e := Collect(prog)
	e.Expand(prog)

	require.True(t, e.Bag.Empty())
	require.Len(t, prog.Body.Exprs, 1)
	// the macro's quote is unwrapped during expansion (spec §4.4: "the
	// final expansion contains no Quote"), leaving the quoted block itself.
	_, stillQuote := prog.Body.Exprs[0].(*ast.Quote)
	assert.False(t, stillQuote, "expansion must not leave a Quote node behind")

	block, ok := prog.Body.Exprs[0].(*ast.Block)
	require.True(t, ok)
	require.Len(t, block.Exprs, 1)
	addCall, ok := block.Exprs[0].(*ast.Call)
	require.True(t, ok)
	assert.Equal(t, "add", addCall.Name)
	require.Len(t, addCall.Args, 2)
	for _, a := range addCall.Args {
		lit, ok := a.(*ast.Literal)
		require.True(t, ok)
		assert.Equal(t, float64(21), lit.Number)
	}
}

func TestExpandDoesNotSubstituteFreeIdentInsideQuote(t *testing.T) {
	// macro capture(x): quote: x  -- the bare `x` inside the quote is NOT
	// the macro parameter's unquoted value; it is an ordinary identifier
	// reference left untouched (spec §4.4 hygiene rule).
	body := ast.NewBlock(zeroRng, &ast.Quote{
		Base:  ast.Base{Rng: zeroRng},
		Block: ast.NewBlock(zeroRng, &ast.Ident{Base: ast.Base{Rng: zeroRng}, Name: "x"}),
	})
	m := &ast.Macro{Base: ast.Base{Rng: zeroRng}, Name: "capture", Params: []string{"x"}, Body: body}
	call := &ast.Call{Base: ast.Base{Rng: zeroRng}, Name: "capture", Args: []ast.Node{numLit(99)}}
	prog := &ast.Program{ModuleID: "test", Body: ast.NewBlock(zeroRng, m, call)}

	e := Collect(prog)
	e.Expand(prog)

	require.True(t, e.Bag.Empty())
	block, ok := prog.Body.Exprs[0].(*ast.Block)
	require.True(t, ok)
	require.Len(t, block.Exprs, 1)
	id, ok := block.Exprs[0].(*ast.Ident)
	require.True(t, ok, "bare identifier inside quote must survive unsubstituted")
	assert.Equal(t, "x", id.Name)
}

func TestExpandCallWithParamCalleeBecomesCallDynamic(t *testing.T) {
	// macro apply(f, x): f(x) -- no quote at all: `f` is used directly as a
	// call's callee name and is itself a bound macro parameter, so the call
	// must become a CallDynamic around the bound callable (spec §4.4).
	body := ast.NewBlock(zeroRng, &ast.Call{
		Base: ast.Base{Rng: zeroRng},
		Name: "f",
		Args: []ast.Node{&ast.Ident{Base: ast.Base{Rng: zeroRng}, Name: "x"}},
	})
	m := &ast.Macro{Base: ast.Base{Rng: zeroRng}, Name: "apply", Params: []string{"f", "x"}, Body: body}
	callee := &ast.Ident{Base: ast.Base{Rng: zeroRng}, Name: "upcase"}
	call := &ast.Call{Base: ast.Base{Rng: zeroRng}, Name: "apply", Args: []ast.Node{callee, numLit(5)}}
	prog := &ast.Program{ModuleID: "test", Body: ast.NewBlock(zeroRng, m, call)}

	e := Collect(prog)
	e.Expand(prog)

	require.True(t, e.Bag.Empty())
	dyn, ok := prog.Body.Exprs[0].(*ast.CallDynamic)
	require.True(t, ok)
	assert.Same(t, callee, dyn.Callable)
	require.Len(t, dyn.Args, 1)
	lit, ok := dyn.Args[0].(*ast.Literal)
	require.True(t, ok)
	assert.Equal(t, float64(5), lit.Number)
}

func TestExpandDefParamsShadowMacroParam(t *testing.T) {
	// macro wrap(x): def inner(x): x  -- the nested Def's own `x` parameter
	// shadows the macro's `x`, so substitution must not reach into its body.
	innerBody := ast.NewBlock(zeroRng, &ast.Ident{Base: ast.Base{Rng: zeroRng}, Name: "x"})
	def := &ast.Def{Base: ast.Base{Rng: zeroRng}, Name: "inner", Params: []string{"x"}, Body: innerBody}
	body := ast.NewBlock(zeroRng, def)
	m := &ast.Macro{Base: ast.Base{Rng: zeroRng}, Name: "wrap", Params: []string{"x"}, Body: body}
	call := &ast.Call{Base: ast.Base{Rng: zeroRng}, Name: "wrap", Args: []ast.Node{numLit(7)}}
	prog := &ast.Program{ModuleID: "test", Body: ast.NewBlock(zeroRng, m, call)}

	e := Collect(prog)
	e.Expand(prog)

	require.True(t, e.Bag.Empty())
	gotDef, ok := prog.Body.Exprs[0].(*ast.Def)
	require.True(t, ok)
	innerIdent, ok := gotDef.Body.(*ast.Block).Exprs[0].(*ast.Ident)
	require.True(t, ok, "inner def's own x must not be replaced by the macro's bound literal")
	assert.Equal(t, "x", innerIdent.Name)
}

func TestExpandArityMismatchReportsDiagnostic(t *testing.T) {
	call := &ast.Call{Base: ast.Base{Rng: zeroRng}, Name: "double", Args: []ast.Node{numLit(1), numLit(2)}}
	prog := &ast.Program{ModuleID: "test", Body: ast.NewBlock(zeroRng, doubleMacro(), call)}

	e := Collect(prog)
	e.Expand(prog)

	items := e.Bag.Items()
	require.Len(t, items, 1)
	assert.Contains(t, items[0].Message, "double")
}

func TestExpandWithNoMacrosIsNoop(t *testing.T) {
	call := &ast.Call{Base: ast.Base{Rng: zeroRng}, Name: "add", Args: []ast.Node{numLit(1), numLit(2)}}
	prog := &ast.Program{ModuleID: "test", Body: ast.NewBlock(zeroRng, call)}

	e := Collect(prog)
	e.Expand(prog)

	require.Len(t, prog.Body.Exprs, 1)
	assert.Equal(t, call, prog.Body.Exprs[0])
}
