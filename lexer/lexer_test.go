package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mqscript/mqscript/token"
)

type tokenExpectation struct {
	kind token.Kind
	text string
}

func lexAll(t *testing.T, src string) []token.Token {
	t.Helper()
	toks, err := New(src, "test").All()
	require.NoError(t, err)
	return toks
}

func TestBasicPunctuation(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []tokenExpectation
	}{
		{"equals", "=", []tokenExpectation{{token.Assign, "="}, {token.Eof, ""}}},
		{"colon", ":", []tokenExpectation{{token.Colon, ":"}, {token.Eof, ""}}},
		{"pipe", "|", []tokenExpectation{{token.Pipe, "|"}, {token.Eof, ""}}},
		{"braces", "{}", []tokenExpectation{{token.LBrace, "{"}, {token.RBrace, "}"}, {token.Eof, ""}}},
		{"brackets", "[]", []tokenExpectation{{token.LBracket, "["}, {token.RBracket, "]"}, {token.Eof, ""}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks := lexAll(t, tt.input)
			require.Len(t, toks, len(tt.expected))
			for i, exp := range tt.expected {
				assert.Equal(t, exp.kind, toks[i].Kind, "token %d", i)
			}
		})
	}
}

func TestOperators(t *testing.T) {
	tests := []struct {
		input string
		kind  token.Kind
	}{
		{"==", token.EqEq}, {"!=", token.NotEq}, {"<=", token.LtEq}, {">=", token.GtEq},
		{"&&", token.AndAnd}, {"||", token.OrOr}, {"??", token.Coalesce}, {"=~", token.Match},
		{"<<", token.Shl}, {">>", token.Shr}, {"+=", token.PlusAssign}, {"-=", token.MinusAssign},
		{"..", token.DotDot},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			toks := lexAll(t, tt.input)
			require.GreaterOrEqual(t, len(toks), 1)
			assert.Equal(t, tt.kind, toks[0].Kind)
		})
	}
}

func TestKeywordBoundary(t *testing.T) {
	// "iffy" must lex as an identifier, not `if` + `fy`.
	toks := lexAll(t, "iffy")
	require.Len(t, toks, 2)
	assert.Equal(t, token.Ident, toks[0].Kind)
	assert.Equal(t, "iffy", toks[0].Text)
}

func TestKeywords(t *testing.T) {
	toks := lexAll(t, "if elif else while until foreach try catch match macro quote unquote")
	var kinds []token.Kind
	for _, tok := range toks {
		if tok.Kind != token.Eof {
			kinds = append(kinds, tok.Kind)
		}
	}
	assert.Equal(t, []token.Kind{
		token.KwIf, token.KwElif, token.KwElse, token.KwWhile, token.KwUntil,
		token.KwForeach, token.KwTry, token.KwCatch, token.KwMatch, token.KwMacro,
		token.KwQuote, token.KwUnquote,
	}, kinds)
}

func TestSelector(t *testing.T) {
	toks := lexAll(t, ".h1")
	require.GreaterOrEqual(t, len(toks), 1)
	assert.Equal(t, token.Selector, toks[0].Kind)
	assert.Equal(t, ".h1", toks[0].Text)
}

func TestSelectorWithIndex(t *testing.T) {
	toks := lexAll(t, ".[0]")
	require.GreaterOrEqual(t, len(toks), 4)
	assert.Equal(t, token.Selector, toks[0].Kind)
	assert.Equal(t, token.LBracket, toks[1].Kind)
	assert.Equal(t, token.Number, toks[2].Kind)
	assert.Equal(t, token.RBracket, toks[3].Kind)
}

func TestNumbers(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"123", 123}, {"3.14", 3.14}, {"1e6", 1e6}, {"2.5e-3", 2.5e-3}, {"1.23e+4", 1.23e4},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			toks := lexAll(t, tt.input)
			require.GreaterOrEqual(t, len(toks), 1)
			assert.Equal(t, token.Number, toks[0].Kind)
			assert.InDelta(t, tt.want, toks[0].NumberVal, 1e-9)
		})
	}
}

func TestSimpleString(t *testing.T) {
	toks := lexAll(t, `"hello\nworld"`)
	require.GreaterOrEqual(t, len(toks), 1)
	assert.Equal(t, token.String, toks[0].Kind)
	assert.Equal(t, "hello\nworld", toks[0].Text)
}

func TestInterpolatedString(t *testing.T) {
	toks := lexAll(t, `s"hi ${name}!"`)
	require.GreaterOrEqual(t, len(toks), 1)
	tok := toks[0]
	require.Equal(t, token.InterpString, tok.Kind)
	require.Len(t, tok.Segments, 3)
	assert.Equal(t, token.SegText, tok.Segments[0].Kind)
	assert.Equal(t, "hi ", tok.Segments[0].Text)
	assert.Equal(t, token.SegExpr, tok.Segments[1].Kind)
	assert.Equal(t, "name", tok.Segments[1].Text)
	assert.Equal(t, token.SegText, tok.Segments[2].Kind)
	assert.Equal(t, "!", tok.Segments[2].Text)
}

func TestInterpolatedDollarEscape(t *testing.T) {
	toks := lexAll(t, `s"cost: $$5"`)
	require.Len(t, toks[0].Segments, 1)
	assert.Equal(t, "cost: $5", toks[0].Segments[0].Text)
}

func TestUnicodeEscape(t *testing.T) {
	toks := lexAll(t, `"\u{1F600}"`)
	assert.Equal(t, "😀", toks[0].Text)
}

func TestHexEscape(t *testing.T) {
	toks := lexAll(t, `"\x41"`)
	assert.Equal(t, "A", toks[0].Text)
}

func TestUnterminatedStringIsEOFError(t *testing.T) {
	_, err := New(`"unterminated`, "test").All()
	require.Error(t, err)
	var lexErr *Error
	require.ErrorAs(t, err, &lexErr)
}

func TestEnvRef(t *testing.T) {
	toks := lexAll(t, "$HOME")
	assert.Equal(t, token.EnvRef, toks[0].Kind)
	assert.Equal(t, "HOME", toks[0].Text)
}

func TestFullModeRetainsTrivia(t *testing.T) {
	toks, err := New("let x = 1 # comment\n", "test", WithMode(Full)).All()
	require.NoError(t, err)
	var sawComment, sawWhitespace bool
	for _, tok := range toks {
		if tok.Kind == token.Comment {
			sawComment = true
		}
		if tok.Kind == token.Whitespace {
			sawWhitespace = true
		}
	}
	assert.True(t, sawComment)
	assert.True(t, sawWhitespace)
}

func TestCompactModeDropsTrivia(t *testing.T) {
	toks := lexAll(t, "let x = 1 # comment\n")
	for _, tok := range toks {
		assert.NotEqual(t, token.Comment, tok.Kind)
		assert.NotEqual(t, token.Whitespace, tok.Kind)
		assert.NotEqual(t, token.Newline, tok.Kind)
	}
}

func TestEOFRangeIsEmptyAtFinalColumn(t *testing.T) {
	toks := lexAll(t, "x")
	eof := toks[len(toks)-1]
	assert.Equal(t, token.Eof, eof.Kind)
	assert.Equal(t, eof.Rng.Start, eof.Rng.End)
}

// Round-trip: concatenating every token (and trivia, in Full mode) in order
// reconstructs the input byte-for-byte (spec §8 property 1, exercised at the
// lexer level; the CST-level property is exercised in package cst).
func TestFullModeRoundTrip(t *testing.T) {
	src := "let x = 1 + 2 # add\nvar y = x * 2\n"
	toks, err := New(src, "test", WithMode(Full)).All()
	require.NoError(t, err)
	var sb []byte
	for _, tok := range toks {
		if tok.Kind == token.Eof {
			continue
		}
		sb = append(sb, tok.Text...)
	}
	assert.Equal(t, src, string(sb))
}
