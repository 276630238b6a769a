package cst_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mqscript/mqscript/cst"
	"github.com/mqscript/mqscript/lexer"
	"github.com/mqscript/mqscript/token"
)

func TestRoundTripReconstructsSourceByteForByte(t *testing.T) {
	srcs := []string{
		"let x = 5 | x + 1",
		"def double(x): x * 2; | double(21)\n",
		"  # a comment\nvar y = 1\n",
		"",
	}
	for _, src := range srcs {
		toks, err := lexer.New(src, "test", lexer.WithMode(lexer.Full)).All()
		require.NoError(t, err)
		tree := cst.Build(toks)
		assert.Equal(t, src, tree.Render())
	}
}

func TestAllTokensConcatenateToSource(t *testing.T) {
	src := "if (x == 1): y else: z end"
	toks, err := lexer.New(src, "test", lexer.WithMode(lexer.Full)).All()
	require.NoError(t, err)
	tree := cst.Build(toks)
	var sb []byte
	for _, t := range tree.AllTokens() {
		if t.Kind == token.Eof {
			continue
		}
		sb = append(sb, t.Text...)
	}
	assert.Equal(t, src, string(sb))
}

func TestContainsRange(t *testing.T) {
	src := "let x = 1 | x"
	toks, err := lexer.New(src, "test", lexer.WithMode(lexer.Full)).All()
	require.NoError(t, err)
	tree := cst.Build(toks)
	assert.True(t, tree.ContainsRange())
}
