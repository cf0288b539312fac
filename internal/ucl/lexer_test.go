package ucl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizeKeywordsAreCaseInsensitive(t *testing.T) {
	toks, err := NewLexer("edit 1 set text = \"x\"").Tokenize()
	require.NoError(t, err)
	require.True(t, len(toks) > 0)
	assert.Equal(t, TokKeyword, toks[0].Kind)
	assert.Equal(t, "EDIT", toks[0].Text)
}

func TestTokenizeFullBlockID(t *testing.T) {
	toks, err := NewLexer("blk_aaaaaaaaaaaaaaaaaaaaaaaa").Tokenize()
	require.NoError(t, err)
	assert.Equal(t, TokBlockID, toks[0].Kind)
}

func TestTokenizeCapturesRawLineAfterDoubleColon(t *testing.T) {
	toks, err := NewLexer("APPEND 1 text :: hello *world* #tag\nMOVE 2 TO 1").Tokenize()
	require.NoError(t, err)
	var raw string
	found := false
	for _, tk := range toks {
		if tk.Kind == TokRawLine {
			raw = tk.Text
			found = true
		}
	}
	require.True(t, found)
	assert.Equal(t, "hello *world* #tag", raw)
}

func TestTokenizeStringEscapes(t *testing.T) {
	toks, err := NewLexer(`"a\"b\nc"`).Tokenize()
	require.NoError(t, err)
	require.Equal(t, TokString, toks[0].Kind)
	assert.Equal(t, "a\"b\nc", toks[0].Text)
}

func TestTokenizeIgnoresLineComments(t *testing.T) {
	toks, err := NewLexer("// a comment\nDELETE 1").Tokenize()
	require.NoError(t, err)
	assert.Equal(t, TokNewline, toks[0].Kind)
	assert.Equal(t, TokKeyword, toks[1].Kind)
}

func TestTokenizeUnterminatedStringFails(t *testing.T) {
	_, err := NewLexer(`"abc`).Tokenize()
	assert.Error(t, err)
}
