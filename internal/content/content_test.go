package content

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockIDDeterminism(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("equal content/role/namespace yield equal ids matching the textual form", prop.ForAll(
		func(text, role, ns string) bool {
			c := Text{TextValue: text, Format: TextPlain}
			id1 := NewBlockID(c.Normalize(), role, ns)
			id2 := NewBlockID(c.Normalize(), role, ns)
			return id1 == id2 && id1.Valid()
		},
		gen.AlphaString(), gen.AlphaString(), gen.AlphaString(),
	))

	properties.TestingRun(t)
}

func TestBlockIDDiffersOnRole(t *testing.T) {
	c := Text{TextValue: "same", Format: TextPlain}
	a := NewBlockID(c.Normalize(), "intro", "")
	b := NewBlockID(c.Normalize(), "body", "")
	assert.NotEqual(t, a, b)
}

func TestParseBlockIDRejectsMalformed(t *testing.T) {
	_, err := ParseBlockID("not-a-block-id")
	require.Error(t, err)
}

func TestContentCodecRoundTrip(t *testing.T) {
	cases := []Content{
		Text{TextValue: "hello", Format: TextMarkdown},
		Code{Language: "go", Source: "package main"},
		Table{Columns: []string{"a", "b"}, Rows: [][]string{{"1", "2"}}},
		Math{Expression: "x^2", DisplayMode: true, Format: MathLatex},
		JSON{Value: map[string]any{"b": 1.0, "a": "x"}},
		Binary{MimeType: "application/octet-stream", Data: []byte{1, 2, 3}},
		Composite{Layout: LayoutGrid, Children: []string{"blk_ff00000000000000000000"}},
	}
	for _, c := range cases {
		data, err := MarshalContent(c)
		require.NoError(t, err)
		got, err := UnmarshalContent(data)
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
}

func TestNormalizeWhitespaceCollapsePlainOnly(t *testing.T) {
	plain := Text{TextValue: "a   b\r\nc", Format: TextPlain}
	md := Text{TextValue: "a   b\r\nc", Format: TextMarkdown}
	assert.Equal(t, "text\x1eplain\x1ea b c", string(plain.Normalize()))
	assert.Contains(t, string(md.Normalize()), "a   b\nc")
}

func TestEdgeInversePairs(t *testing.T) {
	assert.Equal(t, EdgeCitedBy, EdgeReferences.Inverse())
	assert.Equal(t, EdgeReferences, EdgeCitedBy.Inverse())
	assert.Equal(t, EdgeContradicts, EdgeContradicts.Inverse())
	assert.Equal(t, EdgeChildOf, EdgeParentOf.Inverse())
}

func TestSemanticRoleDecomposition(t *testing.T) {
	r := SemanticRole("heading.h2.intro")
	assert.Equal(t, "heading", r.Category())
	sub, ok := r.Subcategory()
	assert.True(t, ok)
	assert.Equal(t, "h2", sub)
	q, ok := r.Qualifier()
	assert.True(t, ok)
	assert.Equal(t, "intro", q)
}

func TestStringSetPreservesInsertionOrder(t *testing.T) {
	s := NewStringSet()
	s.Add("b")
	s.Add("a")
	s.Add("b")
	assert.Equal(t, []string{"b", "a"}, s.Items())
	s.Remove("b")
	assert.Equal(t, []string{"a"}, s.Items())
}
