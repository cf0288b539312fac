package section

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antonio7098/unified-content-protocol/internal/content"
	"github.com/antonio7098/unified-content-protocol/internal/document"
)

func newHeadingDoc(t *testing.T) (*document.Document, content.BlockID) {
	t.Helper()
	doc := document.Create("")
	role := "heading1"
	id, err := doc.AddBlock(doc.Root, document.NewBlockInput{
		Content:      content.Text{TextValue: "Intro", Format: content.TextPlain},
		SemanticRole: &role,
	})
	require.NoError(t, err)
	return doc, id
}

func TestWriteSectionBuildsNestedHeadings(t *testing.T) {
	doc, heading := newHeadingDoc(t)
	md := "## Background\n\nSome prose.\n\n### Details\n\nMore prose.\n"

	res, err := WriteSection(doc, heading, md, nil)
	require.NoError(t, err)
	assert.Empty(t, res.RemovedIDs)
	assert.NotEmpty(t, res.AddedIDs)

	children := doc.Children(heading)
	require.Len(t, children, 1)
	background, err := doc.GetBlock(children[0])
	require.NoError(t, err)
	assert.Equal(t, content.Text{TextValue: "Background", Format: content.TextPlain}, background.Content)
	require.NotNil(t, background.Metadata.SemanticRole)
	assert.Equal(t, "heading2", string(*background.Metadata.SemanticRole))

	bgChildren := doc.Children(children[0])
	require.Len(t, bgChildren, 2)
	prose, err := doc.GetBlock(bgChildren[0])
	require.NoError(t, err)
	assert.Equal(t, content.Text{TextValue: "Some prose.", Format: content.TextMarkdown}, prose.Content)

	details, err := doc.GetBlock(bgChildren[1])
	require.NoError(t, err)
	require.NotNil(t, details.Metadata.SemanticRole)
	assert.Equal(t, "heading3", string(*details.Metadata.SemanticRole))
}

func TestWriteSectionBaseLevelOverride(t *testing.T) {
	doc, heading := newHeadingDoc(t)

	res, err := WriteSection(doc, heading, "# Whatever\n\nbody\n", intPtr(4))
	require.NoError(t, err)
	require.NotEmpty(t, res.AddedIDs)

	children := doc.Children(heading)
	require.Len(t, children, 1)
	blk, err := doc.GetBlock(children[0])
	require.NoError(t, err)
	require.NotNil(t, blk.Metadata.SemanticRole)
	assert.Equal(t, "heading4", string(*blk.Metadata.SemanticRole))
}

func TestWriteSectionCapturesFencedCode(t *testing.T) {
	doc, heading := newHeadingDoc(t)

	_, err := WriteSection(doc, heading, "```go\nfmt.Println(1)\n```\n", nil)
	require.NoError(t, err)

	children := doc.Children(heading)
	require.Len(t, children, 1)
	blk, err := doc.GetBlock(children[0])
	require.NoError(t, err)
	code, ok := blk.Content.(content.Code)
	require.True(t, ok)
	assert.Equal(t, "go", code.Language)
	assert.Equal(t, "fmt.Println(1)", code.Source)
}

func TestWriteSectionReplacesExistingSubtree(t *testing.T) {
	doc, heading := newHeadingDoc(t)
	_, err := doc.AddBlock(heading, document.NewBlockInput{Content: content.Text{TextValue: "old", Format: content.TextPlain}})
	require.NoError(t, err)

	res, err := WriteSection(doc, heading, "new content here\n", nil)
	require.NoError(t, err)
	require.Len(t, res.RemovedIDs, 1)

	children := doc.Children(heading)
	require.Len(t, children, 1)
	blk, err := doc.GetBlock(children[0])
	require.NoError(t, err)
	assert.Equal(t, content.Text{TextValue: "new content here", Format: content.TextMarkdown}, blk.Content)
}

func TestUndoRestoresRemovedSubtree(t *testing.T) {
	doc, heading := newHeadingDoc(t)
	label := "old-child"
	oldID, err := doc.AddBlock(heading, document.NewBlockInput{
		Content: content.Text{TextValue: "old", Format: content.TextPlain},
		Label:   &label,
	})
	require.NoError(t, err)

	res, err := WriteSection(doc, heading, "new content here\n", nil)
	require.NoError(t, err)

	err = Undo(doc, heading, res)
	require.NoError(t, err)

	children := doc.Children(heading)
	require.Len(t, children, 1)
	assert.Equal(t, oldID, children[0])
	blk, err := doc.GetBlock(oldID)
	require.NoError(t, err)
	require.NotNil(t, blk.Metadata.Label)
	assert.Equal(t, "old-child", *blk.Metadata.Label)
}

func TestWriteSectionUnknownHeadingFails(t *testing.T) {
	doc := document.Create("")
	_, err := WriteSection(doc, content.BlockID("blk_000000000000000000000000"), "x\n", nil)
	assert.Error(t, err)
}

func intPtr(n int) *int { return &n }
