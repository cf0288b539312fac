package ucl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antonio7098/unified-content-protocol/internal/content"
	"github.com/antonio7098/unified-content-protocol/internal/document"
	"github.com/antonio7098/unified-content-protocol/internal/idmapper"
	"github.com/antonio7098/unified-content-protocol/internal/snapshot/memory"
	"github.com/antonio7098/unified-content-protocol/internal/transaction"
)

func newExecutor(doc *document.Document) *Executor {
	mapper := idmapper.Seed(doc)
	return NewExecutor(doc, mapper, memory.New(0), transaction.NewManager(0))
}

func TestRunAppendCreatesTextBlock(t *testing.T) {
	doc := document.Create("")
	ex := newExecutor(doc)

	results, err := ex.Run(context.Background(), "APPEND 1 text :: hello there")
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.True(t, results[0].Success)
	require.Len(t, results[0].AffectedBlocks, 1)

	b, err := ex.Document().GetBlock(results[0].AffectedBlocks[0])
	require.NoError(t, err)
	assert.Equal(t, content.Text{TextValue: "hello there", Format: content.TextPlain}, b.Content)
}

func TestRunEditSetLabel(t *testing.T) {
	doc := document.Create("")
	id, err := doc.AddBlock(doc.Root, document.NewBlockInput{Content: content.Text{TextValue: "x", Format: content.TextPlain}})
	require.NoError(t, err)
	ex := newExecutor(doc)
	short, ok := ex.mapper.ToShort(id)
	require.True(t, ok)

	script := Render(Command{
		Kind:       CmdEdit,
		EditTarget: BlockRef{Kind: RefShort, Short: short},
		EditVerb:   EditVerbSet,
		EditPath:   "metadata.label",
		EditValue:  Value{Kind: ValueString, Str: "intro"},
	})
	_, err = ex.Run(context.Background(), script)
	require.NoError(t, err)

	b, err := ex.Document().GetBlock(id)
	require.NoError(t, err)
	require.NotNil(t, b.Metadata.Label)
	assert.Equal(t, "intro", *b.Metadata.Label)
}

func TestRunLinkByLabel(t *testing.T) {
	doc := document.Create("")
	label := "a"
	a, err := doc.AddBlock(doc.Root, document.NewBlockInput{Content: content.Text{TextValue: "a", Format: content.TextPlain}, Label: &label})
	require.NoError(t, err)
	b, err := doc.AddBlock(doc.Root, document.NewBlockInput{Content: content.Text{TextValue: "b", Format: content.TextPlain}})
	require.NoError(t, err)
	ex := newExecutor(doc)
	bShort, _ := ex.mapper.ToShort(b)

	script := "LINK a references " + itoaExec(bShort)
	results, err := ex.Run(context.Background(), script)
	require.NoError(t, err)
	require.True(t, results[0].Success)
	assert.True(t, ex.Document().HasEdge(a, content.EdgeReferences, b))
}

func TestRunAtomicAllOrNothing(t *testing.T) {
	doc := document.Create("")
	ex := newExecutor(doc)
	before := doc.BlockCount()

	script := "ATOMIC {\nAPPEND 1 text :: first\nDELETE 1\n}"
	_, err := ex.Run(context.Background(), script)
	require.Error(t, err)
	assert.Equal(t, before, ex.Document().BlockCount())
}

func TestRunAtomicCommitsAllOnSuccess(t *testing.T) {
	doc := document.Create("")
	ex := newExecutor(doc)

	script := "ATOMIC {\nAPPEND 1 text :: first\nAPPEND 1 text :: second\n}"
	results, err := ex.Run(context.Background(), script)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 3, ex.Document().BlockCount())
}

func TestRunSnapshotCreateAndRestore(t *testing.T) {
	doc := document.Create("")
	ex := newExecutor(doc)

	_, err := ex.Run(context.Background(), `SNAPSHOT CREATE "v1"`)
	require.NoError(t, err)

	_, err = ex.Run(context.Background(), "APPEND 1 text :: mutated")
	require.NoError(t, err)
	require.Equal(t, 2, ex.Document().BlockCount())

	_, err = ex.Run(context.Background(), `SNAPSHOT RESTORE "v1"`)
	require.NoError(t, err)
	assert.Equal(t, 1, ex.Document().BlockCount())
}

func TestRunUnknownEdgeTypeFails(t *testing.T) {
	doc := document.Create("")
	ex := newExecutor(doc)
	_, err := ex.Run(context.Background(), "LINK 1 bogus_edge 1")
	assert.Error(t, err)
}

func TestRunEmptyScript(t *testing.T) {
	doc := document.Create("")
	ex := newExecutor(doc)
	results, err := ex.Run(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func itoaExec(n int) string {
	if n == 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
