package document

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antonio7098/unified-content-protocol/internal/content"
	"github.com/antonio7098/unified-content-protocol/internal/ucperr"
)

func textInput(s string) NewBlockInput {
	return NewBlockInput{Content: content.Text{TextValue: s, Format: content.TextPlain}}
}

func TestCreateHasSingleRootBlock(t *testing.T) {
	doc := Create("Notebook")
	assert.Equal(t, 1, doc.BlockCount())
	assert.Equal(t, content.RootID, doc.Root)
	assert.Equal(t, uint64(1), doc.Version.Counter)
	_, ok := doc.GetBlock(content.RootID)
	require.NoError(t, ok)
}

func TestAddBlockDeterministicID(t *testing.T) {
	doc1 := Create("")
	doc2 := Create("")
	id1, err := doc1.AddBlock(doc1.Root, textInput("hello world"))
	require.NoError(t, err)
	id2, err := doc2.AddBlock(doc2.Root, textInput("hello world"))
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
}

func TestAddBlockAppendsAsLastChild(t *testing.T) {
	doc := Create("")
	a, err := doc.AddBlock(doc.Root, textInput("a"))
	require.NoError(t, err)
	b, err := doc.AddBlock(doc.Root, textInput("b"))
	require.NoError(t, err)
	assert.Equal(t, []content.BlockID{a, b}, doc.Children(doc.Root))
}

func TestAddBlockAtInsertsAtIndex(t *testing.T) {
	doc := Create("")
	a, _ := doc.AddBlock(doc.Root, textInput("a"))
	c, _ := doc.AddBlock(doc.Root, textInput("c"))
	b, err := doc.AddBlockAt(doc.Root, textInput("b"), 1)
	require.NoError(t, err)
	assert.Equal(t, []content.BlockID{a, b, c}, doc.Children(doc.Root))
}

func TestAddBlockUnknownParentFails(t *testing.T) {
	doc := Create("")
	_, err := doc.AddBlock("blk_does_not_exist00000000", textInput("x"))
	require.Error(t, err)
	assert.True(t, ucperr.Is(err, ucperr.E004ParentNotFound))
}

func TestAddBlockSameContentRequiresDistinctRoleOrNamespace(t *testing.T) {
	doc := Create("")
	_, err := doc.AddBlock(doc.Root, textInput("dup"))
	require.NoError(t, err)
	_, err = doc.AddBlock(doc.Root, textInput("dup"))
	require.Error(t, err)

	role := "body"
	in := textInput("dup")
	in.SemanticRole = &role
	_, err = doc.AddBlock(doc.Root, in)
	require.NoError(t, err, "a distinct semantic role must avoid the id collision")
}

func TestAddBlockLabelConflict(t *testing.T) {
	doc := Create("")
	label := "intro"
	in1 := textInput("one")
	in1.Label = &label
	_, err := doc.AddBlock(doc.Root, in1)
	require.NoError(t, err)

	in2 := textInput("two")
	in2.Label = &label
	_, err = doc.AddBlock(doc.Root, in2)
	require.Error(t, err)
	assert.True(t, ucperr.Is(err, ucperr.E003LabelConflict))
}

func TestMoveBlockRelocatesChild(t *testing.T) {
	doc := Create("")
	a, _ := doc.AddBlock(doc.Root, textInput("a"))
	b, _ := doc.AddBlock(doc.Root, textInput("b"))
	sub, _ := doc.AddBlock(a, textInput("sub"))

	err := doc.MoveBlock(sub, b, nil)
	require.NoError(t, err)
	assert.Empty(t, doc.Children(a))
	assert.Equal(t, []content.BlockID{sub}, doc.Children(b))
	p, ok := doc.Parent(sub)
	require.True(t, ok)
	assert.Equal(t, b, p)
}

func TestMoveBlockRejectsCycle(t *testing.T) {
	doc := Create("")
	a, _ := doc.AddBlock(doc.Root, textInput("a"))
	sub, _ := doc.AddBlock(a, textInput("sub"))

	err := doc.MoveBlock(a, sub, nil)
	require.Error(t, err)
	assert.True(t, ucperr.Is(err, ucperr.E201CycleDetected))
}

func TestMoveBlockRejectsSelf(t *testing.T) {
	doc := Create("")
	a, _ := doc.AddBlock(doc.Root, textInput("a"))
	err := doc.MoveBlock(a, a, nil)
	require.Error(t, err)
	assert.True(t, ucperr.Is(err, ucperr.E201CycleDetected))
}

func TestDeleteBlockRejectsRoot(t *testing.T) {
	doc := Create("")
	err := doc.DeleteBlock(doc.Root, true, false)
	require.Error(t, err)
	assert.True(t, ucperr.Is(err, ucperr.E204InvalidStructure))
}

func TestDeleteBlockRequiresCascadeOrPreserveWhenHasChildren(t *testing.T) {
	doc := Create("")
	a, _ := doc.AddBlock(doc.Root, textInput("a"))
	_, _ = doc.AddBlock(a, textInput("sub"))

	err := doc.DeleteBlock(a, false, false)
	require.Error(t, err)
	assert.True(t, ucperr.Is(err, ucperr.E005HasChildren))
}

func TestDeleteBlockCascadeRemovesSubtree(t *testing.T) {
	doc := Create("")
	a, _ := doc.AddBlock(doc.Root, textInput("a"))
	sub, _ := doc.AddBlock(a, textInput("sub"))

	err := doc.DeleteBlock(a, true, false)
	require.NoError(t, err)
	_, err = doc.GetBlock(a)
	assert.Error(t, err)
	_, err = doc.GetBlock(sub)
	assert.Error(t, err)
	assert.Empty(t, doc.Children(doc.Root))
}

func TestDeleteBlockPreserveChildrenRelocatesToParent(t *testing.T) {
	doc := Create("")
	a, _ := doc.AddBlock(doc.Root, textInput("a"))
	sub1, _ := doc.AddBlock(a, textInput("sub1"))
	sub2, _ := doc.AddBlock(a, textInput("sub2"))

	err := doc.DeleteBlock(a, false, true)
	require.NoError(t, err)
	assert.Equal(t, []content.BlockID{sub1, sub2}, doc.Children(doc.Root))
	p1, _ := doc.Parent(sub1)
	assert.Equal(t, doc.Root, p1)
}

func TestPruneUnreachableRemovesOrphans(t *testing.T) {
	doc := Create("")
	a, _ := doc.AddBlock(doc.Root, textInput("a"))
	sub, _ := doc.AddBlock(a, textInput("sub"))

	// Detach a from root without deleting it, simulating an orphaned subtree.
	doc.Structure[doc.Root] = removeID(doc.Structure[doc.Root], a)

	removed := doc.PruneUnreachable()
	assert.ElementsMatch(t, []content.BlockID{a, sub}, removed)
	assert.False(t, doc.IsReachable(a))
	_, err := doc.GetBlock(a)
	assert.Error(t, err)
}

func TestEdgeIndexIsBidirectional(t *testing.T) {
	doc := Create("")
	a, _ := doc.AddBlock(doc.Root, textInput("a"))
	b, _ := doc.AddBlock(doc.Root, textInput("b"))

	err := doc.AddEdge(a, content.EdgeReferences, b, nil, nil)
	require.NoError(t, err)

	assert.True(t, doc.HasEdge(a, content.EdgeReferences, b))
	assert.True(t, doc.HasIncomingEdge(b, content.EdgeCitedBy, a))

	incoming := doc.IncomingEdges(b)
	require.Len(t, incoming, 1)
	assert.Equal(t, a, incoming[0].Source)
	assert.Equal(t, content.EdgeCitedBy, incoming[0].EdgeType)
}

func TestRemoveEdgeUpdatesBothDirections(t *testing.T) {
	doc := Create("")
	a, _ := doc.AddBlock(doc.Root, textInput("a"))
	b, _ := doc.AddBlock(doc.Root, textInput("b"))
	require.NoError(t, doc.AddEdge(a, content.EdgeReferences, b, nil, nil))

	require.NoError(t, doc.RemoveEdge(a, content.EdgeReferences, b))
	assert.False(t, doc.HasEdge(a, content.EdgeReferences, b))
	assert.False(t, doc.HasIncomingEdge(b, content.EdgeCitedBy, a))
}

func TestDeleteBlockRemovesIncidentEdges(t *testing.T) {
	doc := Create("")
	a, _ := doc.AddBlock(doc.Root, textInput("a"))
	b, _ := doc.AddBlock(doc.Root, textInput("b"))
	require.NoError(t, doc.AddEdge(a, content.EdgeReferences, b, nil, nil))

	require.NoError(t, doc.DeleteBlock(a, false, false))
	assert.Empty(t, doc.IncomingEdges(b))
}

func TestFindByLabelTagRoleType(t *testing.T) {
	doc := Create("")
	label := "intro"
	role := "heading.h1"
	in := textInput("Title")
	in.Label = &label
	in.SemanticRole = &role
	in.Tags = []string{"important"}
	id, err := doc.AddBlock(doc.Root, in)
	require.NoError(t, err)

	b, ok := doc.FindByLabel("intro")
	require.True(t, ok)
	assert.Equal(t, id, b.ID)

	byTag := doc.FindByTag("important")
	require.Len(t, byTag, 1)
	assert.Equal(t, id, byTag[0].ID)

	byRole := doc.FindByRole("heading")
	require.Len(t, byRole, 1)
	assert.Equal(t, id, byRole[0].ID)

	byType := doc.FindByType(content.TagText)
	assert.GreaterOrEqual(t, len(byType), 1)
}

func TestStatsCountsBlocksAndOrphans(t *testing.T) {
	doc := Create("")
	a, _ := doc.AddBlock(doc.Root, textInput("a"))
	_, _ = doc.AddBlock(a, textInput("sub"))
	doc.Structure[doc.Root] = removeID(doc.Structure[doc.Root], a)

	stats := doc.Stats()
	assert.Equal(t, 3, stats.BlockCount)
	assert.Equal(t, 2, stats.OrphanCount)
}

func TestVersionCounterMonotonicallyIncreases(t *testing.T) {
	doc := Create("")
	before := doc.Version.Counter
	_, err := doc.AddBlock(doc.Root, textInput("a"))
	require.NoError(t, err)
	assert.Greater(t, doc.Version.Counter, before)
}

func TestStateHashChangesOnMutation(t *testing.T) {
	doc := Create("")
	before := doc.Version.StateHash
	_, err := doc.AddBlock(doc.Root, textInput("a"))
	require.NoError(t, err)
	assert.NotEqual(t, before, doc.Version.StateHash)
}

func TestStateHashDeterministic(t *testing.T) {
	doc1 := Create("same")
	doc2 := Create("same")
	_, err := doc1.AddBlock(doc1.Root, textInput("x"))
	require.NoError(t, err)
	_, err = doc2.AddBlock(doc2.Root, textInput("x"))
	require.NoError(t, err)
	// Document ids and timestamps are part of the hashed state and differ
	// between the two documents, so their hashes are not compared; instead
	// each document's hash is re-derived from its unchanged state and must
	// equal the stored one, and the two documents must agree in shape.
	assert.Equal(t, doc1.Version.StateHash, doc1.computeStateHash())
	assert.Equal(t, doc2.Version.StateHash, doc2.computeStateHash())
	assert.Equal(t, doc1.BlockCount(), doc2.BlockCount())
}

func TestDocumentJSONRoundTrip(t *testing.T) {
	doc := Create("Notebook")
	a, err := doc.AddBlock(doc.Root, textInput("hello"))
	require.NoError(t, err)
	b, err := doc.AddBlock(doc.Root, textInput("world"))
	require.NoError(t, err)
	require.NoError(t, doc.AddEdge(a, content.EdgeReferences, b, nil, nil))

	data, err := doc.MarshalJSON()
	require.NoError(t, err)

	restored, err := UnmarshalDocumentJSON(data)
	require.NoError(t, err)

	assert.Equal(t, doc.ID, restored.ID)
	assert.Equal(t, doc.Root, restored.Root)
	assert.Equal(t, doc.BlockCount(), restored.BlockCount())
	assert.Equal(t, doc.Version.StateHash, restored.Version.StateHash)
	assert.True(t, restored.HasEdge(a, content.EdgeReferences, b))
	assert.True(t, restored.HasIncomingEdge(b, content.EdgeCitedBy, a))

	data2, err := restored.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, data, data2)
}

func TestAddBlockAtClampsOutOfRangeIndex(t *testing.T) {
	doc := Create("")
	a, _ := doc.AddBlock(doc.Root, textInput("a"))
	b, err := doc.AddBlockAt(doc.Root, textInput("b"), 99)
	require.NoError(t, err)
	assert.Equal(t, []content.BlockID{a, b}, doc.Children(doc.Root))
}

func TestChildOrderSurvivesManyInserts(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("appended blocks preserve insertion order", prop.ForAll(
		func(words []string) bool {
			doc := Create("")
			var ids []content.BlockID
			seen := map[string]bool{}
			for i, w := range words {
				if seen[w] {
					continue
				}
				seen[w] = true
				id, err := doc.AddBlock(doc.Root, textInput(w+string(rune('a'+i%26))))
				if err != nil {
					return false
				}
				ids = append(ids, id)
			}
			got := doc.Children(doc.Root)
			if len(got) != len(ids) {
				return false
			}
			for i := range ids {
				if got[i] != ids[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}
