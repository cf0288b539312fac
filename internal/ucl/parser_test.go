package ucl

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antonio7098/unified-content-protocol/internal/ucperr"
)

func TestParseEditSet(t *testing.T) {
	cmds, err := Parse(`EDIT blk_aaaaaaaaaaaaaaaaaaaaaaaa SET metadata.label = "x"`)
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	cmd := cmds[0]
	assert.Equal(t, CmdEdit, cmd.Kind)
	assert.Equal(t, RefFull, cmd.EditTarget.Kind)
	assert.Equal(t, EditVerbSet, cmd.EditVerb)
	assert.Equal(t, "metadata.label", cmd.EditPath)
	assert.Equal(t, "x", cmd.EditValue.Str)
}

func TestParseAppendWithPropsAndIndex(t *testing.T) {
	cmds, err := Parse(`APPEND 1 text WITH label="intro" AT 2 :: hello world`)
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	cmd := cmds[0]
	assert.Equal(t, CmdAppend, cmd.Kind)
	assert.Equal(t, RefShort, cmd.AppendTarget.Kind)
	assert.Equal(t, 1, cmd.AppendTarget.Short)
	assert.Equal(t, "text", cmd.AppendType)
	require.NotNil(t, cmd.AppendAt)
	assert.Equal(t, 2, *cmd.AppendAt)
	assert.Equal(t, "hello world", cmd.AppendBody)
	v, ok := cmd.AppendProps.Get("label")
	require.True(t, ok)
	assert.Equal(t, "intro", v.Str)
}

func TestParseMoveToBeforeAfter(t *testing.T) {
	cmds, err := Parse("MOVE 1 TO 2 AT 0\nMOVE 1 BEFORE 2\nMOVE 1 AFTER 2")
	require.NoError(t, err)
	require.Len(t, cmds, 3)
	assert.Equal(t, MoveTo, cmds[0].MoveVerbKind)
	assert.Equal(t, MoveBefore, cmds[1].MoveVerbKind)
	assert.Equal(t, MoveAfter, cmds[2].MoveVerbKind)
}

func TestParseDeleteCascade(t *testing.T) {
	cmds, err := Parse("DELETE 1 CASCADE")
	require.NoError(t, err)
	assert.True(t, cmds[0].DeleteCascade)
}

func TestParseLinkWithProps(t *testing.T) {
	cmds, err := Parse(`LINK 1 references 2 WITH confidence=0.9`)
	require.NoError(t, err)
	cmd := cmds[0]
	assert.Equal(t, CmdLink, cmd.Kind)
	assert.Equal(t, "references", cmd.LinkEdgeType)
	v, ok := cmd.LinkProps.Get("confidence")
	require.True(t, ok)
	assert.InDelta(t, 0.9, v.Num, 0.0001)
}

func TestParsePruneUnreachable(t *testing.T) {
	cmds, err := Parse("PRUNE UNREACHABLE")
	require.NoError(t, err)
	assert.Equal(t, PruneUnreachable, cmds[0].PruneVerbKind)
}

func TestParsePruneWhereTag(t *testing.T) {
	cmds, err := Parse(`PRUNE WHERE tag="draft"`)
	require.NoError(t, err)
	assert.Equal(t, "draft", cmds[0].PruneTag)
}

func TestParseSnapshotCreate(t *testing.T) {
	cmds, err := Parse(`SNAPSHOT CREATE "v1" WITH description="first"`)
	require.NoError(t, err)
	cmd := cmds[0]
	assert.Equal(t, SnapshotCreate, cmd.SnapshotVerbKind)
	assert.Equal(t, "v1", cmd.SnapshotName)
}

func TestParseAtomicBlock(t *testing.T) {
	script := "ATOMIC {\nAPPEND 1 text :: a\nAPPEND 1 text :: b\n}"
	cmds, err := Parse(script)
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	assert.Equal(t, CmdAtomic, cmds[0].Kind)
	require.Len(t, cmds[0].AtomicBody, 2)
}

func TestParseEmptyScriptIsValid(t *testing.T) {
	cmds, err := Parse("")
	require.NoError(t, err)
	assert.Empty(t, cmds)
}

func TestParseWriteSection(t *testing.T) {
	cmds, err := Parse(`WRITE_SECTION 1 WITH base_level=2 :: # Title` + "\nbody text")
	require.NoError(t, err)
	cmd := cmds[0]
	assert.Equal(t, CmdWriteSection, cmd.Kind)
	assert.Equal(t, "# Title\nbody text", cmd.SectionBody)
}

func TestParseEditSetFullStructuralEquality(t *testing.T) {
	cmds, err := Parse(`EDIT blk_aaaaaaaaaaaaaaaaaaaaaaaa SET metadata.label = "x"`)
	require.NoError(t, err)
	require.Len(t, cmds, 1)

	want := Command{
		Kind:       CmdEdit,
		Line:       1,
		EditTarget: BlockRef{Kind: RefFull, Full: "blk_aaaaaaaaaaaaaaaaaaaaaaaa"},
		EditVerb:   EditVerbSet,
		EditPath:   "metadata.label",
		EditValue:  Value{Kind: ValueString, Str: "x"},
	}
	if diff := cmp.Diff(want, cmds[0]); diff != "" {
		t.Errorf("parsed command mismatch (-want +got):\n%s", diff)
	}
}

func TestParseErrorReportsLocation(t *testing.T) {
	_, err := Parse("EDIT")
	require.Error(t, err)
	var ue *ucperr.Error
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, ucperr.E101ParseError, ue.Code)
	require.NotNil(t, ue.Location)
	assert.Equal(t, 1, ue.Location.Line)
	assert.Equal(t, 5, ue.Location.Column)
}

func TestRenderRoundTripsEdit(t *testing.T) {
	script := `EDIT blk_aaaaaaaaaaaaaaaaaaaaaaaa SET metadata.label = "x"`
	cmds, err := Parse(script)
	require.NoError(t, err)
	rendered := Render(cmds[0])
	cmds2, err := Parse(rendered)
	require.NoError(t, err)
	assert.Equal(t, cmds[0], cmds2[0])
}
