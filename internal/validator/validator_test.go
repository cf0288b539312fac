package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antonio7098/unified-content-protocol/internal/config"
	"github.com/antonio7098/unified-content-protocol/internal/content"
	"github.com/antonio7098/unified-content-protocol/internal/document"
	"github.com/antonio7098/unified-content-protocol/internal/ucperr"
)

func textInput(s string) document.NewBlockInput {
	return document.NewBlockInput{Content: content.Text{TextValue: s, Format: content.TextPlain}}
}

func TestValidateCleanDocumentIsOK(t *testing.T) {
	doc := document.Create("")
	_, err := doc.AddBlock(doc.Root, textInput("hello"))
	require.NoError(t, err)

	report := Validate(doc, config.DefaultLimits(), nil)
	assert.True(t, report.IsOK())
}

func TestValidateFlagsOrphanAsWarningOnly(t *testing.T) {
	doc := document.Create("")
	a, err := doc.AddBlock(doc.Root, textInput("a"))
	require.NoError(t, err)
	doc.Structure[doc.Root] = nil

	report := Validate(doc, config.DefaultLimits(), nil)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, ucperr.SeverityWarning, report.Issues[0].Severity)
	assert.Equal(t, ucperr.E203OrphanedBlock, report.Issues[0].Code)
	assert.Equal(t, a.String(), report.Issues[0].BlockID)
	assert.True(t, report.IsOK(), "a warning alone must not fail IsOK")
}

func TestValidateBlockCountExceeded(t *testing.T) {
	doc := document.Create("")
	limits := config.DefaultLimits()
	limits.MaxBlockCount = 1
	_, err := doc.AddBlock(doc.Root, textInput("a"))
	require.NoError(t, err)

	report := Validate(doc, limits, nil)
	require.False(t, report.IsOK())
	found := false
	for _, i := range report.Issues {
		if i.Code == ucperr.E400BlockCountExceed {
			found = true
		}
	}
	assert.True(t, found)
}

func TestValidateNestingDepthExceeded(t *testing.T) {
	doc := document.Create("")
	limits := config.DefaultLimits()
	limits.MaxNestingDepth = 1
	a, err := doc.AddBlock(doc.Root, textInput("a"))
	require.NoError(t, err)
	_, err = doc.AddBlock(a, textInput("b"))
	require.NoError(t, err)

	report := Validate(doc, limits, nil)
	require.False(t, report.IsOK())
	found := false
	for _, i := range report.Issues {
		if i.Code == ucperr.E403NestingExceed {
			found = true
		}
	}
	assert.True(t, found)
}

func TestValidateEdgeCountExceeded(t *testing.T) {
	doc := document.Create("")
	limits := config.DefaultLimits()
	limits.MaxEdgesPerBlock = 1
	a, err := doc.AddBlock(doc.Root, textInput("a"))
	require.NoError(t, err)
	b, err := doc.AddBlock(doc.Root, textInput("b"))
	require.NoError(t, err)
	c, err := doc.AddBlock(doc.Root, textInput("c"))
	require.NoError(t, err)
	require.NoError(t, doc.AddEdge(a, content.EdgeReferences, b, nil, nil))
	require.NoError(t, doc.AddEdge(a, content.EdgeLinksTo, c, nil, nil))

	report := Validate(doc, limits, nil)
	require.False(t, report.IsOK())
	found := false
	for _, i := range report.Issues {
		if i.Code == ucperr.E404EdgeCountExceed && i.BlockID == a.String() {
			found = true
		}
	}
	assert.True(t, found)
}

func TestValidateSchemaFailureReported(t *testing.T) {
	schemas, err := CompileSchemas(map[string]string{
		"json": `{"type":"object","required":["name"],"properties":{"name":{"type":"string"}}}`,
	})
	require.NoError(t, err)

	doc := document.Create("")
	_, err = doc.AddBlock(doc.Root, document.NewBlockInput{
		Content: content.JSON{Value: map[string]any{"age": 1.0}},
	})
	require.NoError(t, err)

	report := Validate(doc, config.DefaultLimits(), schemas)
	require.False(t, report.IsOK())
	found := false
	for _, i := range report.Issues {
		if i.Code == ucperr.E102PayloadError {
			found = true
		}
	}
	assert.True(t, found)
}
