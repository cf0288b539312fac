package promptclient

import (
	"context"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antonio7098/unified-content-protocol/internal/content"
	"github.com/antonio7098/unified-content-protocol/internal/document"
	"github.com/antonio7098/unified-content-protocol/internal/idmapper"
)

type stubMessagesClient struct {
	lastParams sdk.MessageNewParams
	resp       *sdk.Message
	err        error
}

func (s *stubMessagesClient) New(_ context.Context, body sdk.MessageNewParams, _ ...option.RequestOption) (*sdk.Message, error) {
	s.lastParams = body
	return s.resp, s.err
}

func TestNewRejectsMissingModel(t *testing.T) {
	_, err := New(&stubMessagesClient{}, Options{MaxTokens: 128})
	assert.Error(t, err)
}

func TestNewRejectsNonPositiveMaxTokens(t *testing.T) {
	_, err := New(&stubMessagesClient{}, Options{Model: "claude-3-5-sonnet-latest"})
	assert.Error(t, err)
}

func TestBuildParamsIncludesSystemAndTask(t *testing.T) {
	doc := document.Create("")
	_, err := doc.AddBlock(doc.Root, document.NewBlockInput{Content: content.Text{TextValue: "hello", Format: content.TextPlain}})
	require.NoError(t, err)
	builder := idmapper.NewPromptBuilder(doc, []idmapper.Capability{idmapper.CapabilityEdit}, true)

	cl, err := New(&stubMessagesClient{}, Options{Model: "claude-3-5-sonnet-latest", MaxTokens: 256})
	require.NoError(t, err)

	params := cl.BuildParams(builder, "relabel the first block")
	require.Len(t, params.System, 1)
	assert.Contains(t, params.System[0].Text, "Edit")
	require.Len(t, params.Messages, 1)
	assert.Equal(t, int64(256), params.MaxTokens)
}

func TestQueryReturnsFirstTextBlock(t *testing.T) {
	doc := document.Create("")
	builder := idmapper.NewPromptBuilder(doc, []idmapper.Capability{idmapper.CapabilityEdit}, true)
	stub := &stubMessagesClient{resp: &sdk.Message{
		Content: []sdk.ContentBlockUnion{
			{Type: "text", Text: `EDIT 1 SET metadata.label = "intro"`},
		},
	}}
	cl, err := New(stub, Options{Model: "claude-3-5-sonnet-latest", MaxTokens: 256})
	require.NoError(t, err)

	out, err := cl.Query(context.Background(), builder, "label the root block intro")
	require.NoError(t, err)
	assert.Equal(t, `EDIT 1 SET metadata.label = "intro"`, out)
}

func TestQueryFailsOnNoTextContent(t *testing.T) {
	doc := document.Create("")
	builder := idmapper.NewPromptBuilder(doc, []idmapper.Capability{idmapper.CapabilityEdit}, true)
	stub := &stubMessagesClient{resp: &sdk.Message{}}
	cl, err := New(stub, Options{Model: "claude-3-5-sonnet-latest", MaxTokens: 256})
	require.NoError(t, err)

	_, err = cl.Query(context.Background(), builder, "label the root block intro")
	assert.Error(t, err)
}
