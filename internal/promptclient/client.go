// Package promptclient bridges the ID mapper's deterministic prompt
// projection (§6) to an actual Anthropic Messages API call: a thin,
// non-core adapter exercised only by cmd/ucpctl's query subcommand, never
// by the engine itself.
package promptclient

import (
	"context"
	"errors"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/antonio7098/unified-content-protocol/internal/idmapper"
)

// MessagesClient captures the subset of the Anthropic SDK client this
// adapter uses, so callers can pass either a real client or a stub in
// tests.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// Options configures the Client's default request parameters.
type Options struct {
	// Model is the Claude model identifier used for every request.
	Model string
	// MaxTokens caps the completion length. Required, must be positive.
	MaxTokens int
	// Temperature is optional; zero leaves the API default in place.
	Temperature float64
}

// Client drives an LLM toward emitting a UCL command for a given document
// and task, using internal/idmapper's deterministic prompt projection.
type Client struct {
	msg         MessagesClient
	model       string
	maxTokens   int
	temperature float64
}

// New builds a Client from the provided Anthropic Messages client and
// options.
func New(msg MessagesClient, opts Options) (*Client, error) {
	if msg == nil {
		return nil, errors.New("promptclient: anthropic client is required")
	}
	if opts.Model == "" {
		return nil, errors.New("promptclient: model identifier is required")
	}
	if opts.MaxTokens <= 0 {
		return nil, errors.New("promptclient: max_tokens must be positive")
	}
	return &Client{msg: msg, model: opts.Model, maxTokens: opts.MaxTokens, temperature: opts.Temperature}, nil
}

// NewFromAPIKey constructs a Client using the Anthropic SDK's default HTTP
// client, authenticated with the given API key.
func NewFromAPIKey(apiKey, model string, maxTokens int) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("promptclient: api key is required")
	}
	ac := sdk.NewClient(option.WithAPIKey(apiKey))
	return New(&ac.Messages, Options{Model: model, MaxTokens: maxTokens})
}

// BuildParams assembles the MessageNewParams for asking the model to
// produce a UCL command for task against the document builder projects.
func (c *Client) BuildParams(builder *idmapper.PromptBuilder, task string) sdk.MessageNewParams {
	params := sdk.MessageNewParams{
		MaxTokens: int64(c.maxTokens),
		Model:     sdk.Model(c.model),
		System:    []sdk.TextBlockParam{{Text: builder.System()}},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(builder.Build(task))),
		},
	}
	if c.temperature > 0 {
		params.Temperature = sdk.Float(c.temperature)
	}
	return params
}

// Query sends the assembled prompt and returns the model's first text
// reply, expected to be a single UCL command or script.
func (c *Client) Query(ctx context.Context, builder *idmapper.PromptBuilder, task string) (string, error) {
	params := c.BuildParams(builder, task)
	msg, err := c.msg.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("promptclient: messages.new: %w", err)
	}
	for _, block := range msg.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}
	return "", errors.New("promptclient: response contained no text content")
}
