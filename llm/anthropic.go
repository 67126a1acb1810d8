package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicClient talks to the Anthropic Messages API.
type AnthropicClient struct {
	client anthropic.Client
	model  string
}

// NewAnthropicClient builds a client for the given model. An empty model
// selects a current default.
func NewAnthropicClient(apiKey, model string) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("llm: anthropic API key is required")
	}
	if model == "" {
		model = string(anthropic.ModelClaudeSonnet4_0)
	}
	return &AnthropicClient{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

func (c *AnthropicClient) Name() string { return "anthropic" }
func (c *AnthropicClient) Local() bool  { return false }

func (c *AnthropicClient) Send(ctx context.Context, req Request) (*Response, error) {
	if req.UserMessage == "" {
		return nil, fmt.Errorf("llm: empty user message")
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.UserMessage)),
		},
		Temperature: anthropic.Float(req.Temperature),
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return failure(err), nil
	}
	if len(msg.Content) == 0 {
		return failure(fmt.Errorf("anthropic returned empty content")), nil
	}
	return &Response{Content: msg.Content[0].Text, Success: true}, nil
}
