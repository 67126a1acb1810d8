package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIClient talks to the OpenAI chat-completions API.
type OpenAIClient struct {
	client openai.Client
	model  string
}

// NewOpenAIClient builds a client for the given model. An empty model selects
// a current default.
func NewOpenAIClient(apiKey, model string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("llm: openai API key is required")
	}
	if model == "" {
		model = openai.ChatModelGPT4o
	}
	return &OpenAIClient{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

func (c *OpenAIClient) Name() string { return "openai" }
func (c *OpenAIClient) Local() bool  { return false }

func (c *OpenAIClient) Send(ctx context.Context, req Request) (*Response, error) {
	if req.UserMessage == "" {
		return nil, fmt.Errorf("llm: empty user message")
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(req.UserMessage))

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               c.model,
		Messages:            messages,
		MaxCompletionTokens: openai.Int(int64(maxTokens)),
		Temperature:         openai.Float(req.Temperature),
	})
	if err != nil {
		return failure(err), nil
	}
	if len(resp.Choices) == 0 {
		return failure(fmt.Errorf("openai returned no choices")), nil
	}
	return &Response{Content: resp.Choices[0].Message.Content, Success: true}, nil
}
