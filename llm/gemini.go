package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiClient talks to the Gemini API through the google genai SDK.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient builds a client for the given model. An empty model selects
// a current default.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("llm: gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: gemini client: %w", err)
	}
	return &GeminiClient{client: client, model: model}, nil
}

func (c *GeminiClient) Name() string { return "gemini" }
func (c *GeminiClient) Local() bool  { return false }

func (c *GeminiClient) Send(ctx context.Context, req Request) (*Response, error) {
	if req.UserMessage == "" {
		return nil, fmt.Errorf("llm: empty user message")
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	temp := float32(req.Temperature)
	cfg := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: int32(maxTokens),
	}
	if req.SystemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(req.UserMessage), cfg)
	if err != nil {
		return failure(err), nil
	}
	text := result.Text()
	if text == "" {
		return failure(fmt.Errorf("gemini returned empty content")), nil
	}
	return &Response{Content: text, Success: true}, nil
}
