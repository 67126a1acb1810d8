package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// OllamaClient talks to a local Ollama server over its /api/chat endpoint.
// Local models are slower and flakier than hosted APIs under load, so this
// is the one client that retries with backoff.
type OllamaClient struct {
	http    *resty.Client
	model   string
	retries int
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  map[string]any  `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
	Error   string        `json:"error,omitempty"`
}

// NewOllamaClient builds a client against baseURL (default
// http://localhost:11434) for the given model.
func NewOllamaClient(baseURL, model string) (*OllamaClient, error) {
	if model == "" {
		return nil, fmt.Errorf("llm: ollama model is required")
	}
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(defaultTimeout).
		SetHeader("Content-Type", "application/json")
	return &OllamaClient{http: httpClient, model: model, retries: 3}, nil
}

func (c *OllamaClient) Name() string { return "ollama" }
func (c *OllamaClient) Local() bool  { return true }

func (c *OllamaClient) Send(ctx context.Context, req Request) (*Response, error) {
	if req.UserMessage == "" {
		return nil, fmt.Errorf("llm: empty user message")
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	messages := make([]ollamaMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, ollamaMessage{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, ollamaMessage{Role: "user", Content: req.UserMessage})

	body := ollamaChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
		Options: map[string]any{
			"temperature": req.Temperature,
			"num_predict": maxTokens,
		},
	}

	var lastErr error
	backoff := time.Second
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return failure(ctx.Err()), nil
			case <-time.After(backoff):
			}
			if backoff < 8*time.Second {
				backoff *= 2
			}
		}

		var out ollamaChatResponse
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(body).
			SetResult(&out).
			Post("/api/chat")
		if err != nil {
			lastErr = err
			continue
		}
		if resp.IsError() {
			lastErr = fmt.Errorf("ollama %s: %s", resp.Status(), resp.String())
			continue
		}
		if out.Error != "" {
			lastErr = fmt.Errorf("ollama: %s", out.Error)
			continue
		}
		return &Response{Content: out.Message.Content, Success: true}, nil
	}
	return failure(lastErr), nil
}
