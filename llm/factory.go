package llm

import (
	"context"
	"fmt"
	"os"
)

// Options selects and configures a provider.
type Options struct {
	// Provider is one of "anthropic", "openai", "gemini", "ollama" or ""
	// (disabled).
	Provider string
	// APIKey overrides the provider's environment variable when set.
	APIKey string
	// Model overrides the provider default when set.
	Model string
	// BaseURL applies to ollama only.
	BaseURL string
}

// NewClient constructs the provider named by opts. An empty provider returns
// (nil, nil): callers treat a nil client as "LLM features disabled".
func NewClient(ctx context.Context, opts Options) (Client, error) {
	switch opts.Provider {
	case "":
		return nil, nil
	case "anthropic":
		return NewAnthropicClient(keyOr(opts.APIKey, "ANTHROPIC_API_KEY"), opts.Model)
	case "openai":
		return NewOpenAIClient(keyOr(opts.APIKey, "OPENAI_API_KEY"), opts.Model)
	case "gemini":
		return NewGeminiClient(ctx, keyOr(opts.APIKey, "GEMINI_API_KEY"), opts.Model)
	case "ollama":
		return NewOllamaClient(opts.BaseURL, opts.Model)
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", opts.Provider)
	}
}

func keyOr(key, envVar string) string {
	if key != "" {
		return key
	}
	return os.Getenv(envVar)
}
