// Package llm provides the language-model capability the analysis engines
// consume. The engines depend only on Client; concrete providers wrap the
// Anthropic, OpenAI and Gemini SDKs plus an HTTP client for local Ollama
// endpoints.
//
// Absence of a client is a supported state everywhere: engines degrade to
// their static-only behavior instead of failing.
package llm

import (
	"context"
	"time"
)

// Request is one chat-completion round trip.
type Request struct {
	SystemPrompt string
	UserMessage  string
	// Temperature defaults to 0 (deterministic) when unset.
	Temperature float64
	// MaxTokens defaults to the provider's defaultMaxTokens when zero.
	MaxTokens int
}

// Response carries the provider's answer. Transport and provider failures
// are reported in-band (Success=false, ErrorMessage set) so callers can
// apply their fail-open policies without unwrapping error chains.
type Response struct {
	Content      string
	Success      bool
	ErrorMessage string
}

// Client is the provider-agnostic capability.
type Client interface {
	// Send performs one round trip. It returns an error only for programmer
	// mistakes (nil context, empty message); provider failures come back as
	// an unsuccessful Response.
	Send(ctx context.Context, req Request) (*Response, error)
	// Name identifies the provider for logs and metadata.
	Name() string
	// Local reports whether the endpoint runs on this machine. Local
	// endpoints share CPU and memory with the analysis, which drives
	// adaptive batch sizing in the verification service.
	Local() bool
}

const (
	defaultMaxTokens = 1024
	defaultTimeout   = 60 * time.Second
)

func failure(err error) *Response {
	return &Response{Success: false, ErrorMessage: err.Error()}
}
