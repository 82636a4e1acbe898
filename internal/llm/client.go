// Package llm defines the generative-model client interface and its
// pluggable providers. The classifier depends only on Client, so the
// concrete backend can be swapped or mocked in tests.
package llm

import (
	"context"
	"fmt"
	"time"
)

// CompletionRequest is the input to a Complete call.
type CompletionRequest struct {
	Model       string   `json:"model,omitempty"`
	Prompt      string   `json:"prompt"`
	MaxTokens   int      `json:"maxTokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// CompletionResponse is the result of a completion.
type CompletionResponse struct {
	Content  string        `json:"content"`
	Model    string        `json:"model,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

// Client is the interface all providers must implement.
type Client interface {
	// Complete sends a request and returns the full response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider name (e.g., "gemini").
	Name() string
}

// New builds a client for the named provider.
func New(provider, apiKey, model string) (Client, error) {
	switch provider {
	case "gemini":
		return NewGeminiClient(apiKey, model), nil
	case "mock":
		return &MockClient{ProviderName: "mock"}, nil
	default:
		return nil, fmt.Errorf("unknown AI provider: %q", provider)
	}
}
