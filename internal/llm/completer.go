// Package llm defines the text-completion boundary used by the grounding
// verifier, the fact extractor, and the answer pipeline.
package llm

import (
	"context"
	"time"

	anthropicapi "github.com/brightfield/onboardbot/internal/api/anthropic"
)

// CompletionRequest is the canonical request handed to a completion backend.
type CompletionRequest struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float32
}

// Completer produces a plain-text completion for a request. Implementations
// return canonical domain errors on failure; an empty string with a nil error
// means the service produced no text content.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Limiter grants admission permits for outbound completion calls.
type Limiter interface {
	WaitForSlot(ctx context.Context) error
}

// AnthropicCompleter adapts the Anthropic Messages client to the Completer
// interface.
type AnthropicCompleter struct {
	client  *anthropicapi.Client
	model   string
	timeout time.Duration
}

// NewAnthropicCompleter creates a completer backed by the Anthropic API.
// A non-zero timeout bounds each individual request.
func NewAnthropicCompleter(apiKey, model string, timeout time.Duration, opts ...anthropicapi.ClientOption) *AnthropicCompleter {
	return &AnthropicCompleter{
		client:  anthropicapi.NewClient(apiKey, opts...),
		model:   model,
		timeout: timeout,
	}
}

// Complete sends a single-turn messages request and extracts the first text
// block.
func (c *AnthropicCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	temperature := req.Temperature
	resp, err := c.client.CreateMessage(ctx, &anthropicapi.MessagesRequest{
		Model:       c.model,
		MaxTokens:   req.MaxTokens,
		System:      req.System,
		Temperature: &temperature,
		Messages: []anthropicapi.Message{
			{Role: "user", Content: req.Prompt},
		},
	})
	if err != nil {
		return "", err
	}

	return resp.FirstText(), nil
}
