package facts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/brightfield/onboardbot/internal/llm"
)

const extractionSystemPrompt = "You extract structured facts from text. " +
	"Reply with ONLY a JSON object matching the requested shape. " +
	"Use null for any fact the text does not state. No prose, no markdown."

// Extractor issues structured-extraction queries against the completion
// service. Malformed or empty output degrades to a schema instance with all
// fields at their null defaults; only completion-service errors propagate.
type Extractor struct {
	completer llm.Completer
	limiter   llm.Limiter
	logger    *slog.Logger
	backoff   []time.Duration
}

// Option configures the extractor.
type Option func(*Extractor)

// WithBackoff overrides the retry schedule, for tests.
func WithBackoff(backoff []time.Duration) Option {
	return func(e *Extractor) {
		e.backoff = backoff
	}
}

// NewExtractor creates a fact extractor.
func NewExtractor(completer llm.Completer, limiter llm.Limiter, logger *slog.Logger, opts ...Option) *Extractor {
	e := &Extractor{
		completer: completer,
		limiter:   limiter,
		logger:    logger,
		backoff:   llm.DefaultBackoff,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract derives a typed fact record from a natural-language answer. The
// schema's zero value is returned when the completion output is empty or not
// valid JSON.
func Extract[T FactSchema](ctx context.Context, e *Extractor, answer string) (T, error) {
	var out T

	prompt := fmt.Sprintf("Text:\n%s\n\nExtract facts as a JSON object with this shape:\n%s",
		answer, out.Instructions())

	reply, err := llm.CompleteWithRetry(ctx, e.logger, e.limiter, e.completer, llm.CompletionRequest{
		System:      extractionSystemPrompt,
		Prompt:      prompt,
		MaxTokens:   512,
		Temperature: 0,
	}, e.backoff)
	if err != nil {
		return out, err
	}

	cleaned := stripCodeFence(reply)
	if cleaned == "" {
		return out, nil
	}

	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		e.logger.Warn("extraction output was not valid JSON, returning empty facts",
			slog.String("error", err.Error()),
		)
		var zero T
		return zero, nil
	}

	return out, nil
}

// stripCodeFence removes a surrounding Markdown code fence, with or without a
// language tag.
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	text = strings.TrimPrefix(text, "```")
	if idx := strings.Index(text, "\n"); idx >= 0 {
		// Drop the language tag line, e.g. "json".
		text = text[idx+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
