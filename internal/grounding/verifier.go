// Package grounding decides whether a generated answer is supported by the
// context it was supposedly derived from.
package grounding

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/brightfield/onboardbot/internal/domain"
	"github.com/brightfield/onboardbot/internal/llm"
)

const classificationSystemPrompt = "You are a strict fact-checking classifier. " +
	"Answer with exactly one word, Yes or No. Do not explain."

// Verifier classifies answers as grounded or not by asking the completion
// service whether the response introduces information absent from the
// context. The check fails closed: anything other than a clean "No" counts
// as not grounded.
type Verifier struct {
	completer llm.Completer
	limiter   llm.Limiter
	logger    *slog.Logger
	backoff   []time.Duration
}

// Option configures the verifier.
type Option func(*Verifier)

// WithBackoff overrides the retry schedule, for tests.
func WithBackoff(backoff []time.Duration) Option {
	return func(v *Verifier) {
		v.backoff = backoff
	}
}

// NewVerifier creates a grounding verifier.
func NewVerifier(completer llm.Completer, limiter llm.Limiter, logger *slog.Logger, opts ...Option) *Verifier {
	v := &Verifier{
		completer: completer,
		limiter:   limiter,
		logger:    logger,
		backoff:   llm.DefaultBackoff,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// IsGrounded reports whether answer asserts only information present in
// contextText. Redirections are grounded by definition and short-circuit
// without an external call.
func (v *Verifier) IsGrounded(ctx context.Context, answer, contextText string) (bool, error) {
	if domain.IsRedirectionText(answer) {
		return true, nil
	}

	prompt := fmt.Sprintf(
		"Context:\n%s\n\nResponse:\n%s\n\nDoes the response contain information that is not present in the context? Answer Yes or No.",
		contextText, answer,
	)

	reply, err := llm.CompleteWithRetry(ctx, v.logger, v.limiter, v.completer, llm.CompletionRequest{
		System:      classificationSystemPrompt,
		Prompt:      prompt,
		MaxTokens:   10,
		Temperature: 0,
	}, v.backoff)
	if err != nil {
		return false, err
	}

	verdict := strings.ToLower(strings.TrimSpace(reply))
	verdict = strings.TrimSuffix(verdict, ".")
	grounded := verdict == "no"
	if !grounded {
		v.logger.Info("grounding check failed",
			slog.String("verdict", verdict),
		)
	}
	return grounded, nil
}
