// Package chatbot orchestrates the answer pipeline: completion, redirection
// classification, grounding verification, and metric recording.
package chatbot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/brightfield/onboardbot/internal/domain"
	"github.com/brightfield/onboardbot/internal/llm"
	"github.com/brightfield/onboardbot/internal/storage"
	"github.com/brightfield/onboardbot/internal/tokens"
)

const answerSystemPrompt = "You are an onboarding assistant for new employees. " +
	"Answer the question using ONLY the provided context. " +
	"If the context does not contain the answer, reply with exactly this sentence: " +
	domain.RedirectionMessage + " " +
	"Never use outside knowledge. Never guess."

// GroundingVerifier classifies an answer as grounded in its context or not.
type GroundingVerifier interface {
	IsGrounded(ctx context.Context, answer, contextText string) (bool, error)
}

// Service is the answer pipeline. Each Process call produces exactly one
// answer or redirection event; a failed grounding check additionally records
// a hallucination event.
type Service struct {
	completer llm.Completer
	store     storage.MetricStore
	logger    *slog.Logger

	verifier         GroundingVerifier
	limiter          llm.Limiter
	estimator        *tokens.Estimator
	maxContextTokens int
	maxAnswerTokens  int
	backoff          []time.Duration
}

// Option configures the service.
type Option func(*Service)

// WithVerifier enables grounding verification of generated answers.
func WithVerifier(v GroundingVerifier) Option {
	return func(s *Service) {
		s.verifier = v
	}
}

// WithLimiter gates completion calls behind the shared rate limiter.
func WithLimiter(l llm.Limiter) Option {
	return func(s *Service) {
		s.limiter = l
	}
}

// WithContextBudget truncates context to maxTokens before prompting.
func WithContextBudget(e *tokens.Estimator, maxTokens int) Option {
	return func(s *Service) {
		s.estimator = e
		s.maxContextTokens = maxTokens
	}
}

// WithBackoff overrides the completion retry schedule, for tests.
func WithBackoff(backoff []time.Duration) Option {
	return func(s *Service) {
		s.backoff = backoff
	}
}

// NewService creates the answer pipeline.
func NewService(completer llm.Completer, store storage.MetricStore, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		completer:       completer,
		store:           store,
		logger:          logger,
		maxAnswerTokens: 1024,
		backoff:         llm.DefaultBackoff,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Process answers a question from the supplied context, classifies the reply,
// and records the corresponding metric events. The returned text is either
// the completion service's reply or the canonical redirection sentence.
func (s *Service) Process(ctx context.Context, question, conversationID, contextText, topic string) (string, error) {
	if s.estimator != nil && s.maxContextTokens > 0 {
		truncated := s.estimator.Truncate(contextText, s.maxContextTokens)
		if len(truncated) < len(contextText) {
			s.logger.Warn("context truncated to token budget",
				slog.String("conversation_id", conversationID),
				slog.Int("budget", s.maxContextTokens),
			)
			contextText = truncated
		}
	}

	prompt := fmt.Sprintf("Context:\n%s\n\nQuestion: %s", contextText, question)
	reply, err := llm.CompleteWithRetry(ctx, s.logger, s.limiter, s.completer, llm.CompletionRequest{
		System:      answerSystemPrompt,
		Prompt:      prompt,
		MaxTokens:   s.maxAnswerTokens,
		Temperature: 0,
	}, s.backoff)
	if err != nil {
		// Transport failures are true errors; the canonical sentence is
		// reserved for the semantic "I don't know".
		return "", err
	}

	if reply == "" {
		s.logger.Warn("completion service returned no text content",
			slog.String("conversation_id", conversationID),
		)
		s.record(ctx, domain.MetricTypeRedirection, conversationID, topic)
		s.recordExchange(ctx, conversationID, question, domain.RedirectionMessage)
		return domain.RedirectionMessage, nil
	}

	if domain.IsRedirectionText(reply) {
		s.record(ctx, domain.MetricTypeRedirection, conversationID, topic)
		s.recordExchange(ctx, conversationID, question, reply)
		return reply, nil
	}

	if s.verifier != nil {
		grounded, err := s.verifier.IsGrounded(ctx, reply, contextText)
		if err != nil {
			return "", err
		}
		if !grounded {
			s.logger.Info("answer failed grounding check, substituting redirection",
				slog.String("conversation_id", conversationID),
				slog.String("topic", topic),
			)
			s.record(ctx, domain.MetricTypeHallucination, conversationID, topic)
			s.record(ctx, domain.MetricTypeRedirection, conversationID, topic)
			s.recordExchange(ctx, conversationID, question, domain.RedirectionMessage)
			return domain.RedirectionMessage, nil
		}
	}

	s.record(ctx, domain.MetricTypeAnswer, conversationID, topic)
	s.recordExchange(ctx, conversationID, question, reply)
	return reply, nil
}

// ProcessLegacy is the degenerate no-context baseline: it records a
// redirection and returns the canonical sentence without consulting the
// completion service.
func (s *Service) ProcessLegacy(ctx context.Context, question, conversationID string) (string, error) {
	s.record(ctx, domain.MetricTypeRedirection, conversationID, "")
	s.recordExchange(ctx, conversationID, question, domain.RedirectionMessage)
	return domain.RedirectionMessage, nil
}

func (s *Service) record(ctx context.Context, eventType domain.MetricType, conversationID, topic string) {
	if err := s.store.RecordEvent(ctx, domain.NewCountingEvent(eventType, conversationID, topic)); err != nil {
		s.logger.Error("failed to record metric event",
			slog.String("type", string(eventType)),
			slog.String("conversation_id", conversationID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Service) recordExchange(ctx context.Context, conversationID, question, answer string) {
	if err := s.store.RecordExchange(ctx, conversationID, question, answer); err != nil {
		s.logger.Error("failed to record conversation exchange",
			slog.String("conversation_id", conversationID),
			slog.String("error", err.Error()),
		)
	}
}
