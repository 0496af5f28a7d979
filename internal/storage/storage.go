// Package storage defines the persistence boundary for metric events and
// conversation records.
package storage

import (
	"context"
	"time"

	"github.com/brightfield/onboardbot/internal/domain"
)

// Conversation is a row in the conversations table.
type Conversation struct {
	ID        string
	UserID    string
	StartedAt time.Time
	EndedAt   time.Time
}

// Message is a row in the messages table. Only a hash of the content is
// persisted; the conversation text itself is not retained.
type Message struct {
	ID               string
	ConversationID   string
	SenderType       string // "user" or "bot"
	ContentHash      string
	Timestamp        time.Time
	FlaggedForReview bool
}

// MetricStore is the event store plus the aggregate read queries the metric
// calculations are built on. Events are append-only; Clear is the single
// destructive operation and exists for administrative resets between
// validation runs.
type MetricStore interface {
	// RecordEvent appends a metric event. Fails with a validation error when
	// the event type is outside the closed enumeration.
	RecordEvent(ctx context.Context, event *domain.MetricEvent) error

	// EventsByConversation returns all events recorded for a conversation,
	// in no particular order.
	EventsByConversation(ctx context.Context, conversationID string) ([]domain.MetricEvent, error)

	// RecordExchange persists the conversation row and hashed user/bot
	// message rows for one question/answer turn.
	RecordExchange(ctx context.Context, conversationID, question, answer string) error

	CountEventsByType(ctx context.Context, eventType domain.MetricType) (int, error)
	CountEventsByTypeAndTopic(ctx context.Context, eventType domain.MetricType, topic string) (int, error)

	// AverageValueByType returns the arithmetic mean of event values for a
	// type, with the number of contributing events. count==0 means no events.
	AverageValueByType(ctx context.Context, eventType domain.MetricType) (avg float64, count int, err error)

	// Clear removes every metric event and every conversation/message row.
	Clear(ctx context.Context) error

	// Ping verifies storage connectivity.
	Ping(ctx context.Context) error
}
