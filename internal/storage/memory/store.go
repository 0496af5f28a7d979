// Package memory is an in-memory implementation of the metric store, used in
// tests and credential-free local runs.
package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brightfield/onboardbot/internal/domain"
	"github.com/brightfield/onboardbot/internal/storage"
)

// Store is an in-memory implementation of storage.MetricStore.
type Store struct {
	mu            sync.RWMutex
	events        []domain.MetricEvent
	conversations map[string]*storage.Conversation
	messages      []storage.Message
}

var _ storage.MetricStore = (*Store)(nil)

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		conversations: make(map[string]*storage.Conversation),
	}
}

func (s *Store) RecordEvent(ctx context.Context, event *domain.MetricEvent) error {
	if !event.Type.Valid() {
		return domain.ErrValidation(fmt.Sprintf("unrecognized metric type %q", event.Type)).
			WithCode(domain.ErrorCodeUnknownMetricType)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *event
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	if stored.Timestamp.IsZero() {
		stored.Timestamp = time.Now().UTC()
	}
	s.events = append(s.events, stored)
	return nil
}

func (s *Store) EventsByConversation(ctx context.Context, conversationID string) ([]domain.MetricEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var events []domain.MetricEvent
	for _, e := range s.events {
		if e.ConversationID == conversationID {
			events = append(events, e)
		}
	}
	return events, nil
}

func (s *Store) RecordExchange(ctx context.Context, conversationID, question, answer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if _, exists := s.conversations[conversationID]; !exists {
		s.conversations[conversationID] = &storage.Conversation{
			ID:        conversationID,
			StartedAt: now,
		}
	}

	for _, msg := range []struct {
		sender  string
		content string
	}{
		{"user", question},
		{"bot", answer},
	} {
		sum := sha256.Sum256([]byte(msg.content))
		s.messages = append(s.messages, storage.Message{
			ID:             uuid.New().String(),
			ConversationID: conversationID,
			SenderType:     msg.sender,
			ContentHash:    hex.EncodeToString(sum[:]),
			Timestamp:      now,
		})
	}
	return nil
}

func (s *Store) CountEventsByType(ctx context.Context, eventType domain.MetricType) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, e := range s.events {
		if e.Type == eventType {
			count++
		}
	}
	return count, nil
}

func (s *Store) CountEventsByTypeAndTopic(ctx context.Context, eventType domain.MetricType, topic string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, e := range s.events {
		if e.Type == eventType && e.Topic == topic {
			count++
		}
	}
	return count, nil
}

func (s *Store) AverageValueByType(ctx context.Context, eventType domain.MetricType) (float64, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum, count := 0.0, 0
	for _, e := range s.events {
		if e.Type == eventType {
			sum += e.Value
			count++
		}
	}
	if count == 0 {
		return 0, 0, nil
	}
	return sum / float64(count), count, nil
}

func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = nil
	s.messages = nil
	s.conversations = make(map[string]*storage.Conversation)
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return nil
}
