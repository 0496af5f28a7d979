// Package sqlite is the SQLite implementation of the metric store.
package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/brightfield/onboardbot/internal/domain"
	"github.com/brightfield/onboardbot/internal/storage"
)

// Store is a SQLite implementation of storage.MetricStore.
type Store struct {
	db *sql.DB
}

var _ storage.MetricStore = (*Store)(nil)

// New creates a new SQLite store.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			conversation_id TEXT PRIMARY KEY,
			user_id TEXT,
			started_at TIMESTAMP NOT NULL,
			ended_at TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			message_id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			sender_type TEXT NOT NULL,
			content_hash TEXT NOT NULL,
			timestamp TIMESTAMP NOT NULL,
			flagged_for_review INTEGER NOT NULL DEFAULT 0,
			FOREIGN KEY (conversation_id) REFERENCES conversations(conversation_id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS metrics (
			metric_id TEXT PRIMARY KEY,
			conversation_id TEXT,
			metric_type TEXT NOT NULL,
			metric_value REAL NOT NULL,
			topic TEXT,
			timestamp TIMESTAMP NOT NULL,
			metadata TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_metrics_conversation ON metrics(conversation_id)`,
		`CREATE INDEX IF NOT EXISTS idx_metrics_type ON metrics(metric_type)`,
		`CREATE INDEX IF NOT EXISTS idx_metrics_timestamp ON metrics(timestamp)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}

// RecordEvent appends a metric event.
func (s *Store) RecordEvent(ctx context.Context, event *domain.MetricEvent) error {
	if !event.Type.Valid() {
		return domain.ErrValidation(fmt.Sprintf("unrecognized metric type %q", event.Type)).
			WithCode(domain.ErrorCodeUnknownMetricType)
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	metadata, err := json.Marshal(event.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO metrics (metric_id, conversation_id, metric_type, metric_value, topic, timestamp, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.ConversationID, string(event.Type), event.Value, event.Topic, event.Timestamp, string(metadata),
	)
	if err != nil {
		return fmt.Errorf("failed to insert metric: %w", err)
	}

	return nil
}

// EventsByConversation returns all events recorded for a conversation.
func (s *Store) EventsByConversation(ctx context.Context, conversationID string) ([]domain.MetricEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT metric_id, conversation_id, metric_type, metric_value, topic, timestamp, metadata
		FROM metrics WHERE conversation_id = ?`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query metrics: %w", err)
	}
	defer rows.Close()

	var events []domain.MetricEvent
	for rows.Next() {
		var (
			event    domain.MetricEvent
			topic    sql.NullString
			metadata sql.NullString
		)
		if err := rows.Scan(&event.ID, &event.ConversationID, &event.Type, &event.Value, &topic, &event.Timestamp, &metadata); err != nil {
			return nil, fmt.Errorf("failed to scan metric: %w", err)
		}
		event.Topic = topic.String
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &event.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}
		events = append(events, event)
	}

	return events, rows.Err()
}

// RecordExchange persists the conversation row and hashed message rows for
// one question/answer turn.
func (s *Store) RecordExchange(ctx context.Context, conversationID, question, answer string) error {
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (conversation_id, started_at) VALUES (?, ?)
		ON CONFLICT (conversation_id) DO NOTHING`, conversationID, now)
	if err != nil {
		return fmt.Errorf("failed to upsert conversation: %w", err)
	}

	for _, msg := range []struct {
		sender  string
		content string
	}{
		{"user", question},
		{"bot", answer},
	} {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO messages (message_id, conversation_id, sender_type, content_hash, timestamp)
			VALUES (?, ?, ?, ?, ?)`,
			uuid.New().String(), conversationID, msg.sender, hashContent(msg.content), now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
	}

	return nil
}

func hashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// CountEventsByType counts events of a type.
func (s *Store) CountEventsByType(ctx context.Context, eventType domain.MetricType) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM metrics WHERE metric_type = ?`, string(eventType)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count metrics: %w", err)
	}
	return count, nil
}

// CountEventsByTypeAndTopic counts events of a type for a topic.
func (s *Store) CountEventsByTypeAndTopic(ctx context.Context, eventType domain.MetricType, topic string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM metrics WHERE metric_type = ? AND topic = ?`, string(eventType), topic).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count metrics: %w", err)
	}
	return count, nil
}

// AverageValueByType returns the mean value of events of a type.
func (s *Store) AverageValueByType(ctx context.Context, eventType domain.MetricType) (float64, int, error) {
	var (
		avg   sql.NullFloat64
		count int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT AVG(metric_value), COUNT(*) FROM metrics WHERE metric_type = ?`, string(eventType)).Scan(&avg, &count)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to average metrics: %w", err)
	}
	return avg.Float64, count, nil
}

// Clear removes all metric events and conversation/message rows.
func (s *Store) Clear(ctx context.Context) error {
	for _, table := range []string{"metrics", "messages", "conversations"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
