package domain

import (
	"time"

	"github.com/google/uuid"
)

// MetricType is the closed enumeration of recordable metric events.
type MetricType string

const (
	MetricTypeAnswer        MetricType = "answer"
	MetricTypeRedirection   MetricType = "redirection"
	MetricTypeHallucination MetricType = "hallucination"
	MetricTypeTestCoverage  MetricType = "test_coverage"
)

// Valid reports whether t is one of the recognized metric types.
func (t MetricType) Valid() bool {
	switch t {
	case MetricTypeAnswer, MetricTypeRedirection, MetricTypeHallucination, MetricTypeTestCoverage:
		return true
	}
	return false
}

// MetricMetadata is the typed side-data attached to a metric event. Exactly
// one variant is populated depending on the event type: Topic for
// answer/redirection/hallucination events, the coverage fields for
// test_coverage events.
type MetricMetadata struct {
	Topic string `json:"topic,omitempty"`

	TestSuiteName string `json:"testSuiteName,omitempty"`
	PassedTests   int    `json:"passedTests,omitempty"`
	TotalTests    int    `json:"totalTests,omitempty"`
}

// Empty reports whether the metadata carries no information at all.
func (m MetricMetadata) Empty() bool {
	return m == MetricMetadata{}
}

// MetricEvent is a single append-only row in the event store. Events are
// created exactly once and never mutated; the administrative reset is the
// only deletion path.
type MetricEvent struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversationId"`
	Type           MetricType     `json:"type"`
	Value          float64        `json:"value"`
	Topic          string         `json:"topic,omitempty"`
	Metadata       MetricMetadata `json:"metadata,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
}

// NewCountingEvent builds a value-1 event of the given type, tagged with an
// optional topic. The topic is mirrored into the metadata bag to match the
// stored document shape.
func NewCountingEvent(eventType MetricType, conversationID, topic string) *MetricEvent {
	return &MetricEvent{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Type:           eventType,
		Value:          1,
		Topic:          topic,
		Metadata:       MetricMetadata{Topic: topic},
		Timestamp:      time.Now().UTC(),
	}
}

// NewTestCoverageEvent builds a test_coverage event whose value is the
// percentage of passing tests at recording time.
func NewTestCoverageEvent(suiteName string, passed, total int) *MetricEvent {
	score := 0.0
	if total > 0 {
		score = 100 * float64(passed) / float64(total)
	}
	return &MetricEvent{
		ID:    uuid.New().String(),
		Type:  MetricTypeTestCoverage,
		Value: score,
		Metadata: MetricMetadata{
			TestSuiteName: suiteName,
			PassedTests:   passed,
			TotalTests:    total,
		},
		Timestamp: time.Now().UTC(),
	}
}
