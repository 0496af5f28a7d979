// Package metrics computes the aggregate quality ratios used as deployment
// gates: answer rate by topic, hallucination rate, redirection rate, and the
// test-coverage score.
package metrics

import (
	"context"

	"github.com/brightfield/onboardbot/internal/domain"
	"github.com/brightfield/onboardbot/internal/storage"
)

// Aggregator derives ratios over the event store. All results are recomputed
// from scratch on every call; event volumes are small enough that no
// materialized counters are kept.
type Aggregator struct {
	store storage.MetricStore
}

// NewAggregator creates an aggregator reading from the given store.
func NewAggregator(store storage.MetricStore) *Aggregator {
	return &Aggregator{store: store}
}

// RedirectionRate returns the percentage of conversation turns that ended in
// a redirection. With zero recorded turns it returns 100: absence of any
// answered question counts as fully protective.
func (a *Aggregator) RedirectionRate(ctx context.Context) (float64, error) {
	redirections, err := a.store.CountEventsByType(ctx, domain.MetricTypeRedirection)
	if err != nil {
		return 0, err
	}
	answers, err := a.store.CountEventsByType(ctx, domain.MetricTypeAnswer)
	if err != nil {
		return 0, err
	}

	turns := answers + redirections
	if turns == 0 {
		return 100, nil
	}
	return 100 * float64(redirections) / float64(turns), nil
}

// AnswerRateByTopic returns the percentage of turns for a topic that resulted
// in a genuine answer. With zero recorded turns for the topic it returns 0.
// The empty-denominator default deliberately differs from RedirectionRate's.
func (a *Aggregator) AnswerRateByTopic(ctx context.Context, topic string) (float64, error) {
	answers, err := a.store.CountEventsByTypeAndTopic(ctx, domain.MetricTypeAnswer, topic)
	if err != nil {
		return 0, err
	}
	redirections, err := a.store.CountEventsByTypeAndTopic(ctx, domain.MetricTypeRedirection, topic)
	if err != nil {
		return 0, err
	}

	turns := answers + redirections
	if turns == 0 {
		return 0, nil
	}
	return 100 * float64(answers) / float64(turns), nil
}

// HallucinationRate returns the percentage of answered turns later classified
// as not grounded. Returns 0 when no turns were answered.
func (a *Aggregator) HallucinationRate(ctx context.Context) (float64, error) {
	hallucinations, err := a.store.CountEventsByType(ctx, domain.MetricTypeHallucination)
	if err != nil {
		return 0, err
	}
	answers, err := a.store.CountEventsByType(ctx, domain.MetricTypeAnswer)
	if err != nil {
		return 0, err
	}

	if answers == 0 {
		return 0, nil
	}
	return 100 * float64(hallucinations) / float64(answers), nil
}

// TestCoverageScore returns the arithmetic mean of all recorded test_coverage
// values, or 0 when none were recorded.
func (a *Aggregator) TestCoverageScore(ctx context.Context) (float64, error) {
	avg, count, err := a.store.AverageValueByType(ctx, domain.MetricTypeTestCoverage)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}
	return avg, nil
}

// RecordTestCoverage computes the pass percentage for a suite run and records
// it as a test_coverage event.
func (a *Aggregator) RecordTestCoverage(ctx context.Context, suiteName string, passed, total int) error {
	return a.store.RecordEvent(ctx, domain.NewTestCoverageEvent(suiteName, passed, total))
}
