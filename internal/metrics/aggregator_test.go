package metrics

import (
	"context"
	"testing"

	"github.com/brightfield/onboardbot/internal/domain"
	"github.com/brightfield/onboardbot/internal/storage/memory"
)

func record(t *testing.T, store *memory.Store, eventType domain.MetricType, topic string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := store.RecordEvent(context.Background(), domain.NewCountingEvent(eventType, "conv", topic)); err != nil {
			t.Fatalf("RecordEvent() error = %v", err)
		}
	}
}

func TestRedirectionRate_EmptyStoreIsFullyProtective(t *testing.T) {
	agg := NewAggregator(memory.New())

	rate, err := agg.RedirectionRate(context.Background())
	if err != nil {
		t.Fatalf("RedirectionRate() error = %v", err)
	}
	if rate != 100 {
		t.Errorf("RedirectionRate() = %v, want 100 on empty store", rate)
	}
}

func TestRedirectionRate(t *testing.T) {
	store := memory.New()
	record(t, store, domain.MetricTypeAnswer, "benefits", 3)
	record(t, store, domain.MetricTypeRedirection, "benefits", 1)

	rate, err := NewAggregator(store).RedirectionRate(context.Background())
	if err != nil {
		t.Fatalf("RedirectionRate() error = %v", err)
	}
	if rate != 25 {
		t.Errorf("RedirectionRate() = %v, want 25", rate)
	}
}

func TestAnswerRateByTopic_EmptyTopicIsZero(t *testing.T) {
	store := memory.New()
	// Turns for a different topic must not leak into the requested one.
	record(t, store, domain.MetricTypeAnswer, "benefits", 5)

	rate, err := NewAggregator(store).AnswerRateByTopic(context.Background(), "computer_login")
	if err != nil {
		t.Fatalf("AnswerRateByTopic() error = %v", err)
	}
	if rate != 0 {
		t.Errorf("AnswerRateByTopic() = %v, want 0 for an unseen topic", rate)
	}
}

func TestAnswerRateByTopic(t *testing.T) {
	store := memory.New()
	record(t, store, domain.MetricTypeAnswer, "computer_login", 3)
	record(t, store, domain.MetricTypeRedirection, "computer_login", 1)

	rate, err := NewAggregator(store).AnswerRateByTopic(context.Background(), "computer_login")
	if err != nil {
		t.Fatalf("AnswerRateByTopic() error = %v", err)
	}
	if rate != 75 {
		t.Errorf("AnswerRateByTopic() = %v, want 75", rate)
	}
}

func TestHallucinationRate(t *testing.T) {
	tests := []struct {
		name           string
		answers        int
		hallucinations int
		want           float64
	}{
		{name: "no answers", answers: 0, hallucinations: 0, want: 0},
		{name: "clean answers", answers: 4, hallucinations: 0, want: 0},
		{name: "one in four", answers: 4, hallucinations: 1, want: 25},
		{name: "all hallucinated", answers: 2, hallucinations: 2, want: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New()
			record(t, store, domain.MetricTypeAnswer, "benefits", tt.answers)
			record(t, store, domain.MetricTypeHallucination, "benefits", tt.hallucinations)

			rate, err := NewAggregator(store).HallucinationRate(context.Background())
			if err != nil {
				t.Fatalf("HallucinationRate() error = %v", err)
			}
			if rate != tt.want {
				t.Errorf("HallucinationRate() = %v, want %v", rate, tt.want)
			}
		})
	}
}

func TestTestCoverageScore_RoundTrip(t *testing.T) {
	store := memory.New()
	agg := NewAggregator(store)
	ctx := context.Background()

	score, err := agg.TestCoverageScore(ctx)
	if err != nil {
		t.Fatalf("TestCoverageScore() error = %v", err)
	}
	if score != 0 {
		t.Errorf("TestCoverageScore() = %v, want 0 with nothing recorded", score)
	}

	if err := agg.RecordTestCoverage(ctx, "login-suite", 10, 10); err != nil {
		t.Fatalf("RecordTestCoverage() error = %v", err)
	}
	score, err = agg.TestCoverageScore(ctx)
	if err != nil {
		t.Fatalf("TestCoverageScore() error = %v", err)
	}
	if score != 100 {
		t.Errorf("TestCoverageScore() = %v, want 100", score)
	}

	if err := agg.RecordTestCoverage(ctx, "benefits-suite", 6, 10); err != nil {
		t.Fatalf("RecordTestCoverage() error = %v", err)
	}
	score, err = agg.TestCoverageScore(ctx)
	if err != nil {
		t.Fatalf("TestCoverageScore() error = %v", err)
	}
	if score != 80 {
		t.Errorf("TestCoverageScore() = %v, want mean of 100 and 60", score)
	}
}

func TestRecordTestCoverage_ZeroTotal(t *testing.T) {
	store := memory.New()
	agg := NewAggregator(store)
	ctx := context.Background()

	if err := agg.RecordTestCoverage(ctx, "empty-suite", 0, 0); err != nil {
		t.Fatalf("RecordTestCoverage() error = %v", err)
	}

	score, err := agg.TestCoverageScore(ctx)
	if err != nil {
		t.Fatalf("TestCoverageScore() error = %v", err)
	}
	if score != 0 {
		t.Errorf("TestCoverageScore() = %v, want 0 for an empty suite", score)
	}
}
