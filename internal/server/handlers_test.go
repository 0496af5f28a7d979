package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/brightfield/onboardbot/internal/auth"
	"github.com/brightfield/onboardbot/internal/chatbot"
	"github.com/brightfield/onboardbot/internal/domain"
	"github.com/brightfield/onboardbot/internal/llm"
	"github.com/brightfield/onboardbot/internal/metrics"
	"github.com/brightfield/onboardbot/internal/storage/memory"
)

type fakeCompleter struct {
	reply string
	err   error
}

func (f *fakeCompleter) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	return f.reply, f.err
}

type fakeVerifier struct {
	grounded bool
}

func (f *fakeVerifier) IsGrounded(ctx context.Context, answer, contextText string) (bool, error) {
	return f.grounded, nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var zeroBackoff = []time.Duration{0, 0, 0}

type testEnv struct {
	router *chi.Mux
	store  *memory.Store
}

func newTestEnv(t *testing.T, completer llm.Completer, verifier chatbot.GroundingVerifier, admin *auth.Authenticator) *testEnv {
	t.Helper()

	store := memory.New()
	opts := []chatbot.Option{chatbot.WithBackoff(zeroBackoff)}
	if verifier != nil {
		opts = append(opts, chatbot.WithVerifier(verifier))
	}
	bot := chatbot.NewService(completer, store, discard(), opts...)
	agg := metrics.NewAggregator(store)

	r := chi.NewRouter()
	NewHandlers(bot, agg, store, admin, discard()).Register(r)

	return &testEnv{router: r, store: store}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestHandleAsk_GroundedAnswer(t *testing.T) {
	reply := "You log in with your employee ID and temp password."
	env := newTestEnv(t, &fakeCompleter{reply: reply}, &fakeVerifier{grounded: true}, nil)

	rec := env.do(t, http.MethodPost, "/api/chatbot/ask", askRequest{
		Question:       "How do I log in?",
		ConversationID: "conv-1",
		Context:        "login uses employee ID and temp password",
		Topic:          "computer_login",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	resp := decode[askResponse](t, rec)
	if resp.Answer != reply {
		t.Errorf("answer = %q, want the completion reply unchanged", resp.Answer)
	}

	events, _ := env.store.EventsByConversation(context.Background(), "conv-1")
	if len(events) != 1 || events[0].Type != domain.MetricTypeAnswer {
		t.Errorf("events = %+v, want one answer event", events)
	}
}

func TestHandleAsk_FailedGroundingSubstitutes(t *testing.T) {
	env := newTestEnv(t, &fakeCompleter{reply: "Use your SSN to log in."}, &fakeVerifier{grounded: false}, nil)

	rec := env.do(t, http.MethodPost, "/api/chatbot/ask", askRequest{
		Question:       "How do I log in?",
		ConversationID: "conv-2",
		Context:        "login uses employee ID and temp password",
		Topic:          "computer_login",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decode[askResponse](t, rec)
	if resp.Answer != domain.RedirectionMessage {
		t.Errorf("answer = %q, want the canonical redirection sentence", resp.Answer)
	}

	events, _ := env.store.EventsByConversation(context.Background(), "conv-2")
	types := map[domain.MetricType]int{}
	for _, e := range events {
		types[e.Type]++
	}
	if types[domain.MetricTypeHallucination] != 1 || types[domain.MetricTypeRedirection] != 1 {
		t.Errorf("event types = %v, want one hallucination and one redirection", types)
	}
}

func TestHandleAsk_TransportFailureIsGeneric(t *testing.T) {
	env := newTestEnv(t, &fakeCompleter{err: domain.ErrTransport("connection refused")}, nil, nil)

	rec := env.do(t, http.MethodPost, "/api/chatbot/ask", askRequest{
		Question:       "How do I log in?",
		ConversationID: "conv-3",
	})

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	resp := decode[map[string]string](t, rec)
	if resp["error"] == "" {
		t.Fatal("expected an error message")
	}
	if resp["error"] == domain.RedirectionMessage {
		t.Error("the canonical redirection sentence must never mask a transport failure")
	}
}

func TestHandleAsk_LegacyMode(t *testing.T) {
	completer := &fakeCompleter{reply: "should never be called"}
	store := memory.New()
	bot := chatbot.NewService(completer, store, discard(), chatbot.WithBackoff(zeroBackoff))
	r := chi.NewRouter()
	h := NewHandlers(bot, metrics.NewAggregator(store), store, nil, discard())
	h.LegacyMode()
	h.Register(r)

	body, _ := json.Marshal(askRequest{Question: "What are my benefits?", ConversationID: "conv-l"})
	req := httptest.NewRequest(http.MethodPost, "/api/chatbot/ask", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decode[askResponse](t, rec)
	if resp.Answer != domain.RedirectionMessage {
		t.Errorf("answer = %q, want the redirection sentence", resp.Answer)
	}

	events, _ := store.EventsByConversation(context.Background(), "conv-l")
	if len(events) != 1 || events[0].Type != domain.MetricTypeRedirection {
		t.Errorf("events = %+v, want one redirection event", events)
	}
}

func TestHandleAsk_ValidatesInput(t *testing.T) {
	env := newTestEnv(t, &fakeCompleter{reply: "x"}, nil, nil)

	rec := env.do(t, http.MethodPost, "/api/chatbot/ask", askRequest{Question: "no conversation id"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestMetricEndpoints(t *testing.T) {
	env := newTestEnv(t, &fakeCompleter{reply: "x"}, nil, nil)
	ctx := context.Background()

	rec := env.do(t, http.MethodGet, "/api/metrics/redirection-rate", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := decode[map[string]float64](t, rec); got["redirectionRate"] != 100 {
		t.Errorf("redirectionRate = %v, want 100 on an empty store", got["redirectionRate"])
	}

	rec = env.do(t, http.MethodPost, "/api/metrics/redirection", recordRedirectionRequest{
		ConversationID: "conv-m",
		Topic:          "benefits",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/api/metrics/answer-rate?topic=benefits", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/metrics/test-coverage", recordTestCoverageRequest{
		TestSuiteName: "login-suite",
		PassedTests:   6,
		TotalTests:    10,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/metrics/test-coverage-score", nil)
	if got := decode[map[string]float64](t, rec); got["testCoverageScore"] != 60 {
		t.Errorf("testCoverageScore = %v, want 60", got["testCoverageScore"])
	}

	events, _ := env.store.EventsByConversation(ctx, "conv-m")
	if len(events) != 1 {
		t.Fatalf("recorded events = %d, want 1", len(events))
	}

	rec = env.do(t, http.MethodGet, "/api/metrics/conversation/conv-m", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	env := newTestEnv(t, &fakeCompleter{reply: "x"}, nil, nil)

	rec := env.do(t, http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestHandleReset_RequiresAuth(t *testing.T) {
	// sha256("admin-secret")
	authenticator := auth.NewAuthenticator("16175223c8ddce5ace0493c948569c211b03c4c6bb3d3e484434999448cffe01")
	env := newTestEnv(t, &fakeCompleter{reply: "x"}, nil, authenticator)

	rec := env.do(t, http.MethodPost, "/api/admin/reset", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status without key = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/admin/reset", nil)
	req.Header.Set("Authorization", "Bearer admin-secret")
	recorder := httptest.NewRecorder()
	env.router.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status with key = %d, want 200: %s", recorder.Code, recorder.Body.String())
	}
}

func TestHandleReset_DisabledWithoutConfiguredKey(t *testing.T) {
	env := newTestEnv(t, &fakeCompleter{reply: "x"}, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/reset", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403 when no admin key is configured", rec.Code)
	}
}
