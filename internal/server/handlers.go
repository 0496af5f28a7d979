package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/brightfield/onboardbot/internal/auth"
	"github.com/brightfield/onboardbot/internal/chatbot"
	"github.com/brightfield/onboardbot/internal/domain"
	"github.com/brightfield/onboardbot/internal/metrics"
	"github.com/brightfield/onboardbot/internal/storage"
)

// Handlers wires the chatbot service and the metric aggregator to the HTTP
// surface.
type Handlers struct {
	bot    *chatbot.Service
	agg    *metrics.Aggregator
	store  storage.MetricStore
	admin  *auth.Authenticator
	logger *slog.Logger
	legacy bool
}

// NewHandlers creates the HTTP handlers.
func NewHandlers(bot *chatbot.Service, agg *metrics.Aggregator, store storage.MetricStore, admin *auth.Authenticator, logger *slog.Logger) *Handlers {
	return &Handlers{
		bot:    bot,
		agg:    agg,
		store:  store,
		admin:  admin,
		logger: logger,
	}
}

// LegacyMode answers every question with the redirection sentence, making no
// completion calls. Used when no API key is configured.
func (h *Handlers) LegacyMode() {
	h.legacy = true
}

// Register mounts all routes.
func (h *Handlers) Register(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/chatbot/ask", h.handleAsk)

		r.Route("/metrics", func(r chi.Router) {
			r.Get("/redirection-rate", h.handleRedirectionRate)
			r.Get("/answer-rate", h.handleAnswerRate)
			r.Get("/hallucination-rate", h.handleHallucinationRate)
			r.Get("/test-coverage-score", h.handleTestCoverageScore)
			r.Post("/redirection", h.handleRecordRedirection)
			r.Post("/test-coverage", h.handleRecordTestCoverage)
			r.Get("/conversation/{id}", h.handleConversationEvents)
		})

		r.Get("/health", h.handleHealth)

		r.Route("/admin", func(r chi.Router) {
			r.Use(AdminAuthMiddleware(h.admin))
			r.Post("/reset", h.handleReset)
		})
	})
}

type askRequest struct {
	Question       string `json:"question"`
	ConversationID string `json:"conversationId"`
	Context        string `json:"context,omitempty"`
	Topic          string `json:"topic,omitempty"`
}

type askResponse struct {
	Answer         string `json:"answer"`
	ConversationID string `json:"conversationId"`
}

func (h *Handlers) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrValidation("invalid request body"))
		return
	}
	if req.Question == "" || req.ConversationID == "" {
		writeError(w, domain.ErrValidation("question and conversationId are required"))
		return
	}

	var answer string
	var err error
	if h.legacy {
		answer, err = h.bot.ProcessLegacy(r.Context(), req.Question, req.ConversationID)
	} else {
		answer, err = h.bot.Process(r.Context(), req.Question, req.ConversationID, req.Context, req.Topic)
	}
	if err != nil {
		h.logger.Error("answer pipeline failed",
			slog.String("conversation_id", req.ConversationID),
			slog.String("error", err.Error()),
		)
		// Surface a generic failure; the redirection sentence is reserved
		// for the semantic "I don't know".
		writeError(w, genericFailure(err))
		return
	}

	writeJSON(w, http.StatusOK, askResponse{Answer: answer, ConversationID: req.ConversationID})
}

func (h *Handlers) handleRedirectionRate(w http.ResponseWriter, r *http.Request) {
	rate, err := h.agg.RedirectionRate(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"redirectionRate": rate})
}

func (h *Handlers) handleAnswerRate(w http.ResponseWriter, r *http.Request) {
	topic := r.URL.Query().Get("topic")
	if topic == "" {
		writeError(w, domain.ErrValidation("topic query parameter is required"))
		return
	}

	rate, err := h.agg.AnswerRateByTopic(r.Context(), topic)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"topic": topic, "answerRate": rate})
}

func (h *Handlers) handleHallucinationRate(w http.ResponseWriter, r *http.Request) {
	rate, err := h.agg.HallucinationRate(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"hallucinationRate": rate})
}

func (h *Handlers) handleTestCoverageScore(w http.ResponseWriter, r *http.Request) {
	score, err := h.agg.TestCoverageScore(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"testCoverageScore": score})
}

type recordRedirectionRequest struct {
	ConversationID string `json:"conversationId"`
	Topic          string `json:"topic,omitempty"`
}

func (h *Handlers) handleRecordRedirection(w http.ResponseWriter, r *http.Request) {
	var req recordRedirectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrValidation("invalid request body"))
		return
	}
	if req.ConversationID == "" {
		writeError(w, domain.ErrValidation("conversationId is required"))
		return
	}

	event := domain.NewCountingEvent(domain.MetricTypeRedirection, req.ConversationID, req.Topic)
	if err := h.store.RecordEvent(r.Context(), event); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": event.ID})
}

type recordTestCoverageRequest struct {
	TestSuiteName string `json:"testSuiteName"`
	PassedTests   int    `json:"passedTests"`
	TotalTests    int    `json:"totalTests"`
}

func (h *Handlers) handleRecordTestCoverage(w http.ResponseWriter, r *http.Request) {
	var req recordTestCoverageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrValidation("invalid request body"))
		return
	}
	if req.TestSuiteName == "" {
		writeError(w, domain.ErrValidation("testSuiteName is required"))
		return
	}

	if err := h.agg.RecordTestCoverage(r.Context(), req.TestSuiteName, req.PassedTests, req.TotalTests); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "recorded"})
}

func (h *Handlers) handleConversationEvents(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")

	events, err := h.store.EventsByConversation(r.Context(), conversationID)
	if err != nil {
		writeError(w, err)
		return
	}
	if events == nil {
		events = []domain.MetricEvent{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"conversationId": conversationID,
		"events":         events,
	})
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Clear(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	h.logger.Warn("event store cleared by administrative reset")
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) {
		apiErr = domain.ErrServer("internal error")
	}
	writeJSON(w, apiErr.HTTPStatusCode(), map[string]string{"error": apiErr.Message})
}

// genericFailure hides upstream detail from end callers while preserving the
// status mapping.
func genericFailure(err error) *domain.APIError {
	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) {
		return domain.ErrServer("failed to generate an answer")
	}
	if apiErr.Type == domain.ErrorTypeValidation {
		return apiErr
	}
	return domain.NewAPIError(apiErr.Type, "failed to generate an answer").WithStatusCode(apiErr.HTTPStatusCode())
}
