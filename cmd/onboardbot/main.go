package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/brightfield/onboardbot/internal/auth"
	"github.com/brightfield/onboardbot/internal/chatbot"
	"github.com/brightfield/onboardbot/internal/config"
	"github.com/brightfield/onboardbot/internal/grounding"
	"github.com/brightfield/onboardbot/internal/llm"
	"github.com/brightfield/onboardbot/internal/metrics"
	"github.com/brightfield/onboardbot/internal/ratelimit"
	"github.com/brightfield/onboardbot/internal/server"
	"github.com/brightfield/onboardbot/internal/storage/sqlite"
	"github.com/brightfield/onboardbot/internal/telemetry"
	"github.com/brightfield/onboardbot/internal/tokens"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	shutdownTracer, err := telemetry.InitTracer("onboardbot", logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	store, err := sqlite.New(cfg.Storage.SQLite.Path)
	if err != nil {
		log.Fatalf("Failed to open event store: %v", err)
	}
	defer store.Close()

	limiter := ratelimit.New(cfg.RateLimit.MaxCalls, time.Duration(cfg.RateLimit.WindowSeconds)*time.Second)

	completer := llm.NewAnthropicCompleter(
		cfg.Anthropic.APIKey,
		cfg.Anthropic.Model,
		time.Duration(cfg.Anthropic.RequestTimeoutSeconds)*time.Second,
	)

	opts := []chatbot.Option{chatbot.WithLimiter(limiter)}

	if cfg.Chatbot.GroundingEnabled && cfg.HasAPIKey() {
		verifier := grounding.NewVerifier(completer, limiter, logger)
		opts = append(opts, chatbot.WithVerifier(verifier))
	} else {
		logger.Warn("grounding verification disabled",
			slog.Bool("enabled", cfg.Chatbot.GroundingEnabled),
			slog.Bool("api_key_configured", cfg.HasAPIKey()),
		)
	}

	estimator, err := tokens.NewEstimator()
	if err != nil {
		logger.Warn("token estimator unavailable, context truncation disabled",
			slog.String("error", err.Error()))
	} else {
		opts = append(opts, chatbot.WithContextBudget(estimator, cfg.Chatbot.MaxContextTokens))
	}

	bot := chatbot.NewService(completer, store, logger, opts...)
	aggregator := metrics.NewAggregator(store)
	authenticator := auth.NewAuthenticator(cfg.Admin.APIKeyHash)

	srv := server.New(cfg.Server.Port, logger)
	handlers := server.NewHandlers(bot, aggregator, store, authenticator, logger)
	if !cfg.HasAPIKey() {
		logger.Warn("no API key configured, answering all questions with the redirection message")
		handlers.LegacyMode()
	}
	handlers.Register(srv.Router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	case sig := <-sigChan:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
