package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/brightfield/onboardbot/internal/domain"
)

// DefaultBackoff is the delay schedule between completion attempts. The loop
// makes len(schedule)+1 attempts in total; the last attempt runs after the
// final delay regardless of how the earlier ones failed.
var DefaultBackoff = []time.Duration{2 * time.Second, 5 * time.Second, 10 * time.Second}

// CompleteWithRetry performs a completion under the shared rate limiter,
// retrying retryable failures on the backoff schedule. Non-retryable errors
// (transport, auth, validation) propagate immediately.
func CompleteWithRetry(ctx context.Context, logger *slog.Logger, limiter Limiter, completer Completer, req CompletionRequest, backoff []time.Duration) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= len(backoff); attempt++ {
		if attempt > 0 {
			delay := backoff[attempt-1]
			logger.Warn("completion attempt failed, backing off",
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
				slog.String("error", lastErr.Error()),
			)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return "", ctx.Err()
			case <-timer.C:
			}
		}

		if limiter != nil {
			if err := limiter.WaitForSlot(ctx); err != nil {
				return "", err
			}
		}

		text, err := completer.Complete(ctx, req)
		if err == nil {
			return text, nil
		}
		if !domain.IsRetryable(err) {
			return "", err
		}
		lastErr = err
	}

	return "", lastErr
}
