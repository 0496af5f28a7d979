// Package ratelimit provides a sliding-window admission controller gating
// outbound completion-service calls.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter admits at most maxCalls calls in any trailing window. A single
// instance is constructed at process start and shared by reference across
// every external-call site; only the admission decision is serialized, never
// the calls themselves.
type Limiter struct {
	mu       sync.Mutex
	calls    []time.Time
	maxCalls int
	window   time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures the limiter.
type Option func(*Limiter)

// WithClock overrides the time source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// WithSleep overrides the wait function, for deterministic tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(l *Limiter) {
		l.sleep = sleep
	}
}

// New creates a limiter admitting maxCalls per trailing window.
func New(maxCalls int, window time.Duration, opts ...Option) *Limiter {
	l := &Limiter{
		maxCalls: maxCalls,
		window:   window,
		now:      time.Now,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// WaitForSlot blocks until a call may be admitted, then records the call in
// the window. When the window is full it sleeps exactly until the oldest
// entry expires and re-checks.
func (l *Limiter) WaitForSlot(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := l.now()
		l.evict(now)

		if len(l.calls) < l.maxCalls {
			l.calls = append(l.calls, now)
			l.mu.Unlock()
			return nil
		}

		wait := l.calls[0].Add(l.window).Sub(now)
		l.mu.Unlock()

		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// InWindow returns the number of admitted calls still inside the trailing
// window.
func (l *Limiter) InWindow() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.evict(l.now())
	return len(l.calls)
}

// evict drops entries older than the window. Caller holds mu.
func (l *Limiter) evict(now time.Time) {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(l.calls) && !l.calls[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.calls = append(l.calls[:0], l.calls[i:]...)
	}
}
