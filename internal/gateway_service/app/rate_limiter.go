package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nellessen/nexmo-download-link/internal/gateway_service/domain"
)

// CounterStore is an atomic counter store with TTLs.
type CounterStore interface {
	Get(ctx context.Context, key string) (value int64, found bool, err error)
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// RateLimiter allows at most Amount calls per (scope, client address) in a
// fixed window that starts with the first call.
type RateLimiter struct {
	store  CounterStore
	logger *slog.Logger
}

func NewRateLimiter(store CounterStore, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		store:  store,
		logger: logger.With("component", "rate_limiter"),
	}
}

func limitKey(scope, clientAddr string) string {
	return "limit_call_" + scope + "_" + clientAddr
}

// Allow records a call and reports whether it is within the policy. Rejected
// calls are not counted. A disabled policy always allows.
func (l *RateLimiter) Allow(ctx context.Context, scope, clientAddr string, policy domain.LimitPolicy) (bool, error) {
	if !policy.Enabled() {
		return true, nil
	}
	key := limitKey(scope, clientAddr)

	current, found, err := l.store.Get(ctx, key)
	if err != nil {
		rateLimitDecisionsCounter.WithLabelValues(scope, "error").Inc()
		return false, fmt.Errorf("rate limit lookup for %s: %w", key, err)
	}
	if found && current >= int64(policy.Amount) {
		rateLimitDecisionsCounter.WithLabelValues(scope, "rejected").Inc()
		l.logger.InfoContext(ctx, "Call limitation acceded", "key", key, "count", current, "limit", policy.Amount)
		return false, nil
	}

	if _, err := l.store.Incr(ctx, key); err != nil {
		rateLimitDecisionsCounter.WithLabelValues(scope, "error").Inc()
		return false, fmt.Errorf("rate limit increment for %s: %w", key, err)
	}
	if !found {
		if err := l.store.Expire(ctx, key, policy.Window); err != nil {
			rateLimitDecisionsCounter.WithLabelValues(scope, "error").Inc()
			return false, fmt.Errorf("rate limit expiry for %s: %w", key, err)
		}
	}
	rateLimitDecisionsCounter.WithLabelValues(scope, "allowed").Inc()
	return true, nil
}
