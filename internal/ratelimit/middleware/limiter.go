package middleware

import (
	"context"
	"log/slog"
	"time"

	"readykids/internal/ratelimit/models"
	"readykids/pkg/platform/circuit"
)

// BucketStore counts requests against a limit.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error)
}

// Limiter checks the shared primary store and switches to the in-process
// fallback while the primary keeps failing. The primary is still tried on
// every call so the breaker can close again.
type Limiter struct {
	primary  BucketStore
	fallback BucketStore
	breaker  *circuit.Breaker
	logger   *slog.Logger
}

// NewLimiter builds a Limiter. primary may be nil, in which case every check
// goes to fallback.
func NewLimiter(primary, fallback BucketStore, logger *slog.Logger) *Limiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Limiter{
		primary:  primary,
		fallback: fallback,
		breaker:  circuit.New("ratelimit"),
		logger:   logger,
	}
}

// Check reports the result for key and whether it came from the fallback
// because the primary is unhealthy.
func (l *Limiter) Check(ctx context.Context, key string, limit models.Limit) (*models.RateLimitResult, bool, error) {
	if l.primary == nil {
		result, err := l.fallback.Allow(ctx, key, limit.RequestsPerWindow, limit.Window)
		return result, false, err
	}

	result, err := l.primary.Allow(ctx, key, limit.RequestsPerWindow, limit.Window)
	if err != nil {
		useFallback, change := l.breaker.RecordFailure()
		if change.Opened {
			l.logger.WarnContext(ctx, "rate limit store unhealthy, using in-process fallback", "error", err)
		}
		if !useFallback || l.fallback == nil {
			return nil, false, err
		}
		result, err = l.fallback.Allow(ctx, key, limit.RequestsPerWindow, limit.Window)
		return result, true, err
	}

	usePrimary, change := l.breaker.RecordSuccess()
	if change.Closed {
		l.logger.InfoContext(ctx, "rate limit store recovered")
	}
	if !usePrimary && l.fallback != nil {
		result, err = l.fallback.Allow(ctx, key, limit.RequestsPerWindow, limit.Window)
		return result, true, err
	}
	return result, false, nil
}
