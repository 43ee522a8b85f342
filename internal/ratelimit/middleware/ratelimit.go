package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"readykids/internal/platform/metrics"
	"readykids/internal/ratelimit/models"
	dErrors "readykids/pkg/domain-errors"
	"readykids/pkg/platform/httputil"
	"readykids/pkg/requestcontext"
)

const degradedHeader = "X-RateLimit-Status"

type RateLimiter interface {
	Check(ctx context.Context, key string, limit models.Limit) (*models.RateLimitResult, bool, error)
}

type Middleware struct {
	limiter  RateLimiter
	logger   *slog.Logger
	metrics  *metrics.Metrics
	disabled bool
}

type Option func(*Middleware)

// WithDisabled turns rate limiting off entirely.
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

func WithMetrics(metrics *metrics.Metrics) Option {
	return func(m *Middleware) {
		m.metrics = metrics
	}
}

func New(limiter RateLimiter, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		limiter: limiter,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// RateLimit limits requests per client IP within scope. Limiter errors let
// the request through.
func (m *Middleware) RateLimit(scope models.Scope, limit models.Limit) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.disabled {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			ip := requestcontext.ClientIP(ctx)

			result, degraded, err := m.limiter.Check(ctx, models.NewIPKey(scope, ip), limit)
			if err != nil {
				m.logger.ErrorContext(ctx, "failed to check rate limit",
					"scope", string(scope),
					"request_id", requestcontext.RequestID(ctx),
					"error", err,
				)
				next.ServeHTTP(w, r)
				return
			}

			addRateLimitHeaders(w, result)
			if degraded {
				w.Header().Set(degradedHeader, "degraded")
			}

			if !result.Allowed {
				m.metrics.IncrementRateLimitRejections(string(scope))
				m.logger.WarnContext(ctx, "rate limit exceeded",
					"scope", string(scope),
					"client_ip", ip,
					"request_id", requestcontext.RequestID(ctx),
				)
				w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
				httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited,
					"Too many requests from this IP address. Please try again later."))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.RateLimitResult) {
	if result == nil {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}
