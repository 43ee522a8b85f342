package bucket

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"readykids/internal/ratelimit/models"
)

// maxIdleBuckets is the bucket count above which idle buckets are swept.
const maxIdleBuckets = 10_000

// InMemoryBucketStore is a per-process token bucket limiter. A full bucket
// holds limit tokens and refills at limit per window. Not shared between
// replicas; used when Redis is not configured and as the Redis fallback.
type InMemoryBucketStore struct {
	mu      sync.Mutex
	buckets map[string]*tokenBucket
	now     func() time.Time
}

type tokenBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewInMemoryBucketStore() *InMemoryBucketStore {
	return &InMemoryBucketStore{
		buckets: make(map[string]*tokenBucket),
		now:     time.Now,
	}
}

func (s *InMemoryBucketStore) Allow(_ context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	every := rate.Limit(float64(limit) / window.Seconds())
	b := s.bucket(key, every, limit, now)
	b.lastSeen = now

	allowed := b.limiter.AllowN(now, 1)
	tokens := b.limiter.TokensAt(now)

	result := &models.RateLimitResult{
		Allowed:   allowed,
		Limit:     limit,
		Remaining: max(0, int(math.Floor(tokens))),
		ResetAt:   now.Add(secondsUntil(float64(limit)-tokens, every)),
	}
	if !allowed {
		result.RetryAfter = max(1, int(math.Ceil(secondsUntil(1-tokens, every).Seconds())))
	}
	return result, nil
}

func (s *InMemoryBucketStore) bucket(key string, every rate.Limit, limit int, now time.Time) *tokenBucket {
	if b, ok := s.buckets[key]; ok {
		return b
	}
	if len(s.buckets) >= maxIdleBuckets {
		s.sweep(now)
	}
	b := &tokenBucket{limiter: rate.NewLimiter(every, limit)}
	s.buckets[key] = b
	return b
}

// sweep drops buckets that have had time to refill completely.
func (s *InMemoryBucketStore) sweep(now time.Time) {
	for key, b := range s.buckets {
		if b.limiter.TokensAt(now) >= float64(b.limiter.Burst()) {
			delete(s.buckets, key)
		}
	}
}

func secondsUntil(tokens float64, every rate.Limit) time.Duration {
	if tokens <= 0 || every <= 0 {
		return 0
	}
	return time.Duration(tokens / float64(every) * float64(time.Second))
}
