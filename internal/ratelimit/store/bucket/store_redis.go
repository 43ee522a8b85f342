package bucket

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"readykids/internal/ratelimit/models"
)

// RedisBucketStore counts requests in fixed windows shared by every replica.
// Each window gets its own key, so a counter never outlives its window by
// more than the expiry.
type RedisBucketStore struct {
	client redis.Cmdable
	now    func() time.Time
}

func NewRedisBucketStore(client redis.Cmdable) *RedisBucketStore {
	return &RedisBucketStore{client: client, now: time.Now}
}

func (s *RedisBucketStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error) {
	now := s.now()
	windowStart := now.Truncate(window)
	windowKey := key + ":" + strconv.FormatInt(windowStart.Unix(), 10)

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, windowKey)
	pipe.Expire(ctx, windowKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("rate limit counter %s: %w", key, err)
	}

	count := int(incr.Val())
	resetAt := windowStart.Add(window)
	result := &models.RateLimitResult{
		Allowed:   count <= limit,
		Limit:     limit,
		Remaining: max(0, limit-count),
		ResetAt:   resetAt,
	}
	if !result.Allowed {
		result.RetryAfter = max(1, int(resetAt.Sub(now).Round(time.Second).Seconds()))
	}
	return result, nil
}
