package limiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisLimiter keeps rate windows in Redis so several server instances
// sharing one API token also share the budget. The window start is a
// TTL'd key; the reservation is a second key taken with SET NX.
//
// Redis failures deny the call (fail closed): letting requests through
// when the window state is unknown would burn the upstream budget.
type RedisLimiter struct {
	client *redis.Client
	window time.Duration
}

func NewRedisLimiter(client *redis.Client, windowSize time.Duration) *RedisLimiter {
	if windowSize <= 0 {
		windowSize = DefaultWindow
	}
	return &RedisLimiter{client: client, window: windowSize}
}

func windowKey(tool string) string  { return fmt.Sprintf("ratelimit:tool:%s", tool) }
func reserveKey(tool string) string { return fmt.Sprintf("ratelimit:tool:%s:reserve", tool) }

func (r *RedisLimiter) CheckAndReserve(ctx context.Context, tool string) (Decision, error) {
	ttl, err := r.client.PTTL(ctx, windowKey(tool)).Result()
	if err != nil {
		log.Error().Err(err).Str("tool", tool).Msg("rate limiter: redis PTTL failed, denying")
		return Decision{Allowed: false, RetryAfter: r.window}, err
	}
	if ttl > 0 {
		return Decision{Allowed: false, RetryAfter: ceilSeconds(ttl)}, nil
	}

	// Reservation TTL caps how long a crashed holder can block the tool.
	ok, err := r.client.SetNX(ctx, reserveKey(tool), 1, r.window).Result()
	if err != nil {
		log.Error().Err(err).Str("tool", tool).Msg("rate limiter: redis SETNX failed, denying")
		return Decision{Allowed: false, RetryAfter: r.window}, err
	}
	if !ok {
		return Decision{Allowed: false, RetryAfter: r.window}, nil
	}
	return Decision{Allowed: true}, nil
}

func (r *RedisLimiter) RecordSuccess(ctx context.Context, tool string, _ time.Time) error {
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, windowKey(tool), 1, r.window)
	pipe.Del(ctx, reserveKey(tool))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record success: %w", err)
	}
	return nil
}

func (r *RedisLimiter) Release(ctx context.Context, tool string) error {
	if err := r.client.Del(ctx, reserveKey(tool)).Err(); err != nil {
		return fmt.Errorf("release reservation: %w", err)
	}
	return nil
}
