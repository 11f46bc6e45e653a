package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/scripthub-inc/scripthub/internal/shared/clock"
)

// keyPrefix namespaces limiter state so a shared Redis can host other
// scripthub concerns without collisions.
const keyPrefix = "scripthub:throttle"

// RedisRateLimiter is a sliding-window limiter on sorted sets: each request
// is a member scored by its nanosecond timestamp, and a window's usage is the
// member count after trimming everything older than the window start.
type RedisRateLimiter struct {
	client *redis.Client
	clock  clock.Clock
}

func NewRedisRateLimiter(client *redis.Client, clk clock.Clock) RateLimiter {
	return &RedisRateLimiter{client: client, clock: clk}
}

// Allow records the request and reports whether every configured window still
// has budget. The request is counted even when denied, so hammering a
// throttled key does not help the caller.
func (l *RedisRateLimiter) Allow(ctx context.Context, key string, limits Limits) (bool, error) {
	now := l.clock.Now()

	windows := []struct {
		span  time.Duration
		limit int
	}{
		{time.Minute, limits.PerMinute},
		{time.Hour, limits.PerHour},
		{24 * time.Hour, limits.PerDay},
	}

	allowed := true
	for _, w := range windows {
		if w.limit <= 0 {
			continue
		}

		used, err := l.countWindow(ctx, key, w.span, now, true)
		if err != nil {
			return false, err
		}
		if used > int64(w.limit) {
			allowed = false
		}
	}

	return allowed, nil
}

// Remaining reports how much of the window's budget is already spent.
func (l *RedisRateLimiter) Remaining(ctx context.Context, key string, window time.Duration) (int64, error) {
	return l.countWindow(ctx, key, window, l.clock.Now(), false)
}

// Reset clears every window tracked for the key.
func (l *RedisRateLimiter) Reset(ctx context.Context, key string) error {
	keys := []string{
		l.windowKey(key, time.Minute),
		l.windowKey(key, time.Hour),
		l.windowKey(key, 24*time.Hour),
	}
	if err := l.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to reset throttle state for %s: %w", key, err)
	}
	return nil
}

// countWindow trims expired entries and returns the member count, optionally
// recording the current request first. The whole exchange is one pipelined
// round trip.
func (l *RedisRateLimiter) countWindow(ctx context.Context, key string, window time.Duration, now time.Time, record bool) (int64, error) {
	windowKey := l.windowKey(key, window)
	nowNano := now.UnixNano()
	cutoff := strconv.FormatInt(now.Add(-window).UnixNano(), 10)

	pipe := l.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, windowKey, "-inf", "("+cutoff)
	if record {
		pipe.ZAdd(ctx, windowKey, redis.Z{Score: float64(nowNano), Member: nowNano})
		pipe.Expire(ctx, windowKey, window)
	}
	count := pipe.ZCard(ctx, windowKey)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to evaluate throttle window %s: %w", windowKey, err)
	}
	return count.Val(), nil
}

func (l *RedisRateLimiter) windowKey(key string, window time.Duration) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, key, window)
}
