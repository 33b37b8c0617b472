package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps fixed-window counters in Redis so that several gateway
// instances enforce one shared limit. Each (route, clientKey) pair maps to a
// counter key with a TTL equal to the window; INCR plus first-write EXPIRE
// reproduces the in-memory semantics.
type RedisStore struct {
	rdb redisCmds
}

// redisCmds is the slice of the go-redis API the store uses. Tests substitute
// an in-process fake.
type redisCmds interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	PTTL(ctx context.Context, key string) *redis.DurationCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// NewRedisStore wraps an existing Redis client.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// Key returns the Redis key used for one (route, clientKey) counter.
func Key(route, clientKey string) string {
	return fmt.Sprintf("rl:%s:%s", route, clientKey)
}

// Allow increments the shared counter and reports whether the request fits.
func (s *RedisStore) Allow(ctx context.Context, route, clientKey string, cfg Config) (Decision, error) {
	if cfg.Max <= 0 || cfg.Window <= 0 {
		return Decision{Allowed: true}, nil
	}

	key := Key(route, clientKey)

	count, err := s.rdb.Incr(ctx, key).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit incr %s: %w", key, err)
	}
	if count == 1 {
		// First hit opens the window.
		if err := s.rdb.Expire(ctx, key, cfg.Window).Err(); err != nil {
			return Decision{}, fmt.Errorf("ratelimit expire %s: %w", key, err)
		}
	}

	remaining := cfg.Max - int(count)
	if remaining < 0 {
		remaining = 0
	}

	if count > int64(cfg.Max) {
		retryAfter := cfg.Window
		if ttl, err := s.rdb.PTTL(ctx, key).Result(); err == nil && ttl > 0 {
			retryAfter = ttl
		}
		return Decision{Allowed: false, Remaining: 0, RetryAfter: retryAfter}, nil
	}
	return Decision{Allowed: true, Remaining: remaining}, nil
}

// Reset drops the shared counter for one (route, clientKey) pair.
func (s *RedisStore) Reset(route, clientKey string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = s.rdb.Del(ctx, Key(route, clientKey)).Err()
}
