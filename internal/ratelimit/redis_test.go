package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// fakeRedis implements the redisCmds slice with in-process counters and a
// movable clock, so the shared store's behavior can be checked against the
// in-memory one without a server.
type fakeRedis struct {
	now     time.Time
	counts  map[string]int64
	expires map[string]time.Time
	incrErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		now:     time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		counts:  make(map[string]int64),
		expires: make(map[string]time.Time),
	}
}

func (f *fakeRedis) purge(key string) {
	if exp, ok := f.expires[key]; ok && !f.now.Before(exp) {
		delete(f.counts, key)
		delete(f.expires, key)
	}
}

func (f *fakeRedis) Incr(ctx context.Context, key string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if f.incrErr != nil {
		cmd.SetErr(f.incrErr)
		return cmd
	}
	f.purge(key)
	f.counts[key]++
	cmd.SetVal(f.counts[key])
	return cmd
}

func (f *fakeRedis) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx)
	f.expires[key] = f.now.Add(expiration)
	cmd.SetVal(true)
	return cmd
}

func (f *fakeRedis) PTTL(ctx context.Context, key string) *redis.DurationCmd {
	cmd := redis.NewDurationCmd(ctx, time.Millisecond)
	f.purge(key)
	if exp, ok := f.expires[key]; ok {
		cmd.SetVal(exp.Sub(f.now))
	} else {
		cmd.SetVal(-1)
	}
	return cmd
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	var deleted int64
	for _, key := range keys {
		if _, ok := f.counts[key]; ok {
			deleted++
		}
		delete(f.counts, key)
		delete(f.expires, key)
	}
	cmd.SetVal(deleted)
	return cmd
}

func TestRedisStore_AllowsUpToMax(t *testing.T) {
	f := newFakeRedis()
	s := &RedisStore{rdb: f}
	cfg := Config{Max: 3, Window: time.Minute}

	for i := 0; i < 3; i++ {
		dec, err := s.Allow(context.Background(), "/weather", "1.2.3.4", cfg)
		require.NoError(t, err)
		require.True(t, dec.Allowed, "request %d should be allowed", i+1)
		require.Equal(t, 3-(i+1), dec.Remaining)
	}

	dec, err := s.Allow(context.Background(), "/weather", "1.2.3.4", cfg)
	require.NoError(t, err)
	require.False(t, dec.Allowed)
	require.Zero(t, dec.Remaining)
	// RetryAfter comes from the key's remaining TTL.
	require.Greater(t, dec.RetryAfter, time.Duration(0))
	require.LessOrEqual(t, dec.RetryAfter, time.Minute)
}

func TestRedisStore_WindowResets(t *testing.T) {
	f := newFakeRedis()
	s := &RedisStore{rdb: f}
	cfg := Config{Max: 2, Window: time.Minute}

	for i := 0; i < 2; i++ {
		dec, err := s.Allow(context.Background(), "/ask", "1.2.3.4", cfg)
		require.NoError(t, err)
		require.True(t, dec.Allowed)
	}
	dec, err := s.Allow(context.Background(), "/ask", "1.2.3.4", cfg)
	require.NoError(t, err)
	require.False(t, dec.Allowed)

	// Still inside the same window.
	f.now = f.now.Add(30 * time.Second)
	dec, err = s.Allow(context.Background(), "/ask", "1.2.3.4", cfg)
	require.NoError(t, err)
	require.False(t, dec.Allowed)

	// Key expired: the counter starts over.
	f.now = f.now.Add(31 * time.Second)
	dec, err = s.Allow(context.Background(), "/ask", "1.2.3.4", cfg)
	require.NoError(t, err)
	require.True(t, dec.Allowed)
	require.Equal(t, 1, dec.Remaining)
}

func TestRedisStore_RejectedRequestStillCounts(t *testing.T) {
	f := newFakeRedis()
	s := &RedisStore{rdb: f}
	cfg := Config{Max: 1, Window: time.Minute}

	dec, err := s.Allow(context.Background(), "/ask", "1.2.3.4", cfg)
	require.NoError(t, err)
	require.True(t, dec.Allowed)

	// Rejected requests keep incrementing but must not extend the TTL;
	// EXPIRE is only issued on the first hit of a window.
	for i := 0; i < 3; i++ {
		dec, err = s.Allow(context.Background(), "/ask", "1.2.3.4", cfg)
		require.NoError(t, err)
		require.False(t, dec.Allowed)
	}
	require.Equal(t, int64(4), f.counts[Key("/ask", "1.2.3.4")])

	f.now = f.now.Add(time.Minute)
	dec, err = s.Allow(context.Background(), "/ask", "1.2.3.4", cfg)
	require.NoError(t, err)
	require.True(t, dec.Allowed)
}

func TestRedisStore_Reset(t *testing.T) {
	f := newFakeRedis()
	s := &RedisStore{rdb: f}
	cfg := Config{Max: 1, Window: time.Hour}

	_, err := s.Allow(context.Background(), "/flights", "1.2.3.4", cfg)
	require.NoError(t, err)
	dec, err := s.Allow(context.Background(), "/flights", "1.2.3.4", cfg)
	require.NoError(t, err)
	require.False(t, dec.Allowed)

	s.Reset("/flights", "1.2.3.4")

	dec, err = s.Allow(context.Background(), "/flights", "1.2.3.4", cfg)
	require.NoError(t, err)
	require.True(t, dec.Allowed)
}

func TestRedisStore_NoLimitConfigured(t *testing.T) {
	f := newFakeRedis()
	s := &RedisStore{rdb: f}

	dec, err := s.Allow(context.Background(), "/", "1.2.3.4", Config{})
	require.NoError(t, err)
	require.True(t, dec.Allowed)
	require.Empty(t, f.counts)
}

func TestRedisStore_IncrErrorSurfaces(t *testing.T) {
	f := newFakeRedis()
	f.incrErr = errors.New("connection refused")
	s := &RedisStore{rdb: f}

	_, err := s.Allow(context.Background(), "/weather", "1.2.3.4", Config{Max: 1, Window: time.Minute})
	require.Error(t, err)
}
