// Package ratelimit implements fixed-window request counting keyed by
// (route, client key). Counters live either in process memory or in Redis;
// both stores expose the same contract so handlers never care which one is
// behind them.
package ratelimit

import (
	"context"
	"time"
)

// Config is the per-route limiter setting: at most Max requests per Window
// from one client key.
type Config struct {
	Max    int
	Window time.Duration
}

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed   bool
	Remaining int
	// RetryAfter is how long until the current window resets. Only
	// meaningful on rejection.
	RetryAfter time.Duration
}

// Store tracks fixed-window counters per (route, clientKey).
//
// Allow follows increment-then-check: the counter moves on every call, so a
// rejected request still consumes its slot in the window. Reset clears one
// counter and exists for test isolation.
type Store interface {
	Allow(ctx context.Context, route, clientKey string, cfg Config) (Decision, error)
	Reset(route, clientKey string)
}
