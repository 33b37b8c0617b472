package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps fixed-window counters in process memory.
// Counters are created lazily and reset in place when their window elapses.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*window

	// now is swappable so tests can move time.
	now func() time.Time
}

type window struct {
	start time.Time
	count int
}

// NewMemoryStore creates an empty in-memory limiter store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Allow increments the counter for (route, clientKey) and reports whether the
// request fits inside the current window.
func (s *MemoryStore) Allow(_ context.Context, route, clientKey string, cfg Config) (Decision, error) {
	if cfg.Max <= 0 || cfg.Window <= 0 {
		return Decision{Allowed: true}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	key := route + "\x00" + clientKey

	w, ok := s.windows[key]
	if !ok || now.Sub(w.start) >= cfg.Window {
		w = &window{start: now}
		s.windows[key] = w
	}

	w.count++
	remaining := cfg.Max - w.count
	if remaining < 0 {
		remaining = 0
	}

	if w.count > cfg.Max {
		return Decision{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: w.start.Add(cfg.Window).Sub(now),
		}, nil
	}
	return Decision{Allowed: true, Remaining: remaining}, nil
}

// Reset drops the counter for one (route, clientKey) pair.
func (s *MemoryStore) Reset(route, clientKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, route+"\x00"+clientKey)
}
