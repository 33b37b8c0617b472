package middleware

import (
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/Barnhirg/travel-ai-mobile-backend/internal/ratelimit"
)

const rateLimitedBody = `{"error": "Too many requests. Please try again later."}`

// ClientKey derives the rate-limit partition key for a request: the first
// X-Forwarded-For entry when present, otherwise the host part of the
// connection's remote address. It carries no authentication semantics.
func ClientKey(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.SplitN(xff, ",", 2)[0])
		if first != "" {
			return first
		}
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}

// RateLimitMiddleware applies per-route fixed-window limits ahead of the
// route handlers.
type RateLimitMiddleware struct {
	store  ratelimit.Store
	logger *log.Logger
}

// NewRateLimitMiddleware creates a rate-limit middleware backed by store.
func NewRateLimitMiddleware(store ratelimit.Store, logger *log.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{store: store, logger: logger}
}

// Limit wraps next with a fixed-window check for the given route. Routes
// with a zero config pass through untouched.
func (m *RateLimitMiddleware) Limit(route string, cfg ratelimit.Config, next http.Handler) http.Handler {
	if cfg.Max <= 0 || cfg.Window <= 0 {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := ClientKey(r)

		dec, err := m.store.Allow(r.Context(), route, key, cfg)
		if err != nil {
			// A broken limiter store must not take the gateway
			// down with it. Fail open and log.
			m.logger.Printf("WARN [ratelimit] store error route=%s key=%s: %v", route, key, err)
			next.ServeHTTP(w, r)
			return
		}

		if !dec.Allowed {
			retryAfter := int(dec.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(rateLimitedBody))
			return
		}

		next.ServeHTTP(w, r)
	})
}
