package middleware

import "net/http"

// CORSMiddleware answers cross-origin requests for the configured browser
// origins. Origins not on the allow list get no CORS headers at all and the
// browser blocks the response on its side.
type CORSMiddleware struct {
	allowed map[string]bool
}

// NewCORSMiddleware creates a CORS middleware from an origin allow list.
func NewCORSMiddleware(origins []string) *CORSMiddleware {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return &CORSMiddleware{allowed: allowed}
}

// Handle sets CORS headers for allowed origins and short-circuits preflight
// requests.
func (m *CORSMiddleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && m.allowed[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
