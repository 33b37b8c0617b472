package middleware

import (
	"log"
	"net/http"
)

// RecoverMiddleware converts handler panics into 500 responses so that a
// single bad request never brings the process down.
type RecoverMiddleware struct {
	logger *log.Logger
}

// NewRecoverMiddleware creates a panic-recovery middleware.
func NewRecoverMiddleware(logger *log.Logger) *RecoverMiddleware {
	return &RecoverMiddleware{logger: logger}
}

// Recover wraps next with panic recovery.
func (m *RecoverMiddleware) Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				m.logger.Printf("ERROR [panic] %s %s: %v", r.Method, r.URL.Path, rec)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"error": "Internal server error"}`))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
