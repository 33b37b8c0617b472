package middleware

import (
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// RequestRecord captures one handled request for the access log and the
// sqlite request log.
type RequestRecord struct {
	RequestID string
	Method    string
	Path      string
	ClientKey string
	Status    int
	Duration  time.Duration
}

// Recorder receives finished request records. Implementations must be safe
// for concurrent use and must not block; slow sinks buffer internally.
type Recorder interface {
	Record(rec RequestRecord)
}

type multiRecorder []Recorder

func (m multiRecorder) Record(rec RequestRecord) {
	for _, r := range m {
		r.Record(rec)
	}
}

// MultiRecorder fans one record out to several recorders. Nils are skipped.
func MultiRecorder(recorders ...Recorder) Recorder {
	var out multiRecorder
	for _, r := range recorders {
		if r != nil {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// LoggingMiddleware handles request/response logging
type LoggingMiddleware struct {
	logger   *log.Logger
	recorder Recorder
}

// NewLoggingMiddleware creates a new logging middleware. recorder may be nil.
func NewLoggingMiddleware(logger *log.Logger, recorder Recorder) *LoggingMiddleware {
	return &LoggingMiddleware{logger: logger, recorder: recorder}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	if !rw.written {
		rw.statusCode = statusCode
		rw.written = true
		rw.ResponseWriter.WriteHeader(statusCode)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// LogRequest wraps an HTTP handler with request/response logging. Every
// request gets an X-Request-Id so a log line can be matched to a client
// report.
func (m *LoggingMiddleware) LogRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		w.Header().Set("X-Request-Id", requestID)

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		clientKey := ClientKey(r)
		m.logger.Printf(
			"%s %s %s %d %s %s",
			requestID,
			r.Method,
			r.URL.Path,
			wrapped.statusCode,
			duration,
			clientKey,
		)

		if m.recorder != nil {
			rec := RequestRecord{
				RequestID: requestID,
				Method:    r.Method,
				Path:      r.URL.Path,
				ClientKey: clientKey,
				Status:    wrapped.statusCode,
				Duration:  duration,
			}
			m.recorder.Record(rec)
		}
	})
}
