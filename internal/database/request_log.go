package database

import (
	"log"
	"net/http"
	"time"

	"github.com/Barnhirg/travel-ai-mobile-backend/internal/middleware"
)

// RequestLog is one recorded request.
type RequestLog struct {
	ID          int64
	RequestID   string
	Method      string
	Path        string
	ClientKey   string
	Status      int
	DurationMS  int64
	RateLimited bool
	CreatedAt   time.Time
}

// LogRequest inserts a request-log row
func (db *DB) LogRequest(rec middleware.RequestRecord) error {
	rateLimited := 0
	if rec.Status == http.StatusTooManyRequests {
		rateLimited = 1
	}
	_, err := db.conn.Exec(
		`INSERT INTO request_logs (request_id, method, path, client_key, status, duration_ms, rate_limited, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RequestID, rec.Method, rec.Path, rec.ClientKey, rec.Status, rec.Duration.Milliseconds(), rateLimited, time.Now().Unix(),
	)
	return err
}

// Recorder adapts the DB to the logging middleware's Recorder interface. A
// single writer goroutine drains a bounded queue, keeping inserts off the
// request path and giving shutdown a way to flush in-flight records before
// the database closes.
type Recorder struct {
	db     *DB
	logger *log.Logger
	queue  chan middleware.RequestRecord
	done   chan struct{}
}

const recorderQueueSize = 256

// NewRecorder creates a middleware.Recorder backed by the request-log table
// and starts its writer. Call Close before closing the database.
func NewRecorder(db *DB, logger *log.Logger) *Recorder {
	r := &Recorder{
		db:     db,
		logger: logger,
		queue:  make(chan middleware.RequestRecord, recorderQueueSize),
		done:   make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *Recorder) run() {
	defer close(r.done)
	for rec := range r.queue {
		if err := r.db.LogRequest(rec); err != nil {
			r.logger.Printf("WARN [requestlog] insert failed: %v", err)
		}
	}
}

// Record enqueues one request-log row without blocking. When the queue is
// full the record is dropped; the request log is operational data, not a
// source of truth.
func (r *Recorder) Record(rec middleware.RequestRecord) {
	select {
	case r.queue <- rec:
	default:
		r.logger.Printf("WARN [requestlog] queue full, dropping record %s", rec.RequestID)
	}
}

// Close stops accepting records and waits for the writer to drain the queue.
func (r *Recorder) Close() {
	close(r.queue)
	<-r.done
}

// RecentRequests returns the newest request-log rows, capped at limit.
// Used by operational tooling; nothing on the request path reads the log.
func (db *DB) RecentRequests(limit int) ([]RequestLog, error) {
	rows, err := db.conn.Query(
		`SELECT log_id, request_id, method, path, client_key, status, duration_ms, rate_limited, created_at
		 FROM request_logs ORDER BY log_id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []RequestLog
	for rows.Next() {
		var l RequestLog
		var rateLimited int
		var createdAt int64
		if err := rows.Scan(&l.ID, &l.RequestID, &l.Method, &l.Path, &l.ClientKey, &l.Status, &l.DurationMS, &rateLimited, &createdAt); err != nil {
			return nil, err
		}
		l.RateLimited = rateLimited != 0
		l.CreatedAt = time.Unix(createdAt, 0)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
