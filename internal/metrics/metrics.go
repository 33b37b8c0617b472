// Package metrics collects in-memory request statistics for the /metrics
// endpoint. Counters are per route; latency percentiles cover the gateway as
// a whole.
package metrics

import (
	"encoding/json"
	"math"
	"net/http"
	"sort"
	"sync"

	"github.com/Barnhirg/travel-ai-mobile-backend/internal/middleware"
)

const maxLatencySamples = 10_000

// Metrics collects in-memory performance statistics. It implements
// middleware.Recorder so the logging middleware can feed it.
type Metrics struct {
	mu          sync.Mutex
	perRoute    map[string]*routeCounters
	rateLimited int64
	latencies   []int64 // end-to-end ms
}

type routeCounters struct {
	Total    int64 `json:"total"`
	Failures int64 `json:"failures"` // 5xx responses
}

// Snapshot is the computed snapshot returned by the /metrics endpoint.
type Snapshot struct {
	TotalRequests int64                    `json:"total_requests"`
	RateLimited   int64                    `json:"rate_limited"`
	AvgLatencyMs  float64                  `json:"avg_latency_ms"`
	P95LatencyMs  int64                    `json:"p95_latency_ms"`
	Routes        map[string]routeCounters `json:"routes"`
}

func New() *Metrics {
	return &Metrics{
		perRoute:  make(map[string]*routeCounters),
		latencies: make([]int64, 0, 1024),
	}
}

// Record captures a single completed request.
func (m *Metrics) Record(rec middleware.RequestRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rc, ok := m.perRoute[rec.Path]
	if !ok {
		rc = &routeCounters{}
		m.perRoute[rec.Path] = rc
	}
	rc.Total++
	if rec.Status >= 500 {
		rc.Failures++
	}
	if rec.Status == http.StatusTooManyRequests {
		m.rateLimited++
	}

	latencyMs := rec.Duration.Milliseconds()
	if len(m.latencies) < maxLatencySamples {
		m.latencies = append(m.latencies, latencyMs)
	} else {
		// Rolling window: drop oldest sample.
		copy(m.latencies, m.latencies[1:])
		m.latencies[maxLatencySamples-1] = latencyMs
	}
}

// Snapshot computes the current snapshot.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		RateLimited: m.rateLimited,
		Routes:      make(map[string]routeCounters, len(m.perRoute)),
	}
	for path, rc := range m.perRoute {
		snap.Routes[path] = *rc
		snap.TotalRequests += rc.Total
	}

	if len(m.latencies) > 0 {
		lats := make([]int64, len(m.latencies))
		copy(lats, m.latencies)
		sort.Slice(lats, func(i, j int) bool { return lats[i] < lats[j] })

		var sum int64
		for _, l := range lats {
			sum += l
		}
		snap.AvgLatencyMs = float64(sum) / float64(len(lats))

		idx := int(math.Ceil(0.95*float64(len(lats)))) - 1
		if idx < 0 {
			idx = 0
		}
		snap.P95LatencyMs = lats[idx]
	}
	return snap
}

// Handler serves the snapshot as JSON.
func (m *Metrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(m.Snapshot())
	})
}
