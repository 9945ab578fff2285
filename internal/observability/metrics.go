package observability

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Catchment request outcomes, one per terminal state of a request.
const (
	OutcomeOK                 = "ok"
	OutcomeNoFeatures         = "no_features"
	OutcomeMissingParameter   = "missing_parameter"
	OutcomeInvalidParameter   = "invalid_parameter"
	OutcomeWorkspaceFailed    = "workspace_failed"
	OutcomeResolveFailed      = "resolve_failed"
	OutcomeArtifactUnreadable = "artifact_unreadable"
	OutcomeStreamAborted      = "stream_aborted"
)

type Metrics struct {
	httpRequests   *CounterVec
	httpLatency    *HistogramVec
	httpInflight   *Gauge
	outcomes       *CounterVec
	resolveLatency *HistogramVec
	workspaces     *Gauge

	mu         sync.RWMutex
	liveSource func() int
}

func NewMetrics() *Metrics {
	return &Metrics{
		httpRequests: NewCounterVec("catchment_http_requests_total", "HTTP requests by method/route/status.", []string{"method", "route", "status"}),
		httpLatency: NewHistogramVec(
			"catchment_http_request_duration_seconds",
			"HTTP request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		),
		httpInflight: NewGauge("catchment_http_inflight_requests", "In-flight HTTP requests."),
		outcomes:     NewCounterVec("catchment_requests_total", "Catchment requests by outcome.", []string{"outcome"}),
		resolveLatency: NewHistogramVec(
			"catchment_resolve_duration_seconds",
			"Delineation latency in seconds by status.",
			[]string{"status"},
			[]float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		),
		workspaces: NewGauge("catchment_workspaces_live", "Scratch workspaces currently on disk."),
	}
}

func (m *Metrics) ObserveHTTP(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.Inc(method, route, status)
	m.httpLatency.Observe(dur.Seconds(), method, route, status)
}

func (m *Metrics) HTTPInflightInc() {
	if m != nil {
		m.httpInflight.Inc()
	}
}

func (m *Metrics) HTTPInflightDec() {
	if m != nil {
		m.httpInflight.Dec()
	}
}

func (m *Metrics) IncOutcome(outcome string) {
	if m != nil {
		m.outcomes.Inc(outcome)
	}
}

func (m *Metrics) Outcomes(outcome string) float64 {
	if m == nil {
		return 0
	}
	return m.outcomes.Value(outcome)
}

// ObserveResolve matches the resolve-hook signature of catchment.Pipeline.
func (m *Metrics) ObserveResolve(status string, dur time.Duration) {
	if m != nil {
		m.resolveLatency.Observe(dur.Seconds(), status)
	}
}

func (m *Metrics) ResolveCount(status string) uint64 {
	if m == nil {
		return 0
	}
	return m.resolveLatency.Count(status)
}

// TrackWorkspaces samples fn for the live-workspace gauge at every scrape.
func (m *Metrics) TrackWorkspaces(fn func() int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.liveSource = fn
	m.mu.Unlock()
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, _ *http.Request) {
	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = w.Write(buf.Bytes())
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	m.mu.RLock()
	live := m.liveSource
	m.mu.RUnlock()
	if live != nil {
		m.workspaces.Set(float64(live()))
	}

	for _, c := range []interface{ WritePrometheus(io.Writer) error }{
		m.httpRequests,
		m.httpLatency,
		m.httpInflight,
		m.outcomes,
		m.resolveLatency,
		m.workspaces,
	} {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}
