package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// ---- lightweight metric primitives (Prometheus text exposition) ----

// series is a labelled family of float samples. Counters and gauges differ
// only in their TYPE line and in which mutators callers use.
type series struct {
	name       string
	help       string
	kind       string
	labelNames []string
	mu         sync.RWMutex
	values     map[string]float64
}

func newSeries(name, help, kind string, labels []string) *series {
	return &series{name: name, help: help, kind: kind, labelNames: labels, values: map[string]float64{}}
}

func (s *series) add(v float64, values []string) {
	lbl := labelString(s.labelNames, values)
	s.mu.Lock()
	s.values[lbl] += v
	s.mu.Unlock()
}

func (s *series) set(v float64, values []string) {
	lbl := labelString(s.labelNames, values)
	s.mu.Lock()
	s.values[lbl] = v
	s.mu.Unlock()
}

func (s *series) get(values []string) float64 {
	lbl := labelString(s.labelNames, values)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[lbl]
}

func (s *series) WritePrometheus(w io.Writer) error {
	if err := writeHeader(w, s.name, s.help, s.kind); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.labelNames) == 0 {
		_, err := fmt.Fprintf(w, "%s %g\n", s.name, s.values[""])
		return err
	}
	for _, k := range sortedKeys(s.values) {
		if _, err := fmt.Fprintf(w, "%s%s %g\n", s.name, k, s.values[k]); err != nil {
			return err
		}
	}
	return nil
}

type CounterVec struct{ s *series }

func NewCounterVec(name, help string, labels []string) *CounterVec {
	return &CounterVec{s: newSeries(name, help, "counter", labels)}
}

func (c *CounterVec) Inc(values ...string) {
	if c != nil {
		c.s.add(1, values)
	}
}

func (c *CounterVec) Value(values ...string) float64 {
	if c == nil {
		return 0
	}
	return c.s.get(values)
}

func (c *CounterVec) WritePrometheus(w io.Writer) error { return c.s.WritePrometheus(w) }

type Gauge struct{ s *series }

func NewGauge(name, help string) *Gauge {
	return &Gauge{s: newSeries(name, help, "gauge", nil)}
}

func (g *Gauge) Set(v float64) {
	if g != nil {
		g.s.set(v, nil)
	}
}

func (g *Gauge) Inc() {
	if g != nil {
		g.s.add(1, nil)
	}
}

func (g *Gauge) Dec() {
	if g != nil {
		g.s.add(-1, nil)
	}
}

func (g *Gauge) Value() float64 {
	if g == nil {
		return 0
	}
	return g.s.get(nil)
}

func (g *Gauge) WritePrometheus(w io.Writer) error { return g.s.WritePrometheus(w) }

type HistogramVec struct {
	name       string
	help       string
	labelNames []string
	buckets    []float64
	mu         sync.RWMutex
	values     map[string]*histogram
}

type histogram struct {
	counts []uint64 // cumulative per bucket, last entry is +Inf
	sum    float64
	total  uint64
}

func NewHistogramVec(name, help string, labels []string, buckets []float64) *HistogramVec {
	if len(buckets) == 0 {
		buckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}
	}
	return &HistogramVec{name: name, help: help, labelNames: labels, buckets: buckets, values: map[string]*histogram{}}
}

func (h *HistogramVec) Observe(v float64, values ...string) {
	if h == nil {
		return
	}
	lbl := labelString(h.labelNames, values)
	h.mu.Lock()
	defer h.mu.Unlock()
	hist, ok := h.values[lbl]
	if !ok {
		hist = &histogram{counts: make([]uint64, len(h.buckets)+1)}
		h.values[lbl] = hist
	}
	hist.sum += v
	hist.total++
	for i, b := range h.buckets {
		if v <= b {
			hist.counts[i]++
		}
	}
	hist.counts[len(h.buckets)]++
}

func (h *HistogramVec) Count(values ...string) uint64 {
	if h == nil {
		return 0
	}
	lbl := labelString(h.labelNames, values)
	h.mu.RLock()
	defer h.mu.RUnlock()
	if hist, ok := h.values[lbl]; ok {
		return hist.total
	}
	return 0
}

func (h *HistogramVec) WritePrometheus(w io.Writer) error {
	if h == nil {
		return nil
	}
	if err := writeHeader(w, h.name, h.help, "histogram"); err != nil {
		return err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, k := range sortedKeys(h.values) {
		v := h.values[k]
		for i, b := range h.buckets {
			if _, err := fmt.Fprintf(w, "%s_bucket%s %d\n", h.name, withLe(k, fmt.Sprintf("%g", b)), v.counts[i]); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "%s_bucket%s %d\n", h.name, withLe(k, "+Inf"), v.counts[len(h.buckets)]); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s_sum%s %g\n%s_count%s %d\n", h.name, k, v.sum, h.name, k, v.total); err != nil {
			return err
		}
	}
	return nil
}

func writeHeader(w io.Writer, name, help, kind string) error {
	_, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n", name, help, name, kind)
	return err
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func labelString(names []string, values []string) string {
	if len(names) == 0 {
		return ""
	}
	parts := make([]string, len(names))
	for i, name := range names {
		val := "unknown"
		if i < len(values) && values[i] != "" {
			val = values[i]
		}
		parts[i] = name + `="` + escapeLabel(val) + `"`
	}
	return "{" + strings.Join(parts, ",") + "}"
}

var labelEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func escapeLabel(v string) string { return labelEscaper.Replace(v) }

func withLe(labels string, le string) string {
	le = escapeLabel(le)
	if labels == "" {
		return `{le="` + le + `"}`
	}
	return strings.TrimSuffix(labels, "}") + `,le="` + le + `"}`
}
