// Package metrics defines the Prometheus instrumentation shared between
// the ingest pipeline and the HTTP edge's /v1/metrics endpoint, per
// SPEC_FULL.md's supplemented metrics surface (in-flight requests,
// analyzer call latency, spill-vs-buffer counters). Grounded on the
// counter/gauge inventory of internal/pool/metrics_tracker.go, re-expressed
// against a real prometheus.Registry instead of a hand-rolled snapshot
// struct.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder owns the ingest-pipeline metrics. It is constructed once at
// startup and shared by internal/ingest (which updates it) and
// internal/httpapi (which registers it alongside the Go/process
// collectors and the admission gauge).
type Recorder struct {
	inFlight        prometheus.Gauge
	analyzeDuration prometheus.Histogram
	bufferTotal     prometheus.Counter
	spillTotal      prometheus.Counter
}

// New builds a Recorder with its own set of collectors, unregistered.
// Call MustRegister to attach it to a registry.
func New() *Recorder {
	return &Recorder{
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "magicer_requests_in_flight",
			Help: "Number of ingest requests currently admitted and being processed.",
		}),
		analyzeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "magicer_analyze_duration_seconds",
			Help:    "Time spent inside the analyzer call, from dispatch to return.",
			Buckets: prometheus.DefBuckets,
		}),
		bufferTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "magicer_buffer_requests_total",
			Help: "Requests handled by buffering the body in memory.",
		}),
		spillTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "magicer_spill_requests_total",
			Help: "Requests handled by spilling the body to a temp file.",
		}),
	}
}

// MustRegister attaches the recorder's collectors to reg. Panics on a
// duplicate registration, matching the other collectors registered
// alongside it at route-registration time.
func (r *Recorder) MustRegister(reg *prometheus.Registry) {
	reg.MustRegister(r.inFlight, r.analyzeDuration, r.bufferTotal, r.spillTotal)
}

// IncInFlight and DecInFlight bracket a single request's processing.
func (r *Recorder) IncInFlight() { r.inFlight.Inc() }
func (r *Recorder) DecInFlight() { r.inFlight.Dec() }

// ObserveAnalyze records the wall-clock duration of one analyzer call.
func (r *Recorder) ObserveAnalyze(d time.Duration) {
	r.analyzeDuration.Observe(d.Seconds())
}

// IncBuffer and IncSpill record which ingest decision a request took.
func (r *Recorder) IncBuffer() { r.bufferTotal.Inc() }
func (r *Recorder) IncSpill()  { r.spillTotal.Inc() }
