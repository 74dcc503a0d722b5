package httpapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/javi11/magicer/internal/admission"
	"github.com/javi11/magicer/internal/metrics"
)

// metricsHandler builds a dedicated Prometheus registry exposing the Go
// runtime collectors, the admission-control gauge that mirrors the
// "open_fds" live counter internal/pool/metrics_tracker.go samples for its
// own hand-rolled snapshot, and the shared ingest Recorder (in-flight
// requests, analyzer latency, buffer/spill counters), per SPEC_FULL.md's
// supplemented /v1/metrics endpoint. The registry is built once, at route
// registration time, not per request.
func metricsHandler(limiter *admission.Limiter, rec *metrics.Recorder) fiber.Handler {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "magicer_open_file_descriptors",
		Help: "Current count of file descriptor slots reserved by the ingest pipeline.",
	}, func() float64 { return float64(limiter.OpenFDs()) }))
	rec.MustRegister(registry)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return adaptor.HTTPHandler(handler)
}
