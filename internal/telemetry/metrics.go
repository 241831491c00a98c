package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsRecorder is the metrics seam used by the sweep worker, the exporter
// and the catalog.
type MetricsRecorder interface {
	// ObserveSweep records a finished sweep with its terminal status,
	// duration and requested sample count.
	ObserveSweep(status string, duration time.Duration, samples int)
	// ObserveExport counts a spectrum export by format and outcome.
	ObserveExport(format string, success bool)
	// ObserveCatalogLookup counts a catalog lookup by result.
	ObserveCatalogLookup(result string)
}

// NopMetrics discards all observations.
type NopMetrics struct{}

func (NopMetrics) ObserveSweep(string, time.Duration, int) {}
func (NopMetrics) ObserveExport(string, bool)              {}
func (NopMetrics) ObserveCatalogLookup(string)             {}

// PrometheusMetrics implements MetricsRecorder on a private registry so two
// instances never collide on collector registration.
type PrometheusMetrics struct {
	registry       *prometheus.Registry
	sweeps         *prometheus.CounterVec
	sweepDuration  prometheus.Histogram
	sweepSamples   prometheus.Counter
	exports        *prometheus.CounterVec
	catalogLookups *prometheus.CounterVec
}

// NewPrometheusMetrics constructs and registers the collectors.
func NewPrometheusMetrics() *PrometheusMetrics {
	m := &PrometheusMetrics{
		registry: prometheus.NewRegistry(),
		sweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "opticore_sweeps_total",
			Help: "Finished sweeps by terminal status.",
		}, []string{"status"}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "opticore_sweep_duration_seconds",
			Help:    "Wall-clock duration of finished sweeps.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		sweepSamples: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "opticore_sweep_samples_total",
			Help: "Wavelength samples requested across all sweeps.",
		}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "opticore_exports_total",
			Help: "Spectrum exports by format and outcome.",
		}, []string{"format", "outcome"}),
		catalogLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "opticore_catalog_lookups_total",
			Help: "Catalog lookups by result.",
		}, []string{"result"}),
	}
	m.registry.MustRegister(m.sweeps, m.sweepDuration, m.sweepSamples, m.exports, m.catalogLookups)
	return m
}

func (m *PrometheusMetrics) ObserveSweep(status string, duration time.Duration, samples int) {
	m.sweeps.WithLabelValues(status).Inc()
	m.sweepDuration.Observe(duration.Seconds())
	m.sweepSamples.Add(float64(samples))
}

func (m *PrometheusMetrics) ObserveExport(format string, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.exports.WithLabelValues(format, outcome).Inc()
}

func (m *PrometheusMetrics) ObserveCatalogLookup(result string) {
	m.catalogLookups.WithLabelValues(result).Inc()
}

// Handler exposes the registry for the /metrics endpoint.
func (m *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for test scrapes.
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}
