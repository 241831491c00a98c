package telemetry

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestPrometheusMetricsExposesCounters(t *testing.T) {
	m := NewPrometheusMetrics()
	m.ObserveSweep("succeeded", 120*time.Millisecond, 500)
	m.ObserveSweep("cancelled", 10*time.Millisecond, 100)
	m.ObserveExport("csv", true)
	m.ObserveExport("pdf", false)
	m.ObserveCatalogLookup("hit")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	for _, want := range []string{
		`opticore_sweeps_total{status="succeeded"} 1`,
		`opticore_sweeps_total{status="cancelled"} 1`,
		`opticore_sweep_samples_total 600`,
		`opticore_exports_total{format="csv",outcome="success"} 1`,
		`opticore_exports_total{format="pdf",outcome="failure"} 1`,
		`opticore_catalog_lookups_total{result="hit"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %q:\n%s", want, body)
		}
	}
}

func TestTwoRecordersDoNotCollide(t *testing.T) {
	a := NewPrometheusMetrics()
	b := NewPrometheusMetrics()
	a.ObserveCatalogLookup("hit")
	b.ObserveCatalogLookup("miss")
}

func TestNopImplementationsAreSafe(t *testing.T) {
	var l Logger = NopLogger{}
	l.Debug("x", "k", "v")
	l.Info("x")
	l.Warn("x")
	l.Error("x")
	var m MetricsRecorder = NopMetrics{}
	m.ObserveSweep("", 0, 0)
	m.ObserveExport("", true)
	m.ObserveCatalogLookup("")
}
