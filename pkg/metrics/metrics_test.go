package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestJobMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewJobMetrics(reg)
	job := "orphan-image-cleanup"
	metrics.ObserveDuration(job, 250*time.Millisecond)
	metrics.IncSuccess(job)
	metrics.IncFailure(job)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "carta_job_success_total", "job", job); err != nil {
		t.Fatalf("fetch success: %v", err)
	} else if got != 1 {
		t.Fatalf("expected success=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "carta_job_failure_total", "job", job); err != nil {
		t.Fatalf("fetch failure: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failure=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "carta_job_duration_seconds", "job", job); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestImportMetricsCountsByOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewImportMetrics(reg)
	metrics.ObserveImport("confirm", "ok", 10*time.Millisecond)
	metrics.ObserveImport("confirm", "conflict", 5*time.Millisecond)
	metrics.ObserveImport("confirm", "ok", 5*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "carta_recipe_imports_total", "outcome", "ok"); err != nil {
		t.Fatalf("fetch ok: %v", err)
	} else if got != 2 {
		t.Fatalf("expected ok=2, got %f", got)
	}
	if got, err := fetchHistogramSum(mfs, "carta_recipe_import_duration_seconds", "stage", "confirm"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestHTTPMetricsUsesRouteLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewHTTPMetrics(reg)
	metrics.Observe("GET", "/api/cocktails/{id}", 200, time.Millisecond)
	metrics.Observe("GET", "", 404, time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "carta_http_requests_total", "route", "/api/cocktails/{id}"); err != nil || got != 1 {
		t.Fatalf("expected one routed request, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "carta_http_requests_total", "route", "unknown"); err != nil || got != 1 {
		t.Fatalf("expected unrouted request under unknown, got %f (%v)", got, err)
	}
}

func TestStockMetricsGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewStockMetrics(reg)
	metrics.SetShortages(2, 5)
	metrics.SetUnavailableCocktails(4)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	mf := findMetricFamily(mfs, "carta_stock_missing_bottles")
	if mf == nil || mf.GetMetric()[0].GetGauge().GetValue() != 5 {
		t.Fatalf("expected missing bottles gauge of 5")
	}
	mf = findMetricFamily(mfs, "carta_cocktails_unavailable")
	if mf == nil || mf.GetMetric()[0].GetGauge().GetValue() != 4 {
		t.Fatalf("expected unavailable gauge of 4")
	}
}

func TestNilRegistererIsSafe(t *testing.T) {
	NewJobMetrics(nil).IncSuccess("job")
	NewImportMetrics(nil).ObserveImport("preview", "ok", time.Second)
	NewHTTPMetrics(nil).Observe("GET", "/", 200, time.Second)
	NewStockMetrics(nil).SetShortages(1, 1)
	var m *ImportMetrics
	m.ObserveImport("preview", "ok", time.Second)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
