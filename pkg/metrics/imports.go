package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ImportMetrics counts recipe import previews and confirmations by outcome.
type ImportMetrics struct {
	total    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewImportMetrics(reg prometheus.Registerer) *ImportMetrics {
	if reg == nil {
		return &ImportMetrics{}
	}
	total := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "recipe_imports_total",
		Help:      "Recipe import calls by stage and outcome.",
	}, []string{"stage", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "recipe_import_duration_seconds",
		Help:      "Recipe import latency by stage.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"stage"})
	reg.MustRegister(total, duration)
	return &ImportMetrics{total: total, duration: duration}
}

// ObserveImport satisfies the recipes observer.
func (m *ImportMetrics) ObserveImport(stage, outcome string, duration time.Duration) {
	if m == nil || m.total == nil {
		return
	}
	m.total.WithLabelValues(normalizeLabel(stage), normalizeLabel(outcome)).Inc()
	m.duration.WithLabelValues(normalizeLabel(stage)).Observe(duration.Seconds())
}
