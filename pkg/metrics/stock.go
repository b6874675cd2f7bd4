package metrics

import "github.com/prometheus/client_golang/prometheus"

// StockMetrics exposes the latest stock report computed by the worker.
type StockMetrics struct {
	shortages   prometheus.Gauge
	missing     prometheus.Gauge
	unavailable prometheus.Gauge
}

func NewStockMetrics(reg prometheus.Registerer) *StockMetrics {
	if reg == nil {
		return &StockMetrics{}
	}
	m := &StockMetrics{
		shortages: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stock_short_categories",
			Help:      "Categories holding fewer sealed bottles than desired.",
		}),
		missing: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stock_missing_bottles",
			Help:      "Sealed bottles needed to reach every desired stock level.",
		}),
		unavailable: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cocktails_unavailable",
			Help:      "Cocktails that cannot be served from current stock.",
		}),
	}
	reg.MustRegister(m.shortages, m.missing, m.unavailable)
	return m
}

func (m *StockMetrics) SetShortages(categories, missingBottles int) {
	if m == nil || m.shortages == nil {
		return
	}
	m.shortages.Set(float64(categories))
	m.missing.Set(float64(missingBottles))
}

func (m *StockMetrics) SetUnavailableCocktails(n int) {
	if m == nil || m.unavailable == nil {
		return
	}
	m.unavailable.Set(float64(n))
}
