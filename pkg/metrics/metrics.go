// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

const namespace = "carta"
