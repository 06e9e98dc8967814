// Package metric provides Prometheus metrics for deltasnap.
//
//   - prometheus.go: registry, HTTP handler, request and replay metrics
//   - collector.go: per-table gauges read from the server's table registry
//
// Metrics are exposed at /metrics in Prometheus format.
package metric
