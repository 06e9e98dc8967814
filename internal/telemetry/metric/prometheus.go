package metric

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/baumanab/delta/internal/core/domain"
	"github.com/baumanab/delta/internal/core/replay"
)

const namespace = "deltasnap"

// Registry holds all application metrics.
type Registry struct {
	registry *prometheus.Registry

	// Replay metrics
	ReplayDuration *prometheus.HistogramVec
	ReplayRecords  *prometheus.CounterVec
	ReplayFiles    *prometheus.CounterVec
	ReplayErrors   *prometheus.CounterVec

	// Checksum metrics
	ChecksumVerifications *prometheus.CounterVec

	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewRegistry creates a registry with Go runtime and process collectors
// plus the application metrics.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		ReplayDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "replay_duration_seconds",
			Help:      "Time to reconstruct a table version from its log segment.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"table"}),
		ReplayRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replay_records_total",
			Help:      "Log records folded by replays.",
		}, []string{"table"}),
		ReplayFiles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replay_log_files_total",
			Help:      "Log files read by replays.",
		}, []string{"table"}),
		ReplayErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replay_errors_total",
			Help:      "Failed replays by error code.",
		}, []string{"table", "code"}),
		ChecksumVerifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checksum_verifications_total",
			Help:      "Checksum verifications by result (match, mismatch, error).",
		}, []string{"result"}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.ReplayDuration,
		r.ReplayRecords,
		r.ReplayFiles,
		r.ReplayErrors,
		r.ChecksumVerifications,
		r.RequestsTotal,
		r.RequestDuration,
	)
	return r
}

var (
	globalOnce sync.Once
	global     *Registry
)

// Global returns the process-wide registry.
func Global() *Registry {
	globalOnce.Do(func() { global = NewRegistry() })
	return global
}

// Handler serves the global registry.
func Handler() http.Handler {
	return Global().Handler()
}

// Handler serves r in Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registerer exposes r to components that register their own collectors,
// such as the Badger engine.
func (r *Registry) Registerer() prometheus.Registerer {
	return r.registry
}

// Gatherer exposes r for tests and custom exposition.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// RecordRequest counts one HTTP request.
func (r *Registry) RecordRequest(method, route, status string) {
	r.RequestsTotal.WithLabelValues(method, route, status).Inc()
}

// ObserveRequestDuration records HTTP latency in seconds.
func (r *Registry) ObserveRequestDuration(method, route string, seconds float64) {
	r.RequestDuration.WithLabelValues(method, route).Observe(seconds)
}

// RecordChecksumVerification counts a verification outcome.
func (r *Registry) RecordChecksumVerification(result string) {
	r.ChecksumVerifications.WithLabelValues(result).Inc()
}

// ReplayObserver returns a replay.Observer recording runs of table.
func (r *Registry) ReplayObserver(table string) replay.Observer {
	return &replayObserver{r: r, table: table}
}

type replayObserver struct {
	r     *Registry
	table string
}

func (o *replayObserver) ReplayFinished(_ *domain.LogSegment, stats replay.Stats, err error) {
	if err != nil {
		code := domain.GetErrorCode(err)
		if code == "" {
			code = "unknown"
		}
		o.r.ReplayErrors.WithLabelValues(o.table, code).Inc()
		return
	}
	o.r.ReplayDuration.WithLabelValues(o.table).Observe(stats.Elapsed.Seconds())
	o.r.ReplayRecords.WithLabelValues(o.table).Add(float64(stats.Records))
	o.r.ReplayFiles.WithLabelValues(o.table).Add(float64(stats.Files))
}
