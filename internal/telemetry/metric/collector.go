package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// TableStat is the cached state of one served table.
type TableStat struct {
	Name       string
	Version    int64
	LiveFiles  int64
	TableBytes int64
}

// TableStatsSource lists the tables whose latest snapshot is loaded.
type TableStatsSource interface {
	TableStats() []TableStat
}

// Collector reports per-table gauges at scrape time.
type Collector struct {
	source TableStatsSource

	version *prometheus.Desc
	files   *prometheus.Desc
	bytes   *prometheus.Desc
}

// NewCollector creates a collector reading from source.
func NewCollector(source TableStatsSource) *Collector {
	return &Collector{
		source: source,
		version: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "table", "version"),
			"Latest loaded version of the table.",
			[]string{"table"}, nil),
		files: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "table", "live_files"),
			"Live data files in the latest loaded snapshot.",
			[]string{"table"}, nil),
		bytes: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "table", "size_bytes"),
			"Total size of live data files in the latest loaded snapshot.",
			[]string{"table"}, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.version
	ch <- c.files
	ch <- c.bytes
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, s := range c.source.TableStats() {
		ch <- prometheus.MustNewConstMetric(c.version, prometheus.GaugeValue, float64(s.Version), s.Name)
		ch <- prometheus.MustNewConstMetric(c.files, prometheus.GaugeValue, float64(s.LiveFiles), s.Name)
		ch <- prometheus.MustNewConstMetric(c.bytes, prometheus.GaugeValue, float64(s.TableBytes), s.Name)
	}
}
