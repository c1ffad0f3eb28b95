package metrics

import (
	"database/sql"

	"github.com/prometheus/client_golang/prometheus"
)

// StatsSource is satisfied by *sql.DB.
type StatsSource interface {
	Stats() sql.DBStats
}

// DBStatsCollector exports connection pool statistics on every scrape.
// Delivery log writes share the pool with destination lookups, so pool
// saturation shows up here before it shows up as notification latency.
type DBStatsCollector struct {
	src StatsSource

	open     *prometheus.Desc
	inUse    *prometheus.Desc
	idle     *prometheus.Desc
	waits    *prometheus.Desc
	waitTime *prometheus.Desc
}

// NewDBStatsCollector labels every series with db=name.
func NewDBStatsCollector(src StatsSource, name string) *DBStatsCollector {
	labels := prometheus.Labels{"db": name}
	return &DBStatsCollector{
		src:      src,
		open:     prometheus.NewDesc("db_connections_open", "Open connections in the pool.", nil, labels),
		inUse:    prometheus.NewDesc("db_connections_in_use", "Connections currently in use.", nil, labels),
		idle:     prometheus.NewDesc("db_connections_idle", "Idle connections in the pool.", nil, labels),
		waits:    prometheus.NewDesc("db_connections_wait_total", "Connections waited for.", nil, labels),
		waitTime: prometheus.NewDesc("db_connections_wait_seconds_total", "Time spent waiting for a connection.", nil, labels),
	}
}

// Describe implements prometheus.Collector.
func (c *DBStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.open
	ch <- c.inUse
	ch <- c.idle
	ch <- c.waits
	ch <- c.waitTime
}

// Collect implements prometheus.Collector.
func (c *DBStatsCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Stats()
	ch <- prometheus.MustNewConstMetric(c.open, prometheus.GaugeValue, float64(s.OpenConnections))
	ch <- prometheus.MustNewConstMetric(c.inUse, prometheus.GaugeValue, float64(s.InUse))
	ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(s.Idle))
	ch <- prometheus.MustNewConstMetric(c.waits, prometheus.CounterValue, float64(s.WaitCount))
	ch <- prometheus.MustNewConstMetric(c.waitTime, prometheus.CounterValue, s.WaitDuration.Seconds())
}

// RegisterDB registers a pool collector on reg. It returns an error if a
// collector for the same db name is already registered.
func RegisterDB(reg prometheus.Registerer, src StatsSource, name string) error {
	return reg.Register(NewDBStatsCollector(src, name))
}
