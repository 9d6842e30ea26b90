package database

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PoolCollector exports pgxpool statistics as Prometheus gauges
type PoolCollector struct {
	db *DB

	total    *prometheus.Desc
	idle     *prometheus.Desc
	acquired *prometheus.Desc
	max      *prometheus.Desc
	waits    *prometheus.Desc
}

// NewPoolCollector creates a collector for db. Register it next to the
// scan metrics.
func NewPoolCollector(db *DB) *PoolCollector {
	return &PoolCollector{
		db:       db,
		total:    prometheus.NewDesc("phasescan_db_pool_total_conns", "Open connections in the pool", nil, nil),
		idle:     prometheus.NewDesc("phasescan_db_pool_idle_conns", "Idle connections in the pool", nil, nil),
		acquired: prometheus.NewDesc("phasescan_db_pool_acquired_conns", "Connections currently in use", nil, nil),
		max:      prometheus.NewDesc("phasescan_db_pool_max_conns", "Configured pool size", nil, nil),
		waits:    prometheus.NewDesc("phasescan_db_pool_empty_acquire_total", "Acquires that waited for a free connection", nil, nil),
	}
}

// Describe implements prometheus.Collector
func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.total
	ch <- c.idle
	ch <- c.acquired
	ch <- c.max
	ch <- c.waits
}

// Collect implements prometheus.Collector
func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	stat := c.db.Pool.Stat()
	ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(stat.TotalConns()))
	ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(stat.IdleConns()))
	ch <- prometheus.MustNewConstMetric(c.acquired, prometheus.GaugeValue, float64(stat.AcquiredConns()))
	ch <- prometheus.MustNewConstMetric(c.max, prometheus.GaugeValue, float64(stat.MaxConns()))
	ch <- prometheus.MustNewConstMetric(c.waits, prometheus.CounterValue, float64(stat.EmptyAcquireCount()))
}
