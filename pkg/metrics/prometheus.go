package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder publishes scan and collection metrics to Prometheus.
type Recorder struct {
	scansTotal     *prometheus.CounterVec
	tickersTotal   *prometheus.CounterVec
	signalsTotal   *prometheus.CounterVec
	barsFetched    *prometheus.CounterVec
	phaseCount     *prometheus.GaugeVec
	benchmarkPhase prometheus.Gauge
	latency        *prometheus.HistogramVec
}

// New creates a recorder registered on reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		scansTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phasescan_scans_total",
				Help: "Total number of universe scans by outcome",
			},
			[]string{"status"},
		),
		tickersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phasescan_tickers_evaluated_total",
				Help: "Tickers processed by a scan, by outcome",
			},
			[]string{"outcome"},
		),
		signalsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phasescan_signals_total",
				Help: "Actionable signals emitted, by side",
			},
			[]string{"side"},
		),
		barsFetched: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phasescan_bars_fetched_total",
				Help: "Daily bars fetched from a provider",
			},
			[]string{"provider"},
		),
		phaseCount: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "phasescan_phase_tickers",
				Help: "Number of tickers per phase in the latest scan",
			},
			[]string{"phase"},
		),
		benchmarkPhase: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "phasescan_benchmark_phase",
				Help: "Phase of the benchmark in the latest scan",
			},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "phasescan_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordScan records a finished scan
func (r *Recorder) RecordScan(status string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.scansTotal.WithLabelValues(status).Inc()
	r.latency.WithLabelValues("scan").Observe(elapsed.Seconds())
}

// RecordTicker records the outcome of one ticker: evaluated, filtered or failed
func (r *Recorder) RecordTicker(outcome string) {
	if r == nil {
		return
	}
	r.tickersTotal.WithLabelValues(outcome).Inc()
}

// RecordSignals records actionable signal counts
func (r *Recorder) RecordSignals(buys, sells int) {
	if r == nil {
		return
	}
	r.signalsTotal.WithLabelValues("buy").Add(float64(buys))
	r.signalsTotal.WithLabelValues("sell").Add(float64(sells))
}

// RecordBars records bars fetched from a provider
func (r *Recorder) RecordBars(provider string, n int) {
	if r == nil {
		return
	}
	r.barsFetched.WithLabelValues(provider).Add(float64(n))
}

// RecordPhases sets the per-phase gauges and the benchmark phase
func (r *Recorder) RecordPhases(counts map[string]int, benchmarkPhase int) {
	if r == nil {
		return
	}
	for phase, n := range counts {
		r.phaseCount.WithLabelValues(phase).Set(float64(n))
	}
	r.benchmarkPhase.Set(float64(benchmarkPhase))
}

// RecordLatency records operation latency
func (r *Recorder) RecordLatency(op string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.latency.WithLabelValues(op).Observe(elapsed.Seconds())
}
