// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Backtest metrics
	RunsTotal        *prometheus.CounterVec
	RunDuration      *prometheus.HistogramVec
	BarsProcessed    prometheus.Counter
	SignalsProcessed *prometheus.CounterVec
	TradesTotal      *prometheus.CounterVec
	EntriesRejected  *prometheus.CounterVec

	// Ingestion metrics
	BarsStored prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// API metrics
	HTTPRequests  *prometheus.CounterVec
	StreamClients prometheus.Gauge

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "bar_backtest_lab"
	}

	return &Metrics{
		// Backtest metrics
		RunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "runs_total",
			Help:      "Total number of backtest runs by strategy and status",
		}, []string{"strategy", "status"}),
		RunDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "run_duration_seconds",
			Help:      "Backtest run duration in seconds",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10, 30, 60},
		}, []string{"strategy"}),
		BarsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "bars_processed_total",
			Help:      "Total number of bars replayed",
		}),
		SignalsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "signals_processed_total",
			Help:      "Total number of signals applied by kind",
		}, []string{"kind"}),
		TradesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "trades_total",
			Help:      "Total number of trades by action and exit reason",
		}, []string{"action", "reason"}),
		EntriesRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "entries_rejected_total",
			Help:      "Total number of entry signals rejected by outcome",
		}, []string{"outcome"}),

		// Ingestion metrics
		BarsStored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "bars_stored_total",
			Help:      "Total number of bars stored to the bar store",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// API metrics
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of API requests by route and status code",
		}, []string{"route", "code"}),
		StreamClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "stream_clients",
			Help:      "Number of connected trade stream clients",
		}),

		// Health metrics
		LastSuccessfulRun: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last successful backtest run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordRun records a finished backtest run.
func RecordRun(strategy, status string, durationSeconds float64) {
	DefaultMetrics.RunsTotal.WithLabelValues(strategy, status).Inc()
	DefaultMetrics.RunDuration.WithLabelValues(strategy).Observe(durationSeconds)
}

// RecordBar increments the bars processed counter.
func RecordBar() {
	DefaultMetrics.BarsProcessed.Inc()
}

// RecordSignal increments the signals processed counter.
func RecordSignal(kind string) {
	DefaultMetrics.SignalsProcessed.WithLabelValues(kind).Inc()
}

// RecordTrade increments the trades counter.
// reason is empty for opening trades.
func RecordTrade(action, reason string) {
	DefaultMetrics.TradesTotal.WithLabelValues(action, reason).Inc()
}

// RecordRejectedEntry increments the rejected entries counter.
func RecordRejectedEntry(outcome string) {
	DefaultMetrics.EntriesRejected.WithLabelValues(outcome).Inc()
}

// RecordBarsStored adds to the bars stored counter.
func RecordBarsStored(n int) {
	DefaultMetrics.BarsStored.Add(float64(n))
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordHTTPRequest increments the API request counter.
func RecordHTTPRequest(route, code string) {
	DefaultMetrics.HTTPRequests.WithLabelValues(route, code).Inc()
}

// StreamClientConnected adjusts the stream client gauge by delta.
func StreamClientConnected(delta int) {
	DefaultMetrics.StreamClients.Add(float64(delta))
}

// MarkRunSucceeded records the time of the last successful run.
func MarkRunSucceeded(unixSeconds int64) {
	DefaultMetrics.LastSuccessfulRun.Set(float64(unixSeconds))
}
