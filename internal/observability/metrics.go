// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	ExportRowsIngested prometheus.Counter
	ExportRowsSkipped  prometheus.Counter
	IngestErrors       *prometheus.CounterVec

	// Refresh metrics
	RefreshRunsTotal prometheus.Counter
	RefreshFailures  prometheus.Counter
	RefreshDuration  prometheus.Histogram
	RowsAggregated   prometheus.Counter
	FeaturesBuilt    prometheus.Counter

	// Signal metrics
	SignalRowsBySeverity *prometheus.CounterVec
	AlertRows            prometheus.Gauge

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulIngestion prometheus.Gauge
	LastSuccessfulRefresh   prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "campaign_signal_lab"
	}

	return &Metrics{
		ExportRowsIngested: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "export_rows_ingested_total",
			Help:      "Total number of export rows loaded into the raw store",
		}),
		ExportRowsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "export_rows_skipped_total",
			Help:      "Total number of export rows skipped for bad keys",
		}),
		IngestErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "errors_total",
			Help:      "Total number of ingestion errors by type",
		}, []string{"error_type"}),

		RefreshRunsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "runs_total",
			Help:      "Total number of refresh pipeline runs",
		}),
		RefreshFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "failures_total",
			Help:      "Total number of failed refresh pipeline runs",
		}),
		RefreshDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "duration_seconds",
			Help:      "Refresh pipeline execution duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}),
		RowsAggregated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "rows_aggregated_total",
			Help:      "Total number of daily-grain rows produced",
		}),
		FeaturesBuilt: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "feature_rows_total",
			Help:      "Total number of feature rows produced",
		}),

		SignalRowsBySeverity: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signals",
			Name:      "rows_total",
			Help:      "Total number of signal rows produced by max severity",
		}, []string{"severity"}),
		AlertRows: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "signals",
			Name:      "alert_rows",
			Help:      "Number of rows with at least one alert in the last run",
		}),

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

		LastSuccessfulIngestion: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_ingestion_timestamp",
			Help:      "Unix timestamp of last successful ingestion",
		}),
		LastSuccessfulRefresh: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_refresh_timestamp",
			Help:      "Unix timestamp of last successful refresh run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRefresh records one refresh run.
func (m *Metrics) ObserveRefresh(elapsed time.Duration, ok bool) {
	m.RefreshRunsTotal.Inc()
	m.RefreshDuration.Observe(elapsed.Seconds())
	if ok {
		m.LastSuccessfulRefresh.SetToCurrentTime()
	} else {
		m.RefreshFailures.Inc()
	}
}

// ObserveIngestion records one ingestion run.
func (m *Metrics) ObserveIngestion(rowsLoaded, rowsSkipped int) {
	m.ExportRowsIngested.Add(float64(rowsLoaded))
	m.ExportRowsSkipped.Add(float64(rowsSkipped))
	m.LastSuccessfulIngestion.SetToCurrentTime()
}

// CountSeverity increments the signal row counter for one max severity.
func (m *Metrics) CountSeverity(severity string) {
	m.SignalRowsBySeverity.WithLabelValues(severity).Inc()
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, seconds float64, err error) {
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
