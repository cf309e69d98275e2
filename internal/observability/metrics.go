package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// weather lookup service and the report worker.
type Metrics struct {
	// Weather fetch metrics.
	CacheLookups            *prometheus.CounterVec // labels: result={hit,miss}
	FetchRequests           *prometheus.CounterVec // labels: outcome={cache,provider,database,unavailable}
	ProviderRequestDuration prometheus.Histogram
	ObservationsPersisted   prometheus.Counter

	// Report job metrics.
	ReportJobsEnqueued       prometheus.Counter
	ReportJobRuns            *prometheus.CounterVec   // labels: outcome={completed,failed,retried,skipped}
	ReportGenerationDuration *prometheus.HistogramVec // labels: format={csv,xlsx,pdf}
	ReportRows               prometheus.Histogram
	WorkerRunning            prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.CacheLookups,
		m.FetchRequests,
		m.ProviderRequestDuration,
		m.ObservationsPersisted,
		m.ReportJobsEnqueued,
		m.ReportJobRuns,
		m.ReportGenerationDuration,
		m.ReportRows,
		m.WorkerRunning,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_lookup",
			Name:      "cache_lookups_total",
			Help:      "Weather cache lookups by result.",
		}, []string{"result"}),
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_lookup",
			Name:      "fetch_requests_total",
			Help:      "Weather fetch requests by data source outcome.",
		}, []string{"outcome"}),
		ProviderRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "weather_lookup",
			Name:      "provider_request_duration_seconds",
			Help:      "OpenWeatherMap request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		ObservationsPersisted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_lookup",
			Name:      "observations_persisted_total",
			Help:      "Weather observations written to the repository.",
		}),
		ReportJobsEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_lookup",
			Name:      "report_jobs_enqueued_total",
			Help:      "Report jobs published to the queue.",
		}),
		ReportJobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_lookup",
			Name:      "report_job_runs_total",
			Help:      "Report job executions by outcome.",
		}, []string{"outcome"}),
		ReportGenerationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "weather_lookup",
			Name:      "report_generation_duration_seconds",
			Help:      "Duration of a full report generation run.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"format"}),
		ReportRows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "weather_lookup",
			Name:      "report_rows",
			Help:      "Number of observation rows per generated report.",
			Buckets:   []float64{0, 1, 10, 50, 100, 500, 1000, 5000},
		}),
		WorkerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weather_lookup",
			Name:      "report_worker_running",
			Help:      "1 when the report worker consumer is active, 0 when shut down.",
		}),
	}
}
