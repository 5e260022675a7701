package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pool_logger"

// Metrics holds the Prometheus counters, histograms, and gauges for the
// ingestion pipeline.
type Metrics struct {
	LinesRead       prometheus.Counter
	LineOutcomes    *prometheus.CounterVec // labels: outcome={logged,skipped,decode_error,enrich_error,write_error}
	PipelineRunning prometheus.Gauge

	// Unix seconds of the newest committed reading; dashboards alert on staleness.
	LastRecordedAt prometheus.Gauge

	// Weather provider metrics.
	WeatherRequests    *prometheus.CounterVec // labels: outcome={success,network_error,decode_error}
	WeatherAPIDuration prometheus.Histogram

	// Store metrics.
	InsertDuration prometheus.Histogram

	// Record publishing metrics.
	RecordsPublished prometheus.Counter
	PublishErrors    prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		LinesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_read_total",
			Help:      "Total lines read from the receiver.",
		}),
		LineOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "line_outcomes_total",
			Help:      "Processed receiver lines by outcome.",
		}, []string{"outcome"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is consuming the receiver, 0 otherwise.",
		}),
		LastRecordedAt: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_recorded_at_seconds",
			Help:      "Unix time of the most recently committed reading.",
		}),
		WeatherRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_requests_total",
			Help:      "Weather provider requests by outcome.",
		}, []string{"outcome"}),
		WeatherAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "weather_api_duration_seconds",
			Help:      "Weather provider request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		InsertDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "insert_duration_seconds",
			Help:      "Duration of connect, insert and commit for one reading.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		RecordsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_published_total",
			Help:      "Total records published to the sink topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Total record publish failures.",
		}),
	}

	prometheus.MustRegister(
		m.LinesRead,
		m.LineOutcomes,
		m.PipelineRunning,
		m.LastRecordedAt,
		m.WeatherRequests,
		m.WeatherAPIDuration,
		m.InsertDuration,
		m.RecordsPublished,
		m.PublishErrors,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		LinesRead:          prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "lines_read_total"}),
		LineOutcomes:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "line_outcomes_total"}, []string{"outcome"}),
		PipelineRunning:    prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "pipeline_running"}),
		LastRecordedAt:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "last_recorded_at_seconds"}),
		WeatherRequests:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "weather_requests_total"}, []string{"outcome"}),
		WeatherAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "weather_api_duration_seconds"}),
		InsertDuration:     prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "insert_duration_seconds"}),
		RecordsPublished:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "records_published_total"}),
		PublishErrors:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "publish_errors_total"}),
	}
}
