package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// water-data ingest pipeline.
type Metrics struct {
	DocumentsFetched  *prometheus.CounterVec // labels: service, outcome={success,error}
	ParseFailures     *prometheus.CounterVec // labels: format={rdb,waterml}
	ValidityOutcomes  *prometheus.CounterVec // labels: outcome={valid,empty,malformed}
	CoercionGaps      prometheus.Counter
	PointsProduced    prometheus.Counter
	MessagesPublished prometheus.Counter
	PipelineRunning   prometheus.Gauge

	FetchDuration prometheus.Histogram
	CycleDuration prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		DocumentsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "waterdata",
			Name:      "documents_fetched_total",
			Help:      "Documents fetched from NWIS by service and outcome.",
		}, []string{"service", "outcome"}),
		ParseFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "waterdata",
			Name:      "parse_failures_total",
			Help:      "Structurally unparseable documents by format.",
		}, []string{"format"}),
		ValidityOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "waterdata",
			Name:      "validity_outcomes_total",
			Help:      "Post-parse classification of fetched documents.",
		}, []string{"outcome"}),
		CoercionGaps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "waterdata",
			Name:      "coercion_gaps_total",
			Help:      "Cells that could not be converted to their column's type and became null.",
		}),
		PointsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "waterdata",
			Name:      "points_produced_total",
			Help:      "Time-series points extracted from fetched documents.",
		}),
		MessagesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "waterdata",
			Name:      "messages_published_total",
			Help:      "Observations written to the sink topic.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "waterdata",
			Name:      "pipeline_running",
			Help:      "1 when the ingest loop is active, 0 when shut down.",
		}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "waterdata",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of one NWIS document fetch.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "waterdata",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a complete fetch-parse-publish cycle across all configured sites.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
	}

	prometheus.MustRegister(
		m.DocumentsFetched,
		m.ParseFailures,
		m.ValidityOutcomes,
		m.CoercionGaps,
		m.PointsProduced,
		m.MessagesPublished,
		m.PipelineRunning,
		m.FetchDuration,
		m.CycleDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		DocumentsFetched:  prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "waterdata", Name: "documents_fetched_total"}, []string{"service", "outcome"}),
		ParseFailures:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "waterdata", Name: "parse_failures_total"}, []string{"format"}),
		ValidityOutcomes:  prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "waterdata", Name: "validity_outcomes_total"}, []string{"outcome"}),
		CoercionGaps:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "waterdata", Name: "coercion_gaps_total"}),
		PointsProduced:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "waterdata", Name: "points_produced_total"}),
		MessagesPublished: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "waterdata", Name: "messages_published_total"}),
		PipelineRunning:   prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "waterdata", Name: "pipeline_running"}),
		FetchDuration:     prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "waterdata", Name: "fetch_duration_seconds"}),
		CycleDuration:     prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "waterdata", Name: "cycle_duration_seconds"}),
	}
}
