package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// skimming pipeline.
type Metrics struct {
	ModelsLoaded      prometheus.Counter
	ModelLoadFailures prometheus.Counter
	SkimRunning       prometheus.Gauge

	// Standardization metrics.
	VariablesStandardized *prometheus.CounterVec // labels: variable={tco3_zm,vmro3_zm}, outcome={success,error}
	ModelLoadDuration     prometheus.Histogram

	// Partition write metrics.
	PartitionsWritten prometheus.Counter
	WriteFailures     prometheus.Counter
	SkimDuration      prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		ModelsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "o3skim",
			Name:      "models_loaded_total",
			Help:      "Total models built with at least one standardized variable.",
		}),
		ModelLoadFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "o3skim",
			Name:      "model_load_failures_total",
			Help:      "Total models excluded because every variable failed to load.",
		}),
		SkimRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "o3skim",
			Name:      "skim_running",
			Help:      "1 while a skim run is active, 0 otherwise.",
		}),
		VariablesStandardized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "o3skim",
			Name:      "variables_standardized_total",
			Help:      "Standardization attempts by canonical variable and outcome.",
		}, []string{"variable", "outcome"}),
		ModelLoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "o3skim",
			Name:      "model_load_duration_seconds",
			Help:      "Duration of a complete model build, including file reads.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}),
		PartitionsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "o3skim",
			Name:      "partitions_written_total",
			Help:      "Total partition files written.",
		}),
		WriteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "o3skim",
			Name:      "write_failures_total",
			Help:      "Total partition file write failures.",
		}),
		SkimDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "o3skim",
			Name:      "skim_duration_seconds",
			Help:      "Duration of a complete model skim.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		}),
	}

	prometheus.MustRegister(
		m.ModelsLoaded,
		m.ModelLoadFailures,
		m.SkimRunning,
		m.VariablesStandardized,
		m.ModelLoadDuration,
		m.PartitionsWritten,
		m.WriteFailures,
		m.SkimDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		ModelsLoaded:          prometheus.NewCounter(prometheus.CounterOpts{Namespace: "o3skim", Name: "models_loaded_total"}),
		ModelLoadFailures:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "o3skim", Name: "model_load_failures_total"}),
		SkimRunning:           prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "o3skim", Name: "skim_running"}),
		VariablesStandardized: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "o3skim", Name: "variables_standardized_total"}, []string{"variable", "outcome"}),
		ModelLoadDuration:     prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "o3skim", Name: "model_load_duration_seconds"}),
		PartitionsWritten:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "o3skim", Name: "partitions_written_total"}),
		WriteFailures:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "o3skim", Name: "write_failures_total"}),
		SkimDuration:          prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "o3skim", Name: "skim_duration_seconds"}),
	}
}
