package metrics

import "github.com/prometheus/client_golang/prometheus"

// Analysis pipeline Prometheus metrics.
var (
	PipelineRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Analysis pipeline runs by terminal status",
		},
		[]string{"status"},
	)

	PipelineDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "End-to-end analysis pipeline duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 3, 4, 5, 8, 12, 20},
		},
	)

	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8},
		},
		[]string{"stage", "status"},
	)

	RetrievalModalityFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_modality_failures_total",
			Help:      "Retrieval modality queries that failed or timed out",
		},
		[]string{"modality"},
	)

	SliceIngestedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slices_ingested_total",
			Help:      "Incident slices ingested by domain",
		},
		[]string{"domain"},
	)
)
