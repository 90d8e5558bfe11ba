package metrics

import "github.com/prometheus/client_golang/prometheus"

// Reasoning backend Prometheus metrics.
var (
	ReasoningRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reasoning_requests_total",
			Help:      "Total number of reasoning (chat completion) requests",
		},
		[]string{"provider", "model", "status"},
	)

	ReasoningRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reasoning_request_duration_seconds",
			Help:      "Reasoning request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 1.5, 2, 3, 5, 10},
		},
		[]string{"provider", "model"},
	)

	ReasoningTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reasoning_tokens_total",
			Help:      "Total reasoning tokens consumed",
		},
		[]string{"provider", "model", "type"},
	)

	ReasoningRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reasoning_retries_total",
			Help:      "Reasoning calls retried after a recoverable failure",
		},
		[]string{"stage"},
	)
)
