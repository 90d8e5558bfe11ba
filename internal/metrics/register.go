package metrics

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sentinel"

var registerOnce sync.Once

// Register registers the embedding, reasoning and pipeline metrics with the
// default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		for _, c := range []prometheus.Collector{
			EmbeddingRequestsTotal,
			EmbeddingRequestDuration,
			EmbeddingTokensTotal,
			EmbeddingErrorsTotal,
			EmbeddingCacheTotal,
			ReasoningRequestsTotal,
			ReasoningRequestDuration,
			ReasoningTokensTotal,
			ReasoningRetriesTotal,
			PipelineRunsTotal,
			PipelineDuration,
			StageDuration,
			RetrievalModalityFailuresTotal,
			SliceIngestedTotal,
		} {
			registerOrReuse(c)
		}
	})
}

// registerOrReuse tolerates collectors already registered by another caller (tests, CLI reuse).
func registerOrReuse(c prometheus.Collector) {
	if err := prometheus.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			panic(err)
		}
	}
}
