package agent

import (
	"context"

	"github.com/kailas-cloud/sentinel/internal/domain"
	"github.com/kailas-cloud/sentinel/internal/usecase/retrieval"
)

// Retriever runs the hybrid retrieval stage.
type Retriever interface {
	Retrieve(ctx context.Context, q retrieval.Query) (retrieval.Result, error)
}

// Reasoner generates text from a prompt.
type Reasoner interface {
	Reason(ctx context.Context, req domain.ReasoningRequest) (domain.ReasoningResult, error)
}
