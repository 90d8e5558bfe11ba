package retrieval

import (
	"context"

	"github.com/kailas-cloud/sentinel/internal/domain"
	"github.com/kailas-cloud/sentinel/internal/domain/search/hit"
	domslice "github.com/kailas-cloud/sentinel/internal/domain/slice"
)

// Repository runs the per-modality ranked queries against the slice bank.
type Repository interface {
	SearchLexical(ctx context.Context, text, dom string, limit int) ([]hit.RankedHit, error)
	SearchSemantic(ctx context.Context, vector []float32, dom string, limit int) ([]hit.RankedHit, error)
}

// Hydrator loads slice summaries for fused ids. Ids that no longer exist are omitted.
type Hydrator interface {
	GetMany(ctx context.Context, ids []string) (map[string]domslice.Slice, error)
}

// Embedder vectorizes the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
