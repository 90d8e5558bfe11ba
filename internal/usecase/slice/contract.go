package slice

import (
	"context"

	"github.com/kailas-cloud/sentinel/internal/domain"
	domslice "github.com/kailas-cloud/sentinel/internal/domain/slice"
)

// Repository defines the storage contract for incident slices.
type Repository interface {
	Put(ctx context.Context, s *domslice.Slice) error
	Get(ctx context.Context, id string) (domslice.Slice, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, dom string, limit int) ([]domslice.Slice, int, error)
	CountByDomain(ctx context.Context) ([]domslice.DomainCount, error)
}

// Embedder vectorizes slice symptoms.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
