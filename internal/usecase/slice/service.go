package slice

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/sentinel/internal/domain"
	domslice "github.com/kailas-cloud/sentinel/internal/domain/slice"
	"github.com/kailas-cloud/sentinel/internal/metrics"
)

// Stats summarizes the slice bank.
type Stats struct {
	Total    int
	ByDomain []domslice.DomainCount
}

// Service handles slice ingestion and management with automatic vectorization.
type Service struct {
	repo            Repository
	embed           Embedder
	vectorDim       int
	defaultPageSize int
	maxPageSize     int
	now             func() time.Time
}

// New creates a slice service. vectorDim 0 disables the dimension check.
func New(repo Repository, embed Embedder, vectorDim int) *Service {
	return &Service{
		repo:            repo,
		embed:           embed,
		vectorDim:       vectorDim,
		defaultPageSize: 20,
		maxPageSize:     100,
		now:             time.Now,
	}
}

// WithPagination configures page size limits.
func (s *Service) WithPagination(defaultPageSize, maxPageSize int) *Service {
	if defaultPageSize > 0 {
		s.defaultPageSize = defaultPageSize
	}
	if maxPageSize > 0 {
		s.maxPageSize = maxPageSize
	}
	return s
}

// Ingest vectorizes and stores a slice, assigning an id when missing.
// Returns the stored slice.
func (s *Service) Ingest(ctx context.Context, draft *domslice.Slice) (domslice.Slice, error) {
	sl := *draft
	if sl.ID() == "" {
		sl = sl.WithID(uuid.NewString())
	}

	result, err := s.embed.Embed(ctx, sl.Symptoms())
	if err != nil {
		return domslice.Slice{}, fmt.Errorf("vectorize slice: %w", err)
	}
	if s.vectorDim > 0 && len(result.Embedding) != s.vectorDim {
		return domslice.Slice{}, fmt.Errorf(
			"vector dimension mismatch: got %d, want %d: %w",
			len(result.Embedding), s.vectorDim, domain.ErrVectorDimMismatch,
		)
	}

	sl = sl.WithVector(result.Embedding)
	sl = sl.WithCreatedAt(s.now().UnixMilli())
	if err := s.repo.Put(ctx, &sl); err != nil {
		return domslice.Slice{}, fmt.Errorf("store slice: %w", err)
	}

	metrics.SliceIngestedTotal.WithLabelValues(sl.Domain()).Inc()
	return sl, nil
}

// Get retrieves a slice by id.
func (s *Service) Get(ctx context.Context, id string) (domslice.Slice, error) {
	sl, err := s.repo.Get(ctx, id)
	if err != nil {
		return domslice.Slice{}, fmt.Errorf("get slice: %w", err)
	}
	return sl, nil
}

// Delete removes a slice.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete slice: %w", err)
	}
	return nil
}

// List returns the newest slices, optionally filtered by domain, and the total matching count.
func (s *Service) List(ctx context.Context, dom string, limit int) ([]domslice.Slice, int, error) {
	if limit <= 0 {
		limit = s.defaultPageSize
	}
	if limit > s.maxPageSize {
		limit = s.maxPageSize
	}
	slices, total, err := s.repo.List(ctx, dom, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list slices: %w", err)
	}
	return slices, total, nil
}

// Stats returns the total slice count and the per-domain breakdown.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	counts, err := s.repo.CountByDomain(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count slices: %w", err)
	}
	st := Stats{ByDomain: counts}
	for _, c := range counts {
		st.Total += c.Count
	}
	return st, nil
}

// Seed ingests the built-in demo incident bank and returns the number stored.
// Demo slices carry fixed ids, so seeding twice overwrites instead of duplicating.
func (s *Service) Seed(ctx context.Context) (int, error) {
	drafts, err := DemoSlices()
	if err != nil {
		return 0, err
	}
	for i := range drafts {
		if _, err := s.Ingest(ctx, &drafts[i]); err != nil {
			return i, fmt.Errorf("seed slice %s: %w", drafts[i].ID(), err)
		}
	}
	return len(drafts), nil
}
