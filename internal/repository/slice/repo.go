package slice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/sentinel/internal/db"
	"github.com/kailas-cloud/sentinel/internal/domain"
	"github.com/kailas-cloud/sentinel/internal/domain/search/hit"
	domslice "github.com/kailas-cloud/sentinel/internal/domain/slice"
)

// store is the consumer interface for slice persistence (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) (bool, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SupportsTextSearch(ctx context.Context) bool
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchText(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error)
	AggregateCount(ctx context.Context, index, query, field string) ([]db.GroupCount, error)
}

// HNSWConfig holds HNSW index tuning parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Config describes the key layout and vector index of the slice bank.
type Config struct {
	KeyPrefix string
	IndexName string
	VectorDim int
	HNSW      HNSWConfig
}

// Repo implements the slice, retrieval and hydration repositories on Redis hashes.
type Repo struct {
	store store
	cfg   Config
}

// New creates a slice repository.
func New(s store, cfg Config) *Repo {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "sentinel:slice:"
	}
	if cfg.IndexName == "" {
		cfg.IndexName = "sentinel:slices:idx"
	}
	return &Repo{store: s, cfg: cfg}
}

// EnsureIndex creates the FT index over slice hashes if it does not exist.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, r.cfg.IndexName)
	if err != nil {
		return fmt.Errorf("check index %s: %w", r.cfg.IndexName, err)
	}
	if exists {
		return nil
	}

	def, err := r.indexDefinition(ctx)
	if err != nil {
		return err
	}
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", r.cfg.IndexName, err)
	}
	return nil
}

func (r *Repo) indexDefinition(ctx context.Context) (*db.IndexDefinition, error) {
	b := db.NewIndex(r.cfg.IndexName).
		Prefix(r.cfg.KeyPrefix).
		Tag(fieldDomain).
		NumericSortable(fieldCreatedAt)
	if r.store.SupportsTextSearch(ctx) {
		b = b.TextWeighted(fieldSymptoms, 2).Text(fieldResolution)
	}
	def, err := b.VectorHNSW(fieldVector, r.cfg.VectorDim, db.DistanceCosine, r.cfg.HNSW.M, r.cfg.HNSW.EFConstruct).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build index definition: %w", err)
	}
	return def, nil
}

// Put stores a slice. Slices are immutable, so an existing id is overwritten only by re-ingestion.
func (r *Repo) Put(ctx context.Context, s *domslice.Slice) error {
	fields, err := buildHashFields(s)
	if err != nil {
		return fmt.Errorf("encode slice %s: %w", s.ID(), err)
	}
	key := r.key(s.ID())
	if err := r.store.HSet(ctx, key, fields); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	return nil
}

// Get returns a slice by id.
func (r *Repo) Get(ctx context.Context, id string) (domslice.Slice, error) {
	key := r.key(id)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domslice.Slice{}, domain.ErrSliceNotFound
		}
		return domslice.Slice{}, fmt.Errorf("hgetall %s: %w", key, err)
	}
	return parseHashFields(id, m), nil
}

// GetMany hydrates several slices in one round-trip. Ids that no longer
// exist are absent from the returned map.
func (r *Repo) GetMany(ctx context.Context, ids []string) (map[string]domslice.Slice, error) {
	if len(ids) == 0 {
		return map[string]domslice.Slice{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.key(id)
	}

	rows, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("hgetall %d slices: %w", len(ids), err)
	}

	out := make(map[string]domslice.Slice, len(ids))
	for i, m := range rows {
		if len(m) == 0 {
			continue
		}
		out[ids[i]] = parseHashFields(ids[i], m)
	}
	return out, nil
}

// Delete removes a slice.
func (r *Repo) Delete(ctx context.Context, id string) error {
	key := r.key(id)
	existed, err := r.store.Del(ctx, key)
	if err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	if !existed {
		return domain.ErrSliceNotFound
	}
	return nil
}

// List returns up to limit slices, newest first, optionally restricted to a domain.
func (r *Repo) List(ctx context.Context, dom string, limit int) ([]domslice.Slice, int, error) {
	res, err := r.store.SearchList(ctx, &db.ListQuery{
		IndexName:    r.cfg.IndexName,
		Filters:      domainFilter(dom),
		Limit:        limit,
		SortBy:       fieldCreatedAt,
		SortDesc:     true,
		ReturnFields: summaryFields,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list slices: %w", err)
	}

	out := make([]domslice.Slice, 0, len(res.Entries))
	for _, e := range res.Entries {
		out = append(out, parseHashFields(r.id(e.Key), e.Fields))
	}
	return out, res.Total, nil
}

// CountByDomain returns slice counts grouped by domain, largest first.
func (r *Repo) CountByDomain(ctx context.Context) ([]domslice.DomainCount, error) {
	groups, err := r.store.AggregateCount(ctx, r.cfg.IndexName, "*", fieldDomain)
	if err != nil {
		return nil, fmt.Errorf("aggregate by domain: %w", err)
	}
	out := make([]domslice.DomainCount, len(groups))
	for i, g := range groups {
		out[i] = domslice.DomainCount{Domain: g.Value, Count: g.Count}
	}
	return out, nil
}

// SearchLexical ranks slices by BM25 over symptom text.
func (r *Repo) SearchLexical(ctx context.Context, text, dom string, limit int) ([]hit.RankedHit, error) {
	if !r.store.SupportsTextSearch(ctx) {
		return nil, domain.ErrKeywordSearchNotSupported
	}
	res, err := r.store.SearchText(ctx, &db.TextQuery{
		IndexName: r.cfg.IndexName,
		TextField: fieldSymptoms,
		Query:     text,
		Filters:   domainFilter(dom),
		TopK:      limit,
	})
	if err != nil {
		return nil, fmt.Errorf("search lexical: %w", err)
	}
	return r.toHits(res), nil
}

// SearchSemantic ranks slices by cosine similarity to the query vector.
func (r *Repo) SearchSemantic(ctx context.Context, vector []float32, dom string, limit int) ([]hit.RankedHit, error) {
	if len(vector) != r.cfg.VectorDim {
		return nil, fmt.Errorf("%w: got %d, index has %d", domain.ErrVectorDimMismatch, len(vector), r.cfg.VectorDim)
	}
	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:   r.cfg.IndexName,
		VectorField: fieldVector,
		Filters:     domainFilter(dom),
		Vector:      vector,
		K:           limit,
	})
	if err != nil {
		return nil, fmt.Errorf("search semantic: %w", err)
	}
	return r.toHits(res), nil
}

func (r *Repo) toHits(res *db.SearchResult) []hit.RankedHit {
	if res == nil {
		return nil
	}
	hits := make([]hit.RankedHit, len(res.Entries))
	for i, e := range res.Entries {
		hits[i] = hit.RankedHit{SliceID: r.id(e.Key), Rank: i + 1, Score: e.Score}
	}
	return hits
}

func domainFilter(dom string) []db.TagFilter {
	if dom == "" {
		return nil
	}
	return []db.TagFilter{{Field: fieldDomain, Value: dom}}
}

func (r *Repo) key(id string) string {
	return r.cfg.KeyPrefix + id
}

func (r *Repo) id(key string) string {
	return strings.TrimPrefix(key, r.cfg.KeyPrefix)
}
