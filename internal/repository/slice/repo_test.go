package slice

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kailas-cloud/sentinel/internal/db"
	"github.com/kailas-cloud/sentinel/internal/domain"
	"github.com/kailas-cloud/sentinel/internal/domain/search/hit"
	domslice "github.com/kailas-cloud/sentinel/internal/domain/slice"
)

func TestEnsureIndex_CreatesWhenMissing(t *testing.T) {
	var created *db.IndexDefinition
	ms := &mockStore{
		createIndexFn: func(_ context.Context, def *db.IndexDefinition) error {
			created = def
			return nil
		},
	}
	if err := New(ms, testConfig()).EnsureIndex(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created == nil {
		t.Fatal("expected index creation")
	}
	want := "FT.CREATE t:idx ON HASH PREFIX t:slice: SCHEMA domain TAG created_at NUMERIC SORTABLE " +
		"symptoms TEXT WEIGHT 2 resolution TEXT vector VECTOR HNSW"
	if created.String() != want {
		t.Errorf("index = %q, want %q", created.String(), want)
	}
}

func TestEnsureIndex_NoTextSearchBackend(t *testing.T) {
	var created *db.IndexDefinition
	ms := &mockStore{
		noTextSearch: true,
		createIndexFn: func(_ context.Context, def *db.IndexDefinition) error {
			created = def
			return nil
		},
	}
	if err := New(ms, testConfig()).EnsureIndex(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, f := range created.Fields {
		if f.Type == db.IndexFieldText {
			t.Errorf("unexpected TEXT field %s", f.Name)
		}
	}
}

func TestEnsureIndex_ExistsIsNoop(t *testing.T) {
	ms := &mockStore{
		indexExistsFn: func(context.Context, string) (bool, error) { return true, nil },
		createIndexFn: func(context.Context, *db.IndexDefinition) error {
			t.Fatal("create must not be called")
			return nil
		},
	}
	if err := New(ms, testConfig()).EnsureIndex(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEnsureIndex_RaceTolerated(t *testing.T) {
	ms := &mockStore{
		createIndexFn: func(context.Context, *db.IndexDefinition) error { return db.ErrIndexExists },
	}
	if err := New(ms, testConfig()).EnsureIndex(context.Background()); err != nil {
		t.Fatalf("expected nil on concurrent create, got %v", err)
	}
}

func TestPutGet_RoundTrip(t *testing.T) {
	stored := map[string]map[string]string{}
	ms := &mockStore{
		hsetFn: func(_ context.Context, key string, fields map[string]string) error {
			stored[key] = fields
			return nil
		},
		hgetAllFn: func(_ context.Context, key string) (map[string]string, error) {
			m, ok := stored[key]
			if !ok {
				return nil, db.ErrKeyNotFound
			}
			return m, nil
		},
	}
	repo := New(ms, testConfig())

	s, err := domslice.New("ec-001", "ecommerce-api", "p99 latency", "scale pods",
		map[string]string{"severity": "high"})
	if err != nil {
		t.Fatalf("new slice: %v", err)
	}
	s = s.WithVector([]float32{0.5, -1, 2})
	s = s.WithCreatedAt(1700000000000)

	if err := repo.Put(context.Background(), &s); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, ok := stored["t:slice:ec-001"]; !ok {
		t.Fatalf("expected key t:slice:ec-001, got %v", stored)
	}

	got, err := repo.Get(context.Background(), "ec-001")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Domain() != "ecommerce-api" || got.Symptoms() != "p99 latency" || got.Severity() != "high" {
		t.Errorf("unexpected slice %+v", got)
	}
	if got.CreatedAt() != 1700000000000 {
		t.Errorf("created_at = %d", got.CreatedAt())
	}
	if diff := cmp.Diff([]float32{0.5, -1, 2}, got.Vector()); diff != "" {
		t.Errorf("vector mismatch (-want +got):\n%s", diff)
	}
}

func TestGet_NotFound(t *testing.T) {
	_, err := New(&mockStore{}, testConfig()).Get(context.Background(), "nope")
	if !errors.Is(err, domain.ErrSliceNotFound) {
		t.Fatalf("expected ErrSliceNotFound, got %v", err)
	}
}

func TestGetMany_SkipsVanished(t *testing.T) {
	ms := &mockStore{
		hgetAllMultiFn: func(_ context.Context, keys []string) ([]map[string]string, error) {
			if diff := cmp.Diff([]string{"t:slice:a", "t:slice:b"}, keys); diff != "" {
				t.Errorf("keys mismatch (-want +got):\n%s", diff)
			}
			return []map[string]string{
				{"domain": "d", "symptoms": "s", "resolution": "r"},
				{},
			}, nil
		},
	}
	got, err := New(ms, testConfig()).GetMany(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := got["a"]; !ok {
		t.Error("expected a present")
	}
	if _, ok := got["b"]; ok {
		t.Error("expected b absent")
	}
}

func TestDelete(t *testing.T) {
	ms := &mockStore{delFn: func(context.Context, string) (bool, error) { return false, nil }}
	err := New(ms, testConfig()).Delete(context.Background(), "x")
	if !errors.Is(err, domain.ErrSliceNotFound) {
		t.Fatalf("expected ErrSliceNotFound, got %v", err)
	}

	ms.delFn = func(context.Context, string) (bool, error) { return true, nil }
	if err := New(ms, testConfig()).Delete(context.Background(), "x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestList_NewestFirstWithDomain(t *testing.T) {
	ms := &mockStore{
		searchListFn: func(_ context.Context, q *db.ListQuery) (*db.SearchResult, error) {
			if q.SortBy != "created_at" || !q.SortDesc || q.Limit != 5 {
				t.Errorf("unexpected list query %+v", q)
			}
			if diff := cmp.Diff([]db.TagFilter{{Field: "domain", Value: "k8s"}}, q.Filters); diff != "" {
				t.Errorf("filters mismatch (-want +got):\n%s", diff)
			}
			return &db.SearchResult{Total: 7, Entries: []db.SearchEntry{
				{Key: "t:slice:b", Fields: map[string]string{"domain": "k8s", "created_at": "2"}},
				{Key: "t:slice:a", Fields: map[string]string{"domain": "k8s", "created_at": "1"}},
			}}, nil
		},
	}
	got, total, err := New(ms, testConfig()).List(context.Background(), "k8s", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 7 || len(got) != 2 || got[0].ID() != "b" {
		t.Fatalf("unexpected list: total=%d len=%d", total, len(got))
	}
}

func TestCountByDomain(t *testing.T) {
	ms := &mockStore{
		aggregateFn: func(_ context.Context, index, _, field string) ([]db.GroupCount, error) {
			if index != "t:idx" || field != "domain" {
				t.Errorf("unexpected aggregate %s %s", index, field)
			}
			return []db.GroupCount{{Value: "k8s", Count: 3}}, nil
		},
	}
	got, err := New(ms, testConfig()).CountByDomain(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]domslice.DomainCount{{Domain: "k8s", Count: 3}}, got); diff != "" {
		t.Errorf("counts mismatch (-want +got):\n%s", diff)
	}
}

func TestSearchLexical_RanksByPosition(t *testing.T) {
	ms := &mockStore{
		searchTextFn: func(_ context.Context, q *db.TextQuery) (*db.SearchResult, error) {
			if q.TextField != "symptoms" || q.TopK != 9 || q.Filters != nil {
				t.Errorf("unexpected text query %+v", q)
			}
			return &db.SearchResult{Total: 2, Entries: []db.SearchEntry{
				{Key: "t:slice:x", Score: 4.2},
				{Key: "t:slice:y", Score: 1.1},
			}}, nil
		},
	}
	got, err := New(ms, testConfig()).SearchLexical(context.Background(), "latency", "", 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []hit.RankedHit{{SliceID: "x", Rank: 1, Score: 4.2}, {SliceID: "y", Rank: 2, Score: 1.1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("hits mismatch (-want +got):\n%s", diff)
	}
}

func TestSearchLexical_Unsupported(t *testing.T) {
	_, err := New(&mockStore{noTextSearch: true}, testConfig()).SearchLexical(context.Background(), "q", "", 3)
	if !errors.Is(err, domain.ErrKeywordSearchNotSupported) {
		t.Fatalf("expected ErrKeywordSearchNotSupported, got %v", err)
	}
}

func TestSearchSemantic(t *testing.T) {
	ms := &mockStore{
		searchKNNFn: func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
			if q.VectorField != "vector" || q.K != 6 {
				t.Errorf("unexpected knn query %+v", q)
			}
			return &db.SearchResult{Total: 1, Entries: []db.SearchEntry{{Key: "t:slice:z", Score: 0.93}}}, nil
		},
	}
	repo := New(ms, testConfig())
	got, err := repo.SearchSemantic(context.Background(), []float32{1, 0, 0}, "k8s", 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].SliceID != "z" || got[0].Rank != 1 {
		t.Errorf("unexpected hits %+v", got)
	}

	_, err = repo.SearchSemantic(context.Background(), []float32{1}, "", 6)
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Errorf("expected ErrVectorDimMismatch, got %v", err)
	}
}
