package redis

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/sentinel/internal/db"
)

// --- client.go ---

func TestPing_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPing_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

// --- hash.go ---

func TestHSet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "HSET" && cmd[1] == "sentinel:slice:a" && slices.Contains(cmd, "symptoms")
		})).
		Return(mock.Result(mock.RedisInt64(1)))

	s := NewStoreForTest(c)
	err := s.HSet(context.Background(), "sentinel:slice:a", map[string]string{"symptoms": "latency"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHSet_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "HSET" })).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	err := s.HSet(context.Background(), "k", map[string]string{"f": "v"})
	if !isDBError(err) {
		t.Errorf("expected db.Error, got %T", err)
	}
}

func TestHSet_NoFields(t *testing.T) {
	s := NewStoreForTest(nil)
	if err := s.HSet(context.Background(), "k", nil); err == nil {
		t.Fatal("expected error for empty field set")
	}
}

func TestHGetAll_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("HGETALL", "k")).
		Return(mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{
			"domain":   mock.RedisString("k8s"),
			"symptoms": mock.RedisString("etcd slow"),
		})))

	s := NewStoreForTest(c)
	m, err := s.HGetAll(context.Background(), "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(map[string]string{"domain": "k8s", "symptoms": "etcd slow"}, m); diff != "" {
		t.Errorf("unexpected fields (-want +got):\n%s", diff)
	}
}

func TestHGetAll_Missing(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("HGETALL", "gone")).
		Return(mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{})))

	s := NewStoreForTest(c)
	_, err := s.HGetAll(context.Background(), "gone")
	if !errors.Is(err, db.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestHGetAllMulti_KeepsPositions(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{})),
			mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{
				"f": mock.RedisString("b"),
			})),
		})

	s := NewStoreForTest(c)
	results, err := s.HGetAllMulti(context.Background(), []string{"k1", "k2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if len(results[0]) != 0 || results[1]["f"] != "b" {
		t.Errorf("unexpected results: %v", results)
	}
}

func TestHGetAllMulti_Empty(t *testing.T) {
	s := NewStoreForTest(nil)
	results, err := s.HGetAllMulti(context.Background(), nil)
	if err != nil || results != nil {
		t.Fatalf("expected nil, nil; got %v, %v", results, err)
	}
}

func TestDel(t *testing.T) {
	for _, tc := range []struct {
		name  string
		reply int64
		want  bool
	}{
		{"existed", 1, true},
		{"absent", 0, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			c := mock.NewClient(ctrl)
			c.EXPECT().
				Do(gomock.Any(), mock.Match("DEL", "k")).
				Return(mock.Result(mock.RedisInt64(tc.reply)))

			got, err := NewStoreForTest(c).Del(context.Background(), "k")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("Del() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestExists(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("EXISTS", "k")).
		Return(mock.Result(mock.RedisInt64(1)))

	ok, err := NewStoreForTest(c).Exists(context.Background(), "k")
	if err != nil || !ok {
		t.Fatalf("expected true, nil; got %v, %v", ok, err)
	}
}

// --- kv.go ---

func TestGet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "k")).
		Return(mock.Result(mock.RedisString("payload")))

	data, err := NewStoreForTest(c).Get(context.Background(), "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("expected payload, got %q", data)
	}
}

func TestGet_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "k")).
		Return(mock.Result(mock.RedisNil()))

	_, err := NewStoreForTest(c).Get(context.Background(), "k")
	if !errors.Is(err, db.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestSetWithTTL(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("SET", "k", "v", "EX", "60")).
		Return(mock.Result(mock.RedisString("OK")))

	if err := NewStoreForTest(c).SetWithTTL(context.Background(), "k", []byte("v"), 60e9); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSetWithTTL_ZeroFallsBackToSet(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("SET", "k", "v")).
		Return(mock.Result(mock.RedisString("OK")))

	if err := NewStoreForTest(c).SetWithTTL(context.Background(), "k", []byte("v"), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// --- index.go ---

func TestCreateIndex_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	var got []string
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			got = cmd
			return cmd[0] == "FT.CREATE"
		})).
		Return(mock.Result(mock.RedisString("OK")))

	idx := db.NewIndex("s:idx").
		Prefix("s:").
		Tag("domain").
		TextWeighted("symptoms", 2).
		NumericSortable("created_at").
		MustBuild()
	if err := NewStoreForTest(c).CreateIndex(context.Background(), idx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{
		"FT.CREATE", "s:idx", "ON", "HASH", "PREFIX", "1", "s:", "SCHEMA",
		"domain", "TAG",
		"symptoms", "TEXT", "WEIGHT", "2",
		"created_at", "NUMERIC", "SORTABLE",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FT.CREATE args mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateIndex_AlreadyExists(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "FT.CREATE" })).
		Return(mock.Result(mock.RedisError("Index already exists")))

	idx := &db.IndexDefinition{
		Name:   "test:idx",
		Fields: []db.IndexField{{Name: "f", Type: db.IndexFieldTag}},
	}
	err := NewStoreForTest(c).CreateIndex(context.Background(), idx)
	if !errors.Is(err, db.ErrIndexExists) {
		t.Errorf("expected ErrIndexExists, got %v", err)
	}
}

func TestIndexExists(t *testing.T) {
	t.Run("present", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		c := mock.NewClient(ctrl)
		c.EXPECT().
			Do(gomock.Any(), mock.Match("FT.INFO", "idx")).
			Return(mock.Result(mock.RedisArray()))

		ok, err := NewStoreForTest(c).IndexExists(context.Background(), "idx")
		if err != nil || !ok {
			t.Fatalf("expected true, nil; got %v, %v", ok, err)
		}
	})
	t.Run("absent", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		c := mock.NewClient(ctrl)
		c.EXPECT().
			Do(gomock.Any(), mock.Match("FT.INFO", "idx")).
			Return(mock.Result(mock.RedisError("Unknown index name")))

		ok, err := NewStoreForTest(c).IndexExists(context.Background(), "idx")
		if err != nil || ok {
			t.Fatalf("expected false, nil; got %v, %v", ok, err)
		}
	})
}

func TestBuildVectorFieldArgs(t *testing.T) {
	f := &db.IndexField{
		Name: "vector", Type: db.IndexFieldVector,
		VectorAlgo: db.VectorHNSW, VectorDim: 1536, VectorDistance: db.DistanceCosine,
		VectorM: 16, VectorEFConstruct: 200,
	}
	args, err := buildFieldArgs(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{
		"vector", "VECTOR", "HNSW", "10",
		"TYPE", "FLOAT32", "DIM", "1536", "DISTANCE_METRIC", "COSINE",
		"M", "16", "EF_CONSTRUCTION", "200",
	}
	if diff := cmp.Diff(want, args); diff != "" {
		t.Errorf("vector args mismatch (-want +got):\n%s", diff)
	}
}

// --- search.go ---

func TestSearchKNN_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	var got []string
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			got = cmd
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(2),
			mock.RedisString("s:a"),
			mock.RedisArray(mock.RedisString("__vector_score"), mock.RedisString("0.1")),
			mock.RedisString("s:b"),
			mock.RedisArray(mock.RedisString("__vector_score"), mock.RedisString("0.4")),
		)))

	res, err := NewStoreForTest(c).SearchKNN(context.Background(), &db.KNNQuery{
		IndexName:   "idx",
		VectorField: "vector",
		Filters:     []db.TagFilter{{Field: "domain", Value: "ecommerce-api"}},
		Vector:      []float32{0.1, 0.2},
		K:           9,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[2] != `(@domain:{ecommerce\-api})=>[KNN 9 @vector $BLOB]` {
		t.Errorf("unexpected query %q", got[2])
	}
	if !slices.Contains(got, "LIMIT") || !slices.Contains(got, "SORTBY") {
		t.Errorf("expected LIMIT and SORTBY in %v", got)
	}
	if len(res.Entries) != 2 || res.Entries[0].Key != "s:a" {
		t.Fatalf("unexpected entries %+v", res.Entries)
	}
	if s := res.Entries[0].Score; s < 0.89 || s > 0.91 {
		t.Errorf("expected similarity ~0.9, got %f", s)
	}
	if _, ok := res.Entries[0].Fields["__vector_score"]; ok {
		t.Error("vector score field must be stripped")
	}
}

func TestSearchKNN_Validation(t *testing.T) {
	s := &Store{}
	ctx := context.Background()
	for _, q := range []*db.KNNQuery{
		{VectorField: "v", Vector: []float32{1}, K: 1},
		{IndexName: "idx", Vector: []float32{1}, K: 1},
		{IndexName: "idx", VectorField: "v", K: 1},
		{IndexName: "idx", VectorField: "v", Vector: []float32{1}, K: 0},
	} {
		if _, err := s.SearchKNN(ctx, q); err == nil {
			t.Errorf("expected error for %+v", q)
		}
	}
}

func TestSearchText_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	var got []string
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			got = cmd
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(2),
			mock.RedisString("s:a"), mock.RedisString("3.5"),
			mock.RedisString("s:b"), mock.RedisString("1.25"),
		)))

	res, err := NewStoreForTest(c).SearchText(context.Background(), &db.TextQuery{
		IndexName: "idx",
		TextField: "symptoms",
		Query:     "API latency spikes, webhook timeouts",
		TopK:      9,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[2] != "@symptoms:(api|latency|spikes|webhook|timeouts)" {
		t.Errorf("unexpected query %q", got[2])
	}
	if !slices.Contains(got, "NOCONTENT") || !slices.Contains(got, "WITHSCORES") {
		t.Errorf("expected NOCONTENT WITHSCORES in %v", got)
	}
	if len(res.Entries) != 2 || res.Entries[1].Key != "s:b" || res.Entries[1].Score != 1.25 {
		t.Fatalf("unexpected entries %+v", res.Entries)
	}
}

func TestSearchText_NoTerms(t *testing.T) {
	s := NewStoreForTest(nil)
	res, err := s.SearchText(context.Background(), &db.TextQuery{
		IndexName: "idx", TextField: "symptoms", Query: "! ? -", TopK: 3,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Entries) != 0 {
		t.Errorf("expected no entries, got %d", len(res.Entries))
	}
}

func TestSearchList_SortedDesc(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	var got []string
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			got = cmd
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(2),
			mock.RedisString("s:1"),
			mock.RedisArray(mock.RedisString("domain"), mock.RedisString("k8s")),
			mock.RedisString("s:2"),
			mock.RedisArray(mock.RedisString("domain"), mock.RedisString("k8s")),
		)))

	res, err := NewStoreForTest(c).SearchList(context.Background(), &db.ListQuery{
		IndexName: "idx", Limit: 10, SortBy: "created_at", SortDesc: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(strings.Join(got, " "), "SORTBY created_at DESC LIMIT 0 10") {
		t.Errorf("unexpected args %v", got)
	}
	if res.Total != 2 || len(res.Entries) != 2 || res.Entries[0].Fields["domain"] != "k8s" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestAggregateCount(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "FT.AGGREGATE" })).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(2),
			mock.RedisArray(
				mock.RedisString("domain"), mock.RedisString("ecommerce-api"),
				mock.RedisString("count"), mock.RedisString("5"),
			),
			mock.RedisArray(
				mock.RedisString("domain"), mock.RedisString("k8s-controlplane"),
				mock.RedisString("count"), mock.RedisString("3"),
			),
		)))

	got, err := NewStoreForTest(c).AggregateCount(context.Background(), "idx", "", "domain")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []db.GroupCount{{Value: "ecommerce-api", Count: 5}, {Value: "k8s-controlplane", Count: 3}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected groups (-want +got):\n%s", diff)
	}
}

func TestAggregateCount_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "FT.AGGREGATE" })).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	_, err := NewStoreForTest(c).AggregateCount(context.Background(), "idx", "*", "domain")
	if !isDBError(err) {
		t.Fatalf("expected db.Error, got %v", err)
	}
}

func TestBuildFilter(t *testing.T) {
	tests := []struct {
		name    string
		filters []db.TagFilter
		want    string
	}{
		{"empty", nil, ""},
		{"blank value skipped", []db.TagFilter{{Field: "domain"}}, ""},
		{"single", []db.TagFilter{{Field: "domain", Value: "k8s"}}, "@domain:{k8s}"},
		{"escaped", []db.TagFilter{{Field: "domain", Value: "a.b:c"}}, `@domain:{a\.b\:c}`},
		{
			"and",
			[]db.TagFilter{{Field: "domain", Value: "x"}, {Field: "severity", Value: "high"}},
			"@domain:{x} @severity:{high}",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := buildFilter(tc.filters); got != tc.want {
				t.Errorf("buildFilter() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestQueryTerms(t *testing.T) {
	got := queryTerms("P99 latency > 2s; DB pool-exhausted, latency again")
	want := []string{"p99", "latency", "2s", "db", "pool", "exhausted", "again"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("queryTerms mismatch (-want +got):\n%s", diff)
	}
}

func TestVectorToBytes(t *testing.T) {
	b := vectorToBytes([]float32{1.0, 2.0})
	if len(b) != 8 {
		t.Fatalf("expected 8 bytes, got %d", len(b))
	}
}

// isDBError is a test helper for checking wrapped db.Error.
func isDBError(err error) bool {
	var dbErr *db.Error
	return errors.As(err, &dbErr)
}

func TestSupportsTextSearch(t *testing.T) {
	s := NewStoreForTest(nil)
	if !s.SupportsTextSearch(context.Background()) {
		t.Error("redis store must support text search")
	}
	s.vectorOnly = true
	if s.SupportsTextSearch(context.Background()) {
		t.Error("vector-only store must not report text search")
	}
}
