package db

// TagFilter restricts a query to records whose TAG field equals Value.
type TagFilter struct {
	Field string
	Value string
}

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	VectorField  string
	Filters      []TagFilter
	Vector       []float32
	K            int
	ReturnFields []string
}

// TextQuery is the input for BM25 full-text search.
type TextQuery struct {
	IndexName    string
	TextField    string
	Query        string
	Filters      []TagFilter
	TopK         int
	ReturnFields []string
}

// ListQuery is the input for paginated, optionally sorted listing.
type ListQuery struct {
	IndexName    string
	Filters      []TagFilter
	Offset       int
	Limit        int
	SortBy       string
	SortDesc     bool
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single hit from a search, best first.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}

// GroupCount is one bucket of an aggregation by field value.
type GroupCount struct {
	Value string
	Count int
}
