package chi

import (
	"math"
	"time"

	"github.com/kailas-cloud/sentinel/internal/domain/match"
	"github.com/kailas-cloud/sentinel/internal/domain/pipeline"
	domslice "github.com/kailas-cloud/sentinel/internal/domain/slice"
	"github.com/kailas-cloud/sentinel/internal/usecase/retrieval"
	sliceuc "github.com/kailas-cloud/sentinel/internal/usecase/slice"
)

// matchExcerptRunes caps symptom and resolution text in match payloads.
const matchExcerptRunes = 280

// ErrorCode is a machine-readable error code.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest                ErrorCode = "bad_request"
	CodeUnauthorized              ErrorCode = "unauthorized"
	CodeNotFound                  ErrorCode = "not_found"
	CodeValidationFailed          ErrorCode = "validation_failed"
	CodeSliceNotFound             ErrorCode = "slice_not_found"
	CodeVectorDimMismatch         ErrorCode = "vector_dim_mismatch"
	CodeEmbeddingProviderError    ErrorCode = "embedding_provider_error"
	CodeRepositoryUnavailable     ErrorCode = "repository_unavailable"
	CodeKeywordSearchNotSupported ErrorCode = "keyword_search_not_supported"
	CodeInternalError             ErrorCode = "internal_error"
)

// ErrorResponse is the error body of every failed request.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// AnalyzeRequest is the body of POST /api/analyze.
type AnalyzeRequest struct {
	Symptoms string `json:"symptoms"`
	Domain   string `json:"domain,omitempty"`
	TopK     *int   `json:"top_k,omitempty"`
}

// MatchResponse is one ranked match.
type MatchResponse struct {
	Rank       int     `json:"rank"`
	Score      float64 `json:"score"`
	SliceID    string  `json:"slice_id"`
	IncidentID string  `json:"incident_id,omitempty"`
	Domain     string  `json:"domain,omitempty"`
	Severity   string  `json:"severity,omitempty"`
	Symptoms   string  `json:"symptoms,omitempty"`
	Resolution string  `json:"resolution,omitempty"`
	Stale      bool    `json:"stale,omitempty"`
}

// StepResponse is one timeline entry.
type StepResponse struct {
	Agent     string  `json:"agent"`
	Stage     string  `json:"stage"`
	DurationS float64 `json:"duration_s"`
	Detail    string  `json:"detail"`
	Status    string  `json:"status"`
	Attempts  int     `json:"attempts"`
}

// AnalyzeResponse is the body of a completed, degraded or no-match analysis.
type AnalyzeResponse struct {
	Status          string          `json:"status"`
	Matches         []MatchResponse `json:"matches"`
	Pattern         string          `json:"pattern"`
	PatternFallback bool            `json:"pattern_fallback"`
	Runbook         string          `json:"runbook"`
	RunbookFallback bool            `json:"runbook_fallback"`
	Message         string          `json:"message,omitempty"`
	Timeline        []StepResponse  `json:"timeline"`
	TotalTimeS      float64         `json:"total_time_s"`
}

// SearchRequest is the body of POST /api/slices/search.
type SearchRequest struct {
	Query  string `json:"query"`
	Domain string `json:"domain,omitempty"`
	TopK   *int   `json:"top_k,omitempty"`
}

// SearchResponse is the fused match list of a standalone search.
type SearchResponse struct {
	Matches            []MatchResponse `json:"matches"`
	LexicalHits        int             `json:"lexical_hits"`
	SemanticHits       int             `json:"semantic_hits"`
	DegradedModalities []string        `json:"degraded_modalities,omitempty"`
}

// IngestRequest is the body of POST /api/slices.
type IngestRequest struct {
	ID         string            `json:"id,omitempty"`
	Domain     string            `json:"domain"`
	Symptoms   string            `json:"symptoms"`
	Resolution string            `json:"resolution"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// SliceResponse is a stored slice without its vector.
type SliceResponse struct {
	ID         string            `json:"id"`
	Domain     string            `json:"domain"`
	Symptoms   string            `json:"symptoms"`
	Resolution string            `json:"resolution"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// SliceListResponse is a page of slices.
type SliceListResponse struct {
	Items []SliceResponse `json:"items"`
	Total int             `json:"total"`
}

// SeedResponse reports how many demo slices were stored.
type SeedResponse struct {
	Seeded int `json:"seeded"`
}

// DomainCountResponse is the slice count of one domain.
type DomainCountResponse struct {
	Domain string `json:"domain"`
	Count  int    `json:"count"`
}

// StatsResponse summarizes the slice bank.
type StatsResponse struct {
	TotalSlices int                   `json:"total_slices"`
	ByDomain    []DomainCountResponse `json:"by_domain"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func seconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*1000) / 1000
}

func matchesToResponse(ms []match.Match) []MatchResponse {
	out := make([]MatchResponse, len(ms))
	for i, m := range ms {
		out[i] = MatchResponse{
			Rank:       m.Rank,
			Score:      m.Score,
			SliceID:    m.SliceID,
			IncidentID: m.IncidentID,
			Domain:     m.Domain,
			Severity:   m.Severity,
			Symptoms:   match.Excerpt(m.Symptoms, matchExcerptRunes),
			Resolution: match.Excerpt(m.Resolution, matchExcerptRunes),
			Stale:      m.Stale,
		}
	}
	return out
}

// NewAnalyzeResponse renders a pipeline run as the analyze payload shared by the HTTP API and the CLI.
func NewAnalyzeResponse(run *pipeline.Run) AnalyzeResponse {
	steps := run.Steps()
	timeline := make([]StepResponse, len(steps))
	for i := range steps {
		timeline[i] = StepResponse{
			Agent:     steps[i].Agent(),
			Stage:     string(steps[i].Stage),
			DurationS: seconds(steps[i].Duration),
			Detail:    steps[i].Detail,
			Status:    string(steps[i].Status),
			Attempts:  steps[i].Attempts,
		}
	}
	return AnalyzeResponse{
		Status:          string(run.Status()),
		Matches:         matchesToResponse(run.Matches()),
		Pattern:         run.Pattern(),
		PatternFallback: run.PatternFallback(),
		Runbook:         run.Runbook(),
		RunbookFallback: run.RunbookFallback(),
		Message:         run.Message(),
		Timeline:        timeline,
		TotalTimeS:      seconds(run.Elapsed()),
	}
}

func searchToResponse(res *retrieval.Result) SearchResponse {
	resp := SearchResponse{
		Matches:      matchesToResponse(res.Matches),
		LexicalHits:  res.LexicalHits,
		SemanticHits: res.SemanticHits,
	}
	for _, m := range res.FailedModalities {
		resp.DegradedModalities = append(resp.DegradedModalities, string(m))
	}
	return resp
}

func sliceToResponse(s *domslice.Slice) SliceResponse {
	return SliceResponse{
		ID:         s.ID(),
		Domain:     s.Domain(),
		Symptoms:   s.Symptoms(),
		Resolution: s.Resolution(),
		Metadata:   s.Metadata(),
		CreatedAt:  time.UnixMilli(s.CreatedAt()).UTC(),
	}
}

func statsToResponse(st sliceuc.Stats) StatsResponse {
	by := make([]DomainCountResponse, len(st.ByDomain))
	for i, c := range st.ByDomain {
		by[i] = DomainCountResponse{Domain: c.Domain, Count: c.Count}
	}
	return StatsResponse{TotalSlices: st.Total, ByDomain: by}
}
