package chi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/sentinel/internal/domain"
	"github.com/kailas-cloud/sentinel/internal/domain/analysis"
	domslice "github.com/kailas-cloud/sentinel/internal/domain/slice"
	logpkg "github.com/kailas-cloud/sentinel/internal/logger"
	healthuc "github.com/kailas-cloud/sentinel/internal/usecase/health"
	"github.com/kailas-cloud/sentinel/internal/usecase/retrieval"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		msg := "invalid request body"
		if errors.Is(err, io.EOF) {
			msg = "request body is empty"
		}
		writeError(w, http.StatusBadRequest, CodeBadRequest, msg)
		return false
	}
	return true
}

// Analyze handles POST /api/analyze.
func (s *Server) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	topK := s.opts.AnalyzeTopK
	if req.TopK != nil {
		topK = *req.TopK
	}
	areq, err := analysis.NewRequest(req.Symptoms, req.Domain, topK)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	ctx := logpkg.With(r.Context(), zap.String("domain", areq.Domain()), zap.Int("top_k", areq.TopK()))
	run, err := s.analyzer.Analyze(ctx, areq)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, NewAnalyzeResponse(run))
}

// SearchSlices handles POST /api/slices/search.
func (s *Server) SearchSlices(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	topK := s.opts.SearchTopK
	if req.TopK != nil {
		topK = *req.TopK
	}
	// same bounds as analysis
	areq, err := analysis.NewRequest(req.Query, req.Domain, topK)
	if err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) && ve.Field == "symptoms" {
			err = domain.NewValidationError("query", ve.Reason)
		}
		s.handleDomainError(w, r, err)
		return
	}

	res, err := s.retriever.Retrieve(r.Context(), retrieval.Query{
		Text:   areq.Symptoms(),
		Domain: areq.Domain(),
		TopK:   areq.TopK(),
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, searchToResponse(&res))
}

// IngestSlice handles POST /api/slices.
func (s *Server) IngestSlice(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	draft, err := domslice.New(req.ID, req.Domain, req.Symptoms, req.Resolution, req.Metadata)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	stored, err := s.slices.Ingest(r.Context(), &draft)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": stored.ID()})
}

// ListSlices handles GET /api/slices.
func (s *Server) ListSlices(w http.ResponseWriter, r *http.Request) {
	size := 0
	if raw := r.URL.Query().Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, CodeBadRequest, "size must be a non-negative integer")
			return
		}
		size = n
	}

	items, total, err := s.slices.List(r.Context(), r.URL.Query().Get("domain"), size)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	resp := SliceListResponse{Items: make([]SliceResponse, len(items)), Total: total}
	for i := range items {
		resp.Items[i] = sliceToResponse(&items[i])
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetSlice handles GET /api/slices/{id}.
func (s *Server) GetSlice(w http.ResponseWriter, r *http.Request) {
	sl, err := s.slices.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sliceToResponse(&sl))
}

// DeleteSlice handles DELETE /api/slices/{id}.
func (s *Server) DeleteSlice(w http.ResponseWriter, r *http.Request) {
	if err := s.slices.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SeedSlices handles POST /api/slices/seed.
func (s *Server) SeedSlices(w http.ResponseWriter, r *http.Request) {
	n, err := s.slices.Seed(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SeedResponse{Seeded: n})
}

// Stats handles GET /api/stats.
func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := s.slices.Stats(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statsToResponse(st))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())
	checks := make(map[string]string, len(report.Checks))
	for name, res := range report.Checks {
		checks[name] = string(res)
	}
	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, HealthResponse{Status: string(report.Status), Checks: checks})
}
