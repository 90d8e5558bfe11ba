package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/sentinel/internal/domain"
	"github.com/kailas-cloud/sentinel/internal/domain/analysis"
	"github.com/kailas-cloud/sentinel/internal/domain/pipeline"
	domslice "github.com/kailas-cloud/sentinel/internal/domain/slice"
	"github.com/kailas-cloud/sentinel/internal/metrics"
	healthuc "github.com/kailas-cloud/sentinel/internal/usecase/health"
	"github.com/kailas-cloud/sentinel/internal/usecase/retrieval"
	sliceuc "github.com/kailas-cloud/sentinel/internal/usecase/slice"
)

// Analyzer runs the analysis pipeline.
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (*pipeline.Run, error)
}

// Retriever runs standalone hybrid search.
type Retriever interface {
	Retrieve(ctx context.Context, q retrieval.Query) (retrieval.Result, error)
}

// SliceManager manages the slice bank.
type SliceManager interface {
	Ingest(ctx context.Context, draft *domslice.Slice) (domslice.Slice, error)
	Get(ctx context.Context, id string) (domslice.Slice, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, dom string, limit int) ([]domslice.Slice, int, error)
	Stats(ctx context.Context) (sliceuc.Stats, error)
	Seed(ctx context.Context) (int, error)
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Options holds request defaults and middleware settings.
type Options struct {
	AnalyzeTopK int
	SearchTopK  int
	APIKeys     []string
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the sentinel HTTP API.
type Server struct {
	analyzer      Analyzer
	retriever     Retriever
	slices        SliceManager
	health        HealthChecker
	opts          Options
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	analyzer Analyzer,
	retriever Retriever,
	slices SliceManager,
	health HealthChecker,
	opts Options,
	logger *zap.Logger,
) *Server {
	if opts.AnalyzeTopK <= 0 {
		opts.AnalyzeTopK = analysis.DefaultTopK
	}
	if opts.SearchTopK <= 0 {
		opts.SearchTopK = 5
	}
	s := &Server{
		analyzer:  analyzer,
		retriever: retriever,
		slices:    slices,
		health:    health,
		opts:      opts,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		validationHandler,
		// ErrRepository wraps the per-modality causes, so it must match first
		sentinelHandler(domain.ErrRepository, http.StatusServiceUnavailable, CodeRepositoryUnavailable),
		sentinelHandler(domain.ErrSliceNotFound, http.StatusNotFound, CodeSliceNotFound),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadGateway, CodeVectorDimMismatch),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeEmbeddingProviderError),
		sentinelHandler(domain.ErrKeywordSearchNotSupported, http.StatusNotImplemented, CodeKeywordSearchNotSupported),
	}
	return s
}

// Router builds the chi router with the full middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(JSONRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(WideEventMiddleware(s.logger))
	r.Use(BearerAuthMiddleware(s.opts.APIKeys))
	r.Use(metrics.Middleware())

	r.Get("/health", s.HealthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/analyze", s.Analyze)
		r.Get("/stats", s.Stats)
		r.Route("/slices", func(r chi.Router) {
			r.Post("/", s.IngestSlice)
			r.Get("/", s.ListSlices)
			r.Post("/seed", s.SeedSlices)
			r.Post("/search", s.SearchSlices)
			r.Get("/{id}", s.GetSlice)
			r.Delete("/{id}", s.DeleteSlice)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrValidation,
		domain.ErrRepository,
		domain.ErrSliceNotFound,
		domain.ErrVectorDimMismatch,
		domain.ErrEmbeddingProviderError,
		domain.ErrKeywordSearchNotSupported,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// validationHandler surfaces the offending field of a ValidationError.
func validationHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrValidation) {
		return false
	}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		msg = ve.Error()
	}
	writeError(w, http.StatusBadRequest, CodeValidationFailed, msg)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := s.requestLogger(r)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
