package retrieval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/sentinel/internal/domain"
	"github.com/kailas-cloud/sentinel/internal/domain/match"
	"github.com/kailas-cloud/sentinel/internal/domain/search/hit"
	"github.com/kailas-cloud/sentinel/internal/metrics"
)

// Defaults for retrieval tuning.
const (
	DefaultCandidateMultiplier = 3
	DefaultModalityTimeout     = 2 * time.Second
)

// Config tunes the retrieval service.
type Config struct {
	RRFK                int
	CandidateMultiplier int
	ModalityTimeout     time.Duration
}

// Query is a single retrieval request.
type Query struct {
	Text   string
	Domain string
	TopK   int
}

// Result is the fused, hydrated outcome of one retrieval.
type Result struct {
	Matches      []match.Match
	LexicalHits  int
	SemanticHits int
	// FailedModalities lists modalities that errored or timed out.
	FailedModalities []hit.Modality
}

// Degraded reports whether any modality failed.
func (r *Result) Degraded() bool { return len(r.FailedModalities) > 0 }

// Service runs hybrid lexical + semantic retrieval fused by RRF.
type Service struct {
	repo   Repository
	slices Hydrator
	embed  Embedder
	cfg    Config
	logger *zap.Logger
}

// New creates a retrieval service.
func New(repo Repository, slices Hydrator, embed Embedder, cfg Config, logger *zap.Logger) *Service {
	if cfg.RRFK <= 0 {
		cfg.RRFK = DefaultK
	}
	if cfg.CandidateMultiplier <= 0 {
		cfg.CandidateMultiplier = DefaultCandidateMultiplier
	}
	if cfg.ModalityTimeout <= 0 {
		cfg.ModalityTimeout = DefaultModalityTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, slices: slices, embed: embed, cfg: cfg, logger: logger}
}

// Retrieve queries both modalities concurrently, fuses their rankings and
// hydrates the top matches. One failed modality degrades the result; both
// failing returns an error wrapping domain.ErrRepository.
func (s *Service) Retrieve(ctx context.Context, q Query) (Result, error) {
	if q.TopK <= 0 {
		return Result{Matches: []match.Match{}}, nil
	}
	limit := q.TopK * s.cfg.CandidateMultiplier

	var (
		lexical, semantic       []hit.RankedHit
		lexicalErr, semanticErr error
		g                       errgroup.Group
	)
	g.Go(func() error {
		mctx, cancel := context.WithTimeout(ctx, s.cfg.ModalityTimeout)
		defer cancel()
		lexical, lexicalErr = s.repo.SearchLexical(mctx, q.Text, q.Domain, limit)
		return nil
	})
	g.Go(func() error {
		mctx, cancel := context.WithTimeout(ctx, s.cfg.ModalityTimeout)
		defer cancel()
		semantic, semanticErr = s.searchSemantic(mctx, q, limit)
		return nil
	})
	_ = g.Wait()

	res := Result{LexicalHits: len(lexical), SemanticHits: len(semantic)}
	var rankings []hit.Ranking
	if lexicalErr != nil {
		res.FailedModalities = append(res.FailedModalities, hit.Lexical)
		s.modalityFailed(hit.Lexical, lexicalErr)
	} else {
		rankings = append(rankings, hit.Ranking{Modality: hit.Lexical, Hits: lexical})
	}
	if semanticErr != nil {
		res.FailedModalities = append(res.FailedModalities, hit.Semantic)
		s.modalityFailed(hit.Semantic, semanticErr)
	} else {
		rankings = append(rankings, hit.Ranking{Modality: hit.Semantic, Hits: semantic})
	}

	if lexicalErr != nil && semanticErr != nil {
		return Result{}, fmt.Errorf("%w: %w", domain.ErrRepository, errors.Join(
			fmt.Errorf("lexical: %w", lexicalErr),
			fmt.Errorf("semantic: %w", semanticErr),
		))
	}

	fused := Fuse(rankings, s.cfg.RRFK, q.TopK)
	matches, err := s.hydrate(ctx, fused)
	if err != nil {
		return Result{}, err
	}
	res.Matches = matches
	return res, nil
}

func (s *Service) searchSemantic(ctx context.Context, q Query, limit int) ([]hit.RankedHit, error) {
	emb, err := s.embed.Embed(ctx, q.Text)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}
	hits, err := s.repo.SearchSemantic(ctx, emb.Embedding, q.Domain, limit)
	if err != nil {
		return nil, fmt.Errorf("search knn: %w", err)
	}
	return hits, nil
}

func (s *Service) modalityFailed(m hit.Modality, err error) {
	metrics.RetrievalModalityFailuresTotal.WithLabelValues(string(m)).Inc()
	s.logger.Warn("Retrieval modality failed",
		zap.String("modality", string(m)),
		zap.Error(err),
	)
}

// hydrate attaches slice summaries to fused ids, preserving fused order.
// Ids whose slice vanished after ranking become stale matches.
func (s *Service) hydrate(ctx context.Context, fused []Fused) ([]match.Match, error) {
	matches := make([]match.Match, 0, len(fused))
	if len(fused) == 0 {
		return matches, nil
	}

	ids := make([]string, len(fused))
	for i, f := range fused {
		ids[i] = f.SliceID
	}
	found, err := s.slices.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: hydrate matches: %w", domain.ErrRepository, err)
	}

	for i, f := range fused {
		m := match.Match{Rank: i + 1, Score: f.Score, SliceID: f.SliceID}
		sl, ok := found[f.SliceID]
		if !ok {
			m.Stale = true
			matches = append(matches, m)
			continue
		}
		m.IncidentID = sl.IncidentID()
		m.Domain = sl.Domain()
		m.Severity = sl.Severity()
		m.Symptoms = sl.Symptoms()
		m.Resolution = sl.Resolution()
		matches = append(matches, m)
	}
	return matches, nil
}
