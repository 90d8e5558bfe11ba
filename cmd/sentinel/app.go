package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/sentinel/internal/config"
	dbRedis "github.com/kailas-cloud/sentinel/internal/db/redis"
	logpkg "github.com/kailas-cloud/sentinel/internal/logger"
	"github.com/kailas-cloud/sentinel/internal/metrics"
	"github.com/kailas-cloud/sentinel/internal/repository/embcache"
	slicerepo "github.com/kailas-cloud/sentinel/internal/repository/slice"
	openaiTransport "github.com/kailas-cloud/sentinel/internal/transport/openai"
	"github.com/kailas-cloud/sentinel/internal/usecase/agent"
	healthuc "github.com/kailas-cloud/sentinel/internal/usecase/health"
	"github.com/kailas-cloud/sentinel/internal/usecase/retrieval"
	sliceuc "github.com/kailas-cloud/sentinel/internal/usecase/slice"
)

// app is the wired object graph shared by every subcommand.
type app struct {
	env          string
	cfg          config.Config
	logger       *zap.Logger
	store        *dbRedis.Store
	slices       *sliceuc.Service
	retrieval    *retrieval.Service
	orchestrator *agent.Orchestrator
	health       *healthuc.Service
}

// newApp is the composition root: config, logger, store, index, providers, use cases.
func newApp(ctx context.Context) (*app, error) {
	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:      cfg.Database.Addrs,
		Username:   cfg.Database.Username,
		Password:   cfg.Database.Password,
		VectorOnly: cfg.Database.Driver == "valkey",
	})
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("create store: %w", err)
	}

	a := &app{env: env, cfg: cfg, logger: logger, store: store}
	if err := a.wire(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context) error {
	cfg := a.cfg
	readiness := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
	if err := a.store.WaitForReady(ctx, readiness); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}
	a.logger.Info("Connected to database",
		zap.String("driver", cfg.Database.Driver),
		zap.Strings("addrs", cfg.Database.Addrs),
	)

	metrics.Register()

	repo := slicerepo.New(a.store, slicerepo.Config{
		KeyPrefix: cfg.Storage.KeyPrefix + "slice:",
		IndexName: cfg.Index.Name,
		VectorDim: cfg.Embedding.Dimensions,
		HNSW: slicerepo.HNSWConfig{
			M:           cfg.Index.HNSWM,
			EFConstruct: cfg.Index.HNSWEFConstruct,
		},
	})
	if err := repo.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("ensure slice index: %w", err)
	}

	baseEmbedder := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     a.logger,
	})
	embedder := embcache.New(baseEmbedder, a.store, embcache.Options{
		KeyPrefix: cfg.Storage.KeyPrefix + "emb_cache:",
		Model:     cfg.Embedding.Model,
		TTL:       time.Duration(cfg.Embedding.CacheTTLSec) * time.Second,
	}, metrics.EmbeddingCacheTotal, a.logger)

	reasoner := openaiTransport.NewReasoner(&openaiTransport.ReasonerConfig{
		APIKey:      cfg.Reasoning.APIKey,
		BaseURL:     cfg.Reasoning.BaseURL,
		Model:       cfg.Reasoning.Model,
		Temperature: cfg.Reasoning.Temperature,
		Provider:    cfg.Reasoning.Provider,
		Logger:      a.logger,
	})
	a.logger.Info("Providers created",
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.String("reasoning_model", cfg.Reasoning.Model),
	)

	a.slices = sliceuc.New(repo, embedder, cfg.Embedding.Dimensions).
		WithPagination(cfg.Index.DefaultPageSize, cfg.Index.MaxPageSize)
	a.retrieval = retrieval.New(repo, repo, embedder, retrieval.Config{
		RRFK:                cfg.Pipeline.RRFK,
		CandidateMultiplier: cfg.Pipeline.CandidateMultiplier,
		ModalityTimeout:     cfg.Pipeline.ModalityTimeout(),
	}, a.logger)

	retries := agent.DefaultRetries
	if cfg.Reasoning.Retries != nil {
		retries = *cfg.Reasoning.Retries
	}
	a.orchestrator = agent.New(a.retrieval, reasoner, agent.Config{
		Retry: agent.RetryPolicy{
			Retries:     retries,
			Backoff:     cfg.Reasoning.Backoff(),
			Multiplier:  cfg.Reasoning.BackoffFactor,
			CallTimeout: cfg.Reasoning.CallTimeout(),
		},
		AnalysisMaxTokens: cfg.Pipeline.AnalysisMaxTokens,
		ActionMaxTokens:   cfg.Pipeline.ActionMaxTokens,
		MaxPromptMatches:  cfg.Pipeline.MaxPromptMatches,
		MaxExcerptRunes:   cfg.Pipeline.MaxExcerptRunes,
		SoftBudget:        cfg.Pipeline.SoftBudget(),
	})
	a.health = healthuc.New(a.store, baseEmbedder, reasoner)
	return nil
}

// baseContext carries the root logger so use cases log through logger.FromContext.
func (a *app) baseContext(ctx context.Context) context.Context {
	return logpkg.ContextWithLogger(ctx, a.logger)
}

func (a *app) close() {
	a.store.Close()
	_ = a.logger.Sync()
}
