package openai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/sentinel/internal/domain"
	"github.com/kailas-cloud/sentinel/internal/metrics"
)

// ReasonerConfig holds the chat completion provider settings.
type ReasonerConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	Provider    string
	Logger      *zap.Logger
}

// Reasoner turns prompts into text via the chat completions API.
type Reasoner struct {
	client      *openai.Client
	model       string
	temperature float32
	provider    string
	logger      *zap.Logger
}

// NewReasoner creates an OpenAI-compatible reasoning backend.
func NewReasoner(cfg *ReasonerConfig) *Reasoner {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Reasoner{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		provider:    cfg.Provider,
		logger:      cfg.Logger,
	}
}

// Reason implements domain.Reasoner. Failures are classified as
// ErrReasoningTimeout, ErrReasoningTransport or ErrReasoningMalformed.
func (r *Reasoner) Reason(ctx context.Context, req domain.ReasoningRequest) (domain.ReasoningResult, error) {
	chatReq := openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: r.temperature,
	}

	start := time.Now()
	resp, err := r.client.CreateChatCompletion(ctx, chatReq)
	duration := time.Since(start)

	if err != nil {
		r.record("error")
		r.logger.Debug("Reasoning request failed", zap.Duration("duration", duration), zap.Error(err))
		return domain.ReasoningResult{}, classifyError(ctx, err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		r.record("malformed")
		return domain.ReasoningResult{}, fmt.Errorf("empty completion: %w", domain.ErrReasoningMalformed)
	}

	r.record("success")
	metrics.ReasoningRequestDuration.WithLabelValues(r.provider, r.model).Observe(duration.Seconds())
	metrics.ReasoningTokensTotal.WithLabelValues(r.provider, r.model, "prompt").Add(float64(resp.Usage.PromptTokens))
	metrics.ReasoningTokensTotal.WithLabelValues(r.provider, r.model, "completion").
		Add(float64(resp.Usage.CompletionTokens))

	return domain.ReasoningResult{
		Text:             strings.TrimSpace(resp.Choices[0].Message.Content),
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (r *Reasoner) HealthCheck(ctx context.Context) error {
	if _, err := r.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func (r *Reasoner) record(status string) {
	metrics.ReasoningRequestsTotal.WithLabelValues(r.provider, r.model, status).Inc()
}

// classifyError maps transport failures onto the reasoning error taxonomy.
func classifyError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", domain.ErrReasoningTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", domain.ErrReasoningTimeout, err)
	}
	return parseAPIError("reasoning", err, domain.ErrReasoningTransport)
}
