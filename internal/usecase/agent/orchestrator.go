package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/sentinel/internal/domain"
	"github.com/kailas-cloud/sentinel/internal/domain/analysis"
	"github.com/kailas-cloud/sentinel/internal/domain/match"
	"github.com/kailas-cloud/sentinel/internal/domain/pipeline"
	"github.com/kailas-cloud/sentinel/internal/domain/search/hit"
	"github.com/kailas-cloud/sentinel/internal/logger"
	"github.com/kailas-cloud/sentinel/internal/metrics"
	"github.com/kailas-cloud/sentinel/internal/usecase/retrieval"
)

// Orchestrator defaults.
const (
	DefaultAnalysisMaxTokens = 300
	DefaultActionMaxTokens   = 800
	DefaultMaxPromptMatches  = 5
	DefaultMaxExcerptRunes   = 600
	DefaultSoftBudget        = 4 * time.Second
)

// User-facing outcome messages.
const (
	NoMatchMessage         = "No historical precedent found. This may be a novel incident — escalate to the on-call engineer."
	PatternFallbackMessage = "Root cause pattern unavailable; runbook generated from historical matches only."
	RunbookFallbackMessage = "Reasoning backend unavailable; runbook is the most similar historical resolution."
)

// Config tunes the orchestrator.
type Config struct {
	Retry             RetryPolicy
	AnalysisMaxTokens int
	ActionMaxTokens   int
	MaxPromptMatches  int
	MaxExcerptRunes   int
	SoftBudget        time.Duration
}

// DefaultConfig returns the orchestrator defaults.
func DefaultConfig() Config {
	return Config{
		Retry:             DefaultRetryPolicy(),
		AnalysisMaxTokens: DefaultAnalysisMaxTokens,
		ActionMaxTokens:   DefaultActionMaxTokens,
		MaxPromptMatches:  DefaultMaxPromptMatches,
		MaxExcerptRunes:   DefaultMaxExcerptRunes,
		SoftBudget:        DefaultSoftBudget,
	}
}

// Orchestrator drives the Retrieval, Analysis and Action stages of one analysis.
type Orchestrator struct {
	retriever Retriever
	reasoner  Reasoner
	cfg       Config
	limits    promptLimits
}

// New creates an orchestrator. Zero-valued settings take their defaults;
// a zero Retry policy means DefaultRetryPolicy.
func New(retriever Retriever, reasoner Reasoner, cfg Config) *Orchestrator {
	def := DefaultConfig()
	if cfg.Retry == (RetryPolicy{}) {
		cfg.Retry = def.Retry
	}
	if cfg.AnalysisMaxTokens <= 0 {
		cfg.AnalysisMaxTokens = def.AnalysisMaxTokens
	}
	if cfg.ActionMaxTokens <= 0 {
		cfg.ActionMaxTokens = def.ActionMaxTokens
	}
	if cfg.MaxPromptMatches <= 0 {
		cfg.MaxPromptMatches = def.MaxPromptMatches
	}
	if cfg.MaxExcerptRunes <= 0 {
		cfg.MaxExcerptRunes = def.MaxExcerptRunes
	}
	if cfg.SoftBudget <= 0 {
		cfg.SoftBudget = def.SoftBudget
	}
	return &Orchestrator{
		retriever: retriever,
		reasoner:  reasoner,
		cfg:       cfg,
		limits:    promptLimits{maxMatches: cfg.MaxPromptMatches, maxRunes: cfg.MaxExcerptRunes},
	}
}

// Analyze runs the pipeline for one validated request. Reasoning failures are
// absorbed into a DEGRADED run; only a repository failure during retrieval
// returns an error (alongside the FAILED run).
func (o *Orchestrator) Analyze(ctx context.Context, req analysis.Request) (*pipeline.Run, error) {
	run := pipeline.NewRun(time.Now())
	err := o.execute(ctx, run, &req)
	run.Finish(time.Now())
	o.observe(ctx, run, err)
	return run, err
}

func (o *Orchestrator) execute(ctx context.Context, run *pipeline.Run, req *analysis.Request) error {
	must(run.Transition(pipeline.Retrieving))
	ok, err := o.retrieve(ctx, run, req)
	if err != nil {
		must(run.Transition(pipeline.Failed))
		return err
	}
	if !ok {
		must(run.Transition(pipeline.NoMatch))
		run.SetMatches([]match.Match{})
		run.SetMessage(NoMatchMessage)
		return nil
	}

	must(run.Transition(pipeline.Analyzing))
	o.analyze(ctx, run, req.Symptoms())

	if run.PatternFallback() && ctx.Err() != nil {
		// Caller is gone: skip Action, fall back directly.
		best, _ := match.Best(run.Matches())
		run.SetFallbackRunbook(fallbackRunbook(best))
		run.SetMessage(RunbookFallbackMessage)
		must(run.Transition(pipeline.Degraded))
		return nil
	}

	must(run.Transition(pipeline.Acting))
	o.act(ctx, run, req.Symptoms())

	switch {
	case run.RunbookFallback():
		run.SetMessage(RunbookFallbackMessage)
		must(run.Transition(pipeline.Degraded))
	case run.PatternFallback():
		run.SetMessage(PatternFallbackMessage)
		must(run.Transition(pipeline.Degraded))
	default:
		must(run.Transition(pipeline.Complete))
	}
	return nil
}

// retrieve records the Retrieval step. It reports false when no usable match exists.
func (o *Orchestrator) retrieve(ctx context.Context, run *pipeline.Run, req *analysis.Request) (bool, error) {
	start := time.Now()
	res, err := o.retriever.Retrieve(ctx, retrieval.Query{
		Text:   req.Symptoms(),
		Domain: req.Domain(),
		TopK:   req.TopK(),
	})
	step := pipeline.Step{Stage: pipeline.StageRetrieval, Duration: time.Since(start), Attempts: 1}
	if err != nil {
		step.Status = pipeline.StepFailed
		step.Detail = fmt.Sprintf("Retrieval failed: %v", err)
		o.record(run, step)
		return false, fmt.Errorf("retrieve matches: %w", err)
	}

	step.Status = pipeline.StepOK
	step.Detail = retrievalDetail(&res)
	o.record(run, step)

	if _, ok := match.Best(res.Matches); !ok {
		return false, nil
	}
	run.SetMatches(res.Matches)
	return true, nil
}

func (o *Orchestrator) analyze(ctx context.Context, run *pipeline.Run, symptoms string) {
	prompt := o.limits.analysisPrompt(symptoms, run.Matches())
	start := time.Now()
	res, attempts, err := o.reason(ctx, pipeline.StageAnalysis, prompt, o.cfg.AnalysisMaxTokens)
	step := pipeline.Step{Stage: pipeline.StageAnalysis, Duration: time.Since(start), Attempts: attempts}
	if err != nil {
		run.MarkPatternFallback()
		step.Status = pipeline.StepFailed
		step.Detail = fmt.Sprintf("Pattern synthesis failed after %d attempt(s): %v. Continuing with matches only.", attempts, err)
	} else {
		run.SetPattern(res.Text)
		step.Status = pipeline.StepOK
		step.Detail = "Root cause pattern synthesized from historical matches."
	}
	o.record(run, step)
}

func (o *Orchestrator) act(ctx context.Context, run *pipeline.Run, symptoms string) {
	prompt := o.limits.actionPrompt(symptoms, run.Pattern(), run.Matches())
	start := time.Now()
	res, attempts, err := o.reason(ctx, pipeline.StageAction, prompt, o.cfg.ActionMaxTokens)
	step := pipeline.Step{Stage: pipeline.StageAction, Duration: time.Since(start), Attempts: attempts}
	if err != nil {
		best, _ := match.Best(run.Matches())
		run.SetFallbackRunbook(fallbackRunbook(best))
		step.Status = pipeline.StepFallback
		step.Detail = fmt.Sprintf("Runbook generation failed after %d attempt(s): %v. Using resolution of incident %s.",
			attempts, err, best.IncidentID)
	} else {
		run.SetRunbook(res.Text)
		step.Status = pipeline.StepOK
		step.Detail = fmt.Sprintf("Generated %d line runbook.", len(strings.Split(res.Text, "\n")))
	}
	o.record(run, step)
}

func (o *Orchestrator) reason(
	ctx context.Context, stage pipeline.Stage, prompt string, maxTokens int,
) (domain.ReasoningResult, int, error) {
	log := logger.FromContext(ctx)
	call := func(cctx context.Context) (domain.ReasoningResult, error) {
		return o.reasoner.Reason(cctx, domain.ReasoningRequest{Prompt: prompt, MaxTokens: maxTokens})
	}
	onRetry := func(attempt int, err error) {
		metrics.ReasoningRetriesTotal.WithLabelValues(string(stage)).Inc()
		log.Warn("Reasoning call failed, retrying",
			zap.String("stage", string(stage)),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
	return o.cfg.Retry.Do(ctx, call, onRetry)
}

func (o *Orchestrator) record(run *pipeline.Run, step pipeline.Step) {
	metrics.StageDuration.WithLabelValues(string(step.Stage), string(step.Status)).Observe(step.Duration.Seconds())
	run.Record(step)
}

// observe emits the canonical run log line and run-level metrics.
func (o *Orchestrator) observe(ctx context.Context, run *pipeline.Run, err error) {
	log := logger.FromContext(ctx)
	metrics.PipelineRunsTotal.WithLabelValues(string(run.Status())).Inc()
	metrics.PipelineDuration.Observe(run.Elapsed().Seconds())

	steps := run.Steps()
	fields := make([]zap.Field, 0, len(steps)+5)
	fields = append(fields,
		zap.String("status", string(run.Status())),
		zap.Int("matches", len(run.Matches())),
		zap.Bool("degraded", run.Degraded()),
		zap.Duration("elapsed", run.Elapsed()),
	)
	for i := range steps {
		fields = append(fields, zap.Duration(string(steps[i].Stage), steps[i].Duration))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	log.Info("analysis_run", fields...)

	if run.Elapsed() > o.cfg.SoftBudget {
		log.Warn("Analysis exceeded soft latency budget",
			zap.Duration("budget", o.cfg.SoftBudget),
			zap.Duration("elapsed", run.Elapsed()),
			zap.String("timeline", timeline(steps)),
		)
	}
}

func retrievalDetail(res *retrieval.Result) string {
	scores := make([]string, 0, len(res.Matches))
	for _, m := range res.Matches {
		scores = append(scores, fmt.Sprintf("%.4f", m.Score))
	}
	detail := fmt.Sprintf("Found %d matches via fused ranking (scores: [%s])",
		len(res.Matches), strings.Join(scores, ", "))
	for _, m := range res.FailedModalities {
		switch m {
		case hit.Lexical:
			detail += "; lexical unavailable"
		case hit.Semantic:
			detail += "; semantic unavailable"
		}
	}
	return detail
}

func timeline(steps []pipeline.Step) string {
	parts := make([]string, len(steps))
	for i := range steps {
		parts[i] = fmt.Sprintf("%s=%s(%s)", steps[i].Stage, steps[i].Duration.Round(time.Millisecond), steps[i].Status)
	}
	return strings.Join(parts, " ")
}

// must panics on an illegal state transition, which is a programming error.
func must(err error) {
	if err != nil {
		panic(err)
	}
}
