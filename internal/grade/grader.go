package grade

import (
	"context"
	"encoding/json"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ppiankov/rubriccheck/internal/cache"
	"github.com/ppiankov/rubriccheck/internal/extract"
	"github.com/ppiankov/rubriccheck/internal/llm"
	"github.com/ppiankov/rubriccheck/internal/model"
	"github.com/ppiankov/rubriccheck/internal/score"
	"github.com/ppiankov/rubriccheck/internal/worker"
)

const (
	opAnalyze = "analyze"
	opRewrite = "rewrite"
	opChat    = "chat"

	maxRewrites = 3
)

// Options tunes a Grader
type Options struct {
	// MinLatency is the shortest time Analyze takes, cache hits included
	MinLatency time.Duration

	GradingTemperature float32
	RewriteTemperature float32
	Model              string
	MaxTokens          int

	// Now and Sleep replace the wall clock in tests
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// OptionsFromConfig maps the grading section of the config
func OptionsFromConfig(cfg model.Config) Options {
	return Options{
		MinLatency:         cfg.Grading.MinLatency,
		GradingTemperature: cfg.Grading.GradingTemperature,
		RewriteTemperature: cfg.Grading.RewriteTemperature,
		Model:              cfg.LLM.Model,
		MaxTokens:          cfg.LLM.MaxTokens,
	}
}

// Grader turns grading requests into analysis results through an LLM
type Grader struct {
	provider  llm.Provider
	store     *cache.AnalysisStore
	limiter   *worker.Limiter
	registry  *extract.Registry
	sanitizer *bluemonday.Policy
	tracer    trace.Tracer
	logger    zerolog.Logger
	opts      Options
}

// New creates a Grader. store and limiter may be nil.
func New(provider llm.Provider, store *cache.AnalysisStore, limiter *worker.Limiter, logger zerolog.Logger, opts Options) *Grader {
	if store == nil {
		store = cache.NewAnalysisStore(nil, logger)
	}
	if limiter == nil {
		limiter = worker.NewLimiter(0, 1)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}

	return &Grader{
		provider:  provider,
		store:     store,
		limiter:   limiter,
		registry:  extract.NewRegistry(),
		sanitizer: bluemonday.StrictPolicy(),
		tracer:    otel.Tracer("github.com/ppiankov/rubriccheck/internal/grade"),
		logger:    logger.With().Str("component", "grader").Logger(),
		opts:      opts,
	}
}

// Analyze grades req. The call never returns before MinLatency has passed
// since it started, whatever the outcome, unless ctx ends first.
func (g *Grader) Analyze(ctx context.Context, req model.GradeRequest) (*model.AnalysisResult, error) {
	start := g.opts.Now()
	observeCall(opAnalyze)

	ctx, span := g.tracer.Start(ctx, "grade.analyze", trace.WithAttributes(
		attribute.String("work_type", string(req.Kind())),
		attribute.Bool("strict", req.Strict),
		attribute.String("provider", g.provider.Name()),
	))
	defer span.End()

	result, err := g.analyze(ctx, req)

	if waitErr := g.floor(ctx, start); waitErr != nil && err == nil {
		err = waitErr
		result = nil
	}
	observeDuration(opAnalyze, g.opts.Now().Sub(start).Seconds())

	if err != nil {
		observeFailure(opAnalyze, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, KindOf(err).String())
		return nil, err
	}
	return result, nil
}

func (g *Grader) analyze(ctx context.Context, req model.GradeRequest) (*model.AnalysisResult, error) {
	id := cache.Fingerprint(req)
	log := g.logger.With().Str("fingerprint", id[:12]).Logger()

	if cached, ok := g.store.Get(id); ok {
		observeCacheHit(opAnalyze)
		log.Debug().Msg("analysis served from cache")
		return cached, nil
	}

	content, err := g.complete(ctx, opAnalyze, llm.CompletionRequest{
		Messages:    BuildMessages(req, g.registry),
		Temperature: g.opts.GradingTemperature,
		Model:       g.opts.Model,
		MaxTokens:   g.opts.MaxTokens,
		JSON:        true,
	})
	if err != nil {
		log.Warn().Err(err).Str("kind", KindOf(err).String()).Msg("grading call failed")
		return nil, err
	}

	parsed, err := Parse(content)
	if err != nil {
		log.Warn().Err(err).Int("length", len(content)).Msg("unusable grading answer")
		return nil, invalidOutput(opAnalyze, err)
	}

	result := g.build(parsed)
	g.store.Put(id, result)

	log.Info().
		Int("criteria", len(result.Criteria)).
		Int("score", result.Summary.Score).
		Int("ai_score", result.Summary.AIScore).
		Msg("analysis complete")

	return result, nil
}

// build normalizes a parsed answer and derives the summary from it
func (g *Grader) build(p *Parsed) *model.AnalysisResult {
	criteria := make([]model.CriterionResult, len(p.Criteria))
	for i, c := range p.Criteria {
		c.Criterion = g.prose(c.Criterion)
		c.Why = g.prose(c.Why)
		c.ExactFix = g.prose(c.ExactFix)
		c.UserStatus = nil
		criteria[i] = c
	}

	var indicators []string
	for _, s := range p.Indicators {
		if s = g.prose(s); s != "" {
			indicators = append(indicators, s)
		}
	}

	previous := model.Summary{
		AIScore:    p.AIScore,
		AIAnalysis: score.AnalyzeAI(p.AIScore),
	}
	previous.AIAnalysis.Indicators = indicators

	return &model.AnalysisResult{
		Summary:  score.Summarize(criteria, previous),
		Criteria: criteria,
	}
}

// prose strips markup from model-written text. Evidence never goes
// through here since it has to match the submission byte for byte.
func (g *Grader) prose(s string) string {
	return strings.TrimSpace(html.UnescapeString(g.sanitizer.Sanitize(s)))
}

// Rewrite asks for natural rewrites of the passage a criterion points at
func (g *Grader) Rewrite(ctx context.Context, criterion model.CriterionResult, submission, rubric string) ([]string, error) {
	observeCall(opRewrite)
	ctx, span := g.tracer.Start(ctx, "grade.rewrite", trace.WithAttributes(
		attribute.String("criterion", criterion.Criterion),
	))
	defer span.End()

	id := cache.RewriteFingerprint(criterion.Criterion, criterion.Evidence, submission, rubric)
	if cached, ok := g.store.GetRewrites(id); ok {
		observeCacheHit(opRewrite)
		return cached, nil
	}

	content, err := g.complete(ctx, opRewrite, llm.CompletionRequest{
		Messages:    RewriteMessages(criterion, submission, rubric),
		Temperature: g.opts.RewriteTemperature,
		Model:       g.opts.Model,
		MaxTokens:   g.opts.MaxTokens,
	})
	if err != nil {
		observeFailure(opRewrite, err)
		span.RecordError(err)
		return nil, err
	}

	suggestions, err := ParseRewrites(content)
	if err != nil {
		err = invalidOutput(opRewrite, err)
		observeFailure(opRewrite, err)
		span.RecordError(err)
		return nil, err
	}
	if len(suggestions) > maxRewrites {
		suggestions = suggestions[:maxRewrites]
	}

	g.store.PutRewrites(id, suggestions)
	return suggestions, nil
}

// Chat answers a follow-up question about the assignment and its result
func (g *Grader) Chat(ctx context.Context, history []model.ChatMessage, req model.GradeRequest, result *model.AnalysisResult) (string, error) {
	observeCall(opChat)
	ctx, span := g.tracer.Start(ctx, "grade.chat", trace.WithAttributes(
		attribute.Int("turns", len(history)),
	))
	defer span.End()

	summary := ""
	if result != nil {
		if data, err := json.Marshal(result.Summary); err == nil {
			summary = string(data)
		}
	}

	content, err := g.complete(ctx, opChat, llm.CompletionRequest{
		Messages:    ChatMessages(history, req, summary),
		Temperature: 0,
		Model:       g.opts.Model,
		MaxTokens:   g.opts.MaxTokens,
	})
	if err != nil {
		observeFailure(opChat, err)
		span.RecordError(err)
		return "", err
	}
	return strings.TrimSpace(content), nil
}

// complete throttles, calls the provider and normalizes its error
func (g *Grader) complete(ctx context.Context, op string, req llm.CompletionRequest) (string, error) {
	if err := g.limiter.Wait(ctx, g.provider.Name()); err != nil {
		return "", classify(op, err)
	}

	ctx, span := g.tracer.Start(ctx, "llm.complete", trace.WithAttributes(
		attribute.String("provider", g.provider.Name()),
		attribute.Float64("temperature", float64(req.Temperature)),
	))
	defer span.End()

	resp, err := g.provider.Complete(ctx, req)
	if err != nil {
		span.RecordError(err)
		return "", classify(op, err)
	}
	span.SetAttributes(attribute.Int("tokens", resp.TokensUsed))

	if strings.TrimSpace(resp.Content) == "" {
		return "", invalidOutput(op, llm.ErrEmptyResponse)
	}
	return resp.Content, nil
}

// floor waits out the rest of MinLatency measured from start
func (g *Grader) floor(ctx context.Context, start time.Time) error {
	remaining := g.opts.MinLatency - g.opts.Now().Sub(start)
	if remaining <= 0 {
		return nil
	}
	return g.opts.Sleep(ctx, remaining)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
