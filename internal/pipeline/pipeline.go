package pipeline

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ppiankov/rubriccheck/internal/cache"
	"github.com/ppiankov/rubriccheck/internal/extract"
	"github.com/ppiankov/rubriccheck/internal/grade"
	"github.com/ppiankov/rubriccheck/internal/llm"
	"github.com/ppiankov/rubriccheck/internal/locate"
	"github.com/ppiankov/rubriccheck/internal/model"
	"github.com/ppiankov/rubriccheck/internal/report"
	"github.com/ppiankov/rubriccheck/internal/score"
	"github.com/ppiankov/rubriccheck/internal/validate"
	"github.com/ppiankov/rubriccheck/internal/worker"
)

// Services are the long-lived parts built from a configuration
type Services struct {
	Provider llm.Provider
	Cache    cache.Cache
	Store    *cache.AnalysisStore
	Limiter  *worker.Limiter
	Grader   *grade.Grader
}

// Build wires the LLM provider, the analysis cache and the grader
func Build(cfg model.Config, logger zerolog.Logger) (*Services, error) {
	llmCfg := llm.ConfigFromModel(cfg.LLM)
	llmCfg.Logger = logger
	provider, err := llm.NewProvider(llmCfg)
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}

	backend, err := cache.New(cfg.Cache)
	if err != nil {
		// grading still works, it just repeats model calls
		logger.Warn().Err(err).Str("backend", cfg.Cache.Backend).Msg("cache unavailable, continuing without it")
		backend = cache.NopCache{}
	}

	store := cache.NewAnalysisStore(backend, logger)
	limiter := worker.NewLimiter(cfg.LLM.RateLimit, 1)

	return &Services{
		Provider: provider,
		Cache:    backend,
		Store:    store,
		Limiter:  limiter,
		Grader:   grade.New(provider, store, limiter, logger, grade.OptionsFromConfig(cfg)),
	}, nil
}

// Close releases the cache backend
func (s *Services) Close() error {
	if c, ok := s.Cache.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Pipeline turns sources on disk into rendered grading reports
type Pipeline struct {
	cfg       model.Config
	grader    worker.Grader
	loader    *Loader
	validator *validate.Validator
	rubric    *validate.RubricChecker
	registry  *extract.Registry
	files     *locate.FileLocator
	scorer    *score.Scorer
	renderer  *report.Renderer
	logger    zerolog.Logger
	now       func() time.Time
}

// New creates a pipeline around grader
func New(cfg model.Config, grader worker.Grader, logger zerolog.Logger) *Pipeline {
	registry := extract.NewRegistry()
	locator := locate.New(cfg.Grading.MinEvidenceLength)
	loader := NewLoader(time.Duration(cfg.LLM.Timeout)*time.Second, int64(cfg.Grading.MaxFileBytes), cfg.LLM)
	if cfg.Grading.RespectRobots {
		loader.RespectRobots()
	}

	return &Pipeline{
		cfg:       cfg,
		grader:    grader,
		loader:    loader,
		validator: validate.NewValidator(cfg.Grading),
		rubric:    validate.NewRubricChecker(),
		registry:  registry,
		files:     locate.NewFileLocator(locator, registry),
		scorer:    score.NewScorer(),
		renderer:  report.NewRenderer(locator),
		logger:    logger.With().Str("component", "pipeline").Logger(),
		now:       time.Now,
	}
}

// Loader returns the source loader
func (p *Pipeline) Loader() *Loader {
	return p.loader
}

// Prepare loads in and fills configured defaults
func (p *Pipeline) Prepare(ctx context.Context, in Inputs) (model.GradeRequest, error) {
	req, err := p.loader.Request(ctx, in)
	if err != nil {
		return model.GradeRequest{}, err
	}
	if req.WorkType == "" {
		req.WorkType = p.cfg.Grading.DefaultWorkType
	}
	return req, nil
}

// Grade validates and grades req and builds its report
func (p *Pipeline) Grade(ctx context.Context, name string, req model.GradeRequest) (*report.Report, error) {
	if err := p.validator.Request(ctx, req); err != nil {
		return nil, err
	}

	start := p.now()
	result, err := p.grader.Analyze(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("grade %s: %w", name, err)
	}
	p.logger.Debug().
		Str("submission", name).
		Int("score", result.Summary.Score).
		Dur("elapsed", p.now().Sub(start)).
		Msg("graded")

	return p.Report(name, req, result), nil
}

// Report assembles the report for a finished result: diagnostic signals,
// evidence that cannot be found, and the rubric quality check
func (p *Pipeline) Report(name string, req model.GradeRequest, result *model.AnalysisResult) *report.Report {
	var unlocated []string
	for _, c := range result.Criteria {
		if c.Evidence == "" {
			continue
		}
		if !p.files.Locatable(c, req.SubmissionText, req.SubmissionFiles) {
			unlocated = append(unlocated, c.Criterion)
		}
	}

	r := &report.Report{
		Name:        name,
		WorkType:    req.Kind(),
		Strict:      req.Strict,
		Explanation: req.Explanation,
		Result:      result,
		Signals:     p.scorer.Signals(result, unlocated),
		GeneratedAt: p.now().UTC(),
		Submission:  req.SubmissionText,
		Files:       req.SubmissionFiles,
	}

	if p.cfg.Grading.RubricQualityChecks {
		rq := p.rubric.Check(p.rubricText(req))
		r.Rubric = &rq
		if sig, ok := rq.Signal(); ok {
			r.Signals = append(r.Signals, sig)
		}
	}
	return r
}

// rubricText is the rubric as the quality check sees it, including the
// text of rubric uploads
func (p *Pipeline) rubricText(req model.GradeRequest) string {
	parts := []string{req.RubricText}
	for _, f := range req.RubricFiles {
		text, err := p.registry.Text(f)
		if err != nil {
			continue
		}
		parts = append(parts, text)
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// Render writes r in format
func (p *Pipeline) Render(w io.Writer, format report.Format, r *report.Report) error {
	return p.renderer.Render(w, format, r)
}

// Renderer returns the report renderer
func (p *Pipeline) Renderer() *report.Renderer {
	return p.renderer
}

// Batch grades every source in submissions against the same rubric and
// options. A source that fails to load or validate gets an error row.
func (p *Pipeline) Batch(ctx context.Context, shared Inputs, submissions []string) ([]report.BatchRow, error) {
	base := shared
	base.Submission = nil
	base.SubmissionText = ""
	template, err := p.Prepare(ctx, base)
	if err != nil {
		return nil, err
	}

	rows := make([]report.BatchRow, len(submissions))
	var subs []worker.Submission
	var slots []int

	for i, src := range submissions {
		rows[i].Name = src
		in, err := p.loader.Load(ctx, src)
		if err != nil {
			rows[i].Err = err
			continue
		}

		req := template
		if in.File != nil {
			req.SubmissionFiles = []model.UploadedFile{*in.File}
		} else {
			req.SubmissionText = in.Text
		}
		subs = append(subs, worker.Submission{Name: src, Request: req})
		slots = append(slots, i)
	}

	p.logger.Info().Int("submissions", len(subs)).Int("workers", p.cfg.Concurrency.Workers).Msg("batch started")

	processor := worker.NewBatchProcessor(validating{p: p}, p.cfg.Concurrency.Workers)
	for _, res := range processor.Process(ctx, subs) {
		row := &rows[slots[res.Index]]
		if res.Error != nil {
			row.Err = res.Error
			continue
		}
		s := res.Result.Summary
		row.Score, row.Met, row.Weak, row.Missing, row.AIScore = s.Score, s.Met, s.Weak, s.Missing, s.AIScore
	}
	return rows, nil
}

// validating checks a request before handing it to the grader
type validating struct {
	p *Pipeline
}

func (v validating) Analyze(ctx context.Context, req model.GradeRequest) (*model.AnalysisResult, error) {
	if err := v.p.validator.Request(ctx, req); err != nil {
		return nil, err
	}
	return v.p.grader.Analyze(ctx, req)
}
