package server

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/ppiankov/rubriccheck/internal/extract"
	"github.com/ppiankov/rubriccheck/internal/locate"
	"github.com/ppiankov/rubriccheck/internal/model"
	"github.com/ppiankov/rubriccheck/internal/pipeline"
	"github.com/ppiankov/rubriccheck/internal/session"
	"github.com/ppiankov/rubriccheck/internal/validate"
)

// Grader is what the API needs from the grading orchestrator
type Grader interface {
	Analyze(ctx context.Context, req model.GradeRequest) (*model.AnalysisResult, error)
	Rewrite(ctx context.Context, criterion model.CriterionResult, submission, rubric string) ([]string, error)
	Chat(ctx context.Context, history []model.ChatMessage, req model.GradeRequest, result *model.AnalysisResult) (string, error)
}

// Server exposes one grading session over HTTP
type Server struct {
	app        *fiber.App
	controller *session.Controller
	grader     Grader
	pipeline   *pipeline.Pipeline
	files      *locate.FileLocator
	validator  *validate.Validator
	logger     zerolog.Logger
	now        func() time.Time

	// base outlives single requests so a check finishes even when its
	// caller goes away
	base   context.Context
	cancel context.CancelFunc
}

// New creates the server and registers its routes
func New(cfg model.Config, controller *session.Controller, grader Grader, logger zerolog.Logger) *Server {
	logger = logger.With().Str("component", "server").Logger()
	base, cancel := context.WithCancel(context.Background())

	s := &Server{
		controller: controller,
		grader:     grader,
		pipeline:   pipeline.New(cfg, grader, logger),
		files:      locate.NewFileLocator(locate.New(cfg.Grading.MinEvidenceLength), extract.NewRegistry()),
		validator:  validate.NewValidator(cfg.Grading),
		logger:     logger,
		now:        time.Now,
		base:       base,
		cancel:     cancel,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "rubriccheck",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
		BodyLimit:             64 << 20,
	})

	s.app.Use(recover.New())
	s.app.Use(CorrelationID())
	s.app.Use(Observability(logger))
	s.app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  "Origin, Content-Type, Accept, " + HeaderCorrelationID,
		AllowMethods:  "GET,POST,PUT,DELETE,OPTIONS",
		ExposeHeaders: HeaderCorrelationID,
	}))

	s.routes(cfg.Server.Metrics)
	return s
}

func (s *Server) routes(metrics bool) {
	s.app.Get("/healthz", s.health)
	if metrics {
		s.app.Get("/metrics", MetricsHandler())
	}

	api := s.app.Group("/api")
	api.Get("/state", s.state)
	api.Put("/draft", s.saveDraft)
	api.Post("/draft/restore", s.restoreDraft)
	api.Post("/example", s.loadExample)
	api.Post("/check", s.check)
	api.Post("/reset", s.reset)
	api.Delete("/error", s.dismissError)
	api.Put("/criteria/:index/override", s.override)
	api.Post("/criteria/:index/toggle", s.toggle)
	api.Delete("/overrides", s.clearOverrides)
	api.Get("/criteria/:index/highlight", s.highlight)
	api.Get("/criteria/:index/marker", s.marker)
	api.Post("/criteria/:index/rewrite", s.rewrite)
	api.Post("/chat", s.chat)
	api.Get("/export", s.export)
}

// App returns the fiber application
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown
func (s *Server) Listen(addr string) error {
	s.logger.Info().Str("addr", addr).Msg("listening")
	if err := s.app.Listen(addr); err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return nil
}

// Shutdown stops accepting requests, cancels running checks and waits
// for them to settle
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	err := s.app.ShutdownWithContext(ctx)
	s.controller.Wait()
	return err
}
