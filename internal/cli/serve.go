package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/rubriccheck/internal/cache"
	"github.com/ppiankov/rubriccheck/internal/pipeline"
	"github.com/ppiankov/rubriccheck/internal/server"
	"github.com/ppiankov/rubriccheck/internal/session"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the grading session over HTTP",
	Long: `Serve runs the JSON API a browser front-end talks to. The server owns one
grading session: inputs are saved as a draft on every change and restored
on start, and a quota error blocks new checks for grading.quota_cooldown.

Example:
  rubriccheck serve --addr :8080
  curl -s localhost:8080/api/state`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().StringVar(&llmProvider, "provider", "", "LLM provider (openai, anthropic, ollama, endpoint)")
	serveCmd.Flags().StringVar(&llmModel, "model", "", "LLM model name")
	serveCmd.Flags().BoolVar(&noCache, "no-cache", false, "always ask the model, ignoring cached results")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := commandConfig(cmd)
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	services, err := pipeline.Build(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = services.Close() }()

	probeCtx, cancelProbe := context.WithTimeout(cmd.Context(), 5*time.Second)
	if !services.Provider.IsAvailable(probeCtx) {
		logger.Warn().Str("provider", services.Provider.Name()).Msg("LLM provider not reachable, checks will fail until it is")
	}
	cancelProbe()

	drafts := session.NewDraftStore(
		cache.NewDiskCache(cache.ExpandHome(cfg.Server.DraftDir), cache.NoExpiration),
		cfg.Server.DraftMaxBytes,
		logger,
	)
	controller := session.NewController(services.Grader, drafts, session.Options{Cooldown: cfg.Grading.QuotaCooldown}, logger)
	if _, restored, err := controller.RestoreDraft(); err != nil {
		logger.Warn().Err(err).Msg("draft not restored")
	} else if restored {
		logger.Info().Msg("draft restored")
	}

	srv := server.New(cfg, controller, services.Grader, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Listen(cfg.Server.Addr) }()
	fmt.Printf("Rubric Check API listening on %s\n", cfg.Server.Addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
