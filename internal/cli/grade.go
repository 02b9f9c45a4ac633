package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/rubriccheck/internal/model"
	"github.com/ppiankov/rubriccheck/internal/pipeline"
	"github.com/ppiankov/rubriccheck/internal/report"
	"github.com/ppiankov/rubriccheck/internal/session"
)

var (
	rubricSources []string
	rubricText    string
	essayText     string
	explanation   string
	strictMode    bool
	workType      string
	outFormat     string
	outPath       string
	useExample    bool
	gradeTimeout  time.Duration
	llmProvider   string
	llmModel      string
	noCache       bool
)

// gradeCmd represents the grade command
var gradeCmd = &cobra.Command{
	Use:   "grade [submission...]",
	Short: "Grade a submission against a rubric",
	Long: `Grade sends the rubric and the submission to the configured model and
prints the verdict for every criterion.

Submissions and rubrics may be files, http(s) URLs or "-" for stdin. Text
files are sent as text; images, PDFs and other documents are attached.

Example:
  rubriccheck grade essay.txt --rubric rubric.md
  rubriccheck grade slides.pdf --rubric rubric.txt --work-type Presentation --strict
  rubriccheck grade essay.txt --rubric rubric.txt --format html --out feedback.html
  rubriccheck grade --example`,
	RunE: runGrade,
}

func init() {
	rootCmd.AddCommand(gradeCmd)

	addInputFlags(gradeCmd)
	gradeCmd.Flags().StringVar(&essayText, "text", "", "submission text (in addition to any files)")
	gradeCmd.Flags().StringVarP(&outFormat, "format", "f", "", "output format: text, markdown, json, html, table (default from config)")
	gradeCmd.Flags().StringVarP(&outPath, "out", "o", "", "write the report to this file instead of stdout")
	gradeCmd.Flags().BoolVar(&useExample, "example", false, "grade the built-in sample essay against the sample rubric")
}

// addInputFlags registers the flags shared by grade and batch
func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&rubricSources, "rubric", "r", nil, "rubric file, URL or - (repeatable)")
	cmd.Flags().StringVar(&rubricText, "rubric-text", "", "rubric text")
	cmd.Flags().StringVarP(&explanation, "explanation", "e", "", "note from the student about the work")
	cmd.Flags().BoolVar(&strictMode, "strict", false, "strict grading: weak is the default for partial work")
	cmd.Flags().StringVarP(&workType, "work-type", "w", "", "General, Essay, Presentation or Project")
	cmd.Flags().DurationVar(&gradeTimeout, "timeout", 5*time.Minute, "overall timeout")
	cmd.Flags().StringVar(&llmProvider, "provider", "", "LLM provider (openai, anthropic, ollama, endpoint)")
	cmd.Flags().StringVar(&llmModel, "model", "", "LLM model name")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "always ask the model, ignoring cached results")
}

// commandConfig loads the configuration and applies command-line overrides
func commandConfig(cmd *cobra.Command) (model.Config, error) {
	cfg, err := currentConfig()
	if err != nil {
		return cfg, err
	}
	if llmProvider != "" {
		cfg.LLM.Provider = llmProvider
	}
	if llmModel != "" {
		cfg.LLM.Model = llmModel
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if !cmd.Flags().Changed("strict") {
		strictMode = cfg.Grading.DefaultStrict
	}
	return cfg, nil
}

func inputs(submissions []string) pipeline.Inputs {
	return pipeline.Inputs{
		Rubric:         rubricSources,
		RubricText:     rubricText,
		Submission:     submissions,
		SubmissionText: essayText,
		Explanation:    explanation,
		Strict:         strictMode,
		WorkType:       model.WorkType(workType),
	}
}

func runGrade(cmd *cobra.Command, args []string) error {
	cfg, err := commandConfig(cmd)
	if err != nil {
		return err
	}

	in := inputs(args)
	name := "submission"
	if len(args) > 0 {
		name = args[0]
	}
	if useExample {
		in.RubricText = session.SampleRubric
		in.SubmissionText = session.SampleEssay
		name = "sample essay"
	}

	format := report.Format(outFormat)
	if format == "" {
		format = report.Format(cfg.Output.Format)
	}

	services, err := pipeline.Build(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = services.Close() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), gradeTimeout)
	defer cancel()

	p := pipeline.New(cfg, services.Grader, logger)
	req, err := p.Prepare(ctx, in)
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Grading %s with %s/%s (strict: %v)\n", name, cfg.LLM.Provider, cfg.LLM.Model, req.Strict)
	}

	rep, err := p.Grade(ctx, name, req)
	if err != nil {
		return fmt.Errorf("grade failed: %w", err)
	}

	return writeOutput(outPath, func(w io.Writer) error {
		return p.Render(w, format, rep)
	})
}

// writeOutput runs render against stdout or the file at path
func writeOutput(path string, render func(io.Writer) error) (err error) {
	if path == "" {
		return render(os.Stdout)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
	}()

	if err := render(f); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "✓ Wrote %s\n", path)
	return nil
}
