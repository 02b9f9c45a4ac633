package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/rubriccheck/internal/model"
	"github.com/ppiankov/rubriccheck/internal/pipeline"
	"github.com/ppiankov/rubriccheck/internal/report"
)

// rewriteCmd represents the rewrite command
var rewriteCmd = &cobra.Command{
	Use:   "rewrite <report.json> <criterion-number> [submission...]",
	Short: "Suggest rewrites for one criterion of a graded report",
	Long: `Rewrite asks the model for three natural rewrites that would satisfy one
criterion. The report is a JSON report written by "grade --format json";
criteria are numbered from 1.

Example:
  rubriccheck grade essay.txt -r rubric.md -f json -o report.json
  rubriccheck rewrite report.json 2 essay.txt -r rubric.md`,
	Args: cobra.MinimumNArgs(2),
	RunE: runRewrite,
}

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat <report.json> <question> [submission...]",
	Short: "Ask a follow-up question about a graded report",
	Long: `Chat answers one question about a graded report, with the rubric, the
submission and the result as context.

Example:
  rubriccheck chat report.json "How do I fix the counter-argument?" essay.txt -r rubric.md`,
	Args: cobra.MinimumNArgs(2),
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(rewriteCmd)
	rootCmd.AddCommand(chatCmd)

	for _, cmd := range []*cobra.Command{rewriteCmd, chatCmd} {
		cmd.Flags().StringSliceVarP(&rubricSources, "rubric", "r", nil, "rubric file, URL or - (repeatable)")
		cmd.Flags().StringVar(&rubricText, "rubric-text", "", "rubric text")
		cmd.Flags().StringVar(&essayText, "text", "", "submission text")
		cmd.Flags().StringVar(&llmProvider, "provider", "", "LLM provider (openai, anthropic, ollama, endpoint)")
		cmd.Flags().StringVar(&llmModel, "model", "", "LLM model name")
		cmd.Flags().BoolVar(&noCache, "no-cache", false, "always ask the model, ignoring cached results")
	}
}

// readReport loads a JSON report written by grade
func readReport(path string) (*report.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	var r report.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse report %s: %w", path, err)
	}
	if r.Result == nil || len(r.Result.Criteria) == 0 {
		return nil, fmt.Errorf("report %s has no criteria", path)
	}
	return &r, nil
}

// assistContext loads the report, the config and the original inputs
func assistContext(cmd *cobra.Command, reportPath string, submissions []string) (*report.Report, model.GradeRequest, *pipeline.Services, error) {
	rep, err := readReport(reportPath)
	if err != nil {
		return nil, model.GradeRequest{}, nil, err
	}
	cfg, err := commandConfig(cmd)
	if err != nil {
		return nil, model.GradeRequest{}, nil, err
	}

	in := inputs(submissions)
	in.Explanation = rep.Explanation
	in.Strict = rep.Strict
	in.WorkType = rep.WorkType

	p := pipeline.New(cfg, nil, logger)
	req, err := p.Prepare(cmd.Context(), in)
	if err != nil {
		return nil, model.GradeRequest{}, nil, err
	}

	services, err := pipeline.Build(cfg, logger)
	if err != nil {
		return nil, model.GradeRequest{}, nil, err
	}
	return rep, req, services, nil
}

func runRewrite(cmd *cobra.Command, args []string) error {
	var number int
	if _, err := fmt.Sscanf(args[1], "%d", &number); err != nil {
		return fmt.Errorf("criterion number must be an integer: %q", args[1])
	}

	rep, req, services, err := assistContext(cmd, args[0], args[2:])
	if err != nil {
		return err
	}
	defer func() { _ = services.Close() }()

	if number < 1 || number > len(rep.Result.Criteria) {
		return fmt.Errorf("criterion %d out of range (1-%d)", number, len(rep.Result.Criteria))
	}
	criterion := rep.Result.Criteria[number-1]

	ctx, cancel := context.WithTimeout(cmd.Context(), gradeTimeoutOrDefault())
	defer cancel()

	suggestions, err := services.Grader.Rewrite(ctx, criterion, req.SubmissionText, req.RubricText)
	if err != nil {
		return fmt.Errorf("rewrite failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Rewrites for %s [%s]\n\n", criterion.Criterion, criterion.Effective().Label())
	for i, s := range suggestions {
		fmt.Fprintf(out, "%d. %s\n\n", i+1, strings.TrimSpace(s))
	}
	return nil
}

func runChat(cmd *cobra.Command, args []string) error {
	rep, req, services, err := assistContext(cmd, args[0], args[2:])
	if err != nil {
		return err
	}
	defer func() { _ = services.Close() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), gradeTimeoutOrDefault())
	defer cancel()

	history := []model.ChatMessage{{Role: model.ChatRoleUser, Text: args[1]}}
	reply, err := services.Grader.Chat(ctx, history, req, rep.Result)
	if err != nil {
		return fmt.Errorf("chat failed: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(reply))
	return nil
}

func gradeTimeoutOrDefault() time.Duration {
	if gradeTimeout > 0 {
		return gradeTimeout
	}
	return 2 * time.Minute
}
