package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/rubriccheck/internal/pipeline"
	"github.com/ppiankov/rubriccheck/internal/report"
	"github.com/ppiankov/rubriccheck/internal/worker"
)

var (
	concurrency  int
	batchTimeout time.Duration
	batchJSON    bool
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <list-file | submission...>",
	Short: "Grade many submissions against one rubric in parallel",
	Long: `Batch grades every submission against the same rubric and options:
- Read submissions from the arguments, or from a list file (one per line)
- Grade them in parallel with a configurable worker count
- Model calls are throttled by llm.rate_limit
- Print one summary row per submission

Example:
  rubriccheck batch essays.txt --list --rubric rubric.md
  rubriccheck batch a.txt b.txt c.txt --rubric rubric.md --concurrency 4
  rubriccheck batch essays.txt --list --rubric rubric.md --json > scores.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

var batchList bool

func init() {
	rootCmd.AddCommand(batchCmd)

	addInputFlags(batchCmd)
	batchCmd.Flags().BoolVar(&batchList, "list", false, "treat the single argument as a file listing submissions")
	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default from config)")
	batchCmd.Flags().DurationVar(&batchTimeout, "batch-timeout", 30*time.Minute, "total timeout for the batch")
	batchCmd.Flags().BoolVar(&batchJSON, "json", false, "print rows as JSON instead of a table")
}

// batchRowJSON is a BatchRow with the error as text
type batchRowJSON struct {
	Name    string `json:"name"`
	Score   int    `json:"score"`
	Met     int    `json:"met"`
	Weak    int    `json:"weak"`
	Missing int    `json:"missing"`
	AIScore int    `json:"ai_score"`
	Error   string `json:"error,omitempty"`
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := commandConfig(cmd)
	if err != nil {
		return err
	}
	if concurrency > 0 {
		cfg.Concurrency.Workers = concurrency
	}

	submissions := args
	if batchList {
		if len(args) != 1 {
			return fmt.Errorf("--list takes exactly one list file")
		}
		submissions, err = worker.ReadListFile(args[0])
		if err != nil {
			return err
		}
	}
	if len(submissions) == 0 {
		return fmt.Errorf("no submissions to grade")
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Submissions:  %d\n", len(submissions))
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Model:        %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	services, err := pipeline.Build(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = services.Close() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	p := pipeline.New(cfg, services.Grader, logger)
	rows, err := p.Batch(ctx, inputs(nil), submissions)
	if err != nil {
		return fmt.Errorf("batch failed: %w", err)
	}

	if batchJSON {
		if err := writeBatchJSON(cmd.OutOrStdout(), rows); err != nil {
			return err
		}
	} else if err := p.Renderer().BatchTable(cmd.OutOrStdout(), rows); err != nil {
		return err
	}

	failed := 0
	for _, row := range rows {
		if row.Err != nil {
			failed++
		}
	}
	fmt.Fprintf(os.Stderr, "\n  Graded %d of %d submissions\n", len(rows)-failed, len(rows))
	if failed > 0 {
		return fmt.Errorf("%d submissions failed", failed)
	}
	return nil
}

func writeBatchJSON(w io.Writer, rows []report.BatchRow) error {
	out := make([]batchRowJSON, len(rows))
	for i, row := range rows {
		out[i] = batchRowJSON{
			Name:    row.Name,
			Score:   row.Score,
			Met:     row.Met,
			Weak:    row.Weak,
			Missing: row.Missing,
			AIScore: row.AIScore,
		}
		if row.Err != nil {
			out[i].Error = row.Err.Error()
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode rows: %w", err)
	}
	return nil
}
