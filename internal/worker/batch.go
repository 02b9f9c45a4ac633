package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ppiankov/rubriccheck/internal/model"
)

// Grader grades one request
type Grader interface {
	Analyze(ctx context.Context, req model.GradeRequest) (*model.AnalysisResult, error)
}

// Submission is one named entry of a batch
type Submission struct {
	Name    string
	Request model.GradeRequest
}

// GradeJob grades a single submission
type GradeJob struct {
	Index      int
	Submission Submission
	Grader     Grader
}

// Execute runs the grading call
func (j *GradeJob) Execute(ctx context.Context) Result {
	result, err := j.Grader.Analyze(ctx, j.Submission.Request)
	return &GradeResult{
		Index:  j.Index,
		Name:   j.Submission.Name,
		Result: result,
		Error:  err,
	}
}

// GradeResult is the outcome of one submission
type GradeResult struct {
	Index  int
	Name   string
	Result *model.AnalysisResult
	Error  error
}

// GetError returns the grading error, if any
func (r *GradeResult) GetError() error {
	return r.Error
}

// BatchProcessor grades many submissions concurrently
type BatchProcessor struct {
	grader      Grader
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(grader Grader, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		grader:      grader,
		concurrency: concurrency,
	}
}

// Process grades all submissions and returns results in input order
func (b *BatchProcessor) Process(ctx context.Context, submissions []Submission) []*GradeResult {
	if len(submissions) == 0 {
		return []*GradeResult{}
	}

	pool := NewPoolWithContext(ctx, b.concurrency)
	pool.Start()

	for i, sub := range submissions {
		pool.Submit(&GradeJob{
			Index:      i,
			Submission: sub,
			Grader:     b.grader,
		})
	}

	results := pool.Wait()

	out := make([]*GradeResult, 0, len(results))
	for _, r := range results {
		out = append(out, r.(*GradeResult))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })

	// jobs dropped by cancellation still get a row
	if len(out) < len(submissions) {
		seen := make(map[int]bool, len(out))
		for _, r := range out {
			seen[r.Index] = true
		}
		err := ctx.Err()
		if err == nil {
			err = context.Canceled
		}
		for i, sub := range submissions {
			if !seen[i] {
				out = append(out, &GradeResult{Index: i, Name: sub.Name, Error: err})
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	}

	return out
}

// ReadListFile reads one path per line, skipping blanks, comments and
// duplicates
func ReadListFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var paths []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			paths = append(paths, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return paths, nil
}
