package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/rubriccheck/internal/model"
)

type mockGrader struct {
	failOn string
	delay  time.Duration
}

func (m *mockGrader) Analyze(ctx context.Context, req model.GradeRequest) (*model.AnalysisResult, error) {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.failOn != "" && strings.Contains(req.SubmissionText, m.failOn) {
		return nil, errors.New("grade error")
	}
	return &model.AnalysisResult{
		Criteria: []model.CriterionResult{{Criterion: req.SubmissionText, Status: model.StatusMet}},
		Summary:  model.Summary{Score: 100, Met: 1},
	}, nil
}

func submissions(names ...string) []Submission {
	out := make([]Submission, len(names))
	for i, n := range names {
		out[i] = Submission{Name: n, Request: model.GradeRequest{RubricText: "r", SubmissionText: n}}
	}
	return out
}

func TestBatchProcessor_Process(t *testing.T) {
	processor := NewBatchProcessor(&mockGrader{delay: 5 * time.Millisecond}, 3)

	names := []string{"a.txt", "b.txt", "c.txt", "d.txt", "e.txt"}
	results := processor.Process(context.Background(), submissions(names...))

	if len(results) != len(names) {
		t.Fatalf("expected %d results, got %d", len(names), len(results))
	}
	for i, res := range results {
		if res.Name != names[i] {
			t.Errorf("result %d: expected %s, got %s", i, names[i], res.Name)
		}
		if res.Error != nil {
			t.Errorf("unexpected error for %s: %v", res.Name, res.Error)
		}
		if res.Result == nil || res.Result.Criteria[0].Criterion != names[i] {
			t.Errorf("result %d does not belong to %s", i, names[i])
		}
	}
}

func TestBatchProcessor_PartialFailure(t *testing.T) {
	processor := NewBatchProcessor(&mockGrader{failOn: "bad"}, 2)

	results := processor.Process(context.Background(), submissions("good1", "bad", "good2"))

	if results[1].Error == nil {
		t.Error("expected error for bad submission")
	}
	if results[0].Error != nil || results[2].Error != nil {
		t.Error("expected good submissions to succeed")
	}
}

func TestBatchProcessor_Empty(t *testing.T) {
	processor := NewBatchProcessor(&mockGrader{}, 2)
	if results := processor.Process(context.Background(), nil); len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestBatchProcessor_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	processor := NewBatchProcessor(&mockGrader{delay: time.Second}, 1)
	results := processor.Process(ctx, submissions("a", "b", "c"))

	if len(results) != 3 {
		t.Fatalf("expected a row per submission, got %d", len(results))
	}
	for _, res := range results {
		if res.Error == nil {
			t.Errorf("expected error for %s after cancel", res.Name)
		}
	}
}

func TestReadListFile(t *testing.T) {
	content := `# essays for period 3
essays/alice.txt
essays/bob.md

essays/alice.txt
# trailing comment
essays/carol.html
`
	path := filepath.Join(t.TempDir(), "list.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write list: %v", err)
	}

	paths, err := ReadListFile(path)
	if err != nil {
		t.Fatalf("ReadListFile failed: %v", err)
	}

	want := []string{"essays/alice.txt", "essays/bob.md", "essays/carol.html"}
	if len(paths) != len(want) {
		t.Fatalf("expected %d paths, got %d: %v", len(want), len(paths), paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("path %d: expected %s, got %s", i, want[i], paths[i])
		}
	}

	if _, err := ReadListFile(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}
