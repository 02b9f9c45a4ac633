package grade

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ppiankov/rubriccheck/internal/cache"
	"github.com/ppiankov/rubriccheck/internal/llm"
	"github.com/ppiankov/rubriccheck/internal/model"
)

// mockProvider answers every call with content or err
type mockProvider struct {
	mu       sync.Mutex
	content  string
	err      error
	calls    int
	requests []llm.CompletionRequest
	onCall   func()
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) IsAvailable(ctx context.Context) bool { return true }

func (m *mockProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	m.mu.Lock()
	m.calls++
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.onCall != nil {
		m.onCall()
	}
	if m.err != nil {
		return nil, m.err
	}
	return &llm.CompletionResponse{Content: m.content, Model: "mock-1"}, nil
}

// fakeClock is a manual clock whose Sleep records and advances
type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	slept []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slept = append(c.slept, d)
	c.now = c.now.Add(d)
	return nil
}

func (c *fakeClock) Slept() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.slept...)
}

const gradedAnswer = `{
  "summary": {"ai_score": 55},
  "criteria": [
    {"criterion": "Thesis", "status": "met", "why": "<b>Clear</b> & arguable", "evidence": "Thesis: \"the American Dream is unattainable\"", "exact_fix": ""},
    {"criterion": "Evidence", "status": "met", "why": "Two quotes", "evidence": "Can't repeat the past?", "exact_fix": ""},
    {"criterion": "Counter-Argument", "status": "weak", "why": "Thin", "evidence": "Critics might argue", "exact_fix": "Refute with a quote"},
    {"criterion": "Mechanics", "status": "missing", "why": "No citations", "evidence": "", "exact_fix": ""}
  ]
}`

func newTestGrader(p llm.Provider, clock *fakeClock) *Grader {
	store := cache.NewAnalysisStore(cache.NewMemoryCache(time.Hour, time.Hour), zerolog.Nop())
	return New(p, store, nil, zerolog.Nop(), Options{
		MinLatency:         5 * time.Second,
		GradingTemperature: 0.1,
		RewriteTemperature: 0.7,
		Now:                clock.Now,
		Sleep:              clock.Sleep,
	})
}

func sampleRequest() model.GradeRequest {
	return model.GradeRequest{
		RubricText:     "1. Thesis\n2. Evidence\n3. Counter-Argument\n4. Mechanics",
		SubmissionText: "Gatsby essay text",
		Strict:         true,
		WorkType:       model.WorkEssay,
	}
}

func TestGrader_Analyze(t *testing.T) {
	clock := newFakeClock()
	provider := &mockProvider{content: gradedAnswer}
	g := newTestGrader(provider, clock)

	result, err := g.Analyze(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	s := result.Summary
	if s.Met != 2 || s.Weak != 1 || s.Missing != 1 {
		t.Errorf("unexpected counts %d/%d/%d", s.Met, s.Weak, s.Missing)
	}
	// (2 + 0.5) / 4 = 62.5 rounds half up
	if s.Score != 63 {
		t.Errorf("expected score 63, got %d", s.Score)
	}
	if s.AIScore != 55 || s.AIAnalysis.RiskLevel != "moderate" {
		t.Errorf("unexpected ai summary %+v", s)
	}
	if len(s.TopFixes) != 2 || s.TopFixes[0].Fix != "Counter-Argument" || s.TopFixes[1].Reason != "No citations" {
		t.Errorf("unexpected top fixes %+v", s.TopFixes)
	}

	if got := result.Criteria[0].Why; got != "Clear & arguable" {
		t.Errorf("expected markup stripped from why, got %q", got)
	}
	if got := result.Criteria[0].Evidence; got != `Thesis: "the American Dream is unattainable"` {
		t.Errorf("evidence must stay verbatim, got %q", got)
	}

	req := provider.requests[0]
	if req.Temperature != 0.1 || !req.JSON {
		t.Errorf("unexpected completion request %+v", req)
	}
	if len(req.Messages) != 2 || req.Messages[0].Role != llm.RoleSystem || !strings.Contains(req.Messages[0].Content, "STRICT MODE IS ON") {
		t.Errorf("expected strict system prompt")
	}
	if !strings.Contains(req.Messages[1].Content, "Type of work: Essay") {
		t.Errorf("user prompt does not name the work type: %q", req.Messages[1].Content[:60])
	}

	if slept := clock.Slept(); len(slept) != 1 || slept[0] != 5*time.Second {
		t.Errorf("expected a 5s latency floor, got %v", slept)
	}
}

func TestGrader_AnalyzeCacheHit(t *testing.T) {
	clock := newFakeClock()
	provider := &mockProvider{content: gradedAnswer}
	g := newTestGrader(provider, clock)

	first, err := g.Analyze(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("first Analyze failed: %v", err)
	}
	second, err := g.Analyze(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("second Analyze failed: %v", err)
	}

	if provider.calls != 1 {
		t.Errorf("expected 1 provider call, got %d", provider.calls)
	}
	if second.Summary.Score != first.Summary.Score || len(second.Criteria) != len(first.Criteria) {
		t.Errorf("cached result differs from the original")
	}
	if slept := clock.Slept(); len(slept) != 2 || slept[1] != 5*time.Second {
		t.Errorf("expected the floor on the cache hit too, got %v", slept)
	}

	other := sampleRequest()
	other.Strict = false
	if _, err := g.Analyze(context.Background(), other); err != nil {
		t.Fatalf("third Analyze failed: %v", err)
	}
	if provider.calls != 2 {
		t.Errorf("changing the strict flag must miss the cache")
	}
}

func TestGrader_SlowCallSkipsFloor(t *testing.T) {
	clock := newFakeClock()
	provider := &mockProvider{content: gradedAnswer, onCall: func() { clock.Advance(7 * time.Second) }}
	g := newTestGrader(provider, clock)

	if _, err := g.Analyze(context.Background(), sampleRequest()); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if slept := clock.Slept(); len(slept) != 0 {
		t.Errorf("expected no extra wait after a slow call, got %v", slept)
	}
}

func TestGrader_PartialFloor(t *testing.T) {
	clock := newFakeClock()
	provider := &mockProvider{content: gradedAnswer, onCall: func() { clock.Advance(2 * time.Second) }}
	g := newTestGrader(provider, clock)

	if _, err := g.Analyze(context.Background(), sampleRequest()); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if slept := clock.Slept(); len(slept) != 1 || slept[0] != 3*time.Second {
		t.Errorf("expected to wait the remaining 3s, got %v", slept)
	}
}

func TestGrader_AnalyzeErrors(t *testing.T) {
	tests := []struct {
		name     string
		provider *mockProvider
		want     Kind
	}{
		{"quota", &mockProvider{err: &llm.APIError{Provider: "mock", StatusCode: 429, Message: "slow down"}}, KindQuotaExceeded},
		{"wrapped quota", &mockProvider{err: fmt.Errorf("complete: %w", llm.ErrQuotaExceeded)}, KindQuotaExceeded},
		{"network", &mockProvider{err: errors.New("connection refused")}, KindNetworkFailure},
		{"garbage", &mockProvider{content: "I think the essay is fine."}, KindInvalidModelOutput},
		{"wrong shape", &mockProvider{content: `{"result": "ok"}`}, KindInvalidModelOutput},
		{"empty", &mockProvider{content: "   "}, KindInvalidModelOutput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock()
			g := newTestGrader(tt.provider, clock)

			result, err := g.Analyze(context.Background(), sampleRequest())
			if err == nil || result != nil {
				t.Fatalf("expected failure, got %+v", result)
			}
			if KindOf(err) != tt.want {
				t.Errorf("expected kind %s, got %s (%v)", tt.want, KindOf(err), err)
			}
			if IsQuota(err) != (tt.want == KindQuotaExceeded) {
				t.Errorf("IsQuota mismatch for %v", err)
			}
			if slept := clock.Slept(); len(slept) != 1 {
				t.Errorf("expected the floor to apply to failures, got %v", slept)
			}
		})
	}
}

func TestGrader_FailedAnswerNotCached(t *testing.T) {
	clock := newFakeClock()
	provider := &mockProvider{content: "nope"}
	g := newTestGrader(provider, clock)

	_, _ = g.Analyze(context.Background(), sampleRequest())
	provider.content = gradedAnswer
	if _, err := g.Analyze(context.Background(), sampleRequest()); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if provider.calls != 2 {
		t.Errorf("expected a fresh call after a failure, got %d calls", provider.calls)
	}
}

func TestGrader_AnalyzeCancelled(t *testing.T) {
	clock := newFakeClock()
	g := newTestGrader(&mockProvider{content: gradedAnswer}, clock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := g.Analyze(ctx, sampleRequest()); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestGrader_Rewrite(t *testing.T) {
	clock := newFakeClock()
	provider := &mockProvider{content: `["One.", "Two.", "Three.", "Four."]`}
	g := newTestGrader(provider, clock)

	criterion := model.CriterionResult{Criterion: "Counter-Argument", Evidence: "Critics might argue"}
	got, err := g.Rewrite(context.Background(), criterion, "essay", "rubric")
	if err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}
	if len(got) != 3 || got[0] != "One." {
		t.Errorf("unexpected rewrites %q", got)
	}
	if provider.requests[0].Temperature != 0.7 {
		t.Errorf("expected rewrite temperature 0.7, got %v", provider.requests[0].Temperature)
	}

	if _, err := g.Rewrite(context.Background(), criterion, "essay", "rubric"); err != nil {
		t.Fatalf("second Rewrite failed: %v", err)
	}
	if provider.calls != 1 {
		t.Errorf("expected cached rewrites, got %d calls", provider.calls)
	}

	provider.content = "not a list"
	criterion.Evidence = "something else"
	if _, err := g.Rewrite(context.Background(), criterion, "essay", "rubric"); KindOf(err) != KindInvalidModelOutput {
		t.Errorf("expected invalid output, got %v", err)
	}
}

func TestGrader_Chat(t *testing.T) {
	clock := newFakeClock()
	provider := &mockProvider{content: "  Add a citation after the quote.  "}
	g := newTestGrader(provider, clock)

	history := []model.ChatMessage{
		{Role: model.ChatRoleUser, Text: "How do I fix mechanics?"},
		{Role: model.ChatRoleModel, Text: "Use MLA."},
		{Role: model.ChatRoleUser, Text: "Example?"},
	}
	result := &model.AnalysisResult{Summary: model.Summary{Score: 63}}

	reply, err := g.Chat(context.Background(), history, sampleRequest(), result)
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if reply != "Add a citation after the quote." {
		t.Errorf("unexpected reply %q", reply)
	}

	req := provider.requests[0]
	if req.Temperature != 0 {
		t.Errorf("expected temperature 0, got %v", req.Temperature)
	}
	wantRoles := []llm.Role{llm.RoleSystem, llm.RoleUser, llm.RoleAssistant, llm.RoleUser}
	if len(req.Messages) != len(wantRoles) {
		t.Fatalf("expected %d messages, got %d", len(wantRoles), len(req.Messages))
	}
	for i, r := range wantRoles {
		if req.Messages[i].Role != r {
			t.Errorf("message %d: expected role %s, got %s", i, r, req.Messages[i].Role)
		}
	}
	if !strings.Contains(req.Messages[0].Content, `"score":63`) {
		t.Errorf("system context should carry the summary")
	}
	if len(clock.Slept()) != 0 {
		t.Errorf("chat has no latency floor")
	}
}
