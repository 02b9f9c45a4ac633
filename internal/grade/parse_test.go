package grade

import (
	"errors"
	"testing"

	"github.com/ppiankov/rubriccheck/internal/model"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```JSON\n[1]\n```", "[1]"},
		{"```\n{}\n```", "{}"},
		{"  {\"a\":1}  ", `{"a":1}`},
	}
	for _, tt := range tests {
		if got := StripFences(tt.in); got != tt.want {
			t.Errorf("StripFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParse_KeyedBareKeepsDocumentOrder(t *testing.T) {
	content := "```json\n" + `{
  "Thesis_Statement": {"score": "Met", "why": "clear", "evidence": "the American Dream is unattainable", "exact_fix": ""},
  "Counter_Argument": {"score": "WEAK", "why": "thin", "evidence": "Critics might argue", "exact_fix": "Refute it"},
  "Analysis": {"score": "missing", "why": "none", "evidence": "", "exact_fix": "Add analysis"},
  "Mechanics": {"score": "excellent", "why": "?", "evidence": "", "exact_fix": ""}
}` + "\n```"

	parsed, err := Parse(content)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	wantNames := []string{"Thesis Statement", "Counter Argument", "Analysis", "Mechanics"}
	wantStatus := []model.Status{model.StatusMet, model.StatusWeak, model.StatusMissing, model.StatusMissing}
	if len(parsed.Criteria) != len(wantNames) {
		t.Fatalf("expected %d criteria, got %d", len(wantNames), len(parsed.Criteria))
	}
	for i, c := range parsed.Criteria {
		if c.Criterion != wantNames[i] {
			t.Errorf("criterion %d: expected %q, got %q", i, wantNames[i], c.Criterion)
		}
		if c.Status != wantStatus[i] {
			t.Errorf("criterion %d: expected status %s, got %s", i, wantStatus[i], c.Status)
		}
	}
	if parsed.AIScore != 0 {
		t.Errorf("expected ai score 0 without a summary, got %d", parsed.AIScore)
	}
}

func TestParse_KeyedWrapped(t *testing.T) {
	content := `{
  "summary": {"ai_score": 72.6, "indicators": ["uniform sentences"]},
  "criteria": {
    "Zeta": {"score": "met", "why": "ok", "evidence": "abc def", "exact_fix": "",
             "visual_coordinates": {"x": 12.5, "y": 80, "file_index": 1}},
    "Alpha": {"status": "weak", "why": "meh"}
  }
}`
	parsed, err := Parse(content)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(parsed.Criteria) != 2 || parsed.Criteria[0].Criterion != "Zeta" || parsed.Criteria[1].Criterion != "Alpha" {
		t.Fatalf("unexpected criteria order: %+v", parsed.Criteria)
	}
	if parsed.Criteria[1].Status != model.StatusWeak {
		t.Errorf("expected weak via status key, got %s", parsed.Criteria[1].Status)
	}
	vc := parsed.Criteria[0].VisualCoordinates
	if vc == nil || vc.X != 12.5 || vc.Y != 80 || vc.File() != 1 {
		t.Errorf("unexpected visual coordinates: %+v", vc)
	}
	if parsed.AIScore != 73 {
		t.Errorf("expected ai score 73, got %d", parsed.AIScore)
	}
	if len(parsed.Indicators) != 1 {
		t.Errorf("expected 1 indicator, got %v", parsed.Indicators)
	}
}

func TestParse_List(t *testing.T) {
	content := `{
  "summary": {"score": 100, "ai_score": 250},
  "criteria": [
    {"criterion": "Thesis_Statement", "status": "Met", "why": "w", "evidence": "e", "exact_fix": ""},
    {"criterion": "Evidence", "status": "missing", "why": "w2", "evidence": "", "exact_fix": "f"}
  ]
}`
	parsed, err := Parse(content)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(parsed.Criteria) != 2 {
		t.Fatalf("expected 2 criteria, got %d", len(parsed.Criteria))
	}
	// list names are taken as written
	if parsed.Criteria[0].Criterion != "Thesis_Statement" {
		t.Errorf("unexpected name %q", parsed.Criteria[0].Criterion)
	}
	if parsed.AIScore != 100 {
		t.Errorf("expected ai score clamped to 100, got %d", parsed.AIScore)
	}
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    error
	}{
		{"not json", "Sorry, I can't grade this.", ErrUnparseable},
		{"array", `[{"criterion": "a"}]`, ErrUnexpectedShape},
		{"entry not an object", `{"Thesis": "met"}`, ErrUnexpectedShape},
		{"null entry", `{"Thesis": null}`, ErrUnexpectedShape},
		{"list item without name", `{"criteria": [{"status": "met"}]}`, ErrUnexpectedShape},
		{"wrong field type", `{"Thesis": {"score": 3}}`, ErrUnexpectedShape},
		{"empty keyed", `{}`, ErrNoCriteria},
		{"empty list", `{"summary": {}, "criteria": []}`, ErrNoCriteria},
		{"empty wrapped", `{"criteria": {}}`, ErrNoCriteria},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.content)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestParse_MissingAndNullFieldsDefault(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"list item without status", `{"criteria": [
  {"criterion": "Thesis", "status": "met", "evidence": "money cannot buy the past"},
  {"criterion": "Citations", "why": "none given"}
]}`},
		{"keyed entry without score", `{
  "Thesis": {"score": "met", "evidence": "money cannot buy the past"},
  "Citations": {"why": "none given"}
}`},
		{"null fields", `{
  "Thesis": {"score": "met", "evidence": "money cannot buy the past"},
  "Citations": {"score": null, "why": "none given", "evidence": null, "exact_fix": null, "visual_coordinates": null}
}`},
		{"null list fields", `{"criteria": [
  {"criterion": "Thesis", "status": "met", "evidence": "money cannot buy the past", "visual_coordinates": null},
  {"criterion": "Citations", "status": null, "why": "none given", "evidence": null}
]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := Parse(tt.content)
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if len(parsed.Criteria) != 2 {
				t.Fatalf("expected 2 criteria, got %d", len(parsed.Criteria))
			}
			if parsed.Criteria[0].Status != model.StatusMet {
				t.Errorf("expected first criterion met, got %s", parsed.Criteria[0].Status)
			}
			c := parsed.Criteria[1]
			if c.Criterion != "Citations" || c.Status != model.StatusMissing {
				t.Errorf("expected Citations to default to missing, got %+v", c)
			}
			if c.Evidence != "" || c.ExactFix != "" || c.VisualCoordinates != nil {
				t.Errorf("expected empty optional fields, got %+v", c)
			}
			if c.Why != "none given" {
				t.Errorf("expected why to survive, got %q", c.Why)
			}
		})
	}
}

func TestParse_KeyedBareSummary(t *testing.T) {
	parsed, err := Parse(`{"summary": {"ai_score": 45}, "Thesis": {"score": "weak"}}`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(parsed.Criteria) != 1 || parsed.Criteria[0].Criterion != "Thesis" {
		t.Errorf("summary must not become a criterion: %+v", parsed.Criteria)
	}
	if parsed.AIScore != 45 {
		t.Errorf("expected ai score 45, got %d", parsed.AIScore)
	}
}

func TestParse_TrailingProseIgnored(t *testing.T) {
	parsed, err := Parse(`{"Thesis": {"score": "met"}} Hope this helps!`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(parsed.Criteria) != 1 {
		t.Errorf("expected 1 criterion, got %d", len(parsed.Criteria))
	}
}

func TestParse_DuplicateKeyKeepsLastValue(t *testing.T) {
	parsed, err := Parse(`{"A": {"score": "met"}, "B": {"score": "weak"}, "A": {"score": "missing"}}`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(parsed.Criteria) != 2 {
		t.Fatalf("expected 2 criteria, got %d", len(parsed.Criteria))
	}
	if parsed.Criteria[0].Criterion != "A" || parsed.Criteria[0].Status != model.StatusMissing {
		t.Errorf("unexpected first criterion %+v", parsed.Criteria[0])
	}
}

func TestParseRewrites(t *testing.T) {
	got, err := ParseRewrites("```json\n[\"one\", \" two \", \"\", \"three\"]\n```")
	if err != nil {
		t.Fatalf("ParseRewrites failed: %v", err)
	}
	if len(got) != 3 || got[1] != "two" {
		t.Errorf("unexpected rewrites %q", got)
	}

	got, err = ParseRewrites(`{"rewrites": ["a", "b"]}`)
	if err != nil || len(got) != 2 {
		t.Errorf("expected wrapped rewrites, got %q, %v", got, err)
	}

	if _, err := ParseRewrites("no"); !errors.Is(err, ErrUnparseable) {
		t.Errorf("expected ErrUnparseable, got %v", err)
	}
	if _, err := ParseRewrites("[]"); !errors.Is(err, ErrUnexpectedShape) {
		t.Errorf("expected ErrUnexpectedShape, got %v", err)
	}
}
