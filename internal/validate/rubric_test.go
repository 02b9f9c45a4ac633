package validate

import (
	"strings"
	"testing"

	"github.com/ppiankov/rubriccheck/internal/model"
)

func TestRubricChecker_Check(t *testing.T) {
	longParagraph := strings.Repeat("The essay should be well written and argue a point. ", 5)

	tests := []struct {
		name        string
		text        string
		wantVague   bool
		wantReasons []string
	}{
		{
			name:        "empty",
			text:        "   ",
			wantVague:   false,
			wantReasons: []string{},
		},
		{
			name:        "structured and precise",
			text:        "1. Thesis (20 pts): arguable claim\n2. Evidence (30 pts): two quotes per paragraph\n3. Mechanics: MLA citations",
			wantVague:   false,
			wantReasons: []string{},
		},
		{
			name:        "vague phrase",
			text:        "1. Thesis\n2. Shows ADEQUATE analysis\n3. Mechanics",
			wantVague:   true,
			wantReasons: []string{ReasonVague},
		},
		{
			name:        "long single paragraph",
			text:        longParagraph,
			wantVague:   true,
			wantReasons: []string{ReasonNoStructure},
		},
		{
			name:        "long two lines with vague phrase",
			text:        longParagraph + "\nMeets expectations overall.",
			wantVague:   true,
			wantReasons: []string{ReasonVague, ReasonNoStructure},
		},
		{
			name:        "short paragraph is fine",
			text:        "Write a clear argument.",
			wantVague:   false,
			wantReasons: []string{},
		},
	}

	checker := NewRubricChecker()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := checker.Check(tt.text)
			if got.Vague != tt.wantVague {
				t.Errorf("expected vague=%v, got %v", tt.wantVague, got.Vague)
			}
			if strings.Join(got.Reasons, "|") != strings.Join(tt.wantReasons, "|") {
				t.Errorf("expected reasons %v, got %v", tt.wantReasons, got.Reasons)
			}
		})
	}
}

func TestRubricChecker_ExtraPhrases(t *testing.T) {
	checker := NewRubricChecker("Good Effort", "adequate", "")
	got := checker.Check("1. Shows good effort\n2. b\n3. c")
	if !got.Vague || len(got.Phrases) != 1 || got.Phrases[0] != "good effort" {
		t.Errorf("unexpected report %+v", got)
	}
	if len(checker.phrases) != len(DefaultVaguePhrases)+1 {
		t.Errorf("expected duplicates dropped, got %d phrases", len(checker.phrases))
	}
}

func TestRubricReport_Signal(t *testing.T) {
	if _, ok := (RubricReport{}).Signal(); ok {
		t.Error("a clean rubric has no signal")
	}
	sig, ok := NewRubricChecker().Check("1. sufficient detail\n2. x\n3. y").Signal()
	if !ok {
		t.Fatal("expected a signal")
	}
	if sig.Type != model.SignalRubricVague || sig.Severity != model.SeverityWarning {
		t.Errorf("unexpected signal %+v", sig)
	}
}
