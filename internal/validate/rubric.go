package validate

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/rubriccheck/internal/model"
)

// Reasons reported by the rubric check
const (
	ReasonVague        = "Contains vague language"
	ReasonNoStructure  = "Missing clear structure"
	defaultLongText    = 200
	defaultMinCriteria = 3
)

// DefaultVaguePhrases are rubric phrases that leave grading to guesswork
var DefaultVaguePhrases = []string{
	"demonstrates understanding",
	"adequate",
	"sufficient",
	"appropriate",
	"clear enough",
	"meets expectations",
}

// RubricReport is the outcome of a rubric quality check
type RubricReport struct {
	Vague   bool     `json:"isVague"`
	Reasons []string `json:"reasons"`
	Phrases []string `json:"phrases,omitempty"`
}

// Signal turns the report into a diagnostic, or false when the rubric is fine
func (r RubricReport) Signal() (model.Signal, bool) {
	if !r.Vague {
		return model.Signal{}, false
	}
	return model.Signal{
		Type:        model.SignalRubricVague,
		Severity:    model.SeverityWarning,
		Description: "Rubric may produce inconsistent grades: " + strings.Join(r.Reasons, "; "),
		Data: map[string]interface{}{
			"reasons": r.Reasons,
			"phrases": r.Phrases,
		},
	}, true
}

// RubricChecker flags rubrics that are too vague or unstructured to grade
// consistently
type RubricChecker struct {
	phrases  []*compiledPhrase
	longText int
	minLines int
}

type compiledPhrase struct {
	text    string
	pattern *regexp.Regexp
}

// NewRubricChecker creates a checker. extra phrases are added to the
// defaults.
func NewRubricChecker(extra ...string) *RubricChecker {
	c := &RubricChecker{
		longText: defaultLongText,
		minLines: defaultMinCriteria,
	}

	seen := make(map[string]bool)
	for _, p := range append(append([]string{}, DefaultVaguePhrases...), extra...) {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		c.phrases = append(c.phrases, &compiledPhrase{
			text:    p,
			pattern: regexp.MustCompile(`(?i)` + regexp.QuoteMeta(p)),
		})
	}

	return c
}

// Check inspects rubric text. Empty text (a rubric given only as files)
// is never flagged.
func (c *RubricChecker) Check(text string) RubricReport {
	report := RubricReport{Reasons: []string{}}
	if strings.TrimSpace(text) == "" {
		return report
	}

	for _, p := range c.phrases {
		if p.pattern.MatchString(text) {
			report.Phrases = append(report.Phrases, p.text)
		}
	}
	if len(report.Phrases) > 0 {
		report.Reasons = append(report.Reasons, ReasonVague)
	}

	if utf8.RuneCountInString(text) > c.longText && nonBlankLines(text) < c.minLines {
		report.Reasons = append(report.Reasons, ReasonNoStructure)
	}

	report.Vague = len(report.Reasons) > 0
	return report
}

func nonBlankLines(text string) int {
	n := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}
