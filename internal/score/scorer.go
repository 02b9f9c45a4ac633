package score

import (
	"fmt"
	"strings"

	"github.com/ppiankov/rubriccheck/internal/model"
)

// Scorer explains a result as diagnostic signals
type Scorer struct{}

// NewScorer creates a new scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Signals describes how the summary of result was produced. unlocated
// names the criteria whose evidence could not be found in the submission.
func (s *Scorer) Signals(result *model.AnalysisResult, unlocated []string) []model.Signal {
	if result == nil {
		return nil
	}

	var signals []model.Signal
	signals = append(signals, s.scoreSignal(result.Criteria, result.Summary.Score))

	if gaps := s.gapSignal(result.Criteria); gaps.Type != "" {
		signals = append(signals, gaps)
	}
	if overrides := s.overrideSignal(result.Criteria); overrides.Type != "" {
		signals = append(signals, overrides)
	}
	signals = append(signals, s.aiSignal(result.Summary))

	if len(unlocated) > 0 {
		signals = append(signals, model.Signal{
			Type:        model.SignalUnlocated,
			Severity:    model.SeverityWarning,
			Description: fmt.Sprintf("Evidence for %d criteria was not found verbatim in the submission", len(unlocated)),
			Data: map[string]interface{}{
				"criteria": unlocated,
			},
		})
	}

	return signals
}

// scoreSignal records the inputs of the score formula
func (s *Scorer) scoreSignal(criteria []model.CriterionResult, fallback int) model.Signal {
	t := Aggregate(criteria, fallback)

	severity := model.SeverityInfo
	if t.Score < 50 {
		severity = model.SeverityCritical
	} else if t.Score < 80 {
		severity = model.SeverityWarning
	}

	return model.Signal{
		Type:        model.SignalScore,
		Severity:    severity,
		Description: fmt.Sprintf("%d met, %d weak, %d missing of %d criteria", t.Met, t.Weak, t.Missing, t.Total()),
		Data: map[string]interface{}{
			"met":     t.Met,
			"weak":    t.Weak,
			"missing": t.Missing,
			"score":   t.Score,
			"formula": "round_half_up((met + 0.5 * weak) / total * 100)",
		},
	}
}

// gapSignal lists criteria that are not met
func (s *Scorer) gapSignal(criteria []model.CriterionResult) model.Signal {
	var weak, missing []string
	for _, c := range criteria {
		switch c.Effective() {
		case model.StatusWeak:
			weak = append(weak, c.Criterion)
		case model.StatusMissing:
			missing = append(missing, c.Criterion)
		}
	}
	if len(weak) == 0 && len(missing) == 0 {
		return model.Signal{}
	}

	severity := model.SeverityWarning
	if len(missing) > 0 {
		severity = model.SeverityCritical
	}

	parts := make([]string, 0, 2)
	if len(missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing: %s", strings.Join(missing, ", ")))
	}
	if len(weak) > 0 {
		parts = append(parts, fmt.Sprintf("weak: %s", strings.Join(weak, ", ")))
	}

	return model.Signal{
		Type:        model.SignalGaps,
		Severity:    severity,
		Description: strings.Join(parts, "; "),
		Data: map[string]interface{}{
			"weak":    weak,
			"missing": missing,
		},
	}
}

// overrideSignal records manual corrections, keeping the model verdict visible
func (s *Scorer) overrideSignal(criteria []model.CriterionResult) model.Signal {
	var changes []string
	for _, c := range criteria {
		if !c.Overridden() || c.Effective() == c.Status {
			continue
		}
		changes = append(changes, fmt.Sprintf("%s: %s -> %s", c.Criterion, c.Status, c.Effective()))
	}
	if len(changes) == 0 {
		return model.Signal{}
	}

	return model.Signal{
		Type:        model.SignalOverrides,
		Severity:    model.SeverityInfo,
		Description: fmt.Sprintf("%d criteria manually corrected", len(changes)),
		Data: map[string]interface{}{
			"changes": changes,
		},
	}
}

func (s *Scorer) aiSignal(summary model.Summary) model.Signal {
	severity := model.SeverityInfo
	switch summary.AIAnalysis.RiskLevel {
	case "high":
		severity = model.SeverityCritical
	case "moderate":
		severity = model.SeverityWarning
	}

	return model.Signal{
		Type:        model.SignalAIRisk,
		Severity:    severity,
		Description: fmt.Sprintf("AI estimate %d%%: %s", summary.AIScore, summary.AIAnalysis.VerdictSummary),
		Data: map[string]interface{}{
			"ai_score":   summary.AIScore,
			"risk_level": summary.AIAnalysis.RiskLevel,
			"formula":    "high > 70, moderate > 40, else low",
		},
	}
}
