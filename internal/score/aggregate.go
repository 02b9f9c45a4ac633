package score

import (
	"github.com/ppiankov/rubriccheck/internal/model"
)

// Tally is the aggregate of a criteria list by effective status
type Tally struct {
	Met     int `json:"met"`
	Weak    int `json:"weak"`
	Missing int `json:"missing"`
	Score   int `json:"score"`
}

// Total returns the number of criteria counted
func (t Tally) Total() int {
	return t.Met + t.Weak + t.Missing
}

// Aggregate counts criteria by effective status and derives the score
//
//	score = round((met + 0.5*weak) / total * 100)
//
// rounding half up, so 62.5 becomes 63. With no criteria the score is
// fallback, the last known score. The input is never modified.
func Aggregate(criteria []model.CriterionResult, fallback int) Tally {
	var t Tally
	for _, c := range criteria {
		switch c.Effective() {
		case model.StatusMet:
			t.Met++
		case model.StatusWeak:
			t.Weak++
		default:
			t.Missing++
		}
	}

	total := t.Total()
	if total == 0 {
		t.Score = fallback
		return t
	}

	// (met + weak/2) / total * 100 + 1/2, floored, kept in integers
	t.Score = (200*t.Met + 100*t.Weak + total) / (2 * total)
	return t
}

// TopFixes returns up to limit criteria whose effective status is not met,
// in rubric order
func TopFixes(criteria []model.CriterionResult, limit int) []model.TopFix {
	fixes := make([]model.TopFix, 0, limit)
	for _, c := range criteria {
		if len(fixes) >= limit {
			break
		}
		if c.Effective() == model.StatusMet {
			continue
		}
		reason := c.ExactFix
		if reason == "" {
			reason = c.Why
		}
		fixes = append(fixes, model.TopFix{Fix: c.Criterion, Reason: reason})
	}
	return fixes
}

// AnalyzeAI maps an AI-likelihood estimate onto a risk band
func AnalyzeAI(aiScore int) model.AIAnalysis {
	switch {
	case aiScore > 70:
		return model.AIAnalysis{RiskLevel: "high", VerdictSummary: "High likelihood of AI involvement."}
	case aiScore > 40:
		return model.AIAnalysis{RiskLevel: "moderate", VerdictSummary: "Moderate AI patterns detected."}
	default:
		return model.AIAnalysis{RiskLevel: "low", VerdictSummary: "Low AI likelihood."}
	}
}

// ClampPercent limits v to 0-100
func ClampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Summarize builds a complete summary from criteria. previous supplies
// the fallback score and the AI fields, which the core cannot derive.
func Summarize(criteria []model.CriterionResult, previous model.Summary) model.Summary {
	t := Aggregate(criteria, previous.Score)
	ai := ClampPercent(previous.AIScore)

	analysis := previous.AIAnalysis
	if analysis.RiskLevel == "" {
		analysis = AnalyzeAI(ai)
	}

	return model.Summary{
		Score:      t.Score,
		AIScore:    ai,
		AIAnalysis: analysis,
		Met:        t.Met,
		Weak:       t.Weak,
		Missing:    t.Missing,
		TopFixes:   TopFixes(criteria, 3),
	}
}

// Recompute returns a copy of result whose summary is derived from its
// current criteria
func Recompute(result *model.AnalysisResult) *model.AnalysisResult {
	out := result.Clone()
	out.Summary = Summarize(out.Criteria, result.Summary)
	return out
}
