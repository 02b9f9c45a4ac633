package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ppiankov/rubriccheck/internal/model"
)

// JSON writes the report as indented JSON
func (rd *Renderer) JSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// Markdown writes the report as a Markdown document
func (rd *Renderer) Markdown(w io.Writer, r *Report) error {
	var b strings.Builder
	s := r.Result.Summary

	title := "Rubric Check"
	if r.Name != "" {
		title += ": " + r.Name
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	mode := "standard"
	if r.Strict {
		mode = "strict"
	}
	fmt.Fprintf(&b, "**Score:** %d/100 · **AI estimate:** %d%% (%s) · **Mode:** %s · **Work type:** %s\n\n",
		s.Score, s.AIScore, s.AIAnalysis.RiskLevel, mode, r.WorkType)
	if s.AIAnalysis.VerdictSummary != "" {
		fmt.Fprintf(&b, "> %s\n\n", s.AIAnalysis.VerdictSummary)
	}
	if r.Explanation != "" {
		fmt.Fprintf(&b, "**Student note:** %s\n\n", r.Explanation)
	}

	fmt.Fprintf(&b, "| Met | Weak | Missing |\n|---|---|---|\n| %d | %d | %d |\n\n", s.Met, s.Weak, s.Missing)

	if len(s.TopFixes) > 0 {
		b.WriteString("## Top fixes\n\n")
		for i, f := range s.TopFixes {
			fmt.Fprintf(&b, "%d. **%s**: %s\n", i+1, f.Fix, f.Reason)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Criteria\n\n")
	for _, c := range r.Result.Criteria {
		fmt.Fprintf(&b, "### %s %s\n\n", badge(c), c.Criterion)
		if c.Why != "" {
			fmt.Fprintf(&b, "%s\n\n", c.Why)
		}
		if c.Evidence != "" {
			fmt.Fprintf(&b, "> %s\n\n", strings.ReplaceAll(c.Evidence, "\n", "\n> "))
		}
		if c.ExactFix != "" {
			fmt.Fprintf(&b, "**Fix:** %s\n\n", c.ExactFix)
		}
	}

	if r.Rubric != nil && r.Rubric.Vague {
		b.WriteString("## Rubric quality\n\n")
		for _, reason := range r.Rubric.Reasons {
			fmt.Fprintf(&b, "- %s\n", reason)
		}
		b.WriteString("\n")
	}

	if len(r.Signals) > 0 {
		b.WriteString("## Signals\n\n")
		for _, sig := range r.Signals {
			fmt.Fprintf(&b, "- **%s** (%s): %s\n", sig.Type, sig.Severity, sig.Description)
		}
		b.WriteString("\n")
	}

	if !r.GeneratedAt.IsZero() {
		fmt.Fprintf(&b, "---\n_Generated %s_\n", r.GeneratedAt.UTC().Format("2006-01-02 15:04 UTC"))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// badge labels a criterion, marking manual corrections
func badge(c model.CriterionResult) string {
	label := "[" + c.Effective().Label() + "]"
	if c.Overridden() {
		label += "*"
	}
	return label
}
