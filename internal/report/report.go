package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ppiankov/rubriccheck/internal/locate"
	"github.com/ppiankov/rubriccheck/internal/model"
	"github.com/ppiankov/rubriccheck/internal/validate"
)

// Report is everything a rendered grading report shows
type Report struct {
	Name        string                 `json:"name,omitempty"`
	WorkType    model.WorkType         `json:"work_type"`
	Strict      bool                   `json:"strict"`
	Explanation string                 `json:"explanation,omitempty"`
	Result      *model.AnalysisResult  `json:"result"`
	Signals     []model.Signal         `json:"signals,omitempty"`
	Rubric      *validate.RubricReport `json:"rubric_quality,omitempty"`
	GeneratedAt time.Time              `json:"generated_at"`

	// Submission and Files are the graded work, used to place evidence
	Submission string               `json:"-"`
	Files      []model.UploadedFile `json:"-"`
}

// Format names an output format
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatHTML     Format = "html"
	FormatTable    Format = "table"
)

// Renderer writes reports in every supported format
type Renderer struct {
	locator *locate.Locator
}

// NewRenderer creates a renderer. locator places evidence in HTML reports;
// nil uses the default minimum evidence length.
func NewRenderer(locator *locate.Locator) *Renderer {
	if locator == nil {
		locator = locate.New(locate.DefaultMinLength)
	}
	return &Renderer{locator: locator}
}

// Render writes r to w in format
func (rd *Renderer) Render(w io.Writer, format Format, r *Report) error {
	if r == nil || r.Result == nil {
		return fmt.Errorf("render %s: no result", format)
	}
	switch format {
	case FormatText, "":
		_, err := io.WriteString(w, Text(r))
		return err
	case FormatMarkdown, "md":
		return rd.Markdown(w, r)
	case FormatJSON:
		return rd.JSON(w, r)
	case FormatHTML:
		return rd.HTML(w, r)
	case FormatTable:
		return rd.Table(w, r)
	default:
		return fmt.Errorf("unknown format: %s (supported: text, markdown, json, html, table)", format)
	}
}

// FileName is the download name of a text export
func FileName(date time.Time, strict bool) string {
	name := "RubricCheck_Feedback_" + date.Format("2006-01-02")
	if strict {
		name += "_strict"
	}
	return name + ".txt"
}

// Extension returns the usual file extension of a format
func Extension(format Format) string {
	switch format {
	case FormatMarkdown, "md":
		return ".md"
	case FormatJSON:
		return ".json"
	case FormatHTML:
		return ".html"
	default:
		return ".txt"
	}
}

// Text is the plain-text export. Statuses are the effective ones, so
// manual corrections show up in the export.
func Text(r *Report) string {
	s := r.Result.Summary

	var b strings.Builder
	b.WriteString("RUBRIC CHECK RESULTS")
	if r.Strict {
		b.WriteString(" (STRICT MODE)")
	}
	fmt.Fprintf(&b, "\nSCORE: %d/100\nAI ESTIMATE: %d%%\n", s.Score, s.AIScore)
	if r.Explanation != "" {
		fmt.Fprintf(&b, "\nOPTIONAL EXPLANATION:\n\"%s\"\n", r.Explanation)
	}
	fmt.Fprintf(&b, "\nSUMMARY\nMet: %d\nWeak: %d\nMissing: %d\n\nTOP FIXES:\n", s.Met, s.Weak, s.Missing)

	fixes := make([]string, len(s.TopFixes))
	for i, f := range s.TopFixes {
		fixes[i] = fmt.Sprintf("%d. %s (%s)", i+1, f.Fix, f.Reason)
	}
	b.WriteString(strings.Join(fixes, "\n"))

	b.WriteString("\n\nDETAILED BREAKDOWN:\n\n")
	items := make([]string, len(r.Result.Criteria))
	for i, c := range r.Result.Criteria {
		items[i] = fmt.Sprintf("[%s] %s\nWhy: %s\nFix: %s\nEvidence: \"%s\"",
			strings.ToUpper(string(c.Effective())), c.Criterion, c.Why, c.ExactFix, c.Evidence)
	}
	b.WriteString(strings.Join(items, "\n\n"))
	return b.String()
}
