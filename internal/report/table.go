package report

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/ppiankov/rubriccheck/internal/model"
)

// Table writes the criteria as an aligned terminal table followed by the
// score line
func (rd *Renderer) Table(w io.Writer, r *Report) error {
	table := newTable(w, []string{"#", "Criterion", "Status", "Fix"})
	for i, c := range r.Result.Criteria {
		fix := c.ExactFix
		if fix == "" && c.Effective() != model.StatusMet {
			fix = c.Why
		}
		if err := table.Append([]string{fmt.Sprintf("%d", i+1), c.Criterion, badge(c), fix}); err != nil {
			return fmt.Errorf("table row: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("render table: %w", err)
	}

	s := r.Result.Summary
	_, err := fmt.Fprintf(w, "\nScore %d/100 · Met %d · Weak %d · Missing %d · AI estimate %d%% (%s)\n",
		s.Score, s.Met, s.Weak, s.Missing, s.AIScore, s.AIAnalysis.RiskLevel)
	return err
}

// BatchRow is one line of a batch summary
type BatchRow struct {
	Name    string
	Score   int
	Met     int
	Weak    int
	Missing int
	AIScore int
	Err     error
}

// BatchTable writes one line per graded submission
func (rd *Renderer) BatchTable(w io.Writer, rows []BatchRow) error {
	table := newTable(w, []string{"Submission", "Score", "Met", "Weak", "Missing", "AI", "Error"})
	for _, row := range rows {
		cells := []string{row.Name, "-", "-", "-", "-", "-", ""}
		if row.Err != nil {
			cells[6] = row.Err.Error()
		} else {
			cells[1] = fmt.Sprintf("%d", row.Score)
			cells[2] = fmt.Sprintf("%d", row.Met)
			cells[3] = fmt.Sprintf("%d", row.Weak)
			cells[4] = fmt.Sprintf("%d", row.Missing)
			cells[5] = fmt.Sprintf("%d%%", row.AIScore)
		}
		if err := table.Append(cells); err != nil {
			return fmt.Errorf("table row: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("render table: %w", err)
	}
	return nil
}

func newTable(w io.Writer, headers []string) *tablewriter.Table {
	cfg := tablewriter.Config{
		Header: tw.CellConfig{
			Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			Formatting: tw.CellFormatting{AutoFormat: tw.Off},
		},
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		},
		MaxWidth: 120,
		Behavior: tw.Behavior{TrimSpace: tw.Off},
	}
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(cfg),
		tablewriter.WithHeader(headers),
		tablewriter.WithRenderer(renderer.NewBlueprint()),
		tablewriter.WithRendition(tw.Rendition{
			Symbols: tw.NewSymbols(tw.StyleMarkdown),
			Borders: tw.Border{
				Left:   tw.On,
				Top:    tw.Off,
				Right:  tw.On,
				Bottom: tw.Off,
			},
		}),
		tablewriter.WithRowAutoWrap(tw.WrapNone),
	)
}
