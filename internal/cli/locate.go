package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/rubriccheck/internal/extract"
	"github.com/ppiankov/rubriccheck/internal/locate"
	"github.com/ppiankov/rubriccheck/internal/model"
	"github.com/ppiankov/rubriccheck/internal/pipeline"
)

var minEvidence int

// locateCmd represents the locate command
var locateCmd = &cobra.Command{
	Use:   "locate <evidence> <source>",
	Short: "Find a quote inside a submission",
	Long: `Locate runs the evidence matcher without calling a model. Labels such as
"Quote:" and wrapping quotes are ignored, and punctuation or whitespace
differences between the quote and the text do not matter.

The source is printed with the match wrapped in »markers«.

Example:
  rubriccheck locate 'Evidence: "the green light"' essay.txt`,
	Args: cobra.ExactArgs(2),
	RunE: runLocate,
}

func init() {
	rootCmd.AddCommand(locateCmd)
	locateCmd.Flags().IntVar(&minEvidence, "min-length", locate.DefaultMinLength, "shortest evidence worth matching, after cleaning")
}

func runLocate(cmd *cobra.Command, args []string) error {
	cfg, err := currentConfig()
	if err != nil {
		return err
	}
	evidence, source := args[0], args[1]

	loader := pipeline.NewLoader(0, int64(cfg.Grading.MaxFileBytes), cfg.LLM)
	if cfg.Grading.RespectRobots {
		loader.RespectRobots()
	}
	in, err := loader.Load(cmd.Context(), source)
	if err != nil {
		return err
	}

	files := locate.NewFileLocator(locate.New(minEvidence), extract.NewRegistry())
	out := cmd.OutOrStdout()

	var segments []locate.Segment
	if in.File != nil {
		segments, err = files.SplitFile(evidence, *in.File, model.StatusMet)
		if errors.Is(err, extract.ErrNotText) {
			return fmt.Errorf("%s has no text to search", in.Name)
		}
		if err != nil {
			return err
		}
	} else {
		segments = files.Split(evidence, in.Text, model.StatusMet)
	}

	found := 0
	var b strings.Builder
	for _, s := range segments {
		if s.Highlighted {
			found++
			b.WriteString("»" + s.Text + "«")
			continue
		}
		b.WriteString(s.Text)
	}

	if found == 0 {
		fmt.Fprintf(out, "not found: %q (cleaned: %q)\n", evidence, locate.Clean(evidence))
		return nil
	}
	fmt.Fprintf(out, "found %d match(es) in %s\n\n%s\n", found, in.Name, b.String())
	return nil
}
