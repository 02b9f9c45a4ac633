package locate

import (
	"regexp"
	"strings"
)

var (
	// only the labels the grading prompt produces; a colon inside the
	// quoted text itself is kept
	labelPrefix = regexp.MustCompile(`(?i)^\s*(?:topic\s+sentence(?:\s+\d+)?|evidence|quote|context)\s*:\s*`)

	quoteChars = "\"'“”‘’«»`"
)

// Clean strips a leading label and wrapping quote characters from model
// evidence. Clean(Clean(s)) == Clean(s) for every s.
func Clean(evidence string) string {
	s := strings.TrimSpace(evidence)
	for {
		next := cleanOnce(s)
		if next == s {
			return s
		}
		s = next
	}
}

func cleanOnce(s string) string {
	s = labelPrefix.ReplaceAllString(s, "")
	s = strings.TrimLeft(s, quoteChars)
	s = strings.TrimRight(s, quoteChars)
	return strings.TrimSpace(s)
}
