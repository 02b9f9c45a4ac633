package locate

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/rubriccheck/internal/model"
)

// DefaultMinLength is the shortest cleaned evidence worth matching
const DefaultMinLength = 5

const separator = `[^\p{L}\p{N}]+`

var nonAlnum = regexp.MustCompile(separator)

// MatchSpec anchors evidence in a source text. Start and End are byte
// offsets of the first match.
type MatchSpec struct {
	Pattern string `json:"pattern"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
	Text    string `json:"text"`
}

// Segment is one piece of a source text split around evidence matches
type Segment struct {
	Text        string       `json:"text"`
	Highlighted bool         `json:"highlighted"`
	Status      model.Status `json:"status,omitempty"`
}

// Locator finds model evidence in submitted text despite label prefixes,
// quote drift, punctuation and whitespace differences. It holds no state
// between calls.
type Locator struct {
	minLength int
}

// New creates a locator that rejects evidence shorter than minLength
// characters after cleaning
func New(minLength int) *Locator {
	if minLength < 1 {
		minLength = DefaultMinLength
	}
	return &Locator{minLength: minLength}
}

// Tokenize splits cleaned evidence into alphanumeric runs
func Tokenize(evidence string) []string {
	parts := nonAlnum.Split(evidence, -1)
	tokens := parts[:0]
	for _, p := range parts {
		if p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}

// Pattern builds the case-insensitive pattern for evidence, or returns
// false when the evidence is too short or has no tokens
func (l *Locator) Pattern(evidence string) (*regexp.Regexp, bool) {
	cleaned := Clean(evidence)
	if utf8.RuneCountInString(cleaned) < l.minLength {
		return nil, false
	}

	tokens := Tokenize(cleaned)
	if len(tokens) == 0 {
		return nil, false
	}

	quoted := make([]string, len(tokens))
	for i, tok := range tokens {
		quoted[i] = regexp.QuoteMeta(tok)
	}

	re, err := regexp.Compile("(?i)" + strings.Join(quoted, separator))
	if err != nil {
		return nil, false
	}
	return re, true
}

// Locate returns the first match of evidence in source
func (l *Locator) Locate(evidence, source string) (*MatchSpec, bool) {
	re, ok := l.Pattern(evidence)
	if !ok {
		return nil, false
	}

	loc := re.FindStringIndex(source)
	if loc == nil {
		return nil, false
	}

	return &MatchSpec{
		Pattern: re.String(),
		Start:   loc[0],
		End:     loc[1],
		Text:    source[loc[0]:loc[1]],
	}, true
}

// IsLocatable reports whether evidence can be found in source
func (l *Locator) IsLocatable(evidence, source string) bool {
	_, ok := l.Locate(evidence, source)
	return ok
}

// Split cuts source around every match of evidence. Matched segments are
// highlighted with status; concatenating all segment texts yields source.
// Unlocatable evidence produces a single plain segment.
func (l *Locator) Split(evidence, source string, status model.Status) []Segment {
	re, ok := l.Pattern(evidence)
	if !ok {
		return []Segment{{Text: source}}
	}

	matches := re.FindAllStringIndex(source, -1)
	if len(matches) == 0 {
		return []Segment{{Text: source}}
	}

	segments := make([]Segment, 0, 2*len(matches)+1)
	pos := 0
	for _, m := range matches {
		if m[0] > pos {
			segments = append(segments, Segment{Text: source[pos:m[0]]})
		}
		segments = append(segments, Segment{Text: source[m[0]:m[1]], Highlighted: true, Status: status})
		pos = m[1]
	}
	if pos < len(source) {
		segments = append(segments, Segment{Text: source[pos:]})
	}
	return segments
}

// Annotate splits source for a single focused criterion, coloring matches
// with its effective status. Only one criterion is highlighted at a time.
func (l *Locator) Annotate(criteria []model.CriterionResult, focused int, source string) []Segment {
	if focused < 0 || focused >= len(criteria) {
		return []Segment{{Text: source}}
	}
	c := criteria[focused]
	return l.Split(c.Evidence, source, c.Effective())
}

// Join concatenates segment texts
func Join(segments []Segment) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteString(s.Text)
	}
	return b.String()
}

var defaultLocator = New(DefaultMinLength)

// Locate finds evidence in source with the default minimum length
func Locate(evidence, source string) (*MatchSpec, bool) {
	return defaultLocator.Locate(evidence, source)
}

// IsLocatable reports whether evidence can be found in source with the
// default minimum length
func IsLocatable(evidence, source string) bool {
	return defaultLocator.IsLocatable(evidence, source)
}

// Split cuts source around evidence with the default minimum length
func Split(evidence, source string, status model.Status) []Segment {
	return defaultLocator.Split(evidence, source, status)
}
