package locate

import (
	"encoding/base64"
	"math/rand"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ppiankov/rubriccheck/internal/extract"
	"github.com/ppiankov/rubriccheck/internal/model"
)

const gatsby = "He talked a lot about the past. Can't repeat the past? Why of course you can! " +
	"Gatsby believed in the green light, the orgastic future that year by year recedes before us."

func TestClean(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Quote: 'Can't repeat the past?'", "Can't repeat the past?"},
		{"Topic Sentence 2: Gatsby believed in the green light", "Gatsby believed in the green light"},
		{"evidence:   “the orgastic future”  ", "the orgastic future"},
		{"Context: \"Quote: 'nested label'\"", "nested label"},
		{"no label here", "no label here"},
		{"QUOTE: the past", "the past"},
		{`Evidence: "Gatsby says: old sport, you are late"`, "Gatsby says: old sport, you are late"},
		{`He said: "go home"`, `He said: "go home`},
		{"Ratio: 3:1", "Ratio: 3:1"},
		{"", ""},
		{"   ", ""},
		{"''", ""},
	}

	for _, tt := range tests {
		if got := Clean(tt.in); got != tt.want {
			t.Errorf("Clean(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestClean_Idempotent(t *testing.T) {
	inputs := []string{
		"Quote: 'Can't repeat the past?'",
		"\"Evidence: “A” \"",
		"Topic Sentence 10: 'x'",
		"Evidence: Evidence: Quote: done",
		"'''",
		"plain words: with colon",
		`Evidence: "Gatsby says: old sport, you are late"`,
		`He said: "go home"`,
		"Ratio: 3:1",
		"  ‘mixed quotes\"  ",
	}

	for _, in := range inputs {
		once := Clean(in)
		if twice := Clean(once); twice != once {
			t.Errorf("Clean not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("Can't repeat -- the past?")
	want := []string{"Can", "t", "repeat", "the", "past"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Tokenize mismatch (-want +got):\n%s", diff)
	}

	if got := Tokenize("?!... --"); len(got) != 0 {
		t.Errorf("Expected no tokens, got %v", got)
	}
}

func TestLocate_ToleratesDrift(t *testing.T) {
	tests := []struct {
		name     string
		evidence string
		want     string
	}{
		{"label and quotes", "Quote: 'Can't repeat the past?'", "Can't repeat the past"},
		{"curly apostrophe", "Can’t repeat the past", "Can't repeat the past"},
		{"case and spacing", "GATSBY   believed in\nthe green light", "Gatsby believed in the green light"},
		{"punctuation drift", "the green light - the orgastic future", "the green light, the orgastic future"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := Locate(tt.evidence, gatsby)
			if !ok {
				t.Fatalf("Expected %q to be locatable", tt.evidence)
			}
			if m.Text != tt.want {
				t.Errorf("Expected match %q, got %q", tt.want, m.Text)
			}
			if gatsby[m.Start:m.End] != m.Text {
				t.Errorf("Match span [%d:%d] does not cover %q", m.Start, m.End, m.Text)
			}
		})
	}
}

func TestLocate_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		evidence string
	}{
		{"empty", ""},
		{"too short", "past"},
		{"short after cleaning", "Quote: 'the'"},
		{"only punctuation", "?!?!?!?!"},
		{"absent", "Daisy's voice was full of money"},
	}

	for _, tt := range tests {
		if IsLocatable(tt.evidence, gatsby) {
			t.Errorf("%s: expected %q to be not locatable", tt.name, tt.evidence)
		}
	}
}

func TestLocate_FirstMatchIsAnchor(t *testing.T) {
	source := "the green light. Later, THE GREEN LIGHT again."
	m, ok := Locate("the green light", source)
	if !ok {
		t.Fatal("Expected match")
	}
	if m.Start != 0 || m.Text != "the green light" {
		t.Errorf("Expected first occurrence at 0, got %d %q", m.Start, m.Text)
	}
}

func TestLocate_EscapesRegexMetacharacters(t *testing.T) {
	source := "The cost (in dollars) was $5.00 + tax [approx]."
	if !IsLocatable("cost (in dollars) was $5.00", source) {
		t.Error("Expected evidence with metacharacters to be locatable")
	}
	if IsLocatable("cost in dollars was 5 00 plus", source) {
		t.Error("Expected non-matching evidence to be rejected")
	}
}

func TestNew_MinLength(t *testing.T) {
	l := New(12)
	if l.IsLocatable("green light", gatsby) {
		t.Error("Expected 11 characters to be rejected with minimum 12")
	}
	if !l.IsLocatable("the green light", gatsby) {
		t.Error("Expected longer evidence to be accepted")
	}
}

func TestSplit_HighlightsAllMatches(t *testing.T) {
	source := "Green light. Then the green-light, then nothing."
	segments := Split("green light", source, model.StatusWeak)

	want := []Segment{
		{Text: "Green light", Highlighted: true, Status: model.StatusWeak},
		{Text: ". Then the "},
		{Text: "green-light", Highlighted: true, Status: model.StatusWeak},
		{Text: ", then nothing."},
	}
	if diff := cmp.Diff(want, segments); diff != "" {
		t.Errorf("Split mismatch (-want +got):\n%s", diff)
	}
}

func TestSplit_UnlocatableIsSinglePlainSegment(t *testing.T) {
	for _, evidence := range []string{"", "abc", "nothing like this appears"} {
		segments := Split(evidence, gatsby, model.StatusMet)
		if len(segments) != 1 || segments[0].Highlighted || segments[0].Text != gatsby {
			t.Errorf("Expected single plain segment for %q, got %+v", evidence, segments)
		}
	}
}

func TestSplit_Lossless(t *testing.T) {
	sources := []string{
		gatsby,
		"",
		"   \n\t  ",
		"past past past",
		"ünïcödé text with ünïcödé words",
		"line one\r\nline two\r\n",
	}
	evidences := []string{
		"Quote: 'Can't repeat the past?'",
		"past past",
		"ünïcödé words",
		"line one line two",
		"",
		"x",
	}

	rng := rand.New(rand.NewSource(7))
	alphabet := []rune("ab .,'\"\n-")
	for i := 0; i < 50; i++ {
		var b strings.Builder
		for j := 0; j < rng.Intn(40); j++ {
			b.WriteRune(alphabet[rng.Intn(len(alphabet))])
		}
		sources = append(sources, b.String())
	}

	for _, src := range sources {
		for _, ev := range evidences {
			if got := Join(Split(ev, src, model.StatusMissing)); got != src {
				t.Errorf("Split(%q, %q) not lossless: got %q", ev, src, got)
			}
		}
		if got := Join(Split("ab ab", src, model.StatusMet)); got != src {
			t.Errorf("Split not lossless for %q: got %q", src, got)
		}
	}
}

func TestAnnotate_FocusesOneCriterion(t *testing.T) {
	override := model.StatusMet
	criteria := []model.CriterionResult{
		{Criterion: "Thesis", Status: model.StatusWeak, Evidence: "Can't repeat the past"},
		{Criterion: "Imagery", Status: model.StatusMissing, UserStatus: &override, Evidence: "the green light"},
	}

	l := New(DefaultMinLength)
	segments := l.Annotate(criteria, 1, gatsby)

	var highlighted []Segment
	for _, s := range segments {
		if s.Highlighted {
			highlighted = append(highlighted, s)
		}
	}
	if len(highlighted) != 1 {
		t.Fatalf("Expected one highlight, got %d", len(highlighted))
	}
	if highlighted[0].Status != model.StatusMet {
		t.Errorf("Expected effective status met, got %s", highlighted[0].Status)
	}
	if highlighted[0].Text != "the green light" {
		t.Errorf("Expected focused criterion evidence, got %q", highlighted[0].Text)
	}

	if got := l.Annotate(criteria, 5, gatsby); len(got) != 1 || got[0].Highlighted {
		t.Errorf("Expected plain text for out-of-range focus, got %+v", got)
	}
}

func textFile(name, content string) model.UploadedFile {
	return model.UploadedFile{Name: name, MimeType: "text/plain", Data: base64.StdEncoding.EncodeToString([]byte(content))}
}

func TestFileLocator(t *testing.T) {
	f := NewFileLocator(nil, extract.NewRegistry())
	files := []model.UploadedFile{
		{Name: "slide.png", MimeType: "image/png", Data: base64.StdEncoding.EncodeToString([]byte("\x89PNG\r\n\x1a\n"))},
		textFile("essay.txt", gatsby),
	}

	if _, ok := f.LocateInFile("Can't repeat the past", files[0]); ok {
		t.Error("Expected image file to be not locatable")
	}
	m, ok := f.LocateInFile("Quote: “Can't repeat the past?”", files[1])
	if !ok {
		t.Fatal("Expected evidence in text file")
	}
	if m.Text != "Can't repeat the past" {
		t.Errorf("Unexpected match %q", m.Text)
	}
	if idx := f.FindFile("the green light", files); idx != 1 {
		t.Errorf("Expected file 1, got %d", idx)
	}

	segments, err := f.SplitFile("the green light", files[1], model.StatusMet)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if Join(segments) != gatsby {
		t.Error("Expected file split to be lossless")
	}
	if _, err := f.SplitFile("the green light", files[0], model.StatusMet); err == nil {
		t.Error("Expected error splitting an image")
	}
}

func TestFileLocator_Locatable(t *testing.T) {
	f := NewFileLocator(nil, nil)
	idx := 1

	tests := []struct {
		name  string
		c     model.CriterionResult
		text  string
		files []model.UploadedFile
		want  bool
	}{
		{"visual coordinates", model.CriterionResult{VisualCoordinates: &model.VisualCoordinates{X: 10, Y: 20, FileIndex: &idx}}, "", nil, true},
		{"in text", model.CriterionResult{Evidence: "the green light"}, gatsby, nil, true},
		{"in file", model.CriterionResult{Evidence: "the green light"}, "", []model.UploadedFile{textFile("a.txt", gatsby)}, true},
		{"nowhere", model.CriterionResult{Evidence: "the green light"}, "unrelated", []model.UploadedFile{textFile("a.txt", "other")}, false},
		{"short", model.CriterionResult{Evidence: "the"}, gatsby, nil, false},
	}

	for _, tt := range tests {
		if got := f.Locatable(tt.c, tt.text, tt.files); got != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}
}
