package report

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/ppiankov/rubriccheck/internal/extract"
	"github.com/ppiankov/rubriccheck/internal/marker"
	"github.com/ppiankov/rubriccheck/internal/model"
)

// excerptContext is how many bytes of text surround a highlighted excerpt
const excerptContext = 160

const stylesheet = `
body { font-family: Georgia, serif; max-width: 52rem; margin: 2rem auto; color: #292524; background: #fdfbf7; }
.score { font-size: 2.5rem; font-weight: 900; }
.card { border: 1px solid #e7e5e4; border-radius: 8px; padding: 1rem; margin: 1rem 0; background: #fff; }
.status { font-weight: 700; font-size: .8rem; padding: .1rem .4rem; border-radius: 4px; color: #fff; }
.status.met { background: #16a34a; } .status.weak { background: #ca8a04; } .status.missing { background: #dc2626; }
mark.met { background: #bbf7d0; } mark.weak { background: #fef08a; } mark.missing { background: #fecaca; }
.excerpt { white-space: pre-wrap; color: #57534e; }
.visual { position: relative; display: inline-block; }
.visual img { max-width: 100%; display: block; }
.pin { position: absolute; transform: translate(-50%, -100%); color: #fff; font: 700 .7rem sans-serif; padding: .1rem .3rem; border-radius: 4px; }
`

// HTML writes a standalone page with the summary, every criterion and
// the submitted passage each piece of evidence points at
func (rd *Renderer) HTML(w io.Writer, r *Report) error {
	s := r.Result.Summary

	title := "Rubric Check"
	if r.Name != "" {
		title += ": " + r.Name
	}

	body := el("body", nil,
		el("h1", nil, text(title)),
		el("p", nil,
			el("span", attrs("class", "score"), text(fmt.Sprintf("%d/100", s.Score))),
			text(fmt.Sprintf("  AI estimate %d%% (%s)", s.AIScore, s.AIAnalysis.RiskLevel)),
		),
		el("p", nil, text(fmt.Sprintf("Met %d · Weak %d · Missing %d", s.Met, s.Weak, s.Missing))),
	)
	if r.Strict {
		body.AppendChild(el("p", nil, el("strong", nil, text("Strict mode"))))
	}

	if len(s.TopFixes) > 0 {
		list := el("ol", nil)
		for _, f := range s.TopFixes {
			list.AppendChild(el("li", nil, el("strong", nil, text(f.Fix)), text(": "+f.Reason)))
		}
		body.AppendChild(el("h2", nil, text("Top fixes")))
		body.AppendChild(list)
	}

	body.AppendChild(el("h2", nil, text("Criteria")))
	for i, c := range r.Result.Criteria {
		body.AppendChild(rd.card(i, c, r.Submission))
	}

	for i, f := range r.Files {
		if v := visual(i, f, r.Result.Criteria); v != nil {
			body.AppendChild(el("h2", nil, text(f.Name)))
			body.AppendChild(v)
		}
	}

	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
	doc.AppendChild(el("html", attrs("lang", "en"),
		el("head", nil,
			el("meta", attrs("charset", "utf-8")),
			el("title", nil, text(title)),
			el("style", nil, text(stylesheet)),
		),
		body,
	))

	if err := html.Render(w, doc); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return nil
}

func (rd *Renderer) card(index int, c model.CriterionResult, submission string) *html.Node {
	status := c.Effective()
	label := status.Label()
	if c.Overridden() {
		label += " (corrected)"
	}

	card := el("div", attrs("class", "card", "id", fmt.Sprintf("criterion-%d", index)),
		el("h3", nil,
			el("span", attrs("class", "status "+string(status)), text(label)),
			text(" "+c.Criterion),
		),
	)
	if c.Why != "" {
		card.AppendChild(el("p", nil, text(c.Why)))
	}
	if c.ExactFix != "" {
		card.AppendChild(el("p", nil, el("strong", nil, text("Fix: ")), text(c.ExactFix)))
	}
	if c.Evidence != "" {
		card.AppendChild(rd.excerpt(c, status, submission))
	}
	return card
}

// excerpt shows the evidence inside its surrounding text when it can be
// found, and the quoted evidence otherwise
func (rd *Renderer) excerpt(c model.CriterionResult, status model.Status, submission string) *html.Node {
	m, ok := rd.locator.Locate(c.Evidence, submission)
	if !ok {
		return el("blockquote", attrs("class", "excerpt", "title", "not found in the submission"), text(c.Evidence))
	}

	from := runeStart(submission, m.Start-excerptContext)
	to := runeStart(submission, m.End+excerptContext)

	quote := el("blockquote", attrs("class", "excerpt"))
	if from > 0 {
		quote.AppendChild(text("…"))
	}
	quote.AppendChild(text(submission[from:m.Start]))
	quote.AppendChild(el("mark", attrs("class", string(status)), text(submission[m.Start:m.End])))
	quote.AppendChild(text(submission[m.End:to]))
	if to < len(submission) {
		quote.AppendChild(text("…"))
	}
	return quote
}

// visual renders an image upload with a pin per criterion pointing at it
func visual(fileIndex int, f model.UploadedFile, criteria []model.CriterionResult) *html.Node {
	markers := marker.ResolveAll(criteria, fileIndex)
	if len(markers) == 0 {
		return nil
	}
	data, err := extract.Decode(f)
	if err != nil {
		return nil
	}
	mt := extract.DetectType(f, data)
	if !strings.HasPrefix(mt, "image/") {
		return nil
	}

	src := f.Data
	if !strings.HasPrefix(src, "data:") {
		src = "data:" + mt + ";base64," + src
	}
	box := el("div", attrs("class", "visual"), el("img", attrs("src", src, "alt", f.Name)))
	for _, m := range markers {
		p := m.Position
		style := fmt.Sprintf("left:%.2f%%;top:%.2f%%;background:%s", p.X, p.Y, p.Color)
		box.AppendChild(el("a", attrs("class", "pin", "style", style, "href", fmt.Sprintf("#criterion-%d", m.Index), "title", m.Criterion),
			text(p.Label)))
	}
	return box
}

// runeStart clamps i into s and moves it back to a rune boundary
func runeStart(s string, i int) int {
	if i <= 0 {
		return 0
	}
	if i >= len(s) {
		return len(s)
	}
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}

func el(tag string, attr []html.Attribute, children ...*html.Node) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag)), Attr: attr}
	for _, c := range children {
		if c != nil {
			n.AppendChild(c)
		}
	}
	return n
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// attrs builds attributes from key, value pairs
func attrs(kv ...string) []html.Attribute {
	out := make([]html.Attribute, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, html.Attribute{Key: kv[i], Val: kv[i+1]})
	}
	return out
}
