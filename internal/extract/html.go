package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HTMLExtractor reads the visible text of an HTML document
type HTMLExtractor struct{}

// NewHTMLExtractor creates a new HTML extractor
func NewHTMLExtractor() *HTMLExtractor {
	return &HTMLExtractor{}
}

// Name returns the extractor name
func (e *HTMLExtractor) Name() string {
	return "html"
}

// CanHandle accepts HTML and XHTML
func (e *HTMLExtractor) CanHandle(mimeType string) bool {
	return mimeType == "text/html" || mimeType == "application/xhtml+xml"
}

// Extract drops scripts, styles and navigation, then returns the text of
// each block element on its own line
func (e *HTMLExtractor) Extract(data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	doc.Find("script, style, noscript, nav, header, footer").Remove()

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}

	var lines []string
	root.Find("h1, h2, h3, h4, h5, h6, p, li, blockquote, pre, td").Each(func(_ int, s *goquery.Selection) {
		// nested blocks are visited on their own
		if s.Find("p, li, blockquote").Length() > 0 {
			return
		}
		if text := collapse(s.Text()); text != "" {
			lines = append(lines, text)
		}
	})

	if len(lines) == 0 {
		return collapse(root.Text()), nil
	}
	return strings.Join(lines, "\n"), nil
}

// collapse normalizes whitespace runs to single spaces
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
