package extract

import (
	"strings"
	"unicode/utf8"
)

// PlainExtractor handles text formats whose bytes are already the text
type PlainExtractor struct{}

// NewPlainExtractor creates a new plain text extractor
func NewPlainExtractor() *PlainExtractor {
	return &PlainExtractor{}
}

// Name returns the extractor name
func (e *PlainExtractor) Name() string {
	return "plain"
}

// CanHandle accepts text/* and a few structured text types
func (e *PlainExtractor) CanHandle(mimeType string) bool {
	switch mimeType {
	case "application/json", "application/xml", "application/x-yaml", "application/yaml":
		return true
	}
	return strings.HasPrefix(mimeType, "text/")
}

// Extract returns the content unchanged, minus a UTF-8 byte order mark
func (e *PlainExtractor) Extract(data []byte) (string, error) {
	text := strings.TrimPrefix(string(data), "\ufeff")
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "\ufffd")
	}
	return text, nil
}
