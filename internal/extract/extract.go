package extract

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/ppiankov/rubriccheck/internal/model"
)

// ErrNotText is returned for files that carry no extractable text
// (images, PDFs, binaries)
var ErrNotText = errors.New("file has no extractable text")

// Extractor turns the bytes of one kind of file into plain text
type Extractor interface {
	// Name returns the extractor name
	Name() string

	// CanHandle checks if this extractor understands the MIME type
	CanHandle(mimeType string) bool

	// Extract returns the text content of data
	Extract(data []byte) (string, error)
}

// Registry picks an extractor per file
type Registry struct {
	extractors []Extractor
}

// NewRegistry creates a registry with the built-in extractors
func NewRegistry() *Registry {
	r := &Registry{}
	r.Register(NewHTMLExtractor())
	r.Register(NewPlainExtractor())
	return r
}

// Register adds an extractor. Earlier registrations win.
func (r *Registry) Register(e Extractor) {
	r.extractors = append(r.extractors, e)
}

// Find returns the extractor for a MIME type, or nil
func (r *Registry) Find(mimeType string) Extractor {
	mt := baseType(mimeType)
	for _, e := range r.extractors {
		if e.CanHandle(mt) {
			return e
		}
	}
	return nil
}

// Text decodes an uploaded file and returns its text content
func (r *Registry) Text(file model.UploadedFile) (string, error) {
	data, err := Decode(file)
	if err != nil {
		return "", err
	}

	mt := DetectType(file, data)
	e := r.Find(mt)
	if e == nil {
		return "", fmt.Errorf("%s (%s): %w", file.Name, mt, ErrNotText)
	}

	text, err := e.Extract(data)
	if err != nil {
		return "", fmt.Errorf("extract %s with %s: %w", file.Name, e.Name(), err)
	}
	return text, nil
}

// Decode returns the raw bytes of a base64 file. Data URLs
// ("data:text/plain;base64,...") are accepted.
func Decode(file model.UploadedFile) ([]byte, error) {
	payload := file.Data
	if strings.HasPrefix(payload, "data:") {
		if i := strings.Index(payload, ","); i >= 0 {
			payload = payload[i+1:]
		}
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", file.Name, err)
	}
	return data, nil
}

// DetectType returns the declared MIME type, sniffing the content when the
// declaration is missing or generic
func DetectType(file model.UploadedFile, data []byte) string {
	declared := baseType(file.MimeType)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	return baseType(mimetype.Detect(data).String())
}

// baseType drops MIME parameters ("; charset=utf-8") and case
func baseType(mt string) string {
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = mt[:i]
	}
	return strings.ToLower(strings.TrimSpace(mt))
}
