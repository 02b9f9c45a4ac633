package locate

import (
	"github.com/ppiankov/rubriccheck/internal/extract"
	"github.com/ppiankov/rubriccheck/internal/model"
)

// FileLocator extends a Locator to uploaded files
type FileLocator struct {
	*Locator
	registry *extract.Registry
}

// NewFileLocator creates a locator that reads files through registry
func NewFileLocator(l *Locator, registry *extract.Registry) *FileLocator {
	if l == nil {
		l = defaultLocator
	}
	if registry == nil {
		registry = extract.NewRegistry()
	}
	return &FileLocator{Locator: l, registry: registry}
}

// LocateInFile matches evidence against the decoded text of one file.
// Files without extractable text are never locatable.
func (f *FileLocator) LocateInFile(evidence string, file model.UploadedFile) (*MatchSpec, bool) {
	text, err := f.registry.Text(file)
	if err != nil {
		return nil, false
	}
	return f.Locate(evidence, text)
}

// SplitFile splits the decoded text of a file around evidence
func (f *FileLocator) SplitFile(evidence string, file model.UploadedFile, status model.Status) ([]Segment, error) {
	text, err := f.registry.Text(file)
	if err != nil {
		return nil, err
	}
	return f.Split(evidence, text, status), nil
}

// Locatable reports whether a criterion can be shown in the submission:
// it has visual coordinates, or its evidence is found in the text or in
// one of the text files
func (f *FileLocator) Locatable(c model.CriterionResult, text string, files []model.UploadedFile) bool {
	if c.VisualCoordinates != nil {
		return true
	}
	if f.IsLocatable(c.Evidence, text) {
		return true
	}
	for _, file := range files {
		if _, ok := f.LocateInFile(c.Evidence, file); ok {
			return true
		}
	}
	return false
}

// FindFile returns the index of the first file whose text contains the
// evidence, or -1
func (f *FileLocator) FindFile(evidence string, files []model.UploadedFile) int {
	for i, file := range files {
		if _, ok := f.LocateInFile(evidence, file); ok {
			return i
		}
	}
	return -1
}
