package validate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/ppiankov/rubriccheck/internal/extract"
	"github.com/ppiankov/rubriccheck/internal/model"
)

// ErrInvalid is wrapped by every validation failure
var ErrInvalid = errors.New("invalid input")

// Issue is one problem with an input
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error lists every issue found
type Error struct {
	Issues []Issue
}

func (e *Error) Error() string {
	parts := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		parts[i] = is.Field + ": " + is.Message
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

func (e *Error) Unwrap() error {
	return ErrInvalid
}

// supported upload types by prefix
var supportedTypes = []string{
	"text/",
	"image/",
	"application/pdf",
	"application/json",
	"application/xml",
	"application/xhtml+xml",
	"application/msword",
	"application/vnd.ms-powerpoint",
	"application/vnd.openxmlformats-officedocument.",
	"application/vnd.oasis.opendocument.",
}

// Validator checks grading requests and configuration before they reach
// the grader
type Validator struct {
	validate           *validator.Validate
	maxSubmissionBytes int
	maxFileBytes       int
	maxWorkers         int
}

// NewValidator creates a validator with the size limits in cfg
func NewValidator(cfg model.GradingConfig) *Validator {
	return &Validator{
		validate:           validator.New(validator.WithRequiredStructEnabled()),
		maxSubmissionBytes: cfg.MaxSubmissionBytes,
		maxFileBytes:       cfg.MaxFileBytes,
		maxWorkers:         4,
	}
}

// Struct runs the struct tags of v and reports failures as an *Error
func (v *Validator) Struct(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return &Error{Issues: issuesFrom(verrs)}
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Request validates a grading request. Uploaded files are decoded and
// sniffed concurrently.
func (v *Validator) Request(ctx context.Context, req model.GradeRequest) error {
	var issues []Issue

	if err := v.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		issues = append(issues, issuesFrom(verrs)...)
	}

	if strings.TrimSpace(req.RubricText) == "" && len(req.RubricFiles) == 0 {
		issues = append(issues, Issue{Field: "rubric", Message: "a rubric is required (text or files)"})
	}
	if strings.TrimSpace(req.SubmissionText) == "" && len(req.SubmissionFiles) == 0 {
		issues = append(issues, Issue{Field: "submission", Message: "a submission is required (text or files)"})
	}
	if v.maxSubmissionBytes > 0 && len(req.SubmissionText) > v.maxSubmissionBytes {
		issues = append(issues, Issue{
			Field:   "submission",
			Message: fmt.Sprintf("text is %d bytes, limit is %d", len(req.SubmissionText), v.maxSubmissionBytes),
		})
	}

	fileIssues, err := v.files(ctx, req)
	if err != nil {
		return err
	}
	issues = append(issues, fileIssues...)

	if len(issues) > 0 {
		return &Error{Issues: issues}
	}
	return nil
}

type fileRef struct {
	field string
	file  model.UploadedFile
}

// files checks every upload, bounded by maxWorkers
func (v *Validator) files(ctx context.Context, req model.GradeRequest) ([]Issue, error) {
	var refs []fileRef
	for i, f := range req.RubricFiles {
		refs = append(refs, fileRef{field: fmt.Sprintf("rubricFiles[%d]", i), file: f})
	}
	for i, f := range req.SubmissionFiles {
		refs = append(refs, fileRef{field: fmt.Sprintf("essayFiles[%d]", i), file: f})
	}
	if len(refs) == 0 {
		return nil, nil
	}

	results := make([]*Issue, len(refs))
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, v.maxWorkers)

	for i, ref := range refs {
		wg.Add(1)
		go func(idx int, r fileRef) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				return
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			results[idx] = v.checkFile(r)
		}(i, ref)
	}

	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var issues []Issue
	for _, is := range results {
		if is != nil {
			issues = append(issues, *is)
		}
	}
	return issues, nil
}

func (v *Validator) checkFile(r fileRef) *Issue {
	data, err := extract.Decode(r.file)
	if err != nil {
		return &Issue{Field: r.field, Message: "data is not valid base64"}
	}
	if len(data) == 0 {
		return &Issue{Field: r.field, Message: "file is empty"}
	}
	if v.maxFileBytes > 0 && len(data) > v.maxFileBytes {
		return &Issue{Field: r.field, Message: fmt.Sprintf("%s is %d bytes, limit is %d", r.file.Name, len(data), v.maxFileBytes)}
	}
	mt := extract.DetectType(r.file, data)
	if !Supported(mt) {
		return &Issue{Field: r.field, Message: fmt.Sprintf("%s has unsupported type %s", r.file.Name, mt)}
	}
	return nil
}

// Supported reports whether an upload of this MIME type can be graded
func Supported(mimeType string) bool {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	for _, prefix := range supportedTypes {
		if strings.HasPrefix(mt, prefix) {
			return true
		}
	}
	return false
}

// Config validates a loaded configuration
func Config(cfg model.Config) error {
	return NewValidator(cfg.Grading).Struct(cfg)
}

func issuesFrom(verrs validator.ValidationErrors) []Issue {
	issues := make([]Issue, 0, len(verrs))
	for _, fe := range verrs {
		issues = append(issues, Issue{
			Field:   fieldPath(fe.Namespace()),
			Message: describe(fe),
		})
	}
	return issues
}

// fieldPath drops the root struct name from a namespace
func fieldPath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "url":
		return "must be a URL"
	default:
		return "failed " + fe.Tag() + " check"
	}
}
