package session

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ppiankov/rubriccheck/internal/grade"
	"github.com/ppiankov/rubriccheck/internal/model"
	"github.com/ppiankov/rubriccheck/internal/override"
)

// Messages shown for a failed check
const (
	ErrorQuota   = "QUOTA_EXCEEDED"
	ErrorGeneric = "Something went wrong. Check your connection."
)

var (
	// ErrUnknownField is returned by SetInput for a field it cannot set
	ErrUnknownField = errors.New("unknown input field")
)

// Field names an editable input
type Field string

const (
	FieldRubric      Field = "rubric"
	FieldSubmission  Field = "submission"
	FieldExplanation Field = "explanation"
	FieldWorkType    Field = "workType"
	FieldStrict      Field = "strict"
)

// FileTarget selects which upload list SetFiles replaces
type FileTarget string

const (
	RubricFiles     FileTarget = "rubric"
	SubmissionFiles FileTarget = "submission"
)

// State is everything the interface shows
type State struct {
	Inputs  model.GradeRequest    `json:"inputs"`
	Loading bool                  `json:"isLoading"`
	Error   string                `json:"error,omitempty"`
	Result  *model.AnalysisResult `json:"result,omitempty"`

	// CooldownUntil is when a quota error stops blocking new checks
	CooldownUntil time.Time `json:"cooldownUntil,omitempty"`

	// Seq identifies the latest check; answers for older ones are dropped
	Seq uint64 `json:"seq"`
}

// CooldownRemaining is the time left before a new check may start
func (s State) CooldownRemaining(now time.Time) time.Duration {
	if s.CooldownUntil.IsZero() || !now.Before(s.CooldownUntil) {
		return 0
	}
	return s.CooldownUntil.Sub(now)
}

// clone copies the state so callers never share the result or file slices
func (s State) clone() State {
	out := s
	out.Result = s.Result.Clone()
	out.Inputs.RubricFiles = append([]model.UploadedFile(nil), s.Inputs.RubricFiles...)
	out.Inputs.SubmissionFiles = append([]model.UploadedFile(nil), s.Inputs.SubmissionFiles...)
	return out
}

// Action is a state transition
type Action interface {
	apply(s *State, env env) error
}

// env carries what reducers need from the controller
type env struct {
	now      time.Time
	cooldown time.Duration
}

// SetInput replaces one text input and clears any shown error
type SetInput struct {
	Field Field
	Value string
}

func (a SetInput) apply(s *State, _ env) error {
	switch a.Field {
	case FieldRubric:
		s.Inputs.RubricText = a.Value
	case FieldSubmission:
		s.Inputs.SubmissionText = a.Value
	case FieldExplanation:
		s.Inputs.Explanation = a.Value
	case FieldWorkType:
		s.Inputs.WorkType = model.WorkType(a.Value)
	case FieldStrict:
		v, err := strconv.ParseBool(a.Value)
		if err != nil {
			return fmt.Errorf("strict: %w", err)
		}
		s.Inputs.Strict = v
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, a.Field)
	}
	s.Error = ""
	return nil
}

// SetFiles replaces an upload list
type SetFiles struct {
	Target FileTarget
	Files  []model.UploadedFile
}

func (a SetFiles) apply(s *State, _ env) error {
	files := append([]model.UploadedFile(nil), a.Files...)
	switch a.Target {
	case RubricFiles:
		s.Inputs.RubricFiles = files
	case SubmissionFiles:
		s.Inputs.SubmissionFiles = files
	default:
		return fmt.Errorf("%w: files %q", ErrUnknownField, a.Target)
	}
	s.Error = ""
	return nil
}

// SetInputs replaces all inputs at once, as when restoring a draft
type SetInputs struct {
	Inputs model.GradeRequest
}

func (a SetInputs) apply(s *State, _ env) error {
	s.Inputs = a.Inputs
	s.Inputs.RubricFiles = append([]model.UploadedFile(nil), a.Inputs.RubricFiles...)
	s.Inputs.SubmissionFiles = append([]model.UploadedFile(nil), a.Inputs.SubmissionFiles...)
	s.Error = ""
	return nil
}

// LoadExample fills in the sample rubric and essay
type LoadExample struct{}

func (LoadExample) apply(s *State, _ env) error {
	s.Inputs.RubricText = SampleRubric
	s.Inputs.SubmissionText = SampleEssay
	s.Error = ""
	return nil
}

// Begin starts a new check and supersedes any in flight
type Begin struct{}

func (Begin) apply(s *State, _ env) error {
	s.Seq++
	s.Loading = true
	s.Error = ""
	s.Result = nil
	return nil
}

// Resolve delivers the result of check Seq
type Resolve struct {
	Seq    uint64
	Result *model.AnalysisResult
}

func (a Resolve) apply(s *State, _ env) error {
	if a.Seq != s.Seq {
		return nil
	}
	s.Loading = false
	s.Error = ""
	s.Result = a.Result.Clone()
	return nil
}

// Fail delivers the error of check Seq
type Fail struct {
	Seq uint64
	Err error
}

func (a Fail) apply(s *State, e env) error {
	if a.Seq != s.Seq {
		return nil
	}
	s.Loading = false
	if grade.IsQuota(a.Err) {
		s.Error = ErrorQuota
		s.CooldownUntil = e.now.Add(e.cooldown)
		return nil
	}
	s.Error = ErrorGeneric
	return nil
}

// Override sets or clears the user verdict of one criterion
type Override struct {
	Index  int
	Status *model.Status
}

func (a Override) apply(s *State, _ env) error {
	updated, err := override.Apply(s.Result, a.Index, a.Status)
	if err != nil {
		return err
	}
	s.Result = updated
	return nil
}

// ToggleOverride cycles the effective status of one criterion
type ToggleOverride struct {
	Index int
}

func (a ToggleOverride) apply(s *State, _ env) error {
	updated, err := override.Toggle(s.Result, a.Index)
	if err != nil {
		return err
	}
	s.Result = updated
	return nil
}

// ClearOverrides reverts every criterion to the model verdict
type ClearOverrides struct{}

func (ClearOverrides) apply(s *State, _ env) error {
	updated, err := override.ClearAll(s.Result)
	if err != nil {
		return err
	}
	s.Result = updated
	return nil
}

// DismissError hides the error banner
type DismissError struct{}

func (DismissError) apply(s *State, _ env) error {
	s.Error = ""
	return nil
}

// Reset returns to an empty form. A check in flight becomes stale; the
// quota cooldown is kept.
type Reset struct{}

func (Reset) apply(s *State, _ env) error {
	*s = State{Seq: s.Seq + 1, CooldownUntil: s.CooldownUntil}
	return nil
}
