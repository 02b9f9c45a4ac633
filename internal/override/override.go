package override

import (
	"errors"
	"fmt"

	"github.com/ppiankov/rubriccheck/internal/model"
	"github.com/ppiankov/rubriccheck/internal/score"
)

var (
	// ErrIndexOutOfRange is returned for an index outside the criteria list
	ErrIndexOutOfRange = errors.New("criterion index out of range")

	// ErrInvalidStatus is returned for a status other than met, weak or missing
	ErrInvalidStatus = errors.New("invalid status")

	// ErrNoResult is returned when there is no analysis to correct
	ErrNoResult = errors.New("no analysis result")
)

// Apply returns a copy of result in which criteria[index] carries the
// user status. A nil status clears the override. The model verdict, the
// other criteria and the input itself are left untouched; the summary of
// the returned result is recomputed from effective statuses.
func Apply(result *model.AnalysisResult, index int, status *model.Status) (*model.AnalysisResult, error) {
	if result == nil {
		return nil, ErrNoResult
	}
	if index < 0 || index >= len(result.Criteria) {
		return nil, fmt.Errorf("%w: %d (have %d)", ErrIndexOutOfRange, index, len(result.Criteria))
	}
	if status != nil && !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, *status)
	}

	out := result.Clone()
	if status == nil {
		out.Criteria[index].UserStatus = nil
	} else {
		s := *status
		out.Criteria[index].UserStatus = &s
	}
	out.Summary = score.Summarize(out.Criteria, result.Summary)
	return out, nil
}

// Toggle cycles the effective status met -> weak -> missing -> met, the
// way a status badge click does
func Toggle(result *model.AnalysisResult, index int) (*model.AnalysisResult, error) {
	if result == nil {
		return nil, ErrNoResult
	}
	if index < 0 || index >= len(result.Criteria) {
		return nil, fmt.Errorf("%w: %d (have %d)", ErrIndexOutOfRange, index, len(result.Criteria))
	}

	next := model.StatusMet
	switch result.Criteria[index].Effective() {
	case model.StatusMet:
		next = model.StatusWeak
	case model.StatusWeak:
		next = model.StatusMissing
	}
	return Apply(result, index, &next)
}

// ClearAll returns a copy of result with every override removed
func ClearAll(result *model.AnalysisResult) (*model.AnalysisResult, error) {
	if result == nil {
		return nil, ErrNoResult
	}
	out := result.Clone()
	for i := range out.Criteria {
		out.Criteria[i].UserStatus = nil
	}
	out.Summary = score.Summarize(out.Criteria, result.Summary)
	return out, nil
}
