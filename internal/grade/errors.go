package grade

import (
	"context"
	"errors"
	"fmt"

	"github.com/ppiankov/rubriccheck/internal/llm"
)

// Kind classifies a grading failure for the caller
type Kind int

const (
	KindUnknown Kind = iota
	KindQuotaExceeded
	KindInvalidModelOutput
	KindNetworkFailure
)

func (k Kind) String() string {
	switch k {
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindInvalidModelOutput:
		return "invalid_model_output"
	case KindNetworkFailure:
		return "network_failure"
	default:
		return "unknown"
	}
}

var (
	// ErrUnparseable means the model answer was not JSON at all
	ErrUnparseable = errors.New("model output is not valid JSON")

	// ErrUnexpectedShape means the JSON matched neither accepted layout
	ErrUnexpectedShape = errors.New("model output has an unexpected shape")

	// ErrNoCriteria means the answer parsed but carried no criteria
	ErrNoCriteria = errors.New("model output has no criteria")
)

// Error is a normalized grading failure
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the failure kind carried by err, or KindUnknown
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindUnknown
}

// IsQuota reports whether err is a rate-limit failure
func IsQuota(err error) bool {
	return KindOf(err) == KindQuotaExceeded
}

func invalidOutput(op string, err error) *Error {
	return &Error{Kind: KindInvalidModelOutput, Op: op, Err: err}
}

// classify maps a provider error onto a Kind. Context errors pass through
// untouched so cancellation stays distinguishable.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var ge *Error
	if errors.As(err, &ge) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	switch {
	case errors.Is(err, llm.ErrQuotaExceeded):
		return &Error{Kind: KindQuotaExceeded, Op: op, Err: err}
	case errors.Is(err, llm.ErrEmptyResponse):
		return invalidOutput(op, err)
	default:
		return &Error{Kind: KindNetworkFailure, Op: op, Err: err}
	}
}
