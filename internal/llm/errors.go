package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrQuotaExceeded signals rate limiting or an exhausted quota. Callers
	// start a cooldown instead of treating it as a generic failure.
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrEmptyResponse is returned when the backend answers with no text
	ErrEmptyResponse = errors.New("empty response")
)

// APIError is a non-success answer from a provider
type APIError struct {
	Provider   string
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("%s API error (%d): %s - %s", e.Provider, e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("%s API error (%d): %s", e.Provider, e.StatusCode, e.Message)
}

// Is makes errors.Is(err, ErrQuotaExceeded) true for rate-limit answers
func (e *APIError) Is(target error) bool {
	return target == ErrQuotaExceeded && IsQuotaSignal(e.StatusCode, e.Type, e.Message)
}

// IsQuotaSignal recognizes the ways providers report rate limiting
func IsQuotaSignal(status int, kind, message string) bool {
	if status == http.StatusTooManyRequests {
		return true
	}
	text := strings.ToLower(kind + " " + message)
	for _, marker := range []string{"rate_limit", "rate limit", "insufficient_quota", "quota_exceeded", "resource_exhausted", "overloaded_error"} {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}
