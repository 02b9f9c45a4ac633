package model

import "strings"

// Status is a criterion verdict
type Status string

const (
	StatusMet     Status = "met"
	StatusWeak    Status = "weak"
	StatusMissing Status = "missing"
)

// ParseStatus case-folds a model-supplied status. Anything unrecognized,
// including the empty string, is treated as missing so that a malformed
// verdict flags the criterion instead of crediting it.
func ParseStatus(s string) Status {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusMet:
		return StatusMet
	case StatusWeak:
		return StatusWeak
	default:
		return StatusMissing
	}
}

// Valid reports whether s is one of the three verdicts
func (s Status) Valid() bool {
	switch s {
	case StatusMet, StatusWeak, StatusMissing:
		return true
	}
	return false
}

// Label is the short badge text shown for a status
func (s Status) Label() string {
	if s == StatusMet {
		return "GOOD"
	}
	return strings.ToUpper(string(s))
}

// Color is the highlight color class for a status
func (s Status) Color() string {
	switch s {
	case StatusMet:
		return "green"
	case StatusWeak:
		return "yellow"
	default:
		return "red"
	}
}
