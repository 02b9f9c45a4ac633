package model

// Signal is a diagnostic note attached to a report, carrying the inputs
// and formula that produced it
type Signal struct {
	Type        SignalType             `json:"type"`
	Severity    SignalSeverity         `json:"severity"`
	Description string                 `json:"description"`
	Data        map[string]interface{} `json:"data,omitempty"`
}

// SignalType classifies a diagnostic signal
type SignalType string

const (
	SignalScore       SignalType = "score"        // How the score was derived
	SignalGaps        SignalType = "gaps"         // Criteria not met
	SignalOverrides   SignalType = "overrides"    // Manual status corrections
	SignalAIRisk      SignalType = "ai_risk"      // AI-involvement estimate
	SignalUnlocated   SignalType = "unlocated"    // Evidence not found in the submission
	SignalRubricVague SignalType = "rubric_vague" // Rubric quality warnings
)

// SignalSeverity indicates the importance of the signal
type SignalSeverity string

const (
	SeverityInfo     SignalSeverity = "info"
	SeverityWarning  SignalSeverity = "warning"
	SeverityCritical SignalSeverity = "critical"
)
