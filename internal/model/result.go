package model

// VisualCoordinates locates evidence inside an uploaded visual file.
// X and Y are percentages (0-100) of the rendered width and height.
type VisualCoordinates struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	FileIndex *int    `json:"file_index,omitempty"`
}

// File returns the target file index, defaulting to the first file
func (v VisualCoordinates) File() int {
	if v.FileIndex == nil {
		return 0
	}
	return *v.FileIndex
}

// CriterionResult is one rubric item's evaluation
type CriterionResult struct {
	Criterion         string             `json:"criterion"`
	Status            Status             `json:"status"`               // Model verdict, never changed after creation
	UserStatus        *Status            `json:"userStatus,omitempty"` // Manual override
	Why               string             `json:"why"`
	Evidence          string             `json:"evidence"`
	ExactFix          string             `json:"exact_fix"`
	VisualCoordinates *VisualCoordinates `json:"visual_coordinates,omitempty"`
}

// Effective returns the override if one is set, otherwise the model verdict
func (c CriterionResult) Effective() Status {
	if c.UserStatus != nil {
		return *c.UserStatus
	}
	return c.Status
}

// Overridden reports whether the user has replaced the model verdict
func (c CriterionResult) Overridden() bool {
	return c.UserStatus != nil
}

// clone deep-copies the pointer fields
func (c CriterionResult) clone() CriterionResult {
	out := c
	if c.UserStatus != nil {
		s := *c.UserStatus
		out.UserStatus = &s
	}
	if c.VisualCoordinates != nil {
		vc := *c.VisualCoordinates
		if vc.FileIndex != nil {
			idx := *vc.FileIndex
			vc.FileIndex = &idx
		}
		out.VisualCoordinates = &vc
	}
	return out
}

// TopFix is one surfaced remediation item
type TopFix struct {
	Fix    string `json:"fix"`
	Reason string `json:"reason"`
}

// AIAnalysis describes the AI-involvement estimate in words
type AIAnalysis struct {
	RiskLevel      string   `json:"risk_level"` // "low", "moderate", "high"
	VerdictSummary string   `json:"verdict_summary"`
	Indicators     []string `json:"indicators,omitempty"`
}

// Summary holds the aggregate view of an analysis
type Summary struct {
	Score      int        `json:"score"`    // Derived score (0-100)
	AIScore    int        `json:"ai_score"` // Model estimate of AI-generated content (0-100)
	AIAnalysis AIAnalysis `json:"ai_analysis"`
	Met        int        `json:"met"`
	Weak       int        `json:"weak"`
	Missing    int        `json:"missing"`
	TopFixes   []TopFix   `json:"top_fixes"`
}

// AnalysisResult is the full grading output for one submission.
// Only UserStatus on individual criteria may change after creation, and
// only by producing a new value.
type AnalysisResult struct {
	Summary  Summary           `json:"summary"`
	Criteria []CriterionResult `json:"criteria"`
}

// Clone returns a deep copy that shares no memory with r
func (r *AnalysisResult) Clone() *AnalysisResult {
	if r == nil {
		return nil
	}
	out := &AnalysisResult{Summary: r.Summary}
	if r.Summary.TopFixes != nil {
		out.Summary.TopFixes = make([]TopFix, len(r.Summary.TopFixes))
		copy(out.Summary.TopFixes, r.Summary.TopFixes)
	}
	if r.Summary.AIAnalysis.Indicators != nil {
		out.Summary.AIAnalysis.Indicators = make([]string, len(r.Summary.AIAnalysis.Indicators))
		copy(out.Summary.AIAnalysis.Indicators, r.Summary.AIAnalysis.Indicators)
	}
	if r.Criteria != nil {
		out.Criteria = make([]CriterionResult, len(r.Criteria))
		for i, c := range r.Criteria {
			out.Criteria[i] = c.clone()
		}
	}
	return out
}
