package model

// WorkType tags the kind of submission being graded
type WorkType string

const (
	WorkGeneral      WorkType = "General"
	WorkEssay        WorkType = "Essay"
	WorkPresentation WorkType = "Presentation"
	WorkProject      WorkType = "Project"
)

// UploadedFile is a user file carried as base64. Files are identified by
// their position in the rubric or submission list.
type UploadedFile struct {
	Name     string `json:"name" yaml:"name" validate:"required"`
	MimeType string `json:"mimeType" yaml:"mime_type"`
	Data     string `json:"data" yaml:"data" validate:"required"`
}

// GradeRequest carries every input that affects a grading call
type GradeRequest struct {
	RubricText      string         `json:"rubricText" yaml:"rubric_text"`
	RubricFiles     []UploadedFile `json:"rubricFiles" yaml:"rubric_files" validate:"dive"`
	SubmissionText  string         `json:"essayText" yaml:"submission_text"`
	SubmissionFiles []UploadedFile `json:"essayFiles" yaml:"submission_files" validate:"dive"`
	Explanation     string         `json:"explanation" yaml:"explanation"`
	Strict          bool           `json:"isStrictMode" yaml:"strict"`
	WorkType        WorkType       `json:"workType" yaml:"work_type" validate:"omitempty,oneof=General Essay Presentation Project"`
}

// Kind returns the work type, defaulting to General
func (r GradeRequest) Kind() WorkType {
	if r.WorkType == "" {
		return WorkGeneral
	}
	return r.WorkType
}

// HasSubmission reports whether there is anything to grade
func (r GradeRequest) HasSubmission() bool {
	return r.SubmissionText != "" || len(r.SubmissionFiles) > 0
}

// Draft is the persisted snapshot of the input form
type Draft = GradeRequest

// ChatMessage is one turn of the follow-up chat. Role is "user" or "model".
type ChatMessage struct {
	Role string `json:"role" validate:"required,oneof=user model"`
	Text string `json:"text" validate:"required"`
}

// Chat roles as stored in the history
const (
	ChatRoleUser  = "user"
	ChatRoleModel = "model"
)
