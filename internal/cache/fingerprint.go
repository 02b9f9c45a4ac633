package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/ppiankov/rubriccheck/internal/model"
)

// fingerprintFile and fingerprintInput fix the field order of the hashed
// form; struct fields always marshal in declaration order
type fingerprintFile struct {
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type fingerprintInput struct {
	RubricText      string            `json:"rubric_text"`
	RubricFiles     []fingerprintFile `json:"rubric_files"`
	SubmissionText  string            `json:"submission_text"`
	SubmissionFiles []fingerprintFile `json:"submission_files"`
	Explanation     string            `json:"explanation"`
	Strict          bool              `json:"strict"`
	WorkType        string            `json:"work_type"`
}

// Fingerprint returns the SHA-256 of every grading input. Identical inputs
// always give the same id and any change gives a different one.
func Fingerprint(req model.GradeRequest) string {
	in := fingerprintInput{
		RubricText:      req.RubricText,
		RubricFiles:     fingerprintFiles(req.RubricFiles),
		SubmissionText:  req.SubmissionText,
		SubmissionFiles: fingerprintFiles(req.SubmissionFiles),
		Explanation:     req.Explanation,
		Strict:          req.Strict,
		WorkType:        string(req.Kind()),
	}
	return Hash(in)
}

// RewriteFingerprint identifies a rewrite request for one criterion
func RewriteFingerprint(criterion, evidence, submission, rubric string) string {
	return Hash(struct {
		Criterion  string `json:"criterion"`
		Evidence   string `json:"evidence"`
		Submission string `json:"submission"`
		Rubric     string `json:"rubric"`
	}{criterion, evidence, submission, rubric})
}

// Hash returns the hex SHA-256 of the JSON form of v
func Hash(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		// only reachable with unsupported types, which callers never pass
		panic("cache: hash input: " + err.Error())
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func fingerprintFiles(files []model.UploadedFile) []fingerprintFile {
	out := make([]fingerprintFile, len(files))
	for i, f := range files {
		out[i] = fingerprintFile{Name: f.Name, MimeType: f.MimeType, Data: f.Data}
	}
	return out
}
