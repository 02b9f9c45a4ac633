package grade

import (
	"fmt"
	"strings"

	"github.com/ppiankov/rubriccheck/internal/extract"
	"github.com/ppiankov/rubriccheck/internal/llm"
	"github.com/ppiankov/rubriccheck/internal/model"
)

const systemInstruction = `You are a friendly writing and project assistant. You check a piece of work (an essay, a presentation or a project) against the rubric the student was given.

HOW TO SOUND:
- Talk like a tutor sitting next to the student. Use plain, direct words: "Try adding...", "You're missing...", "The rubric asks for X, but right now you have Y."
- Mix short directions with longer explanations. Avoid stiff phrasing such as "It is recommended that" or "Ensure that you".
- Never use these words: delve, testament, tapestry, multifaceted, pivotal, comprehensive, underscore.

EVIDENCE RULES:
1. The "evidence" field must be copied character for character from the student's work. The application searches for it to highlight the passage; any change breaks the highlight.
2. Quote a passage the student can find in their own work. Do not paraphrase, summarize or add labels.
3. For slides, images or other visual work, judge layout and visual flow too, and give "visual_coordinates" as percentages of the width and height of the file.
4. Keep explanations simple. Skip academic jargon.

AI-INVOLVEMENT ESTIMATE:
Give "ai_score" from 0 to 100 for how likely the work was produced by an AI model. Look for stock AI vocabulary, sentences of suspiciously uniform length and a formulaic, perfectly balanced structure.

VERDICTS:
- "met": the requirement is fully satisfied.
- "weak": it is attempted but needs work.
- "missing": it is absent.
- "exact_fix": one clear instruction the student can act on.
- Back every verdict with a verbatim excerpt in "evidence".`

const strictAddendum = `

STRICT MODE IS ON:
Grade the way a demanding teacher would. Anything less than a complete, explicit answer to a requirement is "weak". Vague or implied coverage does not count as "met".`

const responseShape = `{
  "summary": {
    "ai_score": <integer 0-100>,
    "indicators": ["<short observation>"]
  },
  "criteria": [
    {
      "criterion": "<rubric item name>",
      "status": "met | weak | missing",
      "why": "<short explanation>",
      "evidence": "<verbatim excerpt from the work>",
      "exact_fix": "<specific fix>",
      "visual_coordinates": {"x": <0-100>, "y": <0-100>, "file_index": <n>}
    }
  ]
}`

// SystemPrompt returns the grading policy, with the strict addendum when asked
func SystemPrompt(strict bool) string {
	if strict {
		return systemInstruction + strictAddendum
	}
	return systemInstruction
}

// BuildMessages assembles the grading conversation for req
func BuildMessages(req model.GradeRequest, registry *extract.Registry) []llm.Message {
	var b strings.Builder

	fmt.Fprintf(&b, "Type of work: %s\n", req.Kind())
	fmt.Fprintf(&b, "STRICT MODE: %t\n\n", req.Strict)

	b.WriteString("RUBRIC:\n")
	b.WriteString(orNone(req.RubricText))
	b.WriteString("\n")
	writeFiles(&b, "RUBRIC FILES", req.RubricFiles, registry)

	b.WriteString("\nSUBMISSION:\n")
	b.WriteString(orNone(req.SubmissionText))
	b.WriteString("\n")
	writeFiles(&b, "SUBMISSION FILES", req.SubmissionFiles, registry)

	if strings.TrimSpace(req.Explanation) != "" {
		b.WriteString("\nSTUDENT'S NOTE ABOUT THE WORK:\n")
		b.WriteString(req.Explanation)
		b.WriteString("\n")
	}

	b.WriteString("\nReturn ONLY valid JSON in this shape:\n\n")
	b.WriteString(responseShape)
	b.WriteString("\n\nOne entry per rubric item, in rubric order. Omit visual_coordinates for text evidence. ")
	b.WriteString("Every \"evidence\" value must be an exact substring of the submission whenever the submission is text.\n")

	return []llm.Message{
		{Role: llm.RoleSystem, Content: SystemPrompt(req.Strict)},
		{Role: llm.RoleUser, Content: b.String()},
	}
}

func writeFiles(b *strings.Builder, title string, files []model.UploadedFile, registry *extract.Registry) {
	if len(files) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", title)
	for i, f := range files {
		fmt.Fprintf(b, "[%d] %s (%s)\n", i, f.Name, f.MimeType)
		if registry == nil {
			continue
		}
		text, err := registry.Text(f)
		if err != nil || strings.TrimSpace(text) == "" {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
}

// RewriteMessages asks for natural rewrites of the passage behind one criterion
func RewriteMessages(criterion model.CriterionResult, submission, rubric string) []llm.Message {
	var b strings.Builder
	b.WriteString("Rubric:\n")
	b.WriteString(orNone(rubric))
	b.WriteString("\n\nSubmission:\n")
	b.WriteString(orNone(submission))
	b.WriteString("\n\nFix this criterion:\n")
	b.WriteString(criterion.Criterion)
	if criterion.ExactFix != "" {
		b.WriteString("\n\nSuggested fix:\n")
		b.WriteString(criterion.ExactFix)
	}
	b.WriteString("\n\nEvidence:\n")
	b.WriteString(orNone(criterion.Evidence))
	b.WriteString("\n\nGive 3 natural rewrites of the evidence passage.\nReturn a JSON array of 3 strings only.\n")

	return []llm.Message{
		{Role: llm.RoleSystem, Content: "Write like a human. No AI tone."},
		{Role: llm.RoleUser, Content: b.String()},
	}
}

// ChatMessages prefixes the history with the assignment context
func ChatMessages(history []model.ChatMessage, req model.GradeRequest, summary string) []llm.Message {
	var b strings.Builder
	b.WriteString("You are helping a student with a graded assignment.\n\nRUBRIC:\n")
	b.WriteString(orNone(req.RubricText))
	b.WriteString("\n\nSUBMISSION:\n")
	b.WriteString(orNone(req.SubmissionText))
	if strings.TrimSpace(req.Explanation) != "" {
		b.WriteString("\n\nSTUDENT'S NOTE:\n")
		b.WriteString(req.Explanation)
	}
	b.WriteString("\n\nSUMMARY:\n")
	b.WriteString(orNone(summary))
	b.WriteString("\n\nStay concise and helpful.\n")

	out := make([]llm.Message, 0, len(history)+1)
	out = append(out, llm.Message{Role: llm.RoleSystem, Content: b.String()})
	for _, m := range history {
		role := llm.RoleUser
		if m.Role == model.ChatRoleModel {
			role = llm.RoleAssistant
		}
		out = append(out, llm.Message{Role: role, Content: m.Text})
	}
	return out
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "None"
	}
	return s
}
