package grade

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/ppiankov/rubriccheck/internal/model"
)

var fenceRe = regexp.MustCompile("(?i)```(?:json)?")

// Verdict fields may be absent or null; a missing status grades as missing.
const schemaDefs = `"$defs": {
    "text": {"type": ["string", "null"]},
    "coords": {
      "type": ["object", "null"],
      "required": ["x", "y"],
      "properties": {
        "x": {"type": "number"},
        "y": {"type": "number"},
        "file_index": {"type": "integer", "minimum": 0}
      }
    },
    "entry": {
      "type": "object",
      "properties": {
        "score": {"$ref": "#/$defs/text"},
        "status": {"$ref": "#/$defs/text"},
        "why": {"$ref": "#/$defs/text"},
        "evidence": {"$ref": "#/$defs/text"},
        "exact_fix": {"$ref": "#/$defs/text"},
        "visual_coordinates": {"$ref": "#/$defs/coords"}
      }
    }
  }`

var (
	keyedWrappedSchema = jsonschema.MustCompileString("keyed_wrapped.json", `{
  "type": "object",
  "required": ["criteria"],
  "properties": {
    "criteria": {"type": "object", "additionalProperties": {"$ref": "#/$defs/entry"}},
    "ai_score": {"type": "number"},
    "summary": {"type": "object", "properties": {"ai_score": {"type": "number"}}}
  },
  `+schemaDefs+`
}`)

	keyedBareSchema = jsonschema.MustCompileString("keyed_bare.json", `{
  "type": "object",
  "properties": {
    "summary": {"type": "object", "properties": {"ai_score": {"type": "number"}}}
  },
  "additionalProperties": {"$ref": "#/$defs/entry"},
  `+schemaDefs+`
}`)

	listSchema = jsonschema.MustCompileString("list.json", `{
  "type": "object",
  "required": ["criteria"],
  "properties": {
    "summary": {
      "type": "object",
      "properties": {
        "ai_score": {"type": "number"},
        "indicators": {"type": "array", "items": {"type": "string"}}
      }
    },
    "criteria": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["criterion"],
        "properties": {
          "criterion": {"type": "string"},
          "status": {"$ref": "#/$defs/text"},
          "why": {"$ref": "#/$defs/text"},
          "evidence": {"$ref": "#/$defs/text"},
          "exact_fix": {"$ref": "#/$defs/text"},
          "visual_coordinates": {"$ref": "#/$defs/coords"}
        }
      }
    }
  },
  `+schemaDefs+`
}`)
)

// Parsed is a model grading answer before normalization
type Parsed struct {
	Criteria   []model.CriterionResult
	AIScore    int
	Indicators []string
}

// StripFences removes markdown code fences around a JSON answer
func StripFences(s string) string {
	return strings.TrimSpace(fenceRe.ReplaceAllString(s, ""))
}

// Parse decodes a grading answer. The keyed layout (criterion name to
// verdict object, bare or under "criteria") is tried first, then the list
// layout ({summary, criteria: [...]}). Anything else is an error.
func Parse(content string) (*Parsed, error) {
	text := StripFences(content)

	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	// trailing prose after the JSON value is ignored
	raw := []byte(text[:dec.InputOffset()])

	parsed, errKeyed := parseKeyed(raw, doc)
	if errKeyed != nil {
		var errList error
		parsed, errList = parseList(raw, doc)
		if errList != nil {
			return nil, fmt.Errorf("%w: keyed layout: %v; list layout: %v", ErrUnexpectedShape, errKeyed, errList)
		}
	}

	if len(parsed.Criteria) == 0 {
		return nil, ErrNoCriteria
	}
	return parsed, nil
}

type keyedEntry struct {
	Score             string                   `json:"score"`
	Status            string                   `json:"status"`
	Why               string                   `json:"why"`
	Evidence          string                   `json:"evidence"`
	ExactFix          string                   `json:"exact_fix"`
	VisualCoordinates *model.VisualCoordinates `json:"visual_coordinates"`
}

type scoreHolder struct {
	AIScore    *float64 `json:"ai_score"`
	Indicators []string `json:"indicators"`
	AIAnalysis *struct {
		Indicators []string `json:"indicators"`
	} `json:"ai_analysis"`
}

func parseKeyed(raw []byte, doc interface{}) (*Parsed, error) {
	top, ok := doc.(map[string]interface{})
	if !ok {
		return nil, errors.New("not an object")
	}

	if _, wrapped := top["criteria"].(map[string]interface{}); wrapped {
		if err := keyedWrappedSchema.Validate(doc); err != nil {
			return nil, err
		}
		var env struct {
			Criteria json.RawMessage `json:"criteria"`
			AIScore  *float64        `json:"ai_score"`
			Summary  *scoreHolder    `json:"summary"`
		}
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, err
		}
		parsed, err := keyedCriteria(env.Criteria, false)
		if err != nil {
			return nil, err
		}
		parsed.AIScore = aiScore(env.AIScore)
		if env.Summary != nil {
			if env.Summary.AIScore != nil {
				parsed.AIScore = aiScore(env.Summary.AIScore)
			}
			parsed.Indicators = env.Summary.indicators()
		}
		return parsed, nil
	}

	if err := keyedBareSchema.Validate(doc); err != nil {
		return nil, err
	}
	parsed, err := keyedCriteria(raw, true)
	if err != nil {
		return nil, err
	}
	var env struct {
		Summary *scoreHolder `json:"summary"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	if env.Summary != nil {
		parsed.AIScore = aiScore(env.Summary.AIScore)
		parsed.Indicators = env.Summary.indicators()
	}
	return parsed, nil
}

// keyedCriteria reads criterion entries in document order. In the bare
// layout the "summary" member is not a criterion.
func keyedCriteria(raw []byte, bare bool) (*Parsed, error) {
	entries, err := orderedEntries(raw)
	if err != nil {
		return nil, err
	}

	parsed := &Parsed{Criteria: make([]model.CriterionResult, 0, len(entries))}
	for _, e := range entries {
		if bare && e.key == "summary" {
			continue
		}
		var v keyedEntry
		if err := json.Unmarshal(e.value, &v); err != nil {
			return nil, fmt.Errorf("criterion %q: %w", e.key, err)
		}
		verdict := v.Score
		if verdict == "" {
			verdict = v.Status
		}
		parsed.Criteria = append(parsed.Criteria, model.CriterionResult{
			Criterion:         strings.ReplaceAll(e.key, "_", " "),
			Status:            model.ParseStatus(verdict),
			Why:               v.Why,
			Evidence:          v.Evidence,
			ExactFix:          v.ExactFix,
			VisualCoordinates: v.VisualCoordinates,
		})
	}
	return parsed, nil
}

type listDoc struct {
	Summary  *scoreHolder `json:"summary"`
	Criteria []struct {
		Criterion         string                   `json:"criterion"`
		Status            string                   `json:"status"`
		Why               string                   `json:"why"`
		Evidence          string                   `json:"evidence"`
		ExactFix          string                   `json:"exact_fix"`
		VisualCoordinates *model.VisualCoordinates `json:"visual_coordinates"`
	} `json:"criteria"`
}

func parseList(raw []byte, doc interface{}) (*Parsed, error) {
	if err := listSchema.Validate(doc); err != nil {
		return nil, err
	}
	var d listDoc
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, err
	}

	parsed := &Parsed{Criteria: make([]model.CriterionResult, 0, len(d.Criteria))}
	for _, c := range d.Criteria {
		parsed.Criteria = append(parsed.Criteria, model.CriterionResult{
			Criterion:         c.Criterion,
			Status:            model.ParseStatus(c.Status),
			Why:               c.Why,
			Evidence:          c.Evidence,
			ExactFix:          c.ExactFix,
			VisualCoordinates: c.VisualCoordinates,
		})
	}
	if d.Summary != nil {
		parsed.AIScore = aiScore(d.Summary.AIScore)
		parsed.Indicators = d.Summary.indicators()
	}
	return parsed, nil
}

func (s *scoreHolder) indicators() []string {
	if len(s.Indicators) > 0 {
		return s.Indicators
	}
	if s.AIAnalysis != nil {
		return s.AIAnalysis.Indicators
	}
	return nil
}

func aiScore(v *float64) int {
	if v == nil || math.IsNaN(*v) {
		return 0
	}
	f := math.Round(*v)
	if f < 0 {
		return 0
	}
	if f > 100 {
		return 100
	}
	return int(f)
}

type entry struct {
	key   string
	value json.RawMessage
}

// orderedEntries lists an object's members in document order. A repeated
// key keeps its first position and its last value.
func orderedEntries(raw []byte) ([]entry, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("expected an object")
	}

	var out []entry
	index := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("value of %q: %w", key, err)
		}
		if i, seen := index[key]; seen {
			out[i].value = value
			continue
		}
		index[key] = len(out)
		out = append(out, entry{key: key, value: value})
	}
	return out, nil
}

// ParseRewrites decodes a JSON array of rewrite suggestions
func ParseRewrites(content string) ([]string, error) {
	text := StripFences(content)

	var list []string
	if err := json.Unmarshal([]byte(text), &list); err != nil {
		var wrapped struct {
			Rewrites    []string `json:"rewrites"`
			Suggestions []string `json:"suggestions"`
		}
		if err2 := json.Unmarshal([]byte(text), &wrapped); err2 != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
		}
		list = append(wrapped.Rewrites, wrapped.Suggestions...)
	}

	out := make([]string, 0, len(list))
	for _, s := range list {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no rewrite suggestions", ErrUnexpectedShape)
	}
	return out, nil
}
