package ai

import (
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/noah-isme/gema-lingo-api/pkg/scoring"
)

const evaluationSchemaJSON = `{
  "type": "object",
  "required": ["categories", "overallFeedback"],
  "properties": {
    "categories": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["score"],
        "properties": {
          "key": {"type": "string"},
          "label": {"type": "string"},
          "score": {"type": "number", "minimum": 0, "maximum": 100},
          "comment": {"type": ["string", "null"]}
        },
        "anyOf": [{"required": ["key"]}, {"required": ["label"]}]
      }
    },
    "overallFeedback": {"type": "string", "pattern": "\\S"}
  }
}`

var evaluationSchema = jsonschema.MustCompileString("evaluation.schema.json", evaluationSchemaJSON)

type evaluationPayload struct {
	Categories []struct {
		Key     string  `json:"key"`
		Label   string  `json:"label"`
		Score   float64 `json:"score"`
		Comment string  `json:"comment"`
	} `json:"categories"`
	OverallFeedback string `json:"overallFeedback"`
}

// extractJSONObject returns the first balanced {...} block of raw, ignoring
// braces that appear inside JSON strings.
func extractJSONObject(raw string) (string, error) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return "", &MalformedResponseError{Index: -1, Reason: "no JSON object found in response"}
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		ch := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1], nil
			}
		}
	}

	return "", &MalformedResponseError{Index: -1, Reason: "unbalanced JSON object in response"}
}

// parseEvaluationResponse extracts, schema-checks and decodes a provider reply.
func parseEvaluationResponse(raw string) (evaluationPayload, error) {
	object, err := extractJSONObject(raw)
	if err != nil {
		return evaluationPayload{}, err
	}

	var document interface{}
	if err := json.Unmarshal([]byte(object), &document); err != nil {
		return evaluationPayload{}, &MalformedResponseError{Index: -1, Reason: "invalid JSON: " + err.Error()}
	}

	if err := evaluationSchema.Validate(document); err != nil {
		var validationErr *jsonschema.ValidationError
		if errors.As(err, &validationErr) {
			return evaluationPayload{}, schemaViolation(validationErr)
		}
		return evaluationPayload{}, &MalformedResponseError{Index: -1, Reason: err.Error()}
	}

	var payload evaluationPayload
	if err := json.Unmarshal([]byte(object), &payload); err != nil {
		return evaluationPayload{}, &MalformedResponseError{Index: -1, Reason: "invalid JSON: " + err.Error()}
	}

	for idx, category := range payload.Categories {
		if scoring.NormalizeKey(category.Key) == "" && scoring.NormalizeKey(category.Label) == "" {
			return evaluationPayload{}, &MalformedResponseError{Index: idx, Field: "key", Reason: "key or label is required"}
		}
	}
	if strings.TrimSpace(payload.OverallFeedback) == "" {
		return evaluationPayload{}, &MalformedResponseError{Index: -1, Field: "overallFeedback", Reason: "must be a non-empty string"}
	}

	return payload, nil
}

type schemaLeaf struct {
	index   int
	field   string
	message string
	path    string
}

// schemaViolation reports the leaf violation with the lowest category index,
// falling back to the first document-level violation.
func schemaViolation(root *jsonschema.ValidationError) *MalformedResponseError {
	var leaves []schemaLeaf
	var collect func(*jsonschema.ValidationError)
	collect = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			index, field := splitInstanceLocation(e.InstanceLocation)
			leaves = append(leaves, schemaLeaf{index: index, field: field, message: e.Message, path: e.InstanceLocation})
			return
		}
		for _, cause := range e.Causes {
			collect(cause)
		}
	}
	collect(root)

	if len(leaves) == 0 {
		return &MalformedResponseError{Index: -1, Reason: root.Message}
	}

	sort.SliceStable(leaves, func(i, j int) bool {
		a, b := leaves[i], leaves[j]
		if (a.index < 0) != (b.index < 0) {
			return a.index >= 0
		}
		if a.index != b.index {
			return a.index < b.index
		}
		return a.path < b.path
	})

	first := leaves[0]
	return &MalformedResponseError{Index: first.index, Field: first.field, Reason: first.message}
}

// splitInstanceLocation turns "/categories/2/score" into (2, "score").
func splitInstanceLocation(location string) (int, string) {
	location = strings.TrimPrefix(strings.TrimPrefix(location, "#"), "/")
	if location == "" {
		return -1, ""
	}

	parts := strings.Split(location, "/")
	if parts[0] != "categories" {
		return -1, strings.Join(parts, ".")
	}
	if len(parts) < 2 {
		return -1, "categories"
	}

	index, err := strconv.Atoi(parts[1])
	if err != nil {
		return -1, strings.Join(parts, ".")
	}
	return index, strings.Join(parts[2:], ".")
}

// normalizeCategories fills key/label from each other, clamps scores and keeps
// only categories that match a rubric criterion. Dropped keys are returned.
func normalizeCategories(payload evaluationPayload, index scoring.Index) ([]scoring.Category, []string) {
	categories := make([]scoring.Category, 0, len(payload.Categories))
	var dropped []string

	for _, raw := range payload.Categories {
		key := strings.TrimSpace(raw.Key)
		label := strings.TrimSpace(raw.Label)
		if key == "" {
			key = label
		}
		if label == "" {
			label = key
		}

		criterion, ok := index.Lookup(key)
		if !ok {
			dropped = append(dropped, scoring.NormalizeKey(key))
			continue
		}

		categories = append(categories, scoring.Category{
			Key:     scoring.NormalizeKey(criterion.Name),
			Label:   label,
			Score:   float64(scoring.ClampScore(raw.Score)),
			Comment: strings.TrimSpace(raw.Comment),
		})
	}

	return categories, dropped
}
