package progress

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// recordSchema describes the persisted blob. Score <= total is checked after decoding.
const recordSchema = `{
  "type": "object",
  "properties": {
    "completedLessons": {
      "type": "array",
      "items": {"type": "string"}
    },
    "exerciseScores": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "required": ["score", "total"],
        "properties": {
          "score": {"type": "integer", "minimum": 0},
          "total": {"type": "integer", "minimum": 1},
          "completedAt": {"type": "string"}
        }
      }
    },
    "lastVisited": {"type": "string"}
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(recordSchema)

// Encode serializes a record as one JSON blob.
func Encode(p UserProgress) ([]byte, error) {
	data, err := json.Marshal(p.Clone())
	if err != nil {
		return nil, fmt.Errorf("encoding progress: %w", err)
	}
	return data, nil
}

// Decode parses and checks a persisted blob. Missing fields take their defaults.
func Decode(blob []byte) (UserProgress, error) {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(blob))
	if err != nil {
		return UserProgress{}, fmt.Errorf("parsing progress: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return UserProgress{}, fmt.Errorf("progress does not match schema: %s", strings.Join(msgs, "; "))
	}

	var p UserProgress
	if err := json.Unmarshal(blob, &p); err != nil {
		return UserProgress{}, fmt.Errorf("decoding progress: %w", err)
	}
	for id, s := range p.ExerciseScores {
		if err := s.Validate(); err != nil {
			return UserProgress{}, fmt.Errorf("exercise %s: %w", id, err)
		}
	}

	p = p.Clone()
	p.CompletedLessons = dedupe(p.CompletedLessons)
	return p, nil
}
