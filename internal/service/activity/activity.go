// Package activity decodes the activity list embedded in generated text.
package activity

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/naryasomayaj/group-activity-planner/internal/model"
)

// Parse takes the span from the first '{' to the last '}' and decodes it
// as {"activities": [...]}. A missing activities key yields an empty list.
func Parse(text string) ([]model.Activity, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: no JSON object in generated text", model.ErrParse)
	}

	var payload struct {
		Activities []model.Activity `json:"activities"`
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &payload); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrParse, err)
	}
	if payload.Activities == nil {
		return []model.Activity{}, nil
	}
	return payload.Activities, nil
}
