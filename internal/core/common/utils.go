package common

import (
	"encoding/json"
	"fmt"

	jsonrepair "github.com/kaptinlin/jsonrepair"
)

// ParseJSON extracts and unmarshals the JSON object in an LLM response.
// Surrounding prose or markdown fences are stripped and common syntax damage
// (trailing commas, single quotes) is repaired before unmarshalling.
func ParseJSON[T any](response string) (T, error) {
	var zero T
	jsonStr := response

	start := -1
	end := -1

	for i, c := range jsonStr {
		if c == '{' {
			start = i
			break
		}
	}
	for i := len(jsonStr) - 1; i >= 0; i-- {
		if c := jsonStr[i]; c == '}' {
			end = i + 1
			break
		}
	}

	if start != -1 && end != -1 && start < end {
		jsonStr = jsonStr[start:end]
	} else if start == -1 {
		return zero, fmt.Errorf("no JSON object found in response (missing '{')")
	}

	if repaired, err := jsonrepair.JSONRepair(jsonStr); err == nil {
		jsonStr = repaired
	}

	var result T
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return zero, fmt.Errorf("failed to unmarshal JSON: %w\nData: %s", err, jsonStr)
	}

	return result, nil
}
