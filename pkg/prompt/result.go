package prompt

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrUnstructured is returned when the model did not answer in the requested format.
var ErrUnstructured = errors.New("answer is not structured")

// Result is the decoded answer of the model.
type Result struct {
	Answer string
	// ExtractedValue is nil when the model extracted nothing.
	ExtractedValue any
}

type wireResult struct {
	Answer         *string `json:"answer"`
	ExtractedValue any     `json:"extracted_value"`
}

// Parse decodes a structured answer. Markdown code fences are tolerated.
func Parse(content string) (Result, error) {
	body := strings.TrimSpace(content)
	if strings.HasPrefix(body, "```") {
		body = strings.TrimPrefix(body, "```json")
		body = strings.TrimPrefix(body, "```")
		body = strings.TrimSuffix(strings.TrimSpace(body), "```")
	}

	var w wireResult
	if err := json.Unmarshal([]byte(body), &w); err != nil {
		return Result{}, errors.Join(ErrUnstructured, err)
	}
	if w.Answer == nil {
		return Result{}, ErrUnstructured
	}
	return Result{Answer: *w.Answer, ExtractedValue: w.ExtractedValue}, nil
}
