package workflow

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Validator checks the raw input of a step.
// Validate is pure: it returns the normalised value to persist, or a
// *ValidationError describing why the input was rejected.
type Validator interface {
	Validate(raw any) (any, error)
	// Rules describes the accepted input in plain words for the prompt.
	Rules() string
}

// ValidationError represents a rejected step input.
type ValidationError struct {
	Reason string // Human-readable reason, never empty
	Value  any    // The value that failed validation
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func reject(raw any, format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...), Value: raw}
}

var numericToken = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// Numeric extracts the first number from the input and enforces a ceiling.
// Negative amounts are rejected.
type Numeric struct {
	Max float64
}

func (v Numeric) Validate(raw any) (any, error) {
	var value float64
	switch n := raw.(type) {
	case float64:
		value = n
	case float32:
		value = float64(n)
	case int:
		value = float64(n)
	case int64:
		value = float64(n)
	case string:
		token := firstNumber(strings.ReplaceAll(n, ",", ""))
		if token == "" {
			return nil, reject(raw, "Budget must be a number.")
		}
		parsed, err := strconv.ParseFloat(token, 64)
		if err != nil {
			return nil, reject(raw, "Budget must be a number.")
		}
		value = parsed
	default:
		return nil, reject(raw, "Budget must be a number.")
	}

	if value < 0 {
		return nil, reject(raw, "Budget cannot be negative.")
	}
	if value > v.Max {
		return nil, reject(raw, "Amount is too high. The maximum allowed is %s.", formatAmount(v.Max))
	}
	return value, nil
}

func (v Numeric) Rules() string {
	return fmt.Sprintf("a non-negative number no greater than %s", formatAmount(v.Max))
}

// firstNumber returns the first numeric token of s. A dash counts as a minus
// sign only when it does not join two words, as in "ref-500".
func firstNumber(s string) string {
	loc := numericToken.FindStringIndex(s)
	if loc == nil {
		return ""
	}
	token := s[loc[0]:loc[1]]
	if strings.HasPrefix(token, "-") && loc[0] > 0 && isWordByte(s[loc[0]-1]) {
		return token[1:]
	}
	return token
}

func isWordByte(b byte) bool {
	return b == '_' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}

func formatAmount(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Text accepts free text with a minimum length in characters.
type Text struct {
	MinLength int
}

func (v Text) Validate(raw any) (any, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, reject(raw, "A text answer is required.")
	}
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) < v.MinLength {
		return nil, reject(raw, "The answer is too short: at least %d characters are required.", v.MinLength)
	}
	return s, nil
}

func (v Text) Rules() string {
	return fmt.Sprintf("free text of at least %d characters", v.MinLength)
}

var affirmatives = map[string]bool{
	"yes": true, "y": true, "yeah": true, "yep": true, "yup": true,
	"sure": true, "ok": true, "okay": true, "confirm": true, "confirmed": true,
	"correct": true, "right": true, "agreed": true, "true": true,
	"proceed": true, "approve": true, "approved": true, "absolutely": true,
}

var negations = map[string]bool{
	"no": true, "not": true, "don't": true, "dont": true, "wrong": true,
	"change": true, "but": true, "wait": true, "incorrect": true,
}

// Confirmation accepts only an affirmative answer.
type Confirmation struct{}

func (Confirmation) Validate(raw any) (any, error) {
	switch v := raw.(type) {
	case bool:
		if v {
			return true, nil
		}
	case string:
		words := strings.FieldsFunc(strings.ToLower(v), func(r rune) bool {
			return !(r >= 'a' && r <= 'z') && r != '\''
		})
		if len(words) > 0 && affirmatives[words[0]] && !containsAny(words[1:], negations) {
			return true, nil
		}
	}
	return nil, reject(raw, "The details were not confirmed. Please provide the corrected information.")
}

func (Confirmation) Rules() string {
	return "an explicit confirmation (yes) of the collected details"
}

func containsAny(words []string, set map[string]bool) bool {
	for _, w := range words {
		if set[w] {
			return true
		}
	}
	return false
}

// OneOf accepts a value from a closed list, ignoring case and surrounding space.
type OneOf struct {
	Options []string
}

func (v OneOf) Validate(raw any) (any, error) {
	s, ok := raw.(string)
	if ok {
		s = strings.TrimSpace(s)
		for _, opt := range v.Options {
			if strings.EqualFold(s, opt) {
				return opt, nil
			}
		}
	}
	return nil, reject(raw, "Unsupported option. Choose one of: %s.", strings.Join(v.Options, ", "))
}

func (v OneOf) Rules() string {
	return "one of: " + strings.Join(v.Options, ", ")
}

var dateToken = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

// Date accepts a calendar date in ISO format, optionally followed by other text.
type Date struct{}

func (Date) Validate(raw any) (any, error) {
	s, _ := raw.(string)
	token := dateToken.FindString(s)
	if token == "" {
		return nil, reject(raw, "A date formatted as YYYY-MM-DD is required.")
	}
	if _, err := time.Parse(time.DateOnly, token); err != nil {
		return nil, reject(raw, "%s is not a valid calendar date.", token)
	}
	return token, nil
}

func (Date) Rules() string {
	return "a calendar date formatted as YYYY-MM-DD"
}

// Func adapts a plain function to the Validator interface.
type Func struct {
	Fn          func(raw any) (any, error)
	Description string
}

func (f Func) Validate(raw any) (any, error) {
	return f.Fn(raw)
}

func (f Func) Rules() string {
	return f.Description
}
