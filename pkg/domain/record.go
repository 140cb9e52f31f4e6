package domain

import (
	"fmt"
	"strconv"
)

// FieldKey names a value captured by a workflow step.
type FieldKey string

const (
	FieldBudget      FieldKey = "budget"
	FieldDescription FieldKey = "description"
	FieldConfirmed   FieldKey = "confirmed"
	FieldName        FieldKey = "name"
	FieldWorkType    FieldKey = "work_type"
	FieldDeadline    FieldKey = "deadline"
)

var fieldKeys = []FieldKey{FieldName, FieldWorkType, FieldDeadline, FieldBudget, FieldDescription, FieldConfirmed}

// Fields returns the values present in r, keyed by field name.
func Fields(r Record) map[string]any {
	out := make(map[string]any)
	for _, key := range fieldKeys {
		if v, ok := r.Get(key); ok {
			out[string(key)] = v
		}
	}
	return out
}

// FieldKind is the value type a field holds.
type FieldKind string

const (
	KindNumber  FieldKind = "number"
	KindText    FieldKind = "text"
	KindBoolean FieldKind = "boolean"
	KindUnknown FieldKind = "unknown"
)

// Kind returns the value type stored under the key.
func (k FieldKey) Kind() FieldKind {
	switch k {
	case FieldBudget:
		return KindNumber
	case FieldDescription, FieldName, FieldWorkType, FieldDeadline:
		return KindText
	case FieldConfirmed:
		return KindBoolean
	}
	return KindUnknown
}

// Record is the typed per-workflow storage of a session.
// Every workflow owns exactly one Record implementation.
type Record interface {
	// Step returns the current step index of the workflow.
	Step() int
	// SetStep stores the step index. Negative values are clamped to 0.
	SetStep(index int)
	// Get returns the value stored under key, or false if absent.
	Get(key FieldKey) (any, bool)
	// Set stores value under key.
	// Returns ErrUnknownField or ErrFieldType on mismatch.
	Set(key FieldKey, value any) error
	// Supports reports whether key belongs to this record.
	Supports(key FieldKey) bool
	// Reset clears every field and the step index.
	Reset()
}

// IdleData is the record of the "none" workflow. It only tracks the step.
type IdleData struct {
	StepIndex int `json:"step_index"`
}

func (d *IdleData) Step() int                     { return d.StepIndex }
func (d *IdleData) SetStep(index int)             { d.StepIndex = clampStep(index) }
func (d *IdleData) Get(FieldKey) (any, bool)      { return nil, false }
func (d *IdleData) Supports(FieldKey) bool        { return false }
func (d *IdleData) Reset()                        { *d = IdleData{} }
func (d *IdleData) Set(key FieldKey, _ any) error { return unknownField(WorkflowNone, key) }

// ProjectData holds the fields collected by the project workflow.
type ProjectData struct {
	StepIndex   int      `json:"step_index"`
	Budget      *float64 `json:"budget,omitempty"`
	Description *string  `json:"description,omitempty"`
	Confirmed   *bool    `json:"confirmed,omitempty"`
}

func (d *ProjectData) Step() int         { return d.StepIndex }
func (d *ProjectData) SetStep(index int) { d.StepIndex = clampStep(index) }
func (d *ProjectData) Reset()            { *d = ProjectData{} }

func (d *ProjectData) Supports(key FieldKey) bool {
	switch key {
	case FieldBudget, FieldDescription, FieldConfirmed:
		return true
	}
	return false
}

func (d *ProjectData) Get(key FieldKey) (any, bool) {
	switch key {
	case FieldBudget:
		return deref(d.Budget)
	case FieldDescription:
		return deref(d.Description)
	case FieldConfirmed:
		return deref(d.Confirmed)
	}
	return nil, false
}

func (d *ProjectData) Set(key FieldKey, value any) error {
	switch key {
	case FieldBudget:
		return setNumber(&d.Budget, key, value)
	case FieldDescription:
		return setText(&d.Description, key, value)
	case FieldConfirmed:
		return setBool(&d.Confirmed, key, value)
	}
	return unknownField(WorkflowProject, key)
}

func (d ProjectData) clone() ProjectData {
	d.Budget = clonePtr(d.Budget)
	d.Description = clonePtr(d.Description)
	d.Confirmed = clonePtr(d.Confirmed)
	return d
}

// BriefData holds the fields collected by the brief workflow.
type BriefData struct {
	StepIndex   int     `json:"step_index"`
	Name        *string `json:"name,omitempty"`
	WorkType    *string `json:"work_type,omitempty"`
	Deadline    *string `json:"deadline,omitempty"`
	Description *string `json:"description,omitempty"`
	Confirmed   *bool   `json:"confirmed,omitempty"`
}

func (d *BriefData) Step() int         { return d.StepIndex }
func (d *BriefData) SetStep(index int) { d.StepIndex = clampStep(index) }
func (d *BriefData) Reset()            { *d = BriefData{} }

func (d *BriefData) Supports(key FieldKey) bool {
	switch key {
	case FieldName, FieldWorkType, FieldDeadline, FieldDescription, FieldConfirmed:
		return true
	}
	return false
}

func (d *BriefData) Get(key FieldKey) (any, bool) {
	switch key {
	case FieldName:
		return deref(d.Name)
	case FieldWorkType:
		return deref(d.WorkType)
	case FieldDeadline:
		return deref(d.Deadline)
	case FieldDescription:
		return deref(d.Description)
	case FieldConfirmed:
		return deref(d.Confirmed)
	}
	return nil, false
}

func (d *BriefData) Set(key FieldKey, value any) error {
	switch key {
	case FieldName:
		return setText(&d.Name, key, value)
	case FieldWorkType:
		return setText(&d.WorkType, key, value)
	case FieldDeadline:
		return setText(&d.Deadline, key, value)
	case FieldDescription:
		return setText(&d.Description, key, value)
	case FieldConfirmed:
		return setBool(&d.Confirmed, key, value)
	}
	return unknownField(WorkflowBrief, key)
}

func (d BriefData) clone() BriefData {
	d.Name = clonePtr(d.Name)
	d.WorkType = clonePtr(d.WorkType)
	d.Deadline = clonePtr(d.Deadline)
	d.Description = clonePtr(d.Description)
	d.Confirmed = clonePtr(d.Confirmed)
	return d
}

// -- Helpers --

func clampStep(index int) int {
	if index < 0 {
		return 0
	}
	return index
}

func unknownField(w WorkflowName, key FieldKey) error {
	return fmt.Errorf("%w: %q is not part of workflow %s", ErrUnknownField, key, w)
}

func deref[T any](p *T) (any, bool) {
	if p == nil {
		return nil, false
	}
	return *p, true
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func setText(dst **string, key FieldKey, value any) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("%w: %q expects text, got %T", ErrFieldType, key, value)
	}
	*dst = &s
	return nil
}

func setBool(dst **bool, key FieldKey, value any) error {
	b, ok := value.(bool)
	if !ok {
		return fmt.Errorf("%w: %q expects boolean, got %T", ErrFieldType, key, value)
	}
	*dst = &b
	return nil
}

func setNumber(dst **float64, key FieldKey, value any) error {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: %q expects number, got %q", ErrFieldType, key, v)
		}
		f = parsed
	default:
		return fmt.Errorf("%w: %q expects number, got %T", ErrFieldType, key, value)
	}
	*dst = &f
	return nil
}
