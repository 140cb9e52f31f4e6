package domain

import (
	"fmt"
	"time"
)

// Role identifies the author of a history turn or LLM message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Turn is a single entry of a conversation history.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// UserTurn builds a history entry authored by the end user.
func UserTurn(content string) Turn {
	return Turn{Role: RoleUser, Content: content}
}

// AssistantTurn builds a history entry authored by the agent.
func AssistantTurn(content string) Turn {
	return Turn{Role: RoleAssistant, Content: content}
}

// Session represents the durable state of one conversation.
type Session struct {
	ID string `json:"id"`

	// History is append-only. Insertion order is the conversation order.
	History []Turn `json:"history"`

	// ActiveWorkflow is the guided procedure currently driving the dialogue.
	ActiveWorkflow WorkflowName `json:"active_workflow"`

	// Per-workflow records. Each keeps its own step index and captured fields.
	Idle    IdleData    `json:"idle"`
	Project ProjectData `json:"project"`
	Brief   BriefData   `json:"brief"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Sealed carries an encrypted snapshot when the store encrypts at rest.
	// Live sessions never set it.
	Sealed string `json:"sealed,omitempty"`
}

// NewSession creates an empty session in the "none" workflow.
func NewSession(id string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:             id,
		History:        []Turn{},
		ActiveWorkflow: WorkflowNone,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Clone returns a deep copy that shares no memory with s.
func (s *Session) Clone() *Session {
	c := *s
	c.History = s.Read()
	c.Project = s.Project.clone()
	c.Brief = s.Brief.clone()
	return &c
}

// Read returns a copy of the history.
func (s *Session) Read() []Turn {
	out := make([]Turn, len(s.History))
	copy(out, s.History)
	return out
}

// Append adds turns to the history in the order given.
func (s *Session) Append(turns ...Turn) {
	s.History = append(s.History, turns...)
}

// Workflow returns the active workflow, defaulting to WorkflowNone.
func (s *Session) Workflow() WorkflowName {
	if !s.ActiveWorkflow.Valid() {
		return WorkflowNone
	}
	return s.ActiveWorkflow
}

// SetWorkflow activates w, resetting its step index and captured fields.
// Records of other workflows are left untouched.
func (s *Session) SetWorkflow(w WorkflowName) error {
	rec := s.Record(w)
	if rec == nil {
		return unknownWorkflow(w)
	}
	s.ActiveWorkflow = w
	rec.Reset()
	return nil
}

// Record returns the storage of workflow w, or nil if w is unknown.
func (s *Session) Record(w WorkflowName) Record {
	switch w {
	case WorkflowNone:
		return &s.Idle
	case WorkflowProject:
		return &s.Project
	case WorkflowBrief:
		return &s.Brief
	}
	return nil
}

// StepIndex returns the step index of the active workflow.
func (s *Session) StepIndex() int {
	return s.Record(s.Workflow()).Step()
}

// SetStepIndex stores the step index of the active workflow.
// Negative values are clamped to 0.
func (s *Session) SetStepIndex(index int) {
	s.Record(s.Workflow()).SetStep(index)
}

// AdvanceStep moves the active workflow one step forward.
func (s *Session) AdvanceStep() {
	s.SetStepIndex(s.StepIndex() + 1)
}

// SetValue stores a captured field in the record of workflow w.
func (s *Session) SetValue(w WorkflowName, key FieldKey, value any) error {
	rec := s.Record(w)
	if rec == nil {
		return unknownWorkflow(w)
	}
	return rec.Set(key, value)
}

// Value returns a captured field of workflow w, or nil if absent.
func (s *Session) Value(w WorkflowName, key FieldKey) any {
	rec := s.Record(w)
	if rec == nil {
		return nil
	}
	v, ok := rec.Get(key)
	if !ok {
		return nil
	}
	return v
}

func unknownWorkflow(w WorkflowName) error {
	return fmt.Errorf("%w: %q", ErrUnknownWorkflow, w)
}
