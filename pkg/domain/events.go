package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventTurnStart      EventType = "turn_start"
	EventTurnEnd        EventType = "turn_end"
	EventWorkflowChange EventType = "workflow_change"
	EventValidation     EventType = "validation"
	EventToolCall       EventType = "tool_call"
	EventToolReturn     EventType = "tool_return"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// TurnEvent marks the start or the end of a chat turn.
type TurnEvent struct {
	EventBase
	Workflow WorkflowName  `json:"workflow"`
	Step     int           `json:"step"`
	Duration time.Duration `json:"duration,omitempty"`
	Err      error         `json:"-"`
}

// WorkflowEvent is emitted when the LLM switches the active workflow.
type WorkflowEvent struct {
	EventBase
	From WorkflowName `json:"from"`
	To   WorkflowName `json:"to"`
}

// ValidationEvent reports the outcome of a step validator.
type ValidationEvent struct {
	EventBase
	Workflow WorkflowName `json:"workflow"`
	StepID   string       `json:"step_id"`
	Accepted bool         `json:"accepted"`
	Reason   string       `json:"reason,omitempty"`
}

// ToolEvent represents a tool execution.
type ToolEvent struct {
	EventBase
	ToolName string        `json:"tool_name"`
	Input    any           `json:"input,omitempty"`
	Output   any           `json:"output,omitempty"`
	IsError  bool          `json:"is_error,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

// LifecycleHooks defines callbacks for observability.
type LifecycleHooks struct {
	OnTurnStart      func(context.Context, *TurnEvent)
	OnTurnEnd        func(context.Context, *TurnEvent)
	OnWorkflowChange func(context.Context, *WorkflowEvent)
	OnValidation     func(context.Context, *ValidationEvent)
	OnToolCall       func(context.Context, *ToolEvent)
	OnToolReturn     func(context.Context, *ToolEvent)
}

// NewEventBase stamps an event of the given type.
func NewEventBase(t EventType, sessionID string) EventBase {
	return EventBase{Timestamp: time.Now(), Type: t, SessionID: sessionID}
}
