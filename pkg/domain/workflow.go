package domain

import (
	"fmt"
	"strings"
)

// WorkflowName identifies one of the guided procedures a session can be in.
type WorkflowName string

const (
	WorkflowNone    WorkflowName = "none"    // Free-form conversation
	WorkflowBrief   WorkflowName = "brief"   // Collects the inputs of a creative brief
	WorkflowProject WorkflowName = "project" // Collects the inputs of a project
)

// WorkflowNames lists every known workflow in declaration order.
func WorkflowNames() []WorkflowName {
	return []WorkflowName{WorkflowNone, WorkflowBrief, WorkflowProject}
}

// Valid reports whether w is part of the closed enumeration.
func (w WorkflowName) Valid() bool {
	switch w {
	case WorkflowNone, WorkflowBrief, WorkflowProject:
		return true
	}
	return false
}

func (w WorkflowName) String() string {
	return string(w)
}

// ParseWorkflowName converts user or LLM supplied text into a WorkflowName.
func ParseWorkflowName(s string) (WorkflowName, error) {
	w := WorkflowName(strings.ToLower(strings.TrimSpace(s)))
	if !w.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownWorkflow, s)
	}
	return w, nil
}
