package workflow

import (
	"errors"
	"fmt"

	"github.com/aretw0/joule/pkg/domain"
)

// Step is one guided question of a workflow.
type Step struct {
	ID          string
	Field       domain.FieldKey // Empty for steps that capture nothing
	Instruction string
	Validator   Validator // Nil when the step accepts any input
}

// Workflow is the static definition of a guided process.
type Workflow struct {
	Name        domain.WorkflowName
	Instruction string
	Steps       []Step
	// CompleteInstruction drives the agent once every step has been validated.
	CompleteInstruction string
}

// StepState is the position of a session inside a workflow.
type StepState struct {
	Index    int
	Step     *Step // Nil when out of range or terminal
	Terminal bool  // Every step has been validated
}

// Catalog is the read-only registry of workflows.
type Catalog struct {
	workflows map[domain.WorkflowName]Workflow
}

// NewCatalog validates the definitions and builds a Catalog.
// Every step field must belong to the workflow's record and step IDs must be unique.
func NewCatalog(workflows ...Workflow) (*Catalog, error) {
	c := &Catalog{workflows: make(map[domain.WorkflowName]Workflow, len(workflows))}
	var errs []error

	for _, w := range workflows {
		if !w.Name.Valid() {
			errs = append(errs, fmt.Errorf("%w: %q", domain.ErrUnknownWorkflow, w.Name))
			continue
		}
		if _, dup := c.workflows[w.Name]; dup {
			errs = append(errs, fmt.Errorf("workflow %q defined twice", w.Name))
			continue
		}

		record := domain.NewSession("").Record(w.Name)
		seen := make(map[string]bool, len(w.Steps))
		for i, step := range w.Steps {
			if step.ID == "" {
				errs = append(errs, fmt.Errorf("workflow %q step %d has no id", w.Name, i))
			}
			if seen[step.ID] {
				errs = append(errs, fmt.Errorf("workflow %q step %q defined twice", w.Name, step.ID))
			}
			seen[step.ID] = true

			if step.Field != "" && !record.Supports(step.Field) {
				errs = append(errs, fmt.Errorf("workflow %q step %q: %w: %q", w.Name, step.ID, domain.ErrUnknownField, step.Field))
			}
			if step.Validator != nil && step.Field == "" {
				errs = append(errs, fmt.Errorf("workflow %q step %q has a validator but no field", w.Name, step.ID))
			}
		}

		w.Steps = append([]Step(nil), w.Steps...)
		c.workflows[w.Name] = w
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return c, nil
}

// MustCatalog is like NewCatalog but panics on invalid definitions.
func MustCatalog(workflows ...Workflow) *Catalog {
	c, err := NewCatalog(workflows...)
	if err != nil {
		panic(err)
	}
	return c
}

// Names returns the registered workflow names in canonical order.
func (c *Catalog) Names() []domain.WorkflowName {
	var names []domain.WorkflowName
	for _, n := range domain.WorkflowNames() {
		if _, ok := c.workflows[n]; ok {
			names = append(names, n)
		}
	}
	return names
}

// Get returns the definition of a workflow.
func (c *Catalog) Get(name domain.WorkflowName) (Workflow, bool) {
	w, ok := c.workflows[name]
	return w, ok
}

// Instruction returns the workflow-level instruction, or "" when unknown.
func (c *Catalog) Instruction(name domain.WorkflowName) string {
	return c.workflows[name].Instruction
}

// Steps returns a copy of the ordered step list.
func (c *Catalog) Steps(name domain.WorkflowName) []Step {
	return append([]Step(nil), c.workflows[name].Steps...)
}

// State resolves a step index. Indices past the last step are terminal
// for workflows that have steps.
func (c *Catalog) State(name domain.WorkflowName, index int) StepState {
	steps := c.workflows[name].Steps
	state := StepState{Index: index}
	switch {
	case index < 0:
	case index < len(steps):
		step := steps[index]
		state.Step = &step
	case len(steps) > 0:
		state.Terminal = true
	}
	return state
}

// StepInstruction returns the instruction of the step at index, followed by
// the validator's rules. The terminal state yields CompleteInstruction.
// Out of range indices yield "".
func (c *Catalog) StepInstruction(name domain.WorkflowName, index int) string {
	state := c.State(name, index)
	if state.Terminal {
		return c.workflows[name].CompleteInstruction
	}
	if state.Step == nil {
		return ""
	}
	if state.Step.Validator == nil {
		return state.Step.Instruction
	}
	return fmt.Sprintf("%s Expected input: %s.", state.Step.Instruction, state.Step.Validator.Rules())
}

// Validator returns the validator of the step at index, or nil.
func (c *Catalog) Validator(name domain.WorkflowName, index int) Validator {
	if step := c.State(name, index).Step; step != nil {
		return step.Validator
	}
	return nil
}

// Field returns the field captured by the step at index.
func (c *Catalog) Field(name domain.WorkflowName, index int) (domain.FieldKey, bool) {
	step := c.State(name, index).Step
	if step == nil || step.Field == "" {
		return "", false
	}
	return step.Field, true
}
