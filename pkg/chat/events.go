package chat

import (
	"context"

	"github.com/aretw0/joule/pkg/domain"
)

// turnEvents holds the state-change events of one turn until it commits.
// A rolled back turn never switched workflow nor stored a value, so its
// events are dropped.
type turnEvents struct {
	hooks   domain.LifecycleHooks
	pending []func(context.Context)
}

func (e *turnEvents) workflowChange(ev *domain.WorkflowEvent) {
	if e.hooks.OnWorkflowChange == nil {
		return
	}
	e.pending = append(e.pending, func(ctx context.Context) { e.hooks.OnWorkflowChange(ctx, ev) })
}

func (e *turnEvents) validation(ev *domain.ValidationEvent) {
	if e.hooks.OnValidation == nil {
		return
	}
	e.pending = append(e.pending, func(ctx context.Context) { e.hooks.OnValidation(ctx, ev) })
}

// flush delivers the buffered events in emission order.
func (e *turnEvents) flush(ctx context.Context) {
	for _, fn := range e.pending {
		fn(ctx)
	}
	e.pending = nil
}
