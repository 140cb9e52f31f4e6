package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/joule/pkg/domain"
)

// LoggingHooks returns lifecycle hooks that write structured log records.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTurnStart: func(ctx context.Context, e *domain.TurnEvent) {
			logger.Debug("turn_start", "session_id", e.SessionID, "workflow", e.Workflow, "step", e.Step)
		},
		OnTurnEnd: func(ctx context.Context, e *domain.TurnEvent) {
			attrs := []any{"session_id", e.SessionID, "workflow", e.Workflow, "step", e.Step, "duration", e.Duration}
			if e.Err != nil {
				logger.Warn("turn_end", append(attrs, "err", e.Err)...)
				return
			}
			logger.Info("turn_end", attrs...)
		},
		OnWorkflowChange: func(ctx context.Context, e *domain.WorkflowEvent) {
			logger.Info("workflow_change", "session_id", e.SessionID, "from", e.From, "to", e.To)
		},
		OnValidation: func(ctx context.Context, e *domain.ValidationEvent) {
			logger.Info("validation",
				"session_id", e.SessionID,
				"workflow", e.Workflow,
				"step_id", e.StepID,
				"accepted", e.Accepted,
				"reason", e.Reason,
			)
		},
		OnToolCall: func(ctx context.Context, e *domain.ToolEvent) {
			logger.Debug("tool_call", "session_id", e.SessionID, "tool_name", e.ToolName)
		},
		OnToolReturn: func(ctx context.Context, e *domain.ToolEvent) {
			logger.Debug("tool_return",
				"session_id", e.SessionID,
				"tool_name", e.ToolName,
				"is_error", e.IsError,
				"duration", e.Duration,
			)
		},
	}
}

// Combine fans every event out to each set of hooks in order.
func Combine(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTurnStart: func(ctx context.Context, e *domain.TurnEvent) {
			for _, h := range sets {
				if h.OnTurnStart != nil {
					h.OnTurnStart(ctx, e)
				}
			}
		},
		OnTurnEnd: func(ctx context.Context, e *domain.TurnEvent) {
			for _, h := range sets {
				if h.OnTurnEnd != nil {
					h.OnTurnEnd(ctx, e)
				}
			}
		},
		OnWorkflowChange: func(ctx context.Context, e *domain.WorkflowEvent) {
			for _, h := range sets {
				if h.OnWorkflowChange != nil {
					h.OnWorkflowChange(ctx, e)
				}
			}
		},
		OnValidation: func(ctx context.Context, e *domain.ValidationEvent) {
			for _, h := range sets {
				if h.OnValidation != nil {
					h.OnValidation(ctx, e)
				}
			}
		},
		OnToolCall: func(ctx context.Context, e *domain.ToolEvent) {
			for _, h := range sets {
				if h.OnToolCall != nil {
					h.OnToolCall(ctx, e)
				}
			}
		},
		OnToolReturn: func(ctx context.Context, e *domain.ToolEvent) {
			for _, h := range sets {
				if h.OnToolReturn != nil {
					h.OnToolReturn(ctx, e)
				}
			}
		},
	}
}
