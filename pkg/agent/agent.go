// Package agent runs the LLM exchange of a turn: it calls the model, executes
// the tools the model requests and loops until the model produces an answer.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/joule/internal/logging"
	"github.com/aretw0/joule/pkg/domain"
	"github.com/aretw0/joule/pkg/ports"
	"github.com/aretw0/joule/pkg/prompt"
	"github.com/aretw0/joule/pkg/registry"
	"github.com/aretw0/joule/pkg/session"
)

// DefaultMaxToolRounds bounds the model calls of one exchange.
const DefaultMaxToolRounds = 8

// ErrTooManyToolRounds is returned when the model keeps requesting tools.
var ErrTooManyToolRounds = errors.New("too many tool rounds")

// SystemFunc renders the system message. It is called before every model
// round so tool side effects (e.g. a workflow switch) are reflected.
type SystemFunc func(ctx context.Context) (string, error)

// Reply is the outcome of an exchange.
type Reply struct {
	// Answer is the text for the user: the structured answer, or the raw
	// content when the model ignored the format.
	Answer string
	// ExtractedValue is the step value the model extracted, if any.
	ExtractedValue any
	// Structured is false when the final content could not be decoded.
	Structured bool
}

// Agent drives a ChatModel with a tool registry.
type Agent struct {
	model     ports.ChatModel
	tools     *registry.Registry
	maxRounds int
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
}

// Option configures the Agent.
type Option func(*Agent)

// WithMaxToolRounds overrides DefaultMaxToolRounds.
func WithMaxToolRounds(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxRounds = n
		}
	}
}

// WithLifecycleHooks registers tool call observers.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(a *Agent) { a.hooks = hooks }
}

// WithLogger configures a logger for the Agent.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) { a.logger = logger }
}

// New creates an Agent. tools may be nil.
func New(model ports.ChatModel, tools *registry.Registry, opts ...Option) *Agent {
	if tools == nil {
		tools = registry.NewRegistry()
	}
	a := &Agent{
		model:     model,
		tools:     tools,
		maxRounds: DefaultMaxToolRounds,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run sends msgs to the model and resolves tool calls until a final answer.
// When system is not nil, the leading system message is re-rendered before
// every round.
func (a *Agent) Run(ctx context.Context, msgs []domain.Message, system SystemFunc) (*Reply, error) {
	msgs = append([]domain.Message(nil), msgs...)
	defs := a.tools.Definitions()

	for round := 0; round < a.maxRounds; round++ {
		if system != nil && len(msgs) > 0 && msgs[0].Role == domain.RoleSystem {
			content, err := system(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to render system message: %w", err)
			}
			msgs[0].Content = content
		}

		start := time.Now()
		completion, err := a.model.Complete(ctx, ports.CompletionRequest{Messages: msgs, Tools: defs})
		if err != nil {
			return nil, fmt.Errorf("model call failed: %w", err)
		}
		a.logger.Debug("Model round completed",
			"round", round,
			"tool_calls", len(completion.ToolCalls),
			"duration", time.Since(start),
		)

		if len(completion.ToolCalls) == 0 {
			return a.reply(completion.Content), nil
		}

		msgs = append(msgs, domain.Message{
			Role:      domain.RoleAssistant,
			Content:   completion.Content,
			ToolCalls: completion.ToolCalls,
		})
		for _, call := range completion.ToolCalls {
			result := a.callTool(ctx, call)
			msgs = append(msgs, domain.Message{
				Role:       domain.RoleTool,
				Content:    toolContent(result),
				ToolCallID: call.ID,
			})
		}
	}

	return nil, fmt.Errorf("%w: limit is %d", ErrTooManyToolRounds, a.maxRounds)
}

func (a *Agent) reply(content string) *Reply {
	result, err := prompt.Parse(content)
	if err != nil {
		a.logger.Debug("Falling back to raw model output", "err", err)
		return &Reply{Answer: content}
	}
	return &Reply{Answer: result.Answer, ExtractedValue: result.ExtractedValue, Structured: true}
}

func (a *Agent) callTool(ctx context.Context, call domain.ToolCall) domain.ToolResult {
	sessionID, _ := session.IDFromContext(ctx)

	if a.hooks.OnToolCall != nil {
		a.hooks.OnToolCall(ctx, &domain.ToolEvent{
			EventBase: domain.NewEventBase(domain.EventToolCall, sessionID),
			ToolName:  call.Name,
			Input:     call.Args,
		})
	}

	start := time.Now()
	result := a.tools.Call(ctx, call)
	duration := time.Since(start)

	if result.IsError {
		a.logger.Warn("Tool failed", "tool", call.Name, "session_id", sessionID, "err", result.Error)
	}
	if a.hooks.OnToolReturn != nil {
		a.hooks.OnToolReturn(ctx, &domain.ToolEvent{
			EventBase: domain.NewEventBase(domain.EventToolReturn, sessionID),
			ToolName:  call.Name,
			Input:     call.Args,
			Output:    result.Result,
			IsError:   result.IsError,
			Duration:  duration,
		})
	}
	return result
}

func toolContent(r domain.ToolResult) string {
	if r.IsError {
		return "Error: " + r.Error
	}
	switch v := r.Result.(type) {
	case string:
		return v
	case nil:
		return ""
	}
	b, err := json.Marshal(r.Result)
	if err != nil {
		return fmt.Sprint(r.Result)
	}
	return string(b)
}
