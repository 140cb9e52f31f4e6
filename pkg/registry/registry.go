package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aretw0/joule/pkg/domain"
)

// ErrToolNotFound is returned when a call names an unregistered tool.
var ErrToolNotFound = errors.New("tool not found")

// ToolFunction defines the signature for a tool implementation.
// It receives a context and a map of arguments, and returns a result or error.
type ToolFunction func(ctx context.Context, args map[string]any) (any, error)

type entry struct {
	def domain.Tool
	fn  ToolFunction
}

// Registry manages the tools offered to the LLM.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]entry
	order []string
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]entry),
	}
}

// Register adds a tool to the registry.
// If a tool with the same name exists, it is overwritten in place.
func (r *Registry) Register(def domain.Tool, fn ToolFunction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[def.Name]; !exists {
		r.order = append(r.order, def.Name)
	}
	r.tools[def.Name] = entry{def: def, fn: fn}
}

// Definitions returns the tool metadata in registration order.
func (r *Registry) Definitions() []domain.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]domain.Tool, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].def)
	}
	return defs
}

// Definition returns the metadata of one tool.
func (r *Registry) Definition(name string) (domain.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.tools[name]
	return e.def, ok
}

// Execute looks up a tool by name and executes it.
// Returns ErrToolNotFound if the tool is not registered.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (any, error) {
	r.mu.RLock()
	e, ok := r.tools[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	return e.fn(ctx, args)
}

// Call executes a tool call and folds any failure into the result,
// so it can be reported back to the LLM.
func (r *Registry) Call(ctx context.Context, call domain.ToolCall) domain.ToolResult {
	result, err := r.Execute(ctx, call.Name, call.Args)
	if err != nil {
		return domain.ToolResult{ID: call.ID, IsError: true, Error: err.Error()}
	}
	return domain.ToolResult{ID: call.ID, Result: result}
}
