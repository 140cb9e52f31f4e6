package ports

import (
	"context"

	"github.com/aretw0/joule/pkg/domain"
)

// CompletionRequest is a single round-trip to the LLM.
type CompletionRequest struct {
	Messages []domain.Message
	Tools    []domain.Tool
}

// Completion is the assistant message produced by the LLM.
// Either Content is final or ToolCalls must be executed and fed back.
type Completion struct {
	Content   string
	ToolCalls []domain.ToolCall
}

// ChatModel is the LLM backend.
type ChatModel interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}
