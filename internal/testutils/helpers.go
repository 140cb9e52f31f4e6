package testutils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/aretw0/joule/pkg/domain"
	"github.com/aretw0/joule/pkg/ports"
)

// ErrScriptExhausted is returned when the model is called more often than scripted.
var ErrScriptExhausted = errors.New("scripted model: no replies left")

// Reply produces one completion of a ScriptedModel.
type Reply func(ctx context.Context, req ports.CompletionRequest) (*ports.Completion, error)

// Answer replies with a structured answer. value may be nil.
func Answer(answer string, value any) Reply {
	return func(context.Context, ports.CompletionRequest) (*ports.Completion, error) {
		b, err := json.Marshal(map[string]any{"answer": answer, "extracted_value": value})
		if err != nil {
			return nil, err
		}
		return &ports.Completion{Content: string(b)}, nil
	}
}

// Text replies with unstructured content.
func Text(content string) Reply {
	return func(context.Context, ports.CompletionRequest) (*ports.Completion, error) {
		return &ports.Completion{Content: content}, nil
	}
}

// CallTool replies with a single tool call.
func CallTool(name string, args map[string]any) Reply {
	return func(_ context.Context, req ports.CompletionRequest) (*ports.Completion, error) {
		return &ports.Completion{ToolCalls: []domain.ToolCall{{
			ID:   fmt.Sprintf("call_%d", len(req.Messages)),
			Name: name,
			Args: args,
		}}}, nil
	}
}

// Fail replies with err.
func Fail(err error) Reply {
	return func(context.Context, ports.CompletionRequest) (*ports.Completion, error) {
		return nil, err
	}
}

// Hang blocks until the context is done.
func Hang() Reply {
	return func(ctx context.Context, _ ports.CompletionRequest) (*ports.Completion, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
}

// ScriptedModel is a ports.ChatModel that plays back replies in order and
// records every request it receives.
type ScriptedModel struct {
	mu       sync.Mutex
	replies  []Reply
	requests []ports.CompletionRequest
}

// NewScriptedModel creates a model that answers with replies in order.
func NewScriptedModel(replies ...Reply) *ScriptedModel {
	return &ScriptedModel{replies: replies}
}

// Enqueue appends replies to the script.
func (m *ScriptedModel) Enqueue(replies ...Reply) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, replies...)
}

func (m *ScriptedModel) Complete(ctx context.Context, req ports.CompletionRequest) (*ports.Completion, error) {
	m.mu.Lock()
	req.Messages = append([]domain.Message(nil), req.Messages...)
	m.requests = append(m.requests, req)
	if len(m.replies) == 0 {
		m.mu.Unlock()
		return nil, ErrScriptExhausted
	}
	next := m.replies[0]
	m.replies = m.replies[1:]
	m.mu.Unlock()

	return next(ctx, req)
}

// Requests returns the requests received so far.
func (m *ScriptedModel) Requests() []ports.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ports.CompletionRequest(nil), m.requests...)
}

// Remaining returns the number of unplayed replies.
func (m *ScriptedModel) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.replies)
}
