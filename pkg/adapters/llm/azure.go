// Package llm adapts Azure OpenAI chat completions to ports.ChatModel.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Azure/azure-sdk-for-go/sdk/ai/azopenai"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"

	"github.com/aretw0/joule/internal/logging"
	"github.com/aretw0/joule/pkg/domain"
	"github.com/aretw0/joule/pkg/ports"
)

// ErrEmptyCompletion is returned when the service answers without choices.
var ErrEmptyCompletion = errors.New("no completion received from LLM")

// Config holds the Azure OpenAI connection settings.
type Config struct {
	Endpoint   string
	APIKey     string
	Deployment string
}

// Model implements ports.ChatModel on top of an Azure OpenAI deployment.
type Model struct {
	client        *azopenai.Client
	deployment    string
	temperature   *float32
	clientOptions *azopenai.ClientOptions
	logger        *slog.Logger
}

var _ ports.ChatModel = (*Model)(nil)

// Option configures the Model.
type Option func(*Model)

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) Option {
	return func(m *Model) { m.temperature = to.Ptr(t) }
}

// WithClientOptions overrides the SDK client options (transport, retries).
func WithClientOptions(o *azopenai.ClientOptions) Option {
	return func(m *Model) { m.clientOptions = o }
}

// WithLogger configures a logger for the Model.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Model) { m.logger = logger }
}

// New creates a Model authenticated with an API key.
func New(cfg Config, opts ...Option) (*Model, error) {
	if cfg.Endpoint == "" || cfg.APIKey == "" || cfg.Deployment == "" {
		return nil, fmt.Errorf("azure openai: endpoint, api key and deployment are required")
	}
	m := &Model{deployment: cfg.Deployment, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(m)
	}

	client, err := azopenai.NewClientWithKeyCredential(cfg.Endpoint, azcore.NewKeyCredential(cfg.APIKey), m.clientOptions)
	if err != nil {
		return nil, fmt.Errorf("error creating Azure OpenAI client: %w", err)
	}
	m.client = client
	return m, nil
}

// Complete sends one chat completion request.
func (m *Model) Complete(ctx context.Context, req ports.CompletionRequest) (*ports.Completion, error) {
	messages, err := toRequestMessages(req.Messages)
	if err != nil {
		return nil, err
	}
	opts := azopenai.ChatCompletionsOptions{
		DeploymentName: to.Ptr(m.deployment),
		Messages:       messages,
		Temperature:    m.temperature,
	}
	if len(req.Tools) > 0 {
		opts.Tools, err = toToolDefinitions(req.Tools)
		if err != nil {
			return nil, err
		}
	}

	resp, err := m.client.GetChatCompletions(ctx, opts, nil)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message == nil {
		return nil, ErrEmptyCompletion
	}
	if resp.Usage != nil {
		m.logger.Debug("Chat completion usage",
			"prompt_tokens", deref(resp.Usage.PromptTokens),
			"completion_tokens", deref(resp.Usage.CompletionTokens),
		)
	}

	msg := resp.Choices[0].Message
	out := &ports.Completion{}
	if msg.Content != nil {
		out.Content = *msg.Content
	}
	for _, call := range msg.ToolCalls {
		fn, ok := call.(*azopenai.ChatCompletionsFunctionToolCall)
		if !ok || fn.Function == nil {
			continue
		}
		tc := domain.ToolCall{ID: deref(fn.ID), Name: deref(fn.Function.Name)}
		if raw := deref(fn.Function.Arguments); raw != "" {
			if err := json.Unmarshal([]byte(raw), &tc.Args); err != nil {
				m.logger.Warn("Discarding malformed tool arguments", "tool", tc.Name, "err", err)
			}
		}
		out.ToolCalls = append(out.ToolCalls, tc)
	}
	return out, nil
}

func toRequestMessages(msgs []domain.Message) ([]azopenai.ChatRequestMessageClassification, error) {
	out := make([]azopenai.ChatRequestMessageClassification, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.Role {
		case domain.RoleSystem:
			out = append(out, &azopenai.ChatRequestSystemMessage{
				Content: azopenai.NewChatRequestSystemMessageContent(msg.Content),
			})
		case domain.RoleUser:
			out = append(out, &azopenai.ChatRequestUserMessage{
				Content: azopenai.NewChatRequestUserMessageContent(msg.Content),
			})
		case domain.RoleAssistant:
			am := &azopenai.ChatRequestAssistantMessage{}
			if msg.Content != "" {
				am.Content = azopenai.NewChatRequestAssistantMessageContent(msg.Content)
			}
			for _, tc := range msg.ToolCalls {
				args := []byte("{}")
				var err error
				if tc.Args != nil {
					args, err = json.Marshal(tc.Args)
				}
				if err != nil {
					return nil, fmt.Errorf("failed to encode arguments of %s: %w", tc.Name, err)
				}
				am.ToolCalls = append(am.ToolCalls, &azopenai.ChatCompletionsFunctionToolCall{
					ID:   to.Ptr(tc.ID),
					Type: to.Ptr("function"),
					Function: &azopenai.FunctionCall{
						Name:      to.Ptr(tc.Name),
						Arguments: to.Ptr(string(args)),
					},
				})
			}
			out = append(out, am)
		case domain.RoleTool:
			out = append(out, &azopenai.ChatRequestToolMessage{
				Content:    azopenai.NewChatRequestToolMessageContent(msg.Content),
				ToolCallID: to.Ptr(msg.ToolCallID),
			})
		default:
			return nil, fmt.Errorf("unsupported message role %q", msg.Role)
		}
	}
	return out, nil
}

func toToolDefinitions(tools []domain.Tool) ([]azopenai.ChatCompletionsToolDefinitionClassification, error) {
	out := make([]azopenai.ChatCompletionsToolDefinitionClassification, 0, len(tools))
	for _, t := range tools {
		schema := t.Parameters
		if schema == nil {
			schema = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		params, err := json.Marshal(schema)
		if err != nil {
			return nil, fmt.Errorf("failed to encode schema of %s: %w", t.Name, err)
		}
		out = append(out, &azopenai.ChatCompletionsFunctionToolDefinition{
			Type: to.Ptr("function"),
			Function: &azopenai.ChatCompletionsFunctionToolDefinitionFunction{
				Name:        to.Ptr(t.Name),
				Description: to.Ptr(t.Description),
				Parameters:  params,
			},
		})
	}
	return out, nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
