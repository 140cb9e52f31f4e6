package llm_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/ai/azopenai"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/joule/pkg/adapters/llm"
	"github.com/aretw0/joule/pkg/domain"
	"github.com/aretw0/joule/pkg/ports"
)

type fakeService struct {
	mu       sync.Mutex
	bodies   []map[string]any
	paths    []string
	apiKeys  []string
	status   int
	response string
}

func (f *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var body map[string]any
	_ = json.Unmarshal(raw, &body)

	f.mu.Lock()
	f.bodies = append(f.bodies, body)
	f.paths = append(f.paths, r.URL.Path)
	f.apiKeys = append(f.apiKeys, r.Header.Get("api-key"))
	status, response := f.status, f.response
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = io.WriteString(w, response)
}

func newModel(t *testing.T, svc *fakeService) *llm.Model {
	t.Helper()
	srv := httptest.NewTLSServer(svc)
	t.Cleanup(srv.Close)

	m, err := llm.New(
		llm.Config{Endpoint: srv.URL, APIKey: "secret", Deployment: "gpt-test"},
		llm.WithTemperature(0.2),
		llm.WithClientOptions(&azopenai.ClientOptions{ClientOptions: azcore.ClientOptions{
			Transport: srv.Client(),
			Retry:     policy.RetryOptions{MaxRetries: -1},
		}}),
	)
	require.NoError(t, err)
	return m
}

const textCompletion = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1760000000,
  "model": "gpt-test",
  "choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "{\"answer\": \"Hi\"}"}}],
  "usage": {"prompt_tokens": 10, "completion_tokens": 3, "total_tokens": 13}
}`

const toolCompletion = `{
  "id": "chatcmpl-2",
  "object": "chat.completion",
  "created": 1760000000,
  "model": "gpt-test",
  "choices": [{"index": 0, "finish_reason": "tool_calls", "message": {
    "role": "assistant",
    "content": null,
    "tool_calls": [{"id": "call_1", "type": "function", "function": {"name": "set_active_workflow", "arguments": "{\"workflow\":\"project\"}"}}]
  }}]
}`

func TestModel_Complete_Text(t *testing.T) {
	svc := &fakeService{response: textCompletion}
	m := newModel(t, svc)

	out, err := m.Complete(context.Background(), ports.CompletionRequest{
		Messages: []domain.Message{
			domain.SystemMessage("be nice"),
			{Role: domain.RoleUser, Content: "hello"},
			{Role: domain.RoleAssistant, Content: "", ToolCalls: []domain.ToolCall{{ID: "call_0", Name: "relative_date", Args: map[string]any{"offset_days": 1}}}},
			{Role: domain.RoleTool, Content: "2026-10-19 (Monday)", ToolCallID: "call_0"},
		},
		Tools: []domain.Tool{{Name: "relative_date", Description: "dates", Parameters: map[string]any{"type": "object"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"answer": "Hi"}`, out.Content)
	assert.Empty(t, out.ToolCalls)

	require.Len(t, svc.bodies, 1)
	assert.True(t, strings.Contains(svc.paths[0], "/openai/deployments/gpt-test/chat/completions"), svc.paths[0])
	assert.Equal(t, "secret", svc.apiKeys[0])

	body := svc.bodies[0]
	assert.InDelta(t, 0.2, body["temperature"], 1e-6)

	msgs := body["messages"].([]any)
	require.Len(t, msgs, 4)
	roles := make([]string, 0, len(msgs))
	for _, raw := range msgs {
		roles = append(roles, raw.(map[string]any)["role"].(string))
	}
	assert.Equal(t, []string{"system", "user", "assistant", "tool"}, roles)
	assert.Equal(t, "call_0", msgs[3].(map[string]any)["tool_call_id"])

	call := msgs[2].(map[string]any)["tool_calls"].([]any)[0].(map[string]any)
	assert.Equal(t, `{"offset_days":1}`, call["function"].(map[string]any)["arguments"])

	tools := body["tools"].([]any)
	require.Len(t, tools, 1)
	fn := tools[0].(map[string]any)["function"].(map[string]any)
	assert.Equal(t, "relative_date", fn["name"])
}

func TestModel_Complete_ToolCalls(t *testing.T) {
	m := newModel(t, &fakeService{response: toolCompletion})

	out, err := m.Complete(context.Background(), ports.CompletionRequest{
		Messages: []domain.Message{domain.UserMessage("project please")},
	})
	require.NoError(t, err)
	assert.Empty(t, out.Content)
	assert.Equal(t, []domain.ToolCall{{
		ID:   "call_1",
		Name: "set_active_workflow",
		Args: map[string]any{"workflow": "project"},
	}}, out.ToolCalls)
}

func TestModel_Complete_Errors(t *testing.T) {
	m := newModel(t, &fakeService{status: http.StatusUnauthorized, response: `{"error": {"code": "401", "message": "bad key"}}`})
	_, err := m.Complete(context.Background(), ports.CompletionRequest{Messages: []domain.Message{domain.UserMessage("x")}})
	require.Error(t, err)
	var respErr *azcore.ResponseError
	assert.ErrorAs(t, err, &respErr)

	m = newModel(t, &fakeService{response: `{"id": "x", "choices": []}`})
	_, err = m.Complete(context.Background(), ports.CompletionRequest{Messages: []domain.Message{domain.UserMessage("x")}})
	assert.ErrorIs(t, err, llm.ErrEmptyCompletion)

	_, err = m.Complete(context.Background(), ports.CompletionRequest{Messages: []domain.Message{{Role: "narrator"}}})
	assert.ErrorContains(t, err, "unsupported message role")
}

func TestNew_RequiresSettings(t *testing.T) {
	_, err := llm.New(llm.Config{Endpoint: "https://example.openai.azure.com"})
	assert.Error(t, err)
}
