package domain

// ToolCall represents a request from the LLM to perform a side-effect.
// Compatible with OpenAI/MCP tool call schemas.
type ToolCall struct {
	ID   string         `json:"id" mapstructure:"id"`               // Unique ID for this specific call (from the LLM)
	Name string         `json:"name" mapstructure:"name"`           // Function name to call
	Args map[string]any `json:"args,omitempty" mapstructure:"args"` // Decoded arguments
}

// ToolResult represents the output of a side-effect.
type ToolResult struct {
	ID      string `json:"id"` // Must match the ToolCall.ID
	Result  any    `json:"result,omitempty"`
	IsError bool   `json:"is_error,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Tool defines metadata about a tool available to the LLM.
// Parameters is a JSON schema object.
type Tool struct {
	Name        string         `json:"name" yaml:"name" mapstructure:"name"`
	Description string         `json:"description" yaml:"description" mapstructure:"description"`
	Parameters  map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty" mapstructure:"parameters"`
}

// Message is one entry of the sequence exchanged with the LLM.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// SystemMessage builds a system message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage builds a user message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// MessagesFromHistory converts history turns into LLM messages.
func MessagesFromHistory(turns []Turn) []Message {
	out := make([]Message, 0, len(turns))
	for _, t := range turns {
		out = append(out, Message{Role: t.Role, Content: t.Content})
	}
	return out
}
