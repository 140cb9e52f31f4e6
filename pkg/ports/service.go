package ports

import (
	"context"
)

// TurnRequest is one inbound chat message.
type TurnRequest struct {
	Query        string   `json:"query"`
	SessionID    string   `json:"session_id"`
	Timezone     string   `json:"timezone"`
	UserMail     string   `json:"user_mail,omitempty"`
	MessageFiles []string `json:"message_files,omitempty"`
}

// TurnResponse is the agent's answer to a TurnRequest.
type TurnResponse struct {
	Answer string `json:"answer"`
}

// ChatService processes chat turns.
// This is the primary interface used by adapters (e.g., HTTP, MCP, CLI).
type ChatService interface {
	HandleTurn(ctx context.Context, req TurnRequest) (*TurnResponse, error)
}
