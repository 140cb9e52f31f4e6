package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/joule"
	"github.com/aretw0/joule/internal/logging"
	"github.com/aretw0/joule/pkg/domain"
	"github.com/aretw0/joule/pkg/ports"
	"github.com/aretw0/joule/pkg/registry"
	"github.com/aretw0/joule/pkg/session"
	"github.com/aretw0/joule/pkg/workflow"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	SessionURITemplate = "joule://sessions/{sessionId}"
	WorkflowsURI       = "joule://workflows"

	sessionURIPrefix = "joule://sessions/"
)

// ChatArgs are the arguments of the chat tool.
type ChatArgs struct {
	Query        string   `json:"query"`
	SessionID    string   `json:"session_id"`
	Timezone     string   `json:"timezone"`
	UserMail     string   `json:"user_mail,omitempty"`
	MessageFiles []string `json:"message_files,omitempty"`
}

// ChatResult aligns with the HTTP response and provides a unified structure across adapters.
type ChatResult struct {
	SessionID string `json:"session_id" jsonschema_description:"The session the turn was recorded in"`
	Answer    string `json:"answer" jsonschema_description:"The agent's reply to the user"`
}

// Sessions is what the MCP server needs from the session manager.
type Sessions interface {
	Load(ctx context.Context, sessionID string) (*domain.Session, error)
	Update(ctx context.Context, sessionID string, fn func(context.Context, *domain.Session) error) error
}

// Server wraps the chat service and exposes it as an MCP Server.
type Server struct {
	chat      ports.ChatService
	sessions  Sessions
	tools     *registry.Registry
	catalog   *workflow.Catalog
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures a Server.
type Option func(*Server)

// WithTools exposes every tool of reg. Calls carrying a session_id run
// against that session and commit on success.
func WithTools(reg *registry.Registry) Option {
	return func(s *Server) { s.tools = reg }
}

// WithCatalog overrides the workflow catalog published as a resource.
func WithCatalog(c *workflow.Catalog) Option {
	return func(s *Server) { s.catalog = c }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// NewServer creates a new MCP Server instance.
func NewServer(chat ports.ChatService, sessions Sessions, opts ...Option) *Server {
	s := &Server{
		chat:     chat,
		sessions: sessions,
		catalog:  workflow.Default(),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.mcpServer = server.NewMCPServer("joule-mcp", strings.TrimSpace(joule.Version),
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops when ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: chat
	chatTool := mcp.NewTool("chat",
		mcp.WithDescription("Send one user message to the agent and return its answer."),
		mcp.WithString("query", mcp.Required(), mcp.Description("The user message")),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Conversation identifier")),
		mcp.WithString("timezone", mcp.Description("IANA timezone of the user (default UTC)")),
		mcp.WithString("user_mail", mcp.Description("E-mail of the user")),
		mcp.WithArray("message_files", mcp.Description("Names of attached files"), mcp.Items(map[string]any{"type": "string"})),
		mcp.WithOutputSchema[ChatResult](),
	)
	s.mcpServer.AddTool(chatTool, mcp.NewStructuredToolHandler(s.handleChat))

	// TOOL: get_session
	s.mcpServer.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Get the workflow, captured fields and history of a session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Conversation identifier")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("session_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		data, err := s.sessionJSON(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	})

	if s.tools == nil {
		return
	}
	for _, def := range s.tools.Definitions() {
		schema, err := json.Marshal(withSessionID(def.Parameters))
		if err != nil {
			s.logger.Error("MCP: Skipping tool with invalid schema", "tool", def.Name, "err", err)
			continue
		}
		s.mcpServer.AddTool(mcp.NewToolWithRawSchema(def.Name, def.Description, schema), s.toolHandler(def.Name))
	}
}

func (s *Server) handleChat(ctx context.Context, _ mcp.CallToolRequest, args ChatArgs) (ChatResult, error) {
	if args.Timezone == "" {
		args.Timezone = "UTC"
	}
	resp, err := s.chat.HandleTurn(ctx, ports.TurnRequest{
		Query:        args.Query,
		SessionID:    args.SessionID,
		Timezone:     args.Timezone,
		UserMail:     args.UserMail,
		MessageFiles: args.MessageFiles,
	})
	if err != nil {
		s.logger.Error("MCP chat failed", "session_id", args.SessionID, "err", err)
		return ChatResult{}, fmt.Errorf("chat failed: %w", err)
	}
	return ChatResult{SessionID: args.SessionID, Answer: resp.Answer}, nil
}

// toolHandler runs a registry tool, inside the session transaction when a session_id is given.
func (s *Server) toolHandler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := maps.Clone(request.GetArguments())
		if args == nil {
			args = map[string]any{}
		}
		id, _ := args["session_id"].(string)
		delete(args, "session_id")

		var result domain.ToolResult
		call := domain.ToolCall{ID: name, Name: name, Args: args}
		if id == "" {
			result = s.tools.Call(ctx, call)
		} else {
			err := s.sessions.Update(ctx, id, func(ctx context.Context, _ *domain.Session) error {
				result = s.tools.Call(ctx, call)
				if result.IsError {
					return errors.New(result.Error)
				}
				return nil
			})
			if err != nil && !result.IsError {
				return mcp.NewToolResultError(err.Error()), nil
			}
		}

		if result.IsError {
			return mcp.NewToolResultError(result.Error), nil
		}
		if text, ok := result.Result.(string); ok {
			return mcp.NewToolResultText(text), nil
		}
		data, err := json.Marshal(result.Result)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

// withSessionID adds the optional session_id property to a tool schema.
func withSessionID(params map[string]any) map[string]any {
	schema := maps.Clone(params)
	if schema == nil {
		schema = map[string]any{}
	}
	schema["type"] = "object"
	props, _ := schema["properties"].(map[string]any)
	props = maps.Clone(props)
	if props == nil {
		props = map[string]any{}
	}
	props["session_id"] = map[string]any{
		"type":        "string",
		"description": "Session the tool acts on. Required by workflow and create tools.",
	}
	schema["properties"] = props
	return schema
}

func (s *Server) sessionJSON(ctx context.Context, id string) ([]byte, error) {
	sess, err := s.sessions.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load session %q: %w", id, err)
	}
	return json.Marshal(session.NewView(sess))
}

type workflowView struct {
	Name        domain.WorkflowName `json:"name"`
	Instruction string              `json:"instruction"`
	Steps       []stepView          `json:"steps"`
}

type stepView struct {
	ID          string `json:"id"`
	Field       string `json:"field,omitempty"`
	Instruction string `json:"instruction"`
}

func (s *Server) workflows() []workflowView {
	var out []workflowView
	for _, name := range s.catalog.Names() {
		wv := workflowView{Name: name, Instruction: s.catalog.Instruction(name), Steps: []stepView{}}
		for i, st := range s.catalog.Steps(name) {
			wv.Steps = append(wv.Steps, stepView{
				ID:          st.ID,
				Field:       string(st.Field),
				Instruction: s.catalog.StepInstruction(name, i),
			})
		}
		out = append(out, wv)
	}
	return out
}

func (s *Server) registerResources() {
	// EXPOSE: joule://workflows
	s.mcpServer.AddResource(mcp.NewResource(WorkflowsURI, "Workflow Catalog",
		mcp.WithResourceDescription("Guided workflows with their steps and expected inputs"),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		data, err := json.Marshal(s.workflows())
		if err != nil {
			return nil, fmt.Errorf("failed to encode workflows: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: WorkflowsURI, MIMEType: "application/json", Text: string(data)},
		}, nil
	})

	// EXPOSE: joule://sessions/{sessionId}
	template := mcp.NewResourceTemplate(SessionURITemplate, "Session",
		mcp.WithTemplateDescription("Workflow state and history of a conversation"),
		mcp.WithTemplateMIMEType("application/json"),
	)
	s.mcpServer.AddResourceTemplate(template, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		id := strings.TrimPrefix(request.Params.URI, sessionURIPrefix)
		if id == "" || id == request.Params.URI {
			return nil, fmt.Errorf("invalid session URI: %s", request.Params.URI)
		}
		data, err := s.sessionJSON(ctx, id)
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: request.Params.URI, MIMEType: "application/json", Text: string(data)},
		}, nil
	})
}
