/*
Package joule is a conversational intake agent backed by an LLM with tool calling.

Users chat freely until they ask to start a guided workflow (a project or a creative brief).
The agent then walks them through the workflow steps, validates every answer, stores the
collected fields in the session and finally creates the record through the CRM.

# Architecture

Joule follows a hexagonal layout. The core packages own the behavior and the adapters
plug it into the outside world:

  - pkg/chat orchestrates a turn: prompt, LLM exchange, step validation, history.
  - pkg/agent runs the tool-calling loop against a ports.ChatModel.
  - pkg/workflow is the static catalog of workflows, steps and validators.
  - pkg/session serializes every mutation of a session and commits only on success.
  - pkg/tools and pkg/registry expose the business tools to the model.
  - pkg/adapters holds the Azure OpenAI model, the memory, file and Redis stores,
    the HTTP and MCP servers and the external process tools.

# Usage

The joule command wires everything from a YAML file overlaid by environment variables:

	joule serve --config joule.yaml   # HTTP API, event stream and metrics
	joule chat --session demo         # interactive terminal session
	joule mcp --transport stdio       # Model Context Protocol server

Embedding the agent in another program takes a store, a model and the tools:

	sessions := session.NewManager(memory.NewStore())
	reg := tools.New(memory.NewCRM()).NewRegistry()
	svc := chat.NewService(sessions, agent.New(model, reg))

	resp, err := svc.HandleTurn(ctx, ports.TurnRequest{
		Query:     "I want to start a project",
		SessionID: "session-123",
		Timezone:  "Europe/Warsaw",
	})
*/
package joule
