package main

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aretw0/joule/internal/cli"
	"github.com/aretw0/joule/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes the agent as an MCP server.
The chat tool runs a full turn; the business tools and the session resources are exposed as well.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("transport") {
			cfg.MCP.Transport, _ = cmd.Flags().GetString("transport")
		}
		if cmd.Flags().Changed("port") {
			cfg.MCP.Port, _ = cmd.Flags().GetInt("port")
		}

		app, err := cli.NewApp(cfg)
		if err != nil {
			return err
		}
		defer app.Close()

		srv := mcp.NewServer(app.Chat, app.Sessions,
			mcp.WithTools(app.Tools),
			mcp.WithCatalog(app.Catalog),
			mcp.WithLogger(app.Logger),
		)

		switch strings.ToLower(cfg.MCP.Transport) {
		case "stdio":
			app.Logger.Info("Starting Joule MCP server (stdio)")
			return srv.ServeStdio()
		case "sse":
			app.Logger.Info("Starting Joule MCP server (SSE)", "port", cfg.MCP.Port)
			sigCtx := cli.NewSignalContext(cmd.Context())
			defer sigCtx.Cancel()

			if err := srv.ServeSSE(sigCtx, cfg.MCP.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("mcp server failed: %w", err)
			}
			app.Logger.Info("MCP server stopped gracefully")
			return nil
		default:
			return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", cfg.MCP.Transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8081, "Port to listen on (only for SSE)")
}
