package main

import (
	"context"
	"fmt"

	"github.com/aretw0/joule/internal/presentation/graph"
	"github.com/aretw0/joule/pkg/session"
	"github.com/aretw0/joule/pkg/workflow"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the workflow visualization",
	Long:  `Outputs a Mermaid diagram (graph TD) of the guided workflows. With --session, the position of that session is highlighted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")
		if sessionID == "" {
			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(workflow.Default(), nil))
			return nil
		}
		return withSessions(cmd, func(ctx context.Context, sessions *session.Manager) error {
			s, err := sessions.Load(ctx, sessionID)
			if err != nil {
				return fmt.Errorf("failed to load session '%s': %w", sessionID, err)
			}
			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(workflow.Default(), graph.OverlayFor(s)))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringP("session", "s", "", "Highlight the position of this session")
}
