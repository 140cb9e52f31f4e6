package main

import (
	"context"

	"github.com/aretw0/joule/internal/cli"
	"github.com/aretw0/joule/pkg/session"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage persistent sessions",
	Long:  `List, inspect, and remove sessions in the configured store.`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all stored sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSessions(cmd, func(ctx context.Context, sessions *session.Manager) error {
			return cli.ListSessions(ctx, sessions, cmd.OutOrStdout())
		})
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <session-id>",
	Short: "Inspect the state of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSessions(cmd, func(ctx context.Context, sessions *session.Manager) error {
			return cli.InspectSession(ctx, sessions, args[0], cmd.OutOrStdout())
		})
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <session-id>...",
	Short: "Remove one or more sessions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSessions(cmd, func(ctx context.Context, sessions *session.Manager) error {
			return cli.RemoveSessions(ctx, sessions, args, cmd.OutOrStdout())
		})
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd)
	sessionCmd.AddCommand(sessionInspectCmd)
	sessionCmd.AddCommand(sessionRmCmd)
}

// withSessions opens the configured store without the model, which these commands never need.
func withSessions(cmd *cobra.Command, fn func(context.Context, *session.Manager) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, locker, closer, err := cli.NewStore(cfg.Store)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer()
	}
	var opts []session.Option
	if locker != nil {
		opts = append(opts, session.WithLocker(locker), session.WithLockTTL(cfg.EffectiveLockTTL()))
	}
	return fn(cmd.Context(), session.NewManager(store, opts...))
}
