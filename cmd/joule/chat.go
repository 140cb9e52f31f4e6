package main

import (
	"log/slog"
	"os"

	"github.com/aretw0/joule"
	"github.com/aretw0/joule/internal/cli"
	"github.com/aretw0/joule/internal/logging"
	"github.com/aretw0/joule/internal/presentation/tui"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the agent in the terminal",
	Long: `Starts an interactive session. Each line is one message; answers are rendered as markdown.
Type 'exit' or press Ctrl+C to leave. Reuse --session to resume a stored conversation.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		var opts []cli.AppOption
		if !cfg.Debug {
			// Keep informational logs out of the conversation.
			opts = append(opts, cli.WithLogger(logging.NewWithFormat(os.Stderr, slog.LevelWarn, cfg.LogFormat)))
		}
		app, err := cli.NewApp(cfg, opts...)
		if err != nil {
			return err
		}
		defer app.Close()

		sessionID, _ := cmd.Flags().GetString("session")
		if sessionID == "" {
			sessionID = uuid.NewString()
		}
		timezone, _ := cmd.Flags().GetString("timezone")
		userMail, _ := cmd.Flags().GetString("user-mail")

		tui.PrintBanner(os.Stdout, joule.Version)

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		err = cli.RunChat(sigCtx, app.Chat, cli.ChatOptions{
			SessionID: sessionID,
			Timezone:  timezone,
			UserMail:  userMail,
			In:        os.Stdin,
			Out:       os.Stdout,
			Render:    tui.NewRenderer(os.Stdout),
		})
		return cli.HandleExecutionError(err)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringP("session", "s", "", "Session id to resume (default: a new random id)")
	chatCmd.Flags().String("timezone", "UTC", "IANA timezone of the user")
	chatCmd.Flags().String("user-mail", "", "E-mail of the user, forwarded to the prompt")
}
