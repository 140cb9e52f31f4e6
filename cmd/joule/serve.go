package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aretw0/joule/internal/cli"
	httpadapter "github.com/aretw0/joule/pkg/adapters/http"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Starts the chat API, the session endpoints, the event stream and the Prometheus metrics over HTTP.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.HTTP.Port, _ = cmd.Flags().GetInt("port")
		}

		app, err := cli.NewApp(cfg)
		if err != nil {
			return err
		}
		defer app.Close()

		handler := httpadapter.NewHandler(app.Chat, app.Sessions,
			httpadapter.WithStreams(app.Streams),
			httpadapter.WithMetrics(app.Metrics.Handler()),
			httpadapter.WithLogger(app.Logger),
		)
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			app.Logger.Info("Starting Joule server", "addr", srv.Addr, "store", cfg.Store.Backend)
			serverErrors <- srv.ListenAndServe()
		}()

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)
		case <-sigCtx.Done():
			app.Logger.Info("Start shutdown", "signal", sigCtx.Signal())

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				app.Logger.Warn("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
				if err := srv.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("failed to close server: %w", err)
				}
			}
			app.Logger.Info("Joule server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on (overrides http.port)")
}
