package main

import (
	"fmt"
	"os"

	"github.com/aretw0/joule/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "joule",
	Short:         "Joule is a conversational intake agent",
	Long:          `Joule chats with users, guides them through the project and brief workflows and records the collected data.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to the YAML configuration (default "+config.DefaultPath+" if present)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
}

// loadConfig reads the --config file, overlays the environment and the --debug flag.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	required := path != ""
	if path == "" {
		path = config.DefaultPath
	}
	cfg, err := config.Load(path, required)
	if err != nil {
		return cfg, err
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Debug = true
	}
	return cfg, nil
}
