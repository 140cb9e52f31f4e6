package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/joule"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of joule",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "joule version %s\n", strings.TrimSpace(joule.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
