// Package cli implements the HelloBible command-line interface using Cobra.
// Each subcommand maps to one engine, tracker or session operation.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var jsonOutput bool

var rootCmd = &cobra.Command{
	Use:   "hellobible",
	Short: "HelloBible study progress, XP and streaks",
	Long: `HelloBible tracks Bible study progress on this device:
XP and levels, daily streaks, achievements and module lessons.

Progress is always saved locally first. When signed in and a remote
database is configured, every change is mirrored to it as well.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
