package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	dryRun bool
}

var rootCmd = &cobra.Command{
	Use:   "followup-bot",
	Short: "Automated follow-up messages for students in the career support process",
	Long: `followup-bot reads student records from the Notion database, decides which
students are due a follow-up message or a status change, sends the messages
through the Zapier webhook and writes the new state back to Notion.

Configuration is read from the environment (and a .env file when present).`,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&rootFlags.dryRun, "dry-run", false, "Classify and log without sending messages or updating records (overrides DRY_RUN)")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
