package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"student_followup_bot/internal/app"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one follow-up pass and exit",
	Long: `Run fetches every graduated student waiting to be placed, classifies them,
delivers the resulting messages as one batch and writes the state changes back.

  followup-bot run             # live pass
  followup-bot run --dry-run   # log what would happen, change nothing`,
	Args: cobra.NoArgs,
	RunE: runOnce,
}

func runOnce(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := setup(ctx, cmd, false)
	if err != nil {
		return err
	}
	defer c.Close()

	if c.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.RunTimeout)
		defer cancel()
	}

	r, runErr := c.service.Run(ctx)
	if r != nil {
		fmt.Fprintln(cmd.OutOrStdout(), app.FormatRunSummary(r))
	}
	return runErr
}
