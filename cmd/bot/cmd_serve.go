package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"student_followup_bot/internal/app"
	"student_followup_bot/internal/infra/logger"
	"student_followup_bot/internal/infra/scheduler"
	"student_followup_bot/internal/infra/telegram"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run follow-up passes on a schedule",
	Long: `Serve starts the cron scheduler (CRON_SPEC_FOLLOWUP) and, when TELEGRAM_TOKEN
and ADMIN_TELEGRAM_ID are set, the operator bot that reports every pass and
answers /last_run and /dry_run. It stops gracefully on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: serve,
}

func serve(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := setup(ctx, cmd, true)
	if err != nil {
		return err
	}
	defer c.Close()
	mainLogger := logger.New("main")

	followUpScheduler := scheduler.NewFollowUpScheduler(c.service, logger.New("scheduler"), c.cfg.CronSpecFollowUp, c.cfg.RunTimeout)
	if err := followUpScheduler.Start(); err != nil {
		return err
	}

	if c.bot != nil {
		reports := app.NewReportService(c.ledger, c.service, c.cfg.AdminTelegramID)
		telegram.NewCommands(reports, c.cfg.AdminTelegramID, logger.New("telegram")).Register(ctx, c.bot)
		mainLogger.Info("Operator command handlers registered.")

		// Start bot in a goroutine so it doesn't block graceful shutdown handling
		go c.bot.Start()
	}

	mainLogger.Info("Application setup complete. Scheduler is running.")
	<-ctx.Done() // Block until a signal is received

	mainLogger.Info("Shutting down application...")
	followUpScheduler.Stop()
	if c.bot != nil {
		c.bot.Stop()
	}
	mainLogger.Info("Application shut down gracefully.")
	return nil
}
