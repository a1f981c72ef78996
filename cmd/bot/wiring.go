package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/telebot.v3"

	"student_followup_bot/internal/app"
	"student_followup_bot/internal/domain/followup"
	"student_followup_bot/internal/domain/run"
	"student_followup_bot/internal/infra/config"
	idb "student_followup_bot/internal/infra/database"
	"student_followup_bot/internal/infra/logger"
	"student_followup_bot/internal/infra/memory"
	"student_followup_bot/internal/infra/notion"
	"student_followup_bot/internal/infra/telegram"
	"student_followup_bot/internal/infra/webhook"
)

// memoryLedgerSize bounds the in-process run history kept without a database.
const memoryLedgerSize = 50

// components is everything a command needs, built from configuration.
type components struct {
	cfg     *config.AppConfig
	service *app.FollowUpService
	ledger  run.Repository
	bot     *telebot.Bot // nil when the operator bot is not configured
	db      *sql.DB      // nil when no database is configured
}

func (c *components) Close() {
	if c.db != nil {
		c.db.Close()
	}
}

// setup loads configuration, initializes logging and wires the follow-up pipeline.
// online controls whether the operator bot contacts Telegram on startup.
func setup(ctx context.Context, cmd *cobra.Command, online bool) (*components, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("could not load application configuration: %w", err)
	}
	if cmd.Flags().Changed("dry-run") {
		cfg.DryRun = rootFlags.dryRun
	}

	logger.Init(cfg)
	mainLogger := logger.New("main")
	mainLogger.WithField("environment", cfg.Environment).WithField("dry_run", cfg.DryRun).Info("Configuration loaded.")

	c := &components{cfg: cfg}

	links := followup.DefaultCoachLinks()
	if cfg.CoachLinksFile != "" {
		links, err = followup.LoadCoachLinks(cfg.CoachLinksFile)
		if err != nil {
			return nil, err
		}
		mainLogger.WithField("coaches", links.Len()).Info("Coach scheduling links loaded.")
	}

	notionClient := notion.NewClient(notion.Config{
		BaseURL:           cfg.NotionBaseURL,
		Token:             cfg.NotionToken,
		Version:           cfg.NotionVersion,
		RequestsPerSecond: cfg.NotionRequestsPerSecond,
		Timeout:           cfg.HTTPTimeout,
	})
	students := notion.NewStudentRepository(notionClient, cfg.NotionDatabaseID, logger.New("notion"))
	relay := webhook.NewClient(cfg.WebhookURL, cfg.HTTPTimeout, logger.New("webhook"))

	if cfg.DatabaseURL != "" {
		db, err := idb.NewPostgresConnection(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("could not connect to database: %w", err)
		}
		c.db = db
		if err := idb.EnsureSchema(ctx, db); err != nil {
			c.Close()
			return nil, err
		}
		c.ledger = idb.NewPostgresRunRepository(db)
		mainLogger.Info("Database connection established successfully. Using PostgreSQL run ledger.")
	} else {
		c.ledger = memory.NewRunRepository(memoryLedgerSize)
		mainLogger.Info("DATABASE_URL not set. Using in-memory run ledger.")
	}

	c.service = app.NewFollowUpService(students, relay, c.ledger, followup.NewComposer(links), logger.New("followup"), app.Options{
		DryRun:      cfg.DryRun,
		SettleDelay: cfg.DeliverySettleDelay,
	})

	if cfg.TelegramEnabled() {
		bot, err := newBot(cfg, online)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("could not create Telegram bot: %w", err)
		}
		c.bot = bot
		c.service.SetReporter(telegram.NewRunReporter(telegram.NewTelebotAdapter(bot), cfg.AdminTelegramID, logger.New("telegram")))
		mainLogger.WithField("admin_id", cfg.AdminTelegramID).Info("Operator bot initialized.")
	}

	return c, nil
}

func newBot(cfg *config.AppConfig, online bool) (*telebot.Bot, error) {
	botLogger := logger.New("telebot")
	pref := telebot.Settings{
		Token:   cfg.TelegramToken,
		Offline: !online,
		OnError: func(err error, c telebot.Context) { // Global error handler
			entry := botLogger.WithError(err)
			if c != nil && c.Sender() != nil {
				entry = entry.WithField("sender_id", c.Sender().ID).WithField("text", c.Text())
			}
			entry.Error("Telegram handler error")
		},
	}
	if online {
		pref.Poller = &telebot.LongPoller{Timeout: 10 * time.Second}
	}
	return telebot.NewBot(pref)
}
