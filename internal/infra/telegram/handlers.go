package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"student_followup_bot/internal/app"
)

const unauthorizedReply = "Error: you are not allowed to run this command."

// Commands holds the operator command handlers. Every reply is produced by a
// plain method so the handlers stay thin.
type Commands struct {
	reports         *app.ReportService
	adminTelegramID int64
	logger          *logrus.Entry
}

func NewCommands(reports *app.ReportService, adminTelegramID int64, baseLogger *logrus.Entry) *Commands {
	return &Commands{
		reports:         reports,
		adminTelegramID: adminTelegramID,
		logger:          baseLogger.WithField("handler_group", "operator"),
	}
}

// Register binds /start, /help, /last_run and /dry_run on b.
func (h *Commands) Register(ctx context.Context, b *telebot.Bot) {
	b.Handle("/start", func(c telebot.Context) error {
		return c.Send(h.startReply(c.Sender().ID, c.Sender().FirstName))
	})
	b.Handle("/help", func(c telebot.Context) error {
		return c.Send(h.helpReply(c.Sender().ID), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	})
	b.Handle("/last_run", func(c telebot.Context) error {
		return c.Send(h.lastRunReply(ctx, c.Sender().ID))
	})
	b.Handle("/dry_run", func(c telebot.Context) error {
		if c.Sender().ID == h.adminTelegramID {
			// A dry pass reads the whole student database; acknowledge first.
			if err := c.Send("Starting a dry run..."); err != nil {
				h.logger.WithError(err).Warn("Failed to acknowledge /dry_run")
			}
		}
		return c.Send(h.dryRunReply(ctx, c.Sender().ID))
	})
}

func (h *Commands) startReply(senderID int64, firstName string) string {
	logCtx := h.logger.WithFields(logrus.Fields{"command": "/start", "sender_id": senderID})
	logCtx.Info("Processing /start command")

	if senderID == h.adminTelegramID {
		logCtx.Info("User identified as Admin")
		return fmt.Sprintf("Hi %s! I run the student follow-up job and report every pass here. Use /help for the list of commands.", firstName)
	}
	logCtx.Info("User is unknown")
	return "Hi! This bot only talks to the follow-up operator."
}

func (h *Commands) helpReply(senderID int64) string {
	logCtx := h.logger.WithFields(logrus.Fields{"command": "/help", "sender_id": senderID})
	logCtx.Info("Processing /help command")

	if senderID != h.adminTelegramID {
		return "No commands are available to you."
	}
	var helpText strings.Builder
	helpText.WriteString("Operator commands:\n\n")
	helpText.WriteString("`/last_run`\n - Show the summary of the most recent follow-up run.\n\n")
	helpText.WriteString("`/dry_run`\n - Classify students now without sending messages or changing records.\n\n")
	helpText.WriteString("`/help`\n - Show this message.")
	return helpText.String()
}

func (h *Commands) lastRunReply(ctx context.Context, senderID int64) string {
	logCtx := h.logger.WithFields(logrus.Fields{"command": "/last_run", "sender_id": senderID})
	logCtx.Info("Command received")

	r, err := h.reports.LastRun(ctx, senderID)
	switch {
	case errors.Is(err, app.ErrAdminNotAuthorized):
		logCtx.Warn("Unauthorized access attempt")
		return unauthorizedReply
	case errors.Is(err, app.ErrNoRuns):
		return "No follow-up runs recorded yet."
	case err != nil:
		logCtx.WithError(err).Error("Failed to load last run")
		return fmt.Sprintf("Failed to load the last run: %s", err.Error())
	}
	return app.FormatRunSummary(r)
}

func (h *Commands) dryRunReply(ctx context.Context, senderID int64) string {
	logCtx := h.logger.WithFields(logrus.Fields{"command": "/dry_run", "sender_id": senderID})
	logCtx.Info("Command received")

	r, err := h.reports.TriggerDryRun(ctx, senderID)
	switch {
	case errors.Is(err, app.ErrAdminNotAuthorized):
		logCtx.Warn("Unauthorized access attempt")
		return unauthorizedReply
	case errors.Is(err, app.ErrRunInProgress):
		return "A follow-up run is already in progress, try again later."
	case err != nil:
		logCtx.WithError(err).Error("Dry run failed")
		if r != nil {
			return app.FormatRunSummary(r)
		}
		return fmt.Sprintf("Dry run failed: %s", err.Error())
	}
	logCtx.WithField("run_id", r.ID).Info("Dry run finished")
	return app.FormatRunSummary(r)
}
