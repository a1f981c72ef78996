package telegram

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"student_followup_bot/internal/app"
	"student_followup_bot/internal/domain/run"
	domainTelegram "student_followup_bot/internal/domain/telegram"
)

// RunReporter sends a summary of every finished run to the operator chat.
type RunReporter struct {
	client  domainTelegram.Client
	adminID int64
	logger  *logrus.Entry
}

func NewRunReporter(client domainTelegram.Client, adminID int64, logger *logrus.Entry) *RunReporter {
	return &RunReporter{client: client, adminID: adminID, logger: logger}
}

func (r *RunReporter) ReportRun(_ context.Context, rn *run.Run) error {
	if err := r.client.SendMessage(r.adminID, app.FormatRunSummary(rn), nil); err != nil {
		return fmt.Errorf("failed to send run summary to admin %d: %w", r.adminID, err)
	}
	r.logger.WithField("run_id", rn.ID).Debug("Run summary sent to admin")
	return nil
}
