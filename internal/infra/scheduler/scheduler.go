package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"student_followup_bot/internal/app"
)

type FollowUpScheduler struct {
	cronEngine *cron.Cron
	runner     app.Runner
	logger     *logrus.Entry
	cronSpec   string        // e.g., "0 10 * * 1-5" (10:00 AM on weekdays)
	runTimeout time.Duration // upper bound for a single pass
}

func NewFollowUpScheduler(runner app.Runner, logger *logrus.Entry, cronSpec string, runTimeout time.Duration) *FollowUpScheduler {
	cronLogger := cron.PrintfLogger(logger)
	return &FollowUpScheduler{
		cronEngine: cron.New(
			cron.WithLocation(time.Local), // Use server's local time for cron
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		runner:     runner,
		logger:     logger,
		cronSpec:   cronSpec,
		runTimeout: runTimeout,
	}
}

// Start registers the follow-up job and starts the cron engine.
func (s *FollowUpScheduler) Start() error {
	s.logger.Info("Starting follow-up scheduler...")

	_, err := s.cronEngine.AddFunc(s.cronSpec, func() {
		s.logger.Info("Cron job triggered for follow-up run.")
		s.runOnce(context.Background())
	})
	if err != nil {
		return fmt.Errorf("could not add follow-up cron job %q: %w", s.cronSpec, err)
	}

	s.cronEngine.Start()
	s.logger.WithField("cron_spec", s.cronSpec).Info("Follow-up scheduler started.")
	return nil
}

// runOnce executes one pass bounded by runTimeout. Errors are logged, never propagated.
func (s *FollowUpScheduler) runOnce(parent context.Context) {
	ctx := parent
	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, s.runTimeout)
		defer cancel()
	}

	r, err := s.runner.Run(ctx)
	switch {
	case errors.Is(err, app.ErrRunInProgress):
		s.logger.Warn("Previous follow-up run still in progress. Skipping this tick.")
	case err != nil:
		s.logger.WithError(err).Error("Error during scheduled follow-up run")
	default:
		s.logger.WithFields(logrus.Fields{"run_id": r.ID, "matched": r.Matched}).Info("Scheduled follow-up run completed successfully.")
	}
}

func (s *FollowUpScheduler) Stop() {
	s.logger.Info("Stopping follow-up scheduler...")
	ctx := s.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	<-ctx.Done()               // Wait for graceful shutdown
	s.logger.Info("Follow-up scheduler gracefully stopped.")
}
