// internal/app/followup_service.go
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"student_followup_bot/internal/domain/followup"
	"student_followup_bot/internal/domain/relay"
	"student_followup_bot/internal/domain/run"
	"student_followup_bot/internal/domain/student"
)

// ErrRunInProgress is returned when a pass is requested while another one is still running.
var ErrRunInProgress = errors.New("a follow-up run is already in progress")

// Runner executes one follow-up pass.
type Runner interface {
	Run(ctx context.Context) (*run.Run, error)
	RunWith(ctx context.Context, dryRun bool) (*run.Run, error)
}

// RunReporter is told about every finished pass.
type RunReporter interface {
	ReportRun(ctx context.Context, r *run.Run) error
}

// Options tune a FollowUpService.
type Options struct {
	DryRun      bool
	SettleDelay time.Duration // wait between webhook delivery and write-back
}

// FollowUpService runs the fetch → classify → compose → deliver → write-back pipeline.
// Records are handled strictly one at a time.
type FollowUpService struct {
	students student.Repository
	relay    relay.Relay
	runs     run.Repository
	composer *followup.Composer
	reporter RunReporter
	logger   *logrus.Entry
	opts     Options

	mu    sync.Mutex
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewFollowUpService(
	students student.Repository,
	rl relay.Relay,
	runs run.Repository,
	composer *followup.Composer,
	logger *logrus.Entry,
	opts Options,
) *FollowUpService {
	return &FollowUpService{
		students: students,
		relay:    rl,
		runs:     runs,
		composer: composer,
		logger:   logger,
		opts:     opts,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// SetReporter registers a reporter notified after each pass. Reporting errors are logged only.
func (s *FollowUpService) SetReporter(r RunReporter) {
	s.reporter = r
}

// Run executes one pass using the configured dry-run mode.
func (s *FollowUpService) Run(ctx context.Context) (*run.Run, error) {
	return s.RunWith(ctx, s.opts.DryRun)
}

// match is a record that classified to a flow other than None.
type match struct {
	st      *student.Status
	payload followup.NotificationPayload
}

// RunWith executes one pass. A store query failure aborts the pass and is returned.
// A delivery failure is returned after status-only flows have still been applied;
// per-record write-back failures are recorded on the run and do not stop the pass.
func (s *FollowUpService) RunWith(ctx context.Context, dryRun bool) (*run.Run, error) {
	if !s.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.mu.Unlock()

	r := run.New(dryRun, s.now())
	log := s.logger.WithFields(logrus.Fields{"run_id": r.ID, "dry_run": dryRun})
	log.Info("Starting follow-up run")
	if err := s.runs.CreateRun(ctx, r); err != nil {
		log.WithError(err).Warn("Failed to record run start")
	}

	students, err := s.students.ListCandidates(ctx)
	if err != nil {
		err = fmt.Errorf("failed to fetch students: %w", err)
		s.finish(ctx, log, r, err)
		return r, err
	}
	r.Fetched = len(students)

	matches := s.classify(log, students)
	r.Matched = len(matches)

	batch, skipped := s.buildBatch(matches)
	for _, m := range matches {
		if skipped[m.st.ID] {
			s.record(ctx, log, r, m, run.OutcomeSkipped, "no messaging recipient id")
		}
	}

	delivered, deliveryErr := s.deliver(ctx, log, batch, dryRun)

	applier := NewTransitionApplier(s.students, s.logger.WithField("run_id", r.ID), dryRun)
	applier.now = s.now
	for _, m := range matches {
		if skipped[m.st.ID] {
			continue
		}
		if m.payload.HasMessage() && !delivered {
			s.record(ctx, log, r, m, run.OutcomeDeliveryFailed, deliveryErr.Error())
			continue
		}
		if err := applier.Apply(ctx, m.payload.Flow, m.st); err != nil {
			log.WithError(err).WithField("student_id", m.st.ID).Error("Write-back failed")
			s.record(ctx, log, r, m, run.OutcomeWriteFailed, err.Error())
			continue
		}
		status := run.OutcomeApplied
		if dryRun {
			status = run.OutcomeDryRun
		}
		s.record(ctx, log, r, m, status, "")
	}

	s.finish(ctx, log, r, deliveryErr)
	return r, deliveryErr
}

func (s *FollowUpService) classify(log *logrus.Entry, students []*student.Status) []match {
	now := s.now()
	matches := make([]match, 0)
	for _, st := range students {
		flow := followup.Classify(st, now)
		if flow.IsNone() {
			continue
		}
		// Timestamps are spaced by 1ms so the relay preserves batch order.
		at := now.Add(time.Duration(len(matches)) * time.Millisecond)
		matches = append(matches, match{st: st, payload: s.composer.Compose(flow, st, at)})
		log.WithFields(logrus.Fields{
			"student_id": st.ID,
			"flow":       flow.Kind,
			"stage":      st.Stage,
			"days":       st.DaysInStage.Float64,
		}).Info("Student matched follow-up flow")
	}
	log.WithFields(logrus.Fields{"fetched": len(students), "matched": len(matches)}).Info("Classification finished")
	return matches
}

// buildBatch collects the outward messages. Message flows without a recipient are skipped.
func (s *FollowUpService) buildBatch(matches []match) ([]relay.Message, map[string]bool) {
	batch := make([]relay.Message, 0, len(matches))
	skipped := make(map[string]bool)
	for _, m := range matches {
		p := m.payload
		if !p.HasMessage() {
			continue
		}
		if p.RecipientID == "" {
			skipped[m.st.ID] = true
			continue
		}
		batch = append(batch, relay.Message{
			Message:         *p.Message,
			SlackID:         p.RecipientID,
			CoachIdentifier: p.CoachID,
			Timestamp:       p.Timestamp,
		})
	}
	return batch, skipped
}

// deliver sends the batch and waits for downstream processing. It reports whether
// message flows may proceed to write-back.
func (s *FollowUpService) deliver(ctx context.Context, log *logrus.Entry, batch []relay.Message, dryRun bool) (bool, error) {
	if len(batch) == 0 {
		return true, nil
	}
	if dryRun {
		for i, msg := range batch {
			log.WithFields(logrus.Fields{
				"dry_run":  true,
				"slack_id": msg.SlackID,
				"coach":    msg.CoachIdentifier,
			}).Infof("[DRY RUN] message #%d would be sent:\n%s", i+1, msg.Message)
		}
		return true, nil
	}

	if err := s.relay.Deliver(ctx, batch); err != nil {
		log.WithError(err).Error("Failed to deliver follow-up messages; skipping write-back for message flows")
		return false, fmt.Errorf("failed to deliver follow-up messages: %w", err)
	}
	log.WithField("messages", len(batch)).Info("Follow-up messages delivered")

	if s.opts.SettleDelay > 0 {
		log.Debugf("Waiting %s before write-back", s.opts.SettleDelay)
		if err := s.sleep(ctx, s.opts.SettleDelay); err != nil {
			return false, fmt.Errorf("interrupted while waiting after delivery: %w", err)
		}
	}
	return true, nil
}

func (s *FollowUpService) record(ctx context.Context, log *logrus.Entry, r *run.Run, m match, status run.OutcomeStatus, detail string) {
	o := &run.Outcome{
		RunID:     r.ID,
		StudentID: m.st.ID,
		Flow:      m.payload.Flow.Kind,
		Status:    status,
		Detail:    sql.NullString{String: detail, Valid: detail != ""},
		CreatedAt: s.now(),
	}
	r.Outcomes = append(r.Outcomes, o)
	if err := s.runs.AddOutcome(ctx, o); err != nil {
		log.WithError(err).WithField("student_id", m.st.ID).Warn("Failed to record run outcome")
	}
}

func (s *FollowUpService) finish(ctx context.Context, log *logrus.Entry, r *run.Run, runErr error) {
	r.FinishedAt = sql.NullTime{Time: s.now(), Valid: true}
	if runErr != nil {
		r.Err = sql.NullString{String: runErr.Error(), Valid: true}
	}
	if err := s.runs.FinishRun(ctx, r); err != nil {
		log.WithError(err).Warn("Failed to record run completion")
	}

	fields := logrus.Fields{
		"fetched":         r.Fetched,
		"matched":         r.Matched,
		"applied":         r.Count(run.OutcomeApplied),
		"dry_run_matches": r.Count(run.OutcomeDryRun),
		"skipped":         r.Count(run.OutcomeSkipped),
		"delivery_failed": r.Count(run.OutcomeDeliveryFailed),
		"write_failed":    r.Count(run.OutcomeWriteFailed),
	}
	if runErr != nil {
		log.WithFields(fields).WithError(runErr).Error("Follow-up run finished with errors")
	} else {
		log.WithFields(fields).Info("Follow-up run finished")
	}

	if s.reporter != nil {
		if err := s.reporter.ReportRun(ctx, r); err != nil {
			log.WithError(err).Warn("Failed to report run summary")
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
