package app

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"student_followup_bot/internal/domain/followup"
	"student_followup_bot/internal/domain/student"
)

// TransitionApplier writes a matched flow's state change back to the record store.
// In dry-run mode every mutating call is replaced by a trace line and reports success.
type TransitionApplier struct {
	repo   student.Repository
	logger *logrus.Entry
	dryRun bool
	now    func() time.Time
}

func NewTransitionApplier(repo student.Repository, logger *logrus.Entry, dryRun bool) *TransitionApplier {
	return &TransitionApplier{repo: repo, logger: logger, dryRun: dryRun, now: time.Now}
}

// Apply runs the flow's write-back steps in order and stops at the first failure.
// Steps already applied are not rolled back.
func (a *TransitionApplier) Apply(ctx context.Context, flow followup.Flow, st *student.Status) error {
	log := a.logger.WithFields(logrus.Fields{"student_id": st.ID, "flow": flow.Kind})

	switch flow.Transition {
	case followup.TransitionContactAndTag:
		if err := a.setLastContact(ctx, log, st.ID); err != nil {
			return err
		}
		if flow.Tag == "" {
			return nil
		}
		return a.addTag(ctx, log, st.ID, flow.Tag)
	case followup.TransitionPlacementMissing:
		return a.setPlacementStatus(ctx, log, st.ID, student.PlacementMissing)
	default:
		return nil
	}
}

func (a *TransitionApplier) setLastContact(ctx context.Context, log *logrus.Entry, id string) error {
	today := a.now()
	if a.dryRun {
		log.WithField("dry_run", true).Infof("[DRY RUN] would set last contact to %s", today.UTC().Format("2006-01-02"))
		return nil
	}
	if err := a.repo.SetLastContact(ctx, id, today); err != nil {
		return fmt.Errorf("failed to update last contact for %s: %w", id, err)
	}
	log.Info("Last contact updated")
	return nil
}

func (a *TransitionApplier) addTag(ctx context.Context, log *logrus.Entry, id, tag string) error {
	log = log.WithField("tag", tag)
	if a.dryRun {
		log.WithField("dry_run", true).Info("[DRY RUN] would add follow-up tag")
		return nil
	}
	added, err := a.repo.AddTag(ctx, id, tag)
	if err != nil {
		return fmt.Errorf("failed to add tag %q for %s: %w", tag, id, err)
	}
	if !added {
		log.Info("Follow-up tag already present, nothing to do")
		return nil
	}
	log.Info("Follow-up tag added")
	return nil
}

func (a *TransitionApplier) setPlacementStatus(ctx context.Context, log *logrus.Entry, id, status string) error {
	log = log.WithField("placement_status", status)
	if a.dryRun {
		log.WithField("dry_run", true).Info("[DRY RUN] would change placement status")
		return nil
	}
	if err := a.repo.SetPlacementStatus(ctx, id, status); err != nil {
		return fmt.Errorf("failed to update placement status for %s: %w", id, err)
	}
	log.Info("Placement status updated")
	return nil
}
