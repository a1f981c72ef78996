package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"student_followup_bot/internal/domain/run"
)

// Custom application-level errors for the operator surface
var ErrAdminNotAuthorized = errors.New("performing user is not authorized as an admin")
var ErrNoRuns = errors.New("no follow-up runs recorded yet")

// ReportService backs the operator commands: inspecting the ledger and triggering a dry run.
type ReportService struct {
	runs            run.Repository
	runner          Runner
	adminTelegramID int64
}

func NewReportService(runs run.Repository, runner Runner, adminID int64) *ReportService {
	return &ReportService{
		runs:            runs,
		runner:          runner,
		adminTelegramID: adminID,
	}
}

// LastRun returns the most recent run recorded in the ledger.
func (s *ReportService) LastRun(ctx context.Context, performingAdminID int64) (*run.Run, error) {
	if performingAdminID != s.adminTelegramID {
		return nil, ErrAdminNotAuthorized
	}
	r, err := s.runs.LatestRun(ctx)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, ErrNoRuns
	}
	return r, nil
}

// TriggerDryRun runs one pass that reads the store but changes nothing.
func (s *ReportService) TriggerDryRun(ctx context.Context, performingAdminID int64) (*run.Run, error) {
	if performingAdminID != s.adminTelegramID {
		return nil, ErrAdminNotAuthorized
	}
	r, err := s.runner.RunWith(ctx, true)
	if err != nil {
		return r, fmt.Errorf("dry run failed: %w", err)
	}
	return r, nil
}

// FormatRunSummary renders a run as a short plain-text report.
func FormatRunSummary(r *run.Run) string {
	var b strings.Builder

	mode := "live"
	if r.DryRun {
		mode = "dry run"
	}
	fmt.Fprintf(&b, "Follow-up run %s (%s)\n", r.ID, mode)
	fmt.Fprintf(&b, "Started: %s\n", r.StartedAt.UTC().Format("2006-01-02 15:04:05 MST"))
	if r.FinishedAt.Valid {
		fmt.Fprintf(&b, "Duration: %s\n", r.FinishedAt.Time.Sub(r.StartedAt).Round(100*time.Millisecond))
	}
	fmt.Fprintf(&b, "Fetched: %d, matched: %d\n", r.Fetched, r.Matched)

	for _, s := range []run.OutcomeStatus{
		run.OutcomeApplied,
		run.OutcomeDryRun,
		run.OutcomeSkipped,
		run.OutcomeDeliveryFailed,
		run.OutcomeWriteFailed,
	} {
		if n := r.Count(s); n > 0 {
			fmt.Fprintf(&b, "%s: %d\n", s, n)
		}
	}
	if r.Failed() {
		fmt.Fprintf(&b, "Error: %s\n", r.Err.String)
	}
	return strings.TrimRight(b.String(), "\n")
}
