package app

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"student_followup_bot/internal/domain/followup"
	"student_followup_bot/internal/domain/run"
	"student_followup_bot/internal/infra/memory"
)

const adminID int64 = 42

type stubRunner struct {
	dryRuns []bool
	err     error
}

func (s *stubRunner) Run(ctx context.Context) (*run.Run, error) {
	return s.RunWith(ctx, false)
}

func (s *stubRunner) RunWith(_ context.Context, dryRun bool) (*run.Run, error) {
	s.dryRuns = append(s.dryRuns, dryRun)
	return run.New(dryRun, testNow), s.err
}

func TestReportService_LastRun(t *testing.T) {
	ctx := context.Background()
	ledger := memory.NewRunRepository(0)
	svc := NewReportService(ledger, &stubRunner{}, adminID)

	_, err := svc.LastRun(ctx, adminID)
	assert.ErrorIs(t, err, ErrNoRuns)

	r := run.New(false, testNow)
	require.NoError(t, ledger.CreateRun(ctx, r))

	got, err := svc.LastRun(ctx, adminID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)

	_, err = svc.LastRun(ctx, 7)
	assert.ErrorIs(t, err, ErrAdminNotAuthorized)
}

func TestReportService_TriggerDryRun(t *testing.T) {
	ctx := context.Background()
	runner := &stubRunner{}
	svc := NewReportService(memory.NewRunRepository(0), runner, adminID)

	_, err := svc.TriggerDryRun(ctx, 7)
	assert.ErrorIs(t, err, ErrAdminNotAuthorized)
	assert.Empty(t, runner.dryRuns)

	r, err := svc.TriggerDryRun(ctx, adminID)
	require.NoError(t, err)
	assert.True(t, r.DryRun)
	assert.Equal(t, []bool{true}, runner.dryRuns)

	runner.err = ErrRunInProgress
	_, err = svc.TriggerDryRun(ctx, adminID)
	assert.ErrorIs(t, err, ErrRunInProgress)
}

func TestFormatRunSummary(t *testing.T) {
	r := run.New(true, testNow)
	r.FinishedAt = sql.NullTime{Time: testNow.Add(1500 * time.Millisecond), Valid: true}
	r.Fetched, r.Matched = 12, 3
	r.Outcomes = []*run.Outcome{
		{StudentID: "a", Flow: followup.KindStage1FollowUp, Status: run.OutcomeDryRun},
		{StudentID: "b", Flow: followup.KindStage2Stalled, Status: run.OutcomeDryRun},
		{StudentID: "c", Flow: followup.KindStage2FollowUp, Status: run.OutcomeSkipped},
	}
	r.Err = sql.NullString{String: "boom", Valid: true}

	got := FormatRunSummary(r)

	assert.Contains(t, got, r.ID.String())
	assert.Contains(t, got, "(dry run)")
	assert.Contains(t, got, "Started: 2025-06-02 10:00:00 UTC")
	assert.Contains(t, got, "Duration: 1.5s")
	assert.Contains(t, got, "Fetched: 12, matched: 3")
	assert.Contains(t, got, "DRY_RUN: 2")
	assert.Contains(t, got, "SKIPPED: 1")
	assert.NotContains(t, got, "APPLIED")
	assert.Contains(t, got, "Error: boom")
}
