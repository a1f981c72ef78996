package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"student_followup_bot/internal/domain/followup"
	"student_followup_bot/internal/domain/run"
	"student_followup_bot/internal/domain/student"
	"student_followup_bot/internal/infra/memory"
)

type recordingReporter struct {
	mu   sync.Mutex
	runs []*run.Run
}

func (r *recordingReporter) ReportRun(_ context.Context, rn *run.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, rn)
	return nil
}

type serviceFixture struct {
	svc      *FollowUpService
	students *fakeStudents
	relay    *fakeRelay
	ledger   *memory.RunRepository
	slept    []time.Duration
}

func newServiceFixture(t *testing.T, students ...*student.Status) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		students: &fakeStudents{students: students},
		relay:    &fakeRelay{},
		ledger:   memory.NewRunRepository(0),
	}
	log, _ := testLogger()
	f.svc = NewFollowUpService(f.students, f.relay, f.ledger, followup.NewComposer(nil), log,
		Options{SettleDelay: 5 * time.Second})
	f.svc.now = func() time.Time { return testNow }
	f.svc.sleep = func(_ context.Context, d time.Duration) error {
		f.slept = append(f.slept, d)
		return nil
	}
	return f
}

// mixedBatch returns one record per interesting path through the pipeline.
func mixedBatch() []*student.Status {
	return []*student.Status{
		{ID: "follow-up", SlackID: "U1", Coach: "Melissa Zwanck", Stage: student.Stage1, DaysInStage: days(20)},
		{
			ID: "status-change", SlackID: "U2", Stage: student.Stage1, DaysInStage: days(50),
			LastContactDate: daysAgo(40), Tags: []string{followup.TagStage1Step1},
		},
		{ID: "too-early", SlackID: "U3", Stage: student.Stage2, DaysInStage: days(10)},
		{ID: "no-slack", Stage: student.Stage2, DaysInStage: days(20)},
		{ID: "no-stage", SlackID: "U5", DaysInStage: days(20)},
	}
}

func outcomeByStudent(r *run.Run) map[string]run.OutcomeStatus {
	m := make(map[string]run.OutcomeStatus)
	for _, o := range r.Outcomes {
		m[o.StudentID] = o.Status
	}
	return m
}

func TestFollowUpService_LiveRun(t *testing.T) {
	f := newServiceFixture(t, mixedBatch()...)

	r, err := f.svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, r.Fetched)
	assert.Equal(t, 3, r.Matched)
	assert.False(t, r.Failed())
	assert.Equal(t, map[string]run.OutcomeStatus{
		"follow-up":     run.OutcomeApplied,
		"status-change": run.OutcomeApplied,
		"no-slack":      run.OutcomeSkipped,
	}, outcomeByStudent(r))

	batches := f.relay.Batches()
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 1)
	msg := batches[0][0]
	assert.Equal(t, "U1", msg.SlackID)
	assert.Equal(t, "Melissa Zwanck", msg.CoachIdentifier)
	assert.Equal(t, testNow, msg.Timestamp)
	assert.Contains(t, msg.Message, "<@U1>")
	assert.Contains(t, msg.Message, "https://calendly.com/melissazwanck/mentoring")

	assert.Equal(t, []time.Duration{5 * time.Second}, f.slept)
	assert.Equal(t, []call{
		{Op: "last_contact", ID: "follow-up", Value: "2025-06-02"},
		{Op: "add_tag", ID: "follow-up", Value: followup.TagStage1Step1},
		{Op: "placement_status", ID: "status-change", Value: student.PlacementMissing},
	}, f.students.Calls())

	stored, err := f.ledger.LatestRun(context.Background())
	require.NoError(t, err)
	assert.Equal(t, r.ID, stored.ID)
	assert.True(t, stored.FinishedAt.Valid)
	assert.Len(t, stored.Outcomes, 3)
}

func TestFollowUpService_TimestampsPreserveOrder(t *testing.T) {
	f := newServiceFixture(t,
		&student.Status{ID: "a", SlackID: "UA", Stage: student.Stage1, DaysInStage: days(20)},
		&student.Status{ID: "b", SlackID: "UB", Stage: student.Stage2, DaysInStage: days(50)},
	)

	_, err := f.svc.Run(context.Background())
	require.NoError(t, err)

	batches := f.relay.Batches()
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 2)
	assert.Equal(t, testNow, batches[0][0].Timestamp)
	assert.Equal(t, testNow.Add(time.Millisecond), batches[0][1].Timestamp)
}

func TestFollowUpService_DryRunMakesNoMutations(t *testing.T) {
	f := newServiceFixture(t, mixedBatch()...)

	r, err := f.svc.RunWith(context.Background(), true)
	require.NoError(t, err)

	assert.True(t, r.DryRun)
	assert.Empty(t, f.relay.Batches())
	assert.Empty(t, f.students.Calls())
	assert.Empty(t, f.slept)
	assert.Equal(t, map[string]run.OutcomeStatus{
		"follow-up":     run.OutcomeDryRun,
		"status-change": run.OutcomeDryRun,
		"no-slack":      run.OutcomeSkipped,
	}, outcomeByStudent(r))
}

func TestFollowUpService_DeliveryFailure(t *testing.T) {
	f := newServiceFixture(t, mixedBatch()...)
	relayErr := errors.New("webhook returned 500")
	f.relay.err = relayErr

	r, err := f.svc.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, relayErr)
	assert.True(t, r.Failed())

	assert.Equal(t, run.OutcomeDeliveryFailed, outcomeByStudent(r)["follow-up"])
	assert.Equal(t, run.OutcomeApplied, outcomeByStudent(r)["status-change"])
	assert.Empty(t, f.slept)
	assert.Equal(t, []call{
		{Op: "placement_status", ID: "status-change", Value: student.PlacementMissing},
	}, f.students.Calls())
}

func TestFollowUpService_WriteFailureContinues(t *testing.T) {
	f := newServiceFixture(t,
		&student.Status{ID: "a", SlackID: "UA", Stage: student.Stage1, DaysInStage: days(20)},
		&student.Status{ID: "b", SlackID: "UB", Stage: student.Stage1, DaysInStage: days(21)},
	)
	f.students.failOn = map[string]error{"last_contact:a": errors.New("rate limited")}

	r, err := f.svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, map[string]run.OutcomeStatus{
		"a": run.OutcomeWriteFailed,
		"b": run.OutcomeApplied,
	}, outcomeByStudent(r))
	for _, o := range r.Outcomes {
		if o.StudentID == "a" {
			assert.Contains(t, o.Detail.String, "rate limited")
		}
	}
}

func TestFollowUpService_StoreFailureAborts(t *testing.T) {
	f := newServiceFixture(t)
	storeErr := errors.New("notion returned 401")
	f.students.listErr = storeErr
	reporter := &recordingReporter{}
	f.svc.SetReporter(reporter)

	r, err := f.svc.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, storeErr)
	require.NotNil(t, r)
	assert.True(t, r.Failed())
	assert.Empty(t, f.relay.Batches())
	require.Len(t, reporter.runs, 1)
	assert.Equal(t, r.ID, reporter.runs[0].ID)
}

func TestFollowUpService_NothingMatched(t *testing.T) {
	f := newServiceFixture(t, &student.Status{ID: "x", SlackID: "U", Stage: student.Stage1, DaysInStage: days(3)})

	r, err := f.svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, r.Matched)
	assert.Empty(t, f.relay.Batches())
	assert.Empty(t, f.slept)
}

func TestFollowUpService_RejectsOverlappingRuns(t *testing.T) {
	f := newServiceFixture(t, &student.Status{ID: "a", SlackID: "UA", Stage: student.Stage1, DaysInStage: days(20)})
	f.relay.block = make(chan struct{})
	f.relay.entered = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Run(context.Background())
		done <- err
	}()

	<-f.relay.entered
	_, err := f.svc.Run(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(f.relay.block)
	require.NoError(t, <-done)
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))
}
