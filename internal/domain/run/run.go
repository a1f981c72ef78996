package run

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"student_followup_bot/internal/domain/followup"
)

// OutcomeStatus is what happened to one matched record during a run.
type OutcomeStatus string

const (
	OutcomeApplied        OutcomeStatus = "APPLIED"
	OutcomeDryRun         OutcomeStatus = "DRY_RUN"
	OutcomeSkipped        OutcomeStatus = "SKIPPED"
	OutcomeDeliveryFailed OutcomeStatus = "DELIVERY_FAILED"
	OutcomeWriteFailed    OutcomeStatus = "WRITE_FAILED"
)

// Run is one pass of the follow-up job.
type Run struct {
	ID         uuid.UUID
	DryRun     bool
	StartedAt  time.Time
	FinishedAt sql.NullTime
	Fetched    int // records returned by the store
	Matched    int // records with a flow other than None
	Err        sql.NullString
	Outcomes   []*Outcome
}

// Outcome records the handling of a single matched record.
type Outcome struct {
	RunID     uuid.UUID
	StudentID string
	Flow      followup.Kind
	Status    OutcomeStatus
	Detail    sql.NullString
	CreatedAt time.Time
}

func New(dryRun bool, startedAt time.Time) *Run {
	return &Run{ID: uuid.New(), DryRun: dryRun, StartedAt: startedAt}
}

// Count returns how many outcomes have status s.
func (r *Run) Count(s OutcomeStatus) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}

// Failed reports whether the run itself aborted.
func (r *Run) Failed() bool {
	return r.Err.Valid
}
