package run

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists the run ledger.
type Repository interface {
	CreateRun(ctx context.Context, r *Run) error
	FinishRun(ctx context.Context, r *Run) error
	AddOutcome(ctx context.Context, o *Outcome) error
	GetRun(ctx context.Context, id uuid.UUID) (*Run, error)
	// LatestRun returns the most recently started run, with its outcomes.
	LatestRun(ctx context.Context) (*Run, error)
}
