package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"student_followup_bot/internal/domain/run"
)

// ErrRunNotFound is returned by GetRun for unknown ids.
var ErrRunNotFound = errors.New("run not found")

// RunRepository keeps the run ledger in process memory. It is used when no
// database is configured; history is lost on restart.
type RunRepository struct {
	mu    sync.RWMutex
	runs  map[uuid.UUID]*run.Run
	order []uuid.UUID
	limit int
}

// NewRunRepository keeps at most limit runs; limit <= 0 keeps everything.
func NewRunRepository(limit int) *RunRepository {
	return &RunRepository{runs: make(map[uuid.UUID]*run.Run), limit: limit}
}

func (r *RunRepository) CreateRun(_ context.Context, rn *run.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.runs[rn.ID]; ok {
		return nil
	}
	c := *rn
	c.Outcomes = nil
	r.runs[rn.ID] = &c
	r.order = append(r.order, rn.ID)
	if r.limit > 0 && len(r.order) > r.limit {
		delete(r.runs, r.order[0])
		r.order = r.order[1:]
	}
	return nil
}

func (r *RunRepository) FinishRun(_ context.Context, rn *run.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.runs[rn.ID]
	if !ok {
		return ErrRunNotFound
	}
	stored.FinishedAt = rn.FinishedAt
	stored.Fetched = rn.Fetched
	stored.Matched = rn.Matched
	stored.Err = rn.Err
	return nil
}

func (r *RunRepository) AddOutcome(_ context.Context, o *run.Outcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.runs[o.RunID]
	if !ok {
		return ErrRunNotFound
	}
	c := *o
	stored.Outcomes = append(stored.Outcomes, &c)
	return nil
}

func (r *RunRepository) GetRun(_ context.Context, id uuid.UUID) (*run.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	return snapshot(stored), nil
}

// LatestRun returns nil, nil when the ledger is empty.
func (r *RunRepository) LatestRun(_ context.Context) (*run.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.order) == 0 {
		return nil, nil
	}
	return snapshot(r.runs[r.order[len(r.order)-1]]), nil
}

func snapshot(rn *run.Run) *run.Run {
	c := *rn
	c.Outcomes = make([]*run.Outcome, len(rn.Outcomes))
	for i, o := range rn.Outcomes {
		oc := *o
		c.Outcomes[i] = &oc
	}
	return &c
}
