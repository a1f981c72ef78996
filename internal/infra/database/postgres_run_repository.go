// internal/infra/database/postgres_run_repository.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"student_followup_bot/internal/domain/followup"
	"student_followup_bot/internal/domain/run"
)

// Custom errors specific to the run ledger
var ErrRunNotFound = errors.New("follow-up run not found")

// foreignKeyViolation is the PostgreSQL SQLSTATE for a missing referenced row.
const foreignKeyViolation = "23503"

type PostgresRunRepository struct {
	db *sql.DB
}

func NewPostgresRunRepository(db *sql.DB) *PostgresRunRepository {
	return &PostgresRunRepository{db: db}
}

func (r *PostgresRunRepository) CreateRun(ctx context.Context, rn *run.Run) error {
	query := `INSERT INTO followup_runs (id, dry_run, started_at)
               VALUES ($1, $2, $3)
               ON CONFLICT (id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, rn.ID, rn.DryRun, rn.StartedAt); err != nil {
		return fmt.Errorf("error creating follow-up run: %w", err)
	}
	return nil
}

func (r *PostgresRunRepository) FinishRun(ctx context.Context, rn *run.Run) error {
	query := `UPDATE followup_runs
               SET finished_at = $1, fetched = $2, matched = $3, error = $4
               WHERE id = $5`
	result, err := r.db.ExecContext(ctx, query, rn.FinishedAt, rn.Fetched, rn.Matched, rn.Err, rn.ID)
	if err != nil {
		return fmt.Errorf("error finishing follow-up run: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected for run update: %w", err)
	}
	if rowsAffected == 0 {
		return ErrRunNotFound
	}
	return nil
}

func (r *PostgresRunRepository) AddOutcome(ctx context.Context, o *run.Outcome) error {
	query := `INSERT INTO followup_outcomes (run_id, student_id, flow, status, detail, created_at)
               VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.ExecContext(ctx, query, o.RunID, o.StudentID, o.Flow, o.Status, o.Detail, o.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
			return ErrRunNotFound
		}
		return fmt.Errorf("error adding outcome for %s: %w", o.StudentID, err)
	}
	return nil
}

func (r *PostgresRunRepository) GetRun(ctx context.Context, id uuid.UUID) (*run.Run, error) {
	query := `SELECT id, dry_run, started_at, finished_at, fetched, matched, error
               FROM followup_runs WHERE id = $1`
	rn, err := r.scanRun(ctx, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("error getting follow-up run by ID: %w", err)
	}
	return rn, nil
}

// LatestRun returns nil, nil when no run has been recorded yet.
func (r *PostgresRunRepository) LatestRun(ctx context.Context) (*run.Run, error) {
	query := `SELECT id, dry_run, started_at, finished_at, fetched, matched, error
               FROM followup_runs ORDER BY started_at DESC LIMIT 1`
	rn, err := r.scanRun(ctx, query)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error getting latest follow-up run: %w", err)
	}
	return rn, nil
}

func (r *PostgresRunRepository) scanRun(ctx context.Context, query string, args ...any) (*run.Run, error) {
	rn := run.Run{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&rn.ID, &rn.DryRun, &rn.StartedAt, &rn.FinishedAt, &rn.Fetched, &rn.Matched, &rn.Err,
	)
	if err != nil {
		return nil, err
	}
	outcomes, err := r.listOutcomes(ctx, rn.ID)
	if err != nil {
		return nil, err
	}
	rn.Outcomes = outcomes
	return &rn, nil
}

func (r *PostgresRunRepository) listOutcomes(ctx context.Context, runID uuid.UUID) ([]*run.Outcome, error) {
	query := `SELECT run_id, student_id, flow, status, detail, created_at
               FROM followup_outcomes WHERE run_id = $1 ORDER BY id ASC`
	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("error listing outcomes for run %s: %w", runID, err)
	}
	defer rows.Close()

	var outcomes []*run.Outcome
	for rows.Next() {
		o := run.Outcome{}
		var flow, status string
		if err := rows.Scan(&o.RunID, &o.StudentID, &flow, &status, &o.Detail, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning outcome row: %w", err)
		}
		o.Flow = followup.Kind(flow)
		o.Status = run.OutcomeStatus(status)
		outcomes = append(outcomes, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outcome rows: %w", err)
	}
	return outcomes, nil
}
