package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

const (
	defaultMaxOpenConns    = 5
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 5 * time.Minute
	defaultConnMaxIdleTime = 1 * time.Minute
)

// NewPostgresConnection creates and returns a new PostgreSQL database connection.
// It also pings the database to ensure connectivity.
func NewPostgresConnection(ctx context.Context, dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)
	db.SetConnMaxIdleTime(defaultConnMaxIdleTime)

	if err = db.PingContext(ctx); err != nil {
		db.Close() // Close the connection if ping fails
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS followup_runs (
		id          UUID PRIMARY KEY,
		dry_run     BOOLEAN NOT NULL,
		started_at  TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ,
		fetched     INTEGER NOT NULL DEFAULT 0,
		matched     INTEGER NOT NULL DEFAULT 0,
		error       TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS followup_runs_started_at_idx ON followup_runs (started_at DESC)`,
	`CREATE TABLE IF NOT EXISTS followup_outcomes (
		id         BIGSERIAL PRIMARY KEY,
		run_id     UUID NOT NULL REFERENCES followup_runs (id) ON DELETE CASCADE,
		student_id TEXT NOT NULL,
		flow       TEXT NOT NULL,
		status     TEXT NOT NULL,
		detail     TEXT,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS followup_outcomes_run_id_idx ON followup_outcomes (run_id)`,
}

// EnsureSchema creates the ledger tables if they do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
