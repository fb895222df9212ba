package migration

import (
	"context"

	"seqtriage/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createRunsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create triage_runs table")
	}

	if err := r.createArtifactsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create artifacts table")
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create indexes")
	}

	return nil
}

func (r *MigrationRunner) createRunsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS triage_runs (
			run_id VARCHAR(64) PRIMARY KEY,
			batch_hash VARCHAR(64) NOT NULL,
			fingerprint VARCHAR(64) NOT NULL,
			seed BIGINT NOT NULL,
			code_version VARCHAR(64) NOT NULL,
			manifest JSONB NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	return err
}

func (r *MigrationRunner) createArtifactsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS artifacts (
			id UUID PRIMARY KEY,
			run_id VARCHAR(64) NOT NULL REFERENCES triage_runs(run_id) ON DELETE CASCADE,
			kind VARCHAR(50) NOT NULL,
			payload JSONB NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_artifacts_run_id ON artifacts(run_id);
		CREATE INDEX IF NOT EXISTS idx_artifacts_kind ON artifacts(kind);
		CREATE INDEX IF NOT EXISTS idx_artifacts_created_at ON artifacts(created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_triage_runs_created_at ON triage_runs(created_at DESC)
	`)
	return err
}
