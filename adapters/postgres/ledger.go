// Package postgres persists the artifact ledger. Runs live in triage_runs
// keyed by run ID with the full manifest as JSONB; every artifact, the
// manifest included, lands in the artifacts table. The foreign key from
// artifacts to triage_runs makes manifest-first ordering a schema
// guarantee, not a convention.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"seqtriage/domain/core"
	"seqtriage/domain/run"
	"seqtriage/ports"
)

// LedgerAdapter implements LedgerPort over PostgreSQL
type LedgerAdapter struct {
	db *sqlx.DB
}

// NewLedgerAdapter creates a new PostgreSQL ledger adapter
func NewLedgerAdapter(db *sqlx.DB) *LedgerAdapter {
	return &LedgerAdapter{db: db}
}

// StoreArtifact appends one artifact to the ledger. A triage manifest also
// registers its run; any other kind for an unregistered run fails on the
// foreign key.
func (a *LedgerAdapter) StoreArtifact(ctx context.Context, runID string, artifact core.Artifact) error {
	payloadJSON, err := json.Marshal(artifact.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", artifact.Kind, err)
	}

	if artifact.Kind == core.ArtifactTriageManifest {
		manifest, err := manifestFromPayload(artifact.Payload)
		if err != nil {
			return err
		}
		_, err = a.db.ExecContext(ctx, `
			INSERT INTO triage_runs (run_id, batch_hash, fingerprint, seed, code_version, manifest, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (run_id) DO UPDATE SET
				batch_hash = EXCLUDED.batch_hash,
				fingerprint = EXCLUDED.fingerprint,
				seed = EXCLUDED.seed,
				code_version = EXCLUDED.code_version,
				manifest = EXCLUDED.manifest`,
			runID,
			manifest.BatchHash.String(),
			manifest.Fingerprint.Fingerprint.String(),
			manifest.Seed,
			manifest.CodeVersion,
			payloadJSON,
			manifest.CreatedAt.Time(),
		)
		if err != nil {
			return fmt.Errorf("failed to register triage run: %w", err)
		}
	}

	_, err = a.db.ExecContext(ctx, `
		INSERT INTO artifacts (id, run_id, kind, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		artifact.ID.String(),
		runID,
		string(artifact.Kind),
		payloadJSON,
		artifact.CreatedAt.Time(),
	)
	if err != nil {
		return fmt.Errorf("failed to store %s artifact: %w", artifact.Kind, err)
	}

	return nil
}

// ListArtifacts queries artifacts chronologically with optional filters.
func (a *LedgerAdapter) ListArtifacts(ctx context.Context, filters ports.ArtifactFilters) ([]core.Artifact, error) {
	query := `SELECT id, kind, payload, created_at FROM artifacts`
	var conditions []string
	var args []interface{}

	if filters.RunID != nil {
		args = append(args, filters.RunID.String())
		conditions = append(conditions, fmt.Sprintf("run_id = $%d", len(args)))
	}
	if filters.Kind != nil {
		args = append(args, string(*filters.Kind))
		conditions = append(conditions, fmt.Sprintf("kind = $%d", len(args)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at ASC, id ASC"
	if filters.Limit > 0 {
		args = append(args, filters.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filters.Offset > 0 {
		args = append(args, filters.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query artifacts: %w", err)
	}
	defer rows.Close()

	return scanArtifacts(rows)
}

// GetArtifact loads one artifact by ID.
func (a *LedgerAdapter) GetArtifact(ctx context.Context, artifactID core.ArtifactID) (*core.Artifact, error) {
	row := a.db.QueryRowContext(ctx, `
		SELECT id, kind, payload, created_at FROM artifacts WHERE id = $1`,
		artifactID.String(),
	)

	artifact, err := scanArtifact(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, core.NewNotFoundError("artifact", artifactID.String())
		}
		return nil, fmt.Errorf("failed to get artifact: %w", err)
	}
	return artifact, nil
}

// GetArtifactsByRun loads every artifact of the run, in write order.
func (a *LedgerAdapter) GetArtifactsByRun(ctx context.Context, runID core.RunID) ([]core.Artifact, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT id, kind, payload, created_at FROM artifacts
		WHERE run_id = $1
		ORDER BY created_at ASC, id ASC`,
		runID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query run artifacts: %w", err)
	}
	defer rows.Close()

	return scanArtifacts(rows)
}

// GetArtifactsByKind loads the newest artifacts of one kind.
func (a *LedgerAdapter) GetArtifactsByKind(ctx context.Context, kind core.ArtifactKind, limit int) ([]core.Artifact, error) {
	query := `
		SELECT id, kind, payload, created_at FROM artifacts
		WHERE kind = $1
		ORDER BY created_at DESC, id DESC`
	args := []interface{}{string(kind)}
	if limit > 0 {
		args = append(args, limit)
		query += " LIMIT $2"
	}

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query artifacts by kind: %w", err)
	}
	defer rows.Close()

	return scanArtifacts(rows)
}

// ListRuns summarizes stored runs newest-first.
func (a *LedgerAdapter) ListRuns(ctx context.Context, limit, offset int) ([]ports.RunSummary, error) {
	query := `
		SELECT r.run_id, r.batch_hash, r.created_at, COUNT(a.id) AS artifact_count
		FROM triage_runs r
		LEFT JOIN artifacts a ON a.run_id = r.run_id
		GROUP BY r.run_id, r.batch_hash, r.created_at
		ORDER BY r.created_at DESC`
	var args []interface{}
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if offset > 0 {
		args = append(args, offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var summaries []ports.RunSummary
	for rows.Next() {
		var (
			runID         string
			batchHash     string
			createdAt     sql.NullTime
			artifactCount int
		)
		if err := rows.Scan(&runID, &batchHash, &createdAt, &artifactCount); err != nil {
			return nil, fmt.Errorf("failed to scan run summary: %w", err)
		}
		summary := ports.RunSummary{
			RunID:         core.RunID(runID),
			BatchHash:     core.BatchHash(batchHash),
			ArtifactCount: artifactCount,
		}
		if createdAt.Valid {
			summary.CreatedAt = core.NewTimestamp(createdAt.Time)
		}
		summaries = append(summaries, summary)
	}

	return summaries, rows.Err()
}

// GetTriageManifest loads the manifest registered for the run.
func (a *LedgerAdapter) GetTriageManifest(ctx context.Context, runID core.RunID) (*run.TriageManifest, error) {
	var manifestJSON []byte
	err := a.db.QueryRowContext(ctx, `
		SELECT manifest FROM triage_runs WHERE run_id = $1`,
		runID.String(),
	).Scan(&manifestJSON)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, core.NewNotFoundError("triage_manifest", runID.String())
		}
		return nil, fmt.Errorf("failed to get triage manifest: %w", err)
	}

	var manifest run.TriageManifest
	if err := json.Unmarshal(manifestJSON, &manifest); err != nil {
		return nil, fmt.Errorf("failed to unmarshal triage manifest: %w", err)
	}
	return &manifest, nil
}

// manifestFromPayload recovers the typed manifest from an artifact payload,
// which arrives live from the pipeline or decoded from JSON on replay.
func manifestFromPayload(payload interface{}) (*run.TriageManifest, error) {
	switch m := payload.(type) {
	case *run.TriageManifest:
		return m, nil
	case run.TriageManifest:
		return &m, nil
	default:
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("manifest payload not decodable: %w", err)
		}
		var manifest run.TriageManifest
		if err := json.Unmarshal(raw, &manifest); err != nil {
			return nil, fmt.Errorf("manifest payload not decodable: %w", err)
		}
		return &manifest, nil
	}
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanArtifact(row rowScanner) (*core.Artifact, error) {
	var (
		id          string
		kind        string
		payloadJSON []byte
		createdAt   sql.NullTime
	)
	if err := row.Scan(&id, &kind, &payloadJSON, &createdAt); err != nil {
		return nil, err
	}

	var payload interface{}
	if err := json.Unmarshal(payloadJSON, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal artifact payload: %w", err)
	}

	artifact := &core.Artifact{
		ID:      core.ID(id),
		Kind:    core.ArtifactKind(kind),
		Payload: payload,
	}
	if createdAt.Valid {
		artifact.CreatedAt = core.NewTimestamp(createdAt.Time)
	}
	return artifact, nil
}

func scanArtifacts(rows *sql.Rows) ([]core.Artifact, error) {
	var artifacts []core.Artifact
	for rows.Next() {
		artifact, err := scanArtifact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		artifacts = append(artifacts, *artifact)
	}
	return artifacts, rows.Err()
}
