package ports

import (
	"context"

	"seqtriage/domain/core"
	"seqtriage/domain/run"
)

// LedgerWriterPort provides append-only write access to artifacts
// This is the ONLY way to write artifacts - prevents read-after-write coupling
type LedgerWriterPort interface {
	StoreArtifact(ctx context.Context, runID string, artifact core.Artifact) error
}

// LedgerReaderPort provides read-only access to stored artifacts
// Use this for queries, replay, and API access
type LedgerReaderPort interface {
	// ListArtifacts and GetArtifactsByRun return artifacts in write order,
	// so a replay reads the ledger like a log. GetArtifactsByKind returns
	// newest-first, the order listings present.
	ListArtifacts(ctx context.Context, filters ArtifactFilters) ([]core.Artifact, error)
	GetArtifact(ctx context.Context, artifactID core.ArtifactID) (*core.Artifact, error)
	GetArtifactsByRun(ctx context.Context, runID core.RunID) ([]core.Artifact, error)
	GetArtifactsByKind(ctx context.Context, kind core.ArtifactKind, limit int) ([]core.Artifact, error)

	// Run queries. ListRuns returns runs newest-first.
	ListRuns(ctx context.Context, limit, offset int) ([]RunSummary, error)
	GetTriageManifest(ctx context.Context, runID core.RunID) (*run.TriageManifest, error)
}

// ArtifactFilters for querying artifacts
type ArtifactFilters struct {
	RunID  *core.RunID
	Kind   *core.ArtifactKind
	Limit  int
	Offset int
}

// RunSummary is the list-view projection of a stored run.
type RunSummary struct {
	RunID         core.RunID     `json:"run_id"`
	BatchHash     core.BatchHash `json:"batch_hash"`
	ArtifactCount int            `json:"artifact_count"`
	CreatedAt     core.Timestamp `json:"created_at"`
}

// LedgerPort combines read and write access for components that own both
// sides, such as the pipeline service.
type LedgerPort interface {
	LedgerWriterPort
	LedgerReaderPort
}
