package run

import (
	"seqtriage/domain/core"
)

// TriageManifest is the complete parameter record of a triage run.
// This is the truth source for replay - it must exist before any other
// artifact of the run is written.
type TriageManifest struct {
	RunID             core.RunID        `json:"run_id"`
	BatchHash         core.BatchHash    `json:"batch_hash"`
	ReferenceHash     core.Hash         `json:"reference_hash"`
	IdentityThreshold float64           `json:"identity_threshold"`
	Seed              int64             `json:"seed"`
	CodeVersion       string            `json:"code_version"`
	InputCount        int               `json:"input_count"`
	SkippedCount      int               `json:"skipped_count"`
	CandidateCount    int               `json:"candidate_count"`
	ClusterCount      int               `json:"cluster_count"`
	ReferenceCount    int               `json:"reference_count"`
	Fingerprint       TriageFingerprint `json:"fingerprint"` // Determinism fingerprint
	CreatedAt         core.Timestamp    `json:"created_at"`
}

// TriageCounts carries the per-stage record accounting into the manifest.
type TriageCounts struct {
	Input      int
	Skipped    int
	Candidates int
	Clusters   int
	References int
}

// NewTriageManifest creates a run manifest from the triage parameters and
// the observed stage counts.
func NewTriageManifest(
	runID core.RunID,
	batchHash core.BatchHash,
	referenceHash core.Hash,
	identityThreshold float64,
	seed int64,
	codeVersion string,
	counts TriageCounts,
) *TriageManifest {
	fingerprint := NewTriageFingerprint(batchHash, referenceHash, identityThreshold, seed, codeVersion)

	return &TriageManifest{
		RunID:             runID,
		BatchHash:         batchHash,
		ReferenceHash:     referenceHash,
		IdentityThreshold: identityThreshold,
		Seed:              seed,
		CodeVersion:       codeVersion,
		InputCount:        counts.Input,
		SkippedCount:      counts.Skipped,
		CandidateCount:    counts.Candidates,
		ClusterCount:      counts.Clusters,
		ReferenceCount:    counts.References,
		Fingerprint:       fingerprint,
		CreatedAt:         core.Now(),
	}
}

// ToCoreArtifact converts to a core artifact for storage.
func (m *TriageManifest) ToCoreArtifact() core.Artifact {
	return core.Artifact{
		ID:        core.NewID(),
		Kind:      core.ArtifactTriageManifest,
		Payload:   m,
		CreatedAt: m.CreatedAt,
	}
}

// Validate checks if the manifest is complete.
func (m *TriageManifest) Validate() error {
	if core.ID(m.RunID).IsEmpty() {
		return core.NewValidationError("triage_manifest", "run_id cannot be empty")
	}
	if m.BatchHash.String() == "" {
		return core.NewValidationError("triage_manifest", "batch_hash cannot be empty")
	}
	if m.CodeVersion == "" {
		return core.NewValidationError("triage_manifest", "code_version cannot be empty")
	}
	if m.IdentityThreshold <= 0 || m.IdentityThreshold > 1 {
		return core.NewValidationError("triage_manifest", "identity_threshold must be in (0, 1]")
	}
	if m.InputCount < 0 || m.SkippedCount < 0 {
		return core.NewValidationError("triage_manifest", "counts cannot be negative")
	}
	if m.SkippedCount > m.InputCount {
		return core.NewValidationError("triage_manifest", "skipped_count cannot exceed input_count")
	}
	if m.CandidateCount < m.ClusterCount {
		return core.NewValidationError("triage_manifest", "cluster_count cannot exceed candidate_count")
	}
	return nil
}
