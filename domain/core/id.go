package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	// Use UUID v7 for time-ordered, sortable IDs
	// Falls back to v4 if v7 is not available (for compatibility)
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	RunID       ID
	CandidateID ID
	ArtifactID  ID
)

// String conversions for domain IDs
func (id RunID) String() string       { return ID(id).String() }
func (id CandidateID) String() string { return ID(id).String() }
func (id ArtifactID) String() string  { return ID(id).String() }

// Emptiness checks for domain IDs
func (id RunID) IsEmpty() bool       { return ID(id).IsEmpty() }
func (id CandidateID) IsEmpty() bool { return ID(id).IsEmpty() }
func (id ArtifactID) IsEmpty() bool  { return ID(id).IsEmpty() }

// ParseRunID parses a string into RunID
func ParseRunID(s string) (RunID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("run ID cannot be empty")
	}
	return RunID(s), nil
}

// ParseCandidateID parses a string into CandidateID
func ParseCandidateID(s string) (CandidateID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("candidate ID cannot be empty")
	}
	return CandidateID(s), nil
}

// ParseArtifactID parses a string into ArtifactID
func ParseArtifactID(s string) (ArtifactID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("artifact ID cannot be empty")
	}
	return ArtifactID(s), nil
}

// Artifact represents any output of the system
type Artifact struct {
	ID        ID           `json:"id"`
	Kind      ArtifactKind `json:"kind"`
	Payload   interface{}  `json:"payload"`
	CreatedAt Timestamp    `json:"created_at"`
}

// ArtifactKind defines types of artifacts
type ArtifactKind string

const (
	// ArtifactTriageManifest captures audit metadata for a triage run (seed, counts, fingerprint).
	// Written before any other artifact of the run.
	ArtifactTriageManifest ArtifactKind = "triage_manifest"
	// ArtifactRankedTable is the ordered shortlist of cluster representatives.
	ArtifactRankedTable ArtifactKind = "ranked_table"
	// ArtifactClusterMap records every cluster's representative and full member list.
	ArtifactClusterMap ArtifactKind = "cluster_map"
	// ArtifactTopExport is the id/sequence export of the highest-priority entries.
	ArtifactTopExport ArtifactKind = "top_export"
	// ArtifactSkippedRecords records why raw records were dropped during deduplication.
	ArtifactSkippedRecords ArtifactKind = "skipped_records"
	// ArtifactValidationReport is the gate engine's full per-candidate audit output.
	ArtifactValidationReport ArtifactKind = "validation_report"
)
