// Package run carries the audit metadata of one triage run: everything
// needed to replay it and to verify two runs over the same inputs agree.
package run

import (
	"crypto/sha256"
	"fmt"

	"seqtriage/domain/core"
)

// TriageFingerprint captures every input that can change a triage outcome.
// Two runs with equal fingerprints must produce identical ranked tables.
type TriageFingerprint struct {
	BatchHash         core.BatchHash `json:"batch_hash"`
	ReferenceHash     core.Hash      `json:"reference_hash"`
	IdentityThreshold float64        `json:"identity_threshold"`
	Seed              int64          `json:"seed"`
	CodeVersion       string         `json:"code_version"`
	Fingerprint       core.Hash      `json:"fingerprint"` // hash of all above
}

// NewTriageFingerprint creates a fingerprint from determinism parameters.
func NewTriageFingerprint(batchHash core.BatchHash, referenceHash core.Hash,
	identityThreshold float64, seed int64, codeVersion string) TriageFingerprint {

	fingerprint := computeTriageFingerprint(batchHash, referenceHash, identityThreshold, seed, codeVersion)

	return TriageFingerprint{
		BatchHash:         batchHash,
		ReferenceHash:     referenceHash,
		IdentityThreshold: identityThreshold,
		Seed:              seed,
		CodeVersion:       codeVersion,
		Fingerprint:       fingerprint,
	}
}

// computeTriageFingerprint generates a deterministic hash over all
// determinism parameters.
func computeTriageFingerprint(batchHash core.BatchHash, referenceHash core.Hash,
	identityThreshold float64, seed int64, codeVersion string) core.Hash {

	data := fmt.Sprintf("batch:%s|references:%s|threshold:%.6f|seed:%d|code:%s",
		batchHash, referenceHash, identityThreshold, seed, codeVersion)

	hash := sha256.Sum256([]byte(data))
	return core.Hash(fmt.Sprintf("%x", hash))
}
