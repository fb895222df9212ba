package core

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Equals checks if two hashes are equal
func (h Hash) Equals(other Hash) bool {
	return h == other
}

// BatchHash identifies an input batch by its member fingerprints
type BatchHash Hash

// String returns the string representation
func (h BatchHash) String() string { return Hash(h).String() }

// ComputeBatchHash derives a batch identity from candidate fingerprints.
// Fingerprints are sorted first so the hash is independent of input order.
func ComputeBatchHash(fingerprints []string) BatchHash {
	sorted := make([]string, len(fingerprints))
	copy(sorted, fingerprints)
	sort.Strings(sorted)

	var data strings.Builder
	for _, fp := range sorted {
		data.WriteString(fp)
		data.WriteByte('\n')
	}

	return BatchHash(NewHash([]byte(data.String())))
}
