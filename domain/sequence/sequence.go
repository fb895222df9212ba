// Package sequence provides content identity for candidate sequences:
// stable fingerprints, a cheap positional identity score, and a
// low-complexity heuristic. It is a leaf dependency for deduplication,
// clustering, and novelty recalibration.
package sequence

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// FingerprintLength is the hex prefix length of a sequence fingerprint.
const FingerprintLength = 12

// Fingerprint identifies a normalized sequence by a truncated content hash.
// Two sequences with identical normalized content always share a
// fingerprint; collisions at this prefix length are treated as negligible.
type Fingerprint string

// String returns the string representation
func (f Fingerprint) String() string { return string(f) }

// IsEmpty checks if the fingerprint is empty
func (f Fingerprint) IsEmpty() bool { return f == "" }

// Normalize strips all whitespace and uppercases a sequence.
// All identity and fingerprint computations operate on normalized content.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// ComputeFingerprint derives the fingerprint of a sequence.
// Deterministic, no side effects.
func ComputeFingerprint(s string) Fingerprint {
	sum := sha256.Sum256([]byte(Normalize(s)))
	return Fingerprint(hex.EncodeToString(sum[:])[:FingerprintLength])
}

// Identity returns the fraction of position-wise equal symbols between two
// sequences in [0, 1]. Sequences of unequal length are center-cropped to the
// shorter length before comparison (symmetric crop favoring neither end; an
// odd excess shifts both crops by the same integer division).
//
// This is intentionally NOT an alignment: insertions and deletions are not
// modeled, only substitutions at aligned centered positions. Two
// biologically identical sequences differing by a single insertion can
// score low identity.
func Identity(a, b string) float64 {
	na := Normalize(a)
	nb := Normalize(b)
	if len(na) == 0 || len(nb) == 0 {
		return 0.0
	}

	n := len(na)
	if len(nb) < n {
		n = len(nb)
	}
	na = centerCrop(na, n)
	nb = centerCrop(nb, n)

	matches := 0
	for i := 0; i < n; i++ {
		if na[i] == nb[i] {
			matches++
		}
	}
	return float64(matches) / float64(n)
}

// Coverage returns the length ratio shorter/longer of two sequences after
// normalization, or 0 if either is empty. Used to weight identity when
// comparing against reference sequences of different lengths.
func Coverage(a, b string) float64 {
	la := len(Normalize(a))
	lb := len(Normalize(b))
	if la == 0 || lb == 0 {
		return 0.0
	}
	if la > lb {
		la, lb = lb, la
	}
	return float64(la) / float64(lb)
}

// centerCrop trims s symmetrically to length n
func centerCrop(s string, n int) string {
	if len(s) <= n {
		return s
	}
	start := (len(s) - n) / 2
	return s[start : start+n]
}
