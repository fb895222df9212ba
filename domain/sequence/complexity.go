package sequence

const (
	// minComplexLength is the length below which a sequence is always low complexity.
	minComplexLength = 10
	// maxSymbolFraction is the single-symbol frequency above which a sequence is low complexity.
	maxSymbolFraction = 0.40
	// minRepeatCount is the contiguous k-mer repeat count that marks low complexity.
	minRepeatCount = 4
)

// IsLowComplexity reports whether a sequence is too repetitive or too short
// to carry meaningful signal. A sequence is low complexity when its
// normalized length is under 10 symbols, when any single symbol exceeds 40%
// of positions, or when any di-, tri-, or tetra-mer repeats four or more
// times contiguously. Callers use this as a penalty signal, not a hard
// filter.
func IsLowComplexity(s string) bool {
	n := Normalize(s)
	if len(n) < minComplexLength {
		return true
	}

	counts := make(map[byte]int)
	for i := 0; i < len(n); i++ {
		counts[n[i]]++
	}
	for _, c := range counts {
		if float64(c)/float64(len(n)) > maxSymbolFraction {
			return true
		}
	}

	for k := 2; k <= 4; k++ {
		if hasContiguousRepeat(n, k, minRepeatCount) {
			return true
		}
	}
	return false
}

// hasContiguousRepeat reports whether any k-mer occurs at least minReps
// times back to back.
func hasContiguousRepeat(s string, k, minReps int) bool {
	if len(s) < k*minReps {
		return false
	}
	for i := 0; i+k*minReps <= len(s); i++ {
		kmer := s[i : i+k]
		reps := 1
		for j := i + k; j+k <= len(s) && s[j:j+k] == kmer; j += k {
			reps++
			if reps >= minReps {
				return true
			}
		}
	}
	return false
}
