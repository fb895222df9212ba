package triage

import "seqtriage/domain/sequence"

const (
	shortSequenceLength  = 30
	shortSequencePenalty = 0.80
	lowComplexityPenalty = 0.85
)

// ReferenceSimilarity is the strongest resemblance between a sequence and
// any reference: max over the reference set of identity x coverage. Identity
// alone overstates similarity for fragments, so it is weighted by how much
// of the longer sequence the shorter one spans. Returns 0 when the
// reference set is empty.
func ReferenceSimilarity(seq string, references []string) float64 {
	max := 0.0
	for _, ref := range references {
		sim := sequence.Identity(seq, ref) * sequence.Coverage(seq, ref)
		if sim > max {
			max = sim
		}
	}
	return max
}

// RecalibrateNovelty replaces an upstream novelty score with one grounded
// in the reference set: 1 - ReferenceSimilarity, discounted for sequences
// too short to trust (x0.80 under 30 residues) and for low-complexity
// sequences whose similarity statistics are unreliable (x0.85). Both
// penalties apply independently. An empty reference set means nothing to
// be non-novel against, so the base is 1.0. Result is clipped to [0, 1].
func RecalibrateNovelty(seq string, references []string) float64 {
	novelty := 1.0
	if len(references) > 0 {
		novelty = 1.0 - ReferenceSimilarity(seq, references)
	}

	normalized := sequence.Normalize(seq)
	if len(normalized) < shortSequenceLength {
		novelty *= shortSequencePenalty
	}
	if sequence.IsLowComplexity(seq) {
		novelty *= lowComplexityPenalty
	}

	if novelty < 0 {
		return 0
	}
	if novelty > 1 {
		return 1
	}
	return novelty
}
