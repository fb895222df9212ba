package triage

import (
	"math"
	"testing"
)

func closeTo(got, want, tol float64) bool {
	return math.Abs(got-want) <= tol
}

func TestRecalibrateNoveltyEmptyReferences(t *testing.T) {
	tests := []struct {
		name string
		seq  string
		want float64
	}{
		// 30 diverse residues: no penalty applies, full novelty.
		{"long diverse sequence", "ACDEFGHIKLMNPQRSTVWYACDEFGHIKL", 1.0},
		// 10 diverse residues: short penalty only.
		{"short diverse sequence", "ACDEFGHIKL", 0.8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RecalibrateNovelty(tt.seq, nil)
			if !closeTo(got, tt.want, 1e-9) {
				t.Errorf("expected novelty %v, got %v", tt.want, got)
			}
		})
	}
}

func TestRecalibrateNoveltyNearReference(t *testing.T) {
	// One mismatch over ten positions against the lone reference: base
	// novelty 0.1, then x0.8 short and x0.85 low-complexity (90% A).
	refs := []string{"AAAAAAAAAA"}
	got := RecalibrateNovelty("AAAAAAAAAB", refs)
	want := 0.1 * 0.8 * 0.85
	if !closeTo(got, want, 1e-9) {
		t.Errorf("expected novelty %v, got %v", want, got)
	}

	if sim := ReferenceSimilarity("AAAAAAAAAB", refs); !closeTo(sim, 0.9, 1e-9) {
		t.Errorf("expected reference similarity 0.9, got %v", sim)
	}
}

func TestRecalibrateNoveltyShortPenaltyOnly(t *testing.T) {
	// 19/20 identity, full coverage, diverse sequence: base 0.05, x0.8.
	refs := []string{"ACDEFGHIKLMNPQRSTVWY"}
	got := RecalibrateNovelty("ACDEFGHIKLMNPQRSTVWA", refs)
	if !closeTo(got, 0.04, 1e-9) {
		t.Errorf("expected novelty 0.04, got %v", got)
	}
}

func TestRecalibrateNoveltyCoverageWeighting(t *testing.T) {
	// A 15-mer fragment of a 30-mer reference matches perfectly where it
	// aligns, but covers only half of it: similarity 0.5, not 1.0.
	refs := []string{"AAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"}
	seq := "AAAAAAAAAAAAAAA"

	if sim := ReferenceSimilarity(seq, refs); !closeTo(sim, 0.5, 1e-9) {
		t.Fatalf("expected reference similarity 0.5, got %v", sim)
	}

	got := RecalibrateNovelty(seq, refs)
	want := 0.5 * 0.8 * 0.85
	if !closeTo(got, want, 1e-9) {
		t.Errorf("expected novelty %v, got %v", want, got)
	}
}

func TestRecalibrateNoveltyClipsAtZero(t *testing.T) {
	seq := "ACDEFGHIKLMNPQRSTVWYACDEFGHIKL"
	got := RecalibrateNovelty(seq, []string{seq})
	if got != 0 {
		t.Errorf("exact reference match should give zero novelty, got %v", got)
	}
}

func TestReferenceSimilarityTakesMaxOverReferences(t *testing.T) {
	seq := "ACDEFGHIKLMNPQRSTVWYACDEFGHIKL"
	refs := []string{"MKTAYIAKQRQISFVKSHFSRQLEERLGLI", seq}
	if sim := ReferenceSimilarity(seq, refs); !closeTo(sim, 1.0, 1e-9) {
		t.Errorf("expected max similarity 1.0 from exact reference, got %v", sim)
	}
}

func TestReferenceSimilarityEmptyReferences(t *testing.T) {
	if sim := ReferenceSimilarity("ACDEFGHIKL", nil); sim != 0 {
		t.Errorf("expected similarity 0 with no references, got %v", sim)
	}
}
