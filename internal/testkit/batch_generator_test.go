package testkit

import (
	"strings"
	"testing"

	"seqtriage/domain/sequence"
)

func TestBatchGenerator_Basic(t *testing.T) {
	config := DefaultBatchConfig()
	config.RecordCount = 40

	generator := NewBatchGenerator(config)
	records := generator.GenerateRecords()

	if len(records) != 40 {
		t.Fatalf("expected 40 records, got %d", len(records))
	}

	for i, r := range records {
		if r.Label == "" {
			t.Errorf("record %d has empty label", i)
		}
		if strings.TrimSpace(r.Sequence) == "" {
			continue // malformed rows are part of the fixture
		}
		normalized := sequence.Normalize(r.Sequence)
		if len(normalized) < config.MinLength || len(normalized) > config.MaxLength {
			t.Errorf("record %d length %d outside [%d, %d]", i, len(normalized), config.MinLength, config.MaxLength)
		}
		if r.Metrics.Novelty < 0 || r.Metrics.Novelty > 1 {
			t.Errorf("record %d novelty %f outside [0, 1]", i, r.Metrics.Novelty)
		}
	}
}

func TestBatchGenerator_Deterministic(t *testing.T) {
	config := DefaultBatchConfig()
	config.RecordCount = 30
	config.Seed = 12345

	first := NewBatchGenerator(config).GenerateRecords()
	second := NewBatchGenerator(config).GenerateRecords()

	if len(first) != len(second) {
		t.Fatalf("batch sizes differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("record %d differs between identical-seed batches: %+v vs %+v", i, first[i], second[i])
		}
	}

	config.Seed = 54321
	other := NewBatchGenerator(config).GenerateRecords()
	same := true
	for i := range first {
		if first[i].Sequence != other[i].Sequence {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced identical sequences")
	}
}

func TestBatchGenerator_MixesDuplicatesAndMalformed(t *testing.T) {
	config := DefaultBatchConfig()
	config.RecordCount = 200

	records := NewBatchGenerator(config).GenerateRecords()

	malformed := 0
	seen := make(map[sequence.Fingerprint]int)
	duplicates := 0
	for _, r := range records {
		if strings.TrimSpace(r.Sequence) == "" {
			malformed++
			continue
		}
		fp := sequence.ComputeFingerprint(r.Sequence)
		if seen[fp] > 0 {
			duplicates++
		}
		seen[fp]++
	}

	if malformed == 0 {
		t.Error("expected some malformed rows in a 200-record batch")
	}
	if duplicates == 0 {
		t.Error("expected some duplicate sequences in a 200-record batch")
	}
}

func TestBatchGenerator_ReferencePanelOverlapsBatch(t *testing.T) {
	config := DefaultBatchConfig()
	config.RecordCount = 50

	generator := NewBatchGenerator(config)
	records := generator.GenerateRecords()
	references := generator.GenerateReferences(10)

	if len(references) != 10 {
		t.Fatalf("expected 10 references, got %d", len(references))
	}

	// At least one reference should sit within one residue of a batch
	// sequence, so novelty recalibration sees real overlap.
	overlap := false
	for _, ref := range references {
		for _, r := range records {
			seq := sequence.Normalize(r.Sequence)
			if seq == "" || len(seq) != len(ref) {
				continue
			}
			if sequence.Identity(seq, ref) >= 0.9 {
				overlap = true
				break
			}
		}
		if overlap {
			break
		}
	}
	if !overlap {
		t.Error("expected at least one reference near a batch sequence")
	}
}
