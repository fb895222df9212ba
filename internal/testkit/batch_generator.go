package testkit

import (
	"fmt"
	"math/rand"
	"strings"

	"seqtriage/domain/record"
)

// residueAlphabet is the canonical residue vocabulary used for synthetic
// sequences.
const residueAlphabet = "ACDEFGHIKLMNPQRSTVWY"

// BatchGeneratorConfig configures the synthetic record batch generator
type BatchGeneratorConfig struct {
	RecordCount   int     `json:"record_count"`
	DuplicateRate float64 `json:"duplicate_rate"` // exact repeats, possibly reformatted
	VariantRate   float64 `json:"variant_rate"`   // single-residue mutations of earlier records
	EmptyRate     float64 `json:"empty_rate"`     // unusable rows with no sequence
	MinLength     int     `json:"min_length"`
	MaxLength     int     `json:"max_length"`
	Seed          int64   `json:"seed"`
}

// DefaultBatchConfig returns sensible defaults for synthetic batch generation
func DefaultBatchConfig() BatchGeneratorConfig {
	return BatchGeneratorConfig{
		RecordCount:   60,
		DuplicateRate: 0.15,
		VariantRate:   0.10,
		EmptyRate:     0.05,
		MinLength:     20,
		MaxLength:     48,
		Seed:          42,
	}
}

// BatchGenerator generates realistic discovery record batches: mostly fresh
// sequences, with a controlled share of duplicates, near-duplicate variants,
// and malformed rows so the triage stages all have work to do.
type BatchGenerator struct {
	config  BatchGeneratorConfig
	rng     *rand.Rand
	emitted []string // fresh sequences available for duplication and mutation
}

// NewBatchGenerator creates a new batch generator
func NewBatchGenerator(config BatchGeneratorConfig) *BatchGenerator {
	return &BatchGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// GenerateRecords generates a complete record batch. The same config always
// produces the same batch.
func (g *BatchGenerator) GenerateRecords() []record.Raw {
	records := make([]record.Raw, 0, g.config.RecordCount)

	for i := 0; i < g.config.RecordCount; i++ {
		label := fmt.Sprintf("run-%03d", i+1)
		roll := g.rng.Float64()

		switch {
		case roll < g.config.EmptyRate:
			// Unusable row: whitespace-only sequence
			records = append(records, record.Raw{Sequence: "   ", Label: label})

		case roll < g.config.EmptyRate+g.config.DuplicateRate && len(g.emitted) > 0:
			base := g.emitted[g.rng.Intn(len(g.emitted))]
			records = append(records, record.Raw{
				Sequence: g.reformat(base),
				Label:    label,
				Metrics:  g.randomMetrics(),
			})

		case roll < g.config.EmptyRate+g.config.DuplicateRate+g.config.VariantRate && len(g.emitted) > 0:
			base := g.emitted[g.rng.Intn(len(g.emitted))]
			records = append(records, record.Raw{
				Sequence: g.mutate(base),
				Label:    label,
				Metrics:  g.randomMetrics(),
			})

		default:
			seq := g.randomSequence()
			g.emitted = append(g.emitted, seq)
			records = append(records, record.Raw{
				Sequence: seq,
				Label:    label,
				Metrics:  g.randomMetrics(),
			})
		}
	}

	return records
}

// GenerateReferences generates a reference panel. Even slots hold
// near-misses of already generated batch sequences so novelty recalibration
// has real overlap to find; odd slots are unrelated. Call after
// GenerateRecords.
func (g *BatchGenerator) GenerateReferences(count int) []string {
	references := make([]string, 0, count)
	for i := 0; i < count; i++ {
		if len(g.emitted) > 0 && i%2 == 0 {
			base := g.emitted[g.rng.Intn(len(g.emitted))]
			references = append(references, g.mutate(base))
		} else {
			references = append(references, g.randomSequence())
		}
	}
	return references
}

// randomSequence draws a fresh sequence with length in [MinLength, MaxLength]
func (g *BatchGenerator) randomSequence() string {
	length := g.config.MinLength
	if g.config.MaxLength > g.config.MinLength {
		length += g.rng.Intn(g.config.MaxLength - g.config.MinLength + 1)
	}

	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		b.WriteByte(residueAlphabet[g.rng.Intn(len(residueAlphabet))])
	}
	return b.String()
}

// reformat returns the same sequence under a sloppier encoding: lowercase,
// or with interior whitespace. Normalization must fold these back together.
func (g *BatchGenerator) reformat(seq string) string {
	if g.rng.Intn(2) == 0 {
		return strings.ToLower(seq)
	}
	mid := len(seq) / 2
	return seq[:mid] + " " + seq[mid:]
}

// mutate flips one residue to a different letter, producing a near-duplicate
// that clusters with its base at standard identity thresholds
func (g *BatchGenerator) mutate(seq string) string {
	if seq == "" {
		return seq
	}
	pos := g.rng.Intn(len(seq))
	replacement := seq[pos]
	for replacement == seq[pos] {
		replacement = residueAlphabet[g.rng.Intn(len(residueAlphabet))]
	}
	return seq[:pos] + string(replacement) + seq[pos+1:]
}

// randomMetrics draws a plausible metric vector. Scores cluster in the
// mid-range with occasional strong candidates, which keeps rankings from
// degenerating into ties.
func (g *BatchGenerator) randomMetrics() record.Metrics {
	return record.Metrics{
		Novelty:      g.scoreDraw(),
		Research:     g.scoreDraw(),
		Therapeutic:  g.scoreDraw(),
		Physics:      0.7 + g.rng.Float64()*0.3,
		Druggability: g.scoreDraw(),
		Confidence:   0.5 + g.rng.Float64()*0.5,
		Aggregation:  g.rng.Float64() * 0.6,
		Feasibility:  0.3 + g.rng.Float64()*0.7,
	}
}

// scoreDraw returns a score in [0, 1] biased toward the middle of the range
func (g *BatchGenerator) scoreDraw() float64 {
	v := 0.5 + g.rng.NormFloat64()*0.2
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return v
}
