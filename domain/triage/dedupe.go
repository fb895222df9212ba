// Package triage reduces noisy batches of discovery records to a ranked
// shortlist: exact-duplicate collapse by fingerprint, greedy near-duplicate
// clustering, novelty recalibration, and transparent priority ranking.
package triage

import (
	"sort"

	"seqtriage/domain/core"
	"seqtriage/domain/record"
	"seqtriage/domain/sequence"
)

// Candidate is one deduplicated discovery candidate. Its metric vector is
// the field-wise maximum across every raw record sharing its fingerprint:
// a candidate is judged by its best recorded evidence, never penalized by a
// noisy duplicate with a lower score.
type Candidate struct {
	ID          core.CandidateID     `json:"id"`
	Fingerprint sequence.Fingerprint `json:"fingerprint"`
	Sequence    string               `json:"sequence"` // normalized
	Labels      []string             `json:"labels"`   // sorted union across duplicates
	Metrics     record.Metrics       `json:"metrics"`
	Merged      int                  `json:"merged"` // raw records collapsed into this candidate
}

// SkippedRecord documents a raw record dropped during deduplication.
type SkippedRecord struct {
	Index  int    `json:"index"`
	Label  string `json:"label,omitempty"`
	Reason string `json:"reason"`
}

// Deduplicate collapses raw records into one candidate per unique
// fingerprint. Records without a usable sequence are skipped, never fatal;
// every skip is reported so the run manifest can account for it. Output
// preserves first-seen order.
func Deduplicate(records []record.Raw) ([]Candidate, []SkippedRecord) {
	candidates := make([]Candidate, 0, len(records))
	var skipped []SkippedRecord

	seen := make(map[sequence.Fingerprint]int)
	labelSets := make([]map[string]struct{}, 0, len(records))

	for i, rec := range records {
		normalized := sequence.Normalize(rec.Sequence)
		if normalized == "" {
			skipped = append(skipped, SkippedRecord{
				Index:  i,
				Label:  rec.Label,
				Reason: "empty sequence after normalization",
			})
			continue
		}

		fp := sequence.ComputeFingerprint(normalized)
		if idx, ok := seen[fp]; ok {
			c := &candidates[idx]
			c.Metrics = c.Metrics.MergeMax(rec.Metrics)
			c.Merged++
			if rec.Label != "" {
				labelSets[idx][rec.Label] = struct{}{}
			}
			continue
		}

		seen[fp] = len(candidates)
		labels := make(map[string]struct{})
		if rec.Label != "" {
			labels[rec.Label] = struct{}{}
		}
		labelSets = append(labelSets, labels)
		candidates = append(candidates, Candidate{
			ID:          core.CandidateID(core.NewID()),
			Fingerprint: fp,
			Sequence:    normalized,
			Metrics:     rec.Metrics,
			Merged:      1,
		})
	}

	for i := range candidates {
		candidates[i].Labels = sortedLabels(labelSets[i])
	}
	return candidates, skipped
}

// sortedLabels flattens a label set into a deterministic slice.
func sortedLabels(set map[string]struct{}) []string {
	labels := make([]string, 0, len(set))
	for l := range set {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}
