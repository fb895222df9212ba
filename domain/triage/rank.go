package triage

import (
	"math"
	"sort"

	"seqtriage/domain/core"
	"seqtriage/domain/sequence"
)

// ============================================================================
// PRIORITY WEIGHTS AND FLAGS
// ============================================================================

// Priority blends three signals. Novelty enters through a square root so
// the first gains of novelty matter more than the last: moving from 0.0 to
// 0.1 novelty shifts priority more than moving from 0.8 to 0.9.
const (
	noveltyWeight     = 0.50
	researchWeight    = 0.35
	feasibilityWeight = 0.15
)

// Publication-readiness thresholds. A candidate below any of them needs
// more work before it can anchor a manuscript.
const (
	minPublicationPhysics    = 0.95
	minPublicationConfidence = 0.80
	minPublicationResearch   = 0.70
	minPublicationLength     = 20
)

// nearReferenceSimilarity marks candidates that recalibration found close
// to a known reference; their upstream novelty scores were inflated.
const nearReferenceSimilarity = 0.80

// WarningCode flags a property of a ranked candidate that a reviewer
// should weigh before acting on its position in the table.
type WarningCode string

const (
	WarningShortSequence    WarningCode = "SHORT_SEQUENCE"
	WarningLowComplexity    WarningCode = "LOW_COMPLEXITY"
	WarningNearReference    WarningCode = "NEAR_REFERENCE"
	WarningMergedDuplicates WarningCode = "MERGED_DUPLICATES"
)

// ============================================================================
// RANKED TABLE
// ============================================================================

// Ranked is one row of the final priority table: a cluster representative
// with its recalibrated novelty, computed priority, and audit flags.
type Ranked struct {
	ID               core.CandidateID     `json:"id"`
	Labels           []string             `json:"labels"`
	Fingerprint      sequence.Fingerprint `json:"fingerprint"`
	Sequence         string               `json:"sequence"`
	Length           int                  `json:"length"`
	Novelty          float64              `json:"novelty"`
	Research         float64              `json:"research_score"`
	Therapeutic      float64              `json:"therapeutic_potential"`
	Physics          float64              `json:"physics_validation"`
	Druggability     float64              `json:"druggability"`
	Confidence       float64              `json:"confidence"`
	Aggregation      float64              `json:"aggregation_propensity"`
	Feasibility      float64              `json:"feasibility"`
	Priority         float64              `json:"priority"`
	ClusterSize      int                  `json:"cluster_size"`
	PublicationReady bool                 `json:"publication_ready"`
	LowComplexity    bool                 `json:"low_complexity"`
	Warnings         []WarningCode        `json:"warnings,omitempty"`
}

// ClusterMember records one collapsed candidate inside a cluster audit
// entry.
type ClusterMember struct {
	ID          core.CandidateID     `json:"id"`
	Fingerprint sequence.Fingerprint `json:"fingerprint"`
	Labels      []string             `json:"labels,omitempty"`
}

// ClusterAudit explains which candidates each ranked row speaks for, so a
// reviewer can recover everything a representative absorbed.
type ClusterAudit struct {
	RepresentativeID core.CandidateID     `json:"representative_id"`
	Fingerprint      sequence.Fingerprint `json:"fingerprint"`
	Sequence         string               `json:"sequence"`
	Members          []ClusterMember      `json:"members"`
}

// TopEntry is one line of the downstream export: just enough to hand a
// synthesis queue.
type TopEntry struct {
	ID       core.CandidateID `json:"id"`
	Sequence string           `json:"sequence"`
}

// ComputePriority folds novelty, research score, and feasibility into a
// single ordering key. Negative novelty is treated as zero so a harsh
// recalibration can suppress, but never invert, the novelty term.
func ComputePriority(novelty, research, feasibility float64) float64 {
	return noveltyWeight*math.Sqrt(math.Max(0, novelty)) +
		researchWeight*research +
		feasibilityWeight*feasibility
}

// BuildRanking projects cluster representatives into the final table:
// recalibrates novelty against the reference set, computes priority, flags
// publication readiness, and sorts best-first. The second return value is
// the cluster audit map, in the same pre-sort order the clusters arrived
// in.
func BuildRanking(candidates []Candidate, clusters []Cluster, references []string) ([]Ranked, []ClusterAudit) {
	ranked := make([]Ranked, 0, len(clusters))
	audits := make([]ClusterAudit, 0, len(clusters))

	for _, cluster := range clusters {
		rep := candidates[cluster.Representative]

		novelty := RecalibrateNovelty(rep.Sequence, references)
		lowComplexity := sequence.IsLowComplexity(rep.Sequence)
		length := len(rep.Sequence)

		row := Ranked{
			ID:            rep.ID,
			Labels:        rep.Labels,
			Fingerprint:   rep.Fingerprint,
			Sequence:      rep.Sequence,
			Length:        length,
			Novelty:       novelty,
			Research:      rep.Metrics.Research,
			Therapeutic:   rep.Metrics.Therapeutic,
			Physics:       rep.Metrics.Physics,
			Druggability:  rep.Metrics.Druggability,
			Confidence:    rep.Metrics.Confidence,
			Aggregation:   rep.Metrics.Aggregation,
			Feasibility:   rep.Metrics.Feasibility,
			Priority:      ComputePriority(novelty, rep.Metrics.Research, rep.Metrics.Feasibility),
			ClusterSize:   len(cluster.Members),
			LowComplexity: lowComplexity,
		}
		row.PublicationReady = row.Physics >= minPublicationPhysics &&
			row.Confidence >= minPublicationConfidence &&
			row.Research >= minPublicationResearch &&
			row.Length >= minPublicationLength
		row.Warnings = collectWarnings(rep, references, length, lowComplexity)
		ranked = append(ranked, row)

		members := make([]ClusterMember, 0, len(cluster.Members))
		for _, m := range cluster.Members {
			members = append(members, ClusterMember{
				ID:          candidates[m].ID,
				Fingerprint: candidates[m].Fingerprint,
				Labels:      candidates[m].Labels,
			})
		}
		audits = append(audits, ClusterAudit{
			RepresentativeID: rep.ID,
			Fingerprint:      rep.Fingerprint,
			Sequence:         rep.Sequence,
			Members:          members,
		})
	}

	SortRanked(ranked)
	return ranked, audits
}

// collectWarnings derives audit flags for one representative.
func collectWarnings(rep Candidate, references []string, length int, lowComplexity bool) []WarningCode {
	var warnings []WarningCode
	if length < shortSequenceLength {
		warnings = append(warnings, WarningShortSequence)
	}
	if lowComplexity {
		warnings = append(warnings, WarningLowComplexity)
	}
	if ReferenceSimilarity(rep.Sequence, references) >= nearReferenceSimilarity {
		warnings = append(warnings, WarningNearReference)
	}
	if rep.Merged > 1 {
		warnings = append(warnings, WarningMergedDuplicates)
	}
	return warnings
}

// SortRanked orders rows best-first: descending priority, then descending
// novelty, then descending research score. The stable sort plus the
// deterministic cluster order upstream keeps full ties in fingerprint
// order.
func SortRanked(rows []Ranked) {
	sort.SliceStable(rows, func(a, b int) bool {
		ra, rb := rows[a], rows[b]
		if ra.Priority != rb.Priority {
			return ra.Priority > rb.Priority
		}
		if ra.Novelty != rb.Novelty {
			return ra.Novelty > rb.Novelty
		}
		return ra.Research > rb.Research
	})
}

// TopN extracts the export payload for the first n ranked rows. n larger
// than the table returns every row.
func TopN(rows []Ranked, n int) []TopEntry {
	if n > len(rows) {
		n = len(rows)
	}
	if n < 0 {
		n = 0
	}
	out := make([]TopEntry, 0, n)
	for _, row := range rows[:n] {
		out = append(out, TopEntry{ID: row.ID, Sequence: row.Sequence})
	}
	return out
}
