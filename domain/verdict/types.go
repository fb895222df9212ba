// Package verdict defines the gate engine's output types: per-check
// observations, per-category results, and the run-level validation report.
// Every pass/fail carries the observed value and the threshold it was held
// to, so no verdict has to be taken on faith.
package verdict

import (
	"seqtriage/domain/core"
)

// GateCategory names one family of validation checks.
type GateCategory string

const (
	GatePhysics          GateCategory = "physics_constraints"
	GateStatisticalRigor GateCategory = "statistical_rigor"
	GateReproducibility  GateCategory = "reproducibility"
	GateEvidenceLoop     GateCategory = "evidence_loop"
	GateAKGAudit         GateCategory = "akg_audit"
)

// AllGateCategories lists every category in report order.
func AllGateCategories() []GateCategory {
	return []GateCategory{
		GatePhysics,
		GateStatisticalRigor,
		GateReproducibility,
		GateEvidenceLoop,
		GateAKGAudit,
	}
}

// CheckResult is the audit record of a single threshold comparison.
// Observed is nil when the input carried no evidence for this check;
// absent evidence always fails.
type CheckResult struct {
	Name      string   `json:"name"`
	Observed  *float64 `json:"observed"`
	Threshold float64  `json:"threshold"`
	Passed    bool     `json:"passed"`
}

// GateResult aggregates the checks of one category. The category passes
// only when every check passes.
type GateResult struct {
	Category GateCategory  `json:"category"`
	Passed   bool          `json:"passed"`
	Checks   []CheckResult `json:"checks"`
}

// FailedChecks returns the names of the checks that failed.
func (g GateResult) FailedChecks() []string {
	var failed []string
	for _, c := range g.Checks {
		if !c.Passed {
			failed = append(failed, c.Name)
		}
	}
	return failed
}

// CandidateVerdict is the full gate outcome for one candidate. Passed
// means every category passed.
type CandidateVerdict struct {
	CandidateID core.CandidateID `json:"candidate_id"`
	Passed      bool             `json:"passed"`
	Gates       []GateResult     `json:"gates"`
	EvaluatedAt core.Timestamp   `json:"evaluated_at"`
}

// Gate returns the result for one category, if present.
func (v CandidateVerdict) Gate(category GateCategory) (GateResult, bool) {
	for _, g := range v.Gates {
		if g.Category == category {
			return g, true
		}
	}
	return GateResult{}, false
}

// FailedGates returns the categories that failed.
func (v CandidateVerdict) FailedGates() []GateCategory {
	var failed []GateCategory
	for _, g := range v.Gates {
		if !g.Passed {
			failed = append(failed, g.Category)
		}
	}
	return failed
}

// ValidationReport is the run-level gate artifact: one verdict per
// candidate plus pass/fail accounting at the candidate, category, and
// individual-check level.
type ValidationReport struct {
	RunID        core.RunID                 `json:"run_id"`
	Verdicts     []CandidateVerdict         `json:"verdicts"`
	Passed       int                        `json:"passed"`
	Failed       int                        `json:"failed"`
	TotalChecks  int                        `json:"total_checks"`
	ChecksPassed int                        `json:"checks_passed"`
	ByGate       map[GateCategory]GateTally `json:"by_gate"`
	CreatedAt    core.Timestamp             `json:"created_at"`
}

// GateTally counts category outcomes across a report.
type GateTally struct {
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

// NewValidationReport assembles the report and its tallies from the
// individual verdicts.
func NewValidationReport(runID core.RunID, verdicts []CandidateVerdict) *ValidationReport {
	report := &ValidationReport{
		RunID:     runID,
		Verdicts:  verdicts,
		ByGate:    make(map[GateCategory]GateTally),
		CreatedAt: core.Now(),
	}
	for _, v := range verdicts {
		if v.Passed {
			report.Passed++
		} else {
			report.Failed++
		}
		for _, g := range v.Gates {
			tally := report.ByGate[g.Category]
			if g.Passed {
				tally.Passed++
			} else {
				tally.Failed++
			}
			report.ByGate[g.Category] = tally

			for _, c := range g.Checks {
				report.TotalChecks++
				if c.Passed {
					report.ChecksPassed++
				}
			}
		}
	}
	return report
}

// ToCoreArtifact converts the report to a core artifact for storage.
func (r *ValidationReport) ToCoreArtifact() core.Artifact {
	return core.Artifact{
		ID:        core.NewID(),
		Kind:      core.ArtifactValidationReport,
		Payload:   r,
		CreatedAt: r.CreatedAt,
	}
}
