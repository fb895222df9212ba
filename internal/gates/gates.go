package gates

import (
	"math"
	"math/rand"

	"seqtriage/domain/core"
	"seqtriage/domain/stats"
	"seqtriage/domain/verdict"
)

// ============================================================================
// GATE THRESHOLDS
// ============================================================================

const (
	maxEnergyDrift      = 0.01
	minRamaFavored      = 0.95
	maxClashRate        = 0.01
	minDetailedBalanceP = 0.05

	ciLevel       = 0.95
	minCICoverage = 0.90
	maxCICoverage = 0.98

	maxRelativeDiff = 0.05

	minSSAccuracy    = 0.80
	maxChemShiftRMSE = 2.0
	minHXRatio       = 0.5
	maxHXRatio       = 2.0
	maxSAXSChi2      = 2.0

	relativeDiffEpsilon = 1e-12
)

// Comparator helpers. Absent observations fail: a check with no evidence
// reports Observed nil and Passed false.

func checkAtMost(name string, observed *float64, threshold float64) verdict.CheckResult {
	result := verdict.CheckResult{Name: name, Observed: observed, Threshold: threshold}
	if observed != nil {
		result.Passed = *observed <= threshold
	}
	return result
}

func checkAtLeast(name string, observed *float64, threshold float64) verdict.CheckResult {
	result := verdict.CheckResult{Name: name, Observed: observed, Threshold: threshold}
	if observed != nil {
		result.Passed = *observed >= threshold
	}
	return result
}

func checkAbove(name string, observed *float64, threshold float64) verdict.CheckResult {
	result := verdict.CheckResult{Name: name, Observed: observed, Threshold: threshold}
	if observed != nil {
		result.Passed = *observed > threshold
	}
	return result
}

func checkBelow(name string, observed *float64, threshold float64) verdict.CheckResult {
	result := verdict.CheckResult{Name: name, Observed: observed, Threshold: threshold}
	if observed != nil {
		result.Passed = *observed < threshold
	}
	return result
}

// checkPresent encodes a boolean presence check as observed 1/0 against
// threshold 1 so it carries the same audit shape as numeric checks.
func checkPresent(name string, present bool) verdict.CheckResult {
	observed := 0.0
	if present {
		observed = 1.0
	}
	return verdict.CheckResult{Name: name, Observed: &observed, Threshold: 1.0, Passed: present}
}

func gateResult(category verdict.GateCategory, checks ...verdict.CheckResult) verdict.GateResult {
	passed := true
	for _, c := range checks {
		if !c.Passed {
			passed = false
			break
		}
	}
	return verdict.GateResult{Category: category, Passed: passed, Checks: checks}
}

// ============================================================================
// CATEGORY EVALUATORS
// ============================================================================

func evaluatePhysics(ev Evidence) verdict.GateResult {
	return gateResult(verdict.GatePhysics,
		checkAtMost("energy_drift", ev.EnergyDrift, maxEnergyDrift),
		checkAtLeast("rama_favored", ev.RamaFavored, minRamaFavored),
		checkAtMost("clash_rate", ev.ClashRate, maxClashRate),
		checkAbove("detailed_balance_p", ev.DetailedBalanceP, minDetailedBalanceP),
	)
}

// evaluateStatisticalRigor accepts a supplied interval, or derives one
// from raw replicates with a seeded bootstrap when the caller provides an
// RNG. Coverage must be supplied; it cannot be derived from one sample.
func evaluateStatisticalRigor(ev Evidence, rng *rand.Rand) verdict.GateResult {
	lower, upper := ev.CILower, ev.CIUpper
	if (lower == nil || upper == nil) && len(ev.Replicates) >= 2 && rng != nil {
		if interval, err := stats.BootstrapInterval(ev.Replicates, ciLevel, stats.DefaultBootstrapResamples, rng); err == nil {
			l, u := interval.Lower, interval.Upper
			lower, upper = &l, &u
		}
	}

	return gateResult(verdict.GateStatisticalRigor,
		checkPresent("ci_present", lower != nil && upper != nil),
		checkAtLeast("ci_coverage_min", ev.CICoverage, minCICoverage),
		checkAtMost("ci_coverage_max", ev.CICoverage, maxCICoverage),
	)
}

// evaluateReproducibility compares two independently seeded runs. Run
// values may be supplied directly or as replicate arrays, in which case
// the run means are compared.
func evaluateReproducibility(ev Evidence) verdict.GateResult {
	runA := runValue(ev.RunAValue, ev.RunAReplicates)
	runB := runValue(ev.RunBValue, ev.RunBReplicates)

	var relDiff *float64
	if runA != nil && runB != nil {
		rd := relativeDifference(*runA, *runB)
		relDiff = &rd
	}

	return gateResult(verdict.GateReproducibility,
		checkBelow("relative_difference", relDiff, maxRelativeDiff),
	)
}

func evaluateEvidenceLoop(ev Evidence) verdict.GateResult {
	return gateResult(verdict.GateEvidenceLoop,
		checkAtLeast("ss_accuracy", ev.SSAccuracy, minSSAccuracy),
		checkAtMost("chemical_shift_rmse", ev.ChemicalShiftRMSE, maxChemShiftRMSE),
		checkAtLeast("hx_ratio_min", ev.HXRatio, minHXRatio),
		checkAtMost("hx_ratio_max", ev.HXRatio, maxHXRatio),
		checkAtMost("saxs_chi2", ev.SAXSChi2, maxSAXSChi2),
	)
}

func evaluateAKGAudit(ev Evidence) verdict.GateResult {
	return gateResult(verdict.GateAKGAudit,
		checkPresent("content_hash", ev.HasContentHash),
		checkPresent("recorded_io", ev.HasRecordedIO),
		checkPresent("virtue_vector", ev.HasVirtueVector),
		checkPresent("logged_checks", ev.HasLoggedChecks),
		checkPresent("provenance_chain", ev.HasProvenanceChain),
	)
}

// EvaluateCandidate runs all five gate categories over one candidate's
// evidence. The verdict passes only when every category passes. rng feeds
// the bootstrap fallback in statistical_rigor and may be nil when no
// replicate-derived interval is wanted.
func EvaluateCandidate(candidateID core.CandidateID, ev Evidence, rng *rand.Rand) verdict.CandidateVerdict {
	gatesResults := []verdict.GateResult{
		evaluatePhysics(ev),
		evaluateStatisticalRigor(ev, rng),
		evaluateReproducibility(ev),
		evaluateEvidenceLoop(ev),
		evaluateAKGAudit(ev),
	}

	passed := true
	for _, g := range gatesResults {
		if !g.Passed {
			passed = false
			break
		}
	}

	return verdict.CandidateVerdict{
		CandidateID: candidateID,
		Passed:      passed,
		Gates:       gatesResults,
		EvaluatedAt: core.Now(),
	}
}

func runValue(value *float64, replicates []float64) *float64 {
	if value != nil {
		return value
	}
	mean, err := stats.MeanOf(replicates)
	if err != nil {
		return nil
	}
	return &mean
}

// relativeDifference is symmetric in its arguments: the gap is scaled by
// the larger magnitude. Two zero runs agree perfectly.
func relativeDifference(a, b float64) float64 {
	denom := math.Max(math.Abs(a), math.Abs(b))
	if denom < relativeDiffEpsilon {
		return 0
	}
	return math.Abs(a-b) / denom
}
