// Package gates implements the publication-readiness gate engine: five
// check categories evaluated against fixed thresholds, with a full
// observed/threshold/passed audit trail per check. A candidate the engine
// cannot fully evaluate fails - absent evidence is never treated as
// passing.
package gates

import (
	"fmt"
	"strconv"

	"seqtriage/domain/core"
	"seqtriage/domain/triage"
)

// Evidence holds every observation the gate engine can judge. All scalar
// fields are optional: nil means the upstream provided no measurement, and
// the corresponding check fails. Replicate arrays let the engine derive a
// confidence interval or run means itself when only raw samples were
// recorded.
type Evidence struct {
	// physics_constraints
	EnergyDrift      *float64 `json:"energy_drift,omitempty"`
	RamaFavored      *float64 `json:"rama_favored,omitempty"`
	ClashRate        *float64 `json:"clash_rate,omitempty"`
	DetailedBalanceP *float64 `json:"detailed_balance_p,omitempty"`

	// statistical_rigor
	CILower    *float64  `json:"ci_lower,omitempty"`
	CIUpper    *float64  `json:"ci_upper,omitempty"`
	CICoverage *float64  `json:"ci_coverage,omitempty"`
	Replicates []float64 `json:"replicates,omitempty"`

	// reproducibility
	RunAValue      *float64  `json:"run_a_value,omitempty"`
	RunBValue      *float64  `json:"run_b_value,omitempty"`
	RunAReplicates []float64 `json:"run_a_replicates,omitempty"`
	RunBReplicates []float64 `json:"run_b_replicates,omitempty"`

	// evidence_loop
	SSAccuracy        *float64 `json:"ss_accuracy,omitempty"`
	ChemicalShiftRMSE *float64 `json:"chemical_shift_rmse,omitempty"`
	HXRatio           *float64 `json:"hx_ratio,omitempty"`
	SAXSChi2          *float64 `json:"saxs_chi2,omitempty"`

	// akg_audit presence flags
	HasContentHash     bool `json:"has_content_hash"`
	HasRecordedIO      bool `json:"has_recorded_io"`
	HasVirtueVector    bool `json:"has_virtue_vector"`
	HasLoggedChecks    bool `json:"has_logged_checks"`
	HasProvenanceChain bool `json:"has_provenance_chain"`
}

// DeriveEvidence fills in only what a ranked candidate honestly implies.
// The physics_validation metric is the upstream Ramachandran-favored
// fraction, so it feeds rama_favored; the fingerprint is the content hash;
// sequence and metric vector are the recorded inputs/outputs and virtue
// vector; source labels are the provenance chain. Nothing else can be read
// off a ranked row, so everything else stays absent and fails its check
// until a real evidence report supplies it.
func DeriveEvidence(row triage.Ranked) Evidence {
	ev := Evidence{
		HasContentHash:     !row.Fingerprint.IsEmpty(),
		HasRecordedIO:      row.Sequence != "",
		HasVirtueVector:    row.Sequence != "",
		HasProvenanceChain: len(row.Labels) > 0,
	}
	physics := row.Physics
	ev.RamaFavored = &physics
	return ev
}

// Merge overlays report evidence on top of derived evidence. Scalar
// observations from the overlay win when present; presence flags OR
// together, since provenance recorded anywhere is still recorded.
func (e Evidence) Merge(overlay Evidence) Evidence {
	out := e
	if overlay.EnergyDrift != nil {
		out.EnergyDrift = overlay.EnergyDrift
	}
	if overlay.RamaFavored != nil {
		out.RamaFavored = overlay.RamaFavored
	}
	if overlay.ClashRate != nil {
		out.ClashRate = overlay.ClashRate
	}
	if overlay.DetailedBalanceP != nil {
		out.DetailedBalanceP = overlay.DetailedBalanceP
	}
	if overlay.CILower != nil {
		out.CILower = overlay.CILower
	}
	if overlay.CIUpper != nil {
		out.CIUpper = overlay.CIUpper
	}
	if overlay.CICoverage != nil {
		out.CICoverage = overlay.CICoverage
	}
	if len(overlay.Replicates) > 0 {
		out.Replicates = overlay.Replicates
	}
	if overlay.RunAValue != nil {
		out.RunAValue = overlay.RunAValue
	}
	if overlay.RunBValue != nil {
		out.RunBValue = overlay.RunBValue
	}
	if len(overlay.RunAReplicates) > 0 {
		out.RunAReplicates = overlay.RunAReplicates
	}
	if len(overlay.RunBReplicates) > 0 {
		out.RunBReplicates = overlay.RunBReplicates
	}
	if overlay.SSAccuracy != nil {
		out.SSAccuracy = overlay.SSAccuracy
	}
	if overlay.ChemicalShiftRMSE != nil {
		out.ChemicalShiftRMSE = overlay.ChemicalShiftRMSE
	}
	if overlay.HXRatio != nil {
		out.HXRatio = overlay.HXRatio
	}
	if overlay.SAXSChi2 != nil {
		out.SAXSChi2 = overlay.SAXSChi2
	}
	out.HasContentHash = out.HasContentHash || overlay.HasContentHash
	out.HasRecordedIO = out.HasRecordedIO || overlay.HasRecordedIO
	out.HasVirtueVector = out.HasVirtueVector || overlay.HasVirtueVector
	out.HasLoggedChecks = out.HasLoggedChecks || overlay.HasLoggedChecks
	out.HasProvenanceChain = out.HasProvenanceChain || overlay.HasProvenanceChain
	return out
}

// ============================================================================
// UPSTREAM REPORT PARSING
// ============================================================================

// Scalar keys are tried in order: canonical name first, then the legacy
// spellings upstream exporters have used.
var scalarKeys = map[string][]string{
	"energy_drift":        {"energy_drift", "energy_drift_fraction"},
	"rama_favored":        {"rama_favored", "rama_favored_fraction", "ramachandran_favored"},
	"clash_rate":          {"clash_rate", "clash_fraction"},
	"detailed_balance_p":  {"detailed_balance_p", "detailed_balance_pvalue", "detailed_balance"},
	"ci_lower":            {"ci_lower", "lower"},
	"ci_upper":            {"ci_upper", "upper"},
	"ci_coverage":         {"ci_coverage", "coverage", "empirical_coverage"},
	"run_a_value":         {"run_a_value", "run_a", "original"},
	"run_b_value":         {"run_b_value", "run_b", "replication"},
	"ss_accuracy":         {"ss_accuracy", "secondary_structure_accuracy", "ss_accuracy_score"},
	"chemical_shift_rmse": {"chemical_shift_rmse", "chem_shift_rmse", "shift_rmse"},
	"hx_ratio":            {"hx_ratio", "hx_protection_ratio", "hydrogen_exchange_ratio"},
	"saxs_chi2":           {"saxs_chi2", "saxs_chi_squared", "saxs_chisq"},
}

var presenceKeys = map[string][]string{
	"content_hash":     {"content_hash", "has_content_hash", "hash"},
	"recorded_io":      {"recorded_io", "has_recorded_io", "inputs_outputs"},
	"virtue_vector":    {"virtue_vector", "has_virtue_vector", "quality_vector"},
	"logged_checks":    {"logged_checks", "has_logged_checks", "checks"},
	"provenance_chain": {"provenance_chain", "has_provenance_chain", "provenance"},
}

// Section names under which upstream reports nest their measurements.
var sectionNames = []string{"physics", "statistics", "reproducibility", "evidence", "akg", "audit"}

// ParseEvidenceReport recovers evidence from an upstream report mapping.
// It accepts flat key layouts, section-nested layouts, and the legacy key
// spellings, in that order of preference. A mapping in which no known key
// appears under any layout is a format error.
func ParseEvidenceReport(raw map[string]interface{}) (Evidence, error) {
	if len(raw) == 0 {
		return Evidence{}, core.NewReportFormatError("report is empty")
	}

	flat := flattenReport(raw)

	var ev Evidence
	found := 0

	assign := func(canonical string, target **float64) {
		for _, key := range scalarKeys[canonical] {
			if v, ok := flat[key]; ok {
				if f, ok := coerceFloat(v); ok {
					ev2 := f
					*target = &ev2
					found++
					return
				}
			}
		}
	}

	assign("energy_drift", &ev.EnergyDrift)
	assign("rama_favored", &ev.RamaFavored)
	assign("clash_rate", &ev.ClashRate)
	assign("detailed_balance_p", &ev.DetailedBalanceP)
	assign("ci_lower", &ev.CILower)
	assign("ci_upper", &ev.CIUpper)
	assign("ci_coverage", &ev.CICoverage)
	assign("run_a_value", &ev.RunAValue)
	assign("run_b_value", &ev.RunBValue)
	assign("ss_accuracy", &ev.SSAccuracy)
	assign("chemical_shift_rmse", &ev.ChemicalShiftRMSE)
	assign("hx_ratio", &ev.HXRatio)
	assign("saxs_chi2", &ev.SAXSChi2)

	if samples, n := coerceFloatSlice(flat["replicates"]); n > 0 {
		ev.Replicates = samples
		found++
	}
	if samples, n := coerceFloatSlice(flat["run_a_replicates"]); n > 0 {
		ev.RunAReplicates = samples
		found++
	}
	if samples, n := coerceFloatSlice(flat["run_b_replicates"]); n > 0 {
		ev.RunBReplicates = samples
		found++
	}

	presence := func(canonical string, target *bool) {
		for _, key := range presenceKeys[canonical] {
			if v, ok := flat[key]; ok {
				*target = coercePresence(v)
				found++
				return
			}
		}
	}

	presence("content_hash", &ev.HasContentHash)
	presence("recorded_io", &ev.HasRecordedIO)
	presence("virtue_vector", &ev.HasVirtueVector)
	presence("logged_checks", &ev.HasLoggedChecks)
	presence("provenance_chain", &ev.HasProvenanceChain)

	if found == 0 {
		return Evidence{}, core.NewReportFormatError("no recognized evidence keys in report")
	}
	return ev, nil
}

// flattenReport lifts known nested sections to top level. Flat keys win
// over nested ones when both appear.
func flattenReport(raw map[string]interface{}) map[string]interface{} {
	flat := make(map[string]interface{}, len(raw))
	for _, section := range sectionNames {
		if nested, ok := raw[section].(map[string]interface{}); ok {
			for k, v := range nested {
				flat[k] = v
			}
		}
	}
	for k, v := range raw {
		flat[k] = v
	}
	return flat
}

func coerceFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		if f, err := strconv.ParseFloat(t, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func coerceFloatSlice(v interface{}) ([]float64, int) {
	switch t := v.(type) {
	case []float64:
		return t, len(t)
	case []interface{}:
		out := make([]float64, 0, len(t))
		for _, item := range t {
			f, ok := coerceFloat(item)
			if !ok {
				return nil, 0
			}
			out = append(out, f)
		}
		return out, len(out)
	}
	return nil, 0
}

// coercePresence treats an explicit boolean as itself and any non-empty
// value (a hash string, a list of checks) as present.
func coercePresence(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t != ""
	case []interface{}:
		return len(t) > 0
	case map[string]interface{}:
		return len(t) > 0
	case nil:
		return false
	default:
		return fmt.Sprintf("%v", t) != ""
	}
}
