// Package stats provides the general-purpose statistical primitives the
// gate engine depends on: confidence intervals, effect sizes, power
// analysis, and multiple-testing correction. Every stochastic entry point
// takes an explicit seeded random source so concurrent callers cannot
// interfere with each other's reproducibility.
package stats

// ============================================================================
// METHOD REGISTRY (pluggable method strings, validated on dispatch)
// ============================================================================

// Confidence interval methods
const (
	CIBootstrap = "bootstrap"
	CINormal    = "normal"
	CIStudentT  = "t"
)

// Effect size methods
const (
	EffectCohenD     = "cohen_d"
	EffectGlassDelta = "glass_delta"
	EffectHedgesG    = "hedges_g"
)

// Multiple-testing correction methods
const (
	CorrectionBH         = "fdr_bh"
	CorrectionBonferroni = "bonferroni"
	CorrectionHolm       = "holm"
)

// Alternative hypothesis directions for power analysis
const (
	AltTwoSided = "two-sided"
	AltGreater  = "greater"
	AltLess     = "less"
)

// DefaultBootstrapResamples is the resample count used when callers do not
// override it explicitly.
const DefaultBootstrapResamples = 10000

// ============================================================================
// RESULT TYPES
// ============================================================================

// Interval is a confidence interval around a sample mean.
type Interval struct {
	Mean   float64 `json:"mean"`
	Lower  float64 `json:"lower"`
	Upper  float64 `json:"upper"`
	Level  float64 `json:"level"`  // Confidence level (e.g., 0.95)
	Method string  `json:"method"` // bootstrap, normal, or t
}

// Contains reports whether the interval covers v.
func (i Interval) Contains(v float64) bool {
	return v >= i.Lower && v <= i.Upper
}

// Width returns upper minus lower.
func (i Interval) Width() float64 {
	return i.Upper - i.Lower
}

// EffectSize is a standardized group difference with its qualitative bucket.
type EffectSize struct {
	Value          float64 `json:"value"`
	Method         string  `json:"method"`
	Interpretation string  `json:"interpretation"` // negligible, small, medium, large
}

// Effect size interpretation buckets on |d|
const (
	InterpretNegligible = "negligible" // |d| < 0.2
	InterpretSmall      = "small"      // |d| < 0.5
	InterpretMedium     = "medium"     // |d| < 0.8
	InterpretLarge      = "large"      // otherwise
)

// InterpretEffect buckets an effect size magnitude.
func InterpretEffect(value float64) string {
	abs := value
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs < 0.2:
		return InterpretNegligible
	case abs < 0.5:
		return InterpretSmall
	case abs < 0.8:
		return InterpretMedium
	default:
		return InterpretLarge
	}
}

// Correction is the outcome of a multiple-testing correction pass.
//
// Rejected marks the p-values that clear the UNCORRECTED alpha screen;
// CorrectedP carries the per-method adjusted values in input order.
// EmpiricalFDR is the post-hoc share of screen-passing hypotheses whose
// adjusted p-value no longer clears alpha - a sanity measure of how much
// apparent signal the correction disavows, not a redefinition of FDR.
// Callers needing corrected-level decisions compare CorrectedP against
// alpha directly.
type Correction struct {
	CorrectedP     []float64 `json:"corrected_p_values"`
	Rejected       []bool    `json:"rejected"`
	NumSignificant int       `json:"num_significant"`
	EmpiricalFDR   float64   `json:"empirical_fdr"`
	Method         string    `json:"method"`
	Alpha          float64   `json:"alpha"`
}
