package stats

import (
	"math"

	"seqtriage/domain/core"

	"gonum.org/v1/gonum/stat/distuv"
)

// Power approximates the statistical power of a two-sample comparison with
// sampleSize observations per group, using the normal approximation with
// noncentrality |d| * sqrt(n/2).
func Power(effectSize float64, sampleSize int, alpha float64, alternative string) (float64, error) {
	if sampleSize < 1 {
		return 0, core.NewValidationError("sample_size", "sample size must be positive")
	}
	if alpha <= 0 || alpha >= 1 {
		return 0, core.NewValidationError("alpha", "alpha must be in (0, 1)")
	}

	norm := distuv.Normal{Mu: 0, Sigma: 1}
	shift := effectSize * math.Sqrt(float64(sampleSize)/2)

	var power float64
	switch alternative {
	case AltTwoSided:
		z := norm.Quantile(1 - alpha/2)
		abs := math.Abs(shift)
		power = norm.CDF(abs-z) + norm.CDF(-abs-z)
	case AltGreater:
		z := norm.Quantile(1 - alpha)
		power = norm.CDF(shift - z)
	case AltLess:
		z := norm.Quantile(1 - alpha)
		power = norm.CDF(-shift - z)
	default:
		return 0, core.NewUnknownMethodError("power", alternative)
	}

	return clamp01(power), nil
}

// MinimumSampleSize inverts Power for a two-sided test: the smallest
// per-group n whose approximate power reaches targetPower.
func MinimumSampleSize(effectSize, targetPower, alpha float64) (int, error) {
	if effectSize == 0 {
		return 0, core.NewValidationError("effect_size", "effect size cannot be zero")
	}
	if targetPower <= 0 || targetPower >= 1 {
		return 0, core.NewValidationError("target_power", "target power must be in (0, 1)")
	}
	if alpha <= 0 || alpha >= 1 {
		return 0, core.NewValidationError("alpha", "alpha must be in (0, 1)")
	}

	norm := distuv.Normal{Mu: 0, Sigma: 1}
	zAlpha := norm.Quantile(1 - alpha/2)
	zBeta := norm.Quantile(targetPower)

	ratio := (zAlpha + zBeta) / math.Abs(effectSize)
	n := int(math.Ceil(2 * ratio * ratio))
	if n < 2 {
		n = 2
	}
	return n, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
