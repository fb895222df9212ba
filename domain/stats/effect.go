package stats

import (
	"math"

	"seqtriage/domain/core"

	"github.com/montanaflynn/stats"
)

// ComputeEffectSize measures the standardized difference between two groups.
//
// cohen_d divides the mean difference by the pooled standard deviation,
// glass_delta divides by group2's standard deviation only (group2 as
// control), and hedges_g applies the small-sample bias correction
// 1 - 3/(4*(n1+n2)-9) to Cohen's d.
func ComputeEffectSize(group1, group2 []float64, method string) (EffectSize, error) {
	if len(group1) == 0 || len(group2) == 0 {
		return EffectSize{}, core.NewEmptyInputError("effect size")
	}
	if len(group1) < 2 || len(group2) < 2 {
		return EffectSize{}, core.ErrInsufficientData
	}

	mean1, sd1, err := meanAndSampleSD(group1)
	if err != nil {
		return EffectSize{}, err
	}
	mean2, sd2, err := meanAndSampleSD(group2)
	if err != nil {
		return EffectSize{}, err
	}

	var value float64
	switch method {
	case EffectCohenD:
		value, err = cohenD(mean1, sd1, len(group1), mean2, sd2, len(group2))
	case EffectGlassDelta:
		if sd2 == 0 {
			return EffectSize{}, core.NewValidationError("group2", "zero standard deviation in control group")
		}
		value = (mean1 - mean2) / sd2
	case EffectHedgesG:
		value, err = cohenD(mean1, sd1, len(group1), mean2, sd2, len(group2))
		if err == nil {
			n := float64(len(group1) + len(group2))
			value *= 1 - 3/(4*n-9)
		}
	default:
		return EffectSize{}, core.NewUnknownMethodError("effect_size", method)
	}
	if err != nil {
		return EffectSize{}, err
	}

	return EffectSize{
		Value:          value,
		Method:         method,
		Interpretation: InterpretEffect(value),
	}, nil
}

// cohenD computes the pooled-standard-deviation effect size.
func cohenD(mean1, sd1 float64, n1 int, mean2, sd2 float64, n2 int) (float64, error) {
	pooledVar := ((float64(n1-1))*sd1*sd1 + (float64(n2-1))*sd2*sd2) / float64(n1+n2-2)
	pooled := math.Sqrt(pooledVar)
	if pooled == 0 {
		return 0, core.NewValidationError("groups", "zero pooled standard deviation")
	}
	return (mean1 - mean2) / pooled, nil
}

// MeanOf is a convenience wrapper for callers summarizing replicate arrays.
func MeanOf(data []float64) (float64, error) {
	if len(data) == 0 {
		return 0, core.NewEmptyInputError("mean")
	}
	return stats.Mean(data)
}
