package stats

import (
	"sort"

	"seqtriage/domain/core"
)

// CorrectMultipleTesting adjusts a family of p-values for multiple
// comparisons and reports which hypotheses survive the uncorrected alpha
// screen (see Correction for the exact semantics of Rejected and
// EmpiricalFDR).
//
// fdr_bh applies Benjamini-Hochberg step-up q-values q_i = p_i * m / rank
// with a right-to-left monotonicity pass, bonferroni multiplies by the
// family size, and holm applies the step-down running maximum. Corrected
// values are clamped to 1.0 and returned in input order.
func CorrectMultipleTesting(pValues []float64, method string, alpha float64) (Correction, error) {
	if len(pValues) == 0 {
		return Correction{}, core.NewEmptyInputError("multiple-testing correction")
	}
	if alpha <= 0 || alpha >= 1 {
		return Correction{}, core.NewValidationError("alpha", "alpha must be in (0, 1)")
	}
	for _, p := range pValues {
		if p < 0 || p > 1 {
			return Correction{}, core.NewValidationError("p_values", "p-values must be in [0, 1]")
		}
	}

	var corrected []float64
	switch method {
	case CorrectionBH:
		corrected = benjaminiHochberg(pValues)
	case CorrectionBonferroni:
		corrected = bonferroni(pValues)
	case CorrectionHolm:
		corrected = holm(pValues)
	default:
		return Correction{}, core.NewUnknownMethodError("correct_multiple_testing", method)
	}

	rejected := make([]bool, len(pValues))
	numSignificant := 0
	lostAfterCorrection := 0
	for i, p := range pValues {
		if p <= alpha {
			rejected[i] = true
			numSignificant++
			if corrected[i] > alpha {
				lostAfterCorrection++
			}
		}
	}

	empiricalFDR := 0.0
	if numSignificant > 0 {
		empiricalFDR = float64(lostAfterCorrection) / float64(numSignificant)
	}

	return Correction{
		CorrectedP:     corrected,
		Rejected:       rejected,
		NumSignificant: numSignificant,
		EmpiricalFDR:   empiricalFDR,
		Method:         method,
		Alpha:          alpha,
	}, nil
}

// benjaminiHochberg computes step-up q-values: q_i = p_i * (m / rank) over
// ascending p-values, then enforces monotonicity from the largest rank down
// so a smaller p never carries a larger q.
func benjaminiHochberg(pValues []float64) []float64 {
	m := len(pValues)
	order := sortedOrder(pValues)

	q := make([]float64, m)
	for rank := 1; rank <= m; rank++ {
		idx := order[rank-1]
		q[idx] = pValues[idx] * float64(m) / float64(rank)
	}

	// Right-to-left monotonicity pass over the sorted order
	running := 1.0
	for rank := m; rank >= 1; rank-- {
		idx := order[rank-1]
		if q[idx] > running {
			q[idx] = running
		} else {
			running = q[idx]
		}
	}
	return q
}

// bonferroni multiplies each p-value by the family size.
func bonferroni(pValues []float64) []float64 {
	m := float64(len(pValues))
	corrected := make([]float64, len(pValues))
	for i, p := range pValues {
		corrected[i] = clampP(p * m)
	}
	return corrected
}

// holm applies the step-down correction: the k-th smallest p is scaled by
// (m - k + 1) and a running maximum keeps the sequence monotone.
func holm(pValues []float64) []float64 {
	m := len(pValues)
	order := sortedOrder(pValues)

	corrected := make([]float64, m)
	running := 0.0
	for rank := 1; rank <= m; rank++ {
		idx := order[rank-1]
		v := pValues[idx] * float64(m-rank+1)
		if v > running {
			running = v
		}
		corrected[idx] = clampP(running)
	}
	return corrected
}

// sortedOrder returns original indices ordered by ascending p-value.
// Ties keep input order so results are deterministic.
func sortedOrder(pValues []float64) []int {
	order := make([]int, len(pValues))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return pValues[order[a]] < pValues[order[b]]
	})
	return order
}

func clampP(p float64) float64 {
	if p > 1.0 {
		return 1.0
	}
	return p
}
