package stats

import (
	"math"
	"testing"

	"seqtriage/domain/core"
)

func TestComputeEffectSize_KnownValues(t *testing.T) {
	group1 := []float64{2, 4, 4, 4, 5, 5, 7, 9} // mean 5, s = 2.1381
	group2 := []float64{1, 2, 3, 4, 5, 6, 7, 8} // mean 4.5, s = 2.4495

	tests := []struct {
		method   string
		expected float64
	}{
		{EffectCohenD, 0.2174795},     // 0.5 / pooled 2.2990681
		{EffectGlassDelta, 0.2041241}, // 0.5 / 2.4494897
		{EffectHedgesG, 0.2056170},    // cohen_d * (1 - 3/55)
	}

	for _, test := range tests {
		es, err := ComputeEffectSize(group1, group2, test.method)
		if err != nil {
			t.Fatalf("%s: ComputeEffectSize returned error: %v", test.method, err)
		}
		if math.Abs(es.Value-test.expected) > 1e-6 {
			t.Errorf("%s: value = %f, expected %f", test.method, es.Value, test.expected)
		}
		if es.Interpretation != InterpretSmall {
			t.Errorf("%s: interpretation = %s, expected %s", test.method, es.Interpretation, InterpretSmall)
		}
		if es.Method != test.method {
			t.Errorf("%s: method echo = %s", test.method, es.Method)
		}
	}
}

func TestComputeEffectSize_LargeEffect(t *testing.T) {
	group1 := []float64{10, 11, 12, 13}
	group2 := []float64{1, 2, 3, 4}

	es, err := ComputeEffectSize(group1, group2, EffectCohenD)
	if err != nil {
		t.Fatalf("ComputeEffectSize returned error: %v", err)
	}
	if es.Value <= 0.8 {
		t.Errorf("Expected large effect, got %f", es.Value)
	}
	if es.Interpretation != InterpretLarge {
		t.Errorf("Interpretation = %s, expected %s", es.Interpretation, InterpretLarge)
	}
}

func TestInterpretEffect_Buckets(t *testing.T) {
	tests := []struct {
		value    float64
		expected string
	}{
		{0.0, InterpretNegligible},
		{0.19, InterpretNegligible},
		{0.2, InterpretSmall},
		{-0.3, InterpretSmall},
		{0.49, InterpretSmall},
		{0.5, InterpretMedium},
		{0.79, InterpretMedium},
		{0.8, InterpretLarge},
		{-2.5, InterpretLarge},
	}

	for _, test := range tests {
		if got := InterpretEffect(test.value); got != test.expected {
			t.Errorf("InterpretEffect(%f) = %s, expected %s", test.value, got, test.expected)
		}
	}
}

func TestComputeEffectSize_Errors(t *testing.T) {
	valid := []float64{1, 2, 3}

	if _, err := ComputeEffectSize(nil, valid, EffectCohenD); !core.IsEmptyInputError(err) {
		t.Errorf("Expected ErrEmptyInput for empty group1, got %v", err)
	}
	if _, err := ComputeEffectSize(valid, []float64{}, EffectCohenD); !core.IsEmptyInputError(err) {
		t.Errorf("Expected ErrEmptyInput for empty group2, got %v", err)
	}
	if _, err := ComputeEffectSize([]float64{1}, valid, EffectCohenD); err == nil {
		t.Error("Expected error for single-observation group")
	}
	if _, err := ComputeEffectSize(valid, valid, "eta_squared"); !core.IsUnknownMethodError(err) {
		t.Errorf("Expected ErrUnknownMethod, got %v", err)
	}
	// Zero variance in both groups leaves no scale to standardize by
	flat := []float64{5, 5, 5}
	if _, err := ComputeEffectSize(flat, flat, EffectCohenD); err == nil {
		t.Error("Expected error for zero pooled standard deviation")
	}
	if _, err := ComputeEffectSize(valid, flat, EffectGlassDelta); err == nil {
		t.Error("Expected error for zero control-group standard deviation")
	}
}
