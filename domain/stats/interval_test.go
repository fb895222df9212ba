package stats

import (
	"math"
	"math/rand"
	"testing"

	"seqtriage/domain/core"
)

func TestConfidenceInterval_Normal(t *testing.T) {
	data := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	ci, err := ConfidenceInterval(data, CINormal, 0.95, nil)
	if err != nil {
		t.Fatalf("ConfidenceInterval returned error: %v", err)
	}

	if math.Abs(ci.Mean-5.0) > 1e-9 {
		t.Errorf("Mean = %f, expected 5.0", ci.Mean)
	}
	// s = 2.1381, se = 0.7559, z = 1.9600 -> margin 1.4815
	if math.Abs(ci.Lower-3.5185) > 1e-3 {
		t.Errorf("Lower = %f, expected 3.5185", ci.Lower)
	}
	if math.Abs(ci.Upper-6.4815) > 1e-3 {
		t.Errorf("Upper = %f, expected 6.4815", ci.Upper)
	}
	if !ci.Contains(ci.Mean) {
		t.Error("Interval should contain its own mean")
	}
}

func TestConfidenceInterval_StudentT(t *testing.T) {
	data := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	tCI, err := ConfidenceInterval(data, CIStudentT, 0.95, nil)
	if err != nil {
		t.Fatalf("ConfidenceInterval returned error: %v", err)
	}
	// t(7, 0.975) = 2.3646 -> margin 1.7875
	if math.Abs(tCI.Lower-3.2125) > 1e-3 {
		t.Errorf("Lower = %f, expected 3.2125", tCI.Lower)
	}
	if math.Abs(tCI.Upper-6.7875) > 1e-3 {
		t.Errorf("Upper = %f, expected 6.7875", tCI.Upper)
	}

	// Student-t accounts for the estimated variance, so it is always wider
	// than the normal approximation on the same data
	zCI, err := ConfidenceInterval(data, CINormal, 0.95, nil)
	if err != nil {
		t.Fatalf("ConfidenceInterval returned error: %v", err)
	}
	if tCI.Width() <= zCI.Width() {
		t.Errorf("Expected t interval (%f) wider than normal (%f)", tCI.Width(), zCI.Width())
	}
}

func TestConfidenceInterval_BootstrapReproducible(t *testing.T) {
	data := []float64{1.2, 3.4, 2.2, 5.6, 4.4, 3.3, 2.8, 4.1, 3.9, 2.5}

	first, err := BootstrapInterval(data, 0.95, 2000, rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatalf("BootstrapInterval returned error: %v", err)
	}
	second, err := BootstrapInterval(data, 0.95, 2000, rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatalf("BootstrapInterval returned error: %v", err)
	}

	if first.Lower != second.Lower || first.Upper != second.Upper {
		t.Errorf("Same seed produced different intervals: [%f, %f] vs [%f, %f]",
			first.Lower, first.Upper, second.Lower, second.Upper)
	}
	if first.Lower > first.Mean || first.Upper < first.Mean {
		t.Errorf("Interval [%f, %f] should bracket the mean %f", first.Lower, first.Upper, first.Mean)
	}
}

func TestConfidenceInterval_BootstrapRequiresRNG(t *testing.T) {
	_, err := ConfidenceInterval([]float64{1, 2, 3}, CIBootstrap, 0.95, nil)
	if err == nil {
		t.Fatal("Expected error for bootstrap without a random source")
	}
}

func TestConfidenceInterval_EmptyInput(t *testing.T) {
	for _, method := range []string{CIBootstrap, CINormal, CIStudentT} {
		_, err := ConfidenceInterval(nil, method, 0.95, rand.New(rand.NewSource(1)))
		if err == nil {
			t.Errorf("%s: expected error for empty data", method)
			continue
		}
		if !core.IsEmptyInputError(err) {
			t.Errorf("%s: expected ErrEmptyInput, got %v", method, err)
		}
	}
}

func TestConfidenceInterval_UnknownMethod(t *testing.T) {
	_, err := ConfidenceInterval([]float64{1, 2, 3}, "jackknife", 0.95, nil)
	if err == nil {
		t.Fatal("Expected error for unknown method")
	}
	if !core.IsUnknownMethodError(err) {
		t.Errorf("Expected ErrUnknownMethod, got %v", err)
	}
}

func TestConfidenceInterval_InvalidLevel(t *testing.T) {
	for _, level := range []float64{0, 1, -0.5, 1.5} {
		if _, err := ConfidenceInterval([]float64{1, 2, 3}, CINormal, level, nil); err == nil {
			t.Errorf("Expected error for level %f", level)
		}
	}
}

func TestConfidenceInterval_InsufficientData(t *testing.T) {
	for _, method := range []string{CINormal, CIStudentT} {
		_, err := ConfidenceInterval([]float64{5.0}, method, 0.95, nil)
		if err == nil {
			t.Errorf("%s: expected error for a single observation", method)
		}
	}
}
