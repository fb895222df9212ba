package stats

import (
	"math"
	"math/rand"

	"seqtriage/domain/core"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"
)

// ConfidenceInterval estimates an interval around the mean of data.
//
// Supported methods: bootstrap (percentile method over resampled means),
// normal (z approximation), and t (Student-t). The bootstrap method needs a
// seeded random source; passing the same source state always reproduces the
// same interval. Empty data fails immediately, never silently defaults.
func ConfidenceInterval(data []float64, method string, level float64, rng *rand.Rand) (Interval, error) {
	if len(data) == 0 {
		return Interval{}, core.NewEmptyInputError("confidence interval")
	}
	if level <= 0 || level >= 1 {
		return Interval{}, core.NewValidationError("level", "confidence level must be in (0, 1)")
	}

	switch method {
	case CIBootstrap:
		return BootstrapInterval(data, level, DefaultBootstrapResamples, rng)
	case CINormal:
		return normalInterval(data, level)
	case CIStudentT:
		return studentTInterval(data, level)
	default:
		return Interval{}, core.NewUnknownMethodError("confidence_interval", method)
	}
}

// BootstrapInterval computes a percentile bootstrap interval with an
// explicit resample count. The random source is required: reproducibility
// is the caller's contract, never ambient process state.
func BootstrapInterval(data []float64, level float64, resamples int, rng *rand.Rand) (Interval, error) {
	if len(data) == 0 {
		return Interval{}, core.NewEmptyInputError("bootstrap interval")
	}
	if rng == nil {
		return Interval{}, core.NewValidationError("rng", "bootstrap requires a seeded random source")
	}
	if resamples < 1 {
		return Interval{}, core.NewValidationError("resamples", "resample count must be positive")
	}

	mean, err := stats.Mean(data)
	if err != nil {
		return Interval{}, err
	}

	n := len(data)
	means := make([]float64, resamples)
	sample := make([]float64, n)
	for b := 0; b < resamples; b++ {
		for i := 0; i < n; i++ {
			sample[i] = data[rng.Intn(n)]
		}
		m, err := stats.Mean(sample)
		if err != nil {
			return Interval{}, err
		}
		means[b] = m
	}

	alpha := 1 - level
	lower, err := stats.Percentile(means, 100*alpha/2)
	if err != nil {
		return Interval{}, err
	}
	upper, err := stats.Percentile(means, 100*(1-alpha/2))
	if err != nil {
		return Interval{}, err
	}

	return Interval{Mean: mean, Lower: lower, Upper: upper, Level: level, Method: CIBootstrap}, nil
}

// normalInterval uses the z approximation mean +/- z * s/sqrt(n).
func normalInterval(data []float64, level float64) (Interval, error) {
	mean, sd, err := meanAndSampleSD(data)
	if err != nil {
		return Interval{}, err
	}

	z := distuv.Normal{Mu: 0, Sigma: 1}.Quantile(1 - (1-level)/2)
	se := sd / math.Sqrt(float64(len(data)))

	return Interval{
		Mean:   mean,
		Lower:  mean - z*se,
		Upper:  mean + z*se,
		Level:  level,
		Method: CINormal,
	}, nil
}

// studentTInterval uses the Student-t quantile with n-1 degrees of freedom.
func studentTInterval(data []float64, level float64) (Interval, error) {
	mean, sd, err := meanAndSampleSD(data)
	if err != nil {
		return Interval{}, err
	}

	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(len(data) - 1)}
	q := tDist.Quantile(1 - (1-level)/2)
	se := sd / math.Sqrt(float64(len(data)))

	return Interval{
		Mean:   mean,
		Lower:  mean - q*se,
		Upper:  mean + q*se,
		Level:  level,
		Method: CIStudentT,
	}, nil
}

// meanAndSampleSD computes the mean and n-1 standard deviation.
// Analytic intervals need at least two observations.
func meanAndSampleSD(data []float64) (float64, float64, error) {
	if len(data) < 2 {
		return 0, 0, core.ErrInsufficientData
	}
	mean, err := stats.Mean(data)
	if err != nil {
		return 0, 0, err
	}
	sd, err := stats.StandardDeviationSample(data)
	if err != nil {
		return 0, 0, err
	}
	return mean, sd, nil
}
