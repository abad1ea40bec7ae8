package calculator

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"BubbleSentinel/internal/model"
)

// zeroStdTolerance treats a std this small relative to the mean as zero, so a
// constant series never yields a z-score built from rounding noise.
const zeroStdTolerance = 1e-12

// Summary is the population mean/std and range of a sample.
type Summary struct {
	Mean float64
	Std  float64
	Min  float64
	Max  float64
}

// Summarize computes population mean, std (divisor N), min and max.
func Summarize(values []float64) (Summary, error) {
	if len(values) == 0 {
		return Summary{}, fmt.Errorf("%w: empty sample", model.ErrInsufficientData)
	}
	s := Summary{Min: math.Inf(1), Max: math.Inf(-1)}
	sum := 0.0
	for _, v := range values {
		sum += v
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
	}
	s.Mean = sum / float64(len(values))

	variance := 0.0
	for _, v := range values {
		d := v - s.Mean
		variance += d * d
	}
	variance /= float64(len(values))
	s.Std = math.Sqrt(variance)
	return s, nil
}

// Degenerate reports whether the sample has no measurable dispersion.
func (s Summary) Degenerate() bool {
	return s.Std <= zeroStdTolerance*math.Max(1, math.Abs(s.Mean))
}

// DescribeRatios computes mean, std, extrema and the z-score of the latest
// observation. A series with zero dispersion fails with ErrDegenerateInput.
func DescribeRatios(series model.RatioSeries) (*model.Statistics, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("%w: empty ratio series", model.ErrInsufficientData)
	}
	if !sort.SliceIsSorted(series, func(i, j int) bool { return series[i].Date < series[j].Date }) {
		sorted := make(model.RatioSeries, len(series))
		copy(sorted, series)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date < sorted[j].Date })
		series = sorted
	}

	sum, err := Summarize(series.Values())
	if err != nil {
		return nil, err
	}
	latest := series[len(series)-1]
	if sum.Degenerate() {
		return nil, fmt.Errorf("%w: ratio series has zero standard deviation (mean %.6f)", model.ErrDegenerateInput, sum.Mean)
	}

	return &model.Statistics{
		Mean:   sum.Mean,
		Std:    sum.Std,
		Max:    sum.Max,
		Min:    sum.Min,
		ZScore: (latest.Ratio - sum.Mean) / sum.Std,
		Count:  len(series),
		Latest: latest,
	}, nil
}

// IsDataError reports whether err is a statistical failure rather than an upstream one.
func IsDataError(err error) bool {
	return errors.Is(err, model.ErrInsufficientData) || errors.Is(err, model.ErrDegenerateInput)
}
