package calculator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BubbleSentinel/internal/model"
)

func pts(pairs ...interface{}) []model.PricePoint {
	out := make([]model.PricePoint, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, model.PricePoint{Date: pairs[i].(string), Price: pairs[i+1].(float64)})
	}
	return out
}

func TestAlignSeries_KeepsOnlyCommonPositiveDates(t *testing.T) {
	primary := pts(
		"2024-01-01", 100.0,
		"2024-01-02", 110.0,
		"2024-01-03", 0.0, // non-positive primary
		"2024-01-04", 120.0,
		"2024-01-05", 130.0, // absent from secondary
		"2024-01-08", 140.0,
	)
	secondary := pts(
		"2023-12-29", 40.0, // absent from primary
		"2024-01-01", 50.0,
		"2024-01-02", 55.0,
		"2024-01-03", 60.0,
		"2024-01-04", -1.0, // non-positive secondary
		"2024-01-08", 70.0,
	)

	series, err := AlignSeries(primary, secondary)
	require.NoError(t, err)

	dates := make([]string, len(series))
	for i, o := range series {
		dates[i] = o.Date
		assert.Equal(t, o.Numerator/o.Denominator, o.Ratio, "ratio on %s", o.Date)
	}
	assert.Equal(t, []string{"2024-01-01", "2024-01-02", "2024-01-08"}, dates)
	assert.Equal(t, 2.0, series[0].Ratio)
	assert.Equal(t, 2.0, series[2].Ratio)
}

func TestAlignSeries_DuplicateDatesCollapse(t *testing.T) {
	primary := pts("2024-01-01", 100.0, "2024-01-02", 105.0, "2024-01-02", 110.0)
	secondary := pts("2024-01-01", 50.0, "2024-01-02", 54.0, "2024-01-02", 55.0)

	series, err := AlignSeries(primary, secondary)
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, 110.0, series[1].Numerator)
	assert.Equal(t, 55.0, series[1].Denominator)
}

func TestAlignSeries_InsufficientData(t *testing.T) {
	tests := []struct {
		name      string
		primary   []model.PricePoint
		secondary []model.PricePoint
	}{
		{"empty", nil, nil},
		{"disjoint", pts("2024-01-01", 1.0, "2024-01-02", 2.0), pts("2024-02-01", 1.0, "2024-02-02", 2.0)},
		{"single overlap", pts("2024-01-01", 1.0, "2024-01-02", 2.0), pts("2024-01-02", 1.0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := AlignSeries(tt.primary, tt.secondary)
			require.Error(t, err)
			assert.True(t, errors.Is(err, model.ErrInsufficientData), "got %v", err)
		})
	}
}

func TestAlignSeries_ThenDescribeConstantRatio(t *testing.T) {
	series, err := AlignSeries(
		pts("2020-01-01", 100.0, "2020-01-02", 110.0),
		pts("2020-01-01", 50.0, "2020-01-02", 55.0),
	)
	require.NoError(t, err)
	assert.Equal(t, []float64{2.0, 2.0}, series.Values())

	_, err = DescribeRatios(series)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrDegenerateInput)
}
