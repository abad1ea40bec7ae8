package calculator

import (
	"fmt"
	"math"

	"BubbleSentinel/internal/model"
)

// MinObservations is the smallest aligned series the statistics can work with.
const MinObservations = 2

// AlignSeries joins two price series on calendar date and returns primary/secondary
// for every date present in both with strictly positive prices on both sides.
// Both inputs are expected in ascending date order.
func AlignSeries(primary, secondary []model.PricePoint) (model.RatioSeries, error) {
	lookup := make(map[string]float64, len(secondary))
	for _, p := range secondary {
		lookup[p.Date] = p.Price
	}

	series := make(model.RatioSeries, 0, len(primary))
	for _, p := range primary {
		den, ok := lookup[p.Date]
		if !ok || !positive(p.Price) || !positive(den) {
			continue
		}
		obs := model.RatioObservation{
			Date:        p.Date,
			Numerator:   p.Price,
			Denominator: den,
			Ratio:       p.Price / den,
		}
		// a repeated date in the primary series keeps its last value
		if n := len(series); n > 0 && series[n-1].Date == p.Date {
			series[n-1] = obs
			continue
		}
		series = append(series, obs)
	}

	if len(series) < MinObservations {
		return nil, fmt.Errorf("%w: %d aligned observations, need %d", model.ErrInsufficientData, len(series), MinObservations)
	}
	return series, nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}
