package calculator

import "BubbleSentinel/internal/model"

// RollingBands returns, for every observation with a full trailing window, the
// window's population mean and std and the mean ± k·std envelope.
func RollingBands(series model.RatioSeries, window int, k float64) []model.RollingPoint {
	if window <= 1 || len(series) < window {
		return nil
	}
	values := series.Values()
	points := make([]model.RollingPoint, 0, len(series)-window+1)
	for end := window; end <= len(values); end++ {
		sum, err := Summarize(values[end-window : end])
		if err != nil {
			continue
		}
		points = append(points, model.RollingPoint{
			Date:  series[end-1].Date,
			Mean:  sum.Mean,
			Std:   sum.Std,
			Upper: sum.Mean + k*sum.Std,
			Lower: sum.Mean - k*sum.Std,
		})
	}
	return points
}

// RollingVolatility returns the annualised volatility of the trailing window of
// returns ending at each date. Dates whose window is short are omitted.
func RollingVolatility(points []model.PricePoint, window int) []model.VolatilityPoint {
	if window < 2 {
		return nil
	}
	type dated struct {
		date string
		ret  float64
	}
	returns := make([]dated, 0, len(points))
	for i := 1; i < len(points); i++ {
		prev, cur := points[i-1].Price, points[i].Price
		if !positive(prev) || !positive(cur) {
			continue
		}
		returns = append(returns, dated{date: points[i].Date, ret: (cur - prev) / prev})
	}
	if len(returns) < window {
		return nil
	}

	out := make([]model.VolatilityPoint, 0, len(returns)-window+1)
	buf := make([]float64, window)
	for end := window; end <= len(returns); end++ {
		for i := 0; i < window; i++ {
			buf[i] = returns[end-window+i].ret
		}
		vol, err := AnnualizedVolatility(buf)
		if err != nil {
			continue
		}
		out = append(out, model.VolatilityPoint{Date: returns[end-1].date, Volatility: vol})
	}
	return out
}
