package calculator

import (
	"fmt"
	"math"

	"BubbleSentinel/internal/model"
)

const (
	// TradingDaysPerYear annualises daily return variance.
	TradingDaysPerYear = 252
	// TrailingWindow is the number of recent returns behind the trailing volatility.
	TrailingWindow = 30
)

// SimpleReturns computes (p[i]-p[i-1])/p[i-1] for every consecutive pair where
// both prices are positive. Pairs with a missing or zero price are skipped.
func SimpleReturns(prices []float64) []float64 {
	returns := make([]float64, 0, len(prices))
	for i := 1; i < len(prices); i++ {
		prev, cur := prices[i-1], prices[i]
		if !positive(prev) || !positive(cur) {
			continue
		}
		returns = append(returns, (cur-prev)/prev)
	}
	return returns
}

// AnnualizedVolatility is the population std of returns scaled to a year, in percent.
func AnnualizedVolatility(returns []float64) (float64, error) {
	sum, err := Summarize(returns)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(sum.Std*sum.Std*TradingDaysPerYear) * 100, nil
}

// CalculateVolatility returns the full-period and trailing annualised volatility
// of a price sequence ordered by date.
func CalculateVolatility(prices []float64) (*model.Volatility, error) {
	valid := 0
	for _, p := range prices {
		if positive(p) {
			valid++
		}
	}
	if valid < 2 {
		return nil, fmt.Errorf("%w: %d valid prices, need 2", model.ErrInsufficientData, valid)
	}

	returns := SimpleReturns(prices)
	trailing := returns
	if len(trailing) > TrailingWindow {
		trailing = trailing[len(trailing)-TrailingWindow:]
	}
	if len(trailing) < 2 {
		return nil, fmt.Errorf("%w: %d returns in trailing window, need 2", model.ErrInsufficientData, len(trailing))
	}

	full, err := AnnualizedVolatility(returns)
	if err != nil {
		return nil, err
	}
	recent, err := AnnualizedVolatility(trailing)
	if err != nil {
		return nil, err
	}

	return &model.Volatility{
		Annualized: full,
		Trailing:   recent,
		Trend:      recent - full,
		Returns:    len(returns),
		Window:     len(trailing),
	}, nil
}
