// Package model holds the domain types. Only types that are cached or served
// verbatim as chart series carry json tags; API shapes live in the api DTOs.
package model

import (
	"time"
)

// DateLayout is the day-resolution calendar date used for every series.
const DateLayout = "2006-01-02"

// Period is the lookback range requested from the price provider.
type Period string

const (
	Period1Y  Period = "1y"
	Period2Y  Period = "2y"
	Period5Y  Period = "5y"
	Period10Y Period = "10y"
	PeriodMax Period = "max"
)

// DefaultPeriod is used when a request does not name one.
const DefaultPeriod = Period5Y

// Periods lists the supported lookback ranges, shortest first.
var Periods = []Period{Period1Y, Period2Y, Period5Y, Period10Y, PeriodMax}

// ParsePeriod validates a lookback range. An empty string yields DefaultPeriod.
func ParsePeriod(s string) (Period, error) {
	if s == "" {
		return DefaultPeriod, nil
	}
	for _, p := range Periods {
		if string(p) == s {
			return p, nil
		}
	}
	return "", &ValidationError{Param: "period", Reason: "must be one of 1y, 2y, 5y, 10y, max"}
}

// DateFromUnix truncates an epoch-seconds timestamp to its UTC calendar date.
func DateFromUnix(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(DateLayout)
}

// PricePoint is one closing price on a calendar date.
type PricePoint struct {
	Date  string  `json:"date"`
	Price float64 `json:"price"`
}

// PriceSeries holds a provider's daily closes for one symbol, ascending by date.
type PriceSeries struct {
	Symbol    string       `json:"symbol"`
	Period    Period       `json:"period"`
	Points    []PricePoint `json:"points"`
	FetchedAt time.Time    `json:"fetched_at"`
}

// Prices returns the closing prices in series order.
func (s *PriceSeries) Prices() []float64 {
	prices := make([]float64, len(s.Points))
	for i, p := range s.Points {
		prices[i] = p.Price
	}
	return prices
}

// Latest returns the last point of the series.
func (s *PriceSeries) Latest() (PricePoint, bool) {
	if len(s.Points) == 0 {
		return PricePoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// RatioObservation is the quotient of two prices observed on the same date.
type RatioObservation struct {
	Date        string  `json:"date"`
	Numerator   float64 `json:"numerator"`
	Denominator float64 `json:"denominator"`
	Ratio       float64 `json:"ratio"`
}

// RatioSeries is ordered ascending by date with at most one observation per date.
type RatioSeries []RatioObservation

// Values returns the ratio column.
func (s RatioSeries) Values() []float64 {
	values := make([]float64, len(s))
	for i, o := range s {
		values[i] = o.Ratio
	}
	return values
}

// Tail returns at most the last n observations.
func (s RatioSeries) Tail(n int) RatioSeries {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
