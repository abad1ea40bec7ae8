package collector

import (
	"context"
	"sort"

	"BubbleSentinel/internal/model"
)

// Fetcher defines the interface for fetching daily closing prices.
type Fetcher interface {
	FetchSeries(ctx context.Context, symbol string, period model.Period) (*model.PriceSeries, error)
	Name() string
}

// normalizePoints orders points by date and keeps the last point of each date.
func normalizePoints(points []model.PricePoint) []model.PricePoint {
	sort.SliceStable(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	out := points[:0]
	for _, p := range points {
		if n := len(out); n > 0 && out[n-1].Date == p.Date {
			out[n-1] = p
			continue
		}
		out = append(out, p)
	}
	return out
}
