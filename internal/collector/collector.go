package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"BubbleSentinel/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
// Series are looked up by symbol; unknown symbols get a generated drift series
// around Price. Symbols present in Errs fail with a ProviderError.
type MockFetcher struct {
	Price  float64
	Days   int
	Series map[string][]model.PricePoint
	Errs   map[string]error

	mu    sync.Mutex
	calls map[string]int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchSeries(ctx context.Context, symbol string, period model.Period) (*model.PriceSeries, error) {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[symbol]++
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := m.Errs[symbol]; ok {
		return nil, &model.ProviderError{Provider: m.Name(), Symbol: symbol, Err: err}
	}
	points, ok := m.Series[symbol]
	if !ok {
		days := m.Days
		if days <= 0 {
			days = 300
		}
		points = generateMockPoints(m.Price, days)
	}
	return &model.PriceSeries{
		Symbol:    symbol,
		Period:    period,
		Points:    append([]model.PricePoint(nil), points...),
		FetchedAt: time.Now().UTC(),
	}, nil
}

// Calls reports how many times symbol was fetched.
func (m *MockFetcher) Calls(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[symbol]
}

func generateMockPoints(basePrice float64, count int) []model.PricePoint {
	if basePrice <= 0 {
		basePrice = 100
	}
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	points := make([]model.PricePoint, count)
	for i := 0; i < count; i++ {
		wobble := 0.002
		if i%2 == 1 {
			wobble = -wobble
		}
		points[i] = model.PricePoint{
			Date:  start.AddDate(0, 0, i).Format(model.DateLayout),
			Price: basePrice * (1 + float64(i-count/2)*0.001 + wobble),
		}
	}
	return points
}

// Collector fans out series requests to a Fetcher.
type Collector struct {
	Fetcher Fetcher
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher) *Collector {
	return &Collector{Fetcher: fetcher}
}

// FetchSeries fetches one symbol.
func (c *Collector) FetchSeries(ctx context.Context, symbol string, period model.Period) (*model.PriceSeries, error) {
	s, err := c.Fetcher.FetchSeries(ctx, symbol, period)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", symbol, err)
	}
	return s, nil
}

// FetchPair fetches a and b concurrently. Either failure fails the pair and
// cancels the other request.
func (c *Collector) FetchPair(ctx context.Context, a, b string, period model.Period) (*model.PriceSeries, *model.PriceSeries, error) {
	var sa, sb *model.PriceSeries
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sa, err = c.FetchSeries(gctx, a, period)
		return err
	})
	g.Go(func() error {
		var err error
		sb, err = c.FetchSeries(gctx, b, period)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return sa, sb, nil
}
