package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BubbleSentinel/internal/collector"
	"BubbleSentinel/internal/config"
	"BubbleSentinel/internal/metrics"
	"BubbleSentinel/internal/model"
	"BubbleSentinel/internal/strategy"
)

// linear returns n daily points starting 2024-01-01 with price base + step*i.
func linear(n int, base, step float64) []model.PricePoint {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.PricePoint, n)
	for i := range out {
		out[i] = model.PricePoint{Date: start.AddDate(0, 0, i).Format(model.DateLayout), Price: base + step*float64(i)}
	}
	return out
}

func fixtureFetcher() *collector.MockFetcher {
	return &collector.MockFetcher{Series: map[string][]model.PricePoint{
		"^GSPC":     linear(60, 100, 1),
		"000001.SS": linear(60, 100, 1),
		"GC=F":      linear(60, 100, 0),
		"^TNX":      linear(60, 4.0, 0.01),
		"LQD":       linear(60, 110, 0),
	}}
}

func newTestService(t *testing.T, f collector.Fetcher, reg *metrics.Registry) *Service {
	t.Helper()
	s, err := NewService(collector.NewCollector(f), DefaultMarkets(), reg)
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) }
	return s
}

func TestRatioReport(t *testing.T) {
	reg := metrics.New()
	s := newTestService(t, fixtureFetcher(), reg)

	r, err := s.RatioReport(context.Background(), "us", model.Period5Y)
	require.NoError(t, err)

	assert.Equal(t, "2024-02-29", r.Current.Date)
	assert.InDelta(t, 1.59, r.Current.Ratio, 1e-12)
	assert.Equal(t, 60, r.Statistics.Count)
	assert.InDelta(t, 1.295, r.Statistics.Mean, 1e-12)
	assert.InDelta(t, 1.7034, r.Statistics.ZScore, 1e-3)
	assert.Equal(t, "moderate", r.Risk.Level)
	assert.Len(t, r.History, 60)
	assert.Len(t, r.FullHistory, 60)
	assert.Len(t, r.Rolling, 31)

	require.Len(t, r.Comparisons, 3)
	assert.False(t, r.Comparisons[0].Above) // dot-com 5.5
	assert.True(t, r.Comparisons[2].Above)  // 2008 low 1.5
	assert.InDelta(t, 1.7034, testutil.ToFloat64(reg.RatioZScore.WithLabelValues("us")), 1e-3)
}

func TestRatioReport_HistoryIsLast365(t *testing.T) {
	f := &collector.MockFetcher{Series: map[string][]model.PricePoint{
		"^GSPC": linear(400, 100, 1),
		"GC=F":  linear(400, 100, 0),
	}}
	r, err := newTestService(t, f, nil).RatioReport(context.Background(), "us", model.PeriodMax)
	require.NoError(t, err)
	assert.Len(t, r.History, model.HistoryWindow)
	assert.Len(t, r.FullHistory, 400)
	assert.Equal(t, r.FullHistory[len(r.FullHistory)-1], r.History[len(r.History)-1])
}

func TestRatioReport_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := newTestService(t, fixtureFetcher(), nil).RatioReport(ctx, "jp", model.Period1Y)
	assert.ErrorIs(t, err, ErrUnknownMarket)

	failing := fixtureFetcher()
	failing.Errs = map[string]error{"GC=F": errors.New("503")}
	_, err = newTestService(t, failing, nil).RatioReport(ctx, "us", model.Period1Y)
	assert.ErrorIs(t, err, model.ErrProvider)

	flat := &collector.MockFetcher{Series: map[string][]model.PricePoint{
		"^GSPC": linear(10, 100, 0),
		"GC=F":  linear(10, 50, 0),
	}}
	_, err = newTestService(t, flat, nil).RatioReport(ctx, "us", model.Period1Y)
	assert.ErrorIs(t, err, model.ErrDegenerateInput)

	disjoint := &collector.MockFetcher{Series: map[string][]model.PricePoint{
		"^GSPC": linear(10, 100, 1),
		"GC=F":  {{Date: "1999-01-01", Price: 10}},
	}}
	_, err = newTestService(t, disjoint, nil).RatioReport(ctx, "us", model.Period1Y)
	assert.ErrorIs(t, err, model.ErrInsufficientData)
}

func TestVolatilityReport_China(t *testing.T) {
	r, err := newTestService(t, fixtureFetcher(), nil).VolatilityReport(context.Background(), "cn", model.Period1Y)
	require.NoError(t, err)

	assert.Equal(t, "000001.SS", r.Symbol)
	assert.Equal(t, "2024-02-29", r.Date)
	assert.Equal(t, 59, r.Volatility.Returns)
	assert.Equal(t, "low", r.Risk.Level)
	assert.Len(t, r.Series, 30)
	assert.True(t, r.Simulated)
	assert.Equal(t, 2.8, r.BondYield)
	assert.NotEmpty(t, r.Note)
}

func TestVolatilityReport_USHasNoBondYield(t *testing.T) {
	r, err := newTestService(t, fixtureFetcher(), nil).VolatilityReport(context.Background(), "us", model.Period1Y)
	require.NoError(t, err)
	assert.False(t, r.Simulated)
	assert.Zero(t, r.BondYield)
}

func TestSpreadReport(t *testing.T) {
	s := newTestService(t, fixtureFetcher(), nil)
	r, err := s.SpreadReport(context.Background(), "us", model.Period1Y)
	require.NoError(t, err)

	require.Len(t, r.History, 60)
	assert.InDelta(t, 4.59*0.3, r.Current.Spread, 1e-12)
	assert.InDelta(t, 4.59, r.Current.TreasuryYield, 1e-12)
	assert.Equal(t, 110.0, r.Current.CorporatePrice)
	// last 30 observations: 4.30 .. 4.59
	assert.InDelta(t, 0.29*0.3, r.Trend, 1e-9)
	assert.InDelta(t, 4.0*0.3, r.Min, 1e-12)
	assert.Equal(t, "widening", r.Risk.Level)

	_, err = s.SpreadReport(context.Background(), "cn", model.Period1Y)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestSpreadReport_FlatIsNormal(t *testing.T) {
	f := &collector.MockFetcher{Series: map[string][]model.PricePoint{
		"^TNX": linear(40, 4.0, 0),
		"LQD":  linear(40, 110, 0),
	}}
	r, err := newTestService(t, f, nil).SpreadReport(context.Background(), "us", model.Period1Y)
	require.NoError(t, err)
	assert.Zero(t, r.Trend)
	assert.Equal(t, "normal", r.Risk.Level)
}

func TestOverview_US(t *testing.T) {
	reg := metrics.New()
	s := newTestService(t, fixtureFetcher(), reg)
	ov, err := s.Overview(context.Background(), "us", model.Period5Y)
	require.NoError(t, err)

	assert.Equal(t, model.SignalSpreadTrend, ov.SignalKind)
	require.NotNil(t, ov.Spread)
	assert.Nil(t, ov.Volatility)
	assert.Equal(t, ov.Spread.Trend, ov.Signal)
	require.NotNil(t, ov.Bubble)

	st := ov.Ratio.Statistics
	direct, err := s.BubbleIndex("us", strategy.NewMetricRequest(st.Latest.Ratio, st.ZScore, st.Mean, st.Max, ov.Signal))
	require.NoError(t, err)
	assert.Equal(t, direct, ov.Bubble)
	assert.Equal(t, float64(ov.Bubble.TotalScore), testutil.ToFloat64(reg.BubbleScore.WithLabelValues("us")))
}

func TestOverview_China(t *testing.T) {
	f := fixtureFetcher()
	ov, err := newTestService(t, f, nil).Overview(context.Background(), "cn", model.Period5Y)
	require.NoError(t, err)

	assert.Equal(t, model.SignalVolatility, ov.SignalKind)
	assert.Nil(t, ov.Spread)
	require.NotNil(t, ov.Volatility)
	assert.Equal(t, ov.Volatility.Volatility.Annualized, ov.Signal)
	assert.GreaterOrEqual(t, ov.Bubble.TotalScore, 0)
	assert.LessOrEqual(t, ov.Bubble.TotalScore, 100)
	// volatility reuses the ratio fetch
	assert.Equal(t, 1, f.Calls("000001.SS"))
	assert.Zero(t, f.Calls("^TNX"))
}

func TestOverview_FailsWhole(t *testing.T) {
	f := fixtureFetcher()
	f.Errs = map[string]error{"LQD": errors.New("timeout")}
	ov, err := newTestService(t, f, nil).Overview(context.Background(), "us", model.Period5Y)
	assert.Nil(t, ov)
	assert.ErrorIs(t, err, model.ErrProvider)
}

func TestBubbleIndex_Validation(t *testing.T) {
	s := newTestService(t, fixtureFetcher(), nil)
	_, err := s.BubbleIndex("us", strategy.MetricRequest{})
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = s.BubbleIndex("xx", strategy.NewMetricRequest(1, 0, 1, 1, 0))
	assert.ErrorIs(t, err, ErrUnknownMarket)
}

func TestNewService_RejectsBadMarkets(t *testing.T) {
	c := collector.NewCollector(fixtureFetcher())

	_, err := NewService(c, nil, nil)
	assert.Error(t, err)

	_, err = NewService(c, []Market{USMarket(), USMarket()}, nil)
	assert.Error(t, err)

	noSpread := USMarket()
	noSpread.Spread = SpreadSource{}
	_, err = NewService(c, []Market{noSpread}, nil)
	assert.Error(t, err)

	mismatched := ChinaMarket()
	mismatched.Key = "hk"
	_, err = NewService(c, []Market{mismatched}, nil)
	assert.Error(t, err)
}

func TestApplyConfig(t *testing.T) {
	markets, err := ApplyConfig(DefaultMarkets(), map[string]config.MarketConfig{
		"us": {
			HistoricalPeak: &strategy.Reference{Name: "custom", Ratio: 6},
			Spread:         config.SpreadConfig{Factor: 0.25},
		},
		"cn": {IndexSymbol: "000300.SS", BondYield: 2.5},
	})
	require.NoError(t, err)

	assert.Equal(t, 6.0, markets[0].Profile.HistoricalPeak.Ratio)
	assert.Equal(t, 0.25, markets[0].Spread.Factor)
	assert.Equal(t, "^TNX", markets[0].Spread.YieldSymbol)
	assert.Equal(t, "000300.SS", markets[1].IndexSymbol)
	assert.Equal(t, 2.5, markets[1].Bond.SimulatedYield)
	// built-ins are untouched
	assert.Equal(t, 5.5, USMarket().Profile.HistoricalPeak.Ratio)

	_, err = ApplyConfig(DefaultMarkets(), map[string]config.MarketConfig{"jp": {}})
	assert.ErrorIs(t, err, ErrUnknownMarket)
}
