package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"BubbleSentinel/internal/calculator"
	"BubbleSentinel/internal/collector"
	"BubbleSentinel/internal/metrics"
	"BubbleSentinel/internal/model"
	"BubbleSentinel/internal/strategy"
)

var (
	ErrUnknownMarket = errors.New("unknown market")
	ErrUnsupported   = errors.New("not available for market")
)

const (
	// RollingWindow is the trailing window of the ratio bands and the volatility series.
	RollingWindow = 30
	// BandWidth is the k in mean ± k·std.
	BandWidth = 2.0
	// SpreadTrendWindow is the number of observations the spread trend spans.
	SpreadTrendWindow = 30
)

const (
	spreadNote = "注意: 此数据使用LQD ETF作为公司债券的代理指标,实际利差计算可能需要更精确的债券收益率数据"
	bondNote   = "注意: 由于数据源限制,国债收益率为模拟数据。波动率基于指数收盘价计算。"
)

// Service turns provider series into per-market dashboard reports.
type Service struct {
	collector *collector.Collector
	markets   map[string]Market
	scorers   map[string]*strategy.Scorer
	order     []string
	metrics   *metrics.Registry
	now       func() time.Time
}

// NewService validates markets and builds their scorers. reg may be nil.
func NewService(c *collector.Collector, markets []Market, reg *metrics.Registry) (*Service, error) {
	if len(markets) == 0 {
		return nil, fmt.Errorf("no markets configured")
	}
	s := &Service{
		collector: c,
		markets:   make(map[string]Market, len(markets)),
		scorers:   make(map[string]*strategy.Scorer, len(markets)),
		metrics:   reg,
		now:       time.Now,
	}
	for _, m := range markets {
		if err := m.validate(); err != nil {
			return nil, err
		}
		if _, dup := s.markets[m.Key]; dup {
			return nil, fmt.Errorf("market %s configured twice", m.Key)
		}
		scorer, err := strategy.NewScorer(m.Profile)
		if err != nil {
			return nil, fmt.Errorf("market %s: %w", m.Key, err)
		}
		s.markets[m.Key] = m
		s.scorers[m.Key] = scorer
		s.order = append(s.order, m.Key)
	}
	return s, nil
}

// Markets returns the configured markets in registration order.
func (s *Service) Markets() []Market {
	out := make([]Market, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.markets[k])
	}
	return out
}

// Market looks up a market by key.
func (s *Service) Market(key string) (Market, error) {
	m, ok := s.markets[key]
	if !ok {
		return Market{}, fmt.Errorf("%w: %q", ErrUnknownMarket, key)
	}
	return m, nil
}

// RatioReport computes the index/reference valuation view.
func (s *Service) RatioReport(ctx context.Context, key string, period model.Period) (*model.RatioReport, error) {
	m, err := s.Market(key)
	if err != nil {
		return nil, err
	}
	idx, ref, err := s.collector.FetchPair(ctx, m.IndexSymbol, m.ReferenceSymbol, period)
	if err != nil {
		return nil, err
	}
	return s.ratioReport(m, period, idx, ref)
}

func (s *Service) ratioReport(m Market, period model.Period, idx, ref *model.PriceSeries) (*model.RatioReport, error) {
	series, err := calculator.AlignSeries(idx.Points, ref.Points)
	if err != nil {
		return nil, fmt.Errorf("align %s/%s: %w", m.IndexSymbol, m.ReferenceSymbol, err)
	}
	stats, err := calculator.DescribeRatios(series)
	if err != nil {
		return nil, fmt.Errorf("describe %s ratio: %w", m.Key, err)
	}
	if s.metrics != nil {
		s.metrics.RatioZScore.WithLabelValues(m.Key).Set(stats.ZScore)
	}
	log.Debug().Str("market", m.Key).Str("period", string(period)).Int("observations", stats.Count).
		Float64("ratio", stats.Latest.Ratio).Float64("zscore", stats.ZScore).Msg("ratio computed")

	return &model.RatioReport{
		Market:          m.Key,
		Period:          period,
		IndexSymbol:     m.IndexSymbol,
		ReferenceSymbol: m.ReferenceSymbol,
		Current:         stats.Latest,
		Statistics:      *stats,
		Risk:            strategy.Classify(stats.ZScore, m.Profile.RatioRisk),
		Comparisons:     strategy.CompareReferences(stats.Latest.Ratio, m.Profile.References),
		Rolling:         calculator.RollingBands(series, RollingWindow, BandWidth),
		History:         series.Tail(model.HistoryWindow),
		FullHistory:     series,
		GeneratedAt:     s.now().UTC(),
	}, nil
}

// VolatilityReport computes annualised volatility of the market index.
func (s *Service) VolatilityReport(ctx context.Context, key string, period model.Period) (*model.VolatilityReport, error) {
	m, err := s.Market(key)
	if err != nil {
		return nil, err
	}
	idx, err := s.collector.FetchSeries(ctx, m.IndexSymbol, period)
	if err != nil {
		return nil, err
	}
	return s.volatilityReport(m, period, idx)
}

func (s *Service) volatilityReport(m Market, period model.Period, idx *model.PriceSeries) (*model.VolatilityReport, error) {
	vol, err := calculator.CalculateVolatility(idx.Prices())
	if err != nil {
		return nil, fmt.Errorf("volatility %s: %w", m.IndexSymbol, err)
	}
	latest, _ := idx.Latest()
	series := calculator.RollingVolatility(idx.Points, RollingWindow)
	if len(series) > model.HistoryWindow {
		series = series[len(series)-model.HistoryWindow:]
	}
	r := &model.VolatilityReport{
		Market:      m.Key,
		Period:      period,
		Symbol:      m.IndexSymbol,
		Date:        latest.Date,
		Volatility:  *vol,
		Risk:        strategy.Classify(vol.Annualized, strategy.VolatilityBands),
		Series:      series,
		GeneratedAt: s.now().UTC(),
	}
	if m.Bond.SimulatedYield > 0 {
		r.BondYield = m.Bond.SimulatedYield
		r.Simulated = true
		r.Note = bondNote
	}
	return r, nil
}

// SpreadReport computes the treasury-yield spread proxy and its recent trend.
func (s *Service) SpreadReport(ctx context.Context, key string, period model.Period) (*model.SpreadReport, error) {
	m, err := s.Market(key)
	if err != nil {
		return nil, err
	}
	if !m.Spread.Enabled() {
		return nil, fmt.Errorf("%w: spread for %q", ErrUnsupported, key)
	}
	yield, corp, err := s.collector.FetchPair(ctx, m.Spread.YieldSymbol, m.Spread.CorporateSymbol, period)
	if err != nil {
		return nil, err
	}
	return s.spreadReport(m, period, yield, corp)
}

func (s *Service) spreadReport(m Market, period model.Period, yield, corp *model.PriceSeries) (*model.SpreadReport, error) {
	joined, err := calculator.AlignSeries(yield.Points, corp.Points)
	if err != nil {
		return nil, fmt.Errorf("align %s/%s: %w", m.Spread.YieldSymbol, m.Spread.CorporateSymbol, err)
	}
	history := make([]model.SpreadObservation, len(joined))
	spreads := make([]float64, len(joined))
	for i, o := range joined {
		spreads[i] = o.Numerator * m.Spread.Factor
		history[i] = model.SpreadObservation{
			Date:           o.Date,
			TreasuryYield:  o.Numerator,
			CorporatePrice: o.Denominator,
			Spread:         spreads[i],
		}
	}
	sum, err := calculator.Summarize(spreads)
	if err != nil {
		return nil, fmt.Errorf("summarize spread: %w", err)
	}

	recent := history
	if len(recent) > SpreadTrendWindow {
		recent = recent[len(recent)-SpreadTrendWindow:]
	}
	trend := recent[len(recent)-1].Spread - recent[0].Spread
	std := sum.Std
	if sum.Degenerate() {
		std = 0
	}

	return &model.SpreadReport{
		Market:          m.Key,
		Period:          period,
		YieldSymbol:     m.Spread.YieldSymbol,
		CorporateSymbol: m.Spread.CorporateSymbol,
		Current:         history[len(history)-1],
		Mean:            sum.Mean,
		Std:             sum.Std,
		Max:             sum.Max,
		Min:             sum.Min,
		Trend:           trend,
		Risk:            strategy.ClassifySpreadTrend(trend, std),
		History:         history,
		Note:            spreadNote,
		GeneratedAt:     s.now().UTC(),
	}, nil
}

// BubbleIndex scores caller-supplied metrics with the market's profile.
func (s *Service) BubbleIndex(key string, req strategy.MetricRequest) (*model.BubbleIndexResult, error) {
	if _, err := s.Market(key); err != nil {
		return nil, err
	}
	res, err := s.scorers[key].Score(req)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.BubbleScore.WithLabelValues(key).Set(float64(res.TotalScore))
	}
	return res, nil
}

// Overview fetches the ratio pair and the market's secondary signal
// concurrently and scores the bubble index from the live statistics.
// Any failure fails the whole overview.
func (s *Service) Overview(ctx context.Context, key string, period model.Period) (*model.Overview, error) {
	m, err := s.Market(key)
	if err != nil {
		return nil, err
	}
	ov := &model.Overview{Market: m.Key, Period: period, SignalKind: m.Profile.Signal.Kind}

	var idx, ref *model.PriceSeries
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		idx, ref, err = s.collector.FetchPair(gctx, m.IndexSymbol, m.ReferenceSymbol, period)
		return err
	})
	if ov.SignalKind == model.SignalSpreadTrend {
		g.Go(func() error {
			var err error
			ov.Spread, err = s.SpreadReport(gctx, m.Key, period)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if ov.Ratio, err = s.ratioReport(m, period, idx, ref); err != nil {
		return nil, err
	}
	switch ov.SignalKind {
	case model.SignalSpreadTrend:
		ov.Signal = ov.Spread.Trend
	case model.SignalVolatility:
		if ov.Volatility, err = s.volatilityReport(m, period, idx); err != nil {
			return nil, err
		}
		ov.Signal = ov.Volatility.Volatility.Annualized
	}

	st := ov.Ratio.Statistics
	req := strategy.NewMetricRequest(st.Latest.Ratio, st.ZScore, st.Mean, st.Max, ov.Signal)
	if ov.Bubble, err = s.BubbleIndex(m.Key, req); err != nil {
		return nil, fmt.Errorf("score %s: %w", m.Key, err)
	}
	ov.GeneratedAt = s.now().UTC()

	log.Info().Str("market", m.Key).Str("period", string(period)).Int("score", ov.Bubble.TotalScore).
		Str("level", ov.Bubble.Assessment.Level).Msg("overview computed")
	return ov, nil
}
