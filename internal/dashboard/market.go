package dashboard

import (
	"fmt"

	"BubbleSentinel/internal/config"
	"BubbleSentinel/internal/model"
	"BubbleSentinel/internal/strategy"
)

// SpreadSource names the two series behind the bond-spread proxy.
type SpreadSource struct {
	YieldSymbol     string
	CorporateSymbol string
	Factor          float64 // spread = treasury yield * Factor
}

// Enabled reports whether the market has a spread proxy configured.
func (s SpreadSource) Enabled() bool {
	return s.YieldSymbol != "" && s.CorporateSymbol != ""
}

// BondSource describes the market's bond yield. Only a configured placeholder
// is supported; it is always reported as simulated.
type BondSource struct {
	SimulatedYield float64
}

// Market binds a scoring profile to the provider symbols it reads.
type Market struct {
	Key             string
	IndexSymbol     string
	ReferenceSymbol string
	Profile         *strategy.Profile
	Spread          SpreadSource
	Bond            BondSource
}

// DefaultSpread is the US treasury / investment-grade ETF proxy.
var DefaultSpread = SpreadSource{YieldSymbol: "^TNX", CorporateSymbol: "LQD", Factor: 0.3}

// USMarket is S&P 500 priced in gold futures.
func USMarket() Market {
	return Market{
		Key:             "us",
		IndexSymbol:     "^GSPC",
		ReferenceSymbol: "GC=F",
		Profile:         strategy.USProfile(),
		Spread:          DefaultSpread,
	}
}

// ChinaMarket is the Shanghai Composite priced in gold futures.
func ChinaMarket() Market {
	return Market{
		Key:             "cn",
		IndexSymbol:     "000001.SS",
		ReferenceSymbol: "GC=F",
		Profile:         strategy.ChinaProfile(),
		Bond:            BondSource{SimulatedYield: 2.8},
	}
}

// DefaultMarkets returns the built-in markets in display order.
func DefaultMarkets() []Market {
	return []Market{USMarket(), ChinaMarket()}
}

func (m Market) validate() error {
	if m.Key == "" {
		return fmt.Errorf("market key is required")
	}
	if m.IndexSymbol == "" || m.ReferenceSymbol == "" {
		return fmt.Errorf("market %s: index and reference symbols are required", m.Key)
	}
	if m.Profile == nil {
		return fmt.Errorf("market %s: profile is required", m.Key)
	}
	if err := m.Profile.Validate(); err != nil {
		return fmt.Errorf("market %s: %w", m.Key, err)
	}
	if m.Profile.Market != m.Key {
		return fmt.Errorf("market %s: profile is for %q", m.Key, m.Profile.Market)
	}
	if m.Profile.Signal.Kind == model.SignalSpreadTrend && !m.Spread.Enabled() {
		return fmt.Errorf("market %s: spread-trend scoring needs a spread source", m.Key)
	}
	if m.Spread.Enabled() && m.Spread.Factor <= 0 {
		return fmt.Errorf("market %s: spread factor must be positive", m.Key)
	}
	if m.Bond.SimulatedYield < 0 {
		return fmt.Errorf("market %s: bond yield must not be negative", m.Key)
	}
	return nil
}

// ApplyConfig returns copies of markets with per-market overrides applied.
// Overrides for keys that match no market are an error.
func ApplyConfig(markets []Market, overrides map[string]config.MarketConfig) ([]Market, error) {
	known := make(map[string]bool, len(markets))
	out := make([]Market, len(markets))
	for i, m := range markets {
		known[m.Key] = true
		o, ok := overrides[m.Key]
		if !ok {
			out[i] = m
			continue
		}
		if o.IndexSymbol != "" {
			m.IndexSymbol = o.IndexSymbol
		}
		if o.ReferenceSymbol != "" {
			m.ReferenceSymbol = o.ReferenceSymbol
		}
		if o.HistoricalPeak != nil {
			m.Profile = m.Profile.WithPeak(*o.HistoricalPeak)
		}
		if len(o.References) > 0 {
			m.Profile = m.Profile.WithReferences(o.References)
		}
		if o.Spread.YieldSymbol != "" {
			m.Spread.YieldSymbol = o.Spread.YieldSymbol
		}
		if o.Spread.CorporateSymbol != "" {
			m.Spread.CorporateSymbol = o.Spread.CorporateSymbol
		}
		if o.Spread.Factor > 0 {
			m.Spread.Factor = o.Spread.Factor
		}
		if o.BondYield > 0 {
			m.Bond.SimulatedYield = o.BondYield
		}
		out[i] = m
	}
	for key := range overrides {
		if !known[key] {
			return nil, fmt.Errorf("markets.%s: %w", key, ErrUnknownMarket)
		}
	}
	return out, nil
}
