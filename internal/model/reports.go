package model

import "time"

// ReferenceComparison compares the current ratio with a named historical level.
type ReferenceComparison struct {
	Name         string
	Ratio        float64
	DeviationPct float64 // (current - reference) / reference * 100
	Above        bool
}

// RatioReport is the index/reference valuation view of one market.
type RatioReport struct {
	Market          string
	Period          Period
	IndexSymbol     string
	ReferenceSymbol string
	Current         RatioObservation
	Statistics      Statistics
	Risk            RiskAssessment
	Comparisons     []ReferenceComparison
	Rolling         []RollingPoint
	History         RatioSeries // last HistoryWindow observations
	FullHistory     RatioSeries
	GeneratedAt     time.Time
}

// HistoryWindow is the number of recent observations returned as History.
const HistoryWindow = 365

// VolatilityReport is the return-volatility view of one market's index.
type VolatilityReport struct {
	Market      string
	Period      Period
	Symbol      string
	Date        string
	Volatility  Volatility
	Risk        RiskAssessment
	Series      []VolatilityPoint
	BondYield   float64
	Simulated   bool // BondYield is a configured placeholder, not market data
	Note        string
	GeneratedAt time.Time
}

// SpreadObservation is one date of the bond-spread proxy.
type SpreadObservation struct {
	Date           string
	TreasuryYield  float64
	CorporatePrice float64
	Spread         float64
}

// SpreadReport is the bond-spread proxy view used as the US secondary signal.
type SpreadReport struct {
	Market          string
	Period          Period
	YieldSymbol     string
	CorporateSymbol string
	Current         SpreadObservation
	Mean            float64
	Std             float64
	Max             float64
	Min             float64
	Trend           float64 // change over the trailing window
	Risk            RiskAssessment
	History         []SpreadObservation
	Note            string
	GeneratedAt     time.Time
}

// SignalKind names which secondary signal feeds a market's bubble index.
type SignalKind string

const (
	SignalSpreadTrend SignalKind = "spread_trend"
	SignalVolatility  SignalKind = "volatility"
)

// Overview bundles everything a market dashboard renders.
type Overview struct {
	Market      string
	Period      Period
	Ratio       *RatioReport
	Spread      *SpreadReport     // set when the market scores on spread trend
	Volatility  *VolatilityReport // set when the market scores on volatility
	SignalKind  SignalKind
	Signal      float64
	Bubble      *BubbleIndexResult
	GeneratedAt time.Time
}
