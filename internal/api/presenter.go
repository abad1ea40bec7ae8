package api

import (
	"fmt"
	"time"

	"BubbleSentinel/internal/dashboard"
	"BubbleSentinel/internal/model"
)

// Summary numbers are rendered as fixed-precision strings; chart series stay numeric.

func f2(v float64) string { return fmt.Sprintf("%.2f", v) }
func f3(v float64) string { return fmt.Sprintf("%.3f", v) }
func pct(v float64) string { return fmt.Sprintf("%.2f%%", v) }

type referenceDTO struct {
	Name  string  `json:"name"`
	Ratio float64 `json:"ratio"`
}

type marketDTO struct {
	Key             string         `json:"key"`
	Name            string         `json:"name"`
	RatioLabel      string         `json:"ratioLabel"`
	IndexSymbol     string         `json:"indexSymbol"`
	ReferenceSymbol string         `json:"referenceSymbol"`
	SignalKind      string         `json:"signalKind"`
	HistoricalPeak  referenceDTO   `json:"historicalPeak"`
	References      []referenceDTO `json:"references"`
}

func presentMarket(m dashboard.Market) marketDTO {
	p := m.Profile
	refs := make([]referenceDTO, 0, len(p.References))
	for _, r := range p.References {
		refs = append(refs, referenceDTO{Name: r.Name, Ratio: r.Ratio})
	}
	return marketDTO{
		Key:             m.Key,
		Name:            p.Name,
		RatioLabel:      p.RatioLabel,
		IndexSymbol:     m.IndexSymbol,
		ReferenceSymbol: m.ReferenceSymbol,
		SignalKind:      string(p.Signal.Kind),
		HistoricalPeak:  referenceDTO{Name: p.HistoricalPeak.Name, Ratio: p.HistoricalPeak.Ratio},
		References:      refs,
	}
}

type riskDTO struct {
	Level       string `json:"level"`
	Label       string `json:"label"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
}

func presentRisk(a model.RiskAssessment) riskDTO {
	return riskDTO{Level: a.Level, Label: a.Label, Severity: string(a.Severity), Description: a.Description}
}

type comparisonDTO struct {
	Name      string  `json:"name"`
	Ratio     float64 `json:"ratio"`
	Deviation string  `json:"deviation"`
	Position  string  `json:"position"`
	Above     bool    `json:"above"`
}

type ratioDTO struct {
	Market          string `json:"market"`
	Period          string `json:"period"`
	IndexSymbol     string `json:"indexSymbol"`
	ReferenceSymbol string `json:"referenceSymbol"`
	Current         struct {
		Date      string `json:"date"`
		Index     string `json:"index"`
		Reference string `json:"reference"`
		Ratio     string `json:"ratio"`
	} `json:"current"`
	Statistics struct {
		Mean   string `json:"mean"`
		Std    string `json:"std"`
		Max    string `json:"max"`
		Min    string `json:"min"`
		ZScore string `json:"zScore"`
		Count  int    `json:"count"`
	} `json:"statistics"`
	Risk           riskDTO                  `json:"risk"`
	Comparisons    []comparisonDTO          `json:"historicalComparison"`
	Rolling        []model.RollingPoint     `json:"rolling"`
	HistoricalData []model.RatioObservation `json:"historicalData"`
	FullData       []model.RatioObservation `json:"fullData"`
	GeneratedAt    string                   `json:"generatedAt"`
}

func presentRatio(r *model.RatioReport) *ratioDTO {
	d := &ratioDTO{
		Market:          r.Market,
		Period:          string(r.Period),
		IndexSymbol:     r.IndexSymbol,
		ReferenceSymbol: r.ReferenceSymbol,
		Risk:            presentRisk(r.Risk),
		Rolling:         r.Rolling,
		HistoricalData:  r.History,
		FullData:        r.FullHistory,
		GeneratedAt:     r.GeneratedAt.Format(time.RFC3339),
	}
	d.Current.Date = r.Current.Date
	d.Current.Index = f2(r.Current.Numerator)
	d.Current.Reference = f2(r.Current.Denominator)
	d.Current.Ratio = f3(r.Current.Ratio)

	st := r.Statistics
	d.Statistics.Mean = f3(st.Mean)
	d.Statistics.Std = f3(st.Std)
	d.Statistics.Max = f3(st.Max)
	d.Statistics.Min = f3(st.Min)
	d.Statistics.ZScore = f2(st.ZScore)
	d.Statistics.Count = st.Count

	d.Comparisons = make([]comparisonDTO, 0, len(r.Comparisons))
	for _, c := range r.Comparisons {
		pos := "低于"
		if c.Above {
			pos = "高于"
		}
		d.Comparisons = append(d.Comparisons, comparisonDTO{
			Name: c.Name, Ratio: c.Ratio, Deviation: pct(c.DeviationPct), Position: pos, Above: c.Above,
		})
	}
	return d
}

type volatilityDTO struct {
	Market  string `json:"market"`
	Period  string `json:"period"`
	Symbol  string `json:"symbol"`
	Current struct {
		Date       string `json:"date"`
		Volatility string `json:"volatility"`
		BondYield  string `json:"bondYield,omitempty"`
	} `json:"current"`
	Statistics struct {
		AvgVolatility      string `json:"avgVolatility"`
		Recent30Volatility string `json:"recent30Volatility"`
		Trend30d           string `json:"trend30d"`
		Returns            int    `json:"returns"`
	} `json:"statistics"`
	Risk           riskDTO                 `json:"risk"`
	HistoricalData []model.VolatilityPoint `json:"historicalData"`
	Simulated      bool                    `json:"simulated"`
	Note           string                  `json:"note,omitempty"`
	GeneratedAt    string                  `json:"generatedAt"`
}

func presentVolatility(r *model.VolatilityReport) *volatilityDTO {
	d := &volatilityDTO{
		Market:         r.Market,
		Period:         string(r.Period),
		Symbol:         r.Symbol,
		Risk:           presentRisk(r.Risk),
		HistoricalData: r.Series,
		Simulated:      r.Simulated,
		Note:           r.Note,
		GeneratedAt:    r.GeneratedAt.Format(time.RFC3339),
	}
	d.Current.Date = r.Date
	d.Current.Volatility = f2(r.Volatility.Annualized)
	if r.Simulated {
		d.Current.BondYield = f3(r.BondYield)
	}
	d.Statistics.AvgVolatility = f2(r.Volatility.Annualized)
	d.Statistics.Recent30Volatility = f2(r.Volatility.Trailing)
	d.Statistics.Trend30d = f3(r.Volatility.Trend)
	d.Statistics.Returns = r.Volatility.Returns
	return d
}

type spreadPointDTO struct {
	Date               string  `json:"date"`
	TreasuryYield      float64 `json:"treasuryYield"`
	CorporateBondPrice float64 `json:"corporateBondPrice"`
	Spread             float64 `json:"spread"`
}

type spreadDTO struct {
	Market          string `json:"market"`
	Period          string `json:"period"`
	YieldSymbol     string `json:"yieldSymbol"`
	CorporateSymbol string `json:"corporateSymbol"`
	Current         struct {
		Date               string `json:"date"`
		TreasuryYield      string `json:"treasuryYield"`
		CorporateBondPrice string `json:"corporateBondPrice"`
		Spread             string `json:"spread"`
	} `json:"current"`
	Statistics struct {
		Mean     string `json:"mean"`
		Std      string `json:"std"`
		Max      string `json:"max"`
		Min      string `json:"min"`
		Trend30d string `json:"trend30d"`
	} `json:"statistics"`
	Risk           riskDTO          `json:"risk"`
	HistoricalData []spreadPointDTO `json:"historicalData"`
	Note           string           `json:"note"`
	GeneratedAt    string           `json:"generatedAt"`
}

func presentSpread(r *model.SpreadReport) *spreadDTO {
	d := &spreadDTO{
		Market:          r.Market,
		Period:          string(r.Period),
		YieldSymbol:     r.YieldSymbol,
		CorporateSymbol: r.CorporateSymbol,
		Risk:            presentRisk(r.Risk),
		Note:            r.Note,
		GeneratedAt:     r.GeneratedAt.Format(time.RFC3339),
	}
	d.Current.Date = r.Current.Date
	d.Current.TreasuryYield = f3(r.Current.TreasuryYield)
	d.Current.CorporateBondPrice = f2(r.Current.CorporatePrice)
	d.Current.Spread = f3(r.Current.Spread)
	d.Statistics.Mean = f3(r.Mean)
	d.Statistics.Std = f3(r.Std)
	d.Statistics.Max = f3(r.Max)
	d.Statistics.Min = f3(r.Min)
	d.Statistics.Trend30d = f3(r.Trend)
	d.HistoricalData = make([]spreadPointDTO, len(r.History))
	for i, o := range r.History {
		d.HistoricalData[i] = spreadPointDTO{
			Date: o.Date, TreasuryYield: o.TreasuryYield, CorporateBondPrice: o.CorporatePrice, Spread: o.Spread,
		}
	}
	return d
}

type bubbleDTO struct {
	Market      string `json:"market"`
	TotalScore  int    `json:"totalScore"`
	Level       string `json:"level"`
	Label       string `json:"label"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
	Components  struct {
		RatioScore      int    `json:"ratioScore"`
		ZScoreScore     int    `json:"zScoreScore"`
		SignalScore     int    `json:"signalScore"`
		SignalKind      string `json:"signalKind"`
		HistoricalScore int    `json:"historicalScore"`
	} `json:"components"`
	Breakdown      []string `json:"breakdown"`
	Recommendation string   `json:"recommendation"`
}

func presentBubble(b *model.BubbleIndexResult, kind model.SignalKind) *bubbleDTO {
	d := &bubbleDTO{
		Market:         b.Market,
		TotalScore:     b.TotalScore,
		Level:          b.Assessment.Level,
		Label:          b.Assessment.Label,
		Severity:       string(b.Assessment.Severity),
		Description:    b.Assessment.Description,
		Breakdown:      b.Breakdown,
		Recommendation: b.Recommendation,
	}
	d.Components.RatioScore = b.Components.Ratio
	d.Components.ZScoreScore = b.Components.Deviation
	d.Components.SignalScore = b.Components.Secondary
	d.Components.SignalKind = string(kind)
	d.Components.HistoricalScore = b.Components.Historical
	return d
}

type overviewDTO struct {
	Market      string         `json:"market"`
	Period      string         `json:"period"`
	Ratio       *ratioDTO      `json:"ratio"`
	Spread      *spreadDTO     `json:"spread,omitempty"`
	Volatility  *volatilityDTO `json:"volatility,omitempty"`
	SignalKind  string         `json:"signalKind"`
	Signal      string         `json:"signal"`
	BubbleIndex *bubbleDTO     `json:"bubbleIndex"`
	GeneratedAt string         `json:"generatedAt"`
}

func presentOverview(o *model.Overview) *overviewDTO {
	d := &overviewDTO{
		Market:      o.Market,
		Period:      string(o.Period),
		Ratio:       presentRatio(o.Ratio),
		SignalKind:  string(o.SignalKind),
		Signal:      f3(o.Signal),
		BubbleIndex: presentBubble(o.Bubble, o.SignalKind),
		GeneratedAt: o.GeneratedAt.Format(time.RFC3339),
	}
	if o.Spread != nil {
		d.Spread = presentSpread(o.Spread)
	}
	if o.Volatility != nil {
		d.Volatility = presentVolatility(o.Volatility)
	}
	return d
}

// PresentOverview renders an overview in the API's JSON shape.
func PresentOverview(o *model.Overview) interface{} {
	return presentOverview(o)
}
