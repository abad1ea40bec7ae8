package strategy

import "BubbleSentinel/internal/model"

// Band is one threshold of a classification table.
type Band struct {
	Above      float64 // exclusive lower bound
	Assessment model.RiskAssessment
}

// BandTable lists bands from the most severe down; Default catches everything else.
type BandTable struct {
	Bands   []Band
	Default model.RiskAssessment
}

// Classify returns the first band whose bound the signal strictly exceeds.
// A value exactly on a boundary falls into the band below it.
func Classify(signal float64, table BandTable) model.RiskAssessment {
	for _, b := range table.Bands {
		if signal > b.Above {
			return b.Assessment
		}
	}
	return table.Default
}

// ratioRiskBands classifies the z-score of an index/gold ratio. noun names the
// market in the descriptions ("股市", "A股").
func ratioRiskBands(noun string) BandTable {
	return BandTable{
		Bands: []Band{
			{2, model.RiskAssessment{Level: "high", Label: "高风险", Severity: model.SeverityHigh,
				Description: "比率显著高于历史均值," + noun + "可能存在泡沫"}},
			{1, model.RiskAssessment{Level: "moderate", Label: "中等风险", Severity: model.SeverityElevated,
				Description: "比率高于历史均值,需要关注"}},
			{-1, model.RiskAssessment{Level: "safe", Label: "相对安全", Severity: model.SeverityNormal,
				Description: "当前比率处于历史正常范围内"}},
		},
		Default: model.RiskAssessment{Level: "undervalued", Label: "低估值", Severity: model.SeverityFavorable,
			Description: "比率低于历史均值,可能是买入机会"},
	}
}

// VolatilityBands classifies annualised volatility in percent.
var VolatilityBands = BandTable{
	Bands: []Band{
		{30, model.RiskAssessment{Level: "high", Label: "高波动", Severity: model.SeverityHigh,
			Description: "市场波动率较高,风险上升"}},
		{20, model.RiskAssessment{Level: "moderate", Label: "中等波动", Severity: model.SeverityElevated,
			Description: "市场波动率偏高,需要关注"}},
		{10, model.RiskAssessment{Level: "normal", Label: "正常", Severity: model.SeverityNormal,
			Description: "市场波动率处于正常范围"}},
	},
	Default: model.RiskAssessment{Level: "low", Label: "低波动", Severity: model.SeverityFavorable,
		Description: "市场波动率较低,相对平稳"},
}

// SpreadTrendBands classifies a spread trend relative to the spread's own std.
func SpreadTrendBands(std float64) BandTable {
	return BandTable{
		Bands: []Band{
			{0.5 * std, model.RiskAssessment{Level: "widening", Label: "利差扩大", Severity: model.SeverityHigh,
				Description: "利差快速扩大,市场风险上升,建议关注"}},
			{0.2 * std, model.RiskAssessment{Level: "rising", Label: "利差上升", Severity: model.SeverityElevated,
				Description: "利差温和上升,需要警惕"}},
			{-0.2 * std, model.RiskAssessment{Level: "normal", Label: "正常", Severity: model.SeverityNormal,
				Description: "利差处于正常范围"}},
		},
		Default: model.RiskAssessment{Level: "narrowing", Label: "利差收窄", Severity: model.SeverityFavorable,
			Description: "利差收窄,市场风险偏好上升"},
	}
}

// ClassifySpreadTrend applies SpreadTrendBands. A spread history without
// dispersion (std <= 0) is always normal.
func ClassifySpreadTrend(trend, std float64) model.RiskAssessment {
	table := SpreadTrendBands(std)
	if std <= 0 {
		return table.Bands[2].Assessment
	}
	return Classify(trend, table)
}
