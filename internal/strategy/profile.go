package strategy

import (
	"fmt"
	"strings"

	"BubbleSentinel/internal/model"
)

// Component maxima of the bubble index.
const (
	MaxRatioScore      = 30
	MaxPositionScore   = 15 // each half of the ratio score
	MaxDeviationScore  = 30
	MaxSecondaryScore  = 20
	MaxHistoricalScore = 20
)

// Step awards Points when the input strictly exceeds Above.
type Step struct {
	Above  float64
	Points int
}

// StepTable is an ordered step function, highest threshold first.
type StepTable struct {
	Steps []Step
	Floor int
}

// Score returns the points of the first step exceeded, or Floor.
func (t StepTable) Score(v float64) int {
	for _, s := range t.Steps {
		if v > s.Above {
			return s.Points
		}
	}
	return t.Floor
}

// Reference is a named historical ratio level, e.g. a documented bubble peak.
type Reference struct {
	Name  string  `yaml:"name"`
	Ratio float64 `yaml:"ratio"`
}

// Template picks one of three breakdown lines by where a sub-score sits.
// Lines may use {label} {ratio} {zscore} {signal} {score} {peak}.
type Template struct {
	HighAt   int
	MediumAt int
	High     string
	Medium   string
	Low      string
}

func (t Template) render(score int, r *strings.Replacer) string {
	line := t.Low
	switch {
	case score >= t.HighAt:
		line = t.High
	case score >= t.MediumAt:
		line = t.Medium
	}
	return r.Replace(strings.ReplaceAll(line, "{score}", fmt.Sprintf("%d", score)))
}

// SignalProfile configures the secondary signal sub-score.
type SignalProfile struct {
	Kind      model.SignalKind
	Steps     StepTable
	Breakdown Template
}

// ScoreTier maps a minimum total score (inclusive) to a risk tier.
type ScoreTier struct {
	MinScore       int
	Assessment     model.RiskAssessment
	Recommendation string
}

// Profile parameterises the bubble index for one market.
type Profile struct {
	Market         string
	Name           string
	RatioLabel     string
	HistoricalPeak Reference
	References     []Reference

	RatioRisk BandTable // z-score bands for the ratio card

	MaxPosition  StepTable // ratio as % of historical max
	MeanPosition StepTable // ratio as % of historical mean
	Deviation    StepTable // z-score
	Historical   StepTable // ratio as % of HistoricalPeak
	Signal       SignalProfile

	RatioBreakdown      Template
	DeviationBreakdown  Template
	HistoricalBreakdown Template

	Tiers []ScoreTier // descending MinScore
}

// Validate checks that the profile can score anything.
func (p *Profile) Validate() error {
	if p.Market == "" {
		return fmt.Errorf("profile market is required")
	}
	if p.HistoricalPeak.Ratio <= 0 {
		return fmt.Errorf("profile %s: historical peak ratio must be positive", p.Market)
	}
	if len(p.Tiers) == 0 {
		return fmt.Errorf("profile %s: no score tiers", p.Market)
	}
	for i := 1; i < len(p.Tiers); i++ {
		if p.Tiers[i].MinScore >= p.Tiers[i-1].MinScore {
			return fmt.Errorf("profile %s: score tiers must be in descending order", p.Market)
		}
	}
	if p.Signal.Kind != model.SignalSpreadTrend && p.Signal.Kind != model.SignalVolatility {
		return fmt.Errorf("profile %s: unknown signal kind %q", p.Market, p.Signal.Kind)
	}
	return nil
}

// WithPeak returns a copy of p scored against a different historical peak.
func (p Profile) WithPeak(peak Reference) *Profile {
	p.HistoricalPeak = peak
	return &p
}

// WithReferences returns a copy of p with a different comparison list.
func (p Profile) WithReferences(refs []Reference) *Profile {
	p.References = append([]Reference(nil), refs...)
	return &p
}

// tierFor returns the first tier whose minimum the total reaches.
func (p *Profile) tierFor(total int) ScoreTier {
	for _, t := range p.Tiers {
		if total >= t.MinScore {
			return t
		}
	}
	return p.Tiers[len(p.Tiers)-1]
}

var meanPositionSteps = StepTable{
	Steps: []Step{{150, 15}, {130, 12}, {110, 9}, {90, 6}, {70, 3}},
}

var deviationSteps = StepTable{
	Steps: []Step{{3, 30}, {2.5, 27}, {2, 24}, {1.5, 20}, {1, 15}, {0.5, 10}, {0, 5}, {-0.5, 3}, {-1, 1}},
}

var historicalSteps = StepTable{
	Steps: []Step{{100, 20}, {90, 18}, {80, 15}, {70, 12}, {60, 9}, {50, 6}, {40, 3}},
}

func deviationTemplate() Template {
	return Template{
		HighAt: 20, MediumAt: 10,
		High:   "📈 Z-Score({zscore})显著偏离均值,占比{score}/30分",
		Medium: "📈 Z-Score({zscore})高于均值,占比{score}/30分",
		Low:    "📈 Z-Score({zscore})在正常范围,占比{score}/30分",
	}
}

func ratioTemplate() Template {
	return Template{
		HighAt: 20, MediumAt: 10,
		High:   "📊 {label}({ratio})处于历史高位,占比{score}/30分",
		Medium: "📊 {label}({ratio})偏高,占比{score}/30分",
		Low:    "📊 {label}({ratio})相对合理,占比{score}/30分",
	}
}

// scoreTiers builds the six tiers; noun names the market ("市场", "A股") and
// advice holds the six recommendations from most to least severe.
func scoreTiers(noun string, advice [6]string) []ScoreTier {
	return []ScoreTier{
		{80, model.RiskAssessment{Level: "extreme", Label: "极度危险", Severity: model.SeverityCritical,
			Description: noun + "处于极度泡沫状态,建议大幅减仓或清仓"}, advice[0]},
		{65, model.RiskAssessment{Level: "high", Label: "高度风险", Severity: model.SeverityHigh,
			Description: noun + "存在明显泡沫,建议减仓至30-40%"}, advice[1]},
		{50, model.RiskAssessment{Level: "moderate", Label: "中度风险", Severity: model.SeverityElevated,
			Description: noun + "有泡沫迹象,建议保持50-60%仓位"}, advice[2]},
		{35, model.RiskAssessment{Level: "mild", Label: "轻度风险", Severity: model.SeverityNotice,
			Description: noun + "估值偏高,建议保持谨慎,60-70%仓位"}, advice[3]},
		{20, model.RiskAssessment{Level: "safe", Label: "相对安全", Severity: model.SeverityNormal,
			Description: noun + "估值合理,可保持正常仓位70-80%"}, advice[4]},
		{0, model.RiskAssessment{Level: "undervalued", Label: "低估值区域", Severity: model.SeverityFavorable,
			Description: noun + "可能被低估,可考虑逐步加仓"}, advice[5]},
	}
}

// USProfile scores S&P 500 / gold against the 2000 dot-com peak, with the
// bond-spread trend as secondary signal.
func USProfile() *Profile {
	return &Profile{
		Market:         "us",
		Name:           "美股",
		RatioLabel:     "SP500/黄金比率",
		HistoricalPeak: Reference{Name: "2000年互联网泡沫", Ratio: 5.5},
		References: []Reference{
			{Name: "2000年互联网泡沫", Ratio: 5.5},
			{Name: "1929年大萧条前", Ratio: 18.0},
			{Name: "2008年金融危机后低点", Ratio: 1.5},
		},
		RatioRisk: ratioRiskBands("股市"),
		MaxPosition: StepTable{
			Steps: []Step{{90, 15}, {80, 13}, {70, 11}, {60, 9}, {50, 7}, {40, 5}, {30, 3}},
			Floor: 1,
		},
		MeanPosition: meanPositionSteps,
		Deviation:    deviationSteps,
		Historical:   historicalSteps,
		Signal: SignalProfile{
			Kind: model.SignalSpreadTrend,
			Steps: StepTable{
				Steps: []Step{{0.5, 20}, {0.3, 16}, {0.2, 12}, {0.1, 8}, {0, 4}, {-0.1, 2}},
			},
			Breakdown: Template{
				HighAt: 12, MediumAt: 6,
				High:   "💰 债券利差快速扩大,市场风险偏好下降,占比{score}/20分",
				Medium: "💰 债券利差温和上升,需要关注,占比{score}/20分",
				Low:    "💰 债券利差相对稳定,占比{score}/20分",
			},
		},
		RatioBreakdown:     ratioTemplate(),
		DeviationBreakdown: deviationTemplate(),
		HistoricalBreakdown: Template{
			HighAt: 15, MediumAt: 8,
			High:   "📚 当前比率接近或超过历史泡沫水平,占比{score}/20分",
			Medium: "📚 当前比率高于历史平均水平,占比{score}/20分",
			Low:    "📚 当前比率低于历史泡沫水平,占比{score}/20分",
		},
		Tiers: scoreTiers("市场", [6]string{
			"🚨 强烈建议: 立即减仓至20-30%或清仓,保留现金等待机会。历史数据显示,当指数超过80时,市场往往在6-12个月内出现重大调整。",
			"⚠️ 建议: 减仓至30-40%,增加防御性资产(债券、黄金)配置。设置止损位,避免追高。",
			"⚡ 建议: 保持50-60%仓位,停止加仓,密切关注市场变化。考虑获利了结部分高估值股票。",
			"💡 建议: 保持60-70%仓位,谨慎选股,避免高估值板块。可适当配置价值股。",
			"✅ 建议: 保持70-80%正常仓位,可继续持有优质资产,但需分散投资。",
			"🎯 建议: 市场可能被低估,可考虑逐步加仓至80-90%。但仍需分批建仓,不要一次性全仓。",
		}),
	}
}

// ChinaProfile scores Shanghai Composite / gold against the 2015 peak, with
// annualised index volatility as secondary signal.
func ChinaProfile() *Profile {
	return &Profile{
		Market:         "cn",
		Name:           "A股",
		RatioLabel:     "上证指数/黄金比率",
		HistoricalPeak: Reference{Name: "2015年股灾前", Ratio: 2.2},
		References: []Reference{
			{Name: "2007年大牛市顶峰", Ratio: 2.5},
			{Name: "2015年股灾前", Ratio: 2.2},
			{Name: "2008年金融危机后低点", Ratio: 0.8},
			{Name: "2020年疫情低点", Ratio: 1.2},
		},
		RatioRisk: ratioRiskBands("A股"),
		MaxPosition: StepTable{
			Steps: []Step{{90, 15}, {80, 13}, {70, 11}, {60, 9}, {50, 7}, {40, 5}},
			Floor: 3,
		},
		MeanPosition: meanPositionSteps,
		Deviation:    deviationSteps,
		Historical:   historicalSteps,
		Signal: SignalProfile{
			Kind: model.SignalVolatility,
			Steps: StepTable{
				Steps: []Step{{40, 20}, {35, 18}, {30, 16}, {25, 14}, {20, 12}, {18, 10}, {15, 8}, {12, 6}, {10, 4}},
				Floor: 2,
			},
			Breakdown: Template{
				HighAt: 14, MediumAt: 8,
				High:   "📊 市场波动率({signal}%)较高,情绪不稳定,占比{score}/20分",
				Medium: "📊 市场波动率({signal}%)中等,占比{score}/20分",
				Low:    "📊 市场波动率({signal}%)较低,相对平稳,占比{score}/20分",
			},
		},
		RatioBreakdown:     ratioTemplate(),
		DeviationBreakdown: deviationTemplate(),
		HistoricalBreakdown: Template{
			HighAt: 15, MediumAt: 8,
			High:   "📚 当前比率接近2015年或2007年泡沫水平,占比{score}/20分",
			Medium: "📚 当前比率高于历史平均水平,占比{score}/20分",
			Low:    "📚 当前比率低于历史泡沫水平,占比{score}/20分",
		},
		Tiers: scoreTiers("A股", [6]string{
			"🚨 强烈建议: 立即减仓至20-30%或清仓,保留现金等待机会。A股历史上多次出现快速上涨后的暴跌,当指数超过80时风险极高。",
			"⚠️ 建议: 减仓至30-40%,增加防御性资产配置。A股波动较大,建议设置止损位,避免追高。",
			"⚡ 建议: 保持50-60%仓位,停止加仓,密切关注政策和市场情绪变化。考虑获利了结部分高估值股票。",
			"💡 建议: 保持60-70%仓位,谨慎选股,关注业绩稳定的蓝筹股和价值股,避免题材炒作。",
			"✅ 建议: 保持70-80%正常仓位,可继续持有优质资产,但需分散投资,关注政策导向。",
			"🎯 建议: A股可能被低估,可考虑逐步加仓至80-90%。但仍需分批建仓,关注政策底和市场底的确认信号。",
		}),
	}
}

// DefaultProfiles returns the built-in markets keyed by Market.
func DefaultProfiles() map[string]*Profile {
	return map[string]*Profile{
		"us": USProfile(),
		"cn": ChinaProfile(),
	}
}
