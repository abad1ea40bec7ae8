package strategy

import (
	"fmt"
	"math"
	"strings"

	"BubbleSentinel/internal/model"
)

// MetricRequest carries the inputs of the bubble index. Every field is required;
// nil marks a parameter the caller did not supply.
type MetricRequest struct {
	Ratio  *float64
	ZScore *float64
	Mean   *float64
	Max    *float64
	Signal *float64 // spread trend or volatility, per the market profile
}

// NewMetricRequest builds a complete request from computed values.
func NewMetricRequest(ratio, zScore, mean, max, signal float64) MetricRequest {
	return MetricRequest{Ratio: &ratio, ZScore: &zScore, Mean: &mean, Max: &max, Signal: &signal}
}

// Validate rejects missing or non-finite parameters and non-positive divisors.
func (r MetricRequest) Validate() error {
	fields := []struct {
		name     string
		v        *float64
		positive bool
	}{
		{"ratio", r.Ratio, true},
		{"zScore", r.ZScore, false},
		{"mean", r.Mean, true},
		{"max", r.Max, true},
		{"signal", r.Signal, false},
	}
	for _, f := range fields {
		if f.v == nil {
			return &model.ValidationError{Param: f.name, Reason: "is required"}
		}
		if math.IsNaN(*f.v) || math.IsInf(*f.v, 0) {
			return &model.ValidationError{Param: f.name, Reason: "must be a finite number"}
		}
		if f.positive && *f.v <= 0 {
			return &model.ValidationError{Param: f.name, Reason: "must be positive"}
		}
	}
	return nil
}

// Scorer computes the bubble index for one market profile.
type Scorer struct {
	Profile *Profile
}

// NewScorer validates the profile and returns a Scorer for it.
func NewScorer(p *Profile) (*Scorer, error) {
	if p == nil {
		return nil, fmt.Errorf("nil profile")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{Profile: p}, nil
}

// Score combines ratio extremity, z-score deviation, the secondary signal and
// proximity to the historical peak into a 0-100 index.
func (s *Scorer) Score(req MetricRequest) (*model.BubbleIndexResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	p := s.Profile
	ratio, zScore, mean, max, signal := *req.Ratio, *req.ZScore, *req.Mean, *req.Max, *req.Signal

	components := model.BubbleComponents{
		Ratio:      s.scoreRatio(ratio, mean, max),
		Deviation:  clamp(p.Deviation.Score(zScore), 0, MaxDeviationScore),
		Secondary:  clamp(p.Signal.Steps.Score(signal), 0, MaxSecondaryScore),
		Historical: clamp(p.Historical.Score(ratio/p.HistoricalPeak.Ratio*100), 0, MaxHistoricalScore),
	}
	total := clamp(components.Sum(), 0, 100)
	tier := p.tierFor(total)

	return &model.BubbleIndexResult{
		Market:         p.Market,
		TotalScore:     total,
		Assessment:     tier.Assessment,
		Components:     components,
		Breakdown:      s.breakdown(components, ratio, zScore, signal),
		Recommendation: tier.Recommendation,
	}, nil
}

// scoreRatio adds the position against the historical max and against the
// historical mean, each worth up to 15 points.
func (s *Scorer) scoreRatio(ratio, mean, max float64) int {
	p := s.Profile
	vsMax := clamp(p.MaxPosition.Score(ratio/max*100), 0, MaxPositionScore)
	vsMean := clamp(p.MeanPosition.Score(ratio/mean*100), 0, MaxPositionScore)
	return clamp(vsMax+vsMean, 0, MaxRatioScore)
}

func (s *Scorer) breakdown(c model.BubbleComponents, ratio, zScore, signal float64) []string {
	p := s.Profile
	r := strings.NewReplacer(
		"{label}", p.RatioLabel,
		"{ratio}", fmt.Sprintf("%.3f", ratio),
		"{zscore}", fmt.Sprintf("%.2f", zScore),
		"{signal}", fmt.Sprintf("%.2f", signal),
		"{peak}", p.HistoricalPeak.Name,
	)
	return []string{
		p.RatioBreakdown.render(c.Ratio, r),
		p.DeviationBreakdown.render(c.Deviation, r),
		p.Signal.Breakdown.render(c.Secondary, r),
		p.HistoricalBreakdown.render(c.Historical, r),
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
