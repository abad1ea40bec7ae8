package strategy

import (
	"testing"

	"BubbleSentinel/internal/model"
)

func TestClassify_RatioZScoreBoundaries(t *testing.T) {
	bands := USProfile().RatioRisk
	tests := []struct {
		z     float64
		level string
	}{
		{3.5, "high"},
		{2.01, "high"},
		{2.0, "moderate"},
		{1.5, "moderate"},
		{1.0, "safe"},
		{0, "safe"},
		{-0.99, "safe"},
		{-1.0, "undervalued"},
		{-4, "undervalued"},
	}
	for _, tt := range tests {
		got := Classify(tt.z, bands)
		if got.Level != tt.level {
			t.Errorf("z=%.2f: expected %q, got %q", tt.z, tt.level, got.Level)
		}
	}
}

func TestClassify_VolatilityBoundaries(t *testing.T) {
	tests := []struct {
		vol      float64
		label    string
		severity model.Severity
	}{
		{45, "高波动", model.SeverityHigh},
		{30, "中等波动", model.SeverityElevated},
		{20.5, "中等波动", model.SeverityElevated},
		{20, "正常", model.SeverityNormal},
		{10, "低波动", model.SeverityFavorable},
		{3, "低波动", model.SeverityFavorable},
	}
	for _, tt := range tests {
		got := Classify(tt.vol, VolatilityBands)
		if got.Label != tt.label || got.Severity != tt.severity {
			t.Errorf("vol=%.1f: expected %s/%s, got %s/%s", tt.vol, tt.label, tt.severity, got.Label, got.Severity)
		}
	}
}

func TestClassify_SpreadTrendScalesWithStd(t *testing.T) {
	bands := SpreadTrendBands(0.2)
	if got := Classify(0.11, bands); got.Level != "widening" {
		t.Errorf("expected widening, got %s", got.Level)
	}
	if got := Classify(0.05, bands); got.Level != "rising" {
		t.Errorf("expected rising, got %s", got.Level)
	}
	if got := Classify(0, bands); got.Level != "normal" {
		t.Errorf("expected normal, got %s", got.Level)
	}
	if got := Classify(-0.05, bands); got.Level != "narrowing" {
		t.Errorf("expected narrowing, got %s", got.Level)
	}
}

func TestClassify_Monotonic(t *testing.T) {
	tables := map[string]BandTable{
		"ratio":      ChinaProfile().RatioRisk,
		"volatility": VolatilityBands,
		"spread":     SpreadTrendBands(0.3),
	}
	for name, table := range tables {
		prev := -1
		for v := -5.0; v <= 60; v += 0.01 {
			rank := Classify(v, table).Severity.Rank()
			if rank < prev {
				t.Fatalf("%s: severity decreased at %.2f", name, v)
			}
			prev = rank
		}
	}
}

func TestClassifySpreadTrend_FlatHistoryIsNormal(t *testing.T) {
	for _, trend := range []float64{-0.5, 0, 0.5} {
		if got := ClassifySpreadTrend(trend, 0).Level; got != "normal" {
			t.Errorf("trend %.1f with zero std: got %s, want normal", trend, got)
		}
	}
	if got := ClassifySpreadTrend(0.2, 0.2).Level; got != "widening" {
		t.Errorf("got %s, want widening", got)
	}
}
