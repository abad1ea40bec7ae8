package strategy

import "BubbleSentinel/internal/model"

// CompareReferences measures the current ratio against each named reference level.
func CompareReferences(ratio float64, refs []Reference) []model.ReferenceComparison {
	out := make([]model.ReferenceComparison, 0, len(refs))
	for _, ref := range refs {
		if ref.Ratio <= 0 {
			continue
		}
		out = append(out, model.ReferenceComparison{
			Name:         ref.Name,
			Ratio:        ref.Ratio,
			DeviationPct: (ratio - ref.Ratio) / ref.Ratio * 100,
			Above:        ratio >= ref.Ratio,
		})
	}
	return out
}
