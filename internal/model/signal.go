package model

// Severity is the symbolic risk tag handed to the presentation layer.
// Values are ordered from least to most severe.
type Severity string

const (
	SeverityFavorable Severity = "favorable"
	SeverityNormal    Severity = "normal"
	SeverityNotice    Severity = "notice"
	SeverityElevated  Severity = "elevated"
	SeverityHigh      Severity = "high"
	SeverityCritical  Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityFavorable: 0,
	SeverityNormal:    1,
	SeverityNotice:    2,
	SeverityElevated:  3,
	SeverityHigh:      4,
	SeverityCritical:  5,
}

// Rank orders severities; unknown tags rank below SeverityFavorable.
func (s Severity) Rank() int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return -1
}

// Valid reports whether s is one of the known tags.
func (s Severity) Valid() bool {
	_, ok := severityRank[s]
	return ok
}

// RiskAssessment is the discrete tier a numeric signal falls into.
type RiskAssessment struct {
	Level       string
	Label       string
	Severity    Severity
	Description string
}

// BubbleComponents are the four pre-clamped sub-scores of the bubble index.
type BubbleComponents struct {
	Ratio      int // 0-30
	Deviation  int // 0-30
	Secondary  int // 0-20
	Historical int // 0-20
}

// Sum adds the four components.
func (c BubbleComponents) Sum() int {
	return c.Ratio + c.Deviation + c.Secondary + c.Historical
}

// BubbleIndexResult is the composite 0-100 bubble score with its explanation.
type BubbleIndexResult struct {
	Market         string
	TotalScore     int
	Assessment     RiskAssessment
	Components     BubbleComponents
	Breakdown      []string
	Recommendation string
}
