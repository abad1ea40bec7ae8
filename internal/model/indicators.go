package model

// Statistics describes a ratio series against its latest observation.
type Statistics struct {
	Mean   float64
	Std    float64
	Max    float64
	Min    float64
	ZScore float64
	Count  int
	Latest RatioObservation
}

// Volatility holds annualised return volatility in percent.
type Volatility struct {
	Annualized float64
	Trailing   float64 // over the last Window returns
	Trend      float64 // Trailing - Annualized
	Returns    int
	Window     int
}

// RollingPoint is one trailing-window mean/std sample with mean ± k·std bands.
type RollingPoint struct {
	Date  string  `json:"date"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Upper float64 `json:"upper"`
	Lower float64 `json:"lower"`
}

// VolatilityPoint is one trailing-window annualised volatility sample.
type VolatilityPoint struct {
	Date       string  `json:"date"`
	Volatility float64 `json:"volatility"`
}
