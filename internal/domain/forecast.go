package domain

// Trend is the short-horizon direction of a machine's popularity.
type Trend string

// Trend values.
const (
	TrendRising  Trend = "rising"
	TrendFalling Trend = "falling"
	TrendStable  Trend = "stable"
)

// ForecastResult summarises recent history. Derived, never stored.
type ForecastResult struct {
	MachineID      int64
	Week           int     // week of the latest entry the forecast is based on
	PredictedDelta float64 // mean of recent deltas, rounded to 1 decimal
	Trend          Trend
	Confidence     float64 // in [0, 0.9]
	Narrative      string  // templated rumour text, empty until materialized
}
