// Package scoring computes composite popularity scores and popularity tiers.
// It is the only place the score and tier formulas live.
package scoring

import (
	"math"
	"time"
)

// Score bounds.
const (
	MinScore = 0.0
	MaxScore = 10.0
)

// Default sub-score weights and recency decay.
const (
	DefaultSpecWeight    = 0.4
	DefaultIPWeight      = 0.3
	DefaultRecencyWeight = 0.3
	DefaultRecencyDecay  = 30.0 // days per recency point lost
)

// NeutralSubScore stands in for a missing (zero) spec or IP sub-score in the
// composite. The machine keeps its raw value.
const NeutralSubScore = 5.0

// SubScore returns v, or NeutralSubScore when v is missing.
func SubScore(v float64) float64 {
	if v == 0 {
		return NeutralSubScore
	}
	return v
}

// Weights holds the composite score weights.
type Weights struct {
	Spec         float64 `toml:"spec"`
	IP           float64 `toml:"ip"`
	Recency      float64 `toml:"release_date"`
	RecencyDecay float64 `toml:"recency_decay_days"`
}

// DefaultWeights returns the stock weighting.
func DefaultWeights() Weights {
	return Weights{
		Spec:         DefaultSpecWeight,
		IP:           DefaultIPWeight,
		Recency:      DefaultRecencyWeight,
		RecencyDecay: DefaultRecencyDecay,
	}
}

// Breakdown is the weighted contribution of each sub-score to a composite score.
type Breakdown struct {
	Spec         float64 // weighted spec contribution
	IP           float64 // weighted IP contribution
	Recency      float64 // weighted recency contribution
	RecencyScore float64 // raw recency score in [0,10]
	DaysSince    int
	Total        float64 // rounded composite
}

// ComputeScore returns the composite popularity score using the default weights.
func ComputeScore(specScore, ipScore float64, releaseDate, now time.Time) float64 {
	return DefaultWeights().Compute(specScore, ipScore, releaseDate, now)
}

// Compute returns the composite popularity score in [0,10], rounded to 1 decimal.
func (w Weights) Compute(specScore, ipScore float64, releaseDate, now time.Time) float64 {
	return w.Breakdown(specScore, ipScore, releaseDate, now).Total
}

// Breakdown returns the weighted parts of the composite score.
func (w Weights) Breakdown(specScore, ipScore float64, releaseDate, now time.Time) Breakdown {
	days := DaysSince(releaseDate, now)
	recency := w.recencyScore(days)

	b := Breakdown{
		Spec:         specScore * w.Spec,
		IP:           ipScore * w.IP,
		Recency:      recency * w.Recency,
		RecencyScore: recency,
		DaysSince:    days,
	}
	b.Total = Clamp(Round1(b.Spec+b.IP+b.Recency), MinScore, MaxScore)
	return b
}

// RecencyScore returns 10 minus one point per 30 days since release, clamped to [0,10].
func RecencyScore(releaseDate, now time.Time) float64 {
	return DefaultWeights().recencyScore(DaysSince(releaseDate, now))
}

func (w Weights) recencyScore(days int) float64 {
	decay := w.RecencyDecay
	if decay <= 0 {
		decay = DefaultRecencyDecay
	}
	return Clamp(MaxScore-float64(days)/decay, MinScore, MaxScore)
}

// DaysSince returns whole days elapsed from t to now, floored.
// Negative for dates in the future.
func DaysSince(t, now time.Time) int {
	return int(math.Floor(now.Sub(t).Hours() / 24))
}

// Round1 rounds half-up to one decimal place.
func Round1(x float64) float64 {
	return math.Floor(x*10+0.5) / 10
}

// Clamp bounds x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
