// Package drift implements the weekly stochastic popularity update.
package drift

import (
	"math"

	"slot-parlor/internal/domain"
	"slot-parlor/internal/rng"
	"slot-parlor/internal/scoring"
)

// Default drift coefficients.
const (
	DefaultMaxChange          = 1.0
	DefaultIPInfluence        = 0.4
	DefaultSpecInfluence      = 0.3
	DefaultReleaseInfluence   = 0.3
	DefaultReleaseHorizonDays = 365

	neutralScore   = 5.0
	influenceScale = 0.1
	epsilon        = 1e-9
)

// Config holds the drift coefficients.
type Config struct {
	MaxChange          float64 `toml:"max_change_per_week"`
	GradualChange      bool    `toml:"gradual_change"`
	IPInfluence        float64 `toml:"ip_influence"`
	SpecInfluence      float64 `toml:"spec_influence"`
	ReleaseInfluence   float64 `toml:"release_influence"`
	ReleaseHorizonDays int     `toml:"release_horizon_days"`
}

// DefaultConfig returns the stock drift coefficients.
func DefaultConfig() Config {
	return Config{
		MaxChange:          DefaultMaxChange,
		GradualChange:      true,
		IPInfluence:        DefaultIPInfluence,
		SpecInfluence:      DefaultSpecInfluence,
		ReleaseInfluence:   DefaultReleaseInfluence,
		ReleaseHorizonDays: DefaultReleaseHorizonDays,
	}
}

// Result is the outcome of one weekly drift step.
type Result struct {
	MachineID     int64
	Week          int
	PreviousScore float64
	NewScore      float64 // in [0,10], 1 decimal
	Delta         float64 // NewScore - PreviousScore, 1 decimal
	Factors       domain.FactorBreakdown
}

// Entry converts the result to a history entry.
func (r Result) Entry() *domain.HistoryEntry {
	return &domain.HistoryEntry{
		MachineID: r.MachineID,
		Week:      r.Week,
		Score:     r.NewScore,
		Delta:     r.Delta,
		Factors:   r.Factors,
	}
}

// Compute performs one drift step without touching the machine or any store.
// Consumes exactly one draw from src.
//
// Steps:
//  1. base = (U-0.5) * 2 * MaxChange
//  2. ip = (IPScore-5) * IPInfluence * 0.1
//  3. spec = (SpecScore-5) * SpecInfluence * 0.1
//  4. release = max(0, (horizon-days)/horizon) * ReleaseInfluence
//  5. raw = sum, clamped to [-MaxChange, MaxChange] when GradualChange
//  6. new = Round1(clamp(prev+raw, 0, 10))
//
// Reported factors are rounded to 1 decimal. Delta is the realized change, so
// it reflects the [0,10] clamp; Adjustment absorbs clamping and rounding so
// that the factors sum to Delta.
func Compute(cfg Config, m *domain.Machine, week int, prev float64, daysSinceRelease int, src rng.Source) Result {
	// 1. Symmetric random walk
	base := (src.Float64() - 0.5) * 2 * cfg.MaxChange

	// 2-3. Pull from fixed sub-scores
	ip := (m.IPScore - neutralScore) * cfg.IPInfluence * influenceScale
	spec := (m.SpecScore - neutralScore) * cfg.SpecInfluence * influenceScale

	// 4. Positive-only push for young machines
	var release float64
	if cfg.ReleaseHorizonDays > 0 {
		horizon := float64(cfg.ReleaseHorizonDays)
		release = math.Max(0, (horizon-float64(daysSinceRelease))/horizon) * cfg.ReleaseInfluence
	}

	// 5. Gradual-change guard
	raw := base + ip + spec + release
	if cfg.GradualChange {
		raw = scoring.Clamp(raw, -cfg.MaxChange, cfg.MaxChange)
	}

	// 6. Apply and bound
	newScore := scoring.Round1(scoring.Clamp(prev+raw, scoring.MinScore, scoring.MaxScore))
	if cfg.GradualChange {
		// Rounding can push an off-grid previous score past the guard.
		for newScore-prev > cfg.MaxChange+epsilon {
			newScore = scoring.Round1(newScore - 0.1)
		}
		for prev-newScore > cfg.MaxChange+epsilon {
			newScore = scoring.Round1(newScore + 0.1)
		}
	}
	delta := scoring.Round1(newScore - prev)

	factors := domain.FactorBreakdown{
		Base:    scoring.Round1(base),
		IP:      scoring.Round1(ip),
		Spec:    scoring.Round1(spec),
		Release: scoring.Round1(release),
	}
	factors.Adjustment = scoring.Round1(delta - (factors.Base + factors.IP + factors.Spec + factors.Release))

	return Result{
		MachineID:     m.ID,
		Week:          week,
		PreviousScore: prev,
		NewScore:      newScore,
		Delta:         delta,
		Factors:       factors,
	}
}
