package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"slot-parlor/internal/drift"
	"slot-parlor/internal/forecast"
	"slot-parlor/internal/pricing"
	"slot-parlor/internal/scoring"
	"slot-parlor/internal/session"
	"slot-parlor/internal/storage/memory"
)

// GameConfig is the game tuning, as laid out in the TOML file.
// Omitted keys keep their defaults.
type GameConfig struct {
	InitialMoney    int64           `toml:"initial_money"`
	MaxWeeks        int             `toml:"max_weeks"`
	HistoryCapacity int             `toml:"history_capacity"`
	Weights         scoring.Weights `toml:"popularity_weights"`
	Pricing         pricing.Config  `toml:"pricing"`
	Drift           drift.Config    `toml:"popularity_change"`
	Forecast        forecast.Config `toml:"forecast"`
}

// DefaultGameConfig returns the stock tuning.
func DefaultGameConfig() GameConfig {
	return GameConfig{
		InitialMoney:    session.DefaultInitialMoney,
		MaxWeeks:        session.DefaultMaxWeeks,
		HistoryCapacity: memory.DefaultHistoryCapacity,
		Weights:         scoring.DefaultWeights(),
		Pricing:         pricing.DefaultConfig(),
		Drift:           drift.DefaultConfig(),
		Forecast:        forecast.DefaultConfig(),
	}
}

// LoadGameConfig decodes a TOML file over the defaults. An empty path
// returns the defaults. Unknown keys are rejected.
func LoadGameConfig(path string) (*GameConfig, error) {
	cfg := DefaultGameConfig()
	if path == "" {
		return &cfg, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open game config: %w", err)
	}
	defer file.Close()

	dec := toml.NewDecoder(file).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, strings.TrimSpace(strict.String()))
		}
		return nil, fmt.Errorf("decode game config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects tuning that would break score, price or wallet invariants.
func (g *GameConfig) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	check(g.InitialMoney >= 0, "initial_money must be >= 0")
	check(g.MaxWeeks >= 1, "max_weeks must be >= 1")
	check(g.HistoryCapacity >= 1, "history_capacity must be >= 1")

	w := g.Weights
	check(w.Spec >= 0 && w.IP >= 0 && w.Recency >= 0, "popularity_weights must be >= 0")
	check(w.Spec+w.IP+w.Recency <= 1+1e-9, "popularity_weights must sum to <= 1")
	check(w.RecencyDecay > 0, "popularity_weights.recency_decay_days must be > 0")

	p := g.Pricing
	check(p.HighMultiplier > 0 && p.MediumMultiplier > 0 && p.LowMultiplier > 0, "pricing multipliers must be > 0")
	check(p.RandomVariance >= 0 && p.RandomVariance < 2, "pricing.random_variance must be in [0,2)")
	check(p.IslandSize >= 1, "pricing.machines_per_island must be >= 1")
	check(p.IslandDiscount > 0 && p.IslandDiscount <= 1, "pricing.island_discount must be in (0,1]")
	check(p.SaleMultiplier > 0, "pricing.sale_multiplier must be > 0")
	check(p.MinSalePrice >= 0, "pricing.min_sale_price must be >= 0")

	d := g.Drift
	check(d.MaxChange > 0 && d.MaxChange <= scoring.MaxScore, "popularity_change.max_change_per_week must be in (0,10]")
	check(d.ReleaseHorizonDays >= 1, "popularity_change.release_horizon_days must be >= 1")

	f := g.Forecast
	check(f.Window >= 1, "forecast.window must be >= 1")
	check(f.TrendThreshold >= 0, "forecast.trend_threshold must be >= 0")
	check(f.MaxConfidence >= 0 && f.MaxConfidence <= 1, "forecast.max_confidence must be in [0,1]")
	check(len(f.Templates.Rising) > 0 && len(f.Templates.Falling) > 0 && len(f.Templates.Stable) > 0,
		"forecast.templates pools must not be empty")

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// Tuning converts the file layout to session tuning.
func (g *GameConfig) Tuning() session.Tuning {
	return session.Tuning{
		InitialMoney:    g.InitialMoney,
		MaxWeeks:        g.MaxWeeks,
		HistoryCapacity: g.HistoryCapacity,
		Weights:         g.Weights,
		Pricing:         g.Pricing,
		Drift:           g.Drift,
		Forecast:        g.Forecast,
	}
}
