package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slot-parlor/internal/scoring"
	"slot-parlor/internal/session"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"PARLOR_CATALOG_PATH", "PARLOR_PORT", "PARLOR_SEED", "PARLOR_METRICS", "PARLOR_CORS_ORIGINS",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/machines.csv", cfg.CatalogPath)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, uint64(0), cfg.Seed)
	assert.True(t, cfg.Metrics)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PARLOR_CATALOG_PATH", "/srv/parlor/list.csv")
	t.Setenv("PARLOR_STRICT_CSV", "true")
	t.Setenv("PARLOR_PORT", "9090")
	t.Setenv("PARLOR_SEED", "42")
	t.Setenv("PARLOR_AUTO_ADVANCE", "@every 1m")
	t.Setenv("PARLOR_METRICS", "false")
	t.Setenv("PARLOR_CORS_ORIGINS", "http://localhost:3000, https://parlor.example ,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/srv/parlor/list.csv", cfg.CatalogPath)
	assert.True(t, cfg.StrictCSV)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, uint64(42), cfg.Seed)
	assert.Equal(t, "@every 1m", cfg.AutoAdvance)
	assert.False(t, cfg.Metrics)
	assert.Equal(t, []string{"http://localhost:3000", "https://parlor.example"}, cfg.CORSOrigins)
}

func TestLoad_MalformedNumbersFallBack(t *testing.T) {
	t.Setenv("PARLOR_PORT", "eighty")
	t.Setenv("PARLOR_SEED", "-1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, uint64(0), cfg.Seed)
}

func TestLoad_PortOutOfRange(t *testing.T) {
	t.Setenv("PARLOR_PORT", "70000")

	_, err := Load()
	assert.True(t, errors.Is(err, ErrInvalidConfig), "got %v", err)
}

func writeTOML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "game.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadGameConfig_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := LoadGameConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultGameConfig(), *cfg)
	assert.Equal(t, int64(10_000_000), cfg.InitialMoney)
	assert.Equal(t, 260, cfg.MaxWeeks)
}

func TestLoadGameConfig_OverridesKeepOtherDefaults(t *testing.T) {
	path := writeTOML(t, `
initial_money = 5000000
max_weeks = 52

[pricing]
island_discount = 0.9

[popularity_change]
max_change_per_week = 0.5
`)

	cfg, err := LoadGameConfig(path)
	require.NoError(t, err)

	defaults := DefaultGameConfig()
	assert.Equal(t, int64(5_000_000), cfg.InitialMoney)
	assert.Equal(t, 52, cfg.MaxWeeks)
	assert.Equal(t, 0.9, cfg.Pricing.IslandDiscount)
	assert.Equal(t, defaults.Pricing.IslandSize, cfg.Pricing.IslandSize)
	assert.Equal(t, 0.5, cfg.Drift.MaxChange)
	assert.Equal(t, defaults.Weights, cfg.Weights)
	assert.Equal(t, defaults.Forecast, cfg.Forecast)
}

func TestLoadGameConfig_UnknownKey(t *testing.T) {
	path := writeTOML(t, `
initial_money = 5000000
starting_cash = 1
`)

	_, err := LoadGameConfig(path)
	assert.True(t, errors.Is(err, ErrInvalidConfig), "got %v", err)
}

func TestLoadGameConfig_MissingFile(t *testing.T) {
	_, err := LoadGameConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidConfig))
}

func TestGameConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*GameConfig)
	}{
		{"negative money", func(g *GameConfig) { g.InitialMoney = -1 }},
		{"zero weeks", func(g *GameConfig) { g.MaxWeeks = 0 }},
		{"zero history", func(g *GameConfig) { g.HistoryCapacity = 0 }},
		{"weights over one", func(g *GameConfig) { g.Weights = scoring.Weights{Spec: 0.5, IP: 0.5, Recency: 0.5, RecencyDecay: 30} }},
		{"zero decay", func(g *GameConfig) { g.Weights.RecencyDecay = 0 }},
		{"discount over one", func(g *GameConfig) { g.Pricing.IslandDiscount = 1.2 }},
		{"zero island", func(g *GameConfig) { g.Pricing.IslandSize = 0 }},
		{"zero drift cap", func(g *GameConfig) { g.Drift.MaxChange = 0 }},
		{"empty templates", func(g *GameConfig) { g.Forecast.Templates.Stable = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultGameConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			assert.True(t, errors.Is(err, ErrInvalidConfig), "got %v", err)
		})
	}

	cfg := DefaultGameConfig()
	assert.NoError(t, cfg.Validate())
}

func TestGameConfig_Tuning(t *testing.T) {
	cfg := DefaultGameConfig()
	assert.Equal(t, session.DefaultTuning(), cfg.Tuning())

	cfg.MaxWeeks = 10
	assert.Equal(t, 10, cfg.Tuning().MaxWeeks)
}
