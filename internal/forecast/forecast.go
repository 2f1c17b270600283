// Package forecast derives short-horizon trend, confidence and rumour
// narratives from a machine's recent popularity history.
package forecast

import (
	"math"
	"strings"

	"gonum.org/v1/gonum/stat"

	"slot-parlor/internal/domain"
	"slot-parlor/internal/rng"
	"slot-parlor/internal/scoring"
)

const tolerance = 1e-9

// Placeholder substituted with the machine's IP name in templates.
const Placeholder = "{ip_name}"

// Default forecast parameters.
const (
	DefaultWindow          = 3
	DefaultTrendThreshold  = 0.1
	DefaultConfidenceScale = 2.0
	DefaultMaxConfidence   = 0.9
	DefaultDigestThreshold = 0.5 // |last delta| above this makes the weekly digest
	DefaultBadgeThreshold  = 0.3 // confidence above this shows a list badge
)

// Templates are the narrative pools keyed by trend.
type Templates struct {
	Rising  []string `toml:"rising"`
	Falling []string `toml:"falling"`
	Stable  []string `toml:"stable"`
}

// DefaultTemplates returns the stock rumour texts.
func DefaultTemplates() Templates {
	return Templates{
		Rising: []string{
			"噂では{ip_name}が面白いらしい",
			"{ip_name}の評判が上がっている",
			"{ip_name}が話題になっている",
			"{ip_name}の人気が急上昇中",
			"{ip_name}が注目を集めている",
			"{ip_name}の口コミが広がっている",
			"{ip_name}がSNSで話題になっている",
		},
		Falling: []string{
			"{ip_name}の話題が減ってきた",
			"{ip_name}の評判が下がっている",
			"{ip_name}の人気が落ち着いてきた",
			"{ip_name}の話題性が薄れてきた",
			"{ip_name}の新鮮味が薄れてきた",
			"{ip_name}の評判が悪くなっている",
		},
		Stable: []string{
			"{ip_name}の人気は安定している",
			"{ip_name}の評判は変わらない",
			"{ip_name}は相変わらず人気がある",
			"{ip_name}の話題性は維持されている",
		},
	}
}

// Pool returns the templates for a trend.
func (t Templates) Pool(trend domain.Trend) []string {
	switch trend {
	case domain.TrendRising:
		return t.Rising
	case domain.TrendFalling:
		return t.Falling
	default:
		return t.Stable
	}
}

// Config holds the forecast parameters.
type Config struct {
	Window          int       `toml:"window"`
	TrendThreshold  float64   `toml:"trend_threshold"`
	ConfidenceScale float64   `toml:"confidence_scale"`
	MaxConfidence   float64   `toml:"max_confidence"`
	DigestThreshold float64   `toml:"digest_threshold"`
	BadgeThreshold  float64   `toml:"badge_threshold"`
	Templates       Templates `toml:"templates"`
}

// DefaultConfig returns the stock forecast parameters.
func DefaultConfig() Config {
	return Config{
		Window:          DefaultWindow,
		TrendThreshold:  DefaultTrendThreshold,
		ConfidenceScale: DefaultConfidenceScale,
		MaxConfidence:   DefaultMaxConfidence,
		DigestThreshold: DefaultDigestThreshold,
		BadgeThreshold:  DefaultBadgeThreshold,
		Templates:       DefaultTemplates(),
	}
}

// Generator builds forecasts and narratives for one configuration.
type Generator struct {
	cfg Config
}

// NewGenerator creates a Generator.
func NewGenerator(cfg Config) *Generator {
	return &Generator{cfg: cfg}
}

var defaultGenerator = NewGenerator(DefaultConfig())

// Forecast summarises history with the default configuration.
func Forecast(history []*domain.HistoryEntry) *domain.ForecastResult {
	return defaultGenerator.Forecast(history)
}

// Forecast returns nil for fewer than two entries. Otherwise it averages the
// deltas of the last Window entries: the trend is rising above
// TrendThreshold, falling below its negative, else stable; confidence is
// min(MaxConfidence, |avg| * ConfidenceScale). Narrative is left empty.
func (g *Generator) Forecast(history []*domain.HistoryEntry) *domain.ForecastResult {
	if len(history) < 2 {
		return nil
	}

	window := history
	if g.cfg.Window > 0 && len(window) > g.cfg.Window {
		window = window[len(window)-g.cfg.Window:]
	}

	deltas := make([]float64, len(window))
	for i, e := range window {
		deltas[i] = e.Delta
	}
	avg := stat.Mean(deltas, nil)

	// Deltas carry one decimal; the tolerance keeps an exact 0.1 mean stable.
	trend := domain.TrendStable
	switch {
	case avg > g.cfg.TrendThreshold+tolerance:
		trend = domain.TrendRising
	case avg < -g.cfg.TrendThreshold-tolerance:
		trend = domain.TrendFalling
	}

	last := history[len(history)-1]
	return &domain.ForecastResult{
		MachineID:      last.MachineID,
		Week:           last.Week,
		PredictedDelta: scoring.Round1(avg),
		Trend:          trend,
		Confidence:     math.Min(g.cfg.MaxConfidence, math.Abs(avg)*g.cfg.ConfidenceScale),
	}
}

// Narrate picks a template for the trend uniformly from src and substitutes
// the machine's IP name. Consumes one draw; an empty pool yields "" without drawing.
func (g *Generator) Narrate(m *domain.Machine, trend domain.Trend, src rng.Source) string {
	pool := g.cfg.Templates.Pool(trend)
	if len(pool) == 0 {
		return ""
	}

	idx := int(src.Float64() * float64(len(pool)))
	if idx >= len(pool) {
		idx = len(pool) - 1
	}
	return strings.ReplaceAll(pool[idx], Placeholder, m.IPName())
}

// DigestWorthy reports whether a weekly change is large enough for the digest.
func (g *Generator) DigestWorthy(lastDelta float64) bool {
	return math.Abs(lastDelta) > g.cfg.DigestThreshold
}

// BadgeWorthy reports whether a forecast is confident enough for a list badge.
func (g *Generator) BadgeWorthy(confidence float64) bool {
	return confidence > g.cfg.BadgeThreshold
}
