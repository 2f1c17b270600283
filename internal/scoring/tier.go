package scoring

import "slot-parlor/internal/domain"

// Band thresholds.
const (
	HighThreshold = 7.5
	LowThreshold  = 2.5
)

// Sub-tier thresholds, evaluated highest first.
var (
	highTierThresholds = [...]struct {
		min  float64
		tier domain.Tier
	}{
		{9.0, domain.TierHigh1},
		{8.5, domain.TierHigh2},
		{8.0, domain.TierHigh3},
		{7.5, domain.TierHigh4},
		{7.0, domain.TierHigh5},
	}

	// The low band only admits scores <= 2.5, so LOW_TIER_1 (>= 3.0) can never
	// match. The highest-first order is kept as observed. Scores below 1.0 fall
	// through to LOW_TIER_5.
	lowTierThresholds = [...]struct {
		min  float64
		tier domain.Tier
	}{
		{3.0, domain.TierLow1},
		{2.5, domain.TierLow2},
		{2.0, domain.TierLow3},
		{1.5, domain.TierLow4},
		{1.0, domain.TierLow5},
	}
)

// Classify maps a score to its popularity tier. Boundaries are inclusive (>=).
func Classify(score float64) domain.Tier {
	switch {
	case score >= HighThreshold:
		for _, t := range highTierThresholds {
			if score >= t.min {
				return t.tier
			}
		}
		// unreachable: the high band starts at 7.5
		return domain.TierHigh5
	case score <= LowThreshold:
		for _, t := range lowTierThresholds {
			if score >= t.min {
				return t.tier
			}
		}
		return domain.TierLow5
	default:
		return domain.TierMedium
	}
}

// BandOf maps a score to its coarse band without going through sub-tiers.
func BandOf(score float64) domain.Band {
	switch {
	case score >= HighThreshold:
		return domain.BandHigh
	case score <= LowThreshold:
		return domain.BandLow
	default:
		return domain.BandMedium
	}
}

// Rescore sets a machine's score, clamped to [0,10], and recomputes its tier.
// This is the only way popularity changes after load.
func Rescore(m *domain.Machine, score float64) {
	m.PopularityScore = Clamp(score, MinScore, MaxScore)
	m.PopularityTier = Classify(m.PopularityScore)
}
