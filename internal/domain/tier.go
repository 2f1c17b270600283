package domain

// Tier is a discrete popularity bucket derived from the popularity score.
type Tier string

// Popularity tiers, highest first.
const (
	TierHigh1  Tier = "HIGH_TIER_1"
	TierHigh2  Tier = "HIGH_TIER_2"
	TierHigh3  Tier = "HIGH_TIER_3"
	TierHigh4  Tier = "HIGH_TIER_4"
	TierHigh5  Tier = "HIGH_TIER_5"
	TierMedium Tier = "MEDIUM"
	TierLow1   Tier = "LOW_TIER_1"
	TierLow2   Tier = "LOW_TIER_2"
	TierLow3   Tier = "LOW_TIER_3"
	TierLow4   Tier = "LOW_TIER_4"
	TierLow5   Tier = "LOW_TIER_5"
)

// AllTiers lists every tier, highest first.
var AllTiers = []Tier{
	TierHigh1, TierHigh2, TierHigh3, TierHigh4, TierHigh5,
	TierMedium,
	TierLow1, TierLow2, TierLow3, TierLow4, TierLow5,
}

// Band is the coarse high/medium/low grouping of tiers.
type Band string

// Popularity bands.
const (
	BandHigh   Band = "high"
	BandMedium Band = "medium"
	BandLow    Band = "low"
)

// Band returns the coarse band a tier belongs to.
func (t Tier) Band() Band {
	switch t {
	case TierHigh1, TierHigh2, TierHigh3, TierHigh4, TierHigh5:
		return BandHigh
	case TierLow1, TierLow2, TierLow3, TierLow4, TierLow5:
		return BandLow
	default:
		return BandMedium
	}
}

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	for _, known := range AllTiers {
		if t == known {
			return true
		}
	}
	return false
}
