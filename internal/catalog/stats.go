package catalog

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"slot-parlor/internal/domain"
	"slot-parlor/internal/scoring"
)

// Stats summarises the catalog.
type Stats struct {
	Count             int
	AveragePrice      int64   // mean base price, rounded to the yen
	AverageScore      float64 // mean popularity, rounded to 1 decimal
	TierDistribution  map[domain.Tier]int
	MakerDistribution map[string]int
	Makers            []string // sorted
	IPTypes           []string // sorted, empty IP types omitted
}

// Stats computes catalog-wide statistics.
func (c *Catalog) Stats() Stats {
	s := Stats{
		Count:             len(c.machines),
		TierDistribution:  make(map[domain.Tier]int),
		MakerDistribution: make(map[string]int),
	}
	if s.Count == 0 {
		return s
	}

	prices := make([]float64, len(c.machines))
	scores := make([]float64, len(c.machines))
	ipTypes := make(map[string]struct{})
	for i, m := range c.machines {
		prices[i] = float64(m.BasePrice)
		scores[i] = m.PopularityScore
		s.TierDistribution[m.PopularityTier]++
		s.MakerDistribution[m.Maker]++
		if m.IPType != "" {
			ipTypes[m.IPType] = struct{}{}
		}
	}

	s.AveragePrice = int64(math.Round(stat.Mean(prices, nil)))
	s.AverageScore = scoring.Round1(stat.Mean(scores, nil))

	for maker := range s.MakerDistribution {
		s.Makers = append(s.Makers, maker)
	}
	sort.Strings(s.Makers)
	for ipType := range ipTypes {
		s.IPTypes = append(s.IPTypes, ipType)
	}
	sort.Strings(s.IPTypes)

	return s
}

// Makers returns the sorted list of distinct makers.
func (c *Catalog) Makers() []string {
	makers := make([]string, 0, len(c.byMaker))
	for maker := range c.byMaker {
		makers = append(makers, maker)
	}
	sort.Strings(makers)
	return makers
}
