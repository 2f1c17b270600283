package catalog

import (
	"sort"
	"strings"
	"time"

	"github.com/sahilm/fuzzy"

	"slot-parlor/internal/domain"
	"slot-parlor/internal/scoring"
)

// All returns every machine in ID order.
func (c *Catalog) All() []*domain.Machine {
	return cloneAll(c.machines)
}

// Get returns a machine by ID. Absent IDs yield (nil, false).
func (c *Catalog) Get(id int64) (*domain.Machine, bool) {
	m, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	return m.Clone(), true
}

// Search matches q case-insensitively as a substring of name, maker, IP type
// or description. An empty query returns every machine.
func (c *Catalog) Search(q string) []*domain.Machine {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return c.All()
	}

	var out []*domain.Machine
	for _, m := range c.machines {
		if strings.Contains(strings.ToLower(m.Name), q) ||
			strings.Contains(strings.ToLower(m.Maker), q) ||
			strings.Contains(strings.ToLower(m.IPType), q) ||
			strings.Contains(strings.ToLower(m.Description), q) {
			out = append(out, m.Clone())
		}
	}
	return out
}

// machineNames adapts machines to fuzzy.Source.
type machineNames []*domain.Machine

func (s machineNames) String(i int) string { return s[i].Name }
func (s machineNames) Len() int            { return len(s) }

// FuzzySearch ranks machines whose name fuzzily matches q, best match first.
// An empty query returns every machine in ID order.
func (c *Catalog) FuzzySearch(q string) []*domain.Machine {
	q = strings.TrimSpace(q)
	if q == "" {
		return c.All()
	}

	matches := fuzzy.FindFrom(q, machineNames(c.machines))
	out := make([]*domain.Machine, 0, len(matches))
	for _, match := range matches {
		out = append(out, c.machines[match.Index].Clone())
	}
	return out
}

// Filter returns machines matching both maker and tier. An empty maker or
// tier matches anything.
func (c *Catalog) Filter(maker string, tier domain.Tier) []*domain.Machine {
	var out []*domain.Machine
	for _, m := range c.machines {
		if maker != "" && m.Maker != maker {
			continue
		}
		if tier != "" && m.PopularityTier != tier {
			continue
		}
		out = append(out, m.Clone())
	}
	return out
}

// FilterByBand returns machines whose tier falls in band.
func (c *Catalog) FilterByBand(band domain.Band) []*domain.Machine {
	var out []*domain.Machine
	for _, m := range c.machines {
		if m.PopularityTier.Band() == band {
			out = append(out, m.Clone())
		}
	}
	return out
}

// ByMaker returns the machines of one maker.
func (c *Catalog) ByMaker(maker string) []*domain.Machine {
	return cloneAll(c.byMaker[maker])
}

// ByIP returns the machines sharing an IP name.
func (c *Catalog) ByIP(ipName string) []*domain.Machine {
	return cloneAll(c.byIP[ipName])
}

// ByTier returns the machines currently in tier.
func (c *Catalog) ByTier(tier domain.Tier) []*domain.Machine {
	return cloneAll(c.byTier[tier])
}

// Top returns up to n machines ordered by popularity, highest first when
// desc is set and lowest first otherwise. Ties keep ID order.
// n <= 0 returns every machine.
func (c *Catalog) Top(n int, desc bool) []*domain.Machine {
	out := c.All()
	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return out[i].PopularityScore > out[j].PopularityScore
		}
		return out[i].PopularityScore < out[j].PopularityScore
	})
	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// Lowest returns up to n of the least popular machines.
func (c *Catalog) Lowest(n int) []*domain.Machine {
	return c.Top(n, false)
}

// ByPriceRange returns machines whose base price is within [min, max].
func (c *Catalog) ByPriceRange(min, max int64) []*domain.Machine {
	var out []*domain.Machine
	for _, m := range c.machines {
		if m.BasePrice >= min && m.BasePrice <= max {
			out = append(out, m.Clone())
		}
	}
	return out
}

// ByReleaseRange returns machines released within [start, end].
func (c *Catalog) ByReleaseRange(start, end time.Time) []*domain.Machine {
	var out []*domain.Machine
	for _, m := range c.machines {
		if !m.ReleaseDate.Before(start) && !m.ReleaseDate.After(end) {
			out = append(out, m.Clone())
		}
	}
	return out
}

// Breakdown returns the composite score parts of a machine as of now.
func (c *Catalog) Breakdown(id int64, weights scoring.Weights, now time.Time) (scoring.Breakdown, bool) {
	m, ok := c.byID[id]
	if !ok {
		return scoring.Breakdown{}, false
	}
	return weights.Breakdown(scoring.SubScore(m.SpecScore), scoring.SubScore(m.IPScore), m.ReleaseDate, now), true
}

func cloneAll(machines []*domain.Machine) []*domain.Machine {
	out := make([]*domain.Machine, len(machines))
	for i, m := range machines {
		out[i] = m.Clone()
	}
	return out
}
