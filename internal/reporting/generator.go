package reporting

import (
	"context"
	"math"
	"sort"
	"time"

	"slot-parlor/internal/catalog"
	"slot-parlor/internal/domain"
	"slot-parlor/internal/forecast"
	"slot-parlor/internal/session"
)

// DefaultRankingSize is the number of machines in each ranking.
const DefaultRankingSize = 10

// Generator produces reports from a session.
type Generator struct {
	session     *session.Session
	forecaster  *forecast.Generator
	rankingSize int
	now         func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(s *session.Session) *Generator {
	return &Generator{
		session:     s,
		forecaster:  forecast.NewGenerator(s.Tuning().Forecast),
		rankingSize: DefaultRankingSize,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// WithRankingSize sets the number of machines in each ranking.
func (g *Generator) WithRankingSize(n int) *Generator {
	if n > 0 {
		g.rankingSize = n
	}
	return g
}

// Generate produces a complete report of the session's current week.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	s := g.session
	cat := s.Catalog()
	status := s.Status()

	// Movers
	movers, err := g.generateMovers(ctx)
	if err != nil {
		return nil, err
	}

	// Portfolio
	portfolio, err := s.Portfolio()
	if err != nil {
		return nil, err
	}

	return &Report{
		GeneratedAt: g.now(),
		SessionID:   status.SessionID,
		Seed:        s.Seed(),
		Week:        status.Week,
		MaxWeeks:    status.MaxWeeks,
		Date:        status.Date,
		Summary:     generateSummary(cat.Stats()),
		Top:         machineRows(cat.Top(g.rankingSize, true)),
		Bottom:      machineRows(cat.Lowest(g.rankingSize)),
		Movers:      movers,
		Digest:      digestRows(s.Digest()),
		Portfolio:   portfolioSection(portfolio),
		Trades:      s.Trades(),
	}, nil
}

// generateMovers ranks machines by the size of their latest change.
func (g *Generator) generateMovers(ctx context.Context) ([]MoverRow, error) {
	cat := g.session.Catalog()
	window := g.session.Tuning().Forecast.Window

	var rows []MoverRow
	for _, m := range cat.All() {
		history, err := cat.History(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		if len(history) < 2 {
			continue
		}
		if window > 0 && len(history) > window {
			history = history[len(history)-window:]
		}

		trend := domain.TrendStable
		if fc := g.forecaster.Forecast(history); fc != nil {
			trend = fc.Trend
		}
		rows = append(rows, MoverRow{
			MachineID: m.ID,
			Name:      m.Name,
			Score:     m.PopularityScore,
			Delta:     history[len(history)-1].Delta,
			Trend:     trend,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		di, dj := math.Abs(rows[i].Delta), math.Abs(rows[j].Delta)
		if di != dj {
			return di > dj
		}
		return rows[i].MachineID < rows[j].MachineID
	})
	if len(rows) > g.rankingSize {
		rows = rows[:g.rankingSize]
	}
	return rows, nil
}

func generateSummary(stats catalog.Stats) CatalogSummary {
	summary := CatalogSummary{
		Machines:     stats.Count,
		AveragePrice: stats.AveragePrice,
		AverageScore: stats.AverageScore,
	}
	for _, tier := range domain.AllTiers {
		if n := stats.TierDistribution[tier]; n > 0 {
			summary.TierDistribution = append(summary.TierDistribution, TierCount{Tier: tier, Count: n})
		}
	}
	for _, maker := range stats.Makers {
		summary.MakerDistribution = append(summary.MakerDistribution, MakerCount{
			Maker: maker,
			Count: stats.MakerDistribution[maker],
		})
	}
	return summary
}

func machineRows(machines []*domain.Machine) []MachineRow {
	rows := make([]MachineRow, len(machines))
	for i, m := range machines {
		rows[i] = MachineRow{
			MachineID: m.ID,
			Name:      m.Name,
			Maker:     m.Maker,
			Score:     m.PopularityScore,
			Tier:      m.PopularityTier,
			BasePrice: m.BasePrice,
		}
	}
	return rows
}

func digestRows(items []session.DigestItem) []DigestRow {
	rows := make([]DigestRow, len(items))
	for i, item := range items {
		rows[i] = DigestRow{
			MachineID: item.MachineID,
			Name:      item.MachineName,
			Delta:     item.Delta,
			Narrative: item.Narrative,
		}
	}
	return rows
}

func portfolioSection(p *session.Portfolio) PortfolioSection {
	section := PortfolioSection{
		Money: p.Money,
		Value: p.Value,
		Owned: p.Owned,
	}
	for _, h := range p.Holdings {
		section.Holdings = append(section.Holdings, HoldingRow{
			MachineID:   h.Machine.ID,
			Name:        h.Machine.Name,
			Quantity:    h.Quantity,
			MarketPrice: h.Quote.MarketPrice,
			UnitPrice:   h.Quote.UnitPrice,
			Total:       h.Quote.Total,
		})
	}
	return section
}
