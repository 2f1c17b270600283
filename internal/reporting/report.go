package reporting

import (
	"time"

	"slot-parlor/internal/domain"
)

// Report represents the weekly session report.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	SessionID   string
	Seed        uint64
	Week        int
	MaxWeeks    int
	Date        time.Time // simulated calendar date of Week

	// Catalog Summary
	Summary CatalogSummary

	// Popularity (Top and Bottom sorted by score, Movers by |delta| DESC then machine ID)
	Top    []MachineRow
	Bottom []MachineRow
	Movers []MoverRow

	// Digest of the latest week advance
	Digest []DigestRow

	// Wallet, holdings and trades
	Portfolio PortfolioSection
	Trades    []*domain.TradeRecord
}

// CatalogSummary contains catalog-wide statistics.
type CatalogSummary struct {
	Machines          int
	AveragePrice      int64
	AverageScore      float64
	TierDistribution  []TierCount // in tier order, zero counts omitted
	MakerDistribution []MakerCount
}

// TierCount is the number of machines in one tier.
type TierCount struct {
	Tier  domain.Tier
	Count int
}

// MakerCount is the number of machines of one maker.
type MakerCount struct {
	Maker string
	Count int
}

// MachineRow represents one machine in a ranking.
type MachineRow struct {
	MachineID int64
	Name      string
	Maker     string
	Score     float64
	Tier      domain.Tier
	BasePrice int64
}

// MoverRow represents one machine's latest weekly change.
type MoverRow struct {
	MachineID int64
	Name      string
	Score     float64
	Delta     float64
	Trend     domain.Trend
}

// DigestRow represents one digest entry.
type DigestRow struct {
	MachineID int64
	Name      string
	Delta     float64
	Narrative string
}

// PortfolioSection contains the wallet and valued holdings.
type PortfolioSection struct {
	Money    int64
	Value    int64 // resale value of holdings
	Owned    int
	Holdings []HoldingRow
}

// HoldingRow represents one owned position.
type HoldingRow struct {
	MachineID   int64
	Name        string
	Quantity    int
	MarketPrice int64
	UnitPrice   int64
	Total       int64
}
