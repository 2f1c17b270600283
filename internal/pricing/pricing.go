// Package pricing derives purchase, bulk and resale prices from a machine's
// base price and popularity.
package pricing

import (
	"errors"

	"github.com/shopspring/decimal"

	"slot-parlor/internal/domain"
	"slot-parlor/internal/rng"
	"slot-parlor/internal/scoring"
)

// Pricing errors
var (
	ErrInvalidQuantity = errors.New("quantity must be positive")
)

// Default pricing parameters.
const (
	DefaultHighMultiplier   = 1.3
	DefaultMediumMultiplier = 1.0
	DefaultLowMultiplier    = 0.7
	DefaultRandomVariance   = 0.2 // full width of the variance band, centered at 1.0
	DefaultIslandSize       = 20
	DefaultIslandDiscount   = 0.95
	DefaultSaleMultiplier   = 0.9
	DefaultMinSalePrice     = 50000
)

// Config holds the price multipliers, island discount and resale floor.
type Config struct {
	HighMultiplier   float64 `toml:"high_popularity"`
	MediumMultiplier float64 `toml:"medium_popularity"`
	LowMultiplier    float64 `toml:"low_popularity"`
	RandomVariance   float64 `toml:"random_variance"`
	IslandSize       int     `toml:"machines_per_island"`
	IslandDiscount   float64 `toml:"island_discount"`
	SaleMultiplier   float64 `toml:"sale_multiplier"`
	MinSalePrice     int64   `toml:"min_sale_price"`
}

// DefaultConfig returns the stock pricing parameters.
func DefaultConfig() Config {
	return Config{
		HighMultiplier:   DefaultHighMultiplier,
		MediumMultiplier: DefaultMediumMultiplier,
		LowMultiplier:    DefaultLowMultiplier,
		RandomVariance:   DefaultRandomVariance,
		IslandSize:       DefaultIslandSize,
		IslandDiscount:   DefaultIslandDiscount,
		SaleMultiplier:   DefaultSaleMultiplier,
		MinSalePrice:     DefaultMinSalePrice,
	}
}

// Calculator computes prices for one pricing configuration.
// It holds no state besides its config and is safe for concurrent use.
type Calculator struct {
	cfg Config
}

// NewCalculator creates a Calculator.
func NewCalculator(cfg Config) *Calculator {
	return &Calculator{cfg: cfg}
}

// Config returns the calculator's configuration.
func (c *Calculator) Config() Config {
	return c.cfg
}

var defaultCalculator = NewCalculator(DefaultConfig())

// UsedMarketPrice prices one used machine with the default configuration.
func UsedMarketPrice(basePrice int64, score float64, src rng.Source) int64 {
	return defaultCalculator.UsedMarketPrice(basePrice, score, src)
}

// BulkPurchasePrice prices an island purchase with the default configuration.
func BulkPurchasePrice(unitPrice int64, quantity int) int64 {
	return defaultCalculator.BulkPurchasePrice(unitPrice, quantity)
}

// ResalePrice prices a resale with the default configuration.
func ResalePrice(marketPrice int64) int64 {
	return defaultCalculator.ResalePrice(marketPrice)
}

// Multiplier returns the popularity multiplier for a score.
func (c *Calculator) Multiplier(score float64) float64 {
	switch scoring.BandOf(score) {
	case domain.BandHigh:
		return c.cfg.HighMultiplier
	case domain.BandLow:
		return c.cfg.LowMultiplier
	default:
		return c.cfg.MediumMultiplier
	}
}

// UsedMarketPrice returns round(base * multiplier * variance), where variance
// is 1 + (U-0.5)*RandomVariance. Consumes exactly one draw from src.
func (c *Calculator) UsedMarketPrice(basePrice int64, score float64, src rng.Source) int64 {
	variance := 1 + (src.Float64()-0.5)*c.cfg.RandomVariance

	return roundYen(decimal.NewFromInt(basePrice).
		Mul(decimal.NewFromFloat(c.Multiplier(score))).
		Mul(decimal.NewFromFloat(variance)))
}

// BulkPurchasePrice returns round(unitPrice * quantity * IslandDiscount).
// Callers apply it only from one island upward; see PurchaseTotal.
func (c *Calculator) BulkPurchasePrice(unitPrice int64, quantity int) int64 {
	return roundYen(decimal.NewFromInt(unitPrice).
		Mul(decimal.NewFromInt(int64(quantity))).
		Mul(decimal.NewFromFloat(c.cfg.IslandDiscount)))
}

// PurchaseTotal returns the amount charged for quantity machines and whether
// the island discount applied.
func (c *Calculator) PurchaseTotal(unitPrice int64, quantity int) (total int64, island bool) {
	if c.cfg.IslandSize > 0 && quantity >= c.cfg.IslandSize {
		return c.BulkPurchasePrice(unitPrice, quantity), true
	}
	return unitPrice * int64(quantity), false
}

// ResalePrice returns max(round(marketPrice * SaleMultiplier), MinSalePrice).
func (c *Calculator) ResalePrice(marketPrice int64) int64 {
	price := roundYen(decimal.NewFromInt(marketPrice).Mul(decimal.NewFromFloat(c.cfg.SaleMultiplier)))
	if price < c.cfg.MinSalePrice {
		return c.cfg.MinSalePrice
	}
	return price
}

// QuotePurchase prices buying quantity new machines at list price.
func (c *Calculator) QuotePurchase(m *domain.Machine, quantity int) (*domain.PurchaseQuote, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	listTotal := m.BasePrice * int64(quantity)
	total, island := c.PurchaseTotal(m.BasePrice, quantity)

	q := &domain.PurchaseQuote{
		MachineID:     m.ID,
		Quantity:      quantity,
		UnitPrice:     m.BasePrice,
		ListTotal:     listTotal,
		Total:         total,
		IslandApplied: island,
		Savings:       listTotal - total,
	}
	if c.cfg.IslandSize > 0 {
		q.Islands = quantity / c.cfg.IslandSize
	}
	return q, nil
}

// QuoteResale prices selling quantity machines given this week's market price.
func (c *Calculator) QuoteResale(m *domain.Machine, quantity int, marketPrice int64) (*domain.ResaleQuote, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	unit := c.ResalePrice(marketPrice)
	return &domain.ResaleQuote{
		MachineID:   m.ID,
		Quantity:    quantity,
		MarketPrice: marketPrice,
		UnitPrice:   unit,
		Total:       unit * int64(quantity),
	}, nil
}

// roundYen rounds half away from zero to whole yen.
func roundYen(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}
