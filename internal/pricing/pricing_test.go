package pricing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slot-parlor/internal/domain"
	"slot-parlor/internal/rng"
)

func TestBulkPurchasePrice(t *testing.T) {
	assert.Equal(t, int64(190000), BulkPurchasePrice(10000, 20))
	assert.Equal(t, int64(9500), BulkPurchasePrice(10000, 1))
	// 333 * 3 * 0.95 = 949.05
	assert.Equal(t, int64(949), BulkPurchasePrice(333, 3))
}

func TestResalePrice_Floor(t *testing.T) {
	assert.Equal(t, int64(50000), ResalePrice(1000))
	assert.Equal(t, int64(50000), ResalePrice(0))
	assert.Equal(t, int64(50000), ResalePrice(-500000))
	assert.Equal(t, int64(50000), ResalePrice(55555))
	assert.Equal(t, int64(360000), ResalePrice(400000))
	// 55556 * 0.9 = 50000.4
	assert.Equal(t, int64(50000), ResalePrice(55556))
	// 400005 * 0.9 = 360004.5, half rounds up
	assert.Equal(t, int64(360005), ResalePrice(400005))
}

func TestResalePrice_NeverBelowFloor(t *testing.T) {
	for market := int64(-100000); market <= 200000; market += 777 {
		require.GreaterOrEqual(t, ResalePrice(market), int64(DefaultMinSalePrice), "market %d", market)
	}
}

func TestUsedMarketPrice_Multipliers(t *testing.T) {
	// U = 0.5 gives variance exactly 1.0
	mid := rng.NewSequence(0.5)

	assert.Equal(t, int64(520000), UsedMarketPrice(400000, 7.5, mid))
	assert.Equal(t, int64(520000), UsedMarketPrice(400000, 10, mid))
	assert.Equal(t, int64(400000), UsedMarketPrice(400000, 7.4, mid))
	assert.Equal(t, int64(400000), UsedMarketPrice(400000, 2.6, mid))
	assert.Equal(t, int64(280000), UsedMarketPrice(400000, 2.5, mid))
	assert.Equal(t, int64(280000), UsedMarketPrice(400000, 0, mid))
}

func TestUsedMarketPrice_Variance(t *testing.T) {
	// U = 0 -> 0.9, U = 1 -> 1.1
	assert.Equal(t, int64(360000), UsedMarketPrice(400000, 5, rng.NewSequence(0)))
	assert.Equal(t, int64(440000), UsedMarketPrice(400000, 5, rng.NewSequence(1)))
	// U = 0.75 -> 1.05
	assert.Equal(t, int64(546000), UsedMarketPrice(400000, 8, rng.NewSequence(0.75)))
}

func TestUsedMarketPrice_ConsumesOneDraw(t *testing.T) {
	seq := rng.NewSequence(0.1, 0.9)
	UsedMarketPrice(100000, 5, seq)
	assert.Equal(t, 1, seq.Draws())
}

func TestUsedMarketPrice_Deterministic(t *testing.T) {
	a := rng.New(42)
	b := rng.New(42)
	for i := 0; i < 50; i++ {
		require.Equal(t, UsedMarketPrice(432000, 6.1, a), UsedMarketPrice(432000, 6.1, b))
	}
}

func TestUsedMarketPrice_Bounds(t *testing.T) {
	src := rng.New(7)
	for i := 0; i < 1000; i++ {
		p := UsedMarketPrice(100000, 8, src)
		require.GreaterOrEqual(t, p, int64(117000))
		require.LessOrEqual(t, p, int64(143000))
	}
}

func TestQuotePurchase(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	m := &domain.Machine{ID: 3, BasePrice: 10000}

	t.Run("below island", func(t *testing.T) {
		q, err := calc.QuotePurchase(m, 19)
		require.NoError(t, err)
		assert.False(t, q.IslandApplied)
		assert.Equal(t, int64(190000), q.Total)
		assert.Equal(t, int64(190000), q.ListTotal)
		assert.Equal(t, int64(0), q.Savings)
		assert.Equal(t, 0, q.Islands)
	})

	t.Run("one island", func(t *testing.T) {
		q, err := calc.QuotePurchase(m, 20)
		require.NoError(t, err)
		assert.True(t, q.IslandApplied)
		assert.Equal(t, int64(10000), q.UnitPrice)
		assert.Equal(t, int64(200000), q.ListTotal)
		assert.Equal(t, int64(190000), q.Total)
		assert.Equal(t, int64(10000), q.Savings)
		assert.Equal(t, 1, q.Islands)
	})

	t.Run("discount covers the whole quantity", func(t *testing.T) {
		q, err := calc.QuotePurchase(m, 45)
		require.NoError(t, err)
		assert.Equal(t, int64(427500), q.Total)
		assert.Equal(t, 2, q.Islands)
	})

	t.Run("invalid quantity", func(t *testing.T) {
		_, err := calc.QuotePurchase(m, 0)
		assert.True(t, errors.Is(err, ErrInvalidQuantity))
		_, err = calc.QuotePurchase(m, -3)
		assert.True(t, errors.Is(err, ErrInvalidQuantity))
	})
}

func TestQuoteResale(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	m := &domain.Machine{ID: 9, BasePrice: 400000}

	q, err := calc.QuoteResale(m, 3, 520000)
	require.NoError(t, err)
	assert.Equal(t, int64(520000), q.MarketPrice)
	assert.Equal(t, int64(468000), q.UnitPrice)
	assert.Equal(t, int64(1404000), q.Total)

	q, err = calc.QuoteResale(m, 2, 20000)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), q.UnitPrice)
	assert.Equal(t, int64(100000), q.Total)

	_, err = calc.QuoteResale(m, 0, 520000)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestCustomConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IslandSize = 10
	cfg.IslandDiscount = 0.9
	cfg.MinSalePrice = 1000
	calc := NewCalculator(cfg)

	total, island := calc.PurchaseTotal(1000, 10)
	assert.True(t, island)
	assert.Equal(t, int64(9000), total)
	assert.Equal(t, int64(1000), calc.ResalePrice(100))
}
