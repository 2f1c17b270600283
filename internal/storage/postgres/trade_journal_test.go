package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slot-parlor/internal/domain"
	"slot-parlor/internal/storage"
)

func newTrade(id, session string, seq int, side domain.TradeSide) *domain.TradeRecord {
	return &domain.TradeRecord{
		TradeID:     id,
		SessionID:   session,
		Seq:         seq,
		MachineID:   12,
		MachineName: "パチスロ北斗の拳",
		Week:        3,
		Side:        side,
		Quantity:    20,
		UnitPrice:   9500,
		MarketPrice: 0,
		Total:       190000,
		Savings:     10000,
		MoneyAfter:  9810000,
		ExecutedAt:  1717243200000,
	}
}

func TestTradeJournal_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeJournal(pool)
	ctx := context.Background()

	trade := newTrade("trade-1", "sess-1", 1, domain.TradeSideBuy)
	require.NoError(t, store.Insert(ctx, trade))

	got, err := store.GetByID(ctx, "trade-1")
	require.NoError(t, err)
	assert.Equal(t, trade, got)
}

func TestTradeJournal_DuplicateKey(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeJournal(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, newTrade("trade-1", "sess-1", 1, domain.TradeSideBuy)))

	err := store.Insert(ctx, newTrade("trade-1", "sess-1", 2, domain.TradeSideBuy))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// (session_id, seq) is unique too
	err = store.Insert(ctx, newTrade("trade-2", "sess-1", 1, domain.TradeSideSell))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestTradeJournal_CheckViolation(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeJournal(pool)
	ctx := context.Background()

	bad := newTrade("trade-1", "sess-1", 1, domain.TradeSideBuy)
	bad.Quantity = 0
	assert.ErrorIs(t, store.Insert(ctx, bad), storage.ErrInvalidInput)
}

func TestTradeJournal_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeJournal(pool)

	_, err := store.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTradeJournal_GetBySessionID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeJournal(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, newTrade("t2", "sess-1", 2, domain.TradeSideSell)))
	require.NoError(t, store.Insert(ctx, newTrade("t1", "sess-1", 1, domain.TradeSideBuy)))
	require.NoError(t, store.Insert(ctx, newTrade("x1", "sess-2", 1, domain.TradeSideBuy)))

	got, err := store.GetBySessionID(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "t1", got[0].TradeID)
	assert.Equal(t, "t2", got[1].TradeID)
	assert.Equal(t, domain.TradeSideSell, got[1].Side)

	got, err = store.GetBySessionID(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, got)
}
