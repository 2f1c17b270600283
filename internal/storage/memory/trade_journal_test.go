package memory

import (
	"context"
	"errors"
	"testing"

	"slot-parlor/internal/domain"
	"slot-parlor/internal/storage"
)

func TestTradeJournal_InsertAndGet(t *testing.T) {
	store := NewTradeJournal()
	ctx := context.Background()

	trade := &domain.TradeRecord{
		TradeID:   "trade1",
		SessionID: "sess1",
		Seq:       1,
		MachineID: 3,
		Week:      2,
		Side:      domain.TradeSideBuy,
		Quantity:  20,
		UnitPrice: 10000,
		Total:     190000,
		Savings:   10000,
	}

	if err := store.Insert(ctx, trade); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "trade1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}

	if got.Total != 190000 {
		t.Errorf("Total mismatch: got %d, want %d", got.Total, 190000)
	}
	if got.Side != domain.TradeSideBuy {
		t.Errorf("Side mismatch: got %s", got.Side)
	}
}

func TestTradeJournal_DuplicateKey(t *testing.T) {
	store := NewTradeJournal()
	ctx := context.Background()

	trade := &domain.TradeRecord{TradeID: "trade1", SessionID: "sess1", Seq: 1}

	if err := store.Insert(ctx, trade); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.Insert(ctx, trade)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestTradeJournal_InvalidInput(t *testing.T) {
	store := NewTradeJournal()
	ctx := context.Background()

	if err := store.Insert(ctx, &domain.TradeRecord{SessionID: "sess1"}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestTradeJournal_NotFound(t *testing.T) {
	store := NewTradeJournal()
	ctx := context.Background()

	_, err := store.GetByID(ctx, "nonexistent")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestTradeJournal_GetBySessionID(t *testing.T) {
	store := NewTradeJournal()
	ctx := context.Background()

	trades := []*domain.TradeRecord{
		{TradeID: "t3", SessionID: "s1", Seq: 3},
		{TradeID: "t1", SessionID: "s1", Seq: 1},
		{TradeID: "x1", SessionID: "s2", Seq: 1},
		{TradeID: "t2", SessionID: "s1", Seq: 2},
	}
	for _, tr := range trades {
		if err := store.Insert(ctx, tr); err != nil {
			t.Fatalf("Insert %s failed: %v", tr.TradeID, err)
		}
	}

	got, err := store.GetBySessionID(ctx, "s1")
	if err != nil {
		t.Fatalf("GetBySessionID failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 trades, got %d", len(got))
	}
	for i, tr := range got {
		if tr.Seq != i+1 {
			t.Errorf("Trade %d: seq %d, want %d", i, tr.Seq, i+1)
		}
	}

	got, _ = store.GetBySessionID(ctx, "unknown")
	if len(got) != 0 {
		t.Errorf("Expected no trades for unknown session, got %d", len(got))
	}
}
