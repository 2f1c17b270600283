package memory

import (
	"context"
	"errors"
	"testing"

	"slot-parlor/internal/domain"
	"slot-parlor/internal/storage"
)

func TestHistoryStore_AppendAndGet(t *testing.T) {
	store := NewHistoryStore(0)
	ctx := context.Background()

	for week := 1; week <= 3; week++ {
		e := &domain.HistoryEntry{MachineID: 7, Week: week, Score: 5 + float64(week)/10, Delta: 0.1}
		if err := store.Append(ctx, e); err != nil {
			t.Fatalf("Append week %d failed: %v", week, err)
		}
	}

	got, err := store.GetByMachineID(ctx, 7)
	if err != nil {
		t.Fatalf("GetByMachineID failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(got))
	}
	for i, e := range got {
		if e.Week != i+1 {
			t.Errorf("Entry %d: week %d, want %d", i, e.Week, i+1)
		}
	}

	latest, err := store.Latest(ctx, 7)
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if latest.Week != 3 {
		t.Errorf("Latest week: got %d, want 3", latest.Week)
	}
}

func TestHistoryStore_DuplicateWeek(t *testing.T) {
	store := NewHistoryStore(0)
	ctx := context.Background()

	if err := store.Append(ctx, &domain.HistoryEntry{MachineID: 1, Week: 1, Score: 5}); err != nil {
		t.Fatalf("First append failed: %v", err)
	}

	err := store.Append(ctx, &domain.HistoryEntry{MachineID: 1, Week: 1, Score: 6})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	// Rejected append leaves the stored entry untouched
	got, _ := store.Latest(ctx, 1)
	if got.Score != 5 {
		t.Errorf("Score changed after rejected append: got %.1f", got.Score)
	}
}

func TestHistoryStore_NonMonotonicWeek(t *testing.T) {
	store := NewHistoryStore(0)
	ctx := context.Background()

	_ = store.Append(ctx, &domain.HistoryEntry{MachineID: 1, Week: 1})
	_ = store.Append(ctx, &domain.HistoryEntry{MachineID: 1, Week: 4})

	err := store.Append(ctx, &domain.HistoryEntry{MachineID: 1, Week: 2})
	if !errors.Is(err, storage.ErrNonMonotonicWeek) {
		t.Errorf("Expected ErrNonMonotonicWeek, got %v", err)
	}

	// Other machines are independent
	if err := store.Append(ctx, &domain.HistoryEntry{MachineID: 2, Week: 2}); err != nil {
		t.Errorf("Append for other machine failed: %v", err)
	}
}

func TestHistoryStore_InvalidInput(t *testing.T) {
	store := NewHistoryStore(0)
	ctx := context.Background()

	if err := store.Append(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("nil entry: expected ErrInvalidInput, got %v", err)
	}
	if err := store.Append(ctx, &domain.HistoryEntry{MachineID: 1, Week: 0}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("week 0: expected ErrInvalidInput, got %v", err)
	}
	if _, err := store.Window(ctx, 1, -1); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("negative window: expected ErrInvalidInput, got %v", err)
	}
}

func TestHistoryStore_EvictsOldest(t *testing.T) {
	store := NewHistoryStore(DefaultHistoryCapacity)
	ctx := context.Background()

	for week := 1; week <= 60; week++ {
		if err := store.Append(ctx, &domain.HistoryEntry{MachineID: 1, Week: week}); err != nil {
			t.Fatalf("Append week %d failed: %v", week, err)
		}
	}

	got, _ := store.GetByMachineID(ctx, 1)
	if len(got) != 52 {
		t.Fatalf("Expected 52 retained entries, got %d", len(got))
	}
	if got[0].Week != 9 || got[51].Week != 60 {
		t.Errorf("Retained range: weeks %d..%d, want 9..60", got[0].Week, got[51].Week)
	}

	// Evicted weeks still cannot be re-appended
	err := store.Append(ctx, &domain.HistoryEntry{MachineID: 1, Week: 3})
	if !errors.Is(err, storage.ErrNonMonotonicWeek) {
		t.Errorf("Expected ErrNonMonotonicWeek for evicted week, got %v", err)
	}
}

func TestHistoryStore_Window(t *testing.T) {
	store := NewHistoryStore(0)
	ctx := context.Background()

	for week := 1; week <= 5; week++ {
		_ = store.Append(ctx, &domain.HistoryEntry{MachineID: 1, Week: week})
	}

	got, err := store.Window(ctx, 1, 3)
	if err != nil {
		t.Fatalf("Window failed: %v", err)
	}
	if len(got) != 3 || got[0].Week != 3 || got[2].Week != 5 {
		t.Errorf("Window(3): unexpected weeks %v", weeks(got))
	}

	got, _ = store.Window(ctx, 1, 10)
	if len(got) != 5 {
		t.Errorf("Window(10): expected 5 entries, got %d", len(got))
	}

	got, _ = store.Window(ctx, 99, 3)
	if len(got) != 0 {
		t.Errorf("Window for unknown machine: expected empty, got %d", len(got))
	}
}

func TestHistoryStore_ReturnsCopies(t *testing.T) {
	store := NewHistoryStore(0)
	ctx := context.Background()

	e := &domain.HistoryEntry{MachineID: 1, Week: 1, Score: 5}
	_ = store.Append(ctx, e)
	e.Score = 9

	got, _ := store.GetByMachineID(ctx, 1)
	got[0].Score = 8

	latest, _ := store.Latest(ctx, 1)
	if latest.Score != 5 {
		t.Errorf("Stored entry mutated through caller pointer: got %.1f", latest.Score)
	}
}

func TestHistoryStore_Clear(t *testing.T) {
	store := NewHistoryStore(0)
	ctx := context.Background()

	_ = store.Append(ctx, &domain.HistoryEntry{MachineID: 1, Week: 1})
	_ = store.Append(ctx, &domain.HistoryEntry{MachineID: 1, Week: 2})

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	if _, err := store.Latest(ctx, 1); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after Clear, got %v", err)
	}

	// Week numbering restarts after Clear
	if err := store.Append(ctx, &domain.HistoryEntry{MachineID: 1, Week: 1}); err != nil {
		t.Errorf("Append after Clear failed: %v", err)
	}
}

func weeks(entries []*domain.HistoryEntry) []int {
	out := make([]int, len(entries))
	for i, e := range entries {
		out[i] = e.Week
	}
	return out
}
