package storage

import (
	"context"

	"slot-parlor/internal/domain"
)

// HistoryStore holds the per-machine weekly popularity series.
// Append-only per (machine_id, week); oldest entries are evicted once a
// machine exceeds the store's capacity.
type HistoryStore interface {
	// Append adds an entry. Returns ErrDuplicateKey if (machine_id, week) was already
	// recorded and ErrNonMonotonicWeek if week is below the latest recorded week.
	Append(ctx context.Context, e *domain.HistoryEntry) error

	// Latest returns the most recent entry for a machine. Returns ErrNotFound if none.
	Latest(ctx context.Context, machineID int64) (*domain.HistoryEntry, error)

	// GetByMachineID retrieves retained entries for a machine, ordered by week ASC.
	// Unknown machines yield an empty slice.
	GetByMachineID(ctx context.Context, machineID int64) ([]*domain.HistoryEntry, error)

	// Window retrieves the last n retained entries for a machine, ordered by week ASC.
	Window(ctx context.Context, machineID int64, n int) ([]*domain.HistoryEntry, error)

	// Capacity returns the maximum number of retained entries per machine.
	Capacity() int

	// Clear drops all entries for all machines.
	Clear(ctx context.Context) error
}

// TradeJournal provides access to trade_journal storage.
type TradeJournal interface {
	// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
	Insert(ctx context.Context, t *domain.TradeRecord) error

	// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, tradeID string) (*domain.TradeRecord, error)

	// GetBySessionID retrieves all trades of a session, ordered by seq ASC.
	GetBySessionID(ctx context.Context, sessionID string) ([]*domain.TradeRecord, error)
}

// HistoryArchive provides access to popularity_history storage, the
// analytics export of weekly snapshots.
type HistoryArchive interface {
	// InsertBulk adds snapshots. Fails entire batch on duplicate (session_id, machine_id, week).
	InsertBulk(ctx context.Context, snapshots []*domain.WeeklySnapshot) error

	// GetBySessionID retrieves all snapshots of a session, ordered by (week, machine_id) ASC.
	GetBySessionID(ctx context.Context, sessionID string) ([]*domain.WeeklySnapshot, error)

	// GetByMachineID retrieves one machine's snapshots within a session, ordered by week ASC.
	GetByMachineID(ctx context.Context, sessionID string, machineID int64) ([]*domain.WeeklySnapshot, error)
}
