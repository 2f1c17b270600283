package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"slot-parlor/internal/domain"
	"slot-parlor/internal/storage"
)

// TradeJournal implements storage.TradeJournal using PostgreSQL.
type TradeJournal struct {
	pool *Pool
}

// NewTradeJournal creates a new TradeJournal.
func NewTradeJournal(pool *Pool) *TradeJournal {
	return &TradeJournal{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeJournal = (*TradeJournal)(nil)

const tradeJournalColumns = `
	trade_id, session_id, seq, machine_id, machine_name, week, side,
	quantity, unit_price, market_price, total, savings, money_after, executed_at
`

// Insert adds a new trade. Returns ErrDuplicateKey if trade_id or (session_id, seq) exists.
func (s *TradeJournal) Insert(ctx context.Context, t *domain.TradeRecord) error {
	if t == nil || t.TradeID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO trade_journal (` + tradeJournalColumns + `) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12, $13, $14
		)
	`

	_, err := s.pool.Exec(ctx, query,
		t.TradeID, t.SessionID, t.Seq, t.MachineID, t.MachineName, t.Week, string(t.Side),
		t.Quantity, t.UnitPrice, t.MarketPrice, t.Total, t.Savings, t.MoneyAfter, t.ExecutedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		if isCheckViolationError(err) {
			return storage.ErrInvalidInput
		}
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
func (s *TradeJournal) GetByID(ctx context.Context, tradeID string) (*domain.TradeRecord, error) {
	query := `SELECT ` + tradeJournalColumns + ` FROM trade_journal WHERE trade_id = $1`

	t, err := scanTrade(s.pool.QueryRow(ctx, query, tradeID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade by id: %w", err)
	}
	return t, nil
}

// GetBySessionID retrieves all trades of a session, ordered by seq ASC.
func (s *TradeJournal) GetBySessionID(ctx context.Context, sessionID string) ([]*domain.TradeRecord, error) {
	query := `SELECT ` + tradeJournalColumns + ` FROM trade_journal WHERE session_id = $1 ORDER BY seq ASC`

	rows, err := s.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get trades by session id: %w", err)
	}
	defer rows.Close()

	var trades []*domain.TradeRecord
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}

	return trades, nil
}

// scanTrade scans a single row into a TradeRecord.
func scanTrade(row pgx.Row) (*domain.TradeRecord, error) {
	var t domain.TradeRecord
	var side string

	err := row.Scan(
		&t.TradeID, &t.SessionID, &t.Seq, &t.MachineID, &t.MachineName, &t.Week, &side,
		&t.Quantity, &t.UnitPrice, &t.MarketPrice, &t.Total, &t.Savings, &t.MoneyAfter, &t.ExecutedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Side = domain.TradeSide(side)
	return &t, nil
}
