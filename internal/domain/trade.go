package domain

// TradeSide is the direction of a trade.
type TradeSide string

// Trade sides.
const (
	TradeSideBuy  TradeSide = "BUY"
	TradeSideSell TradeSide = "SELL"
)

// TradeRecord is one executed purchase or sale in a session.
// Corresponds to the trade_journal table.
type TradeRecord struct {
	TradeID     string // deterministic hash, see idhash.ComputeTradeID
	SessionID   string
	Seq         int // 1-based order within the session
	MachineID   int64
	MachineName string
	Week        int
	Side        TradeSide
	Quantity    int
	UnitPrice   int64 // per machine, after discounts/floors
	MarketPrice int64 // used-market reference (sales only)
	Total       int64
	Savings     int64 // island discount (purchases only)
	MoneyAfter  int64 // wallet balance after the trade
	ExecutedAt  int64 // Unix timestamp in milliseconds
}

// Position is an owned quantity of one machine.
type Position struct {
	MachineID int64
	Quantity  int
}
