package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"slot-parlor/internal/domain"
	"slot-parlor/internal/idhash"
	"slot-parlor/internal/observability"
)

// Trade rejection reasons, as reported in metrics.
const (
	reasonUnknownMachine        = "unknown_machine"
	reasonInvalidQuantity       = "invalid_quantity"
	reasonInsufficientFunds     = "insufficient_funds"
	reasonInsufficientInventory = "insufficient_inventory"
)

// QuotePurchase prices buying quantity new machines.
func (s *Session) QuotePurchase(id int64, quantity int) (*domain.PurchaseQuote, error) {
	m, ok := s.cat.Get(id)
	if !ok {
		return nil, fmt.Errorf("quote purchase of machine %d: %w", id, ErrUnknownMachine)
	}
	q, err := s.pricer.QuotePurchase(m, quantity)
	if err != nil {
		return nil, fmt.Errorf("quote purchase of %d x machine %d: %w", quantity, id, err)
	}
	observability.RecordQuote("purchase")
	return q, nil
}

// QuoteResale prices selling quantity machines at this week's market price.
// The market price is drawn once per machine per week.
func (s *Session) QuoteResale(id int64, quantity int) (*domain.ResaleQuote, error) {
	m, ok := s.cat.Get(id)
	if !ok {
		return nil, fmt.Errorf("quote resale of machine %d: %w", id, ErrUnknownMachine)
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("quote resale of %d x machine %d: %w", quantity, id, ErrInvalidQuantity)
	}
	q, err := s.pricer.QuoteResale(m, quantity, s.marketPrice(m))
	if err != nil {
		return nil, fmt.Errorf("quote resale of %d x machine %d: %w", quantity, id, err)
	}
	observability.RecordQuote("resale")
	return q, nil
}

// marketPrice returns the machine's used-market price for the current week.
func (s *Session) marketPrice(m *domain.Machine) int64 {
	key := marketKey{machineID: m.ID, week: s.cat.Week()}
	if v, ok := s.prices.Get(key); ok {
		return v.(int64)
	}
	price := s.pricer.UsedMarketPrice(m.BasePrice, m.PopularityScore, s.flavorSrc)
	s.prices.Add(key, price)
	return price
}

// Purchase buys quantity new machines.
// Steps:
//  1. Quote (unknown machine, invalid quantity)
//  2. Check funds
//  3. Debit the wallet and credit the position
//  4. Journal the trade
//
// A rejected purchase changes nothing.
func (s *Session) Purchase(ctx context.Context, id int64, quantity int) (*domain.TradeRecord, error) {
	// 1. Quote
	q, err := s.QuotePurchase(id, quantity)
	if err != nil {
		s.rejectTrade(err)
		return nil, err
	}

	// 2. Funds
	if q.Total > s.money {
		observability.RecordTradeRejected(reasonInsufficientFunds)
		return nil, fmt.Errorf("purchase %d x machine %d for %d with %d: %w",
			quantity, id, q.Total, s.money, ErrInsufficientFunds)
	}

	// 3. Mutate
	s.money -= q.Total
	s.positions[id] += quantity

	// 4. Journal
	m, _ := s.cat.Get(id)
	unit := q.Total / int64(quantity)
	return s.record(ctx, domain.TradeSideBuy, m, quantity, unit, 0, q.Total, q.Savings), nil
}

// Sell sells quantity owned machines at this week's resale price.
// A rejected sale changes nothing.
func (s *Session) Sell(ctx context.Context, id int64, quantity int) (*domain.TradeRecord, error) {
	m, ok := s.cat.Get(id)
	if !ok {
		observability.RecordTradeRejected(reasonUnknownMachine)
		return nil, fmt.Errorf("sell machine %d: %w", id, ErrUnknownMachine)
	}
	if quantity <= 0 {
		observability.RecordTradeRejected(reasonInvalidQuantity)
		return nil, fmt.Errorf("sell %d x machine %d: %w", quantity, id, ErrInvalidQuantity)
	}
	if owned := s.positions[id]; owned < quantity {
		observability.RecordTradeRejected(reasonInsufficientInventory)
		return nil, fmt.Errorf("sell %d x machine %d with %d owned: %w", quantity, id, owned, ErrInsufficientInventory)
	}

	q, err := s.QuoteResale(id, quantity)
	if err != nil {
		s.rejectTrade(err)
		return nil, err
	}

	s.money += q.Total
	s.positions[id] -= quantity
	if s.positions[id] == 0 {
		delete(s.positions, id)
	}

	return s.record(ctx, domain.TradeSideSell, m, quantity, q.UnitPrice, q.MarketPrice, q.Total, 0), nil
}

func (s *Session) rejectTrade(err error) {
	switch {
	case errors.Is(err, ErrUnknownMachine):
		observability.RecordTradeRejected(reasonUnknownMachine)
	case errors.Is(err, ErrInvalidQuantity):
		observability.RecordTradeRejected(reasonInvalidQuantity)
	}
}

// record appends a trade to the session and exports it to the journal.
// Journal failures are logged and counted; the trade stands.
func (s *Session) record(
	ctx context.Context,
	side domain.TradeSide,
	m *domain.Machine,
	quantity int,
	unitPrice, marketPrice, total, savings int64,
) *domain.TradeRecord {
	seq := len(s.trades) + 1
	week := s.cat.Week()

	t := &domain.TradeRecord{
		TradeID:     idhash.ComputeTradeID(s.id, seq, m.ID, side, week),
		SessionID:   s.id,
		Seq:         seq,
		MachineID:   m.ID,
		MachineName: m.Name,
		Week:        week,
		Side:        side,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		MarketPrice: marketPrice,
		Total:       total,
		Savings:     savings,
		MoneyAfter:  s.money,
		ExecutedAt:  time.Now().UnixMilli(),
	}
	s.trades = append(s.trades, t)
	observability.RecordTrade(string(side), total, s.money)

	start := time.Now()
	err := s.journal.Insert(ctx, t)
	observability.RecordExport("trade_journal", time.Since(start).Seconds(), err)
	if err != nil {
		s.log.Warn().Err(err).Str("trade_id", t.TradeID).Msg("trade journal export failed")
	}

	s.log.Info().
		Str("session_id", s.id).
		Str("side", string(side)).
		Int64("machine_id", m.ID).
		Int("quantity", quantity).
		Int64("total", total).
		Int64("money", s.money).
		Msg("trade executed")

	c := *t
	return &c
}

// Trades returns the session's executed trades in order.
func (s *Session) Trades() []*domain.TradeRecord {
	out := make([]*domain.TradeRecord, len(s.trades))
	for i, t := range s.trades {
		c := *t
		out[i] = &c
	}
	return out
}

// Holding is one owned position valued at this week's resale price.
type Holding struct {
	Machine  *domain.Machine
	Quantity int
	Quote    *domain.ResaleQuote
}

// Portfolio is the wallet plus owned machines.
type Portfolio struct {
	Money    int64
	Holdings []Holding // ordered by machine ID
	Value    int64     // resale value of all holdings
	Owned    int       // total quantity
}

// Portfolio values every owned position.
func (s *Session) Portfolio() (*Portfolio, error) {
	ids := make([]int64, 0, len(s.positions))
	for id := range s.positions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	p := &Portfolio{Money: s.money, Holdings: make([]Holding, 0, len(ids))}
	for _, id := range ids {
		qty := s.positions[id]
		m, ok := s.cat.Get(id)
		if !ok {
			return nil, fmt.Errorf("portfolio machine %d: %w", id, ErrUnknownMachine)
		}
		q, err := s.pricer.QuoteResale(m, qty, s.marketPrice(m))
		if err != nil {
			return nil, fmt.Errorf("value machine %d: %w", id, err)
		}
		p.Holdings = append(p.Holdings, Holding{Machine: m, Quantity: qty, Quote: q})
		p.Value += q.Total
		p.Owned += qty
	}
	return p, nil
}

// Owned returns the owned quantity of a machine.
func (s *Session) Owned(id int64) int {
	return s.positions[id]
}
