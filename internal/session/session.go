// Package session owns one simulated game: the machine catalog, its history
// store, the random sources, the wallet and the owned positions. Hosts hold a
// Session and call into it; nothing here is process-global.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog"

	"slot-parlor/internal/catalog"
	"slot-parlor/internal/domain"
	"slot-parlor/internal/drift"
	"slot-parlor/internal/forecast"
	"slot-parlor/internal/observability"
	"slot-parlor/internal/pricing"
	"slot-parlor/internal/rng"
	"slot-parlor/internal/scoring"
	"slot-parlor/internal/storage"
	"slot-parlor/internal/storage/memory"
)

// Game defaults.
const (
	DefaultInitialMoney int64 = 10_000_000
	DefaultMaxWeeks           = 260 // five simulated years
	DefaultCacheSize          = 4096
)

// Session errors
var (
	ErrUnknownMachine        = errors.New("unknown machine")
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrInvalidQuantity       = pricing.ErrInvalidQuantity
	ErrSimulationOver        = errors.New("simulation over")
)

// Tuning is the game balance of a session.
type Tuning struct {
	InitialMoney    int64
	MaxWeeks        int
	HistoryCapacity int
	Weights         scoring.Weights
	Pricing         pricing.Config
	Drift           drift.Config
	Forecast        forecast.Config
}

// DefaultTuning returns the stock game balance.
func DefaultTuning() Tuning {
	return Tuning{
		InitialMoney:    DefaultInitialMoney,
		MaxWeeks:        DefaultMaxWeeks,
		HistoryCapacity: memory.DefaultHistoryCapacity,
		Weights:         scoring.DefaultWeights(),
		Pricing:         pricing.DefaultConfig(),
		Drift:           drift.DefaultConfig(),
		Forecast:        forecast.DefaultConfig(),
	}
}

// Options contains configuration for creating a Session.
type Options struct {
	Rows    []catalog.Row // parsed catalog, kept for Reset
	Skipped int           // rows the parser dropped
	// Now anchors week 1 of the simulated calendar. Defaults to the current time.
	Now time.Time
	// Seed drives every random draw. 0 picks one from the clock.
	Seed   uint64
	Tuning *Tuning // nil means DefaultTuning
	// Journal receives executed trades. Defaults to an in-memory journal.
	Journal storage.TradeJournal
	// Archive receives weekly snapshots. Optional.
	Archive   storage.HistoryArchive
	CacheSize int // market price and narrative cache entries
	Logger    zerolog.Logger
}

// marketKey identifies one machine in one week.
type marketKey struct {
	machineID int64
	week      int
}

// Session is one game. Not safe for concurrent use; hosts serialise access.
type Session struct {
	rows    []catalog.Row
	skipped int
	now     time.Time
	seed    uint64
	tuning  Tuning
	journal storage.TradeJournal
	archive storage.HistoryArchive
	log     zerolog.Logger

	pricer     *pricing.Calculator
	forecaster *forecast.Generator
	clock      func(week int) time.Time

	// Per-game state, rebuilt by Reset.
	id         string
	store      storage.HistoryStore
	cat        *catalog.Catalog
	driftSrc   rng.Source
	flavorSrc  rng.Source
	money      int64
	positions  map[int64]int
	trades     []*domain.TradeRecord
	digest     []DigestItem
	prices     *lru.Cache // marketKey -> int64
	narratives *lru.Cache // marketKey -> string
}

// New creates a session and loads its catalog.
func New(ctx context.Context, opts Options) (*Session, error) {
	tuning := DefaultTuning()
	if opts.Tuning != nil {
		tuning = *opts.Tuning
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	journal := opts.Journal
	if journal == nil {
		journal = memory.NewTradeJournal()
	}
	cacheSize := opts.CacheSize
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}

	prices, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create price cache: %w", err)
	}
	narratives, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create narrative cache: %w", err)
	}

	s := &Session{
		rows:       opts.Rows,
		skipped:    opts.Skipped,
		now:        now,
		seed:       seed,
		tuning:     tuning,
		journal:    journal,
		archive:    opts.Archive,
		log:        opts.Logger.With().Str("component", "session").Logger(),
		pricer:     pricing.NewCalculator(tuning.Pricing),
		forecaster: forecast.NewGenerator(tuning.Forecast),
		clock:      drift.Calendar(now),
		prices:     prices,
		narratives: narratives,
	}

	if err := s.start(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// start builds fresh per-game state from the original rows.
func (s *Session) start(ctx context.Context) error {
	store := memory.NewHistoryStore(s.tuning.HistoryCapacity)
	engine := drift.NewEngine(drift.Options{
		Config: s.tuning.Drift,
		Store:  store,
		Clock:  s.clock,
		Logger: s.log,
	})

	cat, err := catalog.Load(ctx, s.rows, s.now, catalog.Options{
		Store:   store,
		Engine:  engine,
		Weights: s.tuning.Weights,
		Skipped: s.skipped,
		Logger:  s.log,
	})
	if err != nil {
		return err
	}

	s.id = uuid.NewString()
	s.store = store
	s.cat = cat
	s.driftSrc = rng.New(s.seed)
	s.flavorSrc = rng.New(s.seed + 1)
	s.money = s.tuning.InitialMoney
	s.positions = make(map[int64]int)
	s.trades = nil
	s.digest = nil
	s.prices.Purge()
	s.narratives.Purge()

	s.exportWeek(ctx, 1)
	observability.UpdateMoney(s.money)

	s.log.Info().
		Str("session_id", s.id).
		Uint64("seed", s.seed).
		Int("machines", cat.Len()).
		Msg("session started")
	return nil
}

// Reset discards all progress and rebuilds the catalog from the original rows
// with the original seed and load time. The session gets a new ID.
func (s *Session) Reset(ctx context.Context) error {
	prev := s.id
	if err := s.start(ctx); err != nil {
		return fmt.Errorf("reset session %s: %w", prev, err)
	}
	s.log.Info().Str("previous_session_id", prev).Str("session_id", s.id).Msg("session reset")
	return nil
}

// ID returns the current game's identifier.
func (s *Session) ID() string { return s.id }

// Week returns the current simulated week, starting at 1.
func (s *Session) Week() int { return s.cat.Week() }

// Money returns the wallet balance in yen.
func (s *Session) Money() int64 { return s.money }

// Seed returns the seed driving the session's random draws.
func (s *Session) Seed() uint64 { return s.seed }

// Tuning returns the session's game balance.
func (s *Session) Tuning() Tuning { return s.tuning }

// Catalog exposes the machine catalog for queries.
func (s *Session) Catalog() *catalog.Catalog { return s.cat }

// Date returns the simulated calendar date of a week.
func (s *Session) Date(week int) time.Time { return s.clock(week) }

// Status is the game status shown by hosts.
type Status struct {
	SessionID     string
	Week          int
	MaxWeeks      int
	Date          time.Time
	Money         int64
	OwnedMachines int // total owned quantity
	Positions     int // distinct machines owned
	Over          bool
}

// Status returns the current game status.
func (s *Session) Status() Status {
	owned := 0
	for _, qty := range s.positions {
		owned += qty
	}
	week := s.cat.Week()
	return Status{
		SessionID:     s.id,
		Week:          week,
		MaxWeeks:      s.tuning.MaxWeeks,
		Date:          s.clock(week),
		Money:         s.money,
		OwnedMachines: owned,
		Positions:     len(s.positions),
		Over:          week >= s.tuning.MaxWeeks,
	}
}
