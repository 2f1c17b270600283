package drift

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"slot-parlor/internal/domain"
	"slot-parlor/internal/observability"
	"slot-parlor/internal/rng"
	"slot-parlor/internal/scoring"
	"slot-parlor/internal/storage"
)

// Engine errors
var (
	// ErrInvariantViolation indicates a post-drift score outside [0,10].
	// It is a programming error, never a recoverable condition.
	ErrInvariantViolation = errors.New("popularity score outside [0,10] after drift")
)

// Engine applies weekly drift to machines and records it in a history store.
type Engine struct {
	cfg   Config
	store storage.HistoryStore
	clock func(week int) time.Time
	log   zerolog.Logger
}

// Options contains configuration for creating an Engine.
type Options struct {
	Config Config
	Store  storage.HistoryStore
	// Clock maps a simulated week to the date used for release age.
	// Defaults to wall-clock time.
	Clock  func(week int) time.Time
	Logger zerolog.Logger
}

// NewEngine creates a drift engine.
func NewEngine(opts Options) *Engine {
	clock := opts.Clock
	if clock == nil {
		clock = func(int) time.Time { return time.Now() }
	}
	return &Engine{
		cfg:   opts.Config,
		store: opts.Store,
		clock: clock,
		log:   opts.Logger.With().Str("component", "drift").Logger(),
	}
}

// Calendar returns a clock where week 1 is anchor and each week adds 7 days.
func Calendar(anchor time.Time) func(week int) time.Time {
	return func(week int) time.Time {
		return anchor.AddDate(0, 0, 7*(week-1))
	}
}

// Advance drifts one machine for the given week: Step, Record, then Apply.
// A rejected advance consumes no randomness and leaves the machine untouched.
func (e *Engine) Advance(ctx context.Context, m *domain.Machine, week int, prev float64, src rng.Source) (*Result, error) {
	res, err := e.Step(ctx, m, week, prev, src)
	if err != nil {
		return nil, err
	}
	if err := e.Record(ctx, res); err != nil {
		return nil, err
	}
	e.Apply(m, res)
	return res, nil
}

// Step computes one machine's drift for week without writing anything.
// Steps:
//  1. Validate the week against the machine's latest history entry
//  2. Compute the drift step (one RNG draw)
//  3. Check the score invariant
//
// A week rejected in step 1 consumes no randomness.
func (e *Engine) Step(ctx context.Context, m *domain.Machine, week int, prev float64, src rng.Source) (*Result, error) {
	if m == nil || week < 1 {
		return nil, storage.ErrInvalidInput
	}

	// 1. Precondition: one entry per (machine, week), weeks strictly increasing
	latest, err := e.store.Latest(ctx, m.ID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("latest history for machine %d: %w", m.ID, err)
	case week == latest.Week:
		return nil, fmt.Errorf("advance machine %d week %d: %w", m.ID, week, storage.ErrDuplicateKey)
	case week < latest.Week:
		return nil, fmt.Errorf("advance machine %d week %d after week %d: %w", m.ID, week, latest.Week, storage.ErrNonMonotonicWeek)
	}

	// 2. Compute
	days := scoring.DaysSince(m.ReleaseDate, e.clock(week))
	res := Compute(e.cfg, m, week, prev, days, src)

	// 3. Invariant
	if res.NewScore < scoring.MinScore || res.NewScore > scoring.MaxScore {
		e.log.Error().
			Int64("machine_id", m.ID).
			Int("week", week).
			Float64("score", res.NewScore).
			Msg("score invariant violated")
		return nil, fmt.Errorf("machine %d week %d score %.1f: %w", m.ID, week, res.NewScore, ErrInvariantViolation)
	}

	return &res, nil
}

// Record appends the history entry of a computed step.
func (e *Engine) Record(ctx context.Context, res *Result) error {
	if err := e.store.Append(ctx, res.Entry()); err != nil {
		return fmt.Errorf("append history for machine %d week %d: %w", res.MachineID, res.Week, err)
	}
	return nil
}

// Apply rescores the machine with a recorded step.
func (e *Engine) Apply(m *domain.Machine, res *Result) {
	fromBand := m.PopularityTier.Band()
	scoring.Rescore(m, res.NewScore)
	observability.RecordDrift(res.Delta, string(fromBand), string(m.PopularityTier.Band()))

	e.log.Debug().
		Int64("machine_id", m.ID).
		Int("week", res.Week).
		Float64("score", res.NewScore).
		Float64("delta", res.Delta).
		Msg("drift applied")
}
