// Package catalog holds the in-memory machine catalog of a session: it builds
// machines from parsed rows, seeds their popularity, indexes them and drives
// the weekly drift over every machine.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"slot-parlor/internal/domain"
	"slot-parlor/internal/drift"
	"slot-parlor/internal/observability"
	"slot-parlor/internal/rng"
	"slot-parlor/internal/scoring"
	"slot-parlor/internal/storage"
)

// Catalog is the set of machines of one session, ordered by ID.
// Not safe for concurrent use; callers serialise access.
type Catalog struct {
	machines []*domain.Machine
	byID     map[int64]*domain.Machine
	byMaker  map[string][]*domain.Machine
	byIP     map[string][]*domain.Machine
	byTier   map[domain.Tier][]*domain.Machine

	week    int
	pending *pendingWeek
	store   storage.HistoryStore
	engine  *drift.Engine
	log     zerolog.Logger
}

// pendingWeek is a computed week whose history entries are not all recorded yet.
type pendingWeek struct {
	week     int
	results  []drift.Result
	recorded int
}

// Options contains configuration for loading a Catalog.
type Options struct {
	// Store receives the week-1 seed entries and every weekly entry after that.
	Store storage.HistoryStore
	// Engine drives weekly drift. Defaults to an engine on Store with the
	// default drift config and a calendar anchored at the load time.
	Engine *drift.Engine
	// Weights for the initial composite score. Zero value means defaults.
	Weights scoring.Weights
	// Skipped is the number of rows the parser dropped, reported in metrics.
	Skipped int
	Logger  zerolog.Logger
}

// Load builds a catalog from parsed rows.
// Steps:
//  1. Build machines, rejecting duplicate IDs
//  2. Seed each composite score and tier
//  3. Record the week-1 history entry per machine
//  4. Build the maker, IP name and tier indexes
//
// Any failure returns ErrDataLoad or a store error; no partial catalog is returned.
func Load(ctx context.Context, rows []Row, now time.Time, opts Options) (*Catalog, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("%w: history store is required", ErrDataLoad)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no machines", ErrDataLoad)
	}

	weights := opts.Weights
	if weights == (scoring.Weights{}) {
		weights = scoring.DefaultWeights()
	}
	engine := opts.Engine
	if engine == nil {
		engine = drift.NewEngine(drift.Options{
			Config: drift.DefaultConfig(),
			Store:  opts.Store,
			Clock:  drift.Calendar(now),
			Logger: opts.Logger,
		})
	}

	c := &Catalog{
		byID:   make(map[int64]*domain.Machine, len(rows)),
		week:   1,
		store:  opts.Store,
		engine: engine,
		log:    opts.Logger.With().Str("component", "catalog").Logger(),
	}

	// 1-2. Build and seed
	for _, row := range rows {
		if _, dup := c.byID[row.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate machine id %d (line %d)", ErrDataLoad, row.ID, row.Line)
		}
		m := newMachine(row, now)
		scoring.Rescore(m, weights.Compute(scoring.SubScore(m.SpecScore), scoring.SubScore(m.IPScore), m.ReleaseDate, now))
		c.byID[m.ID] = m
		c.machines = append(c.machines, m)
	}
	sort.Slice(c.machines, func(i, j int) bool {
		return c.machines[i].ID < c.machines[j].ID
	})

	// 3. Week-1 seed
	for _, m := range c.machines {
		seed := &domain.HistoryEntry{
			MachineID: m.ID,
			Week:      1,
			Score:     m.PopularityScore,
		}
		if err := c.store.Append(ctx, seed); err != nil {
			return nil, fmt.Errorf("seed history for machine %d: %w", m.ID, err)
		}
	}

	// 4. Indexes
	c.rebuildIndexes()

	observability.RecordCatalogLoad(len(c.machines), opts.Skipped)
	c.log.Info().
		Int("machines", len(c.machines)).
		Int("skipped", opts.Skipped).
		Int("makers", len(c.byMaker)).
		Msg("catalog loaded")

	return c, nil
}

func newMachine(row Row, now time.Time) *domain.Machine {
	m := &domain.Machine{
		ID:            row.ID,
		Name:          row.Name,
		Maker:         row.Maker,
		Series:        row.Series,
		IPType:        row.IPType,
		MachineType:   row.MachineType,
		Description:   row.Description,
		SpecSheet:     row.SpecSheet,
		ModelNumber:   row.ModelNumber,
		BasePrice:     row.BasePrice,
		CoinUnitPrice: row.CoinUnitPrice,
		NetGain:       row.NetGain,
		CoinsPer1000:  row.CoinsPer1000,
		ReleaseDate:   row.ReleaseDate,
		SpecScore:     row.SpecScore,
		IPScore:       row.IPScore,
		ReleaseScore:  row.ReleaseScore,
	}
	if m.ReleaseDate.IsZero() {
		m.ReleaseDate = now
	}
	return m
}

func (c *Catalog) rebuildIndexes() {
	c.byMaker = make(map[string][]*domain.Machine)
	c.byIP = make(map[string][]*domain.Machine)
	c.byTier = make(map[domain.Tier][]*domain.Machine)

	for _, m := range c.machines {
		c.byMaker[m.Maker] = append(c.byMaker[m.Maker], m)
		c.byIP[m.IPName()] = append(c.byIP[m.IPName()], m)
		c.byTier[m.PopularityTier] = append(c.byTier[m.PopularityTier], m)
	}
}

// Week returns the latest simulated week recorded in the catalog.
func (c *Catalog) Week() int {
	return c.week
}

// Len returns the number of machines.
func (c *Catalog) Len() int {
	return len(c.machines)
}

// History returns the retained weekly series of a machine, ordered by week.
func (c *Catalog) History(ctx context.Context, id int64) ([]*domain.HistoryEntry, error) {
	return c.store.GetByMachineID(ctx, id)
}

// AdvanceWeek drifts every machine for week, in ID order.
// week must be exactly one past the catalog's current week; anything else
// is rejected before any randomness is consumed.
// Steps:
//  1. Compute every machine's step; a failure here writes nothing
//  2. Record the history entries
//  3. Rescore the machines and rebuild the indexes
//
// Machines keep their scores until every entry is recorded. If recording
// fails, a retry of the same week resumes from the first unrecorded entry
// without drawing again.
func (c *Catalog) AdvanceWeek(ctx context.Context, week int, src rng.Source) ([]drift.Result, error) {
	switch {
	case week == c.week:
		return nil, fmt.Errorf("advance catalog to week %d: %w", week, storage.ErrDuplicateKey)
	case week < c.week:
		return nil, fmt.Errorf("advance catalog to week %d after week %d: %w", week, c.week, storage.ErrNonMonotonicWeek)
	case week > c.week+1:
		return nil, fmt.Errorf("advance catalog to week %d skips week %d: %w", week, c.week+1, storage.ErrInvalidInput)
	}

	start := time.Now()

	// 1. Compute
	if c.pending == nil || c.pending.week != week {
		results := make([]drift.Result, 0, len(c.machines))
		for _, m := range c.machines {
			res, err := c.engine.Step(ctx, m, week, m.PopularityScore, src)
			if err != nil {
				return nil, fmt.Errorf("advance week %d: %w", week, err)
			}
			results = append(results, *res)
		}
		c.pending = &pendingWeek{week: week, results: results}
	} else {
		c.log.Warn().
			Int("week", week).
			Int("recorded", c.pending.recorded).
			Msg("resuming partially recorded week")
	}

	// 2. Record
	results := c.pending.results
	for c.pending.recorded < len(results) {
		if err := c.engine.Record(ctx, &results[c.pending.recorded]); err != nil {
			return nil, fmt.Errorf("advance week %d: %w", week, err)
		}
		c.pending.recorded++
	}

	// 3. Apply
	for i, m := range c.machines {
		c.engine.Apply(m, &results[i])
	}
	c.pending = nil

	c.week = week
	c.rebuildIndexes()

	observability.RecordWeekAdvanced(week, time.Since(start).Seconds())
	c.log.Info().
		Int("week", week).
		Int("machines", len(results)).
		Dur("duration", time.Since(start)).
		Msg("week advanced")

	return results, nil
}
