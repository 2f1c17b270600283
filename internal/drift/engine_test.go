package drift

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slot-parlor/internal/domain"
	"slot-parlor/internal/rng"
	"slot-parlor/internal/scoring"
	"slot-parlor/internal/storage"
	"slot-parlor/internal/storage/memory"
)

var anchor = time.Date(2025, 4, 7, 0, 0, 0, 0, time.UTC)

func newEngine(store storage.HistoryStore) *Engine {
	return NewEngine(Options{
		Config: DefaultConfig(),
		Store:  store,
		Clock:  Calendar(anchor),
		Logger: zerolog.Nop(),
	})
}

func seededMachine() *domain.Machine {
	m := &domain.Machine{ID: 42, SpecScore: 8, IPScore: 6, ReleaseDate: anchor.AddDate(0, 0, -10)}
	scoring.Rescore(m, 7.9)
	return m
}

func TestCalendar(t *testing.T) {
	clock := Calendar(anchor)
	assert.Equal(t, anchor, clock(1))
	assert.Equal(t, anchor.AddDate(0, 0, 14), clock(3))
}

func TestEngine_Advance(t *testing.T) {
	store := memory.NewHistoryStore(0)
	engine := newEngine(store)
	ctx := context.Background()

	m := seededMachine()
	require.NoError(t, store.Append(ctx, &domain.HistoryEntry{MachineID: m.ID, Week: 1, Score: m.PopularityScore}))

	res, err := engine.Advance(ctx, m, 2, m.PopularityScore, rng.NewSequence(0.75))
	require.NoError(t, err)

	// Machine mutated through scoring.Rescore
	assert.Equal(t, res.NewScore, m.PopularityScore)
	assert.Equal(t, scoring.Classify(res.NewScore), m.PopularityTier)

	// History recorded
	latest, err := store.Latest(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Week)
	assert.Equal(t, res.NewScore, latest.Score)
	assert.Equal(t, res.Delta, latest.Delta)
}

func TestEngine_StepRecordApply(t *testing.T) {
	store := memory.NewHistoryStore(0)
	engine := newEngine(store)
	ctx := context.Background()

	m := seededMachine()
	require.NoError(t, store.Append(ctx, &domain.HistoryEntry{MachineID: m.ID, Week: 1, Score: m.PopularityScore}))

	// Step computes only
	res, err := engine.Step(ctx, m, 2, m.PopularityScore, rng.NewSequence(0.75))
	require.NoError(t, err)
	assert.Equal(t, 7.9, m.PopularityScore)
	latest, err := store.Latest(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, latest.Week)

	// Record writes the entry, the machine is still untouched
	require.NoError(t, engine.Record(ctx, res))
	assert.Equal(t, 7.9, m.PopularityScore)
	latest, err = store.Latest(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Week)
	assert.ErrorIs(t, engine.Record(ctx, res), storage.ErrDuplicateKey)

	engine.Apply(m, res)
	assert.Equal(t, res.NewScore, m.PopularityScore)
	assert.Equal(t, scoring.Classify(res.NewScore), m.PopularityTier)
}

func TestEngine_ReleaseAgeUsesCalendar(t *testing.T) {
	store := memory.NewHistoryStore(0)
	engine := newEngine(store)
	ctx := context.Background()

	// Released on the anchor: week 53 is 364 days later
	m := &domain.Machine{ID: 1, SpecScore: 5, IPScore: 5, ReleaseDate: anchor}
	scoring.Rescore(m, 5)

	res, err := engine.Advance(ctx, m, 53, 5, rng.NewSequence(0.5))
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Factors.Release)

	m2 := &domain.Machine{ID: 2, SpecScore: 5, IPScore: 5, ReleaseDate: anchor}
	res, err = engine.Advance(ctx, m2, 1, 5, rng.NewSequence(0.5))
	require.NoError(t, err)
	assert.Equal(t, 0.3, res.Factors.Release)
}

func TestEngine_RejectsDoubleAdvance(t *testing.T) {
	store := memory.NewHistoryStore(0)
	engine := newEngine(store)
	ctx := context.Background()

	m := seededMachine()
	_, err := engine.Advance(ctx, m, 2, m.PopularityScore, rng.NewSequence(0.9))
	require.NoError(t, err)

	scoreAfter := m.PopularityScore
	tierAfter := m.PopularityTier
	src := rng.NewSequence(0.1)

	_, err = engine.Advance(ctx, m, 2, m.PopularityScore, src)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	_, err = engine.Advance(ctx, m, 1, m.PopularityScore, src)
	assert.ErrorIs(t, err, storage.ErrNonMonotonicWeek)

	// Rejected advances leave the machine and RNG untouched
	assert.Equal(t, scoreAfter, m.PopularityScore)
	assert.Equal(t, tierAfter, m.PopularityTier)
	assert.Equal(t, 0, src.Draws())

	entries, _ := store.GetByMachineID(ctx, m.ID)
	assert.Len(t, entries, 1)
}

func TestEngine_InvalidInput(t *testing.T) {
	engine := newEngine(memory.NewHistoryStore(0))

	_, err := engine.Advance(context.Background(), nil, 2, 5, rng.NewSequence())
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	_, err = engine.Advance(context.Background(), seededMachine(), 0, 5, rng.NewSequence())
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestEngine_ManyWeeksStayBounded(t *testing.T) {
	store := memory.NewHistoryStore(0)
	engine := newEngine(store)
	ctx := context.Background()
	src := rng.New(11)

	m := seededMachine()
	for week := 2; week <= 120; week++ {
		prev := m.PopularityScore
		res, err := engine.Advance(ctx, m, week, prev, src)
		require.NoError(t, err)
		require.LessOrEqual(t, absDiff(res.NewScore, prev), 1.0+1e-9)
		require.True(t, m.PopularityTier.Valid())
	}

	entries, _ := store.GetByMachineID(ctx, m.ID)
	assert.Len(t, entries, memory.DefaultHistoryCapacity)
	assert.Equal(t, 120, entries[len(entries)-1].Week)
}
