package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"slot-parlor/internal/domain"
	"slot-parlor/internal/drift"
	"slot-parlor/internal/observability"
)

// DigestItem is one notable weekly change.
type DigestItem struct {
	MachineID   int64
	MachineName string
	Score       float64
	Tier        domain.Tier
	Delta       float64
	Trend       domain.Trend
	Narrative   string
}

// WeekReport is the outcome of advancing one week.
type WeekReport struct {
	Week    int
	Date    time.Time
	Results []drift.Result
	Digest  []DigestItem
}

// AdvanceWeek moves the simulation forward one week.
// Steps:
//  1. Refuse once the final week is reached
//  2. Drift every machine in ID order
//  3. Build the digest of large changes with their narratives
//  4. Export the week's snapshots to the archive
func (s *Session) AdvanceWeek(ctx context.Context) (*WeekReport, error) {
	// 1. Bound
	current := s.cat.Week()
	if current >= s.tuning.MaxWeeks {
		return nil, fmt.Errorf("advance past week %d: %w", current, ErrSimulationOver)
	}
	next := current + 1

	// 2. Drift
	results, err := s.cat.AdvanceWeek(ctx, next, s.driftSrc)
	if err != nil {
		return nil, err
	}

	// 3. Digest
	var digest []DigestItem
	for _, res := range results {
		if !s.forecaster.DigestWorthy(res.Delta) {
			continue
		}
		m, ok := s.cat.Get(res.MachineID)
		if !ok {
			continue
		}
		fc, err := s.forecast(ctx, m)
		if err != nil {
			return nil, err
		}
		trend := domain.TrendStable
		if fc != nil {
			trend = fc.Trend
		}
		digest = append(digest, DigestItem{
			MachineID:   m.ID,
			MachineName: m.Name,
			Score:       m.PopularityScore,
			Tier:        m.PopularityTier,
			Delta:       res.Delta,
			Trend:       trend,
			Narrative:   s.narrative(m, trend, next),
		})
	}
	s.digest = digest

	// 4. Export
	s.exportWeek(ctx, next)

	s.log.Info().
		Str("session_id", s.id).
		Int("week", next).
		Int("digest", len(digest)).
		Msg("week advanced")

	return &WeekReport{
		Week:    next,
		Date:    s.clock(next),
		Results: results,
		Digest:  cloneDigest(digest),
	}, nil
}

// Digest returns the digest of the most recent week advance.
func (s *Session) Digest() []DigestItem {
	return cloneDigest(s.digest)
}

// forecast summarises the machine's recent history.
func (s *Session) forecast(ctx context.Context, m *domain.Machine) (*domain.ForecastResult, error) {
	window := s.tuning.Forecast.Window
	if window < 1 {
		window = 1
	}
	history, err := s.store.Window(ctx, m.ID, window)
	if err != nil {
		return nil, fmt.Errorf("history window for machine %d: %w", m.ID, err)
	}
	return s.forecaster.Forecast(history), nil
}

// narrative returns the machine's rumour for the week, drawing it once.
func (s *Session) narrative(m *domain.Machine, trend domain.Trend, week int) string {
	key := marketKey{machineID: m.ID, week: week}
	if v, ok := s.narratives.Get(key); ok {
		return v.(string)
	}
	text := s.forecaster.Narrate(m, trend, s.flavorSrc)
	s.narratives.Add(key, text)
	return text
}

// exportWeek writes every machine's snapshot for week to the archive.
// Export failures are logged and counted; the game continues.
func (s *Session) exportWeek(ctx context.Context, week int) {
	if s.archive == nil {
		return
	}

	start := time.Now()
	snapshots := make([]*domain.WeeklySnapshot, 0, s.cat.Len())
	var err error
	for _, m := range s.cat.All() {
		latest, lerr := s.store.Latest(ctx, m.ID)
		if lerr != nil {
			err = errors.Join(err, fmt.Errorf("latest history for machine %d: %w", m.ID, lerr))
			continue
		}
		snapshots = append(snapshots, &domain.WeeklySnapshot{
			SessionID:   s.id,
			MachineID:   m.ID,
			MachineName: m.Name,
			Week:        week,
			Score:       latest.Score,
			Delta:       latest.Delta,
			Tier:        m.PopularityTier,
			Factors:     latest.Factors,
		})
	}
	if err == nil {
		err = s.archive.InsertBulk(ctx, snapshots)
	}

	observability.RecordExport("history_archive", time.Since(start).Seconds(), err)
	if err != nil {
		s.log.Warn().Err(err).Str("session_id", s.id).Int("week", week).Msg("history export failed")
	}
}

func cloneDigest(items []DigestItem) []DigestItem {
	if items == nil {
		return nil
	}
	out := make([]DigestItem, len(items))
	copy(out, items)
	return out
}
