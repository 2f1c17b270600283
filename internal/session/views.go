package session

import (
	"context"
	"math"

	"github.com/markcheno/go-talib"

	"slot-parlor/internal/domain"
	"slot-parlor/internal/scoring"
)

// ListItem is one row of the machine list.
type ListItem struct {
	Machine *domain.Machine
	// Forecast is set only when confident enough for a badge; its narrative
	// is materialized.
	Forecast *domain.ForecastResult
}

// List decorates machines, typically a catalog query result, with forecast badges.
func (s *Session) List(ctx context.Context, machines []*domain.Machine) ([]ListItem, error) {
	items := make([]ListItem, 0, len(machines))
	week := s.cat.Week()

	for _, m := range machines {
		item := ListItem{Machine: m}

		fc, err := s.forecast(ctx, m)
		if err != nil {
			return nil, err
		}
		if fc != nil && s.forecaster.BadgeWorthy(fc.Confidence) {
			fc.Narrative = s.narrative(m, fc.Trend, week)
			item.Forecast = fc
		}
		items = append(items, item)
	}
	return items, nil
}

// Detail is the full view of one machine.
type Detail struct {
	Machine   *domain.Machine
	IPName    string
	Breakdown scoring.Breakdown // a-priori composite as of the current simulated date
	History   []*domain.HistoryEntry
	Scores    []float64 // score series for the chart, one per retained week
	// SMA is the moving average of Scores over the forecast window, aligned
	// with Scores and rounded to 2 decimals. Values before SMAStart are not
	// defined and left at 0.
	SMA         []float64
	SMAStart    int
	Forecast    *domain.ForecastResult
	Owned       int
	MarketPrice int64 // used-market price this week
	ResalePrice int64 // per machine, after the floor
}

// Detail returns the full view of a machine. Unknown IDs yield (nil, false, nil).
func (s *Session) Detail(ctx context.Context, id int64) (*Detail, bool, error) {
	m, ok := s.cat.Get(id)
	if !ok {
		return nil, false, nil
	}

	history, err := s.store.GetByMachineID(ctx, id)
	if err != nil {
		return nil, false, err
	}

	week := s.cat.Week()
	d := &Detail{
		Machine:   m,
		IPName:    m.IPName(),
		Breakdown: s.tuning.Weights.Breakdown(scoring.SubScore(m.SpecScore), scoring.SubScore(m.IPScore), m.ReleaseDate, s.clock(week)),
		History:   history,
		Scores:    make([]float64, len(history)),
		Owned:     s.positions[id],
	}
	for i, e := range history {
		d.Scores[i] = e.Score
	}
	d.SMA, d.SMAStart = movingAverage(d.Scores, s.tuning.Forecast.Window)

	d.Forecast = s.forecaster.Forecast(tail(history, s.tuning.Forecast.Window))
	if d.Forecast != nil {
		d.Forecast.Narrative = s.narrative(m, d.Forecast.Trend, week)
	}

	d.MarketPrice = s.marketPrice(m)
	d.ResalePrice = s.pricer.ResalePrice(d.MarketPrice)

	return d, true, nil
}

// movingAverage returns the simple moving average of series and the index
// of its first defined value. A series shorter than the period has none.
func movingAverage(series []float64, period int) ([]float64, int) {
	if period < 2 {
		out := make([]float64, len(series))
		copy(out, series)
		return out, 0
	}
	if len(series) < period {
		return make([]float64, len(series)), len(series)
	}
	sma := talib.Sma(series, period)
	for i := period - 1; i < len(sma); i++ {
		sma[i] = math.Round(sma[i]*100) / 100
	}
	return sma, period - 1
}

func tail(entries []*domain.HistoryEntry, n int) []*domain.HistoryEntry {
	if n > 0 && len(entries) > n {
		return entries[len(entries)-n:]
	}
	return entries
}
