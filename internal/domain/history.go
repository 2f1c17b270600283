package domain

// HistoryEntry is one weekly popularity observation for a machine.
// Entries are created once per (machine, week) and never mutated.
type HistoryEntry struct {
	MachineID int64
	Week      int             // 1-based simulated week, strictly increasing per machine
	Score     float64         // post-drift score
	Delta     float64         // change from the previous week
	Factors   FactorBreakdown // named contributions summing to Delta
}

// FactorBreakdown splits a weekly delta into its drivers.
type FactorBreakdown struct {
	Base       float64 // symmetric random walk
	IP         float64 // pull from IP score distance to neutral
	Spec       float64 // pull from spec score distance to neutral
	Release    float64 // positive push for machines younger than a year
	Adjustment float64 // gradual-change guard, score bounds and rounding
}

// Sum returns the total of all factors.
func (f FactorBreakdown) Sum() float64 {
	return f.Base + f.IP + f.Spec + f.Release + f.Adjustment
}

// Clone returns a detached copy of the entry.
func (e *HistoryEntry) Clone() *HistoryEntry {
	c := *e
	return &c
}

// WeeklySnapshot is a history entry tagged with its session, as exported to
// the analytics archive.
type WeeklySnapshot struct {
	SessionID   string
	MachineID   int64
	MachineName string
	Week        int
	Score       float64
	Delta       float64
	Tier        Tier
	Factors     FactorBreakdown
}
