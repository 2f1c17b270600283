package domain

import "time"

// Machine represents one slot machine model in the parlor catalog.
// Identity and spec fields are fixed at load; only PopularityScore and
// PopularityTier change, and only through scoring.Rescore.
type Machine struct {
	ID          int64  // catalog key, stable for the session
	Name        string // display name, e.g. "パチスロ北斗の拳6号機"
	Maker       string // manufacturer
	Series      string // series name
	IPType      string // anime | game | original | ...
	MachineType string // AT | ART | A-type | ...
	Description string
	SpecSheet   string

	ModelNumber   float64 // regulation generation (5号機, 6号機, ...)
	BasePrice     int64   // new-machine price, never mutated
	CoinUnitPrice float64 // yen per coin
	NetGain       float64 // net coins per game during bonus
	CoinsPer1000  float64 // games per 1000 yen

	ReleaseDate time.Time

	// Fixed a-priori desirability inputs in [0,10]; zero means missing.
	SpecScore    float64
	IPScore      float64
	ReleaseScore float64 // as published in the catalog; composite uses computed recency

	// Mutable popularity.
	PopularityScore float64 // always within [0,10]
	PopularityTier  Tier    // derived from PopularityScore
}

// IPName returns the grouping key derived from the display name.
func (m *Machine) IPName() string {
	return DeriveIPName(m.Name)
}

// Clone returns a detached copy of the machine.
func (m *Machine) Clone() *Machine {
	c := *m
	return &c
}
