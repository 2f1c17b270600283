package domain

// PurchaseQuote prices buying new machines from the maker.
type PurchaseQuote struct {
	MachineID     int64
	Quantity      int
	UnitPrice     int64 // list price per machine
	ListTotal     int64 // UnitPrice * Quantity
	Total         int64 // amount charged
	IslandApplied bool  // bulk discount applied (Quantity >= one island)
	Islands       int   // full islands contained in Quantity
	Savings       int64 // ListTotal - Total
}

// ResaleQuote prices selling owned machines on the used market.
type ResaleQuote struct {
	MachineID   int64
	Quantity    int
	MarketPrice int64 // used-market price for one machine this week
	UnitPrice   int64 // resale price per machine after floor
	Total       int64
}
