package core

import "time"

// UnitPosition is the per-tick view of a unit for renderers.
type UnitPosition struct {
	UnitID  uint64      `json:"unitId"`
	OwnerID string      `json:"ownerId"`
	LineID  uint64      `json:"lineId"`
	Coord   LatLng      `json:"coord"`
	Bearing float64     `json:"bearing"`
	Color   string      `json:"color"`
	State   MotionState `json:"state"`
}

type TerminalStatus struct {
	TerminalID uint64   `json:"terminalId"`
	Demand     Demand   `json:"demand"`
	Occupancy  int      `json:"occupancy"`
	Capacity   int      `json:"capacity"`
	Occupants  []uint64 `json:"occupants,omitempty"`
}

// BalanceUpdate is emitted for owners whose balance changed during a tick.
type BalanceUpdate struct {
	OwnerID string `json:"ownerId"`
	Balance int64  `json:"balance"`
	Delta   int64  `json:"delta"`
}

// SettlementRecord is the monthly bill of one owner.
type SettlementRecord struct {
	OwnerID         string `json:"ownerId"`
	LineMaintenance int64  `json:"lineMaintenance"`
	UnitMaintenance int64  `json:"unitMaintenance"`
	LoanPayments    int64  `json:"loanPayments"`
	Total           int64  `json:"total"`
}

type TickStats struct {
	TimeScale              float64 `json:"timeScale"`
	Terminals              int     `json:"terminals"`
	Lines                  int     `json:"lines"`
	Units                  int     `json:"units"`
	Arrivals               int     `json:"arrivals"`
	Revenue                int64   `json:"revenue"`
	LastMonthlyMaintenance int64   `json:"lastMonthlyMaintenance"`
}

// TickPayload is the broadcast produced by every simulation tick.
type TickPayload struct {
	Tick       uint64             `json:"tick"`
	GameTime   time.Time          `json:"gameTime"`
	Units      []UnitPosition     `json:"units"`
	Terminals  []TerminalStatus   `json:"terminals"`
	Balances   []BalanceUpdate    `json:"balances,omitempty"`
	Settlement []SettlementRecord `json:"settlement,omitempty"`
	Stats      TickStats          `json:"stats"`
}

// WorldStatus is a summary of the running world.
type WorldStatus struct {
	Tick      uint64    `json:"tick"`
	GameTime  time.Time `json:"gameTime"`
	TimeScale float64   `json:"timeScale"`
	Owners    int       `json:"owners"`
	Terminals int       `json:"terminals"`
	Lines     int       `json:"lines"`
	Units     int       `json:"units"`
}
