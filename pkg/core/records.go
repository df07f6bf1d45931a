package core

import (
	"errors"
	"time"
)

// ErrNoSnapshot is returned by persistence backends that hold no world yet.
var ErrNoSnapshot = errors.New("no persisted world")

// OwnerRecord is the persisted and externally visible state of a player.
type OwnerRecord struct {
	ID                string       `json:"id"`
	Balance           int64        `json:"balance"`
	ConstructionSpend int64        `json:"constructionSpend"`
	Loans             []LoanRecord `json:"loans,omitempty"`
}

// LoanRecord is an amortizing loan held by an owner.
type LoanRecord struct {
	ID             uint64  `json:"id"`
	Principal      int64   `json:"principal"`
	Remaining      int64   `json:"remaining"`
	MonthlyPayment int64   `json:"monthlyPayment"`
	AnnualRate     float64 `json:"annualRate"`
	TermMonths     int     `json:"termMonths"`
	MonthsPaid     int     `json:"monthsPaid"`
}

// TerminalRecord is a station or airport.
type TerminalRecord struct {
	ID      uint64       `json:"id"`
	OwnerID string       `json:"ownerId"`
	Name    string       `json:"name"`
	Coord   LatLng       `json:"coord"`
	Kind    TerminalKind `json:"kind"`
	Tier    Tier         `json:"tier"`
	Demand  Demand       `json:"demand"`
	Lines   []uint64     `json:"lines,omitempty"`
}

// LineRecord is a built line. Coords is the full route polyline and
// TerminalIDs lists the terminals it serves in route order.
type LineRecord struct {
	ID          uint64    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Track       TrackType `json:"track"`
	Coords      []LatLng  `json:"coords"`
	TerminalIDs []uint64  `json:"terminalIds"`
	Cost        int64     `json:"cost"`
	Color       string    `json:"color"`
}

// UnitRecord is a train or aircraft. LineID is zero for idle units.
type UnitRecord struct {
	ID           uint64      `json:"id"`
	LineID       uint64      `json:"lineId"`
	OwnerID      string      `json:"ownerId"`
	Category     string      `json:"category"`
	PurchaseCost int64       `json:"purchaseCost"`
	PositionKm   float64     `json:"positionKm"`
	State        MotionState `json:"state"`
	Reversed     bool        `json:"reversed"`
	StopTimer    float64     `json:"stopTimer"`
	Coord        LatLng      `json:"coord"`
}

// WorldStats carries the clock and id counters of a world.
type WorldStats struct {
	GameTime               time.Time `json:"gameTime"`
	TimeScale              float64   `json:"timeScale"`
	NextTerminalID         uint64    `json:"nextTerminalId"`
	NextLineID             uint64    `json:"nextLineId"`
	NextUnitID             uint64    `json:"nextUnitId"`
	NextLoanID             uint64    `json:"nextLoanId"`
	LastMonthlyMaintenance int64     `json:"lastMonthlyMaintenance"`
}

// Snapshot is a complete persisted world. Terminal occupancy is not part of
// it; it is rebuilt from unit positions on restore.
type Snapshot struct {
	Stats     WorldStats       `json:"stats"`
	Owners    []OwnerRecord    `json:"owners"`
	Terminals []TerminalRecord `json:"terminals"`
	Lines     []LineRecord     `json:"lines"`
	Units     []UnitRecord     `json:"units"`
}
