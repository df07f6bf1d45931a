// pkg/core/types.go
package core

import "math"

// CoordTolerance is the per-axis tolerance, in degrees, under which two
// coordinates are treated as the same point.
const CoordTolerance = 1e-6

// LatLng is a WGS84 coordinate in degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Near reports whether o lies within CoordTolerance of c on both axes.
func (c LatLng) Near(o LatLng) bool {
	return math.Abs(c.Lat-o.Lat) < CoordTolerance && math.Abs(c.Lng-o.Lng) < CoordTolerance
}

// TerminalKind distinguishes rail stations from airports.
type TerminalKind string

const (
	KindRail TerminalKind = "rail"
	KindAir  TerminalKind = "air"
)

// Valid reports whether k is a known terminal kind.
func (k TerminalKind) Valid() bool {
	return k == KindRail || k == KindAir
}

// Tier is the size class of a terminal.
type Tier string

const (
	TierSmall  Tier = "small"
	TierMedium Tier = "medium"
	TierLarge  Tier = "large"
)

// Rank orders tiers from small (0) to large (2). Unknown tiers rank -1.
func (t Tier) Rank() int {
	switch t {
	case TierSmall:
		return 0
	case TierMedium:
		return 1
	case TierLarge:
		return 2
	default:
		return -1
	}
}

// Demand is the per-terminal passenger and freight demand.
type Demand struct {
	Passenger int `json:"passenger"`
	Freight   int `json:"freight"`
}

// TrackType is the construction type of a line.
type TrackType string

const (
	TrackSingle TrackType = "single"
	TrackDouble TrackType = "double"
	TrackLinear TrackType = "linear"
	TrackTram   TrackType = "tram"
	TrackAir    TrackType = "air"
)

// TerminalKind returns the kind of terminal a track type connects.
func (t TrackType) TerminalKind() TerminalKind {
	if t == TrackAir {
		return KindAir
	}
	return KindRail
}

// CargoKind selects the revenue formula of a vehicle category.
type CargoKind string

const (
	CargoPassenger CargoKind = "passenger"
	CargoFreight   CargoKind = "freight"
)

// MotionState is the externally visible state of a unit.
type MotionState string

const (
	StateRunning  MotionState = "running"
	StateStopping MotionState = "stopping"
	StateWaiting  MotionState = "waiting"
	StateIdle     MotionState = "idle"
)
