package sim

import (
	"github.com/railtycoon/server/internal/economy"
	"github.com/railtycoon/server/pkg/core"
)

const (
	// SafetyDistanceKm is how far ahead of a terminal a unit asks to enter.
	SafetyDistanceKm = 1.0
	// ArrivalToleranceKm is the distance under which a unit counts as arrived.
	ArrivalToleranceKm = 0.05

	// distEpsilon absorbs float error when a unit is stepped onto the edge
	// of a safety zone.
	distEpsilon = 1e-9
)

// ArrivalFunc is called once per arrival, after the unit has been put into
// Stopping at the terminal.
type ArrivalFunc func(u *Unit, t *Terminal)

// Unit is a train or aircraft. Units on a line are never Idle; units off a
// line are always Idle.
type Unit struct {
	ID           uint64
	OwnerID      string
	LineID       uint64
	Category     economy.Category
	PurchaseCost int64

	PositionKm float64
	State      core.MotionState
	Reversed   bool
	StopTimer  float64
	Coord      core.LatLng
	Bearing    float64

	// held is the terminal whose slot the unit holds, either reserved on
	// approach or occupied while stopping.
	held    *Terminal
	waitFor *Terminal
}

func newUnit(id uint64, ownerID string, cat economy.Category, purchaseCost int64) *Unit {
	return &Unit{
		ID:           id,
		OwnerID:      ownerID,
		Category:     cat,
		PurchaseCost: purchaseCost,
		State:        core.StateIdle,
	}
}

// Move advances the unit by dt game seconds along its line.
func (u *Unit) Move(dt float64, l *Line, onArrive ArrivalFunc) {
	switch u.State {
	case core.StateIdle:
		return

	case core.StateStopping:
		u.StopTimer -= dt
		if u.StopTimer > 0 {
			return
		}
		u.StopTimer = 0
		u.releaseHeld()
		u.State = core.StateRunning
		return

	case core.StateWaiting:
		if u.waitFor == nil {
			// lost track of the terminal, e.g. after a restore
			if s, _, ok := l.nextStop(u.PositionKm, u.Reversed); ok {
				u.waitFor = s.terminal
			}
		}
		if u.waitFor != nil && u.waitFor.TryAdmit(u.ID) == Denied {
			return
		}
		u.hold(u.waitFor)
		u.waitFor = nil
		u.State = core.StateRunning
	}

	u.run(dt, l, onArrive)
}

func (u *Unit) run(dt float64, l *Line, onArrive ArrivalFunc) {
	remaining := u.Category.SpeedKmPerSecond() * dt
	if remaining < 0 {
		remaining = 0
	}

	for remaining > 0 {
		next, dist, ok := l.nextStop(u.PositionKm, u.Reversed)
		if !ok {
			u.runToEnd(remaining, l)
			break
		}

		if dist > SafetyDistanceKm+distEpsilon {
			step := dist - SafetyDistanceKm
			if remaining < step {
				u.advance(remaining)
				break
			}
			u.advance(step)
			remaining -= step
			continue
		}

		if next.terminal.TryAdmit(u.ID) == Denied {
			u.wait(next, l)
			return
		}
		u.hold(next.terminal)

		if remaining >= dist-ArrivalToleranceKm {
			u.arrive(next, l, onArrive)
			return
		}
		u.advance(remaining)
		break
	}

	u.refresh(l)
}

// runToEnd moves a unit that has no terminal ahead, flipping at the route end.
func (u *Unit) runToEnd(remaining float64, l *Line) {
	length := l.route.Length()
	if u.Reversed {
		u.PositionKm -= remaining
		if u.PositionKm <= 0 {
			u.PositionKm = 0
			u.Reversed = false
		}
		return
	}
	u.PositionKm += remaining
	if u.PositionKm >= length {
		u.PositionKm = length
		u.Reversed = true
	}
}

func (u *Unit) advance(km float64) {
	if u.Reversed {
		u.PositionKm -= km
	} else {
		u.PositionKm += km
	}
}

func (u *Unit) wait(s stop, l *Line) {
	u.State = core.StateWaiting
	u.waitFor = s.terminal
	// a unit already inside the safety zone, e.g. right after leaving a
	// terminal closer than SafetyDistanceKm, waits where it is
	if u.Reversed {
		u.PositionKm = min(u.PositionKm, s.km+SafetyDistanceKm)
	} else {
		u.PositionKm = max(u.PositionKm, s.km-SafetyDistanceKm)
	}
	u.PositionKm = clampKm(u.PositionKm, l.route.Length())
	u.refresh(l)
}

func (u *Unit) arrive(s stop, l *Line, onArrive ArrivalFunc) {
	u.PositionKm = s.km
	if s.km >= l.route.Length() {
		u.Reversed = true
	} else if s.km <= 0 {
		u.Reversed = false
	}

	u.hold(s.terminal)
	u.State = core.StateStopping
	u.StopTimer = s.terminal.Dwell()
	u.refresh(l)

	if onArrive != nil {
		onArrive(u, s.terminal)
	}
}

func (u *Unit) hold(t *Terminal) {
	if t == nil || u.held == t {
		return
	}
	u.releaseHeld()
	t.TryAdmit(u.ID)
	u.held = t
}

func (u *Unit) releaseHeld() {
	if u.held != nil {
		u.held.Release(u.ID)
		u.held = nil
	}
}

// releaseAll drops every terminal reference, used when a unit leaves its line.
func (u *Unit) releaseAll() {
	u.releaseHeld()
	u.waitFor = nil
}

func (u *Unit) refresh(l *Line) {
	u.Coord = l.route.CoordinateAt(u.PositionKm)
	u.Bearing = l.route.BearingAt(u.PositionKm, u.Reversed)
}

func clampKm(km, length float64) float64 {
	if km < 0 {
		return 0
	}
	if km > length {
		return length
	}
	return km
}

// Record returns the persisted state of the unit.
func (u *Unit) Record() core.UnitRecord {
	return core.UnitRecord{
		ID:           u.ID,
		LineID:       u.LineID,
		OwnerID:      u.OwnerID,
		Category:     u.Category.Key,
		PurchaseCost: u.PurchaseCost,
		PositionKm:   u.PositionKm,
		State:        u.State,
		Reversed:     u.Reversed,
		StopTimer:    u.StopTimer,
		Coord:        u.Coord,
	}
}
