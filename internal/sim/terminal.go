package sim

import (
	"sort"

	"github.com/railtycoon/server/internal/economy"
	"github.com/railtycoon/server/pkg/core"
)

// Admission is the answer of a terminal to a unit asking to enter.
type Admission int

const (
	Denied Admission = iota
	Admitted
)

func (a Admission) String() string {
	if a == Admitted {
		return "admitted"
	}
	return "denied"
}

// Terminal is a station or airport. The occupant set holds every unit that
// was admitted and has not yet left; its size never exceeds Capacity.
type Terminal struct {
	ID      uint64
	OwnerID string
	Name    string
	Coord   core.LatLng
	Kind    core.TerminalKind
	Tier    core.Tier
	Demand  core.Demand
	Lines   []uint64

	occupants map[uint64]struct{}
}

func newTerminal(rec core.TerminalRecord) *Terminal {
	t := &Terminal{
		ID:        rec.ID,
		OwnerID:   rec.OwnerID,
		Name:      rec.Name,
		Coord:     rec.Coord,
		Kind:      rec.Kind,
		Tier:      rec.Tier,
		Demand:    rec.Demand,
		occupants: make(map[uint64]struct{}),
	}
	t.Lines = append(t.Lines, rec.Lines...)
	return t
}

func (t *Terminal) Capacity() int {
	return economy.TerminalCapacity(t.Kind, t.Tier)
}

// Dwell is the stop duration in game seconds.
func (t *Terminal) Dwell() float64 {
	return economy.TerminalDwell(t.Kind, t.Tier)
}

// TryAdmit reserves a slot for the unit. A unit that already holds a slot is
// admitted again without taking a second one.
func (t *Terminal) TryAdmit(unitID uint64) Admission {
	if _, ok := t.occupants[unitID]; ok {
		return Admitted
	}
	if len(t.occupants) >= t.Capacity() {
		return Denied
	}
	t.occupants[unitID] = struct{}{}
	return Admitted
}

// Release frees the unit's slot. Releasing a unit that holds none is a no-op.
func (t *Terminal) Release(unitID uint64) {
	delete(t.occupants, unitID)
}

func (t *Terminal) Holds(unitID uint64) bool {
	_, ok := t.occupants[unitID]
	return ok
}

func (t *Terminal) Occupancy() int {
	return len(t.occupants)
}

// Occupants returns the ids of units holding a slot, in ascending order.
func (t *Terminal) Occupants() []uint64 {
	ids := make([]uint64, 0, len(t.occupants))
	for id := range t.occupants {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (t *Terminal) connect(lineID uint64) {
	for _, id := range t.Lines {
		if id == lineID {
			return
		}
	}
	t.Lines = append(t.Lines, lineID)
}

func (t *Terminal) disconnect(lineID uint64) {
	kept := t.Lines[:0]
	for _, id := range t.Lines {
		if id != lineID {
			kept = append(kept, id)
		}
	}
	t.Lines = kept
}

// Record returns the externally visible state of the terminal.
func (t *Terminal) Record() core.TerminalRecord {
	rec := core.TerminalRecord{
		ID:      t.ID,
		OwnerID: t.OwnerID,
		Name:    t.Name,
		Coord:   t.Coord,
		Kind:    t.Kind,
		Tier:    t.Tier,
		Demand:  t.Demand,
	}
	if len(t.Lines) > 0 {
		rec.Lines = append([]uint64(nil), t.Lines...)
	}
	return rec
}

func (t *Terminal) status() core.TerminalStatus {
	return core.TerminalStatus{
		TerminalID: t.ID,
		Demand:     t.Demand,
		Occupancy:  t.Occupancy(),
		Capacity:   t.Capacity(),
		Occupants:  t.Occupants(),
	}
}
