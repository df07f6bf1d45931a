package sim

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/railtycoon/server/internal/economy"
	"github.com/railtycoon/server/internal/geo"
	"github.com/railtycoon/server/pkg/core"
)

// stop is a terminal at a route vertex. A terminal visited twice by a loop
// route has two stops.
type stop struct {
	terminal *Terminal
	km       float64
}

// Line owns an immutable route, the terminals along it and the units running on it.
type Line struct {
	ID      uint64
	OwnerID string
	Track   core.TrackType
	Cost    int64
	Color   string

	route     *geo.Route
	terminals []*Terminal
	stops     []stop
	units     []*Unit
}

// newLine builds a line over coords. Candidate terminals that do not lie on
// the route are logged and left out.
func newLine(rec core.LineRecord, candidates []*Terminal, log *slog.Logger) (*Line, error) {
	route, err := geo.NewRoute(rec.Coords)
	if err != nil {
		return nil, err
	}

	l := &Line{
		ID:      rec.ID,
		OwnerID: rec.OwnerID,
		Track:   rec.Track,
		Cost:    rec.Cost,
		Color:   rec.Color,
		route:   route,
	}

	cum := route.CumulativeKm()
	coords := route.Coords()
	for _, t := range candidates {
		if route.DistanceOf(t.Coord) < 0 {
			log.Warn("Terminal is not on route", "line", rec.ID, "terminal", t.ID, "error", geo.ErrNotOnRoute)
			continue
		}
		l.terminals = append(l.terminals, t)
		for i, c := range coords {
			if c.Near(t.Coord) {
				l.stops = append(l.stops, stop{terminal: t, km: cum[i]})
			}
		}
	}

	sort.SliceStable(l.stops, func(i, j int) bool { return l.stops[i].km < l.stops[j].km })
	sort.SliceStable(l.terminals, func(i, j int) bool {
		return route.DistanceOf(l.terminals[i].Coord) < route.DistanceOf(l.terminals[j].Coord)
	})
	return l, nil
}

// Route returns the line geometry.
func (l *Line) Route() *geo.Route {
	return l.route
}

// Terminals returns the served terminals in route order.
func (l *Line) Terminals() []*Terminal {
	return append([]*Terminal(nil), l.terminals...)
}

func (l *Line) Units() []*Unit {
	return append([]*Unit(nil), l.units...)
}

// nextStop finds the nearest stop strictly ahead of pos in the direction of travel.
func (l *Line) nextStop(pos float64, reversed bool) (stop, float64, bool) {
	var best stop
	bestDist := -1.0
	for _, s := range l.stops {
		d := s.km - pos
		if reversed {
			d = pos - s.km
		}
		if d > 0 && (bestDist < 0 || d < bestDist) {
			best, bestDist = s, d
		}
	}
	return best, bestDist, bestDist > 0
}

// stopAt returns the terminal with a stop exactly at pos.
func (l *Line) stopAt(pos float64) (*Terminal, bool) {
	for _, s := range l.stops {
		if s.km-pos < distEpsilon && pos-s.km < distEpsilon {
			return s.terminal, true
		}
	}
	return nil, false
}

// AddUnit buys a unit of the given category for owner and puts it on the line
// at the first terminal. Compatibility is checked before funds.
func (l *Line) AddUnit(id uint64, cat economy.Category, owner *Owner) (*Unit, error) {
	if !cat.CompatibleWith(l.Track) {
		return nil, invalid(ReasonIncompatibleCategory, "%s cannot run on %s track", cat.Key, l.Track)
	}

	cost := economy.UnitPurchaseCost(cat)
	if err := owner.charge(cost); err != nil {
		return nil, err
	}

	u := newUnit(id, owner.ID, cat, cost)
	l.attach(u)
	return u, nil
}

func (l *Line) attach(u *Unit) {
	u.releaseAll()
	u.LineID = l.ID
	u.PositionKm = 0
	u.Reversed = false
	u.StopTimer = 0
	u.State = core.StateRunning
	u.refresh(l)
	l.units = append(l.units, u)
}

func (l *Line) detach(u *Unit) {
	kept := l.units[:0]
	for _, x := range l.units {
		if x != u {
			kept = append(kept, x)
		}
	}
	for i := len(kept); i < len(l.units); i++ {
		l.units[i] = nil
	}
	l.units = kept

	u.releaseAll()
	u.LineID = 0
	u.State = core.StateIdle
	u.StopTimer = 0
}

// RunTick moves every unit on the line by dt game seconds. A unit whose
// update panics is logged and skipped; the others still move.
func (l *Line) RunTick(dt float64, onArrive ArrivalFunc, log *slog.Logger) {
	for _, u := range l.units {
		l.moveUnit(u, dt, onArrive, log)
	}
}

func (l *Line) moveUnit(u *Unit, dt float64, onArrive ArrivalFunc, log *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Unit update failed", "line", l.ID, "unit", u.ID, "error", fmt.Sprint(r))
		}
	}()
	u.Move(dt, l, onArrive)
}

// Record returns the persisted state of the line.
func (l *Line) Record() core.LineRecord {
	ids := make([]uint64, 0, len(l.terminals))
	for _, t := range l.terminals {
		ids = append(ids, t.ID)
	}
	return core.LineRecord{
		ID:          l.ID,
		OwnerID:     l.OwnerID,
		Track:       l.Track,
		Coords:      l.route.Coords(),
		TerminalIDs: ids,
		Cost:        l.Cost,
		Color:       l.Color,
	}
}
