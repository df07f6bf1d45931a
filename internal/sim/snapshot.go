package sim

import (
	"fmt"
	"maps"
	"slices"

	"github.com/railtycoon/server/internal/economy"
	"github.com/railtycoon/server/pkg/core"
)

// Snapshot captures the persistent state of the world, sorted by id.
func (w *World) Snapshot() core.Snapshot {
	s := core.Snapshot{
		Stats: core.WorldStats{
			GameTime:               w.clock.GameTime,
			TimeScale:              w.clock.TimeScale,
			NextTerminalID:         w.nextTerminalID,
			NextLineID:             w.nextLineID,
			NextUnitID:             w.nextUnitID,
			NextLoanID:             w.nextLoanID,
			LastMonthlyMaintenance: w.lastMonthlyMaintenance,
		},
		Owners:    make([]core.OwnerRecord, 0, len(w.owners)),
		Terminals: make([]core.TerminalRecord, 0, len(w.terminals)),
		Lines:     make([]core.LineRecord, 0, len(w.lines)),
		Units:     make([]core.UnitRecord, 0, len(w.units)),
	}
	for _, id := range slices.Sorted(maps.Keys(w.owners)) {
		s.Owners = append(s.Owners, w.owners[id].Record())
	}
	for _, id := range slices.Sorted(maps.Keys(w.terminals)) {
		s.Terminals = append(s.Terminals, w.terminals[id].Record())
	}
	for _, id := range slices.Sorted(maps.Keys(w.lines)) {
		s.Lines = append(s.Lines, w.lines[id].Record())
	}
	for _, id := range slices.Sorted(maps.Keys(w.units)) {
		s.Units = append(s.Units, w.units[id].Record())
	}
	return s
}

// Restore replaces the world state with s. Terminal occupancy is rebuilt
// from stopping units that sit exactly on a stop; every other unit resumes
// running and asks for admission again. On error the world is unchanged.
func (w *World) Restore(s core.Snapshot) error {
	owners := make(map[string]*Owner, len(s.Owners))
	var maxLoan uint64
	for _, rec := range s.Owners {
		for _, l := range rec.Loans {
			maxLoan = max(maxLoan, l.ID)
		}
		owners[rec.ID] = &Owner{
			ID:                rec.ID,
			Balance:           rec.Balance,
			ConstructionSpend: rec.ConstructionSpend,
			Loans:             append([]core.LoanRecord(nil), rec.Loans...),
		}
	}

	terminals := make(map[uint64]*Terminal, len(s.Terminals))
	var maxTerminal uint64
	for _, rec := range s.Terminals {
		terminals[rec.ID] = newTerminal(rec)
		maxTerminal = max(maxTerminal, rec.ID)
	}

	lines := make(map[uint64]*Line, len(s.Lines))
	var maxLine uint64
	for _, rec := range s.Lines {
		served := make([]*Terminal, 0, len(rec.TerminalIDs))
		for _, id := range rec.TerminalIDs {
			t, ok := terminals[id]
			if !ok {
				w.log.Warn("Line references missing terminal", "line", rec.ID, "terminal", id)
				continue
			}
			served = append(served, t)
		}
		l, err := newLine(rec, served, w.log)
		if err != nil {
			return fmt.Errorf("restore line %d: %w", rec.ID, err)
		}
		lines[rec.ID] = l
		maxLine = max(maxLine, rec.ID)
	}

	units := make(map[uint64]*Unit, len(s.Units))
	var maxUnit uint64
	for _, rec := range s.Units {
		cat, ok := economy.LookupCategory(rec.Category)
		if !ok {
			return fmt.Errorf("restore unit %d: unknown category %q", rec.ID, rec.Category)
		}
		u := newUnit(rec.ID, rec.OwnerID, cat, rec.PurchaseCost)
		units[rec.ID] = u
		maxUnit = max(maxUnit, rec.ID)

		l, ok := lines[rec.LineID]
		if !ok {
			u.Coord = rec.Coord
			continue
		}
		u.LineID = l.ID
		u.PositionKm = clampKm(rec.PositionKm, l.route.Length())
		u.Reversed = rec.Reversed
		u.State = rec.State
		u.StopTimer = rec.StopTimer
		l.units = append(l.units, u)
	}

	for _, id := range slices.Sorted(maps.Keys(units)) {
		u := units[id]
		l, ok := lines[u.LineID]
		if !ok {
			continue
		}
		switch u.State {
		case core.StateStopping:
			t, atStop := l.stopAt(u.PositionKm)
			if atStop && t.TryAdmit(u.ID) == Admitted {
				u.held = t
			} else {
				u.State = core.StateRunning
				u.StopTimer = 0
			}
		case core.StateWaiting:
			// the terminal to wait for is looked up again on the next move
		default:
			u.State = core.StateRunning
		}
		u.refresh(l)
	}

	w.owners = owners
	w.terminals = terminals
	w.lines = lines
	w.units = units

	w.clock = NewClock(s.Stats.GameTime, w.clock.TimeScale)
	if s.Stats.TimeScale > 0 {
		w.clock.TimeScale = s.Stats.TimeScale
	}
	w.tick = 0
	w.nextTerminalID = max(s.Stats.NextTerminalID, maxTerminal+1)
	w.nextLineID = max(s.Stats.NextLineID, maxLine+1)
	w.nextUnitID = max(s.Stats.NextUnitID, maxUnit+1)
	w.nextLoanID = max(s.Stats.NextLoanID, maxLoan+1)
	w.lastMonthlyMaintenance = s.Stats.LastMonthlyMaintenance

	w.lastBalances = make(map[string]int64, len(owners))
	for id, o := range owners {
		w.lastBalances[id] = o.Balance
	}
	return nil
}
