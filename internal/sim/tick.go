package sim

import (
	"maps"
	"slices"
	"time"

	"github.com/railtycoon/server/internal/economy"
	"github.com/railtycoon/server/pkg/core"
)

// Tick advances the world to wall time now and returns what changed.
// Monthly settlement runs before any unit moves.
func (w *World) Tick(now time.Time) core.TickPayload {
	dt, monthRolled := w.clock.Advance(now)
	w.tick++

	p := core.TickPayload{Tick: w.tick}
	if monthRolled {
		p.Settlement = w.settle()
	}

	var arrivals int
	var revenue int64
	onArrive := func(u *Unit, t *Terminal) {
		amount := economy.ArrivalRevenue(u.Category, t.Demand, w.connectionsAt(t.Coord))
		if o, ok := w.owners[u.OwnerID]; ok {
			o.Balance += amount
		}
		arrivals++
		revenue += amount
	}

	for _, id := range slices.Sorted(maps.Keys(w.lines)) {
		w.lines[id].RunTick(dt, onArrive, w.log)
	}

	p.GameTime = w.clock.GameTime
	p.Units = w.positions()
	p.Terminals = w.terminalStatuses()
	p.Balances = w.balanceUpdates()
	p.Stats = core.TickStats{
		TimeScale:              w.clock.TimeScale,
		Terminals:              len(w.terminals),
		Lines:                  len(w.lines),
		Units:                  len(w.units),
		Arrivals:               arrivals,
		Revenue:                revenue,
		LastMonthlyMaintenance: w.lastMonthlyMaintenance,
	}
	return p
}

// connectionsAt counts the lines serving every terminal at c.
func (w *World) connectionsAt(c core.LatLng) int {
	n := 0
	for _, t := range w.terminals {
		if t.Coord.Near(c) {
			n += len(t.Lines)
		}
	}
	return n
}

func (w *World) settle() []core.SettlementRecord {
	lineCosts := make(map[string][]int64)
	for _, id := range slices.Sorted(maps.Keys(w.lines)) {
		l := w.lines[id]
		lineCosts[l.OwnerID] = append(lineCosts[l.OwnerID], l.Cost)
	}
	categories := make(map[string][]economy.Category)
	for _, id := range slices.Sorted(maps.Keys(w.units)) {
		u := w.units[id]
		categories[u.OwnerID] = append(categories[u.OwnerID], u.Category)
	}

	var records []core.SettlementRecord
	var total int64
	for _, id := range slices.Sorted(maps.Keys(w.owners)) {
		o := w.owners[id]
		s := economy.Settle(economy.Holdings{
			OwnerID:    o.ID,
			LineCosts:  lineCosts[o.ID],
			Categories: categories[o.ID],
			Loans:      o.Loans,
		})
		o.Balance -= s.Record.Total
		o.Loans = s.Loans
		total += s.Record.Total
		records = append(records, s.Record)
	}

	w.lastMonthlyMaintenance = total
	w.log.Info("Monthly settlement", "gameTime", w.clock.GameTime, "owners", len(records), "total", total)
	return records
}

func (w *World) positions() []core.UnitPosition {
	out := make([]core.UnitPosition, 0, len(w.units))
	for _, id := range slices.Sorted(maps.Keys(w.units)) {
		u := w.units[id]
		l, ok := w.lines[u.LineID]
		if !ok {
			continue
		}
		out = append(out, core.UnitPosition{
			UnitID:  u.ID,
			OwnerID: u.OwnerID,
			LineID:  l.ID,
			Coord:   u.Coord,
			Bearing: u.Bearing,
			Color:   l.Color,
			State:   u.State,
		})
	}
	return out
}

func (w *World) terminalStatuses() []core.TerminalStatus {
	out := make([]core.TerminalStatus, 0, len(w.terminals))
	for _, id := range slices.Sorted(maps.Keys(w.terminals)) {
		out = append(out, w.terminals[id].status())
	}
	return out
}

// balanceUpdates reports owners whose balance moved since the previous tick,
// whether through arrivals, settlement or commands.
func (w *World) balanceUpdates() []core.BalanceUpdate {
	var out []core.BalanceUpdate
	for _, id := range slices.Sorted(maps.Keys(w.owners)) {
		o := w.owners[id]
		prev := w.lastBalances[id]
		if o.Balance == prev {
			continue
		}
		out = append(out, core.BalanceUpdate{OwnerID: id, Balance: o.Balance, Delta: o.Balance - prev})
		w.lastBalances[id] = o.Balance
	}
	return out
}
