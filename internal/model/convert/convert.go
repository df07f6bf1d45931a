// Package convert translates between world snapshot records and GORM rows.
package convert

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/railtycoon/server/internal/geo"
	"github.com/railtycoon/server/internal/model"
	"github.com/railtycoon/server/pkg/core"
	"gorm.io/datatypes"
)

// worldStatID is the primary key of the single world_stats row.
const worldStatID = 1

func toJSON(v any) (datatypes.JSON, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

func fromJSON[T any](raw datatypes.JSON) (T, error) {
	var v T
	if len(raw) == 0 {
		return v, nil
	}
	err := json.Unmarshal(raw, &v)
	return v, err
}

// SnapshotToModels flattens a snapshot into table rows. Loans are split off
// their owners and every line gets its projected geometry.
func SnapshotToModels(s core.Snapshot, savedAt time.Time) (model.Snapshot, error) {
	out := model.Snapshot{
		Stats: model.WorldStat{
			ID:                     worldStatID,
			GameTime:               s.Stats.GameTime.UTC(),
			TimeScale:              s.Stats.TimeScale,
			NextTerminalID:         s.Stats.NextTerminalID,
			NextLineID:             s.Stats.NextLineID,
			NextUnitID:             s.Stats.NextUnitID,
			NextLoanID:             s.Stats.NextLoanID,
			LastMonthlyMaintenance: s.Stats.LastMonthlyMaintenance,
			SavedAt:                savedAt.UTC(),
		},
		Owners:    make([]model.Owner, 0, len(s.Owners)),
		Terminals: make([]model.Terminal, 0, len(s.Terminals)),
		Lines:     make([]model.Line, 0, len(s.Lines)),
		Units:     make([]model.Unit, 0, len(s.Units)),
	}

	for _, o := range s.Owners {
		out.Owners = append(out.Owners, model.Owner{
			ID:                o.ID,
			Balance:           o.Balance,
			ConstructionSpend: o.ConstructionSpend,
		})
		for _, l := range o.Loans {
			out.Loans = append(out.Loans, model.Loan{
				ID:             l.ID,
				OwnerID:        o.ID,
				Principal:      l.Principal,
				Remaining:      l.Remaining,
				MonthlyPayment: l.MonthlyPayment,
				AnnualRate:     l.AnnualRate,
				TermMonths:     l.TermMonths,
				MonthsPaid:     l.MonthsPaid,
			})
		}
	}

	for _, t := range s.Terminals {
		lines, err := toJSON(nonNil(t.Lines))
		if err != nil {
			return model.Snapshot{}, fmt.Errorf("terminal %d lines: %w", t.ID, err)
		}
		out.Terminals = append(out.Terminals, model.Terminal{
			ID:        t.ID,
			OwnerID:   t.OwnerID,
			Name:      t.Name,
			Lat:       t.Coord.Lat,
			Lng:       t.Coord.Lng,
			Kind:      string(t.Kind),
			Tier:      string(t.Tier),
			Passenger: t.Demand.Passenger,
			Freight:   t.Demand.Freight,
			Lines:     lines,
		})
	}

	for _, l := range s.Lines {
		row, err := CoreToLine(l)
		if err != nil {
			return model.Snapshot{}, err
		}
		out.Lines = append(out.Lines, row)
	}

	for _, u := range s.Units {
		out.Units = append(out.Units, model.Unit{
			ID:           u.ID,
			LineID:       u.LineID,
			OwnerID:      u.OwnerID,
			Category:     u.Category,
			PurchaseCost: u.PurchaseCost,
			PositionKm:   u.PositionKm,
			State:        string(u.State),
			Reversed:     u.Reversed,
			StopTimer:    u.StopTimer,
			Lat:          u.Coord.Lat,
			Lng:          u.Coord.Lng,
		})
	}

	return out, nil
}

// CoreToLine converts a line record, projecting its route for the geometry
// column.
func CoreToLine(l core.LineRecord) (model.Line, error) {
	coords, err := toJSON(l.Coords)
	if err != nil {
		return model.Line{}, fmt.Errorf("line %d coords: %w", l.ID, err)
	}
	terminals, err := toJSON(nonNil(l.TerminalIDs))
	if err != nil {
		return model.Line{}, fmt.Errorf("line %d terminals: %w", l.ID, err)
	}
	wkb, err := geo.LineStringWKB(l.Coords)
	if err != nil {
		return model.Line{}, fmt.Errorf("line %d geometry: %w", l.ID, err)
	}
	route, err := geo.NewRoute(l.Coords)
	if err != nil {
		return model.Line{}, fmt.Errorf("line %d route: %w", l.ID, err)
	}
	return model.Line{
		ID:          l.ID,
		OwnerID:     l.OwnerID,
		Track:       string(l.Track),
		Coords:      coords,
		TerminalIDs: terminals,
		Cost:        l.Cost,
		Color:       l.Color,
		LengthKm:    route.Length(),
		Geometry:    wkb,
	}, nil
}

// ModelsToSnapshot rebuilds a snapshot from table rows. Loans are attached
// to their owners in the order given.
func ModelsToSnapshot(m model.Snapshot) (core.Snapshot, error) {
	s := core.Snapshot{
		Stats: core.WorldStats{
			GameTime:               m.Stats.GameTime.UTC(),
			TimeScale:              m.Stats.TimeScale,
			NextTerminalID:         m.Stats.NextTerminalID,
			NextLineID:             m.Stats.NextLineID,
			NextUnitID:             m.Stats.NextUnitID,
			NextLoanID:             m.Stats.NextLoanID,
			LastMonthlyMaintenance: m.Stats.LastMonthlyMaintenance,
		},
		Owners:    make([]core.OwnerRecord, 0, len(m.Owners)),
		Terminals: make([]core.TerminalRecord, 0, len(m.Terminals)),
		Lines:     make([]core.LineRecord, 0, len(m.Lines)),
		Units:     make([]core.UnitRecord, 0, len(m.Units)),
	}

	loans := make(map[string][]core.LoanRecord)
	for _, l := range m.Loans {
		loans[l.OwnerID] = append(loans[l.OwnerID], core.LoanRecord{
			ID:             l.ID,
			Principal:      l.Principal,
			Remaining:      l.Remaining,
			MonthlyPayment: l.MonthlyPayment,
			AnnualRate:     l.AnnualRate,
			TermMonths:     l.TermMonths,
			MonthsPaid:     l.MonthsPaid,
		})
	}

	for _, o := range m.Owners {
		s.Owners = append(s.Owners, core.OwnerRecord{
			ID:                o.ID,
			Balance:           o.Balance,
			ConstructionSpend: o.ConstructionSpend,
			Loans:             loans[o.ID],
		})
	}

	for _, t := range m.Terminals {
		lines, err := fromJSON[[]uint64](t.Lines)
		if err != nil {
			return core.Snapshot{}, fmt.Errorf("terminal %d lines: %w", t.ID, err)
		}
		if len(lines) == 0 {
			lines = nil
		}
		s.Terminals = append(s.Terminals, core.TerminalRecord{
			ID:      t.ID,
			OwnerID: t.OwnerID,
			Name:    t.Name,
			Coord:   core.LatLng{Lat: t.Lat, Lng: t.Lng},
			Kind:    core.TerminalKind(t.Kind),
			Tier:    core.Tier(t.Tier),
			Demand:  core.Demand{Passenger: t.Passenger, Freight: t.Freight},
			Lines:   lines,
		})
	}

	for _, l := range m.Lines {
		coords, err := fromJSON[[]core.LatLng](l.Coords)
		if err != nil {
			return core.Snapshot{}, fmt.Errorf("line %d coords: %w", l.ID, err)
		}
		terminals, err := fromJSON[[]uint64](l.TerminalIDs)
		if err != nil {
			return core.Snapshot{}, fmt.Errorf("line %d terminals: %w", l.ID, err)
		}
		s.Lines = append(s.Lines, core.LineRecord{
			ID:          l.ID,
			OwnerID:     l.OwnerID,
			Track:       core.TrackType(l.Track),
			Coords:      coords,
			TerminalIDs: terminals,
			Cost:        l.Cost,
			Color:       l.Color,
		})
	}

	for _, u := range m.Units {
		s.Units = append(s.Units, core.UnitRecord{
			ID:           u.ID,
			LineID:       u.LineID,
			OwnerID:      u.OwnerID,
			Category:     u.Category,
			PurchaseCost: u.PurchaseCost,
			PositionKm:   u.PositionKm,
			State:        core.MotionState(u.State),
			Reversed:     u.Reversed,
			StopTimer:    u.StopTimer,
			Coord:        core.LatLng{Lat: u.Lat, Lng: u.Lng},
		})
	}

	return s, nil
}

func nonNil(ids []uint64) []uint64 {
	if ids == nil {
		return []uint64{}
	}
	return ids
}
