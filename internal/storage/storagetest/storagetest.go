// Package storagetest holds fixtures shared by the snapshot backend tests.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/railtycoon/server/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Store is the part of storage.Backend exercised by Run.
type Store interface {
	SaveSnapshot(ctx context.Context, s core.Snapshot) error
	LoadSnapshot(ctx context.Context) (core.Snapshot, error)
}

// Sample returns a small world with two owners, a loan, two terminals, one
// line and one moving unit.
func Sample() core.Snapshot {
	route := []core.LatLng{{Lat: 35.0, Lng: 139.0}, {Lat: 35.05, Lng: 139.02}, {Lat: 35.09, Lng: 139.0}}
	return core.Snapshot{
		Stats: core.WorldStats{
			GameTime:               time.Date(2025, time.March, 10, 8, 30, 0, 0, time.UTC),
			TimeScale:              60,
			NextTerminalID:         3,
			NextLineID:             2,
			NextUnitID:             2,
			NextLoanID:             2,
			LastMonthlyMaintenance: 12345,
		},
		Owners: []core.OwnerRecord{
			{ID: "p1", Balance: 1_000, ConstructionSpend: 500, Loans: []core.LoanRecord{
				{ID: 1, Principal: 1_200_000, Remaining: 1_100_000, MonthlyPayment: 100_000, AnnualRate: 0.05, TermMonths: 12, MonthsPaid: 1},
			}},
			{ID: "p2", Balance: 5_000_000_000},
		},
		Terminals: []core.TerminalRecord{
			{ID: 1, OwnerID: "p1", Name: "Shinjuku", Coord: route[0], Kind: core.KindRail, Tier: core.TierSmall,
				Demand: core.Demand{Passenger: 50, Freight: 20}, Lines: []uint64{1}},
			{ID: 2, OwnerID: "p1", Name: "Ikebukuro", Coord: route[2], Kind: core.KindRail, Tier: core.TierLarge,
				Demand: core.Demand{Passenger: 80, Freight: 10}, Lines: []uint64{1}},
		},
		Lines: []core.LineRecord{
			{ID: 1, OwnerID: "p1", Track: core.TrackDouble, Coords: route, TerminalIDs: []uint64{1, 2}, Cost: 900, Color: "#009933"},
		},
		Units: []core.UnitRecord{
			{ID: 1, LineID: 1, OwnerID: "p1", Category: "COMMUTER", PurchaseCost: 8_000_000, PositionKm: 2.5,
				State: core.StateRunning, Reversed: true, Coord: core.LatLng{Lat: 35.02, Lng: 139.01}},
		},
	}
}

// Run checks the save/load contract: nothing saved yields ErrNoSnapshot,
// a save round-trips, and a second save fully replaces the first.
func Run(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.LoadSnapshot(ctx)
	require.True(t, errors.Is(err, core.ErrNoSnapshot), "expected ErrNoSnapshot, got %v", err)

	first := Sample()
	require.NoError(t, store.SaveSnapshot(ctx, first))

	got, err := store.LoadSnapshot(ctx)
	require.NoError(t, err)
	AssertEqual(t, first, got)

	second := Sample()
	second.Owners = second.Owners[1:]
	second.Lines = nil
	second.Units = nil
	second.Terminals = second.Terminals[:1]
	second.Terminals[0].Lines = nil
	second.Stats.GameTime = second.Stats.GameTime.Add(time.Hour)
	require.NoError(t, store.SaveSnapshot(ctx, second))

	got, err = store.LoadSnapshot(ctx)
	require.NoError(t, err)
	AssertEqual(t, second, got)
}

// AssertEqual compares snapshots, treating nil and empty slices alike.
func AssertEqual(t *testing.T, want, got core.Snapshot) {
	t.Helper()
	assert.True(t, want.Stats.GameTime.Equal(got.Stats.GameTime), "game time %v != %v", want.Stats.GameTime, got.Stats.GameTime)
	want.Stats.GameTime, got.Stats.GameTime = time.Time{}, time.Time{}
	assert.Equal(t, want.Stats, got.Stats)
	assert.Equal(t, len(want.Owners), len(got.Owners))
	assert.Equal(t, len(want.Terminals), len(got.Terminals))
	assert.Equal(t, len(want.Lines), len(got.Lines))
	assert.Equal(t, len(want.Units), len(got.Units))
	if len(want.Owners) > 0 {
		assert.Equal(t, want.Owners, got.Owners)
	}
	if len(want.Terminals) > 0 {
		assert.Equal(t, want.Terminals, got.Terminals)
	}
	if len(want.Lines) > 0 {
		assert.Equal(t, want.Lines, got.Lines)
	}
	if len(want.Units) > 0 {
		assert.Equal(t, want.Units, got.Units)
	}
}
