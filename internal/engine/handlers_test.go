package engine

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/railtycoon/server/internal/dispatcher"
	"github.com/railtycoon/server/internal/economy"
	"github.com/railtycoon/server/internal/geodata"
	"github.com/railtycoon/server/internal/sim"
	"github.com/railtycoon/server/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type densityStub struct {
	mu    sync.Mutex
	calls []core.LatLng
	err   error
}

func (d *densityStub) Density(_ context.Context, at core.LatLng) (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, at)
	if d.err != nil {
		return 0, d.err
	}
	return 20000, nil
}

type harness struct {
	t       *testing.T
	e       *Engine
	d       *dispatcher.Dispatcher
	density *densityStub
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	density := &densityStub{}
	e := newEngine(t, Dependencies{Density: density}, Options{TickInterval: 5 * time.Millisecond, RankingSize: 5})
	d, err := dispatcher.New(discard)
	require.NoError(t, err)
	e.RegisterHandlers(d)
	run(t, e)
	return &harness{t: t, e: e, d: d, density: density}
}

func (h *harness) do(command, owner string, payload any) (any, error) {
	h.t.Helper()
	ev, err := dispatcher.NewEvent(command, owner, payload)
	require.NoError(h.t, err)
	return h.d.Dispatch(context.Background(), ev)
}

func (h *harness) must(command, owner string, payload any) any {
	h.t.Helper()
	v, err := h.do(command, owner, payload)
	require.NoError(h.t, err, command)
	return v
}

func TestRegisterHandlers_AllCommands(t *testing.T) {
	d, err := dispatcher.New(discard)
	require.NoError(t, err)
	newEngine(t, Dependencies{}, Options{}).RegisterHandlers(d)

	for _, cmd := range []string{
		CmdRegisterOwner, CmdBuildTerminal, CmdUpgradeTerminal, CmdRenameTerminal,
		CmdDemolishTerminal, CmdQuoteLine, CmdBuildLine, CmdDemolishLine, CmdBuyUnit,
		CmdSellUnit, CmdDetachUnit, CmdAssignUnit, CmdTakeLoan, CmdRanking, CmdStatus,
	} {
		assert.True(t, d.HasHandler(cmd), cmd)
	}
	assert.Len(t, d.Commands(), 15)
}

func TestHandlers_Lifecycle(t *testing.T) {
	h := newHarness(t)

	owner := h.must(CmdRegisterOwner, "p1", nil).(core.OwnerRecord)
	start := owner.Balance

	a := h.must(CmdBuildTerminal, "p1", core.BuildTerminalRequest{Coord: siteA, Kind: core.KindRail}).(core.TerminalRecord)
	b := h.must(CmdBuildTerminal, "p1", core.BuildTerminalRequest{Coord: siteB, Kind: core.KindRail}).(core.TerminalRecord)
	assert.Equal(t, "p1", a.OwnerID)
	assert.Len(t, h.density.calls, 2)
	assert.Equal(t, siteA, h.density.calls[0])

	route := core.LineRequest{Coords: []core.LatLng{siteA, siteB}, Track: core.TrackDouble}
	quote := h.must(CmdQuoteLine, "p1", route).(core.LineQuote)
	assert.Greater(t, quote.Cost, int64(0))

	line := h.must(CmdBuildLine, "p1", route).(core.LineRecord)
	assert.Equal(t, quote.Cost, line.Cost)
	assert.Equal(t, []uint64{a.ID, b.ID}, line.TerminalIDs)

	unit := h.must(CmdBuyUnit, "p1", core.BuyUnitRequest{LineID: line.ID, Category: "COMMUTER"}).(core.UnitRecord)
	assert.Equal(t, line.ID, unit.LineID)

	detached := h.must(CmdDetachUnit, "p1", core.UnitRequest{UnitID: unit.ID}).(core.UnitRecord)
	assert.Equal(t, uint64(0), detached.LineID)
	reassigned := h.must(CmdAssignUnit, "p1", core.AssignUnitRequest{UnitID: unit.ID, LineID: line.ID}).(core.UnitRecord)
	assert.Equal(t, line.ID, reassigned.LineID)

	renamed := h.must(CmdRenameTerminal, "p1", core.RenameTerminalRequest{TerminalID: a.ID, Name: "Central"}).(core.TerminalRecord)
	assert.Equal(t, "Central", renamed.Name)
	upgraded := h.must(CmdUpgradeTerminal, "p1", core.UpgradeTerminalRequest{TerminalID: a.ID, Tier: core.TierMedium}).(core.TerminalRecord)
	assert.Equal(t, core.TierMedium, upgraded.Tier)

	loan := h.must(CmdTakeLoan, "p1", core.LoanRequest{Principal: 1_000_000, TermMonths: 12}).(core.LoanRecord)
	assert.Equal(t, int64(1_000_000), loan.Principal)

	ranking := h.must(CmdRanking, "p1", nil).([]core.RankingEntry)
	require.Len(t, ranking, 1)
	assert.Equal(t, "p1", ranking[0].OwnerID)

	sold := h.must(CmdSellUnit, "p1", core.UnitRequest{UnitID: unit.ID}).(core.Receipt)
	assert.Greater(t, sold.Refund, int64(0))
	h.must(CmdDemolishLine, "p1", core.LineIDRequest{LineID: line.ID})
	h.must(CmdDemolishTerminal, "p1", core.TerminalRequest{TerminalID: b.ID})

	status := h.must(CmdStatus, "", nil).(core.WorldStatus)
	assert.Equal(t, 1, status.Owners)
	assert.Equal(t, 1, status.Terminals)
	assert.Equal(t, 0, status.Lines)
	assert.Equal(t, 0, status.Units)

	after := h.must(CmdRanking, "p1", nil).([]core.RankingEntry)
	assert.Less(t, after[0].Balance, start)
}

func TestHandlers_OwnerComesFromEvent(t *testing.T) {
	h := newHarness(t)
	h.must(CmdRegisterOwner, "p1", nil)
	h.must(CmdRegisterOwner, "p2", nil)

	a := h.must(CmdBuildTerminal, "p1", core.BuildTerminalRequest{Coord: siteA, Kind: core.KindRail}).(core.TerminalRecord)

	// The payload claims p1 but the event is p2's.
	_, err := h.do(CmdRenameTerminal, "p2", core.RenameTerminalRequest{OwnerID: "p1", TerminalID: a.ID, Name: "Stolen"})
	assert.ErrorIs(t, err, sim.ErrNotOwner)
}

func TestHandlers_ValidationError(t *testing.T) {
	h := newHarness(t)

	_, err := h.do(CmdBuildTerminal, "ghost", core.BuildTerminalRequest{Coord: siteA, Kind: core.KindRail})
	var ve *sim.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, sim.ReasonUnknownOwner, ve.Reason)
}

func TestHandlers_BadPayload(t *testing.T) {
	h := newHarness(t)

	_, err := h.d.Dispatch(context.Background(), dispatcher.Event{
		Command: CmdBuyUnit, OwnerID: "p1", Payload: []byte(`{"lineId": "one"}`),
	})
	assert.ErrorIs(t, err, ErrBadRequest)

	_, err = h.d.Dispatch(context.Background(), dispatcher.Event{
		Command: CmdBuildTerminal, OwnerID: "p1", Payload: []byte(`[`),
	})
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestHandlers_DensityFallback(t *testing.T) {
	h := newHarness(t)
	h.density.err = errors.New("raster offline")
	h.must(CmdRegisterOwner, "p1", nil)

	rec := h.must(CmdBuildTerminal, "p1", core.BuildTerminalRequest{Coord: siteA, Kind: core.KindRail}).(core.TerminalRecord)
	fallback := economy.DemandFromDensity(geodata.DefaultDensity, rand.New(rand.NewSource(1)))
	// the fallback density is below the demand floor
	assert.Equal(t, fallback.Passenger, rec.Demand.Passenger)
}

func TestHandlers_RankingLimit(t *testing.T) {
	h := newHarness(t)
	for _, id := range []string{"p1", "p2", "p3"} {
		h.must(CmdRegisterOwner, id, nil)
	}

	assert.Len(t, h.must(CmdRanking, "", RankingRequest{Limit: 2}).([]core.RankingEntry), 2)
	assert.Len(t, h.must(CmdRanking, "", nil).([]core.RankingEntry), 3)
}
