package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/railtycoon/server/internal/dispatcher"
	"github.com/railtycoon/server/internal/geodata"
	"github.com/railtycoon/server/internal/sim"
	"github.com/railtycoon/server/pkg/core"
)

// Commands accepted through the dispatcher.
const (
	CmdRegisterOwner    = ":REGISTER:OWNER:"
	CmdBuildTerminal    = ":BUILD:TERMINAL:"
	CmdUpgradeTerminal  = ":UPGRADE:TERMINAL:"
	CmdRenameTerminal   = ":RENAME:TERMINAL:"
	CmdDemolishTerminal = ":DEMOLISH:TERMINAL:"
	CmdQuoteLine        = ":QUOTE:LINE:"
	CmdBuildLine        = ":BUILD:LINE:"
	CmdDemolishLine     = ":DEMOLISH:LINE:"
	CmdBuyUnit          = ":BUY:UNIT:"
	CmdSellUnit         = ":SELL:UNIT:"
	CmdDetachUnit       = ":DETACH:UNIT:"
	CmdAssignUnit       = ":ASSIGN:UNIT:"
	CmdTakeLoan         = ":TAKE:LOAN:"
	CmdRanking          = ":RANKING:"
	CmdStatus           = ":STATUS:"
)

// ErrBadRequest wraps payloads that could not be decoded.
var ErrBadRequest = errors.New("bad request")

// RankingRequest limits the leaderboard; zero means the configured size.
type RankingRequest struct {
	Limit int `json:"limit"`
}

// RegisterHandlers binds every world command to the dispatcher. The owner
// of a command is always taken from the event, never from its payload.
func (e *Engine) RegisterHandlers(d *dispatcher.Dispatcher) {
	d.Register(CmdRegisterOwner, func(ctx context.Context, ev dispatcher.Event) (any, error) {
		return e.Submit(ctx, func(w *sim.World) (any, error) {
			return w.RegisterOwner(ev.OwnerID)
		})
	}, dispatcher.Logged())

	d.Register(CmdBuildTerminal, e.buildTerminal, dispatcher.Logged())

	d.Register(CmdUpgradeTerminal, handle(e, func(r *core.UpgradeTerminalRequest, o string) { r.OwnerID = o },
		func(w *sim.World, r core.UpgradeTerminalRequest) (any, error) { return w.UpgradeTerminal(r) }), dispatcher.Logged())

	d.Register(CmdRenameTerminal, handle(e, func(r *core.RenameTerminalRequest, o string) { r.OwnerID = o },
		func(w *sim.World, r core.RenameTerminalRequest) (any, error) { return w.RenameTerminal(r) }), dispatcher.Logged())

	d.Register(CmdDemolishTerminal, handle(e, func(r *core.TerminalRequest, o string) { r.OwnerID = o },
		func(w *sim.World, r core.TerminalRequest) (any, error) { return w.DemolishTerminal(r) }), dispatcher.Logged())

	d.Register(CmdQuoteLine, handle(e, func(r *core.LineRequest, o string) { r.OwnerID = o },
		func(w *sim.World, r core.LineRequest) (any, error) { return w.QuoteLine(r) }))

	d.Register(CmdBuildLine, handle(e, func(r *core.LineRequest, o string) { r.OwnerID = o },
		func(w *sim.World, r core.LineRequest) (any, error) { return w.BuildLine(r) }), dispatcher.Logged())

	d.Register(CmdDemolishLine, handle(e, func(r *core.LineIDRequest, o string) { r.OwnerID = o },
		func(w *sim.World, r core.LineIDRequest) (any, error) { return w.DemolishLine(r) }), dispatcher.Logged())

	d.Register(CmdBuyUnit, handle(e, func(r *core.BuyUnitRequest, o string) { r.OwnerID = o },
		func(w *sim.World, r core.BuyUnitRequest) (any, error) { return w.BuyUnit(r) }), dispatcher.Logged())

	d.Register(CmdSellUnit, handle(e, func(r *core.UnitRequest, o string) { r.OwnerID = o },
		func(w *sim.World, r core.UnitRequest) (any, error) { return w.SellUnit(r) }), dispatcher.Logged())

	d.Register(CmdDetachUnit, handle(e, func(r *core.UnitRequest, o string) { r.OwnerID = o },
		func(w *sim.World, r core.UnitRequest) (any, error) { return w.DetachUnit(r) }), dispatcher.Logged())

	d.Register(CmdAssignUnit, handle(e, func(r *core.AssignUnitRequest, o string) { r.OwnerID = o },
		func(w *sim.World, r core.AssignUnitRequest) (any, error) { return w.AssignUnit(r) }), dispatcher.Logged())

	d.Register(CmdTakeLoan, handle(e, func(r *core.LoanRequest, o string) { r.OwnerID = o },
		func(w *sim.World, r core.LoanRequest) (any, error) { return w.TakeLoan(r) }), dispatcher.Logged())

	d.Register(CmdRanking, handle(e, nil, func(w *sim.World, r RankingRequest) (any, error) {
		n := r.Limit
		if n <= 0 {
			n = e.opts.RankingSize
		}
		return w.Ranking(n), nil
	}))

	d.Register(CmdStatus, func(ctx context.Context, _ dispatcher.Event) (any, error) {
		return e.Submit(ctx, func(w *sim.World) (any, error) {
			return w.Status(), nil
		})
	})
}

// handle decodes the payload into Req, stamps the event owner onto it and
// submits the world call.
func handle[Req any](e *Engine, setOwner func(*Req, string), apply func(*sim.World, Req) (any, error)) dispatcher.HandlerFunc {
	return func(ctx context.Context, ev dispatcher.Event) (any, error) {
		req, err := dispatcher.Decode[Req](ev)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
		}
		if setOwner != nil {
			setOwner(&req, ev.OwnerID)
		}
		return e.Submit(ctx, func(w *sim.World) (any, error) {
			return apply(w, req)
		})
	}
}

// buildTerminal looks up the population density before queueing so the
// network call never runs on the tick goroutine.
func (e *Engine) buildTerminal(ctx context.Context, ev dispatcher.Event) (any, error) {
	req, err := dispatcher.Decode[core.BuildTerminalRequest](ev)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	req.OwnerID = ev.OwnerID

	density, err := geodata.OrDefault(ctx, e.density, req.Coord)
	if err != nil {
		e.log.Warn("Density lookup failed, using default", "lat", req.Coord.Lat, "lng", req.Coord.Lng, "error", err)
	}
	req.Density = density

	return e.Submit(ctx, func(w *sim.World) (any, error) {
		return w.BuildTerminal(req)
	})
}
