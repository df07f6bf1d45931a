package sim

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"math/rand"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/railtycoon/server/internal/economy"
	"github.com/railtycoon/server/internal/geo"
	"github.com/railtycoon/server/pkg/core"
)

const (
	minNameRunes = 2
	maxNameRunes = 20
)

// Config holds the parameters of a new world.
type Config struct {
	TimeScale      float64
	StartTime      time.Time
	LoanAnnualRate float64
	Terrain        economy.Terrain
	Rand           *rand.Rand
	Logger         *slog.Logger
}

// World is the whole simulation state. It is not safe for concurrent use;
// the engine serializes commands and ticks onto a single goroutine.
type World struct {
	log            *slog.Logger
	rng            *rand.Rand
	terrain        economy.Terrain
	loanAnnualRate float64

	clock *Clock
	tick  uint64

	owners    map[string]*Owner
	terminals map[uint64]*Terminal
	lines     map[uint64]*Line
	units     map[uint64]*Unit

	nextTerminalID uint64
	nextLineID     uint64
	nextUnitID     uint64
	nextLoanID     uint64

	lastBalances           map[string]int64
	lastMonthlyMaintenance int64
}

// New creates an empty world.
func New(cfg Config) *World {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.Terrain == nil {
		cfg.Terrain = economy.NewSyntheticTerrain(cfg.Rand)
	}
	if cfg.TimeScale <= 0 {
		cfg.TimeScale = 1
	}
	if cfg.StartTime.IsZero() {
		cfg.StartTime = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	}

	return &World{
		log:            cfg.Logger,
		rng:            cfg.Rand,
		terrain:        cfg.Terrain,
		loanAnnualRate: cfg.LoanAnnualRate,
		clock:          NewClock(cfg.StartTime, cfg.TimeScale),
		owners:         make(map[string]*Owner),
		terminals:      make(map[uint64]*Terminal),
		lines:          make(map[uint64]*Line),
		units:          make(map[uint64]*Unit),
		nextTerminalID: 1,
		nextLineID:     1,
		nextUnitID:     1,
		nextLoanID:     1,
		lastBalances:   make(map[string]int64),
	}
}

func (w *World) GameTime() time.Time {
	return w.clock.GameTime
}

func (w *World) Status() core.WorldStatus {
	return core.WorldStatus{
		Tick:      w.tick,
		GameTime:  w.clock.GameTime,
		TimeScale: w.clock.TimeScale,
		Owners:    len(w.owners),
		Terminals: len(w.terminals),
		Lines:     len(w.lines),
		Units:     len(w.units),
	}
}

func (w *World) owner(id string) (*Owner, error) {
	o, ok := w.owners[id]
	if !ok {
		return nil, invalid(ReasonUnknownOwner, "owner %q", id)
	}
	return o, nil
}

func (w *World) ownedTerminal(ownerID string, id uint64) (*Owner, *Terminal, error) {
	o, err := w.owner(ownerID)
	if err != nil {
		return nil, nil, err
	}
	t, ok := w.terminals[id]
	if !ok {
		return nil, nil, invalid(ReasonUnknownTerminal, "terminal %d", id)
	}
	if t.OwnerID != ownerID {
		return nil, nil, invalid(ReasonNotOwner, "terminal %d belongs to %q", id, t.OwnerID)
	}
	return o, t, nil
}

func (w *World) ownedLine(ownerID string, id uint64) (*Owner, *Line, error) {
	o, err := w.owner(ownerID)
	if err != nil {
		return nil, nil, err
	}
	l, ok := w.lines[id]
	if !ok {
		return nil, nil, invalid(ReasonUnknownLine, "line %d", id)
	}
	if l.OwnerID != ownerID {
		return nil, nil, invalid(ReasonNotOwner, "line %d belongs to %q", id, l.OwnerID)
	}
	return o, l, nil
}

func (w *World) ownedUnit(ownerID string, id uint64) (*Owner, *Unit, error) {
	o, err := w.owner(ownerID)
	if err != nil {
		return nil, nil, err
	}
	u, ok := w.units[id]
	if !ok {
		return nil, nil, invalid(ReasonUnknownUnit, "unit %d", id)
	}
	if u.OwnerID != ownerID {
		return nil, nil, invalid(ReasonNotOwner, "unit %d belongs to %q", id, u.OwnerID)
	}
	return o, u, nil
}

// Owner returns the current state of an owner.
func (w *World) Owner(id string) (core.OwnerRecord, error) {
	o, err := w.owner(id)
	if err != nil {
		return core.OwnerRecord{}, err
	}
	return o.Record(), nil
}

func (w *World) Terminal(id uint64) (*Terminal, bool) {
	t, ok := w.terminals[id]
	return t, ok
}

func (w *World) Line(id uint64) (*Line, bool) {
	l, ok := w.lines[id]
	return l, ok
}

func (w *World) Unit(id uint64) (*Unit, bool) {
	u, ok := w.units[id]
	return u, ok
}

// RegisterOwner creates a company with the starting balance.
func (w *World) RegisterOwner(id string) (core.OwnerRecord, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return core.OwnerRecord{}, invalid(ReasonInvalidName, "owner id is empty")
	}
	if _, ok := w.owners[id]; ok {
		return core.OwnerRecord{}, invalid(ReasonDuplicateOwner, "owner %q", id)
	}

	o := &Owner{ID: id, Balance: economy.StartingBalance}
	w.owners[id] = o
	w.lastBalances[id] = o.Balance
	w.log.Info("Owner registered", "owner", id)
	return o.Record(), nil
}

func validName(name string) bool {
	n := utf8.RuneCountInString(name)
	return n >= minNameRunes && n <= maxNameRunes
}

// BuildTerminal places a new small terminal. Demand is seeded from the
// request's population density.
func (w *World) BuildTerminal(req core.BuildTerminalRequest) (core.TerminalRecord, error) {
	o, err := w.owner(req.OwnerID)
	if err != nil {
		return core.TerminalRecord{}, err
	}
	if !req.Kind.Valid() {
		return core.TerminalRecord{}, invalid(ReasonInvalidKind, "kind %q", req.Kind)
	}
	if err := geo.ValidateCoord(req.Coord); err != nil {
		return core.TerminalRecord{}, invalid(ReasonInvalidCoordinates, "%v", err)
	}
	name := strings.TrimSpace(req.Name)
	if name != "" && !validName(name) {
		return core.TerminalRecord{}, invalid(ReasonInvalidName, "name must be %d to %d characters", minNameRunes, maxNameRunes)
	}
	for _, id := range slices.Sorted(maps.Keys(w.terminals)) {
		t := w.terminals[id]
		if t.OwnerID == o.ID {
			continue
		}
		if d := geo.SegmentKm(t.Coord, req.Coord); d < economy.ExclusionRadiusKm {
			return core.TerminalRecord{}, invalid(ReasonTooCloseToTerminal, "%.3f km from terminal %d", d, t.ID)
		}
	}
	if err := o.charge(economy.TerminalCost(req.Kind)); err != nil {
		return core.TerminalRecord{}, err
	}

	id := w.nextTerminalID
	w.nextTerminalID++
	if name == "" {
		name = fmt.Sprintf("Terminal %d", id)
	}

	t := newTerminal(core.TerminalRecord{
		ID:      id,
		OwnerID: o.ID,
		Name:    name,
		Coord:   req.Coord,
		Kind:    req.Kind,
		Tier:    core.TierSmall,
		Demand:  economy.DemandFromDensity(req.Density, w.rng),
	})
	w.terminals[id] = t
	w.log.Info("Terminal built", "owner", o.ID, "terminal", id, "kind", req.Kind)
	return t.Record(), nil
}

// UpgradeTerminal raises a terminal to a larger tier.
func (w *World) UpgradeTerminal(req core.UpgradeTerminalRequest) (core.TerminalRecord, error) {
	o, t, err := w.ownedTerminal(req.OwnerID, req.TerminalID)
	if err != nil {
		return core.TerminalRecord{}, err
	}
	if req.Tier.Rank() <= t.Tier.Rank() {
		return core.TerminalRecord{}, invalid(ReasonInvalidTier, "cannot go from %s to %q", t.Tier, req.Tier)
	}
	cost, ok := economy.TerminalUpgradeCost(t.Kind, req.Tier)
	if !ok {
		return core.TerminalRecord{}, invalid(ReasonInvalidTier, "tier %q", req.Tier)
	}
	if err := o.charge(cost); err != nil {
		return core.TerminalRecord{}, err
	}

	t.Tier = req.Tier
	return t.Record(), nil
}

func (w *World) RenameTerminal(req core.RenameTerminalRequest) (core.TerminalRecord, error) {
	_, t, err := w.ownedTerminal(req.OwnerID, req.TerminalID)
	if err != nil {
		return core.TerminalRecord{}, err
	}
	name := strings.TrimSpace(req.Name)
	if !validName(name) {
		return core.TerminalRecord{}, invalid(ReasonInvalidName, "name must be %d to %d characters", minNameRunes, maxNameRunes)
	}
	t.Name = name
	return t.Record(), nil
}

// DemolishTerminal removes a terminal that no line serves.
func (w *World) DemolishTerminal(req core.TerminalRequest) (core.Receipt, error) {
	o, t, err := w.ownedTerminal(req.OwnerID, req.TerminalID)
	if err != nil {
		return core.Receipt{}, err
	}
	if len(t.Lines) > 0 || t.Occupancy() > 0 {
		return core.Receipt{}, invalid(ReasonTerminalInUse, "terminal %d is served by %d lines", t.ID, len(t.Lines))
	}
	cost := economy.TerminalDemolitionCost(t.Kind)
	if err := o.charge(cost); err != nil {
		return core.Receipt{}, err
	}

	delete(w.terminals, t.ID)
	w.log.Info("Terminal demolished", "owner", o.ID, "terminal", t.ID)
	return core.Receipt{Cost: cost, Balance: o.Balance}, nil
}

func validateRoute(coords []core.LatLng, track core.TrackType) error {
	if _, ok := economy.TrackMultiplier(track); !ok {
		return invalid(ReasonUnknownTrackType, "track %q", track)
	}
	if len(coords) < 2 {
		return invalid(ReasonTooFewTerminals, "route needs at least 2 points, got %d", len(coords))
	}
	for _, c := range coords {
		if err := geo.ValidateCoord(c); err != nil {
			return invalid(ReasonInvalidCoordinates, "%v", err)
		}
	}
	return nil
}

// QuoteLine prices a proposed route without building it.
func (w *World) QuoteLine(req core.LineRequest) (core.LineQuote, error) {
	if err := validateRoute(req.Coords, req.Track); err != nil {
		return core.LineQuote{}, err
	}
	q, err := economy.RouteCost(req.Coords, req.Track, w.terrain)
	if errors.Is(err, economy.ErrUnknownTrack) {
		return core.LineQuote{}, invalid(ReasonUnknownTrackType, "track %q", req.Track)
	}
	return q, err
}

// terminalAt finds the terminal of the given kind at c. A terminal of
// another kind at c is reported through mismatch.
func (w *World) terminalAt(c core.LatLng, kind core.TerminalKind) (t *Terminal, mismatch bool) {
	for _, id := range slices.Sorted(maps.Keys(w.terminals)) {
		x := w.terminals[id]
		if !x.Coord.Near(c) {
			continue
		}
		if x.Kind == kind {
			return x, false
		}
		mismatch = true
	}
	return nil, mismatch
}

// BuildLine builds a line along coords. Both endpoints must be terminals of
// the kind the track connects; every other vertex that matches such a
// terminal becomes an intermediate stop.
func (w *World) BuildLine(req core.LineRequest) (core.LineRecord, error) {
	o, err := w.owner(req.OwnerID)
	if err != nil {
		return core.LineRecord{}, err
	}
	if err := validateRoute(req.Coords, req.Track); err != nil {
		return core.LineRecord{}, err
	}

	kind := req.Track.TerminalKind()
	for _, end := range []core.LatLng{req.Coords[0], req.Coords[len(req.Coords)-1]} {
		t, mismatch := w.terminalAt(end, kind)
		if t != nil {
			continue
		}
		if mismatch {
			return core.LineRecord{}, invalid(ReasonTerminalKindMismatch, "%s track needs %s terminals", req.Track, kind)
		}
		return core.LineRecord{}, invalid(ReasonEndpointNotTerminal, "no terminal at %.6f,%.6f", end.Lat, end.Lng)
	}

	var served []*Terminal
	seen := make(map[uint64]bool)
	for _, c := range req.Coords {
		t, _ := w.terminalAt(c, kind)
		if t != nil && !seen[t.ID] {
			seen[t.ID] = true
			served = append(served, t)
		}
	}
	if len(served) < 2 {
		return core.LineRecord{}, invalid(ReasonTooFewTerminals, "line serves %d terminal", len(served))
	}

	q, err := economy.RouteCost(req.Coords, req.Track, w.terrain)
	if err != nil {
		return core.LineRecord{}, invalid(ReasonUnknownTrackType, "%v", err)
	}
	if q.LengthKm <= 0 {
		return core.LineRecord{}, invalid(ReasonTooFewTerminals, "route has zero length")
	}

	id := w.nextLineID
	l, err := newLine(core.LineRecord{
		ID:      id,
		OwnerID: o.ID,
		Track:   req.Track,
		Coords:  req.Coords,
		Cost:    q.Cost,
		Color:   economy.LineColor(id),
	}, served, w.log)
	if err != nil {
		return core.LineRecord{}, fmt.Errorf("build line: %w", err)
	}
	if err := o.charge(q.Cost); err != nil {
		return core.LineRecord{}, err
	}
	w.nextLineID++

	for _, t := range l.terminals {
		t.connect(l.ID)
	}
	o.ConstructionSpend += q.Cost
	w.lines[l.ID] = l
	w.log.Info("Line built", "owner", o.ID, "line", l.ID, "track", req.Track, "km", q.LengthKm, "cost", q.Cost)
	return l.Record(), nil
}

// DemolishLine removes a line. Its units are sold and their slots released.
func (w *World) DemolishLine(req core.LineIDRequest) (core.Receipt, error) {
	o, l, err := w.ownedLine(req.OwnerID, req.LineID)
	if err != nil {
		return core.Receipt{}, err
	}

	cost := economy.LineDemolitionCost(l.Cost)
	var refund int64
	for _, u := range l.units {
		refund += economy.UnitSaleValue(u.PurchaseCost)
	}
	// the sale of the units is not credited before the demolition is paid
	if o.Balance < cost {
		return core.Receipt{}, invalid(ReasonInsufficientFunds, "need %d, have %d", cost, o.Balance)
	}

	for _, u := range l.Units() {
		l.detach(u)
		delete(w.units, u.ID)
	}
	for _, t := range l.terminals {
		t.disconnect(l.ID)
	}
	o.Balance += refund - cost
	o.ConstructionSpend = max(0, o.ConstructionSpend-l.Cost)
	delete(w.lines, l.ID)

	w.log.Info("Line demolished", "owner", o.ID, "line", l.ID, "cost", cost, "refund", refund)
	return core.Receipt{Cost: cost, Refund: refund, Balance: o.Balance}, nil
}

// BuyUnit purchases a unit and starts it at the first terminal of the line.
func (w *World) BuyUnit(req core.BuyUnitRequest) (core.UnitRecord, error) {
	o, l, err := w.ownedLine(req.OwnerID, req.LineID)
	if err != nil {
		return core.UnitRecord{}, err
	}
	cat, ok := economy.LookupCategory(req.Category)
	if !ok {
		return core.UnitRecord{}, invalid(ReasonUnknownCategory, "category %q", req.Category)
	}

	u, err := l.AddUnit(w.nextUnitID, cat, o)
	if err != nil {
		return core.UnitRecord{}, err
	}
	w.nextUnitID++
	w.units[u.ID] = u
	return u.Record(), nil
}

// SellUnit scraps a unit for a third of its purchase price.
func (w *World) SellUnit(req core.UnitRequest) (core.Receipt, error) {
	o, u, err := w.ownedUnit(req.OwnerID, req.UnitID)
	if err != nil {
		return core.Receipt{}, err
	}
	if l, ok := w.lines[u.LineID]; ok {
		l.detach(u)
	}
	u.releaseAll()
	delete(w.units, u.ID)

	refund := economy.UnitSaleValue(u.PurchaseCost)
	o.Balance += refund
	return core.Receipt{Refund: refund, Balance: o.Balance}, nil
}

// DetachUnit takes a unit off its line. Detaching an idle unit is a no-op.
func (w *World) DetachUnit(req core.UnitRequest) (core.UnitRecord, error) {
	_, u, err := w.ownedUnit(req.OwnerID, req.UnitID)
	if err != nil {
		return core.UnitRecord{}, err
	}
	if l, ok := w.lines[u.LineID]; ok {
		l.detach(u)
	}
	return u.Record(), nil
}

// AssignUnit moves a unit onto a line, starting at km 0.
func (w *World) AssignUnit(req core.AssignUnitRequest) (core.UnitRecord, error) {
	_, u, err := w.ownedUnit(req.OwnerID, req.UnitID)
	if err != nil {
		return core.UnitRecord{}, err
	}
	_, l, err := w.ownedLine(req.OwnerID, req.LineID)
	if err != nil {
		return core.UnitRecord{}, err
	}
	if !u.Category.CompatibleWith(l.Track) {
		return core.UnitRecord{}, invalid(ReasonIncompatibleCategory, "%s cannot run on %s track", u.Category.Key, l.Track)
	}

	if cur, ok := w.lines[u.LineID]; ok {
		cur.detach(u)
	}
	l.attach(u)
	return u.Record(), nil
}

// TakeLoan credits the principal at once; repayment happens at settlement.
func (w *World) TakeLoan(req core.LoanRequest) (core.LoanRecord, error) {
	o, err := w.owner(req.OwnerID)
	if err != nil {
		return core.LoanRecord{}, err
	}
	loan, err := economy.NewLoan(w.nextLoanID, req.Principal, req.TermMonths, w.loanAnnualRate)
	if err != nil {
		return core.LoanRecord{}, invalid(ReasonInvalidLoan, "%v", err)
	}
	w.nextLoanID++

	o.Loans = append(o.Loans, loan)
	o.Balance += loan.Principal
	w.log.Info("Loan taken", "owner", o.ID, "loan", loan.ID, "principal", loan.Principal, "monthly", loan.MonthlyPayment)
	return loan, nil
}

// Ranking returns the top n owners. n <= 0 returns everyone.
func (w *World) Ranking(n int) []core.RankingEntry {
	units := make(map[string]int, len(w.owners))
	for _, u := range w.units {
		units[u.OwnerID]++
	}

	standings := make([]economy.Standing, 0, len(w.owners))
	for _, id := range slices.Sorted(maps.Keys(w.owners)) {
		o := w.owners[id]
		standings = append(standings, economy.Standing{
			OwnerID:           o.ID,
			Balance:           o.Balance,
			ConstructionSpend: o.ConstructionSpend,
			Units:             units[o.ID],
			Outstanding:       o.Outstanding(),
		})
	}
	return economy.Rank(standings, n)
}
