// Package engine drives the world: it owns the only goroutine that touches
// sim.World, applying queued commands between ticks.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/railtycoon/server/internal/broadcast"
	"github.com/railtycoon/server/internal/config"
	"github.com/railtycoon/server/internal/geodata"
	"github.com/railtycoon/server/internal/monitor"
	"github.com/railtycoon/server/internal/queue"
	"github.com/railtycoon/server/internal/sim"
	"github.com/railtycoon/server/internal/storage"
	"github.com/railtycoon/server/pkg/core"
	"github.com/railtycoon/server/pkg/streaming"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/railtycoon/server/internal/engine"

var (
	// ErrBusy is returned by Submit when the command backlog is full.
	ErrBusy = errors.New("command backlog full")
	// ErrStopped is returned for commands that were pending when the engine stopped.
	ErrStopped = errors.New("engine stopped")
)

// MetricsSink receives every tick, e.g. to write it to InfluxDB.
type MetricsSink interface {
	RecordTick(p core.TickPayload, took time.Duration)
}

// Options tune the tick loop.
type Options struct {
	TickInterval    time.Duration
	PersistInterval time.Duration
	RankingEvery    int
	RankingSize     int
	// QueueLimit bounds the command backlog; zero means 10,000.
	QueueLimit int
	SaveTimeout time.Duration
}

// OptionsFromConfig maps the sim section of the configuration.
func OptionsFromConfig(cfg config.SimConfig) Options {
	return Options{
		TickInterval:    cfg.TickInterval,
		PersistInterval: cfg.PersistInterval,
		RankingEvery:    cfg.RankingEvery,
		RankingSize:     cfg.RankingSize,
	}
}

// Dependencies are the collaborators of the engine. Only World is required.
type Dependencies struct {
	World     *sim.World
	Publisher broadcast.Publisher
	Storage   storage.Backend
	Metrics   MetricsSink
	Density   geodata.Source
	Logger    *slog.Logger
}

// Mutation runs on the engine goroutine with exclusive access to the world.
type Mutation func(w *sim.World) (any, error)

type command struct {
	fn     Mutation
	result chan result
}

type result struct {
	v   any
	err error
}

type instruments struct {
	ticks     metric.Int64Counter
	duration  metric.Float64Histogram
	applied   metric.Int64Counter
	rejected  metric.Int64Counter
	saved     metric.Int64Counter
	saveFails metric.Int64Counter
}

// Engine owns the tick loop.
type Engine struct {
	world   *sim.World
	opts    Options
	pub     broadcast.Publisher
	store   storage.Backend
	metrics MetricsSink
	density geodata.Source
	log     *slog.Logger

	commands  *queue.Queue[command]
	persistCh chan core.Snapshot
	persistWG sync.WaitGroup
	running   atomic.Bool
	sample    atomic.Pointer[monitor.Sample]
	inst      instruments
}

// New creates an engine around an existing world.
func New(deps Dependencies, opts Options) (*Engine, error) {
	if deps.World == nil {
		return nil, errors.New("engine: world is required")
	}
	if deps.Publisher == nil {
		deps.Publisher = broadcast.Nop{}
	}
	if deps.Density == nil {
		deps.Density = geodata.Fixed(geodata.DefaultDensity)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = 100 * time.Millisecond
	}
	if opts.RankingEvery <= 0 {
		opts.RankingEvery = 10
	}
	if opts.RankingSize <= 0 {
		opts.RankingSize = 10
	}
	if opts.QueueLimit <= 0 {
		opts.QueueLimit = 10_000
	}
	if opts.SaveTimeout <= 0 {
		opts.SaveTimeout = 30 * time.Second
	}

	e := &Engine{
		world:     deps.World,
		opts:      opts,
		pub:       deps.Publisher,
		store:     deps.Storage,
		metrics:   deps.Metrics,
		density:   deps.Density,
		log:       deps.Logger.With("component", "engine"),
		commands:  queue.New[command](opts.QueueLimit),
		persistCh: make(chan core.Snapshot, 1),
	}
	if err := e.initInstruments(); err != nil {
		return nil, err
	}
	e.storeSample(0)
	return e, nil
}

func (e *Engine) initInstruments() error {
	m := otel.Meter(instrumentationName)

	var err error
	if e.inst.ticks, err = m.Int64Counter("engine.ticks",
		metric.WithDescription("Simulation ticks run")); err != nil {
		return fmt.Errorf("creating ticks counter: %w", err)
	}
	if e.inst.duration, err = m.Float64Histogram("engine.tick.duration",
		metric.WithDescription("Wall time of a tick including queued commands"),
		metric.WithUnit("ms")); err != nil {
		return fmt.Errorf("creating tick duration histogram: %w", err)
	}
	if e.inst.applied, err = m.Int64Counter("engine.commands.applied",
		metric.WithDescription("Commands applied to the world")); err != nil {
		return fmt.Errorf("creating applied counter: %w", err)
	}
	if e.inst.rejected, err = m.Int64Counter("engine.commands.rejected",
		metric.WithDescription("Commands rejected by validation or failure")); err != nil {
		return fmt.Errorf("creating rejected counter: %w", err)
	}
	if e.inst.saved, err = m.Int64Counter("engine.snapshots.saved",
		metric.WithDescription("Snapshots persisted")); err != nil {
		return fmt.Errorf("creating saved counter: %w", err)
	}
	if e.inst.saveFails, err = m.Int64Counter("engine.snapshots.failed",
		metric.WithDescription("Snapshots that could not be persisted")); err != nil {
		return fmt.Errorf("creating save failure counter: %w", err)
	}

	backlog, err := m.Int64ObservableGauge("engine.commands.backlog",
		metric.WithDescription("Commands waiting for the next tick"))
	if err != nil {
		return fmt.Errorf("creating backlog gauge: %w", err)
	}
	_, err = m.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(backlog, int64(e.commands.Len()))
		return nil
	}, backlog)
	if err != nil {
		return fmt.Errorf("registering backlog callback: %w", err)
	}
	return nil
}

// Restore loads the persisted world, if any. It must be called before Run.
func (e *Engine) Restore(ctx context.Context) error {
	if e.store == nil {
		return nil
	}
	snap, err := e.store.LoadSnapshot(ctx)
	if errors.Is(err, storage.ErrNoSnapshot) {
		e.log.Info("No persisted world, starting fresh")
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading snapshot: %w", err)
	}
	if err := e.world.Restore(snap); err != nil {
		return fmt.Errorf("restoring world: %w", err)
	}
	st := e.world.Status()
	e.log.Info("World restored", "gameTime", st.GameTime, "owners", st.Owners, "lines", st.Lines, "units", st.Units)
	e.storeSample(0)
	return nil
}

// Submit queues fn for the next tick and waits for its result. A command
// that was queued is applied even if ctx ends first.
func (e *Engine) Submit(ctx context.Context, fn Mutation) (any, error) {
	cmd := command{fn: fn, result: make(chan result, 1)}
	if err := e.commands.Push(cmd); err != nil {
		return nil, ErrBusy
	}
	select {
	case r := <-cmd.result:
		return r.v, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Run ticks until ctx is cancelled, then fails pending commands and saves
// a final snapshot.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return errors.New("engine already running")
	}
	defer e.running.Store(false)

	if e.store != nil {
		e.persistWG.Add(1)
		go e.persistLoop()
	}

	ticker := time.NewTicker(e.opts.TickInterval)
	defer ticker.Stop()

	e.log.Info("Engine started", "tickInterval", e.opts.TickInterval, "persistInterval", e.opts.PersistInterval)
	lastPersist := time.Now()

	for {
		select {
		case <-ctx.Done():
			return e.shutdown(ctx)
		case now := <-ticker.C:
			e.Step(ctx, now)
			if e.store != nil && e.opts.PersistInterval > 0 && now.Sub(lastPersist) >= e.opts.PersistInterval {
				lastPersist = now
				e.requestPersist()
			}
		}
	}
}

// Step applies queued commands and advances the world once. Run calls it on
// every tick; it must never be called concurrently with Run.
func (e *Engine) Step(ctx context.Context, now time.Time) core.TickPayload {
	start := time.Now()

	for _, cmd := range e.commands.Drain() {
		v, err := e.apply(cmd.fn)
		if err != nil {
			e.inst.rejected.Add(ctx, 1)
		} else {
			e.inst.applied.Add(ctx, 1)
		}
		cmd.result <- result{v: v, err: err}
	}

	payload := e.world.Tick(now)
	e.publish(payload)

	took := time.Since(start)
	e.inst.ticks.Add(ctx, 1)
	e.inst.duration.Record(ctx, float64(took.Microseconds())/1000,
		metric.WithAttributes(attribute.Bool("settlement", len(payload.Settlement) > 0)))
	if e.metrics != nil {
		e.metrics.RecordTick(payload, took)
	}
	e.storeSample(took)
	return payload
}

// apply isolates a panicking command so it cannot take down the loop.
func (e *Engine) apply(fn Mutation) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("Command panicked", "panic", r)
			v, err = nil, fmt.Errorf("command panicked: %v", r)
		}
	}()
	return fn(e.world)
}

func (e *Engine) publish(p core.TickPayload) {
	send := func(msgType string, payload any) {
		if err := e.pub.Publish(msgType, payload); err != nil {
			e.log.Warn("Broadcast failed", "type", msgType, "error", err)
		}
	}

	send(streaming.TypeTickUpdate, p)
	if len(p.Balances) > 0 {
		send(streaming.TypeBalanceUpdate, streaming.BalancePayload{Updates: p.Balances})
	}
	if len(p.Settlement) > 0 {
		send(streaming.TypeSettlement, streaming.SettlementPayload{GameTime: p.GameTime, Records: p.Settlement})
	}
	if p.Tick%uint64(e.opts.RankingEvery) == 0 {
		send(streaming.TypeRankingUpdate, streaming.RankingPayload{
			GameTime: p.GameTime,
			Entries:  e.world.Ranking(e.opts.RankingSize),
		})
	}
}

// requestPersist hands a snapshot to the persistence goroutine, skipping
// it when the previous one is still being written.
func (e *Engine) requestPersist() {
	select {
	case e.persistCh <- e.world.Snapshot():
	default:
		e.log.Debug("Persistence busy, skipping snapshot")
	}
}

func (e *Engine) persistLoop() {
	defer e.persistWG.Done()
	for snap := range e.persistCh {
		e.save(context.Background(), snap)
	}
}

func (e *Engine) save(ctx context.Context, snap core.Snapshot) error {
	ctx, cancel := context.WithTimeout(ctx, e.opts.SaveTimeout)
	defer cancel()

	start := time.Now()
	if err := e.store.SaveSnapshot(ctx, snap); err != nil {
		e.inst.saveFails.Add(ctx, 1)
		e.log.Error("Failed to persist world", "error", err)
		return err
	}
	e.inst.saved.Add(ctx, 1)
	e.log.Debug("World persisted", "took", time.Since(start), "units", len(snap.Units))
	return nil
}

func (e *Engine) shutdown(ctx context.Context) error {
	for _, cmd := range e.commands.Drain() {
		cmd.result <- result{err: ErrStopped}
	}

	if e.store == nil {
		e.log.Info("Engine stopped")
		return nil
	}

	close(e.persistCh)
	e.persistWG.Wait()
	e.persistCh = make(chan core.Snapshot, 1)

	err := e.save(context.WithoutCancel(ctx), e.world.Snapshot())
	e.log.Info("Engine stopped", "finalSave", err == nil)
	if err != nil {
		return fmt.Errorf("final snapshot: %w", err)
	}
	return nil
}

func (e *Engine) storeSample(took time.Duration) {
	st := e.world.Status()
	e.sample.Store(&monitor.Sample{
		Tick:             st.Tick,
		GameTime:         st.GameTime,
		LastTickDuration: took,
		Owners:           st.Owners,
		Terminals:        st.Terminals,
		Lines:            st.Lines,
		Units:            st.Units,
	})
}

// Sample implements monitor.Source. It is safe to call from any goroutine.
func (e *Engine) Sample() monitor.Sample {
	s := *e.sample.Load()
	s.CommandBacklog = e.commands.Len()
	return s
}

// LogAttrs returns the tick and game time for log records.
func (e *Engine) LogAttrs() []slog.Attr {
	s := e.sample.Load()
	return []slog.Attr{
		slog.Uint64("tick", s.Tick),
		slog.Time("gameTime", s.GameTime),
	}
}
