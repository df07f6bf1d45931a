package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/railtycoon/server/internal/config"
	"github.com/railtycoon/server/internal/economy"
	"github.com/railtycoon/server/internal/sim"
	"github.com/railtycoon/server/internal/storage"
	"github.com/railtycoon/server/internal/storage/memory"
	"github.com/railtycoon/server/pkg/core"
	"github.com/railtycoon/server/pkg/streaming"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

var (
	siteA = core.LatLng{Lat: 35.0, Lng: 139.0}
	siteB = core.LatLng{Lat: 35.09, Lng: 139.0}
)

type recorder struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recorder) Publish(msgType string, _ any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msgType)
	return nil
}

func (r *recorder) Close() error { return nil }

func (r *recorder) count(msgType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.msgs {
		if m == msgType {
			n++
		}
	}
	return n
}

type sink struct {
	mu    sync.Mutex
	ticks []uint64
}

func (s *sink) RecordTick(p core.TickPayload, _ time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticks = append(s.ticks, p.Tick)
}

func newWorld() *sim.World {
	return sim.New(sim.Config{
		TimeScale: 60,
		StartTime: time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC),
		Terrain:   economy.Flat,
		Rand:      rand.New(rand.NewSource(1)),
		Logger:    discard,
	})
}

func newEngine(t *testing.T, deps Dependencies, opts Options) *Engine {
	t.Helper()
	if deps.World == nil {
		deps.World = newWorld()
	}
	deps.Logger = discard
	e, err := New(deps, opts)
	require.NoError(t, err)
	return e
}

func newMemoryStore(t *testing.T) storage.Backend {
	t.Helper()
	b := memory.New(config.MemoryConfig{OutputDir: t.TempDir()})
	require.NoError(t, b.Init())
	return b
}

// run starts the loop and returns a stop func that waits for Run to return.
func run(t *testing.T, e *Engine) func() error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()
	var once sync.Once
	var err error
	stop := func() error {
		once.Do(func() {
			cancel()
			err = <-done
		})
		return err
	}
	t.Cleanup(func() { stop() })
	return stop
}

func TestNew_RequiresWorld(t *testing.T) {
	_, err := New(Dependencies{}, Options{})
	assert.Error(t, err)
}

func TestOptionsFromConfig(t *testing.T) {
	opts := OptionsFromConfig(config.SimConfig{
		TickInterval:    50 * time.Millisecond,
		PersistInterval: time.Minute,
		RankingEvery:    5,
		RankingSize:     3,
	})
	assert.Equal(t, 50*time.Millisecond, opts.TickInterval)
	assert.Equal(t, time.Minute, opts.PersistInterval)
	assert.Equal(t, 5, opts.RankingEvery)
	assert.Equal(t, 3, opts.RankingSize)
}

func TestSubmit_AppliedByRun(t *testing.T) {
	e := newEngine(t, Dependencies{}, Options{TickInterval: 5 * time.Millisecond})
	run(t, e)

	v, err := e.Submit(context.Background(), func(w *sim.World) (any, error) {
		return w.RegisterOwner("p1")
	})
	require.NoError(t, err)
	assert.Equal(t, "p1", v.(core.OwnerRecord).ID)

	_, err = e.Submit(context.Background(), func(w *sim.World) (any, error) {
		return w.RegisterOwner("p1")
	})
	assert.ErrorIs(t, err, sim.ErrDuplicateOwner)

	assert.Eventually(t, func() bool { return e.Sample().Owners == 1 }, time.Second, 5*time.Millisecond)
}

func TestSubmit_ContextCancelled(t *testing.T) {
	e := newEngine(t, Dependencies{}, Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := e.Submit(ctx, func(w *sim.World) (any, error) { return nil, nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, e.Sample().CommandBacklog)
}

func TestSubmit_Busy(t *testing.T) {
	e := newEngine(t, Dependencies{}, Options{QueueLimit: 1})

	go e.Submit(context.Background(), func(w *sim.World) (any, error) { return nil, nil })
	require.Eventually(t, func() bool { return e.Sample().CommandBacklog == 1 }, time.Second, time.Millisecond)

	_, err := e.Submit(context.Background(), func(w *sim.World) (any, error) { return nil, nil })
	assert.ErrorIs(t, err, ErrBusy)
}

func TestStep_AppliesCommandsBeforeTick(t *testing.T) {
	e := newEngine(t, Dependencies{}, Options{})

	res := make(chan error, 1)
	go func() {
		_, err := e.Submit(context.Background(), func(w *sim.World) (any, error) {
			return w.RegisterOwner("p1")
		})
		res <- err
	}()
	require.Eventually(t, func() bool { return e.Sample().CommandBacklog == 1 }, time.Second, time.Millisecond)

	p := e.Step(context.Background(), time.Unix(1_700_000_000, 0))
	require.NoError(t, <-res)
	assert.Equal(t, 1, e.Sample().Owners)
	assert.Equal(t, p.Tick, e.Sample().Tick)
}

func TestStep_RecoversPanickingCommand(t *testing.T) {
	e := newEngine(t, Dependencies{}, Options{})

	res := make(chan error, 1)
	go func() {
		_, err := e.Submit(context.Background(), func(w *sim.World) (any, error) {
			panic("boom")
		})
		res <- err
	}()
	require.Eventually(t, func() bool { return e.Sample().CommandBacklog == 1 }, time.Second, time.Millisecond)

	e.Step(context.Background(), time.Unix(1_700_000_000, 0))
	assert.ErrorContains(t, <-res, "command panicked")
}

func TestStep_PublishesAndRecords(t *testing.T) {
	pub := &recorder{}
	metrics := &sink{}
	e := newEngine(t, Dependencies{Publisher: pub, Metrics: metrics}, Options{RankingEvery: 2})

	now := time.Unix(1_700_000_000, 0)
	for i := 0; i < 4; i++ {
		e.Step(context.Background(), now)
		now = now.Add(100 * time.Millisecond)
	}

	assert.Equal(t, 4, pub.count(streaming.TypeTickUpdate))
	assert.Equal(t, 2, pub.count(streaming.TypeRankingUpdate))
	assert.Equal(t, 0, pub.count(streaming.TypeSettlement))

	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	assert.Len(t, metrics.ticks, 4)
}

func TestStep_PublishesBalanceChanges(t *testing.T) {
	pub := &recorder{}
	w := newWorld()
	_, err := w.RegisterOwner("p1")
	require.NoError(t, err)
	e := newEngine(t, Dependencies{World: w, Publisher: pub}, Options{})

	now := time.Unix(1_700_000_000, 0)
	e.Step(context.Background(), now)

	_, err = w.BuildTerminal(core.BuildTerminalRequest{OwnerID: "p1", Coord: siteA, Kind: core.KindRail})
	require.NoError(t, err)
	e.Step(context.Background(), now.Add(100*time.Millisecond))

	assert.GreaterOrEqual(t, pub.count(streaming.TypeBalanceUpdate), 1)
}

func TestRun_PersistsAndSavesOnShutdown(t *testing.T) {
	store := newMemoryStore(t)
	e := newEngine(t, Dependencies{Storage: store}, Options{
		TickInterval:    5 * time.Millisecond,
		PersistInterval: 10 * time.Millisecond,
	})
	stop := run(t, e)

	_, err := e.Submit(context.Background(), func(w *sim.World) (any, error) {
		return w.RegisterOwner("p1")
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		snap, err := store.LoadSnapshot(context.Background())
		return err == nil && len(snap.Owners) == 1
	}, 2*time.Second, 10*time.Millisecond)

	_, err = e.Submit(context.Background(), func(w *sim.World) (any, error) {
		return w.RegisterOwner("p2")
	})
	require.NoError(t, err)
	require.NoError(t, stop())

	snap, err := store.LoadSnapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Owners, 2)
}

func TestRun_FailsPendingOnShutdown(t *testing.T) {
	e := newEngine(t, Dependencies{}, Options{TickInterval: time.Hour})

	res := make(chan error, 1)
	go func() {
		_, err := e.Submit(context.Background(), func(w *sim.World) (any, error) { return nil, nil })
		res <- err
	}()
	require.Eventually(t, func() bool { return e.Sample().CommandBacklog == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, e.Run(ctx))
	assert.ErrorIs(t, <-res, ErrStopped)
}

func TestRun_AlreadyRunning(t *testing.T) {
	e := newEngine(t, Dependencies{}, Options{TickInterval: 5 * time.Millisecond})
	run(t, e)
	require.Eventually(t, func() bool { return e.running.Load() }, time.Second, time.Millisecond)

	assert.Error(t, e.Run(context.Background()))
}

func TestRestore(t *testing.T) {
	store := newMemoryStore(t)

	// nothing persisted yet
	e := newEngine(t, Dependencies{Storage: store}, Options{})
	require.NoError(t, e.Restore(context.Background()))
	assert.Equal(t, 0, e.Sample().Owners)

	src := newWorld()
	_, err := src.RegisterOwner("p1")
	require.NoError(t, err)
	_, err = src.BuildTerminal(core.BuildTerminalRequest{OwnerID: "p1", Coord: siteA, Kind: core.KindRail})
	require.NoError(t, err)
	require.NoError(t, store.SaveSnapshot(context.Background(), src.Snapshot()))

	e = newEngine(t, Dependencies{Storage: store}, Options{})
	require.NoError(t, e.Restore(context.Background()))
	s := e.Sample()
	assert.Equal(t, 1, s.Owners)
	assert.Equal(t, 1, s.Terminals)
}

type brokenStore struct{ storage.Backend }

func (brokenStore) LoadSnapshot(context.Context) (core.Snapshot, error) {
	return core.Snapshot{}, errors.New("disk on fire")
}

func TestRestore_Error(t *testing.T) {
	e := newEngine(t, Dependencies{Storage: brokenStore{}}, Options{})
	assert.ErrorContains(t, e.Restore(context.Background()), "disk on fire")
}

func TestLogAttrs(t *testing.T) {
	e := newEngine(t, Dependencies{}, Options{})
	e.Step(context.Background(), time.Unix(1_700_000_000, 0))

	attrs := e.LogAttrs()
	require.Len(t, attrs, 2)
	assert.Equal(t, "tick", attrs[0].Key)
	assert.Equal(t, "gameTime", attrs[1].Key)
}
