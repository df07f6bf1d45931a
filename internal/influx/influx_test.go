package influx

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/railtycoon/server/internal/config"
	"github.com/railtycoon/server/pkg/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTick() core.TickPayload {
	return core.TickPayload{
		Tick:     7,
		GameTime: time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC),
		Settlement: []core.SettlementRecord{
			{OwnerID: "p1", LineMaintenance: 10, UnitMaintenance: 20, LoanPayments: 30, Total: 60},
		},
		Stats: core.TickStats{TimeScale: 60, Units: 3, Arrivals: 1, Revenue: 1250},
	}
}

func TestTickPoint(t *testing.T) {
	p := TickPoint(sampleTick(), 1500*time.Microsecond)
	assert.Equal(t, "tick", p.Name())

	fields := map[string]interface{}{}
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	assert.Equal(t, int64(7), fields["tick"])
	assert.Equal(t, int64(1250), fields["revenue"])
	assert.InDelta(t, 1.5, fields["tick_duration"], 1e-9)
}

func TestSettlementPoint(t *testing.T) {
	tick := sampleTick()
	p := SettlementPoint(tick.GameTime, tick.Settlement[0])
	assert.Equal(t, "settlement", p.Name())
	require.Len(t, p.TagList(), 1)
	assert.Equal(t, "owner", p.TagList()[0].Key)
	assert.Equal(t, "p1", p.TagList()[0].Value)
	assert.True(t, p.Time().Equal(tick.GameTime))
}

func TestConnect_Disabled(t *testing.T) {
	m := NewManager(config.InfluxConfig{}, zerolog.Nop(), filepath.Join(t.TempDir(), "influx.gz"))
	assert.ErrorIs(t, m.Connect(context.Background()), ErrDisabled)
}

func TestWritePoint_NotConnected(t *testing.T) {
	m := NewManager(config.InfluxConfig{}, zerolog.Nop(), "")
	assert.Error(t, m.WritePoint(BucketSimulation, TickPoint(sampleTick(), 0)))
}

func TestRecordTick_BackupFile(t *testing.T) {
	backup := filepath.Join(t.TempDir(), "influx_backup.log.gz")
	m := NewManager(config.InfluxConfig{
		Enabled:  true,
		Protocol: "http",
		Host:     "127.0.0.1",
		Port:     "1",
		Org:      "railsim",
	}, zerolog.Nop(), backup)

	require.NoError(t, m.Connect(context.Background()))
	require.False(t, m.IsValid)

	m.RecordTick(sampleTick(), time.Millisecond)
	require.NoError(t, m.Close())

	f, err := os.Open(backup)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	raw, err := io.ReadAll(gz)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "tick "), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "settlement,owner=p1 "), lines[1])
}
