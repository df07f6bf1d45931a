package economy

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/railtycoon/server/pkg/core"
	"github.com/stretchr/testify/assert"
)

func TestCategories_Sorted(t *testing.T) {
	cats := Categories()
	assert.Len(t, cats, 16)
	assert.True(t, sort.SliceIsSorted(cats, func(i, j int) bool { return cats[i].Key < cats[j].Key }))
	for _, c := range cats {
		assert.Greater(t, c.MaxSpeedKmH, 0.0, c.Key)
		assert.Greater(t, c.Capacity, 0, c.Key)
		assert.Greater(t, c.RevenueMultiplier, 0.0, c.Key)
	}
}

func TestCategory_CompatibleWith(t *testing.T) {
	tests := []struct {
		category string
		track    core.TrackType
		ok       bool
	}{
		{"COMMUTER", core.TrackSingle, true},
		{"COMMUTER", core.TrackDouble, true},
		{"COMMUTER", core.TrackTram, true},
		{"COMMUTER", core.TrackLinear, false},
		{"COMMUTER", core.TrackAir, false},
		{"LINEAR", core.TrackLinear, true},
		{"LINEAR", core.TrackDouble, false},
		{"AIRLINER", core.TrackAir, true},
		{"AIRLINER", core.TrackSingle, false},
	}

	for _, tt := range tests {
		c, ok := LookupCategory(tt.category)
		assert.True(t, ok)
		assert.Equal(t, tt.ok, c.CompatibleWith(tt.track), "%s on %s", tt.category, tt.track)
	}
}

func TestCategory_Speed(t *testing.T) {
	c, _ := LookupCategory("COMMUTER")
	assert.InDelta(t, 100.0/3600, c.SpeedKmPerSecond(), 1e-12)
}

func TestLookupCategory_Unknown(t *testing.T) {
	_, ok := LookupCategory("HOVERCRAFT")
	assert.False(t, ok)
}

func TestTerminalClasses(t *testing.T) {
	assert.Equal(t, 3, TerminalCapacity(core.KindRail, core.TierSmall))
	assert.Equal(t, 5, TerminalCapacity(core.KindRail, core.TierMedium))
	assert.Equal(t, 10, TerminalCapacity(core.KindRail, core.TierLarge))
	assert.Equal(t, 2, TerminalCapacity(core.KindAir, core.TierSmall))
	assert.Equal(t, 8, TerminalCapacity(core.KindAir, core.TierLarge))
	assert.Equal(t, 0, TerminalCapacity(core.KindRail, core.Tier("huge")))

	assert.Less(t, TerminalDwell(core.KindRail, core.TierSmall), TerminalDwell(core.KindRail, core.TierLarge))
	assert.Equal(t, 30.0, TerminalDwell(core.KindRail, core.TierSmall))
}

func TestLineColor(t *testing.T) {
	assert.Equal(t, "#E4007F", LineColor(0))
	assert.Equal(t, "#009933", LineColor(1))
	assert.Equal(t, "#009933", LineColor(7))
}

func TestCosts(t *testing.T) {
	shinkansen, _ := LookupCategory("SHINKANSEN")
	assert.Equal(t, int64(40_000_000), UnitPurchaseCost(shinkansen))
	assert.Equal(t, int64(2_666_667), UnitSaleValue(8_000_000))

	assert.Equal(t, int64(5_000_000), TerminalDemolitionCost(core.KindRail))
	assert.Equal(t, int64(20_000_000), TerminalDemolitionCost(core.KindAir))
	assert.Equal(t, int64(123), LineDemolitionCost(1234))

	c, ok := TerminalUpgradeCost(core.KindRail, core.TierMedium)
	assert.True(t, ok)
	assert.Equal(t, int64(30_000_000), c)

	c, ok = TerminalUpgradeCost(core.KindAir, core.TierLarge)
	assert.True(t, ok)
	assert.Equal(t, int64(300_000_000), c)

	_, ok = TerminalUpgradeCost(core.KindRail, core.TierSmall)
	assert.False(t, ok)
}

func TestDemandFromDensity(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	assert.Equal(t, core.Demand{Passenger: 50, Freight: 10}, DemandFromDensity(0, rng))

	for i := 0; i < 50; i++ {
		d := DemandFromDensity(10_000, rng)
		assert.GreaterOrEqual(t, d.Passenger, 160)
		assert.LessOrEqual(t, d.Passenger, 240)
		assert.GreaterOrEqual(t, d.Freight, 12)
		assert.LessOrEqual(t, d.Freight, 29)
	}
}
