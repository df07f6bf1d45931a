package sim

import (
	"testing"

	"github.com/railtycoon/server/pkg/core"
	"github.com/stretchr/testify/assert"
)

func railTerminal(id uint64, tier core.Tier) *Terminal {
	return newTerminal(core.TerminalRecord{
		ID:    id,
		Kind:  core.KindRail,
		Tier:  tier,
		Coord: core.LatLng{Lat: 35, Lng: 139},
	})
}

func TestTerminal_AdmitsUpToCapacity(t *testing.T) {
	term := railTerminal(1, core.TierSmall)
	assert.Equal(t, 3, term.Capacity())

	for id := uint64(1); id <= 3; id++ {
		assert.Equal(t, Admitted, term.TryAdmit(id))
	}
	assert.Equal(t, Denied, term.TryAdmit(4))
	assert.Equal(t, 3, term.Occupancy())
	assert.Equal(t, []uint64{1, 2, 3}, term.Occupants())
}

func TestTerminal_AdmitIsIdempotent(t *testing.T) {
	term := railTerminal(1, core.TierSmall)
	term.TryAdmit(7)
	term.TryAdmit(8)
	term.TryAdmit(9)

	// a holder asking again keeps its slot and takes no other
	assert.Equal(t, Admitted, term.TryAdmit(7))
	assert.Equal(t, 3, term.Occupancy())
}

func TestTerminal_Release(t *testing.T) {
	term := railTerminal(1, core.TierSmall)
	term.TryAdmit(1)
	term.Release(1)
	term.Release(42)

	assert.Equal(t, 0, term.Occupancy())
	assert.False(t, term.Holds(1))
}

func TestTerminal_CapacityAndDwellByTier(t *testing.T) {
	tests := []struct {
		kind     core.TerminalKind
		tier     core.Tier
		capacity int
		dwell    float64
	}{
		{core.KindRail, core.TierSmall, 3, 30},
		{core.KindRail, core.TierMedium, 5, 40},
		{core.KindRail, core.TierLarge, 10, 50},
		{core.KindAir, core.TierSmall, 2, 60},
		{core.KindAir, core.TierMedium, 4, 90},
		{core.KindAir, core.TierLarge, 8, 120},
	}
	for _, tt := range tests {
		term := newTerminal(core.TerminalRecord{ID: 1, Kind: tt.kind, Tier: tt.tier})
		assert.Equal(t, tt.capacity, term.Capacity(), "%s %s", tt.kind, tt.tier)
		assert.Equal(t, tt.dwell, term.Dwell(), "%s %s", tt.kind, tt.tier)
	}
}

func TestTerminal_ConnectDisconnect(t *testing.T) {
	term := railTerminal(1, core.TierSmall)
	term.connect(3)
	term.connect(3)
	term.connect(5)
	assert.Equal(t, []uint64{3, 5}, term.Lines)

	term.disconnect(3)
	assert.Equal(t, []uint64{5}, term.Lines)
}
