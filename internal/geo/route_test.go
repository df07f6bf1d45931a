package geo

import (
	"testing"

	"github.com/railtycoon/server/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tokyoLoop = []core.LatLng{
	{Lat: 35.6812, Lng: 139.7671},
	{Lat: 35.6896, Lng: 139.7006},
	{Lat: 35.7295, Lng: 139.7109},
	{Lat: 35.7138, Lng: 139.7773},
}

func TestNewRoute_TooFewPoints(t *testing.T) {
	_, err := NewRoute([]core.LatLng{{Lat: 35, Lng: 139}})
	require.Error(t, err)
}

func TestRoute_CumulativeIsMonotonic(t *testing.T) {
	r, err := NewRoute(tokyoLoop)
	require.NoError(t, err)

	cum := r.CumulativeKm()
	require.Len(t, cum, len(tokyoLoop))
	assert.Equal(t, 0.0, cum[0])

	sum := 0.0
	for i := 1; i < len(cum); i++ {
		assert.GreaterOrEqual(t, cum[i], cum[i-1])
		sum += SegmentKm(tokyoLoop[i-1], tokyoLoop[i])
	}
	assert.InDelta(t, sum, r.Length(), 1e-9)
}

func TestRoute_CoordinateAtEndsAndVertices(t *testing.T) {
	r, err := NewRoute(tokyoLoop)
	require.NoError(t, err)

	assert.Equal(t, tokyoLoop[0], r.CoordinateAt(0))
	assert.Equal(t, tokyoLoop[3], r.CoordinateAt(r.Length()))

	cum := r.CumulativeKm()
	for i := range tokyoLoop {
		assert.Equal(t, tokyoLoop[i], r.CoordinateAt(cum[i]), "vertex %d", i)
	}
}

func TestRoute_CoordinateAtClamps(t *testing.T) {
	r, err := NewRoute(tokyoLoop)
	require.NoError(t, err)

	assert.Equal(t, tokyoLoop[0], r.CoordinateAt(-5))
	assert.Equal(t, tokyoLoop[3], r.CoordinateAt(r.Length()+100))
}

func TestRoute_CoordinateAtInterpolates(t *testing.T) {
	a := core.LatLng{Lat: 35.0, Lng: 139.0}
	b := core.LatLng{Lat: 35.1, Lng: 139.0}
	r, err := NewRoute([]core.LatLng{a, b})
	require.NoError(t, err)

	mid := r.CoordinateAt(r.Length() / 2)
	assert.InDelta(t, 35.05, mid.Lat, 1e-9)
	assert.InDelta(t, 139.0, mid.Lng, 1e-9)
}

func TestRoute_ZeroLengthSegment(t *testing.T) {
	a := core.LatLng{Lat: 35.0, Lng: 139.0}
	b := core.LatLng{Lat: 35.1, Lng: 139.0}
	r, err := NewRoute([]core.LatLng{a, a, b})
	require.NoError(t, err)

	assert.Equal(t, a, r.CoordinateAt(0))
	assert.InDelta(t, 0.0, r.BearingAt(0, false), 1e-6)
	assert.NotPanics(t, func() { r.CoordinateAt(r.Length() / 3) })
}

func TestRoute_DistanceOf(t *testing.T) {
	r, err := NewRoute(tokyoLoop)
	require.NoError(t, err)

	cum := r.CumulativeKm()
	assert.Equal(t, cum[2], r.DistanceOf(tokyoLoop[2]))
	assert.Equal(t, cum[2], r.DistanceOf(core.LatLng{Lat: tokyoLoop[2].Lat + 1e-7, Lng: tokyoLoop[2].Lng}))
	assert.Equal(t, -1.0, r.DistanceOf(core.LatLng{Lat: 0, Lng: 0}))
}

func TestRoute_Bearing(t *testing.T) {
	north, err := NewRoute([]core.LatLng{{Lat: 35.0, Lng: 139.0}, {Lat: 35.1, Lng: 139.0}})
	require.NoError(t, err)

	assert.InDelta(t, 0.0, north.BearingAt(0.5, false), 1e-6)
	assert.InDelta(t, 180.0, north.BearingAt(0.5, true), 1e-6)

	east, err := NewRoute([]core.LatLng{{Lat: 0, Lng: 10}, {Lat: 0, Lng: 10.1}})
	require.NoError(t, err)
	assert.InDelta(t, 90.0, east.BearingAt(1, false), 1e-6)
	assert.InDelta(t, 270.0, east.BearingAt(1, true), 1e-6)
}

func TestRoute_CoordsIsCopy(t *testing.T) {
	r, err := NewRoute(tokyoLoop)
	require.NoError(t, err)

	c := r.Coords()
	c[0] = core.LatLng{}
	assert.Equal(t, tokyoLoop[0], r.CoordinateAt(0))
}
