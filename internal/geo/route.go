package geo

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
	"github.com/railtycoon/server/pkg/core"
)

// ErrNotOnRoute is returned when a terminal coordinate is not a vertex of a route.
var ErrNotOnRoute = errors.New("coordinate is not on route")

// Route is an immutable polyline with a cumulative distance table.
// cum[0] == 0, cum is non-decreasing and cum[len-1] is the route length in km.
type Route struct {
	coords []core.LatLng
	cum    []float64
}

func point(c core.LatLng) orb.Point {
	return orb.Point{c.Lng, c.Lat}
}

// SegmentKm is the great-circle distance between two coordinates in km.
func SegmentKm(a, b core.LatLng) float64 {
	return orbgeo.DistanceHaversine(point(a), point(b)) / 1000
}

// NewRoute builds a route from at least two coordinates.
func NewRoute(coords []core.LatLng) (*Route, error) {
	if len(coords) < 2 {
		return nil, fmt.Errorf("route must have at least 2 points, got %d", len(coords))
	}

	r := &Route{
		coords: make([]core.LatLng, len(coords)),
		cum:    make([]float64, len(coords)),
	}
	copy(r.coords, coords)

	for i := 1; i < len(coords); i++ {
		r.cum[i] = r.cum[i-1] + SegmentKm(coords[i-1], coords[i])
	}
	return r, nil
}

// Length returns the total route length in km.
func (r *Route) Length() float64 {
	return r.cum[len(r.cum)-1]
}

// Coords returns a copy of the route vertices.
func (r *Route) Coords() []core.LatLng {
	out := make([]core.LatLng, len(r.coords))
	copy(out, r.coords)
	return out
}

// CumulativeKm returns a copy of the cumulative distance table.
func (r *Route) CumulativeKm() []float64 {
	out := make([]float64, len(r.cum))
	copy(out, r.cum)
	return out
}

// DistanceOf returns the cumulative km of the first vertex matching c, or -1.
func (r *Route) DistanceOf(c core.LatLng) float64 {
	for i, v := range r.coords {
		if v.Near(c) {
			return r.cum[i]
		}
	}
	return -1
}

// segmentAt returns i such that cum[i] <= km <= cum[i+1].
func (r *Route) segmentAt(km float64) int {
	i := sort.Search(len(r.cum), func(j int) bool { return r.cum[j] > km }) - 1
	if i < 0 {
		i = 0
	}
	if i > len(r.cum)-2 {
		i = len(r.cum) - 2
	}
	return i
}

func (r *Route) clamp(km float64) float64 {
	if math.IsNaN(km) || km <= 0 {
		return 0
	}
	if km >= r.Length() {
		return r.Length()
	}
	return km
}

// CoordinateAt returns the coordinate at km along the route. Positions are
// clamped to [0, Length]; a position exactly on a vertex returns that vertex.
func (r *Route) CoordinateAt(km float64) core.LatLng {
	km = r.clamp(km)
	if km == r.Length() {
		return r.coords[len(r.coords)-1]
	}

	i := r.segmentAt(km)
	if km == r.cum[i] {
		return r.coords[i]
	}

	seg := r.cum[i+1] - r.cum[i]
	if seg <= 0 {
		return r.coords[i+1]
	}
	t := (km - r.cum[i]) / seg
	a, b := r.coords[i], r.coords[i+1]
	return core.LatLng{
		Lat: a.Lat + (b.Lat-a.Lat)*t,
		Lng: a.Lng + (b.Lng-a.Lng)*t,
	}
}

// BearingAt returns the heading in degrees [0, 360) of a unit at km.
// Reversed units face the opposite way.
func (r *Route) BearingAt(km float64, reversed bool) float64 {
	km = r.clamp(km)
	i := r.segmentAt(km)

	// skip zero-length segments so the bearing is defined
	for i < len(r.coords)-2 && r.cum[i+1] == r.cum[i] {
		i++
	}

	b := orbgeo.Bearing(point(r.coords[i]), point(r.coords[i+1]))
	if reversed {
		b += 180
	}
	return math.Mod(math.Mod(b, 360)+360, 360)
}
