package economy

import (
	"math"
	"math/rand"
	"sync"

	"github.com/railtycoon/server/pkg/core"
)

// Terrain supplies ground elevation in metres.
type Terrain interface {
	Elevation(c core.LatLng) float64
}

// TerrainFunc adapts a function to the Terrain interface.
type TerrainFunc func(c core.LatLng) float64

func (f TerrainFunc) Elevation(c core.LatLng) float64 {
	return f(c)
}

// Flat is a terrain at sea level everywhere.
var Flat Terrain = TerrainFunc(func(core.LatLng) float64 { return 0 })

const (
	basinLat      = 35.6
	basinLng      = 139.7
	maxElevationM = 3000
)

// SyntheticTerrain approximates the Kanto plain: low ground around the bay
// rising steeply to the west and south, plus a few metres of noise.
type SyntheticTerrain struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewSyntheticTerrain(rng *rand.Rand) *SyntheticTerrain {
	return &SyntheticTerrain{rng: rng}
}

func (t *SyntheticTerrain) jitter() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rng.Float64() * 5
}

func (t *SyntheticTerrain) Elevation(c core.LatLng) float64 {
	dist := math.Hypot(c.Lat-basinLat, c.Lng-basinLng)
	e := 100*math.Exp(-dist*5) + t.jitter()

	if c.Lng < basinLng {
		e += 10 + (basinLng-c.Lng)*50
	}
	if c.Lat < basinLat {
		e += 10 + (basinLat-c.Lat)*50
	}

	return math.Round(math.Max(0, math.Min(maxElevationM, e)))
}
