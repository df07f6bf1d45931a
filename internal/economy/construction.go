package economy

import (
	"errors"
	"fmt"
	"math"

	"github.com/railtycoon/server/internal/geo"
	"github.com/railtycoon/server/pkg/core"
)

const (
	CostPerKm                 = 2_500_000
	SlopeCostPerMetre         = 500_000
	HighElevationThresholdM   = 100
	HighElevationCostPerMetre = 5000
)

var ErrUnknownTrack = errors.New("unknown track type")

// SlopeMultiplier is the grade penalty factor. It is zero up to a 3% grade,
// then linear, quadratic above 5% and cubic above 10%.
func SlopeMultiplier(grade float64) float64 {
	switch {
	case grade > 0.10:
		return math.Pow(grade*15, 3)
	case grade > 0.05:
		return math.Pow(grade*10, 2)
	case grade > 0.03:
		return grade * 5
	default:
		return 0
	}
}

// SegmentCost prices a single straight segment between two points.
func SegmentCost(a, b core.LatLng, track core.TrackType, terrain Terrain) (core.SegmentQuote, error) {
	mult, ok := TrackMultiplier(track)
	if !ok {
		return core.SegmentQuote{}, fmt.Errorf("%w: %q", ErrUnknownTrack, track)
	}

	km := geo.SegmentKm(a, b)
	if km == 0 {
		return core.SegmentQuote{}, nil
	}

	cost := km * CostPerKm * mult
	q := core.SegmentQuote{LengthKm: km}

	// aircraft do not care about the ground below
	if track != core.TrackAir {
		e1, e2 := terrain.Elevation(a), terrain.Elevation(b)
		lengthM := km * 1000

		q.Grade = math.Abs(e2-e1) / lengthM
		cost += SlopeMultiplier(q.Grade) * SlopeCostPerMetre * lengthM
		cost += math.Max(0, (e1+e2)/2-HighElevationThresholdM) * HighElevationCostPerMetre
	}

	q.Cost = int64(math.Round(cost))
	return q, nil
}

// RouteCost prices a polyline as the sum of its segments.
func RouteCost(coords []core.LatLng, track core.TrackType, terrain Terrain) (core.LineQuote, error) {
	if len(coords) < 2 {
		return core.LineQuote{}, fmt.Errorf("route must have at least 2 points, got %d", len(coords))
	}

	quote := core.LineQuote{
		Track:    track,
		Segments: make([]core.SegmentQuote, 0, len(coords)-1),
	}
	for i := 1; i < len(coords); i++ {
		seg, err := SegmentCost(coords[i-1], coords[i], track, terrain)
		if err != nil {
			return core.LineQuote{}, err
		}
		quote.Segments = append(quote.Segments, seg)
		quote.Cost += seg.Cost
		quote.LengthKm += seg.LengthKm
	}
	return quote, nil
}
