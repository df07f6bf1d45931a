package geo

import (
	"encoding/json"
	"fmt"

	"github.com/railtycoon/server/pkg/core"
)

// ParsePolyline parses a JSON array of coordinates into a polyline.
// Input format: "[[lat1,lng1],[lat2,lng2],...]"
func ParsePolyline(input string) ([]core.LatLng, error) {
	var coords [][]float64
	if err := json.Unmarshal([]byte(input), &coords); err != nil {
		return nil, fmt.Errorf("failed to parse polyline JSON: %w", err)
	}

	if len(coords) < 2 {
		return nil, fmt.Errorf("polyline must have at least 2 points, got %d", len(coords))
	}

	polyline := make([]core.LatLng, len(coords))
	for i, coord := range coords {
		if len(coord) < 2 {
			return nil, fmt.Errorf("coordinate %d has insufficient values", i)
		}
		c := core.LatLng{Lat: coord[0], Lng: coord[1]}
		if err := ValidateCoord(c); err != nil {
			return nil, fmt.Errorf("coordinate %d: %w", i, err)
		}
		polyline[i] = c
	}

	return polyline, nil
}
