package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/railtycoon/server/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// Stored geometry is always projected to EPSG:3857 and encoded as WKB, so that
// rows written by the sqlite and postgres backends look the same to GIS tools.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// ValidateCoord rejects NaN and out-of-range WGS84 coordinates.
func ValidateCoord(c core.LatLng) error {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) {
		return ErrInvalidCoordinates
	}
	if c.Lat < -90 || c.Lat > 90 || c.Lng < -180 || c.Lng > 180 {
		return fmt.Errorf("%w: lat=%f lng=%f", ErrInvalidCoordinates, c.Lat, c.Lng)
	}
	return nil
}

// To3857 projects a WGS84 coordinate to web mercator metres.
func To3857(c core.LatLng) (x, y float64) {
	f := wgs84.EPSG().Transform(4326, 3857)
	x, y, _ = f(c.Lng, c.Lat, 0)
	return x, y
}

// LineString3857 builds a projected LineString from a polyline.
func LineString3857(coords []core.LatLng) (geom.LineString, error) {
	if len(coords) < 2 {
		return geom.LineString{}, fmt.Errorf("linestring must have at least 2 points, got %d", len(coords))
	}

	f := wgs84.EPSG().Transform(4326, 3857)
	flat := make([]float64, 0, len(coords)*2)
	for i, c := range coords {
		if err := ValidateCoord(c); err != nil {
			return geom.LineString{}, fmt.Errorf("coordinate %d: %w", i, err)
		}
		x, y, _ := f(c.Lng, c.Lat, 0)
		flat = append(flat, x, y)
	}

	return geom.NewLineString(geom.NewSequence(flat, geom.DimXY)), nil
}

// LineStringWKB returns the projected polyline encoded as WKB.
func LineStringWKB(coords []core.LatLng) ([]byte, error) {
	ls, err := LineString3857(coords)
	if err != nil {
		return nil, err
	}
	return ls.AsBinary(), nil
}
