package geo

import (
	"testing"

	"github.com/railtycoon/server/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePolyline_Valid(t *testing.T) {
	poly, err := ParsePolyline("[[35.68,139.76],[35.69,139.70],[35.72,139.71]]")

	require.NoError(t, err)
	require.Len(t, poly, 3)
	assert.Equal(t, core.LatLng{Lat: 35.68, Lng: 139.76}, poly[0])
	assert.Equal(t, core.LatLng{Lat: 35.72, Lng: 139.71}, poly[2])
}

func TestParsePolyline_InvalidJSON(t *testing.T) {
	_, err := ParsePolyline("not valid json")
	require.Error(t, err)
}

func TestParsePolyline_TooFewPoints(t *testing.T) {
	_, err := ParsePolyline("[[35,139]]")
	require.Error(t, err)
}

func TestParsePolyline_InsufficientCoordinates(t *testing.T) {
	_, err := ParsePolyline("[[35],[35,139]]")
	require.Error(t, err)
}

func TestParsePolyline_OutOfRange(t *testing.T) {
	_, err := ParsePolyline("[[95,139],[35,139]]")
	require.ErrorIs(t, err, ErrInvalidCoordinates)
}
