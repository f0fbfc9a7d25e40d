package extio

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/dogwalking/mobility-core/internal/temporal"
)

func wktPoint(t *testing.T, x, y float64) *geom.Point {
	t.Helper()
	return geom.Must(geom.NewPoint(geom.XY).SetCoords(geom.Coord{x, y}))
}

func TestWKT(t *testing.T) {
	t.Parallel()

	s, err := WKT(wktPoint(t, 1, 2))
	require.NoError(t, err)
	assert.Contains(t, s, "POINT")
}

func TestEWKTSeparatorEncodesInterpolation(t *testing.T) {
	t.Parallel()

	pt := wktPoint(t, 1, 2)

	linear, err := EWKT(pt, 4326, temporal.Linear)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(linear, "SRID=4326;"))

	stepwise, err := EWKT(pt, 4326, temporal.Step)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stepwise, "SRID=4326,"))

	discrete, err := EWKT(pt, 4326, temporal.Discrete)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(discrete, "SRID=4326,"))
}
