package basetype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func TestCompare(t *testing.T) {
	t.Parallel()

	t.Run("same type", func(t *testing.T) {
		c, err := Compare(NewInt32(3), NewInt32(5))
		require.NoError(t, err)
		assert.Equal(t, -1, c)
	})

	t.Run("mixed int32/float64", func(t *testing.T) {
		c, err := Compare(NewInt32(3), NewFloat64(3.0))
		require.NoError(t, err)
		assert.Equal(t, 0, c)
	})

	t.Run("unsupported mixed pair is an error", func(t *testing.T) {
		_, err := Compare(NewText("a"), NewInt32(1))
		assert.Error(t, err)
	})

	t.Run("floats within epsilon compare equal", func(t *testing.T) {
		c, err := Compare(NewFloat64(1.0), NewFloat64(1.0+1e-12))
		require.NoError(t, err)
		assert.Equal(t, 0, c)
	})
}

func TestEqual(t *testing.T) {
	t.Parallel()

	ok, err := Equal(NewBool(true), NewBool(true))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Equal(NewBool(true), NewBool(false))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestArithmetic(t *testing.T) {
	t.Parallel()

	t.Run("int32 addition stays int32", func(t *testing.T) {
		v, err := Add(NewInt32(2), NewInt32(3))
		require.NoError(t, err)
		assert.Equal(t, Int32, v.Tag)
		assert.Equal(t, int32(5), v.I32)
	})

	t.Run("division always promotes to float64", func(t *testing.T) {
		v, err := Div(NewInt32(7), NewInt32(2))
		require.NoError(t, err)
		assert.Equal(t, Float64, v.Tag)
		assert.InDelta(t, 3.5, v.F64, 1e-9)
	})

	t.Run("division by zero is an error", func(t *testing.T) {
		_, err := Div(NewFloat64(1), NewFloat64(0))
		assert.Error(t, err)
	})

	t.Run("arithmetic on non-numeric types is an error", func(t *testing.T) {
		_, err := Add(NewText("a"), NewText("b"))
		assert.Error(t, err)
	})
}

func TestIsZero(t *testing.T) {
	t.Parallel()
	assert.True(t, IsZero(NewFloat64(0)))
	assert.False(t, IsZero(NewFloat64(0.5)))
	assert.False(t, IsZero(NewText("0")))
}

func TestInterpolate(t *testing.T) {
	t.Parallel()

	t.Run("float64 midpoint", func(t *testing.T) {
		v, err := Interpolate(NewFloat64(0), NewFloat64(10), 0.5)
		require.NoError(t, err)
		assert.InDelta(t, 5.0, v.F64, 1e-9)
	})

	t.Run("geom point midpoint", func(t *testing.T) {
		a := geom.Must(geom.NewPoint(geom.XY).SetCoords(geom.Coord{0, 0}))
		b := geom.Must(geom.NewPoint(geom.XY).SetCoords(geom.Coord{10, 10}))
		v, err := Interpolate(NewGeom(a), NewGeom(b), 0.25)
		require.NoError(t, err)
		coords := v.Pt.Coords()
		assert.InDelta(t, 2.5, coords[0], 1e-9)
		assert.InDelta(t, 2.5, coords[1], 1e-9)
	})

	t.Run("discrete-only type cannot interpolate", func(t *testing.T) {
		_, err := Interpolate(NewBool(true), NewBool(false), 0.5)
		assert.Error(t, err)
	})

	t.Run("mismatched tags cannot interpolate", func(t *testing.T) {
		_, err := Interpolate(NewFloat64(1), NewInt32(1), 0.5)
		assert.Error(t, err)
	})
}

func TestDoubleCarriers(t *testing.T) {
	t.Parallel()

	d2 := Double2{2, 4}.Add(Double2{4, 6})
	assert.Equal(t, Double2{6, 10}, d2)
	assert.Equal(t, Double2{3, 5}, d2.Div(2))

	d3 := Double3{1, 2, 3}.Add(Double3{1, 1, 1})
	assert.Equal(t, Double3{2, 3, 4}, d3)

	d4 := Double4{1, 2, 3, 4}.Add(Double4{1, 1, 1, 1})
	assert.Equal(t, Double4{2, 3, 4, 5}, d4)
}
