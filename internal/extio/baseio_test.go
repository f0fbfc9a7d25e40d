package extio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dogwalking/mobility-core/internal/temporal/basetype"
)

func TestParseBool(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"t", "TRUE", " yes ", "y", "on", "1"} {
		v, err := ParseBool(s)
		require.NoError(t, err, s)
		assert.True(t, v, s)
	}
	for _, s := range []string{"f", "FALSE", "no", "n", "off", "0"} {
		v, err := ParseBool(s)
		require.NoError(t, err, s)
		assert.False(t, v, s)
	}
	_, err := ParseBool("maybe")
	assert.Error(t, err)
}

func TestFormatBool(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "t", FormatBool(true))
	assert.Equal(t, "f", FormatBool(false))
}

func TestParseInt32(t *testing.T) {
	t.Parallel()

	v, err := ParseInt32(" -42 ")
	require.NoError(t, err)
	assert.Equal(t, int32(-42), v)

	_, err = ParseInt32("99999999999999999999")
	assert.Error(t, err)

	_, err = ParseInt32("not a number")
	assert.Error(t, err)
}

func TestParseInt64(t *testing.T) {
	t.Parallel()

	v, err := ParseInt64("9223372036854775807")
	require.NoError(t, err)
	assert.Equal(t, int64(9223372036854775807), v)

	_, err = ParseInt64("abc")
	assert.Error(t, err)
}

func TestParseFloat64(t *testing.T) {
	t.Parallel()

	v, err := ParseFloat64("3.14")
	require.NoError(t, err)
	assert.InDelta(t, 3.14, v, 1e-9)

	v, err = ParseFloat64("+Infinity")
	require.NoError(t, err)
	assert.True(t, math.IsInf(v, 1))

	v, err = ParseFloat64("-inf")
	require.NoError(t, err)
	assert.True(t, math.IsInf(v, -1))

	v, err = ParseFloat64("NaN")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(v))

	_, err = ParseFloat64("not a float")
	assert.Error(t, err)
}

func TestFormatFloat64(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "3.14", FormatFloat64(3.14, 3))
	assert.NotEmpty(t, FormatFloat64(1.0/3.0, 0), "precision <= 0 falls back to the 15-digit default")
}

func TestParseValueDispatchesByTag(t *testing.T) {
	t.Parallel()

	v, err := ParseValue(basetype.Int32, "7")
	require.NoError(t, err)
	assert.Equal(t, int32(7), v.I32)

	v, err = ParseValue(basetype.Bool, "true")
	require.NoError(t, err)
	assert.True(t, v.B)

	v, err = ParseValue(basetype.Text, "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", v.S)

	_, err = ParseValue(basetype.Geom, "POINT(0 0)")
	assert.Error(t, err, "no textual scalar parser is registered for geometry")
}

func TestFormatValueDispatchesByTag(t *testing.T) {
	t.Parallel()

	s, err := FormatValue(basetype.NewFloat64(2.5))
	require.NoError(t, err)
	assert.Equal(t, "2.5", s)

	s, err = FormatValue(basetype.NewText("hi"))
	require.NoError(t, err)
	assert.Equal(t, "hi", s)

	_, err = FormatValue(basetype.Value{Tag: basetype.Geom})
	assert.Error(t, err)
}
