package lift

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dogwalking/mobility-core/internal/temporal"
	"github.com/dogwalking/mobility-core/internal/temporal/basetype"
)

func f64(v float64) basetype.Value { return basetype.NewFloat64(v) }

func at(sec int) time.Time { return time.Unix(int64(sec), 0).UTC() }

func seq(t *testing.T, pairs [][2]float64, interp temporal.Interpretation) *temporal.TSequence {
	t.Helper()
	insts := make([]temporal.Instant, 0, len(pairs))
	for _, p := range pairs {
		insts = append(insts, temporal.Instant{V: f64(p[1]), T: at(int(p[0]))})
	}
	s, err := temporal.NewSequence(insts, true, true, interp)
	require.NoError(t, err)
	return s
}

func TestLift2InstantsSameTime(t *testing.T) {
	t.Parallel()

	a := temporal.NewInstant(f64(2), at(0))
	b := temporal.NewInstant(f64(3), at(0))

	res, err := Add(a, b)
	require.NoError(t, err)
	inst, ok := res.(*temporal.TInstant)
	require.True(t, ok)
	assert.Equal(t, 5.0, inst.Value().F64)
}

func TestLift2InstantsDifferentTimeYieldsNil(t *testing.T) {
	t.Parallel()

	a := temporal.NewInstant(f64(2), at(0))
	b := temporal.NewInstant(f64(3), at(1))

	res, err := Add(a, b)
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestAddOverSequences(t *testing.T) {
	t.Parallel()

	a := seq(t, [][2]float64{{0, 0}, {10, 100}}, temporal.Linear)
	b := seq(t, [][2]float64{{0, 5}, {10, 5}}, temporal.Linear)

	res, err := Add(a, b)
	require.NoError(t, err)
	require.NotNil(t, res)

	s, ok := res.(*temporal.TSequence)
	require.True(t, ok)
	assert.Equal(t, temporal.Linear, s.Interpretation(), "sum of two linear segments stays linear")

	v, ok, err := s.ValueAt(at(0), false)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5.0, v.F64)
}

func TestMultiplyInsertsTurningPoint(t *testing.T) {
	t.Parallel()

	// x(t) rises -10 -> 10 over [0,10]; y(t) falls 10 -> -10. Both cross
	// zero at t=5, where the product reaches its extremum, so the lifted
	// result must pick that sample up even though it is not an endpoint of
	// either operand.
	a := seq(t, [][2]float64{{0, -10}, {10, 10}}, temporal.Linear)
	b := seq(t, [][2]float64{{0, 10}, {10, -10}}, temporal.Linear)

	res, err := Multiply(a, b)
	require.NoError(t, err)
	require.NotNil(t, res)

	s, ok := res.(*temporal.TSequence)
	require.True(t, ok)
	assert.False(t, s.Interpretation() == temporal.Linear, "product of two linear segments is not itself linear")
	assert.GreaterOrEqual(t, s.NumInstants(), 2)

	v, ok, err := s.ValueAt(at(5), false)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0.0, v.F64, "turning-point sample at t=5")
}

func TestDivideRejectsZeroDivisor(t *testing.T) {
	t.Parallel()

	a := seq(t, [][2]float64{{0, 10}, {10, 10}}, temporal.Linear)
	b := seq(t, [][2]float64{{0, -1}, {10, 1}}, temporal.Linear)

	_, err := Divide(a, b)
	assert.Error(t, err, "divisor crosses zero within the overlap")
}

func TestDivideSucceedsWhenDivisorNeverZero(t *testing.T) {
	t.Parallel()

	a := seq(t, [][2]float64{{0, 10}, {10, 20}}, temporal.Linear)
	b := seq(t, [][2]float64{{0, 2}, {10, 2}}, temporal.Linear)

	res, err := Divide(a, b)
	require.NoError(t, err)
	require.NotNil(t, res)
}

func TestEqualAndLessLifted(t *testing.T) {
	t.Parallel()

	a := seq(t, [][2]float64{{0, 0}, {10, 10}}, temporal.Linear)
	b := seq(t, [][2]float64{{0, 5}, {10, 5}}, temporal.Linear)

	res, err := Less(a, b)
	require.NoError(t, err)
	require.NotNil(t, res)

	eqRes, err := Equal(a, b)
	require.NoError(t, err)
	require.NotNil(t, eqRes)
}

func TestEverEqualsZero(t *testing.T) {
	t.Parallel()

	crossing := seq(t, [][2]float64{{0, -5}, {10, 5}}, temporal.Linear)
	ok, err := EverEqualsZero(crossing, at(0), at(10))
	require.NoError(t, err)
	assert.True(t, ok)

	positive := seq(t, [][2]float64{{0, 5}, {10, 10}}, temporal.Linear)
	ok, err = EverEqualsZero(positive, at(0), at(10))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNumericTurningPointRejectsDegenerateSegments(t *testing.T) {
	t.Parallel()

	tps := NumericTurningPoint(f64(5), f64(5), f64(-1), f64(1), at(0), at(10))
	assert.Nil(t, tps, "a flat segment on either side has no turning point")
}
