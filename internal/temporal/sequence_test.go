package temporal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dogwalking/mobility-core/internal/temporal/basetype"
)

func sample(sec int, v float64) Instant {
	return Instant{V: basetype.NewFloat64(v), T: time.Date(2026, 1, 1, 0, 0, sec, 0, time.UTC)}
}

func TestNewSequenceValidation(t *testing.T) {
	t.Parallel()

	t.Run("rejects non-increasing samples", func(t *testing.T) {
		_, err := NewSequence([]Instant{sample(0, 1), sample(0, 2)}, true, true, Linear)
		assert.Error(t, err)
	})

	t.Run("rejects mixed base types", func(t *testing.T) {
		mixed := []Instant{
			{V: basetype.NewFloat64(1), T: time.Unix(0, 0)},
			{V: basetype.NewBool(true), T: time.Unix(1, 0)},
		}
		_, err := NewSequence(mixed, true, true, Step)
		assert.Error(t, err)
	})

	t.Run("single sample requires both bounds inclusive", func(t *testing.T) {
		_, err := NewSequence([]Instant{sample(0, 1)}, true, false, Linear)
		assert.Error(t, err)
	})

	t.Run("linear interpretation requires a continuous base type", func(t *testing.T) {
		samples := []Instant{
			{V: basetype.NewBool(true), T: time.Unix(0, 0)},
			{V: basetype.NewBool(false), T: time.Unix(1, 0)},
		}
		_, err := NewSequence(samples, true, true, Linear)
		assert.Error(t, err)
	})

	t.Run("discrete interpretation is rejected for a continuous sequence", func(t *testing.T) {
		_, err := NewSequence([]Instant{sample(0, 1), sample(1, 2)}, true, true, Discrete)
		assert.Error(t, err)
	})
}

func TestSequenceValueAtLinear(t *testing.T) {
	t.Parallel()

	samples := []Instant{sample(0, 0), sample(10, 100)}
	seq, err := NewSequence(samples, true, true, Linear)
	require.NoError(t, err)

	mid := samples[0].T.Add(5 * time.Second)
	v, ok, err := seq.ValueAt(mid, true)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 50.0, v.F64, 1e-9)

	_, ok, err = seq.ValueAt(samples[1].T.Add(time.Second), true)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSequenceValueAtStep(t *testing.T) {
	t.Parallel()

	samples := []Instant{sample(0, 1), sample(10, 2), sample(20, 3)}
	seq, err := NewSequence(samples, true, true, Step)
	require.NoError(t, err)

	v, ok, err := seq.ValueAt(samples[0].T.Add(5*time.Second), true)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1.0, v.F64)
}

func TestSequenceExclusiveBounds(t *testing.T) {
	t.Parallel()

	samples := []Instant{sample(0, 1), sample(10, 2)}
	seq, err := NewSequence(samples, false, true, Linear)
	require.NoError(t, err)

	_, ok, err := seq.ValueAt(samples[0].T, true)
	require.NoError(t, err)
	assert.False(t, ok, "exclusive lower bound must not be evaluable")
}
