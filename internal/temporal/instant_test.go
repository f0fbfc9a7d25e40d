package temporal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dogwalking/mobility-core/internal/temporal/basetype"
)

func TestInstantBasics(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	inst := NewInstant(basetype.NewFloat64(42), ts)

	assert.Equal(t, basetype.Float64, inst.BaseType())
	assert.Equal(t, SubtypeInstant, inst.Subtype())
	assert.Equal(t, Discrete, inst.Interpretation())
	assert.Equal(t, 1, inst.NumInstants())
	assert.True(t, ts.Equal(inst.Time()))

	v, ok, err := inst.ValueAt(ts, true)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 42.0, v.F64)

	_, ok, err = inst.ValueAt(ts.Add(time.Second), true)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestInstantIterator(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	inst := NewInstant(basetype.NewBool(true), ts)
	it := inst.Iterator()

	got, ok := it.Next()
	assert.True(t, ok)
	assert.True(t, got.T.Equal(ts))

	_, ok = it.Next()
	assert.False(t, ok)
}
