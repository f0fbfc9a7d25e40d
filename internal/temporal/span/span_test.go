package span

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dogwalking/mobility-core/internal/temporal/basetype"
)

func mustSpan(t *testing.T, lo, hi float64, lowerInc, upperInc bool) Span {
	t.Helper()
	s, err := New(basetype.NewFloat64(lo), basetype.NewFloat64(hi), lowerInc, upperInc)
	require.NoError(t, err)
	return s
}

func TestNewValidatesBounds(t *testing.T) {
	t.Parallel()

	t.Run("lo greater than hi is an error", func(t *testing.T) {
		_, err := New(basetype.NewFloat64(5), basetype.NewFloat64(1), true, true)
		assert.Error(t, err)
	})

	t.Run("point span must be fully inclusive", func(t *testing.T) {
		_, err := New(basetype.NewFloat64(1), basetype.NewFloat64(1), true, false)
		assert.Error(t, err)

		s, err := New(basetype.NewFloat64(1), basetype.NewFloat64(1), true, true)
		require.NoError(t, err)
		assert.True(t, s.LowerInc && s.UpperInc)
	})
}

func TestOverlaps(t *testing.T) {
	t.Parallel()

	a := mustSpan(t, 0, 10, true, true)
	b := mustSpan(t, 5, 15, true, true)
	c := mustSpan(t, 20, 30, true, true)

	ov, err := a.Overlaps(b)
	require.NoError(t, err)
	assert.True(t, ov)

	ov, err = a.Overlaps(c)
	require.NoError(t, err)
	assert.False(t, ov)
}

func TestAdjacent(t *testing.T) {
	t.Parallel()

	left := mustSpan(t, 0, 10, true, false)
	right := mustSpan(t, 10, 20, true, true)

	adj, err := left.Adjacent(right)
	require.NoError(t, err)
	assert.True(t, adj)

	overlapping := mustSpan(t, 0, 10, true, true)
	adj, err = overlapping.Adjacent(right)
	require.NoError(t, err)
	assert.False(t, adj)
}

func TestContains(t *testing.T) {
	t.Parallel()

	outer := mustSpan(t, 0, 100, true, true)
	inner := mustSpan(t, 10, 20, true, true)

	ok, err := outer.Contains(inner)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = inner.Contains(outer)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStrictlyLeftRight(t *testing.T) {
	t.Parallel()

	a := mustSpan(t, 0, 10, true, true)
	b := mustSpan(t, 20, 30, true, true)

	left, err := a.StrictlyLeft(b)
	require.NoError(t, err)
	assert.True(t, left)

	right, err := b.StrictlyRight(a)
	require.NoError(t, err)
	assert.True(t, right)
}

func TestGap(t *testing.T) {
	t.Parallel()

	a := mustSpan(t, 0, 10, true, true)
	b := mustSpan(t, 15, 20, true, true)

	gap, err := Gap(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, gap, 1e-9)

	overlapping := mustSpan(t, 5, 15, true, true)
	gap, err = Gap(a, overlapping)
	require.NoError(t, err)
	assert.Equal(t, 0.0, gap)
}

func TestCompareAndEqual(t *testing.T) {
	t.Parallel()

	a := mustSpan(t, 0, 10, true, true)
	b := mustSpan(t, 0, 10, true, true)
	c := mustSpan(t, 0, 20, true, true)

	eq, err := a.Equal(b)
	require.NoError(t, err)
	assert.True(t, eq)

	cmp, err := a.Compare(c)
	require.NoError(t, err)
	assert.Equal(t, -1, cmp)
}
