package gist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dogwalking/mobility-core/internal/temporal/basetype"
	"github.com/dogwalking/mobility-core/internal/temporal/span"
)

func mustSpan(t *testing.T, lo, hi float64) span.Span {
	t.Helper()
	s, err := span.New(basetype.NewFloat64(lo), basetype.NewFloat64(hi), true, true)
	require.NoError(t, err)
	return s
}

func TestRecheck(t *testing.T) {
	t.Parallel()

	assert.True(t, Recheck(StrategyOverlaps))
	assert.True(t, Recheck(StrategyContains))
	assert.True(t, Recheck(StrategyContainedBy))
	assert.True(t, Recheck(StrategyAdjacent))
	assert.False(t, Recheck(StrategyEqual))
	assert.False(t, Recheck(StrategyLeft))
}

func TestLeafConsistentOverlapsAndContains(t *testing.T) {
	t.Parallel()

	key := mustSpan(t, 0, 10)
	query := mustSpan(t, 5, 15)

	ok, err := LeafConsistent(StrategyOverlaps, key, query)
	require.NoError(t, err)
	assert.True(t, ok)

	inner := mustSpan(t, 2, 8)
	ok, err = LeafConsistent(StrategyContains, key, inner)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = LeafConsistent(StrategyContainedBy, inner, key)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLeafConsistentPositional(t *testing.T) {
	t.Parallel()

	left := mustSpan(t, 0, 10)
	right := mustSpan(t, 20, 30)

	ok, err := LeafConsistent(StrategyLeft, left, right)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = LeafConsistent(StrategyRight, right, left)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = LeafConsistent(StrategyBefore, left, right)
	require.NoError(t, err)
	assert.True(t, ok, "before/after alias to left/right")
}

func TestLeafConsistentUnknownStrategy(t *testing.T) {
	t.Parallel()

	_, err := LeafConsistent(Strategy(999), mustSpan(t, 0, 1), mustSpan(t, 0, 1))
	assert.Error(t, err)
}

func TestInnerConsistentPrunesDisjointSubtree(t *testing.T) {
	t.Parallel()

	left := mustSpan(t, 0, 10)
	farRight := mustSpan(t, 100, 110)

	ok, err := InnerConsistent(StrategyLeft, left, farRight)
	require.NoError(t, err)
	assert.True(t, ok, "subtree entirely left of the query may still match a Left predicate")

	ok, err = InnerConsistent(StrategyOverlaps, left, farRight)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInnerConsistentAdjacentChecksOverlapFirst(t *testing.T) {
	t.Parallel()

	key := mustSpan(t, 0, 10)
	overlapping := mustSpan(t, 5, 15)

	ok, err := InnerConsistent(StrategyAdjacent, key, overlapping)
	require.NoError(t, err)
	assert.True(t, ok, "an overlapping subtree might still contain an adjacent match")
}

func TestInnerConsistentUnknownStrategy(t *testing.T) {
	t.Parallel()

	_, err := InnerConsistent(Strategy(999), mustSpan(t, 0, 1), mustSpan(t, 0, 1))
	assert.Error(t, err)
}
