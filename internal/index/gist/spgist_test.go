package gist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetQuadrant2D(t *testing.T) {
	t.Parallel()

	centroid := mustSpan(t, 10, 20)

	q, err := GetQuadrant2D(centroid, mustSpan(t, 15, 25))
	require.NoError(t, err)
	assert.Equal(t, 1, q)

	q, err = GetQuadrant2D(centroid, mustSpan(t, 5, 25))
	require.NoError(t, err)
	assert.Equal(t, 2, q)

	q, err = GetQuadrant2D(centroid, mustSpan(t, 5, 15))
	require.NoError(t, err)
	assert.Equal(t, 3, q)

	q, err = GetQuadrant2D(centroid, mustSpan(t, 15, 15))
	require.NoError(t, err)
	assert.Equal(t, 4, q)
}

func TestNodeBoxAggregate(t *testing.T) {
	t.Parallel()

	nb := NodeBox{Left: mustSpan(t, 0, 10), Right: mustSpan(t, 20, 30)}
	agg, err := nb.Aggregate()
	require.NoError(t, err)
	assert.Equal(t, 0.0, agg.Lo.F64)
	assert.Equal(t, 30.0, agg.Hi.F64)
}

func TestKDLevel(t *testing.T) {
	t.Parallel()

	assert.True(t, KDLevel(0))
	assert.False(t, KDLevel(1))
	assert.True(t, KDLevel(2))
}

func TestSpanNodePruneOverlaps(t *testing.T) {
	t.Parallel()

	nb := NodeBox{Left: mustSpan(t, 0, 10), Right: mustSpan(t, 20, 30)}

	ok, err := SpanNodePrune(StrategyOverlaps, nb, mustSpan(t, 5, 25))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = SpanNodePrune(StrategyOverlaps, nb, mustSpan(t, 100, 110))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSpanNodePruneUnknownStrategyPrunesNode(t *testing.T) {
	t.Parallel()

	nb := NodeBox{Left: mustSpan(t, 0, 10), Right: mustSpan(t, 20, 30)}
	ok, err := SpanNodePrune(Strategy(999), nb, mustSpan(t, 5, 25))
	require.NoError(t, err)
	assert.False(t, ok)
}

// TestSpanNodePruneLeftMirrorsInnerConsistent is the counter-example a
// direct agg.StrictlyLeft(query) pruning rule gets wrong: nodebox=[0,10]
// aggregates to a single span that overlaps query=[5,15], so it must not
// be pruned for StrategyLeft/Before even though the aggregate itself is
// not strictly left of query, since an element like [0,2] stored in this
// subtree would still be a valid strictly-left match.
func TestSpanNodePruneLeftMirrorsInnerConsistent(t *testing.T) {
	t.Parallel()

	nb := NodeBox{Left: mustSpan(t, 0, 10), Right: mustSpan(t, 0, 10)}
	query := mustSpan(t, 5, 15)

	ok, err := SpanNodePrune(StrategyLeft, nb, query)
	require.NoError(t, err)
	assert.True(t, ok, "subtree overlapping query may still hold a strictly-left element")

	ok, err = SpanNodePrune(StrategyBefore, nb, query)
	require.NoError(t, err)
	assert.True(t, ok)
}

// TestSpanNodePruneLeftExcludesOverlapsOrRight checks the rejecting side
// of the same rule: a nodebox whose aggregate already overlaps-or-lies-right
// of query can be pruned, since nothing inside it can be strictly left.
func TestSpanNodePruneLeftExcludesOverlapsOrRight(t *testing.T) {
	t.Parallel()

	nb := NodeBox{Left: mustSpan(t, 20, 30), Right: mustSpan(t, 20, 30)}
	query := mustSpan(t, 5, 15)

	ok, err := SpanNodePrune(StrategyLeft, nb, query)
	require.NoError(t, err)
	assert.False(t, ok)
}

// TestSpanNodePruneRightMirrorsInnerConsistent is the symmetric
// counter-example for StrategyRight/After: nodebox=[0,10] overlaps
// query=[-5,5], so it must not be pruned even though the aggregate is not
// strictly right of query, since an element like [8,10] would still be a
// valid strictly-right match.
func TestSpanNodePruneRightMirrorsInnerConsistent(t *testing.T) {
	t.Parallel()

	nb := NodeBox{Left: mustSpan(t, 0, 10), Right: mustSpan(t, 0, 10)}
	query := mustSpan(t, -5, 5)

	ok, err := SpanNodePrune(StrategyRight, nb, query)
	require.NoError(t, err)
	assert.True(t, ok, "subtree overlapping query may still hold a strictly-right element")

	ok, err = SpanNodePrune(StrategyAfter, nb, query)
	require.NoError(t, err)
	assert.True(t, ok)
}

// TestSpanNodePruneRightExcludesOverlapsOrLeft checks the rejecting side:
// a nodebox whose aggregate already overlaps-or-lies-left of query can be
// pruned, since nothing inside it can be strictly right.
func TestSpanNodePruneRightExcludesOverlapsOrLeft(t *testing.T) {
	t.Parallel()

	nb := NodeBox{Left: mustSpan(t, -30, -20), Right: mustSpan(t, -30, -20)}
	query := mustSpan(t, -5, 5)

	ok, err := SpanNodePrune(StrategyRight, nb, query)
	require.NoError(t, err)
	assert.False(t, ok)
}
