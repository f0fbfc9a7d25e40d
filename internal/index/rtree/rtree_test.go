package rtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dogwalking/mobility-core/internal/temporal/box"
)

func xyBox(xmin, xmax, ymin, ymax float64) box.STBox {
	return box.STBox{XFlag: true, Xmin: xmin, Xmax: xmax, Ymin: ymin, Ymax: ymax}
}

func TestInsertAndSearchFindsOverlapping(t *testing.T) {
	t.Parallel()

	tr := New()
	require.NoError(t, tr.Insert(1, xyBox(0, 10, 0, 10)))
	require.NoError(t, tr.Insert(2, xyBox(100, 110, 100, 110)))
	require.NoError(t, tr.Insert(3, xyBox(5, 15, 5, 15)))

	ids, err := tr.Search(xyBox(0, 20, 0, 20))
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 3}, ids)
}

func TestSearchWithNoMatches(t *testing.T) {
	t.Parallel()

	tr := New()
	require.NoError(t, tr.Insert(1, xyBox(0, 10, 0, 10)))

	ids, err := tr.Search(xyBox(1000, 1010, 1000, 1010))
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestInsertTriggersSplit(t *testing.T) {
	t.Parallel()

	tr := New()
	for i := int64(0); i < int64(MaxItems)+5; i++ {
		x := float64(i) * 100
		require.NoError(t, tr.Insert(i, xyBox(x, x+1, x, x+1)))
	}

	require.False(t, tr.root.leaf, "inserting past MaxItems must split the root into an inner node")

	ids, err := tr.Search(xyBox(0, 1e9, 0, 1e9))
	require.NoError(t, err)
	assert.Len(t, ids, MaxItems+5)
}

func TestChooseSubtreePrefersContainingChild(t *testing.T) {
	t.Parallel()

	n := &node{leaf: false, entries: []entry{
		{box: xyBox(0, 100, 0, 100), child: &node{leaf: true}},
		{box: xyBox(0, 10, 0, 10), child: &node{leaf: true}},
	}}

	idx, err := chooseSubtree(n, xyBox(2, 5, 2, 5))
	require.NoError(t, err)
	assert.Equal(t, 1, idx, "the smaller containing box should be chosen over the larger one listed first")
}

func TestWidestAxisPicksLargestExtent(t *testing.T) {
	t.Parallel()

	entries := []entry{
		{box: xyBox(0, 100, 0, 1)},
		{box: xyBox(0, 1, 0, 1)},
	}
	assert.Equal(t, 0, widestAxis(entries), "X has the larger combined extent")
}
