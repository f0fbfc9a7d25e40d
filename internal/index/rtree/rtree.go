// Package rtree implements an in-memory R-tree over STBox: fixed fan-out,
// choose-subtree, quadratic-ish axis split with MINITEMS/MAXITEMS
// rebalancing, and depth-first overlap search.
package rtree

import (
	"github.com/dogwalking/mobility-core/internal/temporal/box"
)

// MaxItems and MinItems bound a node's child count (fixed fan-out, typically 32).
const (
	MaxItems = 32
	MinItems = MaxItems / 4
)

// entry pairs a child box with either a leaf payload id or an inner child
// node pointer.
type entry struct {
	box   box.STBox
	id    int64
	child *node
}

type node struct {
	leaf    bool
	entries []entry
}

// Tree is a single-threaded, in-memory R-tree over STBox.
// It assumes exclusive ownership of its own structure within a query.
type Tree struct {
	root *node
}

// New constructs an empty tree.
func New() *Tree {
	return &Tree{root: &node{leaf: true}}
}

// Insert adds id with bounding box b.
func (t *Tree) Insert(id int64, b box.STBox) error {
	split, err := t.root.insert(entry{box: b, id: id})
	if err != nil {
		return err
	}
	if split != nil {
		newRoot := &node{leaf: false, entries: []entry{
			{box: nodeBox(t.root), child: t.root},
			{box: nodeBox(split), child: split},
		}}
		t.root = newRoot
	}
	return nil
}

// nodeBox computes the union of every entry's box in n.
func nodeBox(n *node) box.STBox {
	if len(n.entries) == 0 {
		return box.STBox{}
	}
	b := n.entries[0].box
	for _, e := range n.entries[1:] {
		b, _ = box.Union(b, e.box)
	}
	return b
}

// insert descends the subtree rooted at n, returning a sibling node if n
// had to split.
func (n *node) insert(e entry) (*node, error) {
	if n.leaf {
		n.entries = append(n.entries, e)
		if len(n.entries) <= MaxItems {
			return nil, nil
		}
		return n.split()
	}

	idx, err := chooseSubtree(n, e.box)
	if err != nil {
		return nil, err
	}
	child := n.entries[idx].child
	split, err := child.insert(e)
	if err != nil {
		return nil, err
	}
	n.entries[idx].box = nodeBox(child)
	if split == nil {
		return nil, nil
	}
	n.entries = append(n.entries, entry{box: nodeBox(split), child: split})
	if len(n.entries) <= MaxItems {
		return nil, nil
	}
	return n.split()
}

// chooseSubtree descends into the smallest-area child whose
// *own* box already contains the new box; otherwise the child whose
// enlargement (area difference after union) is minimal, ties broken by
// current area.
//
// Design note: the original source shortcuts
// this using the rtree's own (root) bounding box rather than each
// candidate child's, which makes it always pick child 0 whenever the new
// box is already inside the global root box. That is treated here as a
// confirmed bug and corrected: containment is tested against each child's
// own box.
func chooseSubtree(n *node, b box.STBox) (int, error) {
	contained := -1
	var containedArea float64
	for i, e := range n.entries {
		contains, err := box.Contains(e.box, b)
		if err != nil {
			return 0, err
		}
		if contains && (contained == -1 || e.box.Area() < containedArea) {
			contained = i
			containedArea = e.box.Area()
		}
	}
	if contained != -1 {
		return contained, nil
	}
	best := -1
	var bestEnlargement, bestArea float64
	for i, e := range n.entries {
		union, err := box.Union(e.box, b)
		if err != nil {
			return 0, err
		}
		enlargement := union.Area() - e.box.Area()
		if best == -1 || enlargement < bestEnlargement ||
			(enlargement == bestEnlargement && e.box.Area() < bestArea) {
			best = i
			bestEnlargement = enlargement
			bestArea = e.box.Area()
		}
	}
	return best, nil
}

// split picks the axis with the largest
// extent, distribute entries by distance-to-extreme along that axis, then
// rebalance until both sides meet MinItems.
func (n *node) split() (*node, error) {
	axis := widestAxis(n.entries)
	axisMin, axisMax := axisBounds(n.entries, axis)

	left := &node{leaf: n.leaf}
	right := &node{leaf: n.leaf}
	for _, e := range n.entries {
		lo, hi := axisExtent(e.box, axis)
		distToUpper := axisMax - hi
		distToLower := lo - axisMin
		if distToUpper < distToLower {
			right.entries = append(right.entries, e)
		} else {
			left.entries = append(left.entries, e)
		}
	}

	rebalance(left, right, axis)
	rebalance(right, left, axis)

	n.entries = left.entries
	return right, nil
}

// rebalance moves entries from the majority side to the minority side,
// preferring the entries whose axis key sits closest to the minority
// side's boundary, until the minority side reaches MinItems.
func rebalance(minority, majority *node, axis int) {
	if len(minority.entries) >= MinItems || len(majority.entries) <= MinItems {
		return
	}
	for len(minority.entries) < MinItems && len(majority.entries) > MinItems {
		bestIdx := closestToBoundary(majority.entries, minority.entries, axis)
		minority.entries = append(minority.entries, majority.entries[bestIdx])
		majority.entries = append(majority.entries[:bestIdx], majority.entries[bestIdx+1:]...)
	}
}

func closestToBoundary(from, to []entry, axis int) int {
	boundary := unionOf(to)
	best := 0
	var bestDist float64
	for i, e := range from {
		lo, hi := axisExtent(e.box, axis)
		bLo, bHi := axisExtent(boundary, axis)
		d := minAbs(lo-bHi, bLo-hi)
		if i == 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func unionOf(entries []entry) box.STBox {
	if len(entries) == 0 {
		return box.STBox{}
	}
	b := entries[0].box
	for _, e := range entries[1:] {
		b, _ = box.Union(b, e.box)
	}
	return b
}

func minAbs(a, b float64) float64 {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	if a < b {
		return a
	}
	return b
}

// widestAxis returns the axis index (0=X, 1=Y, 2=Z, 3=T) with the largest
// combined extent across entries.
func widestAxis(entries []entry) int {
	var extents [4]float64
	for _, e := range entries {
		for axis := 0; axis < 4; axis++ {
			lo, hi := axisExtent(e.box, axis)
			if hi > lo {
				extents[axis] += hi - lo
			}
		}
	}
	best := 0
	for axis := 1; axis < 4; axis++ {
		if extents[axis] > extents[best] {
			best = axis
		}
	}
	return best
}

// axisBounds returns the overall [min, max] of the given axis across
// entries, the node-level extremes split() measures each entry's distance
// against.
func axisBounds(entries []entry, axis int) (float64, float64) {
	first := true
	var lo, hi float64
	for _, e := range entries {
		elo, ehi := axisExtent(e.box, axis)
		if first {
			lo, hi = elo, ehi
			first = false
			continue
		}
		if elo < lo {
			lo = elo
		}
		if ehi > hi {
			hi = ehi
		}
	}
	return lo, hi
}

// axisExtent returns (lo, hi) for the given axis index, or (0, 0) if b
// does not carry that dimension.
func axisExtent(b box.STBox, axis int) (float64, float64) {
	switch axis {
	case 0:
		if !b.XFlag {
			return 0, 0
		}
		return b.Xmin, b.Xmax
	case 1:
		if !b.XFlag {
			return 0, 0
		}
		return b.Ymin, b.Ymax
	case 2:
		if !b.XFlag || !b.ZFlag {
			return 0, 0
		}
		return b.Zmin, b.Zmax
	case 3:
		if !b.TFlag {
			return 0, 0
		}
		return float64(b.Tmin.UnixNano()), float64(b.Tmax.UnixNano())
	default:
		return 0, 0
	}
}

// Search returns every id whose box overlaps q, via depth-first traversal.
// The result slice grows by doubling, matching the source's
// capacity-doubling growable array.
func (t *Tree) Search(q box.STBox) ([]int64, error) {
	out := make([]int64, 0, 8)
	var err error
	out, err = t.root.search(q, out)
	return out, err
}

func (n *node) search(q box.STBox, out []int64) ([]int64, error) {
	for _, e := range n.entries {
		ov, err := box.Overlaps(e.box, q)
		if err != nil {
			return nil, err
		}
		if !ov {
			continue
		}
		if n.leaf {
			out = append(out, e.id)
			continue
		}
		var err2 error
		out, err2 = e.child.search(q, out)
		if err2 != nil {
			return nil, err2
		}
	}
	return out, nil
}
