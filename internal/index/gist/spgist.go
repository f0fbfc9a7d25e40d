package gist

import (
	"github.com/dogwalking/mobility-core/internal/temporal/basetype"
	"github.com/dogwalking/mobility-core/internal/temporal/span"
)

// NodeBox bounds the range of possible lower bounds (Left) and upper
// bounds (Right) a span stored under this SP-GiST node can have. The
// pruning predicates operate on the single aggregated span
// [nodebox.Left.Lo, nodebox.Right.Hi].
type NodeBox struct {
	Left, Right span.Span
}

// Aggregate builds the single span pruning predicates consult.
func (nb NodeBox) Aggregate() (span.Span, error) {
	return span.New(nb.Left.Lo, nb.Right.Hi, nb.Left.LowerInc, nb.Right.UpperInc)
}

// GetQuadrant2D applies the quadtree strategy: the centroid of
// an inner node splits the (lower, upper) bound plane into four quadrants,
// found by comparing the query's lower bound to the centroid's lower bound
// and the query's upper bound to the centroid's upper bound.
func GetQuadrant2D(centroid, query span.Span) (int, error) {
	lc, err := basetype.Compare(query.Lo, centroid.Lo)
	if err != nil {
		return 0, err
	}
	uc, err := basetype.Compare(query.Hi, centroid.Hi)
	if err != nil {
		return 0, err
	}
	lowerGreater := lc > 0
	upperGreater := uc > 0
	switch {
	case lowerGreater && upperGreater:
		return 1, nil
	case !lowerGreater && upperGreater:
		return 2, nil
	case !lowerGreater && !upperGreater:
		return 3, nil
	default: // lowerGreater && !upperGreater
		return 4, nil
	}
}

// SpannodeNextQuadtree derives the child node-bound from the parent
// nodebox, the centroid, and the chosen quadrant.
func SpannodeNextQuadtree(parent NodeBox, centroid span.Span, quadrant int) NodeBox {
	out := parent
	switch quadrant {
	case 1: // lower > centroid.lower, upper > centroid.upper
		out.Left.Lo = centroid.Lo
		out.Left.LowerInc = !centroid.LowerInc
		out.Right.Lo = centroid.Hi
		out.Right.LowerInc = !centroid.UpperInc
	case 2: // lower <= centroid.lower, upper > centroid.upper
		out.Left.Hi = centroid.Lo
		out.Left.UpperInc = centroid.LowerInc
		out.Right.Lo = centroid.Hi
		out.Right.LowerInc = !centroid.UpperInc
	case 3: // lower <= centroid.lower, upper <= centroid.upper
		out.Left.Hi = centroid.Lo
		out.Left.UpperInc = centroid.LowerInc
		out.Right.Hi = centroid.Hi
		out.Right.UpperInc = centroid.UpperInc
	case 4: // lower > centroid.lower, upper <= centroid.upper
		out.Left.Lo = centroid.Lo
		out.Left.LowerInc = !centroid.LowerInc
		out.Right.Hi = centroid.Hi
		out.Right.UpperInc = centroid.UpperInc
	}
	return out
}

// KDLevel selects which bound a kd-tree inner node splits on: upper at
// even levels, lower at odd levels.
func KDLevel(level int) (splitsOnUpper bool) {
	return level%2 == 0
}

// SpannodeNextKD derives the child node-bound for a kd-tree node whose
// split value is splitVal on the axis KDLevel(level) selects, given which
// side (left/right of the split) the traversal descended into.
func SpannodeNextKD(parent NodeBox, level int, splitVal basetype.Value, splitInc bool, goLeft bool) NodeBox {
	out := parent
	if KDLevel(level) {
		if goLeft {
			out.Right.Hi = splitVal
			out.Right.UpperInc = splitInc
		} else {
			out.Right.Lo = splitVal
			out.Right.LowerInc = !splitInc
		}
		return out
	}
	if goLeft {
		out.Left.Hi = splitVal
		out.Left.UpperInc = splitInc
	} else {
		out.Left.Lo = splitVal
		out.Left.LowerInc = !splitInc
	}
	return out
}

// The pruning predicates below test whether a query span can match
// anything inside a node whose range is described by nodebox's aggregated
// span.

func overlap2D(nodebox NodeBox, query span.Span) (bool, error) {
	agg, err := nodebox.Aggregate()
	if err != nil {
		return false, err
	}
	return agg.Overlaps(query)
}

func contain2D(nodebox NodeBox, query span.Span) (bool, error) {
	agg, err := nodebox.Aggregate()
	if err != nil {
		return false, err
	}
	return agg.Contains(query)
}

// left2D mirrors gist.InnerConsistent's Left/Before pruning rule: a
// subtree may still match "strictly left" unless its aggregated span
// already overlaps or lies to the right of query, since a strictly-left
// element deep inside the subtree would otherwise be wrongly pruned.
func left2D(nodebox NodeBox, query span.Span) (bool, error) {
	agg, err := nodebox.Aggregate()
	if err != nil {
		return false, err
	}
	overlapsOrRight, err := agg.OverlapsOrRight(query)
	if err != nil {
		return false, err
	}
	return !overlapsOrRight, nil
}

func overLeft2D(nodebox NodeBox, query span.Span) (bool, error) {
	agg, err := nodebox.Aggregate()
	if err != nil {
		return false, err
	}
	return agg.OverlapsOrLeft(query)
}

// right2D mirrors gist.InnerConsistent's Right/After pruning rule: a
// subtree may still match "strictly right" unless its aggregated span
// already overlaps or lies to the left of query.
func right2D(nodebox NodeBox, query span.Span) (bool, error) {
	agg, err := nodebox.Aggregate()
	if err != nil {
		return false, err
	}
	overlapsOrLeft, err := agg.OverlapsOrLeft(query)
	if err != nil {
		return false, err
	}
	return !overlapsOrLeft, nil
}

func overRight2D(nodebox NodeBox, query span.Span) (bool, error) {
	agg, err := nodebox.Aggregate()
	if err != nil {
		return false, err
	}
	return agg.OverlapsOrRight(query)
}

func adjacent2D(nodebox NodeBox, query span.Span) (bool, error) {
	agg, err := nodebox.Aggregate()
	if err != nil {
		return false, err
	}
	ov, err := agg.Overlaps(query)
	if err != nil || ov {
		return ov, err
	}
	return agg.Adjacent(query)
}

// SpanNodePrune reports whether an SP-GiST inner node described by nodebox
// may contain a match for strategy s against query, sharing the same
// pruning logic InnerConsistent uses for GiST.
func SpanNodePrune(s Strategy, nodebox NodeBox, query span.Span) (bool, error) {
	switch s {
	case StrategyOverlaps, StrategyContainedBy:
		return overlap2D(nodebox, query)
	case StrategyContains, StrategyEqual:
		return contain2D(nodebox, query)
	case StrategyAdjacent:
		return adjacent2D(nodebox, query)
	case StrategyLeft, StrategyBefore:
		return left2D(nodebox, query)
	case StrategyOverLeft, StrategyOverBefore:
		return overLeft2D(nodebox, query)
	case StrategyRight, StrategyAfter:
		return right2D(nodebox, query)
	case StrategyOverRight, StrategyOverAfter:
		return overRight2D(nodebox, query)
	default:
		return false, nil
	}
}
