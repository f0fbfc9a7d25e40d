// Package gist implements the GiST/SP-GiST span consistency predicates:
// leaf/inner consistency sharing one strategy enumeration, recheck
// classification, and the SP-GiST quadtree/kd-tree traversal.
package gist

import (
	"github.com/dogwalking/mobility-core/internal/temporal/span"
	"github.com/dogwalking/mobility-core/internal/temporal/terr"
)

// Strategy enumerates the span relations GiST/SP-GiST indexes support.
type Strategy int

const (
	StrategyOverlaps Strategy = iota
	StrategyContains
	StrategyContainedBy
	StrategyEqual
	StrategyAdjacent
	StrategyLeft
	StrategyOverLeft
	StrategyRight
	StrategyOverRight
	StrategyBefore
	StrategyOverBefore
	StrategyAfter
	StrategyOverAfter
)

// Recheck reports whether a match against the index key must be rechecked
// against the full object: positional strategies are bounding-box-exact, topological
// ones are not.
func Recheck(s Strategy) bool {
	switch s {
	case StrategyOverlaps, StrategyContains, StrategyContainedBy, StrategyAdjacent:
		return true
	default:
		return false
	}
}

// LeafConsistent reports whether a leaf's key and the query span satisfy
// strategy s. before/after alias to the
// same inequality family as left/overleft since both packages share one
// bound-comparison rule (span.Span.StrictlyLeft etc. already operate on
// whichever base type the span carries, time included).
func LeafConsistent(s Strategy, key, query span.Span) (bool, error) {
	switch s {
	case StrategyOverlaps:
		return key.Overlaps(query)
	case StrategyContains:
		return key.Contains(query)
	case StrategyContainedBy:
		return key.ContainedBy(query)
	case StrategyEqual:
		return key.Equal(query)
	case StrategyAdjacent:
		return key.Adjacent(query)
	case StrategyLeft, StrategyBefore:
		return key.StrictlyLeft(query)
	case StrategyOverLeft, StrategyOverBefore:
		return key.OverlapsOrLeft(query)
	case StrategyRight, StrategyAfter:
		return key.StrictlyRight(query)
	case StrategyOverRight, StrategyOverAfter:
		return key.OverlapsOrRight(query)
	default:
		return false, terr.New(terr.InvalidArgValue, "unknown GiST strategy %d", s)
	}
}

// InnerConsistent applies the pruning rule: key is the MBR
// of the subtree; it reports whether that subtree may contain a match.
func InnerConsistent(s Strategy, key, query span.Span) (bool, error) {
	switch s {
	case StrategyOverlaps, StrategyContainedBy:
		return key.Overlaps(query)
	case StrategyContains, StrategyEqual:
		return key.Contains(query)
	case StrategyAdjacent:
		ov, err := key.Overlaps(query)
		if err != nil || ov {
			return ov, err
		}
		return key.Adjacent(query)
	case StrategyLeft, StrategyBefore:
		overlapsOrRight, err := key.OverlapsOrRight(query)
		if err != nil {
			return false, err
		}
		return !overlapsOrRight, nil
	case StrategyRight, StrategyAfter:
		overlapsOrLeft, err := key.OverlapsOrLeft(query)
		if err != nil {
			return false, err
		}
		return !overlapsOrLeft, nil
	case StrategyOverLeft, StrategyOverBefore:
		return key.OverlapsOrLeft(query)
	case StrategyOverRight, StrategyOverAfter:
		return key.OverlapsOrRight(query)
	default:
		return false, terr.New(terr.InvalidArgValue, "unknown GiST strategy %d", s)
	}
}
