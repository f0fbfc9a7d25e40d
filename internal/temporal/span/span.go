// Package span implements the one-dimensional interval type and span-set
// algebra. A Span is generic over any
// ordered base type exposed by basetype.Compare; bound comparison follows
// a single lexicographic rule so that every predicate
// here, the R-tree (internal/index/rtree), and the GiST/SP-GiST consistency
// checks (internal/index/gist) agree bit-for-bit.
package span

import (
	"fmt"

	"github.com/dogwalking/mobility-core/internal/temporal/basetype"
	"github.com/dogwalking/mobility-core/internal/temporal/terr"
)

// Span is a half-open-or-closed interval [Lo, Hi] over values of a single
// base type, with independent inclusivity flags for each bound.
//
// Invariant: Lo <= Hi; if Lo == Hi then both bounds must be inclusive (a
// point span). Constructors enforce this; New returns an error otherwise.
type Span struct {
	Lo, Hi           basetype.Value
	LowerInc, UpperInc bool
}

// New constructs a Span, validating the lo <= hi and point-span invariants.
func New(lo, hi basetype.Value, lowerInc, upperInc bool) (Span, error) {
	c, err := basetype.Compare(lo, hi)
	if err != nil {
		return Span{}, err
	}
	if c > 0 {
		return Span{}, terr.New(terr.InvalidArgValue, "span lower bound must not exceed upper bound")
	}
	if c == 0 && !(lowerInc && upperInc) {
		return Span{}, terr.New(terr.InvalidArgValue, "a point span must have both bounds inclusive")
	}
	return Span{Lo: lo, Hi: hi, LowerInc: lowerInc, UpperInc: upperInc}, nil
}

// bound is an internal comparison key: (value, isUpper, isInclusive).
// Bounds compare lexicographically
// by value first, and at equal values: an exclusive lower bound sorts after
// an inclusive one, an exclusive upper bound sorts before an inclusive one.
// This single function is the source of truth consulted by span
// adjacency/containment, the R-tree's box comparisons, and gist-consistent.
type bound struct {
	val     basetype.Value
	isUpper bool
	isInc   bool
}

// compareBounds implements the rule above. Returns -1, 0, 1.
func compareBounds(a, b bound) (int, error) {
	c, err := basetype.Compare(a.val, b.val)
	if err != nil {
		return 0, err
	}
	if c != 0 {
		return c, nil
	}
	if a.isInc == b.isInc {
		return 0, nil
	}
	// Equal value, differing inclusivity.
	if !a.isUpper && !b.isUpper {
		// Lower bounds: exclusive > inclusive.
		if a.isInc {
			return -1, nil
		}
		return 1, nil
	}
	if a.isUpper && b.isUpper {
		// Upper bounds: exclusive < inclusive.
		if a.isInc {
			return 1, nil
		}
		return -1, nil
	}
	// One is a lower bound, the other an upper bound, equal value: an
	// exclusive bound of either kind never touches the other, so treat the
	// exclusive side as "further out".
	if !a.isUpper {
		// a is lower, b is upper.
		if !a.isInc || !b.isInc {
			return 1, nil // a's exclusive lower sits strictly after b's bound
		}
		return 0, nil
	}
	if !b.isInc || !a.isInc {
		return -1, nil
	}
	return 0, nil
}

func (s Span) lowerBound() bound { return bound{val: s.Lo, isUpper: false, isInc: s.LowerInc} }
func (s Span) upperBound() bound { return bound{val: s.Hi, isUpper: true, isInc: s.UpperInc} }

// Compare imposes the total order over spans by (lower bound, upper bound).
func (s Span) Compare(o Span) (int, error) {
	c, err := compareBounds(s.lowerBound(), o.lowerBound())
	if err != nil || c != 0 {
		return c, err
	}
	return compareBounds(s.upperBound(), o.upperBound())
}

// Equal reports whether two spans denote the same interval.
func (s Span) Equal(o Span) (bool, error) {
	c, err := s.Compare(o)
	return c == 0, err
}

// Contains reports whether o lies entirely within s.
func (s Span) Contains(o Span) (bool, error) {
	lc, err := compareBounds(s.lowerBound(), o.lowerBound())
	if err != nil {
		return false, err
	}
	uc, err := compareBounds(o.upperBound(), s.upperBound())
	if err != nil {
		return false, err
	}
	return lc <= 0 && uc <= 0, nil
}

// ContainedBy reports whether s lies entirely within o.
func (s Span) ContainedBy(o Span) (bool, error) { return o.Contains(s) }

// Overlaps reports whether s and o share at least one point.
func (s Span) Overlaps(o Span) (bool, error) {
	lc, err := compareBounds(s.lowerBound(), o.upperBound())
	if err != nil {
		return false, err
	}
	uc, err := compareBounds(o.lowerBound(), s.upperBound())
	if err != nil {
		return false, err
	}
	return lc <= 0 && uc <= 0, nil
}

// Adjacent reports whether s and o are disjoint but "touch": one's upper
// bound equals the other's lower bound with exactly one of the two
// inclusive.
func (s Span) Adjacent(o Span) (bool, error) {
	ov, err := s.Overlaps(o)
	if err != nil || ov {
		return false, err
	}
	c1, err := basetype.Compare(s.Hi, o.Lo)
	if err == nil && c1 == 0 && (s.UpperInc != o.LowerInc) {
		return true, nil
	}
	c2, err2 := basetype.Compare(o.Hi, s.Lo)
	if err2 == nil && c2 == 0 && (o.UpperInc != s.LowerInc) {
		return true, nil
	}
	return false, nil
}

// StrictlyLeft reports whether s lies entirely to the left of (before, in
// value) o with no overlap and no touching requirement.
func (s Span) StrictlyLeft(o Span) (bool, error) {
	c, err := compareBounds(s.upperBound(), o.lowerBound())
	if err != nil {
		return false, err
	}
	return c < 0, nil
}

// StrictlyRight reports whether s lies entirely to the right of o.
func (s Span) StrictlyRight(o Span) (bool, error) { return o.StrictlyLeft(s) }

// OverlapsOrLeft reports whether s does not extend to the right of o, i.e.
// s.Hi <= o.Hi under bound order.
func (s Span) OverlapsOrLeft(o Span) (bool, error) {
	c, err := compareBounds(s.upperBound(), o.upperBound())
	if err != nil {
		return false, err
	}
	return c <= 0, nil
}

// OverlapsOrRight reports whether s does not extend to the left of o.
func (s Span) OverlapsOrRight(o Span) (bool, error) {
	c, err := compareBounds(s.lowerBound(), o.lowerBound())
	if err != nil {
		return false, err
	}
	return c >= 0, nil
}

// Gap returns the numeric gap between two spans when both bounds are
// numeric (Int32/Int64/Float64); overlapping spans have a gap of 0.
func Gap(a, b Span) (float64, error) {
	ov, err := a.Overlaps(b)
	if err != nil {
		return 0, err
	}
	if ov {
		return 0, nil
	}
	var left, right Span
	if c, _ := a.StrictlyLeft(b); c {
		left, right = a, b
	} else {
		left, right = b, a
	}
	lf, err := toFloat(left.Hi)
	if err != nil {
		return 0, err
	}
	rf, err := toFloat(right.Lo)
	if err != nil {
		return 0, err
	}
	gap := rf - lf
	if gap < 0 {
		gap = 0
	}
	return gap, nil
}

func toFloat(v basetype.Value) (float64, error) {
	switch v.Tag {
	case basetype.Int32:
		return float64(v.I32), nil
	case basetype.Int64:
		return float64(v.I64), nil
	case basetype.Float64:
		return v.F64, nil
	default:
		return 0, terr.New(terr.InvalidArgType, "span distance undefined for base type %s", v.Tag)
	}
}

func (s Span) String() string {
	lb, ub := "(", ")"
	if s.LowerInc {
		lb = "["
	}
	if s.UpperInc {
		ub = "]"
	}
	return fmt.Sprintf("%s%v, %v%s", lb, s.Lo, s.Hi, ub)
}
