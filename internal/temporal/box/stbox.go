package box

import (
	"time"

	"github.com/dogwalking/mobility-core/internal/temporal/basetype"
	"github.com/dogwalking/mobility-core/internal/temporal/span"
	"github.com/dogwalking/mobility-core/internal/temporal/terr"
)

// STBox is an axis-aligned box over x/y (required when XFlag is set), z
// (required when ZFlag is set), plus a time span (required when TFlag is
// set), carrying an SRID and a geodetic flag. Two boxes are comparable only if their flag sets and SRID
// match.
type STBox struct {
	XFlag, ZFlag, TFlag bool
	Geodetic            bool
	SRID                int32

	Xmin, Xmax float64
	Ymin, Ymax float64
	Zmin, Zmax float64
	Tmin, Tmax time.Time
}

// compatible reports whether two boxes share flag sets and SRID, the
// precondition for every predicate below.
func (b STBox) compatible(o STBox) error {
	if b.XFlag != o.XFlag || b.ZFlag != o.ZFlag || b.TFlag != o.TFlag {
		return terr.New(terr.InvalidArgValue, "STBOX dimension flags differ")
	}
	if b.XFlag && b.SRID != o.SRID {
		return terr.New(terr.InvalidArgValue, "STBOX SRID mismatch: %d vs %d", b.SRID, o.SRID)
	}
	return nil
}

// Dimensionality returns the operating dimension count of the box:
// 2 for x/y when XFlag is set, plus 1 for Z, plus 1 for the time dimension.
func (b STBox) Dimensionality() int {
	n := 0
	if b.XFlag {
		n += 2
		if b.ZFlag {
			n++
		}
	}
	if b.TFlag {
		n++
	}
	return n
}

// expandUnchecked returns the smallest STBox containing both b and o. The result
// keeps b's flags/SRID; callers are expected to have validated
// compatibility first via Union.
func (b STBox) expandUnchecked(o STBox) STBox {
	out := b
	if b.XFlag {
		out.Xmin, out.Xmax = minF(b.Xmin, o.Xmin), maxF(b.Xmax, o.Xmax)
		out.Ymin, out.Ymax = minF(b.Ymin, o.Ymin), maxF(b.Ymax, o.Ymax)
		if b.ZFlag {
			out.Zmin, out.Zmax = minF(b.Zmin, o.Zmin), maxF(b.Zmax, o.Zmax)
		}
	}
	if b.TFlag {
		out.Tmin = earlier(b.Tmin, o.Tmin)
		out.Tmax = later(b.Tmax, o.Tmax)
	}
	return out
}

// Union returns the smallest STBox containing both boxes, erroring if they
// are not comparable.
func Union(a, b STBox) (STBox, error) {
	if err := a.compatible(b); err != nil {
		return STBox{}, err
	}
	return a.expandUnchecked(b), nil
}

// Area returns the "area" used by the R-tree split/choose-subtree heuristic:
// the product of each present dimension's extent, with the time
// dimension's coordinate taken as the raw timestamp cast to float.
func (b STBox) Area() float64 {
	area := 1.0
	dims := 0
	if b.XFlag {
		area *= (b.Xmax - b.Xmin)
		area *= (b.Ymax - b.Ymin)
		dims += 2
		if b.ZFlag {
			area *= (b.Zmax - b.Zmin)
			dims++
		}
	}
	if b.TFlag {
		area *= float64(b.Tmax.UnixNano() - b.Tmin.UnixNano())
		dims++
	}
	if dims == 0 {
		return 0
	}
	return area
}

// Overlaps reports whether a and b share a common region on every
// dimension present.
func Overlaps(a, b STBox) (bool, error) {
	if err := a.compatible(b); err != nil {
		return false, err
	}
	if a.XFlag {
		if a.Xmax < b.Xmin || b.Xmax < a.Xmin || a.Ymax < b.Ymin || b.Ymax < a.Ymin {
			return false, nil
		}
		if a.ZFlag && (a.Zmax < b.Zmin || b.Zmax < a.Zmin) {
			return false, nil
		}
	}
	if a.TFlag {
		if a.Tmax.Before(b.Tmin) || b.Tmax.Before(a.Tmin) {
			return false, nil
		}
	}
	return true, nil
}

// Contains reports whether b lies entirely within a.
func Contains(a, b STBox) (bool, error) {
	if err := a.compatible(b); err != nil {
		return false, err
	}
	if a.XFlag {
		if b.Xmin < a.Xmin || b.Xmax > a.Xmax || b.Ymin < a.Ymin || b.Ymax > a.Ymax {
			return false, nil
		}
		if a.ZFlag && (b.Zmin < a.Zmin || b.Zmax > a.Zmax) {
			return false, nil
		}
	}
	if a.TFlag {
		if b.Tmin.Before(a.Tmin) || b.Tmax.After(a.Tmax) {
			return false, nil
		}
	}
	return true, nil
}

// ContainedBy reports whether a lies entirely within b.
func ContainedBy(a, b STBox) (bool, error) { return Contains(b, a) }

// Equal reports whether a and b denote the same box.
func Equal(a, b STBox) (bool, error) {
	if err := a.compatible(b); err != nil {
		return false, err
	}
	eq := true
	if a.XFlag {
		eq = eq && a.Xmin == b.Xmin && a.Xmax == b.Xmax && a.Ymin == b.Ymin && a.Ymax == b.Ymax
		if a.ZFlag {
			eq = eq && a.Zmin == b.Zmin && a.Zmax == b.Zmax
		}
	}
	if a.TFlag {
		eq = eq && a.Tmin.Equal(b.Tmin) && a.Tmax.Equal(b.Tmax)
	}
	return eq, nil
}

// Adjacent reports whether a and b do not overlap and an X or time boundary
// of one box equals the opposite boundary of the other. Y and Z boundaries
// are not compared, and the other dimensions are not required to overlap
// or touch.
func Adjacent(a, b STBox) (bool, error) {
	ov, err := Overlaps(a, b)
	if err != nil {
		return false, err
	}
	if ov {
		return false, nil
	}
	touches := false
	if a.XFlag && (a.Xmax == b.Xmin || b.Xmax == a.Xmin) {
		touches = true
	}
	if a.TFlag && (a.Tmax.Equal(b.Tmin) || b.Tmax.Equal(a.Tmin)) {
		touches = true
	}
	return touches, nil
}

// requireNonGeodetic guards the left/right/above/below family: these are
// undefined on geodetic coordinates.
func requireNonGeodetic(a, b STBox) error {
	if a.Geodetic || b.Geodetic {
		return terr.New(terr.InvalidArgValue, "positional predicates are undefined on geodetic STBOX")
	}
	return nil
}

// StrictlyLeft/StrictlyRight/OverlapsOrLeft/OverlapsOrRight operate on the
// X dimension; StrictlyBefore/StrictlyAfter/OverlapsOrBefore/
// OverlapsOrAfter operate on the time dimension, required on boxes with a
// TFlag.

func StrictlyLeft(a, b STBox) (bool, error) {
	if err := requireNonGeodetic(a, b); err != nil {
		return false, err
	}
	if err := a.compatible(b); err != nil {
		return false, err
	}
	return a.Xmax < b.Xmin, nil
}

func StrictlyRight(a, b STBox) (bool, error) { return StrictlyLeft(b, a) }

func OverlapsOrLeft(a, b STBox) (bool, error) {
	if err := requireNonGeodetic(a, b); err != nil {
		return false, err
	}
	if err := a.compatible(b); err != nil {
		return false, err
	}
	return a.Xmax <= b.Xmax, nil
}

func OverlapsOrRight(a, b STBox) (bool, error) {
	if err := requireNonGeodetic(a, b); err != nil {
		return false, err
	}
	if err := a.compatible(b); err != nil {
		return false, err
	}
	return a.Xmin >= b.Xmin, nil
}

func StrictlyBefore(a, b STBox) (bool, error) {
	if !a.TFlag || !b.TFlag {
		return false, terr.New(terr.InvalidArgValue, "before/after requires a time dimension")
	}
	if err := a.compatible(b); err != nil {
		return false, err
	}
	return a.Tmax.Before(b.Tmin), nil
}

func StrictlyAfter(a, b STBox) (bool, error) { return StrictlyBefore(b, a) }

func OverlapsOrBefore(a, b STBox) (bool, error) {
	if !a.TFlag || !b.TFlag {
		return false, terr.New(terr.InvalidArgValue, "before/after requires a time dimension")
	}
	if err := a.compatible(b); err != nil {
		return false, err
	}
	return !a.Tmax.After(b.Tmax), nil
}

func OverlapsOrAfter(a, b STBox) (bool, error) {
	if !a.TFlag || !b.TFlag {
		return false, terr.New(terr.InvalidArgValue, "before/after requires a time dimension")
	}
	if err := a.compatible(b); err != nil {
		return false, err
	}
	return !a.Tmin.Before(b.Tmin), nil
}

// Distance returns max(0, gap) between two boxes, summing the per-dimension
// gaps the way span distance is defined, generalized to boxes.
func Distance(a, b STBox) (float64, error) {
	if err := a.compatible(b); err != nil {
		return 0, err
	}
	total := 0.0
	if a.XFlag {
		total += axisGap(a.Xmin, a.Xmax, b.Xmin, b.Xmax)
		total += axisGap(a.Ymin, a.Ymax, b.Ymin, b.Ymax)
		if a.ZFlag {
			total += axisGap(a.Zmin, a.Zmax, b.Zmin, b.Zmax)
		}
	}
	if a.TFlag {
		total += axisGap(float64(a.Tmin.UnixNano()), float64(a.Tmax.UnixNano()), float64(b.Tmin.UnixNano()), float64(b.Tmax.UnixNano()))
	}
	return total, nil
}

func axisGap(aLo, aHi, bLo, bHi float64) float64 {
	if aHi < bLo {
		return bLo - aHi
	}
	if bHi < aLo {
		return aLo - bHi
	}
	return 0
}

func earlier(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
func later(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

// timeSpan builds a span.Span over the time dimension expressed as a
// Float64 base value pair (UnixNano), the representation gist-consistent
// uses to reuse span's bound-comparison rule for the time axis.
func timeSpan(lo, hi time.Time) span.Span {
	s, _ := span.New(
		basetype.NewFloat64(float64(lo.UnixNano())),
		basetype.NewFloat64(float64(hi.UnixNano())),
		true, true,
	)
	return s
}

// TimeAsSpan exposes the STBox time dimension as a value span.Span.
func (b STBox) TimeAsSpan() (span.Span, bool) {
	if !b.TFlag {
		return span.Span{}, false
	}
	return timeSpan(b.Tmin, b.Tmax), true
}
