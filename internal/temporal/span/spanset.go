package span

import (
	"sort"

	"github.com/dogwalking/mobility-core/internal/temporal/terr"
)

// Set is an ordered sequence of disjoint, non-adjacent spans sharing a span
// type. Constructed only through New, which
// normalizes (sorts, merges overlapping/adjacent spans) so the invariant
// always holds by construction, mirroring temporal-core's "normalization
// is idempotent" rule applied one layer down.
type Set struct {
	Spans []Span
}

// NewSet builds a normalized Set from an arbitrary (possibly overlapping,
// unsorted) slice of spans.
func NewSet(spans []Span) (Set, error) {
	if len(spans) == 0 {
		return Set{}, nil
	}
	cp := make([]Span, len(spans))
	copy(cp, spans)

	var sortErr error
	sort.Slice(cp, func(i, j int) bool {
		c, err := cp[i].Compare(cp[j])
		if err != nil {
			sortErr = err
		}
		return c < 0
	})
	if sortErr != nil {
		return Set{}, sortErr
	}

	out := make([]Span, 0, len(cp))
	cur := cp[0]
	for _, s := range cp[1:] {
		merge, err := shouldMerge(cur, s)
		if err != nil {
			return Set{}, err
		}
		if merge {
			cur, err = union(cur, s)
			if err != nil {
				return Set{}, err
			}
			continue
		}
		out = append(out, cur)
		cur = s
	}
	out = append(out, cur)
	return Set{Spans: out}, nil
}

// shouldMerge reports whether two spans (already sorted, a before b)
// overlap or are adjacent, i.e. whether leaving them separate would violate
// the span-set disjointness invariant.
func shouldMerge(a, b Span) (bool, error) {
	if ov, err := a.Overlaps(b); err != nil || ov {
		return ov, err
	}
	return a.Adjacent(b)
}

func union(a, b Span) (Span, error) {
	lo, lowerInc := a.Lo, a.LowerInc
	if c, err := compareBounds(b.lowerBound(), a.lowerBound()); err != nil {
		return Span{}, err
	} else if c < 0 {
		lo, lowerInc = b.Lo, b.LowerInc
	}
	hi, upperInc := a.Hi, a.UpperInc
	if c, err := compareBounds(b.upperBound(), a.upperBound()); err != nil {
		return Span{}, err
	} else if c > 0 {
		hi, upperInc = b.Hi, b.UpperInc
	}
	return New(lo, hi, lowerInc, upperInc)
}

// Contains reports whether every span of o is contained in some span of s.
func (s Set) Contains(o Set) (bool, error) {
	for _, os := range o.Spans {
		found := false
		for _, ss := range s.Spans {
			c, err := ss.Contains(os)
			if err != nil {
				return false, err
			}
			if c {
				found = true
				break
			}
		}
		if !found {
			return false, nil
		}
	}
	return true, nil
}

// Overlaps reports whether any span of s overlaps any span of o.
func (s Set) Overlaps(o Set) (bool, error) {
	for _, ss := range s.Spans {
		for _, os := range o.Spans {
			c, err := ss.Overlaps(os)
			if err != nil {
				return false, err
			}
			if c {
				return true, nil
			}
		}
	}
	return false, nil
}

// Union returns the normalized union of two span sets.
func Union(a, b Set) (Set, error) {
	all := make([]Span, 0, len(a.Spans)+len(b.Spans))
	all = append(all, a.Spans...)
	all = append(all, b.Spans...)
	return NewSet(all)
}

// Intersection returns the normalized intersection of two span sets, walked
// with a merge-join since both inputs are already sorted and disjoint.
func Intersection(a, b Set) (Set, error) {
	var out []Span
	i, j := 0, 0
	for i < len(a.Spans) && j < len(b.Spans) {
		as, bs := a.Spans[i], b.Spans[j]
		if ov, err := as.Overlaps(bs); err != nil {
			return Set{}, err
		} else if ov {
			inter, err := intersect(as, bs)
			if err != nil {
				return Set{}, err
			}
			out = append(out, inter)
		}
		c, err := compareBounds(as.upperBound(), bs.upperBound())
		if err != nil {
			return Set{}, err
		}
		if c < 0 {
			i++
		} else {
			j++
		}
	}
	return NewSet(out)
}

func intersect(a, b Span) (Span, error) {
	lo, lowerInc := a.Lo, a.LowerInc
	if c, err := compareBounds(a.lowerBound(), b.lowerBound()); err != nil {
		return Span{}, err
	} else if c < 0 {
		lo, lowerInc = b.Lo, b.LowerInc
	}
	hi, upperInc := a.Hi, a.UpperInc
	if c, err := compareBounds(a.upperBound(), b.upperBound()); err != nil {
		return Span{}, err
	} else if c > 0 {
		hi, upperInc = b.Hi, b.UpperInc
	}
	return New(lo, hi, lowerInc, upperInc)
}

// Minus returns a minus b (the spans of a with every overlap with b
// removed), normalized.
func Minus(a, b Span) ([]Span, error) {
	ov, err := a.Overlaps(b)
	if err != nil {
		return nil, err
	}
	if !ov {
		return []Span{a}, nil
	}
	var out []Span
	if c, err := compareBounds(a.lowerBound(), b.lowerBound()); err != nil {
		return nil, err
	} else if c < 0 {
		left, err := New(a.Lo, b.Lo, a.LowerInc, !b.LowerInc)
		if err != nil {
			return nil, terr.New(terr.InternalError, "unreachable minus-left construction: %v", err)
		}
		out = append(out, left)
	}
	if c, err := compareBounds(a.upperBound(), b.upperBound()); err != nil {
		return nil, err
	} else if c > 0 {
		right, err := New(b.Hi, a.Hi, !b.UpperInc, a.UpperInc)
		if err != nil {
			return nil, terr.New(terr.InternalError, "unreachable minus-right construction: %v", err)
		}
		out = append(out, right)
	}
	return out, nil
}

// SetMinus returns the normalized difference a \ b over whole span sets.
func SetMinus(a, b Set) (Set, error) {
	remaining := append([]Span(nil), a.Spans...)
	for _, bs := range b.Spans {
		var next []Span
		for _, rs := range remaining {
			pieces, err := Minus(rs, bs)
			if err != nil {
				return Set{}, err
			}
			next = append(next, pieces...)
		}
		remaining = next
	}
	return NewSet(remaining)
}
