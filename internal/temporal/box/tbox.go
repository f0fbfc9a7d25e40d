// Package box implements the bounding-geometry model: TBOX
// (value x time) and STBOX (space x time). Both are used as the cached
// bounding object of temporal values and as the key type stored in the
// R-tree (internal/index/rtree) and consulted by gist-consistent
// (internal/index/gist).
package box

import (
	"time"

	"github.com/dogwalking/mobility-core/internal/temporal/span"
	"github.com/dogwalking/mobility-core/internal/temporal/terr"
)

// TBox is a value-span (optional) and a time-span (optional); at least one
// must be present.
type TBox struct {
	HasValue bool
	ValueLo, ValueHi float64
	HasTime  bool
	TimeLo, TimeHi time.Time
}

// NewTBox validates that at least one of the value or time dimension is
// present.
func NewTBox(hasValue bool, vlo, vhi float64, hasTime bool, tlo, thi time.Time) (TBox, error) {
	if !hasValue && !hasTime {
		return TBox{}, terr.New(terr.InvalidArgValue, "TBOX requires at least one of value or time span")
	}
	if hasValue && vlo > vhi {
		return TBox{}, terr.New(terr.InvalidArgValue, "TBOX value span lower exceeds upper")
	}
	if hasTime && tlo.After(thi) {
		return TBox{}, terr.New(terr.InvalidArgValue, "TBOX time span lower exceeds upper")
	}
	return TBox{HasValue: hasValue, ValueLo: vlo, ValueHi: vhi, HasTime: hasTime, TimeLo: tlo, TimeHi: thi}, nil
}

// Expand returns the smallest TBox containing both b and o.
func (b TBox) Expand(o TBox) TBox {
	out := b
	if o.HasValue {
		if !out.HasValue {
			out.HasValue, out.ValueLo, out.ValueHi = true, o.ValueLo, o.ValueHi
		} else {
			out.ValueLo = minF(out.ValueLo, o.ValueLo)
			out.ValueHi = maxF(out.ValueHi, o.ValueHi)
		}
	}
	if o.HasTime {
		if !out.HasTime {
			out.HasTime, out.TimeLo, out.TimeHi = true, o.TimeLo, o.TimeHi
		} else {
			if o.TimeLo.Before(out.TimeLo) {
				out.TimeLo = o.TimeLo
			}
			if o.TimeHi.After(out.TimeHi) {
				out.TimeHi = o.TimeHi
			}
		}
	}
	return out
}

// Intersects reports whether b and o share a common region on every
// dimension both boxes carry.
func (b TBox) Intersects(o TBox) bool {
	if b.HasValue && o.HasValue {
		if b.ValueHi < o.ValueLo || o.ValueHi < b.ValueLo {
			return false
		}
	}
	if b.HasTime && o.HasTime {
		if b.TimeHi.Before(o.TimeLo) || o.TimeHi.Before(b.TimeLo) {
			return false
		}
	}
	return true
}

// Contains reports whether o lies entirely within b on every dimension b
// carries (o may carry fewer dimensions than b only if b doesn't require
// them).
func (b TBox) Contains(o TBox) bool {
	if b.HasValue {
		if !o.HasValue || o.ValueLo < b.ValueLo || o.ValueHi > b.ValueHi {
			return false
		}
	}
	if b.HasTime {
		if !o.HasTime || o.TimeLo.Before(b.TimeLo) || o.TimeHi.After(b.TimeHi) {
			return false
		}
	}
	return true
}

// TimeFloatLo/TimeFloatHi return the time bounds as UnixNano float64
// values, the representation the span-based predicates use for time.
func (b TBox) TimeFloatLo() float64 { return float64(b.TimeLo.UnixNano()) }
func (b TBox) TimeFloatHi() float64 { return float64(b.TimeHi.UnixNano()) }

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// TimeAsSpan exposes the TBox time dimension as a value span.Span, built
// by the timeSpan helper in stbox.go that STBox.TimeAsSpan also uses.
func (b TBox) TimeAsSpan() (span.Span, bool) {
	if !b.HasTime {
		return span.Span{}, false
	}
	return timeSpan(b.TimeLo, b.TimeHi), true
}
