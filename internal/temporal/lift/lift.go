// Package lift implements the generic pointwise-lifting
// machinery (lift1/lift2) that every temporal arithmetic, comparison, and
// distance operator in the core is built from, plus the numeric
// turning-point formula for multiplication/division and the
// division-by-zero guard.
package lift

import (
	"time"

	"github.com/dogwalking/mobility-core/internal/temporal"
	"github.com/dogwalking/mobility-core/internal/temporal/basetype"
	"github.com/dogwalking/mobility-core/internal/temporal/span"
	"github.com/dogwalking/mobility-core/internal/temporal/terr"
)

// Func is the pointwise operator lifted across one or two temporal values:
// (v1, v2, basetype) → result. v2 is the zero Value for lift1 calls.
type Func func(v1, v2 basetype.Value) (basetype.Value, error)

// TurningPointFunc reports the interior timestamp(s), strictly inside
// (tLower, tUpper), where a two-sided linear segment's result changes
// character. Implementations return zero, one, or two timestamps.
type TurningPointFunc func(startL, endL, startR, endR basetype.Value, tLower, tUpper time.Time) []time.Time

// tpEpsilon rejects a reported turning point that lands within epsilon of
// either segment endpoint.
const tpEpsilon = time.Microsecond

func valueAt(t temporal.Temporal, at time.Time, preferLeft bool) (basetype.Value, bool, error) {
	return t.ValueAt(at, preferLeft)
}

func timeSpanOf(t temporal.Temporal) (span.Span, bool) {
	return t.TimeSpan()
}

// overlap returns the time intersection of t1 and t2's domains, or
// ok=false if they do not overlap.
func overlap(t1, t2 temporal.Temporal) (lo, hi time.Time, lowerInc, upperInc bool, ok bool) {
	s1, ok1 := timeSpanOf(t1)
	s2, ok2 := timeSpanOf(t2)
	if !ok1 || !ok2 {
		return
	}
	inter, err := span.Intersection(span.Set{Spans: []span.Span{s1}}, span.Set{Spans: []span.Span{s2}})
	if err != nil || len(inter.Spans) == 0 {
		return
	}
	s := inter.Spans[0]
	return floatTime(s.Lo.F64), floatTime(s.Hi.F64), s.LowerInc, s.UpperInc, true
}

func floatTime(f float64) time.Time { return time.Unix(0, int64(f)).UTC() }
func timeFloat(t time.Time) float64 { return float64(t.UnixNano()) }

// breakpoints collects the sorted, deduplicated set of sample timestamps
// of t1 and t2 that fall within [lo, hi], plus lo and hi themselves,
// which are the lock-step walk's segment boundaries.
func breakpoints(t1, t2 temporal.Temporal, lo, hi time.Time) []time.Time {
	seen := map[int64]bool{}
	var out []time.Time
	add := func(t time.Time) {
		if t.Before(lo) || t.After(hi) {
			return
		}
		key := t.UnixNano()
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, t)
	}
	add(lo)
	add(hi)
	for _, inst := range temporal.Instants(t1) {
		add(inst.T)
	}
	for _, inst := range temporal.Instants(t2) {
		add(inst.T)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Before(out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func isLinearAt(t temporal.Temporal) bool {
	return t.Interpretation() == temporal.Linear
}

// Lift2 applies f pointwise to t1 and t2 over their common time domain,
// using a lock-step segment walk with turning-point
// insertion on doubly-linear segments, step interpretation otherwise.
// reslinear declares whether f preserves linearity (true for +, -; false
// for comparisons and most nonlinear functions). tpfn may be nil when no
// turning point search applies. Returns (nil, nil) if the domains do not
// overlap at all.
func Lift2(f Func, reslinear bool, tpfn TurningPointFunc, t1, t2 temporal.Temporal) (temporal.Temporal, error) {
	if i1, ok1 := t1.(*temporal.TInstant); ok1 {
		if i2, ok2 := t2.(*temporal.TInstant); ok2 {
			if !i1.Time().Equal(i2.Time()) {
				return nil, nil
			}
			v, err := f(i1.Value(), i2.Value())
			if err != nil {
				return nil, err
			}
			return temporal.NewInstant(v, i1.Time()), nil
		}
	}

	lo, hi, lowerInc, upperInc, ok := overlap(t1, t2)
	if !ok {
		return nil, nil
	}
	bps := breakpoints(t1, t2, lo, hi)
	if len(bps) == 0 {
		return nil, nil
	}
	if len(bps) == 1 {
		v1, ok1, err := valueAt(t1, bps[0], false)
		if err != nil {
			return nil, err
		}
		v2, ok2, err := valueAt(t2, bps[0], false)
		if err != nil {
			return nil, err
		}
		if !ok1 || !ok2 {
			return nil, nil
		}
		v, err := f(v1, v2)
		if err != nil {
			return nil, err
		}
		return temporal.NewInstant(v, bps[0]), nil
	}

	type sample struct {
		t time.Time
		v basetype.Value
	}
	var samples []sample
	allLinear := true

	addSample := func(t time.Time) error {
		v1, ok1, err := valueAt(t1, t, false)
		if err != nil {
			return err
		}
		v2, ok2, err := valueAt(t2, t, false)
		if err != nil {
			return err
		}
		if !ok1 || !ok2 {
			return nil
		}
		v, err := f(v1, v2)
		if err != nil {
			return err
		}
		samples = append(samples, sample{t: t, v: v})
		return nil
	}

	for i := 0; i < len(bps); i++ {
		if err := addSample(bps[i]); err != nil {
			return nil, err
		}
		if i == len(bps)-1 {
			break
		}
		segLo, segHi := bps[i], bps[i+1]
		leftLinear := isLinearAt(t1)
		rightLinear := isLinearAt(t2)
		if !(leftLinear && rightLinear) || !reslinear {
			allLinear = false
		}
		if leftLinear && rightLinear && tpfn != nil {
			startL, _, err := valueAt(t1, segLo, false)
			if err != nil {
				return nil, err
			}
			endL, _, err := valueAt(t1, segHi, true)
			if err != nil {
				return nil, err
			}
			startR, _, err := valueAt(t2, segLo, false)
			if err != nil {
				return nil, err
			}
			endR, _, err := valueAt(t2, segHi, true)
			if err != nil {
				return nil, err
			}
			for _, tp := range tpfn(startL, endL, startR, endR, segLo, segHi) {
				if tp.Sub(segLo) < tpEpsilon || segHi.Sub(tp) < tpEpsilon {
					continue
				}
				if err := addSample(tp); err != nil {
					return nil, err
				}
			}
		}
	}
	if len(samples) == 0 {
		return nil, nil
	}

	insts := make([]temporal.Instant, 0, len(samples))
	for _, s := range samples {
		insts = append(insts, temporal.Instant{V: s.v, T: s.t})
	}
	interp := temporal.Step
	if allLinear {
		interp = temporal.Linear
	}
	if len(insts) == 1 {
		return temporal.NewInstant(insts[0].V, insts[0].T), nil
	}
	return temporal.NewSequence(insts, lowerInc, upperInc, interp)
}

// Lift1 applies a single-argument pointwise function across one temporal
// value, expressed in terms of Lift2 with t passed as both operands; the
// second operand's value is ignored.
func Lift1(f func(basetype.Value) (basetype.Value, error), reslinear bool, t temporal.Temporal) (temporal.Temporal, error) {
	wrapped := func(v1, _ basetype.Value) (basetype.Value, error) { return f(v1) }
	return Lift2(wrapped, reslinear, nil, t, t)
}

// NumericTurningPoint computes the closed-form interior
// extremum for × and ÷ over two linear float segments on [tLower, tUpper].
func NumericTurningPoint(startL, endL, startR, endR basetype.Value, tLower, tUpper time.Time) []time.Time {
	x1, x2 := startL.F64, endL.F64
	x3, x4 := startR.F64, endR.F64
	if x2 == x1 || x4 == x3 {
		return nil
	}
	d1 := -x1 / (x2 - x1)
	d2 := -x3 / (x4 - x3)
	frac := d1 + (d2-d1)/2
	if frac <= 0 || frac >= 1 {
		return nil
	}
	width := tUpper.Sub(tLower)
	t := tLower.Add(time.Duration(float64(width) * frac))
	return []time.Time{t}
}

// EverEqualsZero reports
// whether t's value touches or crosses zero anywhere within [lo, hi],
// either at a sampled instant or, for a linear segment, strictly between
// two samples of opposite sign.
func EverEqualsZero(t temporal.Temporal, lo, hi time.Time) (bool, error) {
	insts := temporal.Instants(t)
	var prev *temporal.Instant
	for i := range insts {
		cur := insts[i]
		if cur.T.Before(lo) || cur.T.After(hi) {
			prev = nil
			continue
		}
		if basetype.IsZero(cur.V) {
			return true, nil
		}
		if prev != nil && t.Interpretation() == temporal.Linear {
			a, b := prev.V.F64, cur.V.F64
			if (a < 0 && b > 0) || (a > 0 && b < 0) {
				return true, nil
			}
		}
		prevCopy := cur
		prev = &prevCopy
	}
	return false, nil
}

// Divide lifts binary division over two numeric temporal values, applying
// a division-by-zero guard before doing the pointwise work:
// the divisor is checked for ever-equals-zero over the dividend's
// projected overlap before a single division is attempted.
func Divide(t1, t2 temporal.Temporal) (temporal.Temporal, error) {
	lo, hi, _, _, ok := overlap(t1, t2)
	if !ok {
		return nil, nil
	}
	zero, err := EverEqualsZero(t2, lo, hi)
	if err != nil {
		return nil, err
	}
	if zero {
		return nil, terr.New(terr.InvalidArgValue, "division by zero: divisor is zero somewhere in the dividend's time domain")
	}
	return Lift2(func(v1, v2 basetype.Value) (basetype.Value, error) {
		return basetype.Div(v1, v2)
	}, false, NumericTurningPoint, t1, t2)
}

// Multiply lifts binary multiplication over two numeric temporal values,
// consulting NumericTurningPoint for interior extrema on doubly-linear
// segments.
func Multiply(t1, t2 temporal.Temporal) (temporal.Temporal, error) {
	return Lift2(func(v1, v2 basetype.Value) (basetype.Value, error) {
		return basetype.Mul(v1, v2)
	}, false, NumericTurningPoint, t1, t2)
}

// Add lifts binary addition, which is linearity-preserving and needs no
// turning-point search: the sum of two linear functions is linear.
func Add(t1, t2 temporal.Temporal) (temporal.Temporal, error) {
	return Lift2(func(v1, v2 basetype.Value) (basetype.Value, error) {
		return basetype.Add(v1, v2)
	}, true, nil, t1, t2)
}

// Subtract lifts binary subtraction, also linearity-preserving.
func Subtract(t1, t2 temporal.Temporal) (temporal.Temporal, error) {
	return Lift2(func(v1, v2 basetype.Value) (basetype.Value, error) {
		return basetype.Sub(v1, v2)
	}, true, nil, t1, t2)
}

// Equal lifts pointwise equality comparison. Comparisons are always
// discontinuous, so reslinear is false and no turning-point search runs;
// the crossing instants are already present as breakpoints from the operand samples.
func Equal(t1, t2 temporal.Temporal) (temporal.Temporal, error) {
	return Lift2(func(v1, v2 basetype.Value) (basetype.Value, error) {
		eq, err := basetype.Equal(v1, v2)
		if err != nil {
			return basetype.Value{}, err
		}
		return basetype.NewBool(eq), nil
	}, false, nil, t1, t2)
}

// Less lifts pointwise ordering comparison, also discontinuous.
func Less(t1, t2 temporal.Temporal) (temporal.Temporal, error) {
	return Lift2(func(v1, v2 basetype.Value) (basetype.Value, error) {
		c, err := basetype.Compare(v1, v2)
		if err != nil {
			return basetype.Value{}, err
		}
		return basetype.NewBool(c < 0), nil
	}, false, nil, t1, t2)
}
