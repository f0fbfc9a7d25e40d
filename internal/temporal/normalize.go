package temporal

import (
	"github.com/dogwalking/mobility-core/internal/temporal/basetype"
)

// normEpsilon bounds how far an interior linear sample may drift from the
// segment it would collapse into before normalization refuses to drop it.
const normEpsilon = 1e-9

// Normalize runs a single left-to-right pass: it drops
// an interior instant (v_i, t_i) when the two surrounding segments extend
// its value identically. Each interior instant is compared with the last
// instant kept so far and the next input instant. Normalization is
// idempotent: running it twice yields the same result as running it once.
func Normalize(seq *TSequence) *TSequence {
	if len(seq.samples) < 3 {
		return seq
	}
	out := make([]Instant, 0, len(seq.samples))
	out = append(out, seq.samples[0])
	for i := 1; i < len(seq.samples)-1; i++ {
		prev := out[len(out)-1]
		cur := seq.samples[i]
		next := seq.samples[i+1]
		if redundant(seq.interp, prev, cur, next) {
			continue
		}
		out = append(out, cur)
	}
	out = append(out, seq.samples[len(seq.samples)-1])
	seq.samples = out
	return seq
}

// redundant reports whether cur can be dropped because the segment
// prev->next already extends the identical value through cur's timestamp.
func redundant(interp Interpretation, prev, cur, next Instant) bool {
	switch interp {
	case Step:
		eq1, err1 := basetype.Equal(prev.V, cur.V)
		eq2, err2 := basetype.Equal(cur.V, next.V)
		return err1 == nil && err2 == nil && eq1 && eq2
	case Linear:
		if !cur.V.Tag.Continuous() {
			eq1, err1 := basetype.Equal(prev.V, cur.V)
			eq2, err2 := basetype.Equal(cur.V, next.V)
			return err1 == nil && err2 == nil && eq1 && eq2
		}
		frac := float64(cur.T.Sub(prev.T)) / float64(next.T.Sub(prev.T))
		expected, err := basetype.Interpolate(prev.V, next.V, frac)
		if err != nil {
			return false
		}
		return withinEpsilon(expected, cur.V)
	default:
		return false
	}
}

func withinEpsilon(a, b basetype.Value) bool {
	switch a.Tag {
	case basetype.Float64:
		d := a.F64 - b.F64
		return d < normEpsilon && d > -normEpsilon
	case basetype.Geom:
		ac, bc := a.Pt.Coords(), b.Pt.Coords()
		if len(ac) != len(bc) {
			return false
		}
		for i := range ac {
			d := ac[i] - bc[i]
			if d > normEpsilon || d < -normEpsilon {
				return false
			}
		}
		return true
	default:
		eq, err := basetype.Equal(a, b)
		return err == nil && eq
	}
}

// NormalizeSet merges adjacent sequences of a sequence set whose time-span
// endpoints touch and whose value at the join agrees. It also re-runs per-sequence Normalize.
func NormalizeSet(set *TSequenceSet) (*TSequenceSet, error) {
	if len(set.seqs) == 0 {
		return set, nil
	}
	merged := []*TSequence{Normalize(set.seqs[0])}
	for _, s := range set.seqs[1:] {
		s = Normalize(s)
		last := merged[len(merged)-1]
		if joinable(last, s) {
			combined, err := joinSequences(last, s)
			if err != nil {
				return nil, err
			}
			merged[len(merged)-1] = combined
			continue
		}
		merged = append(merged, s)
	}
	if len(merged) == 1 {
		return &TSequenceSet{seqs: merged, interp: set.interp, base: set.base}, nil
	}
	return &TSequenceSet{seqs: merged, interp: set.interp, base: set.base}, nil
}

func joinable(a, b *TSequence) bool {
	if !a.EndTime().Equal(b.StartTime()) {
		return false
	}
	if !(a.upperInc || b.lowerInc) {
		return false
	}
	lastVal := a.samples[len(a.samples)-1].V
	firstVal := b.samples[0].V
	eq, err := basetype.Equal(lastVal, firstVal)
	return err == nil && eq
}

func joinSequences(a, b *TSequence) (*TSequence, error) {
	samples := append([]Instant(nil), a.samples...)
	// Skip b's first sample: it's the shared join point, already present
	// as a's last sample (values checked equal by joinable).
	samples = append(samples, b.samples[1:]...)
	return NewSequence(samples, a.lowerInc, b.upperInc, a.interp)
}
