package temporal

import (
	"sort"
	"time"

	"github.com/dogwalking/mobility-core/internal/temporal/basetype"
	"github.com/dogwalking/mobility-core/internal/temporal/span"
	"github.com/dogwalking/mobility-core/internal/temporal/terr"
)

// RestrictMode selects between intersecting a temporal value's time domain
// with a period (At) or subtracting the period from it (Minus).
type RestrictMode int

const (
	At RestrictMode = iota
	Minus
)

func timeFloat(t time.Time) float64     { return float64(t.UnixNano()) }
func floatTime(f float64) time.Time     { return time.Unix(0, int64(f)).UTC() }

// TimeSpanFromRange builds a time-dimension span.Span usable as a
// restriction period, bridging time.Time through the Float64 UnixNano
// representation shared with box.timeSpan.
func TimeSpanFromRange(lo, hi time.Time, lowerInc, upperInc bool) (span.Span, error) {
	return span.New(basetype.NewFloat64(timeFloat(lo)), basetype.NewFloat64(timeFloat(hi)), lowerInc, upperInc)
}

// TimeSpanFromInstant builds a single-instant restriction period.
func TimeSpanFromInstant(t time.Time) (span.Span, error) {
	return TimeSpanFromRange(t, t, true, true)
}

// Restrict intersects or subtracts a period from a temporal value:
// restrict(T, P, mode) where P is a period expressed as a span.Set over the
// time dimension. It returns (nil, nil) for the null temporal value: an
// empty intersection is a failure mode, not an error.
func Restrict(t Temporal, period span.Set, mode RestrictMode) (Temporal, error) {
	switch v := t.(type) {
	case *TInstant:
		return restrictInstant(v, period, mode)
	case *TDiscreteSeq:
		return restrictDiscrete(v, period, mode)
	case *TSequence:
		return restrictSequence(v, period, mode)
	case *TSequenceSet:
		return restrictSequenceSet(v, period, mode)
	default:
		return nil, terr.New(terr.InternalError, "unknown temporal subtype")
	}
}

func periodContains(period span.Set, t time.Time) (bool, error) {
	pt, err := TimeSpanFromInstant(t)
	if err != nil {
		return false, err
	}
	for _, s := range period.Spans {
		ov, err := s.Overlaps(pt)
		if err != nil {
			return false, err
		}
		if ov {
			return true, nil
		}
	}
	return false, nil
}

func restrictInstant(v *TInstant, period span.Set, mode RestrictMode) (Temporal, error) {
	inPeriod, err := periodContains(period, v.Time())
	if err != nil {
		return nil, err
	}
	if (mode == At) == inPeriod {
		return v, nil
	}
	return nil, nil
}

func restrictDiscrete(v *TDiscreteSeq, period span.Set, mode RestrictMode) (Temporal, error) {
	var kept []Instant
	for _, s := range v.samples {
		inPeriod, err := periodContains(period, s.T)
		if err != nil {
			return nil, err
		}
		if (mode == At) == inPeriod {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return nil, nil
	}
	return NewDiscreteSeq(kept)
}

func restrictSequence(seq *TSequence, period span.Set, mode RestrictMode) (Temporal, error) {
	domain, _ := seq.TimeSpan()
	domainSet := span.Set{Spans: []span.Span{domain}}

	var target span.Set
	var err error
	if mode == At {
		target, err = span.Intersection(domainSet, period)
	} else {
		target, err = span.SetMinus(domainSet, period)
	}
	if err != nil {
		return nil, err
	}
	if len(target.Spans) == 0 {
		return nil, nil
	}

	pieces := make([]*TSequence, 0, len(target.Spans))
	for _, sp := range target.Spans {
		piece, err := clipSequence(seq, sp)
		if err != nil {
			return nil, err
		}
		if piece != nil {
			pieces = append(pieces, piece)
		}
	}
	if len(pieces) == 0 {
		return nil, nil
	}
	if len(pieces) == 1 {
		return pieces[0], nil
	}
	return NewSequenceSet(pieces)
}

// clipSequence restricts seq to the sub-range described by sp (already
// known to be a subset of seq's time domain), synthesizing boundary
// instants when a linear segment is cut at a point between two existing
// samples.
func clipSequence(seq *TSequence, sp span.Span) (*TSequence, error) {
	lo, hi := floatTime(sp.Lo.F64), floatTime(sp.Hi.F64)

	var samples []Instant
	for _, s := range seq.samples {
		if s.T.Before(lo) {
			continue
		}
		if s.T.After(hi) {
			continue
		}
		if s.T.Equal(lo) && !sp.LowerInc {
			continue
		}
		if s.T.Equal(hi) && !sp.UpperInc {
			continue
		}
		samples = append(samples, s)
	}

	if len(samples) == 0 || !samples[0].T.Equal(lo) {
		v, ok, err := seq.ValueAt(lo, false)
		if err != nil {
			return nil, err
		}
		if ok {
			samples = append([]Instant{{V: v, T: lo}}, samples...)
		}
	}
	if len(samples) == 0 || !samples[len(samples)-1].T.Equal(hi) {
		v, ok, err := seq.ValueAt(hi, true)
		if err != nil {
			return nil, err
		}
		if ok {
			samples = append(samples, Instant{V: v, T: hi})
		}
	}

	if len(samples) == 0 {
		return nil, nil
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i].T.Before(samples[j].T) })
	return NewSequence(samples, sp.LowerInc, sp.UpperInc, seq.interp)
}

func restrictSequenceSet(set *TSequenceSet, period span.Set, mode RestrictMode) (Temporal, error) {
	var pieces []*TSequence
	for i := 0; i < set.NumSequences(); i++ {
		res, err := restrictSequence(set.SequenceAt(i), period, mode)
		if err != nil {
			return nil, err
		}
		if res == nil {
			continue
		}
		switch v := res.(type) {
		case *TSequence:
			pieces = append(pieces, v)
		case *TSequenceSet:
			for j := 0; j < v.NumSequences(); j++ {
				pieces = append(pieces, v.SequenceAt(j))
			}
		}
	}
	if len(pieces) == 0 {
		return nil, nil
	}
	if len(pieces) == 1 {
		return pieces[0], nil
	}
	return NewSequenceSet(pieces)
}
