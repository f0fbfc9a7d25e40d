package temporal

import (
	"time"

	"github.com/dogwalking/mobility-core/internal/temporal/basetype"
	"github.com/dogwalking/mobility-core/internal/temporal/span"
	"github.com/dogwalking/mobility-core/internal/temporal/terr"
)

// TSequence is an ordered instant list plus a time-span whose endpoints are
// (t_0, t_n-1) and two bound-inclusivity flags, plus an interpretation in
// {Step, Linear}. The value is defined
// at every moment within the span.
type TSequence struct {
	samples  []Instant
	lowerInc bool
	upperInc bool
	interp   Interpretation
	base     basetype.Tag
}

// NewSequence constructs a continuous sequence, enforcing:
//   - samples strictly increasing in time, sharing one base type;
//   - an instantaneous sequence (single sample) has both bounds inclusive;
//   - Linear interpretation only for continuous base types.
//
//
func NewSequence(samples []Instant, lowerInc, upperInc bool, interp Interpretation) (*TSequence, error) {
	if err := checkStrictlyIncreasing(samples); err != nil {
		return nil, err
	}
	base, err := checkSameBaseType(samples)
	if err != nil {
		return nil, err
	}
	if interp == Discrete {
		return nil, terr.New(terr.InvalidArgValue, "continuous sequence requires Step or Linear interpretation")
	}
	if interp == Linear && !base.Continuous() {
		return nil, terr.New(terr.InvalidArgValue, "linear interpretation is inadmissible for base type %s", base)
	}
	if len(samples) == 1 && !(lowerInc && upperInc) {
		return nil, terr.New(terr.InvalidArgValue, "an instantaneous sequence must have both bounds inclusive")
	}
	cp := append([]Instant(nil), samples...)
	seq := &TSequence{samples: cp, lowerInc: lowerInc, upperInc: upperInc, interp: interp, base: base}
	return Normalize(seq), nil
}

func (t *TSequence) BaseType() basetype.Tag         { return t.base }
func (t *TSequence) Subtype() Subtype               { return SubtypeSequence }
func (t *TSequence) Interpretation() Interpretation { return t.interp }
func (t *TSequence) NumInstants() int               { return len(t.samples) }
func (t *TSequence) InstantAt(i int) Instant        { return t.samples[i] }
func (t *TSequence) LowerInc() bool                 { return t.lowerInc }
func (t *TSequence) UpperInc() bool                 { return t.upperInc }
func (t *TSequence) StartTime() time.Time           { return t.samples[0].T }
func (t *TSequence) EndTime() time.Time             { return t.samples[len(t.samples)-1].T }
func (t *TSequence) IsInstantaneous() bool          { return len(t.samples) == 1 }

func (t *TSequence) TimeSpan() (span.Span, bool) {
	s, err := span.New(
		basetype.NewFloat64(float64(t.StartTime().UnixNano())),
		basetype.NewFloat64(float64(t.EndTime().UnixNano())),
		t.lowerInc, t.upperInc,
	)
	if err != nil {
		return span.Span{}, false
	}
	return s, true
}

// ValueAt evaluates the value-at-time algorithm for a
// continuous sequence. If at lands exactly on an exclusive bound, the
// value is undefined regardless of preferLeft: preferLeft only
// disambiguates restriction boundary synthesis (internal/temporal
// restrict.go), which resolves it against the neighboring segment before
// ever calling ValueAt on the excluded endpoint itself.
func (t *TSequence) ValueAt(at time.Time, preferLeft bool) (basetype.Value, bool, error) {
	if at.Before(t.StartTime()) || at.After(t.EndTime()) {
		return basetype.Value{}, false, nil
	}
	if at.Equal(t.StartTime()) && !t.lowerInc {
		return basetype.Value{}, false, nil
	}
	if at.Equal(t.EndTime()) && !t.upperInc {
		return basetype.Value{}, false, nil
	}

	i, ok := findFloorIndex(t.samples, at)
	if !ok {
		return basetype.Value{}, false, nil
	}
	if t.samples[i].T.Equal(at) {
		return t.samples[i].V, true, nil
	}
	if i == len(t.samples)-1 {
		return basetype.Value{}, false, nil
	}
	switch t.interp {
	case Step:
		return t.samples[i].V, true, nil
	case Linear:
		left, right := t.samples[i], t.samples[i+1]
		frac := float64(at.Sub(left.T)) / float64(right.T.Sub(left.T))
		v, err := basetype.Interpolate(left.V, right.V, frac)
		if err != nil {
			return basetype.Value{}, false, err
		}
		return v, true, nil
	default:
		return basetype.Value{}, false, nil
	}
}

func (t *TSequence) Iterator() *InstantIterator { return newIterator(t) }
