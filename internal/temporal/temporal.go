// Package temporal is the temporal-value core: the four
// subtype variants (instant, discrete sequence, continuous sequence,
// sequence set), their invariants, value-at-time, restriction,
// normalization, and iteration. Every other package under internal/ that
// deals with "a value whose base value is a function of time" builds on
// the Temporal interface here: internal/temporal/lift lifts pointwise
// functions through it, internal/agg/wagg extends and folds it into a
// skiplist, internal/index/rtree indexes STBOX bounding boxes computed
// from its samples.
package temporal

import (
	"time"

	"github.com/dogwalking/mobility-core/internal/temporal/basetype"
	"github.com/dogwalking/mobility-core/internal/temporal/span"
	"github.com/dogwalking/mobility-core/internal/temporal/terr"
)

// Interpretation selects how the value behaves between recorded samples:
// discrete (defined only at samples), step (hold last), or linear
// (affine between samples).
type Interpretation int

const (
	Discrete Interpretation = iota
	Step
	Linear
)

func (i Interpretation) String() string {
	switch i {
	case Discrete:
		return "Discrete"
	case Step:
		return "Stepwise"
	case Linear:
		return "Linear"
	default:
		return "Unknown"
	}
}

// Subtype tags which of the four temporal variants a value is.
type Subtype int

const (
	SubtypeInstant Subtype = iota
	SubtypeDiscreteSeq
	SubtypeSequence
	SubtypeSequenceSet
)

// Instant is a (value, timestamp) pair, the atomic sample of every
// temporal value.
type Instant struct {
	V basetype.Value
	T time.Time
}

// Temporal is implemented by TInstant, TDiscreteSeq, TSequence, and
// TSequenceSet. It is the common header every variant shares: base type,
// interpretation, subtype tag. No bounding box is cached on the value.
type Temporal interface {
	// BaseType is the tag of the values this temporal carries.
	BaseType() basetype.Tag
	// Subtype distinguishes instant/discrete/sequence/sequence-set.
	Subtype() Subtype
	// Interpretation is Discrete, Step, or Linear.
	Interpretation() Interpretation
	// NumInstants is the number of recorded samples (not the domain's
	// cardinality, which for continuous subtypes is uncountable).
	NumInstants() int
	// InstantAt returns the i'th recorded sample in time order.
	InstantAt(i int) Instant
	// TimeSpan returns the value's time domain as a span, or false if the
	// value is the null temporal value.
	TimeSpan() (span.Span, bool)
	// ValueAt evaluates the temporal value at a point in time.
	// preferLeft selects which side to evaluate when t coincides exactly
	// with an exclusive bound of a restriction.
	ValueAt(t time.Time, preferLeft bool) (basetype.Value, bool, error)
	// Iterator returns a lazy, finite, non-restartable sequence of
	// instants.
	Iterator() *InstantIterator
}

// InstantIterator walks a Temporal's recorded instants once, front to back.
type InstantIterator struct {
	t   Temporal
	pos int
}

// Next returns the next instant and true, or the zero Instant and false
// once exhausted. A spent iterator is not restartable.
func (it *InstantIterator) Next() (Instant, bool) {
	if it.pos >= it.t.NumInstants() {
		return Instant{}, false
	}
	v := it.t.InstantAt(it.pos)
	it.pos++
	return v, true
}

func newIterator(t Temporal) *InstantIterator { return &InstantIterator{t: t} }

// Instants materializes every recorded sample of t into a slice, a
// convenience over Iterator for callers that need random access.
func Instants(t Temporal) []Instant {
	out := make([]Instant, 0, t.NumInstants())
	it := t.Iterator()
	for {
		inst, ok := it.Next()
		if !ok {
			break
		}
		out = append(out, inst)
	}
	return out
}

// checkStrictlyIncreasing validates that every
// temporal value's samples are strictly increasing in time.
func checkStrictlyIncreasing(samples []Instant) error {
	for i := 1; i < len(samples); i++ {
		if !samples[i].T.After(samples[i-1].T) {
			return terr.New(terr.InvalidArgValue, "instants must be strictly increasing in time")
		}
	}
	return nil
}

// checkSameBaseType validates that every sample shares one base type tag.
func checkSameBaseType(samples []Instant) (basetype.Tag, error) {
	if len(samples) == 0 {
		return 0, terr.New(terr.InvalidArgValue, "at least one instant is required")
	}
	tag := samples[0].V.Tag
	for _, s := range samples[1:] {
		if s.V.Tag != tag {
			return 0, terr.New(terr.InvalidArgType, "mixed base types in sample list: %s vs %s", tag, s.V.Tag)
		}
	}
	return tag, nil
}
