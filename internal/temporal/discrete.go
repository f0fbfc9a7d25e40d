package temporal

import (
	"sort"
	"time"

	"github.com/dogwalking/mobility-core/internal/temporal/basetype"
	"github.com/dogwalking/mobility-core/internal/temporal/span"
)

// TDiscreteSeq is a finite ordered set of distinct-timestamp instants whose
// value is defined only at the sampled instants.
type TDiscreteSeq struct {
	samples []Instant
	base    basetype.Tag
}

// NewDiscreteSeq constructs a discrete sequence from a sample list. The
// samples are sorted by time first; their timestamps must be distinct and
// they must share one base type.
func NewDiscreteSeq(samples []Instant) (*TDiscreteSeq, error) {
	cp := append([]Instant(nil), samples...)
	sort.Slice(cp, func(i, j int) bool { return cp[i].T.Before(cp[j].T) })
	if err := checkStrictlyIncreasing(cp); err != nil {
		return nil, err
	}
	base, err := checkSameBaseType(cp)
	if err != nil {
		return nil, err
	}
	return &TDiscreteSeq{samples: cp, base: base}, nil
}

func (t *TDiscreteSeq) BaseType() basetype.Tag       { return t.base }
func (t *TDiscreteSeq) Subtype() Subtype             { return SubtypeDiscreteSeq }
func (t *TDiscreteSeq) Interpretation() Interpretation { return Discrete }
func (t *TDiscreteSeq) NumInstants() int             { return len(t.samples) }
func (t *TDiscreteSeq) InstantAt(i int) Instant      { return t.samples[i] }

func (t *TDiscreteSeq) TimeSpan() (span.Span, bool) {
	if len(t.samples) == 0 {
		return span.Span{}, false
	}
	lo := t.samples[0].T
	hi := t.samples[len(t.samples)-1].T
	s, _ := span.New(
		basetype.NewFloat64(float64(lo.UnixNano())),
		basetype.NewFloat64(float64(hi.UnixNano())),
		true, true,
	)
	return s, true
}

// ValueAt is specialized for discrete
// interpretation: defined only at an exact recorded sample, undefined
// otherwise, found by binary search.
func (t *TDiscreteSeq) ValueAt(at time.Time, preferLeft bool) (basetype.Value, bool, error) {
	i := sort.Search(len(t.samples), func(i int) bool { return !t.samples[i].T.Before(at) })
	if i < len(t.samples) && t.samples[i].T.Equal(at) {
		return t.samples[i].V, true, nil
	}
	return basetype.Value{}, false, nil
}

func (t *TDiscreteSeq) Iterator() *InstantIterator { return newIterator(t) }

// findFloorIndex returns the largest index i with samples[i].T <= at, and false
// if at precedes every sample. Shared by the sequence/sequence-set
// value-at-time and restriction implementations.
func findFloorIndex(samples []Instant, at time.Time) (int, bool) {
	i := sort.Search(len(samples), func(i int) bool { return samples[i].T.After(at) })
	if i == 0 {
		return 0, false
	}
	return i - 1, true
}
