package temporal

import (
	"time"

	"github.com/dogwalking/mobility-core/internal/temporal/basetype"
	"github.com/dogwalking/mobility-core/internal/temporal/span"
)

// TInstant is a temporal value defined at exactly one sample.
type TInstant struct {
	inst Instant
}

// NewInstant constructs a TInstant from a single (value, timestamp) pair.
func NewInstant(v basetype.Value, t time.Time) *TInstant {
	return &TInstant{inst: Instant{V: v, T: t}}
}

func (t *TInstant) BaseType() basetype.Tag       { return t.inst.V.Tag }
func (t *TInstant) Subtype() Subtype             { return SubtypeInstant }
func (t *TInstant) Interpretation() Interpretation { return Discrete }
func (t *TInstant) NumInstants() int             { return 1 }
func (t *TInstant) InstantAt(i int) Instant      { return t.inst }
func (t *TInstant) Value() basetype.Value        { return t.inst.V }
func (t *TInstant) Time() time.Time              { return t.inst.T }

func (t *TInstant) TimeSpan() (span.Span, bool) {
	s, _ := span.New(
		basetype.NewFloat64(float64(t.inst.T.UnixNano())),
		basetype.NewFloat64(float64(t.inst.T.UnixNano())),
		true, true,
	)
	return s, true
}

func (t *TInstant) ValueAt(at time.Time, preferLeft bool) (basetype.Value, bool, error) {
	if at.Equal(t.inst.T) {
		return t.inst.V, true, nil
	}
	return basetype.Value{}, false, nil
}

func (t *TInstant) Iterator() *InstantIterator { return newIterator(t) }
