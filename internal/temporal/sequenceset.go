package temporal

import (
	"sort"
	"time"

	"github.com/dogwalking/mobility-core/internal/temporal/basetype"
	"github.com/dogwalking/mobility-core/internal/temporal/span"
	"github.com/dogwalking/mobility-core/internal/temporal/terr"
)

// TSequenceSet is a finite ordered list of continuous sequences whose time
// spans are pairwise disjoint and non-adjacent, sharing one interpretation.
//
// Design note: rather than storing
// back-pointers from member sequences to the set, the set exclusively owns
// its sequences and recomputes its bounding span on any transformation, the
// way Go's garbage collector and this package's instant ownership model
// both favor value ownership over shared mutable back-references.
type TSequenceSet struct {
	seqs   []*TSequence
	interp Interpretation
	base   basetype.Tag
}

// NewSequenceSet constructs a sequence set, enforcing pairwise disjoint,
// non-adjacent time spans and a single shared interpretation.
func NewSequenceSet(seqs []*TSequence) (*TSequenceSet, error) {
	if len(seqs) == 0 {
		return nil, terr.New(terr.InvalidArgValue, "sequence set requires at least one sequence")
	}
	cp := append([]*TSequence(nil), seqs...)
	sort.Slice(cp, func(i, j int) bool { return cp[i].StartTime().Before(cp[j].StartTime()) })

	interp := cp[0].interp
	base := cp[0].base
	for _, s := range cp {
		if s.interp != interp {
			return nil, terr.New(terr.InvalidArgValue, "sequence set members must share one interpretation")
		}
		if s.base != base {
			return nil, terr.New(terr.InvalidArgType, "sequence set members must share one base type")
		}
	}
	for i := 1; i < len(cp); i++ {
		prev, cur := cp[i-1], cp[i]
		prevSpan, _ := prev.TimeSpan()
		curSpan, _ := cur.TimeSpan()
		ov, err := prevSpan.Overlaps(curSpan)
		if err != nil {
			return nil, err
		}
		if ov {
			return nil, terr.New(terr.InvalidArgValue, "sequence set members must have disjoint time spans")
		}
		adj, err := prevSpan.Adjacent(curSpan)
		if err != nil {
			return nil, err
		}
		if adj {
			return nil, terr.New(terr.InvalidArgValue, "sequence set members must not be adjacent; merge them instead")
		}
	}
	return &TSequenceSet{seqs: cp, interp: interp, base: base}, nil
}

func (t *TSequenceSet) BaseType() basetype.Tag         { return t.base }
func (t *TSequenceSet) Subtype() Subtype               { return SubtypeSequenceSet }
func (t *TSequenceSet) Interpretation() Interpretation { return t.interp }
func (t *TSequenceSet) NumSequences() int              { return len(t.seqs) }
func (t *TSequenceSet) SequenceAt(i int) *TSequence     { return t.seqs[i] }

func (t *TSequenceSet) NumInstants() int {
	n := 0
	for _, s := range t.seqs {
		n += s.NumInstants()
	}
	return n
}

func (t *TSequenceSet) InstantAt(i int) Instant {
	for _, s := range t.seqs {
		if i < s.NumInstants() {
			return s.InstantAt(i)
		}
		i -= s.NumInstants()
	}
	panic("temporal: InstantAt index out of range")
}

func (t *TSequenceSet) TimeSpan() (span.Span, bool) {
	first, _ := t.seqs[0].TimeSpan()
	last, _ := t.seqs[len(t.seqs)-1].TimeSpan()
	s, err := span.New(first.Lo, last.Hi, first.LowerInc, last.UpperInc)
	if err != nil {
		return span.Span{}, false
	}
	return s, true
}

func (t *TSequenceSet) ValueAt(at time.Time, preferLeft bool) (basetype.Value, bool, error) {
	for _, s := range t.seqs {
		if at.Before(s.StartTime()) {
			return basetype.Value{}, false, nil
		}
		if at.After(s.EndTime()) {
			continue
		}
		v, ok, err := s.ValueAt(at, preferLeft)
		if err != nil {
			return basetype.Value{}, false, err
		}
		if ok {
			return v, true, nil
		}
	}
	return basetype.Value{}, false, nil
}

func (t *TSequenceSet) Iterator() *InstantIterator { return newIterator(t) }
