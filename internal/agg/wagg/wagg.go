// Package wagg implements windowed aggregation: extending
// each instant of a temporal value by an interval Δ into a segment, folding
// the resulting segments into a running skiplist-backed sweep-line state,
// and reducing with min/max/sum/count/avg.
package wagg

import (
	"sort"
	"time"

	"github.com/dogwalking/mobility-core/internal/agg/rng"
	"github.com/dogwalking/mobility-core/internal/agg/skiplist"
	"github.com/dogwalking/mobility-core/internal/temporal"
	"github.com/dogwalking/mobility-core/internal/temporal/basetype"
	"github.com/dogwalking/mobility-core/internal/temporal/terr"

	"gonum.org/v1/gonum/stat"
)

// Kind selects the reducer a State folds extended segments through.
type Kind int

const (
	Sum Kind = iota
	Count
	Avg
	Min
	Max
)

func (k Kind) String() string {
	switch k {
	case Sum:
		return "sum"
	case Count:
		return "count"
	case Avg:
		return "avg"
	case Min:
		return "min"
	case Max:
		return "max"
	default:
		return "unknown"
	}
}

func int64Cmp(a, b interface{}) int {
	x, y := a.(int64), b.(int64)
	if x < y {
		return -1
	}
	if x > y {
		return 1
	}
	return 0
}

func valueCmp(a, b interface{}) int {
	c, err := basetype.Compare(a.(basetype.Value), b.(basetype.Value))
	if err != nil {
		return 0
	}
	return c
}

// event records a segment boundary crossing the sweep line: an extended
// segment's start adds its value to the active set; its end removes it.
type event struct {
	isStart bool
	value   basetype.Value
}

// State accumulates windowed-aggregation transitions for one reducer kind.
// Every skiplist owned by one aggregation context should share one
// rng.Source.
type State struct {
	kind   Kind
	events *skiplist.List // key: int64 unix-nano breakpoint, value: []event
	active *skiplist.List // Min/Max/Avg: key: basetype.Value, value: int active count
	base   basetype.Tag
	seen   bool
}

// New constructs an empty windowed-aggregation state for kind, sharing
// source with every other skiplist in the same aggregation context.
func New(kind Kind, source rng.Source) *State {
	s := &State{kind: kind, events: skiplist.New(int64Cmp, source)}
	if kind == Min || kind == Max || kind == Avg {
		s.active = skiplist.New(valueCmp, source)
	}
	return s
}

// Extend turns every instant (v, t) into the end instant (v, t+Δ) of the
// segment [(v, t), (v, t+Δ)]; the start instants are not included in the
// result. Callers fold segments in via Transition.
func Extend(t temporal.Temporal, delta time.Duration) []temporal.Instant {
	insts := temporal.Instants(t)
	out := make([]temporal.Instant, 0, len(insts))
	for _, inst := range insts {
		out = append(out, temporal.Instant{V: inst.V, T: inst.T.Add(delta)})
	}
	return out
}

// appendMerge is the MergeFunc used to fold a new event onto whatever
// events already share its breakpoint timestamp.
func appendMerge(a, b interface{}) (interface{}, error) {
	return append(append([]event(nil), a.([]event)...), b.([]event)...), nil
}

func (s *State) addEvent(at time.Time, ev event) error {
	item := skiplist.KV{Key: at.UnixNano(), Value: []event{ev}}
	return s.events.Splice([]skiplist.KV{item}, appendMerge)
}

// Transition extends t by delta and folds the resulting segments into the
// running skiplist state.
func (s *State) Transition(t temporal.Temporal, delta time.Duration) error {
	if delta <= 0 {
		return terr.New(terr.InvalidArgValue, "windowed aggregation interval must be positive")
	}
	insts := temporal.Instants(t)
	if len(insts) == 0 {
		return nil
	}
	if s.seen && s.base != t.BaseType() {
		return terr.New(terr.InvalidArgType, "windowed aggregation requires a uniform base type, got %s after %s", t.BaseType(), s.base)
	}
	s.base = t.BaseType()
	s.seen = true
	for _, inst := range insts {
		if err := s.addEvent(inst.T, event{isStart: true, value: inst.V}); err != nil {
			return err
		}
		if err := s.addEvent(inst.T.Add(delta), event{isStart: false, value: inst.V}); err != nil {
			return err
		}
	}
	return nil
}

func (s *State) activeDelta(ev event) error {
	count := 0
	if v, ok := s.active.Search(ev.value); ok {
		count = v.(int)
	}
	if ev.isStart {
		count++
	} else {
		count--
	}
	if count <= 0 {
		s.active.Delete(ev.value)
		return nil
	}
	return s.active.Insert(ev.value, count)
}

func (s *State) activeExtreme() (basetype.Value, bool) {
	vals := s.active.Values()
	if len(vals) == 0 {
		return basetype.Value{}, false
	}
	if s.kind == Min {
		return vals[0].Key.(basetype.Value), true
	}
	return vals[len(vals)-1].Key.(basetype.Value), true
}

// activeMean folds the values currently on the sweep line into a single
// weighted mean via gonum/stat, weighting each distinct active value by
// how many overlapping segments currently carry it. Returns false if
// nothing is active at this breakpoint.
func (s *State) activeMean() (float64, bool) {
	vals := s.active.Values()
	if len(vals) == 0 {
		return 0, false
	}
	x := make([]float64, len(vals))
	w := make([]float64, len(vals))
	for i, kv := range vals {
		x[i] = asFloat(kv.Key.(basetype.Value))
		w[i] = float64(kv.Value.(int))
	}
	return stat.Mean(x, w), true
}

// Finalize reduces the accumulated transitions into the output temporal
// value: a step sequence whose plateaus switch exactly at the instants
// where the extended-segment envelope changes. Returns
// (nil, nil) if no transitions were ever folded in.
func (s *State) Finalize() (temporal.Temporal, error) {
	breakpoints := s.events.Values()
	if len(breakpoints) == 0 {
		return nil, nil
	}
	sort.Slice(breakpoints, func(i, j int) bool {
		return breakpoints[i].Key.(int64) < breakpoints[j].Key.(int64)
	})

	var runningSum float64
	var runningCount int64

	var out []temporal.Instant
	for _, bp := range breakpoints {
		events := bp.Value.([]event)
		for _, ev := range events {
			switch s.kind {
			case Sum:
				if ev.isStart {
					runningSum += asFloat(ev.value)
				} else {
					runningSum -= asFloat(ev.value)
				}
			case Count:
				if ev.isStart {
					runningCount++
				} else {
					runningCount--
				}
			case Avg, Min, Max:
				if err := s.activeDelta(ev); err != nil {
					return nil, err
				}
			}
		}

		t := time.Unix(0, bp.Key.(int64)).UTC()
		var v basetype.Value
		switch s.kind {
		case Sum:
			v = basetype.NewFloat64(runningSum)
		case Count:
			v = basetype.NewInt64(runningCount)
		case Avg:
			mean, ok := s.activeMean()
			if !ok {
				continue
			}
			v = basetype.NewFloat64(mean)
		case Min, Max:
			extreme, ok := s.activeExtreme()
			if !ok {
				continue
			}
			v = extreme
		}
		out = append(out, temporal.Instant{V: v, T: t})
	}
	if len(out) == 0 {
		return nil, nil
	}
	if len(out) == 1 {
		return temporal.NewInstant(out[0].V, out[0].T), nil
	}
	return temporal.NewSequence(out, true, true, temporal.Step)
}

func asFloat(v basetype.Value) float64 {
	switch v.Tag {
	case basetype.Int32:
		return float64(v.I32)
	case basetype.Int64:
		return float64(v.I64)
	case basetype.Float64:
		return v.F64
	default:
		return 0
	}
}
