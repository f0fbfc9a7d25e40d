// Package skiplist implements the randomized skiplist that backs windowed
// aggregation, grounded on the array-of-elements skiplist in
// original_source/meos/src/temporal/skiplist.c: nodes live in a flat,
// growable slice rather than individually heap-allocated, index 0/1 are the
// head/tail sentinels, deleted slots go onto a LIFO free list, and level
// generation is a single PRNG draw interpreted as a run of coin flips.
package skiplist

import (
	"github.com/dogwalking/mobility-core/internal/agg/rng"
	"github.com/dogwalking/mobility-core/internal/temporal/terr"
)

// MaxLevel bounds how tall any node's forward-pointer array can grow.
const MaxLevel = 24

// InitialCapacity is the element backing array's starting size.
const InitialCapacity = 1024

// initialFreelist is the free list's starting capacity; it doubles when
// full, mirroring the element array's own growth policy.
const initialFreelist = 32

// maxCapacity is the implementation-defined allocation ceiling beyond which
// Splice/Insert fail with MEMORY_ALLOC_ERROR.
const maxCapacity = 1 << 22

const headIdx = 0
const tailSentinel = 1

// Comparator orders two keys, returning <0, 0, >0 like bytes.Compare.
type Comparator func(a, b interface{}) int

// MergeFunc merges the value of a left-stream and right-stream element that
// share a key during Splice. For the temporal aggregation variant this
// closes over a lift2 call.
type MergeFunc func(a, b interface{}) (interface{}, error)

type elem struct {
	key    interface{}
	value  interface{}
	height int
	next   []int // next[level] is the element index, or -1
}

// List is a skiplist keyed by Comparator, storing arbitrary payloads. Every
// List in one aggregation context should share one rng.Source.
type List struct {
	elems     []elem
	capacity  int
	next      int // bump pointer for never-yet-used slots
	length    int
	freed     []int
	freecount int
	height    int // current max occupied level across all nodes
	cmp       Comparator
	rng       rng.Source
}

// New constructs an empty skiplist. cmp orders keys; rng is the shared PRNG
// for this aggregation context.
func New(cmp Comparator, source rng.Source) *List {
	l := &List{
		elems:    make([]elem, InitialCapacity),
		capacity: InitialCapacity,
		next:     2,
		cmp:      cmp,
		rng:      source,
		freed:    make([]int, 0, initialFreelist),
	}
	l.elems[headIdx] = elem{height: 0, next: []int{tailSentinel}}
	l.elems[tailSentinel] = elem{height: 0, next: []int{-1}}
	return l
}

// Len returns the number of elements currently stored.
func (l *List) Len() int { return l.length }

// randomLevel simulates up to MaxLevel coin flips from a single PRNG draw,
// the way original_source's random_level() avoids spinning the RNG once
// per flip: count the run of set low bits, capped at MaxLevel.
func randomLevel(source rng.Source) int {
	bits := source.Uint64()
	level := 1
	for bits&1 == 1 && level < MaxLevel {
		level++
		bits >>= 1
	}
	return level
}

// alloc returns a slot index for a new element, reusing a freed slot LIFO
// before growing, and growing the backing array (doubling, capped at
// maxCapacity) when none is free.
func (l *List) alloc() (int, error) {
	l.length++
	if l.freecount > 0 {
		l.freecount--
		return l.freed[l.freecount], nil
	}
	if l.next >= l.capacity {
		if l.capacity >= maxCapacity {
			l.length--
			return 0, terr.New(terr.MemoryAllocError, "skiplist capacity ceiling of %d elements reached", maxCapacity)
		}
		grown := l.capacity * 2
		if grown > maxCapacity {
			grown = maxCapacity
		}
		newElems := make([]elem, grown)
		copy(newElems, l.elems)
		l.elems = newElems
		l.capacity = grown
	}
	idx := l.next
	l.next++
	return idx, nil
}

// free returns idx to the LIFO free list, doubling the free list's own
// backing capacity when full.
func (l *List) free(idx int) {
	l.length--
	if l.freecount == len(l.freed) {
		grown := len(l.freed) * 2
		if grown == 0 {
			grown = initialFreelist
		}
		grownSlice := make([]int, grown)
		copy(grownSlice, l.freed)
		l.freed = grownSlice
	}
	l.freed[l.freecount] = idx
	l.freecount++
	l.elems[idx] = elem{}
}

func (l *List) elemPos(key interface{}, cur int) int {
	if cur == tailSentinel || cur == -1 {
		return -1
	}
	return l.cmp(key, l.elems[cur].key)
}

// findPath walks from the head at the current height down to level 0,
// recording in update[level] the rightmost node whose level-`level`
// successor is not past key. It returns the element immediately at or
// after key (or -1 if none).
func (l *List) findPath(key interface{}) (update [MaxLevel]int, succ int) {
	cur := headIdx
	for level := l.height - 1; level >= 0; level-- {
		for l.elems[cur].next[level] != -1 && l.elemPos(key, l.elems[cur].next[level]) > 0 {
			cur = l.elems[cur].next[level]
		}
		update[level] = cur
	}
	succ = l.elems[cur].next[0]
	return update, succ
}

// Search returns the value stored under key and true, or false if absent.
func (l *List) Search(key interface{}) (interface{}, bool) {
	_, succ := l.findPath(key)
	if succ != -1 && l.elemPos(key, succ) == 0 {
		return l.elems[succ].value, true
	}
	return nil, false
}

// ensureHeight grows the head/tail sentinels' forward-pointer arrays to at
// least n levels.
func (l *List) ensureHeight(n int) {
	if n <= l.height {
		return
	}
	for level := l.height; level < n; level++ {
		l.elems[headIdx].next = append(l.elems[headIdx].next, tailSentinel)
		l.elems[tailSentinel].next = append(l.elems[tailSentinel].next, -1)
	}
	l.elems[headIdx].height = n
	l.elems[tailSentinel].height = n
	l.height = n
}

// Insert adds (key, value), replacing any existing element under an equal
// key.
func (l *List) Insert(key, value interface{}) error {
	update, succ := l.findPath(key)
	if succ != -1 && l.elemPos(key, succ) == 0 {
		l.elems[succ].value = value
		return nil
	}
	level := randomLevel(l.rng)
	l.ensureHeight(level)
	idx, err := l.alloc()
	if err != nil {
		return err
	}
	nexts := make([]int, level)
	for i := 0; i < level; i++ {
		from := headIdx
		if i < len(update) && update[i] != 0 {
			from = update[i]
		}
		nexts[i] = l.elems[from].next[i]
		l.elems[from].next[i] = idx
	}
	l.elems[idx] = elem{key: key, value: value, height: level, next: nexts}
	return nil
}

// Delete removes the element under key, if present, freeing its slot.
func (l *List) Delete(key interface{}) {
	update, succ := l.findPath(key)
	if succ == -1 || l.elemPos(key, succ) != 0 {
		return
	}
	node := l.elems[succ]
	for i := 0; i < node.height; i++ {
		from := headIdx
		if i < len(update) && update[i] != 0 {
			from = update[i]
		}
		if l.elems[from].next[i] == succ {
			l.elems[from].next[i] = node.next[i]
		}
	}
	l.free(succ)
}

// KV is a (key, value) pair, the unit Splice and Values operate over.
type KV struct {
	Key   interface{}
	Value interface{}
}

// Values returns an ordered snapshot of every stored (key, value) pair,
// strictly increasing in key.
func (l *List) Values() []KV {
	out := make([]KV, 0, l.length)
	cur := l.elems[headIdx].next[0]
	for cur != tailSentinel && cur != -1 {
		e := l.elems[cur]
		out = append(out, KV{Key: e.key, Value: e.value})
		cur = e.next[0]
	}
	return out
}

// Splice atomically replaces the contiguous run of existing elements whose
// keys fall within the closed span [items[0].Key, items[n-1].Key] with the
// result of a two-finger merge between that bracketed run and items,
// applying merge when keys compare equal. items
// must be sorted ascending by Key. The merged stream is reinserted with a
// freshly randomized level per node, matching the source's "never reuse a
// node's old level across a splice".
func (l *List) Splice(items []KV, merge MergeFunc) error {
	if len(items) == 0 {
		return nil
	}
	lowKey, highKey := items[0].Key, items[len(items)-1].Key

	update, succ := l.findPath(lowKey)
	var bracket []KV
	cur := succ
	for cur != -1 && cur != tailSentinel && l.cmp(l.elems[cur].key, highKey) <= 0 {
		bracket = append(bracket, KV{Key: l.elems[cur].key, Value: l.elems[cur].value})
		nxt := l.elems[cur].next[0]
		l.unlinkAt(update, cur)
		l.free(cur)
		cur = nxt
	}

	merged, err := l.twoFingerMerge(bracket, items, merge)
	if err != nil {
		return err
	}
	for _, kv := range merged {
		if err := l.Insert(kv.Key, kv.Value); err != nil {
			return err
		}
	}
	return nil
}

// unlinkAt removes the node at idx from every level using the update path
// computed before any deletions in this splice began. update is passed by
// value and not modified; it stays valid because nodes are deleted left to
// right, so each update[i] still precedes the node being removed.
func (l *List) unlinkAt(update [MaxLevel]int, idx int) {
	node := l.elems[idx]
	for i := 0; i < node.height; i++ {
		from := headIdx
		if i < len(update) && update[i] != 0 {
			from = update[i]
		}
		if l.elems[from].next[i] == idx {
			l.elems[from].next[i] = node.next[i]
		}
	}
}

// twoFingerMerge merges two ascending-by-key streams, applying merge where
// keys compare equal, and otherwise taking whichever stream's head key
// sorts first.
func (l *List) twoFingerMerge(existing, incoming []KV, merge MergeFunc) ([]KV, error) {
	var out []KV
	i, j := 0, 0
	for i < len(existing) && j < len(incoming) {
		c := l.cmp(existing[i].Key, incoming[j].Key)
		switch {
		case c < 0:
			out = append(out, existing[i])
			i++
		case c > 0:
			out = append(out, incoming[j])
			j++
		default:
			v, err := merge(existing[i].Value, incoming[j].Value)
			if err != nil {
				return nil, err
			}
			out = append(out, KV{Key: existing[i].Key, Value: v})
			i++
			j++
		}
	}
	out = append(out, existing[i:]...)
	out = append(out, incoming[j:]...)
	return out, nil
}
