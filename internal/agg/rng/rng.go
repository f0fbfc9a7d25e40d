// Package rng provides the single shared pseudo-random source threaded
// through a whole aggregation context: multiple skiplists within one
// aggregate share one PRNG so results depend only on input order, not on
// interleaving with other queries. For parallel aggregation, each worker
// owns its own PRNG, seeded independently, and the combiner re-randomizes
// levels of inserted nodes.
package rng

import "math/rand"

// Source is the minimal randomness contract the skiplist's level generator
// needs. *rand.Rand satisfies it directly.
type Source interface {
	Uint64() uint64
}

// New seeds a deterministic source from an aggregation identifier, so the
// same query re-run (or the same partition re-combined) produces the same
// skiplist level assignments.
func New(seed int64) Source {
	return rand.New(rand.NewSource(seed))
}
