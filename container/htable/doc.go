// Package htable implements the resizable hashtable described in spec.md
// §4.7: open addressing by chaining, prime bucket counts, and O(1) erase
// plus O(1) indexed access to support sampled eviction in package rlru.
//
// The spec's intrusive-node, pointer-chasing design ("table[bkt] is the
// first entry for bucket bkt... chained into a circular list") is realized
// here as an arena: entries live in a slice and are referenced by integer
// index rather than pointer. Indices carry no generation counter: a freed
// slot's index is reused by the next Insert. A
// parallel dense "live" slice gives O(1) random access by position for
// cache/rlru's sampled-eviction scan.
package htable
