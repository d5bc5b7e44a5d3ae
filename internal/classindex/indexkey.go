package classindex

import "sort"

// IndexKey is the canonical identity of an unordered set of small integers
// (component-type ids) or, via PairKey, of an ordered pair (enum-type id,
// ordinal). Two keys compare equal with == iff the sets/pairs they were
// built from are equal; IndexKey is safe to use directly as a map key.
type IndexKey struct {
	hash uint64
	key  string
}

// fnvOffset and fnvPrime are the 64-bit FNV-1a constants, used here (rather
// than hash/fnv) because the key is built incrementally over raw bytes
// already in hand — pulling in the full hash.Hash interface for a handful of
// XOR/multiply steps would be the heavier way to do the same thing.
const (
	fnvOffset = 14695981039346656037
	fnvPrime  = 1099511628211
)

func fnv1a(b []byte) uint64 {
	h := uint64(fnvOffset)
	for _, c := range b {
		h ^= uint64(c)
		h *= fnvPrime
	}
	return h
}

// SetKey builds the canonical key for an unordered set of ids. Order and
// duplicates in ids do not affect the result: the ids are sorted ascending
// and deduplicated before encoding, so {3,1,2} and {1,2,2,3} produce the
// same key as {1,2,3}.
func SetKey(ids []int32) IndexKey {
	sorted := make([]int32, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	buf := make([]byte, 0, len(sorted)*4)
	var prev int32 = -1
	first := true
	for _, id := range sorted {
		if !first && id == prev {
			continue // dedupe
		}
		first = false
		prev = id
		buf = append(buf, byte(id>>24), byte(id>>16), byte(id>>8), byte(id))
	}
	s := string(buf)
	return IndexKey{hash: fnv1a(buf), key: s}
}

// PairKey builds a key for an ordered pair, used to namespace enum-state
// values by (enum-type id, ordinal). Unlike SetKey, the two components are
// not commutative: PairKey(1, 2) != PairKey(2, 1).
func PairKey(typeID, ordinal int32) IndexKey {
	buf := []byte{
		byte(typeID >> 24), byte(typeID >> 16), byte(typeID >> 8), byte(typeID),
		byte(ordinal >> 24), byte(ordinal >> 16), byte(ordinal >> 8), byte(ordinal),
	}
	return IndexKey{hash: fnv1a(buf), key: string(buf)}
}

// Hash returns the precomputed hash, useful for logging/debugging; equality
// between two IndexKeys should always be tested with ==, not by comparing
// hashes.
func (k IndexKey) Hash() uint64 { return k.hash }

func (k IndexKey) String() string { return k.key }
