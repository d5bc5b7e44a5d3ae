// Package classindex assigns a dense small integer to each distinct
// component type encountered at runtime, and derives canonical IndexKeys for
// sets of those integers (used to key compositions) and for enum state
// values (used to key state-tenants).
package classindex

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/TheBitDrifter/bark"
)

// DefaultCapacity is the upper bound on distinct registered types.
// spec.md §4.2 recommends K ≤ 1024; this implementation keys compositions
// with mask.Mask256 (the widest fixed-width bitset the wired mask library
// offers), which tightens that advisory bound to 256. See DESIGN.md.
const DefaultCapacity = 256

// CapacityExceededError is raised by GetIndex when more than Capacity
// distinct types have been registered.
type CapacityExceededError struct {
	Capacity int
}

func (e CapacityExceededError) Error() string {
	return fmt.Sprintf("classindex: capacity exceeded (max %d distinct types)", e.Capacity)
}

// ClassIndex is a thread-safe, at-most-once bidirectional mapping from
// reflect.Type to a dense id in [0, Capacity).
type ClassIndex struct {
	capacity int

	mu    sync.RWMutex
	ids   map[reflect.Type]int32
	types []reflect.Type
}

// New builds a ClassIndex with the given capacity. A non-positive capacity
// defaults to DefaultCapacity.
func New(capacity int) *ClassIndex {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &ClassIndex{
		capacity: capacity,
		ids:      make(map[reflect.Type]int32, 64),
		types:    make([]reflect.Type, 0, 64),
	}
}

// GetIndex returns the dense id for t, registering it if this is the first
// time t has been seen. Safe for concurrent use; the registration itself
// happens at most once per type even under contention.
func (c *ClassIndex) GetIndex(t reflect.Type) (int32, error) {
	c.mu.RLock()
	if id, ok := c.ids[t]; ok {
		c.mu.RUnlock()
		return id, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if id, ok := c.ids[t]; ok {
		return id, nil
	}
	if len(c.types) >= c.capacity {
		return -1, CapacityExceededError{Capacity: c.capacity}
	}
	id := int32(len(c.types))
	c.ids[t] = id
	c.types = append(c.types, t)
	return id, nil
}

// MustGetIndex is GetIndex but panics on failure; used internally where the
// caller has already budgeted for capacity and treats overflow as a bug.
func (c *ClassIndex) MustGetIndex(t reflect.Type) int32 {
	id, err := c.GetIndex(t)
	if err != nil {
		panic(bark.AddTrace(err))
	}
	return id
}

// TypeAt returns the type previously registered under id, if any.
func (c *ClassIndex) TypeAt(id int32) (reflect.Type, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if id < 0 || int(id) >= len(c.types) {
		return nil, false
	}
	return c.types[id], true
}

// Len reports how many distinct types have been registered so far.
func (c *ClassIndex) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.types)
}

// IndexKeyOf builds the canonical IndexKey for a set of component types,
// registering any type not seen before.
func (c *ClassIndex) IndexKeyOf(types ...reflect.Type) (IndexKey, error) {
	ids := make([]int32, len(types))
	for i, t := range types {
		id, err := c.GetIndex(t)
		if err != nil {
			return IndexKey{}, err
		}
		ids[i] = id
	}
	return SetKey(ids), nil
}

// EnumIndexKey builds the namespaced key for a specific enum value:
// (enum-type id, ordinal). Stable across runs of the same program as long
// as the enum's ordinal assignment itself is stable.
func (c *ClassIndex) EnumIndexKey(enumType reflect.Type, ordinal int) (IndexKey, error) {
	typeID, err := c.GetIndex(enumType)
	if err != nil {
		return IndexKey{}, err
	}
	return PairKey(typeID, int32(ordinal)), nil
}
