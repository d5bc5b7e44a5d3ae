package ecsgrid

import (
	"iter"
	"reflect"
)

// Query is the lazy, composition-spanning iterable returned by
// World.FindComponents (spec.md §4.8 ResultSet, §6 findComponents). It
// holds a snapshot of the matching compositions at the time it was built;
// iterating it never blocks on the composition repository again.
type Query struct {
	world        *World
	types        []reflect.Type
	compositions []*composition
}

// Count returns the total number of entities this query would yield,
// including disabled ones. Recomputed on every call, matching spec.md §4.8
// cursor.TotalMatched's "scan, don't cache" contract.
func (q *Query) Count() int {
	total := 0
	for _, c := range q.compositions {
		for chunk := range c.rootTenant.Chunks() {
			total += chunk.Size()
		}
	}
	return total
}

// All iterates every live, enabled entity matching the query exactly once,
// across every matching composition's chunks in allocation order. Disabled
// entities are skipped at the chunk-scan level against the composition's
// bitmap, per spec.md §8 concrete scenario 5.
func (q *Query) All() iter.Seq[Entity] {
	return func(yield func(Entity) bool) {
		for _, c := range q.compositions {
			for chunk := range c.rootTenant.Chunks() {
				disabled := c.chunkDisabled(chunk.ID())
				size := chunk.Size()
				for slot := 0; slot < size; slot++ {
					if disabled != nil && disabled.Contains(uint32(slot)) {
						continue
					}
					e := chunk.Item(slot)
					if e == nil {
						continue
					}
					if !yield(e) {
						return
					}
				}
			}
		}
	}
}

// columnIndices resolves, once per composition scanned, the column holding
// each of want's component types. Missing columns (shouldn't happen: the
// composition already matched the superset test) come back as -1 and are
// skipped defensively rather than panicking mid-scan.
func columnIndices(w *World, c *composition, want []reflect.Type) ([]int, error) {
	out := make([]int, len(want))
	for i, t := range want {
		classID, err := w.classes.GetIndex(t)
		if err != nil {
			return nil, err
		}
		out[i] = c.ColumnIndex(classID)
	}
	return out, nil
}

// Each1 iterates entities matching q, projecting component type T1's value
// alongside each one (spec.md §4.5, §9 "variadic select for arities 1..6").
// It does not panic when c1 is not among q's types: compositions of q that
// lack T1 are skipped, and the others are visited as usual.
func Each1[T1 any](q *Query, c1 ComponentType[T1], fn func(Entity, *T1) bool) {
	for _, c := range q.compositions {
		cols, err := columnIndices(q.world, c, []reflect.Type{c1.rtype()})
		if err != nil || cols[0] < 0 {
			continue
		}
		for chunk := range c.rootTenant.Chunks() {
			disabled := c.chunkDisabled(chunk.ID())
			size := chunk.Size()
			for slot := 0; slot < size; slot++ {
				if disabled != nil && disabled.Contains(uint32(slot)) {
					continue
				}
				e := chunk.Item(slot)
				if e == nil {
					continue
				}
				v, _ := chunk.Column(cols[0], slot).(*T1)
				if !fn(e, v) {
					return
				}
			}
		}
	}
}

// Each2 is Each1 generalized to two component types.
func Each2[T1, T2 any](q *Query, c1 ComponentType[T1], c2 ComponentType[T2], fn func(Entity, *T1, *T2) bool) {
	for _, c := range q.compositions {
		cols, err := columnIndices(q.world, c, []reflect.Type{c1.rtype(), c2.rtype()})
		if err != nil || cols[0] < 0 || cols[1] < 0 {
			continue
		}
		for chunk := range c.rootTenant.Chunks() {
			disabled := c.chunkDisabled(chunk.ID())
			size := chunk.Size()
			for slot := 0; slot < size; slot++ {
				if disabled != nil && disabled.Contains(uint32(slot)) {
					continue
				}
				e := chunk.Item(slot)
				if e == nil {
					continue
				}
				v1, _ := chunk.Column(cols[0], slot).(*T1)
				v2, _ := chunk.Column(cols[1], slot).(*T2)
				if !fn(e, v1, v2) {
					return
				}
			}
		}
	}
}

// Each3 is Each1 generalized to three component types.
func Each3[T1, T2, T3 any](q *Query, c1 ComponentType[T1], c2 ComponentType[T2], c3 ComponentType[T3], fn func(Entity, *T1, *T2, *T3) bool) {
	for _, c := range q.compositions {
		cols, err := columnIndices(q.world, c, []reflect.Type{c1.rtype(), c2.rtype(), c3.rtype()})
		if err != nil || cols[0] < 0 || cols[1] < 0 || cols[2] < 0 {
			continue
		}
		for chunk := range c.rootTenant.Chunks() {
			disabled := c.chunkDisabled(chunk.ID())
			size := chunk.Size()
			for slot := 0; slot < size; slot++ {
				if disabled != nil && disabled.Contains(uint32(slot)) {
					continue
				}
				e := chunk.Item(slot)
				if e == nil {
					continue
				}
				v1, _ := chunk.Column(cols[0], slot).(*T1)
				v2, _ := chunk.Column(cols[1], slot).(*T2)
				v3, _ := chunk.Column(cols[2], slot).(*T3)
				if !fn(e, v1, v2, v3) {
					return
				}
			}
		}
	}
}

// Each4 is Each1 generalized to four component types.
func Each4[T1, T2, T3, T4 any](q *Query, c1 ComponentType[T1], c2 ComponentType[T2], c3 ComponentType[T3], c4 ComponentType[T4], fn func(Entity, *T1, *T2, *T3, *T4) bool) {
	for _, c := range q.compositions {
		cols, err := columnIndices(q.world, c, []reflect.Type{c1.rtype(), c2.rtype(), c3.rtype(), c4.rtype()})
		if err != nil || cols[0] < 0 || cols[1] < 0 || cols[2] < 0 || cols[3] < 0 {
			continue
		}
		for chunk := range c.rootTenant.Chunks() {
			disabled := c.chunkDisabled(chunk.ID())
			size := chunk.Size()
			for slot := 0; slot < size; slot++ {
				if disabled != nil && disabled.Contains(uint32(slot)) {
					continue
				}
				e := chunk.Item(slot)
				if e == nil {
					continue
				}
				v1, _ := chunk.Column(cols[0], slot).(*T1)
				v2, _ := chunk.Column(cols[1], slot).(*T2)
				v3, _ := chunk.Column(cols[2], slot).(*T3)
				v4, _ := chunk.Column(cols[3], slot).(*T4)
				if !fn(e, v1, v2, v3, v4) {
					return
				}
			}
		}
	}
}

// Each5 is Each1 generalized to five component types.
func Each5[T1, T2, T3, T4, T5 any](q *Query, c1 ComponentType[T1], c2 ComponentType[T2], c3 ComponentType[T3], c4 ComponentType[T4], c5 ComponentType[T5], fn func(Entity, *T1, *T2, *T3, *T4, *T5) bool) {
	for _, c := range q.compositions {
		cols, err := columnIndices(q.world, c, []reflect.Type{c1.rtype(), c2.rtype(), c3.rtype(), c4.rtype(), c5.rtype()})
		if err != nil || cols[0] < 0 || cols[1] < 0 || cols[2] < 0 || cols[3] < 0 || cols[4] < 0 {
			continue
		}
		for chunk := range c.rootTenant.Chunks() {
			disabled := c.chunkDisabled(chunk.ID())
			size := chunk.Size()
			for slot := 0; slot < size; slot++ {
				if disabled != nil && disabled.Contains(uint32(slot)) {
					continue
				}
				e := chunk.Item(slot)
				if e == nil {
					continue
				}
				v1, _ := chunk.Column(cols[0], slot).(*T1)
				v2, _ := chunk.Column(cols[1], slot).(*T2)
				v3, _ := chunk.Column(cols[2], slot).(*T3)
				v4, _ := chunk.Column(cols[3], slot).(*T4)
				v5, _ := chunk.Column(cols[4], slot).(*T5)
				if !fn(e, v1, v2, v3, v4, v5) {
					return
				}
			}
		}
	}
}

// Each6 is Each1 generalized to six component types, the arity ceiling
// spec.md §9 names for the typed select helpers.
func Each6[T1, T2, T3, T4, T5, T6 any](q *Query, c1 ComponentType[T1], c2 ComponentType[T2], c3 ComponentType[T3], c4 ComponentType[T4], c5 ComponentType[T5], c6 ComponentType[T6], fn func(Entity, *T1, *T2, *T3, *T4, *T5, *T6) bool) {
	for _, c := range q.compositions {
		cols, err := columnIndices(q.world, c, []reflect.Type{c1.rtype(), c2.rtype(), c3.rtype(), c4.rtype(), c5.rtype(), c6.rtype()})
		if err != nil || cols[0] < 0 || cols[1] < 0 || cols[2] < 0 || cols[3] < 0 || cols[4] < 0 || cols[5] < 0 {
			continue
		}
		for chunk := range c.rootTenant.Chunks() {
			disabled := c.chunkDisabled(chunk.ID())
			size := chunk.Size()
			for slot := 0; slot < size; slot++ {
				if disabled != nil && disabled.Contains(uint32(slot)) {
					continue
				}
				e := chunk.Item(slot)
				if e == nil {
					continue
				}
				v1, _ := chunk.Column(cols[0], slot).(*T1)
				v2, _ := chunk.Column(cols[1], slot).(*T2)
				v3, _ := chunk.Column(cols[2], slot).(*T3)
				v4, _ := chunk.Column(cols[3], slot).(*T4)
				v5, _ := chunk.Column(cols[4], slot).(*T5)
				v6, _ := chunk.Column(cols[5], slot).(*T6)
				if !fn(e, v1, v2, v3, v4, v5, v6) {
					return
				}
			}
		}
	}
}
