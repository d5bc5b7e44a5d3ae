package chunkpool

import (
	"iter"
	"sync"
	"sync/atomic"

	"github.com/ecsgrid/ecsgrid/internal/idschema"
)

// Tenant is a view over the chunks belonging to one (composition, optional
// state) pair.
//
// Allocation used to run an optimistic fast path — an atomic increment of
// the chunk's fill counter, racing against FreeID outside any lock — but
// that left a window between a slot being reserved (fill bumped) and its
// item being written where a concurrent FreeID could read the raw fill
// counter as "last occupied slot", swap the not-yet-written slot into a
// freed position, and silently drop the id NextID had just handed out.
// Reservation and registration are therefore folded into one critical
// section guarded by Tenant.mu, the same mutex FreeID takes: a slot only
// ever becomes visible to FreeID (and to Chunk.Size()-bounded scans) once
// its item has actually been written. This trades the lock-free fast path
// for correctness; see DESIGN.md.
type Tenant[T any] struct {
	pool        *Pool[T]
	schema      idschema.Schema
	columnCount int
	events      ChunkEvents

	mu           sync.Mutex
	current      atomic.Pointer[Chunk[T]]
	firstChunkID uint32
	freeStack    []uint32
}

// NextID returns an id, reusing from the free-stack if non-empty, otherwise
// advancing the tenant's allocation cursor, and writes build(id) into the
// claimed slot before the id is returned or becomes visible to FreeID or a
// chunk scan. build may be nil, leaving the slot's item at its zero value
// (used by pure id-slab state-tenants that never store T). Thread-safe;
// among concurrent callers the returned ids are a permutation of [0, n) for
// however many ids were requested, with no duplicates and no gaps after
// quiescence.
func (t *Tenant[T]) NextID(build func(id uint32) T) (uint32, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if n := len(t.freeStack); n > 0 {
		id := t.freeStack[n-1]
		t.freeStack = t.freeStack[:n-1]
		t.writeLocked(id, build)
		return id, nil
	}

	for {
		chunk := t.current.Load()
		slot := int(chunk.fill.Load())
		if slot < chunk.capacity {
			id := t.schema.Pack(chunk.id, uint32(slot))
			if build != nil {
				chunk.items[slot] = build(id)
			}
			chunk.fill.Store(int32(slot + 1))
			return id, nil
		}

		next, err := t.pool.allocChunk(t.columnCount, t.events)
		if err != nil {
			return 0, err
		}
		chunk.nextID, chunk.hasNext, chunk.sealed = next.id, true, true
		next.prevID, next.hasPrev = chunk.id, true
		t.current.Store(next)
		// Loop and retry against the freshly installed chunk.
	}
}

// writeLocked writes build(id) into id's slot and then extends the chunk's
// fill counter to cover it. Callers must already hold t.mu.
func (t *Tenant[T]) writeLocked(id uint32, build func(id uint32) T) {
	chunkID, slot := t.schema.Unpack(id)
	c, ok := t.pool.chunkAt(chunkID)
	if !ok {
		panic(StaleEntryError{ID: id})
	}
	if build != nil {
		c.items[slot] = build(id)
	}
	c.fill.Store(int32(slot + 1))
}

// SetColumn writes v into component column ci for id's slot.
func (t *Tenant[T]) SetColumn(id uint32, ci int, v any) {
	chunkID, slot := t.schema.Unpack(id)
	c, ok := t.pool.chunkAt(chunkID)
	if !ok {
		panic(StaleEntryError{ID: id})
	}
	c.SetColumn(ci, int(slot), v)
}

// FreeID releases id's slot, compacting the chunk by swapping its last
// occupied slot into the freed position. It returns the id the moved item
// used to have (so the caller can patch any external index pointing at it)
// and whether a swap actually happened.
//
// When the freed slot lives in the tenant's current chunk, the chunk's fill
// counter simply shrinks — it remains the only allocation frontier. When it
// lives in a sealed, non-current chunk, the vacated id is pushed onto the
// free-stack instead, since only the current chunk's fill counter feeds
// NextID.
func (t *Tenant[T]) FreeID(id uint32, onMoved func(oldID, newID uint32)) (movedFromID uint32, moved bool, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	chunkID, slot := t.schema.Unpack(id)
	c, ok := t.pool.chunkAt(chunkID)
	if !ok {
		return 0, false, StaleEntryError{ID: id}
	}

	lastSlot := int(c.fill.Load()) - 1
	if lastSlot < 0 || int(slot) > lastSlot {
		return 0, false, StaleEntryError{ID: id}
	}

	var zero T
	if int(slot) != lastSlot {
		c.items[slot] = c.items[lastSlot]
		for i := range c.columns {
			c.columns[i][slot] = c.columns[i][lastSlot]
		}
		movedFromID = t.schema.Pack(chunkID, uint32(lastSlot))
		moved = true
		if onMoved != nil {
			onMoved(movedFromID, id)
		}
	}
	c.clearSlot(lastSlot, zero)
	c.fill.Add(-1)

	if t.current.Load() != c {
		vacatedID := t.schema.Pack(chunkID, uint32(lastSlot))
		t.freeStack = append(t.freeStack, vacatedID)
	}
	return movedFromID, moved, nil
}

// FirstChunkID returns the id of the tenant's oldest chunk, the start of
// forward iteration.
func (t *Tenant[T]) FirstChunkID() uint32 { return t.firstChunkID }

// CurrentChunkID returns the id of the tenant's allocation frontier.
func (t *Tenant[T]) CurrentChunkID() uint32 { return t.current.Load().id }

// Chunks iterates the tenant's chunks from first to current, in link order.
// Iteration is weakly consistent under concurrent mutation: it visits every
// chunk present throughout the scan and never follows a dangling link, but
// makes no uniqueness guarantee for items moved by compaction mid-scan
// (spec.md §5).
func (t *Tenant[T]) Chunks() iter.Seq[*Chunk[T]] {
	return func(yield func(*Chunk[T]) bool) {
		id := t.firstChunkID
		for {
			c, ok := t.pool.chunkAt(id)
			if !ok {
				return
			}
			if !yield(c) {
				return
			}
			next, has := c.NextID()
			if !has {
				return
			}
			id = next
		}
	}
}
