// Package chunkpool is the concurrent slab allocator at the heart of the
// ECS core. It hands out dense 32-bit ids encoding (chunk, slot), supports
// concurrent allocation and O(1) recycling of freed slots by swap-with-last
// compaction, and is the sole source of entity identity (spec.md §4.3).
package chunkpool

import (
	"sync"

	"github.com/ecsgrid/ecsgrid/internal/idschema"
)

// ChunkEvents lets a host observe chunk lifecycle without the pool
// depending on a logging or metrics library. It mirrors the hook pattern
// the teacher repository uses for table.TableEvents.
type ChunkEvents interface {
	OnChunkAllocated(chunkID uint32)
}

// Pool is a concurrent slab arena shared by every tenant created from it.
// Chunk ids are pool-wide: two tenants never collide on a chunk id even
// though each tenant only ever touches the chunks it created.
type Pool[T any] struct {
	schema   idschema.Schema
	capacity int

	mu    sync.RWMutex
	table []*Chunk[T]
}

// NewPool builds a pool whose ids are packed according to schema.
func NewPool[T any](schema idschema.Schema) *Pool[T] {
	return &Pool[T]{
		schema:   schema,
		capacity: schema.ChunkCapacity(),
		table:    make([]*Chunk[T], 0, 16),
	}
}

// Schema returns the id layout this pool was built with.
func (p *Pool[T]) Schema() idschema.Schema { return p.schema }

// NewTenant returns a fresh tenant with one empty chunk. columnCount is the
// number of component-type columns every chunk of this tenant will carry
// (0 for a tenant that only needs identity, such as most state-tenants).
// events, if non-nil, is notified every time this tenant grows a new chunk
// — a tenant-level hook rather than a pool-level one, since a Pool is
// shared by every composition's tenants and only the tenant knows which
// composition it belongs to.
func (p *Pool[T]) NewTenant(columnCount int, events ChunkEvents) (*Tenant[T], error) {
	t := &Tenant[T]{
		pool:        p,
		schema:      p.schema,
		columnCount: columnCount,
		events:      events,
	}
	c, err := p.allocChunk(columnCount, events)
	if err != nil {
		return nil, err
	}
	t.current.Store(c)
	t.firstChunkID = c.id
	return t, nil
}

// GetEntry resolves id to the item registered under it in O(1): a chunk
// table lookup followed by slot indexing. Behavior for an id never issued
// by this pool, or already freed, is undefined per spec.md §4.3; callers
// are expected to hold ids returned by this same pool.
func (p *Pool[T]) GetEntry(id uint32) (T, bool) {
	chunkID, slot := p.schema.Unpack(id)
	c, ok := p.chunkAt(chunkID)
	if !ok || int(slot) >= c.capacity {
		var zero T
		return zero, false
	}
	return c.Item(int(slot)), true
}

// Column returns the value stored in column ci for id's slot.
func (p *Pool[T]) Column(id uint32, ci int) any {
	chunkID, slot := p.schema.Unpack(id)
	c, ok := p.chunkAt(chunkID)
	if !ok {
		return nil
	}
	return c.Column(ci, int(slot))
}

func (p *Pool[T]) chunkAt(chunkID uint32) (*Chunk[T], bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if int(chunkID) >= len(p.table) {
		return nil, false
	}
	return p.table[chunkID], true
}

func (p *Pool[T]) allocChunk(columnCount int, events ChunkEvents) (*Chunk[T], error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := uint32(len(p.table))
	if uint64(id) >= uint64(p.schema.MaxChunks()) {
		return nil, PoolFullError{MaxChunks: p.schema.MaxChunks()}
	}
	c := newChunk[T](id, p.capacity, columnCount)
	p.table = append(p.table, c)
	if events != nil {
		events.OnChunkAllocated(id)
	}
	return c, nil
}
