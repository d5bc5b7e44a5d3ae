package ecsgrid

import (
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/ecsgrid/ecsgrid/internal/chunkpool"
	"github.com/ecsgrid/ecsgrid/internal/classindex"
	"github.com/ecsgrid/ecsgrid/internal/idschema"
)

// DefaultChunkBit sizes every World built with NewWorld's zero Options
// value: 14 bits of slot address space, a 16384-entry chunk, matching the
// scenario spec.md §8 walks through concretely.
const DefaultChunkBit = 14

// Options configures a World at construction.
type Options struct {
	// ChunkBit sets the slot-address width of the underlying chunked pool
	// (chunk capacity is 2^ChunkBit). Zero selects DefaultChunkBit.
	ChunkBit uint32
	// ClassCapacity bounds the number of distinct component types this
	// World can register. Zero selects classindex.DefaultCapacity.
	ClassCapacity int
}

// World is the façade described in spec.md §6: it owns the chunked pool,
// the class index, and the composition repository, and exposes entity
// lifecycle and query operations over them.
type World struct {
	pool    *chunkpool.Pool[*entity]
	classes *classindex.ClassIndex
	repo    *repository

	closed atomic.Bool
}

// NewWorld builds an empty World ready to accept entities.
func NewWorld(opts Options) *World {
	chunkBit := opts.ChunkBit
	if chunkBit == 0 {
		chunkBit = DefaultChunkBit
	}
	schema := idschema.New(chunkBit)

	w := &World{
		classes: classindex.New(opts.ClassCapacity),
	}
	w.pool = chunkpool.NewPool[*entity](schema)
	w.repo = newRepository(w)
	return w
}

// CreateEntity allocates a new entity carrying exactly the given component
// values. It fails with InvalidComponentError if two values share a type.
func (w *World) CreateEntity(values ...ComponentValue) (Entity, error) {
	if w.closed.Load() {
		return nil, StorageClosedError
	}
	types := make([]reflect.Type, len(values))
	for i, v := range values {
		types[i] = v.ct.rtype()
	}
	comp, err := w.repo.getOrCreate(types)
	if err != nil {
		return nil, err
	}

	ordered := make([]ComponentValue, len(comp.classIDs))
	for _, v := range values {
		classID, err := w.classes.GetIndex(v.ct.rtype())
		if err != nil {
			return nil, err
		}
		ci := comp.ColumnIndex(classID)
		if ci < 0 {
			return nil, InvalidComponentError{Type: v.ct.rtype()}
		}
		ordered[ci] = v
	}
	return comp.createEntity(ordered)
}

// CreateEntityAs allocates a new entity whose components are the union of
// prefab's current components and extra, per spec.md §6 createEntityAs. If
// extra names a type prefab already carries, extra's value wins.
func (w *World) CreateEntityAs(prefab Entity, extra ...ComponentValue) (Entity, error) {
	if w.closed.Load() {
		return nil, StorageClosedError
	}
	src, ok := prefab.(*entity)
	if !ok || src.comp == nil {
		return nil, DeletedEntityError
	}

	extraByType := make(map[reflect.Type]ComponentValue, len(extra))
	for _, v := range extra {
		extraByType[v.ct.rtype()] = v
	}

	values := make([]ComponentValue, 0, len(src.comp.types)+len(extra))
	for i, t := range src.comp.types {
		if v, ok := extraByType[t]; ok {
			values = append(values, v)
			delete(extraByType, t)
			continue
		}
		raw := src.comp.pool.Column(src.id, i)
		values = append(values, ComponentValue{ct: componentTypeOf(t), value: raw})
	}
	for _, v := range extra {
		if _, stillPending := extraByType[v.ct.rtype()]; stillPending {
			values = append(values, v)
		}
	}
	return w.CreateEntity(values...)
}

// componentTypeOf wraps a reflect.Type back into a Component token for
// carrying an already-boxed value through CreateEntity's ordering pass; it
// never needs to run the NewComponent zero-value allocation since the
// caller already owns the boxed pointer.
type rawComponentType struct{ typ reflect.Type }

func (r rawComponentType) rtype() reflect.Type { return r.typ }

func componentTypeOf(t reflect.Type) Component { return rawComponentType{typ: t} }

// DestroyEntity releases e's slot and marks it deleted. It reports whether
// e was alive immediately before the call (spec.md §6 destroyEntity).
func (w *World) DestroyEntity(e Entity) (bool, error) {
	if w.closed.Load() {
		return false, StorageClosedError
	}
	ent, ok := e.(*entity)
	if !ok {
		return false, nil
	}
	ent.mu.Lock()
	comp := ent.comp
	if comp == nil {
		ent.mu.Unlock()
		return false, nil
	}
	id := ent.id
	ent.comp = nil
	hasState, stateKey, stateID := ent.hasState, ent.stateKey, ent.stateTenant
	ent.hasState = false
	ent.mu.Unlock()

	if hasState {
		if t, ok := comp.getStateTenant(stateKey); ok {
			t.FreeID(stateID, nil)
		}
	}
	_, _, err := comp.rootTenant.FreeID(id, func(movedOldID, movedNewID uint32) {
		if moved, ok := comp.pool.GetEntry(movedNewID); ok && moved != nil {
			moved.id = movedNewID
		}
	})
	return true, err
}

// FindComponents returns a Query over every entity whose composition's
// type-set is a superset of the given types (spec.md §6 findComponents,
// §4.6 node cache). Supports arities 1..6 via the typed helpers in
// query.go; this untyped form backs all of them.
func (w *World) FindComponents(types ...reflect.Type) (*Query, error) {
	if w.closed.Load() {
		return nil, StorageClosedError
	}
	comps, err := w.repo.findComponents(types)
	if err != nil {
		return nil, err
	}
	return &Query{world: w, types: types, compositions: comps}, nil
}

// Close releases the World's resources. Further mutating operations return
// StorageClosedError.
func (w *World) Close() error {
	w.closed.Store(true)
	return nil
}

// registry backs Register/Open (spec.md §6.1 implementation discovery).
var (
	registryMu sync.RWMutex
	registry   = map[string]func(Options) (*World, error){}
)

// Register associates name with a constructor, so a later Open(name, ...)
// call can produce a World without the caller importing the concrete
// package that built it.
func Register(name string, ctor func(Options) (*World, error)) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = ctor
}

// Open instantiates the World registered under name, failing with
// NotFoundError if nothing is registered there.
func Open(name string, opts Options) (*World, error) {
	registryMu.RLock()
	ctor, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, NotFoundError{Name: name}
	}
	return ctor(opts)
}
