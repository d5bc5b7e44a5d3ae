package ecsgrid

import (
	"sync"

	"github.com/ecsgrid/ecsgrid/internal/classindex"
)

// Entity is a handle to a record in the pool identified by a 32-bit id
// (spec.md §4.7). *entity is the only implementation; the interface exists
// so the public surface does not expose the mutable struct directly.
type Entity interface {
	// ID returns the entity's current 32-bit identifier. It changes across
	// composition migrations and when compaction moves the entity to another
	// slot (state changes leave it as is), so callers needing a stable
	// handle should keep the Entity value, not the raw id.
	ID() uint32

	Has(Component) bool
	Add(ComponentValue) error
	Remove(Component) error

	SetState(state *StateValue) error
	State() *StateValue

	IsEnabled() bool
	SetEnabled(bool) error

	IsDeleted() bool

	get(Component) (any, bool)
	set(Component, any)
}

var _ Entity = (*entity)(nil)

// entity is the per-entity record threaded into one chunk of one
// composition (spec.md §4.7). It is the item type stored in chunkpool
// chunks: chunkpool.Pool[*entity].
type entity struct {
	mu sync.Mutex

	id   uint32
	comp *composition // nil once deleted
	world *World

	stateKey    classindex.IndexKey
	hasState    bool
	stateTenant uint32 // id within the state tenant, meaningful only if hasState
}

func (e *entity) ID() uint32 { return e.id }

func (e *entity) IsDeleted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.comp == nil
}

func (e *entity) IsEnabled() bool {
	e.mu.Lock()
	comp, id := e.comp, e.id
	e.mu.Unlock()
	if comp == nil {
		return false
	}
	return comp.isEnabled(id)
}

func (e *entity) SetEnabled(v bool) error {
	e.mu.Lock()
	comp, id := e.comp, e.id
	e.mu.Unlock()
	if comp == nil {
		return DeletedEntityError
	}
	comp.setEnabled(id, v)
	return nil
}

func (e *entity) Has(c Component) bool {
	e.mu.Lock()
	comp := e.comp
	e.mu.Unlock()
	if comp == nil {
		return false
	}
	classID, err := e.world.classes.GetIndex(c.rtype())
	if err != nil {
		return false
	}
	return comp.ColumnIndex(classID) >= 0
}

func (e *entity) get(c Component) (any, bool) {
	e.mu.Lock()
	comp, id := e.comp, e.id
	e.mu.Unlock()
	if comp == nil {
		return nil, false
	}
	classID, err := e.world.classes.GetIndex(c.rtype())
	if err != nil {
		return nil, false
	}
	ci := comp.ColumnIndex(classID)
	if ci < 0 {
		return nil, false
	}
	return comp.pool.Column(id, ci), true
}

func (e *entity) set(c Component, v any) {
	e.mu.Lock()
	comp, id := e.comp, e.id
	e.mu.Unlock()
	if comp == nil {
		return
	}
	classID, err := e.world.classes.GetIndex(c.rtype())
	if err != nil {
		return
	}
	ci := comp.ColumnIndex(classID)
	if ci < 0 {
		return
	}
	comp.rootTenant.SetColumn(id, ci, v)
}

// Add migrates e into the composition that is its current type-set plus
// value's type. Fails with ComponentExistsError if the component is already
// present.
func (e *entity) Add(value ComponentValue) error {
	e.mu.Lock()
	if e.comp == nil {
		e.mu.Unlock()
		return DeletedEntityError
	}
	e.mu.Unlock()
	if e.Has(value.ct) {
		return ComponentExistsError{Type: value.ct.rtype()}
	}
	return e.world.repo.modifyComponents(e, []ComponentValue{value}, nil)
}

// Remove migrates e into the composition that is its current type-set
// minus c. A no-op if the component is not present.
func (e *entity) Remove(c Component) error {
	e.mu.Lock()
	if e.comp == nil {
		e.mu.Unlock()
		return DeletedEntityError
	}
	e.mu.Unlock()
	if !e.Has(c) {
		return nil
	}
	return e.world.repo.modifyComponents(e, nil, []Component{c})
}

// StateValue is an enum-like value tagging an entity into a secondary
// state-tenant without changing its composition (spec.md §4.3 "State
// tenants", §4.7 setState). No constructor is provided: the zero value is
// the only StateValue code outside this package can build, so every
// external caller tags entities with one and the same state.
type StateValue struct {
	key classindex.IndexKey
}

// SetState moves e between state-tenants within its current composition;
// passing nil clears state, returning e to plain (stateless) iteration.
func (e *entity) SetState(state *StateValue) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.comp == nil {
		return DeletedEntityError
	}

	if e.hasState {
		oldTenant, ok := e.comp.getStateTenant(e.stateKey)
		if ok {
			oldTenant.FreeID(e.stateTenant, nil)
		}
		e.hasState = false
	}
	if state == nil {
		return nil
	}
	tenant, err := e.comp.fetchStateTenant(state.key)
	if err != nil {
		return err
	}
	id, err := tenant.NextID(func(uint32) *entity { return e })
	if err != nil {
		return err
	}
	e.stateKey = state.key
	e.stateTenant = id
	e.hasState = true
	return nil
}

// State returns e's current state tag, or nil if it carries none.
func (e *entity) State() *StateValue {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.hasState {
		return nil
	}
	return &StateValue{key: e.stateKey}
}

// markDeleted nulls the composition pointer, the spec.md §4.7 definition of
// "deleted": subsequent mutating operations become no-ops returning
// DeletedEntityError.
func (e *entity) markDeleted() {
	e.mu.Lock()
	e.comp = nil
	e.mu.Unlock()
}
