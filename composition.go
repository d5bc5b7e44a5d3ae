package ecsgrid

import (
	"reflect"
	"sync"

	"github.com/TheBitDrifter/mask"
	"github.com/ecsgrid/ecsgrid/internal/chunkpool"
	"github.com/ecsgrid/ecsgrid/internal/classindex"
	"github.com/kelindar/bitmap"
)

// compositionID is an internal, debug-only ordinal; composition identity
// for lookup purposes is always the IndexKey, per spec.md §3.
type compositionID uint32

// composition is the per-archetype object described in spec.md §4.5: it
// owns one pool-tenant for its root population, knows its ordered
// component layout, and lazily manages per-state tenants.
type composition struct {
	id  compositionID
	key classindex.IndexKey

	classIDs       []int32
	types          []reflect.Type
	componentIndex map[int32]int // classID -> column index, O(1) projection
	mask           mask.Mask256

	pool        *chunkpool.Pool[*entity]
	rootTenant  *chunkpool.Tenant[*entity]
	world       *World

	stateMu      sync.RWMutex
	stateTenants map[classindex.IndexKey]*chunkpool.Tenant[*entity]

	// disabledMu/disabled track setEnabled(false) per chunk: a set bit means
	// the slot at that index is disabled. Absent or zero bits mean enabled,
	// so a freshly allocated chunk needs no initialization. Query scans test
	// membership here instead of carrying a bool column, the same shape of
	// problem kelindar-column's per-chunk fill/dirty bitmaps solve.
	disabledMu sync.Mutex
	disabled   map[uint32]bitmap.Bitmap
}

func newComposition(w *World, id compositionID, key classindex.IndexKey, classIDs []int32, types []reflect.Type) (*composition, error) {
	idx := make(map[int32]int, len(classIDs))
	var m mask.Mask256
	for i, cid := range classIDs {
		idx[cid] = i
		m.Mark(uint32(cid))
	}
	c := &composition{
		id:             id,
		key:            key,
		classIDs:       classIDs,
		types:          types,
		componentIndex: idx,
		mask:           m,
		pool:           w.pool,
		world:          w,
		stateTenants:   make(map[classindex.IndexKey]*chunkpool.Tenant[*entity]),
	}
	tenant, err := w.pool.NewTenant(len(classIDs), chunkEventsFor{compositionKey: key.String()})
	if err != nil {
		return nil, err
	}
	c.rootTenant = tenant
	return c, nil
}

// Mask returns the component-type-set bitmask used by query evaluation.
func (c *composition) Mask() mask.Mask256 { return c.mask }

// ColumnIndex returns the column holding classID's values, or -1 if this
// composition does not carry that component (spec.md §7 unknown-class).
func (c *composition) ColumnIndex(classID int32) int {
	if idx, ok := c.componentIndex[classID]; ok {
		return idx
	}
	return -1
}

// fetchStateTenant returns the tenant for stateKey, creating it on first
// use. The factory runs at most once per key even under contention.
func (c *composition) fetchStateTenant(stateKey classindex.IndexKey) (*chunkpool.Tenant[*entity], error) {
	c.stateMu.RLock()
	t, ok := c.stateTenants[stateKey]
	c.stateMu.RUnlock()
	if ok {
		return t, nil
	}

	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	if t, ok := c.stateTenants[stateKey]; ok {
		return t, nil
	}
	t, err := c.pool.NewTenant(0, chunkEventsFor{compositionKey: c.key.String() + "/" + stateKey.String()})
	if err != nil {
		return nil, err
	}
	c.stateTenants[stateKey] = t
	return t, nil
}

// setEnabled flips id's disabled bit in its chunk's bitmap.
func (c *composition) setEnabled(id uint32, v bool) {
	chunkID, slot := c.pool.Schema().Unpack(id)
	c.disabledMu.Lock()
	defer c.disabledMu.Unlock()
	if c.disabled == nil {
		c.disabled = make(map[uint32]bitmap.Bitmap)
	}
	bm := c.disabled[chunkID]
	if v {
		bm.Remove(slot)
	} else {
		bm.Set(slot)
	}
	c.disabled[chunkID] = bm
}

// isEnabled reports whether id's slot is enabled; absent bitmap state means
// enabled, matching every slot's state immediately after allocation.
func (c *composition) isEnabled(id uint32) bool {
	chunkID, slot := c.pool.Schema().Unpack(id)
	c.disabledMu.Lock()
	defer c.disabledMu.Unlock()
	bm, ok := c.disabled[chunkID]
	if !ok {
		return true
	}
	return !bm.Contains(slot)
}

// chunkDisabled returns the disabled-bit bitmap for chunkID, or nil if no
// slot in it has ever been disabled. Used by query scans to skip disabled slots
// without a per-entity method call.
func (c *composition) chunkDisabled(chunkID uint32) bitmap.Bitmap {
	c.disabledMu.Lock()
	defer c.disabledMu.Unlock()
	return c.disabled[chunkID]
}

// getStateTenant returns the tenant for stateKey without creating one.
func (c *composition) getStateTenant(stateKey classindex.IndexKey) (*chunkpool.Tenant[*entity], bool) {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	t, ok := c.stateTenants[stateKey]
	return t, ok
}

// createEntity allocates a root-tenant id, writes each value into the
// column selected by componentIndex, and returns the new entity record.
// values must already be permuted into column order by the caller
// (World.CreateEntity owns that pass).
func (c *composition) createEntity(values []ComponentValue) (*entity, error) {
	var e *entity
	id, err := c.rootTenant.NextID(func(id uint32) *entity {
		e = &entity{id: id, world: c.world, comp: c}
		return e
	})
	if err != nil {
		return nil, err
	}
	if !c.isEnabled(id) {
		c.setEnabled(id, true)
	}
	for i, v := range values {
		c.rootTenant.SetColumn(id, i, v.value)
	}
	return e, nil
}

// attachEntity migrates an existing entity into this composition: it
// allocates a new id in this composition's root tenant, copies across
// columns named by indexMapping (source column index per destination
// column, -1 meaning "no source, must come from addedMapping/added"), and
// frees the entity's old slot in its previous composition.
//
// indexMapping[i] and addedMapping[i] are mutually exclusive per
// destination column i: addedMapping names which of the caller-provided
// added values fills a column indexMapping leaves as -1.
func (c *composition) attachEntity(e *entity, indexMapping []int, added []ComponentValue, addedMapping []int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	oldComp := e.comp
	oldID := e.id

	newID, err := c.rootTenant.NextID(func(id uint32) *entity {
		e.comp = c
		e.id = id
		return e
	})
	if err != nil {
		return err
	}

	for destCol, srcCol := range indexMapping {
		if srcCol < 0 {
			continue
		}
		val := oldComp.pool.Column(oldID, srcCol)
		c.rootTenant.SetColumn(newID, destCol, val)
	}
	for destCol, addedIdx := range addedMapping {
		if addedIdx < 0 {
			continue
		}
		c.rootTenant.SetColumn(newID, destCol, added[addedIdx].value)
	}

	if enabled := oldComp.isEnabled(oldID); enabled != c.isEnabled(newID) {
		c.setEnabled(newID, enabled)
	}

	_, _, err = oldComp.rootTenant.FreeID(oldID, func(movedOldID, movedNewID uint32) {
		if moved, ok := oldComp.pool.GetEntry(movedNewID); ok && moved != nil && moved != e {
			moved.id = movedNewID
		}
	})
	return err
}
