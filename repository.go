package ecsgrid

import (
	"reflect"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/TheBitDrifter/mask"
	"github.com/ecsgrid/ecsgrid/internal/classindex"
	xsync "github.com/puzpuzpuz/xsync/v3"
)

// node caches, for one required component-type-set, the compositions whose
// type-set is a superset of it — the query index described in spec.md
// §4.6. Membership is maintained incrementally: every composition created
// after a node exists is checked against it once, at creation time.
type node struct {
	keyMask mask.Mask256

	mu      sync.RWMutex
	members []*composition
}

func (n *node) maybeAdd(c *composition) {
	if !c.mask.ContainsAll(n.keyMask) {
		return
	}
	n.mu.Lock()
	n.members = append(n.members, c)
	n.mu.Unlock()
}

func (n *node) snapshot() []*composition {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]*composition, len(n.members))
	copy(out, n.members)
	return out
}

// repository is the CompositionRepository of spec.md §4.6: it maps a
// component type-set to its unique composition and builds matching-
// composition sets for queries.
type repository struct {
	world  *World
	nextID atomic.Uint32

	compositions *xsync.MapOf[classindex.IndexKey, *composition]

	// compositionsList backs node population; appended to under listMu
	// whenever getOrCreate mints a new composition.
	listMu          sync.Mutex
	compositionsList []*composition

	nodes   *xsync.MapOf[classindex.IndexKey, *node]
	nodesMu sync.Mutex
	nodesList []*node
}

func newRepository(w *World) *repository {
	return &repository{
		world:        w,
		compositions: xsync.NewMapOf[classindex.IndexKey, *composition](),
		nodes:        xsync.NewMapOf[classindex.IndexKey, *node](),
	}
}

// getOrCreate canonicalizes the given component types, looks up the
// composition whose type-set equals them, and creates one if missing. The
// factory runs at most once per key even under concurrent callers.
func (r *repository) getOrCreate(types []reflect.Type) (*composition, error) {
	classIDs := make([]int32, len(types))
	seen := make(map[int32]bool, len(types))
	for i, t := range types {
		id, err := r.world.classes.GetIndex(t)
		if err != nil {
			return nil, err
		}
		if seen[id] {
			return nil, InvalidComponentError{Type: t}
		}
		seen[id] = true
		classIDs[i] = id
	}

	// Canonical column order: ascending by class id, so two callers naming
	// the same set in different argument order land on the same layout.
	order := make([]int, len(classIDs))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return classIDs[order[a]] < classIDs[order[b]] })
	sortedIDs := make([]int32, len(classIDs))
	sortedTypes := make([]reflect.Type, len(types))
	for i, o := range order {
		sortedIDs[i] = classIDs[o]
		sortedTypes[i] = types[o]
	}

	key := classindex.SetKey(sortedIDs)
	if c, ok := r.compositions.Load(key); ok {
		return c, nil
	}

	var createErr error
	c, loaded := r.compositions.LoadOrCompute(key, func() *composition {
		id := compositionID(r.nextID.Add(1))
		nc, err := newComposition(r.world, id, key, sortedIDs, sortedTypes)
		if err != nil {
			createErr = err
			return nil
		}
		return nc
	})
	if createErr != nil {
		return nil, createErr
	}
	if !loaded {
		r.onCompositionCreated(c)
	}
	return c, nil
}

func (r *repository) onCompositionCreated(c *composition) {
	r.listMu.Lock()
	r.compositionsList = append(r.compositionsList, c)
	r.listMu.Unlock()

	r.nodesMu.Lock()
	nodes := make([]*node, len(r.nodesList))
	copy(nodes, r.nodesList)
	r.nodesMu.Unlock()
	for _, n := range nodes {
		n.maybeAdd(c)
	}
}

// findComponents returns every composition whose type-set is a superset of
// types, per spec.md §4.6's node cache.
func (r *repository) findComponents(types []reflect.Type) ([]*composition, error) {
	classIDs := make([]int32, len(types))
	var m mask.Mask256
	for i, t := range types {
		id, err := r.world.classes.GetIndex(t)
		if err != nil {
			return nil, err
		}
		classIDs[i] = id
		m.Mark(uint32(id))
	}
	key := classindex.SetKey(classIDs)

	n, loaded := r.nodes.LoadOrCompute(key, func() *node {
		nn := &node{keyMask: m}
		r.listMu.Lock()
		for _, c := range r.compositionsList {
			nn.maybeAdd(c)
		}
		r.listMu.Unlock()
		return nn
	})
	if !loaded {
		r.nodesMu.Lock()
		r.nodesList = append(r.nodesList, n)
		r.nodesMu.Unlock()
	}
	return n.snapshot(), nil
}

// modifyComponents computes the new type-set for adding/removing components
// on e, gets-or-creates the target composition, and migrates e into it. The
// old slot is freed via the source tenant with no effect on e's own record
// (attachEntity already moved e to the new composition and id by the time
// FreeID runs).
func (r *repository) modifyComponents(e *entity, add []ComponentValue, remove []Component) error {
	e.mu.Lock()
	oldComp := e.comp
	e.mu.Unlock()
	if oldComp == nil {
		return DeletedEntityError
	}

	keep := make([]reflect.Type, 0, len(oldComp.types))
	keepClassIDs := make(map[reflect.Type]int32, len(oldComp.types))
	removeSet := make(map[reflect.Type]bool, len(remove))
	for _, rc := range remove {
		removeSet[rc.rtype()] = true
	}
	for i, t := range oldComp.types {
		if removeSet[t] {
			continue
		}
		keep = append(keep, t)
		keepClassIDs[t] = oldComp.classIDs[i]
		_ = i
	}
	newTypes := append([]reflect.Type{}, keep...)
	for _, av := range add {
		newTypes = append(newTypes, av.ct.rtype())
	}

	target, err := r.getOrCreate(newTypes)
	if err != nil {
		return err
	}

	indexMapping := make([]int, len(target.classIDs))
	addedMapping := make([]int, len(target.classIDs))
	for i := range indexMapping {
		indexMapping[i] = -1
		addedMapping[i] = -1
	}
	for destCol, classID := range target.classIDs {
		if srcCol, ok := oldComp.componentIndex[classID]; ok {
			if _, stillKept := keepClassIDs[oldComp.types[srcCol]]; stillKept {
				indexMapping[destCol] = srcCol
				continue
			}
		}
	}
	for addedIdx, av := range add {
		classID, err := r.world.classes.GetIndex(av.ct.rtype())
		if err != nil {
			return err
		}
		if destCol, ok := target.componentIndex[classID]; ok {
			addedMapping[destCol] = addedIdx
		}
	}

	return target.attachEntity(e, indexMapping, add, addedMapping)
}
