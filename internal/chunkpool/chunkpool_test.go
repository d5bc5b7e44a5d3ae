package chunkpool

import (
	"sync"
	"testing"

	"github.com/ecsgrid/ecsgrid/internal/idschema"
)

type stubItem struct{ id uint32 }

func newTestPool(chunkBit uint32) *Pool[*stubItem] {
	return NewPool[*stubItem](idschema.New(chunkBit))
}

func TestNextIDSequentialWithinChunk(t *testing.T) {
	p := newTestPool(2) // capacity 4
	tenant, err := p.NewTenant(0, nil)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 4; i++ {
		id, err := tenant.NextID(nil)
		if err != nil {
			t.Fatalf("NextID() error at i=%d: %v", i, err)
		}
		chunkID, slot := p.Schema().Unpack(id)
		if chunkID != 0 || slot != uint32(i) {
			t.Errorf("NextID() #%d unpacked to (chunk=%d, slot=%d), want (0, %d)", i, chunkID, slot, i)
		}
	}
}

func TestNextIDGrowsPastFullChunk(t *testing.T) {
	p := newTestPool(2) // capacity 4
	tenant, err := p.NewTenant(0, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 4; i++ {
		if _, err := tenant.NextID(nil); err != nil {
			t.Fatal(err)
		}
	}
	id, err := tenant.NextID(nil)
	if err != nil {
		t.Fatal(err)
	}
	chunkID, slot := p.Schema().Unpack(id)
	if chunkID != 1 || slot != 0 {
		t.Errorf("5th id unpacked to (chunk=%d, slot=%d), want (1, 0)", chunkID, slot)
	}
}

func TestFreeIDSwapsLastOccupiedSlot(t *testing.T) {
	p := newTestPool(4) // capacity 16, stays in one chunk
	tenant, err := p.NewTenant(0, nil)
	if err != nil {
		t.Fatal(err)
	}

	id0, _ := tenant.NextID(func(id uint32) *stubItem { return &stubItem{id: id} })
	id1, _ := tenant.NextID(func(id uint32) *stubItem { return &stubItem{id: id} })

	movedFrom, moved, err := tenant.FreeID(id0, func(oldID, newID uint32) {
		item, ok := p.GetEntry(newID)
		if !ok || item == nil {
			t.Fatalf("GetEntry(%d) after move not found", newID)
		}
		item.id = newID
	})
	if err != nil {
		t.Fatal(err)
	}
	if !moved || movedFrom != id1 {
		t.Errorf("FreeID(id0) moved=%v movedFrom=%d, want moved=true movedFrom=%d", moved, movedFrom, id1)
	}

	reused, err := tenant.NextID(nil)
	if err != nil {
		t.Fatal(err)
	}
	if reused != id1 {
		t.Errorf("NextID() after FreeID = %d, want reused id %d", reused, id1)
	}
}

func TestFreeIDThenNextIDConcreteScenario(t *testing.T) {
	// spec.md §8: allocate two ids; freeId(0) must return 1 (the id of the
	// slot that moved), and the next allocation must reuse slot 0.
	p := newTestPool(4)
	tenant, err := p.NewTenant(0, nil)
	if err != nil {
		t.Fatal(err)
	}
	id0, _ := tenant.NextID(func(uint32) *stubItem { return &stubItem{} })
	id1, _ := tenant.NextID(func(uint32) *stubItem { return &stubItem{} })

	movedFrom, _, err := tenant.FreeID(id0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if movedFrom != id1 {
		t.Errorf("freeId(0) returned moved id %d, want %d", movedFrom, id1)
	}
	next, err := tenant.NextID(nil)
	if err != nil {
		t.Fatal(err)
	}
	if next != id0 {
		t.Errorf("next allocation = %d, want reused %d", next, id0)
	}
}

func TestConcurrentNextIDNoDuplicates(t *testing.T) {
	p := newTestPool(8) // capacity 256, several chunks under load
	tenant, err := p.NewTenant(0, nil)
	if err != nil {
		t.Fatal(err)
	}

	const goroutines = 16
	const perGoroutine = 512

	seen := make(chan uint32, goroutines*perGoroutine)
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				id, err := tenant.NextID(nil)
				if err != nil {
					t.Error(err)
					return
				}
				seen <- id
			}
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[uint32]bool, goroutines*perGoroutine)
	for id := range seen {
		if unique[id] {
			t.Fatalf("duplicate id %d allocated concurrently", id)
		}
		unique[id] = true
	}
	if len(unique) != goroutines*perGoroutine {
		t.Errorf("got %d unique ids, want %d", len(unique), goroutines*perGoroutine)
	}
}

func TestPoolFullError(t *testing.T) {
	// chunkBit=30 leaves only 2 high bits, i.e. 4 representable chunk ids.
	// Exhausting a pool always costs capacity*maxChunks = 2^32 slots
	// regardless of chunkBit, and every chunk allocates its full capacity up
	// front, so the pool's per-chunk capacity is overridden to 1 slot and
	// allocChunk is exercised directly rather than via NextID.
	p := newTestPool(30)
	p.capacity = 1
	_, err := p.NewTenant(0, nil) // consumes chunk id 0
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if _, err := p.allocChunk(0, nil); err != nil {
			t.Fatalf("allocChunk() unexpected error before exhaustion: %v", err)
		}
	}
	_, err = p.allocChunk(0, nil)
	if err == nil {
		t.Fatal("expected PoolFullError after exhausting every chunk id, got nil")
	}
	if _, ok := err.(PoolFullError); !ok {
		t.Fatalf("expected PoolFullError, got %T: %v", err, err)
	}
}

func TestSetColumnAndColumn(t *testing.T) {
	p := newTestPool(4)
	tenant, err := p.NewTenant(2, nil)
	if err != nil {
		t.Fatal(err)
	}
	id, _ := tenant.NextID(func(id uint32) *stubItem { return &stubItem{id: id} })
	tenant.SetColumn(id, 0, "hello")
	tenant.SetColumn(id, 1, 42)

	if got := p.Column(id, 0); got != "hello" {
		t.Errorf("Column(id, 0) = %v, want %q", got, "hello")
	}
	if got := p.Column(id, 1); got != 42 {
		t.Errorf("Column(id, 1) = %v, want 42", got)
	}
}

type eventRecorder struct {
	mu  sync.Mutex
	ids []uint32
}

func (e *eventRecorder) OnChunkAllocated(chunkID uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ids = append(e.ids, chunkID)
}

func TestChunkEventsFireOnGrowth(t *testing.T) {
	rec := &eventRecorder{}
	p := NewPool[*stubItem](idschema.New(1)) // capacity 2
	tenant, err := p.NewTenant(0, rec)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		if _, err := tenant.NextID(nil); err != nil {
			t.Fatal(err)
		}
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.ids) < 2 {
		t.Errorf("OnChunkAllocated fired %d times, want at least 2 (initial + growth)", len(rec.ids))
	}
}
