package classindex

import (
	"reflect"
	"sync"
	"testing"
)

type typeA struct{}
type typeB struct{}
type typeC struct{}

func TestGetIndexAtMostOnce(t *testing.T) {
	c := New(0)
	ta := reflect.TypeOf(typeA{})

	const goroutines = 32
	ids := make([]int32, goroutines)
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := range ids {
		go func(i int) {
			defer wg.Done()
			id, err := c.GetIndex(ta)
			if err != nil {
				t.Error(err)
			}
			ids[i] = id
		}(i)
	}
	wg.Wait()

	for _, id := range ids[1:] {
		if id != ids[0] {
			t.Errorf("GetIndex returned different ids across goroutines: %v", ids)
			break
		}
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestCapacityExceeded(t *testing.T) {
	c := New(2)
	types := []reflect.Type{reflect.TypeOf(typeA{}), reflect.TypeOf(typeB{}), reflect.TypeOf(typeC{})}

	if _, err := c.GetIndex(types[0]); err != nil {
		t.Fatalf("unexpected error registering first type: %v", err)
	}
	if _, err := c.GetIndex(types[1]); err != nil {
		t.Fatalf("unexpected error registering second type: %v", err)
	}
	if _, err := c.GetIndex(types[2]); err == nil {
		t.Fatal("expected CapacityExceededError, got nil")
	} else if _, ok := err.(CapacityExceededError); !ok {
		t.Fatalf("expected CapacityExceededError, got %T", err)
	}
}

func TestSetKeyCommutative(t *testing.T) {
	a := SetKey([]int32{3, 1, 2})
	b := SetKey([]int32{1, 2, 3})
	c := SetKey([]int32{1, 2, 2, 3}) // duplicate should not change identity
	if a != b || a != c {
		t.Errorf("SetKey not order/duplicate independent: a=%v b=%v c=%v", a, b, c)
	}

	d := SetKey([]int32{1, 2})
	if a == d {
		t.Errorf("SetKey for different sets collided: %v", a)
	}
}

func TestPairKeyOrdered(t *testing.T) {
	a := PairKey(1, 2)
	b := PairKey(2, 1)
	if a == b {
		t.Errorf("PairKey(1,2) == PairKey(2,1), want distinct keys")
	}
}

func TestEnumIndexKeyStableAcrossCalls(t *testing.T) {
	c := New(0)
	et := reflect.TypeOf(typeA{})
	k1, err := c.EnumIndexKey(et, 3)
	if err != nil {
		t.Fatal(err)
	}
	k2, err := c.EnumIndexKey(et, 3)
	if err != nil {
		t.Fatal(err)
	}
	if k1 != k2 {
		t.Errorf("EnumIndexKey not stable: %v != %v", k1, k2)
	}
	k3, err := c.EnumIndexKey(et, 4)
	if err != nil {
		t.Fatal(err)
	}
	if k1 == k3 {
		t.Errorf("EnumIndexKey did not vary with ordinal")
	}
}
