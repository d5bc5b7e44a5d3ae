package ecsgrid

import "testing"

func TestGetOrCreateCanonicalizesArgumentOrder(t *testing.T) {
	w := NewWorld(Options{})
	e1, err := w.CreateEntity(posComp.Value(Position{}), velComp.Value(Velocity{}))
	if err != nil {
		t.Fatal(err)
	}
	e2, err := w.CreateEntity(velComp.Value(Velocity{}), posComp.Value(Position{}))
	if err != nil {
		t.Fatal(err)
	}

	ent1, ent2 := e1.(*entity), e2.(*entity)
	if ent1.comp != ent2.comp {
		t.Error("CreateEntity with component args in different order produced different compositions")
	}
}

func TestAddRejectsAlreadyPresentType(t *testing.T) {
	w := NewWorld(Options{})
	e, err := w.CreateEntity(posComp.Value(Position{}))
	if err != nil {
		t.Fatal(err)
	}
	// Adding a type the entity already carries fails with
	// ComponentExistsError rather than migrating — migration is for
	// actually changing an entity's type-set, not overwriting in place.
	err = e.Add(posComp.Value(Position{X: 9}))
	if _, ok := err.(ComponentExistsError); !ok {
		t.Fatalf("Add of an already-present type returned %T (%v), want ComponentExistsError", err, err)
	}
	if posComp.Get(e).X == 9 {
		t.Error("Add of an already-present component type overwrote the existing value")
	}
}

func TestFindComponentsUnknownTypeReturnsEmpty(t *testing.T) {
	w := NewWorld(Options{})
	if _, err := w.CreateEntity(posComp.Value(Position{})); err != nil {
		t.Fatal(err)
	}
	q, err := w.FindComponents(healthComp.Type())
	if err != nil {
		t.Fatal(err)
	}
	if q.Count() != 0 {
		t.Errorf("FindComponents(Health) over a world with no Health entities = %d, want 0", q.Count())
	}
}
