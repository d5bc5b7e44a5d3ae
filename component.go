package ecsgrid

import (
	"reflect"

	"github.com/TheBitDrifter/bark"
)

// Component is a type-level token identifying one component type. It
// carries no value; it is what Entity.Has and Entity.Remove consume to name
// the type being tested or removed. ComponentType[T] is the public
// implementation; CreateEntityAs uses an unexported one internally.
type Component interface {
	rtype() reflect.Type
}

// Component1 through Component6 would be the code-generated shape of
// spec.md §4.5's variadic select(type1..typeK); this codebase instead
// generalizes with a single generic ComponentType[T], since Go generics let the
// "k typed tuple iterators" spec.md §9 calls for be expressed as one type
// parameterized by arity-specific helper functions in query.go rather than
// six hand-written structs.

// ComponentType is a reusable, process-wide identity token for a component
// type T. It is safe to share across independent Worlds: a World resolves
// its own dense class id for T the first time the token is used against it.
type ComponentType[T any] struct {
	typ reflect.Type
}

// NewComponent mints a token for component type T. Call it once per type,
// typically into a package-level variable, exactly as the teacher repo's
// FactoryNewComponent[T] is used.
func NewComponent[T any]() ComponentType[T] {
	var zero T
	return ComponentType[T]{typ: reflect.TypeOf(zero)}
}

func (c ComponentType[T]) rtype() reflect.Type { return c.typ }

// Type exposes the underlying reflect.Type, for building the type-set
// argument to World.FindComponents.
func (c ComponentType[T]) Type() reflect.Type { return c.typ }

// Value pairs this component type with a concrete value, for use as an
// argument to World.CreateEntity or Entity.Add. The value is
// boxed once here so the pointer Get/GetSafe hand back is the same memory
// the column stores, and mutations through it are visible immediately.
func (c ComponentType[T]) Value(v T) ComponentValue {
	return ComponentValue{ct: c, value: &v}
}

// Zero pairs this component type with its zero value.
func (c ComponentType[T]) Zero() ComponentValue {
	var v T
	return ComponentValue{ct: c, value: &v}
}

// Has reports whether e's composition carries this component type.
func (c ComponentType[T]) Has(e Entity) bool {
	return e.Has(c)
}

// Get returns a pointer to T's value on e's current slot. It panics if e
// does not carry the component; use GetSafe to check first.
func (c ComponentType[T]) Get(e Entity) *T {
	v, ok := c.GetSafe(e)
	if !ok {
		panic(bark.AddTrace(ComponentNotFoundError{Type: c.typ}))
	}
	return v
}

// GetSafe returns a pointer to T's value on e's current slot, and whether
// the component is present.
func (c ComponentType[T]) GetSafe(e Entity) (*T, bool) {
	raw, ok := e.get(c)
	if !ok || raw == nil {
		return nil, false
	}
	ptr, ok := raw.(*T)
	return ptr, ok
}

// ComponentValue is a component type paired with a concrete boxed value,
// produced by ComponentType[T].Value and consumed by World.CreateEntity.
type ComponentValue struct {
	ct    Component
	value any // always *T for the T behind ct
}

// Type returns the component type this value was created for.
func (cv ComponentValue) Type() Component { return cv.ct }
