package ecsgrid

import (
	"fmt"
	"reflect"

	"github.com/ecsgrid/ecsgrid/internal/chunkpool"
)

// PoolFullError is raised when the chunked allocator has exhausted every
// chunk id its IdSchema can represent (spec.md §7). Re-exported so callers
// outside this module can type-assert against it without reaching into
// internal/chunkpool.
type PoolFullError = chunkpool.PoolFullError

// NotFoundError is raised when Open cannot resolve a registered
// implementation name (spec.md §6, §7).
type NotFoundError struct {
	Name string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("ecsgrid: no implementation registered under %q", e.Name)
}

// InvalidComponentError is raised when CreateEntity receives two component
// values of the same type.
type InvalidComponentError struct {
	Type reflect.Type
}

func (e InvalidComponentError) Error() string {
	return fmt.Sprintf("ecsgrid: duplicate component type %s in CreateEntity", e.Type)
}

// ComponentNotFoundError is raised by ComponentType[T].Get when the
// component is absent from the entity's composition.
type ComponentNotFoundError struct {
	Type reflect.Type
}

func (e ComponentNotFoundError) Error() string {
	return fmt.Sprintf("ecsgrid: component %s not present on entity", e.Type)
}

// ComponentExistsError is returned by Entity.Add when the entity already
// carries a component of the given type.
type ComponentExistsError struct {
	Type reflect.Type
}

func (e ComponentExistsError) Error() string {
	return fmt.Sprintf("ecsgrid: component %s already present on entity", e.Type)
}

// DeletedEntityError is the sentinel returned by mutating operations on an
// entity whose composition pointer has been nulled (spec.md §7). It is a
// distinguished value so callers can compare with errors.Is.
var DeletedEntityError = fmt.Errorf("ecsgrid: operation on deleted entity")

// StorageClosedError is returned once World.Close has released pool
// resources and an operation is attempted afterward.
var StorageClosedError = fmt.Errorf("ecsgrid: world is closed")
