/*
Package ecsgrid is an Entity-Component-System (ECS) core for games and
simulations.

It groups entities by the exact set of component types they carry (an
"archetype" or "composition"), stores component instances in chunked
columnar arenas for linear iteration, and allocates stable 32-bit ids for
entities in a way that survives concurrent create/destroy traffic.

Core Concepts:

  - Entity: a handle identified by a 32-bit id, threaded into one chunk of
    one composition.
  - Component: a plain data value attached to an entity, identified by its
    runtime type.
  - Composition: the unique class of entities sharing exactly one set of
    component types.
  - Query: a way to find every entity whose composition is a superset of a
    requested component set.

Basic usage:

	world := ecsgrid.NewWorld(ecsgrid.Options{})

	position := ecsgrid.NewComponent[Position]()
	velocity := ecsgrid.NewComponent[Velocity]()

	e, _ := world.CreateEntity(position.Value(Position{}), velocity.Value(Velocity{1, 0}))

	q, _ := world.FindComponents(position.Type(), velocity.Type())
	ecsgrid.Each2(q, position, velocity, func(e ecsgrid.Entity, pos *Position, vel *Velocity) bool {
		pos.X += vel.X
		pos.Y += vel.Y
		return true
	})

The allocator, composition registry, and entity record are the three layers
documented in DESIGN.md; everything above them (builders, service-loading,
benchmarking harnesses) is a thin convenience layer, not the core contract.
*/
package ecsgrid
