/*
Package lattice is an in-process entity-component store.

Typed data records ("components") attach to opaque identifiers
("entities"). Queries with any/all/none bit-vector filters maintain a
live, incrementally updated cache of matching entities and notify
observers on membership transitions. Prefabs stamp out entities from
named, recursively inheriting templates with per-instance overrides.

Core packages:

  - component: component type definitions and the bit-index registry.
  - store: per-entity component masks and single/list/keyed storage.
  - filter + query: compiled match criteria and live query caches.
  - prefab: memoized template resolution and application.
  - world: the façade wiring all of the above together.

Basic usage:

	w, _ := world.New()

	posDef, _ := component.FromStruct[Position]()
	velDef, _ := component.FromStruct[Velocity]()
	pos, _ := w.RegisterComponent(posDef)
	vel, _ := w.RegisterComponent(velDef)

	movers, _ := w.NewQuery(filter.All(pos, vel))

	e, _ := w.NewEntity()
	w.Attach(e, "Position", map[string]any{"x": 4.0})
	w.Attach(e, "Velocity", nil)

	for _, id := range movers.Snapshot(true) {
		// id matches both Position and Velocity
		_ = id
	}

Everything a World owns is single-threaded by contract: every mutating
operation completes its whole effect, query updates and observer
notifications included, before returning. Callers needing parallelism
shard by world or serialize externally.
*/
package lattice
