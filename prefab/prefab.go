// Package prefab resolves named, recursively inheriting entity templates
// and applies them to entities in the store.
package prefab

import (
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/lattice-ecs/lattice/codec"
	"github.com/lattice-ecs/lattice/component"
	"github.com/lattice-ecs/lattice/store"
	"github.com/lattice-ecs/lattice/types"
)

// Definition is the raw, unresolved form of a prefab template.
type Definition struct {
	// Name identifies the prefab; lookups are case-normalized.
	Name string
	// Inherits lists parent prefab names, applied before this prefab's
	// own components, in order.
	Inherits []string
	// Components are the prefab's own component definitions, applied in
	// declaration order.
	Components []ComponentDef
}

// ComponentDef is one component entry of a prefab definition.
type ComponentDef struct {
	// Type names the registered component type.
	Type string
	// Properties are the template defaults merged over the type's own
	// defaults at instantiation.
	Properties map[string]any
	// Overwrite replaces an existing single instance instead of skipping
	// the definition.
	Overwrite bool
}

// application is one resolved component-application step.
type application struct {
	meta      *component.Metadata
	defaults  map[string]any
	overwrite bool
}

// Prefab is the resolved, memoized form of a Definition. Parents are
// resolved prefabs, not raw names.
type Prefab struct {
	name    string
	parents []*Prefab
	apps    []application
}

// Name returns the prefab's registered name.
func (p *Prefab) Name() string { return p.name }

// Parents returns the resolved parent prefabs in inheritance order.
func (p *Prefab) Parents() []*Prefab { return p.parents }

// applyContext carries state shared across one whole Apply walk. List
// overrides are consumed positionally in application order, parents
// first.
type applyContext struct {
	listCursor map[types.ComponentID]int
}

// Apply stamps the prefab onto the target entity: every parent's
// component list first, in inheritance order, then the prefab's own list
// in declaration order, so later entries can override earlier ones.
// instanceProps supplies per-instance overrides as described by
// ComponentDef merging rules.
func (p *Prefab) Apply(st *store.Store, id types.EntityID, instanceProps map[string]any) error {
	ctx := &applyContext{listCursor: make(map[types.ComponentID]int)}
	return p.apply(st, id, instanceProps, ctx)
}

func (p *Prefab) apply(st *store.Store, id types.EntityID, props map[string]any, ctx *applyContext) error {
	for _, parent := range p.parents {
		if err := parent.apply(st, id, props, ctx); err != nil {
			return err
		}
	}
	for _, app := range p.apps {
		if err := applyOne(st, id, app, props, ctx); err != nil {
			return err
		}
	}
	return nil
}

func applyOne(st *store.Store, id types.EntityID, app application, props map[string]any, ctx *applyContext) error {
	meta := app.meta

	structured := structuredOverride(app, props, ctx)
	var flat map[string]any
	if meta.Multiplicity() == types.Single {
		flat = flatOverride(meta, props)
	}
	// Structured overrides win over flat ones on conflicting fields.
	overrides := codec.Merge(flat, structured)
	merged := codec.Merge(app.defaults, overrides)

	if meta.Multiplicity() == types.List {
		ctx.listCursor[meta.ID()]++
	}

	if meta.Multiplicity() == types.Single && !meta.MultiplicityExempt() && st.Has(id, meta) {
		if !app.overwrite {
			return nil
		}
		// The store's attach replaces the existing instance and fires its
		// destroyed notification.
	}

	if _, err := st.Attach(id, meta, merged); err != nil {
		return eris.Wrap(err, fmt.Sprintf("failed to apply component %q", meta.Name()))
	}
	return nil
}

// structuredOverride extracts the override addressed to this application
// from the instantiation properties: a same-named top-level key holds a
// map for single types, a positional list for list types, and a map
// indexed by key-field value for keyed types.
func structuredOverride(app application, props map[string]any, ctx *applyContext) map[string]any {
	meta := app.meta
	raw, ok := props[meta.Key()]
	if !ok {
		return nil
	}
	switch meta.Multiplicity() {
	case types.Single:
		m, _ := raw.(map[string]any)
		return m
	case types.List:
		list, ok := raw.([]any)
		if !ok {
			return nil
		}
		i := ctx.listCursor[meta.ID()]
		if i >= len(list) {
			return nil
		}
		m, _ := list[i].(map[string]any)
		return m
	case types.Keyed:
		byKey, ok := raw.(map[string]any)
		if !ok {
			return nil
		}
		// The template props may omit the key field, in which case the
		// instance's effective key comes from the type's defaults.
		keyVal, ok := app.defaults[meta.KeyField()]
		if !ok {
			keyVal, ok = meta.Defaults()[meta.KeyField()]
		}
		if !ok {
			return nil
		}
		m, _ := byKey[fmt.Sprint(keyVal)].(map[string]any)
		return m
	}
	return nil
}

// flatOverride collects top-level instantiation properties whose names
// match fields of the type's default-property schema.
func flatOverride(meta *component.Metadata, props map[string]any) map[string]any {
	var out map[string]any
	for k := range meta.Defaults() {
		v, ok := props[k]
		if !ok {
			continue
		}
		if out == nil {
			out = make(map[string]any)
		}
		out[k] = v
	}
	return out
}
