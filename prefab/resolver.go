package prefab

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/lattice-ecs/lattice/codec"
	"github.com/lattice-ecs/lattice/component"
)

var (
	ErrUnknownPrefab     = eris.New("prefab not registered")
	ErrAlreadyRegistered = eris.New("prefab already registered")
	ErrInheritanceCycle  = eris.New("prefab inheritance cycle")
)

type resolveState int

const (
	stateUnresolved resolveState = iota
	stateResolving
	stateResolved
)

type entry struct {
	def    Definition
	state  resolveState
	prefab *Prefab
}

// Resolver registers prefab definitions and resolves them on demand.
// Resolution is memoized: re-resolving a name returns the previously
// cached Prefab. Inheritance cycles and unknown parents are hard errors.
type Resolver struct {
	log      zerolog.Logger
	registry *component.Registry
	entries  map[string]*entry
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the resolver's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Resolver) {
		r.log = log
	}
}

// NewResolver creates a resolver backed by the given component registry.
func NewResolver(registry *component.Registry, opts ...Option) *Resolver {
	r := &Resolver{
		log:      zerolog.Nop(),
		registry: registry,
		entries:  make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a prefab definition. The canonical name must be unique.
func (r *Resolver) Register(def Definition) error {
	key := component.CanonicalKey(def.Name)
	if key == "" {
		return eris.New("prefab name is empty")
	}
	if _, ok := r.entries[key]; ok {
		return eris.Wrap(ErrAlreadyRegistered, fmt.Sprintf("prefab %q", def.Name))
	}
	r.entries[key] = &entry{def: def}
	return nil
}

// Resolve returns the resolved prefab for the given name, resolving its
// inheritance chain first. Re-entering a prefab that is currently being
// resolved means the inherit lists form a cycle.
func (r *Resolver) Resolve(name string) (*Prefab, error) {
	e, ok := r.entries[component.CanonicalKey(name)]
	if !ok {
		r.log.Error().Str("prefab", name).Msg("unresolved prefab reference")
		return nil, eris.Wrap(ErrUnknownPrefab, fmt.Sprintf("prefab %q", name))
	}
	switch e.state {
	case stateResolved:
		return e.prefab, nil
	case stateResolving:
		r.log.Error().Str("prefab", name).Msg("prefab inherits from itself")
		return nil, eris.Wrap(ErrInheritanceCycle, fmt.Sprintf("prefab %q", name))
	}

	e.state = stateResolving
	parents := make([]*Prefab, 0, len(e.def.Inherits))
	for _, parentName := range e.def.Inherits {
		parent, err := r.Resolve(parentName)
		if err != nil {
			e.state = stateUnresolved
			return nil, eris.Wrap(err, fmt.Sprintf("resolving parents of prefab %q", e.def.Name))
		}
		parents = append(parents, parent)
	}

	apps := make([]application, 0, len(e.def.Components))
	for _, compDef := range e.def.Components {
		meta, err := r.registry.Lookup(compDef.Type)
		if err != nil {
			// Unregistered component types are skipped, not fatal.
			r.log.Warn().
				Str("prefab", e.def.Name).
				Str("component", compDef.Type).
				Msg("prefab references unregistered component, skipping")
			continue
		}
		apps = append(apps, application{
			meta:      meta,
			defaults:  codec.Clone(compDef.Properties),
			overwrite: compDef.Overwrite,
		})
	}

	e.prefab = &Prefab{
		name:    e.def.Name,
		parents: parents,
		apps:    apps,
	}
	e.state = stateResolved
	return e.prefab, nil
}
