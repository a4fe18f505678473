// Package world wires the component registry, entity store, query engine
// and prefab resolver into a single façade. A World and everything it
// owns are single-threaded by contract: every mutating operation
// completes its full effect, query updates and observer notifications
// included, before it returns.
package world

import (
	"os"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/lattice-ecs/lattice/component"
	"github.com/lattice-ecs/lattice/filter"
	ecslog "github.com/lattice-ecs/lattice/log"
	"github.com/lattice-ecs/lattice/prefab"
	"github.com/lattice-ecs/lattice/query"
	"github.com/lattice-ecs/lattice/store"
	"github.com/lattice-ecs/lattice/types"
)

var ErrWorldClosed = eris.New("world is shut down")

// World owns the entity identifier space, the registered component types
// and prefabs, and the list of live queries.
type World struct {
	id        uuid.UUID
	namespace string
	log       zerolog.Logger

	registry *component.Registry
	store    *store.Store
	resolver *prefab.Resolver
	queries  []*query.Query

	closed bool
}

// Option configures a World.
type Option func(*World)

// WithNamespace overrides the namespace from the environment config.
func WithNamespace(namespace string) Option {
	return func(w *World) {
		w.namespace = namespace
	}
}

// WithLogger overrides the environment-configured logger.
func WithLogger(log zerolog.Logger) Option {
	return func(w *World) {
		w.log = log
	}
}

// New creates a world configured from the environment and the given
// options.
func New(opts ...Option) (*World, error) {
	cfg := LoadConfig()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, eris.Wrapf(err, "invalid log level %q", cfg.LogLevel)
	}
	var out = zerolog.New(os.Stderr)
	if cfg.LogPretty {
		out = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	base := out.Level(level).With().Timestamp().Logger()

	w := &World{
		id:        uuid.New(),
		namespace: cfg.Namespace,
		log:       base,
		registry:  component.NewRegistry(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.log = *ecslog.CreateWorldLogger(&w.log, w.namespace)
	w.store = store.New(store.WithLogger(w.log))
	w.resolver = prefab.NewResolver(w.registry, prefab.WithLogger(w.log))

	w.log.Info().Str("world_id", w.id.String()).Msg("world created")
	return w, nil
}

// ID returns the world's unique instance identifier.
func (w *World) ID() uuid.UUID { return w.id }

// Namespace returns the world's namespace.
func (w *World) Namespace() string { return w.namespace }

// Logger returns the world's logger.
func (w *World) Logger() *zerolog.Logger { return &w.log }

// Registry returns the component registry.
func (w *World) Registry() *component.Registry { return w.registry }

// Store returns the entity store.
func (w *World) Store() *store.Store { return w.store }

// RegisterComponent registers a component type with the world.
func (w *World) RegisterComponent(def component.Definition) (*component.Metadata, error) {
	if w.closed {
		return nil, ErrWorldClosed
	}
	meta, err := w.registry.Register(def)
	if err != nil {
		return nil, err
	}
	w.log.Debug().
		Str("component", meta.Name()).
		Int("component_id", int(meta.ID())).
		Msg("component registered")
	return meta, nil
}

// LogState logs the world's registered component types at the given
// level, through the namespaced world logger.
func (w *World) LogState(level zerolog.Level) {
	ecslog.World(&w.log, w.registry, level)
}

// RegisterPrefab registers a prefab definition with the world.
func (w *World) RegisterPrefab(def prefab.Definition) error {
	if w.closed {
		return ErrWorldClosed
	}
	return w.resolver.Register(def)
}

// NewEntity mints a live entity with no components.
func (w *World) NewEntity() (types.EntityID, error) {
	if w.closed {
		return 0, ErrWorldClosed
	}
	return w.store.NewEntity(), nil
}

// Attach attaches a component to an entity by type name. An unregistered
// type name is logged and skipped, returning a nil instance and no error.
func (w *World) Attach(id types.EntityID, typeName string, props map[string]any) (*store.Instance, error) {
	if w.closed {
		return nil, ErrWorldClosed
	}
	meta, err := w.registry.Lookup(typeName)
	if err != nil {
		w.log.Warn().
			Str("component", typeName).
			Uint64("entity_id", uint64(id)).
			Msg("attach of unregistered component skipped")
		return nil, nil
	}
	return w.store.Attach(id, meta, props)
}

// Detach removes the given instance from the entity.
func (w *World) Detach(id types.EntityID, inst *store.Instance) error {
	if w.closed {
		return ErrWorldClosed
	}
	return w.store.Detach(id, inst)
}

// Destroy destroys the entity and all its components.
func (w *World) Destroy(id types.EntityID) error {
	if w.closed {
		return ErrWorldClosed
	}
	return w.store.Destroy(id)
}

// NewQuery creates a live query from the given filter clauses, wires it
// into the store's composition-change signal, and fills its cache.
// Queries observe composition changes in the order they were created.
func (w *World) NewQuery(clauses ...filter.Clause) (*query.Query, error) {
	if w.closed {
		return nil, ErrWorldClosed
	}
	queryLog := ecslog.CreateQueryLogger(&w.log, uuid.NewString())
	q := query.New(w.store, filter.Compile(clauses...), query.WithLogger(*queryLog))
	w.store.OnCompositionChange(func(id types.EntityID) {
		q.Candidate(id)
	})
	q.Refresh()
	w.queries = append(w.queries, q)
	return q, nil
}

// Instantiate resolves the named prefab and stamps it onto a fresh
// entity, merging the given per-instance property overrides. On a failed
// application the partially built entity is destroyed.
func (w *World) Instantiate(prefabName string, props map[string]any) (types.EntityID, error) {
	if w.closed {
		return 0, ErrWorldClosed
	}
	p, err := w.resolver.Resolve(prefabName)
	if err != nil {
		return 0, err
	}
	id := w.store.NewEntity()
	if err := p.Apply(w.store, id, props); err != nil {
		_ = w.store.Destroy(id)
		return 0, err
	}
	return id, nil
}

// Shutdown destroys every live entity, closes every query subscription,
// and releases the queries. Further use of the world is an error.
// Shutdown is idempotent.
func (w *World) Shutdown() {
	if w.closed {
		return
	}
	var live []types.EntityID
	w.store.EachLiveEntity(func(id types.EntityID) bool {
		live = append(live, id)
		return true
	})
	for _, id := range live {
		_ = w.store.Destroy(id)
	}
	for _, q := range w.queries {
		q.Close()
	}
	w.queries = nil
	w.closed = true
	w.log.Info().Str("world_id", w.id.String()).Msg("world shut down")
}
