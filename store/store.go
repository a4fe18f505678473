package store

import (
	"fmt"
	"sort"

	"github.com/TheBitDrifter/mask"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/lattice-ecs/lattice/codec"
	"github.com/lattice-ecs/lattice/component"
	"github.com/lattice-ecs/lattice/types"
)

var (
	ErrEntityNotFound      = eris.New("entity does not exist")
	ErrEntityDestroyed     = eris.New("entity is destroyed")
	ErrInstanceNotAttached = eris.New("instance not attached to entity")
	ErrMissingKeyField     = eris.New("keyed component is missing its key field")
)

// Hooks are the notification callbacks the store fires on lifecycle
// transitions. Nil callbacks are skipped.
type Hooks struct {
	// OnAttach fires after an instance is stored and the entity's mask is
	// updated, before the composition change is signaled.
	OnAttach func(types.EntityID, *Instance)
	// OnInstanceDestroyed fires for every instance that stops being
	// attached: detach, replacement, and entity destruction.
	OnInstanceDestroyed func(types.EntityID, *Instance)
	// OnEntityDestroyed fires once per destroyed entity, after the final
	// composition change.
	OnEntityDestroyed func(types.EntityID)
}

type record struct {
	mask      mask.Mask
	slots     map[types.ComponentID]*slot
	destroyed bool
}

// Store holds every entity's component mask and component records. It is
// exclusively owned by a single world; no concurrent access is supported.
type Store struct {
	log      zerolog.Logger
	hooks    Hooks
	entities map[types.EntityID]*record
	order    []types.EntityID
	// observers are composition-change callbacks, invoked in registration
	// order after every attach, detach, and destroy.
	observers []func(types.EntityID)
	nextID    types.EntityID
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) {
		s.log = log
	}
}

// WithHooks sets the store's lifecycle hooks.
func WithHooks(hooks Hooks) Option {
	return func(s *Store) {
		s.hooks = hooks
	}
}

// New creates an empty entity store.
func New(opts ...Option) *Store {
	s := &Store{
		log:      zerolog.Nop(),
		entities: make(map[types.EntityID]*record),
		nextID:   1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnCompositionChange registers a callback fired whenever an entity's
// attached component set changes. Callbacks run in registration order.
func (s *Store) OnCompositionChange(fn func(types.EntityID)) {
	s.observers = append(s.observers, fn)
}

// NewEntity mints a live entity with an empty mask. IDs are never reused.
func (s *Store) NewEntity() types.EntityID {
	id := s.nextID
	s.nextID++
	s.entities[id] = &record{slots: make(map[types.ComponentID]*slot)}
	s.order = append(s.order, id)
	return id
}

// Alive reports whether the entity exists and has not been destroyed.
func (s *Store) Alive(id types.EntityID) bool {
	rec, ok := s.entities[id]
	return ok && !rec.destroyed
}

// Mask returns the entity's component bit-vector.
func (s *Store) Mask(id types.EntityID) (mask.Mask, error) {
	rec, ok := s.entities[id]
	if !ok {
		return mask.Mask{}, eris.Wrap(ErrEntityNotFound, fmt.Sprintf("entity %d", id))
	}
	return rec.mask, nil
}

// Has reports whether the entity currently holds at least one instance of
// the given component type.
func (s *Store) Has(id types.EntityID, meta *component.Metadata) bool {
	rec, ok := s.entities[id]
	if !ok {
		return false
	}
	var bit mask.Mask
	bit.Mark(meta.Bit())
	return rec.mask.ContainsAll(bit)
}

// Attach constructs a new instance of the given type (defaults
// deep-copied, then shallow-overridden by props) and stores it on the
// entity according to the type's multiplicity. Attaching over an existing
// single instance or keyed entry detaches the previous instance first and
// fires its destroyed notification.
func (s *Store) Attach(
	id types.EntityID, meta *component.Metadata, props map[string]any,
) (*Instance, error) {
	rec, err := s.liveRecord(id)
	if err != nil {
		return nil, err
	}

	payload := codec.Clone(meta.Defaults())
	if payload == nil {
		payload = make(map[string]any, len(props))
	}
	for k, v := range codec.Clone(props) {
		payload[k] = v
	}

	inst := &Instance{meta: meta, owner: id, props: payload, live: true}
	if meta.Multiplicity() == types.Keyed {
		if _, ok := inst.Key(); !ok {
			return nil, eris.Wrap(ErrMissingKeyField,
				fmt.Sprintf("component %q needs field %q", meta.Name(), meta.KeyField()))
		}
	}

	sl, ok := rec.slots[meta.ID()]
	if !ok {
		sl = newSlot(meta)
		rec.slots[meta.ID()] = sl
	}
	if displaced := sl.put(inst); displaced != nil {
		displaced.live = false
		s.fireInstanceDestroyed(id, displaced)
	}
	rec.mask.Mark(meta.Bit())

	s.log.Debug().
		Uint64("entity_id", uint64(id)).
		Str("component", meta.Name()).
		Msg("component attached")

	if s.hooks.OnAttach != nil {
		s.hooks.OnAttach(id, inst)
	}
	s.signalCompositionChange(id)
	return inst, nil
}

// Detach removes the given instance from the entity. Passing an instance
// the entity does not own is a contract violation.
func (s *Store) Detach(id types.EntityID, inst *Instance) error {
	rec, err := s.liveRecord(id)
	if err != nil {
		return err
	}
	if inst == nil || !inst.live || inst.owner != id {
		return eris.Wrap(ErrInstanceNotAttached, fmt.Sprintf("entity %d", id))
	}

	sl, ok := rec.slots[inst.meta.ID()]
	if !ok || !sl.remove(inst) {
		return eris.Wrap(ErrInstanceNotAttached,
			fmt.Sprintf("entity %d has no such %q instance", id, inst.meta.Name()))
	}
	if sl.empty() {
		delete(rec.slots, inst.meta.ID())
		rec.mask.Unmark(inst.meta.Bit())
	}
	inst.live = false

	s.log.Debug().
		Uint64("entity_id", uint64(id)).
		Str("component", inst.meta.Name()).
		Msg("component detached")

	s.fireInstanceDestroyed(id, inst)
	s.signalCompositionChange(id)
	return nil
}

// Destroy detaches and destroys every component on the entity, clears its
// mask, and marks it destroyed. Destroying an already-destroyed entity is
// a no-op. Exactly one composition change is signaled.
func (s *Store) Destroy(id types.EntityID) error {
	rec, ok := s.entities[id]
	if !ok {
		return eris.Wrap(ErrEntityNotFound, fmt.Sprintf("entity %d", id))
	}
	if rec.destroyed {
		return nil
	}

	// Snapshot before tearing down so hook-driven mutation cannot skip or
	// double-visit entries.
	ids := make([]types.ComponentID, 0, len(rec.slots))
	for compID := range rec.slots {
		ids = append(ids, compID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	var doomed []*Instance
	for _, compID := range ids {
		doomed = append(doomed, rec.slots[compID].instances()...)
	}

	rec.slots = make(map[types.ComponentID]*slot)
	rec.mask = mask.Mask{}
	rec.destroyed = true

	for _, inst := range doomed {
		inst.live = false
		s.fireInstanceDestroyed(id, inst)
	}

	s.log.Debug().
		Uint64("entity_id", uint64(id)).
		Int("components", len(doomed)).
		Msg("entity destroyed")

	s.signalCompositionChange(id)
	if s.hooks.OnEntityDestroyed != nil {
		s.hooks.OnEntityDestroyed(id)
	}
	return nil
}

// Get returns the entity's single instance of the given type. For list
// and keyed types it returns the first stored instance.
func (s *Store) Get(id types.EntityID, meta *component.Metadata) (*Instance, bool) {
	all := s.GetAll(id, meta)
	if len(all) == 0 {
		return nil, false
	}
	return all[0], true
}

// GetAll returns every instance of the given type on the entity, in
// storage order.
func (s *Store) GetAll(id types.EntityID, meta *component.Metadata) []*Instance {
	rec, ok := s.entities[id]
	if !ok {
		return nil
	}
	sl, ok := rec.slots[meta.ID()]
	if !ok {
		return nil
	}
	return sl.instances()
}

// GetByKey returns the keyed instance stored under key.
func (s *Store) GetByKey(id types.EntityID, meta *component.Metadata, key string) (*Instance, bool) {
	rec, ok := s.entities[id]
	if !ok {
		return nil, false
	}
	sl, ok := rec.slots[meta.ID()]
	if !ok || sl.keyed == nil {
		return nil, false
	}
	inst, ok := sl.keyed[key]
	return inst, ok
}

// EachLiveEntity visits every live entity in creation order. Return false
// from the callback to stop.
func (s *Store) EachLiveEntity(fn func(types.EntityID) bool) {
	for _, id := range s.order {
		if !s.Alive(id) {
			continue
		}
		if !fn(id) {
			return
		}
	}
}

// LiveCount returns the number of live entities.
func (s *Store) LiveCount() int {
	n := 0
	for _, id := range s.order {
		if s.Alive(id) {
			n++
		}
	}
	return n
}

func (s *Store) liveRecord(id types.EntityID) (*record, error) {
	rec, ok := s.entities[id]
	if !ok {
		return nil, eris.Wrap(ErrEntityNotFound, fmt.Sprintf("entity %d", id))
	}
	if rec.destroyed {
		return nil, eris.Wrap(ErrEntityDestroyed, fmt.Sprintf("entity %d", id))
	}
	return rec, nil
}

func (s *Store) fireInstanceDestroyed(id types.EntityID, inst *Instance) {
	if s.hooks.OnInstanceDestroyed != nil {
		s.hooks.OnInstanceDestroyed(id, inst)
	}
}

func (s *Store) signalCompositionChange(id types.EntityID) {
	for _, fn := range s.observers {
		fn(id)
	}
}
