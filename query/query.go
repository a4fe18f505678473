// Package query maintains live caches of entities whose component masks
// satisfy a filter criteria. Caches are updated incrementally: the owning
// world routes every composition change to Candidate, and observers are
// notified only on membership transitions.
package query

import (
	"github.com/rs/zerolog"

	"github.com/lattice-ecs/lattice/filter"
	"github.com/lattice-ecs/lattice/store"
	"github.com/lattice-ecs/lattice/types"
)

// Query tracks the set of live entities matching a compiled criteria.
type Query struct {
	log      zerolog.Logger
	criteria filter.Criteria
	store    *store.Store
	cached   []types.EntityID
	index    map[types.EntityID]int
	subs     []*Subscription
}

// Option configures a Query.
type Option func(*Query)

// WithLogger sets the query's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(q *Query) {
		q.log = log
	}
}

// New creates a query over the given store. The caller is responsible for
// wiring the query into the store's composition-change signal and for the
// initial Refresh; the world façade does both.
func New(st *store.Store, criteria filter.Criteria, opts ...Option) *Query {
	q := &Query{
		log:      zerolog.Nop(),
		criteria: criteria,
		store:    st,
		index:    make(map[types.EntityID]int),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Candidate re-evaluates one entity against the criteria, updating the
// cache and firing enter/exit notifications if its membership changed.
// The returned value is the entity's current membership.
func (q *Query) Candidate(id types.EntityID) bool {
	_, present := q.index[id]

	match := false
	if q.store.Alive(id) {
		if m, err := q.store.Mask(id); err == nil {
			match = q.criteria.Matches(m)
		}
	}
	if match == present {
		return present
	}

	if match {
		q.index[id] = len(q.cached)
		q.cached = append(q.cached, id)
		q.notify(id, true)
	} else {
		q.removeFromCache(id)
		q.notify(id, false)
	}
	return match
}

// Refresh rebuilds the cache by re-evaluating every cached entity and
// every live entity in the store. O(entities); used at construction or on
// explicit request, never on the mutation path.
func (q *Query) Refresh() {
	for _, id := range q.Snapshot(true) {
		q.Candidate(id)
	}
	q.store.EachLiveEntity(func(id types.EntityID) bool {
		q.Candidate(id)
		return true
	})
}

// Contains reports current cache membership without re-evaluating.
func (q *Query) Contains(id types.EntityID) bool {
	_, ok := q.index[id]
	return ok
}

// Count returns the number of currently matching entities.
func (q *Query) Count() int {
	return len(q.cached)
}

// Snapshot returns the matching entities in cache order. With immutable
// set it returns a point-in-time copy; otherwise the live backing slice,
// which the caller must not structurally mutate.
func (q *Query) Snapshot(immutable bool) []types.EntityID {
	if !immutable {
		return q.cached
	}
	out := make([]types.EntityID, len(q.cached))
	copy(out, q.cached)
	return out
}

func (q *Query) removeFromCache(id types.EntityID) {
	idx, ok := q.index[id]
	if !ok {
		return
	}
	q.cached = append(q.cached[:idx], q.cached[idx+1:]...)
	delete(q.index, id)
	for i := idx; i < len(q.cached); i++ {
		q.index[q.cached[i]] = i
	}
}

// notify informs every active observer of a transition, in subscription
// order. Each callback runs inside isolated error handling so one
// misbehaving observer cannot suppress another's notification or corrupt
// the cache.
func (q *Query) notify(id types.EntityID, entered bool) {
	subs := make([]*Subscription, len(q.subs))
	copy(subs, q.subs)
	for _, sub := range subs {
		if sub.closed {
			continue
		}
		if entered {
			sub.invoke(sub.observer.OnEnter, id, "enter")
		} else {
			sub.invoke(sub.observer.OnExit, id, "exit")
		}
	}
}
