package query

import (
	"github.com/google/uuid"

	"github.com/lattice-ecs/lattice/types"
)

// Observer is a pair of membership-transition callbacks. Either callback
// may be nil.
type Observer struct {
	OnEnter func(types.EntityID)
	OnExit  func(types.EntityID)
}

// SubscribeOptions controls subscription behavior.
type SubscribeOptions struct {
	// EmitCurrent invokes OnEnter for every entity already in the cache
	// before Subscribe returns.
	EmitCurrent bool
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	id       uuid.UUID
	query    *Query
	observer Observer
	closed   bool
}

// Subscribe registers an observer for the query's enter/exit transitions.
// Observers are notified in subscription order.
func (q *Query) Subscribe(observer Observer, opts SubscribeOptions) *Subscription {
	sub := &Subscription{
		id:       uuid.New(),
		query:    q,
		observer: observer,
	}
	q.subs = append(q.subs, sub)
	if opts.EmitCurrent {
		for _, id := range q.Snapshot(true) {
			sub.invoke(sub.observer.OnEnter, id, "enter")
		}
	}
	return sub
}

// ID returns the subscription's unique identifier.
func (s *Subscription) ID() uuid.UUID { return s.id }

// Closed reports whether the subscription has been unsubscribed.
func (s *Subscription) Closed() bool { return s.closed }

// Unsubscribe deregisters the observer. Calling it again is a no-op.
func (s *Subscription) Unsubscribe() {
	if s.closed {
		return
	}
	s.closed = true
	for i, sub := range s.query.subs {
		if sub == s {
			s.query.subs = append(s.query.subs[:i], s.query.subs[i+1:]...)
			break
		}
	}
}

// Close unsubscribes every active observer and drops the cache. Used by
// the world on shutdown; further transitions are not observed.
func (q *Query) Close() {
	for _, sub := range q.subs {
		sub.closed = true
	}
	q.subs = nil
	q.cached = nil
	q.index = make(map[types.EntityID]int)
}

// invoke runs a single observer callback with panic isolation.
func (s *Subscription) invoke(fn func(types.EntityID), id types.EntityID, transition string) {
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.query.log.Error().
				Str("subscription_id", s.id.String()).
				Str("transition", transition).
				Uint64("entity_id", uint64(id)).
				Interface("panic", r).
				Msg("query observer panicked")
		}
	}()
	fn(id)
}
