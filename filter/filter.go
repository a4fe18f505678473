// Package filter builds the bit-vector matching criteria used by queries.
//
// A Criteria holds three masks. An entity with mask b matches when it has
// at least one bit from the any-mask, every bit from the all-mask, and no
// bit from the none-mask. A clause that was never specified imposes no
// constraint.
package filter

import (
	"github.com/TheBitDrifter/mask"

	"github.com/lattice-ecs/lattice/component"
)

// Clause is one of the three filter clauses of a query.
type Clause func(*Criteria)

// Any requires at least one of the given component types.
func Any(metas ...*component.Metadata) Clause {
	return func(c *Criteria) {
		for _, m := range metas {
			c.any.Mark(m.Bit())
			c.hasAny = true
		}
	}
}

// All requires every one of the given component types.
func All(metas ...*component.Metadata) Clause {
	return func(c *Criteria) {
		for _, m := range metas {
			c.all.Mark(m.Bit())
		}
	}
}

// None excludes entities holding any of the given component types.
func None(metas ...*component.Metadata) Clause {
	return func(c *Criteria) {
		for _, m := range metas {
			c.none.Mark(m.Bit())
			c.hasNone = true
		}
	}
}

// Criteria is the compiled form of a query's clauses. It is computed once
// at query construction and immutable afterwards.
type Criteria struct {
	any     mask.Mask
	all     mask.Mask
	none    mask.Mask
	hasAny  bool
	hasNone bool
}

// Compile combines clauses into a Criteria.
func Compile(clauses ...Clause) Criteria {
	var c Criteria
	for _, clause := range clauses {
		clause(&c)
	}
	return c
}

// Matches evaluates the criteria against an entity mask.
func (c Criteria) Matches(b mask.Mask) bool {
	if c.hasAny && !b.ContainsAny(c.any) {
		return false
	}
	if !b.ContainsAll(c.all) {
		return false
	}
	if c.hasNone && !b.ContainsNone(c.none) {
		return false
	}
	return true
}
