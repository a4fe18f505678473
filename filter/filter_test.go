package filter_test

import (
	"testing"

	"github.com/TheBitDrifter/mask"
	"gotest.tools/v3/assert"

	"github.com/lattice-ecs/lattice/component"
	"github.com/lattice-ecs/lattice/filter"
)

func testMetas(t *testing.T) (a, b, c *component.Metadata) {
	t.Helper()
	r := component.NewRegistry()
	var err error
	a, err = r.Register(component.Definition{Name: "A"})
	assert.NilError(t, err)
	b, err = r.Register(component.Definition{Name: "B"})
	assert.NilError(t, err)
	c, err = r.Register(component.Definition{Name: "C"})
	assert.NilError(t, err)
	return a, b, c
}

func maskOf(metas ...*component.Metadata) mask.Mask {
	var m mask.Mask
	for _, meta := range metas {
		m.Mark(meta.Bit())
	}
	return m
}

func TestAllClause(t *testing.T) {
	a, b, c := testMetas(t)
	criteria := filter.Compile(filter.All(a, b))

	assert.Assert(t, criteria.Matches(maskOf(a, b)))
	assert.Assert(t, criteria.Matches(maskOf(a, b, c)))
	assert.Assert(t, !criteria.Matches(maskOf(a)))
	assert.Assert(t, !criteria.Matches(maskOf(c)))
	assert.Assert(t, !criteria.Matches(mask.Mask{}))
}

func TestAnyWithNone(t *testing.T) {
	a, b, c := testMetas(t)
	criteria := filter.Compile(filter.Any(a, b), filter.None(c))

	assert.Assert(t, !criteria.Matches(maskOf(c)))
	assert.Assert(t, !criteria.Matches(maskOf(a, c)))
	assert.Assert(t, criteria.Matches(maskOf(a)))
	assert.Assert(t, criteria.Matches(maskOf(b)))
	assert.Assert(t, !criteria.Matches(mask.Mask{}))
}

func TestEmptyClausesMatchEverything(t *testing.T) {
	a, _, _ := testMetas(t)
	criteria := filter.Compile()

	assert.Assert(t, criteria.Matches(mask.Mask{}))
	assert.Assert(t, criteria.Matches(maskOf(a)))
}

func TestEmptyClauseListsImposeNoConstraint(t *testing.T) {
	a, _, _ := testMetas(t)
	// Clauses built from zero components behave like absent clauses, not
	// like "match nothing".
	criteria := filter.Compile(filter.Any(), filter.All(), filter.None())

	assert.Assert(t, criteria.Matches(mask.Mask{}))
	assert.Assert(t, criteria.Matches(maskOf(a)))
}

func TestCombinedClauses(t *testing.T) {
	a, b, c := testMetas(t)
	criteria := filter.Compile(filter.All(a), filter.None(b, c))

	assert.Assert(t, criteria.Matches(maskOf(a)))
	assert.Assert(t, !criteria.Matches(maskOf(a, b)))
	assert.Assert(t, !criteria.Matches(maskOf(a, c)))
}
