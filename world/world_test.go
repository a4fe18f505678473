package world_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"gotest.tools/v3/assert"

	"github.com/lattice-ecs/lattice/component"
	"github.com/lattice-ecs/lattice/filter"
	"github.com/lattice-ecs/lattice/prefab"
	"github.com/lattice-ecs/lattice/query"
	"github.com/lattice-ecs/lattice/types"
	"github.com/lattice-ecs/lattice/world"
)

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (Position) Name() string { return "Position" }

type Velocity struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

func (Velocity) Name() string { return "Velocity" }

func newWorld(t *testing.T) *world.World {
	t.Helper()
	w, err := world.New(world.WithLogger(zerolog.Nop()), world.WithNamespace("test"))
	assert.NilError(t, err)
	t.Cleanup(w.Shutdown)
	return w
}

func registerMovement(t *testing.T, w *world.World) (pos, vel *component.Metadata) {
	t.Helper()
	posDef, err := component.FromStruct[Position]()
	assert.NilError(t, err)
	velDef, err := component.FromStruct[Velocity]()
	assert.NilError(t, err)
	pos, err = w.RegisterComponent(posDef)
	assert.NilError(t, err)
	vel, err = w.RegisterComponent(velDef)
	assert.NilError(t, err)
	return pos, vel
}

func TestQueryTracksComposition(t *testing.T) {
	w := newWorld(t)
	pos, vel := registerMovement(t, w)

	q, err := w.NewQuery(filter.All(pos, vel))
	assert.NilError(t, err)

	e, err := w.NewEntity()
	assert.NilError(t, err)
	_, err = w.Attach(e, "Position", nil)
	assert.NilError(t, err)
	assert.Equal(t, len(q.Snapshot(true)), 0)

	_, err = w.Attach(e, "Velocity", nil)
	assert.NilError(t, err)
	assert.DeepEqual(t, q.Snapshot(true), []types.EntityID{e})
}

func TestAttachUnregisteredTypeIsSkipped(t *testing.T) {
	w := newWorld(t)
	e, err := w.NewEntity()
	assert.NilError(t, err)

	inst, err := w.Attach(e, "NoSuchComponent", nil)
	assert.NilError(t, err)
	assert.Assert(t, inst == nil)
}

func TestInstantiate(t *testing.T) {
	w := newWorld(t)
	pos, _ := registerMovement(t, w)

	assert.NilError(t, w.RegisterPrefab(prefab.Definition{
		Name: "Being",
		Components: []prefab.ComponentDef{
			{Type: "Position", Properties: map[string]any{"x": 4.0, "y": 10.0}},
		},
	}))
	assert.NilError(t, w.RegisterPrefab(prefab.Definition{
		Name:     "Human",
		Inherits: []string{"Being"},
		Components: []prefab.ComponentDef{
			{Type: "Position", Properties: map[string]any{"x": 0.0, "y": 0.0}, Overwrite: true},
		},
	}))

	id, err := w.Instantiate("Human", nil)
	assert.NilError(t, err)
	inst, ok := w.Store().Get(id, pos)
	assert.Assert(t, ok)
	assert.Equal(t, inst.Props()["x"], 0.0)
	assert.Equal(t, inst.Props()["y"], 0.0)
}

func TestInstantiateUnknownPrefab(t *testing.T) {
	w := newWorld(t)

	_, err := w.Instantiate("Ghost", nil)
	assert.ErrorContains(t, err, "not registered")
}

func TestInstantiatedEntitiesEnterQueries(t *testing.T) {
	w := newWorld(t)
	pos, _ := registerMovement(t, w)

	q, err := w.NewQuery(filter.All(pos))
	assert.NilError(t, err)

	var entered []types.EntityID
	q.Subscribe(query.Observer{
		OnEnter: func(id types.EntityID) { entered = append(entered, id) },
	}, query.SubscribeOptions{})

	assert.NilError(t, w.RegisterPrefab(prefab.Definition{
		Name: "Being",
		Components: []prefab.ComponentDef{
			{Type: "Position"},
		},
	}))
	id, err := w.Instantiate("Being", nil)
	assert.NilError(t, err)
	assert.DeepEqual(t, entered, []types.EntityID{id})
}

func TestQueriesObserveInCreationOrder(t *testing.T) {
	w := newWorld(t)
	pos, _ := registerMovement(t, w)

	var order []string
	q1, err := w.NewQuery(filter.All(pos))
	assert.NilError(t, err)
	q1.Subscribe(query.Observer{
		OnEnter: func(types.EntityID) { order = append(order, "q1") },
	}, query.SubscribeOptions{})
	q2, err := w.NewQuery(filter.All(pos))
	assert.NilError(t, err)
	q2.Subscribe(query.Observer{
		OnEnter: func(types.EntityID) { order = append(order, "q2") },
	}, query.SubscribeOptions{})

	e, err := w.NewEntity()
	assert.NilError(t, err)
	_, err = w.Attach(e, "Position", nil)
	assert.NilError(t, err)
	assert.DeepEqual(t, order, []string{"q1", "q2"})
}

func TestQueryCreatedLateSeesExistingEntities(t *testing.T) {
	w := newWorld(t)
	pos, _ := registerMovement(t, w)

	e, err := w.NewEntity()
	assert.NilError(t, err)
	_, err = w.Attach(e, "Position", nil)
	assert.NilError(t, err)

	q, err := w.NewQuery(filter.All(pos))
	assert.NilError(t, err)
	assert.DeepEqual(t, q.Snapshot(true), []types.EntityID{e})
}

func TestLogState(t *testing.T) {
	var buf bytes.Buffer
	w, err := world.New(world.WithLogger(zerolog.New(&buf)), world.WithNamespace("arena"))
	assert.NilError(t, err)
	t.Cleanup(w.Shutdown)
	registerMovement(t, w)
	buf.Reset()

	w.LogState(zerolog.InfoLevel)

	out := buf.String()
	assert.Assert(t, strings.Contains(out, `"world":"arena"`), out)
	assert.Assert(t, strings.Contains(out, `"total_components":2`), out)
	assert.Assert(t, strings.Contains(out, `"component_name":"Position"`), out)
}

func TestShutdown(t *testing.T) {
	w, err := world.New(world.WithLogger(zerolog.Nop()))
	assert.NilError(t, err)
	pos, _ := registerMovement(t, w)

	q, err := w.NewQuery(filter.All(pos))
	assert.NilError(t, err)
	sub := q.Subscribe(query.Observer{}, query.SubscribeOptions{})
	e, err := w.NewEntity()
	assert.NilError(t, err)
	_, err = w.Attach(e, "Position", nil)
	assert.NilError(t, err)

	w.Shutdown()
	assert.Assert(t, !w.Store().Alive(e))
	assert.Assert(t, sub.Closed())

	_, err = w.NewEntity()
	assert.ErrorContains(t, err, "shut down")

	// Idempotent.
	w.Shutdown()
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg := world.LoadConfig()
	assert.Equal(t, cfg.Namespace, "world")
	assert.Equal(t, cfg.LogLevel, "info")
	assert.Assert(t, !cfg.LogPretty)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("LATTICE_NAMESPACE", "arena-1")
	t.Setenv("LATTICE_LOG_LEVEL", "debug")
	t.Setenv("LATTICE_LOG_PRETTY", "true")

	cfg := world.LoadConfig()
	assert.Equal(t, cfg.Namespace, "arena-1")
	assert.Equal(t, cfg.LogLevel, "debug")
	assert.Assert(t, cfg.LogPretty)
}

func TestInvalidLogLevel(t *testing.T) {
	t.Setenv("LATTICE_LOG_LEVEL", "loudest")

	_, err := world.New()
	assert.ErrorContains(t, err, "invalid log level")
}
