package store

import (
	"fmt"

	"github.com/lattice-ecs/lattice/component"
	"github.com/lattice-ecs/lattice/types"
)

// Instance is a single attached component record. It belongs to exactly
// one entity from attach until detach or entity destruction, after which
// it is dead and must not be reused.
type Instance struct {
	meta  *component.Metadata
	owner types.EntityID
	props map[string]any
	live  bool
}

// Metadata returns the component type of the instance.
func (i *Instance) Metadata() *component.Metadata { return i.meta }

// Owner returns the entity the instance is attached to. The value is
// meaningless once Live reports false.
func (i *Instance) Owner() types.EntityID { return i.owner }

// Live reports whether the instance is still attached to its owner.
func (i *Instance) Live() bool { return i.live }

// Props returns the instance's property payload. Callers may mutate field
// values in place but must not assume the map outlives a detach.
func (i *Instance) Props() map[string]any { return i.props }

// Key returns the instance's key-field value for keyed component types.
func (i *Instance) Key() (string, bool) {
	if i.meta.Multiplicity() != types.Keyed {
		return "", false
	}
	v, ok := i.props[i.meta.KeyField()]
	if !ok {
		return "", false
	}
	return fmt.Sprint(v), true
}
