package component

import (
	"reflect"

	"github.com/invopop/jsonschema"
	"github.com/rotisserie/eris"

	"github.com/lattice-ecs/lattice/codec"
	"github.com/lattice-ecs/lattice/types"
)

// Named is implemented by user structs that describe a component type.
type Named interface {
	// Name returns the human-readable name of the component type.
	Name() string
}

// Definition describes a component type prior to registration.
type Definition struct {
	// Name is the human-readable type name. The registry derives the
	// canonical lookup key from it by case-normalization.
	Name string
	// Multiplicity controls how instances of this type are stored on an
	// entity.
	Multiplicity types.Multiplicity
	// KeyField names the property used as the map key for Keyed types.
	// It must be set if and only if Multiplicity is Keyed.
	KeyField string
	// Defaults is the default property schema. Every new instance starts
	// from a deep copy of it.
	Defaults map[string]any
	// MultiplicityExempt marks the type as exempt from the
	// single-instance guard during prefab application.
	MultiplicityExempt bool
	// Schema holds schema bytes used to detect conflicting
	// re-registrations. Left nil, the registry derives it from Defaults.
	Schema []byte
}

// Option augments a Definition produced by FromStruct.
type Option func(*Definition)

// AsList stores instances of the type as an ordered list.
func AsList() Option {
	return func(d *Definition) {
		d.Multiplicity = types.List
	}
}

// KeyedBy stores instances of the type in a map keyed by the named
// property.
func KeyedBy(field string) Option {
	return func(d *Definition) {
		d.Multiplicity = types.Keyed
		d.KeyField = field
	}
}

// Exempt marks the type as exempt from the prefab single-instance guard.
func Exempt() Option {
	return func(d *Definition) {
		d.MultiplicityExempt = true
	}
}

// FromStruct builds a Definition from a user struct. The struct's field
// values become the default properties and its reflected JSON schema is
// used for re-registration validation.
func FromStruct[T Named](opts ...Option) (Definition, error) {
	var t T
	defaults, err := codec.ToMap(t)
	if err != nil {
		return Definition{}, eris.Wrap(err, "component must be json serializable")
	}
	schema, err := jsonschema.ReflectFromType(reflect.TypeOf(t)).MarshalJSON()
	if err != nil {
		return Definition{}, eris.Wrap(err, "failed to reflect component schema")
	}
	def := Definition{
		Name:         t.Name(),
		Multiplicity: types.Single,
		Defaults:     defaults,
		Schema:       schema,
	}
	for _, opt := range opts {
		opt(&def)
	}
	return def, nil
}

// Metadata is the registered form of a component type. It is immutable
// once the registry returns it.
type Metadata struct {
	id     types.ComponentID
	key    string
	def    Definition
	schema []byte
}

// Name returns the human-readable type name.
func (m *Metadata) Name() string { return m.def.Name }

// Key returns the canonical lookup key.
func (m *Metadata) Key() string { return m.key }

// ID returns the bit index assigned at registration.
func (m *Metadata) ID() types.ComponentID { return m.id }

// Bit returns the bit index in the form the mask type consumes.
func (m *Metadata) Bit() uint32 { return uint32(m.id) }

// Multiplicity returns the storage policy of the type.
func (m *Metadata) Multiplicity() types.Multiplicity { return m.def.Multiplicity }

// KeyField returns the key property name for Keyed types.
func (m *Metadata) KeyField() string { return m.def.KeyField }

// MultiplicityExempt reports whether the type bypasses the prefab
// single-instance guard.
func (m *Metadata) MultiplicityExempt() bool { return m.def.MultiplicityExempt }

// Defaults returns the default property schema. Callers must treat the
// returned map as read-only; instances receive deep copies.
func (m *Metadata) Defaults() map[string]any { return m.def.Defaults }

// Schema returns the schema bytes recorded at registration.
func (m *Metadata) Schema() []byte { return m.schema }

// String returns the component type name.
func (m *Metadata) String() string { return m.def.Name }
