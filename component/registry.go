package component

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/wI2L/jsondiff"

	"github.com/lattice-ecs/lattice/codec"
	"github.com/lattice-ecs/lattice/types"
)

// MaxComponentTypes is the number of component types a single registry
// supports. It matches the width of the default mask build; building the
// mask module with a wider tag raises the effective limit.
const MaxComponentTypes = 64

var (
	ErrNotRegistered     = eris.New("component not registered")
	ErrAlreadyRegistered = eris.New("component already registered")
	ErrTooManyComponents = eris.New("component type limit reached")
	ErrInvalidDefinition = eris.New("invalid component definition")
)

// Registry assigns each registered component type a canonical key and a
// unique bit index. Bit indices are assigned monotonically starting at 0
// and are never reused.
type Registry struct {
	registered map[string]*Metadata
	ordered    []*Metadata
	nextID     types.ComponentID
}

// NewRegistry creates an empty component registry.
func NewRegistry() *Registry {
	return &Registry{
		registered: make(map[string]*Metadata),
	}
}

// CanonicalKey derives the case-normalized lookup key for a component
// type name.
func CanonicalKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register registers a component type and assigns its bit index. The
// canonical key must be unique: a re-registration with an identical
// schema returns the previously registered metadata, anything else is an
// error. Keyed definitions must carry a key field.
func (r *Registry) Register(def Definition) (*Metadata, error) {
	key := CanonicalKey(def.Name)
	if key == "" {
		return nil, eris.Wrap(ErrInvalidDefinition, "component name is empty")
	}
	if def.Multiplicity == types.Keyed && def.KeyField == "" {
		return nil, eris.Wrap(ErrInvalidDefinition,
			fmt.Sprintf("keyed component %q has no key field", def.Name))
	}

	schema := def.Schema
	if schema == nil {
		derived, err := codec.Encode(def.Defaults)
		if err != nil {
			return nil, eris.Wrap(err, "component defaults must be json serializable")
		}
		schema = derived
	}

	if existing, ok := r.registered[key]; ok {
		// Re-initializing the same component in a fresh world is fine as
		// long as its schema did not drift.
		if err := validateSchema(existing.schema, schema); err != nil {
			return nil, eris.Wrap(err,
				fmt.Sprintf("component %q is already registered with a different schema", def.Name))
		}
		return existing, nil
	}

	if int(r.nextID) >= MaxComponentTypes {
		return nil, eris.Wrap(ErrTooManyComponents,
			fmt.Sprintf("cannot register %q: limit is %d", def.Name, MaxComponentTypes))
	}

	meta := &Metadata{
		id:     r.nextID,
		key:    key,
		def:    def,
		schema: schema,
	}
	r.registered[key] = meta
	r.ordered = append(r.ordered, meta)
	r.nextID++
	return meta, nil
}

// Lookup returns the metadata registered under the given name or
// canonical key.
func (r *Registry) Lookup(name string) (*Metadata, error) {
	meta, ok := r.registered[CanonicalKey(name)]
	if !ok {
		return nil, eris.Wrap(ErrNotRegistered, fmt.Sprintf("component %q is not registered", name))
	}
	return meta, nil
}

// Components returns all registered component types in bit-index order.
func (r *Registry) Components() []*Metadata {
	out := make([]*Metadata, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Count returns the number of registered component types.
func (r *Registry) Count() int {
	return len(r.ordered)
}

func validateSchema(stored, candidate []byte) error {
	patch, err := jsondiff.CompareJSON(stored, candidate)
	if err != nil {
		return eris.Wrap(err, "failed to compare component schema")
	}
	if patch.String() != "" {
		return eris.New(patch.String())
	}
	return nil
}
