package types

// EntityID is the unique identifier of an entity within a world. IDs are
// minted monotonically and never reused, including after the entity is
// destroyed.
type EntityID uint64

// ComponentID is the bit index assigned to a registered component type.
// It is immutable once assigned and never reused.
type ComponentID int

// Multiplicity describes how many instances of a component type a single
// entity may hold, and how they are stored.
type Multiplicity int

const (
	// Single allows at most one instance per entity.
	Single Multiplicity = iota
	// List allows any number of instances, kept in attach order.
	List
	// Keyed allows any number of instances, indexed by the value of the
	// type's key field.
	Keyed
)

func (m Multiplicity) String() string {
	switch m {
	case Single:
		return "single"
	case List:
		return "list"
	case Keyed:
		return "keyed"
	}
	return "unknown"
}
