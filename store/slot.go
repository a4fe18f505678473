package store

import (
	"github.com/lattice-ecs/lattice/component"
	"github.com/lattice-ecs/lattice/types"
)

// slot is the per-type storage shape on an entity: exactly one of the
// three fields is in use, matching the type's multiplicity.
type slot struct {
	meta     *component.Metadata
	single   *Instance
	list     []*Instance
	keyed    map[string]*Instance
	keyOrder []string
}

func newSlot(meta *component.Metadata) *slot {
	s := &slot{meta: meta}
	if meta.Multiplicity() == types.Keyed {
		s.keyed = make(map[string]*Instance)
	}
	return s
}

func (s *slot) empty() bool {
	switch s.meta.Multiplicity() {
	case types.Single:
		return s.single == nil
	case types.List:
		return len(s.list) == 0
	case types.Keyed:
		return len(s.keyed) == 0
	}
	return true
}

// instances returns the stored instances in a stable order: attach order
// for lists, key insertion order for keyed maps.
func (s *slot) instances() []*Instance {
	switch s.meta.Multiplicity() {
	case types.Single:
		if s.single == nil {
			return nil
		}
		return []*Instance{s.single}
	case types.List:
		out := make([]*Instance, len(s.list))
		copy(out, s.list)
		return out
	case types.Keyed:
		out := make([]*Instance, 0, len(s.keyed))
		for _, k := range s.keyOrder {
			out = append(out, s.keyed[k])
		}
		return out
	}
	return nil
}

// remove detaches inst from the slot, reporting whether it was found.
func (s *slot) remove(inst *Instance) bool {
	switch s.meta.Multiplicity() {
	case types.Single:
		if s.single != inst {
			return false
		}
		s.single = nil
		return true
	case types.List:
		for i, stored := range s.list {
			if stored == inst {
				s.list = append(s.list[:i], s.list[i+1:]...)
				return true
			}
		}
		return false
	case types.Keyed:
		key, ok := inst.Key()
		if !ok || s.keyed[key] != inst {
			return false
		}
		delete(s.keyed, key)
		for i, k := range s.keyOrder {
			if k == key {
				s.keyOrder = append(s.keyOrder[:i], s.keyOrder[i+1:]...)
				break
			}
		}
		return true
	}
	return false
}

// put stores inst and returns the instance it displaced, if any.
func (s *slot) put(inst *Instance) *Instance {
	switch s.meta.Multiplicity() {
	case types.Single:
		displaced := s.single
		s.single = inst
		return displaced
	case types.List:
		s.list = append(s.list, inst)
		return nil
	case types.Keyed:
		key, _ := inst.Key()
		displaced := s.keyed[key]
		s.keyed[key] = inst
		if displaced == nil {
			s.keyOrder = append(s.keyOrder, key)
		}
		return displaced
	}
	return nil
}
