package codec

import (
	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
)

// Decode unmarshals bz into a value of type T.
func Decode[T any](bz []byte) (T, error) {
	comp := new(T)
	err := json.Unmarshal(bz, comp)
	if err != nil {
		return *comp, eris.Wrap(err, "")
	}
	return *comp, nil
}

// Encode marshals comp into JSON bytes.
func Encode(comp any) ([]byte, error) {
	bz, err := json.Marshal(comp)
	if err != nil {
		return nil, eris.Wrap(err, "")
	}
	return bz, nil
}

// ToMap marshals v and unmarshals the result into a property map. Used to
// derive default property maps from user structs.
func ToMap(v any) (map[string]any, error) {
	bz, err := Encode(v)
	if err != nil {
		return nil, err
	}
	return Decode[map[string]any](bz)
}

// Clone returns a deep copy of a property map. Nested maps and slices are
// copied recursively; scalar values keep their dynamic type (a JSON
// round-trip would flatten ints to float64, which breaks callers that
// attach typed defaults).
func Clone(props map[string]any) map[string]any {
	if props == nil {
		return nil
	}
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return Clone(val)
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = cloneValue(elem)
		}
		return out
	default:
		return v
	}
}

// Merge deep-merges override into base and returns the result. Neither
// input is mutated. On conflicting keys the override wins, except when
// both values are maps, in which case they are merged recursively.
func Merge(base, override map[string]any) map[string]any {
	if base == nil && override == nil {
		return map[string]any{}
	}
	out := Clone(base)
	if out == nil {
		out = make(map[string]any, len(override))
	}
	for k, v := range override {
		baseMap, baseIsMap := out[k].(map[string]any)
		overrideMap, overrideIsMap := v.(map[string]any)
		if baseIsMap && overrideIsMap {
			out[k] = Merge(baseMap, overrideMap)
			continue
		}
		out[k] = cloneValue(v)
	}
	return out
}
