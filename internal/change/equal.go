package change

import "encoding/json"

// DeepEqual reports whether a and b are JSON-equivalent: the spec defines
// semantic equality for set/dict values this way rather than Go identity,
// so two maps with the same entries compare equal whatever their key order.
// Slices are compared element by element, in order.
func DeepEqual(a, b any) bool {
	ab, errA := json.Marshal(a)
	bb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(ab) == string(bb)
}

// Clone returns a deep copy of v, preserving v's concrete Go type — used by
// topics to hand out values from get() (and to validate a candidate change
// against a scratch copy) without aliasing internal state. A plain
// JSON-marshal-unmarshal round trip would silently turn an int topic's
// value into a float64 once it passed through `any`, so scalars and []byte
// are copied directly instead of going through JSON; only []any and
// map[string]any recurse the way copy.deepcopy would.
func Clone(v any) any {
	switch val := v.(type) {
	case nil, bool, string, int, int64, float64:
		return val
	case []byte:
		cp := make([]byte, len(val))
		copy(cp, val)
		return cp
	case []any:
		cp := make([]any, len(val))
		for i, item := range val {
			cp[i] = Clone(item)
		}
		return cp
	case map[string]any:
		cp := make(map[string]any, len(val))
		for k, item := range val {
			cp[k] = Clone(item)
		}
		return cp
	default:
		return cloneAny(v)
	}
}

func cloneAny(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}
