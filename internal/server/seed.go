package server

import (
	"encoding/base64"
	"fmt"

	"github.com/erauner12/topicsync/internal/topic"
)

// seedBoundaryValue applies a topic_list entry's boundary_value to a
// freshly created topic via that topic's own Set, so the seed goes through
// the same validation path a client's own Set would.
func seedBoundaryValue(t topic.Topic, v any) error {
	switch tt := t.(type) {
	case *topic.Generic:
		return tt.Set(v)
	case *topic.String:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("boundary_value for string topic %q must be a string", t.Name())
		}
		return tt.Set(s)
	case *topic.Int:
		n, ok := asInt(v)
		if !ok {
			return fmt.Errorf("boundary_value for int topic %q must be a number", t.Name())
		}
		return tt.Set(n)
	case *topic.Float:
		f, ok := asFloat(v)
		if !ok {
			return fmt.Errorf("boundary_value for float topic %q must be a number", t.Name())
		}
		return tt.Set(f)
	case *topic.Set:
		items, ok := v.([]any)
		if !ok {
			return fmt.Errorf("boundary_value for set topic %q must be a list", t.Name())
		}
		return tt.Set(items)
	case *topic.List:
		items, ok := v.([]any)
		if !ok {
			return fmt.Errorf("boundary_value for list topic %q must be a list", t.Name())
		}
		return tt.Set(items)
	case *topic.Dict:
		m, ok := v.(map[string]any)
		if !ok {
			return fmt.Errorf("boundary_value for dict topic %q must be an object", t.Name())
		}
		return tt.Set(m)
	case *topic.Binary:
		b, ok := v.(string)
		if !ok {
			return fmt.Errorf("boundary_value for binary topic %q must be a base64 string", t.Name())
		}
		raw, err := base64.StdEncoding.DecodeString(b)
		if err != nil {
			return fmt.Errorf("boundary_value for binary topic %q is not valid base64: %w", t.Name(), err)
		}
		return tt.Set(raw)
	default:
		return nil
	}
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
