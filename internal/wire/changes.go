package wire

import (
	"fmt"

	"github.com/erauner12/topicsync/internal/change"
)

// EncodeChanges serializes a batch of changes to the wire representation an
// "update" or "action" message's changes/commands field carries.
func EncodeChanges(changes []change.Change) []any {
	out := make([]any, len(changes))
	for i, c := range changes {
		out[i] = c.Serialize()
	}
	return out
}

// DecodeChanges parses an "action" message's commands field (or any other
// change-dict list) back into concrete Change values.
func DecodeChanges(raw any) ([]change.Change, error) {
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a list of change dicts, got %T", raw)
	}
	out := make([]change.Change, 0, len(items))
	for _, item := range items {
		fields, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expected a change dict, got %T", item)
		}
		c, err := change.Deserialize(fields)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
