package topic

import "github.com/erauner12/topicsync/internal/change"

// Generic holds any JSON-serializable value with no further structure.
type Generic struct{ base }

func NewGeneric(name string, sm Submitter, stateful bool) *Generic {
	return &Generic{base: newBase(name, stateful, nil, sm)}
}

func (t *Generic) Type() string { return "generic" }

func (t *Generic) ApplyChange(c change.Change) (old, new any, err error) {
	return t.validateAndApply(c)
}

// Set builds and submits a GenericSet change. A no-op if v already deep
// equals the current value.
func (t *Generic) Set(v any) error {
	if change.DeepEqual(t.value, v) {
		return nil
	}
	return t.submit(change.NewGenericSet(t.name, v))
}

// MergeChanges passes a pending batch through unmodified: only string and
// list topics coalesce buffered changes before a flush.
func (t *Generic) MergeChanges(pending []change.Change) []change.Change { return pending }

func (t *Generic) InitSnapshot() map[string]any {
	return map[string]any{"value": t.Get()}
}

func (t *Generic) SetToDefault() { t.value = nil }

func (t *Generic) LoadSnapshot(value any, extra map[string]any) error {
	t.value = value
	return nil
}
