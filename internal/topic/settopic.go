package topic

import (
	"fmt"

	"github.com/erauner12/topicsync/internal/change"
)

// Set holds an unordered collection of JSON-equal-unique items. Order is
// preserved internally across apply so serialized output stays stable for
// clients, even though the spec treats it as unobservable.
type Set struct{ base }

func NewSet(name string, sm Submitter, stateful bool) *Set {
	t := &Set{base: newBase(name, stateful, []any{}, sm)}
	t.AddValidator(typeValidator[[]any]())
	return t
}

func (t *Set) Type() string { return "set" }

func (t *Set) ApplyChange(c change.Change) (old, new any, err error) {
	return t.validateAndApply(c)
}

func (t *Set) Set(v []any) error {
	if change.DeepEqual(t.value, v) {
		return nil
	}
	return t.submit(change.NewSetSet(t.name, v))
}

func (t *Set) Append(item any) error { return t.submit(change.NewSetAppend(t.name, item)) }
func (t *Set) Remove(item any) error { return t.submit(change.NewSetRemove(t.name, item)) }

func (t *Set) MergeChanges(pending []change.Change) []change.Change { return pending }

func (t *Set) InitSnapshot() map[string]any { return map[string]any{"value": t.Get()} }

func (t *Set) SetToDefault() { t.value = []any{} }

func (t *Set) LoadSnapshot(value any, extra map[string]any) error {
	items, ok := value.([]any)
	if !ok {
		return fmt.Errorf("init value for set topic %q must be a list, got %T", t.name, value)
	}
	t.value = items
	return nil
}
