package topic

import (
	"fmt"

	"github.com/erauner12/topicsync/internal/change"
)

// List holds an ordered, possibly-duplicate-containing sequence.
type List struct{ base }

func NewList(name string, sm Submitter, stateful bool) *List {
	t := &List{base: newBase(name, stateful, []any{}, sm)}
	t.AddValidator(typeValidator[[]any]())
	return t
}

func (t *List) Type() string { return "list" }

func (t *List) ApplyChange(c change.Change) (old, new any, err error) {
	return t.validateAndApply(c)
}

func (t *List) Set(v []any) error {
	if change.DeepEqual(t.value, v) {
		return nil
	}
	return t.submit(change.NewListSet(t.name, v))
}

// Insert places item at pos; pos == -1 appends.
func (t *List) Insert(item any, pos int) error {
	return t.submit(change.NewListInsert(t.name, item, pos))
}

// Pop removes the item at pos; pos == -1 removes the last item.
func (t *List) Pop(pos int) error { return t.submit(change.NewListPop(t.name, pos)) }

// MergeChanges implements the "set overwrites pending non-set changes since
// the last set" coalescing rule for list topics.
func (t *List) MergeChanges(pending []change.Change) []change.Change {
	return mergeSetOverwrite(pending, func(c change.Change) bool {
		_, ok := c.(*change.ListSet)
		return ok
	})
}

func (t *List) InitSnapshot() map[string]any { return map[string]any{"value": t.Get()} }

func (t *List) SetToDefault() { t.value = []any{} }

func (t *List) LoadSnapshot(value any, extra map[string]any) error {
	items, ok := value.([]any)
	if !ok {
		return fmt.Errorf("init value for list topic %q must be a list, got %T", t.name, value)
	}
	t.value = items
	return nil
}
