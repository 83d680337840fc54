package topic

import (
	"fmt"

	"github.com/erauner12/topicsync/internal/change"
)

// Int holds an integer value.
type Int struct{ base }

func NewInt(name string, sm Submitter, stateful bool) *Int {
	t := &Int{base: newBase(name, stateful, 0, sm)}
	t.AddValidator(typeValidator[int]())
	return t
}

func (t *Int) Type() string { return "int" }

func (t *Int) ApplyChange(c change.Change) (old, new any, err error) {
	return t.validateAndApply(c)
}

func (t *Int) Set(v int) error {
	if cur, ok := t.value.(int); ok && cur == v {
		return nil
	}
	return t.submit(change.NewIntSet(t.name, v))
}

func (t *Int) Add(delta int) error {
	if delta == 0 {
		return nil
	}
	return t.submit(change.NewIntAdd(t.name, delta))
}

func (t *Int) MergeChanges(pending []change.Change) []change.Change { return pending }

func (t *Int) InitSnapshot() map[string]any { return map[string]any{"value": t.Get()} }

func (t *Int) SetToDefault() { t.value = 0 }

// LoadSnapshot accepts float64 as well as int since a JSON-decoded init
// message's "value" field arrives as float64.
func (t *Int) LoadSnapshot(value any, extra map[string]any) error {
	switch n := value.(type) {
	case int:
		t.value = n
	case float64:
		t.value = int(n)
	default:
		return fmt.Errorf("init value for int topic %q must be a number, got %T", t.name, value)
	}
	return nil
}
