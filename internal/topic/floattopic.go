package topic

import (
	"fmt"

	"github.com/erauner12/topicsync/internal/change"
)

// Float holds a floating-point value.
type Float struct{ base }

func NewFloat(name string, sm Submitter, stateful bool) *Float {
	t := &Float{base: newBase(name, stateful, 0.0, sm)}
	t.AddValidator(typeValidator[float64]())
	return t
}

func (t *Float) Type() string { return "float" }

func (t *Float) ApplyChange(c change.Change) (old, new any, err error) {
	return t.validateAndApply(c)
}

func (t *Float) Set(v float64) error {
	if cur, ok := t.value.(float64); ok && cur == v {
		return nil
	}
	return t.submit(change.NewFloatSet(t.name, v))
}

func (t *Float) Add(delta float64) error {
	if delta == 0 {
		return nil
	}
	return t.submit(change.NewFloatAdd(t.name, delta))
}

func (t *Float) MergeChanges(pending []change.Change) []change.Change { return pending }

func (t *Float) InitSnapshot() map[string]any { return map[string]any{"value": t.Get()} }

func (t *Float) SetToDefault() { t.value = 0.0 }

func (t *Float) LoadSnapshot(value any, extra map[string]any) error {
	switch n := value.(type) {
	case float64:
		t.value = n
	case int:
		t.value = float64(n)
	default:
		return fmt.Errorf("init value for float topic %q must be a number, got %T", t.name, value)
	}
	return nil
}
