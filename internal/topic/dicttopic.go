package topic

import (
	"fmt"

	"github.com/erauner12/topicsync/internal/change"
)

// Dict holds a string-keyed map of JSON values.
type Dict struct{ base }

func NewDict(name string, sm Submitter, stateful bool) *Dict {
	t := &Dict{base: newBase(name, stateful, map[string]any{}, sm)}
	t.AddValidator(typeValidator[map[string]any]())
	return t
}

func (t *Dict) Type() string { return "dict" }

func (t *Dict) ApplyChange(c change.Change) (old, new any, err error) {
	return t.validateAndApply(c)
}

func (t *Dict) Set(v map[string]any) error {
	if change.DeepEqual(t.value, v) {
		return nil
	}
	return t.submit(change.NewDictSet(t.name, v))
}

func (t *Dict) Add(key string, value any) error {
	return t.submit(change.NewDictAdd(t.name, key, value))
}

func (t *Dict) Pop(key string) error { return t.submit(change.NewDictPop(t.name, key)) }

func (t *Dict) ChangeValue(key string, value any) error {
	return t.submit(change.NewDictChangeValue(t.name, key, value))
}

func (t *Dict) MergeChanges(pending []change.Change) []change.Change { return pending }

func (t *Dict) InitSnapshot() map[string]any { return map[string]any{"value": t.Get()} }

func (t *Dict) SetToDefault() { t.value = map[string]any{} }

func (t *Dict) LoadSnapshot(value any, extra map[string]any) error {
	m, ok := value.(map[string]any)
	if !ok {
		return fmt.Errorf("init value for dict topic %q must be an object, got %T", t.name, value)
	}
	t.value = m
	return nil
}
