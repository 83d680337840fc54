package topic

import (
	"fmt"

	"github.com/erauner12/topicsync/internal/change"
)

// String holds text and the version history needed to rewind an insert or
// delete composed against a stale base_version through everything accepted
// since — the operational-transform reconciliation described for the
// string topic type.
type String struct {
	base
	version string
	history []change.Change
}

func NewString(name string, sm Submitter, stateful bool) *String {
	t := &String{base: newBase(name, stateful, "", sm)}
	t.AddValidator(typeValidator[string]())
	return t
}

func (t *String) Type() string { return "string" }

// Version returns the id of the last accepted change, the empty string
// before any change has been applied.
func (t *String) Version() string { return t.version }

// changesFrom returns every change accepted after baseVersion, in order.
// An unknown or empty baseVersion is treated as "predates tracked history"
// and rewinds through everything recorded so far.
func (t *String) changesFrom(baseVersion string) []change.Change {
	if baseVersion == "" {
		return t.history
	}
	for i, c := range t.history {
		if c.ID() == baseVersion {
			return t.history[i+1:]
		}
	}
	return t.history
}

func (t *String) ApplyChange(c change.Change) (old, new any, err error) {
	switch e := c.(type) {
	case *change.StringInsert:
		if e.BaseVersion != t.version {
			e.Rewind(t.changesFrom(e.BaseVersion))
		}
	case *change.StringDelete:
		if e.BaseVersion != t.version {
			e.Rewind(t.changesFrom(e.BaseVersion))
		}
	}

	old, new, err = t.validateAndApply(c)
	if err != nil {
		return old, new, err
	}
	t.version = c.ID()
	t.history = append(t.history, c)
	return old, new, nil
}

func (t *String) Set(v string) error {
	if cur, ok := t.value.(string); ok && cur == v {
		return nil
	}
	return t.submit(change.NewStringSet(t.name, v))
}

func (t *String) Insert(pos int, text string) error {
	return t.submit(change.NewStringInsert(t.name, pos, text, t.version))
}

func (t *String) Delete(pos int, text string) error {
	return t.submit(change.NewStringDelete(t.name, pos, text, t.version))
}

// MergeChanges implements the "set overwrites pending non-set changes since
// the last set" coalescing rule for string topics.
func (t *String) MergeChanges(pending []change.Change) []change.Change {
	return mergeSetOverwrite(pending, func(c change.Change) bool {
		_, ok := c.(*change.StringSet)
		return ok
	})
}

// InitSnapshot carries the current version alongside the value, the one
// type-specific extra a fresh subscriber's init message needs so its first
// composed insert/delete has a correct base_version.
func (t *String) InitSnapshot() map[string]any {
	return map[string]any{"value": t.Get(), "version": t.version}
}

func (t *String) SetToDefault() { t.value = ""; t.version = ""; t.history = nil }

// LoadSnapshot records the init message's version alongside the value so
// the mirror's first locally-composed insert/delete has a correct
// base_version, matching what InitSnapshot sent.
func (t *String) LoadSnapshot(value any, extra map[string]any) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("init value for string topic %q must be a string, got %T", t.name, value)
	}
	t.value = s
	t.version, _ = extra["version"].(string)
	t.history = nil
	return nil
}
