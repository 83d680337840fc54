package topic

import (
	"encoding/base64"
	"fmt"

	"github.com/erauner12/topicsync/internal/change"
)

// Binary holds raw bytes, base64-encoded on the wire.
type Binary struct{ base }

func NewBinary(name string, sm Submitter, stateful bool) *Binary {
	t := &Binary{base: newBase(name, stateful, []byte{}, sm)}
	t.AddValidator(typeValidator[[]byte]())
	return t
}

func (t *Binary) Type() string { return "binary" }

func (t *Binary) ApplyChange(c change.Change) (old, new any, err error) {
	return t.validateAndApply(c)
}

func (t *Binary) Set(v []byte) error {
	cur, _ := t.value.([]byte)
	if string(cur) == string(v) {
		return nil
	}
	return t.submit(change.NewBinarySet(t.name, v))
}

func (t *Binary) MergeChanges(pending []change.Change) []change.Change { return pending }

func (t *Binary) InitSnapshot() map[string]any { return map[string]any{"value": t.Get()} }

func (t *Binary) SetToDefault() { t.value = []byte{} }

// LoadSnapshot accepts a base64 string (the JSON-decoded wire form) as well
// as raw bytes, so it works whether the caller is a network client or an
// in-process embedder.
func (t *Binary) LoadSnapshot(value any, extra map[string]any) error {
	switch v := value.(type) {
	case []byte:
		t.value = v
	case string:
		raw, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return fmt.Errorf("init value for binary topic %q is not valid base64: %w", t.name, err)
		}
		t.value = raw
	default:
		return fmt.Errorf("init value for binary topic %q must be bytes or a base64 string, got %T", t.name, value)
	}
	return nil
}
