// Package change implements the tagged, serializable mutation model used by
// every topic type: a Change knows how to apply itself to an old value,
// invert itself for undo, and serialize to/from the wire envelope described
// in the protocol (topic_name/topic_type/type/id + kind-specific fields).
package change

import (
	"fmt"

	"github.com/google/uuid"
)

// Change is one atomic, invertible mutation to one topic.
type Change interface {
	TopicName() string
	TopicType() string
	Kind() string
	ID() string
	// Apply returns the new value produced by applying this change to old.
	// It may mutate the change's own bookkeeping (e.g. regenerate ID when a
	// precondition embedded in the change no longer matches old).
	Apply(old any) (any, error)
	Inverse() Change
	Serialize() map[string]any
}

// InvalidChangeError is raised when a change's precondition fails against
// the topic's current value, or a validator rejects the resulting value.
type InvalidChangeError struct {
	TopicName string
	Reason    string
}

func (e *InvalidChangeError) Error() string {
	return fmt.Sprintf("invalid change for topic %q: %s", e.TopicName, e.Reason)
}

func newID() string {
	return uuid.NewString()
}

// base carries the fields common to every concrete change kind.
type base struct {
	topicName string
	id        string
}

func newBase(topicName, id string) base {
	if id == "" {
		id = newID()
	}
	return base{topicName: topicName, id: id}
}

func (b *base) TopicName() string { return b.topicName }
func (b *base) ID() string        { return b.id }

// regenerateID is called when a change's embedded precondition (old_value,
// base_version, ...) turns out to differ from the topic's actual current
// state — the id must change so a client's optimistic preview path never
// mistakes the rewritten change for its own pending entry.
func (b *base) regenerateID() { b.id = newID() }

// NullChange is an internal sentinel that never serializes and is filtered
// out of every broadcast changes list.
type NullChange struct{ base }

func NewNullChange(topicName string) *NullChange {
	return &NullChange{base: newBase(topicName, "")}
}
func (c *NullChange) TopicType() string       { return "" }
func (c *NullChange) Kind() string            { return "null" }
func (c *NullChange) Apply(old any) (any, error) { return old, nil }
func (c *NullChange) Inverse() Change         { return NewNullChange(c.topicName) }
func (c *NullChange) Serialize() map[string]any {
	panic("NullChange must never be serialized")
}

// deserializer builds a concrete Change from its decoded wire fields.
type deserializer func(fields map[string]any) (Change, error)

var registry = map[string]map[string]deserializer{}

// register is called from each concrete-kind file's init().
func register(topicType, kind string, d deserializer) {
	m, ok := registry[topicType]
	if !ok {
		m = map[string]deserializer{}
		registry[topicType] = m
	}
	m[kind] = d
}

// Deserialize dispatches on (topic_type, type) exactly as the wire format
// specifies, and reconstructs the concrete Change.
func Deserialize(fields map[string]any) (Change, error) {
	topicType, _ := fields["topic_type"].(string)
	kind, _ := fields["type"].(string)

	m, ok := registry[topicType]
	if !ok {
		return nil, fmt.Errorf("unknown topic type %q", topicType)
	}
	d, ok := m[kind]
	if !ok {
		return nil, fmt.Errorf("unknown change kind %q for topic type %q", kind, topicType)
	}
	return d(fields)
}

func str(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return s
}

func num(fields map[string]any, key string) float64 {
	switch v := fields[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}
