package topic

import "github.com/erauner12/topicsync/internal/change"

// Event carries fire-and-forget notifications. Stateful events pair an
// emit with a reversed_emit so undo can restore listener-supplied forward
// info; non-stateful events never reach a transition at all.
type Event struct{ base }

func NewEvent(name string, sm Submitter, stateful bool) *Event {
	return &Event{base: newBase(name, stateful, map[string]any{}, sm)}
}

func (t *Event) Type() string { return "event" }

func (t *Event) ApplyChange(c change.Change) (old, new any, err error) {
	return t.validateAndApply(c)
}

func (t *Event) Emit(args map[string]any) error {
	return t.submit(change.NewEventEmit(t.name, args))
}

func (t *Event) MergeChanges(pending []change.Change) []change.Change { return pending }

// InitSnapshot omits the transient args payload — a fresh subscriber has no
// meaningful "current" event state to replay.
func (t *Event) InitSnapshot() map[string]any { return map[string]any{"value": map[string]any{}} }

func (t *Event) SetToDefault() { t.value = map[string]any{} }

// LoadSnapshot is a no-op beyond resetting to the default: an event topic
// has no meaningful persisted value to hydrate from an init message.
func (t *Event) LoadSnapshot(value any, extra map[string]any) error {
	t.value = map[string]any{}
	return nil
}
