package change

// EventEmit and EventReversedEmit are the change kinds for the "event" topic
// type. A stateful event's emit listener may populate ForwardInfo, which is
// carried into the paired reversed_emit so inverse handlers can restore
// context — this gives fire-and-forget side effects a proper undoable
// contract. Non-stateful events never reach a transition (fire-and-forget,
// no undo entry), so they don't need an inverse at all in practice, but the
// type still supports producing one.
type EventEmit struct {
	base
	Args        map[string]any
	ForwardInfo map[string]any
	prevValue   any
}

func NewEventEmit(topicName string, args map[string]any) *EventEmit {
	return &EventEmit{base: newBase(topicName, ""), Args: args}
}

func (c *EventEmit) TopicType() string { return "event" }
func (c *EventEmit) Kind() string      { return "emit" }

func (c *EventEmit) Apply(old any) (any, error) {
	c.prevValue = old
	return map[string]any(c.Args), nil
}

// SetForwardInfo lets a listener that received this emit attach forward
// info to it; whatever is set when Inverse is called rides along into the
// reversed_emit. The state machine itself never calls it.
func (c *EventEmit) SetForwardInfo(info map[string]any) { c.ForwardInfo = info }

func (c *EventEmit) Inverse() Change {
	return &EventReversedEmit{
		base:        newBase(c.topicName, ""),
		Args:        c.Args,
		ForwardInfo: c.ForwardInfo,
		prevValue:   c.prevValue,
	}
}

func (c *EventEmit) Serialize() map[string]any {
	return map[string]any{
		"topic_name": c.topicName, "topic_type": "event", "type": "emit",
		"id": c.id, "args": c.Args,
	}
}

type EventReversedEmit struct {
	base
	Args        map[string]any
	ForwardInfo map[string]any
	prevValue   any
}

func (c *EventReversedEmit) TopicType() string { return "event" }
func (c *EventReversedEmit) Kind() string      { return "reversed_emit" }

func (c *EventReversedEmit) Apply(old any) (any, error) {
	return c.prevValue, nil
}

func (c *EventReversedEmit) Inverse() Change {
	return &EventEmit{
		base:        newBase(c.topicName, ""),
		Args:        c.Args,
		ForwardInfo: c.ForwardInfo,
		prevValue:   c.prevValue,
	}
}

func (c *EventReversedEmit) Serialize() map[string]any {
	return map[string]any{
		"topic_name": c.topicName, "topic_type": "event", "type": "reversed_emit",
		"id": c.id, "args": c.Args, "forward_info": c.ForwardInfo,
	}
}

// IsEvent reports whether c is an event-kind change — used by the state
// machine to filter events out of the broadcast changes list while still
// keeping them in the transition tree for undo/redo.
func IsEvent(c Change) bool {
	switch c.(type) {
	case *EventEmit, *EventReversedEmit:
		return true
	default:
		return false
	}
}

func init() {
	register("event", "emit", func(f map[string]any) (Change, error) {
		args, _ := f["args"].(map[string]any)
		return &EventEmit{base: newBase(str(f, "topic_name"), str(f, "id")), Args: args}, nil
	})
	register("event", "reversed_emit", func(f map[string]any) (Change, error) {
		args, _ := f["args"].(map[string]any)
		fwd, _ := f["forward_info"].(map[string]any)
		return &EventReversedEmit{base: newBase(str(f, "topic_name"), str(f, "id")), Args: args, ForwardInfo: fwd}, nil
	})
}
