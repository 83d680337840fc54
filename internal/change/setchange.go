package change

// SetSet, SetAppend and SetRemove are the change kinds for the "set" topic
// type — an unordered list of unique items. Semantic equality of items is
// JSON-equivalence, not Go identity; order is preserved across apply so
// clients stay byte-equivalent even though it's not semantically observable.
type SetSet struct {
	base
	Value    []any
	OldValue []any
}

func NewSetSet(topicName string, value []any) *SetSet {
	return &SetSet{base: newBase(topicName, ""), Value: value}
}

func (c *SetSet) TopicType() string { return "set" }
func (c *SetSet) Kind() string      { return "set" }

func (c *SetSet) Apply(old any) (any, error) {
	oldList, _ := old.([]any)
	if !DeepEqual(c.OldValue, oldList) {
		c.regenerateID()
	}
	c.OldValue = oldList
	return cloneAny(c.Value), nil
}

func (c *SetSet) Inverse() Change {
	return &SetSet{base: newBase(c.topicName, ""), Value: c.OldValue, OldValue: c.Value}
}

func (c *SetSet) Serialize() map[string]any {
	return map[string]any{
		"topic_name": c.topicName, "topic_type": "set", "type": "set",
		"id": c.id, "value": c.Value, "old_value": c.OldValue,
	}
}

type SetAppend struct {
	base
	Item any
}

func NewSetAppend(topicName string, item any) *SetAppend {
	return &SetAppend{base: newBase(topicName, ""), Item: item}
}

func (c *SetAppend) TopicType() string { return "set" }
func (c *SetAppend) Kind() string      { return "append" }

func (c *SetAppend) Apply(old any) (any, error) {
	oldList, _ := old.([]any)
	for _, it := range oldList {
		if DeepEqual(it, c.Item) {
			return nil, &InvalidChangeError{TopicName: c.topicName, Reason: "item already present"}
		}
	}
	out := make([]any, len(oldList), len(oldList)+1)
	copy(out, oldList)
	return append(out, c.Item), nil
}

func (c *SetAppend) Inverse() Change {
	return &SetRemove{base: newBase(c.topicName, ""), Item: c.Item}
}

func (c *SetAppend) Serialize() map[string]any {
	return map[string]any{
		"topic_name": c.topicName, "topic_type": "set", "type": "append",
		"id": c.id, "item": c.Item,
	}
}

type SetRemove struct {
	base
	Item any
}

func NewSetRemove(topicName string, item any) *SetRemove {
	return &SetRemove{base: newBase(topicName, ""), Item: item}
}

func (c *SetRemove) TopicType() string { return "set" }
func (c *SetRemove) Kind() string      { return "remove" }

func (c *SetRemove) Apply(old any) (any, error) {
	oldList, _ := old.([]any)
	idx := -1
	for i, it := range oldList {
		if DeepEqual(it, c.Item) {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, &InvalidChangeError{TopicName: c.topicName, Reason: "item not present"}
	}
	out := make([]any, 0, len(oldList)-1)
	out = append(out, oldList[:idx]...)
	out = append(out, oldList[idx+1:]...)
	return out, nil
}

func (c *SetRemove) Inverse() Change {
	return &SetAppend{base: newBase(c.topicName, ""), Item: c.Item}
}

func (c *SetRemove) Serialize() map[string]any {
	return map[string]any{
		"topic_name": c.topicName, "topic_type": "set", "type": "remove",
		"id": c.id, "item": c.Item,
	}
}

func init() {
	register("set", "set", func(f map[string]any) (Change, error) {
		val, _ := f["value"].([]any)
		old, _ := f["old_value"].([]any)
		return &SetSet{base: newBase(str(f, "topic_name"), str(f, "id")), Value: val, OldValue: old}, nil
	})
	register("set", "append", func(f map[string]any) (Change, error) {
		return &SetAppend{base: newBase(str(f, "topic_name"), str(f, "id")), Item: f["item"]}, nil
	})
	register("set", "remove", func(f map[string]any) (Change, error) {
		return &SetRemove{base: newBase(str(f, "topic_name"), str(f, "id")), Item: f["item"]}, nil
	})
}
