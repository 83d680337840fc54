package change

// DictSet, DictAdd, DictPop and DictChangeValue are the change kinds for the
// "dict" topic type.
type DictSet struct {
	base
	Value    map[string]any
	OldValue map[string]any
}

func NewDictSet(topicName string, value map[string]any) *DictSet {
	return &DictSet{base: newBase(topicName, ""), Value: value}
}

func (c *DictSet) TopicType() string { return "dict" }
func (c *DictSet) Kind() string      { return "set" }

func (c *DictSet) Apply(old any) (any, error) {
	oldMap, _ := old.(map[string]any)
	if !DeepEqual(c.OldValue, oldMap) {
		c.regenerateID()
	}
	c.OldValue = oldMap
	return cloneAny(c.Value), nil
}

func (c *DictSet) Inverse() Change {
	return &DictSet{base: newBase(c.topicName, ""), Value: c.OldValue, OldValue: c.Value}
}

func (c *DictSet) Serialize() map[string]any {
	return map[string]any{
		"topic_name": c.topicName, "topic_type": "dict", "type": "set",
		"id": c.id, "value": c.Value, "old_value": c.OldValue,
	}
}

type DictAdd struct {
	base
	Key   string
	Value any
}

func NewDictAdd(topicName, key string, value any) *DictAdd {
	return &DictAdd{base: newBase(topicName, ""), Key: key, Value: value}
}

func (c *DictAdd) TopicType() string { return "dict" }
func (c *DictAdd) Kind() string      { return "add" }

func (c *DictAdd) Apply(old any) (any, error) {
	oldMap, _ := old.(map[string]any)
	if _, exists := oldMap[c.Key]; exists {
		return nil, &InvalidChangeError{TopicName: c.topicName, Reason: "key already present: " + c.Key}
	}
	out := make(map[string]any, len(oldMap)+1)
	for k, v := range oldMap {
		out[k] = v
	}
	out[c.Key] = c.Value
	return out, nil
}

func (c *DictAdd) Inverse() Change {
	return &DictPop{base: newBase(c.topicName, ""), Key: c.Key, RemovedValue: c.Value}
}

func (c *DictAdd) Serialize() map[string]any {
	return map[string]any{
		"topic_name": c.topicName, "topic_type": "dict", "type": "add",
		"id": c.id, "key": c.Key, "value": c.Value,
	}
}

// DictPop removes Key and records RemovedValue on apply so Inverse restores it.
type DictPop struct {
	base
	Key          string
	RemovedValue any
}

func NewDictPop(topicName, key string) *DictPop {
	return &DictPop{base: newBase(topicName, ""), Key: key}
}

func (c *DictPop) TopicType() string { return "dict" }
func (c *DictPop) Kind() string      { return "pop" }

func (c *DictPop) Apply(old any) (any, error) {
	oldMap, _ := old.(map[string]any)
	val, exists := oldMap[c.Key]
	if !exists {
		return nil, &InvalidChangeError{TopicName: c.topicName, Reason: "key not present: " + c.Key}
	}
	c.RemovedValue = val
	out := make(map[string]any, len(oldMap))
	for k, v := range oldMap {
		if k != c.Key {
			out[k] = v
		}
	}
	return out, nil
}

func (c *DictPop) Inverse() Change {
	return &DictAdd{base: newBase(c.topicName, ""), Key: c.Key, Value: c.RemovedValue}
}

func (c *DictPop) Serialize() map[string]any {
	return map[string]any{
		"topic_name": c.topicName, "topic_type": "dict", "type": "pop",
		"id": c.id, "key": c.Key,
	}
}

// DictChangeValue replaces the value at Key, regenerating its id if the
// observed OldValue no longer matches what's stored (analogous to the
// string version-drift rule: a stale optimistic edit must not be falsely
// confirmed).
type DictChangeValue struct {
	base
	Key      string
	Value    any
	OldValue any
}

func NewDictChangeValue(topicName, key string, value any) *DictChangeValue {
	return &DictChangeValue{base: newBase(topicName, ""), Key: key, Value: value}
}

func (c *DictChangeValue) TopicType() string { return "dict" }
func (c *DictChangeValue) Kind() string      { return "change_value" }

func (c *DictChangeValue) Apply(old any) (any, error) {
	oldMap, _ := old.(map[string]any)
	current, exists := oldMap[c.Key]
	if !exists {
		return nil, &InvalidChangeError{TopicName: c.topicName, Reason: "key not present: " + c.Key}
	}
	if !DeepEqual(c.OldValue, current) {
		c.regenerateID()
	}
	c.OldValue = current
	out := make(map[string]any, len(oldMap))
	for k, v := range oldMap {
		out[k] = v
	}
	out[c.Key] = c.Value
	return out, nil
}

func (c *DictChangeValue) Inverse() Change {
	return &DictChangeValue{base: newBase(c.topicName, ""), Key: c.Key, Value: c.OldValue, OldValue: c.Value}
}

func (c *DictChangeValue) Serialize() map[string]any {
	return map[string]any{
		"topic_name": c.topicName, "topic_type": "dict", "type": "change_value",
		"id": c.id, "key": c.Key, "value": c.Value, "old_value": c.OldValue,
	}
}

func init() {
	register("dict", "set", func(f map[string]any) (Change, error) {
		val, _ := f["value"].(map[string]any)
		old, _ := f["old_value"].(map[string]any)
		return &DictSet{base: newBase(str(f, "topic_name"), str(f, "id")), Value: val, OldValue: old}, nil
	})
	register("dict", "add", func(f map[string]any) (Change, error) {
		return &DictAdd{base: newBase(str(f, "topic_name"), str(f, "id")), Key: str(f, "key"), Value: f["value"]}, nil
	})
	register("dict", "pop", func(f map[string]any) (Change, error) {
		return &DictPop{base: newBase(str(f, "topic_name"), str(f, "id")), Key: str(f, "key")}, nil
	})
	register("dict", "change_value", func(f map[string]any) (Change, error) {
		return &DictChangeValue{base: newBase(str(f, "topic_name"), str(f, "id")), Key: str(f, "key"), Value: f["value"], OldValue: f["old_value"]}, nil
	})
}
